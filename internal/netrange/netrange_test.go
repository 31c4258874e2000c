package netrange

import (
	"math"
	"net/netip"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(n *Network) []netip.Addr {
	return slices.Collect(n.Hosts())
}

func TestHosts_CountMatchesPrefix(t *testing.T) {
	cases := map[string]int{
		"10.0.0.0/24":      254,
		"10.0.0.0/28":      14,
		"198.51.100.0/30":  2,
		"198.51.100.0/31":  2,
		"198.51.100.7/32":  0,
		"172.16.0.0/22":    1022,
		"2001:db8::/120":   255,
		"2001:db8::/127":   2,
		"2001:db8::1/128":  0,
		"192.168.254.0/23": 510,
	}
	for spec, want := range cases {
		t.Run(spec, func(t *testing.T) {
			n, err := Parse(spec)
			require.NoError(t, err)
			hosts := collect(n)
			assert.Len(t, hosts, want)
			assert.Equal(t, uint64(want), n.HostCount())
		})
	}
}

func TestHosts_AscendingNoDuplicates(t *testing.T) {
	n := MustParse("10.1.0.0/22")
	hosts := collect(n)
	require.NotEmpty(t, hosts)

	seen := make(map[netip.Addr]struct{}, len(hosts))
	for i, h := range hosts {
		_, dup := seen[h]
		require.False(t, dup, "duplicate %s", h)
		seen[h] = struct{}{}
		if i > 0 {
			require.Equal(t, -1, hosts[i-1].Compare(h), "%s must precede %s", hosts[i-1], h)
		}
		require.True(t, n.Prefix().Contains(h))
	}
	assert.Equal(t, "10.1.0.1", hosts[0].String())
	assert.Equal(t, "10.1.3.254", hosts[len(hosts)-1].String())
}

func TestHosts_ExcludesNetworkAndBroadcast(t *testing.T) {
	hosts := collect(MustParse("198.51.100.0/30"))
	assert.Equal(t, []string{"198.51.100.1", "198.51.100.2"}, toStrings(hosts))

	hosts = collect(MustParse("2001:db8::/126"))
	assert.Equal(t, []string{"2001:db8::1", "2001:db8::2", "2001:db8::3"}, toStrings(hosts))
}

func TestHosts_Restartable(t *testing.T) {
	n := MustParse("192.0.2.0/29")
	assert.Equal(t, collect(n), collect(n))

	// 提前终止不影响下一次遍历
	for range n.Hosts() {
		break
	}
	assert.Len(t, collect(n), 6)
}

func TestParse_BareAddress(t *testing.T) {
	n, err := Parse("192.0.2.10")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10/32", n.String())
	assert.Empty(t, collect(n))
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{
		"",
		"not-a-network",
		"10.0.0.0/33",
		"10.0.0.256/24",
		"10.0.0.1/24",
		"10.0.0.0/",
		"fe80::1%eth0",
		"2001:db8::/129",
	}
	for _, spec := range cases {
		t.Run(spec, func(t *testing.T) {
			n, err := Parse(spec)
			assert.Nil(t, n)
			assert.ErrorIs(t, err, ErrInvalidNetworkSpec)
		})
	}
}

func TestHostCount_SaturatesForLargeIPv6(t *testing.T) {
	assert.Equal(t, uint64(math.MaxUint64), MustParse("2001:db8::/32").HostCount())
	assert.Equal(t, uint64(math.MaxUint64), MustParse("2001:db8::/64").HostCount())
}

func toStrings(addrs []netip.Addr) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}
