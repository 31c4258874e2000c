package portscan

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPorts(t *testing.T) {
	common := SelectPorts(false)
	assert.Equal(t, []int{20, 21, 22, 23, 25, 53, 80, 443, 445, 3389}, slices.Collect(common.All()))
	assert.Equal(t, 10, common.Len())

	all := SelectPorts(true)
	ports := slices.Collect(all.All())
	require.Len(t, ports, 1024)
	assert.Equal(t, 1, ports[0])
	assert.Equal(t, 1024, ports[len(ports)-1])
	assert.Equal(t, "1-1024", all.String())
	assert.Contains(t, ports, 631)
	assert.NotContains(t, ports, 3389)
}

func TestCommonPorts_IsACopy(t *testing.T) {
	a := CommonPorts()
	a.list[0] = 9999
	assert.Equal(t, 20, slices.Collect(CommonPorts().All())[0])
}

func TestPortList(t *testing.T) {
	s, err := PortList(80, 22, 80, 443)
	require.NoError(t, err)
	assert.Equal(t, []int{80, 22, 443}, slices.Collect(s.All()))
	assert.Equal(t, "80,22,443", s.String())

	for _, bad := range [][]int{nil, {0}, {65536}, {22, -1}} {
		_, err := PortList(bad...)
		assert.Error(t, err, "ports %v", bad)
	}
}

func TestPortRange(t *testing.T) {
	s, err := PortRange(8000, 8002)
	require.NoError(t, err)
	assert.Equal(t, []int{8000, 8001, 8002}, slices.Collect(s.All()))

	_, err = PortRange(10, 1)
	assert.Error(t, err)
	_, err = PortRange(0, 10)
	assert.Error(t, err)
	_, err = PortRange(1, 70000)
	assert.Error(t, err)
}

func TestPortSet_EarlyStop(t *testing.T) {
	n := 0
	for range AllPorts().All() {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}
