package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_CommonPorts(t *testing.T) {
	c := New()
	cases := map[int]string{
		20:   "ftp-data",
		21:   "ftp",
		22:   "ssh",
		23:   "telnet",
		25:   "smtp",
		53:   "domain",
		80:   "http",
		443:  "https",
		445:  "microsoft-ds",
		3389: "ms-wbt-server",
	}
	for port, want := range cases {
		assert.Equal(t, want, c.Lookup(port), "port %d", port)
	}
}

func TestLookup_OutOfRange(t *testing.T) {
	c := New()
	assert.Equal(t, Unknown, c.Lookup(0))
	assert.Equal(t, Unknown, c.Lookup(-1))
	assert.Equal(t, Unknown, c.Lookup(70000))
}

func TestLookup_NeverEmpty(t *testing.T) {
	c := New()
	for port := 1; port <= 1024; port++ {
		name := c.Lookup(port)
		require.NotEmpty(t, name, "port %d", port)
		require.Equal(t, strings.ToLower(name), name)
	}
}

func TestParse(t *testing.T) {
	in := `
# comment line
ssh		22/tcp				# SSH Remote Login Protocol
ssh-udp		22/udp
custom		631/tcp		ipp-alias
dup		631/tcp
web		8080/tcp
`
	got, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, map[int]string{22: "ssh", 631: "custom", 8080: "web"}, got)
}

func TestParse_Malformed(t *testing.T) {
	for _, in := range []string{"ssh\n", "ssh 22\n", "ssh abc/tcp\n", "ssh 0/tcp\n"} {
		_, err := Parse(strings.NewReader(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestLoad_OverlaysBundled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services")
	require.NoError(t, os.WriteFile(path, []byte("printer 631/tcp\nhttp-alt 8080/tcp\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "printer", c.Lookup(631))
	assert.Equal(t, "http-alt", c.Lookup(8080))
	// 文件里没有的端口回落到内置表
	assert.Equal(t, "ssh", c.Lookup(22))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http", c.Lookup(80))
}
