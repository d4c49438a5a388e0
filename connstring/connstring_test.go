package connstring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFillsDefaultPortPerPrefix(t *testing.T) {
	assert := require.New(t)

	for prefix, want := range defaultPorts {
		c, err := Parse(prefix + "://host")
		assert.NoError(err)
		assert.Equal(want, c.Port)
		assert.Equal(HostTypeName, c.HostType)
		assert.Equal("", c.Path)
	}
}

func TestParseExplicitPortOverridesDefault(t *testing.T) {
	assert := require.New(t)

	c, err := Parse("daq.nd://host:9000/some/path")
	assert.NoError(err)
	assert.Equal(9000, c.Port)
	assert.Equal("some/path", c.Path)
}

func TestParseIPv6BracketLiteral(t *testing.T) {
	assert := require.New(t)

	c, err := Parse("daq.ns://[::1]:8080")
	assert.NoError(err)
	assert.Equal("::1", c.Host)
	assert.Equal(HostTypeIPv6, c.HostType)
	assert.Equal(8080, c.Port)

	c, err = Parse("daq.ns://[fe80::1]")
	assert.NoError(err)
	assert.Equal("fe80::1", c.Host)
	assert.Equal(defaultPorts["daq.ns"], c.Port)
}

func TestParseRejectsMissingSchemeOrHost(t *testing.T) {
	assert := require.New(t)

	_, err := Parse("host-without-scheme")
	assert.Error(err)

	_, err = Parse("daq.nd://")
	assert.Error(err)
}

func TestStringRoundTripOmitsDefaultPort(t *testing.T) {
	assert := require.New(t)

	c, err := Parse("daq.nd://host")
	assert.NoError(err)
	assert.Equal("daq.nd://host", c.String(), "the default port must not be re-rendered")

	c, err = Parse("daq.nd://host:9999/path")
	assert.NoError(err)
	assert.Equal("daq.nd://host:9999/path", c.String())
}

func TestStringRoundTripIPv6(t *testing.T) {
	assert := require.New(t)

	c, err := Parse("daq.opcua://[::1]:1234")
	assert.NoError(err)
	assert.Equal("daq.opcua://[::1]:1234", c.String())
}

func TestAccessorHelpers(t *testing.T) {
	assert := require.New(t)

	ht, err := GetHostType("daq.lt://[::1]")
	assert.NoError(err)
	assert.Equal(HostTypeIPv6, ht)

	host, err := GetHost("daq.lt://example.local:1")
	assert.NoError(err)
	assert.Equal("example.local", host)

	port, err := GetPort("daq.lt://example.local")
	assert.NoError(err)
	assert.Equal(defaultPorts["daq.lt"], port)

	path, err := GetPath("daq.lt://example.local/a/b")
	assert.NoError(err)
	assert.Equal("a/b", path)
}
