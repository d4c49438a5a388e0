// Package connstring parses and builds the connection-string grammar used
// throughout the component tree to name a remote device or streaming
// endpoint without committing to a particular transport (design §6):
//
//	<prefix>://<host>[:<port>][/<path>]
//
// The prefix selects a protocol (daq.nd, daq.ns, daq.opcua, daq.lt); a
// missing port defers to the protocol's default. Grounded on
// common/network.go's URL/host parsing helpers, generalized from a single
// hardcoded scheme to the small closed prefix set above.
package connstring

import (
	"strconv"
	"strings"

	"github.com/opendaq/daqcore/daqerr"
)

// HostType enumerates how a connection string's host segment should be
// interpreted — currently only distinguishing IPv4/hostname from
// bracket-wrapped IPv6, mirroring GetHostType's single real use.
type HostType int

const (
	HostTypeName HostType = iota
	HostTypeIPv6
)

// defaultPorts gives the protocol default a connection string may omit.
var defaultPorts = map[string]int{
	"daq.nd":    7420,
	"daq.ns":    7414,
	"daq.opcua": 4840,
	"daq.lt":    7415,
}

// ConnectionString is a parsed <prefix>://<host>[:<port>][/<path>] value.
type ConnectionString struct {
	Prefix   string
	Host     string
	HostType HostType
	Port     int
	Path     string
}

// Parse splits raw into its prefix/host/port/path components. A missing
// port is filled in from defaultPorts when the prefix is recognized;
// otherwise Port is left 0, and the caller is expected to reject an
// unknown prefix itself if that matters to it.
func Parse(raw string) (*ConnectionString, error) {
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return nil, daqerr.New(daqerr.InvalidParameter, "connstring.Parse", "missing scheme separator in %q", raw)
	}
	prefix := raw[:idx]
	rest := raw[idx+3:]
	if prefix == "" {
		return nil, daqerr.New(daqerr.InvalidParameter, "connstring.Parse", "empty prefix in %q", raw)
	}

	hostPort := rest
	path := ""
	if slash := strings.Index(rest, "/"); slash >= 0 {
		hostPort = rest[:slash]
		path = rest[slash+1:]
	}
	if hostPort == "" {
		return nil, daqerr.New(daqerr.InvalidParameter, "connstring.Parse", "empty host in %q", raw)
	}

	host, hostType, port, err := splitHostPort(hostPort)
	if err != nil {
		return nil, daqerr.Wrap(daqerr.InvalidParameter, "connstring.Parse", err)
	}
	if port == 0 {
		port = defaultPorts[prefix]
	}

	return &ConnectionString{Prefix: prefix, Host: host, HostType: hostType, Port: port, Path: path}, nil
}

// splitHostPort handles the four shapes a host segment can take:
// "host", "host:port", "[ipv6]", "[ipv6]:port".
func splitHostPort(s string) (host string, hostType HostType, port int, err error) {
	if strings.HasPrefix(s, "[") {
		end := strings.Index(s, "]")
		if end < 0 {
			return "", 0, 0, daqerr.New(daqerr.InvalidParameter, "connstring", "unterminated IPv6 literal in %q", s)
		}
		host = s[1:end]
		hostType = HostTypeIPv6
		rem := s[end+1:]
		if strings.HasPrefix(rem, ":") {
			port, err = strconv.Atoi(rem[1:])
			if err != nil {
				return "", 0, 0, daqerr.New(daqerr.InvalidParameter, "connstring", "invalid port in %q", s)
			}
		}
		return host, hostType, port, nil
	}

	if i := strings.LastIndex(s, ":"); i >= 0 {
		host = s[:i]
		port, err = strconv.Atoi(s[i+1:])
		if err != nil {
			return "", 0, 0, daqerr.New(daqerr.InvalidParameter, "connstring", "invalid port in %q", s)
		}
		return host, HostTypeName, port, nil
	}
	return s, HostTypeName, 0, nil
}

// String renders the connection string back to its canonical textual form.
func (c *ConnectionString) String() string {
	var b strings.Builder
	b.WriteString(c.Prefix)
	b.WriteString("://")
	if c.HostType == HostTypeIPv6 {
		b.WriteByte('[')
		b.WriteString(c.Host)
		b.WriteByte(']')
	} else {
		b.WriteString(c.Host)
	}
	if c.Port != 0 && c.Port != defaultPorts[c.Prefix] {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(c.Port))
	}
	if c.Path != "" {
		b.WriteByte('/')
		b.WriteString(c.Path)
	}
	return b.String()
}

// GetHostType reports whether raw's host segment is a bracket-wrapped IPv6
// literal or a plain name/IPv4 address.
func GetHostType(raw string) (HostType, error) {
	c, err := Parse(raw)
	if err != nil {
		return 0, err
	}
	return c.HostType, nil
}

// GetHost returns raw's host segment.
func GetHost(raw string) (string, error) {
	c, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return c.Host, nil
}

// GetPort returns raw's port, resolved against the protocol default if
// the string omitted one.
func GetPort(raw string) (int, error) {
	c, err := Parse(raw)
	if err != nil {
		return 0, err
	}
	return c.Port, nil
}

// GetPath returns raw's path segment, or "" if none was given.
func GetPath(raw string) (string, error) {
	c, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return c.Path, nil
}
