// Package discovery implements the module-manager boundary (design §4.F's
// device.ModuleManager collaborator, generalized per design §9/§5.J) plus
// one concrete Module: an mDNS-based device finder built on
// github.com/miekg/dns, producing daq.nd:// connection strings. Grounded
// on original_source/shared/libraries/discovery/include/daq_discovery/mdnsdiscovery_client.h
// (MdnsDiscoveredDevice's canonicalName/serviceName/priority/weight/port/
// ipv4/ipv6/TXT-properties shape) and common/network.go's mDNS multicast
// address constants.
package discovery

import (
	"net"
	"sort"
	"time"

	"github.com/miekg/dns"

	"github.com/opendaq/daqcore/connstring"
	"github.com/opendaq/daqcore/daqerr"
	"github.com/opendaq/daqcore/daqlog"
	"github.com/opendaq/daqcore/property"
)

var log = daqlog.GetOrAddComponent("discovery")

// mdnsMulticastAddr is the IPv4 mDNS multicast group and port, the same
// 224.0.0.251:5353 pairing common/network.go's IpmDNSv4 constant names.
const mdnsMulticastAddr = "224.0.0.251:5353"

// DiscoveredDevice is one answer from an mDNS sweep, restored from the
// original's MdnsDiscoveredDevice.
type DiscoveredDevice struct {
	CanonicalName    string
	ServiceName      string
	ServicePriority  uint16
	ServiceWeight    uint16
	ServicePort      uint16
	IPv4Address      string
	IPv6Address      string
	Properties       map[string]string
}

// ConnectionString renders d as a daq.nd:// connection string (design §6).
func (d DiscoveredDevice) ConnectionString() string {
	host := d.IPv4Address
	hostType := connstring.HostTypeName
	if host == "" {
		host = d.IPv6Address
		hostType = connstring.HostTypeIPv6
	}
	cs := &connstring.ConnectionString{
		Prefix:   "daq.nd",
		Host:     host,
		HostType: hostType,
		Port:     int(d.ServicePort),
		Path:     d.ServiceName,
	}
	return cs.String()
}

// GetPropertyOrDefault returns one TXT record value, or def if absent —
// restored from the original's getPropertyOrDefault convenience method.
func (d DiscoveredDevice) GetPropertyOrDefault(name, def string) string {
	if v, ok := d.Properties[name]; ok {
		return v
	}
	return def
}

// Module is the boundary interface design §5.J asks for: a transport- and
// protocol-agnostic discovery/creation backend a ModuleManager dispatches
// to by connection-string prefix or function-block type ID.
type Module interface {
	// ID names the module (e.g. "daq.nd") for ModuleManager routing.
	ID() string
	// AvailableDevices runs a discovery sweep and returns the devices found
	// within the given timeout.
	AvailableDevices(timeout time.Duration) ([]DiscoveredDevice, error)
	// AcceptsConnectionString reports whether this module can create a
	// device for the given connection string's prefix.
	AcceptsConnectionString(cs *connstring.ConnectionString) bool
}

// ModuleManager aggregates AvailableDevices across a set of registered
// Modules and picks the Module for a connection string by prefix, the
// boundary design §5.J calls for instead of hardcoding one transport. It
// has no CreateDevice and does not implement device.ModuleManager.
type ModuleManager struct {
	modules []Module
}

// NewModuleManager constructs an empty manager; modules are added with
// Register.
func NewModuleManager() *ModuleManager {
	return &ModuleManager{}
}

// Register adds m to the manager's module set.
func (mm *ModuleManager) Register(m Module) {
	mm.modules = append(mm.modules, m)
}

// AvailableDevices sweeps every registered module and merges the results.
func (mm *ModuleManager) AvailableDevices(timeout time.Duration) ([]DiscoveredDevice, error) {
	var all []DiscoveredDevice
	for _, m := range mm.modules {
		devices, err := m.AvailableDevices(timeout)
		if err != nil {
			log.Warning("discovery module failed", "module", m.ID(), "error", err)
			continue
		}
		all = append(all, devices...)
	}
	return all, nil
}

// ModuleFor returns the registered module willing to handle
// connectionString, or an error if none claims it.
func (mm *ModuleManager) ModuleFor(connectionString string) (Module, error) {
	cs, err := connstring.Parse(connectionString)
	if err != nil {
		return nil, err
	}
	for _, m := range mm.modules {
		if m.AcceptsConnectionString(cs) {
			return m, nil
		}
	}
	return nil, daqerr.New(daqerr.NotFound, "discovery.ModuleManager", "no module accepts %q", connectionString)
}

// MDNSModule is the one concrete Module this package ships: an mDNS
// service browser for "_opendaq._udp.local." built directly on
// github.com/miekg/dns's message types, restored from the original's
// MDNSDiscoveryClient (minus its IP-configuration mutation RPCs, which
// design §1 places out of scope alongside the OPC-UA/native transports).
type MDNSModule struct {
	serviceNames []string
}

// NewMDNSModule constructs a finder for the given mDNS service names
// (e.g. "_opendaq._udp.local."), mirroring MDNSDiscoveryClient's
// ListPtr<IString> constructor argument.
func NewMDNSModule(serviceNames ...string) *MDNSModule {
	if len(serviceNames) == 0 {
		serviceNames = []string{"_opendaq._udp.local."}
	}
	return &MDNSModule{serviceNames: serviceNames}
}

// ID implements Module.
func (m *MDNSModule) ID() string { return "daq.nd" }

// AcceptsConnectionString implements Module: mDNS-discovered devices are
// always addressed with the daq.nd prefix.
func (m *MDNSModule) AcceptsConnectionString(cs *connstring.ConnectionString) bool {
	return cs.Prefix == "daq.nd"
}

// AvailableDevices sends one mDNS PTR query per configured service name
// over UDP multicast and collects A/AAAA/SRV/TXT answers into
// DiscoveredDevice values until timeout elapses.
func (m *MDNSModule) AvailableDevices(timeout time.Duration) ([]DiscoveredDevice, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, daqerr.Wrap(daqerr.GeneralError, "discovery.MDNSModule", err)
	}
	defer conn.Close()

	dst, err := net.ResolveUDPAddr("udp4", mdnsMulticastAddr)
	if err != nil {
		return nil, daqerr.Wrap(daqerr.GeneralError, "discovery.MDNSModule", err)
	}

	for _, name := range m.serviceNames {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(name), dns.TypePTR)
		msg.RecursionDesired = false
		packed, err := msg.Pack()
		if err != nil {
			return nil, daqerr.Wrap(daqerr.GeneralError, "discovery.MDNSModule", err)
		}
		if _, err := conn.WriteTo(packed, dst); err != nil {
			return nil, daqerr.Wrap(daqerr.GeneralError, "discovery.MDNSModule", err)
		}
	}

	deadline := time.Now().Add(timeout)
	_ = conn.SetReadDeadline(deadline)

	found := make(map[string]*DiscoveredDevice)
	buf := make([]byte, 65536)
	for time.Now().Before(deadline) {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			break
		}
		resp := new(dns.Msg)
		if err := resp.Unpack(buf[:n]); err != nil {
			continue
		}
		applyAnswers(found, resp.Answer)
		applyAnswers(found, resp.Extra)
	}

	out := make([]DiscoveredDevice, 0, len(found))
	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, *found[name])
	}
	return out, nil
}

func applyAnswers(found map[string]*DiscoveredDevice, rrs []dns.RR) {
	for _, rr := range rrs {
		switch v := rr.(type) {
		case *dns.PTR:
			get(found, v.Ptr).ServiceName = v.Ptr
			get(found, v.Ptr).CanonicalName = v.Hdr.Name
		case *dns.SRV:
			d := get(found, v.Hdr.Name)
			d.ServicePriority = v.Priority
			d.ServiceWeight = v.Weight
			d.ServicePort = v.Port
			d.CanonicalName = v.Target
		case *dns.A:
			get(found, v.Hdr.Name).IPv4Address = v.A.String()
		case *dns.AAAA:
			get(found, v.Hdr.Name).IPv6Address = v.AAAA.String()
		case *dns.TXT:
			d := get(found, v.Hdr.Name)
			if d.Properties == nil {
				d.Properties = make(map[string]string)
			}
			for _, kv := range v.Txt {
				for i := 0; i < len(kv); i++ {
					if kv[i] == '=' {
						d.Properties[kv[:i]] = kv[i+1:]
						break
					}
				}
			}
		}
	}
}

func get(found map[string]*DiscoveredDevice, name string) *DiscoveredDevice {
	if d, ok := found[name]; ok {
		return d
	}
	d := &DiscoveredDevice{ServiceName: name}
	found[name] = d
	return d
}

// DevicePropertyObject builds a minimal read-only property object exposing
// a discovered device's TXT properties, the shape a
// device.ModuleManager.CreateDevice implementation can attach as initial
// configuration without needing its own bespoke property schema per
// protocol.
func DevicePropertyObject(d DiscoveredDevice) *property.Object {
	obj := property.New()
	for _, name := range sortedKeys(d.Properties) {
		_ = obj.AddProperty(property.Metadata{Name: name, ValueType: property.ValueString, Default: d.Properties[name], ReadOnly: true})
	}
	return obj
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
