// Package device implements the device and function block modules (design
// §4.F): a signal container subclass composed with a device domain clock,
// module-mediated child device/function-block/server creation, and
// configuration save/load, plus the ServerCapability list restored from
// original_source's device_info_impl.h/.cpp.
package device

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/opendaq/daqcore/component"
	"github.com/opendaq/daqcore/container"
	"github.com/opendaq/daqcore/coreevent"
	"github.com/opendaq/daqcore/coretypes"
	"github.com/opendaq/daqcore/daqerr"
	"github.com/opendaq/daqcore/property"
)

// IID identifiers for the element types the device/function-block folders
// carry, mirroring coretypes.IID usage across the tree.
var (
	IIDDevice        = coretypes.NewIID(0xd0d0000000000001, 0x0000000000000001)
	IIDFunctionBlock = coretypes.NewIID(0xd0d0000000000001, 0x0000000000000002)
	IIDSignal        = coretypes.NewIID(0xd0d0000000000001, 0x0000000000000003)
	IIDInputPort     = coretypes.NewIID(0xd0d0000000000001, 0x0000000000000004)
	IIDServer        = coretypes.NewIID(0xd0d0000000000001, 0x0000000000000005)
)

// Domain is an immutable triple attached to a device (design §6): a
// rational tick resolution, an origin timestamp string, and a unit.
// Descendants use it to interpret domain samples.
type Domain struct {
	TickResolution property.Ratio `json:"TickResolution"`
	Origin         string         `json:"Origin"`
	Unit           string         `json:"Unit"`
}

// ServerCapability describes one protocol a device can be reached over,
// restored from original_source's device_info_impl: protocol ID,
// connection string, protocol type, and an enabled flag. Each capability
// is itself a small property object, per the original.
type ServerCapability struct {
	ProtocolID       string `json:"ProtocolId"`
	ConnectionString string `json:"ConnectionString"`
	ProtocolType     string `json:"ProtocolType"`
	Enabled          bool   `json:"Enabled"`
}

// Info is a device's lazily built, frozen device-info property object: a
// fixed set of string/int properties plus a nested server-capabilities
// object (design §4.F). "Name" has no backing value of its own — its
// OnRead callback redirects every read to the owning component's live
// display name, and because the whole object is frozen immediately after
// construction, every SetPropertyValue (including "Name") fails with
// daqerr.Frozen: there is no write-through from info back onto the
// component, matching design §9's "Device-info Name override" resolution.
type Info struct {
	*property.Object
}

// NewInfo builds and freezes a device-info object for owner. capabilities
// becomes a nested "ServerCapabilities" object keyed by index, restored
// from original_source's device_info_impl.h/.cpp capability list.
func NewInfo(owner *component.Component, model, serialNumber, manufacturer, hardwareRevision, softwareRevision string, capabilities []ServerCapability) *Info {
	obj := property.New()
	_ = obj.AddProperty(property.Metadata{
		Name:      "Name",
		ValueType: property.ValueString,
		Default:   "",
		Visible:   true,
		OnRead: func(string, interface{}) interface{} {
			return owner.Name()
		},
	})
	_ = obj.AddProperty(property.Metadata{Name: "Model", ValueType: property.ValueString, Default: model, Visible: true})
	_ = obj.AddProperty(property.Metadata{Name: "SerialNumber", ValueType: property.ValueString, Default: serialNumber, Visible: true})
	_ = obj.AddProperty(property.Metadata{Name: "Manufacturer", ValueType: property.ValueString, Default: manufacturer, Visible: true})
	_ = obj.AddProperty(property.Metadata{Name: "HardwareRevision", ValueType: property.ValueString, Default: hardwareRevision, Visible: true})
	_ = obj.AddProperty(property.Metadata{Name: "SoftwareRevision", ValueType: property.ValueString, Default: softwareRevision, Visible: true})
	_ = obj.AddProperty(property.Metadata{
		Name:      "ServerCapabilities",
		ValueType: property.ValueObject,
		Default:   newServerCapabilitiesObject(capabilities),
		Visible:   true,
	})
	obj.Freeze()
	return &Info{Object: obj}
}

func newServerCapabilitiesObject(capabilities []ServerCapability) *property.Object {
	obj := property.New()
	for i, sc := range capabilities {
		_ = obj.AddProperty(property.Metadata{
			Name:      strconv.Itoa(i),
			ValueType: property.ValueObject,
			Default:   newServerCapabilityObject(sc),
			Visible:   true,
		})
	}
	return obj
}

func newServerCapabilityObject(sc ServerCapability) *property.Object {
	obj := property.New()
	_ = obj.AddProperty(property.Metadata{Name: "ProtocolId", ValueType: property.ValueString, Default: sc.ProtocolID, Visible: true})
	_ = obj.AddProperty(property.Metadata{Name: "ConnectionString", ValueType: property.ValueString, Default: sc.ConnectionString, Visible: true})
	_ = obj.AddProperty(property.Metadata{Name: "ProtocolType", ValueType: property.ValueString, Default: sc.ProtocolType, Visible: true})
	_ = obj.AddProperty(property.Metadata{Name: "Enabled", ValueType: property.ValueBool, Default: sc.Enabled, Visible: true})
	return obj
}

// Name returns the owning component's live display name.
func (info *Info) Name() string {
	return stringProp(info.Object, "Name")
}

// Model returns the fixed model string supplied at construction.
func (info *Info) Model() string { return stringProp(info.Object, "Model") }

// SerialNumber returns the fixed serial number supplied at construction.
func (info *Info) SerialNumber() string { return stringProp(info.Object, "SerialNumber") }

// Manufacturer returns the fixed manufacturer string supplied at construction.
func (info *Info) Manufacturer() string { return stringProp(info.Object, "Manufacturer") }

// HardwareRevision returns the fixed hardware revision supplied at construction.
func (info *Info) HardwareRevision() string { return stringProp(info.Object, "HardwareRevision") }

// SoftwareRevision returns the fixed software revision supplied at construction.
func (info *Info) SoftwareRevision() string { return stringProp(info.Object, "SoftwareRevision") }

func stringProp(obj *property.Object, name string) string {
	v, err := obj.GetPropertyValue(name)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ModuleManager is the collaborator a Device delegates addDevice /
// addFunctionBlock / addServer to (design §4.F). A concrete module (e.g.
// the discovery package's mDNS finder paired with a transport) registers
// itself and is consulted by connection-string prefix or type ID.
type ModuleManager interface {
	CreateDevice(connectionString string, config *property.Object) (*Device, error)
	CreateFunctionBlock(typeID string, config *property.Object) (*FunctionBlock, error)
	CreateServer(typeID string, config *property.Object) (interface{}, error)
}

// Device is a signal container that additionally owns a device domain, a
// device-info snapshot, and module-mediated child management.
type Device struct {
	*container.SignalContainer

	mu       sync.Mutex
	domain   Domain
	info     *Info
	infoOnce sync.Once
	modules  ModuleManager
	root     bool
}

// New constructs a Device. isRoot marks the top-level device, the only one
// allowed to addServer/removeServer (design §4.F).
func New(comp *component.Component, modules ModuleManager, isRoot bool) *Device {
	sc := container.NewSignalContainer(comp, IIDSignal, IIDFunctionBlock, func(localID string, iid coretypes.IID) *container.Folder {
		child := component.New(folderClassName(iid), localID, comp, nil)
		return container.NewFolder(child, iid)
	})
	d := &Device{SignalContainer: sc, modules: modules, root: isRoot}
	if isRoot {
		d.Folders().Dev = newFolder(comp, "Dev", IIDDevice)
		d.Folders().IO = newFolder(comp, "IO", IIDInputPort)
		d.Folders().Srv = newFolder(comp, "Srv", IIDServer)
		d.Folders().Synchronization = newFolder(comp, "Synchronization", IIDDevice)
	}
	return d
}

func newFolder(parent *component.Component, localID string, iid coretypes.IID) *container.Folder {
	c := component.New(folderClassName(iid), localID, parent, nil)
	return container.NewFolder(c, iid)
}

func folderClassName(iid coretypes.IID) string {
	switch iid {
	case IIDDevice:
		return "DeviceFolder"
	case IIDInputPort:
		return "IoFolder"
	case IIDServer:
		return "ServerFolder"
	default:
		return "Folder"
	}
}

// Folders exposes the embedded SignalContainer's folder set by reference
// so New can populate the device-only folders after construction.
func (d *Device) Folders() *container.SignalContainerFolders {
	return &d.SignalContainer.Folders
}

// GetInfo lazily builds and freezes the device's info snapshot on first
// call (design §4.F).
func (d *Device) GetInfo() *Info {
	d.infoOnce.Do(func() {
		d.mu.Lock()
		if d.info == nil {
			d.info = NewInfo(d.Component, "", "", "", "", "", nil)
		}
		d.mu.Unlock()
	})
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info
}

// SetInfo installs info, replacing any lazily-built placeholder. Intended
// to be called once during device construction, before GetInfo is
// observed by any client.
func (d *Device) SetInfo(info *Info) {
	d.mu.Lock()
	d.info = info
	d.mu.Unlock()
}

// Domain returns the device's immutable domain triple.
func (d *Device) Domain() Domain {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.domain
}

// SetDomain installs the device's domain triple; intended to be set once
// at construction, since design §6 describes the triple as immutable
// afterward. Changing it later still fires DeviceDomainChanged, since
// nothing else in the tree enforces the immutability beyond convention.
func (d *Device) SetDomain(domain Domain) {
	d.mu.Lock()
	changed := d.domain != domain
	d.domain = domain
	d.mu.Unlock()
	if changed {
		d.TriggerCoreEvent(coreevent.Args{
			ID:     coreevent.DeviceDomainChanged,
			Params: map[string]interface{}{"Domain": domain},
		})
	}
}

// AddDevice delegates to the module manager to construct a child device
// from connectionString, parenting the result under the Dev folder.
func (d *Device) AddDevice(connectionString string, config *property.Object) (*Device, error) {
	if !d.root && d.Folders().Dev == nil {
		return nil, daqerr.New(daqerr.InvalidOperation, "device.Device", "this device has no Dev folder")
	}
	if d.modules == nil {
		return nil, daqerr.New(daqerr.NotSupported, "device.Device", "no module manager configured")
	}
	child, err := d.modules.CreateDevice(connectionString, config)
	if err != nil {
		return nil, err
	}
	if err := d.Folders().Dev.AddItem(deviceItem{child}); err != nil {
		return nil, err
	}
	return child, nil
}

// RemoveDevice removes a previously added child device by its local ID.
func (d *Device) RemoveDevice(localID string) error {
	if d.Folders().Dev == nil {
		return daqerr.New(daqerr.InvalidOperation, "device.Device", "this device has no Dev folder")
	}
	return d.Folders().Dev.RemoveItem(localID)
}

// AddFunctionBlock delegates to the module manager to construct a function
// block of typeID, parenting it under the FB folder.
func (d *Device) AddFunctionBlock(typeID string, config *property.Object) (*FunctionBlock, error) {
	if d.modules == nil {
		return nil, daqerr.New(daqerr.NotSupported, "device.Device", "no module manager configured")
	}
	fb, err := d.modules.CreateFunctionBlock(typeID, config)
	if err != nil {
		return nil, err
	}
	if err := d.Folders().FB.AddItem(functionBlockItem{fb}); err != nil {
		return nil, err
	}
	return fb, nil
}

// RemoveFunctionBlock removes the function block with localID from the FB
// folder. No module-provided check is made: any function block in the FB
// folder is removed, and an unknown localID fails with daqerr.NotFound.
func (d *Device) RemoveFunctionBlock(localID string) error {
	return d.Folders().FB.RemoveItem(localID)
}

// AddServer delegates to the module manager; only valid on the root
// device (design §4.F).
func (d *Device) AddServer(typeID string, config *property.Object) (interface{}, error) {
	if !d.root {
		return nil, daqerr.New(daqerr.InvalidOperation, "device.Device", "addServer is only valid on the root device")
	}
	if d.modules == nil {
		return nil, daqerr.New(daqerr.NotSupported, "device.Device", "no module manager configured")
	}
	srv, err := d.modules.CreateServer(typeID, config)
	if err != nil {
		return nil, err
	}
	return srv, nil
}

// RemoveServer removes a server by its local ID; only valid on the root
// device.
func (d *Device) RemoveServer(localID string) error {
	if !d.root {
		return daqerr.New(daqerr.InvalidOperation, "device.Device", "removeServer is only valid on the root device")
	}
	return d.Folders().Srv.RemoveItem(localID)
}

// GetServers returns the root device's Srv folder contents.
func (d *Device) GetServers(filter container.SearchFilter) []container.Item {
	if d.Folders().Srv == nil {
		return nil
	}
	return d.Folders().Srv.GetItems(filter)
}

// GetDevices returns the Dev folder contents.
func (d *Device) GetDevices(filter container.SearchFilter) []container.Item {
	if d.Folders().Dev == nil {
		return nil
	}
	return d.Folders().Dev.GetItems(filter)
}

// GetInputsOutputsFolder returns the IO folder, or nil if this device has
// none (non-root devices typically don't).
func (d *Device) GetInputsOutputsFolder() *container.Folder {
	return d.Folders().IO
}

// GetSyncComponent returns the Synchronization folder, or nil.
func (d *Device) GetSyncComponent() *container.Folder {
	return d.Folders().Synchronization
}

// savedConfig is the self-contained JSON snapshot SaveConfiguration
// produces and LoadConfiguration consumes (design §4.F).
type savedConfig struct {
	Component json.RawMessage `json:"Component"`
	Domain    Domain          `json:"Domain"`
}

// SaveConfiguration returns a self-contained JSON snapshot of this
// device's component attributes, properties, and domain.
func (d *Device) SaveConfiguration() (json.RawMessage, error) {
	compJSON, err := d.Component.Serialize(true)
	if err != nil {
		return nil, err
	}
	return json.Marshal(savedConfig{Component: compJSON, Domain: d.Domain()})
}

// LoadConfiguration applies a snapshot produced by SaveConfiguration
// through the normal deserialize/update protocol (design §4.B/§4.C).
func (d *Device) LoadConfiguration(data json.RawMessage) error {
	var sc savedConfig
	if err := json.Unmarshal(data, &sc); err != nil {
		return daqerr.Wrap(daqerr.InvalidParameter, "device.Device", err)
	}
	if len(sc.Component) > 0 {
		if err := d.Component.Deserialize(sc.Component); err != nil {
			return err
		}
	}
	d.SetDomain(sc.Domain)
	return nil
}

// deviceItem/functionBlockItem adapt *Device/*FunctionBlock to
// container.Item without exposing every device/fb method through the
// interface.
type deviceItem struct{ *Device }

func (i deviceItem) LocalID() string                 { return i.Device.LocalID() }
func (i deviceItem) Component() *component.Component { return i.Device.Component }

type functionBlockItem struct{ *FunctionBlock }

func (i functionBlockItem) LocalID() string { return i.FunctionBlock.LocalID() }
func (i functionBlockItem) Component() *component.Component {
	return i.FunctionBlock.Component
}
