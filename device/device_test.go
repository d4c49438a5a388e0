package device

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendaq/daqcore/component"
	"github.com/opendaq/daqcore/daqerr"
	"github.com/opendaq/daqcore/property"
)

type fakeModules struct {
	deviceLocalID string
	fbLocalID     string
}

func (m *fakeModules) CreateDevice(connectionString string, config *property.Object) (*Device, error) {
	comp := component.New("Device", m.deviceLocalID, nil, nil)
	return New(comp, nil, false), nil
}

func (m *fakeModules) CreateFunctionBlock(typeID string, config *property.Object) (*FunctionBlock, error) {
	comp := component.New("FunctionBlock", m.fbLocalID, nil, nil)
	return NewFunctionBlock(comp, FunctionBlockType{ID: typeID}), nil
}

func (m *fakeModules) CreateServer(typeID string, config *property.Object) (interface{}, error) {
	return typeID, nil
}

func newRootDevice(modules ModuleManager) *Device {
	comp := component.New("Device", "Dev", nil, nil)
	return New(comp, modules, true)
}

func TestAddDeviceAndRemoveDevice(t *testing.T) {
	assert := require.New(t)

	modules := &fakeModules{deviceLocalID: "Child"}
	root := newRootDevice(modules)

	child, err := root.AddDevice("daq.nd://127.0.0.1", nil)
	assert.NoError(err)
	assert.NotNil(child)

	devices := root.GetDevices(nil)
	assert.Len(devices, 1)
	assert.Equal("Child", devices[0].LocalID())

	assert.NoError(root.RemoveDevice("Child"))
	assert.Empty(root.GetDevices(nil))
}

func TestAddFunctionBlock(t *testing.T) {
	assert := require.New(t)

	modules := &fakeModules{fbLocalID: "Fb1"}
	root := newRootDevice(modules)

	fb, err := root.AddFunctionBlock("urn:test:fb", nil)
	assert.NoError(err)
	assert.Equal("urn:test:fb", fb.Type().ID)

	blocks := root.Folders().FB.GetItems(nil)
	assert.Len(blocks, 1)
	assert.Equal("Fb1", blocks[0].LocalID())
}

func TestAddDeviceWithoutModuleManagerFails(t *testing.T) {
	assert := require.New(t)

	root := newRootDevice(nil)
	_, err := root.AddDevice("daq.nd://127.0.0.1", nil)
	assert.Error(err)
	assert.True(daqerr.Is(err, daqerr.NotSupported))
}

func TestServerOperationsAreRootOnly(t *testing.T) {
	assert := require.New(t)

	modules := &fakeModules{}
	root := newRootDevice(modules)

	srv, err := root.AddServer("daq.ns", nil)
	assert.NoError(err)
	assert.Equal("daq.ns", srv)

	childComp := component.New("Device", "Child", nil, nil)
	child := New(childComp, modules, false)

	_, err = child.AddServer("daq.ns", nil)
	assert.Error(err)
	assert.True(daqerr.Is(err, daqerr.InvalidOperation))

	err = child.RemoveServer("anything")
	assert.Error(err)
	assert.True(daqerr.Is(err, daqerr.InvalidOperation))
}

func TestSaveAndLoadConfigurationRoundTrip(t *testing.T) {
	assert := require.New(t)

	root := newRootDevice(nil)
	assert.NoError(root.SetName("MyDevice"))
	root.SetDomain(Domain{
		TickResolution: property.Ratio{Numerator: 1, Denominator: 1000},
		Origin:         "1970-01-01T00:00:00Z",
		Unit:           "s",
	})

	data, err := root.SaveConfiguration()
	assert.NoError(err)

	restoredComp := component.New("Device", "Dev", nil, nil)
	restored := New(restoredComp, nil, true)
	assert.NoError(restored.LoadConfiguration(data))

	assert.Equal("MyDevice", restored.Name())
	assert.Equal(root.Domain(), restored.Domain())
}

func TestGetInfoLazilyBuildsOnce(t *testing.T) {
	assert := require.New(t)

	root := newRootDevice(nil)
	first := root.GetInfo()
	assert.NotNil(first)

	second := root.GetInfo()
	assert.Same(first, second, "GetInfo must return the same snapshot across calls until SetInfo replaces it")

	explicit := NewInfo(root.Component, "ModelX", "SN1", "Acme", "HW1", "SW1", nil)
	root.SetInfo(explicit)
	third := root.GetInfo()
	assert.Same(explicit, third)
	assert.Equal("ModelX", third.Model())
}

func TestInfoNameRedirectsToOwningComponentAndRejectsWrites(t *testing.T) {
	assert := require.New(t)

	root := newRootDevice(nil)
	assert.NoError(root.SetName("MyDevice"))

	info := root.GetInfo()
	assert.Equal("MyDevice", info.Name())

	assert.NoError(root.SetName("Renamed"))
	assert.Equal("Renamed", info.Name(), "Name must read through live, not a snapshot taken at GetInfo time")

	err := info.SetPropertyValue("Name", "Hijacked")
	assert.Error(err)
	assert.True(daqerr.Is(err, daqerr.Frozen), "the info object is frozen, so no field (including Name) accepts writes")
}

func TestInfoServerCapabilitiesNestedObject(t *testing.T) {
	assert := require.New(t)

	caps := []ServerCapability{
		{ProtocolID: "daq.nd", ConnectionString: "daq.nd://host", ProtocolType: "native", Enabled: true},
	}
	info := NewInfo(component.New("Device", "Dev", nil, nil), "", "", "", "", "", caps)

	v, err := info.GetPropertyValue("ServerCapabilities.0.ProtocolId")
	assert.NoError(err)
	assert.Equal("daq.nd", v)
}
