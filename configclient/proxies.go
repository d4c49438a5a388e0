// Package configclient implements the configuration-protocol client mirror
// (design §4.I): a read-through local copy of a remote component tree,
// kept current by core events delivered over a coreevent.Bus subscriber
// and writable through a ConfigInvoke RPC round trip, grounded on
// ap_common/apcfg.APConfig's REQ-socket client and common/cfgmsg's
// protobuf query envelope.
package configclient

import (
	"encoding/json"

	"github.com/opendaq/daqcore/component"
	"github.com/opendaq/daqcore/container"
	"github.com/opendaq/daqcore/coreevent"
	"github.com/opendaq/daqcore/coretypes"
	"github.com/opendaq/daqcore/daqerr"
	"github.com/opendaq/daqcore/device"
	"github.com/opendaq/daqcore/property"
	sig "github.com/opendaq/daqcore/signal"
)

// ComponentDeserializeContext is the ambient state every client-side proxy
// factory needs: the Mirror to register into, the Transport to issue
// write/read RPCs over, and the remote globalId this particular component
// corresponds to (design §4.I's ComponentDeserializeContext).
type ComponentDeserializeContext struct {
	Mirror         *Mirror
	Transport      *Transport
	RemoteGlobalID string
	Parent         *component.Component
	Bus            *coreevent.Bus
}

// fetchSnapshot retrieves the full serialized component (attributes +
// property tree) for ctx.RemoteGlobalID.
func fetchSnapshot(ctx ComponentDeserializeContext) (json.RawMessage, error) {
	reply, err := ctx.Transport.Invoke(&ConfigInvoke{
		Operation:      OpGetPropertyValue,
		RemoteGlobalId: ctx.RemoteGlobalID,
		Path:           "@component",
	})
	if err != nil {
		return nil, err
	}
	return reply.ValueJson, nil
}

func localIDFromGlobal(globalID string) string {
	for i := len(globalID) - 1; i >= 0; i-- {
		if globalID[i] == '/' {
			return globalID[i+1:]
		}
	}
	return globalID
}

// buildBase constructs the local mirror *component.Component for
// ctx.RemoteGlobalID, applies the remote snapshot onto it, and registers
// it with the mirror so future core events route here.
func buildBase(className string, ctx ComponentDeserializeContext) (*component.Component, error) {
	localID := localIDFromGlobal(ctx.RemoteGlobalID)
	comp := component.New(className, localID, ctx.Parent, ctx.Bus)

	snapshot, err := fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(snapshot) > 0 {
		if err := comp.Deserialize(snapshot); err != nil {
			return nil, err
		}
	}

	ctx.Mirror.Track(comp)
	return comp, nil
}

// ConfigClientComponent is the plain-component proxy factory: a mirrored
// node with attributes, status, and properties but no children of its
// own. Registered so the registry can deserialize bare components nested
// anywhere in a remote tree.
func ConfigClientComponent(serialized json.RawMessage, rawCtx coretypes.DeserializeContext, _ coretypes.FactoryFunc) (interface{}, error) {
	ctx, ok := rawCtx.(ComponentDeserializeContext)
	if !ok {
		return nil, daqerr.New(daqerr.InvalidParameter, "configclient", "expected ComponentDeserializeContext")
	}
	return buildBase("Component", ctx)
}

// ConfigClientFolder proxies a remote container.Folder: the base
// component plus a local item set that starts empty. GetItems is the local
// container.Folder one; it issues no RPC to fetch the remote folder's
// items.
type ConfigClientFolder struct {
	*container.Folder
	ctx ComponentDeserializeContext
}

// ConfigClientFolderFactory builds a ConfigClientFolder.
func ConfigClientFolderFactory(serialized json.RawMessage, rawCtx coretypes.DeserializeContext, _ coretypes.FactoryFunc) (interface{}, error) {
	ctx, ok := rawCtx.(ComponentDeserializeContext)
	if !ok {
		return nil, daqerr.New(daqerr.InvalidParameter, "configclient", "expected ComponentDeserializeContext")
	}
	comp, err := buildBase("Folder", ctx)
	if err != nil {
		return nil, err
	}
	return &ConfigClientFolder{
		Folder: container.NewFolder(comp, coretypes.IID{}),
		ctx:    ctx,
	}, nil
}

// ConfigClientSignal proxies a remote signal.Signal: reads (Descriptor,
// GetLastValue) are served from the local signal.Signal copy; the mirror
// does not apply DataDescriptorChanged events to it. Only SetPublic is
// forwarded over the transport; SetDescriptor is the local signal.Signal
// one.
type ConfigClientSignal struct {
	*sig.Signal
	ctx ComponentDeserializeContext
}

// ConfigClientSignalFactory builds a ConfigClientSignal.
func ConfigClientSignalFactory(serialized json.RawMessage, rawCtx coretypes.DeserializeContext, _ coretypes.FactoryFunc) (interface{}, error) {
	ctx, ok := rawCtx.(ComponentDeserializeContext)
	if !ok {
		return nil, daqerr.New(daqerr.InvalidParameter, "configclient", "expected ComponentDeserializeContext")
	}
	comp, err := buildBase("Signal", ctx)
	if err != nil {
		return nil, err
	}
	return &ConfigClientSignal{Signal: sig.New(comp), ctx: ctx}, nil
}

// SetPublic forwards a public-flag change to the remote side instead of
// applying it locally. The local flag is left unchanged; the mirror's
// AttributeChanged resync does not update it either.
func (c *ConfigClientSignal) SetPublic(v bool) error {
	valueJSON, err := json.Marshal(v)
	if err != nil {
		return daqerr.Wrap(daqerr.GeneralError, "configclient.ConfigClientSignal", err)
	}
	_, err = c.ctx.Transport.Invoke(&ConfigInvoke{
		Operation:      OpSetPropertyValue,
		RemoteGlobalId: c.ctx.RemoteGlobalID,
		Path:           "Public",
		ValueJson:      valueJSON,
	})
	return err
}

// ConfigClientInputPort proxies a remote signal.InputPort. ConnectPort/
// DisconnectPort are forwarded as RPCs. The mirror does not handle
// SignalConnected/SignalDisconnected events, so the local Connection stays
// nil.
type ConfigClientInputPort struct {
	*sig.InputPort
	ctx ComponentDeserializeContext
}

// ConfigClientInputPortFactory builds a ConfigClientInputPort.
func ConfigClientInputPortFactory(serialized json.RawMessage, rawCtx coretypes.DeserializeContext, _ coretypes.FactoryFunc) (interface{}, error) {
	ctx, ok := rawCtx.(ComponentDeserializeContext)
	if !ok {
		return nil, daqerr.New(daqerr.InvalidParameter, "configclient", "expected ComponentDeserializeContext")
	}
	comp, err := buildBase("InputPort", ctx)
	if err != nil {
		return nil, err
	}
	return &ConfigClientInputPort{InputPort: sig.NewInputPort(comp, nil), ctx: ctx}, nil
}

// ConnectPort asks the remote side to connect this input port to the
// signal identified by remoteSignalGlobalID.
func (c *ConfigClientInputPort) ConnectPort(remoteSignalGlobalID string) error {
	valueJSON, err := json.Marshal(remoteSignalGlobalID)
	if err != nil {
		return daqerr.Wrap(daqerr.GeneralError, "configclient.ConfigClientInputPort", err)
	}
	_, err = c.ctx.Transport.Invoke(&ConfigInvoke{
		Operation:      OpConnectPort,
		RemoteGlobalId: c.ctx.RemoteGlobalID,
		ValueJson:      valueJSON,
	})
	return err
}

// DisconnectPort asks the remote side to disconnect this input port.
func (c *ConfigClientInputPort) DisconnectPort() error {
	_, err := c.ctx.Transport.Invoke(&ConfigInvoke{
		Operation:      OpDisconnectPort,
		RemoteGlobalId: c.ctx.RemoteGlobalID,
	})
	return err
}

// ConfigClientFunctionBlock proxies a remote device.FunctionBlock.
type ConfigClientFunctionBlock struct {
	*device.FunctionBlock
	ctx ComponentDeserializeContext
}

// ConfigClientFunctionBlockFactory builds a ConfigClientFunctionBlock.
func ConfigClientFunctionBlockFactory(serialized json.RawMessage, rawCtx coretypes.DeserializeContext, _ coretypes.FactoryFunc) (interface{}, error) {
	ctx, ok := rawCtx.(ComponentDeserializeContext)
	if !ok {
		return nil, daqerr.New(daqerr.InvalidParameter, "configclient", "expected ComponentDeserializeContext")
	}
	comp, err := buildBase("FunctionBlock", ctx)
	if err != nil {
		return nil, err
	}
	fbType := device.FunctionBlockType{ID: localIDFromGlobal(ctx.RemoteGlobalID)}
	return &ConfigClientFunctionBlock{FunctionBlock: device.NewFunctionBlock(comp, fbType), ctx: ctx}, nil
}

// ConfigClientChannel proxies a remote channel: a function block that also
// owns signals directly, the same shape original_source's channel_impl
// gives a driver's per-sensor grouping. Channels have no extra operations
// beyond FunctionBlock's, so the proxy is a thin rename for clarity at the
// client API surface.
type ConfigClientChannel struct {
	*ConfigClientFunctionBlock
}

// ConfigClientChannelFactory builds a ConfigClientChannel.
func ConfigClientChannelFactory(serialized json.RawMessage, rawCtx coretypes.DeserializeContext, factory coretypes.FactoryFunc) (interface{}, error) {
	fb, err := ConfigClientFunctionBlockFactory(serialized, rawCtx, factory)
	if err != nil {
		return nil, err
	}
	return &ConfigClientChannel{ConfigClientFunctionBlock: fb.(*ConfigClientFunctionBlock)}, nil
}

// ConfigClientDevice proxies a remote device.Device, including its nested
// Dev/IO/Srv/Synchronization folders when the remote side is a root
// device.
type ConfigClientDevice struct {
	*device.Device
	ctx ComponentDeserializeContext
}

// ConfigClientDeviceFactory builds a ConfigClientDevice. isRoot is true
// when ctx carries no Parent, i.e. when the built component has no parent.
func ConfigClientDeviceFactory(serialized json.RawMessage, rawCtx coretypes.DeserializeContext, _ coretypes.FactoryFunc) (interface{}, error) {
	ctx, ok := rawCtx.(ComponentDeserializeContext)
	if !ok {
		return nil, daqerr.New(daqerr.InvalidParameter, "configclient", "expected ComponentDeserializeContext")
	}
	comp, err := buildBase("Device", ctx)
	if err != nil {
		return nil, err
	}
	isRoot := comp.Parent() == nil
	return &ConfigClientDevice{Device: device.New(comp, nil, isRoot), ctx: ctx}, nil
}

// AddFunctionBlock forwards function-block creation to the remote module
// manager. The mirror does not handle ComponentAdded events, so the new
// block is not added to this mirror's local FB folder.
func (c *ConfigClientDevice) AddFunctionBlock(typeID string, config *property.Object) error {
	var valueJSON []byte
	var err error
	if config != nil {
		valueJSON, err = config.Serialize()
		if err != nil {
			return err
		}
	}
	_, err = c.ctx.Transport.Invoke(&ConfigInvoke{
		Operation:      OpAddChild,
		RemoteGlobalId: c.ctx.RemoteGlobalID,
		Path:           typeID,
		ValueJson:      valueJSON,
	})
	return err
}

func init() {
	coretypes.Default.Register("ConfigClientComponent", ConfigClientComponent)
	coretypes.Default.Register("ConfigClientFolder", ConfigClientFolderFactory)
	coretypes.Default.Register("ConfigClientSignal", ConfigClientSignalFactory)
	coretypes.Default.Register("ConfigClientInputPort", ConfigClientInputPortFactory)
	coretypes.Default.Register("ConfigClientFunctionBlock", ConfigClientFunctionBlockFactory)
	coretypes.Default.Register("ConfigClientChannel", ConfigClientChannelFactory)
	coretypes.Default.Register("ConfigClientDevice", ConfigClientDeviceFactory)
}
