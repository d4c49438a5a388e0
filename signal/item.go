package signal

import "github.com/opendaq/daqcore/component"

// SignalItem adapts *Signal to the container.Item shape (LocalID/Component
// methods) by structural typing, so folder.AddItem(signal.SignalItem(sig))
// works without this package importing container.
type SignalItemWrapper struct{ *Signal }

// Component returns the signal's own component identity.
func (w SignalItemWrapper) Component() *component.Component { return w.Signal.Component }

// SignalItem wraps sig for insertion into a container.Folder.
func SignalItem(sig *Signal) SignalItemWrapper { return SignalItemWrapper{sig} }

// InputPortItemWrapper adapts *InputPort the same way.
type InputPortItemWrapper struct{ *InputPort }

// Component returns the input port's own component identity.
func (w InputPortItemWrapper) Component() *component.Component { return w.InputPort.Component }

// InputPortItem wraps port for insertion into a container.Folder.
func InputPortItem(port *InputPort) InputPortItemWrapper { return InputPortItemWrapper{port} }
