package device

import (
	"sync"

	"github.com/opendaq/daqcore/component"
	"github.com/opendaq/daqcore/container"
	"github.com/opendaq/daqcore/coretypes"
	"github.com/opendaq/daqcore/signal"
)

// FunctionBlockType is immutable once a function block is constructed
// (design §4.F): the type ID a module registers under, plus descriptive
// metadata.
type FunctionBlockType struct {
	ID          string
	Name        string
	Description string
}

// FunctionBlock is a signal container typed by an immutable
// FunctionBlockType, additionally owning an input-port folder and an
// optional status signal (design §4.F).
type FunctionBlock struct {
	*container.SignalContainer

	mu           sync.Mutex
	fbType       FunctionBlockType
	inputPorts   *container.Folder
	statusSignal *signal.Signal
}

// NewFunctionBlock constructs a FunctionBlock of the given immutable type.
func NewFunctionBlock(comp *component.Component, fbType FunctionBlockType) *FunctionBlock {
	sc := container.NewSignalContainer(comp, IIDSignal, IIDFunctionBlock, func(localID string, iid coretypes.IID) *container.Folder {
		child := component.New(folderClassName(iid), localID, comp, nil)
		return container.NewFolder(child, iid)
	})
	ipComp := component.New("IoFolder", "InputPorts", comp, nil)
	return &FunctionBlock{
		SignalContainer: sc,
		fbType:          fbType,
		inputPorts:      container.NewFolder(ipComp, IIDInputPort),
	}
}

// Type returns the function block's immutable type descriptor.
func (fb *FunctionBlock) Type() FunctionBlockType {
	return fb.fbType
}

// GetInputPorts returns the function block's input port folder contents.
func (fb *FunctionBlock) GetInputPorts(filter container.SearchFilter) []container.Item {
	return fb.inputPorts.GetItems(filter)
}

// GetSignals returns the function block's Sig folder contents.
func (fb *FunctionBlock) GetSignals(filter container.SearchFilter) []container.Item {
	return fb.Folders.Sig.GetItems(filter)
}

// GetFunctionBlocks returns nested function blocks in the FB folder.
func (fb *FunctionBlock) GetFunctionBlocks(filter container.SearchFilter) []container.Item {
	return fb.Folders.FB.GetItems(filter)
}

// StatusSignal returns the function block's optional status signal, or
// nil if it doesn't expose one.
func (fb *FunctionBlock) StatusSignal() *signal.Signal {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.statusSignal
}

// SetStatusSignal installs the function block's status signal.
func (fb *FunctionBlock) SetStatusSignal(sig *signal.Signal) {
	fb.mu.Lock()
	fb.statusSignal = sig
	fb.mu.Unlock()
}
