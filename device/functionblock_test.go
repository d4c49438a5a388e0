package device

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendaq/daqcore/component"
	"github.com/opendaq/daqcore/container"
	"github.com/opendaq/daqcore/signal"
)

func TestNewFunctionBlockBuildsFoldersAndInputPorts(t *testing.T) {
	assert := require.New(t)

	comp := component.New("FunctionBlock", "FB1", nil, nil)
	fbType := FunctionBlockType{ID: "module.gain", Name: "Gain", Description: "scales an input"}
	fb := NewFunctionBlock(comp, fbType)

	assert.Equal(fbType, fb.Type())
	assert.Empty(fb.GetInputPorts(container.VisibleFilter{}))
	assert.Empty(fb.GetSignals(container.VisibleFilter{}))
	assert.Empty(fb.GetFunctionBlocks(container.VisibleFilter{}))
	assert.Nil(fb.StatusSignal())
}

func TestFunctionBlockSetStatusSignalRoundTrips(t *testing.T) {
	assert := require.New(t)

	comp := component.New("FunctionBlock", "FB1", nil, nil)
	fb := NewFunctionBlock(comp, FunctionBlockType{ID: "module.gain"})

	sigComp := component.New("Signal", "Status", comp, nil)
	sig := signal.New(sigComp)
	fb.SetStatusSignal(sig)

	assert.Same(sig, fb.StatusSignal())
}

func TestFunctionBlockGetSignalsReflectsSigFolder(t *testing.T) {
	assert := require.New(t)

	comp := component.New("FunctionBlock", "FB1", nil, nil)
	fb := NewFunctionBlock(comp, FunctionBlockType{ID: "module.gain"})

	sigComp := component.New("Signal", "Out", fb.Folders.Sig.Component, nil)
	sig := signal.New(sigComp)
	assert.NoError(fb.Folders.Sig.AddItem(signal.SignalItem(sig)))

	items := fb.GetSignals(container.VisibleFilter{})
	assert.Len(items, 1)
	assert.Equal("Out", items[0].LocalID())
}
