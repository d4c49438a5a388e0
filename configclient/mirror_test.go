package configclient

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendaq/daqcore/component"
	"github.com/opendaq/daqcore/coreevent"
	"github.com/opendaq/daqcore/property"
)

func newMirroredComponent(t *testing.T) *component.Component {
	t.Helper()
	c := component.New("Signal", "Sig", nil, nil)
	require.NoError(t, c.Properties.AddProperty(property.Metadata{Name: "Low", ValueType: property.ValueInt, Default: int64(0)}))
	require.NoError(t, c.Properties.AddProperty(property.Metadata{Name: "High", ValueType: property.ValueInt, Default: int64(0)}))
	return c
}

func TestMirrorTrackUntrackLookup(t *testing.T) {
	assert := require.New(t)

	m := NewMirror(nil)
	c := newMirroredComponent(t)

	_, ok := m.Lookup(c.GlobalID())
	assert.False(ok)

	m.Track(c)
	got, ok := m.Lookup(c.GlobalID())
	assert.True(ok)
	assert.Same(c, got)

	m.Untrack(c.GlobalID())
	_, ok = m.Lookup(c.GlobalID())
	assert.False(ok)
}

func TestMirrorWithUpdatingTogglesFlagAroundCall(t *testing.T) {
	assert := require.New(t)

	m := NewMirror(nil)
	assert.False(m.isUpdating("/Sig"))

	var sawUpdating bool
	m.withUpdating("/Sig", func() {
		sawUpdating = m.isUpdating("/Sig")
	})

	assert.True(sawUpdating)
	assert.False(m.isUpdating("/Sig"))
}

func TestHandleRemoteEventIgnoresUntrackedOwner(t *testing.T) {
	assert := require.New(t)

	m := NewMirror(nil)
	assert.NotPanics(func() {
		m.HandleRemoteEvent(coreevent.Args{ID: coreevent.PropertyValueChanged, Owner: "/Unknown"})
	})
}

func TestHandleRemoteEventAppliesPropertyValueChanged(t *testing.T) {
	assert := require.New(t)

	m := NewMirror(nil)
	c := newMirroredComponent(t)
	m.Track(c)

	m.HandleRemoteEvent(coreevent.Args{
		ID:    coreevent.PropertyValueChanged,
		Owner: c.GlobalID(),
		Params: map[string]interface{}{
			"Name":  "Low",
			"Value": float64(-5),
		},
	})

	v, err := c.Properties.GetPropertyValue("Low")
	assert.NoError(err)
	assert.EqualValues(-5, v)
}

func TestHandleRemoteEventAppliesUpdateEndAsSingleTransaction(t *testing.T) {
	assert := require.New(t)

	m := NewMirror(nil)
	c := newMirroredComponent(t)
	m.Track(c)

	var updateEnds int
	c.Properties.Subscribe(func(ev property.Event) {
		if ev.Kind == property.EventUpdateEnd {
			updateEnds++
		}
	})

	m.HandleRemoteEvent(coreevent.Args{
		ID:    coreevent.PropertyObjectUpdateEnd,
		Owner: c.GlobalID(),
		Params: map[string]interface{}{
			"UpdatedProperties": map[string]interface{}{
				"Low":  float64(1),
				"High": float64(2),
			},
		},
	})

	assert.Equal(1, updateEnds)
	low, _ := c.Properties.GetPropertyValue("Low")
	high, _ := c.Properties.GetPropertyValue("High")
	assert.EqualValues(1, low)
	assert.EqualValues(2, high)
}

func TestHandleRemoteEventAppliesStatusChanged(t *testing.T) {
	assert := require.New(t)

	m := NewMirror(nil)
	c := newMirroredComponent(t)
	m.Track(c)

	m.HandleRemoteEvent(coreevent.Args{
		ID:    coreevent.StatusChanged,
		Owner: c.GlobalID(),
		Params: map[string]interface{}{
			"Slot":    "component status",
			"Status":  "Warning",
			"Message": "running hot",
		},
	})

	st, msg, ok := c.Status().Get("component status")
	assert.True(ok)
	assert.Equal(component.StatusWarning, st)
	assert.Equal("running hot", msg)
}

func TestHandleRemoteEventAppliesComponentRemovedAndUntracks(t *testing.T) {
	assert := require.New(t)

	m := NewMirror(nil)
	c := newMirroredComponent(t)
	m.Track(c)

	m.HandleRemoteEvent(coreevent.Args{ID: coreevent.ComponentRemoved, Owner: c.GlobalID()})

	_, ok := m.Lookup(c.GlobalID())
	assert.False(ok)
	assert.Error(c.Remove(), "a component already removed must reject a second removal")
}

func TestParseRemoteStatus(t *testing.T) {
	assert := require.New(t)

	assert.Equal(component.StatusOk, parseRemoteStatus("Ok"))
	assert.Equal(component.StatusWarning, parseRemoteStatus("Warning"))
	assert.Equal(component.StatusError, parseRemoteStatus("Error"))
	assert.Equal(component.StatusUnknown, parseRemoteStatus("garbage"))
}
