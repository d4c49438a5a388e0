package coreevent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitterTriggerDispatchesToSubscribers(t *testing.T) {
	assert := require.New(t)

	e := NewEmitter("/Dev/Sig", nil)
	var got []Args
	e.Subscribe(func(ev Args) { got = append(got, ev) })

	e.Trigger(Args{ID: PropertyValueChanged, Params: map[string]interface{}{"Name": "X"}})
	assert.Len(got, 1)
	assert.Equal(PropertyValueChanged, got[0].ID)
}

func TestEmitterSetEnabledSuppressesDelivery(t *testing.T) {
	assert := require.New(t)

	e := NewEmitter("/Dev", nil)
	var count int
	e.Subscribe(func(ev Args) { count++ })

	e.SetEnabled(false)
	assert.False(e.Enabled())
	e.Trigger(Args{ID: StatusChanged})
	assert.Equal(0, count)

	e.SetEnabled(true)
	e.Trigger(Args{ID: StatusChanged})
	assert.Equal(1, count)
}

func TestEmitterSubscriberPanicIsCaughtAndOthersStillRun(t *testing.T) {
	assert := require.New(t)

	e := NewEmitter("/Dev", nil)
	var secondRan bool
	e.Subscribe(func(ev Args) { panic("boom") })
	e.Subscribe(func(ev Args) { secondRan = true })

	assert.NotPanics(func() {
		e.Trigger(Args{ID: ComponentRemoved})
	})
	assert.True(secondRan, "a panicking subscriber must not block delivery to later subscribers")
}

func TestIDString(t *testing.T) {
	assert := require.New(t)
	assert.Equal("PropertyValueChanged", PropertyValueChanged.String())
	assert.Contains(ID(999).String(), "999")
}
