package property

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	assert := require.New(t)

	nested := New()
	assert.NoError(nested.AddProperty(Metadata{Name: "Inner", ValueType: ValueString, Default: "hi"}))

	o := New()
	assert.NoError(o.AddProperty(Metadata{Name: "Count", ValueType: ValueInt, Default: float64(3)}))
	assert.NoError(o.AddProperty(Metadata{Name: "Child", ValueType: ValueObject, Default: nested}))

	data, err := o.Serialize()
	assert.NoError(err)

	restoredIface, err := deserializeObject(data, nil, nil)
	assert.NoError(err)
	restored := restoredIface.(*Object)

	assert.True(restored.HasProperty("Count"))
	v, err := restored.GetPropertyValue("Count")
	assert.NoError(err)
	assert.EqualValues(3, v)

	v, err = restored.GetPropertyValue("Child.Inner")
	assert.NoError(err)
	assert.Equal("hi", v)
}

func TestUpdateAppliesSnapshotAsSingleTransaction(t *testing.T) {
	assert := require.New(t)

	o := New()
	assert.NoError(o.AddProperty(intMeta("A", 0)))
	assert.NoError(o.AddProperty(intMeta("B", 0)))

	var updateEnds int
	o.Subscribe(func(ev Event) {
		if ev.Kind == EventUpdateEnd {
			updateEnds++
		}
	})

	assert.NoError(o.Update([]byte(`{"Properties":{"A":{"ValueType":1,"Value":5},"B":{"ValueType":1,"Value":6}}}`)))

	assert.Equal(1, updateEnds)
	v, err := o.GetPropertyValue("A")
	assert.NoError(err)
	assert.EqualValues(5, v)
	v, err = o.GetPropertyValue("B")
	assert.NoError(err)
	assert.EqualValues(6, v)
}

func TestUpdateIgnoresUnknownProperties(t *testing.T) {
	assert := require.New(t)

	o := New()
	assert.NoError(o.AddProperty(intMeta("A", 0)))

	err := o.Update([]byte(`{"Properties":{"A":{"ValueType":1,"Value":9},"Ghost":{"ValueType":1,"Value":1}}}`))
	assert.NoError(err)

	v, err := o.GetPropertyValue("A")
	assert.NoError(err)
	assert.EqualValues(9, v)
	assert.False(o.HasProperty("Ghost"))
}
