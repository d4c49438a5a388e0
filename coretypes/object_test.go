package coretypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseRefCounting(t *testing.T) {
	assert := require.New(t)

	b := NewBase("test")
	assert.EqualValues(1, b.RefCount())

	assert.EqualValues(2, b.AddRef())
	assert.EqualValues(1, b.ReleaseRef())
	assert.EqualValues(0, b.ReleaseRef())
}

func TestBaseReleaseRefUnderflowPanics(t *testing.T) {
	b := NewBase("test")
	b.ReleaseRef()
	require.Panics(t, func() { b.ReleaseRef() })
}

func TestBaseQueryInterface(t *testing.T) {
	assert := require.New(t)

	iid := NewIID(1, 2)
	b := NewBase("test")
	b.RegisterInterface(iid, "impl")

	impl, err := b.QueryInterface(iid)
	assert.NoError(err)
	assert.Equal("impl", impl)
	assert.EqualValues(2, b.RefCount())

	borrowed, err := b.BorrowInterface(iid)
	assert.NoError(err)
	assert.Equal("impl", borrowed)
	assert.EqualValues(2, b.RefCount())

	_, err = b.QueryInterface(NewIID(9, 9))
	assert.Error(err)
}

func TestIIDString(t *testing.T) {
	id := NewIID(0x1, 0x2)
	require.Equal(t, "0000000000000001-0000000000000002", id.String())
}

func TestRegistryRoundTrip(t *testing.T) {
	assert := require.New(t)

	r := NewRegistry()
	r.Register("widget", func(serialized json.RawMessage, ctx DeserializeContext, factory FactoryFunc) (interface{}, error) {
		return string(serialized), nil
	})

	v, err := r.Deserialize("widget", json.RawMessage("hello"), nil, nil)
	assert.NoError(err)
	assert.Equal("hello", v)

	_, err = r.Deserialize("unknown", nil, nil, nil)
	assert.Error(err)
}
