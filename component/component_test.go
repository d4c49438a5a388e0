package component

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendaq/daqcore/coreevent"
	"github.com/opendaq/daqcore/daqerr"
)

func TestGlobalIDComposition(t *testing.T) {
	assert := require.New(t)

	root := New("Device", "Dev", nil, nil)
	assert.Equal("/Dev", root.GlobalID())

	child := New("Folder", "Sig", root, nil)
	assert.Equal("/Dev/Sig", child.GlobalID())
}

func TestSetNameIgnoresNoopAndLockedAttribute(t *testing.T) {
	assert := require.New(t)

	c := New("Component", "X", nil, nil)
	assert.Equal("X", c.Name())

	err := c.SetName("X")
	assert.Error(err)
	assert.True(daqerr.Is(err, daqerr.Ignored), "setting the same value must be a no-op, not a failure")

	assert.NoError(c.SetName("Y"))
	assert.Equal("Y", c.Name())

	c.LockAttributes([]string{"name"})
	err = c.SetName("Z")
	assert.Error(err)
	assert.True(daqerr.Is(err, daqerr.Ignored))
	assert.Equal("Y", c.Name(), "a locked attribute must not change")

	c.UnlockAttributes([]string{"Name"})
	assert.NoError(c.SetName("Z"))
	assert.Equal("Z", c.Name())
}

func TestSetAttrFiresAttributeChanged(t *testing.T) {
	assert := require.New(t)

	c := New("Component", "X", nil, nil)

	var got []coreevent.Args
	c.Emitter.Subscribe(func(ev coreevent.Args) {
		got = append(got, ev)
	})

	assert.NoError(c.SetDescription("hello"))
	assert.Len(got, 1)
	assert.Equal(coreevent.AttributeChanged, got[0].ID)
	assert.Equal("/X", got[0].Owner)
	assert.Equal("Description", got[0].Params["Name"])
}

func TestSetActivePropagatesToChildrenAndAdvancesRemovalState(t *testing.T) {
	assert := require.New(t)

	root := New("Device", "Dev", nil, nil)
	child := New("Folder", "Sig", root, nil)

	children := func() []*Component { return []*Component{child} }

	assert.NoError(root.SetActive(false, children))
	assert.False(root.Active())
	assert.False(child.Active(), "SetActive must propagate to the supplied children")
	assert.Equal(stateInactive, root.state, "setting active false advances the removal state to Inactive")

	err := root.SetActive(false, children)
	assert.Error(err)
	assert.True(daqerr.Is(err, daqerr.Ignored), "re-setting the same active value is a no-op")
}

func TestRemoveIsIdempotentAndTerminal(t *testing.T) {
	assert := require.New(t)

	c := New("Component", "X", nil, nil)
	assert.False(c.IsRemoved())

	var events []coreevent.ID
	c.Emitter.Subscribe(func(ev coreevent.Args) { events = append(events, ev.ID) })

	assert.NoError(c.Remove())
	assert.True(c.IsRemoved())
	assert.Contains(events, coreevent.ComponentRemoved)

	err := c.Remove()
	assert.Error(err)
	assert.True(daqerr.Is(err, daqerr.Ignored))
}

func TestStatusContainerIgnoresUnchangedWrites(t *testing.T) {
	assert := require.New(t)

	c := New("Component", "X", nil, nil)
	st, msg, ok := c.Status().Get("component status")
	assert.True(ok)
	assert.Equal(StatusOk, st)
	assert.Equal("", msg)

	err := c.Status().Set("component status", StatusOk, "")
	assert.Error(err)
	assert.True(daqerr.Is(err, daqerr.Ignored), "writing the same status pair must be a no-op")

	assert.NoError(c.Status().Set("component status", StatusWarning, "degraded"))
	st, msg, ok = c.Status().Get("component status")
	assert.True(ok)
	assert.Equal(StatusWarning, st)
	assert.Equal("degraded", msg)

	assert.NoError(c.Status().Set("custom", StatusError, "broken"))
	assert.ElementsMatch([]string{"component status", "custom"}, c.Status().Slots())
}

func TestSerializeDeserializeAttributesAndTags(t *testing.T) {
	assert := require.New(t)

	c := New("Signal", "Sig1", nil, nil)
	assert.NoError(c.SetName("Friendly"))

	err := c.SetVisible(false)
	assert.Error(err, "Visible starts locked")
	assert.True(daqerr.Is(err, daqerr.Ignored))
	c.UnlockAttributes([]string{"Visible"})
	assert.NoError(c.SetVisible(false))

	c.AddTag("physical")
	c.LockAttributes([]string{"Name"})

	data, err := c.Serialize(false)
	assert.NoError(err)

	restored := New("Signal", "Sig1", nil, nil)
	assert.NoError(restored.Deserialize(data))

	assert.Equal("Friendly", restored.Name())
	assert.False(restored.Visible())
	assert.Equal([]string{"physical"}, restored.Tags())
	assert.Contains(restored.LockedAttributes(), "Name")
}

func TestFindComponentResolvesSlashSeparatedPath(t *testing.T) {
	assert := require.New(t)

	root := New("Device", "Dev", nil, nil)
	a := New("Folder", "A", root, nil)
	b := New("Folder", "B", a, nil)

	resolve := func(cur *Component, segment string) *Component {
		switch {
		case cur == root && segment == "A":
			return a
		case cur == a && segment == "B":
			return b
		default:
			return nil
		}
	}

	found := FindComponent(root, "A/B", resolve)
	assert.Equal(b, found)

	assert.Equal(root, FindComponent(root, "", resolve))
	assert.Nil(FindComponent(root, "A/Missing", resolve))
}
