package configclient

import (
	"encoding/json"
	"sync"

	"github.com/opendaq/daqcore/component"
	"github.com/opendaq/daqcore/coreevent"
	"github.com/opendaq/daqcore/daqerr"
)

// Mirror keeps a local read-through copy of a remote component tree in
// sync, grounded on the same globalId-addressed event fan-out
// ap_common/broker.Broker gives ap.configd's subscribers, but applied
// against a local *component.Component tree instead of a flat config
// store. Every remote-applied write goes through a "remote-updating"
// guard so the resulting local property/attribute change does not loop
// back out over the Transport as if the user had made it.
type Mirror struct {
	mu        sync.Mutex
	transport *Transport
	byGlobal  map[string]*component.Component
	updating  map[string]bool
}

// NewMirror constructs an empty mirror bound to transport. Components are
// registered with Track as they are proxied into existence by the
// per-type client factories (ConfigClientComponent et al.).
func NewMirror(transport *Transport) *Mirror {
	return &Mirror{
		transport: transport,
		byGlobal:  make(map[string]*component.Component),
		updating:  make(map[string]bool),
	}
}

// Track registers comp so future remote events addressed to its globalId
// are applied to it.
func (m *Mirror) Track(comp *component.Component) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byGlobal[comp.GlobalID()] = comp
}

// Untrack removes comp from the mirror, typically once its
// ComponentRemoved event has been applied.
func (m *Mirror) Untrack(globalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byGlobal, globalID)
}

// Lookup returns the locally mirrored component for globalID, if tracked.
func (m *Mirror) Lookup(globalID string) (*component.Component, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byGlobal[globalID]
	return c, ok
}

// isUpdating reports whether globalID is currently being applied from a
// remote event, so a local listener chain (e.g. a UI data-bound to
// Properties) can tell a remote-originated change from a locally
// initiated one if it needs to.
func (m *Mirror) isUpdating(globalID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updating[globalID]
}

func (m *Mirror) withUpdating(globalID string, fn func()) {
	m.mu.Lock()
	m.updating[globalID] = true
	m.mu.Unlock()

	fn()

	m.mu.Lock()
	delete(m.updating, globalID)
	m.mu.Unlock()
}

// HandleRemoteEvent applies one remote core event to the matching locally
// mirrored component. Unknown globalIds are silently dropped: the mirror
// may simply not have that branch of the tree materialized yet.
func (m *Mirror) HandleRemoteEvent(ev coreevent.Args) {
	comp, ok := m.Lookup(ev.Owner)
	if !ok {
		return
	}

	m.withUpdating(ev.Owner, func() {
		switch ev.ID {
		case coreevent.PropertyValueChanged:
			m.applyPropertyValueChanged(comp, ev)
		case coreevent.PropertyObjectUpdateEnd:
			m.applyUpdateEnd(comp, ev)
		case coreevent.PropertyAdded, coreevent.PropertyRemoved:
			// Structural property changes require a fresh Serialize/Update
			// round-trip rather than a single-field patch; request one.
			m.resyncProperties(comp)
		case coreevent.AttributeChanged:
			m.resyncComponent(comp)
		case coreevent.StatusChanged:
			m.applyStatusChanged(comp, ev)
		case coreevent.ComponentRemoved:
			_ = comp.Remove()
			m.Untrack(ev.Owner)
		}
	})
}

func (m *Mirror) applyPropertyValueChanged(comp *component.Component, ev coreevent.Args) {
	name, _ := ev.Params["Name"].(string)
	if name == "" {
		return
	}
	value := ev.Params["Value"]
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return
	}
	path := name
	if ev.Path != "" {
		path = ev.Path + "." + name
	}
	_ = comp.Properties.SetProtectedPropertyValue(path, decoded)
}

func (m *Mirror) applyUpdateEnd(comp *component.Component, ev coreevent.Args) {
	updated, _ := ev.Params["UpdatedProperties"].(map[string]interface{})
	if len(updated) == 0 {
		return
	}
	comp.Properties.BeginUpdate()
	for name, value := range updated {
		_ = comp.Properties.SetProtectedPropertyValue(name, value)
	}
	_ = comp.Properties.EndUpdate()
}

func (m *Mirror) applyStatusChanged(comp *component.Component, ev coreevent.Args) {
	slot, _ := ev.Params["Slot"].(string)
	statusName, _ := ev.Params["Status"].(string)
	message, _ := ev.Params["Message"].(string)
	if slot == "" {
		return
	}
	_ = comp.Status().Set(slot, parseRemoteStatus(statusName), message)
}

func parseRemoteStatus(s string) component.Status {
	switch s {
	case "Warning":
		return component.StatusWarning
	case "Error":
		return component.StatusError
	case "Ok":
		return component.StatusOk
	default:
		return component.StatusUnknown
	}
}

// resyncProperties re-fetches comp's full property tree from the remote
// side and applies it as a tolerant merge (property.Object.Update already
// ignores unknown names, matching the mirror's read-through semantics).
func (m *Mirror) resyncProperties(comp *component.Component) {
	reply, err := m.transport.Invoke(&ConfigInvoke{
		Operation:      OpGetPropertyValue,
		RemoteGlobalId: comp.GlobalID(),
	})
	if err != nil {
		return
	}
	_ = comp.Properties.Update(reply.ValueJson)
}

// resyncComponent re-fetches comp's attributes (name/description/visible/
// active/locked-attrs/tags/status) without touching its property tree.
func (m *Mirror) resyncComponent(comp *component.Component) {
	reply, err := m.transport.Invoke(&ConfigInvoke{
		Operation:      OpGetPropertyValue,
		RemoteGlobalId: comp.GlobalID(),
		Path:           "@attributes",
	})
	if err != nil {
		return
	}
	_ = comp.Deserialize(reply.ValueJson)
}

// ErrNotTracked is the error value for a globalId that was not registered
// via Track; no Mirror method currently returns it.
var ErrNotTracked = daqerr.New(daqerr.NotFound, "configclient.Mirror", "globalId not tracked")
