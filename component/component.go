// Package component implements the component base (design §4.C): name,
// description, visible/active attributes, a locked-attribute set, a status
// container, a removal state machine, and core-event forwarding. It embeds
// a property.Object for its configuration properties and a
// coreevent.Emitter for event dispatch, relaying the property object's
// local events onto the core-event bus with Path/Owner filled in (design
// §4.B/§4.G).
//
// Grounded on common/cfgtree.go's PNode (Name/Path/Parent bookkeeping) and
// ap_common/broker.go's publish/subscribe discipline, generalized from a
// pure config tree node into a typed component with attributes, tags, and
// status.
package component

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/opendaq/daqcore/coreevent"
	"github.com/opendaq/daqcore/coretypes"
	"github.com/opendaq/daqcore/daqerr"
	"github.com/opendaq/daqcore/daqlog"
	"github.com/opendaq/daqcore/property"
)

var log = daqlog.GetOrAddComponent("component")

// Status is the closed set of values a component's status container slot
// may hold.
type Status int

// The statuses design §4.C names; additional application-specific statuses
// may be registered by name in a component's status container beyond the
// built-in "component status" slot.
const (
	StatusOk Status = iota
	StatusWarning
	StatusError
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "Ok"
	case StatusWarning:
		return "Warning"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// StatusContainer is a named map of status-slot -> (Status, message),
// preinitialized with a "component status" slot at StatusOk (design
// §4.C). Writes that do not change either half of the pair are ignored.
type StatusContainer struct {
	mu     sync.Mutex
	values map[string]statusEntry
	order  []string
	onSet  func(slot string, st Status, msg string)
}

type statusEntry struct {
	status  Status
	message string
}

const componentStatusSlot = "component status"

func newStatusContainer(onSet func(string, Status, string)) *StatusContainer {
	sc := &StatusContainer{
		values: map[string]statusEntry{componentStatusSlot: {status: StatusOk}},
		order:  []string{componentStatusSlot},
		onSet:  onSet,
	}
	return sc
}

// Set updates slot to (st, message). If slot is new it is appended to the
// iteration order; if the pair is unchanged from the current value the
// write is silently ignored (design §4.C) and Set returns
// daqerr.Ignored.
func (sc *StatusContainer) Set(slot string, st Status, message string) error {
	sc.mu.Lock()
	cur, existed := sc.values[slot]
	if existed && cur.status == st && cur.message == message {
		sc.mu.Unlock()
		return daqerr.New(daqerr.Ignored, "component.StatusContainer", "status for %q unchanged", slot)
	}
	if !existed {
		sc.order = append(sc.order, slot)
	}
	sc.values[slot] = statusEntry{status: st, message: message}
	onSet := sc.onSet
	sc.mu.Unlock()

	if onSet != nil {
		onSet(slot, st, message)
	}
	return nil
}

// Get returns the (status, message) pair for slot.
func (sc *StatusContainer) Get(slot string) (Status, string, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	e, ok := sc.values[slot]
	return e.status, e.message, ok
}

// Slots returns status slot names in the order they were first set.
func (sc *StatusContainer) Slots() []string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]string, len(sc.order))
	copy(out, sc.order)
	return out
}

// removalState is the per-component removal state machine (design §4.C):
// Live -> Inactive (via SetActive(false)) -> Removed (terminal, reachable
// directly from either state via Remove()).
type removalState int

const (
	stateLive removalState = iota
	stateInactive
	stateRemoved
)

// Component is the base type embedded by every node in the component tree
// (folders, signals, devices, function blocks). Concrete types embed
// *Component and add their own typed operations on top.
type Component struct {
	coretypes.Base

	mu sync.Mutex

	localID     string
	className   string
	parent      *Component
	globalID    string

	name        string
	description string
	visible     bool
	active      bool

	lockedAttrs map[string]struct{}
	tags        map[string]struct{}
	tagOrder    []string

	status *StatusContainer

	state removalState

	operationMode *OperationMode

	Properties *property.Object
	Emitter    *coreevent.Emitter
}

// New constructs a root or child Component. parent is nil for a root
// device; localID is this component's own path segment, combined with the
// parent's globalId to build this component's globalId the way
// cfgtree.PNode derives path from name+parent.
func New(className, localID string, parent *Component, bus *coreevent.Bus) *Component {
	c := &Component{
		Base:        coretypes.NewBase("component.Component"),
		localID:     localID,
		className:   className,
		parent:      parent,
		name:        localID,
		visible:     true,
		active:      true,
		lockedAttrs: make(map[string]struct{}),
		tags:        make(map[string]struct{}),
		Properties:  property.New(),
	}
	c.lockedAttrs[normalizeAttr("Visible")] = struct{}{}
	c.globalID = computeGlobalID(parent, localID)
	c.status = newStatusContainer(c.onStatusSet)
	c.Emitter = coreevent.NewEmitter(c.globalID, bus)
	c.Properties.Subscribe(c.onPropertyEvent)
	return c
}

func computeGlobalID(parent *Component, localID string) string {
	if parent == nil {
		return "/" + localID
	}
	return strings.TrimRight(parent.GlobalID(), "/") + "/" + localID
}

// GlobalID returns the component's fully qualified path from the root.
func (c *Component) GlobalID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.globalID
}

// LocalID returns this component's own path segment.
func (c *Component) LocalID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localID
}

// ClassName identifies the concrete component kind (e.g. "Signal",
// "Device", "Folder") for serialization and logging.
func (c *Component) ClassName() string {
	return c.className
}

// Parent returns the owning component, or nil at the root.
func (c *Component) Parent() *Component {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parent
}

func (c *Component) onPropertyEvent(ev property.Event) {
	switch ev.Kind {
	case property.EventValueChanged:
		c.TriggerCoreEvent(coreevent.Args{
			ID:   coreevent.PropertyValueChanged,
			Path: ev.Path,
			Params: map[string]interface{}{
				"Name":  ev.Name,
				"Value": ev.Value,
			},
		})
	case property.EventUpdateEnd:
		c.TriggerCoreEvent(coreevent.Args{
			ID:   coreevent.PropertyObjectUpdateEnd,
			Path: ev.Path,
			Params: map[string]interface{}{
				"UpdatedProperties": ev.Updated,
			},
		})
	case property.EventPropertyAdded:
		c.TriggerCoreEvent(coreevent.Args{ID: coreevent.PropertyAdded, Path: ev.Path, Params: map[string]interface{}{"Name": ev.Name}})
	case property.EventPropertyRemoved:
		c.TriggerCoreEvent(coreevent.Args{ID: coreevent.PropertyRemoved, Path: ev.Path, Params: map[string]interface{}{"Name": ev.Name}})
	}
}

// TriggerCoreEvent fires args on this component's emitter. Exceptions
// (panics) raised by subscribers are caught and logged by the emitter
// itself; TriggerCoreEvent never returns an error.
func (c *Component) TriggerCoreEvent(args coreevent.Args) {
	if args.Owner == "" {
		args.Owner = c.GlobalID()
	}
	c.Emitter.Trigger(args)
}

// EnableCoreEventTrigger re-enables event delivery on this component and on
// each component returned by children. Each child is called with a nil
// child set, so grandchildren are not visited.
func (c *Component) EnableCoreEventTrigger(children func() []*Component) {
	c.Emitter.SetEnabled(true)
	if children != nil {
		for _, ch := range children() {
			ch.EnableCoreEventTrigger(nil)
		}
	}
}

// DisableCoreEventTrigger disables event delivery the same way: on this
// component and on each component returned by children, one level deep.
func (c *Component) DisableCoreEventTrigger(children func() []*Component) {
	c.Emitter.SetEnabled(false)
	if children != nil {
		for _, ch := range children() {
			ch.DisableCoreEventTrigger(nil)
		}
	}
}

// OperationMode is the closed set of modes a component tree may be placed
// into (design §4.D/§9).
type OperationMode int

const (
	OperationModeIdle OperationMode = iota
	OperationModeOperation
	OperationModeSafeOperation
	OperationModeUnknown
)

func (m OperationMode) String() string {
	switch m {
	case OperationModeIdle:
		return "Idle"
	case OperationModeOperation:
		return "Operation"
	case OperationModeSafeOperation:
		return "SafeOperation"
	default:
		return "Unknown"
	}
}

// OperationMode returns the mode in effect for this component: its own mode
// if one has been set, otherwise the nearest ancestor's. At the root, with
// no mode ever set anywhere along the chain, it returns
// OperationModeUnknown and daqerr.Ignored (design §9's resolution of the
// "operation mode routing" open question).
func (c *Component) OperationMode() (OperationMode, error) {
	c.mu.Lock()
	mode := c.operationMode
	parent := c.parent
	c.mu.Unlock()

	if mode != nil {
		return *mode, nil
	}
	if parent != nil {
		return parent.OperationMode()
	}
	return OperationModeUnknown, daqerr.New(daqerr.Ignored, "component.Component", "no operation mode set")
}

// SetOperationMode records mode on this component. It does not by itself
// recurse into children; concrete container types (container.SignalContainer)
// forward the call to every child the same way they forward BeginUpdate.
func (c *Component) SetOperationMode(mode OperationMode) error {
	c.mu.Lock()
	c.operationMode = &mode
	c.mu.Unlock()
	return nil
}

// Name returns the component's display name, defaulting to its local ID.
func (c *Component) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// SetName updates the display name, emitting AttributeChanged, unless
// "Name" is a locked attribute (returns daqerr.Ignored) or the value is
// unchanged (also daqerr.Ignored — a no-op write is success, not failure).
func (c *Component) SetName(name string) error {
	return c.setAttr("Name", func() bool {
		if c.name == name {
			return false
		}
		c.name = name
		return true
	})
}

// Description returns the component's description.
func (c *Component) Description() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.description
}

// SetDescription updates the description.
func (c *Component) SetDescription(desc string) error {
	return c.setAttr("Description", func() bool {
		if c.description == desc {
			return false
		}
		c.description = desc
		return true
	})
}

// Visible reports the component's visibility attribute.
func (c *Component) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// SetVisible updates the visibility attribute.
func (c *Component) SetVisible(v bool) error {
	return c.setAttr("Visible", func() bool {
		if c.visible == v {
			return false
		}
		c.visible = v
		return true
	})
}

// Active reports whether the component is active.
func (c *Component) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetActive sets the active attribute and applies the same value to each
// component returned by children (the concrete type supplies its own child
// set). Each child is called with a nil child set, so grandchildren are not
// visited. Writing the current value is Ignored, not an error. Setting
// false also advances the removal state machine from Live to Inactive.
func (c *Component) SetActive(v bool, children func() []*Component) error {
	err := c.setAttr("Active", func() bool {
		if c.active == v {
			return false
		}
		c.active = v
		return true
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	if !v && c.state == stateLive {
		c.state = stateInactive
	}
	c.mu.Unlock()

	if children != nil {
		for _, ch := range children() {
			_ = ch.SetActive(v, nil)
		}
	}
	return nil
}

func (c *Component) setAttr(name string, apply func() bool) error {
	c.mu.Lock()
	if _, locked := c.lockedAttrs[normalizeAttr(name)]; locked {
		c.mu.Unlock()
		return daqerr.New(daqerr.Ignored, "component.Component", "attribute %q is locked", name)
	}
	changed := apply()
	c.mu.Unlock()

	if !changed {
		return daqerr.New(daqerr.Ignored, "component.Component", "attribute %q unchanged", name)
	}
	c.TriggerCoreEvent(coreevent.Args{
		ID:     coreevent.AttributeChanged,
		Params: map[string]interface{}{"Name": name},
	})
	return nil
}

// normalizeAttr maps an attribute name to first-letter-upper for
// case-insensitive locking comparisons (design §4.C).
func normalizeAttr(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}

// LockAttributes adds each name (case-insensitively normalized) to the
// locked-attribute set.
func (c *Component) LockAttributes(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		c.lockedAttrs[normalizeAttr(n)] = struct{}{}
	}
}

// UnlockAttributes removes each name from the locked-attribute set.
func (c *Component) UnlockAttributes(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		delete(c.lockedAttrs, normalizeAttr(n))
	}
}

// LockedAttributes returns the normalized names currently locked, in
// unspecified order.
func (c *Component) LockedAttributes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.lockedAttrs))
	for n := range c.lockedAttrs {
		out = append(out, n)
	}
	return out
}

// LockAllAttributes locks the full set of built-in attributes.
func (c *Component) LockAllAttributes() {
	c.LockAttributes([]string{"Name", "Description", "Visible", "Active"})
}

// UnlockAllAttributes clears the locked-attribute set entirely.
func (c *Component) UnlockAllAttributes() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lockedAttrs = make(map[string]struct{})
}

// Tags returns the component's tag set, in the order tags were added.
func (c *Component) Tags() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.tagOrder))
	copy(out, c.tagOrder)
	return out
}

// AddTag inserts tag into the set, firing TagsChanged if it was new.
func (c *Component) AddTag(tag string) {
	c.mu.Lock()
	if _, ok := c.tags[tag]; ok {
		c.mu.Unlock()
		return
	}
	c.tags[tag] = struct{}{}
	c.tagOrder = append(c.tagOrder, tag)
	c.mu.Unlock()
	c.TriggerCoreEvent(coreevent.Args{ID: coreevent.TagsChanged, Params: map[string]interface{}{"Tag": tag, "Added": true}})
}

// RemoveTag deletes tag from the set, firing TagsChanged if it was present.
func (c *Component) RemoveTag(tag string) {
	c.mu.Lock()
	if _, ok := c.tags[tag]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.tags, tag)
	for i, t := range c.tagOrder {
		if t == tag {
			c.tagOrder = append(c.tagOrder[:i], c.tagOrder[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	c.TriggerCoreEvent(coreevent.Args{ID: coreevent.TagsChanged, Params: map[string]interface{}{"Tag": tag, "Added": false}})
}

// Status returns the component's status container, lazily usable without
// further construction (design §4.C: preinitialized to Ok).
func (c *Component) Status() *StatusContainer {
	return c.status
}

func (c *Component) onStatusSet(slot string, st Status, message string) {
	lvl := daqlog.LevelInfo
	switch st {
	case StatusWarning:
		lvl = daqlog.LevelWarning
	case StatusError:
		lvl = daqlog.LevelError
	case StatusUnknown:
		lvl = daqlog.LevelWarning
	}
	logAtLevel(lvl, c.GlobalID(), slot, st, message)

	c.TriggerCoreEvent(coreevent.Args{
		ID: coreevent.StatusChanged,
		Params: map[string]interface{}{
			"Slot":    slot,
			"Status":  st.String(),
			"Message": message,
		},
	})
}

func logAtLevel(lvl daqlog.Level, globalID, slot string, st Status, message string) {
	switch lvl {
	case daqlog.LevelWarning:
		log.Warning("component status changed", "component", globalID, "slot", slot, "status", st.String(), "message", message)
	case daqlog.LevelError:
		log.Error("component status changed", "component", globalID, "slot", slot, "status", st.String(), "message", message)
	default:
		log.Info("component status changed", "component", globalID, "slot", slot, "status", st.String(), "message", message)
	}
}

// IsRemoved reports whether Remove has been called.
func (c *Component) IsRemoved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateRemoved
}

// Remove transitions the component to its terminal Removed state,
// reachable directly from Live or Inactive (design §4.C's state machine).
// Calling Remove again is idempotent and returns daqerr.Ignored.
func (c *Component) Remove() error {
	c.mu.Lock()
	if c.state == stateRemoved {
		c.mu.Unlock()
		return daqerr.New(daqerr.Ignored, "component.Component", "already removed")
	}
	c.state = stateRemoved
	c.mu.Unlock()

	c.TriggerCoreEvent(coreevent.Args{ID: coreevent.ComponentRemoved})
	return nil
}

// FindComponent resolves a slash-separated path of local IDs against
// resolveChild, which a concrete type supplies to look up one path segment
// among its own children/folders.
func FindComponent(root *Component, path string, resolveChild func(cur *Component, segment string) *Component) *Component {
	path = strings.Trim(path, "/")
	if path == "" {
		return root
	}
	cur := root
	for _, seg := range strings.Split(path, "/") {
		if cur == nil {
			return nil
		}
		cur = resolveChild(cur, seg)
	}
	return cur
}

// wireComponent is the JSON shape a Component serializes to and
// deserializes from (design §4.C: only non-default attribute values are
// written; tags/status serialized only if non-empty).
type wireComponent struct {
	LocalID     string                     `json:"LocalId"`
	ClassName   string                     `json:"ClassName"`
	Name        string                     `json:"Name,omitempty"`
	Description string                     `json:"Description,omitempty"`
	Visible     *bool                      `json:"Visible,omitempty"`
	Active      *bool                      `json:"Active,omitempty"`
	LockedAttrs []string                   `json:"LockedAttributes,omitempty"`
	Tags        []string                   `json:"Tags,omitempty"`
	Status      map[string]wireStatusEntry `json:"Status,omitempty"`
	Config      json.RawMessage            `json:"Config,omitempty"`
}

type wireStatusEntry struct {
	Status  string `json:"Status"`
	Message string `json:"Message,omitempty"`
}

// Serialize renders the component's attributes, tags, status, and (for the
// "update" form) attached property object, in the tolerant subset format
// described by design §4.C.
func (c *Component) Serialize(includeConfig bool) (json.RawMessage, error) {
	c.mu.Lock()
	w := wireComponent{LocalID: c.localID, ClassName: c.className}
	if c.name != c.localID {
		w.Name = c.name
	}
	w.Description = c.description
	if !c.visible {
		v := false
		w.Visible = &v
	}
	if !c.active {
		v := false
		w.Active = &v
	}
	for n := range c.lockedAttrs {
		w.LockedAttrs = append(w.LockedAttrs, n)
	}
	w.Tags = append(w.Tags, c.tagOrder...)
	c.mu.Unlock()

	if slots := c.status.Slots(); len(slots) > 0 {
		w.Status = make(map[string]wireStatusEntry, len(slots))
		for _, slot := range slots {
			st, msg, _ := c.status.Get(slot)
			if slot == componentStatusSlot && st == StatusOk && msg == "" {
				continue
			}
			w.Status[slot] = wireStatusEntry{Status: st.String(), Message: msg}
		}
		if len(w.Status) == 0 {
			w.Status = nil
		}
	}

	if includeConfig {
		cfg, err := c.Properties.Serialize()
		if err != nil {
			return nil, err
		}
		w.Config = cfg
	}

	return json.Marshal(w)
}

// Deserialize applies a previously-serialized snapshot's attributes, tags,
// and status onto c in place; it does not recurse into folders, which is
// the container package's responsibility.
func (c *Component) Deserialize(data json.RawMessage) error {
	var w wireComponent
	if err := json.Unmarshal(data, &w); err != nil {
		return daqerr.Wrap(daqerr.InvalidParameter, "component.Component", err)
	}

	c.mu.Lock()
	if w.Name != "" {
		c.name = w.Name
	}
	c.description = w.Description
	if w.Visible != nil {
		c.visible = *w.Visible
	}
	if w.Active != nil {
		c.active = *w.Active
	}
	for _, n := range w.LockedAttrs {
		c.lockedAttrs[normalizeAttr(n)] = struct{}{}
	}
	for _, t := range w.Tags {
		if _, ok := c.tags[t]; !ok {
			c.tags[t] = struct{}{}
			c.tagOrder = append(c.tagOrder, t)
		}
	}
	c.mu.Unlock()

	for slot, e := range w.Status {
		st := parseStatus(e.Status)
		_ = c.status.Set(slot, st, e.Message)
	}

	if len(w.Config) > 0 {
		if err := c.Properties.Update(w.Config); err != nil {
			return err
		}
	}
	return nil
}

func parseStatus(s string) Status {
	switch s {
	case "Ok":
		return StatusOk
	case "Warning":
		return StatusWarning
	case "Error":
		return StatusError
	default:
		return StatusUnknown
	}
}
