package property

import (
	"sort"
	"strings"
	"sync"

	"github.com/opendaq/daqcore/daqerr"
	"github.com/opendaq/daqcore/daqlog"
)

var log = daqlog.GetOrAddComponent("property")

// EventKind identifies which of property.Object's local events fired.
type EventKind int

// The events a property object's local emitter can fire; component.Component
// relays these onto the core-event bus (design §4.G) with the owning
// component and dotted path attached.
const (
	EventValueChanged EventKind = iota
	EventUpdateEnd
	EventPropertyAdded
	EventPropertyRemoved
)

// Event is delivered to Object's local subscribers.
type Event struct {
	Kind     EventKind
	Path     string                 // dotted path from the owning component's property root, "" at the root
	Name     string                 // property name, for Value/Added/Removed events
	Value    interface{}            // new value, for EventValueChanged
	Updated  map[string]interface{} // changed name -> new value, for EventUpdateEnd
}

// Listener receives Object events. Panics raised by a Listener are caught
// and logged by Object, never allowed to propagate (design §4.G).
type Listener func(Event)

type entry struct {
	meta  Metadata
	value interface{}
	// child is non-nil when meta.ValueType == ValueObject: the nested
	// property object this property owns.
	child *Object
}

// Object is a property object: an ordered name -> (metadata, value) map
// with coercion/validation, nested object properties, begin/end update
// transactions, and a local event emitter. It corresponds to cfgtree.PNode
// generalized from a pure config tree node into a typed, validated bag.
type Object struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*entry
	frozen  bool

	parent *Object
	path   string // dotted path from the root property object that owns this one

	listeners []Listener

	updateDepth int
	buffered    map[string]interface{}
}

// New creates an empty, unfrozen property object.
func New() *Object {
	return &Object{entries: make(map[string]*entry)}
}

// Subscribe registers fn to receive this object's local events.
func (o *Object) Subscribe(fn Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

func (o *Object) emit(ev Event) {
	ev.Path = o.path
	for _, l := range o.listeners {
		safeInvoke(l, ev)
	}
}

func safeInvoke(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("property listener panicked", "panic", r)
		}
	}()
	l(ev)
}

// Freeze marks the object (and, recursively, any nested object properties)
// as immutable. A frozen object refuses all mutating operations with
// daqerr.Frozen.
func (o *Object) Freeze() {
	o.mu.Lock()
	o.frozen = true
	children := o.childObjectsLocked()
	o.mu.Unlock()
	for _, c := range children {
		c.Freeze()
	}
}

// IsFrozen reports whether the object has been frozen.
func (o *Object) IsFrozen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frozen
}

func (o *Object) childObjectsLocked() []*Object {
	var out []*Object
	for _, name := range o.order {
		if c := o.entries[name].child; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// AddProperty adds a new property described by meta. It fails with
// daqerr.Frozen if the object is frozen, and daqerr.AlreadyExists if a
// property with that name is already present.
func (o *Object) AddProperty(meta Metadata) error {
	o.mu.Lock()
	if o.frozen {
		o.mu.Unlock()
		return daqerr.New(daqerr.Frozen, "property.Object", "cannot add property %q on a frozen object", meta.Name)
	}
	if _, exists := o.entries[meta.Name]; exists {
		o.mu.Unlock()
		return daqerr.New(daqerr.AlreadyExists, "property.Object", "property %q already exists", meta.Name)
	}

	e := &entry{meta: meta, value: meta.Default}
	if meta.ValueType == ValueObject {
		child := cloneDefaultObject(meta.Default)
		child.parent = o
		child.path = joinPath(o.path, meta.Name)
		e.child = child
		e.value = child
	}
	o.entries[meta.Name] = e
	o.order = append(o.order, meta.Name)
	o.mu.Unlock()

	o.emit(Event{Kind: EventPropertyAdded, Name: meta.Name})
	return nil
}

// cloneDefaultObject clones a default nested property object so that each
// instance of the owning type gets its own independent child, the same
// way the reference implementation clones an Object-typed property's
// default at AddProperty time.
func cloneDefaultObject(def interface{}) *Object {
	if src, ok := def.(*Object); ok && src != nil {
		return src.Clone()
	}
	return New()
}

// Clone produces a deep, unfrozen, unparented copy of o, including nested
// object properties. It is used both for AddProperty's default-cloning and
// for the configuration client mirror's remote-default re-deserialization
// (design §4.I).
func (o *Object) Clone() *Object {
	o.mu.Lock()
	defer o.mu.Unlock()

	c := New()
	for _, name := range o.order {
		e := o.entries[name]
		meta := e.meta
		if meta.ValueType == ValueObject {
			meta.Default = e.child
		}
		c.order = append(c.order, name)
		ce := &entry{meta: meta, value: e.value}
		if e.child != nil {
			child := e.child.Clone()
			child.parent = c
			child.path = joinPath(c.path, name)
			ce.child = child
			ce.value = child
		}
		c.entries[name] = ce
	}
	return c
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

// RemoveProperty deletes the named property.
func (o *Object) RemoveProperty(name string) error {
	o.mu.Lock()
	if o.frozen {
		o.mu.Unlock()
		return daqerr.New(daqerr.Frozen, "property.Object", "cannot remove property %q on a frozen object", name)
	}
	if _, ok := o.entries[name]; !ok {
		o.mu.Unlock()
		return daqerr.New(daqerr.NotFound, "property.Object", "no such property %q", name)
	}
	delete(o.entries, name)
	for i, n := range o.order {
		if n == name {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	o.mu.Unlock()

	o.emit(Event{Kind: EventPropertyRemoved, Name: name})
	return nil
}

// HasProperty reports whether name is a direct property of this object.
func (o *Object) HasProperty(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.entries[name]
	return ok
}

// PropertyNames returns the object's property names in declaration order.
func (o *Object) PropertyNames() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// Metadata returns the metadata registered for name.
func (o *Object) Metadata(name string) (Metadata, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[name]
	if !ok {
		return Metadata{}, daqerr.New(daqerr.NotFound, "property.Object", "no such property %q", name)
	}
	return e.meta, nil
}

// resolve splits a dotted path into (headObject, finalName), descending
// through nested object properties as needed.
func (o *Object) resolve(dottedName string) (*Object, string, error) {
	parts := strings.Split(dottedName, ".")
	cur := o
	for _, seg := range parts[:len(parts)-1] {
		cur.mu.Lock()
		e, ok := cur.entries[seg]
		if !ok || e.child == nil {
			cur.mu.Unlock()
			return nil, "", daqerr.New(daqerr.NotFound, "property.Object", "no such nested object property %q", seg)
		}
		next := e.child
		cur.mu.Unlock()
		cur = next
	}
	return cur, parts[len(parts)-1], nil
}

// GetPropertyValue returns the current value of name, resolving dotted
// paths into nested object properties and applying any referenced-property
// redirection and OnRead callback.
func (o *Object) GetPropertyValue(dottedName string) (interface{}, error) {
	target, name, err := o.resolve(dottedName)
	if err != nil {
		return nil, err
	}

	target.mu.Lock()
	e, ok := target.entries[name]
	if !ok {
		target.mu.Unlock()
		return nil, daqerr.New(daqerr.NotFound, "property.Object", "no such property %q", name)
	}
	if e.meta.ReferencedProp != nil {
		if refName, redirect := e.meta.ReferencedProp(target); redirect {
			target.mu.Unlock()
			return target.GetPropertyValue(refName)
		}
	}
	v := e.value
	onRead := e.meta.OnRead
	target.mu.Unlock()

	if onRead != nil {
		v = onRead(name, v)
	}
	return v, nil
}

// SetPropertyValue runs the coercer (if any), then the validator (if any),
// then applies the value, fires the write callback, and emits
// EventValueChanged (unless buffered inside an update transaction).
// Failure leaves the stored value unchanged.
func (o *Object) SetPropertyValue(dottedName string, v interface{}) error {
	return o.setValue(dottedName, v, false)
}

// SetProtectedPropertyValue is identical to SetPropertyValue but bypasses
// the ReadOnly check.
func (o *Object) SetProtectedPropertyValue(dottedName string, v interface{}) error {
	return o.setValue(dottedName, v, true)
}

func (o *Object) setValue(dottedName string, v interface{}, protected bool) error {
	target, name, err := o.resolve(dottedName)
	if err != nil {
		return err
	}

	target.mu.Lock()
	if target.frozen {
		target.mu.Unlock()
		return daqerr.New(daqerr.Frozen, "property.Object", "cannot set %q on a frozen object", name)
	}
	e, ok := target.entries[name]
	if !ok {
		target.mu.Unlock()
		return daqerr.New(daqerr.NotFound, "property.Object", "no such property %q", name)
	}
	if e.meta.ReadOnly && !protected {
		target.mu.Unlock()
		return daqerr.New(daqerr.AccessDenied, "property.Object", "property %q is read-only", name)
	}

	coerced := v
	if e.meta.Coercer != nil {
		var cerr error
		coerced, cerr = e.meta.Coercer(v)
		if cerr != nil {
			target.mu.Unlock()
			return daqerr.Wrap(daqerr.InvalidParameter, "property.Object", cerr)
		}
	}
	if e.meta.Validator != nil && !e.meta.Validator(coerced) {
		target.mu.Unlock()
		return daqerr.New(daqerr.InvalidParameter, "property.Object", "value for %q failed validation", name)
	}

	e.value = coerced
	onWrite := e.meta.OnWrite
	buffering := target.updateDepth > 0
	if buffering {
		if target.buffered == nil {
			target.buffered = make(map[string]interface{})
		}
		target.buffered[name] = coerced
	}
	target.mu.Unlock()

	if onWrite != nil {
		if override := onWrite(name, coerced); override != nil {
			target.mu.Lock()
			e.value = override
			target.mu.Unlock()
		}
	}

	if !buffering {
		target.emit(Event{Kind: EventValueChanged, Name: name, Value: coerced})
	}
	return nil
}

// ClearPropertyValue resets name back to its metadata default.
func (o *Object) ClearPropertyValue(dottedName string) error {
	target, name, err := o.resolve(dottedName)
	if err != nil {
		return err
	}
	target.mu.Lock()
	e, ok := target.entries[name]
	if !ok {
		target.mu.Unlock()
		return daqerr.New(daqerr.NotFound, "property.Object", "no such property %q", name)
	}
	def := e.meta.Default
	target.mu.Unlock()
	return target.setValue(name, def, true)
}

// BeginUpdate opens a new (possibly nested) update transaction. Property
// writes made while any transaction is open are buffered per-name (last
// write wins) instead of firing EventValueChanged immediately. The call
// recurses into every Object-typed child property, so a single BeginUpdate
// at the root opens a matching transaction throughout the nested tree
// (design §3, §4.B, §9).
func (o *Object) BeginUpdate() {
	o.mu.Lock()
	o.updateDepth++
	children := o.childObjectsLocked()
	o.mu.Unlock()

	for _, c := range children {
		c.BeginUpdate()
	}
}

// EndUpdate closes one level of update transaction. Nested object properties
// close their own matching transaction first, each committing independently;
// when the outermost transaction on this object closes, a single
// EventUpdateEnd fires here carrying the set of changed names on this object
// (design §4.B/§9: "on commit, emit one PropertyObjectUpdateEnd per object
// whose buffered map is non-empty").
func (o *Object) EndUpdate() error {
	o.mu.Lock()
	if o.updateDepth == 0 {
		o.mu.Unlock()
		return daqerr.New(daqerr.InvalidState, "property.Object", "EndUpdate without matching BeginUpdate")
	}
	children := o.childObjectsLocked()
	o.mu.Unlock()

	for _, c := range children {
		if err := c.EndUpdate(); err != nil {
			return err
		}
	}

	o.mu.Lock()
	o.updateDepth--
	if o.updateDepth > 0 {
		o.mu.Unlock()
		return nil
	}
	updated := o.buffered
	o.buffered = nil
	o.mu.Unlock()

	if len(updated) > 0 {
		o.emit(Event{Kind: EventUpdateEnd, Updated: updated})
	}
	return nil
}

// sortedKeys is a small helper used by the serializer to produce
// deterministic output irrespective of map iteration order.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
