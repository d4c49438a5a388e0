package coretypes

import "sync"

// List is an ordered, insertion-order-preserving collection of boxed
// values, used pervasively by the layers above for things like related-
// signal sets and search results. ElementType is an optional hint (an IID)
// advertising which interface the list's items implement, so a
// deserialized list can tell its reader what to expect.
type List struct {
	mu          sync.RWMutex
	items       []interface{}
	ElementType IID
}

// NewList creates an empty List, optionally tagged with an element-type hint.
func NewList(elementType IID) *List {
	return &List{ElementType: elementType}
}

// Append adds v to the end of the list.
func (l *List) Append(v interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, v)
}

// Remove deletes the first occurrence of v, reports whether it found one.
func (l *List) Remove(v interface{}) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, it := range l.items {
		if it == v {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// At returns the item at index i.
func (l *List) At(i int) interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.items[i]
}

// Len returns the number of items in the list.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Items returns a snapshot copy of the list contents, in insertion order.
func (l *List) Items() []interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]interface{}, len(l.items))
	copy(out, l.items)
	return out
}

// Dict is an ordered dictionary keyed by boxed values: iteration order
// follows insertion order even though lookup is by map key.
type Dict struct {
	mu          sync.RWMutex
	order       []string
	values      map[string]interface{}
	ElementType IID
}

// NewDict creates an empty Dict, optionally tagged with an element-type hint.
func NewDict(elementType IID) *Dict {
	return &Dict{values: make(map[string]interface{}), ElementType: elementType}
}

// Set inserts or updates the value for key, preserving original insertion
// position on update.
func (d *Dict) Set(key string, v interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.values[key]; !exists {
		d.order = append(d.order, key)
	}
	d.values[key] = v
}

// Get returns the value for key and whether it was present.
func (d *Dict) Get(key string) (interface{}, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.values[key]
	return v, ok
}

// Delete removes key, reporting whether it was present.
func (d *Dict) Delete(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.values[key]; !ok {
		return false
	}
	delete(d.values, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the dictionary's keys in insertion order.
func (d *Dict) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Len returns the number of entries in the dictionary.
func (d *Dict) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// Set is a hash set of boxed values with unspecified iteration order.
type Set struct {
	mu          sync.RWMutex
	values      map[interface{}]struct{}
	ElementType IID
}

// NewSet creates an empty Set, optionally tagged with an element-type hint.
func NewSet(elementType IID) *Set {
	return &Set{values: make(map[interface{}]struct{}), ElementType: elementType}
}

// Add inserts v, reporting whether it was newly added.
func (s *Set) Add(v interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[v]; ok {
		return false
	}
	s.values[v] = struct{}{}
	return true
}

// Remove deletes v, reporting whether it was present.
func (s *Set) Remove(v interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[v]; !ok {
		return false
	}
	delete(s.values, v)
	return true
}

// Contains reports whether v is a member of the set.
func (s *Set) Contains(v interface{}) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[v]
	return ok
}

// Len returns the number of members in the set.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Items returns a snapshot of the set's members, in unspecified order.
func (s *Set) Items() []interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]interface{}, 0, len(s.values))
	for v := range s.values {
		out = append(out, v)
	}
	return out
}
