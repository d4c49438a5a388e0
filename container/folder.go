// Package container implements the signal container and its typed folders
// (design §4.D): an ordered, interface-typed child set per folder, plus a
// recursive filtered search over the resulting tree.
//
// Grounded on common/cfgapi.go's ChildMap (name -> node lookups preserving
// insertion order) and cfgtree.go's child-iteration helpers, generalized
// from untyped config children to an interface-ID-typed item set.
package container

import (
	"sync"

	"github.com/opendaq/daqcore/component"
	"github.com/opendaq/daqcore/coretypes"
	"github.com/opendaq/daqcore/daqerr"
)

// Item is any component that can live inside a Folder.
type Item interface {
	LocalID() string
	Component() *component.Component
}

// SearchFilter controls a recursive Folder search (design §4.D): AcceptsComponent
// decides whether an item belongs in the result set, VisitChildren decides
// whether to recurse into it.
type SearchFilter interface {
	AcceptsComponent(item Item) bool
	VisitChildren(item Item) bool
}

// RecursiveSearch is an optional marker a SearchFilter can also implement;
// its presence is what design §4.D calls the IRecursiveSearch capability
// — a filter's absence of it means GetItems only returns direct children.
type RecursiveSearch interface {
	SearchFilter
	Recursive() bool
}

// VisibleFilter is the default SearchFilter: direct children only, visible
// components only.
type VisibleFilter struct{}

// AcceptsComponent returns true for any visible item.
func (VisibleFilter) AcceptsComponent(item Item) bool { return item.Component().Visible() }

// VisitChildren never recurses.
func (VisibleFilter) VisitChildren(Item) bool { return false }

// RecursiveVisibleFilter accepts every visible item and always recurses.
type RecursiveVisibleFilter struct{}

func (RecursiveVisibleFilter) AcceptsComponent(item Item) bool { return item.Component().Visible() }
func (RecursiveVisibleFilter) VisitChildren(Item) bool         { return true }
func (RecursiveVisibleFilter) Recursive() bool                 { return true }

// Folder is a component holding an ordered set of items of one declared
// interface type (design §4.D). Folder itself embeds *component.Component
// so a Folder is addressable in the component tree like any other node.
type Folder struct {
	*component.Component

	mu          sync.Mutex
	order       []string
	items       map[string]Item
	elementType coretypes.IID
}

// NewFolder wraps comp (the folder's own component identity, already
// parented into the tree by the caller) as a Folder typed to hold items
// supporting elementType.
func NewFolder(comp *component.Component, elementType coretypes.IID) *Folder {
	return &Folder{
		Component:   comp,
		items:       make(map[string]Item),
		elementType: elementType,
	}
}

// ElementType reports the interface ID this folder's items are expected to
// support.
func (f *Folder) ElementType() coretypes.IID {
	return f.elementType
}

// AddItem inserts item, keyed by its LocalID, failing with
// daqerr.DuplicateItem if that key is already present.
func (f *Folder) AddItem(item Item) error {
	f.mu.Lock()
	if _, exists := f.items[item.LocalID()]; exists {
		f.mu.Unlock()
		return daqerr.New(daqerr.DuplicateItem, "container.Folder", "item %q already exists", item.LocalID())
	}
	f.items[item.LocalID()] = item
	f.order = append(f.order, item.LocalID())
	f.mu.Unlock()

	f.TriggerCoreEventAdded(item)
	return nil
}

// RemoveItem deletes the item identified by localID.
func (f *Folder) RemoveItem(localID string) error {
	f.mu.Lock()
	item, exists := f.items[localID]
	if !exists {
		f.mu.Unlock()
		return daqerr.New(daqerr.NotFound, "container.Folder", "no such item %q", localID)
	}
	delete(f.items, localID)
	for i, id := range f.order {
		if id == localID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	f.mu.Unlock()

	f.TriggerCoreEventRemoved(item)
	return nil
}

// RemoveItemWithLocalID is an alias for RemoveItem kept for parity with
// design §4.D's named operation.
func (f *Folder) RemoveItemWithLocalID(localID string) error {
	return f.RemoveItem(localID)
}

// HasItem reports whether localID is currently present.
func (f *Folder) HasItem(localID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[localID]
	return ok
}

// GetItem returns the item keyed by localID.
func (f *Folder) GetItem(localID string) (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[localID]
	if !ok {
		return nil, daqerr.New(daqerr.NotFound, "container.Folder", "no such item %q", localID)
	}
	return item, nil
}

// IsEmpty reports whether the folder holds no items.
func (f *Folder) IsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order) == 0
}

// GetItems returns items in insertion order, applying filter if non-nil
// (the zero value behaves like VisibleFilter); a RecursiveSearch filter
// also walks grandchildren of items exposing GetItems (folders, signal
// containers).
func (f *Folder) GetItems(filter SearchFilter) []Item {
	if filter == nil {
		filter = VisibleFilter{}
	}
	recursive := false
	if rs, ok := filter.(RecursiveSearch); ok {
		recursive = rs.Recursive()
	}
	f.mu.Lock()
	snapshot := make([]Item, 0, len(f.order))
	for _, id := range f.order {
		snapshot = append(snapshot, f.items[id])
	}
	f.mu.Unlock()

	var out []Item
	for _, item := range snapshot {
		if filter.AcceptsComponent(item) {
			out = append(out, item)
		}
		if recursive && filter.VisitChildren(item) {
			if sub, ok := item.(interface{ GetItems(SearchFilter) []Item }); ok {
				out = append(out, sub.GetItems(filter)...)
			}
		}
	}
	return out
}

// TriggerCoreEventAdded fires ComponentAdded for item, owned by the folder.
func (f *Folder) TriggerCoreEventAdded(item Item) {
	f.TriggerCoreEvent(addedEvent(item))
}

// TriggerCoreEventRemoved fires ComponentRemoved for item, owned by the folder.
func (f *Folder) TriggerCoreEventRemoved(item Item) {
	f.TriggerCoreEvent(removedEvent(item))
}
