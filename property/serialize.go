package property

import (
	"encoding/json"
	"sort"

	"github.com/opendaq/daqcore/coretypes"
	"github.com/opendaq/daqcore/daqerr"
)

// SerializeID is the string under which the configuration client mirror's
// deserializer is registered (design §4.I).
const SerializeID = "PropertyObject"

func init() {
	coretypes.Default.Register(SerializeID, deserializeObject)
}

// wireValue is one property's value as it appears on the wire: a scalar
// JSON value for everything except ValueObject, whose Object field carries
// the nested object property's own wireNode recursively. This mirrors
// cfgtree.PNode's Value/Children split generalized from a plain string leaf
// to a typed value.
type wireValue struct {
	ValueType ValueType       `json:"ValueType"`
	Value     json.RawMessage `json:"Value,omitempty"`
	Object    *wireNode       `json:"Object,omitempty"`
}

type wireNode struct {
	Properties map[string]wireValue `json:"Properties"`
}

// Serialize renders o and its nested object properties as JSON, in the
// format a configuration client mirror deserializes back into an Object
// tree (design §4.I, ComponentDeserializeContext).
func (o *Object) Serialize() (json.RawMessage, error) {
	node, err := o.toWireNode()
	if err != nil {
		return nil, err
	}
	return json.Marshal(node)
}

func (o *Object) toWireNode() (*wireNode, error) {
	o.mu.Lock()
	names := make([]string, len(o.order))
	copy(names, o.order)
	entries := make(map[string]*entry, len(o.entries))
	for k, v := range o.entries {
		entries[k] = v
	}
	o.mu.Unlock()

	node := &wireNode{Properties: make(map[string]wireValue, len(names))}
	for _, name := range names {
		e := entries[name]
		wv := wireValue{ValueType: e.meta.ValueType}
		if e.meta.ValueType == ValueObject {
			childNode, err := e.child.toWireNode()
			if err != nil {
				return nil, err
			}
			wv.Object = childNode
		} else {
			raw, err := json.Marshal(e.value)
			if err != nil {
				return nil, daqerr.Wrap(daqerr.GeneralError, "property.Object", err)
			}
			wv.Value = raw
		}
		node.Properties[name] = wv
	}
	return node, nil
}

// Update applies a previously-serialized snapshot onto o in place: existing
// properties get new values (running through the normal coerce/validate
// write path, buffered as a single update transaction), properties absent
// from data are left untouched, and nested object properties recurse.
// Unknown names in data are ignored rather than rejected, matching
// cfgtree's tolerant merge-on-read behavior (design §9, Open Questions).
func (o *Object) Update(data json.RawMessage) error {
	var node wireNode
	if err := json.Unmarshal(data, &node); err != nil {
		return daqerr.Wrap(daqerr.InvalidParameter, "property.Object", err)
	}

	o.BeginUpdate()
	defer o.EndUpdate()

	names := make([]string, 0, len(node.Properties))
	for name := range node.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		wv := node.Properties[name]
		if !o.HasProperty(name) {
			log.Warning("ignoring unknown property in update payload", "name", name)
			continue
		}
		if wv.ValueType == ValueObject {
			o.mu.Lock()
			child := o.entries[name].child
			o.mu.Unlock()
			if child == nil || wv.Object == nil {
				continue
			}
			if err := child.updateFromWireNode(wv.Object); err != nil {
				return err
			}
			continue
		}
		var v interface{}
		if err := json.Unmarshal(wv.Value, &v); err != nil {
			return daqerr.Wrap(daqerr.InvalidParameter, "property.Object", err)
		}
		if err := o.SetPropertyValue(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (o *Object) updateFromWireNode(node *wireNode) error {
	raw, err := json.Marshal(node)
	if err != nil {
		return daqerr.Wrap(daqerr.GeneralError, "property.Object", err)
	}
	return o.Update(raw)
}

// SerializeID implements coretypes.Serializable.
func (o *Object) SerializeID() string { return SerializeID }

func deserializeObject(serialized json.RawMessage, ctx coretypes.DeserializeContext, factory coretypes.FactoryFunc) (interface{}, error) {
	var node wireNode
	if err := json.Unmarshal(serialized, &node); err != nil {
		return nil, daqerr.Wrap(daqerr.InvalidParameter, "property.Object", err)
	}

	obj := New()
	names := make([]string, 0, len(node.Properties))
	for name := range node.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		wv := node.Properties[name]
		meta := Metadata{Name: name, ValueType: wv.ValueType}
		if wv.ValueType == ValueObject && wv.Object != nil {
			raw, err := json.Marshal(wv.Object)
			if err != nil {
				return nil, daqerr.Wrap(daqerr.GeneralError, "property.Object", err)
			}
			childIface, err := deserializeObject(raw, ctx, factory)
			if err != nil {
				return nil, err
			}
			meta.Default = childIface.(*Object)
		} else if len(wv.Value) > 0 {
			var v interface{}
			if err := json.Unmarshal(wv.Value, &v); err != nil {
				return nil, daqerr.Wrap(daqerr.InvalidParameter, "property.Object", err)
			}
			meta.Default = v
		}
		if err := obj.AddProperty(meta); err != nil {
			return nil, err
		}
	}
	return obj, nil
}
