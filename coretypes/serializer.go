package coretypes

import (
	"encoding/json"
	"sync"

	"github.com/opendaq/daqcore/daqerr"
)

// Serializable is implemented by every object that can round-trip through
// the serializer registry. SerializeID returns the string under which a
// deserializer is registered for this type.
type Serializable interface {
	SerializeID() string
}

// DeserializeContext carries whatever ambient state a Deserializer needs —
// a parent component, a client communicator, the expected interface — the
// same role design §4.I's ComponentDeserializeContext plays for the
// configuration client mirror. It is opaque to the registry itself.
type DeserializeContext interface{}

// FactoryFunc optionally overrides how a deserializer instantiates its
// result, the way the configuration client mirror substitutes client-proxy
// constructors for server-side ones.
type FactoryFunc func(serialized json.RawMessage, ctx DeserializeContext) (interface{}, error)

// Deserializer reconstructs an object of the type registered under some
// serialization ID from its JSON form.
type Deserializer func(serialized json.RawMessage, ctx DeserializeContext, factory FactoryFunc) (interface{}, error)

// Registry maps serialization IDs to deserializer functions. A single
// process-wide Registry (Default) is populated at startup by each package
// that defines a serializable type, mirroring the reference
// implementation's registration-at-static-init-time discipline.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Deserializer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Deserializer)}
}

// Default is the process-wide registry every core package registers into
// during init().
var Default = NewRegistry()

// Register associates id with fn. Re-registering the same id overwrites the
// previous association, matching a restart-only sort of idempotence.
func (r *Registry) Register(id string, fn Deserializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[id] = fn
}

// Deserialize looks up id and invokes its deserializer.
func (r *Registry) Deserialize(id string, serialized json.RawMessage, ctx DeserializeContext, factory FactoryFunc) (interface{}, error) {
	r.mu.RLock()
	fn, ok := r.funcs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, daqerr.New(daqerr.NotFound, "coretypes.Registry", "no deserializer registered for %q", id)
	}
	return fn(serialized, ctx, factory)
}
