// Package coretypes implements the object kernel (design §4.A): reference
// counting, interface lookup by a 128-bit interface ID, and the typed
// containers and serializer registry used pervasively by the layers above
// it. It is deliberately built on stdlib primitives (sync/atomic, Go
// interfaces) — reference counting and capability lookup are mechanics of
// the object system itself, not a pluggable concern any library in the
// retrieval pack models (see DESIGN.md).
package coretypes

import (
	"fmt"
	"sync/atomic"

	"github.com/opendaq/daqcore/daqerr"
)

// IID identifies a capability (interface) an object may support. It mirrors
// the reference implementation's 128-bit interface ID as two uint64 halves.
type IID [2]uint64

// String renders an IID the way a GUID is conventionally printed.
func (id IID) String() string {
	return fmt.Sprintf("%016x-%016x", id[0], id[1])
}

// NewIID builds an IID from two explicit 64-bit halves. Concrete interfaces
// in this module declare a package-level IID this way, analogous to a
// DEFINE_INTFID macro in the reference implementation.
func NewIID(hi, lo uint64) IID { return IID{hi, lo} }

// RefCounted is implemented by every object that participates in the
// kernel's reference-counting discipline. AddRef/ReleaseRef are the only
// sanctioned ways to clone/drop a handle to such an object.
type RefCounted interface {
	AddRef() int32
	ReleaseRef() int32
}

// Destroyer is implemented by objects that need to run cleanup when a
// creation helper decides to discard them (e.g. because a required
// capability lookup failed). Destroy must be idempotent.
type Destroyer interface {
	Destroy()
}

// InterfaceQuerier is implemented by any kernel object that exposes
// capability lookup. QueryInterface returns an owning handle (it calls
// AddRef on success); BorrowInterface returns the same value without
// adjusting the reference count.
type InterfaceQuerier interface {
	QueryInterface(id IID) (interface{}, error)
	BorrowInterface(id IID) (interface{}, error)
}

// Base is embedded by every concrete kernel object. It supplies the
// reference count and a capability table built by the embedding type's
// constructor. It is not safe to copy after first use.
type Base struct {
	refs   int32
	caps   map[IID]interface{}
	source string
}

// NewBase constructs a Base with an initial reference count of one (the
// caller's own handle) and the given source name used in error messages.
func NewBase(source string) Base {
	return Base{refs: 1, caps: make(map[IID]interface{}), source: source}
}

// RegisterInterface advertises that this object supports the capability
// identified by id, implemented by impl. Constructors call this once per
// capability before returning.
func (b *Base) RegisterInterface(id IID, impl interface{}) {
	b.caps[id] = impl
}

// AddRef increments the reference count and returns the new value.
func (b *Base) AddRef() int32 {
	return atomic.AddInt32(&b.refs, 1)
}

// ReleaseRef decrements the reference count and returns the new value. A
// caller observing a return of zero is responsible for disposing of the
// object; Base itself performs no finalization since the Go garbage
// collector owns memory reclamation — ReleaseRef only enforces the
// handle-counting discipline so that handle leaks and double-frees are
// detectable the same way they are in the reference implementation.
func (b *Base) ReleaseRef() int32 {
	n := atomic.AddInt32(&b.refs, -1)
	if n < 0 {
		panic(fmt.Sprintf("%s: ReleaseRef underflow", b.source))
	}
	return n
}

// RefCount reports the current reference count, mainly for tests and for
// the streaming server's "server's last reference will drop" check (design
// §4.H, PACKET_FLAG_CAN_RELEASE).
func (b *Base) RefCount() int32 {
	return atomic.LoadInt32(&b.refs)
}

// QueryInterface looks up the capability identified by id, adding a
// reference on success.
func (b *Base) QueryInterface(id IID) (interface{}, error) {
	impl, ok := b.caps[id]
	if !ok {
		return nil, daqerr.New(daqerr.NoInterface, b.source, "no interface %s", id)
	}
	b.AddRef()
	return impl, nil
}

// BorrowInterface looks up the capability identified by id without
// affecting the reference count.
func (b *Base) BorrowInterface(id IID) (interface{}, error) {
	impl, ok := b.caps[id]
	if !ok {
		return nil, daqerr.New(daqerr.NoInterface, b.source, "no interface %s", id)
	}
	return impl, nil
}

// CreateWithInterface constructs a T via build, verifies it (or, if build
// returned an error, translates that error into the closed taxonomy), and
// confirms it implements InterfaceQuerier for the requested capability,
// destroying the half-built object if the capability is missing. This is
// the Go analogue of a reference-implementation creation helper that traps
// construction exceptions and discards an object that doesn't support the
// interface the caller asked for.
func CreateWithInterface[T any](source string, required IID, build func() (T, error)) (T, error) {
	obj, err := build()
	if err != nil {
		var zero T
		if de, ok := asDaqErr(err); ok {
			return zero, de
		}
		return zero, daqerr.Wrap(daqerr.GeneralError, source, err)
	}

	if required != (IID{}) {
		supported := false
		if iq, ok := any(obj).(InterfaceQuerier); ok {
			_, ierr := iq.BorrowInterface(required)
			supported = ierr == nil
		}
		if !supported {
			if d, ok := any(obj).(Destroyer); ok {
				d.Destroy()
			}
			var zero T
			return zero, daqerr.New(daqerr.NoInterface, source,
				"constructed object does not support %s", required)
		}
	}
	return obj, nil
}

func asDaqErr(err error) (*daqerr.Error, bool) {
	de, ok := err.(*daqerr.Error)
	return de, ok
}
