// Package signal implements signals, connections, input ports, and packets
// (design §4.E): packet fan-out under an acquisition lock, a last-value
// cache, domain back-references, connection FIFOs, listener lifecycle
// hooks, and a block reader restored from original_source's
// block_reader_impl.h.
package signal

import (
	"sync"

	"github.com/opendaq/daqcore/daqerr"
)

// SampleType is the closed set of raw sample encodings a descriptor names.
type SampleType int

// Null is reserved for the event-packet marker descriptor (design §4.E):
// setting a descriptor with this sample type on a data signal fails with
// daqerr.InvalidParameter, whose message starts with "InvalidSampleType:".
const (
	SampleTypeNull SampleType = iota
	SampleTypeFloat32
	SampleTypeFloat64
	SampleTypeInt8
	SampleTypeInt16
	SampleTypeInt32
	SampleTypeInt64
	SampleTypeUint8
	SampleTypeUint16
	SampleTypeUint32
	SampleTypeUint64
	SampleTypeBinary
	SampleTypeStruct
)

// sampleSize returns the byte width of one sample of t, or 0 when t has no
// fixed width (Binary, Struct — those carry their own size in the packet).
func sampleSize(t SampleType) int {
	switch t {
	case SampleTypeFloat32, SampleTypeInt32, SampleTypeUint32:
		return 4
	case SampleTypeFloat64, SampleTypeInt64, SampleTypeUint64:
		return 8
	case SampleTypeInt8, SampleTypeUint8:
		return 1
	case SampleTypeInt16, SampleTypeUint16:
		return 2
	default:
		return 0
	}
}

// DataRule describes how a domain signal's samples are produced: Explicit
// (every sample carries its own value) or Linear (start + delta, implicit
// samples).
type DataRule int

const (
	DataRuleExplicit DataRule = iota
	DataRuleLinear
)

// DataDescriptor describes a signal's sample stream: type, rule, dimension
// and unit metadata. Two descriptors are considered equal for the purposes
// of domain back-propagation (design §4.E) when Equal reports true.
type DataDescriptor struct {
	Name       string
	SampleType SampleType
	Rule       DataRule
	Unit       string
	Dimensions int
}

// Equal reports whether d and other describe the same stream shape.
func (d DataDescriptor) Equal(other DataDescriptor) bool {
	return d.Name == other.Name && d.SampleType == other.SampleType &&
		d.Rule == other.Rule && d.Unit == other.Unit && d.Dimensions == other.Dimensions
}

// PacketFlag marks special packet behaviors.
type PacketFlag int

const (
	// FlagCanRelease marks a packet whose sender holds the only remaining
	// reference, letting a streaming consumer skip an explicit release
	// round-trip (design §4.H / original_source packet_streaming_server.cpp).
	FlagCanRelease PacketFlag = 1 << iota
)

// Packet is the unit a Signal sends and a Connection queues. A data packet
// carries raw sample bytes and a sample count; an event packet carries
// nil Data and a non-nil Descriptor, signaling a stream property change
// (e.g. DataDescriptorChanged) inline with the data flow.
type Packet struct {
	Descriptor *DataDescriptor
	Data       []byte
	SampleCount int
	Flags      PacketFlag

	refs int32
	mu   sync.Mutex
}

// NewDataPacket constructs a packet carrying raw sample bytes.
func NewDataPacket(data []byte, sampleCount int) *Packet {
	return &Packet{Data: data, SampleCount: sampleCount, refs: 1}
}

// NewEventPacket constructs a packet that carries only a descriptor change,
// e.g. for DataDescriptorChanged propagation.
func NewEventPacket(d *DataDescriptor) *Packet {
	return &Packet{Descriptor: d, refs: 1}
}

// IsEventPacket reports whether this packet carries no sample data.
func (p *Packet) IsEventPacket() bool {
	return p.Data == nil && p.Descriptor != nil
}

// AddRef and Release implement the steal-ref discipline sendPacketAndStealRef
// relies on: sendPacket adds a reference per connection fan-out target and
// releases its own on exit; sendPacketAndStealRef skips the initial add,
// transferring the caller's single reference into the fan-out.
func (p *Packet) AddRef() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs++
	return p.refs
}

// Release decrements the reference count, returning the new value. It
// never panics on underflow the way coretypes.Base does, since a packet
// reaching zero during ordinary fan-out is the expected terminal state.
func (p *Packet) Release() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refs > 0 {
		p.refs--
	}
	return p.refs
}

// RefCount reports the current reference count.
func (p *Packet) RefCount() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refs
}

func validateDescriptor(d *DataDescriptor) error {
	if d != nil && d.SampleType == SampleTypeNull {
		return daqerr.New(daqerr.InvalidParameter, "signal.Signal", "InvalidSampleType: Null sample type is reserved for event packets")
	}
	return nil
}
