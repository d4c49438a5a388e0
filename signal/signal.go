package signal

import (
	"sync"

	"github.com/opendaq/daqcore/component"
	"github.com/opendaq/daqcore/coreevent"
	"github.com/opendaq/daqcore/daqerr"
)

// Signal is a named data source in the component tree: it owns a
// descriptor, an optional domain signal back-reference, a last-value
// cache, a public/keepLastPacket flag, a related-signal set, and the fan-
// out machinery that pushes packets to every connected input port (design
// §4.E).
type Signal struct {
	*component.Component

	acqMu sync.Mutex // the "acquisition lock" design §4.E names for packet fan-out

	descriptor   *DataDescriptor
	domainSignal *Signal
	dependants   []*Signal // back-references: signals whose domain is this one

	public         bool
	keepLastValue  bool
	lastValue      []byte
	streamed       bool

	related   map[*Signal]struct{}

	listeners listenerRegistry
	remotes   []remoteConnection
}

// New constructs a Signal identified by comp in the component tree. Public
// defaults to true and keepLastValue defaults to false per the reference
// implementation's Signal defaults.
func New(comp *component.Component) *Signal {
	return &Signal{
		Component: comp,
		public:    true,
		related:   make(map[*Signal]struct{}),
		listeners: newListenerRegistry(),
	}
}

// Descriptor returns the signal's current data descriptor, or nil if none
// has been set.
func (s *Signal) Descriptor() *DataDescriptor {
	s.acqMu.Lock()
	defer s.acqMu.Unlock()
	return s.descriptor
}

// SetDescriptor installs d as the signal's descriptor, reallocates the
// last-value cache to match its sample size, and propagates a
// DataDescriptorChanged event to this signal's dependants (signals whose
// domain this one is) per design §4.E.
func (s *Signal) SetDescriptor(d *DataDescriptor) error {
	if err := validateDescriptor(d); err != nil {
		return err
	}

	s.acqMu.Lock()
	s.descriptor = d
	if d != nil {
		size := sampleSize(d.SampleType)
		if size == 0 {
			size = len(s.lastValue)
		}
		s.lastValue = make([]byte, size)
	}
	dependants := make([]*Signal, len(s.dependants))
	copy(dependants, s.dependants)
	s.acqMu.Unlock()

	s.TriggerCoreEvent(coreevent.Args{
		ID:     coreevent.DataDescriptorChanged,
		Params: map[string]interface{}{"Descriptor": d},
	})

	for _, dep := range dependants {
		dep.TriggerCoreEvent(coreevent.Args{
			ID: coreevent.DataDescriptorChanged,
			Params: map[string]interface{}{
				"ValueDescriptor":  nil,
				"DomainDescriptor": d,
			},
		})
	}
	return nil
}

// DomainSignal returns the signal that describes this signal's domain
// (typically time), or nil.
func (s *Signal) DomainSignal() *Signal {
	s.acqMu.Lock()
	defer s.acqMu.Unlock()
	return s.domainSignal
}

// SetDomainSignal swaps the domain back-reference, registering this signal
// as a dependant of the new domain signal and unregistering it from the
// old one. Clearing (passing nil) is idempotent.
func (s *Signal) SetDomainSignal(domain *Signal) {
	s.acqMu.Lock()
	old := s.domainSignal
	s.domainSignal = domain
	s.acqMu.Unlock()

	if old == domain {
		return
	}
	if old != nil {
		old.removeDependant(s)
	}
	if domain != nil {
		domain.addDependant(s)
		s.TriggerCoreEvent(coreevent.Args{
			ID: coreevent.DataDescriptorChanged,
			Params: map[string]interface{}{
				"DomainDescriptor": domain.Descriptor(),
			},
		})
	}
}

func (s *Signal) addDependant(dep *Signal) {
	s.acqMu.Lock()
	defer s.acqMu.Unlock()
	for _, d := range s.dependants {
		if d == dep {
			return
		}
	}
	s.dependants = append(s.dependants, dep)
}

func (s *Signal) removeDependant(dep *Signal) {
	s.acqMu.Lock()
	defer s.acqMu.Unlock()
	for i, d := range s.dependants {
		if d == dep {
			s.dependants = append(s.dependants[:i], s.dependants[i+1:]...)
			return
		}
	}
}

// Public reports the signal's public/keepLastPacket flag.
func (s *Signal) Public() bool {
	s.acqMu.Lock()
	defer s.acqMu.Unlock()
	return s.public
}

// SetPublic toggles the public/keepLastPacket flag.
func (s *Signal) SetPublic(v bool) {
	s.acqMu.Lock()
	s.public = v
	s.acqMu.Unlock()
}

// EnableKeepLastValue toggles whether the last-value cache is maintained.
func (s *Signal) EnableKeepLastValue(flag bool) {
	s.acqMu.Lock()
	s.keepLastValue = flag
	s.acqMu.Unlock()
}

// Streamed reports the signal's streamed flag. The default implementation
// is inert (design §4.E): set/get simply round-trip a bool with no
// behavioral effect of their own — a streaming server observes it to
// decide whether to offer the signal at all.
func (s *Signal) Streamed() bool {
	s.acqMu.Lock()
	defer s.acqMu.Unlock()
	return s.streamed
}

// SetStreamed sets the streamed flag.
func (s *Signal) SetStreamed(v bool) {
	s.acqMu.Lock()
	s.streamed = v
	s.acqMu.Unlock()
}

// RelatedSignals returns the related-signal set in unspecified order.
func (s *Signal) RelatedSignals() []*Signal {
	s.acqMu.Lock()
	defer s.acqMu.Unlock()
	out := make([]*Signal, 0, len(s.related))
	for r := range s.related {
		out = append(out, r)
	}
	return out
}

// AddRelatedSignal inserts sig into the related set, honoring attribute
// locking the way design §4.E describes (locked via the "RelatedSignals"
// attribute name).
func (s *Signal) AddRelatedSignal(sig *Signal) error {
	if s.attributeLocked("RelatedSignals") {
		return daqerr.New(daqerr.Ignored, "signal.Signal", "RelatedSignals is locked")
	}
	s.acqMu.Lock()
	s.related[sig] = struct{}{}
	s.acqMu.Unlock()
	return nil
}

// RemoveRelatedSignal deletes sig from the related set.
func (s *Signal) RemoveRelatedSignal(sig *Signal) error {
	if s.attributeLocked("RelatedSignals") {
		return daqerr.New(daqerr.Ignored, "signal.Signal", "RelatedSignals is locked")
	}
	s.acqMu.Lock()
	delete(s.related, sig)
	s.acqMu.Unlock()
	return nil
}

// SetRelatedSignals replaces the related set wholesale.
func (s *Signal) SetRelatedSignals(sigs []*Signal) error {
	if s.attributeLocked("RelatedSignals") {
		return daqerr.New(daqerr.Ignored, "signal.Signal", "RelatedSignals is locked")
	}
	next := make(map[*Signal]struct{}, len(sigs))
	for _, sg := range sigs {
		next[sg] = struct{}{}
	}
	s.acqMu.Lock()
	s.related = next
	s.acqMu.Unlock()
	return nil
}

func (s *Signal) attributeLocked(name string) bool {
	for _, locked := range s.LockedAttributes() {
		if locked == name {
			return true
		}
	}
	return false
}

// ListenerConnected attaches port, emitting an initial DataDescriptorChanged
// event immediately to prime the new listener (design §4.E). The port's own
// status listener is called with true whenever that port goes from no
// connection to one, whether or not other listeners are already attached;
// the signal itself has no listened-status hook.
func (s *Signal) ListenerConnected(port *InputPort) error {
	_, err := s.listeners.listenerConnected(port)
	if err != nil {
		return err
	}
	port.TriggerCoreEvent(coreevent.Args{
		ID:     coreevent.DataDescriptorChanged,
		Params: map[string]interface{}{"Descriptor": s.Descriptor()},
	})
	return nil
}

// ListenerDisconnected is ListenerConnected's inverse.
func (s *Signal) ListenerDisconnected(port *InputPort) error {
	return s.listeners.listenerDisconnected(port)
}

// Connections returns the signal's local connections (one per connected
// input port), not including remote mirror connections.
func (s *Signal) Connections() []*Connection {
	return s.listeners.connections()
}

// GetLastValue returns the raw bytes of the most recent data packet's
// final sample, or nil if keepLastValue is disabled or no data has
// arrived yet. Inflating this into a typed value is the caller's
// responsibility (design §4.E defers that to "the type manager", which
// this module does not otherwise model).
func (s *Signal) GetLastValue() []byte {
	s.acqMu.Lock()
	defer s.acqMu.Unlock()
	if !s.keepLastValue || s.lastValue == nil {
		return nil
	}
	out := make([]byte, len(s.lastValue))
	copy(out, s.lastValue)
	return out
}

// SetLastValue overwrites the last-value cache directly, bypassing packet
// fan-out — used by a configuration client mirror applying a remote
// snapshot (design §4.I).
func (s *Signal) SetLastValue(raw []byte) {
	s.acqMu.Lock()
	s.lastValue = raw
	s.acqMu.Unlock()
}

// SendPacket fans p out to every connected input port, following design
// §4.E's algorithm: under the acquisition lock, do nothing if the
// component is inactive; otherwise update the last-value cache for data
// packets, snapshot the connection set, release the lock, then enqueue on
// each connection (adding a reference per target beyond the first).
func (s *Signal) SendPacket(p *Packet) error {
	return s.sendPacket(p, false)
}

// SendPacketAndStealRef is SendPacket but takes ownership of the caller's
// single reference to p instead of adding its own.
func (s *Signal) SendPacketAndStealRef(p *Packet) error {
	return s.sendPacket(p, true)
}

func (s *Signal) sendPacket(p *Packet, stealRef bool) error {
	if !p.IsEventPacket() && s.Descriptor() == nil {
		return daqerr.New(daqerr.PacketStreaming, "signal.Signal", "No signal descriptor event received")
	}

	s.acqMu.Lock()
	if !s.Active() {
		s.acqMu.Unlock()
		if stealRef {
			p.Release()
		}
		return nil
	}
	if !p.IsEventPacket() && s.keepLastValue && len(p.Data) > 0 {
		tail := p.Data
		if n := len(s.lastValue); n > 0 && n <= len(tail) {
			tail = tail[len(tail)-n:]
		}
		copy(s.lastValue, tail)
	}
	s.acqMu.Unlock()

	conns := s.listeners.connections()
	if len(conns) == 0 {
		if !stealRef {
			return nil
		}
		p.Release()
		return nil
	}

	// Enqueue takes ownership of one reference per target; add enough
	// references up front so that after all targets have consumed theirs,
	// a sendPacket caller's retained handle (SendPacket) or the stolen
	// handle (SendPacketAndStealRef) accounts for exactly one of them.
	for range conns[1:] {
		p.AddRef()
	}
	for _, c := range conns {
		c.Enqueue(p)
	}
	return nil
}

// SendPackets sends each packet in order via SendPacket.
func (s *Signal) SendPackets(packets []*Packet) error {
	for _, p := range packets {
		if err := s.SendPacket(p); err != nil {
			return err
		}
	}
	return nil
}

// SendPacketsAndStealRef sends each packet in order via
// SendPacketAndStealRef.
func (s *Signal) SendPacketsAndStealRef(packets []*Packet) error {
	for _, p := range packets {
		if err := s.SendPacketAndStealRef(p); err != nil {
			return err
		}
	}
	return nil
}

// AttachRemote records that a remote mirror's input port is listening to
// this signal without creating a local Connection for it (design §4.E).
func (s *Signal) AttachRemote(remoteGlobalID string) {
	s.acqMu.Lock()
	defer s.acqMu.Unlock()
	s.remotes = append(s.remotes, remoteConnection{remoteGlobalID: remoteGlobalID})
}

// DetachRemote removes a previously attached remote listener.
func (s *Signal) DetachRemote(remoteGlobalID string) {
	s.acqMu.Lock()
	defer s.acqMu.Unlock()
	for i, r := range s.remotes {
		if r.remoteGlobalID == remoteGlobalID {
			s.remotes = append(s.remotes[:i], s.remotes[i+1:]...)
			return
		}
	}
}
