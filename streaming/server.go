package streaming

import (
	"encoding/json"
	"sync"

	"github.com/opendaq/daqcore/daqerr"
	"github.com/opendaq/daqcore/signal"
)

// Server turns packets sent on a set of signals into an outgoing frame
// queue for one streaming link, grounded on
// original_source/packet_streaming_server.cpp: packet-ID dedup against a
// per-link "sent" set, release-ID batching against releaseThreshold, and
// cacheable-buffer grouping for buffers at or below cacheablePacketPayloadSizeMax.
type Server struct {
	mu sync.Mutex

	cacheablePayloadSizeMax int
	releaseThreshold        int

	nextPacketID    int64
	sentPacketIDs   map[int64]struct{}
	readyForRelease []int64

	currentGroupID   uint64
	groupOpen        bool
	descriptors      map[uint32]*signal.DataDescriptor

	queue []Frame
}

// NewServer constructs a Server. cacheablePayloadSizeMax and
// releaseThreshold mirror PacketStreamingServer's constructor parameters.
func NewServer(cacheablePayloadSizeMax, releaseThreshold int) *Server {
	return &Server{
		cacheablePayloadSizeMax: cacheablePayloadSizeMax,
		releaseThreshold:        releaseThreshold,
		sentPacketIDs:           make(map[int64]struct{}),
		descriptors:             make(map[uint32]*signal.DataDescriptor),
	}
}

// AddDaqPacket dispatches p by kind: an event packet (p.IsEventPacket())
// is JSON-encoded and its descriptor tracked; a data packet is framed and
// deduped against the sent set. canRelease reports whether the caller
// knows its own reference will be the last one dropped by this send
// (steal-ref variant, or refcount already 1) — PACKET_FLAG_CAN_RELEASE.
func (s *Server) AddDaqPacket(signalID uint32, p *signal.Packet, packetID int64, domainPacketID int64, canRelease bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IsEventPacket() {
		s.descriptors[signalID] = p.Descriptor
		payload, err := json.Marshal(eventEnvelope{Type: "DataDescriptorChanged", Descriptor: p.Descriptor})
		if err != nil {
			return daqerr.Wrap(daqerr.GeneralError, "streaming.Server", err)
		}
		s.enqueueLocked(Frame{Type: FrameEvent, SignalID: signalID, EventPayload: payload}, 0)
		return nil
	}

	if s.descriptors[signalID] == nil {
		return daqerr.New(daqerr.PacketStreaming, "streaming.Server", "no signal descriptor event received")
	}

	if _, already := s.sentPacketIDs[packetID]; already {
		s.enqueueLocked(Frame{Type: FrameAlreadySent, SignalID: signalID, PacketID: packetID, DomainPacketID: domainPacketID}, 0)
		return nil
	}
	s.sentPacketIDs[packetID] = struct{}{}

	flags := uint8(0)
	if canRelease {
		flags |= FlagCanRelease
		s.markReadyForReleaseLocked(packetID)
	}

	s.enqueueLocked(Frame{
		Type:           FrameData,
		SignalID:       signalID,
		Flags:          flags,
		PacketID:       packetID,
		DomainPacketID: domainPacketID,
		SampleCount:    int64(p.SampleCount),
		DataPayload:    p.Data,
	}, len(p.Data))
	return nil
}

type eventEnvelope struct {
	Type       string                  `json:"Type"`
	Descriptor *signal.DataDescriptor `json:"Descriptor,omitempty"`
}

// enqueueLocked appends f to the output queue and updates the cacheable
// group counters: a buffer whose payload fits within
// cacheablePayloadSizeMax joins (or opens) the current group; anything
// larger closes the current group.
func (s *Server) enqueueLocked(f Frame, payloadSize int) {
	if payloadSize > 0 && payloadSize <= s.cacheablePayloadSizeMax {
		if !s.groupOpen {
			s.currentGroupID++
			s.groupOpen = true
		}
		f.CacheableGroupID = s.currentGroupID
	} else {
		s.groupOpen = false
	}
	s.queue = append(s.queue, f)
}

// markReadyForReleaseLocked records packetID as eligible for release and,
// once readyForRelease reaches releaseThreshold, flushes a release frame
// immediately.
func (s *Server) markReadyForReleaseLocked(packetID int64) {
	s.readyForRelease = append(s.readyForRelease, packetID)
	if len(s.readyForRelease) >= s.releaseThreshold {
		s.flushReleaseLocked()
	}
}

// NotifyPacketDestroyed is the packet-destructor callback design §4.H
// describes: once the last holder drops a packet, its ID becomes eligible
// for release.
func (s *Server) NotifyPacketDestroyed(packetID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markReadyForReleaseLocked(packetID)
}

func (s *Server) flushReleaseLocked() {
	if len(s.readyForRelease) == 0 {
		return
	}
	ids := s.readyForRelease
	s.readyForRelease = nil
	for _, id := range ids {
		delete(s.sentPacketIDs, id)
	}
	s.enqueueLocked(Frame{Type: FrameRelease, ReleaseIDs: ids}, 0)
}

// Flush forces a release frame regardless of releaseThreshold, restored
// from the original's explicit flush path used at link teardown.
func (s *Server) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushReleaseLocked()
}

// GetNextPacketBuffer drains the oldest queued frame, encoding it to wire
// bytes.
func (s *Server) GetNextPacketBuffer() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	f := s.queue[0]
	s.queue = s.queue[1:]
	return f.Encode(), true
}

// PeekNextPacketBuffer returns the oldest queued frame's wire bytes without
// removing it.
func (s *Server) PeekNextPacketBuffer() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	return s.queue[0].Encode(), true
}

// QueueLength reports the number of frames currently queued.
func (s *Server) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
