package streaming

import (
	"encoding/json"
	"sync"

	"github.com/opendaq/daqcore/daqerr"
	"github.com/opendaq/daqcore/signal"
)

// SignalSink receives packets the client reconstructs for one signal ID,
// the role a configured signal.Signal plays for its listeners.
type SignalSink interface {
	SendPacketAndStealRef(p *signal.Packet) error
}

// Client reconstructs packets from a stream of wire frames, grounded on
// original_source/shared/libraries/websocket_streaming/src/streaming_client.cpp:
// a per-session descriptor map and a packetID -> owned-packet map so that
// alreadySent frames can redeliver without retransmitting payload.
type Client struct {
	mu sync.Mutex

	descriptors map[uint32]*signal.DataDescriptor
	owned       map[int64]*signal.Packet
	sinks       map[uint32]SignalSink
}

// NewClient constructs an empty client-side reassembler.
func NewClient() *Client {
	return &Client{
		descriptors: make(map[uint32]*signal.DataDescriptor),
		owned:       make(map[int64]*signal.Packet),
		sinks:       make(map[uint32]SignalSink),
	}
}

// Bind associates signalID with sink so future frames for that signal are
// delivered there.
func (c *Client) Bind(signalID uint32, sink SignalSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks[signalID] = sink
}

type eventDescriptorEnvelope struct {
	Type       string                  `json:"Type"`
	Descriptor *signal.DataDescriptor `json:"Descriptor,omitempty"`
}

// HandleBuffer decodes a single wire buffer and dispatches it per design
// §4.H's client algorithm.
func (c *Client) HandleBuffer(buf []byte) error {
	f, err := Decode(buf)
	if err != nil {
		return err
	}
	return c.HandleFrame(f)
}

// HandleFrame dispatches an already-decoded frame.
func (c *Client) HandleFrame(f Frame) error {
	switch f.Type {
	case FrameEvent:
		return c.handleEvent(f)
	case FrameData:
		return c.handleData(f)
	case FrameAlreadySent:
		return c.handleAlreadySent(f)
	case FrameRelease:
		c.handleRelease(f)
		return nil
	default:
		return daqerr.New(daqerr.PacketStreaming, "streaming.Client", "unknown frame type %d", f.Type)
	}
}

func (c *Client) handleEvent(f Frame) error {
	var env eventDescriptorEnvelope
	if err := json.Unmarshal(f.EventPayload, &env); err != nil {
		return daqerr.Wrap(daqerr.InvalidParameter, "streaming.Client", err)
	}

	c.mu.Lock()
	if env.Type == "DataDescriptorChanged" {
		c.descriptors[f.SignalID] = env.Descriptor
	}
	sink := c.sinks[f.SignalID]
	c.mu.Unlock()

	if sink != nil {
		pkt := signal.NewEventPacket(env.Descriptor)
		return sink.SendPacketAndStealRef(pkt)
	}
	return nil
}

func (c *Client) handleData(f Frame) error {
	c.mu.Lock()
	descriptor, ok := c.descriptors[f.SignalID]
	c.mu.Unlock()
	if !ok {
		return daqerr.New(daqerr.PacketStreaming, "streaming.Client", "data frame for signal %d before any descriptor", f.SignalID)
	}

	pkt := signal.NewDataPacket(f.DataPayload, int(f.SampleCount))
	pkt.Descriptor = descriptor

	if f.DomainPacketID >= 0 {
		c.mu.Lock()
		if domainPkt, ok := c.owned[f.DomainPacketID]; ok {
			_ = domainPkt // attach is a caller-level concern; tracked for release bookkeeping only
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	if f.Flags&FlagCanRelease == 0 {
		c.owned[f.PacketID] = pkt
	}
	sink := c.sinks[f.SignalID]
	c.mu.Unlock()

	if sink == nil {
		return nil
	}
	return sink.SendPacketAndStealRef(pkt)
}

func (c *Client) handleAlreadySent(f Frame) error {
	c.mu.Lock()
	pkt, ok := c.owned[f.PacketID]
	sink := c.sinks[f.SignalID]
	if ok && f.Flags&FlagCanRelease != 0 {
		delete(c.owned, f.PacketID)
	}
	c.mu.Unlock()

	if !ok {
		return daqerr.New(daqerr.PacketStreaming, "streaming.Client", "alreadySent for untracked packet %d", f.PacketID)
	}
	if sink == nil {
		return nil
	}
	pkt.AddRef()
	return sink.SendPacketAndStealRef(pkt)
}

func (c *Client) handleRelease(f Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range f.ReleaseIDs {
		delete(c.owned, id)
	}
}
