package streaming

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendaq/daqcore/signal"
)

type fakeSink struct {
	received []*signal.Packet
}

func (s *fakeSink) SendPacketAndStealRef(p *signal.Packet) error {
	s.received = append(s.received, p)
	return nil
}

func TestClientHandleEventStoresDescriptorAndDeliversToSink(t *testing.T) {
	assert := require.New(t)

	c := NewClient()
	sink := &fakeSink{}
	c.Bind(1, sink)

	f := Frame{
		Type:         FrameEvent,
		SignalID:     1,
		EventPayload: eventPayload(t, "DataDescriptorChanged", &signal.DataDescriptor{Name: "Val", SampleType: signal.SampleTypeFloat64}),
	}
	assert.NoError(c.HandleFrame(f))
	assert.Len(sink.received, 1)
	assert.True(sink.received[0].IsEventPacket())
}

func TestClientHandleDataRejectsUnknownDescriptor(t *testing.T) {
	assert := require.New(t)

	c := NewClient()
	f := Frame{Type: FrameData, SignalID: 7, DataPayload: []byte{1, 2, 3, 4}, SampleCount: 1, DomainPacketID: -1}
	assert.Error(c.HandleFrame(f))
}

func TestClientHandleDataDeliversReconstructedPacket(t *testing.T) {
	assert := require.New(t)

	c := NewClient()
	sink := &fakeSink{}
	c.Bind(1, sink)

	desc := &signal.DataDescriptor{Name: "Val", SampleType: signal.SampleTypeFloat64}
	assert.NoError(c.HandleFrame(Frame{
		Type:         FrameEvent,
		SignalID:     1,
		EventPayload: eventPayload(t, "DataDescriptorChanged", desc),
	}))

	assert.NoError(c.HandleFrame(Frame{
		Type:           FrameData,
		SignalID:       1,
		PacketID:       5,
		DomainPacketID: -1,
		SampleCount:    2,
		DataPayload:    []byte{1, 2, 3, 4},
	}))

	assert.Len(sink.received, 1)
	assert.Equal([]byte{1, 2, 3, 4}, sink.received[0].Data)
	assert.Same(desc, sink.received[0].Descriptor)
}

func TestClientHandleAlreadySentRedeliversOwnedPacketAndReleaseFreesIt(t *testing.T) {
	assert := require.New(t)

	c := NewClient()
	sink := &fakeSink{}
	c.Bind(1, sink)

	assert.NoError(c.HandleFrame(Frame{
		Type:         FrameEvent,
		SignalID:     1,
		EventPayload: eventPayload(t, "DataDescriptorChanged", &signal.DataDescriptor{Name: "Val", SampleType: signal.SampleTypeFloat64}),
	}))
	assert.NoError(c.HandleFrame(Frame{
		Type:           FrameData,
		SignalID:       1,
		PacketID:       9,
		DomainPacketID: -1,
		SampleCount:    1,
		DataPayload:    []byte{9, 9, 9, 9},
	}))

	assert.NoError(c.HandleFrame(Frame{Type: FrameAlreadySent, SignalID: 1, PacketID: 9}))
	assert.Len(sink.received, 2)

	// an alreadySent for an untracked packet ID is an error.
	assert.Error(c.HandleFrame(Frame{Type: FrameAlreadySent, SignalID: 1, PacketID: 404}))

	c.handleRelease(Frame{ReleaseIDs: []int64{9}})
	assert.Error(c.HandleFrame(Frame{Type: FrameAlreadySent, SignalID: 1, PacketID: 9}), "a released packet is no longer tracked")
}

func TestClientHandleFrameRejectsUnknownType(t *testing.T) {
	assert := require.New(t)

	c := NewClient()
	assert.Error(c.HandleFrame(Frame{Type: FrameType(99)}))
}

func eventPayload(t *testing.T, kind string, desc *signal.DataDescriptor) []byte {
	t.Helper()
	env := eventDescriptorEnvelope{Type: kind, Descriptor: desc}
	buf, err := json.Marshal(env)
	require.NoError(t, err)
	return buf
}
