// Package streaming implements the packet-streaming wire protocol and its
// server/client endpoints (design §4.H and §6), transported over
// github.com/gorilla/websocket, grounded on
// original_source/shared/libraries/packet_streaming/src/packet_streaming_server.cpp
// and shared/libraries/websocket_streaming/src/streaming_client.cpp.
package streaming

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/opendaq/daqcore/daqerr"
)

// FrameType is the closed set of wire frame kinds (design §6).
type FrameType uint8

const (
	FrameEvent FrameType = iota
	FrameData
	FrameAlreadySent
	FrameRelease
)

// Flag bits packed into the generic header's flags byte.
const (
	FlagCanRelease uint8 = 1 << 0
	// OffsetType occupies bits 1-2: none=0, int=1, float=2.
	offsetTypeMask  uint8 = 0b110
	offsetTypeShift       = 1
)

const (
	offsetTypeNone uint8 = iota
	offsetTypeInt
	offsetTypeFloat
)

// wireVersion is the only framing version this implementation emits or
// accepts.
const wireVersion uint8 = 1

// genericHeaderSize is the fixed 16-byte common header every frame starts
// with: size(4) type(1) version(1) flags(1) signalId(4) payloadSize(4)
// plus one pad byte.
const genericHeaderSize = 16

type genericHeader struct {
	Size        uint32
	Type        FrameType
	Version     uint8
	Flags       uint8
	_pad        uint8
	SignalID    uint32
	PayloadSize uint32
}

func (h genericHeader) marshal() []byte {
	buf := make([]byte, genericHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Size)
	buf[4] = byte(h.Type)
	buf[5] = h.Version
	buf[6] = h.Flags
	buf[7] = 0
	binary.LittleEndian.PutUint32(buf[8:12], h.SignalID)
	binary.LittleEndian.PutUint32(buf[12:16], h.PayloadSize)
	return buf
}

func unmarshalGenericHeader(buf []byte) (genericHeader, error) {
	if len(buf) < genericHeaderSize {
		return genericHeader{}, daqerr.New(daqerr.PacketStreaming, "streaming", "short generic header: %d bytes", len(buf))
	}
	return genericHeader{
		Size:        binary.LittleEndian.Uint32(buf[0:4]),
		Type:        FrameType(buf[4]),
		Version:     buf[5],
		Flags:       buf[6],
		SignalID:    binary.LittleEndian.Uint32(buf[8:12]),
		PayloadSize: binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// dataHeaderExtra is the data-frame extension to the generic header:
// packetId:i64 | domainPacketId:i64 | sampleCount:i64 | offset:8B.
const dataHeaderExtraSize = 32

type dataHeaderExtra struct {
	PacketID       int64
	DomainPacketID int64
	SampleCount    int64
	OffsetInt      int64
	OffsetFloat    float64
}

func (e dataHeaderExtra) marshal(offsetType uint8) []byte {
	buf := make([]byte, dataHeaderExtraSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(e.PacketID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(e.DomainPacketID))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(e.SampleCount))
	switch offsetType {
	case offsetTypeInt:
		binary.LittleEndian.PutUint64(buf[24:32], uint64(e.OffsetInt))
	case offsetTypeFloat:
		binary.LittleEndian.PutUint64(buf[24:32], math.Float64bits(e.OffsetFloat))
	}
	return buf
}

func unmarshalDataHeaderExtra(buf []byte, offsetType uint8) (dataHeaderExtra, error) {
	if len(buf) < dataHeaderExtraSize {
		return dataHeaderExtra{}, daqerr.New(daqerr.PacketStreaming, "streaming", "short data header extension")
	}
	e := dataHeaderExtra{
		PacketID:       int64(binary.LittleEndian.Uint64(buf[0:8])),
		DomainPacketID: int64(binary.LittleEndian.Uint64(buf[8:16])),
		SampleCount:    int64(binary.LittleEndian.Uint64(buf[16:24])),
	}
	switch offsetType {
	case offsetTypeInt:
		e.OffsetInt = int64(binary.LittleEndian.Uint64(buf[24:32]))
	case offsetTypeFloat:
		e.OffsetFloat = math.Float64frombits(binary.LittleEndian.Uint64(buf[24:32]))
	}
	return e, nil
}

// alreadySentExtraSize is the alreadySent-frame extension:
// packetId:i64 | domainPacketId:i64.
const alreadySentExtraSize = 16

func marshalAlreadySentExtra(packetID, domainPacketID int64) []byte {
	buf := make([]byte, alreadySentExtraSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(packetID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(domainPacketID))
	return buf
}

func unmarshalAlreadySentExtra(buf []byte) (packetID, domainPacketID int64, err error) {
	if len(buf) < alreadySentExtraSize {
		return 0, 0, daqerr.New(daqerr.PacketStreaming, "streaming", "short alreadySent header extension")
	}
	return int64(binary.LittleEndian.Uint64(buf[0:8])), int64(binary.LittleEndian.Uint64(buf[8:16])), nil
}

// marshalReleaseIDs packs ids as a release frame payload: payloadSize/8
// packed i64s.
func marshalReleaseIDs(ids []int64) []byte {
	buf := make([]byte, 8*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], uint64(id))
	}
	return buf
}

func unmarshalReleaseIDs(payload []byte) []int64 {
	n := len(payload) / 8
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(binary.LittleEndian.Uint64(payload[i*8 : i*8+8]))
	}
	return ids
}

// Frame is a fully decoded wire frame as the server's output queue and the
// client's input stream exchange them.
type Frame struct {
	Type             FrameType
	SignalID         uint32
	Flags            uint8
	PacketID         int64
	DomainPacketID   int64
	SampleCount      int64
	OffsetInt        int64
	OffsetFloat      float64
	OffsetType       uint8
	EventPayload     json.RawMessage
	DataPayload      []byte
	ReleaseIDs       []int64
	CacheableGroupID uint64
}

// Encode serializes f into a single wire buffer (header + payload), per
// design §6's byte layout.
func (f Frame) Encode() []byte {
	var payload []byte
	var extra []byte
	switch f.Type {
	case FrameEvent:
		payload = append(append([]byte{}, f.EventPayload...), 0)
	case FrameData:
		extra = dataHeaderExtra{
			PacketID:       f.PacketID,
			DomainPacketID: f.DomainPacketID,
			SampleCount:    f.SampleCount,
			OffsetInt:      f.OffsetInt,
			OffsetFloat:    f.OffsetFloat,
		}.marshal(f.OffsetType)
		payload = f.DataPayload
	case FrameAlreadySent:
		extra = marshalAlreadySentExtra(f.PacketID, f.DomainPacketID)
	case FrameRelease:
		payload = marshalReleaseIDs(f.ReleaseIDs)
	}

	flags := f.Flags
	if f.Type == FrameData {
		flags = (flags &^ offsetTypeMask) | (f.OffsetType << offsetTypeShift)
	}

	total := genericHeaderSize + len(extra) + len(payload)
	h := genericHeader{
		Size:        uint32(total),
		Type:        f.Type,
		Version:     wireVersion,
		Flags:       flags,
		SignalID:    f.SignalID,
		PayloadSize: uint32(len(payload)),
	}
	out := make([]byte, 0, total)
	out = append(out, h.marshal()...)
	out = append(out, extra...)
	out = append(out, payload...)
	return out
}

// Decode parses a single wire buffer previously produced by Encode.
func Decode(buf []byte) (Frame, error) {
	h, err := unmarshalGenericHeader(buf)
	if err != nil {
		return Frame{}, err
	}
	if int(h.Size) != len(buf) {
		return Frame{}, daqerr.New(daqerr.PacketStreaming, "streaming", "frame size mismatch: header says %d, got %d", h.Size, len(buf))
	}

	f := Frame{Type: h.Type, SignalID: h.SignalID, Flags: h.Flags}
	rest := buf[genericHeaderSize:]

	switch h.Type {
	case FrameEvent:
		end := bytes.IndexByte(rest, 0)
		if end < 0 {
			end = len(rest)
		}
		f.EventPayload = json.RawMessage(rest[:end])
	case FrameData:
		if len(rest) < dataHeaderExtraSize {
			return Frame{}, daqerr.New(daqerr.PacketStreaming, "streaming", "truncated data frame")
		}
		offsetType := (h.Flags & offsetTypeMask) >> offsetTypeShift
		extra, err := unmarshalDataHeaderExtra(rest[:dataHeaderExtraSize], offsetType)
		if err != nil {
			return Frame{}, err
		}
		f.PacketID = extra.PacketID
		f.DomainPacketID = extra.DomainPacketID
		f.SampleCount = extra.SampleCount
		f.OffsetInt = extra.OffsetInt
		f.OffsetFloat = extra.OffsetFloat
		f.OffsetType = offsetType
		f.DataPayload = rest[dataHeaderExtraSize:]
	case FrameAlreadySent:
		pid, dpid, err := unmarshalAlreadySentExtra(rest)
		if err != nil {
			return Frame{}, err
		}
		f.PacketID = pid
		f.DomainPacketID = dpid
	case FrameRelease:
		f.ReleaseIDs = unmarshalReleaseIDs(rest)
	default:
		return Frame{}, daqerr.New(daqerr.PacketStreaming, "streaming", "unknown frame type %d", h.Type)
	}
	return f, nil
}
