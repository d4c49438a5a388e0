package streaming

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEventFrame(t *testing.T) {
	assert := require.New(t)

	f := Frame{
		Type:         FrameEvent,
		SignalID:     7,
		EventPayload: json.RawMessage(`{"DataDescriptor":{"SampleType":1}}`),
	}
	buf := f.Encode()

	got, err := Decode(buf)
	assert.NoError(err)
	assert.Equal(FrameEvent, got.Type)
	assert.EqualValues(7, got.SignalID)
	assert.JSONEq(string(f.EventPayload), string(got.EventPayload))
}

func TestEncodeDecodeDataFrameWithIntOffset(t *testing.T) {
	assert := require.New(t)

	f := Frame{
		Type:           FrameData,
		SignalID:       3,
		PacketID:       100,
		DomainPacketID: 200,
		SampleCount:    4,
		OffsetInt:      42,
		OffsetType:     offsetTypeInt,
		DataPayload:    []byte{1, 2, 3, 4, 5, 6, 7, 8},
		Flags:          FlagCanRelease,
	}
	buf := f.Encode()

	got, err := Decode(buf)
	assert.NoError(err)
	assert.Equal(FrameData, got.Type)
	assert.EqualValues(3, got.SignalID)
	assert.EqualValues(100, got.PacketID)
	assert.EqualValues(200, got.DomainPacketID)
	assert.EqualValues(4, got.SampleCount)
	assert.EqualValues(42, got.OffsetInt)
	assert.Equal(uint8(offsetTypeInt), got.OffsetType)
	assert.Equal(f.DataPayload, got.DataPayload)
	assert.NotZero(got.Flags & FlagCanRelease)
}

func TestEncodeDecodeDataFrameWithFloatOffset(t *testing.T) {
	assert := require.New(t)

	f := Frame{
		Type:        FrameData,
		SignalID:    1,
		SampleCount: 1,
		OffsetFloat: 3.5,
		OffsetType:  offsetTypeFloat,
		DataPayload: []byte{9, 9, 9, 9},
	}
	buf := f.Encode()

	got, err := Decode(buf)
	assert.NoError(err)
	assert.Equal(uint8(offsetTypeFloat), got.OffsetType)
	assert.InDelta(3.5, got.OffsetFloat, 0.0001)
}

func TestEncodeDecodeAlreadySentFrame(t *testing.T) {
	assert := require.New(t)

	f := Frame{Type: FrameAlreadySent, SignalID: 9, PacketID: 11, DomainPacketID: 22}
	buf := f.Encode()

	got, err := Decode(buf)
	assert.NoError(err)
	assert.Equal(FrameAlreadySent, got.Type)
	assert.EqualValues(11, got.PacketID)
	assert.EqualValues(22, got.DomainPacketID)
}

func TestEncodeDecodeReleaseFrame(t *testing.T) {
	assert := require.New(t)

	f := Frame{Type: FrameRelease, ReleaseIDs: []int64{1, 2, 3, 4}}
	buf := f.Encode()

	got, err := Decode(buf)
	assert.NoError(err)
	assert.Equal(FrameRelease, got.Type)
	assert.Equal([]int64{1, 2, 3, 4}, got.ReleaseIDs)
}

func TestDecodeRejectsSizeMismatch(t *testing.T) {
	assert := require.New(t)

	f := Frame{Type: FrameRelease, ReleaseIDs: []int64{1}}
	buf := f.Encode()
	buf = append(buf, 0xFF) // corrupt the declared size vs actual length

	_, err := Decode(buf)
	assert.Error(err)
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	assert := require.New(t)

	_, err := Decode([]byte{1, 2, 3})
	assert.Error(err)
}
