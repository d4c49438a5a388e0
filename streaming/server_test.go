package streaming

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendaq/daqcore/signal"
)

func mustDrain(t *testing.T, s *Server) []Frame {
	t.Helper()
	var out []Frame
	for {
		buf, ok := s.GetNextPacketBuffer()
		if !ok {
			break
		}
		f, err := Decode(buf)
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

func TestServerRequiresDescriptorBeforeDataPacket(t *testing.T) {
	assert := require.New(t)

	s := NewServer(4096, 64)
	p := signal.NewDataPacket([]byte{1, 2, 3, 4}, 1)

	err := s.AddDaqPacket(1, p, 1, 0, false)
	assert.Error(err)
}

func TestServerEventPacketTracksDescriptorAndEnqueuesEventFrame(t *testing.T) {
	assert := require.New(t)

	s := NewServer(4096, 64)
	desc := &signal.DataDescriptor{Name: "Val", SampleType: signal.SampleTypeFloat64}
	assert.NoError(s.AddDaqPacket(1, signal.NewEventPacket(desc), 0, 0, false))

	frames := mustDrain(t, s)
	assert.Len(frames, 1)
	assert.Equal(FrameEvent, frames[0].Type)
}

func TestServerDedupsRepeatedPacketID(t *testing.T) {
	assert := require.New(t)

	s := NewServer(4096, 64)
	desc := &signal.DataDescriptor{Name: "Val", SampleType: signal.SampleTypeFloat64}
	assert.NoError(s.AddDaqPacket(1, signal.NewEventPacket(desc), 0, 0, false))

	data := signal.NewDataPacket([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 1)
	assert.NoError(s.AddDaqPacket(1, data, 100, 0, false))

	dup := signal.NewDataPacket([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 1)
	assert.NoError(s.AddDaqPacket(1, dup, 100, 0, false))

	frames := mustDrain(t, s)
	assert.Len(frames, 3)
	assert.Equal(FrameEvent, frames[0].Type)
	assert.Equal(FrameData, frames[1].Type)
	assert.Equal(FrameAlreadySent, frames[2].Type)
	assert.EqualValues(100, frames[2].PacketID)
}

func TestServerGroupsSmallPayloadsIntoTheSameCacheableGroup(t *testing.T) {
	assert := require.New(t)

	s := NewServer(16, 64)
	desc := &signal.DataDescriptor{Name: "Val", SampleType: signal.SampleTypeFloat64}
	assert.NoError(s.AddDaqPacket(1, signal.NewEventPacket(desc), 0, 0, false))

	small1 := signal.NewDataPacket([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 1)
	assert.NoError(s.AddDaqPacket(1, small1, 1, 0, false))
	small2 := signal.NewDataPacket([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 1)
	assert.NoError(s.AddDaqPacket(1, small2, 2, 0, false))

	big := signal.NewDataPacket(make([]byte, 64), 1)
	assert.NoError(s.AddDaqPacket(1, big, 3, 0, false))

	small3 := signal.NewDataPacket([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 1)
	assert.NoError(s.AddDaqPacket(1, small3, 4, 0, false))

	// queue: [0]=descriptor event [1]=small1 [2]=small2 [3]=big [4]=small3
	assert.Equal(5, s.QueueLength())

	s.mu.Lock()
	groupOf := func(i int) uint64 { return s.queue[i].CacheableGroupID }
	assert.Equal(groupOf(1), groupOf(2), "consecutive small payloads join the same cacheable group")
	assert.NotZero(groupOf(1))
	assert.Zero(groupOf(3), "a payload over the cacheable max must close the group")
	assert.NotEqual(groupOf(1), groupOf(4), "a new group opens after a large payload breaks the run")
	s.mu.Unlock()
}

func TestServerFlushesReleaseFrameOverThreshold(t *testing.T) {
	assert := require.New(t)

	s := NewServer(4096, 2)
	desc := &signal.DataDescriptor{Name: "Val", SampleType: signal.SampleTypeFloat64}
	assert.NoError(s.AddDaqPacket(1, signal.NewEventPacket(desc), 0, 0, false))

	for i := int64(1); i <= 3; i++ {
		p := signal.NewDataPacket([]byte{1, 2, 3, 4}, 1)
		assert.NoError(s.AddDaqPacket(1, p, i, 0, true))
	}

	frames := mustDrain(t, s)
	var releaseFrames int
	var releasedIDs []int64
	for _, f := range frames {
		if f.Type == FrameRelease {
			releaseFrames++
			releasedIDs = append(releasedIDs, f.ReleaseIDs...)
		}
	}
	assert.Equal(1, releaseFrames, "exceeding releaseThreshold mid-stream must flush exactly one release frame")
	assert.Equal([]int64{1, 2}, releasedIDs)
}

func TestServerFlushesReleaseFrameExactlyAtThreshold(t *testing.T) {
	assert := require.New(t)

	const releaseThreshold = 10
	s := NewServer(4096, releaseThreshold)
	desc := &signal.DataDescriptor{Name: "Val", SampleType: signal.SampleTypeFloat64}
	assert.NoError(s.AddDaqPacket(1, signal.NewEventPacket(desc), 0, 0, false))

	for i := int64(1); i <= releaseThreshold; i++ {
		p := signal.NewDataPacket([]byte{1, 2, 3, 4}, 1)
		assert.NoError(s.AddDaqPacket(1, p, i, 0, true))
	}

	frames := mustDrain(t, s)
	var releaseFrames int
	var releasedIDs []int64
	for _, f := range frames {
		if f.Type == FrameRelease {
			releaseFrames++
			releasedIDs = append(releasedIDs, f.ReleaseIDs...)
		}
	}
	assert.Equal(1, releaseFrames, "reaching releaseThreshold exactly must still flush exactly one release frame")
	assert.Len(releasedIDs, releaseThreshold)
}

func TestFlushForcesReleaseEvenUnderThreshold(t *testing.T) {
	assert := require.New(t)

	s := NewServer(4096, 64)
	desc := &signal.DataDescriptor{Name: "Val", SampleType: signal.SampleTypeFloat64}
	assert.NoError(s.AddDaqPacket(1, signal.NewEventPacket(desc), 0, 0, false))

	p := signal.NewDataPacket([]byte{1, 2, 3, 4}, 1)
	assert.NoError(s.AddDaqPacket(1, p, 1, 0, true))

	s.Flush()

	frames := mustDrain(t, s)
	var sawRelease bool
	for _, f := range frames {
		if f.Type == FrameRelease {
			sawRelease = true
			assert.Equal([]int64{1}, f.ReleaseIDs)
		}
	}
	assert.True(sawRelease)
}
