package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestConnection() *Connection {
	port := newTestInputPort("Port", nil)
	return NewConnection(port)
}

func TestReadBlockAssemblesAcrossMultiplePackets(t *testing.T) {
	assert := require.New(t)

	conn := newTestConnection()
	r := NewBlockReader(conn, 4, 2) // 4 samples * 2 bytes = 8 bytes per block

	conn.Enqueue(NewDataPacket([]byte{1, 2, 3, 4}, 2))
	conn.Enqueue(NewDataPacket([]byte{5, 6, 7, 8}, 2))

	block, err := r.ReadBlock(time.Second)
	assert.NoError(err)
	assert.Equal([]byte{1, 2, 3, 4, 5, 6, 7, 8}, block)
}

func TestReadBlockBuffersPartialRemainderAcrossCalls(t *testing.T) {
	assert := require.New(t)

	conn := newTestConnection()
	r := NewBlockReader(conn, 2, 2) // 4 bytes per block

	conn.Enqueue(NewDataPacket([]byte{1, 2, 3, 4, 5, 6}, 3))

	first, err := r.ReadBlock(time.Second)
	assert.NoError(err)
	assert.Equal([]byte{1, 2, 3, 4}, first)

	conn.Enqueue(NewDataPacket([]byte{7, 8}, 1))
	second, err := r.ReadBlock(time.Second)
	assert.NoError(err)
	assert.Equal([]byte{5, 6, 7, 8}, second)
}

func TestReadBlockSkipsEventPackets(t *testing.T) {
	assert := require.New(t)

	conn := newTestConnection()
	r := NewBlockReader(conn, 1, 4)

	conn.Enqueue(NewEventPacket(&DataDescriptor{Name: "Val", SampleType: SampleTypeFloat64}))
	conn.Enqueue(NewDataPacket([]byte{1, 2, 3, 4}, 1))

	block, err := r.ReadBlock(time.Second)
	assert.NoError(err)
	assert.Equal([]byte{1, 2, 3, 4}, block)
}

func TestReadBlockTimesOutWhenStarved(t *testing.T) {
	assert := require.New(t)

	conn := newTestConnection()
	r := NewBlockReader(conn, 4, 4)

	_, err := r.ReadBlock(20 * time.Millisecond)
	assert.Error(err)
}

func TestReadBlockReturnsErrorWhenConnectionClosed(t *testing.T) {
	assert := require.New(t)

	conn := newTestConnection()
	r := NewBlockReader(conn, 4, 4)
	conn.Close()

	_, err := r.ReadBlock(time.Second)
	assert.Error(err)
}

func TestAvailableBlocksReflectsBufferedPending(t *testing.T) {
	assert := require.New(t)

	conn := newTestConnection()
	r := NewBlockReader(conn, 2, 2)
	assert.Equal(0, r.AvailableBlocks())

	conn.Enqueue(NewDataPacket([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 4))
	_, err := r.ReadBlock(time.Second)
	assert.NoError(err)
	assert.Equal(0, r.AvailableBlocks(), "a full read drains pending down to zero")
}
