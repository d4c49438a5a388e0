package signal

import (
	"time"

	"github.com/opendaq/daqcore/daqerr"
)

// BlockReader accumulates whole blocks of blockSize samples drained from a
// Connection's packet queue, restored from original_source's
// block_reader_impl.h: unlike a plain sample-by-sample reader, a
// BlockReader only ever hands back complete blocks, buffering any partial
// remainder across ReadBlock calls the way BlockReadInfo's
// dataPacketsQueue does.
type BlockReader struct {
	conn      *Connection
	blockSize int
	sampleSz  int

	pending    []byte
	partial    *Packet
	partialPos int
}

// NewBlockReader attaches a BlockReader to conn, reading blockSize-sample
// blocks where each sample is sampleSize bytes wide.
func NewBlockReader(conn *Connection, blockSize, sampleSize int) *BlockReader {
	return &BlockReader{conn: conn, blockSize: blockSize, sampleSz: sampleSize}
}

// ReadBlock blocks until a full block of samples is available or timeout
// elapses, returning the concatenated raw bytes of exactly blockSize
// samples. A zero timeout means wait forever.
func (r *BlockReader) ReadBlock(timeout time.Duration) ([]byte, error) {
	needed := r.blockSize * r.sampleSz
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for len(r.pending) < needed {
		if r.partial != nil {
			r.drainPartial(needed)
			if len(r.pending) >= needed {
				break
			}
		}

		var (
			p  *Packet
			ok bool
		)
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return nil, daqerr.New(daqerr.GeneralError, "signal.BlockReader", "timed out waiting for a full block")
			}
			p, ok = r.dequeueWithTimeout(remaining)
		} else {
			p, ok = r.conn.Dequeue()
		}
		if !ok {
			return nil, daqerr.New(daqerr.InvalidState, "signal.BlockReader", "connection closed before a full block arrived")
		}
		if p.IsEventPacket() {
			continue
		}
		r.partial = p
		r.partialPos = 0
		r.drainPartial(needed)
	}

	block := r.pending[:needed]
	r.pending = r.pending[needed:]
	return block, nil
}

func (r *BlockReader) drainPartial(needed int) {
	if r.partial == nil {
		return
	}
	remainInPacket := r.partial.Data[r.partialPos:]
	take := needed - len(r.pending)
	if take > len(remainInPacket) {
		take = len(remainInPacket)
	}
	r.pending = append(r.pending, remainInPacket[:take]...)
	r.partialPos += take
	if r.partialPos >= len(r.partial.Data) {
		r.partial.Release()
		r.partial = nil
		r.partialPos = 0
	}
}

func (r *BlockReader) dequeueWithTimeout(d time.Duration) (*Packet, bool) {
	type result struct {
		p  *Packet
		ok bool
	}
	ch := make(chan result, 1)
	go func() {
		p, ok := r.conn.Dequeue()
		ch <- result{p, ok}
	}()
	select {
	case res := <-ch:
		return res.p, res.ok
	case <-time.After(d):
		return nil, false
	}
}

// AvailableBlocks reports how many full blocks are currently buffered in
// r.pending, without consuming anything from the underlying connection —
// a conservative lower bound, mirroring getAvailableCount's role in the
// original without that method's ability to peek the packet queue
// in place.
func (r *BlockReader) AvailableBlocks() int {
	needed := r.blockSize * r.sampleSz
	if needed == 0 {
		return 0
	}
	return len(r.pending) / needed
}
