package signal

import "sync"

// Connection is a FIFO packet queue between a Signal and an InputPort.
// Enqueue never blocks the producer: it appends under a private lock and
// wakes any Dequeue waiter. A Connection whose InputPort lives on a remote
// mirror is represented by remoteConnection instead and is never enqueued
// locally (design §4.E: "remote connections are stored in a separate list
// but are not enqueued locally").
type Connection struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*Packet
	port   *InputPort
	closed bool
}

// NewConnection links a signal's fan-out to port.
func NewConnection(port *InputPort) *Connection {
	c := &Connection{port: port}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Port returns the input port this connection feeds.
func (c *Connection) Port() *InputPort {
	return c.port
}

// Enqueue appends p to the queue and wakes one waiting Dequeue call. The
// last enqueue in a fan-out round may, per design §4.E, be the one that
// actually moves the packet rather than copying it — Enqueue takes
// ownership of the reference the caller passes in.
func (c *Connection) Enqueue(p *Packet) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		p.Release()
		return
	}
	c.queue = append(c.queue, p)
	c.mu.Unlock()
	c.cond.Signal()
}

// Dequeue removes and returns the oldest queued packet, blocking until one
// is available or the connection is closed (in which case ok is false).
func (c *Connection) Dequeue() (p *Packet, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.queue) == 0 && !c.closed {
		c.cond.Wait()
	}
	if len(c.queue) == 0 {
		return nil, false
	}
	p = c.queue[0]
	c.queue = c.queue[1:]
	return p, true
}

// TryDequeue is Dequeue's non-blocking variant: it returns whatever is
// currently queued without waiting on empty input.
func (c *Connection) TryDequeue() (p *Packet, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil, false
	}
	p = c.queue[0]
	c.queue = c.queue[1:]
	return p, true
}

// Len reports the number of packets currently queued.
func (c *Connection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Close unblocks any pending Dequeue and causes future Enqueue calls to
// drop their packet.
func (c *Connection) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// remoteConnection records that a remote mirror's input port is attached
// to this signal without actually queueing packets for it locally (design
// §4.E).
type remoteConnection struct {
	remoteGlobalID string
}
