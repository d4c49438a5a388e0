package signal

import (
	"sync"

	"github.com/opendaq/daqcore/component"
	"github.com/opendaq/daqcore/daqerr"
)

// StatusListener is notified the moment an input port transitions between
// zero and one connected signal (design §4.E's onListenedStatusChanged).
type StatusListener func(connected bool)

// InputPort is the consumer side of a Signal/Connection pair. A concrete
// consumer (a function block's input) embeds *InputPort and implements
// OnPacketReceived via its own polling or via Connection.Dequeue directly.
type InputPort struct {
	*component.Component

	mu          sync.Mutex
	connection  *Connection
	onStatus    StatusListener
}

// NewInputPort constructs an input port identified by comp in the
// component tree, optionally notifying onStatus of connect/disconnect
// transitions (design §4.E's onListenedStatusChanged hook).
func NewInputPort(comp *component.Component, onStatus StatusListener) *InputPort {
	return &InputPort{Component: comp, onStatus: onStatus}
}

// Connection returns the currently attached connection, or nil.
func (ip *InputPort) Connection() *Connection {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	return ip.connection
}

func (ip *InputPort) attach(c *Connection) {
	ip.mu.Lock()
	wasConnected := ip.connection != nil
	ip.connection = c
	ip.mu.Unlock()
	if !wasConnected && ip.onStatus != nil {
		ip.onStatus(true)
	}
}

func (ip *InputPort) detach() {
	ip.mu.Lock()
	had := ip.connection != nil
	ip.connection = nil
	ip.mu.Unlock()
	if had && ip.onStatus != nil {
		ip.onStatus(false)
	}
}

// listenerRegistry is embedded by Signal to track which input ports are
// listening, implementing listenerConnected/listenerDisconnected (design
// §4.E): duplicates are rejected, and an initial descriptor-changed event
// fires immediately on connect. Each port's status listener is called on
// that port's own attach/detach; the registry's zero<->one listener
// transition triggers nothing.
type listenerRegistry struct {
	mu      sync.Mutex
	byPort  map[*InputPort]*Connection
}

func newListenerRegistry() listenerRegistry {
	return listenerRegistry{byPort: make(map[*InputPort]*Connection)}
}

// listenerConnected attaches port to a fresh Connection feeding it, unless
// it's already connected (daqerr.DuplicateItem).
func (lr *listenerRegistry) listenerConnected(port *InputPort) (*Connection, error) {
	lr.mu.Lock()
	if _, exists := lr.byPort[port]; exists {
		lr.mu.Unlock()
		return nil, daqerr.New(daqerr.DuplicateItem, "signal.Signal", "input port already connected")
	}
	conn := NewConnection(port)
	wasEmpty := len(lr.byPort) == 0
	lr.byPort[port] = conn
	lr.mu.Unlock()

	port.attach(conn)
	_ = wasEmpty
	return conn, nil
}

// listenerDisconnected is listenerConnected's inverse.
func (lr *listenerRegistry) listenerDisconnected(port *InputPort) error {
	lr.mu.Lock()
	conn, exists := lr.byPort[port]
	if !exists {
		lr.mu.Unlock()
		return daqerr.New(daqerr.NotFound, "signal.Signal", "input port not connected")
	}
	delete(lr.byPort, port)
	lr.mu.Unlock()

	conn.Close()
	port.detach()
	return nil
}

func (lr *listenerRegistry) connections() []*Connection {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	out := make([]*Connection, 0, len(lr.byPort))
	for _, c := range lr.byPort {
		out = append(out, c)
	}
	return out
}

func (lr *listenerRegistry) count() int {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return len(lr.byPort)
}
