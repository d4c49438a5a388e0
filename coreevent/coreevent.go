// Package coreevent implements the core-event bus (design §4.G): a typed
// event with numeric ID and string name, dispatched to subscribers
// registered on a component and, when the bus is wired to a process-wide
// transport, published out over ZeroMQ PUB/SUB the way ap_common/broker
// fans AP daemon events out to ap.brokerd subscribers.
package coreevent

import (
	"encoding/json"
	"fmt"
	"sync"

	zmq "github.com/pebbe/zmq4"

	"github.com/opendaq/daqcore/daqlog"
)

var log = daqlog.GetOrAddComponent("coreevent")

// ID identifies one of the closed set of core-event kinds.
type ID int

// The full event set named by design §4.G.
const (
	PropertyValueChanged ID = iota
	PropertyObjectUpdateEnd
	PropertyAdded
	PropertyRemoved
	ComponentAdded
	ComponentRemoved
	SignalConnected
	SignalDisconnected
	DataDescriptorChanged
	ComponentUpdateEnd
	AttributeChanged
	TagsChanged
	StatusChanged
	TypeAdded
	TypeRemoved
	DeviceDomainChanged
)

var names = map[ID]string{
	PropertyValueChanged:    "PropertyValueChanged",
	PropertyObjectUpdateEnd: "PropertyObjectUpdateEnd",
	PropertyAdded:           "PropertyAdded",
	PropertyRemoved:         "PropertyRemoved",
	ComponentAdded:          "ComponentAdded",
	ComponentRemoved:        "ComponentRemoved",
	SignalConnected:         "SignalConnected",
	SignalDisconnected:      "SignalDisconnected",
	DataDescriptorChanged:   "DataDescriptorChanged",
	ComponentUpdateEnd:      "ComponentUpdateEnd",
	AttributeChanged:        "AttributeChanged",
	TagsChanged:             "TagsChanged",
	StatusChanged:           "StatusChanged",
	TypeAdded:               "TypeAdded",
	TypeRemoved:             "TypeRemoved",
	DeviceDomainChanged:     "DeviceDomainChanged",
}

func (id ID) String() string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("ID(%d)", int(id))
}

// Args carries an event's parameters. Owner points at the object that
// actually fired the event when it differs from the dispatching component
// (a nested property object, a child signal); Path carries the dotted
// path from the owning component down to the value that changed.
type Args struct {
	ID     ID
	Owner  string                 `json:"Owner,omitempty"`
	Path   string                 `json:"Path,omitempty"`
	Params map[string]interface{} `json:"Params,omitempty"`
}

// Subscriber receives core events fired on a component. Panics raised by a
// Subscriber are caught, logged, and swallowed (design §4.G) — event
// delivery never propagates a subscriber's failure back to the emitter.
type Subscriber func(Args)

// Emitter is embedded by component.Component. It holds the subscriber list
// and the enable/disable flag; Trigger is the sole dispatch path
// and is always called with the emitter's own mutex unheld to avoid
// reentrant-lock deadlocks against a subscriber that turns around and
// reads the firing component's properties.
type Emitter struct {
	mu          sync.Mutex
	subscribers []Subscriber
	enabled     bool
	globalID    string
	bus         *Bus
}

// NewEmitter constructs an enabled Emitter for the component identified by
// globalID (design §4.C's globalId), optionally wired to a process-wide
// Bus for cross-process fan-out. bus may be nil, in which case events stay
// local to this process's subscribers.
func NewEmitter(globalID string, bus *Bus) *Emitter {
	return &Emitter{enabled: true, globalID: globalID, bus: bus}
}

// Subscribe registers fn to receive every event this emitter fires while
// enabled.
func (e *Emitter) Subscribe(fn Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

// SetEnabled toggles event delivery. Component.EnableCoreEventTrigger and
// DisableCoreEventTrigger apply this recursively to a subtree; Emitter
// itself only tracks its own flag.
func (e *Emitter) SetEnabled(v bool) {
	e.mu.Lock()
	e.enabled = v
	e.mu.Unlock()
}

// Enabled reports the current enable state.
func (e *Emitter) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Trigger fires ev to every local subscriber and, if a Bus is attached,
// publishes it for remote subscribers. Subscriber panics are caught,
// logged, and otherwise ignored.
func (e *Emitter) Trigger(ev Args) {
	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return
	}
	subs := make([]Subscriber, len(e.subscribers))
	copy(subs, e.subscribers)
	bus := e.bus
	globalID := e.globalID
	e.mu.Unlock()

	for _, s := range subs {
		invoke(s, ev)
	}
	if bus != nil {
		if err := bus.Publish(globalID, ev); err != nil {
			log.Warning("failed to publish core event", "event", ev.ID, "error", err)
		}
	}
}

func invoke(s Subscriber, ev Args) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("core-event subscriber panicked", "event", ev.ID, "panic", r)
		}
	}()
	s(ev)
}

// wireEvent is Args's JSON-over-the-wire shape, with the globalId of the
// publishing component attached so a remote subscriber can route without
// decoding the topic string.
type wireEvent struct {
	GlobalID string                 `json:"GlobalId"`
	ID       ID                     `json:"Id"`
	Name     string                 `json:"Name"`
	Owner    string                 `json:"Owner,omitempty"`
	Path     string                 `json:"Path,omitempty"`
	Params   map[string]interface{} `json:"Params,omitempty"`
}

// Bus fans core events out over a ZeroMQ PUB/SUB pair, grounded on
// ap_common/broker.Broker: one process publishes on a PUB socket bound to
// an endpoint, and any number of configclient.Mirror instances subscribe
// to receive the same stream (design §4.I).
type Bus struct {
	name string

	pubMu sync.Mutex
	pub   *zmq.Socket

	sub      *zmq.Socket
	handlers map[string]func(string, Args)
	handlerMu sync.Mutex

	closeOnce sync.Once
}

// NewPublisher creates a Bus bound to endpoint (e.g. "tcp://*:5560") that
// only publishes; a component tree that never mirrors remotely can skip
// wiring a Bus at all.
func NewPublisher(name, endpoint string) (*Bus, error) {
	s, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, err
	}
	if err := s.Bind(endpoint); err != nil {
		s.Close()
		return nil, err
	}
	return &Bus{name: name, pub: s}, nil
}

// NewSubscriber creates a Bus connected to endpoint for receive-only use by
// configclient.Mirror; call Handle to register per-globalId callbacks and
// Listen to start the receive loop.
func NewSubscriber(name, endpoint string) (*Bus, error) {
	s, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(endpoint); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.SetSubscribe(""); err != nil {
		s.Close()
		return nil, err
	}
	return &Bus{name: name, sub: s, handlers: make(map[string]func(string, Args))}, nil
}

// Publish marshals ev as JSON and sends it as a two-frame ZMQ message:
// topic (the owning component's globalId) then payload, the same
// topic-then-payload framing ap_common/broker uses for its own events.
func (b *Bus) Publish(globalID string, ev Args) error {
	payload := wireEvent{
		GlobalID: globalID,
		ID:       ev.ID,
		Name:     ev.ID.String(),
		Owner:    ev.Owner,
		Path:     ev.Path,
		Params:   ev.Params,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	_, err = b.pub.SendMessage(globalID, data)
	return err
}

// Handle registers fn to be called for every event whose globalId equals
// topic, with the publishing component's globalId passed alongside the
// decoded Args. A handler registered under the empty string receives every
// event whose topic has no handler of its own.
func (b *Bus) Handle(topic string, fn func(globalID string, ev Args)) {
	b.handlerMu.Lock()
	defer b.handlerMu.Unlock()
	b.handlers[topic] = fn
}

// Listen runs the subscriber's receive loop until the socket is closed. It
// is meant to run in its own goroutine, the same way ap_common/broker runs
// eventListener.
func (b *Bus) Listen() {
	for {
		msg, err := b.sub.RecvMessageBytes(0)
		if err != nil {
			log.Info("core-event bus listener stopping", "name", b.name, "error", err)
			return
		}
		if len(msg) != 2 {
			continue
		}
		topic := string(msg[0])

		var ev wireEvent
		if err := json.Unmarshal(msg[1], &ev); err != nil {
			log.Warning("dropping malformed core event", "topic", topic, "error", err)
			continue
		}

		b.handlerMu.Lock()
		fn, ok := b.handlers[topic]
		if !ok {
			fn, ok = b.handlers[""]
		}
		b.handlerMu.Unlock()
		if ok && fn != nil {
			fn(ev.GlobalID, Args{ID: ev.ID, Owner: ev.Owner, Path: ev.Path, Params: ev.Params})
		}
	}
}

// Close releases the bus's sockets.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		if b.pub != nil {
			b.pub.Close()
		}
		if b.sub != nil {
			b.sub.Close()
		}
	})
}
