package streaming

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opendaq/daqcore/daqlog"
)

var log = daqlog.GetOrAddComponent("streaming")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Link pumps a Server's frame queue out over one websocket connection, the
// transport original_source's streaming_client.cpp pairs with its
// packet_streaming_server. It only writes; it does not read inbound
// messages.
type Link struct {
	conn   *websocket.Conn
	server *Server

	writeMu sync.Mutex
	done    chan struct{}
}

// NewLink wraps an already-established websocket connection around server.
func NewLink(conn *websocket.Conn, server *Server) *Link {
	return &Link{conn: conn, server: server, done: make(chan struct{})}
}

// ServeHTTP upgrades an incoming HTTP request to a websocket and runs the
// link until the connection closes, suitable for mounting at a streaming
// endpoint via net/http.
func ServeHTTP(w http.ResponseWriter, r *http.Request, server *Server) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	link := NewLink(conn, server)
	link.Run()
	return nil
}

// Run drains the server's queue and writes each frame as a binary
// websocket message until Close is called or the connection errors.
// Callers typically run this in its own goroutine.
func (l *Link) Run() {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	defer l.conn.Close()

	for {
		select {
		case <-l.done:
			l.server.Flush()
			l.drainAndWrite()
			return
		case <-ticker.C:
			l.drainAndWrite()
		}
	}
}

func (l *Link) drainAndWrite() {
	for {
		buf, ok := l.server.GetNextPacketBuffer()
		if !ok {
			return
		}
		l.writeMu.Lock()
		err := l.conn.WriteMessage(websocket.BinaryMessage, buf)
		l.writeMu.Unlock()
		if err != nil {
			log.Warning("streaming link write failed", "error", err)
			return
		}
	}
}

// Close flushes any pending release frame and tears the link down.
func (l *Link) Close() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

// RunClient reads binary frames off conn and hands each to c until the
// connection closes.
func RunClient(conn *websocket.Conn, c *Client) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		if err := c.HandleBuffer(data); err != nil {
			log.Warning("dropping malformed streaming frame", "error", err)
		}
	}
}

// Dial connects to endpoint (a ws:// or wss:// URL) and returns the
// resulting connection for use with RunClient.
func Dial(endpoint string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	return conn, err
}
