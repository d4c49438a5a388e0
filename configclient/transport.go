package configclient

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	proto "github.com/golang/protobuf/proto"
	jwt "github.com/dgrijalva/jwt-go"
	zmq "github.com/pebbe/zmq4"

	"github.com/opendaq/daqcore/daqerr"
	"github.com/opendaq/daqcore/daqlog"
)

var log = daqlog.GetOrAddComponent("configclient")

const (
	sendTimeout = 10 * time.Second
	recvTimeout = 10 * time.Second
	retryLimit  = 3
)

// sessionClaims is the JWT payload exchanged once at connect time, the
// mirror equivalent of the config server granting a session token before
// any ConfigInvoke is accepted.
type sessionClaims struct {
	jwt.StandardClaims
	Sender string `json:"sender"`
}

// Transport is a REQ-socket RPC client to one remote config server,
// grounded on ap_common/apcfg.APConfig: a single ZMQ REQ socket guarded by
// a mutex, closed and reopened on any send/receive error rather than
// trusted to recover on its own.
type Transport struct {
	mu     sync.Mutex
	socket *zmq.Socket
	url    string
	sender string
	token  string
}

// Dial connects to a remote config server at url (a tcp:// or ipc://
// endpoint) and performs the JWT session handshake, returning a ready
// Transport.
func Dial(url string, signingKey []byte) (*Transport, error) {
	t := &Transport{
		url:    url,
		sender: fmt.Sprintf("configclient(%d)", os.Getpid()),
	}
	if err := t.reconnect(); err != nil {
		return nil, err
	}
	if err := t.handshake(signingKey); err != nil {
		t.disconnect()
		return nil, err
	}
	return t, nil
}

func (t *Transport) reconnect() error {
	t.disconnect()

	socket, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return daqerr.Wrap(daqerr.GeneralError, "configclient.Transport", err)
	}
	if err := socket.SetSndtimeo(sendTimeout); err != nil {
		log.Warning("failed to set send timeout", "error", err)
	}
	if err := socket.SetRcvtimeo(recvTimeout); err != nil {
		log.Warning("failed to set receive timeout", "error", err)
	}
	if err := socket.Connect(t.url); err != nil {
		return daqerr.New(daqerr.InvalidState, "configclient.Transport", "failed to connect to %s: %v", t.url, err)
	}
	t.socket = socket
	return nil
}

func (t *Transport) disconnect() {
	if t.socket != nil {
		t.socket.Close()
		t.socket = nil
	}
}

// handshake signs a session token (its claims carry no expiry) and round-trips a ping
// invoke carrying it, establishing t.token for subsequent calls.
func (t *Transport) handshake(signingKey []byte) error {
	claims := sessionClaims{
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  0,
			ExpiresAt: 0,
		},
		Sender: t.sender,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(signingKey)
	if err != nil {
		return daqerr.New(daqerr.Auth, "configclient.Transport", "failed to sign session token: %v", err)
	}
	t.token = signed

	_, err = t.Invoke(&ConfigInvoke{Operation: OpGetPropertyValue, Path: "", Sender: t.sender, Token: t.token})
	if err != nil && !daqerr.Is(err, daqerr.NotFound) {
		return err
	}
	return nil
}

// Invoke marshals req, sends it over the REQ socket with the same
// close-and-reopen-on-error discipline as apcfg.sendOp, and unmarshals the
// reply.
func (t *Transport) Invoke(req *ConfigInvoke) (*ConfigInvokeReply, error) {
	req.Sender = t.sender
	req.Token = t.token

	op, err := proto.Marshal(req)
	if err != nil {
		return nil, daqerr.Wrap(daqerr.GeneralError, "configclient.Transport", err)
	}

	t.mu.Lock()
	var reply [][]byte
	for retries := 0; retries < retryLimit; retries++ {
		if t.socket == nil {
			if err = t.reconnect(); err != nil {
				log.Warning("reconnect failed", "error", err)
				continue
			}
		}

		_, err = t.socket.SendBytes(op, 0)
		if err == nil {
			for ; retries < retryLimit; retries++ {
				reply, err = t.socket.RecvMessageBytes(0)
				if err != zmq.Errno(syscall.EINTR) {
					break
				}
			}
		}
		if err == nil {
			break
		}
		log.Warning("config RPC failed, reconnecting", "error", err)
		t.disconnect()
	}
	t.mu.Unlock()

	if err != nil {
		return nil, daqerr.Wrap(daqerr.InvalidState, "configclient.Transport", err)
	}
	if len(reply) == 0 {
		return nil, daqerr.New(daqerr.InvalidState, "configclient.Transport", "empty reply")
	}

	resp := &ConfigInvokeReply{}
	if err := proto.Unmarshal(reply[0], resp); err != nil {
		return nil, daqerr.Wrap(daqerr.GeneralError, "configclient.Transport", err)
	}
	if !resp.Ok {
		return resp, daqerr.New(daqerr.Code(resp.ErrorCode), "configclient.Transport", "%s", resp.ErrorText)
	}
	return resp, nil
}

// Close tears down the underlying socket.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disconnect()
}
