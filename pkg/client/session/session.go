package session

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cjdenio/webbridge/pkg/models"
	"github.com/cjdenio/webbridge/pkg/util"
	"github.com/gorilla/websocket"
)

const (
	socketPath    = "/__webbridge/ws"
	sessionHeader = "X-Webbridge-Session"
)

// Session is a connection to a running dev server's event socket. It plays
// the part of web content: it can emit events to native handlers and it
// receives whatever native code emits.
type Session struct {
	ID      string
	MsgPack bool

	conn      *websocket.Conn
	events    chan json.RawMessage
	dropped   atomic.Int64
	closeChan chan error
	writeMu   sync.Mutex
}

// eventBuffer is how many events may wait in Events before new ones are
// dropped.
const eventBuffer = 64

// SocketURL turns a dev server address ("127.0.0.1:8080" or
// "http://127.0.0.1:8080") into its event socket URL.
func SocketURL(host string, useMsgPack bool) string {
	scheme := "ws"
	switch {
	case strings.HasPrefix(host, "https://"):
		scheme = "wss"
		host = strings.TrimPrefix(host, "https://")
	case strings.HasPrefix(host, "http://"):
		host = strings.TrimPrefix(host, "http://")
	}

	query := url.Values{}
	if useMsgPack {
		query.Set("codec", "msgpack")
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     strings.TrimSuffix(host, "/"),
		Path:     socketPath,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func Connect(host string, useMsgPack bool) (*Session, error) {
	c, res, err := websocket.DefaultDialer.Dial(SocketURL(host, useMsgPack), nil)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        res.Header.Get(sessionHeader),
		MsgPack:   useMsgPack,
		conn:      c,
		events:    make(chan json.RawMessage, eventBuffer),
		closeChan: make(chan error, 1),
	}

	go s.read()

	return s, nil
}

func (s *Session) read() {
	defer close(s.events)
	for {
		m, err := s.next()
		if errors.Is(err, util.ErrBadFrame) {
			continue
		}
		if err != nil {
			s.closeChan <- err
			close(s.closeChan)
			return
		}

		select {
		case s.events <- m:
		default:
			s.dropped.Add(1)
		}
	}
}

// next reads one event off the socket as JSON.
func (s *Session) next() (json.RawMessage, error) {
	if s.MsgPack {
		var v interface{}
		if err := util.ReadMsgPack(s.conn, &v); err != nil {
			return nil, err
		}
		b, err := models.MarshalCompact(v)
		if err != nil {
			return nil, errors.Join(util.ErrBadFrame, err)
		}
		return b, nil
	}

	mt, m, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if mt == websocket.BinaryMessage {
		if m, err = util.MsgPackToJSON(m); err != nil {
			return nil, errors.Join(util.ErrBadFrame, err)
		}
	}
	return m, nil
}

// Events yields the events native code emits. It is closed when the
// connection drops. Callers must drain it: once it holds eventBuffer
// undelivered events, further ones are counted by Dropped and discarded.
func (s *Session) Events() <-chan json.RawMessage { return s.events }

// Dropped reports how many events were discarded because Events was full.
func (s *Session) Dropped() int64 { return s.dropped.Load() }

// Message builds the payload web content sends for an event: the handler
// name under handler, event and name, merged with payload when it is an
// object and carried as message otherwise.
func Message(handler string, payload any) map[string]any {
	msg := map[string]any{"handler": handler, "event": handler, "name": handler}
	if fields, ok := payload.(map[string]any); ok {
		for k, v := range fields {
			msg[k] = v
		}
		return msg
	}
	if payload != nil {
		msg["message"] = payload
	}
	return msg
}

// Emit sends an event to the native handler registered as handler.
func (s *Session) Emit(handler string, payload any) error {
	msg := Message(handler, payload)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.MsgPack {
		return util.WriteMsgPack(s.conn, msg)
	}
	b, err := models.MarshalCompact(msg)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

// Wait blocks until the connection drops.
func (s *Session) Wait() error {
	return <-s.closeChan
}

func (s *Session) Close() error {
	s.writeMu.Lock()
	err := s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}
