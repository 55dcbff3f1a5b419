// Package devserver serves the app to an ordinary browser during
// development. Requests on loopback HTTP go through the same dispatcher the
// native web views use, and a websocket stands in for the native message
// channel.
package devserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cjdenio/webbridge/pkg/bridge"
	"github.com/cjdenio/webbridge/pkg/logging"
	"github.com/cjdenio/webbridge/pkg/util"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	SocketPath = "/__webbridge/ws"
	// SessionHeader carries the session id on the websocket handshake.
	SessionHeader = "X-Webbridge-Session"

	sessionAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	shutdownTimeout = 5 * time.Second
)

var errNotAttached = errors.New("devserver: no dispatcher attached")

type session struct {
	id      string
	conn    *websocket.Conn
	msgpack bool

	writeMu sync.Mutex
}

func (s *session) write(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(messageType, data)
}

type Server struct {
	addr     string
	log      *slog.Logger
	d        bridge.Dispatcher
	upgrader websocket.Upgrader

	// dispatchMu keeps calls into the dispatcher one at a time, the same
	// guarantee a native UI thread gives.
	dispatchMu sync.Mutex

	mu       sync.Mutex
	sessions map[string]*session
	ln       net.Listener
	srv      *http.Server
}

func New(addr string, log *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		log:      logging.OrDiscard(log).With("bridge", "devserver"),
		sessions: make(map[string]*session),
	}
}

func (s *Server) Name() string { return "devserver" }

func (s *Server) Attach(d bridge.Dispatcher) { s.d = d }

// Handler builds the HTTP handler. Everything that is not the event socket
// is dispatched.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(SocketPath, s.serveSocket).Methods("GET")
	r.PathPrefix("/").HandlerFunc(s.serveDispatch)
	return r
}

// Listen binds the address without serving yet, so URL is known up front.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// URL is the base URL the server answers on. Empty before Listen.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	srv := &http.Server{Handler: s.Handler()}
	s.srv = srv
	ln := s.ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.closeSessions()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("serving", "url", s.URL())
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close drops every session and stops the server.
func (s *Server) Close() error {
	s.closeSessions()

	s.mu.Lock()
	srv, ln := s.srv, s.ln
	s.mu.Unlock()

	if srv != nil {
		return srv.Close()
	}
	if ln != nil {
		return ln.Close()
	}
	return nil
}

func (s *Server) serveDispatch(rw http.ResponseWriter, r *http.Request) {
	if s.d == nil {
		http.Error(rw, errNotAttached.Error(), http.StatusServiceUnavailable)
		return
	}

	req, ok, err := util.MarshalRequest(r)
	if !ok {
		s.log.Error("unsupported method", "method", r.Method)
	}
	if err != nil {
		s.log.Warn("request body read failed", "path", r.URL.Path, "err", err)
	}

	s.dispatchMu.Lock()
	res := s.d.Dispatch(req)
	s.dispatchMu.Unlock()

	rw.Header().Set("Content-Type", bridge.ContentType(res))
	rw.Header().Set("Content-Length", strconv.Itoa(res.Size()))
	rw.WriteHeader(res.Status())
	rw.Write(res.Data())
}

func (s *Server) serveSocket(rw http.ResponseWriter, r *http.Request) {
	id, err := gonanoid.Generate(sessionAlphabet, 10)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}

	c, err := s.upgrader.Upgrade(rw, r, http.Header{SessionHeader: {id}})
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	sess := &session{id: id, conn: c, msgpack: r.URL.Query().Get("codec") == "msgpack"}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	s.log.Info("session opened", "session", id, "msgpack", sess.msgpack)

	defer func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		c.Close()
		s.log.Info("session closed", "session", id)
	}()

	for {
		mt, m, err := c.ReadMessage()
		if err != nil {
			return
		}

		raw := m
		if mt == websocket.BinaryMessage {
			raw, err = util.MsgPackToJSON(m)
			if err != nil {
				s.log.Debug("dropping undecodable frame", "session", id, "err", err)
				continue
			}
		}

		if s.d == nil {
			continue
		}
		s.dispatchMu.Lock()
		s.d.HandleEvent(raw)
		s.dispatchMu.Unlock()
	}
}

// Emit sends v to every connected session. It returns bridge.ErrNoView when
// nobody is connected.
func (s *Server) Emit(v any) error {
	payload, err := bridge.EncodeEvent(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	targets := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		targets = append(targets, sess)
	}
	s.mu.Unlock()

	if len(targets) == 0 {
		return bridge.ErrNoView
	}

	var packed []byte
	var errs []error
	for _, sess := range targets {
		if !sess.msgpack {
			errs = append(errs, sess.write(websocket.TextMessage, payload))
			continue
		}
		if packed == nil {
			if packed, err = util.JSONToMsgPack(payload); err != nil {
				return err
			}
		}
		errs = append(errs, sess.write(websocket.BinaryMessage, packed))
	}
	return errors.Join(errs...)
}

// Sessions is the number of connected event sockets.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.conn.Close()
	}
}
