package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cjdenio/webbridge/pkg/util"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// socketServer upgrades every request, hands the connection to serve and
// closes it when serve returns.
func socketServer(t *testing.T, serve func(c *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, http.Header{sessionHeader: {"abc123"}})
		if err != nil {
			return
		}
		defer c.Close()
		serve(c)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitClosed(t *testing.T, s *Session) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after the server went away")
	}
}

func collect(s *Session) []string {
	var got []string
	for ev := range s.Events() {
		got = append(got, string(ev))
	}
	return got
}

func TestSocketURL(t *testing.T) {
	assert.Equal(t, "ws://127.0.0.1:8080/__webbridge/ws", SocketURL("127.0.0.1:8080", false))
	assert.Equal(t, "ws://localhost:9000/__webbridge/ws?codec=msgpack", SocketURL("http://localhost:9000/", true))
	assert.Equal(t, "wss://dev.example/__webbridge/ws", SocketURL("https://dev.example", false))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, map[string]any{
		"handler": "api-demo", "event": "api-demo", "name": "api-demo", "message": "hi",
	}, Message("api-demo", "hi"))

	assert.Equal(t, map[string]any{
		"handler": "btn_click", "event": "btn_click", "name": "btn_click", "message": "x", "n": 2.0,
	}, Message("btn_click", map[string]any{"message": "x", "n": 2.0}))

	assert.Equal(t, map[string]any{
		"handler": "ping", "event": "ping", "name": "ping",
	}, Message("ping", nil))
}

func TestWaitReturnsWithoutDrainingEvents(t *testing.T) {
	const sent = eventBuffer + 36
	srv := socketServer(t, func(c *websocket.Conn) {
		for i := 0; i < sent; i++ {
			c.WriteMessage(websocket.TextMessage, []byte(`{"handler":"tick"}`))
		}
	})

	s, err := Connect(srv.URL, false)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "abc123", s.ID)

	waitClosed(t, s)

	got := collect(s)
	assert.LessOrEqual(t, len(got), eventBuffer)
	assert.Equal(t, int64(sent), int64(len(got))+s.Dropped())
}

func TestMsgPackSessionSkipsBadFrames(t *testing.T) {
	srv := socketServer(t, func(c *websocket.Conn) {
		util.WriteMsgPack(c, map[string]any{"handler": "api-demo", "message": "one"})
		c.WriteMessage(websocket.BinaryMessage, []byte{0xc1})
		util.WriteMsgPack(c, map[string]any{"handler": "api-demo", "message": "two"})
	})

	s, err := Connect(srv.URL, true)
	require.NoError(t, err)
	defer s.Close()

	waitClosed(t, s)

	got := collect(s)
	require.Len(t, got, 2)
	for i, want := range []string{"one", "two"} {
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(got[i]), &ev))
		assert.Equal(t, "api-demo", ev["handler"])
		assert.Equal(t, want, ev["message"])
	}
}

func TestTextSessionDecodesBinaryFrames(t *testing.T) {
	srv := socketServer(t, func(c *websocket.Conn) {
		c.WriteMessage(websocket.TextMessage, []byte(`{"handler":"a"}`))
		c.WriteMessage(websocket.BinaryMessage, []byte{0xc1})
		util.WriteMsgPack(c, map[string]any{"handler": "b"})
	})

	s, err := Connect(srv.URL, false)
	require.NoError(t, err)
	defer s.Close()

	waitClosed(t, s)
	assert.Equal(t, []string{`{"handler":"a"}`, `{"handler":"b"}`}, collect(s))
}
