package util

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"slices"

	"github.com/cjdenio/webbridge/pkg/bridge"
	"github.com/cjdenio/webbridge/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// HTTPHeaders exposes an http.Header as a models.HeaderSource. Keys in an
// http.Header are canonicalized, so the exact lookup only hits for canonical
// names and everything else falls through to the case-insensitive scan.
type HTTPHeaders http.Header

func (h HTTPHeaders) Lookup(name string) (string, bool) {
	v, ok := h[name]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// Range visits headers in sorted name order.
func (h HTTPHeaders) Range(fn func(name, value string) bool) {
	for _, k := range slices.Sorted(maps.Keys(h)) {
		if v := h[k]; len(v) > 0 && !fn(k, v[0]) {
			return
		}
	}
}

// MarshalRequest converts an incoming HTTP request into a models.Request.
// ok is false when the method is not one the router knows; the request
// then carries MethodGet.
func MarshalRequest(r *http.Request) (*models.Request, bool, error) {
	method, ok := models.ParseMethod(r.Method)

	body, err := bridge.ReadBody(r.Body)
	return models.NewRequest(method, r.URL.RequestURI(), body, HTTPHeaders(r.Header)), ok, err
}

// Writes a MessagePack-encoded binary message to a WebSocket connection
func WriteMsgPack(c *websocket.Conn, v interface{}) error {
	marshalled, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}

	return c.WriteMessage(websocket.BinaryMessage, marshalled)
}

// ErrBadFrame marks a frame that arrived intact but did not decode. The
// connection is still usable after it.
var ErrBadFrame = errors.New("util: frame is not valid MessagePack")

// Reads one MessagePack-encoded message from a WebSocket connection into v
func ReadMsgPack(c *websocket.Conn, v interface{}) error {
	_, m, err := c.ReadMessage()
	if err != nil {
		return err
	}

	if err := msgpack.Unmarshal(m, v); err != nil {
		return errors.Join(ErrBadFrame, err)
	}
	return nil
}

// MsgPackToJSON re-encodes a MessagePack document as compact JSON.
func MsgPackToJSON(b []byte) ([]byte, error) {
	var v interface{}
	if err := msgpack.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return models.MarshalCompact(v)
}

// JSONToMsgPack re-encodes a JSON document as MessagePack.
func JSONToMsgPack(b []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return msgpack.Marshal(v)
}
