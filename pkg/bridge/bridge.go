// Package bridge holds the contract between the dispatch core and the
// transports that feed it, plus the pieces every transport shares.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cjdenio/webbridge/pkg/models"
)

// ReceiverFunc is the content-side function that native->content events are
// delivered to.
const ReceiverFunc = "window.__webbridge_receive"

// BodyChunkSize is how much of a request body is read per call.
const BodyChunkSize = 1 << 14

var ErrNoView = errors.New("bridge: no content view attached")

// Dispatcher is what a transport calls into. The runtime context implements
// it; transports never see the router or the asset cache directly.
type Dispatcher interface {
	Dispatch(req *models.Request) models.Response
	HandleEvent(raw []byte) bool
}

// Bridge is a transport adapter.
type Bridge interface {
	Name() string
	// Attach hands the adapter the dispatcher it serves. It is called once,
	// during runtime init, before any native callback can fire.
	Attach(d Dispatcher)
	// Emit pushes a JSON value into the content view.
	Emit(v any) error
}

// ReadBody drains r in BodyChunkSize reads until EOF or the first error.
// Whatever was read before an error is still returned.
func ReadBody(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, nil
	}

	var out []byte
	buf := make([]byte, BodyChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if n == 0 {
			// A reader that returns (0, nil) forever would spin; treat it as EOF.
			return out, nil
		}
	}
}

// EncodeEvent serializes v compactly for delivery to content.
func EncodeEvent(v any) ([]byte, error) {
	b, err := models.MarshalCompact(v)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return b, nil
}

// ReceiverScript wraps an encoded event in a call to ReceiverFunc.
func ReceiverScript(payload []byte) string {
	return fmt.Sprintf("%s(%s);", ReceiverFunc, payload)
}

// ResponseHeaders formats the header block native response APIs take.
func ResponseHeaders(res models.Response) string {
	return fmt.Sprintf("Content-Type: %s\r\nContent-Length: %d", ContentType(res), res.Size())
}

// ReasonPhrase is the status text native APIs pair with a status code.
func ReasonPhrase(status int) string {
	if status == http.StatusOK {
		return "OK"
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Error"
}

// ContentType is the response's content type, or octet-stream if it has none.
func ContentType(res models.Response) string {
	if ct := res.ContentType(); ct != "" {
		return ct
	}
	return models.ContentTypeBinary
}
