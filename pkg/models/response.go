package models

import (
	"bytes"
	"encoding/json"
	"net/http"
)

const (
	ContentTypeHTML   = "text/html"
	ContentTypeText   = "text/plain"
	ContentTypeBinary = "application/octet-stream"
	ContentTypeJSON   = "application/json"
)

// Response is what a route handler or the asset cache hands back to a
// transport. Data must not be modified by the caller.
type Response interface {
	ContentType() string
	Status() int
	Data() []byte
	Size() int
}

type meta struct {
	contentType string
	status      int
}

func (m meta) ContentType() string { return m.contentType }
func (m meta) Status() int         { return m.status }

type Option func(*meta)

func WithStatus(code int) Option {
	return func(m *meta) { m.status = code }
}

func WithContentType(ct string) Option {
	return func(m *meta) {
		if ct != "" {
			m.contentType = ct
		}
	}
}

func newMeta(defaultType string, opts []Option) meta {
	m := meta{contentType: defaultType, status: http.StatusOK}
	for _, o := range opts {
		o(&m)
	}
	return m
}

// TextResponse carries UTF-8 text. Defaults to text/html.
type TextResponse struct {
	meta
	content []byte
}

func NewText(content string, opts ...Option) *TextResponse {
	return &TextResponse{meta: newMeta(ContentTypeHTML, opts), content: []byte(content)}
}

func (r *TextResponse) Data() []byte   { return r.content }
func (r *TextResponse) Size() int      { return len(r.content) }
func (r *TextResponse) String() string { return string(r.content) }

// BinaryResponse owns its buffer: the caller gives up the slice when
// constructing one.
type BinaryResponse struct {
	meta
	content []byte
}

func NewBinary(content []byte, opts ...Option) *BinaryResponse {
	return &BinaryResponse{meta: newMeta(ContentTypeBinary, opts), content: content}
}

func (r *BinaryResponse) Data() []byte { return r.content }
func (r *BinaryResponse) Size() int    { return len(r.content) }

// BinaryViewResponse borrows buf. Whoever built it keeps ownership and must
// leave buf untouched until the transport is done sending.
type BinaryViewResponse struct {
	meta
	buf []byte
}

func NewBinaryView(buf []byte, opts ...Option) *BinaryViewResponse {
	return &BinaryViewResponse{meta: newMeta(ContentTypeBinary, opts), buf: buf}
}

func (r *BinaryViewResponse) Data() []byte { return r.buf }
func (r *BinaryViewResponse) Size() int    { return len(r.buf) }

// JSONResponse holds a pre-serialized JSON document. The document is encoded
// once, when the response is built.
type JSONResponse struct {
	meta
	json []byte
}

// NewJSON encodes v compactly.
func NewJSON(v any, opts ...Option) (*JSONResponse, error) {
	b, err := MarshalCompact(v)
	if err != nil {
		return nil, err
	}
	return &JSONResponse{meta: newMeta(ContentTypeJSON, opts), json: b}, nil
}

// NewRawJSON wraps an already encoded document without validating it.
func NewRawJSON(doc []byte, opts ...Option) *JSONResponse {
	return &JSONResponse{meta: newMeta(ContentTypeJSON, opts), json: doc}
}

func (r *JSONResponse) Data() []byte   { return r.json }
func (r *JSONResponse) Size() int      { return len(r.json) }
func (r *JSONResponse) String() string { return string(r.json) }

// MarshalCompact is json.Marshal without HTML escaping.
func MarshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
