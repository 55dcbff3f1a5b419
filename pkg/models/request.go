package models

import (
	"maps"
	"slices"
	"strings"
)

type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodDelete
)

func (m Method) String() string {
	switch m {
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	default:
		return "GET"
	}
}

func (m Method) Valid() bool {
	return m >= MethodGet && m <= MethodDelete
}

// ParseMethod maps a transport method name onto a Method. Unknown names
// (including the empty string) come back as MethodGet with ok set to false,
// so callers can log and carry on.
func ParseMethod(s string) (m Method, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GET":
		return MethodGet, true
	case "POST":
		return MethodPost, true
	case "PUT":
		return MethodPut, true
	case "DELETE":
		return MethodDelete, true
	}
	return MethodGet, false
}

// HeaderSource is a read-only view over whatever header storage the
// transport hands us. It is only valid while the request is being
// dispatched.
type HeaderSource interface {
	// Lookup does an exact, case-sensitive lookup.
	Lookup(name string) (string, bool)
	// Range calls fn for every header until fn returns false.
	Range(fn func(name, value string) bool)
}

// Headers is a HeaderSource backed by a plain map. Transports that already
// materialize their headers (and tests) use it.
type Headers map[string]string

func (h Headers) Lookup(name string) (string, bool) {
	v, ok := h[name]
	return v, ok
}

// Range visits headers in sorted name order, so a case-insensitive lookup
// over names that differ only by case always lands on the same one.
func (h Headers) Range(fn func(name, value string) bool) {
	for _, k := range slices.Sorted(maps.Keys(h)) {
		if !fn(k, h[k]) {
			return
		}
	}
}

type Request struct {
	Method  Method
	Path    string
	Query   string
	Body    []byte
	Headers HeaderSource
}

// NewRequest splits uri into path and query and returns a request for it.
func NewRequest(method Method, uri string, body []byte, headers HeaderSource) *Request {
	path, query := SplitURI(uri)
	return &Request{
		Method:  method,
		Path:    path,
		Query:   query,
		Body:    body,
		Headers: headers,
	}
}

// SplitURI splits at the first '?'. It never fails; query is empty when
// there is no '?'.
func SplitURI(uri string) (path, query string) {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		return uri[:i], uri[i+1:]
	}
	return uri, ""
}

// Header returns the value of the named header, or "" if there is none.
// An exact match wins over a case-insensitive one.
func (r *Request) Header(name string) string {
	if r == nil || r.Headers == nil || name == "" {
		return ""
	}
	if v, ok := r.Headers.Lookup(name); ok {
		return v
	}

	var out string
	r.Headers.Range(func(k, v string) bool {
		if strings.EqualFold(k, name) {
			out = v
			return false
		}
		return true
	})
	return out
}

// Accepts reports whether the Accept header mentions mime.
func (r *Request) Accepts(mime string) bool {
	accept := r.Header("Accept")
	if accept == "" {
		return false
	}
	return strings.Contains(strings.ToLower(accept), strings.ToLower(mime))
}
