package router

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/cjdenio/webbridge/pkg/models"
)

// RouteHandler answers a request. Returning a nil Response without an error
// counts as a failure.
type RouteHandler func(req *models.Request) (models.Response, error)

// EventHandler receives an event posted by web content.
type EventHandler func(ev *models.Event)

// Router holds one exact-match route table per method plus the named event
// handlers. It is filled in before the runtime starts and then sealed; after
// that it is read-only and safe to share.
type Router struct {
	routes [4]map[string]RouteHandler
	events map[string]EventHandler
	sealed atomic.Bool
}

func New() *Router {
	r := &Router{events: make(map[string]EventHandler)}
	for i := range r.routes {
		r.routes[i] = make(map[string]RouteHandler)
	}
	return r
}

func (r *Router) mustBeOpen() {
	if r.sealed.Load() {
		panic("router: registration after Seal")
	}
}

// Handle registers h for method and path. Paths are matched exactly.
func (r *Router) Handle(method models.Method, path string, h RouteHandler) *Router {
	r.mustBeOpen()
	if !method.Valid() {
		panic(fmt.Sprintf("router: unknown method %d", int(method)))
	}
	if h == nil {
		panic(fmt.Sprintf("router: nil handler for %s %s", method, path))
	}
	r.routes[method][path] = h
	return r
}

func (r *Router) Get(path string, h RouteHandler) *Router {
	return r.Handle(models.MethodGet, path, h)
}

func (r *Router) Post(path string, h RouteHandler) *Router {
	return r.Handle(models.MethodPost, path, h)
}

func (r *Router) Put(path string, h RouteHandler) *Router {
	return r.Handle(models.MethodPut, path, h)
}

func (r *Router) Delete(path string, h RouteHandler) *Router {
	return r.Handle(models.MethodDelete, path, h)
}

// On registers an event handler under name.
func (r *Router) On(name string, h EventHandler) *Router {
	r.mustBeOpen()
	if h == nil {
		panic(fmt.Sprintf("router: nil event handler for %q", name))
	}
	r.events[name] = h
	return r
}

// Seal freezes the tables. Calling it more than once is fine.
func (r *Router) Seal() { r.sealed.Store(true) }

func (r *Router) Sealed() bool { return r.sealed.Load() }

// Route looks up the handler for method and path. Methods outside the known
// set use the GET table.
func (r *Router) Route(method models.Method, path string) (RouteHandler, bool) {
	if !method.Valid() {
		method = models.MethodGet
	}
	h, ok := r.routes[method][path]
	return h, ok
}

func (r *Router) Event(name string) (EventHandler, bool) {
	h, ok := r.events[name]
	return h, ok
}

// Len is the number of registered routes across all methods.
func (r *Router) Len() int {
	n := 0
	for _, table := range r.routes {
		n += len(table)
	}
	return n
}

// Paths lists the registered paths for method in sorted order.
func (r *Router) Paths(method models.Method) []string {
	if !method.Valid() {
		return nil
	}
	out := make([]string, 0, len(r.routes[method]))
	for p := range r.routes[method] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Events lists the registered event names in sorted order.
func (r *Router) Events() []string {
	out := make([]string, 0, len(r.events))
	for name := range r.events {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
