package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/cjdenio/webbridge/pkg/logging"
	"github.com/cjdenio/webbridge/pkg/models"
	"github.com/cjdenio/webbridge/pkg/router"
)

// Resolver is the static fallback consulted when no route matches.
type Resolver interface {
	Resolve(path string) (models.Response, bool)
}

// Dispatcher turns requests into responses and events into handler calls.
// Nothing it is given to run can make it panic or return nil.
type Dispatcher struct {
	routes *router.Router
	assets Resolver
	log    *slog.Logger
}

func New(routes *router.Router, assets Resolver, log *slog.Logger) *Dispatcher {
	if routes == nil {
		routes = router.New()
	}
	return &Dispatcher{routes: routes, assets: assets, log: logging.OrDiscard(log)}
}

// Dispatch tries the route table for req's method, then the static assets,
// and otherwise answers 404.
func (d *Dispatcher) Dispatch(req *models.Request) models.Response {
	if req == nil {
		req = &models.Request{}
	}

	if h, ok := d.routes.Route(req.Method, req.Path); ok {
		res := d.invoke(h, req)
		d.log.Debug("dispatch", "method", req.Method.String(), "path", req.Path, "status", res.Status())
		return res
	}

	if d.assets != nil {
		if res, ok := d.assets.Resolve(req.Path); ok {
			d.log.Debug("static", "path", req.Path, "size", res.Size())
			return res
		}
	}

	return d.fail(req, http.StatusNotFound, "Not Found: "+req.Path)
}

func (d *Dispatcher) invoke(h router.RouteHandler, req *models.Request) (res models.Response) {
	defer func() {
		if r := recover(); r != nil {
			res = d.fail(req, http.StatusInternalServerError, fmt.Sprintf("route handler panicked: %v", r))
		}
	}()

	res, err := h(req)
	if err != nil {
		status := http.StatusInternalServerError
		var he *HandlerError
		if errors.As(err, &he) && he.Status != 0 {
			status = he.Status
		}
		return d.fail(req, status, err.Error())
	}
	if isNil(res) {
		return d.fail(req, http.StatusInternalServerError, "Route handler returned null response")
	}
	return res
}

// isNil also catches a nil pointer variant stored in the interface.
func isNil(res models.Response) bool {
	if res == nil {
		return true
	}
	v := reflect.ValueOf(res)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func (d *Dispatcher) fail(req *models.Request, status int, msg string) models.Response {
	d.log.Error(msg, "method", req.Method.String(), "path", req.Path, "status", status)
	return ErrorResponse(req, status, msg)
}

// HandleEvent decodes a content->native payload and runs the handler it
// names. Malformed payloads and unknown names are dropped. It reports
// whether a handler ran to completion.
func (d *Dispatcher) HandleEvent(raw []byte) (handled bool) {
	ev, err := models.ParseEvent(raw)
	if err != nil {
		d.log.Debug("dropping event", "err", err)
		return false
	}

	h, ok := d.routes.Event(ev.Handler)
	if !ok {
		d.log.Debug("no handler for event", "handler", ev.Handler)
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event handler panicked", "handler", ev.Handler, "panic", r)
			handled = false
		}
	}()
	h(ev)
	return true
}
