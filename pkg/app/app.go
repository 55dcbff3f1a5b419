// Package app owns the runtime context: the router, asset cache, dispatcher
// and transport of one running application, and their lifecycle.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/cjdenio/webbridge/pkg/assets"
	"github.com/cjdenio/webbridge/pkg/bridge"
	"github.com/cjdenio/webbridge/pkg/dispatch"
	"github.com/cjdenio/webbridge/pkg/logging"
	"github.com/cjdenio/webbridge/pkg/models"
	"github.com/cjdenio/webbridge/pkg/router"
)

var (
	ErrAlreadyInitialized = errors.New("app: already initialized")
	ErrNotInitialized     = errors.New("app: not initialized")
	ErrClosed             = errors.New("app: shut down")
)

type state int32

const (
	stateNew state = iota
	stateReady
	stateRunning
	stateStopping
	stateClosed
)

// Runner is implemented by transports that drive their own loop.
type Runner interface {
	Run(ctx context.Context) error
}

type Options struct {
	// StaticRoot is the directory static assets are served from.
	StaticRoot string
	// Preload lists static paths to load during Init.
	Preload []string
	Router  *router.Router
	Bridge  bridge.Bridge
	Logger  *slog.Logger
	// Window is not used here; it is carried for the platform glue.
	Window WindowOptions
}

// Context is the state of one application. Create it with New, fill the
// router, then Init, Run and Shutdown, in that order and once each.
type Context struct {
	opts       Options
	log        *slog.Logger
	cache      *assets.Cache
	dispatcher *dispatch.Dispatcher
	state      atomic.Int32
}

func New(opts Options) *Context {
	if opts.Router == nil {
		opts.Router = router.New()
	}
	if opts.Window == (WindowOptions{}) {
		opts.Window = DefaultWindow()
	}
	return &Context{opts: opts, log: logging.OrDiscard(opts.Logger)}
}

func (c *Context) Router() *router.Router { return c.opts.Router }
func (c *Context) Window() WindowOptions  { return c.opts.Window }
func (c *Context) Bridge() bridge.Bridge  { return c.opts.Bridge }

// Cache is nil before Init.
func (c *Context) Cache() *assets.Cache { return c.cache }

// Init seals the router, builds the cache and dispatcher and attaches the
// transport. Nothing can be dispatched before it returns.
func (c *Context) Init() error {
	if state(c.state.Load()) != stateNew {
		return ErrAlreadyInitialized
	}

	r := c.opts.Router
	if _, ok := r.Route(models.MethodGet, bridge.ShimPath); !ok && !r.Sealed() {
		r.Get(bridge.ShimPath, bridge.ShimResponse)
	}
	r.Seal()

	c.cache = assets.NewCache(c.opts.StaticRoot, c.log)
	if len(c.opts.Preload) > 0 {
		if err := c.cache.Preload(c.opts.Preload...); err != nil {
			c.log.Warn("preload incomplete", "err", err)
		}
	}
	c.dispatcher = dispatch.New(r, c.cache, c.log)

	if !c.state.CompareAndSwap(int32(stateNew), int32(stateReady)) {
		return ErrAlreadyInitialized
	}

	if c.opts.Bridge != nil {
		c.opts.Bridge.Attach(c)
	}

	c.log.Info("initialized",
		"static_root", c.opts.StaticRoot,
		"routes", r.Len(),
		"events", len(r.Events()),
	)
	return nil
}

// Run blocks until ctx is done or the transport's own loop ends. Transports
// without a loop of their own are driven by native callbacks while Run
// waits.
func (c *Context) Run(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(stateReady), int32(stateRunning)) {
		if state(c.state.Load()) == stateNew {
			return ErrNotInitialized
		}
		return ErrClosed
	}

	c.log.Info("run main loop")
	if runner, ok := c.opts.Bridge.(Runner); ok {
		return runner.Run(ctx)
	}
	<-ctx.Done()
	return nil
}

// Shutdown closes the transport. It is safe to call more than once.
func (c *Context) Shutdown() error {
	for {
		s := state(c.state.Load())
		if s == stateStopping || s == stateClosed {
			return nil
		}
		if c.state.CompareAndSwap(int32(s), int32(stateStopping)) {
			break
		}
	}

	c.log.Info("shutting down")
	var err error
	if closer, ok := c.opts.Bridge.(io.Closer); ok {
		err = closer.Close()
	}
	c.state.Store(int32(stateClosed))
	return err
}

func (c *Context) mustBeLive() {
	s := state(c.state.Load())
	if s != stateReady && s != stateRunning {
		panic("app: context is not initialized")
	}
}

// Dispatch implements bridge.Dispatcher. Calling it before Init or after
// Shutdown is a programming error and panics.
func (c *Context) Dispatch(req *models.Request) models.Response {
	c.mustBeLive()
	return c.dispatcher.Dispatch(req)
}

// HandleEvent implements bridge.Dispatcher. Same rules as Dispatch.
func (c *Context) HandleEvent(raw []byte) bool {
	c.mustBeLive()
	return c.dispatcher.HandleEvent(raw)
}

// Emit pushes v into the content view through the transport.
func (c *Context) Emit(v any) error {
	s := state(c.state.Load())
	switch {
	case s == stateNew:
		return ErrNotInitialized
	case s >= stateStopping:
		return ErrClosed
	case c.opts.Bridge == nil:
		return bridge.ErrNoView
	}
	return c.opts.Bridge.Emit(v)
}
