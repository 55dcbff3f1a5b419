// Package webview2 adapts the dispatch core to a WebView2 control. Requests
// arrive through WebResourceRequested for the file://localhost origin,
// events through WebMessageReceived, and outbound events go out with
// PostWebMessageAsJson.
package webview2

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/cjdenio/webbridge/pkg/bridge"
	"github.com/cjdenio/webbridge/pkg/logging"
	"github.com/cjdenio/webbridge/pkg/models"
	"github.com/cjdenio/webbridge/pkg/navigation"
)

const (
	Origin = "file://localhost"
	// StartURI is navigated to once the controller is ready.
	StartURI = Origin + "/"
	// ResourceFilter is passed to AddWebResourceRequestedFilter.
	ResourceFilter = Origin + "/*"
)

// HeaderIterator mirrors ICoreWebView2HttpHeadersCollectionIterator.
type HeaderIterator interface {
	HasCurrentHeader() bool
	GetCurrentHeader() (name, value string, err error)
	MoveNext() bool
}

// RequestHeaders mirrors ICoreWebView2HttpRequestHeaders.
type RequestHeaders interface {
	GetHeader(name string) (string, error)
	GetIterator() (HeaderIterator, error)
}

// WebResourceRequest mirrors ICoreWebView2WebResourceRequest.
type WebResourceRequest interface {
	URI() (string, error)
	Method() (string, error)
	Headers() RequestHeaders
	Content() io.Reader
}

// WebResourceResponse is the native response object; the bridge only passes
// it back to the event args.
type WebResourceResponse interface{}

// Environment mirrors the part of ICoreWebView2Environment that builds
// responses.
type Environment interface {
	CreateWebResourceResponse(content io.Reader, status int, reason, headers string) (WebResourceResponse, error)
}

// ResourceRequestedArgs mirrors ICoreWebView2WebResourceRequestedEventArgs.
type ResourceRequestedArgs interface {
	Request() WebResourceRequest
	PutResponse(res WebResourceResponse)
}

// NavigationArgs covers NavigationStarting and NewWindowRequested.
type NavigationArgs interface {
	URI() string
	PutCancel(cancel bool)
}

// WebView mirrors the part of ICoreWebView2 the bridge drives.
type WebView interface {
	PostWebMessageAsJSON(json string) error
	Navigate(uri string) error
}

type Bridge struct {
	env  Environment
	view WebView
	nav  *navigation.Policy
	d    bridge.Dispatcher
	log  *slog.Logger
}

func New(env Environment, view WebView, opener navigation.Opener, log *slog.Logger) *Bridge {
	log = logging.OrDiscard(log).With("bridge", "webview2")
	return &Bridge{
		env:  env,
		view: view,
		nav:  navigation.NewPolicy(opener, log, StartURI),
		log:  log,
	}
}

func (b *Bridge) Name() string { return "webview2" }

func (b *Bridge) Attach(d bridge.Dispatcher) { b.d = d }

// Start navigates the view to the app's start page.
func (b *Bridge) Start() error {
	if b.view == nil {
		return bridge.ErrNoView
	}
	return b.view.Navigate(StartURI)
}

type headerView struct{ h RequestHeaders }

func (v headerView) Lookup(name string) (string, bool) {
	val, err := v.h.GetHeader(name)
	if err != nil {
		return "", false
	}
	return val, true
}

func (v headerView) Range(fn func(name, value string) bool) {
	it, err := v.h.GetIterator()
	if err != nil || it == nil {
		return
	}
	for it.HasCurrentHeader() {
		name, value, err := it.GetCurrentHeader()
		if err == nil && !fn(name, value) {
			return
		}
		if !it.MoveNext() {
			return
		}
	}
}

// PathFromURI strips the virtual origin from uri.
func PathFromURI(uri string) string {
	return strings.TrimPrefix(uri, Origin)
}

// OnWebResourceRequested services one intercepted request. Errors come from
// the native side only; dispatch failures are already turned into responses.
func (b *Bridge) OnWebResourceRequested(args ResourceRequestedArgs) error {
	raw := args.Request()

	uri, err := raw.URI()
	if err != nil {
		return err
	}
	m, err := raw.Method()
	if err != nil {
		return err
	}

	method, ok := models.ParseMethod(m)
	if !ok {
		b.log.Error("unsupported method", "method", m)
	}

	body, err := bridge.ReadBody(raw.Content())
	if err != nil {
		b.log.Warn("request body read failed", "uri", uri, "err", err)
	}

	var headers models.HeaderSource
	if h := raw.Headers(); h != nil {
		headers = headerView{h}
	}

	res := b.d.Dispatch(models.NewRequest(method, PathFromURI(uri), body, headers))

	native, err := b.env.CreateWebResourceResponse(
		bytes.NewReader(res.Data()),
		res.Status(),
		reason(res.Status()),
		bridge.ResponseHeaders(res),
	)
	if err != nil {
		return err
	}
	args.PutResponse(native)
	return nil
}

func reason(status int) string {
	if status == 200 {
		return "OK"
	}
	return "Error"
}

// OnWebMessageReceived takes the value of get_WebMessageAsJson. Content that
// posted a string (rather than an object) arrives as a JSON string literal,
// which is unwrapped once before dispatch.
func (b *Bridge) OnWebMessageReceived(messageJSON string) {
	raw := []byte(messageJSON)

	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		raw = []byte(inner)
	}
	b.d.HandleEvent(raw)
}

// Emit posts v to content as a web message.
func (b *Bridge) Emit(v any) error {
	if b.view == nil {
		return bridge.ErrNoView
	}
	payload, err := bridge.EncodeEvent(v)
	if err != nil {
		return err
	}
	return b.view.PostWebMessageAsJSON(string(payload))
}

// OnNavigationStarting cancels navigations that leave the app origin and
// opens them externally.
func (b *Bridge) OnNavigationStarting(args NavigationArgs) {
	if b.nav.Apply(args.URI()) == navigation.OpenExternal {
		args.PutCancel(true)
	}
}

// OnNewWindowRequested never opens a second window: app URIs are loaded in
// place, anything else goes to the OS.
func (b *Bridge) OnNewWindowRequested(args NavigationArgs) error {
	uri := args.URI()
	args.PutCancel(true)

	if b.nav.Apply(uri) != navigation.Allow {
		return nil
	}
	if b.view == nil {
		return bridge.ErrNoView
	}
	return b.view.Navigate(uri)
}
