// Package webkit adapts the dispatch core to a WebKitGTK web view: requests
// arrive through a registered "app" URI scheme, events through a script
// message handler, and outbound events are delivered by evaluating script.
//
// The interfaces here mirror the WebKit objects the native glue owns. The
// glue wraps its GObjects in them and forwards the signals.
package webkit

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cjdenio/webbridge/pkg/bridge"
	"github.com/cjdenio/webbridge/pkg/logging"
	"github.com/cjdenio/webbridge/pkg/models"
	"github.com/cjdenio/webbridge/pkg/navigation"
)

const (
	Scheme = "app"
	// StartURI is loaded when the view is first shown.
	StartURI = "app:///"
	// MessageHandler is the name registered with the user content manager;
	// content posts to window.webkit.messageHandlers.webbridge.
	MessageHandler = "webbridge"

	schemePrefix = "app://"
)

// MessageHeaders mirrors SoupMessageHeaders.
type MessageHeaders interface {
	GetOne(name string) (string, bool)
	Foreach(fn func(name, value string))
}

// SchemeResponse is what FinishWithResponse hands to WebKit.
type SchemeResponse struct {
	Status        int
	Reason        string
	ContentType   string
	ContentLength int64
	Headers       map[string]string
	Body          io.Reader
}

// SchemeRequest mirrors WebKitURISchemeRequest. HTTPHeaders and HTTPBody
// may return nil on WebKit builds that do not expose them.
type SchemeRequest interface {
	URI() string
	HTTPMethod() string
	HTTPHeaders() MessageHeaders
	HTTPBody() io.Reader
	FinishWithResponse(res *SchemeResponse)
	FinishError(code int, message string)
}

// WebView is the part of WebKitWebView the bridge drives.
type WebView interface {
	EvaluateJavaScript(script string) error
	LoadURI(uri string)
}

// PolicyDecision mirrors WebKitPolicyDecision.
type PolicyDecision interface {
	Use()
	Ignore()
}

type DecisionType int

const (
	NavigationAction DecisionType = iota
	NewWindowAction
	ResponseDecision
)

type Bridge struct {
	view WebView
	nav  *navigation.Policy
	d    bridge.Dispatcher
	log  *slog.Logger
}

// New creates a bridge for view. A nil opener uses the system handler.
func New(view WebView, opener navigation.Opener, log *slog.Logger) *Bridge {
	log = logging.OrDiscard(log).With("bridge", "webkit")
	return &Bridge{
		view: view,
		nav:  navigation.NewPolicy(opener, log, StartURI),
		log:  log,
	}
}

func (b *Bridge) Name() string { return "webkit" }

func (b *Bridge) Attach(d bridge.Dispatcher) { b.d = d }

// Start points the view at the app's start page.
func (b *Bridge) Start() {
	if b.view != nil {
		b.view.LoadURI(StartURI)
	}
}

type soupHeaders struct{ h MessageHeaders }

func (s soupHeaders) Lookup(name string) (string, bool) { return s.h.GetOne(name) }

func (s soupHeaders) Range(fn func(name, value string) bool) {
	done := false
	s.h.Foreach(func(name, value string) {
		if !done && !fn(name, value) {
			done = true
		}
	})
}

// HandleSchemeRequest services one app:// request. It always finishes the
// request exactly once.
func (b *Bridge) HandleSchemeRequest(raw SchemeRequest) {
	uri := raw.URI()
	if uri == "" {
		raw.FinishError(http.StatusNotFound, "Not Found")
		return
	}

	method, ok := models.ParseMethod(raw.HTTPMethod())
	if !ok {
		b.log.Error("unsupported method", "method", raw.HTTPMethod())
	}

	var headers models.HeaderSource
	if h := raw.HTTPHeaders(); h != nil {
		headers = soupHeaders{h}
	}

	body, err := bridge.ReadBody(raw.HTTPBody())
	if err != nil {
		b.log.Warn("request body read failed", "uri", uri, "err", err)
	}

	req := models.NewRequest(method, strings.TrimPrefix(uri, schemePrefix), body, headers)
	res := b.d.Dispatch(req)

	raw.FinishWithResponse(&SchemeResponse{
		Status:        res.Status(),
		Reason:        bridge.ReasonPhrase(res.Status()),
		ContentType:   bridge.ContentType(res),
		ContentLength: int64(res.Size()),
		Headers:       map[string]string{"Content-Length": strconv.Itoa(res.Size())},
		Body:          bytes.NewReader(res.Data()),
	})
}

// HandleScriptMessage receives a "script-message-received" value. Only
// string values are accepted; the JS side serializes before posting.
func (b *Bridge) HandleScriptMessage(value any) {
	s, ok := value.(string)
	if !ok {
		b.log.Debug("dropping non-string script message")
		return
	}
	b.d.HandleEvent([]byte(s))
}

// Emit delivers v to content by calling the receiver function.
func (b *Bridge) Emit(v any) error {
	if b.view == nil {
		return bridge.ErrNoView
	}
	payload, err := bridge.EncodeEvent(v)
	if err != nil {
		return err
	}
	return b.view.EvaluateJavaScript(bridge.ReceiverScript(payload))
}

// DecidePolicy handles "decide-policy". It returns true when it made the
// decision and false to let WebKit apply its default.
func (b *Bridge) DecidePolicy(kind DecisionType, uri string, decision PolicyDecision) bool {
	if kind != NavigationAction && kind != NewWindowAction {
		return false
	}

	switch b.nav.Apply(uri) {
	case navigation.Allow:
		decision.Use()
		return true
	case navigation.OpenExternal:
		decision.Ignore()
		return true
	default:
		return false
	}
}

// HandleCreate handles the "create" signal for new-window requests. App URIs
// load in the existing view; no new view is ever created.
func (b *Bridge) HandleCreate(uri string) {
	if b.nav.Apply(uri) == navigation.Allow && b.view != nil {
		b.view.LoadURI(uri)
	}
}
