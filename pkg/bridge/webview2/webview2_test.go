package webview2

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cjdenio/webbridge/pkg/assets"
	"github.com/cjdenio/webbridge/pkg/bridge"
	"github.com/cjdenio/webbridge/pkg/dispatch"
	"github.com/cjdenio/webbridge/pkg/models"
	"github.com/cjdenio/webbridge/pkg/navigation"
	"github.com/cjdenio/webbridge/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type header struct{ name, value string }

// fakeHeaders behaves like the COM collection: GetHeader matches the exact
// name only, the iterator walks headers in insertion order.
type fakeHeaders []header

func (f fakeHeaders) GetHeader(name string) (string, error) {
	for _, h := range f {
		if h.name == name {
			return h.value, nil
		}
	}
	return "", errors.New("E_NOT_FOUND")
}

func (f fakeHeaders) GetIterator() (HeaderIterator, error) {
	return &fakeIterator{h: f}, nil
}

type fakeIterator struct {
	h fakeHeaders
	i int
}

func (it *fakeIterator) HasCurrentHeader() bool { return it.i < len(it.h) }

func (it *fakeIterator) GetCurrentHeader() (string, string, error) {
	return it.h[it.i].name, it.h[it.i].value, nil
}

func (it *fakeIterator) MoveNext() bool {
	it.i++
	return it.i < len(it.h)
}

type fakeRequest struct {
	uri     string
	method  string
	headers RequestHeaders
	content io.Reader
}

func (f *fakeRequest) URI() (string, error)    { return f.uri, nil }
func (f *fakeRequest) Method() (string, error) { return f.method, nil }
func (f *fakeRequest) Headers() RequestHeaders { return f.headers }
func (f *fakeRequest) Content() io.Reader      { return f.content }

type nativeResponse struct {
	body    string
	status  int
	reason  string
	headers string
}

type fakeEnv struct{ fail bool }

func (e *fakeEnv) CreateWebResourceResponse(content io.Reader, status int, reason, headers string) (WebResourceResponse, error) {
	if e.fail {
		return nil, errors.New("E_FAIL")
	}
	b, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	return &nativeResponse{body: string(b), status: status, reason: reason, headers: headers}, nil
}

type fakeArgs struct {
	req *fakeRequest
	res WebResourceResponse
}

func (a *fakeArgs) Request() WebResourceRequest         { return a.req }
func (a *fakeArgs) PutResponse(res WebResourceResponse) { a.res = res }

func (a *fakeArgs) native(t *testing.T) *nativeResponse {
	t.Helper()
	require.NotNil(t, a.res)
	return a.res.(*nativeResponse)
}

type fakeView struct {
	posted    []string
	navigated []string
}

func (v *fakeView) PostWebMessageAsJSON(json string) error {
	v.posted = append(v.posted, json)
	return nil
}

func (v *fakeView) Navigate(uri string) error {
	v.navigated = append(v.navigated, uri)
	return nil
}

type fakeNav struct {
	uri       string
	cancelled bool
}

func (n *fakeNav) URI() string           { return n.uri }
func (n *fakeNav) PutCancel(cancel bool) { n.cancelled = cancel }

func newBridge(t *testing.T, r *router.Router) (*Bridge, *fakeEnv, *fakeView, *[]string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "logo.png"), []byte("\x89PNG"), 0644))

	env, view := &fakeEnv{}, &fakeView{}
	opened := &[]string{}
	b := New(env, view, navigation.OpenerFunc(func(uri string) error {
		*opened = append(*opened, uri)
		return nil
	}), nil)
	b.Attach(dispatch.New(r, assets.NewCache(root, nil), nil))
	return b, env, view, opened
}

func TestPathFromURI(t *testing.T) {
	assert.Equal(t, "/about?x=1", PathFromURI("file://localhost/about?x=1"))
	assert.Equal(t, "/", PathFromURI(StartURI))
	assert.Equal(t, "https://x", PathFromURI("https://x"))
}

func TestResourceRequestedRoute(t *testing.T) {
	var seen *models.Request
	r := router.New().Put("/api/item", func(req *models.Request) (models.Response, error) {
		seen = req
		return models.NewText("saved", models.WithContentType("text/plain")), nil
	})
	b, _, _, _ := newBridge(t, r)

	args := &fakeArgs{req: &fakeRequest{
		uri:     "file://localhost/api/item?id=7",
		method:  "PUT",
		headers: fakeHeaders{{"x-requested-with", "fetch"}},
		content: strings.NewReader(`{"name":"a"}`),
	}}
	require.NoError(t, b.OnWebResourceRequested(args))

	require.NotNil(t, seen)
	assert.Equal(t, "/api/item", seen.Path)
	assert.Equal(t, "id=7", seen.Query)
	assert.Equal(t, []byte(`{"name":"a"}`), seen.Body)
	assert.Equal(t, "fetch", seen.Header("X-Requested-With"))

	res := args.native(t)
	assert.Equal(t, "saved", res.body)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "OK", res.reason)
	assert.Equal(t, "Content-Type: text/plain\r\nContent-Length: 5", res.headers)
}

func TestResourceRequestedStaticAndErrors(t *testing.T) {
	r := router.New().Get("/boom", func(*models.Request) (models.Response, error) {
		return nil, errors.New("boom")
	})
	b, env, _, _ := newBridge(t, r)

	args := &fakeArgs{req: &fakeRequest{uri: "file://localhost/logo.png", method: "GET"}}
	require.NoError(t, b.OnWebResourceRequested(args))
	assert.Equal(t, "Content-Type: image/png\r\nContent-Length: 4", args.native(t).headers)

	args = &fakeArgs{req: &fakeRequest{
		uri:     "file://localhost/boom",
		method:  "GET",
		headers: fakeHeaders{{"Accept", "application/json"}},
	}}
	require.NoError(t, b.OnWebResourceRequested(args))
	res := args.native(t)
	assert.Equal(t, http.StatusInternalServerError, res.status)
	assert.Equal(t, "Error", res.reason)
	assert.JSONEq(t, `{"success":false,"error":"boom"}`, res.body)

	args = &fakeArgs{req: &fakeRequest{uri: "file://localhost/missing", method: "OPTIONS"}}
	require.NoError(t, b.OnWebResourceRequested(args))
	assert.Equal(t, http.StatusNotFound, args.native(t).status)
	assert.Equal(t, "Not Found: /missing", args.native(t).body)

	env.fail = true
	args = &fakeArgs{req: &fakeRequest{uri: "file://localhost/logo.png", method: "GET"}}
	assert.EqualError(t, b.OnWebResourceRequested(args), "E_FAIL")
	assert.Nil(t, args.res)
}

func TestWebMessage(t *testing.T) {
	var got []string
	r := router.New().On("btn_click", func(ev *models.Event) {
		msg, _ := ev.String("message")
		got = append(got, msg)
	})
	b, _, _, _ := newBridge(t, r)

	b.OnWebMessageReceived(`{"handler":"btn_click","message":"object"}`)
	b.OnWebMessageReceived(`"{\"handler\":\"btn_click\",\"message\":\"string\"}"`)
	b.OnWebMessageReceived(`{"message":"ignored"}`)
	b.OnWebMessageReceived(`42`)

	assert.Equal(t, []string{"object", "string"}, got)
}

func TestEmit(t *testing.T) {
	b, _, view, _ := newBridge(t, router.New())

	require.NoError(t, b.Emit(map[string]any{"handler": "api-demo", "n": 1}))
	assert.Equal(t, []string{`{"handler":"api-demo","n":1}`}, view.posted)

	assert.ErrorIs(t, New(nil, nil, nil, nil).Emit(1), bridge.ErrNoView)
}

func TestNavigation(t *testing.T) {
	b, _, view, opened := newBridge(t, router.New())

	nav := &fakeNav{uri: "file://localhost/about"}
	b.OnNavigationStarting(nav)
	assert.False(t, nav.cancelled)

	nav = &fakeNav{uri: "https://example.com"}
	b.OnNavigationStarting(nav)
	assert.True(t, nav.cancelled)

	nav = &fakeNav{uri: "file://localhost/secondPage"}
	require.NoError(t, b.OnNewWindowRequested(nav))
	assert.True(t, nav.cancelled)

	nav = &fakeNav{uri: "https://go.dev"}
	require.NoError(t, b.OnNewWindowRequested(nav))
	assert.True(t, nav.cancelled)

	require.NoError(t, b.Start())
	assert.Equal(t, []string{"file://localhost/secondPage", StartURI}, view.navigated)
	assert.Equal(t, []string{"https://example.com", "https://go.dev"}, *opened)
}
