package dispatch

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/cjdenio/webbridge/pkg/assets"
	"github.com/cjdenio/webbridge/pkg/models"
	"github.com/cjdenio/webbridge/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T, r *router.Router) (*Dispatcher, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "style.css"), []byte("body{}"), 0644))
	return New(r, assets.NewCache(root, nil), nil), root
}

func get(path string, headers models.Headers) *models.Request {
	return models.NewRequest(models.MethodGet, path, nil, headers)
}

func TestDispatchRoute(t *testing.T) {
	calls := 0
	r := router.New().Get("/", func(req *models.Request) (models.Response, error) {
		calls++
		return models.NewText("home " + req.Query), nil
	})
	d, _ := newDispatcher(t, r)

	first := d.Dispatch(get("/?tab=1", nil))
	second := d.Dispatch(get("/?tab=1", nil))

	assert.Equal(t, 2, calls)
	assert.Equal(t, http.StatusOK, first.Status())
	assert.Equal(t, []byte("home tab=1"), first.Data())
	assert.NotSame(t, first, second)
}

func TestDispatchStaticFallbackIsMemoized(t *testing.T) {
	d, _ := newDispatcher(t, router.New())

	first := d.Dispatch(get("/style.css", nil))
	second := d.Dispatch(get("/style.css", nil))

	assert.Equal(t, "text/css", first.ContentType())
	assert.Equal(t, []byte("body{}"), first.Data())
	assert.Same(t, first, second)
}

func TestDispatchRouteWinsOverStatic(t *testing.T) {
	r := router.New().Get("/style.css", func(*models.Request) (models.Response, error) {
		return models.NewText("generated", models.WithContentType("text/css")), nil
	})
	d, _ := newDispatcher(t, r)

	assert.Equal(t, []byte("generated"), d.Dispatch(get("/style.css", nil)).Data())
}

func TestDispatchNotFoundNegotiation(t *testing.T) {
	d, _ := newDispatcher(t, router.New())

	res := d.Dispatch(get("/missing", models.Headers{"Accept": "application/json, text/plain"}))
	assert.Equal(t, http.StatusNotFound, res.Status())
	assert.Equal(t, models.ContentTypeJSON, res.ContentType())

	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Data(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Not Found: /missing", body["error"])

	res = d.Dispatch(get("/missing", nil))
	assert.Equal(t, http.StatusNotFound, res.Status())
	assert.Equal(t, models.ContentTypeText, res.ContentType())
	assert.NotContains(t, string(res.Data()), "success")
}

func TestDispatchHandlerFailures(t *testing.T) {
	r := router.New().
		Post("/err", func(*models.Request) (models.Response, error) {
			return nil, errors.New("boom")
		}).
		Post("/nil", func(*models.Request) (models.Response, error) {
			return nil, nil
		}).
		Post("/typed-nil", func(*models.Request) (models.Response, error) {
			var res *models.TextResponse
			return res, nil
		}).
		Post("/panic", func(*models.Request) (models.Response, error) {
			panic("kaboom")
		}).
		Post("/forbidden", func(*models.Request) (models.Response, error) {
			return nil, Errorf(http.StatusForbidden, "no access to %s", "x")
		})
	d, _ := newDispatcher(t, r)

	tests := []struct {
		path   string
		status int
		msg    string
	}{
		{"/err", http.StatusInternalServerError, "boom"},
		{"/nil", http.StatusInternalServerError, "Route handler returned null response"},
		{"/typed-nil", http.StatusInternalServerError, "Route handler returned null response"},
		{"/panic", http.StatusInternalServerError, "route handler panicked: kaboom"},
		{"/forbidden", http.StatusForbidden, "no access to x"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := models.NewRequest(models.MethodPost, tt.path, nil, models.Headers{"X-Requested-With": "XMLHttpRequest"})
			res := d.Dispatch(req)
			assert.Equal(t, tt.status, res.Status())

			var body errorBody
			require.NoError(t, json.Unmarshal(res.Data(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.msg, body.Error)

			req.Headers = nil
			res = d.Dispatch(req)
			assert.Equal(t, tt.status, res.Status())
			assert.Equal(t, tt.msg, string(res.Data()))
		})
	}
}

func TestDispatchUnknownMethodUsesGet(t *testing.T) {
	r := router.New().Get("/", func(*models.Request) (models.Response, error) {
		return models.NewText("ok"), nil
	})
	d, _ := newDispatcher(t, r)

	m, _ := models.ParseMethod("PATCH")
	res := d.Dispatch(models.NewRequest(m, "/", nil, nil))
	assert.Equal(t, []byte("ok"), res.Data())

	res = d.Dispatch(&models.Request{Method: models.Method(9), Path: "/"})
	assert.Equal(t, []byte("ok"), res.Data())
}

func TestDispatchNilRequest(t *testing.T) {
	d := New(nil, nil, nil)
	res := d.Dispatch(nil)
	assert.Equal(t, http.StatusNotFound, res.Status())
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		name    string
		headers models.Headers
		want    bool
	}{
		{"none", nil, false},
		{"accept json", models.Headers{"Accept": "application/json"}, true},
		{"accept html", models.Headers{"Accept": "text/html"}, false},
		{"fetch", models.Headers{"X-Requested-With": "Fetch"}, true},
		{"xhr lower key", models.Headers{"x-requested-with": "xmlhttprequest"}, true},
		{"other xrw", models.Headers{"X-Requested-With": "curl"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WantsJSON(get("/", tt.headers)))
		})
	}
}

func TestHandleEvent(t *testing.T) {
	var got *models.Event
	r := router.New().
		On("btn_click", func(ev *models.Event) { got = ev }).
		On("explode", func(*models.Event) { panic("nope") })
	d := New(r, nil, nil)

	assert.True(t, d.HandleEvent([]byte(`{"handler":"btn_click","message":"hi"}`)))
	require.NotNil(t, got)
	assert.Equal(t, "hi", got.Fields["message"])
	assert.Equal(t, "btn_click", got.Fields["handler"])

	got = nil
	assert.False(t, d.HandleEvent([]byte(`{"message":"hi"}`)))
	assert.False(t, d.HandleEvent([]byte(`{"handler":"unknown"}`)))
	assert.False(t, d.HandleEvent([]byte(`{{`)))
	assert.Nil(t, got)

	assert.NotPanics(t, func() {
		assert.False(t, d.HandleEvent([]byte(`{"handler":"explode"}`)))
	})
}
