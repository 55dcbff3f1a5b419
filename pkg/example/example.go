// Package example is a small demo application: a few rendered pages, a JSON
// endpoint and two event handlers.
package example

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cjdenio/webbridge/pkg/dispatch"
	"github.com/cjdenio/webbridge/pkg/logging"
	"github.com/cjdenio/webbridge/pkg/models"
	"github.com/cjdenio/webbridge/pkg/router"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	appPage   = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/app.html"))
	aboutPage = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/about.html"))
)

// Emitter sends events to web content.
type Emitter interface {
	Emit(v any) error
}

type handlers struct {
	r    *router.Router
	emit Emitter
	log  *slog.Logger
}

// Register adds the demo routes and events to r.
func Register(r *router.Router, emit Emitter, log *slog.Logger) {
	h := &handlers{r: r, emit: emit, log: logging.OrDiscard(log)}

	r.Get("/", h.page("Main page")).
		Get("/secondPage", h.page("Second page")).
		Get("/about", h.about).
		Post("/api/echo", h.echo).
		On("btn_click", h.buttonClick).
		On("api-demo", h.apiDemo)
}

func render(t *template.Template, data any) (models.Response, error) {
	var sb strings.Builder
	if err := t.ExecuteTemplate(&sb, "layout", data); err != nil {
		return nil, err
	}
	return models.NewText(sb.String()), nil
}

func (h *handlers) page(heading string) router.RouteHandler {
	return func(*models.Request) (models.Response, error) {
		return render(appPage, map[string]string{"Title": heading, "Heading": heading})
	}
}

func (h *handlers) about(*models.Request) (models.Response, error) {
	var routes []string
	for _, m := range []models.Method{models.MethodGet, models.MethodPost, models.MethodPut, models.MethodDelete} {
		for _, p := range h.r.Paths(m) {
			routes = append(routes, m.String()+" "+p)
		}
	}
	return render(aboutPage, map[string]any{"Title": "About", "Routes": routes})
}

type echoResponse struct {
	Success bool   `json:"success"`
	Query   string `json:"query,omitempty"`
	Body    string `json:"body"`
}

func (h *handlers) echo(req *models.Request) (models.Response, error) {
	if len(req.Body) == 0 {
		return nil, dispatch.Errorf(http.StatusBadRequest, "empty body")
	}
	return models.NewJSON(echoResponse{Success: true, Query: req.Query, Body: string(req.Body)})
}

func (h *handlers) buttonClick(ev *models.Event) {
	msg, ok := ev.String("message")
	if !ok {
		h.log.Warn("btn_click: payload has no message")
		return
	}
	h.log.Info("button clicked", "message", msg)
}

// apiDemo answers every api-demo event with an api-demo event of its own.
func (h *handlers) apiDemo(ev *models.Event) {
	reply := map[string]string{"handler": "api-demo"}
	if msg, ok := ev.String("message"); ok {
		h.log.Info("api-demo", "message", msg)
		reply["message"] = msg
	} else {
		h.log.Warn("api-demo: payload has no 'message' string")
		reply["error"] = "invalid payload"
	}

	if err := h.emit.Emit(reply); err != nil {
		h.log.Warn("api-demo: reply not delivered", "err", err)
	}
}
