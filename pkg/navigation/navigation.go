package navigation

import (
	"log/slog"
	"strings"

	"github.com/cjdenio/webbridge/pkg/logging"
	"github.com/pkg/browser"
)

type Decision int

const (
	// Allow lets the view load the URI itself.
	Allow Decision = iota
	// OpenExternal hands the URI to the OS and cancels the in-view navigation.
	OpenExternal
	// Ignore is for empty URIs; the transport keeps its default behaviour.
	Ignore
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case OpenExternal:
		return "open-external"
	default:
		return "ignore"
	}
}

type Opener interface {
	Open(uri string) error
}

type OpenerFunc func(uri string) error

func (f OpenerFunc) Open(uri string) error { return f(uri) }

// SystemOpener opens URIs with the desktop's default handler.
var SystemOpener Opener = OpenerFunc(browser.OpenURL)

// Policy decides where a navigation goes. URIs under one of the app's own
// prefixes stay in the view; anything else is opened externally.
type Policy struct {
	prefixes []string
	opener   Opener
	log      *slog.Logger
}

func NewPolicy(opener Opener, log *slog.Logger, appPrefixes ...string) *Policy {
	if opener == nil {
		opener = SystemOpener
	}
	return &Policy{prefixes: appPrefixes, opener: opener, log: logging.OrDiscard(log)}
}

func (p *Policy) Decide(uri string) Decision {
	if uri == "" {
		return Ignore
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(uri, prefix) {
			return Allow
		}
	}
	return OpenExternal
}

// Apply decides and, for external URIs, runs the opener. It returns the
// decision so the caller can use or cancel the native navigation.
func (p *Policy) Apply(uri string) Decision {
	d := p.Decide(uri)
	if d == OpenExternal {
		if err := p.opener.Open(uri); err != nil {
			p.log.Error("failed to open external uri", "uri", uri, "err", err)
		} else {
			p.log.Info("opened external uri", "uri", uri)
		}
	}
	return d
}
