package assets

import (
	"path"
	"strings"

	"github.com/cjdenio/webbridge/pkg/models"
)

// Kind selects which response variant a file is loaded into.
type Kind int

const (
	KindBinary Kind = iota
	KindText
	KindJSON
)

type MIME struct {
	ContentType string
	Kind        Kind
}

var mimeTypes = map[string]MIME{
	"html": {"text/html", KindText},
	"css":  {"text/css", KindText},
	"js":   {"application/javascript", KindText},
	"mjs":  {"application/javascript", KindText},
	"txt":  {"text/plain", KindText},
	"svg":  {"image/svg+xml", KindText},
	"json": {"application/json", KindJSON},
	"map":  {"application/json", KindJSON},

	"jpg":   {"image/jpeg", KindBinary},
	"jpeg":  {"image/jpeg", KindBinary},
	"png":   {"image/png", KindBinary},
	"gif":   {"image/gif", KindBinary},
	"webp":  {"image/webp", KindBinary},
	"ico":   {"image/x-icon", KindBinary},
	"woff":  {"font/woff", KindBinary},
	"woff2": {"font/woff2", KindBinary},
	"wasm":  {"application/wasm", KindBinary},
}

// LookupMIME returns the MIME entry for a lower-cased extension without the
// leading dot. Unknown extensions are served as octet-stream binaries.
func LookupMIME(ext string) MIME {
	if m, ok := mimeTypes[ext]; ok {
		return m
	}
	return MIME{ContentType: models.ContentTypeBinary, Kind: KindBinary}
}

// Extension returns the lower-cased extension of the last path segment, or
// "" if it has none. Any query string is ignored.
func Extension(p string) string {
	p, _ = models.SplitURI(p)
	ext := path.Ext(p)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
