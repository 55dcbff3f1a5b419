package assets

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/cjdenio/webbridge/pkg/logging"
	"github.com/cjdenio/webbridge/pkg/models"
)

// Cache resolves paths under a static root into responses. A file is read
// once; after that the same Response value is returned for the life of the
// cache. Misses are not remembered, so a file that shows up later is found
// on the next request.
type Cache struct {
	root string
	log  *slog.Logger

	mu      sync.RWMutex
	entries map[string]models.Response
}

func NewCache(root string, log *slog.Logger) *Cache {
	return &Cache{
		root:    root,
		log:     logging.OrDiscard(log),
		entries: make(map[string]models.Response),
	}
}

func (c *Cache) Root() string { return c.root }

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Resolve returns the response for p, loading it from disk on first use.
// ok is false when the file cannot be read.
func (c *Cache) Resolve(p string) (res models.Response, ok bool) {
	c.mu.RLock()
	res, ok = c.entries[p]
	c.mu.RUnlock()
	if ok {
		return res, true
	}

	res, err := c.load(p)
	if err != nil {
		c.log.Debug("static file miss", "path", p, "err", err)
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another goroutine may have loaded it meanwhile; keep the first one so
	// every caller sees the same value.
	if existing, ok := c.entries[p]; ok {
		return existing, true
	}
	c.entries[p] = res
	return res, true
}

// Preload resolves every path up front. Missing files are reported but do
// not stop the others from loading.
func (c *Cache) Preload(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if _, ok := c.Resolve(p); !ok {
			errs = append(errs, fmt.Errorf("preload %s: not found under %s", p, c.root))
		}
	}
	return errors.Join(errs...)
}

func (c *Cache) load(p string) (models.Response, error) {
	clean, _ := models.SplitURI(p)
	// Clean against "/" so ".." can never climb out of root.
	clean = path.Clean("/" + clean)

	b, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(clean)))
	if err != nil {
		return nil, err
	}

	mime := LookupMIME(Extension(clean))
	switch mime.Kind {
	case KindJSON:
		return models.NewRawJSON(b, models.WithContentType(mime.ContentType)), nil
	case KindText:
		return models.NewText(string(b), models.WithContentType(mime.ContentType)), nil
	default:
		return models.NewBinary(b, models.WithContentType(mime.ContentType)), nil
	}
}
