// Package pagecache precaches the app shell into the key/value store and serves it cache-first.
package pagecache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"

	"taskReminder/internal/kvstore"
	"taskReminder/internal/logger"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const keyPrefix = "cache:"

type entry struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type Cache struct {
	store   kvstore.Store
	static  afero.Fs
	version string
	routes  []string
}

func New(store kvstore.Store, static afero.Fs, version string, routes []string) *Cache {
	return &Cache{store: store, static: static, version: version, routes: routes}
}

func (c *Cache) key(route string) string {
	return keyPrefix + c.version + ":" + route
}

// Install stores every precache route under the current version. All routes must resolve.
func (c *Cache) Install(ctx context.Context) error {
	for _, route := range c.routes {
		e, err := c.load(route)
		if err != nil {
			return fmt.Errorf("precaching %s: %w", route, err)
		}
		raw, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := c.store.Set(ctx, c.key(route), string(raw)); err != nil {
			return fmt.Errorf("storing %s: %w", route, err)
		}
	}
	logger.Info("PageCache: installed", zap.String("version", c.version), zap.Int("routes", len(c.routes)))
	return nil
}

// Activate removes entries that belong to any other version.
func (c *Cache) Activate(ctx context.Context) error {
	keys, err := c.store.Keys(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("listing cache keys: %w", err)
	}

	current := keyPrefix + c.version + ":"
	removed := 0
	for _, k := range keys {
		if strings.HasPrefix(k, current) {
			continue
		}
		if err := c.store.Delete(ctx, k); err != nil {
			return fmt.Errorf("deleting %s: %w", k, err)
		}
		removed++
	}
	if removed > 0 {
		logger.Info("PageCache: removed stale entries", zap.Int("count", removed))
	}
	return nil
}

// Middleware answers GET requests from the cache and passes everything else to next.
func (c *Cache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := c.store.Get(r.Context(), c.key(r.URL.Path))
		if err != nil {
			if !errors.Is(err, kvstore.ErrNotFound) {
				logger.Warn("PageCache: lookup failed", zap.String("path", r.URL.Path), zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}

		var e entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", e.ContentType)
		w.Header().Set("X-Cache", "HIT")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(e.Body)
	})
}

// FileServer serves the static directory as the network fallback.
func (c *Cache) FileServer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, err := c.load(r.URL.Path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", e.ContentType)
		_, _ = w.Write(e.Body)
	})
}

// load resolves a route to a file: the path itself, path.html, then path/index.html.
func (c *Cache) load(route string) (*entry, error) {
	clean := path.Clean("/" + route)
	candidates := []string{clean, clean + ".html", path.Join(clean, "index.html")}

	for _, name := range candidates {
		info, err := c.static.Stat(name)
		if err != nil || info.IsDir() {
			continue
		}
		body, err := afero.ReadFile(c.static, name)
		if err != nil {
			return nil, err
		}
		return &entry{ContentType: contentType(name, body), Body: body}, nil
	}
	return nil, fmt.Errorf("no file for route %s", route)
}

func contentType(name string, body []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(bytes.TrimSpace(body))
}
