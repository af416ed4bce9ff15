package cache

import (
	"bytes"
	"net/http"

	"github.com/diewo77/invoice-dashboard/httpx"
)

// CacheHeader reports HIT or MISS on cacheable routes.
const CacheHeader = "X-Cache"

type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// Middleware serves GET requests for the given view keys from c and stores
// successful renders. Other requests pass straight through.
func Middleware(c *ViewCache, viewKeys ...string) func(http.Handler) http.Handler {
	cacheable := make(map[string]bool, len(viewKeys))
	for _, k := range viewKeys {
		cacheable[k] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewKey := r.URL.Path
			if r.Method != http.MethodGet || !cacheable[viewKey] {
				next.ServeHTTP(w, r)
				return
			}

			variant := "html"
			if httpx.WantsJSON(r) {
				variant = "json"
			}
			key := RequestKey(r, variant)
			if page, ok := c.Get(key); ok {
				if page.ContentType != "" {
					w.Header().Set("Content-Type", page.ContentType)
				}
				w.Header().Set(CacheHeader, "HIT")
				w.WriteHeader(page.Status)
				_, _ = w.Write(page.Body)
				return
			}

			w.Header().Set(CacheHeader, "MISS")
			// a render that straddles an Invalidate must not be stored
			gen := c.Generation(viewKey)
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == http.StatusOK {
				c.SetIfCurrent(viewKey, key, gen, Page{
					Status:      rec.status,
					ContentType: w.Header().Get("Content-Type"),
					Body:        bytes.Clone(rec.buf.Bytes()),
				})
			}
		})
	}
}
