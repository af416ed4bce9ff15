package view

import (
	"bytes"
	"crypto/sha1"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/diewo77/invoice-dashboard/auth"
	"github.com/diewo77/invoice-dashboard/internal/models"
	"github.com/diewo77/invoice-dashboard/internal/money"
	"github.com/diewo77/invoice-dashboard/validation"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var (
	devMode  bool
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}

	assetHashes = struct {
		sync.Mutex
		m map[string]string
	}{m: map[string]string{}}
)

// SetDevMode disables the template cache so every render re-parses.
func SetDevMode(on bool) { devMode = on }

// ResetForTests clears the template cache.
func ResetForTests() {
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
}

// Static returns the embedded static assets rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatCurrency": money.FormatCurrency,
		"formatDate":     FormatDate,
		"year":           func() int { return time.Now().Year() },
		"asset":          asset,
		"add":            func(a, b int) int { return a + b },
		"pageURL":        PageURL,
		"percent": func(v, top int64) int64 {
			if top <= 0 {
				return 0
			}
			return v * 100 / top
		},
		"fieldErrors": func(errs validation.Violations, field string) []string {
			return errs[field]
		},
		"isPaid": func(s models.InvoiceStatus) bool { return s == models.InvoiceStatusPaid },
		// dict creates a map from key-value pairs for passing to sub-templates.
		// Usage: {{ template "partial" (dict "Key1" val1 "Key2" val2) }}
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

// FormatDate renders an ISO calendar date as "Jan 2, 2006". Anything that
// does not parse is returned unchanged.
func FormatDate(iso string) string {
	t, err := time.Parse(models.DateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format("Jan 2, 2006")
}

// PageURL links to page of the invoice list, keeping the search query.
func PageURL(query string, page any) string {
	v := url.Values{}
	if query != "" {
		v.Set("query", query)
	}
	v.Set("page", fmt.Sprint(page))
	return "?" + v.Encode()
}

// asset returns /static/<rel>?v=<hash> for cache busting.
func asset(rel string) string {
	assetHashes.Lock()
	defer assetHashes.Unlock()
	if h, ok := assetHashes.m[rel]; ok {
		return "/static/" + rel + "?v=" + h
	}
	b, err := fs.ReadFile(staticFS, "static/"+rel)
	if err != nil {
		return "/static/" + rel
	}
	sum := sha1.Sum(b)
	h := fmt.Sprintf("%x", sum[:8])
	assetHashes.m[rel] = h
	return "/static/" + rel + "?v=" + h
}

func parse(name string) (*template.Template, error) {
	if !devMode {
		tplCache.RLock()
		t, ok := tplCache.m[name]
		tplCache.RUnlock()
		if ok {
			return t, nil
		}
	}
	t, err := template.New("layout.html").Funcs(Funcs()).ParseFS(templateFS,
		"templates/layout.html",
		"templates/partials/*.html",
		"templates/"+name,
	)
	if err != nil {
		return nil, err
	}
	if !devMode {
		tplCache.Lock()
		tplCache.m[name] = t
		tplCache.Unlock()
	}
	return t, nil
}

// Render executes the page template name inside the layout with status 200.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	return RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code. Nothing is written
// if the template fails.
func RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	if _, exists := data["IsLoggedIn"]; !exists {
		data["IsLoggedIn"] = auth.IsAuthenticated(r.Context())
	}
	if _, exists := data["Path"]; !exists {
		data["Path"] = r.URL.Path
	}

	t, err := parse(name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
