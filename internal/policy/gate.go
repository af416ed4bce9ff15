// Package policy decides, ahead of routing, whether a request may reach the
// dashboard. The only distinction it knows is signed in or not.
package policy

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/diewo77/invoice-dashboard/auth"
	"github.com/diewo77/invoice-dashboard/httpx"
)

// Decision is the outcome of evaluating a request path.
type Decision int

const (
	// Allow lets the request through to the router.
	Allow Decision = iota
	// DenyToLogin sends an anonymous caller to the sign-in page.
	DenyToLogin
	// RedirectToDashboard sends a signed-in caller away from public pages.
	RedirectToDashboard
)

func (d Decision) String() string {
	switch d {
	case DenyToLogin:
		return "deny"
	case RedirectToDashboard:
		return "redirect"
	default:
		return "allow"
	}
}

const (
	// ProtectedPrefix guards every dashboard route.
	ProtectedPrefix = "/dashboard"
	// LoginPath is the sign-in page.
	LoginPath = "/login"
)

// Decide applies the gate table:
//
//	under /dashboard, anonymous     -> DenyToLogin
//	under /dashboard, authenticated -> Allow
//	elsewhere, authenticated        -> RedirectToDashboard
//	elsewhere, anonymous            -> Allow
func Decide(path string, authenticated bool) Decision {
	protected := IsProtected(path)
	switch {
	case protected && !authenticated:
		return DenyToLogin
	case !protected && authenticated:
		return RedirectToDashboard
	default:
		return Allow
	}
}

// IsProtected reports whether path is the dashboard root or below it.
// "/dashboards" is not protected.
func IsProtected(path string) bool {
	if !strings.HasPrefix(path, ProtectedPrefix) {
		return false
	}
	rest := path[len(ProtectedPrefix):]
	return rest == "" || rest[0] == '/'
}

// excluded requests bypass the gate entirely: static assets, health probes
// and logout, which a signed-in user must be able to reach.
func excluded(r *http.Request) bool {
	p := r.URL.Path
	switch {
	case strings.HasPrefix(p, "/static/"):
		return true
	case p == "/health" || p == "/healthz":
		return true
	case p == "/logout" && r.Method == http.MethodPost:
		return true
	}
	return false
}

// SessionGate enforces Decide before the router runs. It expects
// auth.Manager.Middleware to have populated the request context.
type SessionGate struct {
	next http.Handler
}

// Middleware wraps next with the session gate.
func Middleware(next http.Handler) http.Handler {
	return &SessionGate{next: next}
}

func (g *SessionGate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if excluded(r) {
		g.next.ServeHTTP(w, r)
		return
	}

	switch Decide(r.URL.Path, auth.IsAuthenticated(r.Context())) {
	case DenyToLogin:
		if httpx.WantsJSON(r) {
			httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
	case RedirectToDashboard:
		http.Redirect(w, r, ProtectedPrefix, http.StatusSeeOther)
	default:
		g.next.ServeHTTP(w, r)
	}
}

// LoginURL builds the sign-in URL that returns to callback afterwards.
func LoginURL(callback string) string {
	if callback == "" {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"callbackUrl": {callback}}.Encode()
}

// SafeCallback returns target when it is a local dashboard path, else the
// dashboard root. It keeps the login redirect from leaving the site.
func SafeCallback(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" || strings.HasPrefix(target, "//") || !IsProtected(u.Path) {
		return ProtectedPrefix
	}
	return u.RequestURI()
}
