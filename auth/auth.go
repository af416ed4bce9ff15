// Package auth issues and reads the signed session cookie and exposes the
// signed-in user id through the request context.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const userIDCtxKey = ctxKey("userID")

// ErrInvalidSession is returned for tokens that fail signature, expiry or
// claim checks.
var ErrInvalidSession = errors.New("auth: invalid session")

// UserVerifier reports whether a session's user still exists. A nil
// verifier accepts every well-signed session.
type UserVerifier func(ctx context.Context, userID string) bool

// Config holds the session cookie settings.
type Config struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// Claims is the JWT payload stored in the session cookie.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Manager signs, parses and clears session cookies.
type Manager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	verifier   UserVerifier
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithVerifier sets the callback used to drop sessions of deleted users.
func WithVerifier(v UserVerifier) Option {
	return func(m *Manager) { m.verifier = v }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager from cfg. Zero TTL means 14 days and an empty
// cookie name means "session".
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		secret:     []byte(cfg.Secret),
		ttl:        cfg.TTL,
		cookieName: cfg.CookieName,
		secure:     cfg.Secure,
		now:        time.Now,
	}
	if m.ttl <= 0 {
		m.ttl = 14 * 24 * time.Hour
	}
	if m.cookieName == "" {
		m.cookieName = "session"
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue returns a signed token for userID.
func (m *Manager) Issue(userID string) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse validates a token and returns its claims.
func (m *Manager) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// CreateSession sets the signed session cookie for userID.
func (m *Manager) CreateSession(w http.ResponseWriter, userID string) error {
	token, err := m.Issue(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  m.now().Add(m.ttl),
	})
	return nil
}

// ClearSession deletes the session cookie.
func (m *Manager) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ParseSession reads the cookie and returns the user id it carries. present
// reports whether a cookie was sent at all; ok whether it validated.
func (m *Manager) ParseSession(r *http.Request) (userID string, present, ok bool) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return "", false, false
	}
	claims, err := m.Parse(c.Value)
	if err != nil {
		return "", true, false
	}
	return claims.UserID, true, true
}

// Middleware attaches the user id to the request context when the session
// cookie is valid and its user still exists. Invalid or stale cookies are
// cleared and the request continues anonymously.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, present, ok := m.ParseSession(r)
		if ok && m.verifier != nil && !m.verifier(r.Context(), uid) {
			ok = false
		}
		switch {
		case ok:
			r = r.WithContext(WithUserID(r.Context(), uid))
		case present:
			m.ClearSession(w)
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID stores user id in context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDCtxKey).(string)
	return id, ok && id != ""
}

// IsAuthenticated reports whether ctx carries a signed-in user.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := UserIDFromContext(ctx)
	return ok
}
