package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/diewo77/invoice-dashboard/auth"
	"github.com/diewo77/invoice-dashboard/httpx"
	"github.com/diewo77/invoice-dashboard/internal/logger"
	"github.com/diewo77/invoice-dashboard/internal/policy"
	"github.com/diewo77/invoice-dashboard/internal/services"
)

// MsgInvalidCredentials is the only sign-in failure shown to users.
const MsgInvalidCredentials = "Invalid credentials."

type AuthHandler struct {
	verifier *services.CredentialVerifier
	sessions *auth.Manager
}

func NewAuthHandler(verifier *services.CredentialVerifier, sessions *auth.Manager) *AuthHandler {
	return &AuthHandler{verifier: verifier, sessions: sessions}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		render(w, r, http.StatusOK, "login.html", map[string]any{
			"CallbackURL": policy.SafeCallback(r.URL.Query().Get("callbackUrl")),
		})
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	callback := policy.SafeCallback(r.FormValue("redirectTo"))
	log := logger.FromContext(r.Context())

	user, err := h.verifier.Verify(r.Context(), email, password)
	if err != nil {
		reason := "no_match"
		if errors.Is(err, services.ErrCredentialLookup) {
			reason = "lookup_failed"
		}
		log.Warn("login failed", zap.String("email", email), zap.String("reason", reason))
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusUnauthorized, MsgInvalidCredentials, nil)
			return
		}
		render(w, r, http.StatusOK, "login.html", map[string]any{
			"Email":       email,
			"Error":       MsgInvalidCredentials,
			"CallbackURL": callback,
		})
		return
	}

	if err := h.sessions.CreateSession(w, user.ID); err != nil {
		log.Error("create session", zap.String("user_id", user.ID), zap.Error(err))
		renderError(w, r, http.StatusInternalServerError, msgSomethingWrong)
		return
	}
	log.Info("login succeeded", zap.String("user_id", user.ID))
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]string{"redirect": callback})
		return
	}
	http.Redirect(w, r, callback, http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
