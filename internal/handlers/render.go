package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/invoice-dashboard/httpx"
	"github.com/diewo77/invoice-dashboard/internal/logger"
	"github.com/diewo77/invoice-dashboard/view"
)

const msgSomethingWrong = "Something went wrong!"

func render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if err := view.RenderStatus(w, r, status, name, data); err != nil {
		logger.FromContext(r.Context()).Error("render template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// renderError answers with the error page, or a JSON error for API clients.
func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, status, message, nil)
		return
	}
	title := msgSomethingWrong
	if status == http.StatusNotFound {
		title = "404 Not Found"
	}
	render(w, r, status, "error.html", map[string]any{
		"Title":   title,
		"Message": message,
		"Back":    "/dashboard/invoices",
	})
}
