package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/invoice-dashboard/internal/logger"
	"github.com/diewo77/invoice-dashboard/internal/services"
)

type DashboardHandler struct {
	queries     *services.InvoiceQueryService
	latestLimit int
}

func NewDashboardHandler(queries *services.InvoiceQueryService, latestLimit int) *DashboardHandler {
	return &DashboardHandler{queries: queries, latestLimit: latestLimit}
}

func (h *DashboardHandler) Home(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, "home.html", nil)
}

// Overview shows the cards, the revenue chart and the latest invoices.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	revenue, err := h.queries.FetchRevenue(ctx)
	if err != nil {
		log.Warn("dashboard revenue", zap.Error(err))
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	latest, err := h.queries.FetchLatestInvoices(ctx, h.latestLimit)
	if err != nil {
		log.Warn("dashboard latest invoices", zap.Error(err))
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	cards, err := h.queries.FetchCardSummary(ctx)
	if err != nil {
		log.Warn("dashboard cards", zap.Error(err))
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	labels, top := services.GenerateYAxis(revenue)
	render(w, r, http.StatusOK, "dashboard.html", map[string]any{
		"Cards":   cards,
		"Revenue": revenue,
		"YAxis":   labels,
		"Top":     top,
		"Latest":  latest,
	})
}
