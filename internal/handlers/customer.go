package handlers

import (
	"net/http"

	"github.com/diewo77/invoice-dashboard/httpx"
	"github.com/diewo77/invoice-dashboard/internal/search"
	"github.com/diewo77/invoice-dashboard/internal/services"
)

type CustomerHandler struct {
	queries *services.InvoiceQueryService
}

func NewCustomerHandler(queries *services.InvoiceQueryService) *CustomerHandler {
	return &CustomerHandler{queries: queries}
}

func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get(search.QueryKey)
	customers, err := h.queries.FetchFilteredCustomers(r.Context(), query)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"customers": customers, "query": query})
		return
	}
	render(w, r, http.StatusOK, "customers.html", map[string]any{
		"Customers": customers,
		"Query":     query,
	})
}
