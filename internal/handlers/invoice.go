package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/diewo77/invoice-dashboard/httpx"
	"github.com/diewo77/invoice-dashboard/internal/logger"
	"github.com/diewo77/invoice-dashboard/internal/models"
	"github.com/diewo77/invoice-dashboard/internal/search"
	"github.com/diewo77/invoice-dashboard/internal/services"
	"github.com/diewo77/invoice-dashboard/validation"
)

const msgInvoiceNotFound = "Could not find the requested invoice."

// FormValues is what the invoice form shows in its inputs.
type FormValues struct {
	CustomerID string
	Amount     string
	Status     string
}

func formValues(values url.Values) FormValues {
	return FormValues{
		CustomerID: values.Get("customerId"),
		Amount:     values.Get("amount"),
		Status:     values.Get("status"),
	}
}

// invoiceListJSON is the JSON shape of GET /dashboard/invoices.
type invoiceListJSON struct {
	Invoices   []models.InvoiceRow `json:"invoices"`
	Query      string              `json:"query"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"total_pages"`
}

type InvoiceHandler struct {
	queries   *services.InvoiceQueryService
	mutations *services.InvoiceMutationService
	pageSize  int
}

func NewInvoiceHandler(queries *services.InvoiceQueryService, mutations *services.InvoiceMutationService, pageSize int) *InvoiceHandler {
	if pageSize <= 0 {
		pageSize = services.DefaultPageSize
	}
	return &InvoiceHandler{queries: queries, mutations: mutations, pageSize: pageSize}
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	// a fresh search (query without page) starts from the first page
	if params.Has(search.QueryKey) && !params.Has(search.PageKey) && !httpx.WantsJSON(r) {
		http.Redirect(w, r, r.URL.Path+"?"+search.ResetPage(params).Encode(), http.StatusSeeOther)
		return
	}

	ctx := r.Context()
	query := params.Get(search.QueryKey)
	page := services.ParsePage(params.Get(search.PageKey))

	totalPages, err := h.queries.CountMatchingPages(ctx, query, h.pageSize)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	rows, err := h.queries.FetchPage(ctx, query, page, h.pageSize)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, invoiceListJSON{Invoices: rows, Query: query, Page: page, TotalPages: totalPages})
		return
	}
	render(w, r, http.StatusOK, "invoices.html", map[string]any{
		"Invoices":    rows,
		"Query":       query,
		"CurrentPage": page,
		"TotalPages":  totalPages,
		"Pages":       services.GeneratePagination(page, totalPages),
	})
}

func (h *InvoiceHandler) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, validation.OpCreate, "", FormValues{}, services.Result{})
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	form := validation.ParseInvoiceForm(r.PostForm, validation.OpCreate)
	var res services.Result
	if form.OK {
		res = h.mutations.Create(r.Context(), form.Data)
	} else {
		res = services.Rejected(form)
	}
	h.respond(w, r, validation.OpCreate, "", formValues(r.PostForm), res)
}

func (h *InvoiceHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	form, err := h.queries.FetchEditForm(r.Context(), id)
	switch {
	case errors.Is(err, services.ErrInvoiceNotFound):
		renderError(w, r, http.StatusNotFound, msgInvoiceNotFound)
		return
	case err != nil:
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"invoice":   form.Invoice,
			"amount":    form.Amount,
			"customers": form.Customers,
		})
		return
	}
	render(w, r, http.StatusOK, "invoice_form.html", map[string]any{
		"Title":     "Edit Invoice",
		"Action":    "/dashboard/invoices/" + id,
		"Submit":    "Edit Invoice",
		"Customers": form.Customers,
		"Values": FormValues{
			CustomerID: form.Invoice.CustomerID,
			Amount:     form.Amount,
			Status:     string(form.Invoice.Status),
		},
		"Errors": validation.Violations{},
	})
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	id := r.PathValue("id")
	form := validation.ParseInvoiceForm(r.PostForm, validation.OpUpdate)
	var res services.Result
	if form.OK {
		res = h.mutations.Update(r.Context(), id, form.Data)
	} else {
		res = services.Rejected(form)
	}
	h.respond(w, r, validation.OpUpdate, id, formValues(r.PostForm), res)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res := h.mutations.Remove(r.Context(), r.PathValue("id"))
	if res.Kind == services.Failed {
		renderError(w, r, http.StatusInternalServerError, res.Message)
		return
	}
	if httpx.WantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, stayTarget(r), http.StatusSeeOther)
}

// stayTarget is the invoice list the delete was issued from.
func stayTarget(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path != services.InvoicesPath || (ref.Host != "" && ref.Host != r.Host) {
		return services.InvoicesPath
	}
	return ref.RequestURI()
}

func (h *InvoiceHandler) respond(w http.ResponseWriter, r *http.Request, op validation.Operation, id string, values FormValues, res services.Result) {
	log := logger.FromContext(r.Context())
	switch res.Kind {
	case services.Navigate:
		if httpx.WantsJSON(r) {
			httpx.JSON(w, http.StatusOK, map[string]string{"redirect": res.Target})
			return
		}
		http.Redirect(w, r, res.Target, http.StatusSeeOther)
	case services.NotFound:
		renderError(w, r, http.StatusNotFound, msgInvoiceNotFound)
	case services.Failed:
		status := http.StatusInternalServerError
		if !res.Errors.Empty() {
			status = http.StatusUnprocessableEntity
		}
		log.Info("invoice form rejected", zap.Stringer("op", op), zap.Int("status", status))
		if httpx.WantsJSON(r) {
			if status == http.StatusUnprocessableEntity {
				httpx.FormError(w, res.Errors, res.Message)
			} else {
				httpx.JSON(w, status, httpx.FormErrorResponse{Message: res.Message})
			}
			return
		}
		h.renderForm(w, r, status, op, id, values, res)
	default:
		http.Redirect(w, r, services.InvoicesPath, http.StatusSeeOther)
	}
}

func (h *InvoiceHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, op validation.Operation, id string, values FormValues, res services.Result) {
	customers, err := h.queries.FetchCustomers(r.Context())
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	data := map[string]any{
		"Title":     "Create Invoice",
		"Action":    services.InvoicesPath,
		"Submit":    "Create Invoice",
		"Customers": customers,
		"Values":    values,
		"Errors":    res.Errors,
		"Message":   res.Message,
	}
	if op == validation.OpUpdate {
		data["Title"] = "Edit Invoice"
		data["Action"] = services.InvoicesPath + "/" + id
		data["Submit"] = "Edit Invoice"
	}
	render(w, r, status, "invoice_form.html", data)
}
