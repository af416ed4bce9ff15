package validation

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/diewo77/invoice-dashboard/internal/models"
	"github.com/diewo77/invoice-dashboard/internal/money"
)

// Operation names the mutation a form is submitted for.
type Operation int

const (
	OpCreate Operation = iota
	OpUpdate
)

func (op Operation) String() string {
	if op == OpUpdate {
		return "Update"
	}
	return "Create"
}

// Field error messages shown on the invoice form.
const (
	MsgCustomer = "Please select a customer."
	MsgAmount   = "Please enter an amount greater than $0."
	MsgStatus   = "Please select an invoice status."
)

var invoiceMessages = map[string]string{
	"customerId": MsgCustomer,
	"status":     MsgStatus,
}

// InvoiceData is a validated invoice form. Amount is in major units and
// converts to at least one cent.
type InvoiceData struct {
	CustomerID string
	Amount     decimal.Decimal
	Status     models.InvoiceStatus
}

// InvoiceFormResult is either OK with Data set, or carries FieldErrors and
// an overall Message.
type InvoiceFormResult struct {
	OK          bool
	Data        InvoiceData
	FieldErrors Violations
	Message     string
}

type invoiceInput struct {
	CustomerID string `form:"customerId" validate:"required"`
	Status     string `form:"status" validate:"oneof=pending paid"`
}

// ParseInvoiceForm validates the customerId, amount and status fields of a
// submitted invoice form. It performs no I/O. id and date are never read
// from the form.
func ParseInvoiceForm(values url.Values, op Operation) InvoiceFormResult {
	in := invoiceInput{
		CustomerID: strings.TrimSpace(values.Get("customerId")),
		Status:     values.Get("status"),
	}

	fieldErrors := collect(in, invoiceMessages)

	// the amount must survive conversion to stored cents as a positive value
	amount, err := decimal.NewFromString(strings.TrimSpace(values.Get("amount")))
	if err != nil {
		fieldErrors.Add("amount", MsgAmount)
	} else if cents, ok := money.Cents(amount); !ok || cents < 1 {
		fieldErrors.Add("amount", MsgAmount)
	}

	if !fieldErrors.Empty() {
		return InvoiceFormResult{
			FieldErrors: fieldErrors,
			Message:     "Missing Fields. Failed to " + op.String() + " Invoice.",
		}
	}
	return InvoiceFormResult{
		OK: true,
		Data: InvoiceData{
			CustomerID: in.CustomerID,
			Amount:     amount,
			Status:     models.InvoiceStatus(in.Status),
		},
	}
}
