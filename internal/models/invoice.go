package models

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// Valid reports whether s is one of the known statuses.
func (s InvoiceStatus) Valid() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusPaid
}

// DateLayout is the calendar-date format stored in invoices.date.
const DateLayout = "2006-01-02"

// Invoice is a billable record for a customer.
//
// Amount is stored in cents. Date is an ISO calendar date ("YYYY-MM-DD")
// kept as text so it sorts and matches the same way on every driver.
type Invoice struct {
	ID         string        `gorm:"primaryKey;size:36" json:"id"`
	CustomerID string        `gorm:"size:36;not null;index" json:"customer_id"`
	Customer   *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Amount     int64         `gorm:"not null" json:"amount"`
	Status     InvoiceStatus `gorm:"size:20;not null" json:"status"`
	Date       string        `gorm:"size:10;not null;index" json:"date"`
}

// IsPaid returns true if the invoice has been paid.
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// InvoiceRow is an invoice joined with its customer's display fields, as
// listed in the invoices table and the latest-invoices panel.
type InvoiceRow struct {
	ID       string        `json:"id"`
	Amount   int64         `json:"amount"`
	Date     string        `json:"date"`
	Status   InvoiceStatus `json:"status"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	ImageURL string        `json:"image_url"`
}
