package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-dashboard/internal/cache"
	"github.com/diewo77/invoice-dashboard/internal/models"
	"github.com/diewo77/invoice-dashboard/internal/money"
	"github.com/diewo77/invoice-dashboard/validation"
)

// InvoicesPath is where a successful create or update sends the user.
const InvoicesPath = "/dashboard/invoices"

// Views dropped from the cache after any invoice mutation.
var invalidatedViews = []string{InvoicesPath, "/dashboard", "/dashboard/customers"}

const (
	MsgCreateFailed = "Database Error: Failed to Create Invoice."
	MsgUpdateFailed = "Database Error: Failed to Update Invoice."
	MsgDeleteFailed = "Database Error: Failed to Delete Invoice."
	MsgNotFound     = "Invoice not found."
)

// ResultKind says what the caller should do after a mutation.
type ResultKind int

const (
	// Navigate to Result.Target.
	Navigate ResultKind = iota
	// Stay on the current page.
	Stay
	// Failed leaves the form showing Message and, for input problems, Errors.
	Failed
	// NotFound means the invoice being updated does not exist.
	NotFound
)

func (k ResultKind) String() string {
	switch k {
	case Navigate:
		return "navigate"
	case Stay:
		return "stay"
	case Failed:
		return "failed"
	case NotFound:
		return "not_found"
	}
	return "unknown"
}

// Result is the outcome of a create, update or delete.
type Result struct {
	Kind    ResultKind
	Target  string
	Message string
	Errors  validation.Violations
}

// Rejected turns a failed form parse into a Result.
func Rejected(form validation.InvoiceFormResult) Result {
	return Result{Kind: Failed, Message: form.Message, Errors: form.FieldErrors}
}

// InvoiceMutationService writes invoices and marks the affected views stale.
type InvoiceMutationService struct {
	db    *gorm.DB
	log   *zap.Logger
	inv   cache.Invalidator
	now   func() time.Time
	newID func() string
}

// MutationOption configures an InvoiceMutationService.
type MutationOption func(*InvoiceMutationService)

// WithClock replaces time.Now for stamping new invoices.
func WithClock(now func() time.Time) MutationOption {
	return func(s *InvoiceMutationService) { s.now = now }
}

// WithIDGenerator replaces the uuid generator for new invoices.
func WithIDGenerator(f func() string) MutationOption {
	return func(s *InvoiceMutationService) { s.newID = f }
}

// NewInvoiceMutationService builds the service. inv may be nil.
func NewInvoiceMutationService(db *gorm.DB, log *zap.Logger, inv cache.Invalidator, opts ...MutationOption) *InvoiceMutationService {
	s := &InvoiceMutationService{
		db:    db,
		log:   log.Named("invoice_mutation"),
		inv:   inv,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a new invoice dated today (UTC).
func (s *InvoiceMutationService) Create(ctx context.Context, data validation.InvoiceData) Result {
	inv := models.Invoice{
		ID:         s.newID(),
		CustomerID: data.CustomerID,
		Amount:     money.ToCents(data.Amount),
		Status:     data.Status,
		Date:       s.now().UTC().Format(models.DateLayout),
	}
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		s.log.Error("create invoice", zap.String("customer_id", data.CustomerID), zap.Error(err))
		return Result{Kind: Failed, Message: MsgCreateFailed}
	}
	s.log.Info("invoice created", zap.String("invoice_id", inv.ID), zap.Int64("amount", inv.Amount))
	s.invalidate(ctx)
	return Result{Kind: Navigate, Target: InvoicesPath}
}

// Update replaces customer, amount and status of invoice id.
func (s *InvoiceMutationService) Update(ctx context.Context, id string, data validation.InvoiceData) Result {
	res := s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"customer_id": data.CustomerID,
			"amount":      money.ToCents(data.Amount),
			"status":      string(data.Status),
		})
	if res.Error != nil {
		s.log.Error("update invoice", zap.String("invoice_id", id), zap.Error(res.Error))
		return Result{Kind: Failed, Message: MsgUpdateFailed}
	}
	if res.RowsAffected == 0 {
		return Result{Kind: NotFound, Message: MsgNotFound}
	}
	s.log.Info("invoice updated", zap.String("invoice_id", id))
	s.invalidate(ctx)
	return Result{Kind: Navigate, Target: InvoicesPath}
}

// Remove deletes invoice id. Deleting an absent invoice succeeds.
func (s *InvoiceMutationService) Remove(ctx context.Context, id string) Result {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Invoice{})
	if res.Error != nil {
		s.log.Error("delete invoice", zap.String("invoice_id", id), zap.Error(res.Error))
		return Result{Kind: Failed, Message: MsgDeleteFailed}
	}
	s.log.Info("invoice deleted", zap.String("invoice_id", id), zap.Int64("rows", res.RowsAffected))
	s.invalidate(ctx)
	return Result{Kind: Stay}
}

// invalidate never fails the mutation that triggered it.
func (s *InvoiceMutationService) invalidate(ctx context.Context) {
	if s.inv == nil {
		return
	}
	for _, view := range invalidatedViews {
		if err := s.inv.Invalidate(ctx, view); err != nil {
			s.log.Warn("invalidate view", zap.String("view", view), zap.Error(err))
		}
	}
}
