package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-dashboard/internal/models"
	"github.com/diewo77/invoice-dashboard/internal/money"
)

var (
	ErrFetchRevenue        = errors.New("failed to fetch revenue data")
	ErrFetchLatestInvoices = errors.New("failed to fetch the latest invoices")
	ErrFetchCardData       = errors.New("failed to fetch card data")
	ErrFetchInvoices       = errors.New("failed to fetch invoices")
	ErrFetchInvoicePages   = errors.New("failed to fetch total number of invoices")
	ErrFetchInvoice        = errors.New("failed to fetch invoice")
	ErrFetchCustomers      = errors.New("failed to fetch all customers")
	ErrFetchCustomerTable  = errors.New("failed to fetch customer table")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrInvalidPageSize     = errors.New("page size must be positive")
)

// DefaultPageSize is the number of invoice rows per page.
const DefaultPageSize = 6

// DefaultLatestLimit is how many invoices the dashboard's latest panel shows.
const DefaultLatestLimit = 5

// CardSummary holds the four dashboard figures. Money is in cents.
type CardSummary struct {
	InvoiceCount  int64 `json:"invoice_count"`
	CustomerCount int64 `json:"customer_count"`
	TotalPaid     int64 `json:"total_paid"`
	TotalPending  int64 `json:"total_pending"`
}

// EditForm is everything the edit page needs. Amount is in major units.
type EditForm struct {
	Invoice   models.Invoice
	Amount    string
	Customers []models.CustomerField
}

// CustomerSummary is one row of the customers table.
type CustomerSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	ImageURL      string `json:"image_url"`
	TotalInvoices int64  `json:"total_invoices"`
	TotalPending  int64  `json:"total_pending"`
	TotalPaid     int64  `json:"total_paid"`
}

// InvoiceQueryService answers every read the dashboard makes. Store faults
// are logged here and surfaced as one of the ErrFetch* sentinels.
type InvoiceQueryService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewInvoiceQueryService(db *gorm.DB, log *zap.Logger) *InvoiceQueryService {
	return &InvoiceQueryService{db: db, log: log.Named("invoice_query")}
}

func likePattern(query string) string {
	return "%" + strings.ToLower(query) + "%"
}

// matching selects invoices joined to their customer, narrowed to rows where
// any of name, email, amount, date or status contains query
// case-insensitively. query is matched as given, surrounding spaces included.
func (s *InvoiceQueryService) matching(ctx context.Context, query string) *gorm.DB {
	q := s.db.WithContext(ctx).
		Table("invoices").
		Joins("JOIN customers ON invoices.customer_id = customers.id")
	if query == "" {
		return q
	}
	like := likePattern(query)
	return q.Where(
		"LOWER(customers.name) LIKE ? OR LOWER(customers.email) LIKE ? OR CAST(invoices.amount AS TEXT) LIKE ? OR LOWER(invoices.date) LIKE ? OR LOWER(invoices.status) LIKE ?",
		like, like, like, like, like,
	)
}

// CountMatchingPages returns how many pages of pageSize rows match query.
func (s *InvoiceQueryService) CountMatchingPages(ctx context.Context, query string, pageSize int) (int, error) {
	if pageSize <= 0 {
		return 0, ErrInvalidPageSize
	}
	var count int64
	if err := s.matching(ctx, query).Count(&count).Error; err != nil {
		s.log.Error("count invoices", zap.String("query", query), zap.Error(err))
		return 0, ErrFetchInvoicePages
	}
	return TotalPages(count, pageSize), nil
}

// FetchPage returns one page of matching invoices, newest first. page is
// clamped to at least 1; a page past the end is empty.
func (s *InvoiceQueryService) FetchPage(ctx context.Context, query string, page, pageSize int) ([]models.InvoiceRow, error) {
	if pageSize <= 0 {
		return nil, ErrInvalidPageSize
	}
	if page < 1 {
		page = 1
	}
	rows := []models.InvoiceRow{}
	err := s.matching(ctx, query).
		Select("invoices.id, invoices.amount, invoices.date, invoices.status, customers.name, customers.email, customers.image_url").
		Order("invoices.date DESC").
		Order("invoices.id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Scan(&rows).Error
	if err != nil {
		s.log.Error("fetch invoice page", zap.String("query", query), zap.Int("page", page), zap.Error(err))
		return nil, ErrFetchInvoices
	}
	return rows, nil
}

// FetchCardSummary runs the four card queries concurrently. Any failure
// fails the whole summary.
func (s *InvoiceQueryService) FetchCardSummary(ctx context.Context) (CardSummary, error) {
	var out CardSummary
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Invoice{}).Count(&out.InvoiceCount).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Customer{}).Count(&out.CustomerCount).Error
	})
	g.Go(func() error {
		return s.sumByStatus(gctx, models.InvoiceStatusPaid, &out.TotalPaid)
	})
	g.Go(func() error {
		return s.sumByStatus(gctx, models.InvoiceStatusPending, &out.TotalPending)
	})

	if err := g.Wait(); err != nil {
		s.log.Error("fetch card data", zap.Error(err))
		return CardSummary{}, ErrFetchCardData
	}
	return out, nil
}

func (s *InvoiceQueryService) sumByStatus(ctx context.Context, status models.InvoiceStatus, dst *int64) error {
	return s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ?", string(status)).
		Scan(dst).Error
}

// FetchLatestInvoices returns the most recent invoices with their customer.
func (s *InvoiceQueryService) FetchLatestInvoices(ctx context.Context, limit int) ([]models.InvoiceRow, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	rows := []models.InvoiceRow{}
	err := s.db.WithContext(ctx).
		Table("invoices").
		Joins("JOIN customers ON invoices.customer_id = customers.id").
		Select("invoices.id, invoices.amount, invoices.date, invoices.status, customers.name, customers.email, customers.image_url").
		Order("invoices.date DESC").
		Order("invoices.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		s.log.Error("fetch latest invoices", zap.Error(err))
		return nil, ErrFetchLatestInvoices
	}
	return rows, nil
}

// FetchInvoiceByID returns ErrInvoiceNotFound when no invoice has id.
func (s *InvoiceQueryService) FetchInvoiceByID(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrInvoiceNotFound
	case err != nil:
		s.log.Error("fetch invoice", zap.String("invoice_id", id), zap.Error(err))
		return nil, ErrFetchInvoice
	}
	return &inv, nil
}

// FetchCustomers lists customers for the invoice form's select, by name.
func (s *InvoiceQueryService) FetchCustomers(ctx context.Context) ([]models.CustomerField, error) {
	fields := []models.CustomerField{}
	err := s.db.WithContext(ctx).
		Model(&models.Customer{}).
		Select("id, name").
		Order("name ASC").
		Scan(&fields).Error
	if err != nil {
		s.log.Error("fetch customers", zap.Error(err))
		return nil, ErrFetchCustomers
	}
	return fields, nil
}

// FetchEditForm loads the invoice and the customer list concurrently.
func (s *InvoiceQueryService) FetchEditForm(ctx context.Context, id string) (*EditForm, error) {
	var (
		inv       *models.Invoice
		customers []models.CustomerField
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		inv, err = s.FetchInvoiceByID(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		customers, err = s.FetchCustomers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &EditForm{
		Invoice:   *inv,
		Amount:    money.FormatMajor(inv.Amount),
		Customers: customers,
	}, nil
}

// FetchRevenue returns the monthly revenue rows in calendar order.
func (s *InvoiceQueryService) FetchRevenue(ctx context.Context) ([]models.Revenue, error) {
	rows := []models.Revenue{}
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		s.log.Error("fetch revenue", zap.Error(err))
		return nil, ErrFetchRevenue
	}
	sortByMonth(rows)
	return rows, nil
}

// FetchFilteredCustomers returns customers whose name or email contains
// query, with invoice counts and per-status totals in cents.
func (s *InvoiceQueryService) FetchFilteredCustomers(ctx context.Context, query string) ([]CustomerSummary, error) {
	like := likePattern(query)
	rows := []CustomerSummary{}
	err := s.db.WithContext(ctx).
		Table("customers").
		Joins("LEFT JOIN invoices ON customers.id = invoices.customer_id").
		Select(
			"customers.id, customers.name, customers.email, customers.image_url, "+
				"COUNT(invoices.id) AS total_invoices, "+
				"COALESCE(SUM(CASE WHEN invoices.status = ? THEN invoices.amount ELSE 0 END), 0) AS total_pending, "+
				"COALESCE(SUM(CASE WHEN invoices.status = ? THEN invoices.amount ELSE 0 END), 0) AS total_paid",
			string(models.InvoiceStatusPending), string(models.InvoiceStatusPaid),
		).
		Where("LOWER(customers.name) LIKE ? OR LOWER(customers.email) LIKE ?", like, like).
		Group("customers.id, customers.name, customers.email, customers.image_url").
		Order("customers.name ASC").
		Scan(&rows).Error
	if err != nil {
		s.log.Error("fetch customer table", zap.String("query", query), zap.Error(err))
		return nil, ErrFetchCustomerTable
	}
	return rows, nil
}
