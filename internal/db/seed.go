package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-dashboard/internal/models"
)

// SeedUser is the placeholder login created by Seed.
var SeedUser = struct{ Name, Email, Password string }{
	Name:     "User",
	Email:    "user@nextmail.com",
	Password: "123456",
}

var seedCustomers = []models.Customer{
	{ID: "d6e15727-9fe1-4961-8c5b-ea44a9bd81aa", Name: "Evil Rabbit", Email: "evil@rabbit.com", ImageURL: "/static/customers/evil-rabbit.svg"},
	{ID: "3958dc9e-712f-4377-85e9-fec4b6a6442a", Name: "Delba de Oliveira", Email: "delba@oliveira.com", ImageURL: "/static/customers/delba-de-oliveira.svg"},
	{ID: "3958dc9e-742f-4377-85e9-fec4b6a6442a", Name: "Lee Robinson", Email: "lee@robinson.com", ImageURL: "/static/customers/lee-robinson.svg"},
	{ID: "76d65c26-f784-44a2-ac19-586678f7c2f2", Name: "Michael Novotny", Email: "michael@novotny.com", ImageURL: "/static/customers/michael-novotny.svg"},
	{ID: "cc27c14a-0acf-4f4a-a6c9-d45682c144b9", Name: "Amy Burns", Email: "amy@burns.com", ImageURL: "/static/customers/amy-burns.svg"},
	{ID: "13d07535-c59e-4157-a011-f8d2ef4e0cbb", Name: "Balazs Orban", Email: "balazs@orban.com", ImageURL: "/static/customers/balazs-orban.svg"},
}

type seedInvoice struct {
	customer int
	amount   int64
	status   models.InvoiceStatus
	date     string
}

var seedInvoices = []seedInvoice{
	{0, 15795, models.InvoiceStatusPending, "2022-12-06"},
	{1, 20348, models.InvoiceStatusPending, "2022-11-14"},
	{4, 3040, models.InvoiceStatusPaid, "2022-10-29"},
	{3, 44800, models.InvoiceStatusPaid, "2023-09-10"},
	{5, 34577, models.InvoiceStatusPending, "2023-08-05"},
	{2, 54246, models.InvoiceStatusPending, "2023-07-16"},
	{0, 666, models.InvoiceStatusPending, "2023-06-27"},
	{3, 32545, models.InvoiceStatusPaid, "2023-06-09"},
	{4, 1250, models.InvoiceStatusPaid, "2023-06-17"},
	{5, 8546, models.InvoiceStatusPaid, "2023-06-07"},
	{1, 500, models.InvoiceStatusPaid, "2023-08-19"},
	{5, 8945, models.InvoiceStatusPaid, "2023-06-03"},
	{2, 1000, models.InvoiceStatusPaid, "2022-06-05"},
}

var seedRevenue = []models.Revenue{
	{Month: "Jan", Revenue: 2000}, {Month: "Feb", Revenue: 1800}, {Month: "Mar", Revenue: 2200},
	{Month: "Apr", Revenue: 2500}, {Month: "May", Revenue: 2300}, {Month: "Jun", Revenue: 3200},
	{Month: "Jul", Revenue: 3500}, {Month: "Aug", Revenue: 3700}, {Month: "Sep", Revenue: 2500},
	{Month: "Oct", Revenue: 2800}, {Month: "Nov", Revenue: 3000}, {Month: "Dec", Revenue: 4800},
}

// seedNamespace derives stable ids for seeded rows so reseeding finds them again.
var seedNamespace = uuid.MustParse("7c0c3f6e-5c1d-4a8e-9a57-3f4f0d0b6a11")

// Seed inserts the placeholder user, customers, invoices and revenue. Rows
// that already exist are left untouched, so running it twice is harmless.
func Seed(ctx context.Context, conn *gorm.DB, log *zap.Logger) error {
	tx := conn.WithContext(ctx)

	var existing models.User
	err := tx.Where("email = ?", SeedUser.Email).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(SeedUser.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		user := models.User{
			ID:       uuid.NewSHA1(seedNamespace, []byte("user:"+SeedUser.Email)).String(),
			Name:     SeedUser.Name,
			Email:    SeedUser.Email,
			Password: string(hash),
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
	case err != nil:
		return fmt.Errorf("lookup seed user: %w", err)
	}

	created := 0
	for _, c := range seedCustomers {
		n, err := createMissing(tx, &models.Customer{}, c.ID, &c)
		if err != nil {
			return fmt.Errorf("seed customer %s: %w", c.Name, err)
		}
		created += n
	}

	for i, si := range seedInvoices {
		inv := models.Invoice{
			ID:         uuid.NewSHA1(seedNamespace, fmt.Appendf(nil, "invoice:%d", i)).String(),
			CustomerID: seedCustomers[si.customer].ID,
			Amount:     si.amount,
			Status:     si.status,
			Date:       si.date,
		}
		n, err := createMissing(tx, &models.Invoice{}, inv.ID, &inv)
		if err != nil {
			return fmt.Errorf("seed invoice %d: %w", i, err)
		}
		created += n
	}

	for _, r := range seedRevenue {
		var count int64
		if err := tx.Model(&models.Revenue{}).Where("month = ?", r.Month).Count(&count).Error; err != nil {
			return fmt.Errorf("seed revenue %s: %w", r.Month, err)
		}
		if count == 0 {
			if err := tx.Create(&r).Error; err != nil {
				return fmt.Errorf("seed revenue %s: %w", r.Month, err)
			}
			created++
		}
	}

	log.Info("seed completed", zap.Int("rows_created", created))
	return nil
}

func createMissing(tx *gorm.DB, model any, id string, row any) (int, error) {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	if err := tx.Create(row).Error; err != nil {
		return 0, err
	}
	return 1, nil
}
