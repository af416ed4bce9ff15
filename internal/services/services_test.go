package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/diewo77/invoice-dashboard/internal/db"
	"github.com/diewo77/invoice-dashboard/internal/models"
	"github.com/diewo77/invoice-dashboard/internal/testutil"
	"github.com/diewo77/invoice-dashboard/validation"
)

const (
	evilRabbitID  = "d6e15727-9fe1-4961-8c5b-ea44a9bd81aa"
	leeRobinsonID = "3958dc9e-742f-4377-85e9-fec4b6a6442a"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	views []string
	err   error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, view string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, view)
	return r.err
}

func (r *recordingInvalidator) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.views...)
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
}

// ---- credentials ----

func TestCredentialVerifier_Verify(t *testing.T) {
	conn := testutil.SeededDB(t)
	v := NewCredentialVerifier(conn, zap.NewNop())
	ctx := context.Background()

	user, err := v.Verify(ctx, db.SeedUser.Email, db.SeedUser.Password)
	require.NoError(t, err)
	assert.Equal(t, db.SeedUser.Email, user.Email)

	_, err = v.Verify(ctx, db.SeedUser.Email, "wrong-password")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.NotErrorIs(t, err, ErrCredentialLookup)

	_, err = v.Verify(ctx, "nobody@nextmail.com", "123456")
	assert.ErrorIs(t, err, ErrNoMatch)

	assert.True(t, v.UserExists(ctx, user.ID))
	assert.False(t, v.UserExists(ctx, "missing"))
}

func TestCredentialVerifier_MalformedInputSkipsLookup(t *testing.T) {
	m := testutil.NewMockDB(t)
	v := NewCredentialVerifier(m.DB, zap.NewNop())

	_, err := v.Verify(context.Background(), "not-an-email", "123456")
	assert.ErrorIs(t, err, ErrNoMatch)
	_, err = v.Verify(context.Background(), "user@nextmail.com", "12345")
	assert.ErrorIs(t, err, ErrNoMatch)

	m.ExpectationsWereMet(t)
}

func TestCredentialVerifier_StoreFault(t *testing.T) {
	m := testutil.NewMockDB(t)
	core, logs := observer.New(zapcore.ErrorLevel)
	v := NewCredentialVerifier(m.DB, zap.New(core))

	m.Mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnError(errors.New("connection reset"))

	_, err := v.Verify(context.Background(), "user@nextmail.com", "123456")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.ErrorIs(t, err, ErrCredentialLookup)
	assert.NotContains(t, err.Error(), "connection reset")
	assert.Equal(t, 1, logs.FilterMessage("failed to fetch user").Len())
	m.ExpectationsWereMet(t)
}

// ---- queries ----

func TestInvoiceQueryService_Pages(t *testing.T) {
	q := NewInvoiceQueryService(testutil.SeededDB(t), zap.NewNop())
	ctx := context.Background()

	pages, err := q.CountMatchingPages(ctx, "", 6)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)

	seen := map[string]bool{}
	for page := 1; page <= pages; page++ {
		rows, err := q.FetchPage(ctx, "", page, 6)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(rows), 6)
		for _, r := range rows {
			assert.False(t, seen[r.ID], "row %s on two pages", r.ID)
			seen[r.ID] = true
		}
	}
	assert.Len(t, seen, 13)

	first, err := q.FetchPage(ctx, "", 0, 6)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, "2023-09-10", first[0].Date)
	assert.Equal(t, "Michael Novotny", first[0].Name)
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Date, first[i].Date)
	}

	past, err := q.FetchPage(ctx, "", 99, 6)
	require.NoError(t, err)
	assert.Empty(t, past)

	_, err = q.FetchPage(ctx, "", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
	_, err = q.CountMatchingPages(ctx, "", -1)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestInvoiceQueryService_Search(t *testing.T) {
	q := NewInvoiceQueryService(testutil.SeededDB(t), zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		query string
		want  int
	}{
		{"lee", 2},
		{"LEE", 2},
		{"robinson.com", 2},
		{"666", 1},
		{" 666", 0},
		{"lee ", 2},
		{"2023-06", 5},
		{"paid", 8},
		{"nothing-matches", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rows, err := q.FetchPage(ctx, tt.query, 1, 6)
			require.NoError(t, err)
			assert.Len(t, rows, min(tt.want, 6))

			pages, err := q.CountMatchingPages(ctx, tt.query, 6)
			require.NoError(t, err)
			assert.Equal(t, TotalPages(int64(tt.want), 6), pages)
		})
	}
}

func TestInvoiceQueryService_CardSummary(t *testing.T) {
	q := NewInvoiceQueryService(testutil.SeededDB(t), zap.NewNop())

	got, err := q.FetchCardSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CardSummary{
		InvoiceCount:  13,
		CustomerCount: 6,
		TotalPaid:     100626,
		TotalPending:  125632,
	}, got)
}

func TestInvoiceQueryService_Latest(t *testing.T) {
	q := NewInvoiceQueryService(testutil.SeededDB(t), zap.NewNop())

	rows, err := q.FetchLatestInvoices(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	dates := make([]string, len(rows))
	for i, r := range rows {
		dates[i] = r.Date
	}
	assert.Equal(t, []string{"2023-09-10", "2023-08-19", "2023-08-05", "2023-07-16", "2023-06-27"}, dates)
	assert.NotEmpty(t, rows[0].Email)
}

func TestInvoiceQueryService_ByIDAndEditForm(t *testing.T) {
	q := NewInvoiceQueryService(testutil.SeededDB(t), zap.NewNop())
	ctx := context.Background()

	rows, err := q.FetchPage(ctx, "666", 1, 6)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	inv, err := q.FetchInvoiceByID(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(666), inv.Amount)

	form, err := q.FetchEditForm(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "6.66", form.Amount)
	assert.Len(t, form.Customers, 6)
	assert.Equal(t, "Amy Burns", form.Customers[0].Name)

	_, err = q.FetchInvoiceByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
	_, err = q.FetchEditForm(ctx, "missing")
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestInvoiceQueryService_Revenue(t *testing.T) {
	q := NewInvoiceQueryService(testutil.SeededDB(t), zap.NewNop())

	rows, err := q.FetchRevenue(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 12)
	assert.Equal(t, "Jan", rows[0].Month)
	assert.Equal(t, "Dec", rows[11].Month)
	assert.Equal(t, int64(4800), rows[11].Revenue)
}

func TestInvoiceQueryService_FilteredCustomers(t *testing.T) {
	conn := testutil.SeededDB(t)
	require.NoError(t, conn.Create(&models.Customer{ID: "idle", Name: "Zed Idle", Email: "zed@idle.com"}).Error)
	q := NewInvoiceQueryService(conn, zap.NewNop())
	ctx := context.Background()

	all, err := q.FetchFilteredCustomers(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 7)
	assert.Equal(t, "Amy Burns", all[0].Name)
	assert.Equal(t, CustomerSummary{ID: "idle", Name: "Zed Idle", Email: "zed@idle.com"}, all[6])

	evil, err := q.FetchFilteredCustomers(ctx, "RABBIT")
	require.NoError(t, err)
	require.Len(t, evil, 1)
	assert.Equal(t, evilRabbitID, evil[0].ID)
	assert.Equal(t, int64(2), evil[0].TotalInvoices)
	assert.Equal(t, int64(16461), evil[0].TotalPending)
	assert.Equal(t, int64(0), evil[0].TotalPaid)
}

func TestInvoiceQueryService_StoreFaults(t *testing.T) {
	conn := testutil.SeededDB(t)
	core, logs := observer.New(zapcore.ErrorLevel)
	q := NewInvoiceQueryService(conn, zap.New(core))
	testutil.CloseDB(t, conn)
	ctx := context.Background()

	_, err := q.CountMatchingPages(ctx, "", 6)
	assert.ErrorIs(t, err, ErrFetchInvoicePages)
	_, err = q.FetchPage(ctx, "", 1, 6)
	assert.ErrorIs(t, err, ErrFetchInvoices)
	_, err = q.FetchCardSummary(ctx)
	assert.ErrorIs(t, err, ErrFetchCardData)
	_, err = q.FetchLatestInvoices(ctx, 5)
	assert.ErrorIs(t, err, ErrFetchLatestInvoices)
	_, err = q.FetchInvoiceByID(ctx, "x")
	assert.ErrorIs(t, err, ErrFetchInvoice)
	_, err = q.FetchCustomers(ctx)
	assert.ErrorIs(t, err, ErrFetchCustomers)
	_, err = q.FetchRevenue(ctx)
	assert.ErrorIs(t, err, ErrFetchRevenue)
	_, err = q.FetchFilteredCustomers(ctx, "")
	assert.ErrorIs(t, err, ErrFetchCustomerTable)

	assert.GreaterOrEqual(t, logs.Len(), 8)
}

// ---- mutations ----

func invoiceData(customer, amount string, status models.InvoiceStatus) validation.InvoiceData {
	return validation.InvoiceData{CustomerID: customer, Amount: decimal.RequireFromString(amount), Status: status}
}

func TestInvoiceMutationService_Create(t *testing.T) {
	conn := testutil.SeededDB(t)
	inv := &recordingInvalidator{}
	s := NewInvoiceMutationService(conn, zap.NewNop(), inv,
		WithClock(fixedClock),
		WithIDGenerator(func() string { return "new-invoice" }),
	)

	res := s.Create(context.Background(), invoiceData(leeRobinsonID, "120.5", models.InvoiceStatusPending))
	assert.Equal(t, Result{Kind: Navigate, Target: InvoicesPath}, res)

	var got models.Invoice
	require.NoError(t, conn.First(&got, "id = ?", "new-invoice").Error)
	assert.Equal(t, int64(12050), got.Amount)
	assert.Equal(t, models.InvoiceStatusPending, got.Status)
	assert.Equal(t, "2024-03-10", got.Date, "dated in UTC")
	assert.ElementsMatch(t, []string{"/dashboard/invoices", "/dashboard", "/dashboard/customers"}, inv.seen())
}

func TestInvoiceMutationService_CreateRoundsHalfAwayFromZero(t *testing.T) {
	conn := testutil.SeededDB(t)
	s := NewInvoiceMutationService(conn, zap.NewNop(), nil, WithIDGenerator(func() string { return "rounded" }))

	res := s.Create(context.Background(), invoiceData(leeRobinsonID, "0.005", models.InvoiceStatusPaid))
	require.Equal(t, Navigate, res.Kind)

	var got models.Invoice
	require.NoError(t, conn.First(&got, "id = ?", "rounded").Error)
	assert.Equal(t, int64(1), got.Amount)
}

func TestInvoiceMutationService_Update(t *testing.T) {
	conn := testutil.SeededDB(t)
	q := NewInvoiceQueryService(conn, zap.NewNop())
	inv := &recordingInvalidator{}
	s := NewInvoiceMutationService(conn, zap.NewNop(), inv)
	ctx := context.Background()

	rows, err := q.FetchPage(ctx, "666", 1, 6)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	id := rows[0].ID

	res := s.Update(ctx, id, invoiceData(leeRobinsonID, "49.99", models.InvoiceStatusPaid))
	assert.Equal(t, Result{Kind: Navigate, Target: InvoicesPath}, res)

	got, err := q.FetchInvoiceByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(4999), got.Amount)
	assert.Equal(t, leeRobinsonID, got.CustomerID)
	assert.True(t, got.IsPaid())
	assert.Equal(t, "2023-06-27", got.Date, "date is not changed by update")
	assert.Len(t, inv.seen(), 3)

	missing := s.Update(ctx, "missing", invoiceData(leeRobinsonID, "1", models.InvoiceStatusPaid))
	assert.Equal(t, NotFound, missing.Kind)
	assert.Len(t, inv.seen(), 3, "nothing invalidated for a missing invoice")
}

func TestInvoiceMutationService_Remove(t *testing.T) {
	conn := testutil.SeededDB(t)
	q := NewInvoiceQueryService(conn, zap.NewNop())
	s := NewInvoiceMutationService(conn, zap.NewNop(), &recordingInvalidator{})
	ctx := context.Background()

	rows, err := q.FetchPage(ctx, "666", 1, 6)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, Stay, s.Remove(ctx, rows[0].ID).Kind)
	_, err = q.FetchInvoiceByID(ctx, rows[0].ID)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)

	assert.Equal(t, Stay, s.Remove(ctx, rows[0].ID).Kind, "removing twice succeeds")
}

func TestInvoiceMutationService_InvalidationFailureIsLogged(t *testing.T) {
	conn := testutil.SeededDB(t)
	core, logs := observer.New(zapcore.WarnLevel)
	inv := &recordingInvalidator{err: errors.New("redis down")}
	s := NewInvoiceMutationService(conn, zap.New(core), inv)

	res := s.Create(context.Background(), invoiceData(leeRobinsonID, "10", models.InvoiceStatusPaid))
	assert.Equal(t, Navigate, res.Kind)
	assert.Equal(t, 3, logs.FilterMessage("invalidate view").Len())
}

func TestInvoiceMutationService_StoreFaults(t *testing.T) {
	ctx := context.Background()
	data := invoiceData(leeRobinsonID, "10", models.InvoiceStatusPaid)

	t.Run("create", func(t *testing.T) {
		m := testutil.NewMockDB(t)
		inv := &recordingInvalidator{}
		s := NewInvoiceMutationService(m.DB, zap.NewNop(), inv)
		m.Mock.ExpectExec(`INSERT INTO "invoices"`).WillReturnError(errors.New("disk full"))

		res := s.Create(ctx, data)
		assert.Equal(t, Result{Kind: Failed, Message: MsgCreateFailed}, res)
		assert.Empty(t, inv.seen())
	})

	t.Run("update", func(t *testing.T) {
		m := testutil.NewMockDB(t)
		s := NewInvoiceMutationService(m.DB, zap.NewNop(), nil)
		m.Mock.ExpectExec(`UPDATE "invoices" SET`).WillReturnError(errors.New("disk full"))

		res := s.Update(ctx, "abc", data)
		assert.Equal(t, Result{Kind: Failed, Message: MsgUpdateFailed}, res)
		m.ExpectationsWereMet(t)
	})

	t.Run("update no rows", func(t *testing.T) {
		m := testutil.NewMockDB(t)
		s := NewInvoiceMutationService(m.DB, zap.NewNop(), nil)
		m.Mock.ExpectExec(`UPDATE "invoices" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.Equal(t, NotFound, s.Update(ctx, "abc", data).Kind)
		m.ExpectationsWereMet(t)
	})

	t.Run("delete", func(t *testing.T) {
		m := testutil.NewMockDB(t)
		s := NewInvoiceMutationService(m.DB, zap.NewNop(), nil)
		m.Mock.ExpectExec(`DELETE FROM "invoices" WHERE id = \$1`).
			WithArgs("abc").
			WillReturnError(errors.New("disk full"))

		res := s.Remove(ctx, "abc")
		assert.Equal(t, Result{Kind: Failed, Message: MsgDeleteFailed}, res)
		m.ExpectationsWereMet(t)
	})
}

func TestRejected(t *testing.T) {
	form := validation.ParseInvoiceForm(nil, validation.OpCreate)
	res := Rejected(form)
	assert.Equal(t, Failed, res.Kind)
	assert.Equal(t, "Missing Fields. Failed to Create Invoice.", res.Message)
	assert.True(t, res.Errors.Has("customerId"))
}
