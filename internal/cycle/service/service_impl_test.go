package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/service-ns/paycycle/internal/clock"
	"github.com/service-ns/paycycle/internal/cycle/domain"
	"github.com/service-ns/paycycle/internal/cycle/repository"
	"github.com/service-ns/paycycle/internal/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
	clock *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.PaymentCycle{},
		&domain.HistoryRow{},
		&domain.SourceAnnotation{},
		&domain.PaymentFact{},
	))
	// Same partial index the schema migration creates, so the suite
	// runs against the real single-open-cycle constraint.
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX ux_payment_cycles_open ON payment_cycles (invoice_id) WHERE closed_at IS NULL`,
	).Error)
	require.NoError(t, db.Exec(
		`CREATE TABLE id_sequences (name TEXT PRIMARY KEY, value BIGINT NOT NULL DEFAULT 0)`,
	).Error)
	require.NoError(t, db.Exec(
		`CREATE TABLE invoices (id TEXT PRIMARY KEY, total_amount DOUBLE PRECISION NOT NULL DEFAULT 0)`,
	).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Alloc: sequence.NewAllocator(),
		Repo:  repository.Provide(),
	})

	return &fixture{db: db, svc: svc, clock: fake}
}

func (f *fixture) createInvoice(t *testing.T, id string, total float64) {
	t.Helper()
	require.NoError(t, f.db.Exec(
		`INSERT INTO invoices (id, total_amount) VALUES (?, ?)`, id, total,
	).Error)
}

func TestOpenCycleWritesSyntheticOpeningRow(t *testing.T) {
	f := newFixture(t)
	f.createInvoice(t, "FT1", 1500)
	ctx := context.Background()

	cycle, row, err := f.svc.OpenCycle(ctx, f.db, "FT1", 1500)
	require.NoError(t, err)

	assert.Equal(t, "ZFT1", cycle.ID)
	assert.Equal(t, "FT1", cycle.InvoiceID)
	assert.True(t, cycle.Open())

	assert.True(t, row.Synthetic)
	assert.Equal(t, domain.ActorSystem, row.Actor)
	assert.Equal(t, domain.FlagNone, row.RequestFlag)
	assert.Equal(t, 1500.0, row.AmountDue)
}

func TestOpenCycleRejectsSecondOpenCycle(t *testing.T) {
	f := newFixture(t)
	f.createInvoice(t, "FT1", 1500)
	ctx := context.Background()

	_, _, err := f.svc.OpenCycle(ctx, f.db, "FT1", 1500)
	require.NoError(t, err)

	_, _, err = f.svc.OpenCycle(ctx, f.db, "FT1", 1500)
	assert.ErrorIs(t, err, domain.ErrCycleAlreadyOpen)

	var open int64
	require.NoError(t, f.db.Model(&domain.PaymentCycle{}).
		Where("invoice_id = ? AND closed_at IS NULL", "FT1").
		Count(&open).Error)
	assert.Equal(t, int64(1), open)
}

func TestRecordHistoryEntryAppendsToOpenCycle(t *testing.T) {
	f := newFixture(t)
	f.createInvoice(t, "FT1", 1500)
	ctx := context.Background()

	_, _, err := f.svc.OpenCycle(ctx, f.db, "FT1", 1500)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	resp, err := f.svc.RecordHistoryEntry(ctx, domain.RecordHistoryEntryRequest{
		InvoiceID:   "FT1",
		Actor:       "ivanov",
		AmountDue:   700,
		RequestFlag: domain.FlagYes,
	})
	require.NoError(t, err)

	assert.False(t, resp.NewCycle)
	assert.Equal(t, "ZFT1", resp.Cycle.ID)
	assert.Equal(t, "ivanov", resp.Row.Actor)
	assert.False(t, resp.Row.Synthetic)

	var count int64
	require.NoError(t, f.db.Model(&domain.HistoryRow{}).Where("cycle_id = ?", "ZFT1").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRecordHistoryEntryUnknownInvoice(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordHistoryEntry(context.Background(), domain.RecordHistoryEntryRequest{
		InvoiceID: "FT999",
		Actor:     "ivanov",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordHistoryEntryRejectsNegativeAmount(t *testing.T) {
	f := newFixture(t)
	f.createInvoice(t, "FT1", 1500)

	_, err := f.svc.RecordHistoryEntry(context.Background(), domain.RecordHistoryEntryRequest{
		InvoiceID: "FT1",
		AmountDue: -5,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestPaymentClosesCycleAndNextEntryOpensNewOne(t *testing.T) {
	f := newFixture(t)
	f.createInvoice(t, "FT1", 1500)
	ctx := context.Background()

	_, _, err := f.svc.OpenCycle(ctx, f.db, "FT1", 1500)
	require.NoError(t, err)

	entry, err := f.svc.RecordHistoryEntry(ctx, domain.RecordHistoryEntryRequest{
		InvoiceID: "FT1",
		Actor:     "ivanov",
		AmountDue: 1500,
	})
	require.NoError(t, err)

	status, err := f.svc.SetPaymentStatus(ctx, domain.SetPaymentStatusRequest{
		RowID:    entry.Row.ID,
		PaidFlag: domain.FlagYes,
		Actor:    "admin",
		IsAdmin:  true,
	})
	require.NoError(t, err)
	assert.True(t, status.CycleClosed)

	f.clock.Advance(time.Hour)
	next, err := f.svc.RecordHistoryEntry(ctx, domain.RecordHistoryEntryRequest{
		InvoiceID: "FT1",
		Actor:     "ivanov",
		AmountDue: 200,
	})
	require.NoError(t, err)

	assert.True(t, next.NewCycle)
	assert.Equal(t, "ZFT2", next.Cycle.ID)

	var synthetic domain.HistoryRow
	require.NoError(t, f.db.
		Where("cycle_id = ? AND synthetic = ?", "ZFT2", true).
		First(&synthetic).Error)
	assert.Equal(t, 1500.0, synthetic.AmountDue, "new cycle restarts from the invoice total")
}

func TestSetPaymentStatusRequiresAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetPaymentStatus(context.Background(), domain.SetPaymentStatusRequest{
		RowID:    1,
		PaidFlag: domain.FlagYes,
		IsAdmin:  false,
	})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestSetPaymentStatusUnknownRow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetPaymentStatus(context.Background(), domain.SetPaymentStatusRequest{
		RowID:    12345,
		PaidFlag: domain.FlagYes,
		IsAdmin:  true,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetPaymentStatusKeepsPayTimeOnRepeatedConfirmation(t *testing.T) {
	f := newFixture(t)
	f.createInvoice(t, "FT1", 1500)
	ctx := context.Background()

	_, _, err := f.svc.OpenCycle(ctx, f.db, "FT1", 1500)
	require.NoError(t, err)
	entry, err := f.svc.RecordHistoryEntry(ctx, domain.RecordHistoryEntryRequest{
		InvoiceID: "FT1",
		Actor:     "ivanov",
	})
	require.NoError(t, err)

	first, err := f.svc.SetPaymentStatus(ctx, domain.SetPaymentStatusRequest{
		RowID:    entry.Row.ID,
		PaidFlag: domain.FlagYes,
		Actor:    "admin",
		IsAdmin:  true,
	})
	require.NoError(t, err)
	require.NotNil(t, first.Fact.PayTime)

	f.clock.Advance(2 * time.Hour)
	second, err := f.svc.SetPaymentStatus(ctx, domain.SetPaymentStatusRequest{
		RowID:    entry.Row.ID,
		PaidFlag: domain.FlagYes,
		Actor:    "admin",
		IsAdmin:  true,
	})
	require.NoError(t, err)
	require.NotNil(t, second.Fact.PayTime)
	assert.Equal(t, *first.Fact.PayTime, *second.Fact.PayTime)
}

func TestWithdrawingPaymentReopensCycle(t *testing.T) {
	f := newFixture(t)
	f.createInvoice(t, "FT1", 1500)
	ctx := context.Background()

	_, _, err := f.svc.OpenCycle(ctx, f.db, "FT1", 1500)
	require.NoError(t, err)
	entry, err := f.svc.RecordHistoryEntry(ctx, domain.RecordHistoryEntryRequest{
		InvoiceID: "FT1",
		Actor:     "ivanov",
	})
	require.NoError(t, err)

	_, err = f.svc.SetPaymentStatus(ctx, domain.SetPaymentStatusRequest{
		RowID:    entry.Row.ID,
		PaidFlag: domain.FlagYes,
		Actor:    "admin",
		IsAdmin:  true,
	})
	require.NoError(t, err)

	status, err := f.svc.SetPaymentStatus(ctx, domain.SetPaymentStatusRequest{
		RowID:    entry.Row.ID,
		PaidFlag: domain.FlagNo,
		Actor:    "admin",
		IsAdmin:  true,
	})
	require.NoError(t, err)
	assert.False(t, status.CycleClosed)
	assert.Nil(t, status.Fact.PayTime)
}

func TestSetSourceAnnotationUpserts(t *testing.T) {
	f := newFixture(t)
	f.createInvoice(t, "FT1", 1500)
	ctx := context.Background()

	_, row, err := f.svc.OpenCycle(ctx, f.db, "FT1", 1500)
	require.NoError(t, err)

	first, err := f.svc.SetSourceAnnotation(ctx, domain.SetSourceAnnotationRequest{
		RowID:          row.ID,
		DivisionSource: "north",
		ObjectSource:   "site-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "north", first.DivisionSource)

	f.clock.Advance(time.Hour)
	second, err := f.svc.SetSourceAnnotation(ctx, domain.SetSourceAnnotationRequest{
		RowID:          row.ID,
		DivisionSource: "south",
		ObjectSource:   "site-9",
	})
	require.NoError(t, err)
	assert.Equal(t, "south", second.DivisionSource)
	assert.True(t, second.StatusTime.After(first.StatusTime))

	var count int64
	require.NoError(t, f.db.Model(&domain.SourceAnnotation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSetCycleSourceAnnotationResolvesLatestRow(t *testing.T) {
	f := newFixture(t)
	f.createInvoice(t, "FT1", 1500)
	ctx := context.Background()

	cycle, _, err := f.svc.OpenCycle(ctx, f.db, "FT1", 1500)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	entry, err := f.svc.RecordHistoryEntry(ctx, domain.RecordHistoryEntryRequest{
		InvoiceID: "FT1",
		Actor:     "ivanov",
	})
	require.NoError(t, err)

	annotation, err := f.svc.SetCycleSourceAnnotation(ctx, domain.SetCycleSourceAnnotationRequest{
		CycleID:        cycle.ID,
		DivisionSource: "north",
	})
	require.NoError(t, err)
	assert.Equal(t, entry.Row.ID, annotation.RowID)
}

func TestSetCycleSourceAnnotationUnknownCycle(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetCycleSourceAnnotation(context.Background(), domain.SetCycleSourceAnnotationRequest{
		CycleID: "ZFT42",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
