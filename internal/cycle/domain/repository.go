package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// InvoiceRef is the slice of the invoice the cycle workflow needs. The
// full invoice model lives in the invoice package; depending on it here
// would create an import cycle.
type InvoiceRef struct {
	ID          string  `gorm:"column:id"`
	TotalAmount float64 `gorm:"column:total_amount"`
}

// Repository persists cycles, history rows and their per-row facts.
// Every method takes the *gorm.DB to run on so services can compose
// repository calls inside one transaction.
type Repository interface {
	// LockInvoice loads the invoice under a row lock so concurrent
	// requests cannot open two cycles for it. Returns nil when the
	// invoice does not exist.
	LockInvoice(ctx context.Context, tx *gorm.DB, invoiceID string) (*InvoiceRef, error)

	InsertCycle(ctx context.Context, tx *gorm.DB, cycle *PaymentCycle) error
	FindLatestCycle(ctx context.Context, tx *gorm.DB, invoiceID string) (*PaymentCycle, error)
	FindCycle(ctx context.Context, tx *gorm.DB, cycleID string) (*PaymentCycle, error)
	SetCycleClosed(ctx context.Context, tx *gorm.DB, cycleID string, closedAt *time.Time) error

	InsertRow(ctx context.Context, tx *gorm.DB, row *HistoryRow) error
	FindRow(ctx context.Context, tx *gorm.DB, rowID snowflake.ID) (*HistoryRow, error)
	FindLatestRowInCycle(ctx context.Context, tx *gorm.DB, cycleID string) (*HistoryRow, error)

	GetPaymentFact(ctx context.Context, tx *gorm.DB, rowID snowflake.ID) (*PaymentFact, error)
	UpsertPaymentFact(ctx context.Context, tx *gorm.DB, fact *PaymentFact) error
	UpsertSourceAnnotation(ctx context.Context, tx *gorm.DB, annotation *SourceAnnotation) error
}
