package domain

import (
	"context"

	"gorm.io/gorm"
)

type ListFilter struct {
	Submitter string
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*Invoice, error)
	List(ctx context.Context, tx *gorm.DB, filter ListFilter) ([]Invoice, error)

	// PaidTotals sums the history-row amounts already marked paid,
	// keyed by invoice id. Invoices with nothing paid are absent.
	PaidTotals(ctx context.Context, tx *gorm.DB, invoiceIDs []string) (map[string]float64, error)
}
