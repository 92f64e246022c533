package repository

import (
	"context"
	"errors"

	cycledomain "github.com/service-ns/paycycle/internal/cycle/domain"
	"github.com/service-ns/paycycle/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	return tx.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, tx *gorm.DB, id string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := tx.WithContext(ctx).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, tx *gorm.DB, filter domain.ListFilter) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	stmt := tx.WithContext(ctx).Model(&domain.Invoice{})
	if filter.Submitter != "" {
		stmt = stmt.Where("submitter = ?", filter.Submitter)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	err := stmt.
		Order("seq desc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) PaidTotals(ctx context.Context, tx *gorm.DB, invoiceIDs []string) (map[string]float64, error) {
	if len(invoiceIDs) == 0 {
		return map[string]float64{}, nil
	}

	var rows []struct {
		InvoiceID string  `gorm:"column:invoice_id"`
		Paid      float64 `gorm:"column:paid"`
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT r.invoice_id, COALESCE(SUM(r.amount_due), 0) AS paid
		 FROM history_rows r
		 JOIN payment_facts pf ON pf.row_id = r.id AND pf.paid_flag = ?
		 WHERE r.invoice_id IN ?
		 GROUP BY r.invoice_id`,
		cycledomain.FlagYes,
		invoiceIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[string]float64, len(rows))
	for _, row := range rows {
		totals[row.InvoiceID] = row.Paid
	}
	return totals, nil
}
