package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/service-ns/paycycle/internal/cycle/domain"
	"github.com/service-ns/paycycle/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) LockInvoice(ctx context.Context, tx *gorm.DB, invoiceID string) (*domain.InvoiceRef, error) {
	var ref domain.InvoiceRef
	err := db.ForUpdate(tx.WithContext(ctx)).
		Table("invoices").
		Where("id = ?", invoiceID).
		Select("id", "total_amount").
		First(&ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

func (r *repo) InsertCycle(ctx context.Context, tx *gorm.DB, cycle *domain.PaymentCycle) error {
	return tx.WithContext(ctx).Create(cycle).Error
}

func (r *repo) FindLatestCycle(ctx context.Context, tx *gorm.DB, invoiceID string) (*domain.PaymentCycle, error) {
	var cycle domain.PaymentCycle
	err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("seq desc").
		First(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cycle, nil
}

func (r *repo) FindCycle(ctx context.Context, tx *gorm.DB, cycleID string) (*domain.PaymentCycle, error) {
	var cycle domain.PaymentCycle
	err := tx.WithContext(ctx).
		Where("id = ?", cycleID).
		First(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cycle, nil
}

func (r *repo) SetCycleClosed(ctx context.Context, tx *gorm.DB, cycleID string, closedAt *time.Time) error {
	return tx.WithContext(ctx).
		Model(&domain.PaymentCycle{}).
		Where("id = ?", cycleID).
		Update("closed_at", closedAt).Error
}

func (r *repo) InsertRow(ctx context.Context, tx *gorm.DB, row *domain.HistoryRow) error {
	return tx.WithContext(ctx).Create(row).Error
}

func (r *repo) FindRow(ctx context.Context, tx *gorm.DB, rowID snowflake.ID) (*domain.HistoryRow, error) {
	var row domain.HistoryRow
	err := tx.WithContext(ctx).
		Where("id = ?", rowID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repo) FindLatestRowInCycle(ctx context.Context, tx *gorm.DB, cycleID string) (*domain.HistoryRow, error) {
	var row domain.HistoryRow
	err := tx.WithContext(ctx).
		Where("cycle_id = ?", cycleID).
		Order("recorded_at desc, id desc").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repo) GetPaymentFact(ctx context.Context, tx *gorm.DB, rowID snowflake.ID) (*domain.PaymentFact, error) {
	var fact domain.PaymentFact
	err := tx.WithContext(ctx).
		Where("row_id = ?", rowID).
		First(&fact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &fact, nil
}

func (r *repo) UpsertPaymentFact(ctx context.Context, tx *gorm.DB, fact *domain.PaymentFact) error {
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "row_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"paid_flag", "registry_flag", "pay_time", "agree_time", "agreed_by",
			}),
		}).
		Create(fact).Error
}

func (r *repo) UpsertSourceAnnotation(ctx context.Context, tx *gorm.DB, annotation *domain.SourceAnnotation) error {
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "row_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"division_source", "object_source", "status_time",
			}),
		}).
		Create(annotation).Error
}
