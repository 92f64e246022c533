package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/service-ns/paycycle/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const (
	invoiceSequence = "invoice"
	cycleSequence   = "cycle"

	invoicePrefix = "FT"
	cyclePrefix   = "ZFT"
)

// Allocator issues monotonically increasing document identifiers.
// Next* must be called inside the transaction that inserts the
// document so an aborted insert does not burn a visible gap.
type Allocator interface {
	NextInvoiceID(ctx context.Context, tx *gorm.DB) (string, int64, error)
	NextCycleID(ctx context.Context, tx *gorm.DB) (string, int64, error)
}

type counter struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value int64  `gorm:"column:value"`
}

func (counter) TableName() string {
	return "id_sequences"
}

type allocator struct{}

// NewAllocator builds the database backed allocator.
func NewAllocator() Allocator {
	return &allocator{}
}

var Module = fx.Module("sequence",
	fx.Provide(NewAllocator),
)

func (a *allocator) NextInvoiceID(ctx context.Context, tx *gorm.DB) (string, int64, error) {
	seq, err := a.next(ctx, tx, invoiceSequence)
	if err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("%s%d", invoicePrefix, seq), seq, nil
}

func (a *allocator) NextCycleID(ctx context.Context, tx *gorm.DB) (string, int64, error) {
	seq, err := a.next(ctx, tx, cycleSequence)
	if err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("%s%d", cyclePrefix, seq), seq, nil
}

func (a *allocator) next(ctx context.Context, tx *gorm.DB, name string) (int64, error) {
	var row counter
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("name = ?", name).
		First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("sequence %s: %w", name, err)
		}
		row = counter{Name: name, Value: 0}
		if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
			return 0, fmt.Errorf("sequence %s: %w", name, err)
		}
	}

	row.Value++
	if err := tx.WithContext(ctx).Model(&counter{}).
		Where("name = ?", name).
		Update("value", row.Value).Error; err != nil {
		return 0, fmt.Errorf("sequence %s: %w", name, err)
	}
	return row.Value, nil
}
