package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Invoice is a registered contractor invoice. The id is the visible
// document number ("FT" + sequence) and Seq keeps its numeric part for
// ordering.
type Invoice struct {
	ID          string     `gorm:"column:id;primaryKey" json:"id"`
	Seq         int64      `gorm:"column:seq" json:"-"`
	InputDate   time.Time  `gorm:"column:input_date" json:"input_date"`
	Submitter   string     `gorm:"column:submitter" json:"submitter"`
	Division    string     `gorm:"column:division" json:"division"`
	Object      string     `gorm:"column:object" json:"object"`
	Contractor  string     `gorm:"column:contractor" json:"contractor"`
	InvoiceNo   string     `gorm:"column:invoice_no" json:"invoice_no"`
	InvoiceDate *time.Time `gorm:"column:invoice_date" json:"invoice_date,omitempty"`
	DocumentRef string     `gorm:"column:document_ref" json:"document_ref"`
	TotalAmount float64    `gorm:"column:total_amount" json:"total_amount"`

	Metadata  datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"column:created_at" json:"created_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}
