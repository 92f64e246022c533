package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// HistoryRecord is one flattened history row with its invoice, source
// annotation and payment fact joined in.
type HistoryRecord struct {
	RowID       snowflake.ID `gorm:"column:row_id" json:"row_id"`
	CycleID     string       `gorm:"column:cycle_id" json:"cycle_id"`
	InvoiceID   string       `gorm:"column:invoice_id" json:"invoice_id"`
	InvoiceSeq  int64        `gorm:"column:invoice_seq" json:"-"`
	Submitter   string       `gorm:"column:submitter" json:"submitter"`
	Division    string       `gorm:"column:division" json:"division"`
	Object      string       `gorm:"column:object" json:"object"`
	Contractor  string       `gorm:"column:contractor" json:"contractor"`
	InvoiceNo   string       `gorm:"column:invoice_no" json:"invoice_no"`
	TotalAmount float64      `gorm:"column:total_amount" json:"total_amount"`

	RecordedAt  time.Time `gorm:"column:recorded_at" json:"recorded_at"`
	Actor       string    `gorm:"column:actor" json:"actor"`
	AmountDue   float64   `gorm:"column:amount_due" json:"amount_due"`
	RequestFlag string    `gorm:"column:request_flag" json:"request_flag"`
	Synthetic   bool      `gorm:"column:synthetic" json:"synthetic"`

	DivisionSource string     `gorm:"column:division_source" json:"division_source"`
	ObjectSource   string     `gorm:"column:object_source" json:"object_source"`
	StatusTime     *time.Time `gorm:"column:status_time" json:"status_time,omitempty"`

	PaidFlag     string     `gorm:"column:paid_flag" json:"paid_flag"`
	RegistryFlag string     `gorm:"column:registry_flag" json:"registry_flag"`
	PayTime      *time.Time `gorm:"column:pay_time" json:"pay_time,omitempty"`
	AgreeTime    *time.Time `gorm:"column:agree_time" json:"agree_time,omitempty"`
	AgreedBy     string     `gorm:"column:agreed_by" json:"agreed_by"`
}

type ListHistoryRequest struct {
	Caller           string
	IsAdmin          bool
	Limit            int
	LatestPerCycle   bool
	IncludeSynthetic bool
}

type ListHistoryResponse struct {
	Records []HistoryRecord `json:"records"`
}

type Service interface {
	ListHistory(ctx context.Context, req ListHistoryRequest) (ListHistoryResponse, error)
}

var ErrInvalidCaller = errors.New("invalid_caller")
