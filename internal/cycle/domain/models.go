package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Flag values accepted for the paid and registry marks. The reset value
// re-confirms a registry agreement without toggling the paid state.
const (
	FlagYes   = "yes"
	FlagNo    = "no"
	FlagNone  = "none"
	FlagReset = "reset"
)

// ActorSystem marks rows written by the service itself, such as the
// opening row of a payment cycle.
const ActorSystem = "system"

// PaymentCycle is one request-to-payment round for an invoice. At most
// one cycle per invoice may be open (ClosedAt == nil) at a time.
type PaymentCycle struct {
	ID        string     `gorm:"column:id;primaryKey" json:"id"`
	Seq       int64      `gorm:"column:seq" json:"-"`
	InvoiceID string     `gorm:"column:invoice_id" json:"invoice_id"`
	OpenedAt  time.Time  `gorm:"column:opened_at" json:"opened_at"`
	ClosedAt  *time.Time `gorm:"column:closed_at" json:"closed_at,omitempty"`
}

func (PaymentCycle) TableName() string {
	return "payment_cycles"
}

// Open reports whether the cycle is still awaiting payment.
func (c PaymentCycle) Open() bool {
	return c.ClosedAt == nil
}

// HistoryRow is a single entry in a cycle's request history.
type HistoryRow struct {
	ID          snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	CycleID     string       `gorm:"column:cycle_id" json:"cycle_id"`
	InvoiceID   string       `gorm:"column:invoice_id" json:"invoice_id"`
	RecordedAt  time.Time    `gorm:"column:recorded_at" json:"recorded_at"`
	Actor       string       `gorm:"column:actor" json:"actor"`
	AmountDue   float64      `gorm:"column:amount_due" json:"amount_due"`
	RequestFlag string       `gorm:"column:request_flag" json:"request_flag"`
	Synthetic   bool         `gorm:"column:synthetic" json:"synthetic"`
}

func (HistoryRow) TableName() string {
	return "history_rows"
}

// SourceAnnotation carries the division and object a history row was
// reported from, with the moment the annotation was last written.
type SourceAnnotation struct {
	RowID          snowflake.ID `gorm:"column:row_id;primaryKey" json:"row_id"`
	DivisionSource string       `gorm:"column:division_source" json:"division_source"`
	ObjectSource   string       `gorm:"column:object_source" json:"object_source"`
	StatusTime     time.Time    `gorm:"column:status_time" json:"status_time"`
}

func (SourceAnnotation) TableName() string {
	return "source_annotations"
}

// PaymentFact folds the paid and registry marks for one history row.
type PaymentFact struct {
	RowID        snowflake.ID `gorm:"column:row_id;primaryKey" json:"row_id"`
	PaidFlag     string       `gorm:"column:paid_flag" json:"paid_flag"`
	RegistryFlag string       `gorm:"column:registry_flag" json:"registry_flag"`
	PayTime      *time.Time   `gorm:"column:pay_time" json:"pay_time,omitempty"`
	AgreeTime    *time.Time   `gorm:"column:agree_time" json:"agree_time,omitempty"`
	AgreedBy     string       `gorm:"column:agreed_by" json:"agreed_by"`
}

func (PaymentFact) TableName() string {
	return "payment_facts"
}

// Paid reports whether the row is marked as paid.
func (f PaymentFact) Paid() bool {
	return f.PaidFlag == FlagYes
}
