package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// RecordHistoryEntryRequest appends a payment-request row to the
// invoice's open cycle, opening a fresh cycle when none is open.
type RecordHistoryEntryRequest struct {
	InvoiceID   string
	Actor       string
	AmountDue   float64
	RequestFlag string
}

type RecordHistoryEntryResponse struct {
	Cycle    PaymentCycle `json:"cycle"`
	Row      HistoryRow   `json:"row"`
	NewCycle bool         `json:"new_cycle"`
}

// SetPaymentStatusRequest updates the paid and registry marks of a
// history row. Only admins may call it.
type SetPaymentStatusRequest struct {
	RowID        snowflake.ID
	PaidFlag     string
	RegistryFlag string
	Actor        string
	IsAdmin      bool
}

type SetPaymentStatusResponse struct {
	Row         HistoryRow  `json:"row"`
	Fact        PaymentFact `json:"fact"`
	CycleClosed bool        `json:"cycle_closed"`
}

// SetSourceAnnotationRequest records where a history row was reported
// from, addressed by row id.
type SetSourceAnnotationRequest struct {
	RowID          snowflake.ID
	DivisionSource string
	ObjectSource   string
}

// SetCycleSourceAnnotationRequest is the legacy form that addresses the
// latest row of a cycle instead of a concrete row.
type SetCycleSourceAnnotationRequest struct {
	CycleID        string
	DivisionSource string
	ObjectSource   string
}

type Service interface {
	// OpenCycle opens the first cycle for a freshly created invoice and
	// writes its synthetic opening row. It runs on the caller's
	// transaction so invoice and cycle commit together.
	OpenCycle(ctx context.Context, tx *gorm.DB, invoiceID string, totalAmount float64) (PaymentCycle, HistoryRow, error)

	RecordHistoryEntry(ctx context.Context, req RecordHistoryEntryRequest) (RecordHistoryEntryResponse, error)
	SetPaymentStatus(ctx context.Context, req SetPaymentStatusRequest) (SetPaymentStatusResponse, error)
	SetSourceAnnotation(ctx context.Context, req SetSourceAnnotationRequest) (SourceAnnotation, error)
	SetCycleSourceAnnotation(ctx context.Context, req SetCycleSourceAnnotationRequest) (SourceAnnotation, error)
}

var (
	ErrInvalidInvoiceID  = errors.New("invalid_invoice_id")
	ErrInvalidRowID      = errors.New("invalid_row_id")
	ErrInvalidCycleID    = errors.New("invalid_cycle_id")
	ErrInvalidActor      = errors.New("invalid_actor")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidFlag       = errors.New("invalid_flag")
	ErrNotFound          = errors.New("not_found")
	ErrPermissionDenied  = errors.New("permission_denied")
	ErrCycleAlreadyOpen  = errors.New("cycle_already_open")
	ErrEmptyCycleHistory = errors.New("empty_cycle_history")
)

// ValidFlag reports whether the value is an accepted flag literal.
func ValidFlag(value string) bool {
	switch value {
	case FlagYes, FlagNo, FlagNone, FlagReset:
		return true
	default:
		return false
	}
}

// NormalizeTime truncates to whole seconds in UTC, matching the
// precision stored by the schema.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
