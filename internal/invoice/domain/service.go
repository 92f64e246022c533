package domain

import (
	"context"
	"errors"
	"time"

	cycledomain "github.com/service-ns/paycycle/internal/cycle/domain"
)

type CreateInvoiceRequest struct {
	Submitter   string
	Division    string
	Object      string
	Contractor  string
	InvoiceNo   string
	InvoiceDate *time.Time
	DocumentRef string
	TotalAmount float64
	Metadata    map[string]interface{}
}

type CreateInvoiceResponse struct {
	Invoice Invoice                  `json:"invoice"`
	Cycle   cycledomain.PaymentCycle `json:"cycle"`
}

type ListInvoicesRequest struct {
	Caller      string
	IsAdmin     bool
	Limit       int
	WithBalance bool
}

// InvoiceListItem is an invoice with its optional remaining balance:
// the total minus everything already paid out against it.
type InvoiceListItem struct {
	Invoice
	Balance *float64 `json:"balance,omitempty"`
}

type ListInvoicesResponse struct {
	Invoices []InvoiceListItem `json:"invoices"`
}

type GetInvoiceRequest struct {
	ID string
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (CreateInvoiceResponse, error)
	GetByID(ctx context.Context, req GetInvoiceRequest) (Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) (ListInvoicesResponse, error)
}

var (
	ErrInvalidSubmitter   = errors.New("invalid_submitter")
	ErrInvalidDivision    = errors.New("invalid_division")
	ErrInvalidObject      = errors.New("invalid_object")
	ErrInvalidContractor  = errors.New("invalid_contractor")
	ErrInvalidInvoiceNo   = errors.New("invalid_invoice_no")
	ErrInvalidInvoiceDate = errors.New("invalid_invoice_date")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("not_found")
)
