package service

import (
	"context"
	"math"
	"strings"

	"github.com/service-ns/paycycle/internal/clock"
	"github.com/service-ns/paycycle/internal/config"
	cycledomain "github.com/service-ns/paycycle/internal/cycle/domain"
	"github.com/service-ns/paycycle/internal/invoice/domain"
	"github.com/service-ns/paycycle/internal/sequence"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Alloc  sequence.Allocator
	Limits *config.LimitsHolder
	Repo   domain.Repository
	Cycles cycledomain.Service
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	alloc  sequence.Allocator
	limits *config.LimitsHolder
	repo   domain.Repository
	cycles cycledomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("invoice.service"),
		clock:  p.Clock,
		alloc:  p.Alloc,
		limits: p.Limits,
		repo:   p.Repo,
		cycles: p.Cycles,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.CreateInvoiceResponse, error) {
	submitter := strings.TrimSpace(req.Submitter)
	if submitter == "" {
		return domain.CreateInvoiceResponse{}, domain.ErrInvalidSubmitter
	}
	division := strings.TrimSpace(req.Division)
	if division == "" {
		return domain.CreateInvoiceResponse{}, domain.ErrInvalidDivision
	}
	object := strings.TrimSpace(req.Object)
	if object == "" {
		return domain.CreateInvoiceResponse{}, domain.ErrInvalidObject
	}
	contractor := strings.TrimSpace(req.Contractor)
	if contractor == "" {
		return domain.CreateInvoiceResponse{}, domain.ErrInvalidContractor
	}
	invoiceNo := strings.TrimSpace(req.InvoiceNo)
	if invoiceNo == "" {
		return domain.CreateInvoiceResponse{}, domain.ErrInvalidInvoiceNo
	}
	if req.InvoiceDate == nil || req.InvoiceDate.IsZero() {
		return domain.CreateInvoiceResponse{}, domain.ErrInvalidInvoiceDate
	}
	if req.TotalAmount < 0 || math.IsNaN(req.TotalAmount) || math.IsInf(req.TotalAmount, 0) {
		return domain.CreateInvoiceResponse{}, domain.ErrInvalidAmount
	}

	now := cycledomain.NormalizeTime(s.clock.Now())
	invoiceDate := req.InvoiceDate.UTC()

	var resp domain.CreateInvoiceResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, seq, err := s.alloc.NextInvoiceID(ctx, tx)
		if err != nil {
			return err
		}

		invoice := domain.Invoice{
			ID:          id,
			Seq:         seq,
			InputDate:   now,
			Submitter:   submitter,
			Division:    division,
			Object:      object,
			Contractor:  contractor,
			InvoiceNo:   invoiceNo,
			InvoiceDate: &invoiceDate,
			DocumentRef: strings.TrimSpace(req.DocumentRef),
			TotalAmount: req.TotalAmount,
			Metadata:    metadata(req.Metadata),
			CreatedAt:   now,
		}
		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			return err
		}

		// Every invoice starts its first payment cycle immediately, in
		// the same transaction.
		cycle, _, err := s.cycles.OpenCycle(ctx, tx, invoice.ID, invoice.TotalAmount)
		if err != nil {
			return err
		}

		resp.Invoice = invoice
		resp.Cycle = cycle
		return nil
	})
	if err != nil {
		return domain.CreateInvoiceResponse{}, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", resp.Invoice.ID),
		zap.String("cycle_id", resp.Cycle.ID),
		zap.String("submitter", submitter),
	)
	return resp, nil
}

func metadata(m map[string]interface{}) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(m)
}

func (s *Service) GetByID(ctx context.Context, req domain.GetInvoiceRequest) (domain.Invoice, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	return *invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoicesRequest) (domain.ListInvoicesResponse, error) {
	filter := domain.ListFilter{
		Limit: s.limits.Clamp(req.Limit),
	}
	// Non-admin callers only see their own submissions.
	if !req.IsAdmin {
		filter.Submitter = strings.TrimSpace(req.Caller)
	}

	invoices, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListInvoicesResponse{}, err
	}

	items := make([]domain.InvoiceListItem, 0, len(invoices))
	for _, invoice := range invoices {
		items = append(items, domain.InvoiceListItem{Invoice: invoice})
	}

	if req.WithBalance && len(items) > 0 {
		ids := make([]string, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ID)
		}
		paid, err := s.repo.PaidTotals(ctx, s.db, ids)
		if err != nil {
			return domain.ListInvoicesResponse{}, err
		}
		for i := range items {
			balance := items[i].TotalAmount - paid[items[i].ID]
			items[i].Balance = &balance
		}
	}

	return domain.ListInvoicesResponse{Invoices: items}, nil
}
