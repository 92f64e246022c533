package service

import (
	"context"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/service-ns/paycycle/internal/clock"
	"github.com/service-ns/paycycle/internal/cycle/domain"
	"github.com/service-ns/paycycle/internal/sequence"
	"github.com/service-ns/paycycle/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Alloc sequence.Allocator
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	alloc sequence.Allocator
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("cycle.service"),
		genID: p.GenID,
		clock: p.Clock,
		alloc: p.Alloc,
		repo:  p.Repo,
	}
}

func (s *Service) OpenCycle(ctx context.Context, tx *gorm.DB, invoiceID string, totalAmount float64) (domain.PaymentCycle, domain.HistoryRow, error) {
	return s.openCycle(ctx, tx, invoiceID, totalAmount)
}

func (s *Service) openCycle(ctx context.Context, tx *gorm.DB, invoiceID string, totalAmount float64) (domain.PaymentCycle, domain.HistoryRow, error) {
	now := domain.NormalizeTime(s.clock.Now())

	id, seq, err := s.alloc.NextCycleID(ctx, tx)
	if err != nil {
		return domain.PaymentCycle{}, domain.HistoryRow{}, err
	}

	cycle := domain.PaymentCycle{
		ID:        id,
		Seq:       seq,
		InvoiceID: invoiceID,
		OpenedAt:  now,
	}
	if err := s.repo.InsertCycle(ctx, tx, &cycle); err != nil {
		// The partial unique index on (invoice_id) WHERE closed_at IS NULL
		// rejects a second open cycle racing past the invoice lock.
		if db.IsDuplicateKeyErr(err) {
			return domain.PaymentCycle{}, domain.HistoryRow{}, domain.ErrCycleAlreadyOpen
		}
		return domain.PaymentCycle{}, domain.HistoryRow{}, err
	}

	// The opening row mirrors the invoice total so the history always
	// starts from the full amount due.
	row := domain.HistoryRow{
		ID:          s.genID.Generate(),
		CycleID:     cycle.ID,
		InvoiceID:   invoiceID,
		RecordedAt:  now,
		Actor:       domain.ActorSystem,
		AmountDue:   totalAmount,
		RequestFlag: domain.FlagNone,
		Synthetic:   true,
	}
	if err := s.repo.InsertRow(ctx, tx, &row); err != nil {
		return domain.PaymentCycle{}, domain.HistoryRow{}, err
	}

	s.log.Info("cycle opened",
		zap.String("cycle_id", cycle.ID),
		zap.String("invoice_id", invoiceID),
	)
	return cycle, row, nil
}

func (s *Service) RecordHistoryEntry(ctx context.Context, req domain.RecordHistoryEntryRequest) (domain.RecordHistoryEntryResponse, error) {
	invoiceID := strings.TrimSpace(req.InvoiceID)
	if invoiceID == "" {
		return domain.RecordHistoryEntryResponse{}, domain.ErrInvalidInvoiceID
	}

	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		actor = domain.ActorSystem
	}

	flag := strings.TrimSpace(req.RequestFlag)
	if flag == "" {
		flag = domain.FlagNone
	}
	if !domain.ValidFlag(flag) {
		return domain.RecordHistoryEntryResponse{}, domain.ErrInvalidFlag
	}

	if req.AmountDue < 0 || math.IsNaN(req.AmountDue) || math.IsInf(req.AmountDue, 0) {
		return domain.RecordHistoryEntryResponse{}, domain.ErrInvalidAmount
	}

	var resp domain.RecordHistoryEntryResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.LockInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}

		cycle, err := s.repo.FindLatestCycle(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if cycle == nil || !cycle.Open() {
			opened, _, err := s.openCycle(ctx, tx, invoiceID, invoice.TotalAmount)
			if err != nil {
				return err
			}
			cycle = &opened
			resp.NewCycle = true
		}

		row := domain.HistoryRow{
			ID:          s.genID.Generate(),
			CycleID:     cycle.ID,
			InvoiceID:   invoiceID,
			RecordedAt:  domain.NormalizeTime(s.clock.Now()),
			Actor:       actor,
			AmountDue:   req.AmountDue,
			RequestFlag: flag,
		}
		if err := s.repo.InsertRow(ctx, tx, &row); err != nil {
			return err
		}

		resp.Cycle = *cycle
		resp.Row = row
		return nil
	})
	if err != nil {
		return domain.RecordHistoryEntryResponse{}, err
	}

	return resp, nil
}

func (s *Service) SetPaymentStatus(ctx context.Context, req domain.SetPaymentStatusRequest) (domain.SetPaymentStatusResponse, error) {
	if !req.IsAdmin {
		return domain.SetPaymentStatusResponse{}, domain.ErrPermissionDenied
	}
	if req.RowID == 0 {
		return domain.SetPaymentStatusResponse{}, domain.ErrInvalidRowID
	}

	paidFlag := strings.TrimSpace(req.PaidFlag)
	if paidFlag != "" && !domain.ValidFlag(paidFlag) {
		return domain.SetPaymentStatusResponse{}, domain.ErrInvalidFlag
	}
	registryFlag := strings.TrimSpace(req.RegistryFlag)
	if registryFlag != "" && !domain.ValidFlag(registryFlag) {
		return domain.SetPaymentStatusResponse{}, domain.ErrInvalidFlag
	}

	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		actor = domain.ActorSystem
	}

	var resp domain.SetPaymentStatusResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row, err := s.repo.FindRow(ctx, tx, req.RowID)
		if err != nil {
			return err
		}
		if row == nil {
			return domain.ErrNotFound
		}

		invoice, err := s.repo.LockInvoice(ctx, tx, row.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}

		fact, err := s.repo.GetPaymentFact(ctx, tx, row.ID)
		if err != nil {
			return err
		}
		if fact == nil {
			fact = &domain.PaymentFact{
				RowID:        row.ID,
				PaidFlag:     domain.FlagNone,
				RegistryFlag: domain.FlagNone,
			}
		}

		now := domain.NormalizeTime(s.clock.Now())
		next := domain.ApplyPaymentTransition(*fact, paidFlag, registryFlag, actor, now)
		if err := s.repo.UpsertPaymentFact(ctx, tx, &next); err != nil {
			return err
		}

		cycle, err := s.repo.FindCycle(ctx, tx, row.CycleID)
		if err != nil {
			return err
		}
		if cycle == nil {
			return domain.ErrNotFound
		}

		if next.Paid() && cycle.Open() {
			if err := s.repo.SetCycleClosed(ctx, tx, cycle.ID, &now); err != nil {
				return err
			}
			cycle.ClosedAt = &now
		}
		if !next.Paid() && !cycle.Open() {
			// Reopen only when no later cycle took over; the invoice may
			// hold a single open cycle at a time.
			latest, err := s.repo.FindLatestCycle(ctx, tx, row.InvoiceID)
			if err != nil {
				return err
			}
			if latest == nil || !latest.Open() {
				if err := s.repo.SetCycleClosed(ctx, tx, cycle.ID, nil); err != nil {
					return err
				}
				cycle.ClosedAt = nil
			}
		}

		resp.Row = *row
		resp.Fact = next
		resp.CycleClosed = !cycle.Open()
		return nil
	})
	if err != nil {
		return domain.SetPaymentStatusResponse{}, err
	}

	return resp, nil
}

func (s *Service) SetSourceAnnotation(ctx context.Context, req domain.SetSourceAnnotationRequest) (domain.SourceAnnotation, error) {
	if req.RowID == 0 {
		return domain.SourceAnnotation{}, domain.ErrInvalidRowID
	}

	var annotation domain.SourceAnnotation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row, err := s.repo.FindRow(ctx, tx, req.RowID)
		if err != nil {
			return err
		}
		if row == nil {
			return domain.ErrNotFound
		}
		annotation = domain.SourceAnnotation{
			RowID:          row.ID,
			DivisionSource: strings.TrimSpace(req.DivisionSource),
			ObjectSource:   strings.TrimSpace(req.ObjectSource),
			StatusTime:     domain.NormalizeTime(s.clock.Now()),
		}
		return s.repo.UpsertSourceAnnotation(ctx, tx, &annotation)
	})
	if err != nil {
		return domain.SourceAnnotation{}, err
	}

	return annotation, nil
}

func (s *Service) SetCycleSourceAnnotation(ctx context.Context, req domain.SetCycleSourceAnnotationRequest) (domain.SourceAnnotation, error) {
	cycleID := strings.TrimSpace(req.CycleID)
	if cycleID == "" {
		return domain.SourceAnnotation{}, domain.ErrInvalidCycleID
	}

	var annotation domain.SourceAnnotation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		cycle, err := s.repo.FindCycle(ctx, tx, cycleID)
		if err != nil {
			return err
		}
		if cycle == nil {
			return domain.ErrNotFound
		}

		row, err := s.repo.FindLatestRowInCycle(ctx, tx, cycle.ID)
		if err != nil {
			return err
		}
		if row == nil {
			return domain.ErrEmptyCycleHistory
		}

		annotation = domain.SourceAnnotation{
			RowID:          row.ID,
			DivisionSource: strings.TrimSpace(req.DivisionSource),
			ObjectSource:   strings.TrimSpace(req.ObjectSource),
			StatusTime:     domain.NormalizeTime(s.clock.Now()),
		}
		return s.repo.UpsertSourceAnnotation(ctx, tx, &annotation)
	})
	if err != nil {
		return domain.SourceAnnotation{}, err
	}

	return annotation, nil
}
