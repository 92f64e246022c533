package service

import (
	"context"
	"strings"

	"github.com/service-ns/paycycle/internal/config"
	"github.com/service-ns/paycycle/internal/projection/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Limits *config.LimitsHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	limits *config.LimitsHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("projection.service"),
		limits: p.Limits,
	}
}

const historySelect = `
SELECT
	r.id AS row_id,
	r.cycle_id,
	r.invoice_id,
	i.seq AS invoice_seq,
	i.submitter,
	i.division,
	i.object,
	i.contractor,
	i.invoice_no,
	i.total_amount,
	r.recorded_at,
	r.actor,
	r.amount_due,
	r.request_flag,
	r.synthetic,
	COALESCE(sa.division_source, '') AS division_source,
	COALESCE(sa.object_source, '') AS object_source,
	sa.status_time,
	COALESCE(pf.paid_flag, 'none') AS paid_flag,
	COALESCE(pf.registry_flag, 'none') AS registry_flag,
	pf.pay_time,
	pf.agree_time,
	COALESCE(pf.agreed_by, '') AS agreed_by
FROM history_rows r
JOIN invoices i ON i.id = r.invoice_id
LEFT JOIN source_annotations sa ON sa.row_id = r.id
LEFT JOIN payment_facts pf ON pf.row_id = r.id`

func (s *Service) ListHistory(ctx context.Context, req domain.ListHistoryRequest) (domain.ListHistoryResponse, error) {
	caller := strings.TrimSpace(req.Caller)
	if !req.IsAdmin && caller == "" {
		return domain.ListHistoryResponse{}, domain.ErrInvalidCaller
	}

	var (
		where []string
		args  []interface{}
	)

	if !req.IsAdmin {
		where = append(where, "i.submitter = ?")
		args = append(args, caller)
	}
	if !req.IncludeSynthetic {
		where = append(where, "r.synthetic = ?")
		args = append(args, false)
	}
	if req.LatestPerCycle {
		sub := `r.id = (
			SELECT r2.id FROM history_rows r2
			WHERE r2.cycle_id = r.cycle_id`
		if !req.IncludeSynthetic {
			sub += ` AND r2.synthetic = ?`
			args = append(args, false)
		}
		sub += `
			ORDER BY r2.recorded_at DESC, r2.id DESC
			LIMIT 1
		)`
		where = append(where, sub)
	}

	query := historySelect
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY i.seq DESC, r.recorded_at DESC, r.id DESC"
	query += "\nLIMIT ?"
	args = append(args, s.limits.Clamp(req.Limit))

	var records []domain.HistoryRecord
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&records).Error; err != nil {
		return domain.ListHistoryResponse{}, err
	}

	return domain.ListHistoryResponse{Records: records}, nil
}
