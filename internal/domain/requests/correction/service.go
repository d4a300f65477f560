package correction

import (
	"context"
	"fmt"
	"time"

	"clinicstock/internal/core/apperror"
	appctx "clinicstock/internal/core/context"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/numerator"
	"clinicstock/internal/core/tx"
	"clinicstock/internal/domain/audit"
	"clinicstock/internal/domain/movement"
	"clinicstock/internal/domain/requests"
	"clinicstock/pkg/logger"
)

// Service provides correction request workflow logic.
type Service struct {
	repo      Repository
	engine    *movement.Engine
	audit     requests.AuditRecorder
	txManager tx.Manager
	numerator numerator.Generator
}

// NewService creates a correction service.
func NewService(repo Repository, engine *movement.Engine, audit requests.AuditRecorder, txManager tx.Manager, gen numerator.Generator) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		audit:     audit,
		txManager: txManager,
		numerator: gen,
	}
}

// Create validates and stores a new pending request.
func (s *Service) Create(ctx context.Context, req *Request) error {
	if err := req.Validate(ctx); err != nil {
		return err
	}
	if req.Status != entity.StatusPending {
		return apperror.NewValidation("new request must be pending")
	}

	if req.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("COR"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		req.Number = number
	}
	audit.EnrichCreatedByDirect(ctx, &req.CreatedBy, &req.UpdatedBy)

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, req)
	})
}

// GetByID retrieves a request with items.
func (s *Service) GetByID(ctx context.Context, reqID id.ID) (*Request, error) {
	return s.repo.GetByID(ctx, reqID)
}

// List retrieves requests.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*Request, int64, error) {
	return s.repo.List(ctx, f)
}

// Update rewrites a pending request.
func (s *Service) Update(ctx context.Context, req *Request) error {
	current, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		return err
	}
	if err := current.CanModify(); err != nil {
		return err
	}
	if err := req.Validate(ctx); err != nil {
		return err
	}
	audit.EnrichUpdatedByDirect(ctx, &req.UpdatedBy)
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, req)
	})
}

// Delete soft-deletes a pending request.
func (s *Service) Delete(ctx context.Context, reqID id.ID) error {
	current, err := s.repo.GetByID(ctx, reqID)
	if err != nil {
		return err
	}
	if err := current.CanModify(); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetDeletionMark(ctx, reqID, true)
	})
}

// SetApproval moves the request to APPROVED or REJECTED. Approval applies
// every signed line via the movement engine; the status write, the stock
// effect and the audit record commit or abort together.
func (s *Service) SetApproval(ctx context.Context, reqID id.ID, to entity.RequestStatus) error {
	actor := appctx.GetActorID(ctx)

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		req, err := s.repo.GetByID(ctx, reqID)
		if err != nil {
			return err
		}
		from := req.Status

		if err := requests.EnsureTransition(requests.KindCorrection, from, to); err != nil {
			return err
		}

		switch to {
		case entity.StatusApproved:
			req.MarkApproved(actor)
		case entity.StatusRejected:
			req.MarkRejected(actor)
		}

		if err := s.repo.UpdateStatus(ctx, req); err != nil {
			return err
		}

		if requests.MovesStock(requests.KindCorrection, to) {
			for i := range req.Items {
				item := &req.Items[i]
				_, err := s.engine.Correct(ctx, movement.CorrectionCommand{
					BatchID:       item.BatchID,
					ProductUnitID: item.ProductUnitID,
					Quantity:      item.Quantity,
					Pool:          movement.PoolRef{Kind: item.PoolKind, ScopeKey: item.ScopeKey},
					SetStatus:     item.SetStatus,
					Reference:     item.LineID.String(),
					Notes:         fmt.Sprintf("correction %s: %s", req.Number, req.Reason),
				})
				if err != nil {
					return err
				}
			}
		}

		if err := s.audit.RecordTransition(ctx, requests.TransitionRecord{
			RequestID:   req.ID,
			RequestKind: requests.KindCorrection,
			FromStatus:  from,
			ToStatus:    to,
			ActorID:     actor,
			OccurredAt:  time.Now().UTC(),
			Payload:     req,
		}); err != nil {
			return err
		}

		logger.Info(ctx, "correction transition",
			"request_id", req.ID.String(), "number", req.Number,
			"from", string(from), "to", string(to))
		return nil
	})
}
