package withdrawal

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

// Service provides withdrawal request workflow logic.
type Service struct {
	repo      Repository
	engine    *movement.Engine
	audit     requests.AuditRecorder
	txManager tx.Manager
	numerator numerator.Generator
}

// NewService creates a withdrawal service.
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
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("WDR"), nil, time.Now())
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

// SetStatus moves the request through its workflow. ISSUED transfers every
// line via the movement engine; the status write, the stock effect and the
// audit record commit or abort together. Custody withdrawals must pass
// through APPROVED before issuance.
func (s *Service) SetStatus(ctx context.Context, reqID id.ID, to entity.RequestStatus) error {
	actor := appctx.GetActorID(ctx)

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		req, err := s.repo.GetByID(ctx, reqID)
		if err != nil {
			return err
		}
		from := req.Status

		if err := requests.EnsureTransition(requests.KindWithdrawal, from, to); err != nil {
			return err
		}
		if to == entity.StatusIssued && from == entity.StatusPending && req.MoveKind.RequiresApproval() {
			return apperror.NewInvalidStateTransition("withdrawal request", string(from), string(to)).
				WithDetail("reason", "custody withdrawal must be approved before issuance")
		}

		switch to {
		case entity.StatusApproved:
			req.MarkApproved(actor)
		case entity.StatusRejected:
			req.MarkRejected(actor)
		case entity.StatusIssued:
			req.MarkIssued(actor)
		}

		if err := s.repo.UpdateStatus(ctx, req); err != nil {
			return err
		}

		if requests.MovesStock(requests.KindWithdrawal, to) {
			fromPool, toPool := req.pools()
			for i := range req.Items {
				item := &req.Items[i]
				_, err := s.engine.Transfer(ctx, movement.TransferCommand{
					BatchID:       item.BatchID,
					ProductUnitID: item.ProductUnitID,
					Quantity:      item.Quantity,
					From:          fromPool,
					To:            toPool,
					Reference:     item.LineID.String(),
					Notes:         fmt.Sprintf("withdrawal %s", req.Number),
				})
				if err != nil {
					return err
				}
			}
		}

		if err := s.audit.RecordTransition(ctx, requests.TransitionRecord{
			RequestID:   req.ID,
			RequestKind: requests.KindWithdrawal,
			FromStatus:  from,
			ToStatus:    to,
			ActorID:     actor,
			OccurredAt:  time.Now().UTC(),
			Payload:     req,
		}); err != nil {
			return err
		}

		logger.Info(ctx, "withdrawal transition",
			"request_id", req.ID.String(), "number", req.Number,
			"kind", string(req.MoveKind),
			"from", string(from), "to", string(to))
		return nil
	})
}

// pools resolves the source and destination pool for the request's kind.
func (r *Request) pools() (movement.PoolRef, movement.PoolRef) {
	switch r.MoveKind {
	case LocationToMain:
		return movement.PoolRef{Kind: entity.PoolLocation, ScopeKey: r.TargetScope}, movement.MainPool()
	case Custody:
		return movement.MainPool(), movement.PoolRef{Kind: entity.PoolPersonal, ScopeKey: r.TargetScope}
	default:
		return movement.MainPool(), movement.PoolRef{Kind: entity.PoolLocation, ScopeKey: r.TargetScope}
	}
}
