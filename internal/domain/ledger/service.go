package ledger

import (
	"context"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// Service provides validated access to the stock ledger.
type Service struct {
	repo Repository
}

// NewService creates a new ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Append validates and writes ledger rows. Used only by the movement
// engine; the HTTP layer never appends rows directly.
func (s *Service) Append(ctx context.Context, entries []entity.LedgerEntry) error {
	for i := range entries {
		if err := validateEntry(&entries[i]); err != nil {
			return err
		}
	}
	return s.repo.Append(ctx, entries)
}

func validateEntry(e *entity.LedgerEntry) error {
	if id.IsNil(e.LineID) {
		return apperror.NewValidation("lineId is required")
	}
	if id.IsNil(e.BatchID) {
		return apperror.NewValidation("batchId is required")
	}
	if id.IsNil(e.ProductID) {
		return apperror.NewValidation("productId is required")
	}
	if e.Movement != entity.MovementIn && e.Movement != entity.MovementOut {
		return apperror.NewValidation("invalid movement type").
			WithDetail("movementType", string(e.Movement))
	}
	if !e.StockType.Valid() {
		return apperror.NewValidation("invalid stock type").
			WithDetail("stockType", string(e.StockType))
	}
	if !e.Quantity.IsPositive() {
		return apperror.NewValidation("ledger quantity must be positive").
			WithDetail("quantity", e.Quantity.String())
	}
	if e.Reference == "" {
		return apperror.NewValidation("reference is required")
	}
	return nil
}

// Find retrieves rows matching the filter, oldest first.
func (s *Service) Find(ctx context.Context, f Filter) ([]entity.LedgerEntry, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	items, err := s.repo.Find(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FindByBatch retrieves the full history of one batch.
func (s *Service) FindByBatch(ctx context.Context, batchID id.ID, limit, offset int) ([]entity.LedgerEntry, int64, error) {
	return s.Find(ctx, Filter{BatchID: &batchID, Limit: limit, Offset: offset})
}

// FindByProduct retrieves the history of all batches of one product.
func (s *Service) FindByProduct(ctx context.Context, productID id.ID, limit, offset int) ([]entity.LedgerEntry, int64, error) {
	return s.Find(ctx, Filter{ProductID: &productID, Limit: limit, Offset: offset})
}

// FindByReference retrieves all rows of one operation.
// Both rows of a transfer share one reference.
func (s *Service) FindByReference(ctx context.Context, reference string) ([]entity.LedgerEntry, error) {
	return s.repo.FindByReference(ctx, reference)
}

// SignedSum computes the signed quantity sum of a set of rows.
// Over a whole pool's history it reproduces the pool balance.
func SignedSum(entries []entity.LedgerEntry) types.Quantity {
	var sum types.Quantity
	for i := range entries {
		sum += entries[i].SignedQuantity()
	}
	return sum
}
