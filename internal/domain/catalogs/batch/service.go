package batch

import (
	"context"
	"time"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/tx"
	"clinicstock/internal/domain"
)

// Service provides business logic for the Batch catalog.
type Service struct {
	*domain.CatalogService[*Batch]
	repo Repository
}

// NewService creates a new Batch service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Batch]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "batch",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
	}

	base.Hooks().On(domain.BeforeCreate, svc.checkBatchNumberUnique)
	base.Hooks().On(domain.BeforeUpdate, svc.checkBatchNumberUnique)

	return svc
}

// checkBatchNumberUnique enforces batch number uniqueness.
func (s *Service) checkBatchNumberUnique(ctx context.Context, b *Batch) error {
	existing, err := s.repo.FindByBatchNumber(ctx, b.BatchNumber)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != b.ID {
		return apperror.NewDuplicate("batch", "batchNumber", b.BatchNumber)
	}
	return nil
}

// FindByBatchNumber retrieves batch by its unique batch number.
func (s *Service) FindByBatchNumber(ctx context.Context, number string) (*Batch, error) {
	b, err := s.repo.FindByBatchNumber(ctx, number)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("batch", number)
		}
		return nil, err
	}
	return b, nil
}

// ListByProduct retrieves all batches of a product.
func (s *Service) ListByProduct(ctx context.Context, productID id.ID) ([]*Batch, error) {
	return s.repo.ListByProduct(ctx, productID)
}

// ListExpiring retrieves batches expiring within the given horizon.
func (s *Service) ListExpiring(ctx context.Context, horizon time.Duration) ([]*Batch, error) {
	return s.repo.ListExpiring(ctx, time.Now().UTC().Add(horizon))
}
