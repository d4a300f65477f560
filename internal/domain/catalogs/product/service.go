package product

import (
	"context"
	"fmt"
	"time"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/numerator"
	"clinicstock/internal/core/tx"
	"clinicstock/internal/domain"
)

// Service provides business logic for Product catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Product]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Product service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)
	base.Hooks().On(domain.BeforeUpdate, svc.checkCodeUnique)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks.
func (s *Service) prepareForCreate(ctx context.Context, p *Product) error {
	if p.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PRD"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		p.Code = code
	}

	return s.checkCodeUnique(ctx, p)
}

func (s *Service) checkCodeUnique(ctx context.Context, p *Product) error {
	existing, err := s.repo.GetByCode(ctx, p.Code)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != p.ID {
		return apperror.NewDuplicate("product", "code", p.Code)
	}
	return nil
}

// --- Entity-specific methods ---

// FindByBarcode retrieves product by barcode.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	p, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product", barcode)
		}
		return nil, err
	}
	return p, nil
}

// MustExist returns NotFound unless the product exists and is not deleted.
func (s *Service) MustExist(ctx context.Context, productID id.ID) error {
	ok, err := s.repo.Exists(ctx, productID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}
