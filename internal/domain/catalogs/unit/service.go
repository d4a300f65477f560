package unit

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/numerator"
	"clinicstock/internal/core/tx"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain"
)

// Service provides business logic for units and product unit bindings.
// It is the single point of truth for unit conversion: the movement engine
// calls ToBase exactly once per operation.
type Service struct {
	*domain.CatalogService[*Unit]
	repo         Repository
	productUnits ProductUnitRepository
	txManager    tx.Manager
	numerator    numerator.Generator
}

// NewService creates a new unit service.
func NewService(repo Repository, productUnits ProductUnitRepository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Unit]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "unit",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		productUnits:   productUnits,
		txManager:      txManager,
		numerator:      gen,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)
	base.Hooks().On(domain.BeforeUpdate, svc.checkSymbolUnique)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks.
func (s *Service) prepareForCreate(ctx context.Context, u *Unit) error {
	if u.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("UN"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		u.Code = code
	}

	return s.checkSymbolUnique(ctx, u)
}

func (s *Service) checkSymbolUnique(ctx context.Context, u *Unit) error {
	existing, err := s.repo.FindBySymbol(ctx, u.Symbol)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != u.ID {
		return apperror.NewConflict("unit with this symbol already exists").
			WithDetail("symbol", u.Symbol)
	}
	return nil
}

// FindBySymbol retrieves unit by symbol.
func (s *Service) FindBySymbol(ctx context.Context, symbol string) (*Unit, error) {
	return s.repo.FindBySymbol(ctx, symbol)
}

// --- Product unit bindings ---

// AddProductUnit registers a unit binding for a product.
// A product may have exactly one base unit (factor = 1); adding a second
// one is a conflict.
func (s *Service) AddProductUnit(ctx context.Context, pu *ProductUnit) error {
	if err := pu.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if pu.IsBase() {
			existing, err := s.productUnits.FindBase(ctx, pu.ProductID)
			if err != nil && !apperror.IsNotFound(err) {
				return err
			}
			if existing != nil && existing.ID != pu.ID {
				return apperror.NewConflict("product already has a base unit").
					WithDetail("product_id", pu.ProductID.String()).
					WithDetail("base_unit_id", existing.ID.String())
			}
		}
		return s.productUnits.Create(ctx, pu)
	})
}

// GetProductUnit retrieves a binding by ID.
func (s *Service) GetProductUnit(ctx context.Context, productUnitID id.ID) (*ProductUnit, error) {
	pu, err := s.productUnits.GetByID(ctx, productUnitID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product unit", productUnitID.String())
		}
		return nil, err
	}
	return pu, nil
}

// ListProductUnits retrieves all bindings of a product.
func (s *Service) ListProductUnits(ctx context.Context, productID id.ID) ([]*ProductUnit, error) {
	return s.productUnits.ListByProduct(ctx, productID)
}

// ResolveConversion returns the conversion factor of a product unit,
// verifying that the unit actually belongs to the product.
func (s *Service) ResolveConversion(ctx context.Context, productID, productUnitID id.ID) (decimal.Decimal, error) {
	pu, err := s.GetProductUnit(ctx, productUnitID)
	if err != nil {
		return decimal.Zero, err
	}
	if pu.ProductID != productID {
		return decimal.Zero, apperror.NewNotFound("product unit", productUnitID.String()).
			WithDetail("product_id", productID.String())
	}
	return pu.ConversionToBase, nil
}

// ToBase converts a quantity expressed in the given product unit to base
// units. The result must land exactly on the 4-decimal grid; inexact
// conversions are rejected rather than rounded.
func (s *Service) ToBase(ctx context.Context, productID, productUnitID id.ID, qty types.Quantity) (types.Quantity, error) {
	factor, err := s.ResolveConversion(ctx, productID, productUnitID)
	if err != nil {
		return 0, err
	}
	base, err := qty.MulExact(factor)
	if err != nil {
		return 0, apperror.NewValidation("conversion result is not exact").
			WithDetail("quantity", qty.String()).
			WithDetail("factor", factor.String()).
			WithCause(err)
	}
	return base, nil
}

// ToDisplay converts a base quantity into the given product unit.
func (s *Service) ToDisplay(ctx context.Context, productID, productUnitID id.ID, baseQty types.Quantity) (types.Quantity, error) {
	factor, err := s.ResolveConversion(ctx, productID, productUnitID)
	if err != nil {
		return 0, err
	}
	display, err := baseQty.DivExact(factor)
	if err != nil {
		return 0, apperror.NewValidation("conversion result is not exact").
			WithDetail("quantity", baseQty.String()).
			WithDetail("factor", factor.String()).
			WithCause(err)
	}
	return display, nil
}

// RemoveProductUnit soft-deletes a binding. The base unit of a product with
// other bindings cannot be removed.
func (s *Service) RemoveProductUnit(ctx context.Context, productUnitID id.ID) error {
	pu, err := s.GetProductUnit(ctx, productUnitID)
	if err != nil {
		return err
	}

	if pu.IsBase() {
		others, err := s.productUnits.ListByProduct(ctx, pu.ProductID)
		if err != nil {
			return err
		}
		for _, other := range others {
			if other.ID != pu.ID && !other.DeletionMark {
				return apperror.NewConflict("cannot remove base unit while other units exist").
					WithDetail("product_id", pu.ProductID.String())
			}
		}
	}

	return s.productUnits.SetDeletionMark(ctx, productUnitID, true)
}
