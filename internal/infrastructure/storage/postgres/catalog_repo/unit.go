package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/catalogs/unit"
	"clinicstock/internal/infrastructure/storage/postgres"
)

const (
	unitTable        = "cat_units"
	productUnitTable = "cat_product_units"
)

// UnitRepo implements unit.Repository.
type UnitRepo struct {
	*BaseCatalogRepo[*unit.Unit]
}

// NewUnitRepo creates a new unit repository.
func NewUnitRepo(txManager *postgres.TxManager) *UnitRepo {
	return &UnitRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			unitTable,
			postgres.ExtractDBColumns[unit.Unit](),
			func() *unit.Unit { return &unit.Unit{} },
		),
	}
}

// FindBySymbol retrieves unit by symbol.
func (r *UnitRepo) FindBySymbol(ctx context.Context, symbol string) (*unit.Unit, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"symbol": symbol}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	u, err := r.FindOne(ctx, q)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewNotFound("unit", symbol)
	}
	return u, err
}

// ProductUnitRepo implements unit.ProductUnitRepository.
// Bindings are not catalogs: no code, no name, no optimistic locking.
type ProductUnitRepo struct {
	txManager *postgres.TxManager
}

// Compile-time check.
var _ unit.ProductUnitRepository = (*ProductUnitRepo)(nil)

// NewProductUnitRepo creates a new product unit repository.
func NewProductUnitRepo(txManager *postgres.TxManager) *ProductUnitRepo {
	return &ProductUnitRepo{txManager: txManager}
}

func (r *ProductUnitRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ProductUnitRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().
		Select("id", "product_id", "unit_id", "conversion_to_base", "deletion_mark").
		From(productUnitTable)
}

// Create inserts a new binding. The partial unique index on
// (product_id) WHERE conversion_to_base = 1 backs the one-base-unit rule.
func (r *ProductUnitRepo) Create(ctx context.Context, pu *unit.ProductUnit) error {
	q := r.builder().
		Insert(productUnitTable).
		Columns("id", "product_id", "unit_id", "conversion_to_base", "deletion_mark").
		Values(pu.ID, pu.ProductID, pu.UnitID, pu.ConversionToBase, pu.DeletionMark)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	_, err = r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewConflict("product already has a base unit").
				WithDetail("product_id", pu.ProductID.String()).
				WithCause(err)
		}
		return fmt.Errorf("insert product unit: %w", err)
	}
	return nil
}

// GetByID retrieves binding by ID.
func (r *ProductUnitRepo) GetByID(ctx context.Context, puID id.ID) (*unit.ProductUnit, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": puID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var pu unit.ProductUnit
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &pu, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product unit", puID.String())
		}
		return nil, fmt.Errorf("get product unit: %w", err)
	}
	return &pu, nil
}

// ListByProduct retrieves all live bindings of a product.
func (r *ProductUnitRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*unit.ProductUnit, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("conversion_to_base")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*unit.ProductUnit
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list product units: %w", err)
	}
	return items, nil
}

// FindBase retrieves the product's base unit binding.
func (r *ProductUnitRepo) FindBase(ctx context.Context, productID id.ID) (*unit.ProductUnit, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Expr("conversion_to_base = 1")).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var pu unit.ProductUnit
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &pu, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("base unit", productID.String())
		}
		return nil, fmt.Errorf("find base unit: %w", err)
	}
	return &pu, nil
}

// SetDeletionMark sets or clears the deletion mark.
func (r *ProductUnitRepo) SetDeletionMark(ctx context.Context, puID id.ID, marked bool) error {
	q := r.builder().
		Update(productUnitTable).
		Set("deletion_mark", marked).
		Where(squirrel.Eq{"id": puID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deletion mark: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("product unit", puID.String())
	}
	return nil
}
