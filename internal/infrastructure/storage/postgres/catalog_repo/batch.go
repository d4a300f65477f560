package catalog_repo

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/catalogs/batch"
	"clinicstock/internal/infrastructure/storage/postgres"
)

const batchTable = "cat_batches"

// BatchRepo implements batch.Repository.
type BatchRepo struct {
	*BaseCatalogRepo[*batch.Batch]
}

// NewBatchRepo creates a new batch repository.
func NewBatchRepo(txManager *postgres.TxManager) *BatchRepo {
	return &BatchRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			batchTable,
			postgres.ExtractDBColumns[batch.Batch](),
			func() *batch.Batch { return &batch.Batch{} },
		),
	}
}

// FindByBatchNumber retrieves batch by its unique batch number.
func (r *BatchRepo) FindByBatchNumber(ctx context.Context, number string) (*batch.Batch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"batch_number": number}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	b, err := r.FindOne(ctx, q)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewNotFound("batch", number)
	}
	return b, err
}

// ListByProduct retrieves all batches of a product.
func (r *BatchRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*batch.Batch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("batch_number")

	return r.FindMany(ctx, q)
}

// ListExpiring retrieves non-deleted batches expiring before the deadline.
func (r *BatchRepo) ListExpiring(ctx context.Context, deadline time.Time) ([]*batch.Batch, error) {
	q := r.baseSelect().
		Where(squirrel.NotEq{"expiry_date": nil}).
		Where(squirrel.Lt{"expiry_date": deadline}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("expiry_date")

	return r.FindMany(ctx, q)
}
