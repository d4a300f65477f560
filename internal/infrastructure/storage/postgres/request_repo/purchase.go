package request_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/requests/purchase"
	"clinicstock/internal/infrastructure/storage/postgres"
)

const (
	purchaseTable     = "req_purchases"
	purchaseItemTable = "req_purchase_items"
)

var purchaseItemCols = []string{
	"line_id", "request_id", "batch_id", "product_unit_id", "quantity", "notes",
}

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct {
	requestStore
}

// Compile-time check.
var _ purchase.Repository = (*PurchaseRepo)(nil)

// NewPurchaseRepo creates a new purchase request repository.
func NewPurchaseRepo(txManager *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{
		requestStore: newRequestStore(
			txManager,
			purchaseTable, purchaseItemTable,
			postgres.ExtractDBColumns[purchase.Request](),
			purchaseItemCols,
		),
	}
}

func purchaseItemRows(req *purchase.Request) [][]any {
	rows := make([][]any, 0, len(req.Items))
	for i := range req.Items {
		item := &req.Items[i]
		rows = append(rows, []any{
			item.LineID, req.ID, item.BatchID, item.ProductUnitID, item.Quantity, item.Notes,
		})
	}
	return rows
}

// Create inserts the request with its items.
func (r *PurchaseRepo) Create(ctx context.Context, req *purchase.Request) error {
	if err := r.insertHeader(ctx, req); err != nil {
		return err
	}
	return r.insertItems(ctx, purchaseItemRows(req))
}

// GetByID retrieves the request with items.
func (r *PurchaseRepo) GetByID(ctx context.Context, reqID id.ID) (*purchase.Request, error) {
	q := r.headerSelect().
		Where(squirrel.Eq{"id": reqID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var req purchase.Request
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &req, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("purchase request", reqID.String())
		}
		return nil, fmt.Errorf("get purchase request: %w", err)
	}

	if err := r.loadItems(ctx, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *PurchaseRepo) loadItems(ctx context.Context, req *purchase.Request) error {
	q := r.itemSelect().
		Where(squirrel.Eq{"request_id": req.ID}).
		OrderBy("line_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build items query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &req.Items, sql, args...); err != nil {
		return fmt.Errorf("load purchase items: %w", err)
	}
	return nil
}

// Update rewrites header and items with optimistic locking.
func (r *PurchaseRepo) Update(ctx context.Context, req *purchase.Request) error {
	if err := r.updateHeader(ctx, req); err != nil {
		return err
	}
	return r.replaceItems(ctx, req.ID, purchaseItemRows(req))
}

// UpdateStatus writes the workflow fields with optimistic locking.
func (r *PurchaseRepo) UpdateStatus(ctx context.Context, req *purchase.Request) error {
	return r.updateStatus(ctx, req)
}

// SetDeletionMark soft-deletes the request.
func (r *PurchaseRepo) SetDeletionMark(ctx context.Context, reqID id.ID, marked bool) error {
	return r.setDeletionMark(ctx, reqID, marked)
}

// List retrieves requests with items, newest first.
func (r *PurchaseRepo) List(ctx context.Context, f purchase.ListFilter) ([]*purchase.Request, int64, error) {
	q := r.headerSelect().
		Where(squirrel.Eq{"deletion_mark": false})

	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}

	total, err := r.countFrom(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	q = q.OrderBy("date DESC", "created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var items []*purchase.Request
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list purchase requests: %w", err)
	}

	for _, req := range items {
		if err := r.loadItems(ctx, req); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}
