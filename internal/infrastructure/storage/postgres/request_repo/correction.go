package request_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/requests/correction"
	"clinicstock/internal/infrastructure/storage/postgres"
)

const (
	correctionTable     = "req_corrections"
	correctionItemTable = "req_correction_items"
)

var correctionItemCols = []string{
	"line_id", "request_id", "batch_id", "pool_kind", "scope_key",
	"product_unit_id", "quantity", "set_status", "notes",
}

// CorrectionRepo implements correction.Repository.
type CorrectionRepo struct {
	requestStore
}

// Compile-time check.
var _ correction.Repository = (*CorrectionRepo)(nil)

// NewCorrectionRepo creates a new correction request repository.
func NewCorrectionRepo(txManager *postgres.TxManager) *CorrectionRepo {
	return &CorrectionRepo{
		requestStore: newRequestStore(
			txManager,
			correctionTable, correctionItemTable,
			postgres.ExtractDBColumns[correction.Request](),
			correctionItemCols,
		),
	}
}

func correctionItemRows(req *correction.Request) [][]any {
	rows := make([][]any, 0, len(req.Items))
	for i := range req.Items {
		item := &req.Items[i]
		rows = append(rows, []any{
			item.LineID, req.ID, item.BatchID, item.PoolKind, item.ScopeKey,
			item.ProductUnitID, item.Quantity, item.SetStatus, item.Notes,
		})
	}
	return rows
}

// Create inserts the request with its items.
func (r *CorrectionRepo) Create(ctx context.Context, req *correction.Request) error {
	if err := r.insertHeader(ctx, req); err != nil {
		return err
	}
	return r.insertItems(ctx, correctionItemRows(req))
}

// GetByID retrieves the request with items.
func (r *CorrectionRepo) GetByID(ctx context.Context, reqID id.ID) (*correction.Request, error) {
	q := r.headerSelect().
		Where(squirrel.Eq{"id": reqID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var req correction.Request
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &req, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("correction request", reqID.String())
		}
		return nil, fmt.Errorf("get correction request: %w", err)
	}

	if err := r.loadItems(ctx, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *CorrectionRepo) loadItems(ctx context.Context, req *correction.Request) error {
	q := r.itemSelect().
		Where(squirrel.Eq{"request_id": req.ID}).
		OrderBy("line_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build items query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &req.Items, sql, args...); err != nil {
		return fmt.Errorf("load correction items: %w", err)
	}
	return nil
}

// Update rewrites header and items with optimistic locking.
func (r *CorrectionRepo) Update(ctx context.Context, req *correction.Request) error {
	if err := r.updateHeader(ctx, req); err != nil {
		return err
	}
	return r.replaceItems(ctx, req.ID, correctionItemRows(req))
}

// UpdateStatus writes the workflow fields with optimistic locking.
func (r *CorrectionRepo) UpdateStatus(ctx context.Context, req *correction.Request) error {
	return r.updateStatus(ctx, req)
}

// SetDeletionMark soft-deletes the request.
func (r *CorrectionRepo) SetDeletionMark(ctx context.Context, reqID id.ID, marked bool) error {
	return r.setDeletionMark(ctx, reqID, marked)
}

// List retrieves requests with items, newest first.
func (r *CorrectionRepo) List(ctx context.Context, f correction.ListFilter) ([]*correction.Request, int64, error) {
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

	var items []*correction.Request
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list correction requests: %w", err)
	}

	for _, req := range items {
		if err := r.loadItems(ctx, req); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}
