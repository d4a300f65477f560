package request_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/requests/withdrawal"
	"clinicstock/internal/infrastructure/storage/postgres"
)

const (
	withdrawalTable     = "req_withdrawals"
	withdrawalItemTable = "req_withdrawal_items"
)

var withdrawalItemCols = []string{
	"line_id", "request_id", "batch_id", "product_unit_id", "quantity", "notes",
}

// WithdrawalRepo implements withdrawal.Repository.
type WithdrawalRepo struct {
	requestStore
}

// Compile-time check.
var _ withdrawal.Repository = (*WithdrawalRepo)(nil)

// NewWithdrawalRepo creates a new withdrawal request repository.
func NewWithdrawalRepo(txManager *postgres.TxManager) *WithdrawalRepo {
	return &WithdrawalRepo{
		requestStore: newRequestStore(
			txManager,
			withdrawalTable, withdrawalItemTable,
			postgres.ExtractDBColumns[withdrawal.Request](),
			withdrawalItemCols,
		),
	}
}

func withdrawalItemRows(req *withdrawal.Request) [][]any {
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
func (r *WithdrawalRepo) Create(ctx context.Context, req *withdrawal.Request) error {
	if err := r.insertHeader(ctx, req); err != nil {
		return err
	}
	return r.insertItems(ctx, withdrawalItemRows(req))
}

// GetByID retrieves the request with items.
func (r *WithdrawalRepo) GetByID(ctx context.Context, reqID id.ID) (*withdrawal.Request, error) {
	q := r.headerSelect().
		Where(squirrel.Eq{"id": reqID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var req withdrawal.Request
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &req, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("withdrawal request", reqID.String())
		}
		return nil, fmt.Errorf("get withdrawal request: %w", err)
	}

	if err := r.loadItems(ctx, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *WithdrawalRepo) loadItems(ctx context.Context, req *withdrawal.Request) error {
	q := r.itemSelect().
		Where(squirrel.Eq{"request_id": req.ID}).
		OrderBy("line_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build items query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &req.Items, sql, args...); err != nil {
		return fmt.Errorf("load withdrawal items: %w", err)
	}
	return nil
}

// Update rewrites header and items with optimistic locking.
func (r *WithdrawalRepo) Update(ctx context.Context, req *withdrawal.Request) error {
	if err := r.updateHeader(ctx, req); err != nil {
		return err
	}
	return r.replaceItems(ctx, req.ID, withdrawalItemRows(req))
}

// UpdateStatus writes the workflow fields with optimistic locking.
func (r *WithdrawalRepo) UpdateStatus(ctx context.Context, req *withdrawal.Request) error {
	return r.updateStatus(ctx, req)
}

// SetDeletionMark soft-deletes the request.
func (r *WithdrawalRepo) SetDeletionMark(ctx context.Context, reqID id.ID, marked bool) error {
	return r.setDeletionMark(ctx, reqID, marked)
}

// List retrieves requests with items, newest first.
func (r *WithdrawalRepo) List(ctx context.Context, f withdrawal.ListFilter) ([]*withdrawal.Request, int64, error) {
	q := r.headerSelect().
		Where(squirrel.Eq{"deletion_mark": false})

	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.MoveKind != nil {
		q = q.Where(squirrel.Eq{"move_kind": *f.MoveKind})
	}
	if f.TargetScope != nil {
		q = q.Where(squirrel.Eq{"target_scope": *f.TargetScope})
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

	var items []*withdrawal.Request
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list withdrawal requests: %w", err)
	}

	for _, req := range items {
		if err := r.loadItems(ctx, req); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}
