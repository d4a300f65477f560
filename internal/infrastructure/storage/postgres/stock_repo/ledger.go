package stock_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/domain/ledger"
	"clinicstock/internal/infrastructure/storage/postgres"
)

const ledgerTable = "stock_ledger"

var ledgerColumns = []string{
	"line_id", "product_id", "batch_id", "stock_type", "scope_key",
	"movement_type", "quantity", "product_unit_id", "original_quantity",
	"reference", "actor_id", "notes", "created_at",
}

// COPY beats individual INSERTs once a correction or import touches
// this many lines at once.
const copyThreshold = 50

// LedgerRepo implements ledger.Repository. Rows are append-only; the
// table has no UPDATE or DELETE path.
type LedgerRepo struct {
	txManager *postgres.TxManager
	inserter  *postgres.BatchInserter
}

// Compile-time check.
var _ ledger.Repository = (*LedgerRepo)(nil)

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		inserter:  postgres.NewBatchInserter(txManager),
	}
}

func (r *LedgerRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *LedgerRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(ledgerColumns...).
		From(ledgerTable)
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

func entryValues(e *entity.LedgerEntry) []any {
	return []any{
		e.LineID, e.ProductID, e.BatchID, e.StockType, e.ScopeKey,
		e.Movement, e.Quantity, e.ProductUnitID, e.OriginalQuantity,
		e.Reference, e.ActorID, e.Notes, e.CreatedAt,
	}
}

// Append inserts rows atomically, in order. Large appends go through the
// COPY protocol; small ones use a single batched round-trip.
func (r *LedgerRepo) Append(ctx context.Context, entries []entity.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	if len(entries) >= copyThreshold {
		rows := make([][]any, len(entries))
		for i := range entries {
			rows[i] = entryValues(&entries[i])
		}
		if _, err := r.inserter.CopyFromSlice(ctx, ledgerTable, ledgerColumns, rows); err != nil {
			return fmt.Errorf("copy ledger rows: %w", err)
		}
		return nil
	}

	q := r.builder().
		Insert(ledgerTable).
		Columns(ledgerColumns...)
	for i := range entries {
		q = q.Values(entryValues(&entries[i])...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("append ledger rows: %w", err)
	}
	return nil
}

func applyFilter(q squirrel.SelectBuilder, f ledger.Filter) squirrel.SelectBuilder {
	if f.BatchID != nil {
		q = q.Where(squirrel.Eq{"batch_id": *f.BatchID})
	}
	if f.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *f.ProductID})
	}
	if f.Reference != "" {
		q = q.Where(squirrel.Eq{"reference": f.Reference})
	}
	if f.StockType != nil {
		q = q.Where(squirrel.Eq{"stock_type": *f.StockType})
	}
	if f.ScopeKey != nil {
		q = q.Where(squirrel.Eq{"scope_key": *f.ScopeKey})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.Lt{"created_at": *f.To})
	}
	return q
}

// Find retrieves rows matching the filter, oldest first.
// line_id breaks ties between rows sharing a timestamp (UUIDv7 is
// time-ordered, so this keeps append order).
func (r *LedgerRepo) Find(ctx context.Context, f ledger.Filter) ([]entity.LedgerEntry, error) {
	q := applyFilter(r.baseSelect(), f).
		OrderBy("created_at", "line_id")

	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []entity.LedgerEntry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("find ledger rows: %w", err)
	}
	return items, nil
}

// FindByReference retrieves all rows of one operation.
func (r *LedgerRepo) FindByReference(ctx context.Context, reference string) ([]entity.LedgerEntry, error) {
	return r.Find(ctx, ledger.Filter{Reference: reference})
}

// Count returns the number of rows matching the filter.
func (r *LedgerRepo) Count(ctx context.Context, f ledger.Filter) (int64, error) {
	q := applyFilter(r.builder().Select("COUNT(*)").From(ledgerTable), f)

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var total int64
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count ledger rows: %w", err)
	}
	return total, nil
}
