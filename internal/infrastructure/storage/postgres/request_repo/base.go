// Package request_repo provides PostgreSQL persistence for approval
// requests: a header table per kind plus an items table rewritten as a
// whole on update. Headers carry optimistic locking via the version column.
package request_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/infrastructure/storage/postgres"
)

// statusCols are the header fields a workflow transition may touch.
var statusCols = []string{
	"status", "decided_by", "decided_at", "issued_by", "issued_at",
	"updated_at", "updated_by",
}

// requestStore holds the table wiring shared by all request repositories.
type requestStore struct {
	txManager   *postgres.TxManager
	executor    *postgres.BatchExecutor
	headerTable string
	itemTable   string
	headerCols  []string
	itemCols    []string
}

func newRequestStore(txManager *postgres.TxManager, headerTable, itemTable string, headerCols, itemCols []string) requestStore {
	return requestStore{
		txManager:   txManager,
		executor:    postgres.NewBatchExecutor(txManager),
		headerTable: headerTable,
		itemTable:   itemTable,
		headerCols:  headerCols,
		itemCols:    itemCols,
	}
}

func (s *requestStore) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (s *requestStore) headerSelect() squirrel.SelectBuilder {
	return s.builder().
		Select(s.headerCols...).
		From(s.headerTable)
}

func (s *requestStore) itemSelect() squirrel.SelectBuilder {
	return s.builder().
		Select(s.itemCols...).
		From(s.itemTable)
}

func (s *requestStore) headerData(entity any) (map[string]any, error) {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return nil, fmt.Errorf("no db tags found in entity")
	}
	filtered := make(map[string]any, len(s.headerCols))
	for _, col := range s.headerCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	return filtered, nil
}

func (s *requestStore) insertHeader(ctx context.Context, entity any) error {
	data, err := s.headerData(entity)
	if err != nil {
		return err
	}

	q := s.builder().
		Insert(s.headerTable).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate(s.headerTable, pgErr.ConstraintName, "")
		}
		return fmt.Errorf("insert %s: %w", s.headerTable, err)
	}
	return nil
}

// updateHeader rewrites all header columns with optimistic locking.
// The entity carries its last read version; the row moves to version+1.
func (s *requestStore) updateHeader(ctx context.Context, entity any) error {
	data, err := s.headerData(entity)
	if err != nil {
		return err
	}
	return s.updateColumns(ctx, data, data, 0)
}

// updateStatus writes only the workflow fields. Mark* methods already
// bumped the in-memory version, so the lock guard expects version-1.
func (s *requestStore) updateStatus(ctx context.Context, entity any) error {
	data, err := s.headerData(entity)
	if err != nil {
		return err
	}

	setData := make(map[string]any, len(statusCols))
	for _, col := range statusCols {
		if val, ok := data[col]; ok {
			setData[col] = val
		}
	}
	return s.updateColumns(ctx, data, setData, 1)
}

func (s *requestStore) updateColumns(ctx context.Context, data, setData map[string]any, versionBias int) error {
	entityID, ok := data["id"]
	if !ok {
		return fmt.Errorf("entity has no 'id' field with db tag")
	}
	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	filtered := make(map[string]any, len(setData))
	for col, val := range setData {
		if col == "id" || col == "version" {
			continue
		}
		filtered[col] = val
	}

	q := s.builder().
		Update(s.headerTable).
		SetMap(filtered).
		Set("version", version+1-versionBias).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": version - versionBias})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", s.headerTable, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(s.headerTable, entityID)
	}
	return nil
}

func (s *requestStore) setDeletionMark(ctx context.Context, entityID id.ID, marked bool) error {
	q := s.builder().
		Update(s.headerTable).
		Set("deletion_mark", marked).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entityID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set deletion mark: %w", err)
	}

	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("execute set deletion mark: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(s.headerTable, entityID.String())
	}
	return nil
}

// insertItems writes item rows in a single round-trip.
func (s *requestStore) insertItems(ctx context.Context, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	queries := make([]postgres.BatchQuery, 0, len(rows))
	for _, row := range rows {
		q := s.builder().
			Insert(s.itemTable).
			Columns(s.itemCols...).
			Values(row...)
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build item insert: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}
	return s.executor.ExecuteBatch(ctx, queries)
}

// replaceItems rewrites the items of one request.
func (s *requestStore) replaceItems(ctx context.Context, requestID id.ID, rows [][]any) error {
	delQ := s.builder().
		Delete(s.itemTable).
		Where(squirrel.Eq{"request_id": requestID})

	sql, args, err := delQ.ToSql()
	if err != nil {
		return fmt.Errorf("build item delete: %w", err)
	}

	queries := []postgres.BatchQuery{{SQL: sql, Args: args}}
	for _, row := range rows {
		q := s.builder().
			Insert(s.itemTable).
			Columns(s.itemCols...).
			Values(row...)
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build item insert: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}
	return s.executor.ExecuteBatch(ctx, queries)
}

// countFrom counts headers matching the already filtered query.
func (s *requestStore) countFrom(ctx context.Context, q squirrel.SelectBuilder) (int64, error) {
	countQ := s.builder().
		Select("COUNT(*)").
		FromSelect(q, "sub")

	sql, args, err := countQ.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var total int64
	if err := s.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.headerTable, err)
	}
	return total, nil
}
