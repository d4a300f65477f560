// Package reports derives read models from the ledger: turnover over a
// period, balance at a date, and reconciliation of pool quantities against
// the ledger. Everything here is a projection; pools stay authoritative for
// current balances, the ledger for history.
package reports

import (
	"context"
	"sort"
	"time"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain/ledger"
	"clinicstock/internal/domain/pools"
	"clinicstock/pkg/logger"
)

// TurnoverRow is receipt and expense of one batch within one pool.
type TurnoverRow struct {
	BatchID   id.ID           `json:"batchId"`
	ProductID id.ID           `json:"productId"`
	StockType entity.PoolKind `json:"stockType"`
	ScopeKey  string          `json:"scopeKey"`

	Opening types.Quantity `json:"opening"`
	Receipt types.Quantity `json:"receipt"`
	Expense types.Quantity `json:"expense"`
	Closing types.Quantity `json:"closing"`
}

// Turnover is the report over one period.
type Turnover struct {
	From time.Time     `json:"from"`
	To   time.Time     `json:"to"`
	Rows []TurnoverRow `json:"rows"`
}

// TurnoverQuery selects the ledger slice to aggregate.
type TurnoverQuery struct {
	From time.Time
	To   time.Time

	// At most one of BatchID / ProductID narrows the report;
	// both nil aggregates everything.
	BatchID   *id.ID
	ProductID *id.ID
}

// Reconciliation compares pool quantities against signed ledger sums.
type Reconciliation struct {
	BatchID    id.ID               `json:"batchId"`
	Consistent bool                `json:"consistent"`
	Rows       []ReconciliationRow `json:"rows"`
	CheckedAt  time.Time           `json:"checkedAt"`
}

// ReconciliationRow is one pool's comparison.
type ReconciliationRow struct {
	Kind       entity.PoolKind `json:"kind"`
	ScopeKey   string          `json:"scopeKey"`
	Pool       types.Quantity  `json:"pool"`
	LedgerSum  types.Quantity  `json:"ledgerSum"`
	Difference types.Quantity  `json:"difference"`
}

// Service builds ledger-derived reports.
type Service struct {
	ledger ledger.Repository
	pools  pools.Repository
}

// NewService creates a report service.
func NewService(ledgerRepo ledger.Repository, poolRepo pools.Repository) *Service {
	return &Service{ledger: ledgerRepo, pools: poolRepo}
}

// Turnover aggregates opening, receipt, expense and closing per
// (batch, pool kind, scope) over [q.From, q.To).
func (s *Service) Turnover(ctx context.Context, q TurnoverQuery) (*Turnover, error) {
	if !q.To.After(q.From) {
		return nil, apperror.NewValidation("period end must be after period start").
			WithDetail("from", q.From).
			WithDetail("to", q.To)
	}
	if q.BatchID != nil && q.ProductID != nil {
		return nil, apperror.NewValidation("filter by batch or by product, not both")
	}

	// Opening balances come from everything before the period start.
	before, err := s.ledger.Find(ctx, ledger.Filter{
		BatchID: q.BatchID, ProductID: q.ProductID, To: &q.From,
	})
	if err != nil {
		return nil, err
	}
	period, err := s.ledger.Find(ctx, ledger.Filter{
		BatchID: q.BatchID, ProductID: q.ProductID, From: &q.From, To: &q.To,
	})
	if err != nil {
		return nil, err
	}

	rows := make(map[entity.PoolKey]*TurnoverRow)
	row := func(e *entity.LedgerEntry) *TurnoverRow {
		key := e.PoolKey()
		r, ok := rows[key]
		if !ok {
			r = &TurnoverRow{
				BatchID:   e.BatchID,
				ProductID: e.ProductID,
				StockType: e.StockType,
				ScopeKey:  e.ScopeKey,
			}
			rows[key] = r
		}
		return r
	}

	for i := range before {
		e := &before[i]
		row(e).Opening += e.SignedQuantity()
	}
	for i := range period {
		e := &period[i]
		r := row(e)
		if e.Movement == entity.MovementIn {
			r.Receipt += e.Quantity
		} else {
			r.Expense += e.Quantity
		}
	}

	out := &Turnover{From: q.From, To: q.To}
	for _, r := range rows {
		r.Closing = r.Opening + r.Receipt - r.Expense
		out.Rows = append(out.Rows, *r)
	}
	sort.Slice(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i], out.Rows[j]
		ak := entity.PoolKey{BatchID: a.BatchID, Kind: a.StockType, ScopeKey: a.ScopeKey}
		bk := entity.PoolKey{BatchID: b.BatchID, Kind: b.StockType, ScopeKey: b.ScopeKey}
		return ak.Less(bk)
	})

	return out, nil
}

// BalanceAt returns the signed ledger sum of one batch across pools
// from rows created before t.
func (s *Service) BalanceAt(ctx context.Context, batchID id.ID, t time.Time) (types.Quantity, error) {
	entries, err := s.ledger.Find(ctx, ledger.Filter{BatchID: &batchID, To: &t})
	if err != nil {
		return 0, err
	}
	var sum types.Quantity
	for i := range entries {
		sum += entries[i].SignedQuantity()
	}
	return sum, nil
}

// Reconcile verifies that each pool quantity of a batch equals the signed
// sum of its ledger rows. A difference means something wrote stock outside
// the movement engine.
func (s *Service) Reconcile(ctx context.Context, batchID id.ID) (*Reconciliation, error) {
	poolItems, err := s.pools.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.Find(ctx, ledger.Filter{BatchID: &batchID})
	if err != nil {
		return nil, err
	}

	sums := make(map[entity.PoolKey]types.Quantity)
	for i := range entries {
		e := &entries[i]
		sums[e.PoolKey()] += e.SignedQuantity()
	}

	rec := &Reconciliation{
		BatchID:    batchID,
		Consistent: true,
		CheckedAt:  time.Now().UTC(),
	}

	seen := make(map[entity.PoolKey]bool)
	for _, p := range poolItems {
		key := p.Key()
		seen[key] = true
		diff := p.Quantity - sums[key]
		rec.Rows = append(rec.Rows, ReconciliationRow{
			Kind:       p.Kind,
			ScopeKey:   p.ScopeKey,
			Pool:       p.Quantity,
			LedgerSum:  sums[key],
			Difference: diff,
		})
		if !diff.IsZero() {
			rec.Consistent = false
		}
	}
	// Ledger rows addressing pools that have no row in stock_pools.
	for key, sum := range sums {
		if seen[key] || sum.IsZero() {
			continue
		}
		rec.Rows = append(rec.Rows, ReconciliationRow{
			Kind:       key.Kind,
			ScopeKey:   key.ScopeKey,
			LedgerSum:  sum,
			Difference: sum.Neg(),
		})
		rec.Consistent = false
	}

	sort.Slice(rec.Rows, func(i, j int) bool {
		ak := entity.PoolKey{BatchID: batchID, Kind: rec.Rows[i].Kind, ScopeKey: rec.Rows[i].ScopeKey}
		bk := entity.PoolKey{BatchID: batchID, Kind: rec.Rows[j].Kind, ScopeKey: rec.Rows[j].ScopeKey}
		return ak.Less(bk)
	})

	if !rec.Consistent {
		logger.Error(ctx, "reconciliation mismatch",
			"batch_id", batchID.String(), "rows", len(rec.Rows))
	}
	return rec, nil
}
