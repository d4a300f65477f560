package alerts

import (
	"context"
	"time"

	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain"
	"clinicstock/internal/domain/catalogs/batch"
	"clinicstock/pkg/logger"
)

// Alert is one fired low-stock condition.
type Alert struct {
	BatchID     id.ID          `json:"batchId"`
	ProductID   id.ID          `json:"productId"`
	BatchNumber string         `json:"batchNumber"`
	Quantity    types.Quantity `json:"quantity"`
	Warning     types.Quantity `json:"warning"`
	Expired     bool           `json:"expired"`
	Rule        string         `json:"rule"`
}

// StockTotals reads the total on hand per batch.
type StockTotals interface {
	TotalOnHand(ctx context.Context, batchID id.ID) (types.Quantity, error)
}

// Service evaluates low-stock rules over batches.
type Service struct {
	batches batch.Repository
	totals  StockTotals
	rule    *Rule
}

// NewService creates an alert service. expr may be empty for the default rule.
func NewService(batches batch.Repository, totals StockTotals, expr string) (*Service, error) {
	rule, err := CompileRule(expr)
	if err != nil {
		return nil, err
	}
	return &Service{batches: batches, totals: totals, rule: rule}, nil
}

// Check evaluates one batch against the rule.
// Batches without a warning threshold never fire under the default rule;
// custom rules may still match them.
func (s *Service) Check(ctx context.Context, batchID id.ID) (*Alert, error) {
	b, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return s.check(ctx, b)
}

// CheckAll evaluates every non-deleted batch and returns fired alerts.
func (s *Service) CheckAll(ctx context.Context) ([]Alert, error) {
	f := domain.DefaultListFilter()
	f.Limit = 0 // unpaginated

	res, err := s.batches.List(ctx, f)
	if err != nil {
		return nil, err
	}

	var fired []Alert
	for _, b := range res.Items {
		alert, err := s.check(ctx, b)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			fired = append(fired, *alert)
		}
	}

	if len(fired) > 0 {
		logger.Warn(ctx, "low stock alerts fired",
			"count", len(fired), "rule", s.rule.Expr())
	}
	return fired, nil
}

func (s *Service) check(ctx context.Context, b *batch.Batch) (*Alert, error) {
	total, err := s.totals.TotalOnHand(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	match, err := s.rule.Eval(Input{
		Quantity:    total.Float64(),
		Warning:     b.WarningQuantity.Float64(),
		BatchNumber: b.BatchNumber,
		Expired:     b.IsExpired(time.Now().UTC()),
	})
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, nil
	}
	if s.rule.Expr() == DefaultRule && b.WarningQuantity.IsZero() {
		// No threshold configured, nothing to warn about.
		return nil, nil
	}

	return &Alert{
		BatchID:     b.ID,
		ProductID:   b.ProductID,
		BatchNumber: b.BatchNumber,
		Quantity:    total,
		Warning:     b.WarningQuantity,
		Expired:     b.IsExpired(time.Now().UTC()),
		Rule:        s.rule.Expr(),
	}, nil
}
