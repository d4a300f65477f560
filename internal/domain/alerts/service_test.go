package alerts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain"
	"clinicstock/internal/domain/catalogs/batch"
)

type fakeBatchRepo struct {
	batch.Repository
	items []*batch.Batch
}

func (r *fakeBatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	for _, b := range r.items {
		if b.ID == batchID {
			return b, nil
		}
	}
	return nil, apperror.NewNotFound("batch", batchID.String())
}

func (r *fakeBatchRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*batch.Batch], error) {
	return domain.ListResult[*batch.Batch]{Items: r.items, TotalCount: int64(len(r.items))}, nil
}

type fakeTotals struct {
	totals map[id.ID]types.Quantity
}

func (f *fakeTotals) TotalOnHand(ctx context.Context, batchID id.ID) (types.Quantity, error) {
	return f.totals[batchID], nil
}

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func newBatch(number string, warning types.Quantity) *batch.Batch {
	b := batch.NewBatch(id.New(), number)
	b.WarningQuantity = warning
	return b
}

func TestCompileRule_RejectsBadExpressions(t *testing.T) {
	tests := []struct {
		name string
		expr string
		ok   bool
	}{
		{"default", "", true},
		{"threshold multiple", "quantity <= warning * 2.0", true},
		{"string match", `batchNumber.startsWith("LOT-") && quantity < 10.0`, true},
		{"not bool", "quantity + warning", false},
		{"unknown variable", "price < 5.0", false},
		{"syntax error", "quantity <=", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileRule(tt.expr)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCheck_DefaultRule(t *testing.T) {
	low := newBatch("LOT-LOW", qty(20))
	fine := newBatch("LOT-FINE", qty(20))
	noThreshold := newBatch("LOT-NONE", qty(0))

	repo := &fakeBatchRepo{items: []*batch.Batch{low, fine, noThreshold}}
	totals := &fakeTotals{totals: map[id.ID]types.Quantity{
		low.ID:         qty(15),
		fine.ID:        qty(100),
		noThreshold.ID: qty(0),
	}}

	svc, err := NewService(repo, totals, "")
	require.NoError(t, err)
	ctx := context.Background()

	alert, err := svc.Check(ctx, low.ID)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, "LOT-LOW", alert.BatchNumber)
	assert.Equal(t, qty(15), alert.Quantity)
	assert.Equal(t, qty(20), alert.Warning)

	alert, err = svc.Check(ctx, fine.ID)
	require.NoError(t, err)
	assert.Nil(t, alert)

	// Zero threshold never fires under the default rule.
	alert, err = svc.Check(ctx, noThreshold.ID)
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestCheckAll_CustomRule(t *testing.T) {
	a := newBatch("LOT-A", qty(10))
	b := newBatch("LOT-B", qty(10))

	repo := &fakeBatchRepo{items: []*batch.Batch{a, b}}
	totals := &fakeTotals{totals: map[id.ID]types.Quantity{
		a.ID: qty(18), // fires under warning * 2.0
		b.ID: qty(25),
	}}

	svc, err := NewService(repo, totals, "quantity <= warning * 2.0")
	require.NoError(t, err)

	fired, err := svc.CheckAll(context.Background())
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, a.ID, fired[0].BatchID)
	assert.Equal(t, "quantity <= warning * 2.0", fired[0].Rule)
}
