package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain/movement"
)

// The engine must append through the service so row validation runs on
// every write.
var _ movement.LedgerAppender = (*Service)(nil)

type fakeRepo struct {
	appended []entity.LedgerEntry
	rows     []entity.LedgerEntry
	lastFind Filter
}

func (r *fakeRepo) Append(_ context.Context, entries []entity.LedgerEntry) error {
	r.appended = append(r.appended, entries...)
	return nil
}

func (r *fakeRepo) Find(_ context.Context, f Filter) ([]entity.LedgerEntry, error) {
	r.lastFind = f
	return r.rows, nil
}

func (r *fakeRepo) FindByReference(_ context.Context, reference string) ([]entity.LedgerEntry, error) {
	var out []entity.LedgerEntry
	for _, e := range r.rows {
		if e.Reference == reference {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepo) Count(_ context.Context, _ Filter) (int64, error) {
	return int64(len(r.rows)), nil
}

func validEntry() entity.LedgerEntry {
	return entity.LedgerEntry{
		LineID:           id.New(),
		ProductID:        id.New(),
		BatchID:          id.New(),
		StockType:        entity.PoolMain,
		Movement:         entity.MovementIn,
		Quantity:         types.NewQuantityFromFloat64(5),
		ProductUnitID:    id.New(),
		OriginalQuantity: types.NewQuantityFromFloat64(5),
		Reference:        "ref-1",
		CreatedAt:        time.Now().UTC(),
	}
}

func TestAppend_ValidEntries(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	err := svc.Append(context.Background(), []entity.LedgerEntry{validEntry(), validEntry()})
	require.NoError(t, err)
	assert.Len(t, repo.appended, 2)
}

func TestAppend_RejectsInvalidEntry(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*entity.LedgerEntry)
	}{
		{"missing line id", func(e *entity.LedgerEntry) { e.LineID = id.Nil }},
		{"missing batch id", func(e *entity.LedgerEntry) { e.BatchID = id.Nil }},
		{"missing product id", func(e *entity.LedgerEntry) { e.ProductID = id.Nil }},
		{"invalid movement", func(e *entity.LedgerEntry) { e.Movement = "SIDEWAYS" }},
		{"invalid stock type", func(e *entity.LedgerEntry) { e.StockType = "ATTIC" }},
		{"zero quantity", func(e *entity.LedgerEntry) { e.Quantity = 0 }},
		{"negative quantity", func(e *entity.LedgerEntry) { e.Quantity = types.NewQuantityFromFloat64(-1) }},
		{"missing reference", func(e *entity.LedgerEntry) { e.Reference = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			svc := NewService(repo)

			e := validEntry()
			tt.mutate(&e)

			err := svc.Append(context.Background(), []entity.LedgerEntry{e})
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Empty(t, repo.appended, "invalid batch must not be written")
		})
	}
}

func TestAppend_WholeBatchRejectedOnOneBadRow(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	bad := validEntry()
	bad.Reference = ""

	err := svc.Append(context.Background(), []entity.LedgerEntry{validEntry(), bad})
	require.Error(t, err)
	assert.Empty(t, repo.appended)
}

func TestFind_AppliesDefaultLimit(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	_, _, err := svc.Find(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 100, repo.lastFind.Limit)
}

func TestSignedSum(t *testing.T) {
	in := validEntry()
	in.Quantity = types.NewQuantityFromFloat64(10)

	out := validEntry()
	out.Movement = entity.MovementOut
	out.Quantity = types.NewQuantityFromFloat64(3)

	sum := SignedSum([]entity.LedgerEntry{in, out})
	assert.Equal(t, types.NewQuantityFromFloat64(7), sum)
}
