package cache

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

func newCacheWith(bindings map[id.ID]binding) *ConversionCache {
	c := NewConversionCache(nil)
	c.bindings = bindings
	return c
}

func TestToBase_ConvertsThroughCachedFactor(t *testing.T) {
	productID := id.New()
	puID := id.New()
	c := newCacheWith(map[id.ID]binding{
		puID: {ProductID: productID, Factor: decimal.NewFromInt(10)},
	})

	base, err := c.ToBase(context.Background(), productID, puID, types.NewQuantityFromFloat64(3))
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(30), base)
}

func TestToBase_RejectsForeignProduct(t *testing.T) {
	puID := id.New()
	c := newCacheWith(map[id.ID]binding{
		puID: {ProductID: id.New(), Factor: decimal.NewFromInt(1)},
	})

	_, err := c.ToBase(context.Background(), id.New(), puID, types.NewQuantityFromFloat64(1))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
}

func TestToBase_RejectsDeletedBinding(t *testing.T) {
	productID := id.New()
	puID := id.New()
	c := newCacheWith(map[id.ID]binding{
		puID: {ProductID: productID, Factor: decimal.NewFromInt(1), Deleted: true},
	})

	_, err := c.ToBase(context.Background(), productID, puID, types.NewQuantityFromFloat64(1))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

// Historic ledger rows keep pointing at deleted bindings, so Factor
// still resolves them.
func TestFactor_ResolvesDeletedBinding(t *testing.T) {
	puID := id.New()
	c := newCacheWith(map[id.ID]binding{
		puID: {ProductID: id.New(), Factor: decimal.NewFromInt(5), Deleted: true},
	})

	factor, err := c.Factor(context.Background(), puID)
	require.NoError(t, err)
	assert.True(t, factor.Equal(decimal.NewFromInt(5)))
}
