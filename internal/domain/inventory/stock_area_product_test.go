package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salepoint/backend/internal/domain/shared"
)

func TestStockAreaProduct_Substract(t *testing.T) {
	t.Run("reduces quantity", func(t *testing.T) {
		s := NewStockAreaProduct(uuid.New(), uuid.New(), uuid.New(), nil)
		require.NoError(t, s.Restore(decimal.NewFromInt(10)))

		require.NoError(t, s.Substract(decimal.NewFromInt(3), false))
		assert.Equal(t, "7", s.Quantity.String())
	})

	t.Run("rejects going negative by default", func(t *testing.T) {
		s := NewStockAreaProduct(uuid.New(), uuid.New(), uuid.New(), nil)
		require.NoError(t, s.Restore(decimal.NewFromInt(2)))

		err := s.Substract(decimal.NewFromInt(5), false)
		require.Error(t, err)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INSUFFICIENT_STOCK", derr.Code)
		assert.Equal(t, "2", s.Quantity.String())
	})

	t.Run("goes negative when the business allows it", func(t *testing.T) {
		s := NewStockAreaProduct(uuid.New(), uuid.New(), uuid.New(), nil)
		require.NoError(t, s.Substract(decimal.NewFromInt(5), true))
		assert.Equal(t, "-5", s.Quantity.String())
	})

	t.Run("rejects non positive quantity", func(t *testing.T) {
		s := NewStockAreaProduct(uuid.New(), uuid.New(), uuid.New(), nil)
		assert.Error(t, s.Substract(decimal.Zero, true))
		assert.Error(t, s.Restore(decimal.NewFromInt(-1)))
	})
}
