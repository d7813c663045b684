package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateLine(t *testing.T) {
	t.Run("Single item with tax", func(t *testing.T) {
		got, err := CalculateLine(LineInput{
			ItemUID:            "prod_tennis_balls",
			Quantity:           1,
			UnitBaseAmount:     300,
			TaxRateBasisPoints: 1000,
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(300), got.BaseAmount)
		assert.Equal(t, int64(300), got.Subtotal)
		assert.Equal(t, int64(30), got.Tax)
		assert.Equal(t, int64(330), got.Total)
	})

	t.Run("Quantity multiplies base amount", func(t *testing.T) {
		got, err := CalculateLine(LineInput{
			ItemUID:            "prod_tennis_balls",
			Quantity:           3,
			UnitBaseAmount:     300,
			TaxRateBasisPoints: 1000,
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(900), got.BaseAmount)
		assert.Equal(t, int64(90), got.Tax)
		assert.Equal(t, int64(990), got.Total)
	})

	t.Run("Discount reduces tax base and total", func(t *testing.T) {
		got, err := CalculateLine(LineInput{
			ItemUID:            "prod_tennis_shoes",
			Quantity:           1,
			UnitBaseAmount:     12000,
			Discount:           2000,
			TaxRateBasisPoints: 2100,
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(12000), got.Subtotal)
		assert.Equal(t, int64(2100), got.Tax)
		assert.Equal(t, int64(12100), got.Total)
		assert.Equal(t, got.Subtotal+got.Tax-got.Discount, got.Total)
	})

	t.Run("Tax rounds half-up", func(t *testing.T) {
		got, err := CalculateLine(LineInput{
			ItemUID:            "prod_grip_tape",
			Quantity:           1,
			UnitBaseAmount:     555,
			TaxRateBasisPoints: 1000,
		})
		assert.NoError(t, err)
		// 555 * 0.10 = 55.5 -> 56
		assert.Equal(t, int64(56), got.Tax)
	})

	t.Run("Deterministic", func(t *testing.T) {
		in := LineInput{ItemUID: "x", Quantity: 7, UnitBaseAmount: 1234, Discount: 99, TaxRateBasisPoints: 2100}
		first, err := CalculateLine(in)
		assert.NoError(t, err)
		second, err := CalculateLine(in)
		assert.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Zero quantity rejected", func(t *testing.T) {
		_, err := CalculateLine(LineInput{ItemUID: "x", Quantity: 0, UnitBaseAmount: 300})
		assert.Error(t, err)
	})

	t.Run("Negative amount rejected", func(t *testing.T) {
		_, err := CalculateLine(LineInput{ItemUID: "x", Quantity: 1, UnitBaseAmount: -1})
		assert.Error(t, err)
	})

	t.Run("Discount exceeding base rejected", func(t *testing.T) {
		_, err := CalculateLine(LineInput{ItemUID: "x", Quantity: 1, UnitBaseAmount: 100, Discount: 101})
		assert.Error(t, err)
	})

	t.Run("Overflow rejected", func(t *testing.T) {
		_, err := CalculateLine(LineInput{ItemUID: "x", Quantity: 2, UnitBaseAmount: math.MaxInt64/2 + 1})
		assert.Error(t, err)
	})
}

func TestCalculateTotals(t *testing.T) {
	t.Run("Totals roll up line results plus fulfillment", func(t *testing.T) {
		lines := []LineResult{
			{BaseAmount: 300, Subtotal: 300, Tax: 30, Total: 330},
			{BaseAmount: 12000, Discount: 2000, Subtotal: 12000, Tax: 2100, Total: 12100},
		}

		totals, err := CalculateTotals(lines, 500)
		assert.NoError(t, err)

		byType := map[string]int64{}
		for _, total := range totals {
			byType[total.Type] = total.Amount
		}
		assert.Equal(t, int64(12300), byType[TotalTypeItemsBaseAmount])
		assert.Equal(t, int64(2000), byType[TotalTypeDiscount])
		assert.Equal(t, int64(12300), byType[TotalTypeSubtotal])
		assert.Equal(t, int64(500), byType[TotalTypeFulfillment])
		assert.Equal(t, int64(2130), byType[TotalTypeTax])
		assert.Equal(t, int64(12930), byType[TotalTypeTotal])

		// sum of line totals plus fulfillment equals the overall total
		var lineTotals int64
		for _, line := range lines {
			lineTotals += line.Total
		}
		assert.Equal(t, lineTotals+500, byType[TotalTypeTotal])
	})

	t.Run("Ordered sequence", func(t *testing.T) {
		totals, err := CalculateTotals(nil, 0)
		assert.NoError(t, err)
		wantOrder := []string{
			TotalTypeItemsBaseAmount, TotalTypeDiscount, TotalTypeSubtotal,
			TotalTypeFulfillment, TotalTypeTax, TotalTypeTotal,
		}
		assert.Len(t, totals, len(wantOrder))
		for i, total := range totals {
			assert.Equal(t, wantOrder[i], total.Type)
		}
	})

	t.Run("Negative fulfillment rejected", func(t *testing.T) {
		_, err := CalculateTotals(nil, -1)
		assert.Error(t, err)
	})
}
