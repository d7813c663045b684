package pricing

import (
	"fmt"
	"math"

	"github.com/sklim84/agentic-commerce-protocol/lib/myerrors"
)

// Total types in the order they appear in the totals sequence
const (
	TotalTypeItemsBaseAmount = "items_base_amount"
	TotalTypeDiscount        = "discount"
	TotalTypeSubtotal        = "subtotal"
	TotalTypeFulfillment     = "fulfillment"
	TotalTypeTax             = "tax"
	TotalTypeTotal           = "total"
)

// LineInput describes one resolved catalog item within a session.
// All monetary values are integers in minor currency units.
type LineInput struct {
	ItemUID            string
	Quantity           int64
	UnitBaseAmount     int64
	Discount           int64
	TaxRateBasisPoints int64
}

// LineResult holds the derived per-line amounts: Total = Subtotal + Tax - Discount
type LineResult struct {
	BaseAmount int64
	Discount   int64
	Subtotal   int64
	Tax        int64
	Total      int64
}

type Total struct {
	Type        string
	DisplayText string
	Amount      int64
}

// CalculateLine derives the per-line amounts from a line input. It is a pure
// function: identical inputs always produce identical integer outputs, which
// idempotent replay depends on.
func CalculateLine(in LineInput) (LineResult, error) {
	if in.Quantity < 1 {
		return LineResult{}, myerrors.NewInvalidFieldError(fmt.Sprintf("$.items[?(@.id=='%s')].quantity", in.ItemUID), fmt.Errorf("quantity must be at least 1, got %d", in.Quantity))
	}
	if in.UnitBaseAmount < 0 {
		return LineResult{}, myerrors.NewInvalidFieldError(fmt.Sprintf("$.items[?(@.id=='%s')]", in.ItemUID), fmt.Errorf("base amount must not be negative, got %d", in.UnitBaseAmount))
	}
	if in.Discount < 0 {
		return LineResult{}, myerrors.NewInvalidFieldError(fmt.Sprintf("$.items[?(@.id=='%s')]", in.ItemUID), fmt.Errorf("discount must not be negative, got %d", in.Discount))
	}
	if in.TaxRateBasisPoints < 0 || in.TaxRateBasisPoints > 10000 {
		return LineResult{}, myerrors.NewInvalidInputErrorf("tax rate for item %s out of range: %d", in.ItemUID, in.TaxRateBasisPoints)
	}

	baseAmount, err := multiply(in.UnitBaseAmount, in.Quantity)
	if err != nil {
		return LineResult{}, myerrors.NewInvalidFieldError(fmt.Sprintf("$.items[?(@.id=='%s')]", in.ItemUID), err)
	}
	if in.Discount > baseAmount {
		return LineResult{}, myerrors.NewInvalidFieldError(fmt.Sprintf("$.items[?(@.id=='%s')]", in.ItemUID), fmt.Errorf("discount %d exceeds base amount %d", in.Discount, baseAmount))
	}

	subtotal := baseAmount
	tax, err := taxOn(subtotal-in.Discount, in.TaxRateBasisPoints)
	if err != nil {
		return LineResult{}, myerrors.NewInvalidFieldError(fmt.Sprintf("$.items[?(@.id=='%s')]", in.ItemUID), err)
	}

	total, err := add(subtotal, tax)
	if err != nil {
		return LineResult{}, myerrors.NewInvalidFieldError(fmt.Sprintf("$.items[?(@.id=='%s')]", in.ItemUID), err)
	}
	total -= in.Discount

	return LineResult{
		BaseAmount: baseAmount,
		Discount:   in.Discount,
		Subtotal:   subtotal,
		Tax:        tax,
		Total:      total,
	}, nil
}

// CalculateTotals derives the ordered totals sequence from the per-line
// results and the cost of the selected fulfillment options.
func CalculateTotals(lines []LineResult, fulfillmentAmount int64) ([]Total, error) {
	if fulfillmentAmount < 0 {
		return nil, myerrors.NewInvalidInputErrorf("fulfillment amount must not be negative, got %d", fulfillmentAmount)
	}

	var baseAmount, discount, subtotal, tax int64
	var err error
	for _, line := range lines {
		if baseAmount, err = add(baseAmount, line.BaseAmount); err != nil {
			return nil, myerrors.NewInvalidInputError(err)
		}
		if discount, err = add(discount, line.Discount); err != nil {
			return nil, myerrors.NewInvalidInputError(err)
		}
		if subtotal, err = add(subtotal, line.Subtotal); err != nil {
			return nil, myerrors.NewInvalidInputError(err)
		}
		if tax, err = add(tax, line.Tax); err != nil {
			return nil, myerrors.NewInvalidInputError(err)
		}
	}

	total := subtotal - discount
	if total, err = add(total, fulfillmentAmount); err != nil {
		return nil, myerrors.NewInvalidInputError(err)
	}
	if total, err = add(total, tax); err != nil {
		return nil, myerrors.NewInvalidInputError(err)
	}

	return []Total{
		{Type: TotalTypeItemsBaseAmount, DisplayText: "Items", Amount: baseAmount},
		{Type: TotalTypeDiscount, DisplayText: "Discount", Amount: discount},
		{Type: TotalTypeSubtotal, DisplayText: "Subtotal", Amount: subtotal},
		{Type: TotalTypeFulfillment, DisplayText: "Fulfillment", Amount: fulfillmentAmount},
		{Type: TotalTypeTax, DisplayText: "Tax", Amount: tax},
		{Type: TotalTypeTotal, DisplayText: "Total", Amount: total},
	}, nil
}

// taxOn rounds half-up. Deterministic, so replays always see the same cents.
func taxOn(taxableAmount int64, rateBasisPoints int64) (int64, error) {
	product, err := multiply(taxableAmount, rateBasisPoints)
	if err != nil {
		return 0, err
	}
	return (product + 5000) / 10000, nil
}

func multiply(a int64, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	result := a * b
	if result/b != a {
		return 0, fmt.Errorf("monetary value overflows: %d * %d", a, b)
	}
	return result, nil
}

func add(a int64, b int64) (int64, error) {
	if a > math.MaxInt64-b {
		return 0, fmt.Errorf("monetary value overflows: %d + %d", a, b)
	}
	return a + b, nil
}
