// Package pricing holds the single price rule shared by checkout and
// payment confirmation.
package pricing

import (
	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/shopspring/decimal"
)

var (
	// TaxRate is the flat rate applied on top of the subtotal.
	TaxRate = decimal.RequireFromString("0.20")

	yearlyMonths = decimal.NewFromInt(12)
	hundred      = decimal.NewFromInt(100)
)

// Line is one priced cart or order row.
type Line struct {
	UnitPrice float64
	Plan      model.SubscriptionPlan
	Quantity  int
}

// Quote is the result of pricing a set of lines. Amounts are rounded to cents.
type Quote struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// PlanUnitPrice returns the price of one unit under plan. Yearly plans bill
// twelve months up front; every other plan bills the base price.
func PlanUnitPrice(unitPrice float64, plan model.SubscriptionPlan) decimal.Decimal {
	price := decimal.NewFromFloat(unitPrice)
	if plan == model.PlanYearly {
		price = price.Mul(yearlyMonths)
	}
	return price.Round(2)
}

// LineTotal is the plan adjusted price times quantity, before tax.
func LineTotal(unitPrice float64, plan model.SubscriptionPlan, quantity int) decimal.Decimal {
	return PlanUnitPrice(unitPrice, plan).Mul(decimal.NewFromInt(int64(quantity)))
}

// Price quotes lines: subtotal, 20% tax and the tax-inclusive total.
func Price(lines []Line) Quote {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l.UnitPrice, l.Plan, l.Quantity))
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(TaxRate).Round(2)
	return Quote{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// ToMinorUnits converts an amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// Float returns amount as a float64 for storage columns.
func Float(amount decimal.Decimal) float64 {
	return amount.InexactFloat64()
}
