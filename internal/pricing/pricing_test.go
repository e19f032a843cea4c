package pricing

import (
	"testing"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/stretchr/testify/assert"
)

func TestPlanUnitPrice(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		plan  model.SubscriptionPlan
		want  string
	}{
		{"monthly keeps base price", 10, model.PlanMonthly, "10"},
		{"yearly bills twelve months", 50, model.PlanYearly, "600"},
		{"per user keeps base price", 7.5, model.PlanPerUser, "7.5"},
		{"per machine keeps base price", 3.33, model.PlanPerMachine, "3.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanUnitPrice(tt.price, tt.plan).String())
		})
	}
}

func TestLineTotal_FractionalPriceInMinorUnits(t *testing.T) {
	total := LineTotal(19.99, model.PlanMonthly, 3)

	assert.Equal(t, "59.97", total.StringFixed(2))
	assert.Equal(t, int64(5997), ToMinorUnits(total))
}

func TestToMinorUnits_YearlyPlan(t *testing.T) {
	assert.Equal(t, int64(60000), ToMinorUnits(PlanUnitPrice(50, model.PlanYearly)))
}

func TestPrice_AddsFlatTax(t *testing.T) {
	q := Price([]Line{{UnitPrice: 10, Plan: model.PlanMonthly, Quantity: 2}})

	assert.Equal(t, "20.00", q.Subtotal.StringFixed(2))
	assert.Equal(t, "4.00", q.Tax.StringFixed(2))
	assert.Equal(t, "24.00", q.Total.StringFixed(2))
	assert.Equal(t, int64(2400), ToMinorUnits(q.Total))
}

func TestPrice_MixedPlans(t *testing.T) {
	q := Price([]Line{
		{UnitPrice: 19.99, Plan: model.PlanMonthly, Quantity: 3},
		{UnitPrice: 50, Plan: model.PlanYearly, Quantity: 1},
		{UnitPrice: 4.25, Plan: model.PlanPerMachine, Quantity: 4},
	})

	assert.Equal(t, "676.97", q.Subtotal.StringFixed(2))
	assert.Equal(t, "135.39", q.Tax.StringFixed(2))
	assert.Equal(t, "812.36", q.Total.StringFixed(2))
}

func TestPrice_Empty(t *testing.T) {
	q := Price(nil)

	assert.True(t, q.Total.IsZero())
	assert.Equal(t, int64(0), ToMinorUnits(q.Total))
}
