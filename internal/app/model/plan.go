package model

// SubscriptionPlan is the billing plan attached to a cart or order line.
type SubscriptionPlan string

const (
	PlanMonthly    SubscriptionPlan = "MONTHLY"
	PlanYearly     SubscriptionPlan = "YEARLY"
	PlanPerUser    SubscriptionPlan = "PER_USER"
	PlanPerMachine SubscriptionPlan = "PER_MACHINE"
)

// Valid reports whether p is one of the known plans.
func (p SubscriptionPlan) Valid() bool {
	switch p {
	case PlanMonthly, PlanYearly, PlanPerUser, PlanPerMachine:
		return true
	}
	return false
}
