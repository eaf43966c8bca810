package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// StatusLevel classifies budget consumption.
type StatusLevel int

const (
	StatusUnset StatusLevel = iota
	StatusNormal
	StatusWarning
	StatusOverBudget
)

// WarningPercent is the consumption at which a budget enters StatusWarning.
var WarningPercent = decimal.NewFromInt(80)

func (l StatusLevel) String() string {
	switch l {
	case StatusNormal:
		return "normal"
	case StatusWarning:
		return "warning"
	case StatusOverBudget:
		return "over_budget"
	default:
		return "unset"
	}
}

// BudgetStatus is the budget consumption derived from a total and a budget.
// UsedPercent is capped at 100. Remaining is negative when over budget, in
// which case Overage holds its magnitude.
type BudgetStatus struct {
	Level       StatusLevel
	Total       Money
	Budget      Money
	UsedPercent decimal.Decimal
	Remaining   Money
	Overage     Money
}
