package models

import "github.com/shopspring/decimal"

// AllocationMode selects how an expense total is divided among payers or
// among the people who owe it.
type AllocationMode string

const (
	// ModeEqual gives every participant the same weight.
	ModeEqual AllocationMode = "equal"
	// ModeAbsolute uses declared major-unit amounts as weights.
	ModeAbsolute AllocationMode = "absolute"
	// ModePercentage uses declared percentages as weights.
	ModePercentage AllocationMode = "percentage"
	// ModeShares uses declared positive integer weights.
	ModeShares AllocationMode = "shares"
)

// Valid reports whether m is one of the supported modes.
func (m AllocationMode) Valid() bool {
	switch m {
	case ModeEqual, ModeAbsolute, ModePercentage, ModeShares:
		return true
	}
	return false
}

// Expense represents a shared expense within a trip.
// An expense and its allocation rows are written together and never
// partially exist. After creation only IsDeleted changes.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// TripID is the trip that owns this expense.
	TripID string

	// Title is the short human-readable name (e.g., "Dinner at Fisherman's Wharf").
	Title string

	// Description is optional free text.
	Description string

	// AmountOriginal is the entered amount in smallest units of CurrencyOriginal.
	AmountOriginal int64

	// CurrencyOriginal is the currency the expense was entered in.
	CurrencyOriginal string

	// AmountConverted is the amount in smallest units of BaseCurrency.
	// Payer and split allocations each sum to exactly this value.
	AmountConverted int64

	// BaseCurrency is the trip's base currency at creation time.
	BaseCurrency string

	// ExpenseDate is the Unix timestamp when the expense happened.
	ExpenseDate int64

	// CreatedBy is the user ID of the member who recorded the expense.
	CreatedBy string

	CreatedAt int64
	UpdatedAt int64

	// IsDeleted marks a soft-deleted expense. Deleted expenses are excluded
	// from balances.
	IsDeleted bool
}

// PayerAllocation records how much of an expense one payer actually paid.
type PayerAllocation struct {
	ExpenseID string
	UserID    string

	// Amount is in smallest units of the trip's base currency.
	Amount int64

	Mode AllocationMode

	// ShareValue is the declared value for non-equal modes.
	ShareValue decimal.NullDecimal
}

// SplitAllocation records how much of an expense one participant owes.
type SplitAllocation struct {
	ExpenseID string
	UserID    string

	// AmountOwed is in smallest units of the trip's base currency.
	AmountOwed int64

	Mode AllocationMode

	// ShareValue is the declared value for non-equal modes.
	ShareValue decimal.NullDecimal
}
