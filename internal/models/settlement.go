package models

// Settlement represents a direct payment between trip members that offsets
// ledger balances. Settlements are inserted or deleted, never updated.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// TripID is the trip this settlement belongs to.
	TripID string

	// FromUserID is the user who paid (debtor settling up).
	FromUserID string

	// ToUserID is the user who received payment (creditor being paid).
	ToUserID string

	// Amount is the payment amount in smallest units of Currency.
	Amount int64

	// Currency is the trip's base currency.
	Currency string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// CreatedBy is the user ID who recorded this settlement.
	CreatedBy string

	// Note is an optional description for the settlement.
	Note string
}
