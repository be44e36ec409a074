package models

// Trip represents a group trip. Expenses and settlements belong to a trip and
// are denominated in its base currency.
type Trip struct {
	// ID is the unique identifier for the trip (UUID format).
	ID string

	// Name is the display name of the trip (e.g., "Goa 2025").
	Name string

	// BaseCurrency is the ISO 4217 code every expense is converted into.
	BaseCurrency string

	// InviteCode lets other users join the trip. Unique across trips.
	InviteCode string

	// CreatedBy is the user ID of the trip creator, who is also a member.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the trip was created.
	CreatedAt int64
}

// TripMember records that a user belongs to a trip.
type TripMember struct {
	TripID   string
	UserID   string
	JoinedAt int64
}
