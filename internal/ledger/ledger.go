// Package ledger records trip expenses and settlements and derives balances
// and settle-up recommendations from the persisted rows.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/metrics"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/storage"
)

var (
	ErrTripNotFound       = errors.New("trip not found")
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrSettlementNotFound = errors.New("settlement not found")
	ErrNotTripMember      = errors.New("user is not a member of this trip")
	ErrForbidden          = errors.New("operation not permitted for this user")
	ErrNonPositiveAmount  = errors.New("amount must be greater than zero")
	ErrCurrencyMismatch   = errors.New("currency must match the trip base currency")
	ErrInvalidInput       = errors.New("invalid input")

	// ErrInvariantViolation means allocations did not add up to the expense
	// total. Nothing is written when it is returned.
	ErrInvariantViolation = errors.New("ledger invariant violated")
)

// Converter turns a major-unit amount into smallest units of another currency.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (int64, error)
}

// Ledger coordinates conversion, allocation and persistence.
type Ledger struct {
	store     storage.Store
	converter Converter
	metrics   *metrics.Metrics
}

// New creates a Ledger. m may be nil.
func New(store storage.Store, converter Converter, m *metrics.Metrics) *Ledger {
	return &Ledger{store: store, converter: converter, metrics: m}
}

// RequireMember returns the trip when userID belongs to it.
func (l *Ledger) RequireMember(ctx context.Context, tripID, userID string) (*models.Trip, error) {
	trip, err := l.getTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	members, err := l.memberSet(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !members[userID] {
		return nil, fmt.Errorf("%w: %s", ErrNotTripMember, userID)
	}
	return trip, nil
}

func (l *Ledger) getTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	if tripID == "" {
		return nil, fmt.Errorf("%w: trip id is required", ErrInvalidInput)
	}
	trip, err := l.store.GetTrip(ctx, tripID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTripNotFound, tripID)
	}
	if err != nil {
		return nil, err
	}
	return trip, nil
}

func (l *Ledger) memberSet(ctx context.Context, tripID string) (map[string]bool, error) {
	members, err := l.store.ListTripMembers(ctx, tripID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(members))
	for _, m := range members {
		set[m.UserID] = true
	}
	return set, nil
}
