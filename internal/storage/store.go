// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

var (
	// ErrNotFound is wrapped by lookups that match no row.
	ErrNotFound = errors.New("not found")

	// ErrConflict is wrapped when a unique constraint rejects a write.
	ErrConflict = errors.New("already exists")
)

// Store defines the interface for TravelBuddy storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger or service layers.
type Store interface {
	// CreateUser inserts a new user. Returns ErrConflict for a taken email.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns ErrNotFound when no account uses email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns ErrNotFound when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CreateTrip persists a trip and adds its creator as the first member.
	// ID, InviteCode and CreatedAt are populated if empty.
	CreateTrip(ctx context.Context, trip *models.Trip) error

	// GetTrip retrieves a trip by ID.
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)

	// GetTripByInviteCode retrieves a trip by its invite code.
	GetTripByInviteCode(ctx context.Context, code string) (*models.Trip, error)

	// AddTripMember adds a user to a trip. Adding an existing member is a no-op.
	AddTripMember(ctx context.Context, tripID, userID string) error

	// ListTripMembers returns members ordered by join time.
	ListTripMembers(ctx context.Context, tripID string) ([]models.TripMember, error)

	// CreateExpense persists an expense with its payer and split rows in a
	// single transaction. Either every row is written or none is.
	CreateExpense(ctx context.Context, expense *models.Expense, payers []models.PayerAllocation, splits []models.SplitAllocation) error

	// GetExpense retrieves an expense (deleted or not) with its allocation rows.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, []models.PayerAllocation, []models.SplitAllocation, error)

	// ListExpensesByTrip returns non-deleted expenses, newest expense date first.
	ListExpensesByTrip(ctx context.Context, tripID string) ([]*models.Expense, error)

	// SoftDeleteExpense marks an expense deleted.
	SoftDeleteExpense(ctx context.Context, expenseID string) error

	// ListPayerAllocationsByTrip returns payer rows of non-deleted expenses.
	ListPayerAllocationsByTrip(ctx context.Context, tripID string) ([]models.PayerAllocation, error)

	// ListSplitAllocationsByTrip returns split rows of non-deleted expenses.
	ListSplitAllocationsByTrip(ctx context.Context, tripID string) ([]models.SplitAllocation, error)

	// CreateSettlement persists a new settlement.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// GetSettlement retrieves a settlement by ID.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ListSettlementsByTrip returns settlements, newest first.
	ListSettlementsByTrip(ctx context.Context, tripID string) ([]*models.Settlement, error)

	// DeleteSettlement removes a settlement by ID.
	DeleteSettlement(ctx context.Context, settlementID string) error

	// SaveRateSnapshot stores a fetched FX snapshot.
	SaveRateSnapshot(ctx context.Context, snapshot *models.RateSnapshot) error

	// LatestRateSnapshot returns the most recently fetched snapshot for base.
	LatestRateSnapshot(ctx context.Context, base string) (*models.RateSnapshot, error)

	// Close releases any resources held by the store.
	Close() error
}
