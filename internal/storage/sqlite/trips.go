package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/storage"
)

const tripColumns = `id, name, base_currency, invite_code, created_by, created_at`

// CreateTrip persists a new trip and its creator's membership.
func (s *SQLiteStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if trip.InviteCode == "" {
		trip.InviteCode = generateInviteCode()
	}
	if trip.CreatedAt == 0 {
		trip.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trips (`+tripColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		trip.ID, trip.Name, trip.BaseCurrency, trip.InviteCode, trip.CreatedBy, trip.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: trip %s", storage.ErrConflict, trip.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO trip_members (trip_id, user_id, joined_at) VALUES (?, ?, ?)",
		trip.ID, trip.CreatedBy, trip.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trip creator: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetTrip retrieves a trip by ID.
func (s *SQLiteStore) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, tripID)
	trip, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: trip %s", storage.ErrNotFound, tripID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// GetTripByInviteCode retrieves a trip by invite code (case-insensitive).
func (s *SQLiteStore) GetTripByInviteCode(ctx context.Context, code string) (*models.Trip, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	row := s.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE invite_code = ?`, code)
	trip, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: invite code %s", storage.ErrNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip by invite code: %w", err)
	}
	return trip, nil
}

// AddTripMember adds a user to a trip, ignoring existing memberships.
func (s *SQLiteStore) AddTripMember(ctx context.Context, tripID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO trip_members (trip_id, user_id, joined_at) VALUES (?, ?, ?)",
		tripID, userID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to add trip member: %w", err)
	}
	return nil
}

// ListTripMembers returns the members of a trip in join order.
func (s *SQLiteStore) ListTripMembers(ctx context.Context, tripID string) ([]models.TripMember, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT trip_id, user_id, joined_at FROM trip_members WHERE trip_id = ? ORDER BY joined_at, user_id",
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip members: %w", err)
	}
	defer rows.Close()

	var members []models.TripMember
	for rows.Next() {
		var m models.TripMember
		if err := rows.Scan(&m.TripID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trip member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trip members: %w", err)
	}

	return members, nil
}

func scanTrip(row *sql.Row) (*models.Trip, error) {
	trip := &models.Trip{}
	if err := row.Scan(&trip.ID, &trip.Name, &trip.BaseCurrency, &trip.InviteCode, &trip.CreatedBy, &trip.CreatedAt); err != nil {
		return nil, err
	}
	return trip, nil
}

// generateInviteCode returns 8 upper-case hex characters from a random UUID.
func generateInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
