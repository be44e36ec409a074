package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/storage"
)

// SaveRateSnapshot stores an FX snapshot. Rates are kept as a JSON object of
// decimal strings.
func (s *SQLiteStore) SaveRateSnapshot(ctx context.Context, snapshot *models.RateSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	if snapshot.FetchedAt == 0 {
		snapshot.FetchedAt = time.Now().Unix()
	}

	rates, err := json.Marshal(snapshot.Rates)
	if err != nil {
		return fmt.Errorf("failed to encode rates: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO fx_rate_snapshots (id, provider, base, rates, fetched_at) VALUES (?, ?, ?, ?, ?)",
		snapshot.ID, snapshot.Provider, snapshot.Base, string(rates), snapshot.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rate snapshot: %w", err)
	}

	return nil
}

// LatestRateSnapshot returns the most recently fetched snapshot for base.
func (s *SQLiteStore) LatestRateSnapshot(ctx context.Context, base string) (*models.RateSnapshot, error) {
	snapshot := &models.RateSnapshot{}
	var rates string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, provider, base, rates, fetched_at FROM fx_rate_snapshots
		 WHERE base = ? ORDER BY fetched_at DESC, rowid DESC LIMIT 1`,
		base,
	).Scan(&snapshot.ID, &snapshot.Provider, &snapshot.Base, &rates, &snapshot.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: rate snapshot for %s", storage.ErrNotFound, base)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rate snapshot: %w", err)
	}

	snapshot.Rates = make(map[string]decimal.Decimal)
	if err := json.Unmarshal([]byte(rates), &snapshot.Rates); err != nil {
		return nil, fmt.Errorf("failed to decode rates: %w", err)
	}

	return snapshot, nil
}
