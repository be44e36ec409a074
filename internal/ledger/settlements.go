package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/currency"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/storage"
)

// SettlementInput records a payment FromUserID made to ToUserID.
type SettlementInput struct {
	TripID     string
	FromUserID string
	ToUserID   string

	// Amount is in smallest units of the trip base currency.
	Amount int64

	// Currency may be empty; otherwise it must equal the trip base currency.
	Currency string
	Note     string
}

// CreateSettlement validates and stores a settlement.
func (l *Ledger) CreateSettlement(ctx context.Context, in SettlementInput) (*models.Settlement, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNonPositiveAmount, in.Amount)
	}
	if in.Amount > currency.MaxMinorUnits {
		return nil, fmt.Errorf("%w: got %d", currency.ErrAmountOutOfRange, in.Amount)
	}
	if in.ToUserID == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrInvalidInput)
	}
	if in.ToUserID == in.FromUserID {
		return nil, fmt.Errorf("%w: cannot settle with yourself", ErrInvalidInput)
	}

	trip, err := l.getTrip(ctx, in.TripID)
	if err != nil {
		return nil, err
	}

	if in.Currency != "" {
		code, err := currency.NormalizeCode(in.Currency)
		if err != nil {
			return nil, err
		}
		if code != trip.BaseCurrency {
			return nil, fmt.Errorf("%w: got %s, trip uses %s", ErrCurrencyMismatch, code, trip.BaseCurrency)
		}
	}

	members, err := l.memberSet(ctx, trip.ID)
	if err != nil {
		return nil, err
	}
	for _, userID := range []string{in.FromUserID, in.ToUserID} {
		if !members[userID] {
			return nil, fmt.Errorf("%w: %s", ErrNotTripMember, userID)
		}
	}

	settlement := &models.Settlement{
		TripID:     trip.ID,
		FromUserID: in.FromUserID,
		ToUserID:   in.ToUserID,
		Amount:     in.Amount,
		Currency:   trip.BaseCurrency,
		CreatedBy:  in.FromUserID,
		Note:       strings.TrimSpace(in.Note),
	}
	if err := l.store.CreateSettlement(ctx, settlement); err != nil {
		l.metrics.IncLedgerError("create_settlement")
		return nil, fmt.Errorf("failed to save settlement: %w", err)
	}

	l.metrics.IncSettlementCreated()
	slog.Info("Settlement created",
		"trip_id", trip.ID,
		"settlement_id", settlement.ID,
		"from", settlement.FromUserID,
		"to", settlement.ToUserID,
		"amount", settlement.Amount,
	)
	return settlement, nil
}

// ListSettlements returns a trip's settlements, newest first.
func (l *Ledger) ListSettlements(ctx context.Context, tripID string) ([]*models.Settlement, error) {
	if _, err := l.getTrip(ctx, tripID); err != nil {
		return nil, err
	}
	return l.store.ListSettlementsByTrip(ctx, tripID)
}

// DeleteSettlement removes a settlement. Only its sender or recipient may
// delete it.
func (l *Ledger) DeleteSettlement(ctx context.Context, tripID, settlementID, callerID string) error {
	settlement, err := l.store.GetSettlement(ctx, settlementID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSettlementNotFound, settlementID)
	}
	if err != nil {
		return err
	}
	if settlement.TripID != tripID {
		return fmt.Errorf("%w: %s", ErrSettlementNotFound, settlementID)
	}
	if callerID != settlement.FromUserID && callerID != settlement.ToUserID {
		return fmt.Errorf("%w: only a party to settlement %s can delete it", ErrForbidden, settlementID)
	}

	err = l.store.DeleteSettlement(ctx, settlementID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSettlementNotFound, settlementID)
	}
	if err != nil {
		l.metrics.IncLedgerError("delete_settlement")
		return err
	}

	l.metrics.IncSettlementDeleted()
	slog.Info("Settlement deleted", "trip_id", tripID, "settlement_id", settlementID, "user_id", callerID)
	return nil
}
