package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/calculator"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

// BalanceReport is a trip's balances from one member's point of view.
type BalanceReport struct {
	// Net is positive when the viewer is owed money.
	Net      int64
	Currency string

	// PerUser lists other members with a non-zero balance. Amount is
	// positive when that member owes the viewer.
	PerUser         []calculator.MemberBalance
	Recommendations []calculator.Transfer
}

// GetBalances recomputes balances from the persisted ledger rows.
// A trip without live expenses reports zero, even if settlements exist.
func (l *Ledger) GetBalances(ctx context.Context, tripID, viewerID string) (*BalanceReport, error) {
	trip, err := l.getTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	report := &BalanceReport{
		Currency:        trip.BaseCurrency,
		PerUser:         []calculator.MemberBalance{},
		Recommendations: []calculator.Transfer{},
	}

	expenses, err := l.store.ListExpensesByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return report, nil
	}

	payers, err := l.store.ListPayerAllocationsByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	splits, err := l.store.ListSplitAllocationsByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	settlementRows, err := l.store.ListSettlementsByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	settlements := make([]models.Settlement, len(settlementRows))
	for i, s := range settlementRows {
		settlements[i] = *s
	}

	balances, err := calculator.AggregateBalances(payers, splits, settlements)
	if err != nil {
		l.metrics.IncInvariantViolation()
		slog.Error("Trip balances overflow", "trip_id", tripID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}

	total, err := calculator.SumBalances(balances)
	if err != nil || total != 0 {
		l.metrics.IncInvariantViolation()
		slog.Error("Trip balances do not sum to zero", "trip_id", tripID, "sum", total, "error", err)
		return nil, fmt.Errorf("%w: balances of trip %s do not sum to zero", ErrInvariantViolation, tripID)
	}

	report.Net, report.PerUser = calculator.ViewFrom(balances, viewerID)
	report.Recommendations = calculator.ComputeTransfers(balances)
	return report, nil
}
