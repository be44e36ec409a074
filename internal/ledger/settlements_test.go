package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/calculator"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/currency"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/metrics"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

func TestSettlements_ClearBalances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ledger.CreateExpense(ctx, CreateExpenseInput{
		TripID:    env.trip.ID,
		CreatedBy: "alice",
		Title:     "Lunch",
		Amount:    decimal.RequireFromString("60"),
		Currency:  "INR",
		Payers:    equal("alice"),
		Splits:    equal("alice", "bob"),
	})
	require.NoError(t, err)

	settlement, err := env.ledger.CreateSettlement(ctx, SettlementInput{
		TripID:     env.trip.ID,
		FromUserID: "bob",
		ToUserID:   "alice",
		Amount:     1000,
		Note:       " cash ",
	})
	require.NoError(t, err)
	assert.Equal(t, "INR", settlement.Currency)
	assert.Equal(t, "bob", settlement.CreatedBy)
	assert.Equal(t, "cash", settlement.Note)
	assertZeroSum(t, env)

	report, err := env.ledger.GetBalances(ctx, env.trip.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(-2000), report.Net)
	assert.Equal(t, []calculator.Transfer{{FromUserID: "bob", ToUserID: "alice", Amount: 2000}}, report.Recommendations)

	_, err = env.ledger.CreateSettlement(ctx, SettlementInput{
		TripID: env.trip.ID, FromUserID: "bob", ToUserID: "alice", Amount: 2000, Currency: "inr",
	})
	require.NoError(t, err)
	assertZeroSum(t, env)

	report, err = env.ledger.GetBalances(ctx, env.trip.ID, "alice")
	require.NoError(t, err)
	assert.Zero(t, report.Net)
	assert.Empty(t, report.PerUser)
	assert.Empty(t, report.Recommendations)

	listed, err := env.ledger.ListSettlements(ctx, env.trip.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestSettlements_WithoutExpensesReportZero(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ledger.CreateSettlement(ctx, SettlementInput{
		TripID: env.trip.ID, FromUserID: "carol", ToUserID: "bob", Amount: 500,
	})
	require.NoError(t, err)

	report, err := env.ledger.GetBalances(ctx, env.trip.ID, "carol")
	require.NoError(t, err)
	assert.Zero(t, report.Net)
	assert.NotNil(t, report.PerUser)
	assert.Empty(t, report.PerUser)
	assert.NotNil(t, report.Recommendations)
	assert.Empty(t, report.Recommendations)
}

func TestCreateSettlement_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      SettlementInput
		wantErr error
	}{
		{name: "zero amount", in: SettlementInput{FromUserID: "bob", ToUserID: "alice"}, wantErr: ErrNonPositiveAmount},
		{name: "missing recipient", in: SettlementInput{FromUserID: "bob", Amount: 10}, wantErr: ErrInvalidInput},
		{name: "self settlement", in: SettlementInput{FromUserID: "bob", ToUserID: "bob", Amount: 10}, wantErr: ErrInvalidInput},
		{name: "other currency", in: SettlementInput{FromUserID: "bob", ToUserID: "alice", Amount: 10, Currency: "USD"}, wantErr: ErrCurrencyMismatch},
		{name: "invalid currency", in: SettlementInput{FromUserID: "bob", ToUserID: "alice", Amount: 10, Currency: "X"}, wantErr: currency.ErrInvalidCurrency},
		{name: "recipient outside trip", in: SettlementInput{FromUserID: "bob", ToUserID: "mallory", Amount: 10}, wantErr: ErrNotTripMember},
		{name: "above the amount cap", in: SettlementInput{FromUserID: "bob", ToUserID: "alice", Amount: currency.MaxMinorUnits + 1}, wantErr: currency.ErrAmountOutOfRange},
		{name: "would wrap balances", in: SettlementInput{FromUserID: "bob", ToUserID: "alice", Amount: math.MaxInt64}, wantErr: currency.ErrAmountOutOfRange},
		{name: "sender outside trip", in: SettlementInput{FromUserID: "mallory", ToUserID: "bob", Amount: 10}, wantErr: ErrNotTripMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			in.TripID = env.trip.ID

			_, err := env.ledger.CreateSettlement(ctx, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := env.ledger.CreateSettlement(ctx, SettlementInput{TripID: "missing", FromUserID: "bob", ToUserID: "alice", Amount: 10})
	assert.ErrorIs(t, err, ErrTripNotFound)
}

func TestDeleteSettlement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	env.ledger.metrics = m

	_, err := env.ledger.CreateExpense(ctx, CreateExpenseInput{
		TripID:    env.trip.ID,
		CreatedBy: "alice",
		Title:     "Lunch",
		Amount:    decimal.RequireFromString("60"),
		Currency:  "INR",
		Payers:    equal("alice"),
		Splits:    equal("alice", "bob"),
	})
	require.NoError(t, err)

	settlement, err := env.ledger.CreateSettlement(ctx, SettlementInput{
		TripID: env.trip.ID, FromUserID: "bob", ToUserID: "alice", Amount: 3000,
	})
	require.NoError(t, err)
	assertZeroSum(t, env)

	report, err := env.ledger.GetBalances(ctx, env.trip.ID, "alice")
	require.NoError(t, err)
	assert.Empty(t, report.Recommendations)

	assert.ErrorIs(t, env.ledger.DeleteSettlement(ctx, env.trip.ID, settlement.ID, "carol"), ErrForbidden)
	assert.ErrorIs(t, env.ledger.DeleteSettlement(ctx, "other", settlement.ID, "bob"), ErrSettlementNotFound)
	assert.Zero(t, testutil.ToFloat64(m.SettlementsDeleted))

	require.NoError(t, env.ledger.DeleteSettlement(ctx, env.trip.ID, settlement.ID, "alice"))
	assert.ErrorIs(t, env.ledger.DeleteSettlement(ctx, env.trip.ID, settlement.ID, "alice"), ErrSettlementNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SettlementsDeleted))

	listed, err := env.ledger.ListSettlements(ctx, env.trip.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	assertZeroSum(t, env)
	report, err = env.ledger.GetBalances(ctx, env.trip.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(-3000), report.Net)
	assert.Equal(t, []calculator.Transfer{{FromUserID: "bob", ToUserID: "alice", Amount: 3000}}, report.Recommendations)
}

func TestGetBalances_OverflowIsInvariantViolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	env.ledger.metrics = m

	_, err := env.ledger.CreateExpense(ctx, CreateExpenseInput{
		TripID:    env.trip.ID,
		CreatedBy: "alice",
		Title:     "Lunch",
		Amount:    decimal.RequireFromString("60"),
		Currency:  "INR",
		Payers:    equal("alice"),
		Splits:    equal("alice", "bob"),
	})
	require.NoError(t, err)

	// Rows written straight to the store skip the amount cap.
	for range 2 {
		require.NoError(t, env.store.CreateSettlement(ctx, &models.Settlement{
			TripID: env.trip.ID, FromUserID: "bob", ToUserID: "alice", Amount: math.MaxInt64, Currency: "INR", CreatedBy: "bob",
		}))
	}

	_, err = env.ledger.GetBalances(ctx, env.trip.ID, "alice")
	require.ErrorIs(t, err, ErrInvariantViolation)
	assert.ErrorIs(t, err, calculator.ErrBalanceOverflow)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvariantViolations))
}
