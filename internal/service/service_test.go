package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/api"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/auth"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/calculator"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/currency"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/fx"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/ledger"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/middleware"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/storage/sqlite"
)

type testClients struct {
	auth    api.AuthServiceClient
	trips   api.TripServiceClient
	expense api.ExpenseServiceClient
}

// setupTestServer serves all three services over httptest with a fresh
// database holding a EUR snapshot that quotes USD.
func setupTestServer(t *testing.T) *testClients {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SaveRateSnapshot(ctx, &models.RateSnapshot{
		Provider: "test",
		Base:     "EUR",
		Rates:    map[string]decimal.Decimal{"USD": decimal.RequireFromString("0.8")},
	}))

	source := fx.NewCachedSource(store, fx.NewMemoryCache(), time.Minute, nil)
	l := ledger.New(store, currency.NewConverter(source), nil)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	interceptors := connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(nil))

	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, slog.Default())))
	mux.Handle(api.NewTripServiceHandler(NewTripService(store), interceptors))
	mux.Handle(api.NewExpenseServiceHandler(NewExpenseService(l), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testClients{
		auth:    api.NewAuthServiceClient(server.Client(), server.URL),
		trips:   api.NewTripServiceClient(server.Client(), server.URL),
		expense: api.NewExpenseServiceClient(server.Client(), server.URL),
	}
}

type session struct {
	userID string
	token  string
}

func (c *testClients) register(t *testing.T, email, name string) session {
	t.Helper()
	resp, err := c.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email: email, DisplayName: name, Password: "password123",
	}))
	require.NoError(t, err, "register %s", email)
	return session{userID: resp.Msg.User.ID, token: resp.Msg.Token}
}

func authed[T any](s session, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+s.token)
	return req
}

func equalSplit(ids ...string) []*api.Allocation {
	out := make([]*api.Allocation, len(ids))
	for i, id := range ids {
		out[i] = &api.Allocation{UserID: id, Mode: "equal"}
	}
	return out
}

// newTrip creates a EUR trip owned by alice that bob has joined.
func newTrip(t *testing.T, c *testClients) (alice, bob session, trip *api.Trip) {
	t.Helper()
	ctx := context.Background()

	alice = c.register(t, "alice@example.com", "Alice")
	bob = c.register(t, "bob@example.com", "Bob")

	created, err := c.trips.CreateTrip(ctx, authed(alice, &api.CreateTripRequest{Name: "Lisbon", BaseCurrency: "eur"}))
	require.NoError(t, err)

	joined, err := c.trips.JoinTrip(ctx, authed(bob, &api.JoinTripRequest{InviteCode: created.Msg.Trip.InviteCode}))
	require.NoError(t, err)

	return alice, bob, joined.Msg.Trip
}

func TestTripService(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()
	alice, bob, trip := newTrip(t, c)

	assert.Equal(t, "EUR", trip.BaseCurrency)
	assert.Len(t, trip.InviteCode, 8)
	require.Len(t, trip.Members, 2)
	assert.Equal(t, alice.userID, trip.CreatedBy)

	names := map[string]string{}
	for _, m := range trip.Members {
		names[m.UserID] = m.DisplayName
	}
	assert.Equal(t, map[string]string{alice.userID: "Alice", bob.userID: "Bob"}, names)

	t.Run("join is idempotent", func(t *testing.T) {
		resp, err := c.trips.JoinTrip(ctx, authed(bob, &api.JoinTripRequest{InviteCode: trip.InviteCode}))
		require.NoError(t, err)
		assert.Len(t, resp.Msg.Trip.Members, 2)
	})

	t.Run("members can read the trip", func(t *testing.T) {
		resp, err := c.trips.GetTrip(ctx, authed(bob, &api.GetTripRequest{TripID: trip.ID}))
		require.NoError(t, err)
		assert.Equal(t, "Lisbon", resp.Msg.Trip.Name)
	})

	t.Run("outsiders cannot", func(t *testing.T) {
		carol := c.register(t, "carol@example.com", "Carol")
		_, err := c.trips.GetTrip(ctx, authed(carol, &api.GetTripRequest{TripID: trip.ID}))
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})

	t.Run("unknown invite code", func(t *testing.T) {
		_, err := c.trips.JoinTrip(ctx, authed(bob, &api.JoinTripRequest{InviteCode: "ZZZZZZZZ"}))
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})

	t.Run("invalid base currency", func(t *testing.T) {
		_, err := c.trips.CreateTrip(ctx, authed(alice, &api.CreateTripRequest{Name: "Nowhere", BaseCurrency: "euro"}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := c.trips.GetTrip(ctx, connect.NewRequest(&api.GetTripRequest{TripID: trip.ID}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})
}

func TestExpenseService_SettleUp(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()
	alice, bob, trip := newTrip(t, c)

	date := time.Date(2026, 4, 2, 20, 0, 0, 0, time.UTC)
	created, err := c.expense.CreateExpense(ctx, authed(alice, &api.CreateExpenseRequest{
		TripID:      trip.ID,
		Title:       "Dinner",
		Amount:      decimal.RequireFromString("60"),
		Currency:    "EUR",
		ExpenseDate: &date,
		Payers:      equalSplit(alice.userID),
		Splits:      equalSplit(alice.userID, bob.userID),
	}))
	require.NoError(t, err)

	expense := created.Msg.Expense
	assert.Equal(t, int64(6000), expense.AmountConverted)
	assert.True(t, expense.ExpenseDate.Equal(date))
	require.Len(t, expense.Splits, 2)

	balances, err := c.expense.GetBalances(ctx, authed(bob, &api.GetBalancesRequest{TripID: trip.ID}))
	require.NoError(t, err)
	assert.Equal(t, int64(-3000), balances.Msg.Net)
	assert.Equal(t, "EUR", balances.Msg.Currency)
	require.Len(t, balances.Msg.Recommendations, 1)
	assert.Equal(t, api.Transfer{FromUserID: bob.userID, ToUserID: alice.userID, Amount: 3000}, *balances.Msg.Recommendations[0])

	settled, err := c.expense.CreateSettlement(ctx, authed(bob, &api.CreateSettlementRequest{
		TripID: trip.ID, ToUserID: alice.userID, Amount: 3000, Note: "MB Way",
	}))
	require.NoError(t, err)
	assert.Equal(t, bob.userID, settled.Msg.Settlement.FromUserID)
	assert.Equal(t, "EUR", settled.Msg.Settlement.Currency)

	balances, err = c.expense.GetBalances(ctx, authed(alice, &api.GetBalancesRequest{TripID: trip.ID}))
	require.NoError(t, err)
	assert.Zero(t, balances.Msg.Net)
	assert.Empty(t, balances.Msg.PerUser)
	assert.Empty(t, balances.Msg.Recommendations)

	listed, err := c.expense.ListSettlements(ctx, authed(alice, &api.ListSettlementsRequest{TripID: trip.ID}))
	require.NoError(t, err)
	assert.Len(t, listed.Msg.Settlements, 1)

	_, err = c.expense.DeleteSettlement(ctx, authed(alice, &api.DeleteSettlementRequest{TripID: trip.ID, SettlementID: settled.Msg.Settlement.ID}))
	require.NoError(t, err)

	balances, err = c.expense.GetBalances(ctx, authed(alice, &api.GetBalancesRequest{TripID: trip.ID}))
	require.NoError(t, err)
	assert.Equal(t, int64(3000), balances.Msg.Net)
}

func TestExpenseService_ForeignCurrencyAndLifecycle(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()
	alice, bob, trip := newTrip(t, c)

	value := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}

	created, err := c.expense.CreateExpense(ctx, authed(bob, &api.CreateExpenseRequest{
		TripID:   trip.ID,
		Title:    "Tram passes",
		Amount:   decimal.RequireFromString("25"),
		Currency: "usd",
		Payers:   equalSplit(bob.userID),
		Splits: []*api.Allocation{
			{UserID: alice.userID, Mode: "SHARES", Value: value("3")},
			{UserID: bob.userID, Mode: "shares", Value: value("1")},
		},
	}))
	require.NoError(t, err)

	expense := created.Msg.Expense
	assert.Equal(t, int64(2500), expense.AmountOriginal)
	assert.Equal(t, "USD", expense.CurrencyOriginal)
	assert.Equal(t, int64(2000), expense.AmountConverted)
	owed := map[string]int64{}
	for _, s := range expense.Splits {
		owed[s.UserID] = s.Amount
		require.NotNil(t, s.Value)
	}
	assert.Equal(t, map[string]int64{alice.userID: 1500, bob.userID: 500}, owed)

	got, err := c.expense.GetExpense(ctx, authed(alice, &api.GetExpenseRequest{TripID: trip.ID, ExpenseID: expense.ID}))
	require.NoError(t, err)
	assert.Equal(t, "Tram passes", got.Msg.Expense.Title)
	assert.Len(t, got.Msg.Expense.Payers, 1)

	_, err = c.expense.DeleteExpense(ctx, authed(alice, &api.DeleteExpenseRequest{TripID: trip.ID, ExpenseID: expense.ID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = c.expense.DeleteExpense(ctx, authed(bob, &api.DeleteExpenseRequest{TripID: trip.ID, ExpenseID: expense.ID}))
	require.NoError(t, err)

	listed, err := c.expense.ListExpenses(ctx, authed(alice, &api.ListExpensesRequest{TripID: trip.ID}))
	require.NoError(t, err)
	assert.Empty(t, listed.Msg.Expenses)

	_, err = c.expense.GetExpense(ctx, authed(alice, &api.GetExpenseRequest{TripID: trip.ID, ExpenseID: expense.ID}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestExpenseService_ErrorCodes(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()
	alice, bob, trip := newTrip(t, c)
	carol := c.register(t, "carol@example.com", "Carol")

	base := func() *api.CreateExpenseRequest {
		return &api.CreateExpenseRequest{
			TripID:   trip.ID,
			Title:    "Museum",
			Amount:   decimal.RequireFromString("30"),
			Currency: "EUR",
			Payers:   equalSplit(alice.userID),
			Splits:   equalSplit(alice.userID, bob.userID),
		}
	}

	tests := []struct {
		name   string
		caller session
		mutate func(req *api.CreateExpenseRequest)
		want   connect.Code
	}{
		{name: "no rate", caller: alice, mutate: func(r *api.CreateExpenseRequest) { r.Currency = "JPY" }, want: connect.CodeUnavailable},
		{name: "non-member caller", caller: carol, mutate: func(r *api.CreateExpenseRequest) {}, want: connect.CodePermissionDenied},
		{name: "non-member split", caller: alice, mutate: func(r *api.CreateExpenseRequest) { r.Splits = equalSplit(carol.userID) }, want: connect.CodePermissionDenied},
		{name: "unknown trip", caller: alice, mutate: func(r *api.CreateExpenseRequest) { r.TripID = "missing" }, want: connect.CodeNotFound},
		{name: "negative amount", caller: alice, mutate: func(r *api.CreateExpenseRequest) { r.Amount = decimal.NewFromInt(-1) }, want: connect.CodeInvalidArgument},
		{name: "unknown mode", caller: alice, mutate: func(r *api.CreateExpenseRequest) { r.Splits[0].Mode = "vibes" }, want: connect.CodeInvalidArgument},
		{name: "nil allocation", caller: alice, mutate: func(r *api.CreateExpenseRequest) { r.Payers = []*api.Allocation{nil} }, want: connect.CodeInvalidArgument},
		{
			name:   "mixed modes",
			caller: alice,
			mutate: func(r *api.CreateExpenseRequest) {
				v := decimal.NewFromInt(100)
				r.Splits[1] = &api.Allocation{UserID: bob.userID, Mode: "percentage", Value: &v}
			},
			want: connect.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)

			_, err := c.expense.CreateExpense(ctx, authed(tt.caller, req))
			require.Error(t, err)
			assert.Equal(t, tt.want, connect.CodeOf(err), "error: %v", err)
		})
	}

	_, err := c.expense.GetBalances(ctx, authed(carol, &api.GetBalancesRequest{TripID: trip.ID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = c.expense.CreateSettlement(ctx, authed(bob, &api.CreateSettlementRequest{
		TripID: trip.ID, ToUserID: alice.userID, Amount: 100, Currency: "USD",
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestAuthService(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()

	registered := c.register(t, "dana@example.com", "Dana")
	assert.NotEmpty(t, registered.token)

	resp, err := c.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Email: "DANA@example.com", Password: "password123"}))
	require.NoError(t, err)
	assert.Equal(t, registered.userID, resp.Msg.User.ID)
	assert.NotEmpty(t, resp.Msg.Token)

	_, err = c.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Email: "dana@example.com", Password: "wrong-password"}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = c.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: "dana@example.com", DisplayName: "Dana", Password: "password123"}))
	assert.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))

	_, err = c.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: "eve@example.com", DisplayName: "Eve", Password: "short"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = c.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: "eve@example.com", Password: "password123"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		err  error
		want connect.Code
	}{
		{err: currency.ErrRateUnavailable, want: connect.CodeUnavailable},
		{err: ledger.ErrInvariantViolation, want: connect.CodeInternal},
		{err: ledger.ErrTripNotFound, want: connect.CodeNotFound},
		{err: ledger.ErrSettlementNotFound, want: connect.CodeNotFound},
		{err: ledger.ErrForbidden, want: connect.CodePermissionDenied},
		{err: calculator.ErrMixedMode, want: connect.CodeInvalidArgument},
		{err: calculator.ErrSumMismatch, want: connect.CodeInvalidArgument},
		{err: calculator.ErrValueOutOfRange, want: connect.CodeInvalidArgument},
		{err: currency.ErrAmountOutOfRange, want: connect.CodeInvalidArgument},
		{err: ledger.ErrCurrencyMismatch, want: connect.CodeInvalidArgument},
		{err: auth.ErrEmailExists, want: connect.CodeAlreadyExists},
		{err: errors.New("disk full"), want: connect.CodeInternal},
		{err: connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken), want: connect.CodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, connect.CodeOf(toConnectError(tt.err)))
		})
	}
}
