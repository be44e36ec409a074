package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/api"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/auth"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/currency"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/fx"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/ledger"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/metrics"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/storage/sqlite"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<h1>TravelBuddy</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "app.js"), []byte("console.log('hi')"), 0o644))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	source := fx.NewCachedSource(store, fx.NewMemoryCache(), time.Minute, m)

	app := &application{
		store:      store,
		ledger:     ledger.New(store, currency.NewConverter(source), m),
		jwt:        auth.NewJWTManager("test-secret", time.Hour),
		metrics:    m,
		registry:   reg,
		staticPath: staticDir,
	}
	handler, err := app.routes()
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRoutes_Healthz(t *testing.T) {
	server := setupTestServer(t)

	status, body := get(t, server.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)
}

func TestRoutes_StaticFiles(t *testing.T) {
	server := setupTestServer(t)

	status, body := get(t, server.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "TravelBuddy")

	_, body = get(t, server.URL+"/app.js")
	assert.Contains(t, body, "console.log")

	_, body = get(t, server.URL+"/trips/abc")
	assert.Contains(t, body, "TravelBuddy", "unknown paths fall back to index.html")

	status, _ = get(t, server.URL+"/travelbuddy.v1.Nope/Method")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRoutes_CORSPreflight(t *testing.T) {
	server := setupTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, server.URL+api.ExpenseServiceCreateExpenseProcedure, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRoutes_RPCAndMetrics(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	authClient := api.NewAuthServiceClient(server.Client(), server.URL)
	registered, err := authClient.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Email: "alice@example.com", DisplayName: "Alice", Password: "password123",
	}))
	require.NoError(t, err)

	tripClient := api.NewTripServiceClient(server.Client(), server.URL)

	_, err = tripClient.CreateTrip(ctx, connect.NewRequest(&api.CreateTripRequest{Name: "Goa", BaseCurrency: "INR"}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	req := connect.NewRequest(&api.CreateTripRequest{Name: "Goa", BaseCurrency: "INR"})
	req.Header().Set("Authorization", "Bearer "+registered.Msg.Token)
	created, err := tripClient.CreateTrip(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "INR", created.Msg.Trip.BaseCurrency)

	status, body := get(t, server.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "travelbuddy_ledger_expenses_created_total")
	assert.Contains(t, body, "travelbuddy_rpc_duration_seconds")
	assert.Contains(t, body, api.TripServiceCreateTripProcedure)
}
