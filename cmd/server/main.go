package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/api"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/auth"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/config"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/currency"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/fx"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/ledger"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/metrics"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/middleware"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/service"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/storage/sqlite"
	"github.com/Mehulsingh1010/travelBud-sub000/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Config loaded", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	cache, closeCache, err := newRateCache(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	source := fx.NewCachedSource(store, cache, cfg.FX.CacheTTL, m)

	if cfg.FX.ProviderURL != "" {
		provider := fx.NewHTTPProvider(cfg.FX.ProviderURL, cfg.FX.APIKey, cfg.FX.HTTPTimeout)
		syncer := fx.NewSyncer(provider, store, source, cfg.FX.Bases, cfg.FX.RefreshInterval, m)
		go syncer.Run(ctx)
		slog.Info("FX syncer started", "bases", cfg.FX.Bases, "interval", cfg.FX.RefreshInterval)
	} else {
		slog.Warn("FX_PROVIDER_URL not set, cross-currency expenses need stored rate snapshots")
	}

	app := &application{
		store:      store,
		ledger:     ledger.New(store, currency.NewConverter(source), m),
		jwt:        auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry),
		metrics:    m,
		registry:   reg,
		staticPath: cfg.StaticPath,
	}
	handler, err := app.routes()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		// h2c serves HTTP/2 without TLS for Connect clients.
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", srv.Addr, "url", fmt.Sprintf("http://localhost%s", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRateCache(cfg *config.Config) (fx.Cache, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("Using in-memory FX cache")
		return fx.NewMemoryCache(), func() {}, nil
	}

	cache, err := fx.NewRedisCacheFromURL(cfg.RedisURL, "travelbuddy:fx:")
	if err != nil {
		return nil, nil, err
	}
	slog.Info("Using Redis FX cache")
	return cache, func() {
		if err := cache.Close(); err != nil {
			slog.Warn("Failed to close Redis client", "error", err)
		}
	}, nil
}

type application struct {
	store      *sqlite.SQLiteStore
	ledger     *ledger.Ledger
	jwt        *auth.JWTManager
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	staticPath string
}

// routes mounts the Connect services, /metrics, /healthz and the static
// frontend.
func (a *application) routes() (http.Handler, error) {
	mux := http.NewServeMux()

	authenticated := connect.WithInterceptors(
		middleware.RequireAuth(a.jwt),
		middleware.LoggingInterceptor(a.metrics),
	)

	mux.Handle(api.NewAuthServiceHandler(
		service.NewAuthService(auth.NewPasswordAuthenticator(a.store), a.jwt, slog.Default()),
		connect.WithInterceptors(middleware.LoggingInterceptor(a.metrics)),
	))
	mux.Handle(api.NewTripServiceHandler(service.NewTripService(a.store), authenticated))
	mux.Handle(api.NewExpenseServiceHandler(service.NewExpenseService(a.ledger), authenticated))

	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	staticDir, err := filepath.Abs(a.staticPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve static path: %w", err)
	}
	slog.Info("Serving static files", "path", staticDir)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Unknown RPCs must not fall through to index.html.
		if strings.HasPrefix(r.URL.Path, "/travelbuddy.v1.") {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(urlPath))
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}

		http.ServeFile(w, r, filePath)
	})

	return loggingMiddleware(corsMiddleware(mux)), nil
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(w, r)

		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
