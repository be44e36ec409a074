// Package metrics holds the Prometheus collectors for the ledger, the FX
// pipeline and the RPC surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "travelbuddy"

// Metrics groups every collector the server exports. A nil *Metrics is valid
// and records nothing, so tests can skip wiring a registry.
type Metrics struct {
	ExpensesCreated     prometheus.Counter
	ExpensesDeleted     prometheus.Counter
	SettlementsCreated  prometheus.Counter
	SettlementsDeleted  prometheus.Counter
	InvariantViolations prometheus.Counter
	LedgerErrors        *prometheus.CounterVec
	FXSyncs             *prometheus.CounterVec
	FXCacheLookups      *prometheus.CounterVec
	RPCDuration         *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExpensesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "expenses_created_total",
			Help:      "Expenses written to the ledger.",
		}),
		ExpensesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "expenses_deleted_total",
			Help:      "Expenses soft-deleted from the ledger.",
		}),
		SettlementsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "settlements_created_total",
			Help:      "Settlements recorded between trip members.",
		}),
		SettlementsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "settlements_deleted_total",
			Help:      "Settlements removed by one of their parties.",
		}),
		InvariantViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "invariant_violations_total",
			Help:      "Allocations rejected because they did not sum to the converted total.",
		}),
		LedgerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "errors_total",
			Help:      "Failed ledger operations by operation name.",
		}, []string{"operation"}),
		FXSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fx",
			Name:      "syncs_total",
			Help:      "Rate snapshot fetches by base currency and result.",
		}, []string{"base", "result"}),
		FXCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fx",
			Name:      "cache_lookups_total",
			Help:      "Rate snapshot cache lookups by result.",
		}, []string{"result"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "Unary RPC latency by procedure and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}

	reg.MustRegister(
		m.ExpensesCreated,
		m.ExpensesDeleted,
		m.SettlementsCreated,
		m.SettlementsDeleted,
		m.InvariantViolations,
		m.LedgerErrors,
		m.FXSyncs,
		m.FXCacheLookups,
		m.RPCDuration,
	)
	return m
}

func (m *Metrics) IncExpenseCreated() {
	if m != nil {
		m.ExpensesCreated.Inc()
	}
}

func (m *Metrics) IncExpenseDeleted() {
	if m != nil {
		m.ExpensesDeleted.Inc()
	}
}

func (m *Metrics) IncSettlementCreated() {
	if m != nil {
		m.SettlementsCreated.Inc()
	}
}

func (m *Metrics) IncSettlementDeleted() {
	if m != nil {
		m.SettlementsDeleted.Inc()
	}
}

func (m *Metrics) IncInvariantViolation() {
	if m != nil {
		m.InvariantViolations.Inc()
	}
}

// IncLedgerError counts a failed ledger operation.
func (m *Metrics) IncLedgerError(operation string) {
	if m != nil {
		m.LedgerErrors.WithLabelValues(operation).Inc()
	}
}

// ObserveFXSync records the outcome of fetching one base currency.
func (m *Metrics) ObserveFXSync(base string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FXSyncs.WithLabelValues(base, result).Inc()
}

// ObserveFXCache records a snapshot cache hit or miss.
func (m *Metrics) ObserveFXCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.FXCacheLookups.WithLabelValues(result).Inc()
}

// ObserveRPC records the latency of one unary call.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	if m != nil {
		m.RPCDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
	}
}
