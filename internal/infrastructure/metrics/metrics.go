package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "creditledger"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	TransactionsAppended *prometheus.CounterVec
	TransactionAmount    *prometheus.HistogramVec
	InsufficientBalance  prometheus.Counter
	TransfersCreated     prometheus.Counter
	AccountsDeactivated  prometheus.Counter
	ConsistencyChecks    *prometheus.CounterVec

	// Payment intent metrics
	IntentsCreated *prometheus.CounterVec
	IntentsClosed  *prometheus.CounterVec

	// Reconciliation metrics
	Reconciliations       *prometheus.CounterVec
	ReconcileDuration     prometheus.Histogram
	ReconcileRetries      prometheus.Counter
	WebhookDeliveries     *prometheus.CounterVec
	SplitConfigErrors     prometheus.Counter
	SplitAllocationAmount *prometheus.HistogramVec

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec
}

// New creates and registers all metrics on the default registerer
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics and registers them on reg
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		TransactionsAppended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_appended_total",
				Help:      "Total ledger transactions appended by kind",
			},
			[]string{"kind"},
		),
		TransactionAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_amount",
				Help:      "Absolute ledger transaction amounts by kind",
				Buckets:   []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"kind"},
		),
		InsufficientBalance: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insufficient_balance_total",
			Help:      "Total debits rejected for insufficient balance",
		}),
		TransfersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_created_total",
			Help:      "Total number of account-to-account transfers",
		}),
		AccountsDeactivated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_deactivated_total",
			Help:      "Total number of accounts deactivated",
		}),
		ConsistencyChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consistency_checks_total",
				Help:      "Ledger consistency checks by result",
			},
			[]string{"result"},
		),

		// Payment intent metrics
		IntentsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intents_created_total",
				Help:      "Total payment intents created by mode",
			},
			[]string{"mode"},
		),
		IntentsClosed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intents_closed_total",
				Help:      "Total payment intents reaching a terminal status",
			},
			[]string{"status"},
		),

		// Reconciliation metrics
		Reconciliations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_total",
				Help:      "Reconcile calls by outcome",
			},
			[]string{"outcome"},
		),
		ReconcileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconcile calls",
			Buckets:   prometheus.DefBuckets,
		}),
		ReconcileRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_retries_total",
			Help:      "Reconcile attempts retried after serialization failures",
		}),
		WebhookDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Inbound gateway webhook deliveries by result",
			},
			[]string{"result"},
		),
		SplitConfigErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "split_configuration_errors_total",
			Help:      "Requests failed by missing or invalid split configuration",
		}),
		SplitAllocationAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "split_allocation_amount",
				Help:      "Allocated split amounts by recipient kind",
				Buckets:   []float64{1, 10, 100, 1000, 10000, 100000},
			},
			[]string{"recipient_kind"},
		),

		// Outbox metrics
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Total outbox events published",
		}),
		OutboxFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_failures_total",
			Help:      "Total outbox publish failures",
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total rate limit hits",
			},
			[]string{"route"},
		),

		// Authentication metrics
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Total authentication failures",
			},
			[]string{"reason"},
		),

		// Audit metrics
		AuditLogsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_logs_total",
				Help:      "Total audit logs created",
			},
			[]string{"action", "status"},
		),
	}
}
