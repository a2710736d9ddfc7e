package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activitiesLogged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "farr",
		Subsystem: "activities",
		Name:      "logged_total",
		Help:      "Activities persisted, split by origin (logged vs recovered).",
	}, []string{"origin"})
	recoveriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "farr",
		Subsystem: "economy",
		Name:      "recoveries_total",
		Help:      "Completed day-recovery transactions.",
	})
	coinsSpent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "farr",
		Subsystem: "economy",
		Name:      "coins_spent_total",
		Help:      "Coins debited through checked spends and recoveries.",
	})
	coinsCredited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "farr",
		Subsystem: "economy",
		Name:      "coins_credited_total",
		Help:      "Coins credited to users, including consistency awards.",
	})
	lastActivityPersisted = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "farr",
		Subsystem: "activities",
		Name:      "last_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity persisted.",
	})
)

func init() {
	prometheus.MustRegister(activitiesLogged, recoveriesTotal, coinsSpent, coinsCredited, lastActivityPersisted)
}

// RecordActivityLogged counts a user-submitted activity.
func RecordActivityLogged(ts time.Time) {
	activitiesLogged.WithLabelValues("logged").Inc()
	if !ts.IsZero() {
		lastActivityPersisted.Set(float64(ts.Unix()))
	}
}

// RecordRecovery counts a completed recovery of n days.
func RecordRecovery(days int) {
	recoveriesTotal.Inc()
	activitiesLogged.WithLabelValues("recovered").Add(float64(days))
	coinsSpent.Add(float64(days))
}

// RecordCoinsSpent counts a checked debit outside recovery.
func RecordCoinsSpent(amount int64) {
	coinsSpent.Add(float64(amount))
}

// RecordCoinsCredited counts a credit.
func RecordCoinsCredited(amount int64) {
	coinsCredited.Add(float64(amount))
}
