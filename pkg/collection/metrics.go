package collection

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	opCreateCycle        = "create_collection_cycle"
	opUpdateTeamLevel    = "update_team_level"
	opTeamLeveledUp      = "notify_team_leveled_up"
	opStudentLeveledUp   = "notify_student_leveled_up"
	opUpdateStudentLevel = "update_student_level"
	opRecordWinner       = "record_drawing_winner"
)

// Metrics holds the Prometheus collectors for collection runs.
// A nil *Metrics records nothing.
type Metrics struct {
	runs             *prometheus.CounterVec
	mutationFailures *prometheus.CounterVec
	winners          prometheus.Counter
	runDuration      prometheus.Histogram
}

// NewMetrics creates the collection collectors. Register them with Register.
func NewMetrics() *Metrics {
	return &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pbis_collection_runs_total",
				Help: "Total number of collection runs by outcome",
			},
			[]string{"outcome"},
		),
		mutationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pbis_collection_mutation_failures_total",
				Help: "Total number of failed mutations by operation",
			},
			[]string{"operation"},
		),
		winners: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pbis_collection_winners_total",
			Help: "Total number of drawing winners selected",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pbis_collection_run_duration_seconds",
			Help:    "Duration of collection runs",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.runs, m.mutationFailures, m.winners, m.runDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observeRun(result Result, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !result.OK {
		outcome = "failure"
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
}

func (m *Metrics) mutationFailed(operation string) {
	if m == nil {
		return
	}
	m.mutationFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) winnersDrawn(n int) {
	if m == nil {
		return
	}
	m.winners.Add(float64(n))
}
