package collection

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	registry := prometheus.NewRegistry()
	if err := m.Register(registry); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	m.observeRun(Result{OK: true}, time.Second)
	m.observeRun(failedResult(errors.New("boom")), time.Second)
	m.observeRun(Result{OK: true}, time.Second)
	m.mutationFailed(opUpdateTeamLevel)
	m.winnersDrawn(4)

	if got := testutil.ToFloat64(m.runs.WithLabelValues("success")); got != 2 {
		t.Errorf("success runs = %v, expected 2", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("failure")); got != 1 {
		t.Errorf("failure runs = %v, expected 1", got)
	}
	if got := testutil.ToFloat64(m.mutationFailures.WithLabelValues(opUpdateTeamLevel)); got != 1 {
		t.Errorf("team update failures = %v, expected 1", got)
	}
	if got := testutil.ToFloat64(m.winners); got != 4 {
		t.Errorf("winners = %v, expected 4", got)
	}

	if err := m.Register(registry); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	m.observeRun(Result{OK: true}, time.Second)
	m.mutationFailed(opRecordWinner)
	m.winnersDrawn(1)
}
