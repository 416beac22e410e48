// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AccelByte/extend-pbis-collection/pkg/collection"
	"github.com/AccelByte/extend-pbis-collection/pkg/service/mock"
)

func TestMetricsServer_ExposesCollectionMetrics(t *testing.T) {
	metrics := collection.NewMetrics()
	m := NewMetricsServer(0, "/metrics", metrics)
	if err := m.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	store := mock.NewStore()
	orchestrator, err := collection.NewOrchestrator(store, store, collection.DefaultConfig(), collection.WithMetrics(metrics))
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	if err := orchestrator.SetArmed(context.Background(), true); err != nil {
		t.Fatalf("SetArmed() error = %v", err)
	}
	orchestrator.Run(context.Background())

	rec := httptest.NewRecorder()
	m.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{
		`pbis_collection_runs_total{outcome="success"} 1`,
		"pbis_collection_run_duration_seconds",
		"go_goroutines",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
