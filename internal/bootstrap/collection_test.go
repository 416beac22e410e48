// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"context"
	"slices"
	"testing"

	"github.com/AccelByte/extend-pbis-collection/pkg/collection"
	"github.com/AccelByte/extend-pbis-collection/pkg/pbis"
	"github.com/AccelByte/extend-pbis-collection/pkg/service/mock"
)

func TestInitOrchestrator_FixedSeed(t *testing.T) {
	draw := func() []string {
		store := mock.NewStore()
		store.DefaultSnapshot = &pbis.Snapshot{Teams: []pbis.Team{{ID: "ta-1", Students: []pbis.Student{
			{ID: "s1", CardsSinceLastCollection: 3},
			{ID: "s2", CardsSinceLastCollection: 2},
			{ID: "s3", CardsSinceLastCollection: 4},
			{ID: "s4", CardsSinceLastCollection: 1},
		}}}}

		cfg := collection.DefaultConfig()
		cfg.MaxWinnersPerCycle = 2
		orchestrator, err := InitOrchestrator(store, &cfg, nil, 1234)
		if err != nil {
			t.Fatalf("InitOrchestrator() error = %v", err)
		}
		if err := orchestrator.SetArmed(context.Background(), true); err != nil {
			t.Fatalf("SetArmed() error = %v", err)
		}
		orchestrator.Run(context.Background())
		return store.WinnerIDs()
	}

	first, second := draw(), draw()
	if len(first) != 2 || !slices.Equal(first, second) {
		t.Errorf("fixed seed should reproduce winners: %v vs %v", first, second)
	}
}

func TestInitOrchestrator_InvalidConfig(t *testing.T) {
	cfg := collection.DefaultConfig()
	cfg.Concurrency = 0

	if _, err := InitOrchestrator(mock.NewStore(), &cfg, nil, 0); err == nil {
		t.Error("expected error for invalid collection config")
	}
}
