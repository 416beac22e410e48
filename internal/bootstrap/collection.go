// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"
	"time"

	"github.com/AccelByte/extend-pbis-collection/pkg/collection"
	"github.com/AccelByte/extend-pbis-collection/pkg/drawing"
	"github.com/AccelByte/extend-pbis-collection/pkg/service"
	"github.com/sirupsen/logrus"
)

// InitOrchestrator creates the collection orchestrator over a store.
//
// ============================================================
// DEVELOPER: Collection tunables
// ============================================================
// Level thresholds, cards per team level, drawing size and the
// exclusion window are configured in config/collection.yaml:
//
// levelThresholds: [25, 50, 85, ...]
// cardsPerTeamLevel: 24
// maxWinnersPerCycle: 10
// exclusionWindowCycles: 3
//
// To change them, edit config/collection.yaml, not this file.
// A non-zero seed makes the drawing reproducible.
// ============================================================
func InitOrchestrator(
	store service.Store,
	collectionConfig *collection.Config,
	metrics *collection.Metrics,
	seed int64,
) (*collection.Orchestrator, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	} else {
		logrus.Warnf("drawing uses fixed seed %d", seed)
	}

	orchestrator, err := collection.NewOrchestrator(store, store, *collectionConfig,
		collection.WithRand(drawing.NewRand(seed)),
		collection.WithMetrics(metrics),
		collection.WithLogger(logrus.StandardLogger()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	logrus.Infof("initialized collection orchestrator (%d level thresholds, %d cards per team level, %d winners, exclusion window %d, concurrency %d)",
		len(collectionConfig.LevelThresholds),
		collectionConfig.CardsPerTeamLevel,
		collectionConfig.MaxWinnersPerCycle,
		collectionConfig.ExclusionWindowCycles,
		collectionConfig.Concurrency,
	)

	return orchestrator, nil
}
