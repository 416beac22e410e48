// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AccelByte/extend-pbis-collection/internal/config"
	"github.com/AccelByte/extend-pbis-collection/pkg/pbis"
	"github.com/AccelByte/extend-pbis-collection/pkg/service"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func testConfig(t *testing.T, mr *miniredis.Miniredis, collectionYAML string) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "collection.yaml")
	if err := os.WriteFile(path, []byte(collectionYAML), 0644); err != nil {
		t.Fatalf("failed to write collection config: %v", err)
	}

	host, port, _ := strings.Cut(mr.Addr(), ":")
	return &config.Config{
		StoreDriver:          config.StoreDriverRedis,
		RedisHost:            host,
		RedisPort:            port,
		RedisKeyPrefix:       "pbis:",
		RedisMaxRetries:      1,
		RedisRetryDelayMs:    10,
		CollectionConfigPath: path,
		DrawSeed:             5,
	}
}

func TestCollectOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := service.NewRedisStore(client, service.RedisStoreConfig{})

	if err := store.SaveTeam(ctx, pbis.Team{ID: "ta-1", Name: "Room 12"}); err != nil {
		t.Fatalf("SaveTeam() error = %v", err)
	}
	for _, id := range []string{"s1", "s2", "s3"} {
		if err := store.SaveStudent(ctx, pbis.Student{ID: id, TeamID: "ta-1"}); err != nil {
			t.Fatalf("SaveStudent() error = %v", err)
		}
	}
	for i := 0; i < 30; i++ {
		if _, err := store.GiveCard(ctx, pbis.Card{StudentID: "s1", GivenAt: time.Now().Add(-time.Hour)}); err != nil {
			t.Fatalf("GiveCard() error = %v", err)
		}
	}
	if _, err := store.GiveCard(ctx, pbis.Card{StudentID: "s2", GivenAt: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatalf("GiveCard() error = %v", err)
	}

	cfg := testConfig(t, mr, "maxWinnersPerCycle: 1\ncardsPerTeamLevel: 10\n")

	result, err := CollectOnce(ctx, cfg)
	if err != nil {
		t.Fatalf("CollectOnce() error = %v", err)
	}

	if !result.OK {
		t.Fatalf("expected OK result, got %v", result.Err)
	}
	if !result.Counts.CycleCreated || result.Counts.Winners != 1 || result.Counts.Failures() != 0 {
		t.Errorf("unexpected counts: %+v", result.Counts)
	}
	if result.Counts.StudentsLeveledUp != 1 {
		t.Errorf("StudentsLeveledUp = %d, expected 1 (s1 with 30 cards)", result.Counts.StudentsLeveledUp)
	}

	cycles, err := store.CollectionDates(ctx)
	if err != nil {
		t.Fatalf("CollectionDates() error = %v", err)
	}
	if len(cycles) != 1 || cycles[0].CollectedCards != 31 || len(cycles[0].RandomDrawingWinners) != 1 {
		t.Errorf("unexpected stored cycles: %+v", cycles)
	}

	// 31 cards over 3 students is an average of 10.33
	snapshot, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	team := snapshot.Teams[0]
	if team.CurrentLevel != 1 || team.AverageCardsPerStudentSoFar != 10 {
		t.Errorf("team level/average = %d/%v, expected 1/10", team.CurrentLevel, team.AverageCardsPerStudentSoFar)
	}
	if snapshot.NewCards() != 0 {
		t.Errorf("cards should be collected, %d still new", snapshot.NewCards())
	}
}

func TestCollectOnce_BadCollectionConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr, "cardsPerTeamLevel: 0\n")

	if _, err := CollectOnce(context.Background(), cfg); err == nil {
		t.Error("expected error for invalid collection config")
	}
}

func TestCollectOnce_StoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr, "")
	mr.Close()

	if _, err := CollectOnce(context.Background(), cfg); err == nil {
		t.Error("expected error when Redis is unreachable")
	}
}
