// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/AccelByte/extend-pbis-collection/pkg/pbis"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// redisStoreDefaultKeyPrefix is the prefix for all PBIS keys
	redisStoreDefaultKeyPrefix = "pbis:"
)

// RedisStore implements Store using Redis.
//
// Layout (relative to the key prefix):
//
//	teams                      set of team IDs
//	team:<id>                  hash {name, currentLevel, averageCardsPerStudent}
//	team:<id>:students         set of student IDs
//	student:<id>               hash {name, teamId, currentLevel}
//	student:<id>:cards         sorted set of cards scored by unix millis
//	cycles                     sorted set of cycle IDs scored by collection date
//	cycle:<id>                 JSON cycle
//	cycle:<id>:winners         list of JSON winner records
//	cycle:<id>:team_level_ups  set of team IDs
//	cycle:<id>:level_ups       set of student IDs
//	winners:unassigned         winners recorded without a cycle
//	level_ups:unassigned       level ups recorded without a cycle
type RedisStore struct {
	client redis.UniversalClient
	cfg    RedisStoreConfig
}

type RedisStoreConfig struct {
	KeyPrefix string
	Now       func() time.Time
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(
	client redis.UniversalClient,
	cfg RedisStoreConfig,
) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = redisStoreDefaultKeyPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RedisStore{
		client: client,
		cfg:    cfg,
	}
}

func (r *RedisStore) key(parts ...string) string {
	k := r.cfg.KeyPrefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

// SaveTeam creates or updates a team.
func (r *RedisStore) SaveTeam(ctx context.Context, team pbis.Team) error {
	if team.ID == "" {
		return fmt.Errorf("save team: %w", ErrInvalidInput)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, r.key("teams"), team.ID)
		pipe.HSet(ctx, r.key("team", team.ID),
			"name", team.Name,
			"currentLevel", team.CurrentLevel,
			"averageCardsPerStudent", strconv.FormatFloat(team.AverageCardsPerStudentSoFar, 'f', -1, 64),
		)
		return nil
	})
	if err != nil {
		logrus.Errorf("failed to save team %s: %v", team.ID, err)
		return fmt.Errorf("failed to save team: %w", err)
	}

	logrus.Debugf("saved team %s", team.ID)
	return nil
}

// SaveStudent creates or updates a student and attaches them to their team.
func (r *RedisStore) SaveStudent(ctx context.Context, student pbis.Student) error {
	if student.ID == "" || student.TeamID == "" {
		return fmt.Errorf("save student: %w", ErrInvalidInput)
	}

	exists, err := r.client.Exists(ctx, r.key("team", student.TeamID)).Result()
	if err != nil {
		return fmt.Errorf("failed to look up team: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("team %s: %w", student.TeamID, ErrTeamNotFound)
	}

	previousTeam, err := r.client.HGet(ctx, r.key("student", student.ID), "teamId").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to look up student: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previousTeam != "" && previousTeam != student.TeamID {
			pipe.SRem(ctx, r.key("team", previousTeam, "students"), student.ID)
		}
		pipe.SAdd(ctx, r.key("team", student.TeamID, "students"), student.ID)
		pipe.HSet(ctx, r.key("student", student.ID),
			"name", student.Name,
			"teamId", student.TeamID,
			"currentLevel", student.CurrentLevel,
		)
		return nil
	})
	if err != nil {
		logrus.Errorf("failed to save student %s: %v", student.ID, err)
		return fmt.Errorf("failed to save student: %w", err)
	}

	logrus.Debugf("saved student %s in team %s", student.ID, student.TeamID)
	return nil
}

// GiveCard records a card for a student.
func (r *RedisStore) GiveCard(ctx context.Context, card pbis.Card) (*pbis.Card, error) {
	if card.StudentID == "" {
		return nil, fmt.Errorf("give card: %w", ErrInvalidInput)
	}

	exists, err := r.client.Exists(ctx, r.key("student", card.StudentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("student %s: %w", card.StudentID, ErrStudentNotFound)
	}

	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.GivenAt.IsZero() {
		card.GivenAt = r.cfg.Now()
	}

	data, err := json.Marshal(card)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal card: %w", err)
	}

	z := &redis.Z{Score: float64(card.GivenAt.UnixMilli()), Member: string(data)}
	if err := r.client.ZAdd(ctx, r.key("student", card.StudentID, "cards"), z).Err(); err != nil {
		logrus.Errorf("failed to give card to student %s: %v", card.StudentID, err)
		return nil, fmt.Errorf("failed to give card: %w", err)
	}

	logrus.Debugf("gave card %s to student %s", card.ID, card.StudentID)
	return &card, nil
}

// CollectionDates returns every cycle with its winners, most recent first.
func (r *RedisStore) CollectionDates(ctx context.Context) ([]pbis.CollectionCycle, error) {
	ids, err := r.client.ZRevRange(ctx, r.key("cycles"), 0, -1).Result()
	if err != nil {
		logrus.Errorf("failed to list collection cycles: %v", err)
		return nil, fmt.Errorf("failed to list collection cycles: %w", err)
	}

	cycles := make([]pbis.CollectionCycle, 0, len(ids))
	for _, id := range ids {
		cycle, err := r.getCycle(ctx, id)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, *cycle)
	}

	return cycles, nil
}

func (r *RedisStore) getCycle(ctx context.Context, id string) (*pbis.CollectionCycle, error) {
	data, err := r.client.Get(ctx, r.key("cycle", id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("cycle %s: %w", id, ErrCycleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle %s: %w", id, err)
	}

	var cycle pbis.CollectionCycle
	if err := json.Unmarshal([]byte(data), &cycle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cycle %s: %w", id, err)
	}

	rawWinners, err := r.client.LRange(ctx, r.key("cycle", id, "winners"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get winners of cycle %s: %w", id, err)
	}

	cycle.RandomDrawingWinners = make([]pbis.WinnerRecord, 0, len(rawWinners))
	for _, raw := range rawWinners {
		var winner pbis.WinnerRecord
		if err := json.Unmarshal([]byte(raw), &winner); err != nil {
			return nil, fmt.Errorf("failed to unmarshal winner of cycle %s: %w", id, err)
		}
		cycle.RandomDrawingWinners = append(cycle.RandomDrawingWinners, winner)
	}

	return &cycle, nil
}

// Snapshot reads all teams and students with card counts since the latest collection.
func (r *RedisStore) Snapshot(ctx context.Context) (*pbis.Snapshot, error) {
	now := r.cfg.Now()

	cycles, err := r.CollectionDates(ctx)
	if err != nil {
		return nil, err
	}
	windowStart := pbis.CardsWindowStart(cycles, now)
	minScore := "(" + strconv.FormatInt(windowStart.UnixMilli(), 10)

	teamIDs, err := r.client.SMembers(ctx, r.key("teams")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	sort.Strings(teamIDs)

	snapshot := &pbis.Snapshot{
		Teams:       make([]pbis.Team, 0, len(teamIDs)),
		PriorCycles: cycles,
		TakenAt:     now,
	}

	for _, teamID := range teamIDs {
		team, err := r.getTeam(ctx, teamID)
		if err != nil {
			return nil, err
		}

		studentIDs, err := r.client.SMembers(ctx, r.key("team", teamID, "students")).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list students of team %s: %w", teamID, err)
		}
		sort.Strings(studentIDs)

		for _, studentID := range studentIDs {
			student, err := r.getStudent(ctx, studentID, minScore)
			if err != nil {
				return nil, err
			}
			team.Students = append(team.Students, *student)
		}

		snapshot.Teams = append(snapshot.Teams, *team)
	}

	logrus.Infof("read snapshot with %d teams and %d prior cycles (cards since %s)",
		len(snapshot.Teams), len(cycles), windowStart.Format(time.RFC3339))
	return snapshot, nil
}

func (r *RedisStore) getTeam(ctx context.Context, id string) (*pbis.Team, error) {
	fields, err := r.client.HGetAll(ctx, r.key("team", id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get team %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("team %s: %w", id, ErrTeamNotFound)
	}

	level, err := strconv.Atoi(fields["currentLevel"])
	if err != nil {
		return nil, fmt.Errorf("team %s currentLevel %q: %w", id, fields["currentLevel"], ErrCorruptRecord)
	}
	average, err := strconv.ParseFloat(fields["averageCardsPerStudent"], 64)
	if err != nil {
		return nil, fmt.Errorf("team %s averageCardsPerStudent %q: %w", id, fields["averageCardsPerStudent"], ErrCorruptRecord)
	}

	return &pbis.Team{
		ID:                          id,
		Name:                        fields["name"],
		CurrentLevel:                level,
		AverageCardsPerStudentSoFar: average,
		Students:                    []pbis.Student{},
	}, nil
}

func (r *RedisStore) getStudent(ctx context.Context, id, minScore string) (*pbis.Student, error) {
	fields, err := r.client.HGetAll(ctx, r.key("student", id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get student %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("student %s: %w", id, ErrStudentNotFound)
	}

	cardsKey := r.key("student", id, "cards")
	sinceLast, err := r.client.ZCount(ctx, cardsKey, minScore, "+inf").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count new cards of student %s: %w", id, err)
	}
	total, err := r.client.ZCard(ctx, cardsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count cards of student %s: %w", id, err)
	}

	level, err := strconv.Atoi(fields["currentLevel"])
	if err != nil {
		return nil, fmt.Errorf("student %s currentLevel %q: %w", id, fields["currentLevel"], ErrCorruptRecord)
	}

	return &pbis.Student{
		ID:                       id,
		Name:                     fields["name"],
		TeamID:                   fields["teamId"],
		CardsSinceLastCollection: int(sinceLast),
		TotalCardsAllTime:        int(total),
		CurrentLevel:             level,
	}, nil
}

// CreateCollectionCycle stores a new cycle and returns its ID.
func (r *RedisStore) CreateCollectionCycle(ctx context.Context, input CreateCycleInput) (string, error) {
	if input.CollectionDate.IsZero() {
		input.CollectionDate = r.cfg.Now()
	}

	cycle := pbis.CollectionCycle{
		ID:             uuid.NewString(),
		CollectionDate: input.CollectionDate,
		CollectedCards: input.CollectedCards,
	}

	data, err := json.Marshal(cycle)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cycle: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key("cycle", cycle.ID), data, 0)
		pipe.ZAdd(ctx, r.key("cycles"), &redis.Z{
			Score:  float64(cycle.CollectionDate.UnixMilli()),
			Member: cycle.ID,
		})
		return nil
	})
	if err != nil {
		logrus.Errorf("failed to create collection cycle: %v", err)
		return "", fmt.Errorf("failed to create collection cycle: %w", err)
	}

	logrus.Infof("created collection cycle %s with %d cards", cycle.ID, cycle.CollectedCards)
	return cycle.ID, nil
}

// UpdateTeamLevel persists a team's running average and level.
func (r *RedisStore) UpdateTeamLevel(ctx context.Context, input UpdateTeamLevelInput) error {
	key := r.key("team", input.TeamID)
	if err := r.requireKey(ctx, key, input.TeamID, ErrTeamNotFound); err != nil {
		return err
	}

	err := r.client.HSet(ctx, key,
		"currentLevel", input.Level,
		"averageCardsPerStudent", input.AverageCardsPerStudent,
	).Err()
	if err != nil {
		logrus.Errorf("failed to update team %s: %v", input.TeamID, err)
		return fmt.Errorf("failed to update team level: %w", err)
	}

	return nil
}

// NotifyTeamLeveledUp links a leveled-up team to the cycle.
func (r *RedisStore) NotifyTeamLeveledUp(ctx context.Context, input TeamLeveledUpInput) error {
	if input.CycleID == "" || input.TeamID == "" {
		return fmt.Errorf("team level up: %w", ErrInvalidInput)
	}
	if err := r.requireKey(ctx, r.key("cycle", input.CycleID), input.CycleID, ErrCycleNotFound); err != nil {
		return err
	}

	if err := r.client.SAdd(ctx, r.key("cycle", input.CycleID, "team_level_ups"), input.TeamID).Err(); err != nil {
		return fmt.Errorf("failed to record team level up: %w", err)
	}
	return nil
}

// NotifyStudentLeveledUp records that a student reached a new level in the cycle.
func (r *RedisStore) NotifyStudentLeveledUp(ctx context.Context, input StudentLeveledUpInput) error {
	if input.StudentID == "" {
		return fmt.Errorf("student level up: %w", ErrInvalidInput)
	}

	key := r.key("level_ups", "unassigned")
	if input.CycleID != "" {
		if err := r.requireKey(ctx, r.key("cycle", input.CycleID), input.CycleID, ErrCycleNotFound); err != nil {
			return err
		}
		key = r.key("cycle", input.CycleID, "level_ups")
	}

	if err := r.client.SAdd(ctx, key, input.StudentID).Err(); err != nil {
		return fmt.Errorf("failed to record student level up: %w", err)
	}
	return nil
}

// UpdateStudentLevel persists a student's level.
func (r *RedisStore) UpdateStudentLevel(ctx context.Context, input UpdateStudentLevelInput) error {
	key := r.key("student", input.StudentID)
	if err := r.requireKey(ctx, key, input.StudentID, ErrStudentNotFound); err != nil {
		return err
	}

	if err := r.client.HSet(ctx, key, "currentLevel", input.Level).Err(); err != nil {
		logrus.Errorf("failed to update student %s: %v", input.StudentID, err)
		return fmt.Errorf("failed to update student level: %w", err)
	}
	return nil
}

// RecordDrawingWinner appends a winner record to the cycle, or to the unassigned
// list when no cycle ID is given.
func (r *RedisStore) RecordDrawingWinner(ctx context.Context, input RecordWinnerInput) error {
	if input.StudentID == "" {
		return fmt.Errorf("record winner: %w", ErrInvalidInput)
	}

	key := r.key("winners", "unassigned")
	if input.CycleID != "" {
		if err := r.requireKey(ctx, r.key("cycle", input.CycleID), input.CycleID, ErrCycleNotFound); err != nil {
			return err
		}
		key = r.key("cycle", input.CycleID, "winners")
	}

	data, err := json.Marshal(pbis.WinnerRecord{
		ID:                uuid.NewString(),
		CollectionCycleID: input.CycleID,
		StudentID:         input.StudentID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal winner: %w", err)
	}

	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		logrus.Errorf("failed to record winner %s: %v", input.StudentID, err)
		return fmt.Errorf("failed to record winner: %w", err)
	}
	return nil
}

func (r *RedisStore) requireKey(ctx context.Context, key, id string, notFound error) error {
	if id == "" {
		return ErrInvalidInput
	}
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("%s: %w", id, notFound)
	}
	return nil
}

// Check performs a Redis health check.
func (r *RedisStore) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := r.client.Ping(ctx).Result(); err != nil {
		logrus.Errorf("Redis health check failed: %v", err)
		return err
	}

	logrus.Debugf("Redis health check passed")
	return nil
}

// Close closes the underlying client.
func (r *RedisStore) Close(ctx context.Context) error {
	return r.client.Close()
}
