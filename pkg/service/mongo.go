package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-pbis-collection/pkg/pbis"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoTeamsCollection   = "teams"
	mongoStudentsCol       = "students"
	mongoCardsCollection   = "cards"
	mongoCyclesCollection  = "collection_cycles"
	mongoWinnersCollection = "drawing_winners"
	mongoLevelUpCollection = "level_ups"
)

// MongoStore implements Store using MongoDB.
type MongoStore struct {
	db  *mongo.Database
	cfg MongoStoreConfig
}

type MongoStoreConfig struct {
	Now func() time.Time
}

// levelUpDocument links a team or student that reached a new level to a cycle.
type levelUpDocument struct {
	ID        string    `bson:"_id"`
	CycleID   string    `bson:"cycleId,omitempty"`
	Kind      string    `bson:"kind"`
	SubjectID string    `bson:"subjectId"`
	CreatedAt time.Time `bson:"createdAt"`
}

// cardCount is the per-student result of the card aggregation.
type cardCount struct {
	StudentID string `bson:"_id"`
	Total     int    `bson:"total"`
	Since     int    `bson:"since"`
}

// NewMongoStore creates a new MongoDB-backed store.
func NewMongoStore(db *mongo.Database, cfg MongoStoreConfig) *MongoStore {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &MongoStore{
		db:  db,
		cfg: cfg,
	}
}

// ConnectMongo opens a client and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// SaveTeam creates or updates a team.
func (m *MongoStore) SaveTeam(ctx context.Context, team pbis.Team) error {
	if team.ID == "" {
		return fmt.Errorf("save team: %w", ErrInvalidInput)
	}

	_, err := m.db.Collection(mongoTeamsCollection).UpdateOne(ctx,
		bson.M{"_id": team.ID},
		bson.M{"$set": bson.M{
			"name":                   team.Name,
			"currentLevel":           team.CurrentLevel,
			"averageCardsPerStudent": team.AverageCardsPerStudentSoFar,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}
	return nil
}

// SaveStudent creates or updates a student.
func (m *MongoStore) SaveStudent(ctx context.Context, student pbis.Student) error {
	if student.ID == "" || student.TeamID == "" {
		return fmt.Errorf("save student: %w", ErrInvalidInput)
	}
	if err := m.requireDocument(ctx, mongoTeamsCollection, student.TeamID, ErrTeamNotFound); err != nil {
		return err
	}

	_, err := m.db.Collection(mongoStudentsCol).UpdateOne(ctx,
		bson.M{"_id": student.ID},
		bson.M{"$set": bson.M{
			"name":         student.Name,
			"teamId":       student.TeamID,
			"currentLevel": student.CurrentLevel,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

// GiveCard records a card for a student.
func (m *MongoStore) GiveCard(ctx context.Context, card pbis.Card) (*pbis.Card, error) {
	if card.StudentID == "" {
		return nil, fmt.Errorf("give card: %w", ErrInvalidInput)
	}
	if err := m.requireDocument(ctx, mongoStudentsCol, card.StudentID, ErrStudentNotFound); err != nil {
		return nil, err
	}

	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.GivenAt.IsZero() {
		card.GivenAt = m.cfg.Now()
	}

	if _, err := m.db.Collection(mongoCardsCollection).InsertOne(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to give card: %w", err)
	}
	return &card, nil
}

// CollectionDates returns every cycle with its winners, most recent first.
func (m *MongoStore) CollectionDates(ctx context.Context) ([]pbis.CollectionCycle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "collectionDate", Value: -1}})
	cursor, err := m.db.Collection(mongoCyclesCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection cycles: %w", err)
	}
	defer cursor.Close(ctx)

	var cycles []pbis.CollectionCycle
	if err := cursor.All(ctx, &cycles); err != nil {
		return nil, fmt.Errorf("failed to decode collection cycles: %w", err)
	}
	if len(cycles) == 0 {
		return []pbis.CollectionCycle{}, nil
	}

	ids := make([]string, len(cycles))
	for i, c := range cycles {
		ids[i] = c.ID
	}

	winnerCursor, err := m.db.Collection(mongoWinnersCollection).Find(ctx, bson.M{"collectionCycleId": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to list drawing winners: %w", err)
	}
	defer winnerCursor.Close(ctx)

	var winners []pbis.WinnerRecord
	if err := winnerCursor.All(ctx, &winners); err != nil {
		return nil, fmt.Errorf("failed to decode drawing winners: %w", err)
	}

	return attachWinners(cycles, winners), nil
}

// attachWinners groups winner records under their cycles, keeping cycle order.
func attachWinners(cycles []pbis.CollectionCycle, winners []pbis.WinnerRecord) []pbis.CollectionCycle {
	byCycle := make(map[string][]pbis.WinnerRecord)
	for _, w := range winners {
		byCycle[w.CollectionCycleID] = append(byCycle[w.CollectionCycleID], w)
	}
	for i := range cycles {
		cycles[i].RandomDrawingWinners = byCycle[cycles[i].ID]
		if cycles[i].RandomDrawingWinners == nil {
			cycles[i].RandomDrawingWinners = []pbis.WinnerRecord{}
		}
	}
	return cycles
}

// Snapshot reads all teams and students with card counts since the latest collection.
func (m *MongoStore) Snapshot(ctx context.Context) (*pbis.Snapshot, error) {
	now := m.cfg.Now()

	cycles, err := m.CollectionDates(ctx)
	if err != nil {
		return nil, err
	}
	windowStart := pbis.CardsWindowStart(cycles, now)

	sortByID := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	teamCursor, err := m.db.Collection(mongoTeamsCollection).Find(ctx, bson.M{}, sortByID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer teamCursor.Close(ctx)
	var teams []pbis.Team
	if err := teamCursor.All(ctx, &teams); err != nil {
		return nil, fmt.Errorf("failed to decode teams: %w", err)
	}

	studentCursor, err := m.db.Collection(mongoStudentsCol).Find(ctx, bson.M{}, sortByID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer studentCursor.Close(ctx)
	var students []pbis.Student
	if err := studentCursor.All(ctx, &students); err != nil {
		return nil, fmt.Errorf("failed to decode students: %w", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$studentId"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "since", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gt", Value: bson.A{"$givenAt", windowStart}}}, 1, 0,
			}}}}}},
		}}},
	}
	countCursor, err := m.db.Collection(mongoCardsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}
	defer countCursor.Close(ctx)
	var counts []cardCount
	if err := countCursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode card counts: %w", err)
	}

	snapshot := &pbis.Snapshot{
		Teams:       assembleTeams(teams, students, counts),
		PriorCycles: cycles,
		TakenAt:     now,
	}

	logrus.Infof("read snapshot with %d teams and %d prior cycles (cards since %s)",
		len(snapshot.Teams), len(cycles), windowStart.Format(time.RFC3339))
	return snapshot, nil
}

// assembleTeams attaches students and their card counts to their teams.
// Students whose team is unknown are left out.
func assembleTeams(teams []pbis.Team, students []pbis.Student, counts []cardCount) []pbis.Team {
	countByStudent := make(map[string]cardCount, len(counts))
	for _, c := range counts {
		countByStudent[c.StudentID] = c
	}

	teamIndex := make(map[string]int, len(teams))
	for i := range teams {
		teams[i].Students = []pbis.Student{}
		teamIndex[teams[i].ID] = i
	}

	for _, s := range students {
		i, ok := teamIndex[s.TeamID]
		if !ok {
			logrus.Warnf("student %s references unknown team %s, skipping", s.ID, s.TeamID)
			continue
		}
		c := countByStudent[s.ID]
		s.CardsSinceLastCollection = c.Since
		s.TotalCardsAllTime = c.Total
		teams[i].Students = append(teams[i].Students, s)
	}

	if teams == nil {
		return []pbis.Team{}
	}
	return teams
}

// CreateCollectionCycle stores a new cycle and returns its ID.
func (m *MongoStore) CreateCollectionCycle(ctx context.Context, input CreateCycleInput) (string, error) {
	if input.CollectionDate.IsZero() {
		input.CollectionDate = m.cfg.Now()
	}

	cycle := pbis.CollectionCycle{
		ID:             uuid.NewString(),
		CollectionDate: input.CollectionDate,
		CollectedCards: input.CollectedCards,
	}
	if _, err := m.db.Collection(mongoCyclesCollection).InsertOne(ctx, cycle); err != nil {
		return "", fmt.Errorf("failed to create collection cycle: %w", err)
	}

	logrus.Infof("created collection cycle %s with %d cards", cycle.ID, cycle.CollectedCards)
	return cycle.ID, nil
}

// UpdateTeamLevel persists a team's running average and level.
func (m *MongoStore) UpdateTeamLevel(ctx context.Context, input UpdateTeamLevelInput) error {
	return m.updateByID(ctx, mongoTeamsCollection, input.TeamID, ErrTeamNotFound, bson.M{
		"currentLevel":           input.Level,
		"averageCardsPerStudent": float64(input.AverageCardsPerStudent),
	})
}

// UpdateStudentLevel persists a student's level.
func (m *MongoStore) UpdateStudentLevel(ctx context.Context, input UpdateStudentLevelInput) error {
	return m.updateByID(ctx, mongoStudentsCol, input.StudentID, ErrStudentNotFound, bson.M{
		"currentLevel": input.Level,
	})
}

// NotifyTeamLeveledUp links a leveled-up team to the cycle.
func (m *MongoStore) NotifyTeamLeveledUp(ctx context.Context, input TeamLeveledUpInput) error {
	if input.CycleID == "" || input.TeamID == "" {
		return fmt.Errorf("team level up: %w", ErrInvalidInput)
	}
	return m.insertLevelUp(ctx, input.CycleID, "team", input.TeamID)
}

// NotifyStudentLeveledUp records that a student reached a new level.
func (m *MongoStore) NotifyStudentLeveledUp(ctx context.Context, input StudentLeveledUpInput) error {
	if input.StudentID == "" {
		return fmt.Errorf("student level up: %w", ErrInvalidInput)
	}
	return m.insertLevelUp(ctx, input.CycleID, "student", input.StudentID)
}

func (m *MongoStore) insertLevelUp(ctx context.Context, cycleID, kind, subjectID string) error {
	if cycleID != "" {
		if err := m.requireDocument(ctx, mongoCyclesCollection, cycleID, ErrCycleNotFound); err != nil {
			return err
		}
	}

	_, err := m.db.Collection(mongoLevelUpCollection).InsertOne(ctx, levelUpDocument{
		ID:        uuid.NewString(),
		CycleID:   cycleID,
		Kind:      kind,
		SubjectID: subjectID,
		CreatedAt: m.cfg.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to record %s level up: %w", kind, err)
	}
	return nil
}

// RecordDrawingWinner stores a winner record.
func (m *MongoStore) RecordDrawingWinner(ctx context.Context, input RecordWinnerInput) error {
	if input.StudentID == "" {
		return fmt.Errorf("record winner: %w", ErrInvalidInput)
	}
	if input.CycleID != "" {
		if err := m.requireDocument(ctx, mongoCyclesCollection, input.CycleID, ErrCycleNotFound); err != nil {
			return err
		}
	}

	_, err := m.db.Collection(mongoWinnersCollection).InsertOne(ctx, pbis.WinnerRecord{
		ID:                uuid.NewString(),
		CollectionCycleID: input.CycleID,
		StudentID:         input.StudentID,
	})
	if err != nil {
		return fmt.Errorf("failed to record winner: %w", err)
	}
	return nil
}

func (m *MongoStore) updateByID(ctx context.Context, collection, id string, notFound error, set bson.M) error {
	if id == "" {
		return ErrInvalidInput
	}
	result, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", collection, id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", id, notFound)
	}
	return nil
}

func (m *MongoStore) requireDocument(ctx context.Context, collection, id string, notFound error) error {
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", id, notFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", id, err)
	}
	return nil
}

// Check pings the MongoDB deployment.
func (m *MongoStore) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := m.db.Client().Ping(ctx, nil); err != nil {
		logrus.Errorf("MongoDB health check failed: %v", err)
		return err
	}
	return nil
}

// Close disconnects the underlying client.
func (m *MongoStore) Close(ctx context.Context) error {
	return m.db.Client().Disconnect(ctx)
}
