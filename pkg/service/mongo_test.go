package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AccelByte/extend-pbis-collection/pkg/pbis"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestAssembleTeams(t *testing.T) {
	teams := []pbis.Team{{ID: "ta-1"}, {ID: "ta-2"}}
	students := []pbis.Student{
		{ID: "s1", TeamID: "ta-1"},
		{ID: "s2", TeamID: "ta-2"},
		{ID: "s3", TeamID: "gone"},
		{ID: "s4", TeamID: "ta-1"},
	}
	counts := []cardCount{
		{StudentID: "s1", Total: 30, Since: 4},
		{StudentID: "s2", Total: 2, Since: 0},
	}

	got := assembleTeams(teams, students, counts)

	if len(got) != 2 {
		t.Fatalf("len(teams) = %d, expected 2", len(got))
	}
	if len(got[0].Students) != 2 || len(got[1].Students) != 1 {
		t.Fatalf("unexpected student distribution: %+v", got)
	}
	s1 := got[0].Students[0]
	if s1.TotalCardsAllTime != 30 || s1.CardsSinceLastCollection != 4 {
		t.Errorf("s1 counts = %d/%d, expected 30/4", s1.TotalCardsAllTime, s1.CardsSinceLastCollection)
	}
	if s4 := got[0].Students[1]; s4.TotalCardsAllTime != 0 {
		t.Errorf("s4 without cards should have zero total, got %d", s4.TotalCardsAllTime)
	}
}

func TestAssembleTeams_Empty(t *testing.T) {
	if got := assembleTeams(nil, nil, nil); got == nil || len(got) != 0 {
		t.Errorf("assembleTeams(nil) = %v, expected empty slice", got)
	}
}

func TestAttachWinners(t *testing.T) {
	cycles := []pbis.CollectionCycle{{ID: "c2"}, {ID: "c1"}}
	winners := []pbis.WinnerRecord{
		{ID: "w1", CollectionCycleID: "c1", StudentID: "s1"},
		{ID: "w2", CollectionCycleID: "c2", StudentID: "s2"},
		{ID: "w3", CollectionCycleID: "c1", StudentID: "s3"},
	}

	got := attachWinners(cycles, winners)

	if got[0].ID != "c2" || len(got[0].RandomDrawingWinners) != 1 {
		t.Errorf("unexpected winners for c2: %+v", got[0])
	}
	if len(got[1].RandomDrawingWinners) != 2 {
		t.Errorf("unexpected winners for c1: %+v", got[1])
	}
}

func newMockMongoStore(mt *mtest.T, now time.Time) *MongoStore {
	return NewMongoStore(mt.DB, MongoStoreConfig{Now: func() time.Time { return now }})
}

func TestMongoStore_Snapshot(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("assembles teams with card counts", func(mt *mtest.T) {
		collected := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
		store := newMockMongoStore(mt, collected.Add(7*24*time.Hour))
		ns := mt.DB.Name()

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns+".collection_cycles", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "c1"}, {Key: "collectionDate", Value: collected}, {Key: "collectedCards", Value: 12}}),
			mtest.CreateCursorResponse(0, ns+".drawing_winners", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "w1"}, {Key: "collectionCycleId", Value: "c1"}, {Key: "studentId", Value: "s2"}}),
			mtest.CreateCursorResponse(0, ns+".teams", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "ta-1"}, {Key: "name", Value: "Room 101"}, {Key: "currentLevel", Value: 1}, {Key: "averageCardsPerStudent", Value: 30.0}}),
			mtest.CreateCursorResponse(0, ns+".students", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "s1"}, {Key: "teamId", Value: "ta-1"}, {Key: "currentLevel", Value: 0}},
				bson.D{{Key: "_id", Value: "s2"}, {Key: "teamId", Value: "ta-1"}, {Key: "currentLevel", Value: 2}}),
			mtest.CreateCursorResponse(0, ns+".cards", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "s1"}, {Key: "total", Value: 30}, {Key: "since", Value: 4}}),
		)

		snapshot, err := store.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}

		if len(snapshot.PriorCycles) != 1 || snapshot.PriorCycles[0].CollectedCards != 12 {
			t.Fatalf("PriorCycles = %+v, expected cycle c1 with 12 cards", snapshot.PriorCycles)
		}
		if winners := snapshot.PriorCycles[0].RandomDrawingWinners; len(winners) != 1 || winners[0].StudentID != "s2" {
			t.Errorf("winners of c1 = %+v, expected s2", winners)
		}
		if len(snapshot.Teams) != 1 || snapshot.Teams[0].CurrentLevel != 1 || snapshot.Teams[0].AverageCardsPerStudentSoFar != 30 {
			t.Fatalf("Teams = %+v, expected ta-1 at level 1 with average 30", snapshot.Teams)
		}
		students := snapshot.Teams[0].Students
		if len(students) != 2 {
			t.Fatalf("students = %+v, expected 2", students)
		}
		if students[0].TotalCardsAllTime != 30 || students[0].CardsSinceLastCollection != 4 {
			t.Errorf("s1 total/since = %d/%d, expected 30/4", students[0].TotalCardsAllTime, students[0].CardsSinceLastCollection)
		}
		if students[1].TotalCardsAllTime != 0 || students[1].CurrentLevel != 2 {
			t.Errorf("s2 total/level = %d/%d, expected 0/2", students[1].TotalCardsAllTime, students[1].CurrentLevel)
		}

		started := mt.GetAllStartedEvents()
		if len(started) != 5 {
			t.Fatalf("started %d commands, expected 5", len(started))
		}
		if _, err := started[0].Command.LookupErr("sort", "collectionDate"); err != nil {
			t.Errorf("cycle query is not sorted by collectionDate: %v", started[0].Command)
		}
		if started[4].CommandName != "aggregate" {
			t.Errorf("last command = %s, expected aggregate", started[4].CommandName)
		}
		if _, err := started[4].Command.LookupErr("pipeline", "0", "$group", "since"); err != nil {
			t.Errorf("aggregation does not count cards since the last collection: %v", started[4].Command)
		}
	})

	mt.Run("no cycles", func(mt *mtest.T) {
		store := newMockMongoStore(mt, time.Now())
		ns := mt.DB.Name()

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns+".collection_cycles", mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns+".teams", mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns+".students", mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns+".cards", mtest.FirstBatch),
		)

		snapshot, err := store.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if len(snapshot.Teams) != 0 || len(snapshot.PriorCycles) != 0 {
			t.Errorf("snapshot = %+v, expected empty", snapshot)
		}
	})
}

func TestMongoStore_NotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("team update matches nothing", func(mt *mtest.T) {
		store := newMockMongoStore(mt, time.Now())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := store.UpdateTeamLevel(context.Background(), UpdateTeamLevelInput{TeamID: "missing", Level: 2})
		if !errors.Is(err, ErrTeamNotFound) {
			t.Errorf("UpdateTeamLevel() error = %v, expected ErrTeamNotFound", err)
		}
	})

	mt.Run("student update matches nothing", func(mt *mtest.T) {
		store := newMockMongoStore(mt, time.Now())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := store.UpdateStudentLevel(context.Background(), UpdateStudentLevelInput{StudentID: "missing", Level: 1})
		if !errors.Is(err, ErrStudentNotFound) {
			t.Errorf("UpdateStudentLevel() error = %v, expected ErrStudentNotFound", err)
		}
	})

	mt.Run("student update matches", func(mt *mtest.T) {
		store := newMockMongoStore(mt, time.Now())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		if err := store.UpdateStudentLevel(context.Background(), UpdateStudentLevelInput{StudentID: "s1", Level: 1}); err != nil {
			t.Errorf("UpdateStudentLevel() error = %v", err)
		}
	})

	mt.Run("winner of unknown cycle", func(mt *mtest.T) {
		store := newMockMongoStore(mt, time.Now())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".collection_cycles", mtest.FirstBatch))

		err := store.RecordDrawingWinner(context.Background(), RecordWinnerInput{CycleID: "missing", StudentID: "s1"})
		if !errors.Is(err, ErrCycleNotFound) {
			t.Errorf("RecordDrawingWinner() error = %v, expected ErrCycleNotFound", err)
		}
	})
}
