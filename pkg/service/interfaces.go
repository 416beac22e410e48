package service

import (
	"context"

	"github.com/AccelByte/extend-pbis-collection/pkg/pbis"
)

// Collaborator interfaces consumed by the collection orchestrator.
//
// The orchestrator only depends on these contracts; RedisStore and MongoStore
// are the bundled implementations and pkg/service/mock provides a test double.

// DataSource supplies the collection dates and the current snapshot.
type DataSource interface {
	// CollectionDates returns all cycles, most recent first, including their winners.
	CollectionDates(ctx context.Context) ([]pbis.CollectionCycle, error)

	// Snapshot returns the teams with their students' card counters and the prior cycles.
	Snapshot(ctx context.Context) (*pbis.Snapshot, error)
}

// MutationGateway executes the named remote operations of a collection run.
// Each call resolves or fails on its own.
type MutationGateway interface {
	CreateCollectionCycle(ctx context.Context, input CreateCycleInput) (string, error)
	UpdateTeamLevel(ctx context.Context, input UpdateTeamLevelInput) error
	NotifyTeamLeveledUp(ctx context.Context, input TeamLeveledUpInput) error
	NotifyStudentLeveledUp(ctx context.Context, input StudentLeveledUpInput) error
	UpdateStudentLevel(ctx context.Context, input UpdateStudentLevelInput) error
	RecordDrawingWinner(ctx context.Context, input RecordWinnerInput) error
}

// CardRecorder accepts new cards for students.
type CardRecorder interface {
	GiveCard(ctx context.Context, card pbis.Card) (*pbis.Card, error)
}

// RosterWriter maintains teams and students.
type RosterWriter interface {
	SaveTeam(ctx context.Context, team pbis.Team) error
	SaveStudent(ctx context.Context, student pbis.Student) error
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// Store is implemented by every bundled backend.
type Store interface {
	DataSource
	MutationGateway
	CardRecorder
	RosterWriter
	HealthChecker
	Close(ctx context.Context) error
}
