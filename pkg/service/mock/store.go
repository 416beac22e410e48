package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/AccelByte/extend-pbis-collection/pkg/pbis"
	"github.com/AccelByte/extend-pbis-collection/pkg/service"
)

// Store is a mock implementation of service.Store for testing.
// All methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	// Custom behavior, used when set
	SnapshotFunc              func(ctx context.Context) (*pbis.Snapshot, error)
	CreateCollectionCycleFunc func(ctx context.Context, input service.CreateCycleInput) (string, error)
	UpdateTeamLevelFunc       func(ctx context.Context, input service.UpdateTeamLevelInput) error
	UpdateStudentLevelFunc    func(ctx context.Context, input service.UpdateStudentLevelInput) error
	RecordDrawingWinnerFunc   func(ctx context.Context, input service.RecordWinnerInput) error

	// Default data
	DefaultSnapshot *pbis.Snapshot
	DefaultCycleID  string
	DefaultError    error

	// Per-ID failures
	FailTeams    map[string]error
	FailStudents map[string]error
	FailWinners  map[string]error

	// Student IDs whose level-up notification fails while the level update succeeds
	FailNotifications map[string]error

	// Call tracking
	SnapshotCalls            int
	CreateCycleCalls         []service.CreateCycleInput
	UpdateTeamLevelCalls     []service.UpdateTeamLevelInput
	TeamLeveledUpCalls       []service.TeamLeveledUpInput
	StudentLeveledUpCalls    []service.StudentLeveledUpInput
	UpdateStudentLevelCalls  []service.UpdateStudentLevelInput
	RecordDrawingWinnerCalls []service.RecordWinnerInput
	GiveCardCalls            []pbis.Card
	SavedTeams               []pbis.Team
	SavedStudents            []pbis.Student
	CheckCalls               int
	Closed                   bool
}

var _ service.Store = (*Store)(nil)

// NewStore creates a new mock Store with an empty snapshot.
func NewStore() *Store {
	return &Store{
		DefaultSnapshot: &pbis.Snapshot{
			Teams:       []pbis.Team{},
			PriorCycles: []pbis.CollectionCycle{},
		},
		DefaultCycleID: "cycle-1",
		FailTeams:      make(map[string]error),
		FailStudents:   make(map[string]error),
		FailWinners:    make(map[string]error),

		FailNotifications: make(map[string]error),
	}
}

// CollectionDates returns the prior cycles of the default snapshot.
func (m *Store) CollectionDates(ctx context.Context) ([]pbis.CollectionCycle, error) {
	snapshot, err := m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.PriorCycles, nil
}

// Snapshot returns the configured snapshot.
func (m *Store) Snapshot(ctx context.Context) (*pbis.Snapshot, error) {
	m.mu.Lock()
	m.SnapshotCalls++
	fn := m.SnapshotFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return m.DefaultSnapshot, nil
}

// CreateCollectionCycle records the call and returns DefaultCycleID.
func (m *Store) CreateCollectionCycle(ctx context.Context, input service.CreateCycleInput) (string, error) {
	m.mu.Lock()
	m.CreateCycleCalls = append(m.CreateCycleCalls, input)
	fn := m.CreateCollectionCycleFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, input)
	}
	if m.DefaultError != nil {
		return "", m.DefaultError
	}
	return m.DefaultCycleID, nil
}

// UpdateTeamLevel records the call and fails for IDs in FailTeams.
func (m *Store) UpdateTeamLevel(ctx context.Context, input service.UpdateTeamLevelInput) error {
	m.mu.Lock()
	m.UpdateTeamLevelCalls = append(m.UpdateTeamLevelCalls, input)
	fn := m.UpdateTeamLevelFunc
	failure := m.FailTeams[input.TeamID]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, input)
	}
	if failure != nil {
		return failure
	}
	return m.DefaultError
}

// NotifyTeamLeveledUp records the call.
func (m *Store) NotifyTeamLeveledUp(ctx context.Context, input service.TeamLeveledUpInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TeamLeveledUpCalls = append(m.TeamLeveledUpCalls, input)
	return m.DefaultError
}

// NotifyStudentLeveledUp records the call and fails for IDs in FailStudents
// or FailNotifications.
func (m *Store) NotifyStudentLeveledUp(ctx context.Context, input service.StudentLeveledUpInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StudentLeveledUpCalls = append(m.StudentLeveledUpCalls, input)
	if failure := m.FailStudents[input.StudentID]; failure != nil {
		return failure
	}
	if failure := m.FailNotifications[input.StudentID]; failure != nil {
		return failure
	}
	return m.DefaultError
}

// UpdateStudentLevel records the call and fails for IDs in FailStudents.
func (m *Store) UpdateStudentLevel(ctx context.Context, input service.UpdateStudentLevelInput) error {
	m.mu.Lock()
	m.UpdateStudentLevelCalls = append(m.UpdateStudentLevelCalls, input)
	fn := m.UpdateStudentLevelFunc
	failure := m.FailStudents[input.StudentID]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, input)
	}
	if failure != nil {
		return failure
	}
	return m.DefaultError
}

// RecordDrawingWinner records the call and fails for IDs in FailWinners.
func (m *Store) RecordDrawingWinner(ctx context.Context, input service.RecordWinnerInput) error {
	m.mu.Lock()
	m.RecordDrawingWinnerCalls = append(m.RecordDrawingWinnerCalls, input)
	fn := m.RecordDrawingWinnerFunc
	failure := m.FailWinners[input.StudentID]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, input)
	}
	if failure != nil {
		return failure
	}
	return m.DefaultError
}

// GiveCard records the card and echoes it back with an ID.
func (m *Store) GiveCard(ctx context.Context, card pbis.Card) (*pbis.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	if card.ID == "" {
		card.ID = fmt.Sprintf("card-%d", len(m.GiveCardCalls)+1)
	}
	m.GiveCardCalls = append(m.GiveCardCalls, card)
	return &card, nil
}

// SaveTeam records the team.
func (m *Store) SaveTeam(ctx context.Context, team pbis.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SavedTeams = append(m.SavedTeams, team)
	return m.DefaultError
}

// SaveStudent records the student.
func (m *Store) SaveStudent(ctx context.Context, student pbis.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SavedStudents = append(m.SavedStudents, student)
	return m.DefaultError
}

// Check returns DefaultError.
func (m *Store) Check(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckCalls++
	return m.DefaultError
}

// Close marks the store closed.
func (m *Store) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// WinnerIDs returns the student IDs passed to RecordDrawingWinner, in call order.
func (m *Store) WinnerIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.RecordDrawingWinnerCalls))
	for i, c := range m.RecordDrawingWinnerCalls {
		ids[i] = c.StudentID
	}
	return ids
}
