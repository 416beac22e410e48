package service

import (
	"errors"
	"time"
)

// Inputs of the mutation gateway operations.

// CreateCycleInput creates a collection cycle.
type CreateCycleInput struct {
	CollectionDate time.Time `json:"collectionDate"`
	CollectedCards int       `json:"collectedCards"`
}

// UpdateTeamLevelInput persists a team's running average and level.
type UpdateTeamLevelInput struct {
	TeamID                 string `json:"teamId"`
	AverageCardsPerStudent int    `json:"averageCardsPerStudent"`
	Level                  int    `json:"level"`
}

// TeamLeveledUpInput links a team that reached a new level to the cycle.
type TeamLeveledUpInput struct {
	CycleID string `json:"cycleId"`
	TeamID  string `json:"teamId"`
}

// StudentLeveledUpInput records that a student reached a new level.
// CycleID is empty when the cycle could not be created.
type StudentLeveledUpInput struct {
	CycleID   string `json:"cycleId,omitempty"`
	StudentID string `json:"studentId"`
}

// UpdateStudentLevelInput persists a student's level.
type UpdateStudentLevelInput struct {
	StudentID string `json:"studentId"`
	Level     int    `json:"level"`
}

// RecordWinnerInput records a random drawing winner.
// CycleID is empty when the cycle could not be created.
type RecordWinnerInput struct {
	CycleID   string `json:"cycleId,omitempty"`
	StudentID string `json:"studentId"`
}

var (
	// ErrTeamNotFound indicates that a referenced team does not exist.
	ErrTeamNotFound = errors.New("team not found")

	// ErrStudentNotFound indicates that a referenced student does not exist.
	ErrStudentNotFound = errors.New("student not found")

	// ErrCycleNotFound indicates that a referenced collection cycle does not exist.
	ErrCycleNotFound = errors.New("collection cycle not found")

	// ErrInvalidInput indicates a missing or malformed identifier.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorruptRecord indicates a stored field that cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt record")
)
