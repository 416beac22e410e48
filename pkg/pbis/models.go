// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pbis

import (
	"time"
)

// CollectionCycle is one run of the card collection, identified by its collection date.
type CollectionCycle struct {
	ID                   string         `json:"id" bson:"_id"`
	CollectionDate       time.Time      `json:"collectionDate" bson:"collectionDate"`
	CollectedCards       int            `json:"collectedCards" bson:"collectedCards"`
	RandomDrawingWinners []WinnerRecord `json:"randomDrawingWinners" bson:"-"`
}

// Team is a TA team: a teacher-led advisory group leveled as a unit.
type Team struct {
	ID                          string    `json:"id" bson:"_id"`
	Name                        string    `json:"name" bson:"name"`
	CurrentLevel                int       `json:"currentLevel" bson:"currentLevel"`
	AverageCardsPerStudentSoFar float64   `json:"averageCardsPerStudentSoFar" bson:"averageCardsPerStudent"`
	Students                    []Student `json:"students" bson:"-"`
}

// Student holds the card counters for a single student.
type Student struct {
	ID                       string `json:"id" bson:"_id"`
	Name                     string `json:"name" bson:"name"`
	TeamID                   string `json:"teamId" bson:"teamId"`
	CardsSinceLastCollection int    `json:"cardsSinceLastCollection" bson:"-"`
	TotalCardsAllTime        int    `json:"totalCardsAllTime" bson:"-"`
	CurrentLevel             int    `json:"currentLevel" bson:"currentLevel"`
}

// WinnerRecord marks a student as a random drawing winner of a cycle.
// CollectionCycleID is empty when the cycle could not be created.
type WinnerRecord struct {
	ID                string `json:"id" bson:"_id"`
	CollectionCycleID string `json:"collectionCycleId,omitempty" bson:"collectionCycleId,omitempty"`
	StudentID         string `json:"studentId" bson:"studentId"`
}

// Card is a single positive-behavior token given to a student.
type Card struct {
	ID        string    `json:"id" bson:"_id"`
	StudentID string    `json:"studentId" bson:"studentId"`
	Category  string    `json:"category,omitempty" bson:"category,omitempty"`
	GivenAt   time.Time `json:"givenAt" bson:"givenAt"`
}

// Snapshot is the read-only view a collection run works from.
// PriorCycles is ordered most recent first.
type Snapshot struct {
	Teams       []Team            `json:"teams"`
	PriorCycles []CollectionCycle `json:"priorCycles"`
	TakenAt     time.Time         `json:"takenAt"`
}

// Students flattens the snapshot's students in team order.
func (s *Snapshot) Students() []Student {
	if s == nil {
		return nil
	}
	var students []Student
	for _, team := range s.Teams {
		students = append(students, team.Students...)
	}
	return students
}

// NewCards returns the number of cards given since the last collection across all teams.
func (s *Snapshot) NewCards() int {
	total := 0
	for _, student := range s.Students() {
		if student.CardsSinceLastCollection > 0 {
			total += student.CardsSinceLastCollection
		}
	}
	return total
}
