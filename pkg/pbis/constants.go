// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pbis

import "time"

const (
	// DefaultCardsPerTeamLevel is the average cards per student needed for each team level.
	DefaultCardsPerTeamLevel = 24

	// DefaultMaxWinnersPerCycle caps the random drawing winners of a single cycle.
	DefaultMaxWinnersPerCycle = 10

	// DefaultExclusionWindowCycles is how many prior cycles' winners cannot win again.
	DefaultExclusionWindowCycles = 3

	// LevelBeyondTable is returned by CalculateStudentLevel once a student's total
	// exceeds every threshold.
	LevelBeyondTable = -1

	// DefaultLookback bounds the card window when no collection has happened yet.
	DefaultLookback = 2 * 365 * 24 * time.Hour
)

// DefaultLevelThresholds is the cumulative card count that closes each personal level.
var DefaultLevelThresholds = []int{
	25, 50, 85, 120, 165, 210, 265, 320, 385, 450, 525, 600, 675, 750,
}

// CardsWindowStart returns the instant after which cards count toward the next collection:
// the latest cycle's date, or now minus DefaultLookback when there is none.
func CardsWindowStart(cycles []CollectionCycle, now time.Time) time.Time {
	var latest time.Time
	for _, c := range cycles {
		if c.CollectionDate.After(latest) {
			latest = c.CollectionDate
		}
	}
	if latest.IsZero() {
		return now.Add(-DefaultLookback)
	}
	return latest
}
