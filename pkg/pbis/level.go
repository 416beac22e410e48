// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pbis

import "math"

// TeamProgress returns a team's new running average of cards per student and the
// level that average reaches.
//
// The cards collected since the last collection are averaged over the team's
// students (an empty team divides by one) and added to the running average.
func TeamProgress(team Team, cardsPerTeamLevel int) (float64, int) {
	newCards := 0
	for _, student := range team.Students {
		if student.CardsSinceLastCollection > 0 {
			newCards += student.CardsSinceLastCollection
		}
	}

	studentCount := len(team.Students)
	if studentCount == 0 {
		studentCount = 1
	}

	average := float64(newCards)/float64(studentCount) + team.AverageCardsPerStudentSoFar
	if average < 0 {
		average = 0
	}

	if cardsPerTeamLevel <= 0 {
		return average, 0
	}

	return average, int(average) / cardsPerTeamLevel
}

// CalculateTeamLevel computes the level a team reaches in this collection.
func CalculateTeamLevel(team Team, cardsPerTeamLevel int) int {
	_, level := TeamProgress(team, cardsPerTeamLevel)
	return level
}

// CalculateStudentLevel returns the index of the first threshold the student's
// all-time total has not yet reached, or LevelBeyondTable when the total is past
// the last threshold.
func CalculateStudentLevel(student Student, thresholds []int) int {
	for i, threshold := range thresholds {
		if threshold-1 >= student.TotalCardsAllTime {
			return i
		}
	}
	return LevelBeyondTable
}

// IsLevelUp reports whether a computed level should replace the stored one.
func IsLevelUp(computed, stored int) bool {
	return computed > stored
}

// RoundAverage rounds a running average for storage, halves rounding up.
func RoundAverage(average float64) int {
	return int(math.Floor(average + 0.5))
}
