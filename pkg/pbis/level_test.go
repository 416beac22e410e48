// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pbis

import (
	"testing"
	"time"
)

func studentsWithCards(cards ...int) []Student {
	students := make([]Student, len(cards))
	for i, c := range cards {
		students[i] = Student{ID: string(rune('a' + i)), CardsSinceLastCollection: c}
	}
	return students
}

func TestCalculateTeamLevel(t *testing.T) {
	tests := []struct {
		name   string
		team   Team
		perLvl int
		expect int
	}{
		{
			name:   "single student reaching first level",
			team:   Team{Students: studentsWithCards(24)},
			perLvl: 24,
			expect: 1,
		},
		{
			name:   "average below first level",
			team:   Team{Students: studentsWithCards(10, 20)},
			perLvl: 24,
			expect: 0,
		},
		{
			name:   "running average carries over",
			team:   Team{AverageCardsPerStudentSoFar: 40, Students: studentsWithCards(10, 6)},
			perLvl: 24,
			expect: 2,
		},
		{
			name:   "empty team uses previous average",
			team:   Team{AverageCardsPerStudentSoFar: 50},
			perLvl: 24,
			expect: 2,
		},
		{
			name:   "empty team with no history",
			team:   Team{},
			perLvl: 24,
			expect: 0,
		},
		{
			name:   "non-positive divisor",
			team:   Team{Students: studentsWithCards(100)},
			perLvl: 0,
			expect: 0,
		},
		{
			name:   "negative counts ignored",
			team:   Team{Students: studentsWithCards(-30, 30)},
			perLvl: 15,
			expect: 1,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateTeamLevel(tc.team, tc.perLvl)
			if got != tc.expect {
				t.Fatalf("CalculateTeamLevel() = %d, want %d", got, tc.expect)
			}
			if again := CalculateTeamLevel(tc.team, tc.perLvl); again != got {
				t.Fatalf("CalculateTeamLevel() not deterministic: %d then %d", got, again)
			}
		})
	}
}

func TestTeamProgress_Average(t *testing.T) {
	team := Team{AverageCardsPerStudentSoFar: 1.5, Students: studentsWithCards(3, 4)}

	average, level := TeamProgress(team, 24)
	if average != 5 {
		t.Errorf("average = %v, want 5", average)
	}
	if level != 0 {
		t.Errorf("level = %d, want 0", level)
	}
}

func TestCalculateStudentLevel(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		expect int
	}{
		{name: "no cards", total: 0, expect: 0},
		{name: "just under first threshold", total: 24, expect: 0},
		{name: "at first threshold", total: 25, expect: 1},
		{name: "thirty cards", total: 30, expect: 1},
		{name: "at second threshold", total: 50, expect: 2},
		{name: "last level", total: 749, expect: 13},
		{name: "past the table", total: 750, expect: LevelBeyondTable},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateStudentLevel(Student{TotalCardsAllTime: tc.total}, DefaultLevelThresholds)
			if got != tc.expect {
				t.Fatalf("CalculateStudentLevel(%d) = %d, want %d", tc.total, got, tc.expect)
			}
		})
	}
}

func TestCalculateStudentLevel_Monotonic(t *testing.T) {
	last := DefaultLevelThresholds[len(DefaultLevelThresholds)-1]
	prev := CalculateStudentLevel(Student{TotalCardsAllTime: 0}, DefaultLevelThresholds)

	for total := 1; total < last; total++ {
		level := CalculateStudentLevel(Student{TotalCardsAllTime: total}, DefaultLevelThresholds)
		if level < prev {
			t.Fatalf("level decreased at total %d: %d -> %d", total, prev, level)
		}
		prev = level
	}
}

func TestCalculateStudentLevel_EmptyTable(t *testing.T) {
	if got := CalculateStudentLevel(Student{TotalCardsAllTime: 3}, nil); got != LevelBeyondTable {
		t.Errorf("CalculateStudentLevel() with no thresholds = %d, want %d", got, LevelBeyondTable)
	}
}

func TestCardsWindowStart(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if got := CardsWindowStart(nil, now); !got.Equal(now.Add(-DefaultLookback)) {
		t.Errorf("CardsWindowStart(nil) = %v, want %v", got, now.Add(-DefaultLookback))
	}

	older := now.Add(-14 * 24 * time.Hour)
	newer := now.Add(-7 * 24 * time.Hour)
	cycles := []CollectionCycle{{ID: "old", CollectionDate: older}, {ID: "new", CollectionDate: newer}}
	if got := CardsWindowStart(cycles, now); !got.Equal(newer) {
		t.Errorf("CardsWindowStart() = %v, want %v", got, newer)
	}
}

func TestSnapshot_NewCards(t *testing.T) {
	snapshot := &Snapshot{Teams: []Team{
		{ID: "t1", Students: studentsWithCards(3, 0)},
		{ID: "t2", Students: studentsWithCards(5)},
	}}

	if got := snapshot.NewCards(); got != 8 {
		t.Errorf("NewCards() = %d, want 8", got)
	}
	if got := len(snapshot.Students()); got != 3 {
		t.Errorf("len(Students()) = %d, want 3", got)
	}

	var empty *Snapshot
	if got := empty.NewCards(); got != 0 {
		t.Errorf("nil snapshot NewCards() = %d, want 0", got)
	}
}

func TestRoundAverage(t *testing.T) {
	tests := []struct {
		average float64
		want    int
	}{
		{0, 0},
		{2.4, 2},
		{2.5, 3},
		{2.6, 3},
		{30, 30},
	}

	for _, tt := range tests {
		if got := RoundAverage(tt.average); got != tt.want {
			t.Errorf("RoundAverage(%v) = %d, want %d", tt.average, got, tt.want)
		}
	}
}
