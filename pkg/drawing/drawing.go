// Package drawing implements the weighted random drawing: one ticket per card,
// recent winners filtered out, winners picked from a shuffled copy of the pool.
package drawing

import (
	"math/rand"
	"time"

	"github.com/AccelByte/extend-pbis-collection/pkg/pbis"
)

// CreateTicketPool returns one ticket (the student ID) per card collected since the
// last collection, keeping student order.
func CreateTicketPool(students []pbis.Student) []string {
	total := 0
	for _, s := range students {
		if s.CardsSinceLastCollection > 0 {
			total += s.CardsSinceLastCollection
		}
	}

	pool := make([]string, 0, total)
	for _, s := range students {
		for i := 0; i < s.CardsSinceLastCollection; i++ {
			pool = append(pool, s.ID)
		}
	}
	return pool
}

// RecentWinnerSet collects the student IDs that won in the first windowSize cycles.
// Cycles must be ordered most recent first.
func RecentWinnerSet(priorCycles []pbis.CollectionCycle, windowSize int) map[string]struct{} {
	excluded := make(map[string]struct{})
	if windowSize <= 0 {
		return excluded
	}
	if windowSize > len(priorCycles) {
		windowSize = len(priorCycles)
	}

	for _, cycle := range priorCycles[:windowSize] {
		for _, winner := range cycle.RandomDrawingWinners {
			if winner.StudentID == "" {
				continue
			}
			excluded[winner.StudentID] = struct{}{}
		}
	}
	return excluded
}

// ExcludeRecentWinners returns a new pool without the tickets of students who won
// in any of the last windowSize cycles. The input pool is left untouched.
func ExcludeRecentWinners(pool []string, priorCycles []pbis.CollectionCycle, windowSize int) []string {
	excluded := RecentWinnerSet(priorCycles, windowSize)

	filtered := make([]string, 0, len(pool))
	for _, ticket := range pool {
		if _, ok := excluded[ticket]; ok {
			continue
		}
		filtered = append(filtered, ticket)
	}
	return filtered
}

// Shuffle performs a Fisher-Yates shuffle of a copy of pool.
func Shuffle(pool []string, rng *rand.Rand) []string {
	if rng == nil {
		rng = NewRand(time.Now().UnixNano())
	}

	shuffled := make([]string, len(pool))
	copy(shuffled, pool)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// SelectWinners shuffles a copy of the pool and walks it front to back, taking each
// student the first time one of their tickets comes up, until maxWinners are chosen
// or the pool runs out.
func SelectWinners(pool []string, maxWinners int, rng *rand.Rand) []string {
	if maxWinners <= 0 || len(pool) == 0 {
		return []string{}
	}

	shuffled := Shuffle(pool, rng)

	capacity := min(maxWinners, len(pool))
	winners := make([]string, 0, capacity)
	seen := make(map[string]struct{}, capacity)
	for _, ticket := range shuffled {
		if _, ok := seen[ticket]; ok {
			continue
		}
		seen[ticket] = struct{}{}
		winners = append(winners, ticket)
		if len(winners) == maxWinners {
			break
		}
	}
	return winners
}

// NewRand returns a seeded source for reproducible drawings.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
