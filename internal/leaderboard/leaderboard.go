// Package leaderboard ranks evaluated candidates by validation score.
package leaderboard

import (
	"math"
	"sync"

	"github.com/google/btree"
	"github.com/microsoft/sweep/internal/models"
)

const degree = 8

// Item is one ranked candidate. Higher scores rank first; equal scores rank
// by enumeration index, so the first rank is always the selected candidate.
type Item struct {
	Entry models.CandidateOutcome
}

func rankScore(s float64) float64 {
	if math.IsNaN(s) {
		return math.Inf(-1)
	}
	return s
}

func (i Item) Less(than btree.Item) bool {
	o := than.(Item)
	a, b := rankScore(i.Entry.Score), rankScore(o.Entry.Score)
	if a != b {
		return a > b
	}
	return i.Entry.Index < o.Entry.Index
}

// Board is a concurrency-safe ranking.
type Board struct {
	tree *btree.BTree
	lock sync.RWMutex
}

func New() *Board {
	return &Board{tree: btree.New(degree)}
}

// Add inserts or replaces the entry with the same enumeration index and score.
func (b *Board) Add(e models.CandidateOutcome) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.tree.ReplaceOrInsert(Item{Entry: e})
}

func (b *Board) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.tree.Len()
}

// Top returns the n best entries in rank order. n <= 0 returns all.
func (b *Board) Top(n int) []models.CandidateOutcome {
	b.lock.RLock()
	defer b.lock.RUnlock()

	if n <= 0 || n > b.tree.Len() {
		n = b.tree.Len()
	}
	out := make([]models.CandidateOutcome, 0, n)
	b.tree.Ascend(func(i btree.Item) bool {
		out = append(out, i.(Item).Entry)
		return len(out) < n
	})
	return out
}

// Rank returns the 1-based rank of the candidate at enumeration index, or 0.
func (b *Board) Rank(index int) int {
	b.lock.RLock()
	defer b.lock.RUnlock()

	rank, pos := 0, 0
	b.tree.Ascend(func(i btree.Item) bool {
		pos++
		if i.(Item).Entry.Index == index {
			rank = pos
			return false
		}
		return true
	})
	return rank
}
