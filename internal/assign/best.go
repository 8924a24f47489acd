package assign

import "sync/atomic"

// BestCell tracks the best scored assignment seen so far across
// concurrent trials. Publication is lock-free: writers race on a
// compare-and-swap and only replace a strictly better entry, so on a
// tie the earlier publication wins.
type BestCell struct {
	v atomic.Pointer[ScoredAssignment]
}

// Offer publishes candidate if it strictly beats the current best.
// It returns true when candidate became the new best. The candidate
// must not be mutated after a successful offer.
func (b *BestCell) Offer(candidate ScoredAssignment) bool {
	for {
		cur := b.v.Load()
		if cur != nil && candidate.Score <= cur.Score {
			return false
		}
		if b.v.CompareAndSwap(cur, &candidate) {
			return true
		}
	}
}

// Load returns the current best, or nil if nothing has been offered.
func (b *BestCell) Load() *ScoredAssignment {
	return b.v.Load()
}
