package domain

import "sync/atomic"

// Sequence hands out monotonically increasing ids. Ids are never reused.
type Sequence struct {
	last atomic.Int64
}

// Next returns the next id.
func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}

// AdvanceTo makes sure the next id is greater than n.
// Used when restoring persisted state.
func (s *Sequence) AdvanceTo(n int64) {
	for {
		cur := s.last.Load()
		if n <= cur || s.last.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Last returns the most recently issued (or advanced-to) id.
func (s *Sequence) Last() int64 {
	return s.last.Load()
}

// Process-wide id generators. Groups and posts have separate counters.
var (
	groupIDs Sequence
	postIDs  Sequence
)

// AdvanceGroupIDs moves the group counter to at least n.
func AdvanceGroupIDs(n int64) { groupIDs.AdvanceTo(n) }

// AdvancePostIDs moves the post counter to at least n.
func AdvancePostIDs(n int64) { postIDs.AdvanceTo(n) }

// LastGroupID returns the highest group id handed out so far.
func LastGroupID() int64 { return groupIDs.Last() }

// LastPostID returns the highest post id handed out so far.
func LastPostID() int64 { return postIDs.Last() }
