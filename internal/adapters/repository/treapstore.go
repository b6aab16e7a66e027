package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/cpboard/internal/domain/model"
	"github.com/okian/cpboard/internal/domain/scoring"
)

// Treap-based, in-memory Repository.
//
// Ordering: Percentile DESC, then HallTicketNo ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the leaderboard
// from best to worst.

// scoreFP is a Percentile quantized by scoring.Key, so tree order and dense
// ranks agree on ties.
type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	return scoreFP(scoring.Key(x))
}

// treap node
type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// priorityOf derives a heap priority from the identifier so that tree shape
// does not depend on insertion order or score distribution.
func priorityOf(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func insert(n *node, id string, score scoreFP) *node {
	if n == nil {
		return &node{id: id, score: score, prio: priorityOf(id), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = deleteNode(n.left, id, score)
	} else {
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// collectAll appends all ids in rank order.
func collectAll(n *node, out *[]string) {
	if n == nil {
		return
	}
	collectAll(n.left, out)
	*out = append(*out, n.id)
	collectAll(n.right, out)
}

// snapshot is an immutable ranked view of one cohort, rebuilt on every upload.
type snapshot struct {
	ranked []model.StudentRecord // leaderboard order, Rank set
	pos    map[string]int        // id -> index in ranked
	roster []string              // insertion order
}

type cohortState struct {
	root  *node
	byID  map[string]model.StudentRecord
	order []string
	snap  atomic.Pointer[snapshot]
}

// TreapStore keeps every cohort in memory.
type TreapStore struct {
	mu      sync.RWMutex
	cohorts map[string]*cohortState
	onWrite func(ctx context.Context, cohort string, records []model.StudentRecord) error
}

// NewTreapStore constructs an empty in-memory store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{cohorts: make(map[string]*cohortState)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases nothing; it exists to satisfy Repository.
func (s *TreapStore) Close() error { return nil }

func (s *TreapStore) view(cohort string) *snapshot {
	s.mu.RLock()
	cs, ok := s.cohorts[cohort]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return cs.snap.Load()
}

// GetAllUsers returns copies of the cohort's records in insertion order.
func (s *TreapStore) GetAllUsers(_ context.Context, cohort string) ([]model.StudentRecord, error) {
	snap := s.view(cohort)
	if snap == nil {
		return []model.StudentRecord{}, nil
	}
	out := make([]model.StudentRecord, 0, len(snap.roster))
	for _, id := range snap.roster {
		rec := snap.ranked[snap.pos[id]]
		rec.Rank = 0
		out = append(out, rec)
	}
	return out, nil
}

// Upload implements Store.Upload in O(k log n) for k records plus an O(n)
// snapshot rebuild.
func (s *TreapStore) Upload(ctx context.Context, cohort string, records []model.StudentRecord) (err error) {
	defer func(start time.Time) { observe("upload", start, err) }(time.Now())

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.cohorts[cohort]
	if !ok {
		cs = &cohortState{byID: make(map[string]model.StudentRecord)}
	}

	// Validate before mutating so a bad batch leaves the cohort untouched.
	prepared := make([]model.StudentRecord, 0, len(records))
	for _, rec := range records {
		rec.Canonicalize()
		if model.IsMissingID(rec.HallTicketNo) {
			return fmt.Errorf("%w: empty hall ticket number", ErrInvalidRecord)
		}
		prepared = append(prepared, rec)
	}

	for _, rec := range prepared {
		old, exists := cs.byID[rec.HallTicketNo]
		if exists {
			cs.root = deleteNode(cs.root, old.HallTicketNo, toFixedPoint(old.Percentile))
		} else {
			cs.order = append(cs.order, rec.HallTicketNo)
		}
		merged := mergeRecord(old, rec)
		cs.byID[rec.HallTicketNo] = merged
		cs.root = insert(cs.root, merged.HallTicketNo, toFixedPoint(merged.Percentile))
	}

	snap := cs.rebuild()
	if s.onWrite != nil {
		if err := s.onWrite(ctx, cohort, snap.inRosterOrder()); err != nil {
			// Roll back to the last published state.
			if prev := cs.snap.Load(); prev != nil {
				s.cohorts[cohort] = newCohortState(prev.inRosterOrder())
			}
			return err
		}
	}
	cs.snap.Store(snap)
	s.cohorts[cohort] = cs
	return nil
}

// rebuild assumes the store lock is held.
func (cs *cohortState) rebuild() *snapshot {
	ids := make([]string, 0, len(cs.byID))
	collectAll(cs.root, &ids)

	snap := &snapshot{
		ranked: make([]model.StudentRecord, len(ids)),
		pos:    make(map[string]int, len(ids)),
		roster: append([]string(nil), cs.order...),
	}
	for i, id := range ids {
		snap.ranked[i] = cs.byID[id]
		snap.pos[id] = i
	}
	scoring.AssignRanks(snap.ranked)
	return snap
}

func (snap *snapshot) inRosterOrder() []model.StudentRecord {
	out := make([]model.StudentRecord, 0, len(snap.roster))
	for _, id := range snap.roster {
		out = append(out, snap.ranked[snap.pos[id]])
	}
	return out
}

// Rank returns one student with its dense rank.
func (s *TreapStore) Rank(_ context.Context, cohort, id string) (model.StudentRecord, error) {
	snap := s.view(cohort)
	if snap == nil {
		return model.StudentRecord{}, ErrNotFound
	}
	i, ok := snap.pos[model.CanonicalID(id)]
	if !ok {
		return model.StudentRecord{}, ErrNotFound
	}
	return snap.ranked[i], nil
}

// TopN returns the top n entries in leaderboard order.
func (s *TreapStore) TopN(_ context.Context, cohort string, n int) ([]model.StudentRecord, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	snap := s.view(cohort)
	if snap == nil {
		return []model.StudentRecord{}, nil
	}
	if n > len(snap.ranked) {
		n = len(snap.ranked)
	}
	out := make([]model.StudentRecord, n)
	copy(out, snap.ranked[:n])
	return out, nil
}

// Count returns the number of students in the cohort.
func (s *TreapStore) Count(_ context.Context, cohort string) (int, error) {
	snap := s.view(cohort)
	if snap == nil {
		return 0, nil
	}
	return len(snap.ranked), nil
}

// Cohorts lists the known cohorts.
func (s *TreapStore) Cohorts(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.cohorts))
	for name, cs := range s.cohorts {
		if len(cs.byID) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// load replaces a cohort wholesale, preserving the given order. Used when
// restoring persisted documents.
func (s *TreapStore) load(cohort string, records []model.StudentRecord) {
	cs := newCohortState(records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cohorts[cohort] = cs
}

func newCohortState(records []model.StudentRecord) *cohortState {
	cs := &cohortState{byID: make(map[string]model.StudentRecord, len(records))}
	for _, rec := range records {
		rec.Canonicalize()
		if model.IsMissingID(rec.HallTicketNo) {
			continue
		}
		if _, dup := cs.byID[rec.HallTicketNo]; dup {
			continue
		}
		rec.Rank = 0
		cs.byID[rec.HallTicketNo] = rec
		cs.order = append(cs.order, rec.HallTicketNo)
		cs.root = insert(cs.root, rec.HallTicketNo, toFixedPoint(rec.Percentile))
	}
	cs.snap.Store(cs.rebuild())
	return cs
}
