package ecs

import (
	"math/bits"
	"sort"
)

// DeletionPolicy selects how a sparse set frees dense slots.
type DeletionPolicy uint8

const (
	// SwapAndPop moves the last dense element into the freed slot and
	// shortens the array. Fastest, but relocates one surviving element.
	SwapAndPop DeletionPolicy = iota

	// InPlace marks the freed slot with a tombstone and threads it into a
	// free list for reuse. Surviving elements never move.
	InPlace
)

// DefaultPageSize is the number of slots per sparse page.
const DefaultPageSize = 4096

// noFreeSlot marks an empty in-place free list.
const noFreeSlot = entityMask64

// SetOption configures a sparse set or a storage at construction time.
type SetOption func(*setConfig)

type setConfig struct {
	pageSize int
	policy   DeletionPolicy
}

// WithPageSize overrides the sparse page size. The size must be a power of
// two; invalid values are ignored and the size set before (DefaultPageSize
// unless an earlier option changed it) stays.
func WithPageSize(size int) SetOption {
	return func(c *setConfig) {
		if size > 0 && size&(size-1) == 0 {
			c.pageSize = size
		}
	}
}

// WithInPlaceDelete switches the set to the pointer-stable deletion policy.
func WithInPlaceDelete() SetOption {
	return func(c *setConfig) {
		c.policy = InPlace
	}
}

// WithDeletionPolicy selects the deletion policy explicitly.
func WithDeletionPolicy(policy DeletionPolicy) SetOption {
	return func(c *setConfig) {
		c.policy = policy
	}
}

// ==============================================
// SparseSet
// ==============================================

// SparseSet maintains a set of live entity identifiers with O(1) insert,
// remove, membership and position lookup.
//
// Two parallel structures back the set: a paged sparse array mapping entity
// index to dense position, and a contiguous dense array of identifiers.
// For every contained entity e, dense[sparse[e.Index()].Index()] == e, and
// the sparse slot carries e's version so stale identifiers never match.
type SparseSet struct {
	// sparse pages; nil entries are unallocated
	sparse [][]Entity

	// dense stores entity IDs in contiguous memory
	dense []Entity

	policy    DeletionPolicy
	pageSize  uint64
	pageShift uint
	pageMask  uint64

	// free list through dense tombstones (InPlace only)
	freeHead uint64
	holes    int
}

// NewSparseSet creates an empty sparse set.
func NewSparseSet(opts ...SetOption) *SparseSet {
	cfg := setConfig{pageSize: DefaultPageSize, policy: SwapAndPop}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &SparseSet{freeHead: noFreeSlot}
	s.configure(cfg)
	return s
}

func (s *SparseSet) configure(cfg setConfig) {
	s.policy = cfg.policy
	s.pageSize = uint64(cfg.pageSize)
	s.pageShift = uint(bits.TrailingZeros64(s.pageSize))
	s.pageMask = s.pageSize - 1
}

// Policy returns the deletion policy of the set.
func (s *SparseSet) Policy() DeletionPolicy {
	return s.policy
}

// PageSize returns the sparse page size of the set.
func (s *SparseSet) PageSize() int {
	return int(s.pageSize)
}

// slot returns a pointer to the sparse slot of e, or nil when the page is
// unallocated.
func (s *SparseSet) slot(e Entity) *Entity {
	page := e.Index() >> s.pageShift
	if page >= uint64(len(s.sparse)) || s.sparse[page] == nil {
		return nil
	}
	return &s.sparse[page][e.Index()&s.pageMask]
}

// assureSlot allocates the sparse page containing e on demand and returns
// the slot pointer. Fresh pages are filled with Null.
func (s *SparseSet) assureSlot(e Entity) *Entity {
	page := e.Index() >> s.pageShift
	for uint64(len(s.sparse)) <= page {
		s.sparse = append(s.sparse, nil)
	}
	if s.sparse[page] == nil {
		p := make([]Entity, s.pageSize)
		for i := range p {
			p[i] = Null
		}
		s.sparse[page] = p
	}
	return &s.sparse[page][e.Index()&s.pageMask]
}

// Contains reports whether the set holds e at its packed version.
func (s *SparseSet) Contains(e Entity) bool {
	if IsNull(e) || IsTombstone(e) {
		return false
	}
	slot := s.slot(e)
	return slot != nil && *slot != Null && slot.Version() == e.Version()
}

// Index returns the dense position of e.
func (s *SparseSet) Index(e Entity) (int, error) {
	if !s.Contains(e) {
		return -1, errEntityNotFound(e, "")
	}
	return int(s.slot(e).Index()), nil
}

// index is the unchecked hot-path variant of Index.
func (s *SparseSet) index(e Entity) int {
	return int(s.slot(e).Index())
}

// Add inserts e into the set.
func (s *SparseSet) Add(e Entity) error {
	_, err := s.add(e)
	return err
}

// add inserts e and returns the dense position it landed on.
func (s *SparseSet) add(e Entity) (int, error) {
	if IsNull(e) || IsTombstone(e) {
		return -1, errInvalidEntity(e)
	}

	slot := s.assureSlot(e)
	if *slot != Null {
		// The index is taken, possibly by another version of the same slot.
		return -1, errEntityExists(e)
	}
	var pos int
	if s.policy == InPlace && s.freeHead != noFreeSlot {
		// Reuse the most recently freed dense slot.
		pos = int(s.freeHead)
		s.freeHead = s.dense[pos].Index()
		s.dense[pos] = e
		s.holes--
	} else {
		pos = len(s.dense)
		s.dense = append(s.dense, e)
	}
	*slot = makeEntity(uint64(pos), e.Version())
	return pos, nil
}

// Remove erases e from the set according to the deletion policy.
func (s *SparseSet) Remove(e Entity) error {
	_, _, err := s.remove(e)
	return err
}

// remove erases e and reports the freed dense position plus, under
// swap-and-pop, the old position of the element moved into the hole
// (-1 when nothing moved).
func (s *SparseSet) remove(e Entity) (pos, moved int, err error) {
	if !s.Contains(e) {
		return -1, -1, errEntityNotFound(e, "")
	}

	slot := s.slot(e)
	pos = int(slot.Index())
	moved = -1

	if s.policy == InPlace {
		// Thread the hole into the free list; the dense extent is unchanged.
		s.dense[pos] = makeEntity(s.freeHead, versionMask64)
		s.freeHead = uint64(pos)
		s.holes++
	} else {
		last := len(s.dense) - 1
		if pos != last {
			back := s.dense[last]
			s.dense[pos] = back
			*s.slot(back) = makeEntity(uint64(pos), back.Version())
			moved = last
		}
		s.dense = s.dense[:last]
	}

	*slot = Null
	return pos, moved, nil
}

// Discard removes e if present and reports whether it did.
func (s *SparseSet) Discard(e Entity) bool {
	_, _, err := s.remove(e)
	return err == nil
}

// Clear drops every entry and releases the sparse pages.
func (s *SparseSet) Clear() {
	s.sparse = nil
	s.dense = s.dense[:0]
	s.freeHead = noFreeSlot
	s.holes = 0
}

// Size returns the number of live entities in the set.
func (s *SparseSet) Size() int {
	return len(s.dense) - s.holes
}

// IsEmpty returns true if the set holds no live entities.
func (s *SparseSet) IsEmpty() bool {
	return s.Size() == 0
}

// Extent returns the length of the dense array including tombstones.
func (s *SparseSet) Extent() int {
	return len(s.dense)
}

// At returns the entity at a dense position. Under the in-place policy the
// position may hold a tombstone.
func (s *SparseSet) At(index int) (Entity, error) {
	if index < 0 || index >= len(s.dense) {
		return Null, errIndexOutOfRange(index, len(s.dense))
	}
	return s.dense[index], nil
}

// Data exposes the raw dense array, tombstones included. The slice aliases
// internal state and must not be mutated.
func (s *SparseSet) Data() []Entity {
	return s.dense
}

// Each iterates live entities in reverse dense order, skipping tombstones.
// The callback returns true to continue, false to stop. Reverse order makes
// removing the current entity during iteration safe under swap-and-pop.
func (s *SparseSet) Each(fn func(Entity) bool) {
	for i := len(s.dense) - 1; i >= 0; i-- {
		e := s.dense[i]
		if IsTombstone(e) {
			continue
		}
		if !fn(e) {
			return
		}
	}
}

// ToSlice returns the live entities as a copy, in reverse dense order.
func (s *SparseSet) ToSlice() []Entity {
	result := make([]Entity, 0, s.Size())
	s.Each(func(e Entity) bool {
		result = append(result, e)
		return true
	})
	return result
}

// swap exchanges the dense positions i and j and fixes both sparse links.
func (s *SparseSet) swap(i, j int) {
	if i == j {
		return
	}
	a, b := s.dense[i], s.dense[j]
	s.dense[i], s.dense[j] = b, a
	*s.slot(a) = makeEntity(uint64(j), a.Version())
	*s.slot(b) = makeEntity(uint64(i), b.Version())
}

// Compact coalesces tombstones left by in-place deletion. The relative order
// of surviving entities is preserved. Together with Sort and Respect, which
// compact first, this is the only operation that moves elements under the
// in-place policy.
func (s *SparseSet) Compact() {
	if s.holes == 0 {
		return
	}
	out := 0
	for _, e := range s.dense {
		if IsTombstone(e) {
			continue
		}
		s.dense[out] = e
		*s.slot(e) = makeEntity(uint64(out), e.Version())
		out++
	}
	s.dense = s.dense[:out]
	s.freeHead = noFreeSlot
	s.holes = 0
}

// Sort reorders the dense array with an application-supplied comparator and
// rebuilds the sparse links. In-place sets are compacted first.
func (s *SparseSet) Sort(less func(lhs, rhs Entity) bool) {
	s.Compact()
	sort.SliceStable(s.dense, func(i, j int) bool {
		return less(s.dense[i], s.dense[j])
	})
	for i, e := range s.dense {
		*s.slot(e) = makeEntity(uint64(i), e.Version())
	}
}

// Respect reorders the set so that entities shared with other follow other's
// iteration order. Entities only present locally end up at the front of the
// dense array; their relative order is not preserved.
func (s *SparseSet) Respect(other *SparseSet) {
	s.Compact()
	next := len(s.dense) - 1
	data := other.Data()
	for i := len(data) - 1; i >= 0 && next > 0; i-- {
		e := data[i]
		if IsTombstone(e) || !s.Contains(e) {
			continue
		}
		if e != s.dense[next] {
			s.swap(s.index(e), next)
		}
		next--
	}
}
