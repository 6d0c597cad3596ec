package ecs

import (
	"reflect"
	"unsafe"
)

// payloadPageSize is the number of elements per payload chunk. Chunked
// payloads keep surviving elements at stable addresses under the in-place
// deletion policy.
const payloadPageSize = 1024

// TypeID is a registry-local sequence number assigned to a component type on
// first use. It indexes the registry's pool vector.
type TypeID uint32

// Pool is the type-erased face of a component storage. It carries only
// entity-level operations; typed access goes through AsStorage.
type Pool interface {
	// ComponentType returns the component type held by the pool.
	ComponentType() reflect.Type

	// TypeName returns the component type name for diagnostics.
	TypeName() string

	// TypeID returns the registry-local sequence number of the pool, or 0
	// for unbound pools.
	TypeID() TypeID

	// Contains reports whether the pool holds a component for e.
	Contains(e Entity) bool

	// Size returns the number of entities in the pool.
	Size() int

	// Discard removes e's component if present, raising the destroy signal
	// first. Reports whether a component was removed.
	Discard(e Entity) bool

	// Clear removes every component, raising the destroy signal per entity.
	Clear()

	// Each iterates the pool's entities in reverse dense order.
	Each(fn func(Entity) bool)

	// Value returns a copy of e's component as an any, for tooling that
	// walks pools without knowing their types.
	Value(e Entity) (any, bool)

	// Entities exposes the underlying sparse set. Callers must treat it as
	// read-only; structural mutation desyncs the payload.
	Entities() *SparseSet

	// Stats reports per-pool storage statistics.
	Stats() StorageStats

	bind(reg *Registry, id TypeID)
}

// ==============================================
// Storage
// ==============================================

// Storage holds the components of type T, one per entity, parallel to a
// sparse set. Component values live in fixed-size chunks so that the
// in-place deletion policy can guarantee pointer stability for survivors.
//
// Zero-size component types collapse to membership only: no payload memory
// is allocated and Get hands back a shared stub.
type Storage[T any] struct {
	set   SparseSet
	pages [][]T
	stub  T

	zeroSized bool
	typ       reflect.Type
	id        TypeID
	reg       *Registry

	construct signal
	update    signal
	destroy   signal
}

// NewStorage creates an empty storage for T.
func NewStorage[T any](opts ...SetOption) *Storage[T] {
	var zero T
	s := &Storage[T]{
		zeroSized: unsafe.Sizeof(zero) == 0,
		typ:       reflect.TypeOf(&zero).Elem(),
	}
	cfg := setConfig{pageSize: DefaultPageSize, policy: SwapAndPop}
	for _, opt := range opts {
		opt(&cfg)
	}
	s.set.freeHead = noFreeSlot
	s.set.configure(cfg)
	return s
}

// ComponentType returns the component type held by the storage.
func (s *Storage[T]) ComponentType() reflect.Type {
	return s.typ
}

// TypeName returns the component type name.
func (s *Storage[T]) TypeName() string {
	return s.typ.String()
}

// TypeID returns the registry-local sequence number of the storage.
func (s *Storage[T]) TypeID() TypeID {
	return s.id
}

// Policy returns the deletion policy of the storage.
func (s *Storage[T]) Policy() DeletionPolicy {
	return s.set.policy
}

func (s *Storage[T]) bind(reg *Registry, id TypeID) {
	s.reg = reg
	s.id = id
}

// itemAt returns the payload slot for a dense position.
func (s *Storage[T]) itemAt(pos int) *T {
	return &s.pages[pos/payloadPageSize][pos%payloadPageSize]
}

// assureItem grows the payload chunks to cover a dense position.
func (s *Storage[T]) assureItem(pos int) *T {
	for len(s.pages)*payloadPageSize <= pos {
		s.pages = append(s.pages, make([]T, payloadPageSize))
	}
	return s.itemAt(pos)
}

// Contains reports whether the storage holds a component for e.
func (s *Storage[T]) Contains(e Entity) bool {
	return s.set.Contains(e)
}

// Size returns the number of entities in the storage.
func (s *Storage[T]) Size() int {
	return s.set.Size()
}

// IsEmpty returns true if the storage holds no components.
func (s *Storage[T]) IsEmpty() bool {
	return s.set.IsEmpty()
}

// Entities exposes the underlying sparse set.
func (s *Storage[T]) Entities() *SparseSet {
	return &s.set
}

// Emplace constructs a component for e from value and returns a pointer to
// the stored element. The construct signal fires after the insertion.
// Fails if e already carries a component; the storage is unchanged then.
func (s *Storage[T]) Emplace(e Entity, value T) (*T, error) {
	pos, err := s.set.add(e)
	if err != nil {
		if IsCode(err, ErrEntityExists) {
			return nil, errComponentExists(e, s.TypeName())
		}
		return nil, err
	}

	item := &s.stub
	if !s.zeroSized {
		item = s.assureItem(pos)
		*item = value
	}
	s.construct.publish(s.reg, e)
	return item, nil
}

// Insert bulk-inserts the same value for a range of entities as a single
// operation. Either every entity is inserted or none: a failure part-way
// rolls back the entities already added, and the construct signal fires once
// per entity only after the whole range is in.
func (s *Storage[T]) Insert(entities []Entity, value T) error {
	return s.insert(entities, func(int) T { return value })
}

// InsertData bulk-inserts one value per entity, zipped positionally.
func (s *Storage[T]) InsertData(entities []Entity, values []T) error {
	if len(entities) != len(values) {
		return errInvalidArgument("entity and value ranges differ in length")
	}
	return s.insert(entities, func(i int) T { return values[i] })
}

func (s *Storage[T]) insert(entities []Entity, valueAt func(int) T) error {
	for i, e := range entities {
		pos, err := s.set.add(e)
		if err != nil {
			// Roll the prefix back; no signal has fired yet.
			for _, prev := range entities[:i] {
				s.dropSilently(prev)
			}
			if IsCode(err, ErrEntityExists) {
				return errComponentExists(e, s.TypeName())
			}
			return err
		}
		if !s.zeroSized {
			*s.assureItem(pos) = valueAt(i)
		}
	}
	for _, e := range entities {
		s.construct.publish(s.reg, e)
	}
	return nil
}

// Patch applies the given functions to e's component in place and raises the
// update signal afterwards.
func (s *Storage[T]) Patch(e Entity, fns ...func(*T)) error {
	item, ok := s.TryGet(e)
	if !ok {
		return errComponentNotFound(e, s.TypeName())
	}
	for _, fn := range fns {
		fn(item)
	}
	s.update.publish(s.reg, e)
	return nil
}

// Get returns a pointer to e's component.
func (s *Storage[T]) Get(e Entity) (*T, error) {
	item, ok := s.TryGet(e)
	if !ok {
		return nil, errComponentNotFound(e, s.TypeName())
	}
	return item, nil
}

// TryGet returns a pointer to e's component, or false when absent.
func (s *Storage[T]) TryGet(e Entity) (*T, bool) {
	if !s.set.Contains(e) {
		return nil, false
	}
	if s.zeroSized {
		return &s.stub, true
	}
	return s.itemAt(s.set.index(e)), true
}

// Value returns a copy of e's component for type-erased tooling.
func (s *Storage[T]) Value(e Entity) (any, bool) {
	item, ok := s.TryGet(e)
	if !ok {
		return nil, false
	}
	return *item, true
}

// Erase removes e's component. The destroy signal fires before anything is
// torn down, so handlers still observe the component.
func (s *Storage[T]) Erase(e Entity) error {
	if !s.set.Contains(e) {
		return errComponentNotFound(e, s.TypeName())
	}
	s.destroy.publish(s.reg, e)
	s.dropSilently(e)
	return nil
}

// dropSilently removes e without raising signals.
func (s *Storage[T]) dropSilently(e Entity) {
	pos, moved, err := s.set.remove(e)
	if err != nil || s.zeroSized {
		return
	}
	var zero T
	if moved >= 0 {
		*s.itemAt(pos) = *s.itemAt(moved)
		*s.itemAt(moved) = zero
	} else {
		// Freed slot keeps its address for reuse; drop the value so the
		// garbage collector can reclaim what it referenced.
		*s.itemAt(pos) = zero
	}
}

// Remove removes e's component if present and reports whether it did.
func (s *Storage[T]) Remove(e Entity) bool {
	return s.Erase(e) == nil
}

// Discard implements Pool.
func (s *Storage[T]) Discard(e Entity) bool {
	return s.Remove(e)
}

// Clear removes every component, raising the destroy signal per entity.
func (s *Storage[T]) Clear() {
	entities := s.set.ToSlice()
	for _, e := range entities {
		s.destroy.publish(s.reg, e)
	}
	s.set.Clear()
	s.pages = nil
}

// Each iterates the storage's entities in reverse dense order.
func (s *Storage[T]) Each(fn func(Entity) bool) {
	s.set.Each(fn)
}

// EachItem iterates entities together with pointers to their components in
// reverse dense order. For zero-size component types every entity shares the
// stub element.
func (s *Storage[T]) EachItem(fn func(Entity, *T) bool) {
	for i := len(s.set.dense) - 1; i >= 0; i-- {
		e := s.set.dense[i]
		if IsTombstone(e) {
			continue
		}
		item := &s.stub
		if !s.zeroSized {
			item = s.itemAt(i)
		}
		if !fn(e, item) {
			return
		}
	}
}

// Compact coalesces tombstones left by in-place deletion, moving the
// payload along with the dense entries. Pointer stability is lost for the
// elements it relocates.
func (s *Storage[T]) Compact() {
	if s.zeroSized {
		s.set.Compact()
		return
	}
	if s.set.holes == 0 {
		return
	}

	out := 0
	for i, e := range s.set.dense {
		if IsTombstone(e) {
			continue
		}
		if out != i {
			s.set.dense[out] = e
			*s.set.slot(e) = makeEntity(uint64(out), e.Version())
			*s.itemAt(out) = *s.itemAt(i)
		}
		out++
	}

	var zero T
	for i := out; i < len(s.set.dense); i++ {
		*s.itemAt(i) = zero
	}
	s.set.dense = s.set.dense[:out]
	s.set.freeHead = noFreeSlot
	s.set.holes = 0
}

// Sort reorders entities and payload together using an entity comparator.
// In-place storages are compacted first.
func (s *Storage[T]) Sort(less func(lhs, rhs Entity) bool) {
	s.Compact()
	if s.zeroSized {
		s.set.Sort(less)
		return
	}

	snapshot := make(map[Entity]T, s.set.Size())
	for i, e := range s.set.dense {
		snapshot[e] = *s.itemAt(i)
	}
	s.set.Sort(less)
	for i, e := range s.set.dense {
		*s.itemAt(i) = snapshot[e]
	}
}

// SortByComponent reorders entities by comparing their component values.
func (s *Storage[T]) SortByComponent(less func(lhs, rhs *T) bool) {
	if s.zeroSized {
		return
	}
	s.Compact()
	s.Sort(func(a, b Entity) bool {
		return less(s.itemAt(s.set.index(a)), s.itemAt(s.set.index(b)))
	})
}

// OnConstruct returns the sink fired after a component is attached.
func (s *Storage[T]) OnConstruct() Sink {
	return Sink{&s.construct}
}

// OnUpdate returns the sink fired after a component is patched.
func (s *Storage[T]) OnUpdate() Sink {
	return Sink{&s.update}
}

// OnDestroy returns the sink fired before a component is detached.
func (s *Storage[T]) OnDestroy() Sink {
	return Sink{&s.destroy}
}

// Stats reports per-pool storage statistics.
func (s *Storage[T]) Stats() StorageStats {
	elem := int64(s.typ.Size())
	return StorageStats{
		Component:      s.TypeName(),
		TypeID:         s.id,
		ComponentCount: s.set.Size(),
		DenseExtent:    s.set.Extent(),
		MemoryUsed:     int64(s.set.Size()) * elem,
		MemoryReserved: int64(len(s.pages))*payloadPageSize*elem + int64(cap(s.set.dense))*int64(unsafe.Sizeof(Entity(0))),
	}
}

// AsStorage downcasts a type-erased pool to its concrete storage. A mismatch
// between the pool's component type and T is reported distinctly.
func AsStorage[T any](p Pool) (*Storage[T], error) {
	s, ok := p.(*Storage[T])
	if !ok {
		var zero T
		return nil, errStorageMismatch(p.TypeName(), reflect.TypeOf(&zero).Elem().String())
	}
	return s, nil
}
