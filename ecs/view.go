package ecs

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Views are lightweight query handles over one or more required storages and
// any number of excluded ones. They borrow the storages and must not outlive
// the registry that produced them. Construction is cheap; nothing is copied
// and later storage mutations stay visible.
//
// Multi-type views pick the smallest required storage as the driver on every
// iteration entry point and probe the remaining storages per candidate.
// Iteration runs in the driver's reverse dense order, so removing the
// current entity mid-iteration is always safe.

// excludedIn reports whether e is held by any of the excluded pools.
func excludedIn(excl []Pool, e Entity) bool {
	for _, pool := range excl {
		if pool.Contains(e) {
			return true
		}
	}
	return false
}

// smallest picks the pool with the fewest entities, honoring a forced
// driver when set.
func smallest(forced TypeID, hasForced bool, pools ...Pool) Pool {
	if hasForced {
		for _, pool := range pools {
			if pool.TypeID() == forced {
				return pool
			}
		}
	}
	driver := pools[0]
	for _, pool := range pools[1:] {
		if pool.Size() < driver.Size() {
			driver = pool
		}
	}
	return driver
}

// ==============================================
// Single-Type View
// ==============================================

// View1 is a view over one required component type. Without exclusions it
// degenerates to a direct walk of the storage with no per-element probing.
type View1[A any] struct {
	a    *Storage[A]
	excl []Pool
}

// NewView1 builds a view over the storage of A.
func NewView1[A any](r *Registry) *View1[A] {
	return &View1[A]{a: StorageOf[A](r)}
}

// Exclude filters out entities held by any of the given pools.
func (v *View1[A]) Exclude(pools ...Pool) *View1[A] {
	v.excl = append(v.excl, pools...)
	return v
}

// Each invokes fn for every entity in the view with a pointer into the
// storage.
func (v *View1[A]) Each(fn func(Entity, *A)) {
	v.a.EachItem(func(e Entity, item *A) bool {
		if !excludedIn(v.excl, e) {
			fn(e, item)
		}
		return true
	})
}

// Entities iterates the view's entities only.
func (v *View1[A]) Entities(fn func(Entity) bool) {
	v.a.Each(func(e Entity) bool {
		if excludedIn(v.excl, e) {
			return true
		}
		return fn(e)
	})
}

// Contains reports whether e satisfies the view's predicate.
func (v *View1[A]) Contains(e Entity) bool {
	return v.a.Contains(e) && !excludedIn(v.excl, e)
}

// Get returns e's component. The entity must satisfy the view's predicate.
func (v *View1[A]) Get(e Entity) (*A, error) {
	if excludedIn(v.excl, e) {
		return nil, errEntityNotFound(e, v.a.TypeName())
	}
	return v.a.Get(e)
}

// SizeHint returns an upper bound on the number of entities in the view.
func (v *View1[A]) SizeHint() int {
	return v.a.Size()
}

// ==============================================
// Two-Type View
// ==============================================

// View2 is a view over two required component types.
type View2[A, B any] struct {
	a         *Storage[A]
	b         *Storage[B]
	excl      []Pool
	forced    TypeID
	hasForced bool
}

// NewView2 builds a view over the storages of A and B.
func NewView2[A, B any](r *Registry) *View2[A, B] {
	return &View2[A, B]{a: StorageOf[A](r), b: StorageOf[B](r)}
}

// Exclude filters out entities held by any of the given pools.
func (v *View2[A, B]) Exclude(pools ...Pool) *View2[A, B] {
	v.excl = append(v.excl, pools...)
	return v
}

// Use forces the storage with the given type id as the iteration driver,
// overriding the smallest-storage rule.
func (v *View2[A, B]) Use(id TypeID) *View2[A, B] {
	v.forced = id
	v.hasForced = true
	return v
}

func (v *View2[A, B]) driver() Pool {
	return smallest(v.forced, v.hasForced, Pool(v.a), Pool(v.b))
}

// Each invokes fn for every entity holding both components, with pointers
// into each storage.
func (v *View2[A, B]) Each(fn func(Entity, *A, *B)) {
	v.driver().Each(func(e Entity) bool {
		pa, ok := v.a.TryGet(e)
		if !ok {
			return true
		}
		pb, ok := v.b.TryGet(e)
		if !ok {
			return true
		}
		if !excludedIn(v.excl, e) {
			fn(e, pa, pb)
		}
		return true
	})
}

// Entities iterates the view's entities only.
func (v *View2[A, B]) Entities(fn func(Entity) bool) {
	v.driver().Each(func(e Entity) bool {
		if !v.Contains(e) {
			return true
		}
		return fn(e)
	})
}

// Contains reports whether e satisfies the view's predicate.
func (v *View2[A, B]) Contains(e Entity) bool {
	return v.a.Contains(e) && v.b.Contains(e) && !excludedIn(v.excl, e)
}

// Get returns e's components. The entity must satisfy the view's predicate.
func (v *View2[A, B]) Get(e Entity) (*A, *B, error) {
	if !v.Contains(e) {
		return nil, nil, errEntityNotFound(e, v.a.TypeName())
	}
	pa, _ := v.a.TryGet(e)
	pb, _ := v.b.TryGet(e)
	return pa, pb, nil
}

// SizeHint returns the driver's size, an upper bound on the view's extent.
func (v *View2[A, B]) SizeHint() int {
	return v.driver().Size()
}

// Join composes two single-type views into a pack iterating their
// intersection. Exclusion lists are merged.
func Join[A, B any](lhs *View1[A], rhs *View1[B]) *View2[A, B] {
	excl := make([]Pool, 0, len(lhs.excl)+len(rhs.excl))
	excl = append(excl, lhs.excl...)
	excl = append(excl, rhs.excl...)
	return &View2[A, B]{a: lhs.a, b: rhs.a, excl: excl}
}

// ==============================================
// Three-Type View
// ==============================================

// View3 is a view over three required component types.
type View3[A, B, C any] struct {
	a         *Storage[A]
	b         *Storage[B]
	c         *Storage[C]
	excl      []Pool
	forced    TypeID
	hasForced bool
}

// NewView3 builds a view over the storages of A, B and C.
func NewView3[A, B, C any](r *Registry) *View3[A, B, C] {
	return &View3[A, B, C]{a: StorageOf[A](r), b: StorageOf[B](r), c: StorageOf[C](r)}
}

// Exclude filters out entities held by any of the given pools.
func (v *View3[A, B, C]) Exclude(pools ...Pool) *View3[A, B, C] {
	v.excl = append(v.excl, pools...)
	return v
}

// Use forces the storage with the given type id as the iteration driver.
func (v *View3[A, B, C]) Use(id TypeID) *View3[A, B, C] {
	v.forced = id
	v.hasForced = true
	return v
}

func (v *View3[A, B, C]) driver() Pool {
	return smallest(v.forced, v.hasForced, Pool(v.a), Pool(v.b), Pool(v.c))
}

// Each invokes fn for every entity holding all three components.
func (v *View3[A, B, C]) Each(fn func(Entity, *A, *B, *C)) {
	v.driver().Each(func(e Entity) bool {
		pa, ok := v.a.TryGet(e)
		if !ok {
			return true
		}
		pb, ok := v.b.TryGet(e)
		if !ok {
			return true
		}
		pc, ok := v.c.TryGet(e)
		if !ok {
			return true
		}
		if !excludedIn(v.excl, e) {
			fn(e, pa, pb, pc)
		}
		return true
	})
}

// Entities iterates the view's entities only.
func (v *View3[A, B, C]) Entities(fn func(Entity) bool) {
	v.driver().Each(func(e Entity) bool {
		if !v.Contains(e) {
			return true
		}
		return fn(e)
	})
}

// Contains reports whether e satisfies the view's predicate.
func (v *View3[A, B, C]) Contains(e Entity) bool {
	return v.a.Contains(e) && v.b.Contains(e) && v.c.Contains(e) && !excludedIn(v.excl, e)
}

// Get returns e's components. The entity must satisfy the view's predicate.
func (v *View3[A, B, C]) Get(e Entity) (*A, *B, *C, error) {
	if !v.Contains(e) {
		return nil, nil, nil, errEntityNotFound(e, v.a.TypeName())
	}
	pa, _ := v.a.TryGet(e)
	pb, _ := v.b.TryGet(e)
	pc, _ := v.c.TryGet(e)
	return pa, pb, pc, nil
}

// SizeHint returns the driver's size.
func (v *View3[A, B, C]) SizeHint() int {
	return v.driver().Size()
}

// ==============================================
// Four-Type View
// ==============================================

// View4 is a view over four required component types.
type View4[A, B, C, D any] struct {
	a         *Storage[A]
	b         *Storage[B]
	c         *Storage[C]
	d         *Storage[D]
	excl      []Pool
	forced    TypeID
	hasForced bool
}

// NewView4 builds a view over the storages of A, B, C and D.
func NewView4[A, B, C, D any](r *Registry) *View4[A, B, C, D] {
	return &View4[A, B, C, D]{
		a: StorageOf[A](r), b: StorageOf[B](r),
		c: StorageOf[C](r), d: StorageOf[D](r),
	}
}

// Exclude filters out entities held by any of the given pools.
func (v *View4[A, B, C, D]) Exclude(pools ...Pool) *View4[A, B, C, D] {
	v.excl = append(v.excl, pools...)
	return v
}

// Use forces the storage with the given type id as the iteration driver.
func (v *View4[A, B, C, D]) Use(id TypeID) *View4[A, B, C, D] {
	v.forced = id
	v.hasForced = true
	return v
}

func (v *View4[A, B, C, D]) driver() Pool {
	return smallest(v.forced, v.hasForced, Pool(v.a), Pool(v.b), Pool(v.c), Pool(v.d))
}

// Each invokes fn for every entity holding all four components.
func (v *View4[A, B, C, D]) Each(fn func(Entity, *A, *B, *C, *D)) {
	v.driver().Each(func(e Entity) bool {
		pa, ok := v.a.TryGet(e)
		if !ok {
			return true
		}
		pb, ok := v.b.TryGet(e)
		if !ok {
			return true
		}
		pc, ok := v.c.TryGet(e)
		if !ok {
			return true
		}
		pd, ok := v.d.TryGet(e)
		if !ok {
			return true
		}
		if !excludedIn(v.excl, e) {
			fn(e, pa, pb, pc, pd)
		}
		return true
	})
}

// Entities iterates the view's entities only.
func (v *View4[A, B, C, D]) Entities(fn func(Entity) bool) {
	v.driver().Each(func(e Entity) bool {
		if !v.Contains(e) {
			return true
		}
		return fn(e)
	})
}

// Contains reports whether e satisfies the view's predicate.
func (v *View4[A, B, C, D]) Contains(e Entity) bool {
	return v.a.Contains(e) && v.b.Contains(e) && v.c.Contains(e) && v.d.Contains(e) &&
		!excludedIn(v.excl, e)
}

// Get returns e's components. The entity must satisfy the view's predicate.
func (v *View4[A, B, C, D]) Get(e Entity) (*A, *B, *C, *D, error) {
	if !v.Contains(e) {
		return nil, nil, nil, nil, errEntityNotFound(e, v.a.TypeName())
	}
	pa, _ := v.a.TryGet(e)
	pb, _ := v.b.TryGet(e)
	pc, _ := v.c.TryGet(e)
	pd, _ := v.d.TryGet(e)
	return pa, pb, pc, pd, nil
}

// SizeHint returns the driver's size.
func (v *View4[A, B, C, D]) SizeHint() int {
	return v.driver().Size()
}

// ==============================================
// Runtime View
// ==============================================

// RuntimeView iterates type-erased pools selected by type id at run time.
// It is the tooling counterpart of the typed views: slower per element, but
// composable from data instead of type parameters.
type RuntimeView struct {
	include []Pool
	exclude []Pool
}

// RuntimeView builds (or fetches from the bounded cache) a runtime view over
// the storages with the given ids. At least one required id is mandatory and
// every id must name an existing storage.
func (r *Registry) RuntimeView(include []TypeID, exclude ...TypeID) (*RuntimeView, error) {
	if len(include) == 0 {
		return nil, errInvalidArgument("runtime view requires at least one component type")
	}

	key := runtimeViewKey(include, exclude)
	if v, ok := r.viewCache.Get(key); ok {
		return v, nil
	}

	v := &RuntimeView{
		include: make([]Pool, 0, len(include)),
		exclude: make([]Pool, 0, len(exclude)),
	}
	for _, id := range include {
		pool, ok := r.PoolByID(id)
		if !ok {
			return nil, errInvalidArgument("unknown component type id in runtime view")
		}
		v.include = append(v.include, pool)
	}
	for _, id := range exclude {
		pool, ok := r.PoolByID(id)
		if !ok {
			return nil, errInvalidArgument("unknown component type id in runtime view")
		}
		v.exclude = append(v.exclude, pool)
	}

	r.viewCache.Add(key, v)
	return v, nil
}

// runtimeViewKey hashes the normalized id lists into a cache key.
func runtimeViewKey(include, exclude []TypeID) uint64 {
	normalize := func(ids []TypeID) []TypeID {
		out := append([]TypeID(nil), ids...)
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}

	digest := xxhash.New()
	var buf [4]byte
	for _, id := range normalize(include) {
		binary.LittleEndian.PutUint32(buf[:], uint32(id))
		_, _ = digest.Write(buf[:])
	}
	_, _ = digest.Write([]byte{0xFF})
	for _, id := range normalize(exclude) {
		binary.LittleEndian.PutUint32(buf[:], uint32(id))
		_, _ = digest.Write(buf[:])
	}
	return digest.Sum64()
}

func (v *RuntimeView) driver() Pool {
	return smallest(0, false, v.include...)
}

// Each iterates the entities matching the view's predicate.
func (v *RuntimeView) Each(fn func(Entity) bool) {
	v.driver().Each(func(e Entity) bool {
		if !v.Contains(e) {
			return true
		}
		return fn(e)
	})
}

// Contains reports whether e satisfies the view's predicate.
func (v *RuntimeView) Contains(e Entity) bool {
	for _, pool := range v.include {
		if !pool.Contains(e) {
			return false
		}
	}
	return !excludedIn(v.exclude, e)
}

// SizeHint returns the driver's size.
func (v *RuntimeView) SizeHint() int {
	return v.driver().Size()
}
