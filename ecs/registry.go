package ecs

import (
	"reflect"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Registry owns the entity pool and one storage per component type. It is
// the coordinator every other piece of the runtime hangs off: entity
// lifecycle, storage discovery, views and signals all start here.
//
// A registry is single-threaded cooperative: no internal locks are taken and
// all operations complete synchronously on the owner goroutine. Concurrent
// readers are fine as long as no writer is active.
type Registry struct {
	// entities is indexed by entity index. A slot holds its own packed
	// identifier while alive; destroyed slots thread the free list through
	// their index bits and carry the version to issue next.
	entities []Entity
	freeHead uint64
	alive    int
	released int

	// pools is indexed by type sequence number, assigned on first use.
	pools []Pool
	index map[reflect.Type]TypeID

	// ctx is an arbitrary user key-value store.
	ctx map[string]any

	cfg       Config
	viewCache *lru.Cache[uint64, *RuntimeView]
}

// NewRegistry creates a registry with the default configuration.
func NewRegistry() *Registry {
	r, _ := NewRegistryWithConfig(DefaultConfig())
	return r
}

// NewRegistryWithConfig creates a registry from an explicit configuration.
func NewRegistryWithConfig(cfg Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cache, err := lru.New[uint64, *RuntimeView](cfg.QueryCacheSize)
	if err != nil {
		return nil, errInvalidArgument(err.Error())
	}
	return &Registry{
		entities:  make([]Entity, 0, cfg.InitialCapacity),
		freeHead:  noFreeSlot,
		index:     make(map[reflect.Type]TypeID),
		ctx:       make(map[string]any),
		cfg:       cfg,
		viewCache: cache,
	}, nil
}

// Config returns the configuration the registry was built with.
func (r *Registry) Config() Config {
	return r.cfg
}

// ==============================================
// Entity Lifecycle
// ==============================================

// Create returns a fresh entity identifier. Freed slots are recycled with a
// bumped version before new indices are allocated. The result is always
// valid and never null or tombstone.
func (r *Registry) Create() Entity {
	r.alive++
	if r.freeHead != noFreeSlot {
		idx := r.freeHead
		slot := r.entities[idx]
		r.freeHead = slot.Index()
		r.released--
		e := makeEntity(idx, slot.Version())
		r.entities[idx] = e
		return e
	}

	idx := uint64(len(r.entities))
	if idx >= entityMask64 {
		panic("ecs: entity index space exhausted")
	}
	e := makeEntity(idx, 0)
	r.entities = append(r.entities, e)
	return e
}

// CreateHint tries to produce exactly the requested identifier. When the
// index is unused the hint is honored, version included; otherwise a fresh
// identifier different from the hint is returned.
func (r *Registry) CreateHint(hint Entity) Entity {
	if IsNull(hint) || IsTombstone(hint) {
		return r.Create()
	}

	idx := hint.Index()
	if idx >= uint64(len(r.entities)) {
		// Grow the pool; intermediate slots join the free list.
		for i := uint64(len(r.entities)); i < idx; i++ {
			r.entities = append(r.entities, makeEntity(r.freeHead, 0))
			r.freeHead = i
			r.released++
		}
		e := makeEntity(idx, hint.Version())
		r.entities = append(r.entities, e)
		r.alive++
		return e
	}

	if r.entities[idx].Index() == idx {
		// Slot is taken by a live entity.
		return r.Create()
	}
	if r.isRetired(idx) {
		return r.Create()
	}

	r.unlinkFree(idx)
	e := makeEntity(idx, hint.Version())
	r.entities[idx] = e
	r.alive++
	return e
}

// isRetired reports whether a slot reached the reserved version cap and will
// never be reissued.
func (r *Registry) isRetired(idx uint64) bool {
	return r.entities[idx].Version() == versionMask64
}

// unlinkFree removes a slot from the free list.
func (r *Registry) unlinkFree(idx uint64) {
	if r.freeHead == idx {
		r.freeHead = r.entities[idx].Index()
	} else {
		prev := r.freeHead
		for r.entities[prev].Index() != idx {
			prev = r.entities[prev].Index()
		}
		r.entities[prev] = makeEntity(r.entities[idx].Index(), r.entities[prev].Version())
	}
	r.released--
}

// Destroy removes e from every storage that contains it, raising the destroy
// signals, then recycles its slot with the next version.
func (r *Registry) Destroy(e Entity) error {
	return r.DestroyVersion(e, Next(e).Version())
}

// DestroyVersion destroys e and forces the recycled slot onto a specific
// version, used by world-copy tooling. A version equal to the version mask
// retires the slot permanently.
func (r *Registry) DestroyVersion(e Entity, version uint64) error {
	if !r.Valid(e) {
		return errEntityNotFound(e, "")
	}

	// Tear storages down in reverse registration order so later-registered
	// components observe earlier ones in their destroy handlers.
	for i := len(r.pools) - 1; i >= 0; i-- {
		if pool := r.pools[i]; pool != nil {
			pool.Discard(e)
		}
	}

	r.release(e.Index(), version&versionMask64)
	r.alive--
	return nil
}

// release pushes a slot onto the free list carrying the version to issue on
// reuse, or retires it when the version hit the reserved cap.
func (r *Registry) release(idx, version uint64) {
	if version == versionMask64 {
		r.entities[idx] = makeEntity(entityMask64, versionMask64)
		return
	}
	r.entities[idx] = makeEntity(r.freeHead, version)
	r.freeHead = idx
	r.released++
}

// Valid checks that the pool contains e at its packed version.
func (r *Registry) Valid(e Entity) bool {
	idx := e.Index()
	return idx < uint64(len(r.entities)) && r.entities[idx] == e
}

// Current returns the version currently associated with e's index: the live
// version for an alive slot, the version to issue next for a freed one.
func (r *Registry) Current(e Entity) (uint64, bool) {
	idx := e.Index()
	if idx >= uint64(len(r.entities)) {
		return 0, false
	}
	return r.entities[idx].Version(), true
}

// Alive returns the number of live entities.
func (r *Registry) Alive() int {
	return r.alive
}

// Released returns the number of slots waiting on the free list.
func (r *Registry) Released() int {
	return r.released
}

// Each iterates every live entity. The callback returns true to continue.
func (r *Registry) Each(fn func(Entity) bool) {
	for i, e := range r.entities {
		if e.Index() != uint64(i) {
			continue
		}
		if !fn(e) {
			return
		}
	}
}

// Entities returns the live entities as a copy.
func (r *Registry) Entities() []Entity {
	out := make([]Entity, 0, r.alive)
	r.Each(func(e Entity) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Orphan reports whether e is contained in no storage.
func (r *Registry) Orphan(e Entity) bool {
	for _, pool := range r.pools {
		if pool != nil && pool.Contains(e) {
			return false
		}
	}
	return true
}

// Clear destroys every live entity, releasing all slots for recycling.
// Destruction runs from the highest index down so that the free list hands
// out index zero first afterwards.
func (r *Registry) Clear() {
	live := r.Entities()
	for i := len(live) - 1; i >= 0; i-- {
		_ = r.Destroy(live[i])
	}
}

// ClearTypes erases every entity from the listed storages. The entities
// themselves stay alive.
func (r *Registry) ClearTypes(ids ...TypeID) {
	for _, id := range ids {
		if pool, ok := r.PoolByID(id); ok {
			pool.Clear()
		}
	}
}

// ==============================================
// Storage Discovery
// ==============================================

// assurePool returns the pool for typ, creating and binding it on first use.
func (r *Registry) assurePool(typ reflect.Type, create func() Pool) Pool {
	if id, ok := r.index[typ]; ok {
		return r.pools[id]
	}
	id := TypeID(len(r.pools))
	pool := create()
	pool.bind(r, id)
	r.index[typ] = id
	r.pools = append(r.pools, pool)
	return pool
}

// lookupPool returns the pool for typ without creating it.
func (r *Registry) lookupPool(typ reflect.Type) (Pool, bool) {
	id, ok := r.index[typ]
	if !ok {
		return nil, false
	}
	return r.pools[id], true
}

// PoolByID returns the type-erased storage with the given sequence number.
func (r *Registry) PoolByID(id TypeID) (Pool, bool) {
	if int(id) >= len(r.pools) || r.pools[id] == nil {
		return nil, false
	}
	return r.pools[id], true
}

// Pools returns every storage created so far, in type sequence order. This
// is the enumeration hook external serialization tooling walks.
func (r *Registry) Pools() []Pool {
	out := make([]Pool, 0, len(r.pools))
	for _, pool := range r.pools {
		if pool != nil {
			out = append(out, pool)
		}
	}
	return out
}

// AllOf reports whether e is contained in every listed storage.
func (r *Registry) AllOf(e Entity, ids ...TypeID) bool {
	for _, id := range ids {
		pool, ok := r.PoolByID(id)
		if !ok || !pool.Contains(e) {
			return false
		}
	}
	return true
}

// AnyOf reports whether e is contained in at least one listed storage.
func (r *Registry) AnyOf(e Entity, ids ...TypeID) bool {
	for _, id := range ids {
		if pool, ok := r.PoolByID(id); ok && pool.Contains(e) {
			return true
		}
	}
	return false
}

// ==============================================
// User Context
// ==============================================

// SetContext stores an arbitrary value under a key on the registry.
func (r *Registry) SetContext(key string, value any) {
	r.ctx[key] = value
}

// Context retrieves a value stored with SetContext.
func (r *Registry) Context(key string) (any, bool) {
	v, ok := r.ctx[key]
	return v, ok
}

// DeleteContext removes a context entry.
func (r *Registry) DeleteContext(key string) {
	delete(r.ctx, key)
}

// ==============================================
// Generic Component Access
// ==============================================
//
// Go methods cannot introduce type parameters, so the typed component
// surface lives in package-level functions taking the registry first.

func typeOf[T any]() reflect.Type {
	var zero T
	return reflect.TypeOf(&zero).Elem()
}

// RegisterStorage creates the storage for T with explicit per-type options
// (deletion policy, page size) ahead of first use.
func RegisterStorage[T any](r *Registry, opts ...SetOption) (*Storage[T], error) {
	typ := typeOf[T]()
	if _, ok := r.lookupPool(typ); ok {
		return nil, errInvalidArgument("storage for " + typ.String() + " already initialized")
	}
	pool := r.assurePool(typ, func() Pool {
		all := append([]SetOption{WithPageSize(r.cfg.PageSize)}, opts...)
		return NewStorage[T](all...)
	})
	return pool.(*Storage[T]), nil
}

// StorageOf returns the storage for T, creating it on first reference.
func StorageOf[T any](r *Registry) *Storage[T] {
	pool := r.assurePool(typeOf[T](), func() Pool {
		return NewStorage[T](WithPageSize(r.cfg.PageSize))
	})
	return pool.(*Storage[T])
}

// lookupStorage returns the storage for T without creating it.
func lookupStorage[T any](r *Registry) (*Storage[T], bool) {
	pool, ok := r.lookupPool(typeOf[T]())
	if !ok {
		return nil, false
	}
	return pool.(*Storage[T]), true
}

// TypeIDFor returns the type sequence number for T, assigning it on first
// use.
func TypeIDFor[T any](r *Registry) TypeID {
	return StorageOf[T](r).TypeID()
}

// Emplace attaches a component to a valid entity. Fails if the entity is
// stale or already carries a component of type T.
func Emplace[T any](r *Registry, e Entity, value T) (*T, error) {
	if !r.Valid(e) {
		return nil, errEntityNotFound(e, typeOf[T]().String())
	}
	return StorageOf[T](r).Emplace(e, value)
}

// Insert bulk-attaches the same value to a range of valid entities.
func Insert[T any](r *Registry, entities []Entity, value T) error {
	for _, e := range entities {
		if !r.Valid(e) {
			return errEntityNotFound(e, typeOf[T]().String())
		}
	}
	return StorageOf[T](r).Insert(entities, value)
}

// Patch applies functions to e's component in place and raises the update
// signal.
func Patch[T any](r *Registry, e Entity, fns ...func(*T)) error {
	s, ok := lookupStorage[T](r)
	if !ok {
		return errComponentNotFound(e, typeOf[T]().String())
	}
	return s.Patch(e, fns...)
}

// Get returns a pointer to e's component of type T.
func Get[T any](r *Registry, e Entity) (*T, error) {
	s, ok := lookupStorage[T](r)
	if !ok {
		return nil, errComponentNotFound(e, typeOf[T]().String())
	}
	return s.Get(e)
}

// TryGet returns a pointer to e's component, or false when absent. Absence
// is not an error here, unlike Get.
func TryGet[T any](r *Registry, e Entity) (*T, bool) {
	s, ok := lookupStorage[T](r)
	if !ok {
		return nil, false
	}
	return s.TryGet(e)
}

// Has reports whether e carries a component of type T.
func Has[T any](r *Registry, e Entity) bool {
	s, ok := lookupStorage[T](r)
	return ok && s.Contains(e)
}

// Remove detaches e's component if present and reports whether it did.
func Remove[T any](r *Registry, e Entity) bool {
	s, ok := lookupStorage[T](r)
	return ok && s.Remove(e)
}

// Erase detaches e's component, failing when absent.
func Erase[T any](r *Registry, e Entity) error {
	s, ok := lookupStorage[T](r)
	if !ok {
		return errComponentNotFound(e, typeOf[T]().String())
	}
	return s.Erase(e)
}
