package ecs

// Observer maintains a persistent set of entities matching a rule expressed
// over storage signals, e.g. "any entity that gained A while not holding B".
// The set survives across frames until the client drains it with Clear.
// Observers never own components; they borrow the registry and its signals.
type Observer struct {
	reg    *Registry
	set    SparseSet
	detach []func()
}

// Collector wires one matching rule into an observer at construction time.
type Collector struct {
	attach func(o *Observer, r *Registry) []func()
}

// ObserverFilter restricts a collector to entities that are (Where) or are
// not (Unless) held by another pool at signal time.
type ObserverFilter struct {
	pool Pool
	want bool
}

// Where admits only entities currently held by pool.
func Where(pool Pool) ObserverFilter {
	return ObserverFilter{pool: pool, want: true}
}

// Unless rejects entities currently held by pool.
func Unless(pool Pool) ObserverFilter {
	return ObserverFilter{pool: pool, want: false}
}

func passes(filters []ObserverFilter, e Entity) bool {
	for _, f := range filters {
		if f.pool.Contains(e) != f.want {
			return false
		}
	}
	return true
}

// OnEntered collects entities that gain a component of type T and pass the
// filters. Losing the component drops the entity from the set again.
func OnEntered[T any](filters ...ObserverFilter) Collector {
	return Collector{attach: func(o *Observer, r *Registry) []func() {
		st := StorageOf[T](r)
		added := st.OnConstruct().Connect(func(_ *Registry, e Entity) {
			if passes(filters, e) {
				o.mark(e)
			}
		})
		removed := st.OnDestroy().Connect(func(_ *Registry, e Entity) {
			o.set.Discard(e)
		})
		return []func(){
			func() { st.OnConstruct().Disconnect(added) },
			func() { st.OnDestroy().Disconnect(removed) },
		}
	}}
}

// OnUpdated collects entities whose component of type T is patched and that
// pass the filters. Losing the component drops the entity from the set.
func OnUpdated[T any](filters ...ObserverFilter) Collector {
	return Collector{attach: func(o *Observer, r *Registry) []func() {
		st := StorageOf[T](r)
		patched := st.OnUpdate().Connect(func(_ *Registry, e Entity) {
			if passes(filters, e) {
				o.mark(e)
			}
		})
		removed := st.OnDestroy().Connect(func(_ *Registry, e Entity) {
			o.set.Discard(e)
		})
		return []func(){
			func() { st.OnUpdate().Disconnect(patched) },
			func() { st.OnDestroy().Disconnect(removed) },
		}
	}}
}

// NewObserver connects the collectors to the registry's storages and returns
// the resulting observer.
func NewObserver(r *Registry, collectors ...Collector) *Observer {
	o := &Observer{reg: r}
	o.set.freeHead = noFreeSlot
	o.set.configure(setConfig{pageSize: DefaultPageSize, policy: SwapAndPop})
	for _, c := range collectors {
		o.detach = append(o.detach, c.attach(o, r)...)
	}
	return o
}

func (o *Observer) mark(e Entity) {
	if !o.set.Contains(e) {
		_ = o.set.Add(e)
	}
}

// Size returns the number of collected entities.
func (o *Observer) Size() int {
	return o.set.Size()
}

// IsEmpty returns true if nothing has been collected since the last Clear.
func (o *Observer) IsEmpty() bool {
	return o.set.IsEmpty()
}

// Each iterates the collected entities.
func (o *Observer) Each(fn func(Entity) bool) {
	o.set.Each(fn)
}

// ToSlice returns the collected entities as a copy.
func (o *Observer) ToSlice() []Entity {
	return o.set.ToSlice()
}

// Clear drains the collected set. Clients call this after processing.
func (o *Observer) Clear() {
	o.set.Clear()
}

// Disconnect detaches the observer from every signal it subscribed to. The
// collected set stays intact until Clear.
func (o *Observer) Disconnect() {
	for _, fn := range o.detach {
		fn()
	}
	o.detach = nil
}
