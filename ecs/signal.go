package ecs

// Handler is invoked when a storage mutation fires a signal. The registry
// argument is the one owning the storage, or nil for unbound storages.
type Handler func(*Registry, Entity)

// Connection identifies one handler registered with a Sink.
type Connection uint64

type slot struct {
	id Connection
	fn Handler
}

// signal is an ordered delegate list. Delivery is synchronous and
// single-threaded; handlers run to completion before the originating
// mutation returns.
type signal struct {
	slots []slot
	next  Connection
}

func (s *signal) publish(reg *Registry, e Entity) {
	// Snapshot so a handler may disconnect itself mid-delivery.
	active := s.slots
	for i := range active {
		active[i].fn(reg, e)
	}
}

func (s *signal) empty() bool {
	return len(s.slots) == 0
}

// Sink exposes connect/disconnect on one of a storage's signals.
type Sink struct {
	sig *signal
}

// Connect appends a handler to the delegate list and returns its connection
// identifier. Handlers fire in connection order.
func (k Sink) Connect(fn Handler) Connection {
	k.sig.next++
	id := k.sig.next
	k.sig.slots = append(k.sig.slots, slot{id: id, fn: fn})
	return id
}

// Disconnect removes a previously connected handler. Unknown identifiers are
// ignored.
func (k Sink) Disconnect(id Connection) {
	slots := k.sig.slots
	for i := range slots {
		if slots[i].id == id {
			k.sig.slots = append(append(make([]slot, 0, len(slots)-1), slots[:i]...), slots[i+1:]...)
			return
		}
	}
}

// Len returns the number of connected handlers.
func (k Sink) Len() int {
	return len(k.sig.slots)
}
