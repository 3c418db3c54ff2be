// Package events implements the in-process fanout that pushes order
// lifecycle changes to connected observers. Registrations live for the
// process lifetime only; a restart drops every subscription and clients are
// expected to reconnect.
package events

import "sync"

// Event is a tagged payload delivered to observers.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

const subscriberBuffer = 16

// Subscriber is one live observer channel, either admin-scoped or scoped to
// a single order. Close deregisters it; closing twice is a no-op.
type Subscriber struct {
	bus     *Bus
	admin   bool
	orderID int64
	ch      chan Event
	once    sync.Once
}

// Events returns the delivery channel. The bus never closes it; readers
// stop by observing their own transport's close signal.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Close removes the subscriber from its registry. Idempotent.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.bus.unsubscribe(s)
	})
}

// Bus holds the two observer registries: a flat set of admin observers and a
// per-order map of observer sets. It is owned by the service layer and
// passed by handle to request handlers, never a package global.
type Bus struct {
	mu     sync.RWMutex
	admins map[*Subscriber]struct{}
	orders map[int64]map[*Subscriber]struct{}
}

func NewBus() *Bus {
	return &Bus{
		admins: make(map[*Subscriber]struct{}),
		orders: make(map[int64]map[*Subscriber]struct{}),
	}
}

// SubscribeAdmin registers an observer that receives every lifecycle event.
func (b *Bus) SubscribeAdmin() *Subscriber {
	s := &Subscriber{bus: b, admin: true, ch: make(chan Event, subscriberBuffer)}
	b.mu.Lock()
	b.admins[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// SubscribeOrder registers an observer interested in exactly one order.
func (b *Bus) SubscribeOrder(orderID int64) *Subscriber {
	s := &Subscriber{bus: b, orderID: orderID, ch: make(chan Event, subscriberBuffer)}
	b.mu.Lock()
	set, ok := b.orders[orderID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		b.orders[orderID] = set
	}
	set[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *Bus) unsubscribe(s *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.admin {
		delete(b.admins, s)
		return
	}
	set, ok := b.orders[s.orderID]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(b.orders, s.orderID)
	}
}

// PublishAdmin fans a tagged event out to every admin observer.
func (b *Bus) PublishAdmin(event string, payload any) {
	for _, s := range b.snapshotAdmins() {
		deliver(s, Event{Name: event, Payload: payload})
	}
}

// PublishOrder pushes an updated snapshot to the observers of one order.
func (b *Bus) PublishOrder(orderID int64, payload any) {
	for _, s := range b.snapshotOrder(orderID) {
		deliver(s, Event{Name: "snapshot", Payload: payload})
	}
}

// deliver is fire-and-forget: a full buffer means the observer is too slow
// or gone, and the event is dropped rather than blocking the publisher.
func deliver(s *Subscriber, e Event) {
	select {
	case s.ch <- e:
	default:
	}
}

// snapshotAdmins copies the registry so a concurrent disconnect cannot
// corrupt iteration.
func (b *Bus) snapshotAdmins() []*Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Subscriber, 0, len(b.admins))
	for s := range b.admins {
		out = append(out, s)
	}
	return out
}

func (b *Bus) snapshotOrder(orderID int64) []*Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	set := b.orders[orderID]
	out := make([]*Subscriber, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// AdminCount reports the number of live admin observers.
func (b *Bus) AdminCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.admins)
}

// OrderObserverCount reports the number of live observers for one order.
func (b *Bus) OrderObserverCount(orderID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders[orderID])
}
