/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package watch

import (
	"strings"
	"sync"

	"github.com/corectlio/corectl/pkg/metrics"
)

// DefaultCapacity is the default ring buffer size.
const DefaultCapacity = 10_000

// subscriberBuffer is how many events a live subscriber may be behind before
// it is considered lagged and must resync via a full list_prefix.
const subscriberBuffer = 256

// Bus is an in-process, thread-safe event distributor. The zero value is not
// usable; construct with NewBus.
type Bus struct {
	mu          sync.Mutex
	seq         uint64
	capacity    int
	ring        []Event
	subscribers map[int64]*subscription
	nextID      int64
}

// NewBus constructs a Bus retaining up to capacity events. capacity <= 0
// uses DefaultCapacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity:    capacity,
		subscribers: make(map[int64]*subscription),
	}
}

// Subscription is a live, prefix-filtered tail of the bus.
type Subscription struct {
	// Events delivers events in seq order with no gaps while the consumer
	// keeps up.
	Events <-chan Event
	// Lagged is closed if this subscription fell behind the ring and must
	// resync: do a full list_prefix, then Subscribe again from the bus's
	// current seq.
	Lagged <-chan struct{}

	id  int64
	bus *Bus
}

// Close stops delivery and releases the subscription's resources.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
}

type subscription struct {
	prefix string
	events chan Event
	lagged chan struct{}
	closed bool
}

// Subscribe returns a live tail of events whose Key has the given prefix.
// Pass "" to receive every key.
func (b *Bus) Subscribe(prefix string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscription{
		prefix: prefix,
		events: make(chan Event, subscriberBuffer),
		lagged: make(chan struct{}),
	}
	b.subscribers[id] = sub
	metrics.WatchSubscribersGauge.Set(float64(len(b.subscribers)), map[string]string{})
	return &Subscription{Events: sub.events, Lagged: sub.lagged, id: id, bus: b}
}

func (b *Bus) unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.events)
		metrics.WatchSubscribersGauge.Set(float64(len(b.subscribers)), map[string]string{})
	}
}

// emit assigns the next sequence number to a mutation and fans it out.
// Called by the store on every successful Put/Delete. It must never block
// the writer for longer than an in-memory ring insertion, so
// delivery to slow subscribers is non-blocking.
func (b *Bus) emit(typ EventType, key string, value []byte) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ev := Event{Seq: b.seq, Type: typ, Key: key, Value: value}

	b.ring = append(b.ring, ev)
	if len(b.ring) > b.capacity {
		b.ring = b.ring[len(b.ring)-b.capacity:]
	}

	for id, sub := range b.subscribers {
		if sub.prefix != "" && !strings.HasPrefix(ev.Key, sub.prefix) {
			continue
		}
		select {
		case sub.events <- ev:
		default:
			// Subscriber fell behind; signal the lag and drop it rather
			// than block the writer or silently skip events.
			if !sub.closed {
				sub.closed = true
				close(sub.lagged)
			}
			delete(b.subscribers, id)
			close(sub.events)
			metrics.WatchSubscribersGauge.Set(float64(len(b.subscribers)), map[string]string{})
		}
	}
	return ev
}

// EmitPut records a Put mutation and fans it out. Exported for the store
// package; not part of the external watch contract.
func (b *Bus) EmitPut(key string, value []byte) Event { return b.emit(Put, key, value) }

// EmitDelete records a Delete mutation and fans it out.
func (b *Bus) EmitDelete(key string) Event { return b.emit(Delete, key, nil) }

// CurrentSeq returns the most recently assigned sequence number.
func (b *Bus) CurrentSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// EventsSince returns every retained event with seq > fromSeq, in order, and
// reports whether the range was fully covered by the ring (i.e. fromSeq was
// not older than the oldest retained event). When complete is false the
// caller must also perform a full resync.
func (b *Bus) EventsSince(fromSeq uint64) (events []Event, complete bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	oldestRetained := uint64(0)
	if len(b.ring) > 0 {
		oldestRetained = b.ring[0].Seq
	}
	complete = oldestRetained == 0 || fromSeq+1 >= oldestRetained

	for _, ev := range b.ring {
		if ev.Seq > fromSeq {
			events = append(events, ev)
		}
	}
	return events, complete
}
