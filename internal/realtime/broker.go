// Package realtime provides an in-process change broker. Writers publish a
// topic after their transaction commits; watchers receive a coalesced signal
// and re-read the current state themselves, so a slow watcher never sees a
// stale intermediate value, only the latest one.
package realtime

import (
	"fmt"
	"sync"
)

// ShiftTopic returns the topic for one checklist shift.
func ShiftTopic(restaurantID, date, shift string) string {
	return fmt.Sprintf("restaurants/%s/checklists/%s/shifts/%s", restaurantID, date, shift)
}

// Broker fans change signals out to topic subscribers. The zero value is not
// usable; call NewBroker.
type Broker struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]chan struct{}
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[uint64]chan struct{})}
}

// Subscribe registers interest in topic. The returned channel receives one
// value per burst of publishes. cancel unregisters and closes the channel; it
// is safe to call more than once.
func (b *Broker) Subscribe(topic string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]chan struct{})
	}
	b.subs[topic][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[topic]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(b.subs, topic)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish signals every current subscriber of topic. It never blocks: a
// subscriber that has not drained its previous signal just keeps that one.
func (b *Broker) Publish(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers reports how many live subscriptions topic has.
func (b *Broker) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
