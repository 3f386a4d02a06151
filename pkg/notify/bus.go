// Package notify provides the typed observer used by every engine component
// to publish its outbound notifications.
package notify

import "sync"

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Bus delivers notifications of type T to subscribers synchronously, in the
// order they subscribed. The zero value is ready to use.
type Bus[T any] struct {
	mu   sync.Mutex
	next int
	subs []subscriber[T]
}

// Subscribe registers fn and returns a func that removes it again.
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	b.next++
	id := b.next
	b.subs = append(b.subs, subscriber[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish sends n to every current subscriber. Subscribers may subscribe or
// unsubscribe from inside their callback; the change applies to the next Publish.
func (b *Bus[T]) Publish(n T) {
	b.mu.Lock()
	subs := make([]subscriber[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(n)
	}
}

// Len reports the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
