package records

import (
	"context"
	"sync"
)

// Feed fans the latest value out to any number of subscribers. Each
// subscriber holds at most one pending value; a newer value replaces an
// unread one, so slow readers always see the latest snapshot.
type Feed[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
	last   T
	has    bool
	closed bool
}

// Subscribe returns a channel that receives the current value, if any, and
// every later one. It is closed when ctx ends or the feed is closed.
func (f *Feed[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch
	}
	if f.subs == nil {
		f.subs = make(map[int]chan T)
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	if f.has {
		ch <- f.last
	}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		if c, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(c)
		}
	}()
	return ch
}

// Publish records v as the current value and offers it to every subscriber.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.last, f.has = v, true
	for _, ch := range f.subs {
		select {
		case ch <- v:
		default:
			// Drop the unread value and keep the newest.
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

// Drop closes every current subscription without closing the feed. Readers
// see a lost feed and may subscribe again.
func (f *Feed[T]) Drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

// Close drops all subscribers and refuses new ones.
func (f *Feed[T]) Close() {
	f.Drop()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// Subscribers reports how many subscriptions are open.
func (f *Feed[T]) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
