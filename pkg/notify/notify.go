// Package notify provides a latest-value stream: a single slot that holds the
// most recent value and wakes subscribers when it changes.
//
// Subscribers never see a backlog. Each subscription has a one-element buffer;
// publishing while a subscriber has not yet read replaces the unread value, so
// a slow reader always wakes up to the newest state.
//
//	var trees notify.Latest[layout.Tree]
//	ch, cancel := trees.Subscribe()
//	defer cancel()
//	trees.Publish(tree)
//	latest := <-ch
package notify

import "sync"

// Latest holds the most recently published value. The zero value is ready to
// use and holds nothing.
type Latest[T any] struct {
	mu     sync.Mutex
	value  *T
	subs   map[uint64]chan *T
	seq    uint64
	closed bool
}

// Publish replaces the current value and notifies every subscriber without
// blocking. Publishing nil clears the slot. Publish after Close is a no-op.
func (l *Latest[T]) Publish(v *T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.value = v
	for _, ch := range l.subs {
		offer(ch, v)
	}
}

// offer puts v into a one-slot channel, dropping any unread value.
func offer[T any](ch chan *T, v *T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Clear empties the slot and notifies subscribers with nil.
func (l *Latest[T]) Clear() { l.Publish(nil) }

// Load returns the current value, or nil when nothing has been published.
func (l *Latest[T]) Load() *T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Subscribe returns a channel receiving each new value and a cancel function.
// If a value is already present it is delivered immediately. The channel is
// closed by cancel or by Close.
func (l *Latest[T]) Subscribe() (<-chan *T, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan *T, 1)
	if l.closed {
		close(ch)
		return ch, func() {}
	}
	if l.subs == nil {
		l.subs = make(map[uint64]chan *T)
	}
	l.seq++
	id := l.seq
	l.subs[id] = ch
	if l.value != nil {
		ch <- l.value
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if c, ok := l.subs[id]; ok {
				delete(l.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Close ends the stream, closing every subscriber channel. The last value
// stays readable through Load.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
}
