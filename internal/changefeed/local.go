package changefeed

import (
	"context"
	"sync"
)

// Local is an in-process feed. Each subscriber owns an unbounded mailbox so
// publishers never block on a slow reader.
type Local struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]*mailbox // collection -> id -> mailbox
	nextID uint64
	closed bool
}

func NewLocal() *Local {
	return &Local{subs: make(map[string]map[uint64]*mailbox)}
}

func (l *Local) Publish(ctx context.Context, changes ...Change) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return ErrClosed
	}
	for _, ch := range changes {
		for _, mb := range l.subs[ch.Collection] {
			mb.put(ch)
		}
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	l.nextID++
	id := l.nextID
	mb := newMailbox()
	if l.subs[collection] == nil {
		l.subs[collection] = make(map[uint64]*mailbox)
	}
	l.subs[collection][id] = mb

	return newSubscription(mb.out, func() { l.remove(collection, id) }), nil
}

func (l *Local) remove(collection string, id uint64) {
	l.mu.Lock()
	mb, ok := l.subs[collection][id]
	delete(l.subs[collection], id)
	if len(l.subs[collection]) == 0 {
		delete(l.subs, collection)
	}
	l.mu.Unlock()

	if ok {
		mb.close()
	}
}

// Count returns the number of live subscriptions across all collections.
func (l *Local) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, subs := range l.subs {
		n += len(subs)
	}
	return n
}

func (l *Local) Close() error {
	l.mu.Lock()
	subs := l.subs
	l.subs = make(map[string]map[uint64]*mailbox)
	l.closed = true
	l.mu.Unlock()

	for _, byID := range subs {
		for _, mb := range byID {
			mb.close()
		}
	}
	return nil
}

type mailbox struct {
	mu     sync.Mutex
	queue  []Change
	signal chan struct{}
	done   chan struct{}
	out    chan Change
}

func newMailbox() *mailbox {
	mb := &mailbox{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan Change),
	}
	go mb.pump()
	return mb
}

func (mb *mailbox) put(ch Change) {
	mb.mu.Lock()
	mb.queue = append(mb.queue, ch)
	mb.mu.Unlock()

	select {
	case mb.signal <- struct{}{}:
	default:
	}
}

func (mb *mailbox) pump() {
	defer close(mb.out)
	for {
		mb.mu.Lock()
		pending := mb.queue
		mb.queue = nil
		mb.mu.Unlock()

		for _, ch := range pending {
			select {
			case mb.out <- ch:
			case <-mb.done:
				return
			}
		}

		select {
		case <-mb.signal:
		case <-mb.done:
			return
		}
	}
}

func (mb *mailbox) close() {
	close(mb.done)
}
