package store

import (
	"fmt"
	"sync"
)

// Collections published on the feed
const (
	CheckIns  = "check_ins"
	Worksites = "worksites"
)

// ChangeKind mirrors the added/changed/removed events of a live collection
type ChangeKind uint8

const (
	ChildAdded ChangeKind = iota
	ChildChanged
	ChildRemoved

	// changeInitial is queued ahead of everything else for a new subscriber
	changeInitial
)

func (k ChangeKind) String() string {
	switch k {
	case ChildAdded:
		return "added"
	case ChildChanged:
		return "changed"
	case ChildRemoved:
		return "removed"
	case changeInitial:
		return "initial"
	}
	return fmt.Sprintf("ChangeKind(%d)", uint8(k))
}

// Change describes one committed write
type Change struct {
	Collection string
	Kind       ChangeKind
	ID         string
	Key        string
}

// Feed is an in-process publish/subscribe of committed changes. Every
// subscriber has its own goroutine and an unbounded queue, so a slow
// subscriber never blocks a writer and sees changes in publish order.
type Feed struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]*subscriber
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{subs: make(map[uint64]*subscriber)}
}

type subscriber struct {
	filter func(Change) bool
	fn     func(Change)

	mu     sync.Mutex
	queue  []Change
	closed bool
	wake   chan struct{}
}

// Subscribe registers fn for every change accepted by filter (nil accepts
// all). The returned unsubscribe is idempotent and stops delivery; a call
// to fn already handed its change may still complete.
func (f *Feed) Subscribe(filter func(Change) bool, fn func(Change)) func() {
	return f.subscribe(filter, fn, false)
}

func (f *Feed) subscribe(filter func(Change) bool, fn func(Change), initial bool) func() {
	s := &subscriber{filter: filter, fn: fn, wake: make(chan struct{}, 1)}
	if initial {
		s.queue = append(s.queue, Change{Kind: changeInitial})
		s.wake <- struct{}{}
	}

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = s
	f.mu.Unlock()

	go s.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			s.close()
		})
	}
}

// Publish queues changes for every interested subscriber
func (f *Feed) Publish(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.subs {
		s.push(changes)
	}
}

// Len returns the number of live subscribers
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

func (s *subscriber) push(changes []Change) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	defer s.mu.Unlock()
	queued := false
	for _, c := range changes {
		if s.filter == nil || s.filter(c) {
			s.queue = append(s.queue, c)
			queued = true
		}
	}
	if queued {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	close(s.wake)
	s.mu.Unlock()
}

func (s *subscriber) run() {
	for range s.wake {
		for {
			s.mu.Lock()
			if s.closed || len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			c := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.fn(c)
		}
	}
}
