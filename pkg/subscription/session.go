package subscription

import (
	"sync"
)

// Session groups the subscriptions created on behalf of one owner, such as
// a WebSocket connection. Closing the session unsubscribes all of them.
type Session struct {
	id    string
	owner string
	d     *Dispatcher

	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Owner returns the owner label given to OpenSession.
func (s *Session) Owner() string { return s.owner }

// Subscribe creates a subscription owned by this session.
func (s *Session) Subscribe(resource string, categories []string, listener Listener, opts ...Option) (*Subscription, error) {
	return s.d.subscribe(s, resource, categories, listener, opts)
}

// Len returns the number of active subscriptions in the session.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close unsubscribes every subscription of the session. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	s.d.forgetSession(s)
}

// track adds sub; it fails once the session is closed.
func (s *Session) track(sub *Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.subs[sub.id] = sub
	return true
}

func (s *Session) forget(sub *Subscription) {
	s.mu.Lock()
	delete(s.subs, sub.id)
	s.mu.Unlock()
}
