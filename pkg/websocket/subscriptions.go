package websocket

import (
	"slices"
	"sync"
)

// Subscriptions ref-counts channel interest so the remote subscribe and unsubscribe
// calls are sent once per channel.
type Subscriptions struct {
	mu   sync.Mutex
	refs map[string]int
}

// NewSubscriptions creates a subscription tracker.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{
		refs: make(map[string]int),
	}
}

// Acquire adds one reference to channel.
// Returns true if the channel was newly added.
func (s *Subscriptions) Acquire(channel string) bool {
	s.mu.Lock()
	s.refs[channel]++
	first := s.refs[channel] == 1
	s.mu.Unlock()
	return first
}

// Release drops one reference from channel.
// Returns true if it was the last one.
func (s *Subscriptions) Release(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.refs[channel]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(s.refs, channel)
		return true
	}
	s.refs[channel] = n - 1
	return false
}

// Channels returns the subscribed channels in sorted order.
func (s *Subscriptions) Channels() []string {
	s.mu.Lock()
	channels := make([]string, 0, len(s.refs))
	for channel := range s.refs {
		channels = append(channels, channel)
	}
	s.mu.Unlock()
	slices.Sort(channels)
	return channels
}

// Count returns the number of subscribed channels.
func (s *Subscriptions) Count() int {
	s.mu.Lock()
	count := len(s.refs)
	s.mu.Unlock()
	return count
}

// Reset forgets every channel.
func (s *Subscriptions) Reset() {
	s.mu.Lock()
	clear(s.refs)
	s.mu.Unlock()
}
