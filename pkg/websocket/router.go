package websocket

import (
	"slices"
	"sync"
)

// Router delivers frames to consumers based on channel.
type Router struct {
	mu       sync.RWMutex
	channels map[string][]*Consumer
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		channels: make(map[string][]*Consumer),
	}
}

// AddConsumer registers a consumer for a channel.
func (r *Router) AddConsumer(channel string, consumer *Consumer) {
	if r == nil || consumer == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.channels[channel]
	for _, existing := range list {
		if existing == consumer {
			return
		}
	}
	r.channels[channel] = append(list, consumer)
}

// RemoveConsumer unregisters a consumer from a channel.
// Returns true when the channel has no consumers left.
func (r *Router) RemoveConsumer(channel string, consumer *Consumer) bool {
	if r == nil || consumer == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.channels[channel]
	for i, existing := range list {
		if existing == consumer {
			list[i] = list[len(list)-1]
			list[len(list)-1] = nil
			list = list[:len(list)-1]
			if len(list) == 0 {
				delete(r.channels, channel)
				return true
			}
			r.channels[channel] = list
			return false
		}
	}
	return len(list) == 0
}

// Route dispatches a frame to all consumers of its channel.
// Returns false when nobody listens on the channel.
func (r *Router) Route(frame *Frame) bool {
	if r == nil || frame == nil {
		return false
	}
	r.mu.RLock()
	consumers := slices.Clone(r.channels[frame.Channel])
	r.mu.RUnlock()
	if len(consumers) == 0 {
		return false
	}
	for _, consumer := range consumers {
		consumer.enqueue(frame)
	}
	return true
}

// Close closes every consumer and forgets them.
func (r *Router) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	channels := r.channels
	r.channels = make(map[string][]*Consumer)
	r.mu.Unlock()
	for _, list := range channels {
		for _, consumer := range list {
			consumer.Close()
		}
	}
}
