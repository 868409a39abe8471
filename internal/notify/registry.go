package notify

import (
	"sync"
)

// Registry manages subscriptions for realtime notification delivery on the
// gateway side. The websocket layer registers one channel per connected
// client; inserts are fanned out to every channel registered for the
// notification's user.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Notification // userID -> channels
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subscribers: make(map[string][]chan Notification),
	}
}

// Subscribe registers a channel to receive notifications for the given
// user. It returns an unsubscribe function that must be called when done;
// unsubscribing closes the channel.
func (r *Registry) Subscribe(userID string,
	ch chan Notification) func() {

	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers[userID] = append(r.subscribers[userID], ch)

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		channels := r.subscribers[userID]
		for i, c := range channels {
			if c == ch {
				r.subscribers[userID] = append(
					channels[:i], channels[i+1:]...,
				)
				close(ch)
				break
			}
		}

		if len(r.subscribers[userID]) == 0 {
			delete(r.subscribers, userID)
		}
	}
}

// Notify delivers a notification to every subscriber of its user.
// Non-blocking: a subscriber whose channel is full misses the event and
// is expected to resync via a bulk read.
func (r *Registry) Notify(n Notification) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, ch := range r.subscribers[n.UserID] {
		select {
		case ch <- n:
			delivered++
		default:
			// Channel full, skip to avoid blocking.
		}
	}

	return delivered
}

// SubscriberCount returns the number of active subscribers for a user.
func (r *Registry) SubscriberCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subscribers[userID])
}

// TotalSubscribers returns the total number of active subscriptions.
func (r *Registry) TotalSubscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, channels := range r.subscribers {
		total += len(channels)
	}

	return total
}
