// Package feed implements the client half of the gateway: a websocket
// subscription delivering newly inserted notifications for one user in
// insertion order, and an API-backed store for clients that do not share
// the daemon's database.
package feed

import "github.com/ivoirehub/hubsync/internal/notify"

// Event types exchanged on the change-feed websocket.
const (
	// EventConnected is sent by the gateway once the subscription is
	// established.
	EventConnected = "connected"

	// EventInsert carries a newly inserted notification.
	EventInsert = "insert"
)

// Event is a single change-feed websocket frame.
type Event struct {
	// Type discriminates the frame.
	Type string `json:"type"`

	// Notification is set for EventInsert frames.
	Notification *notify.Notification `json:"notification,omitempty"`
}
