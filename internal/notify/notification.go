// Package notify keeps a per-user notification list synchronized with the
// Ivoire Hub backend: an initial bulk read, a realtime change feed, and
// optimistic mark-as-read mutations reconciled against the store.
package notify

import "time"

// Type classifies a notification. The values mirror the portal's
// notification taxonomy and are stored as-is in the backend.
type Type string

const (
	// TypeStatusChange signals a change in a startup's label status.
	TypeStatusChange Type = "status_change"

	// TypeDocumentRequest asks a startup to provide a document.
	TypeDocumentRequest Type = "document_request"

	// TypeNewEvent announces a new event on the portal.
	TypeNewEvent Type = "new_event"

	// TypeNewOpportunity announces a funding or program opportunity.
	TypeNewOpportunity Type = "new_opportunity"

	// TypeNewResource announces a new resource publication.
	TypeNewResource Type = "new_resource"

	// TypeComment signals a comment on one of the user's submissions.
	TypeComment Type = "comment"

	// TypeRenewalReminder reminds a startup that its label is up for
	// renewal.
	TypeRenewalReminder Type = "renewal_reminder"

	// TypeQuorumReached signals that a labelling committee vote reached
	// quorum.
	TypeQuorumReached Type = "quorum_reached"

	// TypeDecisionApplied signals that a committee decision was applied.
	TypeDecisionApplied Type = "decision_applied"
)

// Valid reports whether t is one of the known notification types.
func (t Type) Valid() bool {
	switch t {
	case TypeStatusChange, TypeDocumentRequest, TypeNewEvent,
		TypeNewOpportunity, TypeNewResource, TypeComment,
		TypeRenewalReminder, TypeQuorumReached, TypeDecisionApplied:

		return true
	}
	return false
}

// Notification is a single per-user notification record. Records are
// created server-side and only ever mutated locally through mark-as-read.
type Notification struct {
	// ID uniquely identifies the notification.
	ID string `json:"id"`

	// UserID scopes the notification to one portal identity.
	UserID string `json:"user_id"`

	// Type classifies the notification.
	Type Type `json:"type"`

	// Title is the short headline shown in the notification list.
	Title string `json:"title"`

	// Message is the full notification text.
	Message string `json:"message"`

	// Link is an optional in-portal destination, empty when absent.
	Link string `json:"link,omitempty"`

	// IsRead reports whether the user has read the notification.
	IsRead bool `json:"is_read"`

	// CreatedAt is the server-side creation time.
	CreatedAt time.Time `json:"created_at"`

	// Metadata carries opaque key-value context (e.g. the startup or
	// event the notification refers to).
	Metadata map[string]string `json:"metadata,omitempty"`
}
