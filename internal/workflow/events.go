package workflow

import "github.com/google/uuid"

// EventType identifies a workflow transition the realtime layer may relay.
type EventType string

const (
	EventBidPlaced           EventType = "bid_placed"
	EventApplicationApproved EventType = "application_approved"
	EventApplicationRejected EventType = "application_rejected"
	EventProjectSubmitted    EventType = "project_submitted"
	EventSubmissionApproved  EventType = "submission_approved"
	EventSubmissionRejected  EventType = "submission_rejected"
)

// Event is emitted after a transition commits. It never fires for a rolled
// back transition.
type Event struct {
	Type          EventType  `json:"type"`
	ProjectID     uuid.UUID  `json:"project_id"`
	ApplicationID *uuid.UUID `json:"application_id,omitempty"`
	ClientID      uuid.UUID  `json:"client_id"`
	FreelancerID  uuid.UUID  `json:"freelancer_id"`
}

// Notifier receives committed workflow events. Implementations must not
// block; the engine calls Notify synchronously after commit.
type Notifier interface {
	Notify(Event)
}
