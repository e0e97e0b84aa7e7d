package events

import "time"

const RequestFinalizedTopic = "hr.approval.request.finalized.v1"

const (
	EventRequestApproved = "request.approved"
	EventRequestRejected = "request.rejected"
)

type RequestFinalizedEvent struct {
	EventType  string    `json:"event_type"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	CompanyID  string    `json:"company_id"`
	DecidedBy  string    `json:"decided_by"`
	OccurredAt time.Time `json:"occurred_at"`
}
