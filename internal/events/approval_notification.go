package events

import "time"

const ApprovalNotificationTopic = "hr.approval.notification.v1"

const (
	EventApprovalRequested = "approval.requested"
	EventApprovalAdvanced  = "approval.advanced"
	EventApprovalApproved  = "approval.approved"
	EventApprovalRejected  = "approval.rejected"
	EventApprovalEscalated = "approval.escalated"
)

type ApprovalNotificationEvent struct {
	EventType      string    `json:"event_type"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	CompanyID      string    `json:"company_id"`
	RecipientID    string    `json:"recipient_id,omitempty"`
	RecipientEmail string    `json:"recipient_email"`
	Level          int       `json:"level,omitempty"`
	LevelInfo      string    `json:"level_info,omitempty"`
	Message        string    `json:"message,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
