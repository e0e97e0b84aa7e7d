package approval

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	LevelStatusPending  = "pending"
	LevelStatusApproved = "approved"
	LevelStatusRejected = "rejected"
	LevelStatusDelegate = "delegated"
)

// Status entity bisnis selama siklus approval, mengikuti konvensi status
// modul leave yang lama.
const (
	StatusDraft    = "DRAFT"
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
	StatusCanceled = "CANCELLED"
)

// LevelState adalah state runtime satu level di dalam instance.
type LevelState struct {
	Level         int          `json:"level"`
	ApproverType  ApproverType `json:"approver_type"`
	ApproverID    string       `json:"approver_id"`
	ApproverEmail string       `json:"approver_email,omitempty"`
	ApproverName  string       `json:"approver_name,omitempty"`
	// DelegatedFrom terisi kalau approver hasil substitusi delegasi.
	DelegatedFrom string `json:"delegated_from,omitempty"`

	IsRequired  bool `json:"is_required"`
	CanDelegate bool `json:"can_delegate"`

	Status     string     `json:"status"`
	Comments   string     `json:"comments,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`

	SLAMinutes  int        `json:"sla_minutes"`
	SLADeadline time.Time  `json:"sla_deadline"`
	IsEscalated bool       `json:"is_escalated"`
	EscalatedAt *time.Time `json:"escalated_at,omitempty"`
}

// Instance adalah rekaman approval runtime yang di-embed di entity bisnis.
// Dibuat sekali oleh builder, setelah itu hanya dimutasi oleh processor dan
// escalation monitor.
type Instance struct {
	CurrentLevel int          `json:"current_level"`
	Levels       []LevelState `json:"approval_levels"`

	SLADeadline      time.Time  `json:"sla_deadline"`
	IsEscalated      bool       `json:"is_escalated"`
	EscalatedAt      *time.Time `json:"escalated_at,omitempty"`
	EscalationReason string     `json:"escalation_reason,omitempty"`

	Escalation EscalationRules `json:"escalation_rules"`

	WorkflowSource   string    `json:"workflow_source"`
	WorkflowSourceID uuid.UUID `json:"workflow_source_id"`
	CreatedAt        time.Time `json:"created_at"`
}

func (i Instance) Value() (driver.Value, error) {
	return json.Marshal(i)
}

func (i *Instance) Scan(value any) error {
	return scanJSONB(value, i)
}

// LevelAt mengembalikan pointer ke level bernomor n, nil kalau tidak ada.
func (i *Instance) LevelAt(n int) *LevelState {
	for idx := range i.Levels {
		if i.Levels[idx].Level == n {
			return &i.Levels[idx]
		}
	}
	return nil
}

// ActiveLevel adalah level yang sedang menunggu keputusan.
func (i *Instance) ActiveLevel() *LevelState {
	lvl := i.LevelAt(i.CurrentLevel)
	if lvl == nil || lvl.Status != LevelStatusPending {
		return nil
	}
	return lvl
}

// IsApproverFor melaporkan apakah actor adalah approver sah untuk level lvl.
func (l *LevelState) IsApproverFor(actorID, actorEmail string) bool {
	if actorID != "" && l.ApproverID == actorID {
		return true
	}
	if actorEmail != "" && l.ApproverEmail != "" && strings.EqualFold(l.ApproverEmail, actorEmail) {
		return true
	}
	return false
}

// HasRemainingRequired melaporkan apakah masih ada level required setelah
// level bernomor after.
func (i *Instance) HasRemainingRequired(after int) bool {
	for _, lvl := range i.Levels {
		if lvl.Level > after && lvl.IsRequired {
			return true
		}
	}
	return false
}

// NextLevelAfter mengembalikan level berikutnya setelah n, nil kalau n terakhir.
func (i *Instance) NextLevelAfter(n int) *LevelState {
	var next *LevelState
	for idx := range i.Levels {
		if i.Levels[idx].Level > n && (next == nil || i.Levels[idx].Level < next.Level) {
			next = &i.Levels[idx]
		}
	}
	return next
}

// CurrentDeadline adalah sla deadline milik level aktif; dipakai sebagai
// kolom query oleh escalation monitor. Nil kalau eskalasi dimatikan atau
// level aktif tidak punya deadline, supaya barisnya tidak ikut tersapu.
func (i *Instance) CurrentDeadline() *time.Time {
	if !i.Escalation.Enabled {
		return nil
	}
	lvl := i.LevelAt(i.CurrentLevel)
	if lvl == nil || lvl.SLADeadline.IsZero() {
		return nil
	}
	d := lvl.SLADeadline
	return &d
}
