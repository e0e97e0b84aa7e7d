package leave

import (
	"time"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Leave struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index:idx_leaves_company_status"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;index:idx_leaves_employee_dates"`

	LeaveType string    `gorm:"type:varchar(30);not null;default:'ANNUAL'"`
	StartDate time.Time `gorm:"type:date;not null;index:idx_leaves_employee_dates"`
	EndDate   time.Time `gorm:"type:date;not null;index:idx_leaves_employee_dates"`
	TotalDays int       `gorm:"type:int;not null;default:1"`
	Reason    string    `gorm:"type:text"`

	Status    string    `gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_leaves_company_status"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`

	// Approval adalah state runtime engine (jsonb). Kolom di bawahnya mirror
	// untuk query; sumber kebenaran tetap jsonb.
	Approval      *approval.Instance `gorm:"type:jsonb"`
	CurrentLevel  int                `gorm:"type:int;not null;default:0"`
	SLADeadline   *time.Time
	LevelDeadline *time.Time `gorm:"index:idx_leaves_escalation"`
	IsEscalated   bool       `gorm:"not null;default:false;index:idx_leaves_escalation"`

	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinalizedAt *time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index:idx_leaves_deleted_at"`
}

func (l *Leave) ApprovalEntityID() uuid.UUID              { return l.ID }
func (l *Leave) ApprovalCompanyID() uuid.UUID             { return l.CompanyID }
func (l *Leave) ApprovalEntityType() approval.EntityType  { return approval.EntityTypeLeave }
func (l *Leave) RequesterID() uuid.UUID                   { return l.EmployeeID }
func (l *Leave) ApprovalState() *approval.Instance        { return l.Approval }
func (l *Leave) EntityStatus() string                     { return l.Status }
func (l *Leave) SetEntityStatus(status string)            { l.Status = status }

// syncApprovalColumns menyalin field query-able dari jsonb ke kolom mirror.
func (l *Leave) syncApprovalColumns() {
	if l.Approval == nil {
		l.CurrentLevel = 0
		l.SLADeadline = nil
		l.LevelDeadline = nil
		l.IsEscalated = false
		return
	}
	l.CurrentLevel = l.Approval.CurrentLevel
	l.SLADeadline = nil
	if deadline := l.Approval.SLADeadline; !deadline.IsZero() {
		l.SLADeadline = &deadline
	}
	l.LevelDeadline = l.Approval.CurrentDeadline()
	l.IsEscalated = l.Approval.IsEscalated
}
