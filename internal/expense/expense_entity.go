package expense

import (
	"time"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Expense struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index:idx_expenses_company_status"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;index"`

	Category    string    `gorm:"type:varchar(30);not null;default:'OTHER'"`
	Amount      float64   `gorm:"type:numeric(14,2);not null"`
	Currency    string    `gorm:"type:varchar(3);not null;default:'IDR'"`
	ExpenseDate time.Time `gorm:"type:date;not null"`
	Description string    `gorm:"type:text"`
	ReceiptURL  string    `gorm:"type:text"`

	Status    string    `gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_expenses_company_status"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`

	// Approval adalah state runtime engine (jsonb), kolom di bawahnya mirror
	// untuk query.
	Approval      *approval.Instance `gorm:"type:jsonb"`
	CurrentLevel  int                `gorm:"type:int;not null;default:0"`
	SLADeadline   *time.Time
	LevelDeadline *time.Time `gorm:"index:idx_expenses_escalation"`
	IsEscalated   bool       `gorm:"not null;default:false;index:idx_expenses_escalation"`

	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinalizedAt *time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index:idx_expenses_deleted_at"`
}

func (e *Expense) ApprovalEntityID() uuid.UUID             { return e.ID }
func (e *Expense) ApprovalCompanyID() uuid.UUID            { return e.CompanyID }
func (e *Expense) ApprovalEntityType() approval.EntityType { return approval.EntityTypeExpense }
func (e *Expense) RequesterID() uuid.UUID                  { return e.EmployeeID }
func (e *Expense) ApprovalState() *approval.Instance       { return e.Approval }
func (e *Expense) EntityStatus() string                    { return e.Status }
func (e *Expense) SetEntityStatus(status string)           { e.Status = status }

func (e *Expense) syncApprovalColumns() {
	if e.Approval == nil {
		e.CurrentLevel = 0
		e.SLADeadline = nil
		e.LevelDeadline = nil
		e.IsEscalated = false
		return
	}
	e.CurrentLevel = e.Approval.CurrentLevel
	e.SLADeadline = nil
	if deadline := e.Approval.SLADeadline; !deadline.IsZero() {
		e.SLADeadline = &deadline
	}
	e.LevelDeadline = e.Approval.CurrentDeadline()
	e.IsEscalated = e.Approval.IsEscalated
}
