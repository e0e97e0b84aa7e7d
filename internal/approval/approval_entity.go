package approval

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EntityType string

const (
	EntityTypeLeave         EntityType = "leave"
	EntityTypeExpense       EntityType = "expense"
	EntityTypeRosterChange  EntityType = "roster_change"
	EntityTypePayroll       EntityType = "payroll"
	EntityTypeProject       EntityType = "project"
	EntityTypeEncashment    EntityType = "encashment"
	EntityTypeProfileUpdate EntityType = "profile_update"
	EntityTypeOnboarding    EntityType = "onboarding"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeLeave, EntityTypeExpense, EntityTypeRosterChange, EntityTypePayroll,
		EntityTypeProject, EntityTypeEncashment, EntityTypeProfileUpdate, EntityTypeOnboarding:
		return true
	}
	return false
}

// ApproverType adalah himpunan tertutup; setiap varian punya resolver sendiri
// di approver_resolver.go.
type ApproverType string

const (
	ApproverReportingManager ApproverType = "reporting_manager"
	ApproverDepartmentHead   ApproverType = "department_head"
	ApproverHR               ApproverType = "hr"
	ApproverAdmin            ApproverType = "admin"
	ApproverSpecificUser     ApproverType = "specific_user"
	ApproverRoleBased        ApproverType = "role_based"
)

func (t ApproverType) Valid() bool {
	switch t {
	case ApproverReportingManager, ApproverDepartmentHead, ApproverHR,
		ApproverAdmin, ApproverSpecificUser, ApproverRoleBased:
		return true
	}
	return false
}

type EscalationTarget string

const (
	EscalateNextLevel    EscalationTarget = "next_level"
	EscalateHR           EscalationTarget = "hr"
	EscalateAdmin        EscalationTarget = "admin"
	EscalateSpecificUser EscalationTarget = "specific_user"
)

func (t EscalationTarget) Valid() bool {
	switch t {
	case EscalateNextLevel, EscalateHR, EscalateAdmin, EscalateSpecificUser:
		return true
	}
	return false
}

// Level adalah satu anak tangga approval, bentuk kanonik yang dipakai baik
// oleh workflow definition maupun requiredApprovers milik matrix.
type Level struct {
	Level         int          `json:"level"`
	ApproverType  ApproverType `json:"approver_type"`
	ApproverID    string       `json:"approver_id,omitempty"`
	ApproverEmail string       `json:"approver_email,omitempty"`
	ApproverRole  string       `json:"approver_role,omitempty"`
	IsRequired    bool         `json:"is_required"`
	CanDelegate   bool         `json:"can_delegate"`
	SLAMinutes    int          `json:"sla_minutes"`
}

type LevelList []Level

func (l LevelList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *LevelList) Scan(value any) error {
	return scanJSONB(value, l)
}

// ValidateLevels memastikan penomoran level rapat mulai dari 1 dan setiap
// approver type dikenal engine.
func ValidateLevels(levels LevelList) error {
	if len(levels) == 0 {
		return errors.New("at least one level is required")
	}
	for i, lvl := range levels {
		if lvl.Level != i+1 {
			return fmt.Errorf("levels must be contiguous starting at 1, got %d at position %d", lvl.Level, i)
		}
		if !lvl.ApproverType.Valid() {
			return fmt.Errorf("unknown approver type %q at level %d", lvl.ApproverType, lvl.Level)
		}
		if lvl.ApproverType == ApproverSpecificUser && lvl.ApproverID == "" && lvl.ApproverEmail == "" {
			return fmt.Errorf("specific_user level %d needs approver_id or approver_email", lvl.Level)
		}
		if lvl.ApproverType == ApproverRoleBased && lvl.ApproverRole == "" {
			return fmt.Errorf("role_based level %d needs approver_role", lvl.Level)
		}
	}
	return nil
}

type EscalationRules struct {
	Enabled                bool             `json:"enabled"`
	EscalationAfterMinutes int              `json:"escalation_after_minutes,omitempty"`
	EscalateTo             EscalationTarget `json:"escalate_to,omitempty"`
	EscalateToEmail        string           `json:"escalate_to_email,omitempty"`
	// AutoApproveAfterMinutes disimpan tapi belum pernah dieksekusi engine;
	// perilakunya menunggu keputusan produk.
	AutoApproveAfterMinutes int `json:"auto_approve_after_minutes,omitempty"`
}

func (r EscalationRules) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *EscalationRules) Scan(value any) error {
	return scanJSONB(value, r)
}

type WorkflowDefinition struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_workflow_defs_company_entity"`
	EntityType    EntityType `gorm:"type:varchar(30);not null;index:idx_workflow_defs_company_entity"`
	RequesterRole string     `gorm:"type:varchar(50)"`
	Name          string     `gorm:"type:varchar(120);not null"`

	Levels     LevelList       `gorm:"type:jsonb;not null"`
	SLAMinutes int             `gorm:"type:int;not null;default:0"`
	Escalation EscalationRules `gorm:"type:jsonb"`

	IsDefault bool `gorm:"not null;default:false"`
	Priority  int  `gorm:"type:int;not null;default:0"`
	IsActive  bool `gorm:"not null;default:true"`

	CreatedBy uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index:idx_workflow_defs_deleted_at"`
}

// OverallSLAMinutes adalah budget keseluruhan: sla workflow, atau jumlah sla
// per level kalau workflow tidak menetapkan.
func (w *WorkflowDefinition) OverallSLAMinutes() int {
	if w.SLAMinutes > 0 {
		return w.SLAMinutes
	}
	total := 0
	for _, lvl := range w.Levels {
		total += lvl.SLAMinutes
	}
	return total
}

// MatrixCondition adalah predikat matrix. Field yang kosong berarti wildcard;
// semua field yang terisi harus cocok (AND).
type MatrixCondition struct {
	LeaveType    string   `json:"leave_type,omitempty"`
	AmountMin    *float64 `json:"amount_min,omitempty"`
	AmountMax    *float64 `json:"amount_max,omitempty"`
	DaysMin      *int     `json:"days_min,omitempty"`
	DaysMax      *int     `json:"days_max,omitempty"`
	DepartmentID string   `json:"department_id,omitempty"`
	Designation  string   `json:"designation,omitempty"`
}

func (c MatrixCondition) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *MatrixCondition) Scan(value any) error {
	return scanJSONB(value, c)
}

// RequestAttributes adalah atribut kontekstual sebuah pengajuan yang dipakai
// untuk pencocokan matrix dan pemilihan workflow.
type RequestAttributes struct {
	LeaveType     string
	Amount        *float64
	NumberOfDays  *int
	DepartmentID  string
	Designation   string
	RequesterRole string
}

func (c MatrixCondition) Matches(attrs RequestAttributes) bool {
	if c.LeaveType != "" && c.LeaveType != attrs.LeaveType {
		return false
	}
	if c.AmountMin != nil || c.AmountMax != nil {
		if attrs.Amount == nil {
			return false
		}
		if c.AmountMin != nil && *attrs.Amount < *c.AmountMin {
			return false
		}
		if c.AmountMax != nil && *attrs.Amount > *c.AmountMax {
			return false
		}
	}
	if c.DaysMin != nil || c.DaysMax != nil {
		if attrs.NumberOfDays == nil {
			return false
		}
		if c.DaysMin != nil && *attrs.NumberOfDays < *c.DaysMin {
			return false
		}
		if c.DaysMax != nil && *attrs.NumberOfDays > *c.DaysMax {
			return false
		}
	}
	if c.DepartmentID != "" && c.DepartmentID != attrs.DepartmentID {
		return false
	}
	if c.Designation != "" && c.Designation != attrs.Designation {
		return false
	}
	return true
}

// ApprovalMatrix adalah override bersyarat: kalau kondisinya cocok, daftar
// requiredApprovers-nya menang atas workflow definition manapun.
type ApprovalMatrix struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_approval_matrices_company_entity"`
	EntityType EntityType `gorm:"type:varchar(30);not null;index:idx_approval_matrices_company_entity"`
	Name       string     `gorm:"type:varchar(120);not null"`

	Condition         MatrixCondition `gorm:"type:jsonb;not null"`
	RequiredApprovers LevelList       `gorm:"type:jsonb;not null"`
	SLAMinutes        int             `gorm:"type:int;not null;default:0"`
	Escalation        EscalationRules `gorm:"type:jsonb"`

	Priority int  `gorm:"type:int;not null;default:0"`
	IsActive bool `gorm:"not null;default:true"`

	CreatedBy uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index:idx_approval_matrices_deleted_at"`
}

func (m *ApprovalMatrix) OverallSLAMinutes() int {
	if m.SLAMinutes > 0 {
		return m.SLAMinutes
	}
	total := 0
	for _, lvl := range m.RequiredApprovers {
		total += lvl.SLAMinutes
	}
	return total
}

type EntityTypeList []EntityType

func (l EntityTypeList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *EntityTypeList) Scan(value any) error {
	return scanJSONB(value, l)
}

// EntityTypeAll di dalam scope delegasi berarti semua entity type.
const EntityTypeAll EntityType = "all"

// ApprovalDelegation adalah substitusi approver berbatas waktu.
type ApprovalDelegation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index:idx_approval_delegations_company"`

	DelegatorID    uuid.UUID `gorm:"type:uuid;not null;index:idx_approval_delegations_delegator"`
	DelegatorEmail string    `gorm:"type:varchar(255)"`
	DelegateID     uuid.UUID `gorm:"type:uuid;not null"`
	DelegateEmail  string    `gorm:"type:varchar(255)"`

	EntityTypes EntityTypeList `gorm:"type:jsonb"`
	StartDate   time.Time      `gorm:"type:date;not null"`
	EndDate     time.Time      `gorm:"type:date;not null"`
	Reason      string         `gorm:"type:text"`
	IsActive    bool           `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index:idx_approval_delegations_deleted_at"`
}

// InEffect melaporkan apakah delegasi berlaku untuk entity type ini pada saat
// now. Window tanggal inklusif di kedua ujung.
func (d *ApprovalDelegation) InEffect(entityType EntityType, now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if now.Before(d.StartDate) || now.After(d.EndDate.Add(24*time.Hour-time.Nanosecond)) {
		return false
	}
	if len(d.EntityTypes) == 0 {
		return true
	}
	for _, t := range d.EntityTypes {
		if t == EntityTypeAll || t == entityType {
			return true
		}
	}
	return false
}

func scanJSONB(value, dest any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}
