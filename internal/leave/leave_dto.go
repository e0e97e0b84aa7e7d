package leave

import "github.com/vibhu2208/hrms-backend-sub002/internal/approval"

type CreateLeaveRequest struct {
	EmployeeID string `json:"employee_id" binding:"required,uuid"`
	LeaveType  string `json:"leave_type" binding:"required,oneof=ANNUAL SICK UNPAID"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
	Reason     string `json:"reason"`
}

type UpdateLeaveRequest struct {
	LeaveType string `json:"leave_type" binding:"required,oneof=ANNUAL SICK UNPAID"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Reason    string `json:"reason"`
}

type LeaveResponse struct {
	ID         string `json:"id"`
	CompanyID  string `json:"company_id"`
	EmployeeID string `json:"employee_id"`
	LeaveType  string `json:"leave_type"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	TotalDays  int    `json:"total_days"`
	Reason     string `json:"reason"`
	Status     string `json:"status"`
	CreatedBy  string `json:"created_by"`

	CurrentLevel int                `json:"current_level,omitempty"`
	SLADeadline  *string            `json:"sla_deadline,omitempty"`
	IsEscalated  bool               `json:"is_escalated"`
	Approval     *approval.Instance `json:"approval,omitempty"`

	FinalizedAt *string `json:"finalized_at,omitempty"`
}
