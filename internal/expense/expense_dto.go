package expense

import "github.com/vibhu2208/hrms-backend-sub002/internal/approval"

type CreateExpenseRequest struct {
	EmployeeID  string  `json:"employee_id" binding:"required,uuid"`
	Category    string  `json:"category" binding:"required,oneof=TRAVEL MEALS ACCOMMODATION SUPPLIES OTHER"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"omitempty,len=3"`
	ExpenseDate string  `json:"expense_date" binding:"required"`
	Description string  `json:"description"`
	ReceiptURL  string  `json:"receipt_url" binding:"omitempty,url"`
}

type UpdateExpenseRequest struct {
	Category    string  `json:"category" binding:"required,oneof=TRAVEL MEALS ACCOMMODATION SUPPLIES OTHER"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"omitempty,len=3"`
	ExpenseDate string  `json:"expense_date" binding:"required"`
	Description string  `json:"description"`
	ReceiptURL  string  `json:"receipt_url" binding:"omitempty,url"`
}

type ExpenseResponse struct {
	ID          string  `json:"id"`
	CompanyID   string  `json:"company_id"`
	EmployeeID  string  `json:"employee_id"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	ExpenseDate string  `json:"expense_date"`
	Description string  `json:"description"`
	ReceiptURL  string  `json:"receipt_url,omitempty"`
	Status      string  `json:"status"`
	CreatedBy   string  `json:"created_by"`

	CurrentLevel int                `json:"current_level,omitempty"`
	SLADeadline  *string            `json:"sla_deadline,omitempty"`
	IsEscalated  bool               `json:"is_escalated"`
	Approval     *approval.Instance `json:"approval,omitempty"`

	FinalizedAt *string `json:"finalized_at,omitempty"`
}
