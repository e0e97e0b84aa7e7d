package approval

import "time"

type LevelRequest struct {
	Level         int    `json:"level" binding:"required,min=1"`
	ApproverType  string `json:"approver_type" binding:"required"`
	ApproverID    string `json:"approver_id"`
	ApproverEmail string `json:"approver_email"`
	ApproverRole  string `json:"approver_role"`
	IsRequired    *bool  `json:"is_required"`
	CanDelegate   *bool  `json:"can_delegate"`
	SLAMinutes    int    `json:"sla_minutes"`
}

type EscalationRulesRequest struct {
	Enabled                 bool   `json:"enabled"`
	EscalationAfterMinutes  int    `json:"escalation_after_minutes"`
	EscalateTo              string `json:"escalate_to"`
	EscalateToEmail         string `json:"escalate_to_email"`
	AutoApproveAfterMinutes int    `json:"auto_approve_after_minutes"`
}

type CreateWorkflowRequest struct {
	EntityType    string                 `json:"entity_type" binding:"required"`
	RequesterRole string                 `json:"requester_role"`
	Name          string                 `json:"name" binding:"required"`
	Levels        []LevelRequest         `json:"levels" binding:"required,min=1,dive"`
	SLAMinutes    int                    `json:"sla_minutes"`
	Escalation    EscalationRulesRequest `json:"escalation_rules"`
	IsDefault     bool                   `json:"is_default"`
	Priority      int                    `json:"priority"`
}

type UpdateWorkflowRequest struct {
	RequesterRole string                 `json:"requester_role"`
	Name          string                 `json:"name" binding:"required"`
	Levels        []LevelRequest         `json:"levels" binding:"required,min=1,dive"`
	SLAMinutes    int                    `json:"sla_minutes"`
	Escalation    EscalationRulesRequest `json:"escalation_rules"`
	IsDefault     bool                   `json:"is_default"`
	Priority      int                    `json:"priority"`
	IsActive      *bool                  `json:"is_active"`
}

type WorkflowResponse struct {
	ID            string          `json:"id"`
	CompanyID     string          `json:"company_id"`
	EntityType    string          `json:"entity_type"`
	RequesterRole string          `json:"requester_role,omitempty"`
	Name          string          `json:"name"`
	Levels        LevelList       `json:"levels"`
	SLAMinutes    int             `json:"sla_minutes"`
	Escalation    EscalationRules `json:"escalation_rules"`
	IsDefault     bool            `json:"is_default"`
	Priority      int             `json:"priority"`
	IsActive      bool            `json:"is_active"`
}

type MatrixConditionRequest struct {
	LeaveType    string   `json:"leave_type"`
	AmountMin    *float64 `json:"amount_min"`
	AmountMax    *float64 `json:"amount_max"`
	DaysMin      *int     `json:"days_min"`
	DaysMax      *int     `json:"days_max"`
	DepartmentID string   `json:"department_id"`
	Designation  string   `json:"designation"`
}

type CreateMatrixRequest struct {
	EntityType        string                 `json:"entity_type" binding:"required"`
	Name              string                 `json:"name" binding:"required"`
	Condition         MatrixConditionRequest `json:"condition"`
	RequiredApprovers []LevelRequest         `json:"required_approvers" binding:"required,min=1,dive"`
	SLAMinutes        int                    `json:"sla_minutes"`
	Escalation        EscalationRulesRequest `json:"escalation_rules"`
	Priority          int                    `json:"priority"`
}

type UpdateMatrixRequest struct {
	Name              string                 `json:"name" binding:"required"`
	Condition         MatrixConditionRequest `json:"condition"`
	RequiredApprovers []LevelRequest         `json:"required_approvers" binding:"required,min=1,dive"`
	SLAMinutes        int                    `json:"sla_minutes"`
	Escalation        EscalationRulesRequest `json:"escalation_rules"`
	Priority          int                    `json:"priority"`
	IsActive          *bool                  `json:"is_active"`
}

type MatrixResponse struct {
	ID                string          `json:"id"`
	CompanyID         string          `json:"company_id"`
	EntityType        string          `json:"entity_type"`
	Name              string          `json:"name"`
	Condition         MatrixCondition `json:"condition"`
	RequiredApprovers LevelList       `json:"required_approvers"`
	SLAMinutes        int             `json:"sla_minutes"`
	Escalation        EscalationRules `json:"escalation_rules"`
	Priority          int             `json:"priority"`
	IsActive          bool            `json:"is_active"`
}

type CreateDelegationRequest struct {
	DelegatorID string   `json:"delegator_id" binding:"required,uuid"`
	DelegateID  string   `json:"delegate_id" binding:"required,uuid"`
	EntityTypes []string `json:"entity_types"`
	StartDate   string   `json:"start_date" binding:"required"`
	EndDate     string   `json:"end_date" binding:"required"`
	Reason      string   `json:"reason"`
}

type UpdateDelegationRequest struct {
	EntityTypes []string `json:"entity_types"`
	StartDate   string   `json:"start_date" binding:"required"`
	EndDate     string   `json:"end_date" binding:"required"`
	Reason      string   `json:"reason"`
	IsActive    *bool    `json:"is_active"`
}

type DelegationResponse struct {
	ID             string   `json:"id"`
	CompanyID      string   `json:"company_id"`
	DelegatorID    string   `json:"delegator_id"`
	DelegatorEmail string   `json:"delegator_email,omitempty"`
	DelegateID     string   `json:"delegate_id"`
	DelegateEmail  string   `json:"delegate_email,omitempty"`
	EntityTypes    []string `json:"entity_types"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	Reason         string   `json:"reason,omitempty"`
	IsActive       bool     `json:"is_active"`
}

// DecisionRequest adalah body endpoint keputusan milik modul bisnis
// (mis. POST /leaves/:id/decision).
type DecisionRequest struct {
	Level    int    `json:"level" binding:"required,min=1"`
	Action   string `json:"action" binding:"required,oneof=approve reject"`
	Comments string `json:"comments"`
}

// --- mapping helpers ---

func levelsFromRequest(reqs []LevelRequest) LevelList {
	levels := make(LevelList, len(reqs))
	for i, lr := range reqs {
		isRequired := true
		if lr.IsRequired != nil {
			isRequired = *lr.IsRequired
		}
		canDelegate := true
		if lr.CanDelegate != nil {
			canDelegate = *lr.CanDelegate
		}
		levels[i] = Level{
			Level:         lr.Level,
			ApproverType:  ApproverType(lr.ApproverType),
			ApproverID:    lr.ApproverID,
			ApproverEmail: lr.ApproverEmail,
			ApproverRole:  lr.ApproverRole,
			IsRequired:    isRequired,
			CanDelegate:   canDelegate,
			SLAMinutes:    lr.SLAMinutes,
		}
	}
	return levels
}

func escalationFromRequest(req EscalationRulesRequest) EscalationRules {
	return EscalationRules{
		Enabled:                 req.Enabled,
		EscalationAfterMinutes:  req.EscalationAfterMinutes,
		EscalateTo:              EscalationTarget(req.EscalateTo),
		EscalateToEmail:         req.EscalateToEmail,
		AutoApproveAfterMinutes: req.AutoApproveAfterMinutes,
	}
}

func conditionFromRequest(req MatrixConditionRequest) MatrixCondition {
	return MatrixCondition{
		LeaveType:    req.LeaveType,
		AmountMin:    req.AmountMin,
		AmountMax:    req.AmountMax,
		DaysMin:      req.DaysMin,
		DaysMax:      req.DaysMax,
		DepartmentID: req.DepartmentID,
		Designation:  req.Designation,
	}
}

func mapWorkflowResponse(w WorkflowDefinition) WorkflowResponse {
	return WorkflowResponse{
		ID:            w.ID.String(),
		CompanyID:     w.CompanyID.String(),
		EntityType:    string(w.EntityType),
		RequesterRole: w.RequesterRole,
		Name:          w.Name,
		Levels:        w.Levels,
		SLAMinutes:    w.SLAMinutes,
		Escalation:    w.Escalation,
		IsDefault:     w.IsDefault,
		Priority:      w.Priority,
		IsActive:      w.IsActive,
	}
}

func mapMatrixResponse(m ApprovalMatrix) MatrixResponse {
	return MatrixResponse{
		ID:                m.ID.String(),
		CompanyID:         m.CompanyID.String(),
		EntityType:        string(m.EntityType),
		Name:              m.Name,
		Condition:         m.Condition,
		RequiredApprovers: m.RequiredApprovers,
		SLAMinutes:        m.SLAMinutes,
		Escalation:        m.Escalation,
		Priority:          m.Priority,
		IsActive:          m.IsActive,
	}
}

func mapDelegationResponse(d ApprovalDelegation) DelegationResponse {
	types := make([]string, len(d.EntityTypes))
	for i, t := range d.EntityTypes {
		types[i] = string(t)
	}
	resp := DelegationResponse{
		ID:             d.ID.String(),
		CompanyID:      d.CompanyID.String(),
		DelegatorID:    d.DelegatorID.String(),
		DelegatorEmail: d.DelegatorEmail,
		DelegateID:     d.DelegateID.String(),
		DelegateEmail:  d.DelegateEmail,
		EntityTypes:    types,
		StartDate:      d.StartDate.Format("2006-01-02"),
		EndDate:        d.EndDate.Format("2006-01-02"),
		Reason:         d.Reason,
		IsActive:       d.IsActive,
	}
	return resp
}

func parsePolicyDate(v string) (time.Time, error) {
	return time.Parse("2006-01-02", v)
}
