package employee

type CreateEmployeeRequest struct {
	FullName     string `json:"full_name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	DepartmentID string `json:"department_id" binding:"omitempty,uuid"`
	ManagerID    string `json:"manager_id" binding:"omitempty,uuid"`
	Role         string `json:"role" binding:"required"`
	Designation  string `json:"designation"`
	HireDate     string `json:"hire_date" binding:"required"`
}

type UpdateEmployeeRequest struct {
	FullName     string `json:"full_name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	DepartmentID string `json:"department_id" binding:"omitempty,uuid"`
	ManagerID    string `json:"manager_id" binding:"omitempty,uuid"`
	Role         string `json:"role" binding:"required"`
	Designation  string `json:"designation"`
	HireDate     string `json:"hire_date" binding:"required"`
	IsActive     *bool  `json:"is_active"`
}

type EmployeeResponse struct {
	ID           string `json:"id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	CompanyID    string `json:"company_id"`
	DepartmentID string `json:"department_id,omitempty"`
	ManagerID    string `json:"manager_id,omitempty"`
	Role         string `json:"role"`
	Designation  string `json:"designation,omitempty"`
	HireDate     string `json:"hire_date"`
	IsActive     bool   `json:"is_active"`
}
