package employeeerrors

import (
	"github.com/vibhu2208/hrms-backend-sub002/internal/shared/apperror"
	"net/http"
)

var (
	ErrEmployeeNotFound = apperror.New(
		apperror.CodeNotFound,
		"Employee not found",
		http.StatusNotFound,
	)
	ErrEmployeeAlreadyExists = apperror.New(
		apperror.CodeConflict,
		"Employee with the same email already exists",
		http.StatusConflict,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid employee ID",
		http.StatusBadRequest,
	)
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid company ID",
		http.StatusBadRequest,
	)
	ErrInvalidHireDate = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid hire_date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidManager = apperror.New(
		apperror.CodeInvalidInput,
		"Manager must be an active employee of the same company",
		http.StatusBadRequest,
	)
	ErrMissingRequiredFields = apperror.New(
		apperror.CodeInvalidInput,
		"Missing required fields",
		http.StatusBadRequest,
	)
)
