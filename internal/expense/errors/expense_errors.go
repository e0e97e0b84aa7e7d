package expenseerrors

import (
	"net/http"

	"github.com/vibhu2208/hrms-backend-sub002/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidAmount = apperror.New(
		apperror.CodeInvalidInput,
		"amount must be greater than zero",
		http.StatusBadRequest,
	)
	ErrEmployeeNotInCompany = apperror.New(
		apperror.CodeInvalidInput,
		"employee does not belong to this company",
		http.StatusBadRequest,
	)
	ErrExpenseNotFound = apperror.New(
		apperror.CodeNotFound,
		"expense not found",
		http.StatusNotFound,
	)
	ErrExpenseNotDraft = apperror.New(
		apperror.CodeInvalidState,
		"only draft expenses can be changed",
		http.StatusConflict,
	)
	ErrInvalidStatusTransition = apperror.New(
		apperror.CodeInvalidState,
		"invalid expense status transition",
		http.StatusConflict,
	)
)
