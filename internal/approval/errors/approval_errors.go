package approvalerrors

import (
	"net/http"

	"github.com/vibhu2208/hrms-backend-sub002/internal/shared/apperror"
)

var (
	ErrNoApplicableWorkflow = apperror.New(
		apperror.CodeInvalidState,
		"no applicable approval workflow for this request",
		http.StatusUnprocessableEntity,
	)
	ErrRequiredApproverUnresolved = apperror.New(
		apperror.CodeInvalidState,
		"a required approval level has no resolvable approver",
		http.StatusUnprocessableEntity,
	)
	ErrEntityNotFound = apperror.New(
		apperror.CodeNotFound,
		"entity not found",
		http.StatusNotFound,
	)
	ErrInvalidLevelTransition = apperror.New(
		apperror.CodeInvalidState,
		"approval level is not pending or is not the current level",
		http.StatusConflict,
	)
	ErrUnauthorizedApprover = apperror.New(
		apperror.CodeForbidden,
		"actor is not the resolved approver for this level",
		http.StatusForbidden,
	)
	ErrWorkflowNotFound = apperror.New(
		apperror.CodeNotFound,
		"workflow definition not found",
		http.StatusNotFound,
	)
	ErrMatrixNotFound = apperror.New(
		apperror.CodeNotFound,
		"approval matrix not found",
		http.StatusNotFound,
	)
	ErrDelegationNotFound = apperror.New(
		apperror.CodeNotFound,
		"approval delegation not found",
		http.StatusNotFound,
	)
	ErrUnknownEntityType = apperror.New(
		apperror.CodeInvalidInput,
		"unknown entity type",
		http.StatusBadRequest,
	)
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
	ErrInvalidAction = apperror.New(
		apperror.CodeInvalidInput,
		"action must be approve or reject",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"start_date must be before or equal end_date",
		http.StatusBadRequest,
	)
	ErrInvalidLevels = apperror.New(
		apperror.CodeInvalidInput,
		"approval levels are invalid",
		http.StatusBadRequest,
	)
)
