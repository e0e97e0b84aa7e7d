package apperror

import (
	"errors"
	"net/http"
)

// HTTPError adalah bentuk final yang siap ditulis ke response envelope
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Details any
}

// ToHTTP memetakan error apapun menjadi HTTPError.
// AppError dipetakan apa adanya; error lain dianggap internal.
func ToHTTP(err error) HTTPError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return HTTPError{
			Status:  appErr.HTTPStatus,
			Code:    appErr.Code,
			Message: appErr.Message,
		}
	}
	return HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternalError,
		Message: "An unexpected error occurred",
	}
}

func RequiredField(field string) *AppError {
	return New(CodeInvalidInput, field+" is required", http.StatusBadRequest)
}

func InvalidField(field string) *AppError {
	return New(CodeInvalidInput, field+" is invalid", http.StatusBadRequest)
}
