package auth

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrRefreshDenied      = errors.New("session cannot be renewed")
)

// ResponseError is returned when an auth endpoint answers with a non-2xx
// status. It unwraps to one of the sentinels above when the status has a
// known meaning for the operation.
type ResponseError struct {
	Op      string
	Status  int
	Message string
	Kind    error
}

func (e *ResponseError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Kind != nil {
		return fmt.Sprintf("%s: %v: %s (%d)", e.Op, e.Kind, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Op, msg, e.Status)
}

func (e *ResponseError) Unwrap() error {
	return e.Kind
}

// classify maps a failed status to the error kind it means for op.
func classify(op string, status int) error {
	switch op {
	case opLogin:
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return ErrInvalidCredentials
		}
		if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
			return ErrValidation
		}
	case opRegister:
		switch status {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return ErrValidation
		case http.StatusConflict:
			return ErrDuplicateAccount
		}
	case opRefresh:
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return ErrRefreshDenied
		}
	}
	return nil
}
