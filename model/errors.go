package model

import (
	"fmt"
	"net/http"
)

type ErrorCode int

const (
	CodeInternal         ErrorCode = 1
	CodeValidation       ErrorCode = 2
	CodeNotAuthenticated ErrorCode = 10
	CodeForbidden        ErrorCode = 11
	CodeNotFound         ErrorCode = 12
	CodeConflict         ErrorCode = 13
)

// CodeForStatus is the code reported for a bare HTTP status.
func CodeForStatus(status int) ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeNotAuthenticated
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	}
	return CodeInternal
}

// APIError is the body of every failed API response.
type APIError struct {
	Status    int       `json:"-"`
	Message   string    `json:"error_message"`
	Code      ErrorCode `json:"error_code"`
	Arguments []string  `json:"arguments"`
}

func (e *APIError) Error() string {
	if len(e.Arguments) == 0 {
		return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (code %d): %v", e.Message, e.Code, e.Arguments)
}
