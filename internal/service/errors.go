package service

import (
	"errors"
	"fmt"
)

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidPin   = "INVALID_PIN"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeEmailFailed  = "EMAIL_FAILED"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource, id string) *BusinessError {
	return NewBusinessError(CodeNotFound, fmt.Sprintf("%s %s not found", resource, id),
		ToDetail("resource", resource),
		ToDetail("id", id))
}

func NewValidationError(field, reason string) *BusinessError {
	return NewBusinessError(CodeValidation, fmt.Sprintf("invalid value for field '%s': %s", field, reason),
		ToDetail("field", field),
		ToDetail("reason", reason))
}

func NewInvalidPin() *BusinessError {
	return NewBusinessError(CodeInvalidPin, "PIN tidak valid")
}

func NewInvalidToken() *BusinessError {
	return NewBusinessError(CodeInvalidToken, "Token verifikasi tidak valid")
}

func NewEmailFailed(err error) *BusinessError {
	busErr := NewBusinessError(CodeEmailFailed, "failed to send email")
	busErr.Err = err
	return busErr
}

// IsCode reports whether err is a BusinessError with the given code.
func IsCode(err error, code string) bool {
	var busErr *BusinessError
	return errors.As(err, &busErr) && busErr.Code == code
}
