// Package errs defines the error kinds shared by the ingestion and query engine.
package errs

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown          = "UNKNOWN"
	CodeStore            = "STORE"
	CodeValidation       = "VALIDATION"
	CodeDuplicateMessage = "DUPLICATE_MESSAGE"
	CodeConfig           = "CONFIG"
	CodeUnauthorized     = "UNAUTHORIZED"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error represents a basic application error.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *Error) Code() string {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if it doesn't carry one.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}

// NewStoreError wraps a storage backend failure.
func NewStoreError(message string, cause error) error {
	return &Error{code: CodeStore, message: message, err: cause}
}

// NewValidationError reports malformed input such as a bad navigation segment.
func NewValidationError(message string, cause error) error {
	return &Error{code: CodeValidation, message: message, err: cause}
}

// NewConfigError reports an invalid or unreadable configuration.
func NewConfigError(message string, cause error) error {
	return &Error{code: CodeConfig, message: message, err: cause}
}

// NewUnauthorizedError reports a command issued by someone not allowed to run it.
func NewUnauthorizedError(message string) error {
	return &Error{code: CodeUnauthorized, message: message}
}

// DuplicateMessageError is returned when a message that already exists is recorded
// again outside of the edit flow. It signals a logic fault and must not be swallowed.
type DuplicateMessageError struct {
	ChatID    int64
	MessageID int
}

func (e *DuplicateMessageError) Error() string {
	return fmt.Sprintf("message %d already recorded in chat %d", e.MessageID, e.ChatID)
}

func (e *DuplicateMessageError) Code() string {
	return CodeDuplicateMessage
}

func (e *DuplicateMessageError) Unwrap() error {
	return nil
}

// NewDuplicateMessageError builds a DuplicateMessageError for the given message.
func NewDuplicateMessageError(chatID int64, messageID int) error {
	return &DuplicateMessageError{ChatID: chatID, MessageID: messageID}
}
