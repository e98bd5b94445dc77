package tools

import (
	"errors"
	"fmt"
	"time"
)

// JSON-RPC 2.0 error codes used by the toolbox.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

var ErrInputTooLarge = errors.New("input too large")

type ToolError struct {
	Code    int
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	return e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func NewToolNotFoundError(name string) *ToolError {
	return &ToolError{
		Code:    CodeMethodNotFound,
		Message: fmt.Sprintf("Tool not found: %s", name),
	}
}

func NewToolExecutionError(name string, err error) *ToolError {
	return &ToolError{
		Code:    CodeInternalError,
		Message: fmt.Sprintf("Error executing tool %s: %v", name, err),
		Err:     err,
	}
}

func NewInvalidParamsError(err error) *ToolError {
	return &ToolError{
		Code:    CodeInvalidParams,
		Message: fmt.Sprintf("invalid request: %v", err),
		Err:     err,
	}
}

func NewToolTimeoutError(name string, timeout time.Duration) *ToolError {
	return &ToolError{
		Code:    CodeInternalError,
		Message: fmt.Sprintf("tool %s timed out after %v", name, timeout),
		Err:     errors.New("timeout"),
	}
}

// CheckInputSize rejects payloads above limit bytes. A limit of zero or less
// disables the check.
func CheckInputSize(field string, value string, limit int) error {
	if limit > 0 && len(value) > limit {
		return &ToolError{
			Code:    CodeInvalidParams,
			Message: fmt.Sprintf("%s is %d bytes (max %d)", field, len(value), limit),
			Err:     ErrInputTooLarge,
		}
	}
	return nil
}

// ErrorCode extracts the JSON-RPC code carried by err, defaulting to an
// internal error.
func ErrorCode(err error) int {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeInternalError
}
