// Package mcp exposes search and lookup as Model Context Protocol tools.
package mcp

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/mpgirro/hemin/internal/errors"
)

// MCP error codes. Negative codes below -32000 are server defined.
const (
	// ErrCodeIndexUnavailable indicates the index is closed or locked.
	ErrCodeIndexUnavailable = -32001

	// ErrCodeConsistency indicates an exo resolved to several documents.
	ErrCodeConsistency = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is a protocol error with a JSON-RPC code.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts an internal error to an MCPError.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var me *MCPError
	if stderrors.As(err, &me) {
		return me
	}
	if he, ok := errors.As(err); ok {
		return mapHeminError(he)
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case stderrors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid tool arguments.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}

func mapHeminError(he *errors.HeminError) *MCPError {
	message := he.Message
	if he.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", he.Message, he.Suggestion)
	}

	switch {
	case he.Code == errors.ErrCodeIndexClosed, he.Code == errors.ErrCodeIndexLocked:
		return &MCPError{Code: ErrCodeIndexUnavailable, Message: message}
	case he.Code == errors.ErrCodeDuplicateExternalID:
		return &MCPError{Code: ErrCodeConsistency, Message: message}
	case he.Category == errors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case he.Category == errors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
