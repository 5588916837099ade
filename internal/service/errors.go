package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrForbidden = errors.New("forbidden: insufficient permissions")
	ErrNotFound  = errors.New("resource not found")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// NotFoundError reports a missing referenced entity. errors.Is matches both
// ErrNotFound and the wrapped domain sentinel.
type NotFoundError struct {
	Resource string
	ID       int64
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Unwrap() error { return e.Err }

type AuditEntry struct {
	UserID       int64
	UserRole     string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	Changes      string
}
