package catalog

import (
	"errors"
	"fmt"
)

var ErrServiceNotFound = errors.New("service not found")

// MissingServiceError names the first requested service id that does not exist.
type MissingServiceError struct {
	ServiceID int64
}

func (e *MissingServiceError) Error() string {
	return fmt.Sprintf("invalid service id provided: %d", e.ServiceID)
}

func (e *MissingServiceError) Unwrap() error { return ErrServiceNotFound }
