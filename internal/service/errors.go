package service

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/maheshrc27/feedqueue-api/internal/repository"
)

// DataAccessError reports a lookup that failed, including resources that exist
// but belong to another user.
type DataAccessError struct {
	Resource string
	ID       any
	Username string
	Err      error
}

func (e *DataAccessError) Error() string {
	if errors.Is(e.Err, repository.ErrNotFound) {
		return fmt.Sprintf("%s %v not found for user %s", e.Resource, e.ID, e.Username)
	}
	return fmt.Sprintf("unable to fetch %s %v for user %s: %v", e.Resource, e.ID, e.Username, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// DataUpdateError reports a write the backing store rejected.
type DataUpdateError struct {
	Op  string
	Err error
}

func (e *DataUpdateError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *DataUpdateError) Unwrap() error { return e.Err }

// DataConflictError reports a duplicate identifier on create or rename.
type DataConflictError struct {
	Resource string
	Ident    string
	Err      error
}

func (e *DataConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Resource, e.Ident)
}

func (e *DataConflictError) Unwrap() error { return e.Err }

const (
	invalidTransitionCode = "INVALID_TRANSITION"
	invalidImageCode      = "INVALID_IMAGE"
	invalidFieldCode      = "INVALID_FIELD"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidImage      = errors.New("invalid queue image")
	ErrInvalidField      = errors.New("invalid field")
)

func invalid(err error, code, message string) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, message).WithTextCode(code)
}

func accessErr(resource string, id any, username string, err error) error {
	if err == nil {
		return nil
	}
	return &DataAccessError{Resource: resource, ID: id, Username: username, Err: err}
}

// updateErr classifies a repository write failure.
func updateErr(op, resource string, id any, username string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return &DataAccessError{Resource: resource, ID: id, Username: username, Err: err}
	case errors.Is(err, repository.ErrDuplicate):
		return &DataConflictError{Resource: resource, Ident: fmt.Sprint(id), Err: err}
	default:
		return &DataUpdateError{Op: op, Err: err}
	}
}
