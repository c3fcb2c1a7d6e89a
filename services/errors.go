package services

import (
	"errors"
	"fmt"

	"moviebox-restful/policy"
	"moviebox-restful/repositories"
	"moviebox-restful/validation"

	"gorm.io/gorm"
)

// ErrorKind classifies failures for the transport layer.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a failure the caller can act on. Message is safe to show to clients.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

func validationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func notFound(noun string) error {
	return &Error{Kind: KindNotFound, Message: noun + " not found", Err: gorm.ErrRecordNotFound}
}

func authorizationError(err error) error {
	return &Error{Kind: KindAuthorization, Message: err.Error(), Err: err}
}

// requireAuthenticated rejects anonymous writers before anything is looked up.
func requireAuthenticated(actor policy.Actor) error {
	if actor.Anonymous() {
		return authorizationError(policy.ErrNotAuthenticated)
	}
	return nil
}

func checkWrite(p policy.Policy, actor policy.Actor, kind policy.Kind, resource any) error {
	if err := p.Check(actor, kind, resource, policy.Write); err != nil {
		return authorizationError(err)
	}
	return nil
}

// translate maps store and validation errors onto service errors.
func translate(err error, noun string) error {
	if err == nil {
		return nil
	}
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return &Error{Kind: KindValidation, Message: verr.Error(), Err: err}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(noun)
	case errors.Is(err, repositories.ErrUnknownReference):
		return &Error{Kind: KindValidation, Message: "invalid pk: related object does not exist", Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindConflict, Message: noun + " already exists", Err: err}
	}
	return fmt.Errorf("%s: %w", noun, err)
}
