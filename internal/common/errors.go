package common

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindUpstream
)

// Error carries a Kind so the HTTP layer can pick a status without knowing
// which package produced it.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, so errors.Is(err, ErrNotFound) holds for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrAuthorization  = &Error{Kind: KindAuthorization}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrUpstream       = &Error{Kind: KindUpstream}
	ErrInternal       = &Error{Kind: KindInternal}
)

func ValidationError(msg string) error    { return &Error{Kind: KindValidation, Message: msg} }
func AuthenticationError(msg string) error { return &Error{Kind: KindAuthentication, Message: msg} }
func AuthorizationError(msg string) error  { return &Error{Kind: KindAuthorization, Message: msg} }
func NotFoundError(msg string) error       { return &Error{Kind: KindNotFound, Message: msg} }
func ConflictError(msg string) error       { return &Error{Kind: KindConflict, Message: msg} }

func UpstreamProviderError(err error) error {
	return &Error{Kind: KindUpstream, Message: "upstream provider", Err: err}
}

func InternalError(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusOf maps an error to its HTTP status. Conflicts are reported as 400.
func StatusOf(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// codeOf keeps the numeric codes the API has always returned next to the message.
func codeOf(status int) int {
	switch status {
	case http.StatusBadRequest:
		return 10001
	case http.StatusUnauthorized:
		return 40101
	case http.StatusForbidden:
		return 40301
	case http.StatusNotFound:
		return 40401
	case http.StatusTooManyRequests:
		return 42901
	default:
		return 50001
	}
}
