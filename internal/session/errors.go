package session

import "net/http"

// Kind tags an error with its place in the failure taxonomy. Kinds travel
// through the call chain; only the HTTP handler turns them into statuses.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// Status maps a kind to its HTTP status. Conflict maps to 500: duplicate
// registration has always surfaced as 500 in the deployed API and clients
// depend on it.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind plus the user-visible message for the response body.
// An optional cause is kept for logging and sentry, never for the client.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func internalError(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, cause: cause}
}

// Message texts are part of the wire contract and copied verbatim from the
// deployed API.
const (
	msgCredentialsRequired  = "Request body incomplete, both email and password are required"
	msgIncorrectCredentials = "Incorrect email or password"
	msgUserExists           = "User already exists"
	msgUserCreated          = "User created"
	msgRefreshRequired      = "Request body incomplete, refresh token required"
	msgUserNotFound         = "User not found"
	msgTokenExpired         = "JWT token has expired"
	msgInvalidToken         = "Invalid JWT token"
	msgTokenNotFound        = "Refresh token not found"
	msgTokenInvalidated     = "Token successfully invalidated"
	msgProfileRequired      = "Request body incomplete: firstName, lastName, dob, and address are required"
	msgAuthHeaderNotFound   = "Authorization header ('Bearer token') not found"
	msgForbidden            = "Forbidden"
)
