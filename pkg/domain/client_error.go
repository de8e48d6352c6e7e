package domain

import "errors"

// ErrorCode is the machine-readable code returned to clients.
type ErrorCode string

const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeConfigNotFound     ErrorCode = "config_not_found"
	CodeConversationActive ErrorCode = "conversation_already_active"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeInternal           ErrorCode = "internal_error"
)

const genericInternalMessage = "an internal error occurred; quote the reference code when reporting it"

// ClientError is the client-visible form of an error.
// Internal errors never carry the cause's message.
type ClientError struct {
	Code          ErrorCode `json:"errorCode"`
	Message       string    `json:"errorMessage"`
	ReferenceCode string    `json:"referenceCode"`
	Cause         error     `json:"-"`
}

func (e *ClientError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *ClientError) Unwrap() error { return e.Cause }

// Internal reports whether the error was masked as a generic internal error.
func (e *ClientError) Internal() bool { return e.Code == CodeInternal }

// ToClientError translates err into the client-visible taxonomy.
// Domain errors keep their message; data-integrity and infrastructure errors are masked.
func ToClientError(err error, referenceCode string) *ClientError {
	var existing *ClientError
	if errors.As(err, &existing) {
		return existing
	}

	ce := &ClientError{ReferenceCode: referenceCode, Cause: err}
	switch {
	case errors.Is(err, ErrConfigNotFound):
		ce.Code, ce.Message = CodeConfigNotFound, err.Error()
	case errors.Is(err, ErrConversationAlreadyActive):
		ce.Code, ce.Message = CodeConversationActive, err.Error()
	case errors.Is(err, ErrUnauthorized):
		ce.Code, ce.Message = CodeUnauthorized, err.Error()
	case errors.Is(err, ErrInvalidRequest):
		ce.Code, ce.Message = CodeBadRequest, err.Error()
	default:
		ce.Code, ce.Message = CodeInternal, genericInternalMessage
	}
	return ce
}
