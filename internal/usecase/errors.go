package usecase

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindUnauthorized ErrorKind = "Unauthorized"
	KindValidation   ErrorKind = "ValidationError"
	KindNotFound     ErrorKind = "NotFoundError"
	KindPersistence  ErrorKind = "PersistenceError"
	KindDelivery     ErrorKind = "DeliveryError"
)

// Error is what every caller-facing operation returns on failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind and message so sentinel values work with errors.Is
// even after a cause has been attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

var (
	ErrUnauthorized          = &Error{Kind: KindUnauthorized, Message: "Unauthorized"}
	ErrRecipientRequired     = &Error{Kind: KindValidation, Message: "Recipient ID is required"}
	ErrEmptyMessage          = &Error{Kind: KindValidation, Message: "Message content or file is required"}
	ErrBlankContent          = &Error{Kind: KindValidation, Message: "Message cannot be empty"}
	ErrRecipientNotFound     = &Error{Kind: KindNotFound, Message: "Recipient not found"}
	ErrSenderNotFound        = &Error{Kind: KindNotFound, Message: "Sender not found"}
	ErrNotificationNotFound  = &Error{Kind: KindNotFound, Message: "Notification not found"}
	ErrAttachmentUnavailable = &Error{Kind: KindValidation, Message: "Attachments are not enabled"}
)

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func persistenceError(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: err}
}

func deliveryError(channel, event string, err error) *Error {
	return &Error{Kind: KindDelivery, Message: fmt.Sprintf("publish %s to %s", event, channel), Err: err}
}

// KindOf classifies any error crossing an operation boundary. Anything that
// is not already an *Error came from the store.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// MessageOf returns the caller-safe text for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
