package generation

import (
	"errors"
	"fmt"
)

// ErrorKind classifies generation failures.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindTimeout   ErrorKind = "timeout"
	KindNetwork   ErrorKind = "network"
	KindMalformed ErrorKind = "malformed"
	KindUnknown   ErrorKind = "unknown"
)

var userMessages = map[ErrorKind]string{
	KindAuth:      "Our support system is temporarily unavailable. Please try again later.",
	KindRateLimit: "We're experiencing high demand. Please try again in a moment.",
	KindTimeout:   "Sorry, I'm taking longer than expected. Please try again.",
	KindNetwork:   "Connection error. Please check your internet and try again.",
	KindMalformed: "No response from AI",
	KindUnknown:   "Something went wrong. Please try again.",
}

// Error is a classified generation failure. Cause holds upstream detail for logs only.
type Error struct {
	Kind  ErrorKind
	Cause error
}

// NewError builds a classified error.
func NewError(kind ErrorKind, cause error) *Error {
	if _, ok := userMessages[kind]; !ok {
		kind = KindUnknown
	}
	return &Error{Kind: kind, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("generation %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage is the client-safe text for this failure.
func (e *Error) UserMessage() string {
	return userMessages[e.Kind]
}

// AsError extracts a generation error from err's chain.
func AsError(err error) (*Error, bool) {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr, true
	}
	return nil, false
}

// UserMessage returns the client-safe text for any error surfaced by a generator.
func UserMessage(err error) string {
	if genErr, ok := AsError(err); ok {
		return genErr.UserMessage()
	}
	return userMessages[KindUnknown]
}

// KindOf returns the kind of a generation error, or KindUnknown.
func KindOf(err error) ErrorKind {
	if genErr, ok := AsError(err); ok {
		return genErr.Kind
	}
	return KindUnknown
}
