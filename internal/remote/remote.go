// Package remote holds the HTTP clients for the external document parser,
// spatial analyzer, document generator and Kaiten task tracker. Every call
// normalizes its outcome into one of three error classes: validation
// failures caught before the network, rejections the upstream service
// understood (4xx, message surfaced verbatim), and transport or server
// failures (5xx, timeouts) that are safe to present with generic retry
// guidance.
package remote

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Sentinel errors for the step failure taxonomy. Match with errors.Is.
var (
	// ErrValidation marks a local pre-flight failure; the request never
	// reached the network.
	ErrValidation = errors.New("validation failed")

	// ErrRejected marks a request the upstream service understood and
	// refused (malformed document, uniqueness conflict).
	ErrRejected = errors.New("rejected by remote service")

	// ErrUnavailable marks a network, timeout or server-side failure.
	ErrUnavailable = errors.New("remote service unavailable")
)

// Error is a classified remote-call failure. Kind is one of the sentinel
// errors above; Message carries the upstream detail where one exists.
type Error struct {
	Kind    error
	Message string
	Status  int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

// Is makes errors.Is(err, ErrRejected) and friends work on classified errors.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Message extracts the upstream detail from a classified error, falling
// back to the plain error text.
func Message(err error) string {
	var re *Error
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// rejected builds an ErrRejected-classified error.
func rejected(status int, message string) *Error {
	return &Error{Kind: ErrRejected, Message: message, Status: status}
}

// unavailable builds an ErrUnavailable-classified error.
func unavailable(message string) *Error {
	return &Error{Kind: ErrUnavailable, Message: message}
}

// CheckExtension validates an uploaded filename against the allowed
// extensions before any network call is made.
func CheckExtension(filename string, allowed ...string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return &Error{
		Kind:    ErrValidation,
		Message: fmt.Sprintf("unsupported file type %q, expected one of %s", ext, strings.Join(allowed, ", ")),
	}
}
