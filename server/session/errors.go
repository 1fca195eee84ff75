package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	Unknown Kind = iota
	Validation
	NotFound
	AlreadyExists
	InvalidCredentials
	NotLoggedIn
	StorageUnavailable
)

var kindNames = map[Kind]string{
	Unknown:            "unknown",
	Validation:         "validation_failed",
	NotFound:           "not_found",
	AlreadyExists:      "already_exists",
	InvalidCredentials: "invalid_credentials",
	NotLoggedIn:        "not_logged_in",
	StorageUnavailable: "storage_unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	*k = Unknown
	for kind, kindName := range kindNames {
		if kindName == name {
			*k = kind
		}
	}
	return nil
}

// Error is the only error type returned by Session operations.
// Message is meant to be shown to the user as is.
type Error struct {
	Kind    Kind     `json:"kind"`
	Op      string   `json:"op"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
	Err     error    `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown
func KindOf(err error) Kind {
	var sessionErr *Error
	if errors.As(err, &sessionErr) {
		return sessionErr.Kind
	}
	return Unknown
}

func storageError(op, message string, err error) *Error {
	return &Error{
		Kind:    StorageUnavailable,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

func notFoundError(op, message string) *Error {
	return &Error{Kind: NotFound, Op: op, Message: message}
}
