package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// RequestID identifies one statistics invocation end to end. It is supplied by
// the caller (transport header, CLI flag) and echoed back in error payloads.
type RequestID ID

// NewRequestID generates a request identifier for callers that did not supply one.
func NewRequestID() RequestID { return RequestID(NewID()) }

func (id RequestID) String() string { return ID(id).String() }

// ParseRequestID parses a caller-supplied request identifier
func ParseRequestID(s string) (RequestID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("request ID cannot be empty")
	}
	return RequestID(s), nil
}

// RequestIDOrNew returns the parsed identifier, or a freshly generated one when s is blank.
func RequestIDOrNew(s string) RequestID {
	if id, err := ParseRequestID(s); err == nil {
		return id
	}
	return NewRequestID()
}
