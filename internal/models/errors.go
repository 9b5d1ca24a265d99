package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure of a resolution pass wraps exactly one of these.
var (
	ErrMalformedDocument   = errors.New("malformed document")
	ErrNoPrimaryKey        = errors.New("no primary key")
	ErrCircularDependency  = errors.New("circular dependency")
	ErrInvalidRelationship = errors.New("invalid relationship")
	ErrInvalidDecision     = errors.New("invalid decision")
)

// ResolveError is a terminal failure naming the offending node.
type ResolveError struct {
	Kind    error
	Node    string
	Message string
}

// Error returns the error string.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// Unwrap returns the error kind so errors.Is matches the sentinels above.
func (e *ResolveError) Unwrap() error {
	return e.Kind
}

// NewResolveError builds a ResolveError with a formatted message.
func NewResolveError(kind error, node, format string, args ...any) *ResolveError {
	return &ResolveError{Kind: kind, Node: node, Message: fmt.Sprintf(format, args...)}
}

// ErrorKind returns a stable snake_case name for err's kind, or "" when err
// is not one of the resolution error kinds.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedDocument):
		return "malformed_document"
	case errors.Is(err, ErrNoPrimaryKey):
		return "no_primary_key"
	case errors.Is(err, ErrCircularDependency):
		return "circular_dependency"
	case errors.Is(err, ErrInvalidRelationship):
		return "invalid_relationship"
	case errors.Is(err, ErrInvalidDecision):
		return "invalid_decision"
	}
	return ""
}

// ErrorNode returns the node named by a ResolveError in err's chain.
func ErrorNode(err error) string {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Node
	}
	return ""
}
