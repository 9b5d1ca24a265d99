package models

import (
	"fmt"
	"strings"
)

// RequestKind identifies the decision the engine is waiting for.
type RequestKind string

const (
	RequestChooseKey   RequestKind = "choose_key"
	RequestChooseMerge RequestKind = "choose_merge"
)

// DecisionRequest is returned when resolution pauses for a human choice.
// ChooseKey fills TableName and Options; ChooseMerge fills MergeFrom and MergeTo.
type DecisionRequest struct {
	Kind      RequestKind `json:"kind"`
	TableName string      `json:"table_name,omitempty"`
	Options   []string    `json:"options,omitempty"`
	MergeFrom string      `json:"merge_from,omitempty"`
	MergeTo   string      `json:"merge_to,omitempty"`
}

// NewChooseKey builds a ChooseKey request.
func NewChooseKey(tableName string, options []string) DecisionRequest {
	return DecisionRequest{Kind: RequestChooseKey, TableName: tableName, Options: options}
}

// NewChooseMerge builds a ChooseMerge request.
func NewChooseMerge(mergeFrom, mergeTo string) DecisionRequest {
	return DecisionRequest{Kind: RequestChooseMerge, MergeFrom: mergeFrom, MergeTo: mergeTo}
}

// String returns a short human-readable description.
func (r DecisionRequest) String() string {
	switch r.Kind {
	case RequestChooseKey:
		return fmt.Sprintf("choose primary key for %s: %s", r.TableName, strings.Join(r.Options, " | "))
	case RequestChooseMerge:
		return fmt.Sprintf("merge relationship %s into %s?", r.MergeFrom, r.MergeTo)
	}
	return string(r.Kind)
}

// DecisionKind identifies the answer to a DecisionRequest.
type DecisionKind string

const (
	DecisionKeySelected DecisionKind = "key_selected"
	DecisionMergeChosen DecisionKind = "merge_chosen"
)

// IsValid returns true if the decision kind is recognized.
func (k DecisionKind) IsValid() bool {
	return k == DecisionKeySelected || k == DecisionMergeChosen
}

// Decision is the resumption input written back into the document.
type Decision struct {
	Kind            DecisionKind `json:"kind"`
	TableName       string       `json:"table_name,omitempty"`
	Index           int          `json:"index"`
	MergeFrom       string       `json:"merge_from,omitempty"`
	MergeTo         string       `json:"merge_to,omitempty"`
	MergeIntoTarget bool         `json:"merge_into_target"`
}

// KeySelected answers a ChooseKey request with a zero-based option index.
func KeySelected(tableName string, index int) Decision {
	return Decision{Kind: DecisionKeySelected, TableName: tableName, Index: index}
}

// MergeChosen answers a ChooseMerge request.
func MergeChosen(mergeFrom, mergeTo string, mergeIntoTarget bool) Decision {
	return Decision{Kind: DecisionMergeChosen, MergeFrom: mergeFrom, MergeTo: mergeTo, MergeIntoTarget: mergeIntoTarget}
}

// Validate checks that the fields required by the decision kind are set.
func (d Decision) Validate() error {
	switch d.Kind {
	case DecisionKeySelected:
		if d.TableName == "" {
			return fmt.Errorf("%w: table_name is required", ErrInvalidDecision)
		}
		if d.Index < 0 {
			return fmt.Errorf("%w: index must be >= 0", ErrInvalidDecision)
		}
	case DecisionMergeChosen:
		if d.MergeFrom == "" || d.MergeTo == "" {
			return fmt.Errorf("%w: merge_from and merge_to are required", ErrInvalidDecision)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDecision, d.Kind)
	}
	return nil
}

// Answers reports whether d is a response to r.
func (d Decision) Answers(r DecisionRequest) bool {
	switch r.Kind {
	case RequestChooseKey:
		return d.Kind == DecisionKeySelected && d.TableName == r.TableName && d.Index < len(r.Options)
	case RequestChooseMerge:
		return d.Kind == DecisionMergeChosen && d.MergeFrom == r.MergeFrom && d.MergeTo == r.MergeTo
	}
	return false
}
