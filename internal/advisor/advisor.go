// Package advisor answers the decision requests raised by a paused
// resolution without a human in the loop.
package advisor

import (
	"context"

	"github.com/ajitpratap0/erschema/internal/models"
)

// Advisor produces a Decision for a paused resolution. doc is the current
// document text, which an advisor may inspect for context.
type Advisor interface {
	Decide(ctx context.Context, doc []byte, req models.DecisionRequest) (models.Decision, error)
}

// DefaultAdvisor picks the first candidate key and declines every merge.
type DefaultAdvisor struct{}

// Decide implements Advisor.
func (DefaultAdvisor) Decide(_ context.Context, _ []byte, req models.DecisionRequest) (models.Decision, error) {
	return Fallback(req), nil
}

// Fallback returns the conservative answer to req.
func Fallback(req models.DecisionRequest) models.Decision {
	if req.Kind == models.RequestChooseMerge {
		return models.MergeChosen(req.MergeFrom, req.MergeTo, false)
	}
	return models.KeySelected(req.TableName, 0)
}
