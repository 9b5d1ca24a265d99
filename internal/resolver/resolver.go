// Package resolver turns a typed ER model into relational tables.
//
// Resolution is a pure function of the model: it either completes with a
// schema, pauses with a DecisionRequest, or fails with a models.ResolveError.
// Nothing is remembered between calls. A caller answers a pause by annotating
// the document (see document.ApplyDecision) and resolving again from scratch.
package resolver

import (
	"errors"
	"log/slog"

	"github.com/ajitpratap0/erschema/internal/models"
)

// Status is the verdict of a resolution pass.
type Status string

const (
	StatusDone   Status = "done"
	StatusPaused Status = "paused"
)

// Outcome is the result of a pass that did not fail. Schema is set when
// Status is done, Request when it is paused.
type Outcome struct {
	Status  Status                  `json:"status"`
	Schema  *models.Schema          `json:"schema,omitempty"`
	Request *models.DecisionRequest `json:"request,omitempty"`
}

// Resolver runs resolution passes. It holds no state besides its logger and is
// safe for concurrent use on distinct models.
type Resolver struct {
	logger *slog.Logger
}

// New creates a Resolver.
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve runs one pass over m. Strong entities are resolved first, then weak
// entities, then relationships, each in document order; dependencies are
// pulled in ahead of the node that needs them.
func (r *Resolver) Resolve(m *models.Model) (*Outcome, error) {
	cls, err := classify(m)
	if err != nil {
		return nil, err
	}
	p := newPass(m, cls, r.logger)

	seeds := make([]*models.Node, 0, len(m.Entities)+len(m.Relationships))
	seeds = append(seeds, cls.strong...)
	seeds = append(seeds, cls.weak...)
	for _, rel := range m.Relationships {
		if rel.Merged {
			r.logger.Debug("skipping merged relationship", "relationship", rel.Name)
			continue
		}
		seeds = append(seeds, rel)
	}

	for _, seed := range seeds {
		if err := p.resolveFrom(seed); err != nil {
			var pz *pause
			if errors.As(err, &pz) {
				req := pz.request
				return &Outcome{Status: StatusPaused, Request: &req}, nil
			}
			return nil, err
		}
	}

	return &Outcome{Status: StatusDone, Schema: &models.Schema{Tables: p.order}}, nil
}
