// Package converter drives the resolve / decide / resolve cycle over raw ER
// documents. It is the entry point shared by the CLI, the HTTP API and the MCP
// server.
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/erschema/internal/advisor"
	"github.com/ajitpratap0/erschema/internal/document"
	"github.com/ajitpratap0/erschema/internal/metrics"
	"github.com/ajitpratap0/erschema/internal/models"
	"github.com/ajitpratap0/erschema/internal/resolver"
)

// ErrTooManyRounds is returned by Run when the advisor keeps the resolution
// paused for more rounds than allowed.
var ErrTooManyRounds = errors.New("too many decision rounds")

// Result is the outcome of resolving a document. Document holds the document
// the outcome was computed from, including any decisions applied on the way.
type Result struct {
	Status    resolver.Status         `json:"status"`
	Schema    *models.Schema          `json:"schema,omitempty"`
	Request   *models.DecisionRequest `json:"request,omitempty"`
	Document  string                  `json:"document"`
	Decisions []models.Decision       `json:"decisions,omitempty"`
}

// Converter resolves ER documents.
type Converter struct {
	resolver *resolver.Resolver
	logger   *slog.Logger
}

// New creates a Converter.
func New(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{resolver: resolver.New(logger), logger: logger}
}

// Resolve parses raw and runs one resolution pass over it.
func (c *Converter) Resolve(raw []byte) (*Result, error) {
	doc, err := document.Parse(raw)
	if err != nil {
		metrics.Inc(metrics.ResolveFailed)
		return nil, err
	}
	return c.resolve(doc)
}

// Decide records dec in raw and resolves the annotated document.
func (c *Converter) Decide(raw []byte, dec models.Decision) (*Result, error) {
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, err
	}
	annotated, err := document.ApplyDecision(doc, dec)
	if err != nil {
		return nil, err
	}
	metrics.Inc(metrics.DecisionsApplied)
	c.logger.Info("decision applied", "kind", dec.Kind, "table", dec.TableName, "merge_from", dec.MergeFrom)
	return c.resolve(annotated)
}

// Run resolves raw, asking adv for every decision until the schema is done.
// maxRounds bounds the number of decisions taken.
func (c *Converter) Run(ctx context.Context, raw []byte, adv advisor.Advisor, maxRounds int) (*Result, error) {
	res, err := c.Resolve(raw)
	if err != nil {
		return nil, err
	}
	var taken []models.Decision
	for round := 0; res.Status == resolver.StatusPaused; round++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run: %w", err)
		}
		if round >= maxRounds {
			return nil, fmt.Errorf("run: %w: stopped after %d", ErrTooManyRounds, maxRounds)
		}
		req := *res.Request
		dec, err := adv.Decide(ctx, []byte(res.Document), req)
		if err != nil {
			return nil, fmt.Errorf("run: advisor: %w", err)
		}
		if !dec.Answers(req) {
			return nil, fmt.Errorf("run: %w: advisor answer does not match %q", models.ErrInvalidDecision, req.String())
		}
		res, err = c.Decide([]byte(res.Document), dec)
		if err != nil {
			return nil, err
		}
		taken = append(taken, dec)
	}
	res.Decisions = taken
	return res, nil
}

func (c *Converter) resolve(doc *document.Document) (*Result, error) {
	metrics.Inc(metrics.ResolveTotal)

	text, err := doc.Bytes()
	if err != nil {
		metrics.Inc(metrics.ResolveFailed)
		return nil, fmt.Errorf("resolve: encoding document: %w", err)
	}
	model, err := document.Load(doc)
	if err != nil {
		metrics.Inc(metrics.ResolveFailed)
		return nil, err
	}
	out, err := c.resolver.Resolve(model)
	if err != nil {
		metrics.Inc(metrics.ResolveFailed)
		c.logger.Debug("resolution failed", "kind", models.ErrorKind(err), "node", models.ErrorNode(err), "error", err)
		return nil, err
	}
	if out.Status == resolver.StatusPaused {
		metrics.Inc(metrics.ResolvePaused)
		c.logger.Debug("resolution paused", "request", out.Request.String())
	}
	return &Result{
		Status:   out.Status,
		Schema:   out.Schema,
		Request:  out.Request,
		Document: string(text),
	}, nil
}
