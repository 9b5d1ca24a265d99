package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ajitpratap0/erschema/internal/metrics"
	"github.com/ajitpratap0/erschema/internal/models"
	"github.com/ajitpratap0/erschema/pkg/tokenizer"
	"github.com/ajitpratap0/erschema/pkg/xmlutil"
)

const (
	// claudeMaxTokens is the maximum tokens Claude can use for a decision.
	claudeMaxTokens = 256

	// claudeDiagramBudget caps the estimated tokens of the diagram sent along
	// with a question.
	claudeDiagramBudget = 8000
)

// ClaudeAdvisor asks Claude to choose primary keys and merges.
//
// On any API failure or unusable answer it logs a warning and returns the
// DefaultAdvisor's answer, so a run never stalls on the model.
type ClaudeAdvisor struct {
	client *anthropic.Client
	model  string
	logger *slog.Logger
}

// NewClaudeAdvisor creates a ClaudeAdvisor. Extra request options are passed
// to the Anthropic client.
func NewClaudeAdvisor(apiKey, model string, logger *slog.Logger, opts ...option.RequestOption) *ClaudeAdvisor {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	c := anthropic.NewClient(opts...)
	return &ClaudeAdvisor{
		client: &c,
		model:  model,
		logger: logger,
	}
}

// claudeAnswer is the JSON object Claude is asked to reply with.
type claudeAnswer struct {
	Index *int  `json:"index"`
	Merge *bool `json:"merge"`
}

// Decide implements Advisor.
func (a *ClaudeAdvisor) Decide(ctx context.Context, doc []byte, req models.DecisionRequest) (models.Decision, error) {
	fallback := Fallback(req)

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: claudeMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(doc, req))),
		},
	})
	if err != nil {
		a.logger.Warn("advisor: Claude API call failed, using default decision", "error", err)
		metrics.Inc(metrics.AdvisorFallbacks)
		return fallback, nil
	}

	var text string
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			text = strings.TrimSpace(resp.Content[i].Text)
			break
		}
	}

	dec, err := parseAnswer(text, req)
	if err != nil {
		a.logger.Warn("advisor: unusable answer from Claude, using default decision", "response", text, "error", err)
		metrics.Inc(metrics.AdvisorFallbacks)
		return fallback, nil
	}
	a.logger.Debug("advisor: decision", "request", req.String(), "decision", dec.Kind)
	return dec, nil
}

func buildPrompt(doc []byte, req models.DecisionRequest) string {
	var question string
	switch req.Kind {
	case models.RequestChooseKey:
		var sb strings.Builder
		for i, o := range req.Options {
			fmt.Fprintf(&sb, "[%d] %s\n", i, xmlutil.Escape(o))
		}
		question = fmt.Sprintf(`Choose the primary key for table %s from these candidate keys:
%s
Reply with ONLY a JSON object of the form {"index": N} where N is the chosen candidate number.`,
			xmlutil.Escape(req.TableName), sb.String())
	default:
		question = fmt.Sprintf(`Relationship %s has total participation on %s. Should the relationship be folded into %s instead of getting its own table?
Reply with ONLY a JSON object of the form {"merge": true} or {"merge": false}.`,
			xmlutil.Escape(req.MergeFrom), xmlutil.Escape(req.MergeTo), xmlutil.Escape(req.MergeTo))
	}

	diagram, cut := tokenizer.TruncateLines(string(doc), claudeDiagramBudget)
	if cut {
		diagram += "\n<!-- diagram truncated -->"
	}

	return fmt.Sprintf(`You are a database designer converting an entity-relationship diagram into relational tables.

<diagram>
%s
</diagram>

%s`, xmlutil.EscapeLines(diagram), question)
}

// parseAnswer extracts a decision from Claude's reply. The JSON object may be
// surrounded by prose.
func parseAnswer(text string, req models.DecisionRequest) (models.Decision, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return models.Decision{}, fmt.Errorf("parse answer: no JSON object in %q", text)
	}
	var ans claudeAnswer
	if err := json.Unmarshal([]byte(text[start:end+1]), &ans); err != nil {
		return models.Decision{}, fmt.Errorf("parse answer: %w", err)
	}

	switch req.Kind {
	case models.RequestChooseKey:
		if ans.Index == nil {
			return models.Decision{}, fmt.Errorf("parse answer: missing index")
		}
		if *ans.Index < 0 || *ans.Index >= len(req.Options) {
			return models.Decision{}, fmt.Errorf("parse answer: index %d out of range", *ans.Index)
		}
		return models.KeySelected(req.TableName, *ans.Index), nil
	case models.RequestChooseMerge:
		if ans.Merge == nil {
			return models.Decision{}, fmt.Errorf("parse answer: missing merge")
		}
		return models.MergeChosen(req.MergeFrom, req.MergeTo, *ans.Merge), nil
	}
	return models.Decision{}, fmt.Errorf("parse answer: unknown request kind %q", req.Kind)
}
