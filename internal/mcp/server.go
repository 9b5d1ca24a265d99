// Package mcp implements the Model Context Protocol server for erschema.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajitpratap0/erschema/internal/advisor"
	"github.com/ajitpratap0/erschema/internal/converter"
	"github.com/ajitpratap0/erschema/internal/metrics"
	"github.com/ajitpratap0/erschema/internal/models"
	"github.com/ajitpratap0/erschema/internal/resolver"
	"github.com/ajitpratap0/erschema/internal/store"
)

// defaultMaxRounds bounds automatic runs when NewServer is given no limit.
const defaultMaxRounds = 64

// Server wraps an MCPServer with erschema dependencies.
type Server struct {
	mcp       *mcpserver.MCPServer
	st        store.Store
	converter *converter.Converter
	advisor   advisor.Advisor
	maxRounds int
	logger    *slog.Logger
}

// NewServer creates a new MCP server. If st is nil the storage tools return
// an error response instead of panicking. A nil adv uses the DefaultAdvisor.
func NewServer(st store.Store, adv advisor.Advisor, logger *slog.Logger, maxRounds int) *Server {
	if adv == nil {
		adv = advisor.DefaultAdvisor{}
	}
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	s := &Server{
		st:        st,
		converter: converter.New(logger),
		advisor:   adv,
		maxRounds: maxRounds,
		logger:    logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"erschema",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildResolveTool(), s.handleResolve)
	mcpSrv.AddTool(buildDecisionTool(), s.handleDecision)
	mcpSrv.AddTool(buildSaveTool(), s.handleSave)
	mcpSrv.AddTool(buildGetTool(), s.handleGet)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleResolve is the exported handler for the "resolve_schema" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleResolve(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleResolve(ctx, req)
}

// HandleDecision is the exported handler for the "apply_decision" tool.
func (s *Server) HandleDecision(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleDecision(ctx, req)
}

// HandleSave is the exported handler for the "save_schema" tool.
func (s *Server) HandleSave(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSave(ctx, req)
}

// HandleGet is the exported handler for the "get_schema" tool.
func (s *Server) HandleGet(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGet(ctx, req)
}

// HandleStats is the exported handler for the "stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// resolveErrorResult reports an engine failure with its kind and node.
func resolveErrorResult(err error) *mcpgo.CallToolResult {
	if kind := models.ErrorKind(err); kind != "" {
		return mcpgo.NewToolResultErrorf("%s (kind=%s node=%s)", err.Error(), kind, models.ErrorNode(err))
	}
	return mcpgo.NewToolResultErrorf("resolution failed: %s", err.Error())
}

// --- tool definitions ---

func buildResolveTool() mcpgo.Tool {
	return mcpgo.NewTool("resolve_schema",
		mcpgo.WithDescription("Convert an ER diagram XML document into relational tables. Returns either the schema or the decision the conversion is waiting for, along with the document to annotate."),
		mcpgo.WithString("document",
			mcpgo.Required(),
			mcpgo.Description("The ER diagram as XML"),
		),
		mcpgo.WithBoolean("auto",
			mcpgo.Description("Answer every pending decision automatically (default: false)"),
		),
	)
}

func buildDecisionTool() mcpgo.Tool {
	return mcpgo.NewTool("apply_decision",
		mcpgo.WithDescription("Record a decision in an ER diagram document and resolve it again."),
		mcpgo.WithString("document",
			mcpgo.Required(),
			mcpgo.Description("The document returned by the previous call"),
		),
		mcpgo.WithString("kind",
			mcpgo.Required(),
			mcpgo.Description("Decision kind: key_selected or merge_chosen"),
		),
		mcpgo.WithString("table_name",
			mcpgo.Description("Table whose primary key is being chosen (key_selected)"),
		),
		mcpgo.WithNumber("index",
			mcpgo.Description("Zero-based index of the chosen key option (key_selected)"),
		),
		mcpgo.WithString("merge_from",
			mcpgo.Description("Relationship name (merge_chosen)"),
		),
		mcpgo.WithString("merge_to",
			mcpgo.Description("Target entity or relationship name (merge_chosen)"),
		),
		mcpgo.WithBoolean("merge_into_target",
			mcpgo.Description("Whether to fold the relationship into the target (merge_chosen)"),
		),
	)
}

func buildSaveTool() mcpgo.Tool {
	return mcpgo.NewTool("save_schema",
		mcpgo.WithDescription("Resolve a fully annotated ER diagram and store the resulting schema."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("Name to store the schema under"),
		),
		mcpgo.WithString("document",
			mcpgo.Required(),
			mcpgo.Description("The ER diagram as XML; every decision must already be recorded"),
		),
	)
}

func buildGetTool() mcpgo.Tool {
	return mcpgo.NewTool("get_schema",
		mcpgo.WithDescription("Fetch a stored schema by id."),
		mcpgo.WithString("id",
			mcpgo.Required(),
			mcpgo.Description("Schema id returned by save_schema"),
		),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("stats",
		mcpgo.WithDescription("Get store statistics: total schemas and tables."),
	)
}

// --- tool handlers ---

func (s *Server) handleResolve(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	doc := req.GetString("document", "")
	if strings.TrimSpace(doc) == "" {
		return mcpgo.NewToolResultError("document is required and must not be empty"), nil
	}

	var (
		res *converter.Result
		err error
	)
	if req.GetBool("auto", false) {
		res, err = s.converter.Run(ctx, []byte(doc), s.advisor, s.maxRounds)
	} else {
		res, err = s.converter.Resolve([]byte(doc))
	}
	if err != nil {
		return resolveErrorResult(err), nil
	}
	return toolResultJSON(res)
}

func (s *Server) handleDecision(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	doc := req.GetString("document", "")
	if strings.TrimSpace(doc) == "" {
		return mcpgo.NewToolResultError("document is required and must not be empty"), nil
	}

	var dec models.Decision
	switch kind := models.DecisionKind(req.GetString("kind", "")); kind {
	case models.DecisionKeySelected:
		dec = models.KeySelected(req.GetString("table_name", ""), req.GetInt("index", 0))
	case models.DecisionMergeChosen:
		dec = models.MergeChosen(req.GetString("merge_from", ""), req.GetString("merge_to", ""),
			req.GetBool("merge_into_target", false))
	default:
		return mcpgo.NewToolResultErrorf("invalid kind %q: must be key_selected or merge_chosen", kind), nil
	}

	res, err := s.converter.Decide([]byte(doc), dec)
	if err != nil {
		return resolveErrorResult(err), nil
	}
	s.logger.Info("mcp: decision applied", "kind", dec.Kind, "status", res.Status)
	return toolResultJSON(res)
}

func (s *Server) handleSave(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}
	name := req.GetString("name", "")
	doc := req.GetString("document", "")
	if strings.TrimSpace(name) == "" || strings.TrimSpace(doc) == "" {
		return mcpgo.NewToolResultError("name and document are required"), nil
	}

	res, err := s.converter.Resolve([]byte(doc))
	if err != nil {
		return resolveErrorResult(err), nil
	}
	if res.Status != resolver.StatusDone {
		return mcpgo.NewToolResultErrorf("document still needs a decision: %s", res.Request.String()), nil
	}

	rec, err := models.NewSchemaRecord(uuid.NewString(), name, res.Schema, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("mcp: encoding schema: %w", err)
	}
	if err := s.st.SaveSchema(ctx, rec, res.Schema); err != nil {
		return mcpgo.NewToolResultErrorf("save failed: %s", err.Error()), nil
	}
	metrics.Inc(metrics.SchemasSaved)
	s.logger.Info("mcp: schema saved", "id", rec.ID, "tables", len(rec.Tables))

	return toolResultJSON(map[string]any{"id": rec.ID, "tables": rec.Tables})
}

func (s *Server) handleGet(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}
	id := req.GetString("id", "")
	if strings.TrimSpace(id) == "" {
		return mcpgo.NewToolResultError("id is required and must not be empty"), nil
	}
	rec, err := s.st.GetSchema(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcpgo.NewToolResultErrorf("schema %s not found", id), nil
		}
		return mcpgo.NewToolResultErrorf("get failed: %s", err.Error()), nil
	}
	return toolResultJSON(rec)
}

func (s *Server) handleStats(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}

	stats, err := s.st.Stats(ctx)
	if err != nil {
		return mcpgo.NewToolResultErrorf("stats failed: %s", err.Error()), nil
	}
	return toolResultJSON(stats)
}
