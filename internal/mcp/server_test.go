package mcp_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/erschema/internal/advisor"
	"github.com/ajitpratap0/erschema/internal/mcp"
	"github.com/ajitpratap0/erschema/internal/store"
)

const twoKeyDoc = `<er>
  <entity id="1" name="Student"><attribute id="1" name="sid"/><attribute id="2" name="email"/><key>1</key><key>2</key></entity>
</er>`

func newTestServer(t *testing.T, st store.Store) *mcp.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return mcp.NewServer(st, advisor.DefaultAdvisor{}, logger, 0)
}

func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	var req mcpgo.CallToolRequest
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent")
	return tc.Text
}

func TestNewServer_ReturnsMCPServer(t *testing.T) {
	assert.NotNil(t, newTestServer(t, nil).MCPServer())
}

func TestHandleResolve(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	result, err := srv.HandleResolve(ctx, makeReq("resolve_schema", map[string]any{"document": twoKeyDoc}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, "paused", out["status"])
	assert.Equal(t, "Student", out["request"].(map[string]any)["table_name"])

	result, err = srv.HandleResolve(ctx, makeReq("resolve_schema", map[string]any{"document": twoKeyDoc, "auto": true}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, "done", out["status"])
}

func TestHandleResolve_Errors(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	result, err := srv.HandleResolve(ctx, makeReq("resolve_schema", map[string]any{"document": "  "}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.HandleResolve(ctx, makeReq("resolve_schema", map[string]any{
		"document": `<er><entity id="1" name="Orphan"/></er>`,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "kind=no_primary_key node=Orphan")
}

func TestHandleDecision(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	result, err := srv.HandleDecision(ctx, makeReq("apply_decision", map[string]any{
		"document":   twoKeyDoc,
		"kind":       "key_selected",
		"table_name": "Student",
		"index":      float64(1),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))

	var out struct {
		Status string `json:"status"`
		Schema map[string]struct {
			PrimaryKey []string `json:"primary_key"`
		} `json:"schema"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, "done", out.Status)
	assert.Equal(t, []string{"email"}, out.Schema["Student"].PrimaryKey)

	result, err = srv.HandleDecision(ctx, makeReq("apply_decision", map[string]any{
		"document": twoKeyDoc,
		"kind":     "bogus",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.HandleDecision(ctx, makeReq("apply_decision", map[string]any{
		"document":   twoKeyDoc,
		"kind":       "merge_chosen",
		"merge_from": "Nothing",
		"merge_to":   "Student",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "kind=invalid_decision")
}

func TestHandleSaveAndGet(t *testing.T) {
	st := store.NewMockStore()
	srv := newTestServer(t, st)
	ctx := context.Background()

	result, err := srv.HandleSave(ctx, makeReq("save_schema", map[string]any{"name": "school", "document": twoKeyDoc}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "still needs a decision")

	single := `<er><entity id="1" name="Student"><attribute id="1" name="sid"/><key>1</key></entity></er>`
	result, err = srv.HandleSave(ctx, makeReq("save_schema", map[string]any{"name": "school", "document": single}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))

	var saved struct {
		ID     string   `json:"id"`
		Tables []string `json:"tables"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &saved))
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, []string{"Student"}, saved.Tables)

	result, err = srv.HandleGet(ctx, makeReq("get_schema", map[string]any{"id": saved.ID}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, textContent(t, result), `"name":"school"`)

	result, err = srv.HandleGet(ctx, makeReq("get_schema", map[string]any{"id": "missing"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.HandleStats(ctx, makeReq("stats", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.JSONEq(t, `{"total_schemas":1,"total_tables":1}`, textContent(t, result))
}

func TestStoreTools_NilStore(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	for _, call := range []func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error){
		srv.HandleSave, srv.HandleGet, srv.HandleStats,
	} {
		result, err := call(ctx, makeReq("x", map[string]any{"id": "a", "name": "a", "document": "<er/>"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	}
}
