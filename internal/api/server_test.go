package api_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/erschema/internal/advisor"
	"github.com/ajitpratap0/erschema/internal/api"
	"github.com/ajitpratap0/erschema/internal/converter"
	"github.com/ajitpratap0/erschema/internal/models"
	"github.com/ajitpratap0/erschema/internal/store"
)

const simpleDoc = `<er>
  <entity id="1" name="Student"><attribute id="1" name="sid"/><key>1</key></entity>
  <entity id="2" name="Course"><attribute id="1" name="cid"/><key>1</key></entity>
  <relationship id="1" name="Enrollment"><attribute id="1" entity_id="1"/><attribute id="2" entity_id="2"/></relationship>
</er>`

const twoKeyDoc = `<er>
  <entity id="1" name="Student"><attribute id="1" name="sid"/><attribute id="2" name="email"/><key>1</key><key>2</key></entity>
</er>`

// newTestServer creates a test HTTP server backed by a MockStore.
func newTestServer(t *testing.T, authToken string) (*httptest.Server, *store.MockStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	st := store.NewMockStore()
	srv := api.NewServer(st, converter.New(logger), advisor.DefaultAdvisor{}, logger, api.Options{AuthToken: authToken})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, "secret")
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAuth(t *testing.T) {
	ts, _ := newTestServer(t, "secret")
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/resolve", "", map[string]string{"document": simpleDoc})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/resolve", "wrong", map[string]string{"document": simpleDoc})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/resolve", "secret", map[string]string{"document": simpleDoc})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestResolve(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/resolve", "", map[string]string{"document": simpleDoc})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "done", body["status"])
	schema, ok := body["schema"].(map[string]any)
	require.True(t, ok)
	enrollment := schema["Enrollment"].(map[string]any)
	assert.Equal(t, []any{"Student_sid", "Course_cid"}, enrollment["primary_key"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/v1/resolve", "", map[string]string{"document": twoKeyDoc})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "paused", body["status"])
	request := body["request"].(map[string]any)
	assert.Equal(t, "choose_key", request["kind"])
	assert.Equal(t, []any{"(sid)", "(email)"}, request["options"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/v1/resolve", "", map[string]any{"document": twoKeyDoc, "auto": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "done", body["status"])
	assert.Len(t, body["decisions"], 1)
}

func TestResolve_BadInput(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/resolve", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/resolve", "", map[string]string{
		"document": `<er><entity id="1" name="Orphan"/></er>`,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "no_primary_key", body["kind"])
	assert.Equal(t, "Orphan", body["node"])
}

func TestDecision(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/decisions", "", map[string]any{
		"document": twoKeyDoc,
		"decision": models.KeySelected("Student", 1),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "done", body["status"])
	assert.Contains(t, body["document"], "<uniqueKey>1</uniqueKey>")
	student := body["schema"].(map[string]any)["Student"].(map[string]any)
	assert.Equal(t, []any{"email"}, student["primary_key"])
	assert.Equal(t, []any{[]any{"sid"}}, student["unique"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/v1/decisions", "", map[string]any{
		"document": twoKeyDoc,
		"decision": models.KeySelected("Student", 5),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "invalid_decision", body["kind"])
}

func TestSchemas(t *testing.T) {
	ts, st := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/schemas", "", map[string]string{"name": "school", "document": twoKeyDoc})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "paused", body["status"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/v1/schemas", "", map[string]string{"name": "school", "document": simpleDoc})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, []any{"Student", "Course", "Enrollment"}, body["tables"])

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/schemas/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "school", body["name"])
	assert.Contains(t, body["schema"], "Enrollment")

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/schemas?limit=10", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["schemas"], 1)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/schemas?limit=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total_schemas"])
	assert.Equal(t, float64(3), body["total_tables"])

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/v1/schemas/"+id, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/schemas/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/v1/schemas/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	stats, err := st.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalSchemas)
}
