package runtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*gin.Engine, *App) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	echo := &fakeStep{
		id: "echo",
		execute: func(_ *Execution, input map[string]any) StepResult {
			wfInput, _ := input[InputKey].(map[string]any)
			return Succeed(map[string]any{"echo": wfInput["message"]})
		},
	}

	registry := NewRegistry()
	require.NoError(t, registry.Register(echo))

	l := testLogger()
	orchestrator := NewOrchestrator(l, registry, NewEngine(l), nil)

	app, err := NewApp(t.TempDir(), registry, orchestrator, nil, nil)
	require.NoError(t, err)
	require.NoError(t, app.RegisterDefinition(&WorkflowDefinition{
		ID:    "echo-flow",
		Steps: []StepDefinition{{ID: "echo"}},
	}))

	g := gin.New()
	RegisterRoutes(g, app, l)
	return g, app
}

func waitTerminal(t *testing.T, app *App, id WorkflowID) RunStatus {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, err := app.Status(id)
		require.NoError(t, err)
		if status.State.IsTerminal() {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal state")
	return RunStatus{}
}

func TestStartRun(t *testing.T) {
	g, app := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/workflows/echo-flow/runs",
		strings.NewReader(`{"message": "hello"}`))
	req.Header.Set("Content-Type", "application/json")
	g.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body["workflow_id"])

	status := waitTerminal(t, app, WorkflowID(body["workflow_id"]))
	assert.Equal(t, StateCompleted, status.State)
	assert.Equal(t, "hello", status.Outputs["echo"]["echo"])
}

func TestStartRunWithoutBody(t *testing.T) {
	g, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/workflows/echo-flow/runs", nil)
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestStartRunUnknownDefinition(t *testing.T) {
	g, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/workflows/nope/runs", nil)
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartRunInvalidJSON(t *testing.T) {
	g, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/workflows/echo-flow/runs",
		strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunStatusEndpoint(t *testing.T) {
	g, app := newTestServer(t)

	id, err := app.Start(nil, "echo-flow", map[string]any{"message": "hi"})
	require.NoError(t, err)
	waitTerminal(t, app, id)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/runs/"+string(id), nil)
	g.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status RunStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, StateCompleted, status.State)
	assert.Equal(t, id, status.WorkflowID)
}

func TestRunStatusUnknownID(t *testing.T) {
	g, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/runs/nope", nil)
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
