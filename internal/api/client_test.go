package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/storyforge-ai/workflow-agent/internal/errors"
	"github.com/storyforge-ai/workflow-agent/internal/metrics"
	"github.com/storyforge-ai/workflow-agent/internal/model"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, 5*time.Second, zerolog.Nop())
	client.SetHTTPClient(server.Client())
	return client, server
}

func TestClient_CreateProject(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/projects", r.URL.Path)

		var req CreateProjectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Heist Movie", req.Name)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.Project{
			ID:           "p1",
			Name:         req.Name,
			Status:       model.StatusCreated,
			CurrentStage: model.StageScriptInput,
		})
	})

	p, err := client.CreateProject(context.Background(), CreateProjectRequest{Name: "Heist Movie"})
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, model.StageScriptInput, p.CurrentStage)
}

func TestClient_GetProject_NotFound(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "project not found"})
	})

	_, err := client.GetProject(context.Background(), "nope")
	require.Error(t, err)
	assert.False(t, perrors.IsNetwork(err))
	assert.Equal(t, "project not found", perrors.ServerMessage(err))
	assert.Contains(t, err.Error(), "404")
}

func TestClient_ServerError_NoMessage(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("not even json"))
	})

	_, err := client.ListProjects(context.Background())
	require.Error(t, err)
	// No server-supplied message; the generic form is used.
	assert.Equal(t, "", perrors.ServerMessage(err))
	assert.Contains(t, err.Error(), "request failed")
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client := NewClient(server.URL, time.Second, zerolog.Nop())
	server.Close() // force connection refused

	_, err := client.GetProject(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, perrors.IsNetwork(err))
}

func TestClient_ErrorMessageVariants(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"fastapi detail", `{"detail":"bad input"}`, "bad input"},
		{"error field", `{"error":"broken"}`, "broken"},
		{"message field", `{"message":"nope"}`, "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			})
			_, err := client.GetProject(context.Background(), "p1")
			require.Error(t, err)
			assert.Equal(t, tt.want, perrors.ServerMessage(err))
		})
	}
}

func TestClient_UpdateProject_SendsPatch(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		body, _ := io.ReadAll(r.Body)
		// Only set fields travel; nil pointers are omitted.
		assert.JSONEq(t, `{"name":"Renamed"}`, string(body))
		json.NewEncoder(w).Encode(model.Project{ID: "p1", Name: "Renamed"})
	})

	p, err := client.UpdateProject(context.Background(), "p1", model.ProjectPatch{Name: model.Ptr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)
}

func TestClient_UploadScript_Multipart(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/projects/p1/script", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "script.txt", header.Filename)
		content, _ := io.ReadAll(file)
		assert.Equal(t, "INT. ROOM - NIGHT", string(content))

		json.NewEncoder(w).Encode(UploadScriptResult{ProjectID: "p1", Filename: "script.txt"})
	})

	res, err := client.UploadScript(context.Background(), "p1", "script.txt",
		strings.NewReader("INT. ROOM - NIGHT"))
	require.NoError(t, err)
	assert.Equal(t, "p1", res.ProjectID)
}

func TestClient_ExtractText(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/projects/p1/script/extract", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"text": "INT. ROOM..."})
	})

	text, err := client.ExtractText(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "INT. ROOM...", text)
}

func TestClient_GenerateScreenplay(t *testing.T) {
	generatedAt := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/projects/p1/screenplay/generate", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "GPT-4", body["agent"])

		json.NewEncoder(w).Encode(ScreenplayResult{
			ID:          "sp1",
			ProjectID:   "p1",
			Screenplay:  "FADE IN...",
			AgentUsed:   "GPT-4",
			Version:     1,
			GeneratedAt: generatedAt,
		})
	})

	res, err := client.GenerateScreenplay(context.Background(), "p1", "GPT-4")
	require.NoError(t, err)

	sp := res.ToModel()
	assert.Equal(t, "GPT-4", sp.AgentName)
	assert.Equal(t, "FADE IN...", sp.Content)
	assert.Equal(t, generatedAt, sp.GeneratedAt)
}

func TestClient_ShotOps(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode([]model.Shot{
				{ID: "s1", ShotNumber: 1},
				{ID: "s2", ShotNumber: 2},
			})
		case r.Method == http.MethodPatch:
			assert.Equal(t, "/api/v1/projects/p1/shots/s2", r.URL.Path)
			json.NewEncoder(w).Encode(model.Shot{ID: "s2", ShotNumber: 2, Dialogue: "Go, go!"})
		}
	})

	shots, err := client.ListShots(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, shots, 2)

	shot, err := client.UpdateShot(context.Background(), "p1", "s2",
		model.ShotPatch{Dialogue: model.Ptr("Go, go!")})
	require.NoError(t, err)
	assert.Equal(t, "Go, go!", shot.Dialogue)
}

func TestClient_TaskScheduling(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(TaskRef{TaskID: "t1", Status: "queued"})
	})

	ref, err := client.GenerateShotDivision(context.Background(), "p1", "sp1")
	require.NoError(t, err)
	assert.Equal(t, "t1", ref.TaskID)

	ref, err = client.ExtractCharacters(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "queued", ref.Status)

	_, err = client.GenerateScenes(context.Background(), "p1")
	require.NoError(t, err)

	_, err = client.GenerateVideo(context.Background(), "p1")
	require.NoError(t, err)
}

func TestClient_Exports(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/projects/p1/exports":
			json.NewEncoder(w).Encode(ExportJob{ID: "e1", ProjectID: "p1", Format: "pdf", Status: "queued"})
		case "/api/v1/exports/e1":
			json.NewEncoder(w).Encode(ExportJob{ID: "e1", Status: "completed"})
		case "/api/v1/exports/e1/download":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write([]byte("%PDF-1.4 fake"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	job, err := client.CreateExport(context.Background(), "p1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "queued", job.Status)

	job, err = client.GetExport(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "completed", job.Status)

	rc, err := client.DownloadExport(context.Background(), "e1")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestClient_Approvals(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/approvals":
			json.NewEncoder(w).Encode(model.Approval{ID: "a1", Status: model.ApprovalPending})
		case strings.HasSuffix(r.URL.Path, "/respond"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "approved", body["status"])
			json.NewEncoder(w).Encode(model.Approval{ID: "a1", Status: model.ApprovalApproved})
		default:
			json.NewEncoder(w).Encode([]model.Approval{{ID: "a1"}})
		}
	})

	a, err := client.CreateApproval(context.Background(), CreateApprovalRequest{ProjectID: "p1", DataType: "shot_division"})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalPending, a.Status)

	list, err := client.ListApprovals(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	a, err = client.RespondApproval(context.Background(), "a1", model.ApprovalApproved, "looks good")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, a.Status)
}

func TestClient_RecordsMetricsPerOperation(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/projects":
			json.NewEncoder(w).Encode([]model.Project{})
		case "/api/v1/exports/e1/download":
			w.Write([]byte("bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "project not found"})
		}
	})
	m := metrics.New()
	client.SetMetrics(m)

	_, err := client.ListProjects(context.Background())
	require.NoError(t, err)

	rc, err := client.DownloadExport(context.Background(), "e1")
	require.NoError(t, err)
	rc.Close()

	_, err = client.GetProject(context.Background(), "missing")
	require.Error(t, err)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	body := rec.Body.String()

	assert.Contains(t, body, `workflow_api_requests_total{operation="list projects",outcome="ok"} 1`)
	assert.Contains(t, body, `workflow_api_requests_total{operation="download export",outcome="ok"} 1`)
	assert.Contains(t, body, `workflow_api_requests_total{operation="get project",outcome="api_error"} 1`)
	assert.Contains(t, body, `workflow_api_request_duration_seconds_count{operation="download export"} 1`)
}

func TestClient_Ping(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	assert.NoError(t, client.Ping(context.Background()))
}
