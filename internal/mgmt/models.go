package mgmt

import (
	"github.com/storyforge-ai/workflow-agent/internal/model"
	"github.com/storyforge-ai/workflow-agent/internal/notify"
	"github.com/storyforge-ai/workflow-agent/internal/workflow"
)

// WorkflowResponse is the response for GET /api/v1/workflow: a consistent
// snapshot of the open project and its artifacts.
type WorkflowResponse struct {
	workflow.Snapshot
	SelectedScreenplay *model.Screenplay `json:"selected_screenplay"`
	Screens            []workflow.Screen `json:"screens"`
}

// StagesResponse is the response for GET /api/v1/workflow/stages.
type StagesResponse struct {
	CurrentStage model.Stage              `json:"current_stage"`
	Position     int                      `json:"position"`
	Reachable    map[workflow.Screen]bool `json:"reachable"`
}

// NoticesResponse is the response for GET /api/v1/notices.
type NoticesResponse struct {
	Notices    []notify.Notice    `json:"notices"`
	Indicators []notify.Indicator `json:"indicators"`
	LastError  string             `json:"last_error,omitempty"`
}

// OpenProjectRequest is the payload for POST /api/v1/projects/open.
type OpenProjectRequest struct {
	ProjectID string `json:"project_id"`
}

// GenerateScreenplayRequest is the payload for POST /api/v1/workflow/screenplay.
type GenerateScreenplayRequest struct {
	Agent string `json:"agent"`
}

// TaskAcceptedResponse acknowledges a scheduled backend task.
type TaskAcceptedResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// HealthDetailResponse is the response for GET /api/v1/health.
type HealthDetailResponse struct {
	Status       string            `json:"status"`
	Integrations map[string]string `json:"integrations"`
	Uptime       string            `json:"uptime"`
	Version      string            `json:"version"`
}

// ConfigResponse is the response for GET /api/v1/config.
type ConfigResponse struct {
	Environment    string `json:"environment"`
	LogLevel       string `json:"log_level"`
	APIBaseURL     string `json:"api_base_url"`
	RealtimeURL    string `json:"realtime_url"`
	MgmtListenAddr string `json:"mgmt_listen_addr"`
	RateLimitRPS   int    `json:"rate_limit_rps"`
	RateLimitBurst int    `json:"rate_limit_burst"`
	AuthMode       string `json:"auth_mode"`
}

// ConfigPatchRequest is the payload for PATCH /api/v1/config.
type ConfigPatchRequest struct {
	LogLevel     *string `json:"log_level,omitempty"`
	RateLimitRPS *int    `json:"rate_limit_rps,omitempty"`
}

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}
