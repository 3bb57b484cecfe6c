package api

import (
	"context"
	"net/http"
	"time"

	"github.com/storyforge-ai/workflow-agent/internal/model"
)

// TaskRef acknowledges backend-scheduled long-running work. Completion and
// progress arrive over the realtime channel, not this response.
type TaskRef struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// ScreenplayResult is the response to screenplay generation and merging.
type ScreenplayResult struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Screenplay  string    `json:"screenplay"`
	AgentUsed   string    `json:"agent_used"`
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ToModel converts the result into a store entity.
func (r *ScreenplayResult) ToModel() model.Screenplay {
	return model.Screenplay{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Content:     r.Screenplay,
		Version:     r.Version,
		AgentName:   r.AgentUsed,
		GeneratedAt: r.GeneratedAt,
	}
}

// GenerateScreenplay asks the named agent (e.g. "openai", "claude", "gemini",
// "GPT-4") to turn the uploaded script into a screenplay.
func (c *Client) GenerateScreenplay(ctx context.Context, projectID, agent string) (*ScreenplayResult, error) {
	body := map[string]string{"agent": agent}
	var res ScreenplayResult
	if err := c.doJSON(ctx, "generate screenplay", http.MethodPost,
		"/api/v1/projects/"+projectID+"/screenplay/generate", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MergeScreenplays merges the given screenplay versions into a new one.
func (c *Client) MergeScreenplays(ctx context.Context, projectID string, screenplayIDs []string) (*ScreenplayResult, error) {
	body := map[string][]string{"screenplay_ids": screenplayIDs}
	var res ScreenplayResult
	if err := c.doJSON(ctx, "merge screenplays", http.MethodPost,
		"/api/v1/projects/"+projectID+"/screenplay/merge", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SaveScreenplay persists edited screenplay content.
func (c *Client) SaveScreenplay(ctx context.Context, projectID, screenplayID string, patch model.ScreenplayPatch) error {
	return c.doJSON(ctx, "save screenplay", http.MethodPatch,
		"/api/v1/projects/"+projectID+"/screenplay/"+screenplayID, patch, nil)
}

// GenerateShotDivision schedules shot division for the selected screenplay.
func (c *Client) GenerateShotDivision(ctx context.Context, projectID, screenplayID string) (*TaskRef, error) {
	body := map[string]string{"screenplay_id": screenplayID}
	var ref TaskRef
	if err := c.doJSON(ctx, "generate shot division", http.MethodPost,
		"/api/v1/projects/"+projectID+"/shots/generate", body, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// ListShots fetches the current shot-division batch.
func (c *Client) ListShots(ctx context.Context, projectID string) ([]model.Shot, error) {
	var shots []model.Shot
	if err := c.doJSON(ctx, "list shots", http.MethodGet,
		"/api/v1/projects/"+projectID+"/shots", nil, &shots); err != nil {
		return nil, err
	}
	return shots, nil
}

// UpdateShot persists a partial shot edit and returns the updated shot.
func (c *Client) UpdateShot(ctx context.Context, projectID, shotID string, patch model.ShotPatch) (*model.Shot, error) {
	var shot model.Shot
	if err := c.doJSON(ctx, "update shot", http.MethodPatch,
		"/api/v1/projects/"+projectID+"/shots/"+shotID, patch, &shot); err != nil {
		return nil, err
	}
	return &shot, nil
}

// ExtractCharacters schedules character extraction from the screenplay.
func (c *Client) ExtractCharacters(ctx context.Context, projectID string) (*TaskRef, error) {
	var ref TaskRef
	if err := c.doJSON(ctx, "extract characters", http.MethodPost,
		"/api/v1/projects/"+projectID+"/characters/extract", nil, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// ListCharacters fetches the extracted characters for a project.
func (c *Client) ListCharacters(ctx context.Context, projectID string) ([]model.Character, error) {
	var chars []model.Character
	if err := c.doJSON(ctx, "list characters", http.MethodGet,
		"/api/v1/projects/"+projectID+"/characters", nil, &chars); err != nil {
		return nil, err
	}
	return chars, nil
}

// GenerateCharacterImage schedules reference image generation for a character.
func (c *Client) GenerateCharacterImage(ctx context.Context, projectID, characterID string) (*TaskRef, error) {
	var ref TaskRef
	if err := c.doJSON(ctx, "generate character image", http.MethodPost,
		"/api/v1/projects/"+projectID+"/characters/"+characterID+"/image", nil, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// GenerateScenes schedules scene image generation for all shots.
func (c *Client) GenerateScenes(ctx context.Context, projectID string) (*TaskRef, error) {
	var ref TaskRef
	if err := c.doJSON(ctx, "generate scenes", http.MethodPost,
		"/api/v1/projects/"+projectID+"/scenes/generate", nil, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// ListScenes fetches the scene collection.
func (c *Client) ListScenes(ctx context.Context, projectID string) ([]model.Scene, error) {
	var scenes []model.Scene
	if err := c.doJSON(ctx, "list scenes", http.MethodGet,
		"/api/v1/projects/"+projectID+"/scenes", nil, &scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

// RegenerateScene schedules a regeneration of one scene image.
func (c *Client) RegenerateScene(ctx context.Context, projectID, sceneID string) (*TaskRef, error) {
	var ref TaskRef
	if err := c.doJSON(ctx, "regenerate scene", http.MethodPost,
		"/api/v1/projects/"+projectID+"/scenes/"+sceneID+"/regenerate", nil, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// VideoStatus is the polled status of video rendering.
type VideoStatus struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	VideoURL string  `json:"video_url,omitempty"`
}

// GenerateVideo schedules the final video render.
func (c *Client) GenerateVideo(ctx context.Context, projectID string) (*TaskRef, error) {
	var ref TaskRef
	if err := c.doJSON(ctx, "generate video", http.MethodPost,
		"/api/v1/projects/"+projectID+"/video/generate", nil, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// GetVideoStatus polls the video render status.
func (c *Client) GetVideoStatus(ctx context.Context, projectID string) (*VideoStatus, error) {
	var vs VideoStatus
	if err := c.doJSON(ctx, "get video status", http.MethodGet,
		"/api/v1/projects/"+projectID+"/video/status", nil, &vs); err != nil {
		return nil, err
	}
	return &vs, nil
}

// ProductionPlan is the backend-generated production planning document.
type ProductionPlan struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Content   map[string]any `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

// GenerateProductionPlan schedules production plan generation.
func (c *Client) GenerateProductionPlan(ctx context.Context, projectID string) (*TaskRef, error) {
	var ref TaskRef
	if err := c.doJSON(ctx, "generate production plan", http.MethodPost,
		"/api/v1/projects/"+projectID+"/production-plan/generate", nil, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// GetProductionPlan fetches the current production plan.
func (c *Client) GetProductionPlan(ctx context.Context, projectID string) (*ProductionPlan, error) {
	var plan ProductionPlan
	if err := c.doJSON(ctx, "get production plan", http.MethodGet,
		"/api/v1/projects/"+projectID+"/production-plan", nil, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}
