package api

import (
	"context"
	"net/http"

	"github.com/storyforge-ai/workflow-agent/internal/model"
)

// CreateProjectRequest is the payload for CreateProject.
type CreateProjectRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Settings    model.ProjectSettings `json:"settings,omitempty"`
}

// CreateProject creates a new project.
func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (*model.Project, error) {
	var p model.Project
	if err := c.doJSON(ctx, "create project", http.MethodPost, "/api/v1/projects", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProject fetches a project by id.
func (c *Client) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	if err := c.doJSON(ctx, "get project", http.MethodGet, "/api/v1/projects/"+id, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects fetches all projects.
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := c.doJSON(ctx, "list projects", http.MethodGet, "/api/v1/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// UpdateProject applies a partial update server-side and returns the updated
// project.
func (c *Client) UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (*model.Project, error) {
	var p model.Project
	if err := c.doJSON(ctx, "update project", http.MethodPatch, "/api/v1/projects/"+id, patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject deletes a project.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete project", http.MethodDelete, "/api/v1/projects/"+id, nil, nil)
}
