package api

import (
	"context"
	"net/http"

	"github.com/storyforge-ai/workflow-agent/internal/model"
)

// CreateApprovalRequest is the payload for CreateApproval.
type CreateApprovalRequest struct {
	ProjectID string `json:"project_id"`
	DataType  string `json:"data_type"` // shot_division, characters, production_plan, project_summary
	Payload   any    `json:"payload,omitempty"`
}

// CreateApproval submits an artifact for human review.
func (c *Client) CreateApproval(ctx context.Context, req CreateApprovalRequest) (*model.Approval, error) {
	var a model.Approval
	if err := c.doJSON(ctx, "create approval", http.MethodPost, "/api/v1/approvals", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListApprovals lists approvals for a project.
func (c *Client) ListApprovals(ctx context.Context, projectID string) ([]model.Approval, error) {
	var approvals []model.Approval
	if err := c.doJSON(ctx, "list approvals", http.MethodGet,
		"/api/v1/projects/"+projectID+"/approvals", nil, &approvals); err != nil {
		return nil, err
	}
	return approvals, nil
}

// RespondApproval records a review decision.
func (c *Client) RespondApproval(ctx context.Context, approvalID string, status model.ApprovalStatus, notes string) (*model.Approval, error) {
	body := map[string]string{"status": string(status), "notes": notes}
	var a model.Approval
	if err := c.doJSON(ctx, "respond approval", http.MethodPost,
		"/api/v1/approvals/"+approvalID+"/respond", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
