// Package model defines the workflow entities shared across the agent:
// projects, screenplays, shots, characters, scenes, and the pipeline
// stage/status enums pushed by the StoryForge backend.
package model

import "time"

// ProjectStatus is the lifecycle status of a project.
type ProjectStatus string

const (
	StatusCreated    ProjectStatus = "created"
	StatusProcessing ProjectStatus = "processing"
	StatusCompleted  ProjectStatus = "completed"
	StatusError      ProjectStatus = "error"
)

// Stage is a named step in the fixed pipeline order.
type Stage string

const (
	StageScriptInput          Stage = "script_input"
	StageScreenplayGeneration Stage = "screenplay_generation"
	StageShotDivision         Stage = "shot_division"
	StageProductionPlanning   Stage = "production_planning"
	StageCharacterDesign      Stage = "character_design"
	StageSceneGeneration      Stage = "scene_generation"
	StageVideoGeneration      Stage = "video_generation"
	StageFinalSynthesis       Stage = "final_synthesis"
	StageCompleted            Stage = "completed"
)

// NormalizeStage folds wire aliases into a canonical Stage. The backend has
// historically sent "input" for the first stage; any other value is kept
// verbatim, so a novel server stage survives a round trip through the store
// (the gate treats it as dashboard-only).
func NormalizeStage(s string) Stage {
	if Stage(s) == "input" {
		return StageScriptInput
	}
	return Stage(s)
}

// ProjectSettings holds the render settings chosen at creation time.
type ProjectSettings struct {
	Format         string  `json:"format,omitempty"`
	Resolution     string  `json:"resolution,omitempty"`
	AspectRatio    string  `json:"aspect_ratio,omitempty"`
	TargetDuration float64 `json:"target_duration,omitempty"`
}

// Project is the top-level unit of work for one script-to-video run.
type Project struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Status       ProjectStatus   `json:"status"`
	CurrentStage Stage           `json:"current_stage"`
	Settings     ProjectSettings `json:"settings"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Screenplay is one generated or merged script text for a project.
type Screenplay struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Content     string    `json:"content"`
	Version     int       `json:"version"`
	AgentName   string    `json:"agent_name"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Shot is one planned camera take within a shot-division batch.
type Shot struct {
	ID             string   `json:"id"`
	BatchID        string   `json:"batch_id,omitempty"`
	ShotNumber     int      `json:"shot_number"`
	Description    string   `json:"description"`
	CameraAngle    string   `json:"camera_angle,omitempty"`
	CameraMovement string   `json:"camera_movement,omitempty"`
	Duration       float64  `json:"duration"`
	Dialogue       string   `json:"dialogue,omitempty"`
	Action         string   `json:"action,omitempty"`
	Characters     []string `json:"characters,omitempty"`
	Location       string   `json:"location,omitempty"`
	TimeOfDay      string   `json:"time_of_day,omitempty"`
	LightingNotes  string   `json:"lighting_notes,omitempty"`
	Props          []string `json:"props,omitempty"`
}

// Character is a person extracted from the screenplay.
type Character struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Appearance  string `json:"appearance,omitempty"`
	Personality string `json:"personality,omitempty"`
	Role        string `json:"role,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// SceneStatus tracks scene image generation.
type SceneStatus string

const (
	ScenePending    SceneStatus = "pending"
	SceneGenerating SceneStatus = "generating"
	SceneCompleted  SceneStatus = "completed"
	SceneError      SceneStatus = "error"
)

// Scene is a generated image artifact associated with one shot.
type Scene struct {
	ID       string      `json:"id"`
	ShotID   string      `json:"shot_id"`
	Prompt   string      `json:"prompt,omitempty"`
	ImageURL string      `json:"image_url,omitempty"`
	Status   SceneStatus `json:"status"`
}

// ApprovalStatus mirrors the backend's approval queue states.
type ApprovalStatus string

const (
	ApprovalPending           ApprovalStatus = "pending"
	ApprovalApproved          ApprovalStatus = "approved"
	ApprovalRejected          ApprovalStatus = "rejected"
	ApprovalRevisionRequested ApprovalStatus = "revision_requested"
)

// Approval is a pending human review item owned by the backend.
type Approval struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	DataType  string         `json:"data_type"`
	Status    ApprovalStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
