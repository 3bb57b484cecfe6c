package realtime

import (
	"encoding/json"

	"github.com/storyforge-ai/workflow-agent/internal/model"
)

// Fixed progress indicator ids, so repeated progress events update one
// indicator in place instead of stacking new ones.
const (
	IndicatorSceneGeneration = "scene-generation"
	IndicatorVideoGeneration = "video-generation"
)

// Server event names.
const (
	EventProjectUpdated          = "project_updated"
	EventScreenplayGenerated     = "screenplay_generated"
	EventShotDivisionCompleted   = "shot_division_completed"
	EventCharactersExtracted     = "characters_extracted"
	EventSceneGenerated          = "scene_generated"
	EventSceneGenerationProgress = "scene_generation_progress"
	EventVideoGenerationStarted  = "video_generation_started"
	EventVideoGenerationProgress = "video_generation_progress"
	EventVideoGenerationDone     = "video_generation_completed"
	EventError                   = "error"
)

type eventHandler func(data json.RawMessage) error

// eventTable is the declarative event → handler mapping. Handlers are
// invoked in delivery order; each one is testable in isolation with a
// synthetic payload.
func (c *Channel) eventTable() map[string]eventHandler {
	return map[string]eventHandler{
		EventProjectUpdated:          c.onProjectUpdated,
		EventScreenplayGenerated:     c.onScreenplayGenerated,
		EventShotDivisionCompleted:   c.onShotDivisionCompleted,
		EventCharactersExtracted:     c.onCharactersExtracted,
		EventSceneGenerated:          c.onSceneGenerated,
		EventSceneGenerationProgress: c.onSceneGenerationProgress,
		EventVideoGenerationStarted:  c.onVideoGenerationStarted,
		EventVideoGenerationProgress: c.onVideoGenerationProgress,
		EventVideoGenerationDone:     c.onVideoGenerationCompleted,
		EventError:                   c.onError,
	}
}

// dispatch parses a wire frame and runs its handler. Events are applied in
// delivery order; no reordering or batching happens on the client.
func (c *Channel) dispatch(msg []byte) {
	var f frame
	if err := json.Unmarshal(msg, &f); err != nil {
		c.logger.Warn().Err(err).Msg("unparseable realtime frame")
		return
	}

	handler, ok := c.handlers[f.Event]
	if !ok {
		c.logger.Debug().Str("event", f.Event).Msg("unhandled realtime event")
		return
	}

	if err := handler(f.Data); err != nil {
		c.logger.Warn().Err(err).Str("event", f.Event).Msg("event handler failed")
		return
	}
	c.metrics.RecordEvent(f.Event)
}

// --- payloads and handlers ---

type projectUpdatedPayload struct {
	ProjectID string             `json:"project_id"`
	Updates   model.ProjectPatch `json:"updates"`
}

func (c *Channel) onProjectUpdated(data json.RawMessage) error {
	var p projectUpdatedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	c.store.UpdateProject(p.ProjectID, p.Updates)
	return nil
}

type screenplayGeneratedPayload struct {
	ProjectID  string             `json:"project_id"`
	Screenplay model.Screenplay   `json:"screenplay"`
	Updates    model.ProjectPatch `json:"updates"`
}

func (c *Channel) onScreenplayGenerated(data json.RawMessage) error {
	var p screenplayGeneratedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	c.store.AddScreenplay(p.Screenplay)
	if !p.Updates.IsZero() {
		c.store.UpdateProject(p.ProjectID, p.Updates)
	}
	c.notices.Success("Screenplay generated by " + p.Screenplay.AgentName)
	return nil
}

type shotDivisionCompletedPayload struct {
	ProjectID string             `json:"project_id"`
	Shots     []model.Shot       `json:"shots"`
	Updates   model.ProjectPatch `json:"updates"`
}

func (c *Channel) onShotDivisionCompleted(data json.RawMessage) error {
	var p shotDivisionCompletedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	c.store.SetShots(p.Shots)

	// The event handler owns advancing current_stage so the stage field and
	// the artifacts it implies stay consistent.
	updates := p.Updates
	if updates.CurrentStage == nil {
		updates.CurrentStage = model.Ptr(model.StageShotDivision)
	}
	c.store.UpdateProject(p.ProjectID, updates)
	c.notices.Success("Shot division completed")
	return nil
}

type charactersExtractedPayload struct {
	ProjectID  string             `json:"project_id"`
	Characters []model.Character  `json:"characters"`
	Updates    model.ProjectPatch `json:"updates"`
}

func (c *Channel) onCharactersExtracted(data json.RawMessage) error {
	var p charactersExtractedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	c.store.SetCharacters(p.Characters)
	if !p.Updates.IsZero() {
		c.store.UpdateProject(p.ProjectID, p.Updates)
	}
	return nil
}

type sceneGeneratedPayload struct {
	ProjectID string           `json:"project_id"`
	SceneID   string           `json:"scene_id"`
	Scene     model.ScenePatch `json:"scene"`
}

func (c *Channel) onSceneGenerated(data json.RawMessage) error {
	var p sceneGeneratedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	c.store.UpdateScene(p.SceneID, p.Scene)
	return nil
}

type progressPayload struct {
	ProjectID string `json:"project_id"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

func (c *Channel) onSceneGenerationProgress(data json.RawMessage) error {
	var p progressPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Total > 0 && p.Completed >= p.Total {
		c.notices.Complete(IndicatorSceneGeneration, "Scene generation completed")
		return nil
	}
	c.notices.Progress(IndicatorSceneGeneration, "Generating scenes", p.Completed, p.Total)
	return nil
}

type videoEventPayload struct {
	ProjectID string             `json:"project_id"`
	Updates   model.ProjectPatch `json:"updates"`
	Progress  int                `json:"progress"`
}

func (c *Channel) onVideoGenerationStarted(data json.RawMessage) error {
	var p videoEventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if !p.Updates.IsZero() {
		c.store.UpdateProject(p.ProjectID, p.Updates)
	}
	c.notices.Progress(IndicatorVideoGeneration, "Rendering video", 0, 100)
	return nil
}

func (c *Channel) onVideoGenerationProgress(data json.RawMessage) error {
	var p videoEventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if !p.Updates.IsZero() {
		c.store.UpdateProject(p.ProjectID, p.Updates)
	}
	c.notices.Progress(IndicatorVideoGeneration, "Rendering video", p.Progress, 100)
	return nil
}

func (c *Channel) onVideoGenerationCompleted(data json.RawMessage) error {
	var p videoEventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	updates := p.Updates
	if updates.CurrentStage == nil {
		updates.CurrentStage = model.Ptr(model.StageCompleted)
	}
	if updates.Status == nil {
		updates.Status = model.Ptr(model.StatusCompleted)
	}
	c.store.UpdateProject(p.ProjectID, updates)
	c.notices.Complete(IndicatorVideoGeneration, "Video generation completed")
	return nil
}

type errorPayload struct {
	ProjectID string `json:"project_id"`
	Message   string `json:"message"`
}

func (c *Channel) onError(data json.RawMessage) error {
	var p errorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	msg := p.Message
	if msg == "" {
		msg = "The backend reported an error"
	}
	// Application-level error: surfaced, but the connection stays up.
	c.notices.Error(msg)
	return nil
}
