// Package session coordinates the client-side action paths: it drives the
// remote service facade, applies results to the workflow store, and keeps the
// realtime channel bound to the open project.
package session

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/storyforge-ai/workflow-agent/internal/api"
	perrors "github.com/storyforge-ai/workflow-agent/internal/errors"
	"github.com/storyforge-ai/workflow-agent/internal/model"
	"github.com/storyforge-ai/workflow-agent/internal/notify"
	"github.com/storyforge-ai/workflow-agent/internal/retry"
	"github.com/storyforge-ai/workflow-agent/internal/workflow"
)

// Backend is the slice of the remote facade the coordinator drives.
// *api.Client satisfies it.
type Backend interface {
	CreateProject(ctx context.Context, req api.CreateProjectRequest) (*model.Project, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	DeleteProject(ctx context.Context, id string) error

	UploadScript(ctx context.Context, projectID, filename string, r io.Reader) (*api.UploadScriptResult, error)
	ExtractText(ctx context.Context, projectID string) (string, error)

	GenerateScreenplay(ctx context.Context, projectID, agent string) (*api.ScreenplayResult, error)
	MergeScreenplays(ctx context.Context, projectID string, screenplayIDs []string) (*api.ScreenplayResult, error)
	SaveScreenplay(ctx context.Context, projectID, screenplayID string, patch model.ScreenplayPatch) error

	GenerateShotDivision(ctx context.Context, projectID, screenplayID string) (*api.TaskRef, error)
	ListShots(ctx context.Context, projectID string) ([]model.Shot, error)
	UpdateShot(ctx context.Context, projectID, shotID string, patch model.ShotPatch) (*model.Shot, error)

	ExtractCharacters(ctx context.Context, projectID string) (*api.TaskRef, error)
	GenerateScenes(ctx context.Context, projectID string) (*api.TaskRef, error)
	ListScenes(ctx context.Context, projectID string) ([]model.Scene, error)
	RegenerateScene(ctx context.Context, projectID, sceneID string) (*api.TaskRef, error)
	GenerateVideo(ctx context.Context, projectID string) (*api.TaskRef, error)
	ListCharacters(ctx context.Context, projectID string) ([]model.Character, error)
}

// EventChannel is the realtime channel surface the coordinator controls.
// *realtime.Channel satisfies it.
type EventChannel interface {
	Connect(ctx context.Context, projectID string) error
	Disconnect()
}

// Coordinator ties the facade, store, notices and realtime channel together.
// All methods are safe for concurrent use; shared state lives in the store.
type Coordinator struct {
	backend  Backend
	channel  EventChannel
	store    *workflow.Store
	notices  *notify.Center
	logger   zerolog.Logger
	retryCfg retry.Config
}

// New creates a coordinator.
func New(backend Backend, channel EventChannel, store *workflow.Store, notices *notify.Center, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		backend:  backend,
		channel:  channel,
		store:    store,
		notices:  notices,
		logger:   logger.With().Str("component", "session").Logger(),
		retryCfg: retry.DefaultConfig(),
	}
}

// errMessage picks the user-facing message for a failed backend call: the
// server-supplied detail when present, the raw error otherwise.
func errMessage(err error) string {
	if msg := perrors.ServerMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}

// currentProjectID returns the open project's id or ErrNotFound.
func (co *Coordinator) currentProjectID() (string, error) {
	p := co.store.CurrentProject()
	if p == nil {
		return "", fmt.Errorf("no open project: %w", perrors.ErrNotFound)
	}
	return p.ID, nil
}

// staleGuard captures the store generation at request time. A response that
// lands after the open project changed must be dropped, not applied.
func (co *Coordinator) staleGuard() func() bool {
	gen := co.store.Generation()
	return func() bool { return co.store.Generation() != gen }
}

// CreateProject creates a project on the backend and opens it.
func (co *Coordinator) CreateProject(ctx context.Context, req api.CreateProjectRequest) (*model.Project, error) {
	p, err := co.backend.CreateProject(ctx, req)
	if err != nil {
		co.notices.Error(errMessage(err))
		return nil, err
	}
	co.store.AddProject(*p)
	if err := co.open(ctx, p); err != nil {
		return nil, err
	}
	co.notices.Success("Project created: " + p.Name)
	return p, nil
}

// OpenProject fetches the project, hydrates the store and connects the
// realtime channel. Transient fetch failures are retried with backoff.
func (co *Coordinator) OpenProject(ctx context.Context, id string) error {
	var p *model.Project
	err := retry.Do(ctx, co.retryCfg, "open project", func(ctx context.Context) error {
		var err error
		p, err = co.backend.GetProject(ctx, id)
		return err
	})
	if err != nil {
		co.notices.Error(errMessage(err))
		return err
	}
	return co.open(ctx, p)
}

func (co *Coordinator) open(ctx context.Context, p *model.Project) error {
	co.store.SetCurrentProject(p)

	// Artifact hydration is best effort: missing collections just leave the
	// store sections empty.
	if shots, err := co.backend.ListShots(ctx, p.ID); err == nil {
		co.store.SetShots(shots)
	}
	if chars, err := co.backend.ListCharacters(ctx, p.ID); err == nil {
		co.store.SetCharacters(chars)
	}
	if scenes, err := co.backend.ListScenes(ctx, p.ID); err == nil {
		co.store.SetScenes(scenes)
	}

	if err := co.channel.Connect(ctx, p.ID); err != nil {
		co.logger.Warn().Err(err).Str("project", p.ID).Msg("realtime connect failed")
		co.notices.Warning("Realtime updates unavailable, working from polled state")
	}

	co.logger.Info().Str("project", p.ID).Msg("project opened")
	return nil
}

// CloseProject disconnects the realtime channel and clears all project state.
func (co *Coordinator) CloseProject() {
	co.channel.Disconnect()
	co.store.ResetAll()
	co.logger.Info().Msg("project closed")
}

// RefreshProjects reloads the project list, retrying transient failures.
func (co *Coordinator) RefreshProjects(ctx context.Context) error {
	var projects []model.Project
	err := retry.Do(ctx, co.retryCfg, "refresh projects", func(ctx context.Context) error {
		var err error
		projects, err = co.backend.ListProjects(ctx)
		return err
	})
	if err != nil {
		co.notices.Error(errMessage(err))
		return err
	}
	co.store.SetProjects(projects)
	return nil
}

// DeleteProject removes the project remotely and locally. Deleting the open
// project closes it first.
func (co *Coordinator) DeleteProject(ctx context.Context, id string) error {
	if p := co.store.CurrentProject(); p != nil && p.ID == id {
		co.CloseProject()
	}
	if err := co.backend.DeleteProject(ctx, id); err != nil {
		co.notices.Error(errMessage(err))
		return err
	}
	co.store.RemoveProject(id)
	return nil
}

// UploadScript uploads a script file for the open project and extracts its
// text server-side.
func (co *Coordinator) UploadScript(ctx context.Context, filename string, r io.Reader) (string, error) {
	projectID, err := co.currentProjectID()
	if err != nil {
		return "", err
	}

	if _, err := co.backend.UploadScript(ctx, projectID, filename, r); err != nil {
		co.notices.Error(errMessage(err))
		return "", err
	}

	text, err := co.backend.ExtractText(ctx, projectID)
	if err != nil {
		co.notices.Error(errMessage(err))
		return "", err
	}

	co.notices.Success("Script uploaded: " + filename)
	return text, nil
}

// GenerateScreenplay asks the named agent for a screenplay and records the
// result. A response arriving after the project changed is dropped.
func (co *Coordinator) GenerateScreenplay(ctx context.Context, agent string) (*model.Screenplay, error) {
	projectID, err := co.currentProjectID()
	if err != nil {
		return nil, err
	}
	stale := co.staleGuard()

	res, err := co.backend.GenerateScreenplay(ctx, projectID, agent)
	if err != nil {
		co.notices.Error(errMessage(err))
		return nil, err
	}
	if stale() {
		co.logger.Debug().Str("project", projectID).Msg("dropping stale screenplay response")
		return nil, perrors.ErrStaleResponse
	}

	sp := res.ToModel()
	co.store.AddScreenplay(sp)
	co.store.UpdateProject(projectID, model.ProjectPatch{
		CurrentStage: model.Ptr(model.StageScreenplayGeneration),
	})
	co.notices.Success("Screenplay generated by " + sp.AgentName)
	return &sp, nil
}

// MergeScreenplays merges the given versions into a new screenplay and makes
// it the selected one.
func (co *Coordinator) MergeScreenplays(ctx context.Context, screenplayIDs []string) (*model.Screenplay, error) {
	projectID, err := co.currentProjectID()
	if err != nil {
		return nil, err
	}
	if len(screenplayIDs) < 2 {
		return nil, fmt.Errorf("merge needs at least two screenplays: %w", perrors.ErrInvalidInput)
	}
	stale := co.staleGuard()

	res, err := co.backend.MergeScreenplays(ctx, projectID, screenplayIDs)
	if err != nil {
		co.notices.Error(errMessage(err))
		return nil, err
	}
	if stale() {
		return nil, perrors.ErrStaleResponse
	}

	sp := res.ToModel()
	co.store.AddScreenplay(sp)
	co.store.SelectScreenplay(sp.ID)
	co.notices.Success("Screenplays merged")
	return &sp, nil
}

// SelectScreenplay marks a screenplay version as the working one.
func (co *Coordinator) SelectScreenplay(id string) {
	co.store.SelectScreenplay(id)
}

// EditScreenplay applies an edit optimistically and persists it. On failure
// the local content reverts and the error is surfaced.
func (co *Coordinator) EditScreenplay(ctx context.Context, screenplayID, content string) error {
	projectID, err := co.currentProjectID()
	if err != nil {
		return err
	}

	var previous *string
	for _, sp := range co.store.Screenplays() {
		if sp.ID == screenplayID {
			previous = model.Ptr(sp.Content)
			break
		}
	}
	if previous == nil {
		return fmt.Errorf("screenplay %s: %w", screenplayID, perrors.ErrNotFound)
	}

	patch := model.ScreenplayPatch{Content: model.Ptr(content)}
	co.store.UpdateScreenplay(screenplayID, patch)

	if err := co.backend.SaveScreenplay(ctx, projectID, screenplayID, patch); err != nil {
		co.store.UpdateScreenplay(screenplayID, model.ScreenplayPatch{Content: previous})
		co.notices.Error("Screenplay edit not saved: " + errMessage(err))
		return err
	}
	return nil
}

// RequestShotDivision schedules shot division for the selected screenplay.
// Results arrive over the realtime channel.
func (co *Coordinator) RequestShotDivision(ctx context.Context) (*api.TaskRef, error) {
	projectID, err := co.currentProjectID()
	if err != nil {
		return nil, err
	}
	sp := co.store.SelectedScreenplay()
	if sp == nil {
		return nil, fmt.Errorf("no screenplay to divide: %w", perrors.ErrNotFound)
	}

	ref, err := co.backend.GenerateShotDivision(ctx, projectID, sp.ID)
	if err != nil {
		co.notices.Error(errMessage(err))
		return nil, err
	}
	co.notices.Info("Shot division started")
	return ref, nil
}

// UpdateShot applies a shot edit optimistically and persists it. On failure
// the local shot reverts and the error is surfaced.
func (co *Coordinator) UpdateShot(ctx context.Context, shotID string, patch model.ShotPatch) error {
	projectID, err := co.currentProjectID()
	if err != nil {
		return err
	}

	previous, ok := co.store.Shot(shotID)
	if !ok {
		return fmt.Errorf("shot %s: %w", shotID, perrors.ErrNotFound)
	}

	co.store.UpdateShot(shotID, patch)

	updated, err := co.backend.UpdateShot(ctx, projectID, shotID, patch)
	if err != nil {
		co.store.SetShot(previous)
		co.notices.Error("Shot edit not saved: " + errMessage(err))
		return err
	}
	if updated != nil {
		// The server copy is authoritative.
		co.store.SetShot(*updated)
	}
	return nil
}

// RequestCharacterExtraction schedules character extraction.
func (co *Coordinator) RequestCharacterExtraction(ctx context.Context) (*api.TaskRef, error) {
	projectID, err := co.currentProjectID()
	if err != nil {
		return nil, err
	}
	ref, err := co.backend.ExtractCharacters(ctx, projectID)
	if err != nil {
		co.notices.Error(errMessage(err))
		return nil, err
	}
	co.notices.Info("Character extraction started")
	return ref, nil
}

// RequestSceneGeneration schedules scene image generation for all shots.
func (co *Coordinator) RequestSceneGeneration(ctx context.Context) (*api.TaskRef, error) {
	projectID, err := co.currentProjectID()
	if err != nil {
		return nil, err
	}
	ref, err := co.backend.GenerateScenes(ctx, projectID)
	if err != nil {
		co.notices.Error(errMessage(err))
		return nil, err
	}
	co.notices.Info("Scene generation started")
	return ref, nil
}

// RegenerateScene schedules a redo of one scene image.
func (co *Coordinator) RegenerateScene(ctx context.Context, sceneID string) (*api.TaskRef, error) {
	projectID, err := co.currentProjectID()
	if err != nil {
		return nil, err
	}
	ref, err := co.backend.RegenerateScene(ctx, projectID, sceneID)
	if err != nil {
		co.notices.Error(errMessage(err))
		return nil, err
	}
	co.store.UpdateScene(sceneID, model.ScenePatch{Status: model.Ptr(model.SceneGenerating)})
	return ref, nil
}

// RequestVideoGeneration kicks off final video rendering.
func (co *Coordinator) RequestVideoGeneration(ctx context.Context) (*api.TaskRef, error) {
	projectID, err := co.currentProjectID()
	if err != nil {
		return nil, err
	}
	ref, err := co.backend.GenerateVideo(ctx, projectID)
	if err != nil {
		co.notices.Error(errMessage(err))
		return nil, err
	}
	co.notices.Info("Video generation started")
	return ref, nil
}

// CanNavigate reports whether the screen is reachable at the current stage.
func (co *Coordinator) CanNavigate(screen workflow.Screen) bool {
	return workflow.CanNavigate(co.store.CurrentProject(), screen)
}

// ReachableScreens returns the screens reachable at the current stage.
func (co *Coordinator) ReachableScreens() map[workflow.Screen]bool {
	return workflow.ReachableScreens(co.store.CurrentProject())
}
