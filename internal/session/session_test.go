package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyforge-ai/workflow-agent/internal/api"
	perrors "github.com/storyforge-ai/workflow-agent/internal/errors"
	"github.com/storyforge-ai/workflow-agent/internal/model"
	"github.com/storyforge-ai/workflow-agent/internal/notify"
	"github.com/storyforge-ai/workflow-agent/internal/workflow"
)

// stubBackend answers from canned state and records calls. Individual hooks
// override behavior per test.
type stubBackend struct {
	mu    sync.Mutex
	calls []string

	project    *model.Project
	screenplay *api.ScreenplayResult

	saveScreenplayErr error
	updateShotErr     error
	updateShotResult  *model.Shot

	// onGenerateScreenplay runs mid-request, before the response is applied.
	onGenerateScreenplay func()
}

func (b *stubBackend) record(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, name)
}

func (b *stubBackend) called(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (b *stubBackend) CreateProject(_ context.Context, req api.CreateProjectRequest) (*model.Project, error) {
	b.record("CreateProject")
	return &model.Project{ID: "p-new", Name: req.Name, Status: model.StatusCreated, CurrentStage: model.StageScriptInput}, nil
}

func (b *stubBackend) GetProject(_ context.Context, id string) (*model.Project, error) {
	b.record("GetProject")
	if b.project == nil || b.project.ID != id {
		return nil, perrors.NewAPIError("get project", 404, "Project not found")
	}
	p := *b.project
	return &p, nil
}

func (b *stubBackend) ListProjects(context.Context) ([]model.Project, error) {
	b.record("ListProjects")
	if b.project == nil {
		return nil, nil
	}
	return []model.Project{*b.project}, nil
}

func (b *stubBackend) DeleteProject(context.Context, string) error {
	b.record("DeleteProject")
	return nil
}

func (b *stubBackend) UploadScript(_ context.Context, _, filename string, r io.Reader) (*api.UploadScriptResult, error) {
	b.record("UploadScript")
	io.Copy(io.Discard, r)
	return &api.UploadScriptResult{Filename: filename}, nil
}

func (b *stubBackend) ExtractText(context.Context, string) (string, error) {
	b.record("ExtractText")
	return "INT. LAB - NIGHT", nil
}

func (b *stubBackend) GenerateScreenplay(_ context.Context, projectID, agent string) (*api.ScreenplayResult, error) {
	b.record("GenerateScreenplay")
	if b.onGenerateScreenplay != nil {
		b.onGenerateScreenplay()
	}
	if b.screenplay != nil {
		return b.screenplay, nil
	}
	return &api.ScreenplayResult{ID: "sp-1", ProjectID: projectID, Screenplay: "FADE IN", AgentUsed: agent, Version: 1}, nil
}

func (b *stubBackend) MergeScreenplays(_ context.Context, projectID string, ids []string) (*api.ScreenplayResult, error) {
	b.record("MergeScreenplays")
	return &api.ScreenplayResult{ID: "sp-merged", ProjectID: projectID, Screenplay: "MERGED", AgentUsed: "merge", Version: 2}, nil
}

func (b *stubBackend) SaveScreenplay(context.Context, string, string, model.ScreenplayPatch) error {
	b.record("SaveScreenplay")
	return b.saveScreenplayErr
}

func (b *stubBackend) GenerateShotDivision(context.Context, string, string) (*api.TaskRef, error) {
	b.record("GenerateShotDivision")
	return &api.TaskRef{TaskID: "t-1", Status: "scheduled"}, nil
}

func (b *stubBackend) ListShots(context.Context, string) ([]model.Shot, error) {
	b.record("ListShots")
	return nil, nil
}

func (b *stubBackend) UpdateShot(_ context.Context, _, shotID string, _ model.ShotPatch) (*model.Shot, error) {
	b.record("UpdateShot")
	if b.updateShotErr != nil {
		return nil, b.updateShotErr
	}
	return b.updateShotResult, nil
}

func (b *stubBackend) ExtractCharacters(context.Context, string) (*api.TaskRef, error) {
	b.record("ExtractCharacters")
	return &api.TaskRef{TaskID: "t-2", Status: "scheduled"}, nil
}

func (b *stubBackend) GenerateScenes(context.Context, string) (*api.TaskRef, error) {
	b.record("GenerateScenes")
	return &api.TaskRef{TaskID: "t-3", Status: "scheduled"}, nil
}

func (b *stubBackend) ListScenes(context.Context, string) ([]model.Scene, error) {
	b.record("ListScenes")
	return nil, nil
}

func (b *stubBackend) RegenerateScene(context.Context, string, string) (*api.TaskRef, error) {
	b.record("RegenerateScene")
	return &api.TaskRef{TaskID: "t-4", Status: "scheduled"}, nil
}

func (b *stubBackend) GenerateVideo(context.Context, string) (*api.TaskRef, error) {
	b.record("GenerateVideo")
	return &api.TaskRef{TaskID: "t-5", Status: "scheduled"}, nil
}

func (b *stubBackend) ListCharacters(context.Context, string) ([]model.Character, error) {
	b.record("ListCharacters")
	return nil, nil
}

type stubChannel struct {
	mu          sync.Mutex
	connects    []string
	disconnects int
	connectErr  error
}

func (s *stubChannel) Connect(_ context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectErr != nil {
		return s.connectErr
	}
	s.connects = append(s.connects, projectID)
	return nil
}

func (s *stubChannel) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
}

type fixture struct {
	co      *Coordinator
	backend *stubBackend
	channel *stubChannel
	store   *workflow.Store
	notices *notify.Center
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		backend: &stubBackend{},
		channel: &stubChannel{},
		store:   workflow.NewStore(),
		notices: notify.NewCenter(),
	}
	fx.co = New(fx.backend, fx.channel, fx.store, fx.notices, zerolog.Nop())
	return fx
}

func (fx *fixture) openProject(t *testing.T, id string) {
	t.Helper()
	fx.backend.project = &model.Project{ID: id, Name: "Test", Status: model.StatusCreated, CurrentStage: model.StageScriptInput}
	require.NoError(t, fx.co.OpenProject(context.Background(), id))
}

func TestOpenProjectHydratesAndConnects(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")

	p := fx.store.CurrentProject()
	require.NotNil(t, p)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, []string{"p1"}, fx.channel.connects)
	assert.True(t, fx.backend.called("ListShots"))
	assert.True(t, fx.backend.called("ListCharacters"))
	assert.True(t, fx.backend.called("ListScenes"))
}

func TestOpenProjectNotFound(t *testing.T) {
	fx := newFixture(t)

	err := fx.co.OpenProject(context.Background(), "missing")
	require.Error(t, err)
	assert.Nil(t, fx.store.CurrentProject())
	assert.Contains(t, fx.notices.LastError(), "Project not found")
}

func TestOpenProjectSurvivesRealtimeFailure(t *testing.T) {
	fx := newFixture(t)
	fx.channel.connectErr = errors.New("dial refused")
	fx.backend.project = &model.Project{ID: "p1", Name: "Test"}

	require.NoError(t, fx.co.OpenProject(context.Background(), "p1"))
	require.NotNil(t, fx.store.CurrentProject())

	ns := fx.notices.Notices()
	require.NotEmpty(t, ns)
	assert.Equal(t, notify.LevelWarning, ns[len(ns)-1].Level)
}

func TestCloseProjectResetsEverything(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")
	fx.store.AddScreenplay(model.Screenplay{ID: "sp1"})

	fx.co.CloseProject()

	assert.Nil(t, fx.store.CurrentProject())
	assert.Empty(t, fx.store.Screenplays())
	assert.Equal(t, 1, fx.channel.disconnects)
}

func TestScriptToScreenplayFlow(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")

	text, err := fx.co.UploadScript(context.Background(), "script.pdf", strings.NewReader("raw bytes"))
	require.NoError(t, err)
	assert.Equal(t, "INT. LAB - NIGHT", text)

	sp, err := fx.co.GenerateScreenplay(context.Background(), "GPT-4")
	require.NoError(t, err)
	assert.Equal(t, "GPT-4", sp.AgentName)

	sps := fx.store.Screenplays()
	require.Len(t, sps, 1)
	assert.Equal(t, "GPT-4", sps[0].AgentName)

	p := fx.store.CurrentProject()
	require.NotNil(t, p)
	assert.Equal(t, model.StageScreenplayGeneration, p.CurrentStage)
}

func TestGenerateScreenplayWithoutProject(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.co.GenerateScreenplay(context.Background(), "GPT-4")
	require.ErrorIs(t, err, perrors.ErrNotFound)
	assert.False(t, fx.backend.called("GenerateScreenplay"))
}

func TestGenerateScreenplayDropsStaleResponse(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")

	// The project switches while the generation request is in flight.
	fx.backend.onGenerateScreenplay = func() {
		fx.store.SetCurrentProject(&model.Project{ID: "p2", Name: "Other"})
	}

	_, err := fx.co.GenerateScreenplay(context.Background(), "GPT-4")
	require.ErrorIs(t, err, perrors.ErrStaleResponse)
	assert.Empty(t, fx.store.Screenplays())
}

func TestMergeScreenplaysNeedsTwo(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")

	_, err := fx.co.MergeScreenplays(context.Background(), []string{"sp1"})
	require.ErrorIs(t, err, perrors.ErrInvalidInput)
	assert.False(t, fx.backend.called("MergeScreenplays"))
}

func TestMergeScreenplaysSelectsResult(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")
	fx.store.AddScreenplay(model.Screenplay{ID: "sp1"})
	fx.store.AddScreenplay(model.Screenplay{ID: "sp2"})

	merged, err := fx.co.MergeScreenplays(context.Background(), []string{"sp1", "sp2"})
	require.NoError(t, err)

	sel := fx.store.SelectedScreenplay()
	require.NotNil(t, sel)
	assert.Equal(t, merged.ID, sel.ID)
}

func TestEditScreenplayRevertsOnFailure(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")
	fx.store.AddScreenplay(model.Screenplay{ID: "sp1", Content: "original"})
	fx.backend.saveScreenplayErr = perrors.NewAPIError("save screenplay", 500, "storage unavailable")

	err := fx.co.EditScreenplay(context.Background(), "sp1", "edited")
	require.Error(t, err)

	sps := fx.store.Screenplays()
	require.Len(t, sps, 1)
	assert.Equal(t, "original", sps[0].Content)
	assert.Contains(t, fx.notices.LastError(), "storage unavailable")
}

func TestEditScreenplayPersistsOptimistically(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")
	fx.store.AddScreenplay(model.Screenplay{ID: "sp1", Content: "original"})

	require.NoError(t, fx.co.EditScreenplay(context.Background(), "sp1", "edited"))

	sps := fx.store.Screenplays()
	require.Len(t, sps, 1)
	assert.Equal(t, "edited", sps[0].Content)
}

func TestRequestShotDivisionNeedsScreenplay(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")

	_, err := fx.co.RequestShotDivision(context.Background())
	require.ErrorIs(t, err, perrors.ErrNotFound)
	assert.False(t, fx.backend.called("GenerateShotDivision"))
}

func TestRequestShotDivisionUsesSelectedScreenplay(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")
	fx.store.AddScreenplay(model.Screenplay{ID: "sp1"})

	ref, err := fx.co.RequestShotDivision(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t-1", ref.TaskID)
}

func TestUpdateShotRevertsOnFailure(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")
	fx.store.SetShots([]model.Shot{{ID: "s1", Description: "Wide shot"}})
	fx.backend.updateShotErr = perrors.NewAPIError("update shot", 422, "invalid duration")

	err := fx.co.UpdateShot(context.Background(), "s1", model.ShotPatch{
		Description: model.Ptr("Changed"),
	})
	require.Error(t, err)

	shot, ok := fx.store.Shot("s1")
	require.True(t, ok)
	assert.Equal(t, "Wide shot", shot.Description)
	assert.Contains(t, fx.notices.LastError(), "invalid duration")
}

func TestUpdateShotAdoptsServerCopy(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")
	fx.store.SetShots([]model.Shot{{ID: "s1", Description: "Wide shot", Duration: 2}})
	fx.backend.updateShotResult = &model.Shot{ID: "s1", Description: "Wide shot", Duration: 3.5}

	require.NoError(t, fx.co.UpdateShot(context.Background(), "s1", model.ShotPatch{
		Duration: model.Ptr(3.5),
	}))

	shot, ok := fx.store.Shot("s1")
	require.True(t, ok)
	assert.Equal(t, 3.5, shot.Duration)
}

func TestDeleteOpenProjectClosesFirst(t *testing.T) {
	fx := newFixture(t)
	fx.openProject(t, "p1")

	require.NoError(t, fx.co.DeleteProject(context.Background(), "p1"))

	assert.Nil(t, fx.store.CurrentProject())
	assert.Equal(t, 1, fx.channel.disconnects)
	assert.Empty(t, fx.store.Projects())
}

func TestNavigationFollowsStage(t *testing.T) {
	fx := newFixture(t)
	assert.True(t, fx.co.CanNavigate(workflow.ScreenDashboard))
	assert.False(t, fx.co.CanNavigate(workflow.ScreenScriptUpload))

	fx.openProject(t, "p1")
	assert.True(t, fx.co.CanNavigate(workflow.ScreenScriptUpload))
	assert.False(t, fx.co.CanNavigate(workflow.ScreenShotBreakdown))

	fx.store.UpdateProject("p1", model.ProjectPatch{
		CurrentStage: model.Ptr(model.StageShotDivision),
	})
	assert.True(t, fx.co.CanNavigate(workflow.ScreenShotBreakdown))
}
