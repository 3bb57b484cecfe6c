package mgmt

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/storyforge-ai/workflow-agent/internal/api"
	"github.com/storyforge-ai/workflow-agent/internal/config"
	"github.com/storyforge-ai/workflow-agent/internal/health"
	"github.com/storyforge-ai/workflow-agent/internal/model"
	"github.com/storyforge-ai/workflow-agent/internal/notify"
	"github.com/storyforge-ai/workflow-agent/internal/workflow"
)

// Sessions is the slice of the session coordinator the handlers drive.
// *session.Coordinator satisfies it.
type Sessions interface {
	OpenProject(ctx context.Context, id string) error
	CloseProject()
	RefreshProjects(ctx context.Context) error
	GenerateScreenplay(ctx context.Context, agent string) (*model.Screenplay, error)
	RequestShotDivision(ctx context.Context) (*api.TaskRef, error)
	RequestCharacterExtraction(ctx context.Context) (*api.TaskRef, error)
	RequestSceneGeneration(ctx context.Context) (*api.TaskRef, error)
	RequestVideoGeneration(ctx context.Context) (*api.TaskRef, error)
}

// RuntimeConfig holds mutable runtime configuration.
type RuntimeConfig struct {
	Environment    string
	LogLevel       string
	APIBaseURL     string
	RealtimeURL    string
	MgmtListenAddr string
	RateLimitRPS   int
	RateLimitBurst int
	AuthMode       string
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	store     *workflow.Store
	notices   *notify.Center
	sessions  Sessions
	checker   *health.Checker
	presets   *config.Presets
	logger    zerolog.Logger
	startTime time.Time

	// Runtime config (mutable)
	runtimeConfig *RuntimeConfig
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store *workflow.Store, notices *notify.Center, sessions Sessions, checker *health.Checker, rtCfg *RuntimeConfig, logger zerolog.Logger) *Handlers {
	return &Handlers{
		store:         store,
		notices:       notices,
		sessions:      sessions,
		checker:       checker,
		logger:        logger.With().Str("component", "handlers").Logger(),
		startTime:     time.Now(),
		runtimeConfig: rtCfg,
	}
}

// SetPresets exposes the loaded settings presets over the API.
func (h *Handlers) SetPresets(p *config.Presets) {
	h.presets = p
}

// ListPresets handles GET /api/v1/presets.
func (h *Handlers) ListPresets(c *fiber.Ctx) error {
	presets := []config.Preset{}
	if h.presets != nil {
		presets = h.presets.Presets
	}
	return c.JSON(fiber.Map{"presets": presets})
}

// GetWorkflow handles GET /api/v1/workflow.
func (h *Handlers) GetWorkflow(c *fiber.Ctx) error {
	return c.JSON(WorkflowResponse{
		Snapshot:           h.store.Snapshot(),
		SelectedScreenplay: h.store.SelectedScreenplay(),
		Screens:            workflow.Screens(),
	})
}

// GetStages handles GET /api/v1/workflow/stages.
func (h *Handlers) GetStages(c *fiber.Ctx) error {
	p := h.store.CurrentProject()

	var stage model.Stage
	if p != nil {
		stage = p.CurrentStage
	}

	return c.JSON(StagesResponse{
		CurrentStage: stage,
		Position:     workflow.StagePosition(stage),
		Reachable:    workflow.ReachableScreens(p),
	})
}

// GetNotices handles GET /api/v1/notices.
func (h *Handlers) GetNotices(c *fiber.Ctx) error {
	return c.JSON(NoticesResponse{
		Notices:    h.notices.Notices(),
		Indicators: h.notices.Indicators(),
		LastError:  h.notices.LastError(),
	})
}

// ClearError handles DELETE /api/v1/notices/error.
func (h *Handlers) ClearError(c *fiber.Ctx) error {
	h.notices.ClearError()
	return c.JSON(fiber.Map{"ok": true})
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	if err := h.sessions.RefreshProjects(c.Context()); err != nil {
		return problemResponse(c, fiber.StatusBadGateway,
			"backend_unavailable", "Bad Gateway", err.Error())
	}
	projects := h.store.Projects()
	if projects == nil {
		projects = []model.Project{}
	}
	return c.JSON(fiber.Map{"projects": projects})
}

// OpenProject handles POST /api/v1/projects/open.
func (h *Handlers) OpenProject(c *fiber.Ctx) error {
	var req OpenProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.ProjectID == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_project_id", "Bad Request",
			"project_id is required")
	}

	if err := h.sessions.OpenProject(c.Context(), req.ProjectID); err != nil {
		return problemResponse(c, fiber.StatusBadGateway,
			"open_failed", "Bad Gateway", err.Error())
	}
	return h.GetWorkflow(c)
}

// CloseProject handles POST /api/v1/projects/close.
func (h *Handlers) CloseProject(c *fiber.Ctx) error {
	h.sessions.CloseProject()
	return c.JSON(fiber.Map{"ok": true})
}

// GenerateScreenplay handles POST /api/v1/workflow/screenplay.
func (h *Handlers) GenerateScreenplay(c *fiber.Ctx) error {
	var req GenerateScreenplayRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.Agent == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_agent", "Bad Request",
			"agent is required")
	}

	sp, err := h.sessions.GenerateScreenplay(c.Context(), req.Agent)
	if err != nil {
		return problemResponse(c, fiber.StatusBadGateway,
			"generation_failed", "Bad Gateway", err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(sp)
}

// taskHandler adapts a fire-and-forget pipeline kickoff to a Fiber handler.
func (h *Handlers) taskHandler(kick func(ctx context.Context) (*api.TaskRef, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := kick(c.Context())
		if err != nil {
			return problemResponse(c, fiber.StatusBadGateway,
				"task_failed", "Bad Gateway", err.Error())
		}
		return c.Status(fiber.StatusAccepted).JSON(TaskAcceptedResponse{
			TaskID: ref.TaskID,
			Status: ref.Status,
		})
	}
}

// HealthDetail handles GET /api/v1/health.
func (h *Handlers) HealthDetail(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.Context())

	integrations := make(map[string]string, len(results))
	overall := "ok"
	for name, status := range results {
		integrations[name] = string(status)
		if status == health.StatusDown {
			overall = "degraded"
		}
	}

	uptime := time.Since(h.startTime).Round(time.Second).String()

	return c.JSON(HealthDetailResponse{
		Status:       overall,
		Integrations: integrations,
		Uptime:       uptime,
		Version:      "1.0.0",
	})
}

// GetConfig handles GET /api/v1/config.
func (h *Handlers) GetConfig(c *fiber.Ctx) error {
	cfg := h.runtimeConfig
	return c.JSON(ConfigResponse{
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
		APIBaseURL:     cfg.APIBaseURL,
		RealtimeURL:    cfg.RealtimeURL,
		MgmtListenAddr: cfg.MgmtListenAddr,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		AuthMode:       cfg.AuthMode,
	})
}

// PatchConfig handles PATCH /api/v1/config.
func (h *Handlers) PatchConfig(c *fiber.Ctx) error {
	var req ConfigPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if req.LogLevel != nil {
		h.runtimeConfig.LogLevel = *req.LogLevel
	}
	if req.RateLimitRPS != nil {
		h.runtimeConfig.RateLimitRPS = *req.RateLimitRPS
	}

	return h.GetConfig(c)
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
