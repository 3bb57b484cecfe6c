package workflow

import "github.com/storyforge-ai/workflow-agent/internal/model"

// Screen identifies one workspace screen in the dashboard.
type Screen string

// Workspace screens in their fixed navigation order.
const (
	ScreenDashboard          Screen = "dashboard"
	ScreenScriptUpload       Screen = "script-upload"
	ScreenScreenplayReview   Screen = "screenplay-review"
	ScreenShotBreakdown      Screen = "shot-breakdown"
	ScreenProductionDesign   Screen = "production-design"
	ScreenCharacterRoster    Screen = "character-roster"
	ScreenCharacterGallery   Screen = "character-gallery"
	ScreenScenePromptEditor  Screen = "scene-prompt-editor"
	ScreenSceneImageSelector Screen = "scene-image-selector"
	ScreenVideoGeneration    Screen = "video-generation"
)

// screenOrder is the fixed total order over workspace screens.
var screenOrder = []Screen{
	ScreenDashboard,
	ScreenScriptUpload,
	ScreenScreenplayReview,
	ScreenShotBreakdown,
	ScreenProductionDesign,
	ScreenCharacterRoster,
	ScreenCharacterGallery,
	ScreenScenePromptEditor,
	ScreenSceneImageSelector,
	ScreenVideoGeneration,
}

// stagePosition maps a project's current_stage to a position in screenOrder.
// An unknown or unset stage maps to the dashboard (position 0), locking
// everything except the dashboard and the first real stage.
var stagePosition = map[model.Stage]int{
	model.StageScriptInput:          1,
	model.StageScreenplayGeneration: 2,
	model.StageShotDivision:         3,
	model.StageProductionPlanning:   4,
	model.StageCharacterDesign:      5,
	model.StageSceneGeneration:      7,
	model.StageVideoGeneration:      9,
	model.StageFinalSynthesis:       9,
	model.StageCompleted:            9,
}

// Screens returns the workspace screens in navigation order.
func Screens() []Screen {
	return append([]Screen(nil), screenOrder...)
}

// StagePosition returns the screen position for a stage, falling back to the
// dashboard for unknown values.
func StagePosition(stage model.Stage) int {
	if pos, ok := stagePosition[model.NormalizeStage(string(stage))]; ok {
		return pos
	}
	return 0
}

// ReachableScreens computes the set of reachable screens for a project: the
// screens up to the current stage plus exactly one stage ahead. With no
// project, only the dashboard is reachable. Pure function of current_stage;
// callers must recompute on every project update.
func ReachableScreens(p *model.Project) map[Screen]bool {
	reachable := map[Screen]bool{ScreenDashboard: true}
	if p == nil {
		return reachable
	}
	limit := StagePosition(p.CurrentStage) + 1
	for pos, screen := range screenOrder {
		if pos <= limit {
			reachable[screen] = true
		}
	}
	return reachable
}

// CanNavigate reports whether the screen is reachable for the project.
func CanNavigate(p *model.Project, screen Screen) bool {
	return ReachableScreens(p)[screen]
}
