package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectPatch_Apply(t *testing.T) {
	p := Project{ID: "p1", Name: "Old", CurrentStage: StageScriptInput}

	ProjectPatch{
		Name:         Ptr("New"),
		CurrentStage: Ptr(StageShotDivision),
	}.Apply(&p)

	assert.Equal(t, "New", p.Name)
	assert.Equal(t, StageShotDivision, p.CurrentStage)
	assert.Equal(t, "p1", p.ID)
}

func TestProjectPatch_Apply_StageAlias(t *testing.T) {
	p := Project{CurrentStage: StageShotDivision}

	ProjectPatch{CurrentStage: Ptr(Stage("input"))}.Apply(&p)

	assert.Equal(t, StageScriptInput, p.CurrentStage)
}

// A stage string this build does not know yet must be kept verbatim, not
// erased; the gate already confines unknown stages to the dashboard.
func TestProjectPatch_Apply_UnknownStageKeptVerbatim(t *testing.T) {
	p := Project{CurrentStage: StageSceneGeneration}

	ProjectPatch{CurrentStage: Ptr(Stage("audio_mixing"))}.Apply(&p)

	assert.Equal(t, Stage("audio_mixing"), p.CurrentStage)
}

func TestProjectPatch_IsZero(t *testing.T) {
	assert.True(t, ProjectPatch{}.IsZero())
	assert.False(t, ProjectPatch{Name: Ptr("x")}.IsZero())
}

func TestShotPatch_Apply_CopiesSlices(t *testing.T) {
	chars := []string{"alice", "bob"}
	s := Shot{ID: "s1"}

	ShotPatch{Characters: &chars}.Apply(&s)
	chars[0] = "mallory"

	assert.Equal(t, []string{"alice", "bob"}, s.Characters)
}
