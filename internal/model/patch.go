package model

// Patches are shallow partial updates. A nil field means "leave unchanged";
// a set pointer overwrites. They decode directly from the backend's partial
// `updates` payloads.

// ProjectPatch is a partial update to a Project.
type ProjectPatch struct {
	Name         *string          `json:"name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Status       *ProjectStatus   `json:"status,omitempty"`
	CurrentStage *Stage           `json:"current_stage,omitempty"`
	Settings     *ProjectSettings `json:"settings,omitempty"`
}

// Apply merges the patch into p, left to right.
func (pp ProjectPatch) Apply(p *Project) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Status != nil {
		p.Status = *pp.Status
	}
	if pp.CurrentStage != nil {
		p.CurrentStage = NormalizeStage(string(*pp.CurrentStage))
	}
	if pp.Settings != nil {
		p.Settings = *pp.Settings
	}
}

// IsZero reports whether the patch changes nothing.
func (pp ProjectPatch) IsZero() bool {
	return pp.Name == nil && pp.Description == nil && pp.Status == nil &&
		pp.CurrentStage == nil && pp.Settings == nil
}

// ShotPatch is a partial update to a Shot.
type ShotPatch struct {
	Description    *string   `json:"description,omitempty"`
	CameraAngle    *string   `json:"camera_angle,omitempty"`
	CameraMovement *string   `json:"camera_movement,omitempty"`
	Duration       *float64  `json:"duration,omitempty"`
	Dialogue       *string   `json:"dialogue,omitempty"`
	Action         *string   `json:"action,omitempty"`
	Characters     *[]string `json:"characters,omitempty"`
	Location       *string   `json:"location,omitempty"`
	TimeOfDay      *string   `json:"time_of_day,omitempty"`
	LightingNotes  *string   `json:"lighting_notes,omitempty"`
	Props          *[]string `json:"props,omitempty"`
}

// Apply merges the patch into s.
func (sp ShotPatch) Apply(s *Shot) {
	if sp.Description != nil {
		s.Description = *sp.Description
	}
	if sp.CameraAngle != nil {
		s.CameraAngle = *sp.CameraAngle
	}
	if sp.CameraMovement != nil {
		s.CameraMovement = *sp.CameraMovement
	}
	if sp.Duration != nil {
		s.Duration = *sp.Duration
	}
	if sp.Dialogue != nil {
		s.Dialogue = *sp.Dialogue
	}
	if sp.Action != nil {
		s.Action = *sp.Action
	}
	if sp.Characters != nil {
		s.Characters = append([]string(nil), (*sp.Characters)...)
	}
	if sp.Location != nil {
		s.Location = *sp.Location
	}
	if sp.TimeOfDay != nil {
		s.TimeOfDay = *sp.TimeOfDay
	}
	if sp.LightingNotes != nil {
		s.LightingNotes = *sp.LightingNotes
	}
	if sp.Props != nil {
		s.Props = append([]string(nil), (*sp.Props)...)
	}
}

// ScenePatch is a partial update to a Scene.
type ScenePatch struct {
	Prompt   *string      `json:"prompt,omitempty"`
	ImageURL *string      `json:"image_url,omitempty"`
	Status   *SceneStatus `json:"status,omitempty"`
}

// Apply merges the patch into s.
func (sp ScenePatch) Apply(s *Scene) {
	if sp.Prompt != nil {
		s.Prompt = *sp.Prompt
	}
	if sp.ImageURL != nil {
		s.ImageURL = *sp.ImageURL
	}
	if sp.Status != nil {
		s.Status = *sp.Status
	}
}

// CharacterPatch is a partial update to a Character.
type CharacterPatch struct {
	Description *string `json:"description,omitempty"`
	Appearance  *string `json:"appearance,omitempty"`
	Personality *string `json:"personality,omitempty"`
	Role        *string `json:"role,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// Apply merges the patch into c.
func (cp CharacterPatch) Apply(c *Character) {
	if cp.Description != nil {
		c.Description = *cp.Description
	}
	if cp.Appearance != nil {
		c.Appearance = *cp.Appearance
	}
	if cp.Personality != nil {
		c.Personality = *cp.Personality
	}
	if cp.Role != nil {
		c.Role = *cp.Role
	}
	if cp.ImageURL != nil {
		c.ImageURL = *cp.ImageURL
	}
}

// ScreenplayPatch is a partial update to a Screenplay.
type ScreenplayPatch struct {
	Content *string `json:"content,omitempty"`
	Version *int    `json:"version,omitempty"`
}

// Apply merges the patch into s.
func (sp ScreenplayPatch) Apply(s *Screenplay) {
	if sp.Content != nil {
		s.Content = *sp.Content
	}
	if sp.Version != nil {
		s.Version = *sp.Version
	}
}

// Ptr returns a pointer to v. Convenience for building patches.
func Ptr[T any](v T) *T { return &v }
