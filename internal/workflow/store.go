// Package workflow holds the canonical client-side snapshot of one pipeline
// run: the current project, its derived artifacts, and the stage gate that
// decides which workspace screens are reachable.
//
// The Store is the only shared mutable state in the agent. Every mutation is
// synchronous and total under one lock, so compound invariants (the current
// project mirrors its entry in the project list) are never observable
// half-updated. The Store performs no I/O.
package workflow

import (
	"sync"

	"github.com/storyforge-ai/workflow-agent/internal/model"
)

// Store is the workflow state container. Construct one per session with
// NewStore; the zero value is not usable.
type Store struct {
	mu sync.RWMutex

	current  *model.Project
	projects []model.Project

	screenplays        []model.Screenplay
	selectedScreenplay string

	shots      []model.Shot
	characters []model.Character
	scenes     []model.Scene

	// generation increments every time the current project changes. Actions
	// capture it when they start and drop their results if it moved before
	// the response arrived.
	generation uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// --- current project ---

// SetCurrentProject replaces the current project (nil clears it) and bumps
// the session generation.
func (s *Store) SetCurrentProject(p *model.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.current = nil
	} else {
		cp := *p
		s.current = &cp
	}
	s.generation++
}

// CurrentProject returns a copy of the current project, or nil.
func (s *Store) CurrentProject() *model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Generation returns the current session generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// --- projects ---

// SetProjects replaces the project list.
func (s *Store) SetProjects(projects []model.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append([]model.Project(nil), projects...)
}

// AddProject appends a project to the list. Duplicate ids are a caller error.
func (s *Store) AddProject(p model.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, p)
}

// UpdateProject shallow-merges a patch into the project with the given id,
// both in the list and, under the same lock, in the current project view
// when the ids match.
func (s *Store) UpdateProject(id string, patch model.ProjectPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.projects {
		if s.projects[i].ID == id {
			patch.Apply(&s.projects[i])
			break
		}
	}
	if s.current != nil && s.current.ID == id {
		patch.Apply(s.current)
	}
}

// RemoveProject deletes a project from the list. The current project is
// cleared if it was the one removed.
func (s *Store) RemoveProject(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.projects {
		if s.projects[i].ID == id {
			s.projects = append(s.projects[:i], s.projects[i+1:]...)
			break
		}
	}
	if s.current != nil && s.current.ID == id {
		s.current = nil
		s.generation++
	}
}

// Projects returns a copy of the project list.
func (s *Store) Projects() []model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Project(nil), s.projects...)
}

// --- screenplays ---

// SetScreenplays replaces the screenplay collection.
func (s *Store) SetScreenplays(sps []model.Screenplay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenplays = append([]model.Screenplay(nil), sps...)
	s.selectedScreenplay = ""
}

// AddScreenplay appends a screenplay. Duplicate ids are a caller error.
func (s *Store) AddScreenplay(sp model.Screenplay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenplays = append(s.screenplays, sp)
}

// UpdateScreenplay shallow-merges a patch into the screenplay with the id.
func (s *Store) UpdateScreenplay(id string, patch model.ScreenplayPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.screenplays {
		if s.screenplays[i].ID == id {
			patch.Apply(&s.screenplays[i])
			return
		}
	}
}

// RemoveScreenplay deletes a screenplay.
func (s *Store) RemoveScreenplay(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.screenplays {
		if s.screenplays[i].ID == id {
			s.screenplays = append(s.screenplays[:i], s.screenplays[i+1:]...)
			break
		}
	}
	if s.selectedScreenplay == id {
		s.selectedScreenplay = ""
	}
}

// SelectScreenplay marks the screenplay used for editing and progression.
// Selecting an unknown id is ignored.
func (s *Store) SelectScreenplay(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.screenplays {
		if s.screenplays[i].ID == id {
			s.selectedScreenplay = id
			return
		}
	}
}

// SelectedScreenplay returns a copy of the selected screenplay. When none was
// selected explicitly, the most recently added one is returned.
func (s *Store) SelectedScreenplay() *model.Screenplay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedScreenplay != "" {
		for i := range s.screenplays {
			if s.screenplays[i].ID == s.selectedScreenplay {
				cp := s.screenplays[i]
				return &cp
			}
		}
	}
	if n := len(s.screenplays); n > 0 {
		cp := s.screenplays[n-1]
		return &cp
	}
	return nil
}

// Screenplays returns a copy of the screenplay collection.
func (s *Store) Screenplays() []model.Screenplay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Screenplay(nil), s.screenplays...)
}

// --- shots ---

// SetShots replaces the shot collection.
func (s *Store) SetShots(shots []model.Shot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shots = append([]model.Shot(nil), shots...)
}

// AddShot appends a shot.
func (s *Store) AddShot(shot model.Shot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shots = append(s.shots, shot)
}

// UpdateShot shallow-merges a patch into the shot with the id.
func (s *Store) UpdateShot(id string, patch model.ShotPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.shots {
		if s.shots[i].ID == id {
			patch.Apply(&s.shots[i])
			return
		}
	}
}

// SetShot replaces the shot with the same id, or appends it.
func (s *Store) SetShot(shot model.Shot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.shots {
		if s.shots[i].ID == shot.ID {
			s.shots[i] = shot
			return
		}
	}
	s.shots = append(s.shots, shot)
}

// RemoveShot deletes a shot.
func (s *Store) RemoveShot(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.shots {
		if s.shots[i].ID == id {
			s.shots = append(s.shots[:i], s.shots[i+1:]...)
			return
		}
	}
}

// Shot returns a copy of the shot with the id.
func (s *Store) Shot(id string) (model.Shot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.shots {
		if s.shots[i].ID == id {
			return s.shots[i], true
		}
	}
	return model.Shot{}, false
}

// Shots returns a copy of the shot collection.
func (s *Store) Shots() []model.Shot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Shot(nil), s.shots...)
}

// --- characters ---

// SetCharacters replaces the character collection.
func (s *Store) SetCharacters(chars []model.Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters = append([]model.Character(nil), chars...)
}

// AddCharacter appends a character.
func (s *Store) AddCharacter(c model.Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters = append(s.characters, c)
}

// UpdateCharacter shallow-merges a patch into the character with the id.
func (s *Store) UpdateCharacter(id string, patch model.CharacterPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.characters {
		if s.characters[i].ID == id {
			patch.Apply(&s.characters[i])
			return
		}
	}
}

// RemoveCharacter deletes a character.
func (s *Store) RemoveCharacter(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.characters {
		if s.characters[i].ID == id {
			s.characters = append(s.characters[:i], s.characters[i+1:]...)
			return
		}
	}
}

// Characters returns a copy of the character collection.
func (s *Store) Characters() []model.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Character(nil), s.characters...)
}

// --- scenes ---

// SetScenes replaces the scene collection.
func (s *Store) SetScenes(scenes []model.Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes = append([]model.Scene(nil), scenes...)
}

// AddScene appends a scene.
func (s *Store) AddScene(sc model.Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes = append(s.scenes, sc)
}

// UpdateScene shallow-merges a patch into the scene with the id.
func (s *Store) UpdateScene(id string, patch model.ScenePatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.scenes {
		if s.scenes[i].ID == id {
			patch.Apply(&s.scenes[i])
			return
		}
	}
}

// Scenes returns a copy of the scene collection.
func (s *Store) Scenes() []model.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Scene(nil), s.scenes...)
}

// --- resets ---

// ResetScreenplays clears only the screenplay collection. Used when starting
// a new upload cycle without discarding the rest of the project state.
func (s *Store) ResetScreenplays() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenplays = nil
	s.selectedScreenplay = ""
}

// ResetAll clears every collection and the current project. Used on full
// workflow restart.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.projects = nil
	s.screenplays = nil
	s.selectedScreenplay = ""
	s.shots = nil
	s.characters = nil
	s.scenes = nil
	s.generation++
}

// Snapshot is a consistent point-in-time view of the whole store, taken
// under one lock.
type Snapshot struct {
	CurrentProject *model.Project     `json:"current_project"`
	Projects       []model.Project    `json:"projects"`
	Screenplays    []model.Screenplay `json:"screenplays"`
	Shots          []model.Shot       `json:"shots"`
	Characters     []model.Character  `json:"characters"`
	Scenes         []model.Scene      `json:"scenes"`
}

// Snapshot returns a consistent copy of all collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Projects:    append([]model.Project(nil), s.projects...),
		Screenplays: append([]model.Screenplay(nil), s.screenplays...),
		Shots:       append([]model.Shot(nil), s.shots...),
		Characters:  append([]model.Character(nil), s.characters...),
		Scenes:      append([]model.Scene(nil), s.scenes...),
	}
	if s.current != nil {
		cp := *s.current
		snap.CurrentProject = &cp
	}
	return snap
}
