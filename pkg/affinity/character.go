// Package affinity tracks per-character relationship state: a clamped
// affinity score, its derived level, unlock state, endings and event history.
package affinity

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultMaxAffinity applies when a roster entry does not set one.
	DefaultMaxAffinity = 1000
	// DefaultPose must exist in every character's pose map.
	DefaultPose = "normal"
)

// Spec is one roster entry, authored as content.
type Spec struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Poses       map[string]string `json:"poses,omitempty" yaml:"poses,omitempty"` // pose name -> image resource
	MaxAffinity int               `json:"max_affinity,omitempty" yaml:"max_affinity,omitempty"`
}

// DisplayName returns Name, or a title-cased form of ID when Name is empty.
func (s Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return cases.Title(language.English).String(strings.ReplaceAll(s.ID, "_", " "))
}

// Character is a snapshot of one character's runtime state.
type Character struct {
	ID          string
	Name        string
	Title       string
	Poses       map[string]string
	Affinity    int
	MaxAffinity int
	Unlocked    bool
	Endings     []string
	Events      []string
}

// PoseResource returns the image resource for pose, falling back to the
// "normal" pose. Empty when neither exists.
func (c Character) PoseResource(pose string) string {
	if r, ok := c.Poses[pose]; ok {
		return r
	}
	return c.Poses[DefaultPose]
}

// Level is the derived affinity level for this character.
func (c Character) Level() int {
	return LevelFor(c.Affinity, c.MaxAffinity)
}

// State is the persisted per-character state.
type State struct {
	Affinity int      `json:"affinity"`
	Unlocked bool     `json:"unlocked"`
	Endings  []string `json:"endings,omitempty"`
	Events   []string `json:"events,omitempty"`
}

type character struct {
	spec     Spec
	affinity int
	unlocked bool
	endings  []string
	events   []string
}

func newCharacter(spec Spec) *character {
	if spec.MaxAffinity <= 0 {
		spec.MaxAffinity = DefaultMaxAffinity
	}
	spec.Name = spec.DisplayName()
	return &character{spec: spec}
}

func (c *character) snapshot() Character {
	poses := make(map[string]string, len(c.spec.Poses))
	for k, v := range c.spec.Poses {
		poses[k] = v
	}
	return Character{
		ID:          c.spec.ID,
		Name:        c.spec.Name,
		Title:       c.spec.Title,
		Poses:       poses,
		Affinity:    c.affinity,
		MaxAffinity: c.spec.MaxAffinity,
		Unlocked:    c.unlocked,
		Endings:     slices.Clone(c.endings),
		Events:      slices.Clone(c.events),
	}
}

func (c *character) state() State {
	return State{
		Affinity: c.affinity,
		Unlocked: c.unlocked,
		Endings:  slices.Clone(c.endings),
		Events:   slices.Clone(c.events),
	}
}

func (c *character) clamp(v int) int {
	return max(0, min(v, c.spec.MaxAffinity))
}

// saturatedAdd returns affinity+delta bounded to [0, max] without
// overflowing for extreme deltas.
func (c *character) saturatedAdd(delta int) int {
	switch {
	case delta > c.spec.MaxAffinity-c.affinity:
		return c.spec.MaxAffinity
	case delta < -c.affinity:
		return 0
	}
	return c.affinity + delta
}

func (c *character) reset() {
	c.affinity = 0
	c.unlocked = false
	c.endings = nil
	c.events = nil
}

func appendUnique(list []string, v string) ([]string, bool) {
	if slices.Contains(list, v) {
		return list, false
	}
	return append(list, v), true
}

func dedupe(list []string) []string {
	var out []string
	for _, v := range list {
		if v == "" {
			continue
		}
		out, _ = appendUnique(out, v)
	}
	return out
}
