// Package save persists slotted snapshots of game progress plus the settings
// and player-profile records.
package save

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/novel-engine/pkg/affinity"
	"github.com/jwebster45206/novel-engine/pkg/mode"
	"golang.org/x/mod/semver"
)

// FormatVersion is the save format written by this build.
const FormatVersion = "1.0.0"

// Snapshot is the complete persisted progress for one slot.
type Snapshot struct {
	ID         uuid.UUID                  `json:"id"`
	Slot       int                        `json:"slot"`
	Version    string                     `json:"version"`
	SavedAt    time.Time                  `json:"saved_at"`
	Chapter    string                     `json:"chapter,omitempty"`
	Node       string                     `json:"node,omitempty"`
	Mode       mode.State                 `json:"mode,omitempty"`
	Characters map[string]affinity.State  `json:"characters"`
	Flags      map[string]bool            `json:"flags"`
	Player     Player                     `json:"player"`
	Extra      map[string]json.RawMessage `json:"extra,omitempty"`
}

// Player is per-playthrough player metadata.
type Player struct {
	PlayTime      float64        `json:"play_time"` // seconds
	ChoiceHistory []string       `json:"choice_history,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty"`
}

// PlayDuration returns the accumulated play time.
func (p Player) PlayDuration() time.Duration {
	return time.Duration(p.PlayTime * float64(time.Second))
}

// SetExtra stores v under key in the extra bag.
func (s *Snapshot) SetExtra(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode extra %s: %w", key, err)
	}
	if s.Extra == nil {
		s.Extra = make(map[string]json.RawMessage)
	}
	s.Extra[key] = raw
	return nil
}

// DecodeExtra decodes key into v. It reports false when key is absent.
func (s *Snapshot) DecodeExtra(key string, v any) (bool, error) {
	raw, ok := s.Extra[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode extra %s: %w", key, err)
	}
	return true, nil
}

// normalize fills nil maps so callers never branch on them.
func (s *Snapshot) normalize() {
	if s.Characters == nil {
		s.Characters = make(map[string]affinity.State)
	}
	if s.Flags == nil {
		s.Flags = make(map[string]bool)
	}
	if s.Extra == nil {
		s.Extra = make(map[string]json.RawMessage)
	}
}

// SameMajor reports whether two format versions share a major component.
// Invalid versions never match.
func SameMajor(a, b string) bool {
	ma, mb := semver.Major("v"+a), semver.Major("v"+b)
	return ma != "" && ma == mb
}

// Override adjusts a snapshot after it has been gathered.
type Override func(*Snapshot) error

// Cursor sets the chapter and node the snapshot resumes at.
func Cursor(chapter, node string) Override {
	return func(s *Snapshot) error {
		s.Chapter = chapter
		s.Node = node
		return nil
	}
}

// ChoiceHistory sets the ordered choice history.
func ChoiceHistory(history []string) Override {
	return func(s *Snapshot) error {
		s.Player.ChoiceHistory = append([]string(nil), history...)
		return nil
	}
}

// Attribute sets one free-form player attribute.
func Attribute(key string, v any) Override {
	return func(s *Snapshot) error {
		if s.Player.Attributes == nil {
			s.Player.Attributes = make(map[string]any)
		}
		s.Player.Attributes[key] = v
		return nil
	}
}

// Extra stores v in the extra bag.
func Extra(key string, v any) Override {
	return func(s *Snapshot) error {
		return s.SetExtra(key, v)
	}
}

// Summary describes a filled slot for a save/load screen.
type Summary struct {
	Slot     int
	SavedAt  time.Time
	Chapter  string
	Node     string
	PlayTime time.Duration
	Version  string
}
