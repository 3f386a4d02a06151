package save

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Settings is the player's preference record, shared by every slot.
type Settings struct {
	TextSpeed   float64 `json:"text_speed"` // characters per second
	AutoAdvance bool    `json:"auto_advance"`
	SkipRead    bool    `json:"skip_read"`
	MusicVolume float64 `json:"music_volume"`
	SFXVolume   float64 `json:"sfx_volume"`
	Language    string  `json:"language,omitempty"`
}

// DefaultSettings is used until the player saves their own.
func DefaultSettings() Settings {
	return Settings{
		TextSpeed:   40,
		MusicVolume: 0.8,
		SFXVolume:   0.8,
		Language:    "en",
	}
}

// Profile carries progress that survives across playthroughs.
type Profile struct {
	PlayerID        uuid.UUID           `json:"player_id"`
	Endings         map[string][]string `json:"endings,omitempty"` // character id -> ending ids
	UnlockedContent []string            `json:"unlocked_content,omitempty"`
	Playthroughs    int                 `json:"playthroughs"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// NewProfile returns an empty profile with a fresh player id.
func NewProfile() *Profile {
	return &Profile{
		PlayerID: uuid.New(),
		Endings:  make(map[string][]string),
	}
}

// AddEnding records an ending and reports whether it was new.
func (p *Profile) AddEnding(character, ending string) bool {
	if p.Endings == nil {
		p.Endings = make(map[string][]string)
	}
	if slices.Contains(p.Endings[character], ending) {
		return false
	}
	p.Endings[character] = append(p.Endings[character], ending)
	return true
}

// AddContent records unlocked content and reports whether it was new.
func (p *Profile) AddContent(id string) bool {
	if slices.Contains(p.UnlockedContent, id) {
		return false
	}
	p.UnlockedContent = append(p.UnlockedContent, id)
	return true
}

// EndingCount returns the number of distinct endings seen.
func (p *Profile) EndingCount() int {
	n := 0
	for _, e := range p.Endings {
		n += len(e)
	}
	return n
}

// Characters returns character ids with at least one ending, sorted.
func (p *Profile) Characters() []string {
	ids := make([]string, 0, len(p.Endings))
	for id := range p.Endings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadSettings returns stored settings, or the defaults when none exist.
func (m *Manager) LoadSettings(ctx context.Context) (Settings, error) {
	s := DefaultSettings()
	found, err := m.getRecord(ctx, "settings", &s)
	if err != nil {
		return DefaultSettings(), err
	}
	if !found {
		return DefaultSettings(), nil
	}
	return s, nil
}

func (m *Manager) SaveSettings(ctx context.Context, s Settings) error {
	return m.putRecord(ctx, "settings", s)
}

// LoadProfile returns the stored profile, or a new one when none exists.
// A new profile is not written until SaveProfile.
func (m *Manager) LoadProfile(ctx context.Context) (*Profile, error) {
	p := NewProfile()
	found, err := m.getRecord(ctx, "profile", p)
	if err != nil {
		return nil, err
	}
	if !found {
		return NewProfile(), nil
	}
	if p.Endings == nil {
		p.Endings = make(map[string][]string)
	}
	if p.PlayerID == uuid.Nil {
		p.PlayerID = uuid.New()
	}
	return p, nil
}

func (m *Manager) SaveProfile(ctx context.Context, p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	p.UpdatedAt = m.now().UTC()
	return m.putRecord(ctx, "profile", p)
}

func (m *Manager) getRecord(ctx context.Context, name string, v any) (bool, error) {
	data, err := m.store.Get(ctx, m.key(name))
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		m.logger.Warn("Ignoring unreadable record", "record", name, "error", err)
		return false, nil
	}
	return true, nil
}

func (m *Manager) putRecord(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := m.store.Put(ctx, m.key(name), data); err != nil {
		m.logger.Error("Failed to write record", "record", name, "error", err)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
