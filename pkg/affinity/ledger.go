package affinity

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/jwebster45206/novel-engine/pkg/notify"
)

// ErrUnknownCharacter is returned for ids missing from the roster.
var ErrUnknownCharacter = errors.New("unknown character")

// Notification is the closed set of ledger notifications.
type Notification interface {
	affinityNotification()
}

// AffinityChanged carries the delta that actually applied after clamping.
type AffinityChanged struct {
	Character string
	Delta     int
	Value     int
}

// LevelChanged is published when the derived level differs from the level
// cached before the mutation.
type LevelChanged struct {
	Character string
	OldLevel  int
	NewLevel  int
}

// Up reports whether the level increased.
func (l LevelChanged) Up() bool { return l.NewLevel > l.OldLevel }

// CharacterUnlocked is published on the first unlock only.
type CharacterUnlocked struct {
	Character string
}

// EventRecorded is published when a new event id enters the history.
type EventRecorded struct {
	Character string
	Event     string
}

// EndingUnlocked is published when a new ending id is unlocked.
type EndingUnlocked struct {
	Character string
	Ending    string
}

func (AffinityChanged) affinityNotification()   {}
func (LevelChanged) affinityNotification()      {}
func (CharacterUnlocked) affinityNotification() {}
func (EventRecorded) affinityNotification()     {}
func (EndingUnlocked) affinityNotification()    {}

// Rand is the randomness source for gift rolls. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithRand sets the randomness source used by GiveGift.
func WithRand(r Rand) Option {
	return func(l *Ledger) {
		if r != nil {
			l.rng = r
		}
	}
}

// Ledger owns every character's relationship state.
type Ledger struct {
	mu        sync.Mutex
	chars     map[string]*character
	order     []string
	lastLevel map[string]int
	rng       Rand
	bus       notify.Bus[Notification]
	logger    *slog.Logger
}

// NewLedger instantiates every roster entry at zero affinity.
func NewLedger(roster []Spec, logger *slog.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		chars:     make(map[string]*character, len(roster)),
		lastLevel: make(map[string]int, len(roster)),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:    logger,
	}
	for _, spec := range roster {
		if spec.ID == "" {
			logger.Warn("Ignoring roster entry without id", "name", spec.Name)
			continue
		}
		if _, exists := l.chars[spec.ID]; exists {
			logger.Warn("Duplicate roster entry, keeping the first", "character", spec.ID)
			continue
		}
		if _, ok := spec.Poses[DefaultPose]; !ok {
			logger.Warn("Character has no normal pose", "character", spec.ID)
		}
		c := newCharacter(spec)
		l.chars[spec.ID] = c
		l.order = append(l.order, spec.ID)
		l.lastLevel[spec.ID] = LevelFor(0, c.spec.MaxAffinity)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Subscribe registers fn for ledger notifications.
func (l *Ledger) Subscribe(fn func(Notification)) func() {
	return l.bus.Subscribe(fn)
}

// Has reports whether id is in the roster.
func (l *Ledger) Has(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.chars[id]
	return ok
}

// Character returns a copy of the character's state.
func (l *Ledger) Character(id string) (Character, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.chars[id]
	if !ok {
		return Character{}, false
	}
	return c.snapshot(), true
}

// Characters returns every character in roster order.
func (l *Ledger) Characters() []Character {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Character, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.chars[id].snapshot())
	}
	return out
}

// Affinity returns the character's affinity, or 0 for unknown ids.
func (l *Ledger) Affinity(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.chars[id]; ok {
		return c.affinity
	}
	return 0
}

// Level returns the derived level, or MinLevel for unknown ids.
func (l *Ledger) Level(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.chars[id]; ok {
		return LevelFor(c.affinity, c.spec.MaxAffinity)
	}
	return MinLevel
}

// ChangeAffinity adds delta, clamps into [0, max] and returns the delta that
// actually applied.
func (l *Ledger) ChangeAffinity(id string, delta int) (int, error) {
	l.mu.Lock()
	c, ok := l.chars[id]
	if !ok {
		l.mu.Unlock()
		l.logger.Warn("Affinity change for unknown character", "character", id, "delta", delta)
		return 0, fmt.Errorf("change affinity %q: %w", id, ErrUnknownCharacter)
	}
	return l.applyLocked(c, c.saturatedAdd(delta))
}

// SetAffinity sets the value directly (clamped) and returns the applied delta.
func (l *Ledger) SetAffinity(id string, value int) (int, error) {
	l.mu.Lock()
	c, ok := l.chars[id]
	if !ok {
		l.mu.Unlock()
		return 0, fmt.Errorf("set affinity %q: %w", id, ErrUnknownCharacter)
	}
	return l.applyLocked(c, value)
}

// applyLocked must be called with l.mu held; it releases the lock before
// publishing.
func (l *Ledger) applyLocked(c *character, target int) (int, error) {
	id := c.spec.ID
	oldLevel := l.lastLevel[id]
	oldValue := c.affinity
	c.affinity = c.clamp(target)
	actual := c.affinity - oldValue
	newLevel := LevelFor(c.affinity, c.spec.MaxAffinity)
	l.lastLevel[id] = newLevel
	value := c.affinity
	l.mu.Unlock()

	if actual == 0 {
		return 0, nil
	}

	l.logger.Debug("Affinity changed", "character", id, "delta", actual, "value", value)
	l.bus.Publish(AffinityChanged{Character: id, Delta: actual, Value: value})
	if newLevel != oldLevel {
		l.bus.Publish(LevelChanged{Character: id, OldLevel: oldLevel, NewLevel: newLevel})
	}
	return actual, nil
}

// Unlock marks the character unlocked. Returns true on the first unlock.
func (l *Ledger) Unlock(id string) bool {
	l.mu.Lock()
	c, ok := l.chars[id]
	if !ok || c.unlocked {
		l.mu.Unlock()
		if !ok {
			l.logger.Warn("Unlock for unknown character", "character", id)
		}
		return false
	}
	c.unlocked = true
	l.mu.Unlock()

	l.bus.Publish(CharacterUnlocked{Character: id})
	return true
}

// IsUnlocked reports the character's unlock state.
func (l *Ledger) IsUnlocked(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.chars[id]
	return ok && c.unlocked
}

// RecordEvent appends event to the character's history. Returns true when
// the event was new.
func (l *Ledger) RecordEvent(id, event string) bool {
	if event == "" {
		return false
	}
	l.mu.Lock()
	c, ok := l.chars[id]
	if !ok {
		l.mu.Unlock()
		l.logger.Warn("Event for unknown character", "character", id, "event", event)
		return false
	}
	var added bool
	c.events, added = appendUnique(c.events, event)
	l.mu.Unlock()

	if added {
		l.bus.Publish(EventRecorded{Character: id, Event: event})
	}
	return added
}

// HasEvent reports whether event is in the character's history.
func (l *Ledger) HasEvent(id, event string) bool {
	ch, ok := l.Character(id)
	if !ok {
		return false
	}
	for _, e := range ch.Events {
		if e == event {
			return true
		}
	}
	return false
}

// UnlockEnding records ending for the character. Returns true when new.
func (l *Ledger) UnlockEnding(id, ending string) bool {
	if ending == "" {
		return false
	}
	l.mu.Lock()
	c, ok := l.chars[id]
	if !ok {
		l.mu.Unlock()
		l.logger.Warn("Ending for unknown character", "character", id, "ending", ending)
		return false
	}
	var added bool
	c.endings, added = appendUnique(c.endings, ending)
	l.mu.Unlock()

	if added {
		l.bus.Publish(EndingUnlocked{Character: id, Ending: ending})
	}
	return added
}

// HasEnding reports whether ending has been unlocked for the character.
func (l *Ledger) HasEnding(id, ending string) bool {
	ch, ok := l.Character(id)
	if !ok {
		return false
	}
	for _, e := range ch.Endings {
		if e == ending {
			return true
		}
	}
	return false
}

// Export returns the persisted state of every character.
func (l *Ledger) Export() map[string]State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]State, len(l.chars))
	for id, c := range l.chars {
		out[id] = c.state()
	}
	return out
}

// Import replaces all character state. Characters absent from states are
// reset; ids not in the roster are ignored. No notifications are published.
func (l *Ledger) Import(states map[string]State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, c := range l.chars {
		c.reset()
		if s, ok := states[id]; ok {
			c.affinity = c.clamp(s.Affinity)
			c.unlocked = s.Unlocked
			c.endings = dedupe(s.Endings)
			c.events = dedupe(s.Events)
		}
		l.lastLevel[id] = LevelFor(c.affinity, c.spec.MaxAffinity)
	}
	for id := range states {
		if _, ok := l.chars[id]; !ok {
			l.logger.Warn("Ignoring saved state for character missing from roster", "character", id)
		}
	}
}

// Reset zeroes every character for a new game.
func (l *Ledger) Reset() {
	l.Import(nil)
}
