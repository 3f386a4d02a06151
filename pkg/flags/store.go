// Package flags implements the flag store: a flat space of named booleans
// declared once from content, mutated during play and saved sparsely.
package flags

import (
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/jwebster45206/novel-engine/pkg/conditionals"
	"github.com/jwebster45206/novel-engine/pkg/notify"
)

// Definition declares a flag and its default.
type Definition struct {
	Key         string   `json:"key" yaml:"key"`
	Default     bool     `json:"default,omitempty" yaml:"default,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Notification is the closed set of flag store notifications.
type Notification interface {
	flagNotification()
}

// Changed is published whenever a flag's value actually changes.
type Changed struct {
	Key string
	Old bool
	New bool
}

func (Changed) flagNotification() {}

// Store holds flag values. Values equal to the declared default are not
// stored explicitly once reset or imported.
type Store struct {
	mu     sync.RWMutex
	defs   map[string]Definition
	values map[string]bool
	bus    notify.Bus[Notification]
	logger *slog.Logger
}

// NewStore creates a store with the given definitions declared.
func NewStore(defs []Definition, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		defs:   make(map[string]Definition, len(defs)),
		values: make(map[string]bool),
		logger: logger,
	}
	for _, d := range defs {
		s.declare(d)
	}
	return s
}

// Declare adds or replaces a flag definition. The current value is left alone.
func (s *Store) Declare(def Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declare(def)
}

func (s *Store) declare(def Definition) {
	if def.Key == "" {
		s.logger.Warn("Ignoring flag definition without key", "description", def.Description)
		return
	}
	if _, exists := s.defs[def.Key]; exists {
		s.logger.Warn("Flag declared twice, replacing definition", "key", def.Key)
	}
	def.Tags = slices.Clone(def.Tags)
	s.defs[def.Key] = def
}

// Definition returns the declaration for key.
func (s *Store) Definition(key string) (Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.defs[key]
	return d, ok
}

// Declared reports whether key has a definition.
func (s *Store) Declared(key string) bool {
	_, ok := s.Definition(key)
	return ok
}

// Subscribe registers fn for flag notifications.
func (s *Store) Subscribe(fn func(Notification)) func() {
	return s.bus.Subscribe(fn)
}

// Set stores value for key. Returns false and publishes nothing when the
// value is unchanged.
func (s *Store) Set(key string, value bool) bool {
	if key == "" {
		return false
	}

	s.mu.Lock()
	old := s.get(key)
	if old == value {
		s.mu.Unlock()
		return false
	}
	if _, declared := s.defs[key]; !declared {
		s.logger.Debug("Setting undeclared flag", "key", key)
	}
	s.values[key] = value
	s.mu.Unlock()

	s.bus.Publish(Changed{Key: key, Old: old, New: value})
	return true
}

// Get returns the stored value, the declared default, or false.
func (s *Store) Get(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(key)
}

func (s *Store) get(key string) bool {
	if v, ok := s.values[key]; ok {
		return v
	}
	return s.defs[key].Default
}

// CheckAll reports whether every key is true. No keys holds.
func (s *Store) CheckAll(keys ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range keys {
		if !s.get(k) {
			return false
		}
	}
	return true
}

// CheckAny reports whether at least one key is true.
func (s *Store) CheckAny(keys ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range keys {
		if s.get(k) {
			return true
		}
	}
	return false
}

// Evaluate checks a condition against flag state only. Flag, any and not
// conditions are understood. Affinity, chapter and item conditions fail
// closed here, so a not wrapping one of them holds. Use
// conditionals.Evaluate with a full StateView to check those.
func (s *Store) Evaluate(c conditionals.Condition) bool {
	switch c := c.(type) {
	case conditionals.FlagEquals:
		return s.Get(c.Flag) == c.Value
	case conditionals.AnyOf:
		for _, nested := range c.Conditions {
			if s.Evaluate(nested) {
				return true
			}
		}
		return false
	case conditionals.Not:
		if c.Condition == nil {
			return false
		}
		return !s.Evaluate(c.Condition)
	case nil:
		return false
	default:
		s.logger.Debug("Flag store cannot evaluate condition", "kind", c.Kind())
		return false
	}
}

// KeysWithTag returns declared keys carrying tag, sorted.
func (s *Store) KeysWithTag(tag string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k, d := range s.defs {
		if slices.Contains(d.Tags, tag) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// ResetTag returns every flag carrying tag to its default.
func (s *Store) ResetTag(tag string) {
	for _, k := range s.KeysWithTag(tag) {
		s.mu.Lock()
		old := s.get(k)
		delete(s.values, k)
		def := s.defs[k].Default
		s.mu.Unlock()
		if old != def {
			s.bus.Publish(Changed{Key: k, Old: old, New: def})
		}
	}
}

// Reset returns every flag to its default and forgets undeclared flags.
func (s *Store) Reset() {
	s.replace(nil)
}

// Export returns only the flags whose value differs from their default.
func (s *Store) Export() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool)
	for k, v := range s.values {
		if v != s.defs[k].Default {
			out[k] = v
		}
	}
	return out
}

// Import resets to defaults and then applies the sparse set, so flags added
// after the save was written read as their current default.
func (s *Store) Import(values map[string]bool) {
	s.replace(values)
}

// All returns the effective value of every declared or set flag.
func (s *Store) All() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.defs)+len(s.values))
	for k, d := range s.defs {
		out[k] = d.Default
	}
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Store) replace(values map[string]bool) {
	s.mu.Lock()
	before := make(map[string]bool, len(s.values))
	for k := range s.values {
		before[k] = s.get(k)
	}
	for k := range values {
		before[k] = s.get(k)
	}

	s.values = make(map[string]bool, len(values))
	for k, v := range values {
		if v != s.defs[k].Default {
			s.values[k] = v
		}
	}

	var changes []Changed
	for k, old := range before {
		if now := s.get(k); now != old {
			changes = append(changes, Changed{Key: k, Old: old, New: now})
		}
	}
	s.mu.Unlock()

	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	for _, c := range changes {
		s.bus.Publish(c)
	}
}
