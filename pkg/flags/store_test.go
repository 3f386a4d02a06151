package flags

import (
	"testing"

	"github.com/jwebster45206/novel-engine/pkg/conditionals"
	"github.com/stretchr/testify/assert"
)

func testDefinitions() []Definition {
	return []Definition{
		{Key: "met_mira", Description: "Player has met Mira", Tags: []string{"ch1"}},
		{Key: "tutorial_enabled", Default: true, Tags: []string{"system"}},
		{Key: "umbrella_shared", Tags: []string{"ch1", "romance"}},
	}
}

func recordChanges(s *Store) *[]Changed {
	var got []Changed
	s.Subscribe(func(n Notification) {
		if c, ok := n.(Changed); ok {
			got = append(got, c)
		}
	})
	return &got
}

func TestStore_GetDefaults(t *testing.T) {
	s := NewStore(testDefinitions(), nil)

	tests := []struct {
		key      string
		expected bool
	}{
		{"met_mira", false},
		{"tutorial_enabled", true},
		{"never_declared", false},
	}
	for _, tt := range tests {
		if got := s.Get(tt.key); got != tt.expected {
			t.Errorf("Get(%q) = %v, expected %v", tt.key, got, tt.expected)
		}
	}
}

func TestStore_SetNotifiesOnlyOnChange(t *testing.T) {
	s := NewStore(testDefinitions(), nil)
	got := recordChanges(s)

	assert.True(t, s.Set("met_mira", true))
	assert.False(t, s.Set("met_mira", true), "unchanged value is a no-op")
	assert.False(t, s.Set("tutorial_enabled", true), "setting the default on an unset flag is a no-op")
	assert.True(t, s.Set("tutorial_enabled", false))

	assert.Equal(t, []Changed{
		{Key: "met_mira", Old: false, New: true},
		{Key: "tutorial_enabled", Old: true, New: false},
	}, *got)
}

func TestStore_CheckAllAny(t *testing.T) {
	s := NewStore(testDefinitions(), nil)
	s.Set("met_mira", true)

	assert.True(t, s.CheckAll("met_mira", "tutorial_enabled"))
	assert.False(t, s.CheckAll("met_mira", "umbrella_shared"))
	assert.True(t, s.CheckAll(), "no keys holds")

	assert.True(t, s.CheckAny("umbrella_shared", "met_mira"))
	assert.False(t, s.CheckAny("umbrella_shared", "unknown"))
	assert.False(t, s.CheckAny())
}

func TestStore_Evaluate(t *testing.T) {
	s := NewStore(testDefinitions(), nil)
	s.Set("met_mira", true)

	tests := []struct {
		name      string
		condition conditionals.Condition
		expected  bool
	}{
		{"flag true", conditionals.FlagEquals{Flag: "met_mira", Value: true}, true},
		{"flag false expected", conditionals.FlagEquals{Flag: "umbrella_shared", Value: false}, true},
		{"default true", conditionals.FlagEquals{Flag: "tutorial_enabled", Value: true}, true},
		{"any", conditionals.AnyOf{Conditions: conditionals.Conditions{
			conditionals.FlagEquals{Flag: "umbrella_shared", Value: true},
			conditionals.FlagEquals{Flag: "met_mira", Value: true},
		}}, true},
		{"not", conditionals.Not{Condition: conditionals.FlagEquals{Flag: "met_mira", Value: true}}, false},
		{"affinity is not a flag condition", conditionals.AffinityAtLeast{Character: "mira", Min: 0}, false},
		{"chapter is not a flag condition", conditionals.ChapterReached{Chapter: "ch1"}, false},
		{"item is not a flag condition", conditionals.HasItem{Item: "umbrella"}, false},
		{"any with only affinity", conditionals.AnyOf{Conditions: conditionals.Conditions{
			conditionals.AffinityAtLeast{Character: "mira", Min: 0},
		}}, false},
		{"unknown fails closed", conditionals.Unknown{Type: "weather"}, false},
		{"nil fails closed", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.Evaluate(tt.condition))
		})
	}
}

func TestStore_ExportIsSparse(t *testing.T) {
	s := NewStore(testDefinitions(), nil)
	s.Set("met_mira", true)
	s.Set("umbrella_shared", true)
	s.Set("umbrella_shared", false) // back to default
	s.Set("tutorial_enabled", false)
	s.Set("custom_flag", true)

	assert.Equal(t, map[string]bool{
		"met_mira":         true,
		"tutorial_enabled": false,
		"custom_flag":      true,
	}, s.Export())
}

func TestStore_SetToDefaultRoundTrip(t *testing.T) {
	s := NewStore(testDefinitions(), nil)
	s.Set("tutorial_enabled", true) // its own default

	fresh := NewStore(testDefinitions(), nil)
	fresh.Import(s.Export())

	assert.Equal(t, NewStore(testDefinitions(), nil).Get("tutorial_enabled"), fresh.Get("tutorial_enabled"))
	assert.Empty(t, s.Export())
}

func TestStore_ImportResetsBeforeApplying(t *testing.T) {
	s := NewStore(testDefinitions(), nil)
	s.Set("umbrella_shared", true)
	s.Set("tutorial_enabled", false)

	got := recordChanges(s)
	s.Import(map[string]bool{"met_mira": true})

	assert.True(t, s.Get("met_mira"))
	assert.False(t, s.Get("umbrella_shared"), "flags missing from the import return to default")
	assert.True(t, s.Get("tutorial_enabled"))
	assert.Equal(t, []Changed{
		{Key: "met_mira", Old: false, New: true},
		{Key: "tutorial_enabled", Old: false, New: true},
		{Key: "umbrella_shared", Old: true, New: false},
	}, *got)
}

func TestStore_ImportUsesNewDefaults(t *testing.T) {
	old := NewStore([]Definition{{Key: "met_mira"}}, nil)
	old.Set("met_mira", true)
	saved := old.Export()

	// A later content version introduces a flag that defaults to true.
	defs := append([]Definition{{Key: "met_mira"}}, Definition{Key: "new_route_open", Default: true})
	current := NewStore(defs, nil)
	current.Import(saved)

	assert.True(t, current.Get("met_mira"))
	assert.True(t, current.Get("new_route_open"))
}

func TestStore_TagsAndReset(t *testing.T) {
	s := NewStore(testDefinitions(), nil)
	s.Set("met_mira", true)
	s.Set("umbrella_shared", true)
	s.Set("tutorial_enabled", false)

	assert.Equal(t, []string{"met_mira", "umbrella_shared"}, s.KeysWithTag("ch1"))
	assert.Empty(t, s.KeysWithTag("missing"))

	got := recordChanges(s)
	s.ResetTag("ch1")
	assert.False(t, s.Get("met_mira"))
	assert.False(t, s.Get("umbrella_shared"))
	assert.False(t, s.Get("tutorial_enabled"), "untagged flags are left alone")
	assert.Len(t, *got, 2)

	s.Reset()
	assert.True(t, s.Get("tutorial_enabled"))
	assert.Empty(t, s.Export())
}

func TestStore_DeclareIgnoresEmptyKey(t *testing.T) {
	s := NewStore([]Definition{{Key: ""}}, nil)
	assert.False(t, s.Declared(""))

	s.Declare(Definition{Key: "late", Default: true})
	assert.True(t, s.Declared("late"))
	assert.True(t, s.Get("late"))
	assert.Contains(t, s.All(), "late")
}
