package conditionals

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// mockStateView implements StateView for testing
type mockStateView struct {
	flags    map[string]bool
	affinity map[string]int
	chapters map[string]bool
	items    map[string]bool
}

func (m *mockStateView) Flag(key string) bool               { return m.flags[key] }
func (m *mockStateView) Affinity(character string) int      { return m.affinity[character] }
func (m *mockStateView) ChapterReached(chapter string) bool { return m.chapters[chapter] }
func (m *mockStateView) HasItem(item string) bool           { return m.items[item] }

func TestEvaluate(t *testing.T) {
	view := &mockStateView{
		flags:    map[string]bool{"met_mira": true},
		affinity: map[string]int{"mira": 300},
		chapters: map[string]bool{"ch1": true},
		items:    map[string]bool{"umbrella": true},
	}

	tests := []struct {
		name      string
		condition Condition
		expected  bool
	}{
		{"affinity at threshold", AffinityAtLeast{Character: "mira", Min: 300}, true},
		{"affinity below threshold", AffinityAtLeast{Character: "mira", Min: 301}, false},
		{"affinity unknown character", AffinityAtLeast{Character: "nobody", Min: 1}, false},
		{"flag equals true", FlagEquals{Flag: "met_mira", Value: true}, true},
		{"flag equals false on unset flag", FlagEquals{Flag: "met_kai", Value: false}, true},
		{"flag mismatch", FlagEquals{Flag: "met_mira", Value: false}, false},
		{"chapter reached", ChapterReached{Chapter: "ch1"}, true},
		{"chapter not reached", ChapterReached{Chapter: "ch2"}, false},
		{"item possessed", HasItem{Item: "umbrella"}, true},
		{"item missing", HasItem{Item: "key"}, false},
		{"any with one match", AnyOf{Conditions: Conditions{HasItem{Item: "key"}, ChapterReached{Chapter: "ch1"}}}, true},
		{"any with no match", AnyOf{Conditions: Conditions{HasItem{Item: "key"}}}, false},
		{"empty any", AnyOf{}, false},
		{"not inverts", Not{Condition: HasItem{Item: "key"}}, true},
		{"empty not", Not{}, false},
		{"unknown fails closed", Unknown{Type: "weather"}, false},
		{"nil fails closed", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.condition, view); got != tt.expected {
				t.Errorf("Evaluate() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestEvaluateAll(t *testing.T) {
	view := &mockStateView{flags: map[string]bool{"a": true}}

	if !EvaluateAll(nil, view) {
		t.Error("Empty condition list should hold")
	}
	if !EvaluateAll(Conditions{FlagEquals{Flag: "a", Value: true}}, view) {
		t.Error("Expected single satisfied condition to hold")
	}
	if EvaluateAll(Conditions{FlagEquals{Flag: "a", Value: true}, FlagEquals{Flag: "b", Value: true}}, view) {
		t.Error("Conditions are conjunctive; one failure must fail the list")
	}
}

func TestConditions_UnmarshalJSON(t *testing.T) {
	data := []byte(`[
		{"type": "affinity", "character": "mira", "min": 250},
		{"type": "flag", "flag": "met_mira"},
		{"type": "flag", "flag": "rained", "value": false},
		{"type": "chapter", "chapter": "ch2"},
		{"type": "item", "item": "umbrella"},
		{"type": "any", "conditions": [{"type": "item", "item": "key"}]},
		{"type": "not", "condition": {"type": "flag", "flag": "angry"}},
		{"type": "moon_phase"}
	]`)

	var cs Conditions
	require.NoError(t, json.Unmarshal(data, &cs))
	require.Len(t, cs, 8)

	assert.Equal(t, AffinityAtLeast{Character: "mira", Min: 250}, cs[0])
	assert.Equal(t, FlagEquals{Flag: "met_mira", Value: true}, cs[1], "flag value defaults to true")
	assert.Equal(t, FlagEquals{Flag: "rained", Value: false}, cs[2])
	assert.Equal(t, ChapterReached{Chapter: "ch2"}, cs[3])
	assert.Equal(t, HasItem{Item: "umbrella"}, cs[4])
	assert.Equal(t, AnyOf{Conditions: Conditions{HasItem{Item: "key"}}}, cs[5])
	assert.Equal(t, Not{Condition: FlagEquals{Flag: "angry", Value: true}}, cs[6])
	assert.Equal(t, Unknown{Type: "moon_phase"}, cs[7])

	encoded, err := json.Marshal(cs)
	require.NoError(t, err)

	var again Conditions
	require.NoError(t, json.Unmarshal(encoded, &again))
	assert.Equal(t, cs, again)
}

func TestEffects_UnmarshalYAML(t *testing.T) {
	data := []byte(`
- type: affinity
  character: mira
  delta: -15
- type: flag
  flag: met_mira
- type: item
  item: umbrella
- type: item
  item: coin
  count: 3
- type: scene
  target: rooftop
- type: unlock
  content: cg_rooftop
- type: unlock_character
  character: kai
- type: record_event
  character: mira
  event: first_date
- type: unlock_ending
  character: mira
  ending: good_end
- type: fireworks
`)

	var es Effects
	require.NoError(t, yaml.Unmarshal(data, &es))
	require.Len(t, es, 10)

	assert.Equal(t, AffinityDelta{Character: "mira", Delta: -15}, es[0])
	assert.Equal(t, SetFlag{Flag: "met_mira", Value: true}, es[1])
	assert.Equal(t, GrantItem{Item: "umbrella", Count: 1}, es[2], "count defaults to 1")
	assert.Equal(t, GrantItem{Item: "coin", Count: 3}, es[3])
	assert.Equal(t, ChangeScene{Target: "rooftop"}, es[4])
	assert.Equal(t, UnlockContent{Content: "cg_rooftop"}, es[5])
	assert.Equal(t, UnlockCharacter{Character: "kai"}, es[6])
	assert.Equal(t, RecordEvent{Character: "mira", Event: "first_date"}, es[7])
	assert.Equal(t, UnlockEnding{Character: "mira", Ending: "good_end"}, es[8])
	assert.Equal(t, EffectKind("fireworks"), es[9].Kind())
}

func TestConditions_UnmarshalYAML(t *testing.T) {
	data := []byte(`
- type: affinity
  character: mira
  min: 100
- type: not
  condition:
    type: chapter
    chapter: ch3
`)
	var cs Conditions
	require.NoError(t, yaml.Unmarshal(data, &cs))
	assert.Equal(t, Conditions{
		AffinityAtLeast{Character: "mira", Min: 100},
		Not{Condition: ChapterReached{Chapter: "ch3"}},
	}, cs)
}

func TestWalk(t *testing.T) {
	c := AnyOf{Conditions: Conditions{
		FlagEquals{Flag: "a", Value: true},
		Not{Condition: Unknown{Type: "x"}},
	}}

	var kinds []ConditionKind
	Walk(c, func(c Condition) { kinds = append(kinds, c.Kind()) })

	assert.Equal(t, []ConditionKind{KindAny, KindFlag, KindNot, ConditionKind("x")}, kinds)
}
