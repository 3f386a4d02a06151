package content

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jwebster45206/novel-engine/pkg/conditionals"
	"github.com/jwebster45206/novel-engine/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const charactersYAML = `
- id: mira
  name: Mira
  poses:
    normal: mira_normal.png
    smile: mira_smile.png
- id: ren
  max_affinity: 500
`

const flagsJSON = `[
  {"key": "met_mira", "description": "Talked to Mira", "tags": ["route"]},
  {"key": "tutorial", "default": true}
]`

const introYAML = `
title: First Day
music: bgm_school
nodes:
  start:
    type: narration
    text: The bell rings.
    background: bg_classroom
    next: ask
  ask:
    type: choice
    choices:
      - id: help
        text: Help her
        affinity: {mira: 15}
        effects:
          - {type: flag, flag: met_mira}
        next: bye
      - id: secret
        text: Tell the secret
        conditions:
          - type: any
            conditions:
              - {type: flag, flag: tutorial, value: false}
              - {type: affinity, character: ren, min: 100}
        next: bye
  bye:
    type: dialog
    speaker: mira
    display: {character: mira, pose: smile, position: left}
    text: See you.
`

const festivalJSON = `{
  "id": "festival",
  "unlock": [{"type": "chapter", "chapter": "intro"}],
  "start": "gate",
  "nodes": {
    "gate": {"type": "end", "text": "Lanterns.", "effects": [{"type": "unlock_ending", "character": "mira", "ending": "festival_end"}]}
  }
}`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"characters.yaml":        {Data: []byte(charactersYAML)},
		"flags.json":             {Data: []byte(flagsJSON)},
		"chapters/01_intro.yaml": {Data: []byte(introYAML)},
		"chapters/02_fest.json":  {Data: []byte(festivalJSON)},
		"chapters/README.md":     {Data: []byte("ignored")},
	}
}

func TestLoadFS(t *testing.T) {
	b, err := LoadFS(testFS())
	require.NoError(t, err)

	require.Len(t, b.Characters, 2)
	assert.Equal(t, "mira", b.Characters[0].ID)
	assert.Equal(t, 500, b.Characters[1].MaxAffinity)
	assert.Equal(t, "Ren", b.Characters[1].DisplayName())

	require.Len(t, b.Flags, 2)
	assert.True(t, b.Flags[1].Default)
	assert.Equal(t, []string{"route"}, b.Flags[0].Tags)

	require.Len(t, b.Chapters, 2)
	intro, fest := b.Chapters[0], b.Chapters[1]
	assert.Equal(t, "intro", intro.ID, "id defaults to the file name without its ordering prefix")
	assert.Equal(t, "festival", fest.ID)
	assert.Equal(t, "chapters/02_fest.json", b.Files["festival"])

	ask := intro.Nodes["ask"]
	assert.Equal(t, story.NodeChoice, ask.Type)
	require.Len(t, ask.Choices, 2)
	assert.Equal(t, map[string]int{"mira": 15}, ask.Choices[0].Affinity)
	assert.Equal(t, conditionals.Effects{conditionals.SetFlag{Flag: "met_mira", Value: true}}, ask.Choices[0].Effects)
	assert.Equal(t, conditionals.Conditions{conditionals.AnyOf{Conditions: conditionals.Conditions{
		conditionals.FlagEquals{Flag: "tutorial", Value: false},
		conditionals.AffinityAtLeast{Character: "ren", Min: 100},
	}}}, ask.Choices[1].Conditions)

	bye := intro.Nodes["bye"]
	require.NotNil(t, bye.Display)
	assert.Equal(t, story.PositionLeft, bye.Display.Position)

	assert.Equal(t, conditionals.Conditions{conditionals.ChapterReached{Chapter: "intro"}}, fest.Unlock)
	assert.Equal(t, "gate", fest.EntryNode())
}

func TestLoadFS_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{
			name: "no chapters dir",
			fsys: fstest.MapFS{"flags.json": {Data: []byte(`[]`)}},
			want: "failed to read chapters",
		},
		{
			name: "empty chapters dir",
			fsys: fstest.MapFS{"chapters/notes.txt": {Data: []byte("x")}},
			want: "no chapters",
		},
		{
			name: "bad yaml",
			fsys: fstest.MapFS{"chapters/a.yaml": {Data: []byte("nodes: [")}},
			want: "chapters/a.yaml",
		},
		{
			name: "duplicate chapter",
			fsys: fstest.MapFS{
				"chapters/a.json": {Data: []byte(`{"id":"x","nodes":{}}`)},
				"chapters/b.json": {Data: []byte(`{"id":"x","nodes":{}}`)},
			},
			want: "declared in both",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFS(tt.fsys)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_CleanBundle(t *testing.T) {
	b, err := LoadFS(testFS())
	require.NoError(t, err)
	assert.NoError(t, Validate(b))
}

func TestValidate_Problems(t *testing.T) {
	b, err := LoadFS(testFS())
	require.NoError(t, err)

	intro := &b.Chapters[0]
	intro.Nodes["ask"] = story.Node{Type: story.NodeChoice, Choices: []story.Choice{
		{ID: "help", Text: "Help", Next: "nowhere", Affinity: map[string]int{"ghost": 5}},
		{ID: "help", Text: "Again", Conditions: conditionals.Conditions{conditionals.Unknown{Type: "moon_phase"}}},
	}}
	intro.Nodes["Bad-Id"] = story.Node{Type: "monologue", Effects: conditionals.Effects{
		conditionals.SetFlag{Flag: "undeclared", Value: true},
		conditionals.UnknownEffect{Type: "confetti"},
	}}
	b.Chapters[1].Unlock = conditionals.Conditions{conditionals.ChapterReached{Chapter: "missing"}}
	b.Chapters[1].Start = "nope"
	b.Characters[0].Poses = map[string]string{"smile": "x.png"}

	v := &Validator{}
	problems := v.Check(b)
	joined := strings.Join(problems, "\n")

	for _, want := range []string{
		"links to missing node 'nowhere'",
		"unknown character 'ghost'",
		"duplicate choice 'help'",
		"unknown condition type 'moon_phase'",
		"node ID 'Bad-Id' should be lowercase snake_case",
		"unknown type 'monologue'",
		"undeclared flag 'undeclared'",
		"unknown effect type 'confetti'",
		"unknown chapter 'missing'",
		"no entry node 'nope'",
		"no 'normal' pose",
	} {
		assert.Contains(t, joined, want)
	}
	for _, p := range problems {
		assert.True(t, strings.HasPrefix(p, "  - "), p)
	}

	assert.Error(t, Validate(b))
}

func TestChapterID(t *testing.T) {
	assert.Equal(t, "intro", chapterID("01_intro.yaml"))
	assert.Equal(t, "finale", chapterID("10-finale.json"))
	assert.Equal(t, "epilogue", chapterID("epilogue.yml"))
	assert.Equal(t, "2024", chapterID("2024.json"))
}

func TestIsValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"a", true},
		{"mira", true},
		{"chapter_1", true},
		{"_x", false},
		{"x_", false},
		{"Mira", false},
		{"two-words", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidID(tt.id), tt.id)
	}
}

func TestDecodeStrict(t *testing.T) {
	var f struct {
		Key string `json:"key" yaml:"key"`
	}
	assert.NoError(t, DecodeStrict("f.json", []byte(`{"key":"a"}`), &f))
	assert.Error(t, DecodeStrict("f.json", []byte(`{"key":"a","typo":1}`), &f))
	assert.Error(t, DecodeStrict("f.yaml", []byte("key: a\ntypo: 1\n"), &f))
	assert.Error(t, DecodeStrict("f.toml", nil, &f))
}

func TestLoad_SampleContent(t *testing.T) {
	b, err := Load("../../data")
	require.NoError(t, err)
	assert.NoError(t, Validate(b))
}
