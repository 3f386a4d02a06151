package content

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jwebster45206/novel-engine/pkg/affinity"
	"github.com/jwebster45206/novel-engine/pkg/conditionals"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// Validator collects authoring problems in a bundle. Problems never stop
// the engine from running; they are reported to content authors.
type Validator struct {
	errors []string

	characters map[string]bool
	flags      map[string]bool
	chapters   map[string]bool
}

// Validate returns nil when b has no problems, or an error listing them.
func Validate(b *Bundle) error {
	v := &Validator{}
	problems := v.Check(b)
	if len(problems) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

// Check validates b and returns one line per problem.
func (v *Validator) Check(b *Bundle) []string {
	v.errors = nil
	v.characters = make(map[string]bool, len(b.Characters))
	v.flags = make(map[string]bool, len(b.Flags))
	v.chapters = make(map[string]bool, len(b.Chapters))

	for _, c := range b.Characters {
		v.validateCharacter(c)
	}
	for _, f := range b.Flags {
		v.validateIDFormat("flag key", f.Key)
		if v.flags[f.Key] {
			v.addError(fmt.Sprintf("flag '%s' is declared twice", f.Key))
		}
		v.flags[f.Key] = true
	}
	for _, ch := range b.Chapters {
		if v.chapters[ch.ID] {
			v.addError(fmt.Sprintf("chapter '%s' is declared twice", ch.ID))
		}
		v.chapters[ch.ID] = true
	}
	for i := range b.Chapters {
		v.validateChapter(&b.Chapters[i])
	}
	return v.errors
}

func (v *Validator) validateCharacter(c affinity.Spec) {
	if c.ID == "" {
		v.addError("character without id")
		return
	}
	v.validateIDFormat("character ID", c.ID)
	if v.characters[c.ID] {
		v.addError(fmt.Sprintf("character '%s' is declared twice", c.ID))
	}
	v.characters[c.ID] = true
	if len(c.Poses) > 0 {
		if _, ok := c.Poses[affinity.DefaultPose]; !ok {
			v.addError(fmt.Sprintf("character '%s' has poses but no '%s' pose", c.ID, affinity.DefaultPose))
		}
	}
	if c.MaxAffinity < 0 {
		v.addError(fmt.Sprintf("character '%s' has negative max_affinity", c.ID))
	}
}

func (v *Validator) validateChapter(ch *story.Chapter) {
	v.validateIDFormat("chapter ID", ch.ID)
	context := fmt.Sprintf("chapter %s", ch.ID)

	if len(ch.Nodes) == 0 {
		v.addError(fmt.Sprintf("%s has no nodes", context))
		return
	}
	if _, ok := ch.Nodes[ch.EntryNode()]; !ok {
		v.addError(fmt.Sprintf("%s has no entry node '%s'", context, ch.EntryNode()))
	}
	v.validateConditions(ch.Unlock, context+" unlock")

	// Sorted for stable output.
	ids := make([]string, 0, len(ch.Nodes))
	for id := range ch.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		node := ch.Nodes[id]
		v.validateNode(ch, id, &node)
	}
}

func (v *Validator) validateNode(ch *story.Chapter, id string, n *story.Node) {
	v.validateIDFormat("node ID", id)
	context := fmt.Sprintf("node %s in chapter %s", id, ch.ID)

	if !n.Type.Valid() {
		v.addError(fmt.Sprintf("%s has unknown type '%s'", context, n.Type))
	}
	if n.ID != "" && n.ID != id {
		v.addError(fmt.Sprintf("%s declares a different id '%s'", context, n.ID))
	}
	v.validateLink(ch, context, n.Next)
	if n.Display != nil {
		v.validateCharacterRef(context+" display", n.Display.Character)
		switch n.Display.Position {
		case "", story.PositionLeft, story.PositionCenter, story.PositionRight:
		default:
			v.addError(fmt.Sprintf("%s has unknown display position '%s'", context, n.Display.Position))
		}
	}
	v.validateConditions(n.Conditions, context)
	v.validateEffects(n.Effects, context)

	switch n.Type {
	case story.NodeChoice:
		if len(n.Choices) == 0 {
			v.addError(fmt.Sprintf("%s is a choice node without choices", context))
		}
	case story.NodeDialog, story.NodeNarration:
		if n.Text == "" {
			v.addError(fmt.Sprintf("%s has no text", context))
		}
	}
	if n.Type != story.NodeChoice && n.Type != story.NodeBranch && len(n.Choices) > 0 {
		v.addError(fmt.Sprintf("%s has choices but type '%s' ignores them", context, n.Type))
	}

	seen := make(map[string]bool, len(n.Choices))
	for _, c := range n.Choices {
		cctx := fmt.Sprintf("choice %s of %s", c.ID, context)
		if c.ID == "" {
			v.addError(fmt.Sprintf("%s has a choice without id", context))
		} else {
			v.validateIDFormat("choice ID", c.ID)
			if seen[c.ID] {
				v.addError(fmt.Sprintf("%s has duplicate choice '%s'", context, c.ID))
			}
			seen[c.ID] = true
		}
		if n.Type == story.NodeChoice && c.Text == "" {
			v.addError(fmt.Sprintf("%s has no text", cctx))
		}
		v.validateLink(ch, cctx, c.Next)
		v.validateConditions(c.Conditions, cctx)
		v.validateEffects(c.Effects, cctx)
		for char := range c.Affinity {
			v.validateCharacterRef(cctx+" affinity", char)
		}
	}
}

func (v *Validator) validateLink(ch *story.Chapter, context, target string) {
	if target == "" {
		return
	}
	if _, ok := ch.Nodes[target]; !ok {
		v.addError(fmt.Sprintf("%s links to missing node '%s'", context, target))
	}
}

func (v *Validator) validateConditions(cs conditionals.Conditions, context string) {
	for _, c := range cs {
		conditionals.Walk(c, func(c conditionals.Condition) {
			switch c := c.(type) {
			case conditionals.AffinityAtLeast:
				v.validateCharacterRef(context+" condition", c.Character)
			case conditionals.FlagEquals:
				v.validateFlagRef(context+" condition", c.Flag)
			case conditionals.ChapterReached:
				if !v.chapters[c.Chapter] {
					v.addError(fmt.Sprintf("%s condition references unknown chapter '%s'", context, c.Chapter))
				}
			case conditionals.HasItem:
				if c.Item == "" {
					v.addError(fmt.Sprintf("%s item condition has no item", context))
				}
			case conditionals.Not:
				if c.Condition == nil {
					v.addError(fmt.Sprintf("%s has an empty 'not' condition", context))
				}
			case conditionals.AnyOf:
				if len(c.Conditions) == 0 {
					v.addError(fmt.Sprintf("%s has an empty 'any' condition", context))
				}
			case conditionals.Unknown:
				v.addError(fmt.Sprintf("%s has unknown condition type '%s'", context, c.Type))
			}
		})
	}
}

func (v *Validator) validateEffects(es conditionals.Effects, context string) {
	for _, e := range es {
		switch e := e.(type) {
		case conditionals.AffinityDelta:
			v.validateCharacterRef(context+" effect", e.Character)
		case conditionals.SetFlag:
			v.validateFlagRef(context+" effect", e.Flag)
		case conditionals.GrantItem:
			if e.Item == "" || e.Count <= 0 {
				v.addError(fmt.Sprintf("%s item effect needs an item and a positive count", context))
			}
		case conditionals.ChangeScene:
			if e.Target == "" {
				v.addError(fmt.Sprintf("%s scene effect has no target", context))
			}
		case conditionals.UnlockContent:
			v.validateIDFormat(context+" unlock content", e.Content)
		case conditionals.UnlockCharacter:
			v.validateCharacterRef(context+" effect", e.Character)
		case conditionals.RecordEvent:
			v.validateCharacterRef(context+" effect", e.Character)
		case conditionals.UnlockEnding:
			v.validateCharacterRef(context+" effect", e.Character)
			v.validateIDFormat(context+" ending", e.Ending)
		case conditionals.UnknownEffect:
			v.addError(fmt.Sprintf("%s has unknown effect type '%s'", context, e.Type))
		}
	}
}

func (v *Validator) validateCharacterRef(context, id string) {
	if !v.characters[id] {
		v.addError(fmt.Sprintf("%s references unknown character '%s'", context, id))
	}
}

func (v *Validator) validateFlagRef(context, key string) {
	if !v.flags[key] {
		v.addError(fmt.Sprintf("%s references undeclared flag '%s'", context, key))
	}
}

func (v *Validator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}

	if !IsValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

// IsValidID reports whether id is lowercase snake_case.
func IsValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
