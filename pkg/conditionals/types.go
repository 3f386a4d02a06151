// Package conditionals defines the closed set of conditions that gate story
// content and the effects that content applies when it plays.
package conditionals

// ConditionKind is the discriminator written as "type" in content files.
type ConditionKind string

const (
	KindAffinity ConditionKind = "affinity"
	KindFlag     ConditionKind = "flag"
	KindChapter  ConditionKind = "chapter"
	KindItem     ConditionKind = "item"
	KindAny      ConditionKind = "any"
	KindNot      ConditionKind = "not"
)

// Condition is one gate on a node, choice or chapter. The set of
// implementations is closed to this package.
type Condition interface {
	Kind() ConditionKind
	condition()
}

// AffinityAtLeast holds when the character's affinity is >= Min.
type AffinityAtLeast struct {
	Character string
	Min       int
}

// FlagEquals holds when the flag's current value equals Value.
type FlagEquals struct {
	Flag  string
	Value bool
}

// ChapterReached holds once the chapter has been started in this playthrough.
type ChapterReached struct {
	Chapter string
}

// HasItem holds when the inventory collaborator reports the item.
type HasItem struct {
	Item string
}

// AnyOf holds when at least one nested condition holds.
type AnyOf struct {
	Conditions Conditions
}

// Not inverts a nested condition. A Not with no nested condition never holds.
type Not struct {
	Condition Condition
}

// Unknown is decoded for an unrecognized "type". It never holds.
type Unknown struct {
	Type string
}

func (AffinityAtLeast) Kind() ConditionKind { return KindAffinity }
func (FlagEquals) Kind() ConditionKind      { return KindFlag }
func (ChapterReached) Kind() ConditionKind  { return KindChapter }
func (HasItem) Kind() ConditionKind         { return KindItem }
func (AnyOf) Kind() ConditionKind           { return KindAny }
func (Not) Kind() ConditionKind             { return KindNot }
func (u Unknown) Kind() ConditionKind       { return ConditionKind(u.Type) }

func (AffinityAtLeast) condition() {}
func (FlagEquals) condition()      {}
func (ChapterReached) condition()  {}
func (HasItem) condition()         {}
func (AnyOf) condition()           {}
func (Not) condition()             {}
func (Unknown) condition()         {}

// Conditions is an ordered, conjunctive list of conditions.
type Conditions []Condition

// StateView is the read-only game state conditions are evaluated against.
type StateView interface {
	Flag(key string) bool
	Affinity(character string) int
	ChapterReached(chapter string) bool
	HasItem(item string) bool
}

// Evaluate reports whether c holds. Unrecognized conditions fail closed.
func Evaluate(c Condition, v StateView) bool {
	if c == nil || v == nil {
		return false
	}

	switch c := c.(type) {
	case AffinityAtLeast:
		return v.Affinity(c.Character) >= c.Min
	case FlagEquals:
		return v.Flag(c.Flag) == c.Value
	case ChapterReached:
		return v.ChapterReached(c.Chapter)
	case HasItem:
		return v.HasItem(c.Item)
	case AnyOf:
		for _, nested := range c.Conditions {
			if Evaluate(nested, v) {
				return true
			}
		}
		return false
	case Not:
		if c.Condition == nil {
			return false
		}
		return !Evaluate(c.Condition, v)
	default:
		return false
	}
}

// EvaluateAll reports whether every condition holds. An empty list holds.
func EvaluateAll(cs Conditions, v StateView) bool {
	for _, c := range cs {
		if !Evaluate(c, v) {
			return false
		}
	}
	return true
}

// Walk calls fn for c and every condition nested inside it.
func Walk(c Condition, fn func(Condition)) {
	if c == nil {
		return
	}
	fn(c)
	switch c := c.(type) {
	case AnyOf:
		for _, nested := range c.Conditions {
			Walk(nested, fn)
		}
	case Not:
		Walk(c.Condition, fn)
	}
}
