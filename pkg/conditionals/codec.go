package conditionals

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// conditionDoc is the on-disk shape shared by every condition kind.
type conditionDoc struct {
	Type       string         `json:"type" yaml:"type"`
	Character  string         `json:"character,omitempty" yaml:"character,omitempty"`
	Min        int            `json:"min,omitempty" yaml:"min,omitempty"`
	Flag       string         `json:"flag,omitempty" yaml:"flag,omitempty"`
	Value      *bool          `json:"value,omitempty" yaml:"value,omitempty"` // defaults to true
	Chapter    string         `json:"chapter,omitempty" yaml:"chapter,omitempty"`
	Item       string         `json:"item,omitempty" yaml:"item,omitempty"`
	Conditions []conditionDoc `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Condition  *conditionDoc  `json:"condition,omitempty" yaml:"condition,omitempty"`
}

func (d conditionDoc) toCondition() Condition {
	switch ConditionKind(d.Type) {
	case KindAffinity:
		return AffinityAtLeast{Character: d.Character, Min: d.Min}
	case KindFlag:
		return FlagEquals{Flag: d.Flag, Value: boolOr(d.Value, true)}
	case KindChapter:
		return ChapterReached{Chapter: d.Chapter}
	case KindItem:
		return HasItem{Item: d.Item}
	case KindAny:
		nested := make(Conditions, 0, len(d.Conditions))
		for _, n := range d.Conditions {
			nested = append(nested, n.toCondition())
		}
		return AnyOf{Conditions: nested}
	case KindNot:
		if d.Condition == nil {
			return Not{}
		}
		return Not{Condition: d.Condition.toCondition()}
	default:
		return Unknown{Type: d.Type}
	}
}

func conditionToDoc(c Condition) conditionDoc {
	switch c := c.(type) {
	case AffinityAtLeast:
		return conditionDoc{Type: string(KindAffinity), Character: c.Character, Min: c.Min}
	case FlagEquals:
		v := c.Value
		return conditionDoc{Type: string(KindFlag), Flag: c.Flag, Value: &v}
	case ChapterReached:
		return conditionDoc{Type: string(KindChapter), Chapter: c.Chapter}
	case HasItem:
		return conditionDoc{Type: string(KindItem), Item: c.Item}
	case AnyOf:
		d := conditionDoc{Type: string(KindAny)}
		for _, n := range c.Conditions {
			d.Conditions = append(d.Conditions, conditionToDoc(n))
		}
		return d
	case Not:
		d := conditionDoc{Type: string(KindNot)}
		if c.Condition != nil {
			nested := conditionToDoc(c.Condition)
			d.Condition = &nested
		}
		return d
	case Unknown:
		return conditionDoc{Type: c.Type}
	default:
		return conditionDoc{}
	}
}

// UnmarshalJSON decodes a list of {"type": ...} objects.
func (cs *Conditions) UnmarshalJSON(data []byte) error {
	var docs []conditionDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return err
	}
	*cs = conditionsFromDocs(docs)
	return nil
}

// MarshalJSON encodes the list in the same shape UnmarshalJSON reads.
func (cs Conditions) MarshalJSON() ([]byte, error) {
	docs := make([]conditionDoc, 0, len(cs))
	for _, c := range cs {
		docs = append(docs, conditionToDoc(c))
	}
	return json.Marshal(docs)
}

// UnmarshalYAML decodes a YAML sequence of mappings keyed by "type".
func (cs *Conditions) UnmarshalYAML(value *yaml.Node) error {
	var docs []conditionDoc
	if err := value.Decode(&docs); err != nil {
		return err
	}
	*cs = conditionsFromDocs(docs)
	return nil
}

func conditionsFromDocs(docs []conditionDoc) Conditions {
	if len(docs) == 0 {
		return nil
	}
	out := make(Conditions, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toCondition())
	}
	return out
}

// effectDoc is the on-disk shape shared by every effect kind.
type effectDoc struct {
	Type      string `json:"type" yaml:"type"`
	Character string `json:"character,omitempty" yaml:"character,omitempty"`
	Delta     int    `json:"delta,omitempty" yaml:"delta,omitempty"`
	Flag      string `json:"flag,omitempty" yaml:"flag,omitempty"`
	Value     *bool  `json:"value,omitempty" yaml:"value,omitempty"` // defaults to true
	Item      string `json:"item,omitempty" yaml:"item,omitempty"`
	Count     int    `json:"count,omitempty" yaml:"count,omitempty"` // defaults to 1
	Target    string `json:"target,omitempty" yaml:"target,omitempty"`
	Content   string `json:"content,omitempty" yaml:"content,omitempty"`
	Event     string `json:"event,omitempty" yaml:"event,omitempty"`
	Ending    string `json:"ending,omitempty" yaml:"ending,omitempty"`
}

func (d effectDoc) toEffect() Effect {
	switch EffectKind(d.Type) {
	case EffectAffinity:
		return AffinityDelta{Character: d.Character, Delta: d.Delta}
	case EffectFlag:
		return SetFlag{Flag: d.Flag, Value: boolOr(d.Value, true)}
	case EffectItem:
		count := d.Count
		if count == 0 {
			count = 1
		}
		return GrantItem{Item: d.Item, Count: count}
	case EffectScene:
		return ChangeScene{Target: d.Target}
	case EffectUnlock:
		return UnlockContent{Content: d.Content}
	case EffectUnlockCharacter:
		return UnlockCharacter{Character: d.Character}
	case EffectRecordEvent:
		return RecordEvent{Character: d.Character, Event: d.Event}
	case EffectUnlockEnding:
		return UnlockEnding{Character: d.Character, Ending: d.Ending}
	default:
		return UnknownEffect{Type: d.Type}
	}
}

func effectToDoc(e Effect) effectDoc {
	switch e := e.(type) {
	case AffinityDelta:
		return effectDoc{Type: string(EffectAffinity), Character: e.Character, Delta: e.Delta}
	case SetFlag:
		v := e.Value
		return effectDoc{Type: string(EffectFlag), Flag: e.Flag, Value: &v}
	case GrantItem:
		return effectDoc{Type: string(EffectItem), Item: e.Item, Count: e.Count}
	case ChangeScene:
		return effectDoc{Type: string(EffectScene), Target: e.Target}
	case UnlockContent:
		return effectDoc{Type: string(EffectUnlock), Content: e.Content}
	case UnlockCharacter:
		return effectDoc{Type: string(EffectUnlockCharacter), Character: e.Character}
	case RecordEvent:
		return effectDoc{Type: string(EffectRecordEvent), Character: e.Character, Event: e.Event}
	case UnlockEnding:
		return effectDoc{Type: string(EffectUnlockEnding), Character: e.Character, Ending: e.Ending}
	case UnknownEffect:
		return effectDoc{Type: e.Type}
	default:
		return effectDoc{}
	}
}

// UnmarshalJSON decodes a list of {"type": ...} objects.
func (es *Effects) UnmarshalJSON(data []byte) error {
	var docs []effectDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return err
	}
	*es = effectsFromDocs(docs)
	return nil
}

// MarshalJSON encodes the list in the same shape UnmarshalJSON reads.
func (es Effects) MarshalJSON() ([]byte, error) {
	docs := make([]effectDoc, 0, len(es))
	for _, e := range es {
		docs = append(docs, effectToDoc(e))
	}
	return json.Marshal(docs)
}

// UnmarshalYAML decodes a YAML sequence of mappings keyed by "type".
func (es *Effects) UnmarshalYAML(value *yaml.Node) error {
	var docs []effectDoc
	if err := value.Decode(&docs); err != nil {
		return err
	}
	*es = effectsFromDocs(docs)
	return nil
}

func effectsFromDocs(docs []effectDoc) Effects {
	if len(docs) == 0 {
		return nil
	}
	out := make(Effects, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEffect())
	}
	return out
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
