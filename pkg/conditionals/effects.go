package conditionals

// EffectKind is the discriminator written as "type" in content files.
type EffectKind string

const (
	EffectAffinity        EffectKind = "affinity"
	EffectFlag            EffectKind = "flag"
	EffectItem            EffectKind = "item"
	EffectScene           EffectKind = "scene"
	EffectUnlock          EffectKind = "unlock"
	EffectUnlockCharacter EffectKind = "unlock_character"
	EffectRecordEvent     EffectKind = "record_event"
	EffectUnlockEnding    EffectKind = "unlock_ending"
)

// Effect is one state mutation applied when a node plays or a choice is
// selected. The set of implementations is closed to this package.
type Effect interface {
	Kind() EffectKind
	effect()
}

// AffinityDelta changes a character's affinity by Delta (clamped by the ledger).
type AffinityDelta struct {
	Character string
	Delta     int
}

// SetFlag sets a flag.
type SetFlag struct {
	Flag  string
	Value bool
}

// GrantItem hands Count of Item to the inventory collaborator.
type GrantItem struct {
	Item  string
	Count int
}

// ChangeScene asks the presentation layer to switch to Target.
type ChangeScene struct {
	Target string
}

// UnlockContent unlocks a gallery/extra content id.
type UnlockContent struct {
	Content string
}

// UnlockCharacter marks a character as unlocked.
type UnlockCharacter struct {
	Character string
}

// RecordEvent adds Event to a character's event history.
type RecordEvent struct {
	Character string
	Event     string
}

// UnlockEnding adds Ending to a character's unlocked endings.
type UnlockEnding struct {
	Character string
	Ending    string
}

// UnknownEffect is decoded for an unrecognized "type" and is skipped.
type UnknownEffect struct {
	Type string
}

func (AffinityDelta) Kind() EffectKind   { return EffectAffinity }
func (SetFlag) Kind() EffectKind         { return EffectFlag }
func (GrantItem) Kind() EffectKind       { return EffectItem }
func (ChangeScene) Kind() EffectKind     { return EffectScene }
func (UnlockContent) Kind() EffectKind   { return EffectUnlock }
func (UnlockCharacter) Kind() EffectKind { return EffectUnlockCharacter }
func (RecordEvent) Kind() EffectKind     { return EffectRecordEvent }
func (UnlockEnding) Kind() EffectKind    { return EffectUnlockEnding }
func (u UnknownEffect) Kind() EffectKind { return EffectKind(u.Type) }

func (AffinityDelta) effect()   {}
func (SetFlag) effect()         {}
func (GrantItem) effect()       {}
func (ChangeScene) effect()     {}
func (UnlockContent) effect()   {}
func (UnlockCharacter) effect() {}
func (RecordEvent) effect()     {}
func (UnlockEnding) effect()    {}
func (UnknownEffect) effect()   {}

// Effects is an ordered list of effects, applied first to last.
type Effects []Effect
