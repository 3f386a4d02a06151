package story

import "github.com/jwebster45206/novel-engine/pkg/conditionals"

// Notification is the closed set of intents the interpreter emits to the
// presentation layer.
type Notification interface {
	storyNotification()
}

type ChapterStarted struct {
	Chapter string
	Title   string
}

// ChapterLocked is published when a chapter's unlock conditions do not hold.
type ChapterLocked struct {
	Chapter string
}

type ChapterCompleted struct {
	Chapter string
}

type MusicChanged struct {
	Track string
}

type BackgroundChanged struct {
	Resource string
}

type CharacterShown struct {
	Character  string
	Name       string
	Pose       string
	Resource   string
	Position   Position
	Transition string
}

type CharactersHidden struct{}

// TextPresented asks the presentation layer to show text and then send Advance.
type TextPresented struct {
	Node        string
	Speaker     string
	SpeakerName string
	Text        string
}

// ChoiceOption is one entry of a filtered choice list.
type ChoiceOption struct {
	ID   string
	Text string
}

// ChoicesShown carries only the choices whose conditions hold.
type ChoicesShown struct {
	Node    string
	Choices []ChoiceOption
}

type ChoiceSelected struct {
	Node   string
	Choice string
}

type EventTriggered struct {
	Node string
	Text string
}

// EffectApplied is published once per applied effect, in order.
type EffectApplied struct {
	Effect conditionals.Effect
}

type SceneChanged struct {
	Target string
}

type ContentUnlocked struct {
	Content string
}

// StoryEnded is published when an end node plays.
type StoryEnded struct {
	Chapter string
	Node    string
}

// StoryCompleted is published when the last playable chapter runs out of content.
type StoryCompleted struct {
	Chapter string
}

func (ChapterStarted) storyNotification()    {}
func (ChapterLocked) storyNotification()     {}
func (ChapterCompleted) storyNotification()  {}
func (MusicChanged) storyNotification()      {}
func (BackgroundChanged) storyNotification() {}
func (CharacterShown) storyNotification()    {}
func (CharactersHidden) storyNotification()  {}
func (TextPresented) storyNotification()     {}
func (ChoicesShown) storyNotification()      {}
func (ChoiceSelected) storyNotification()    {}
func (EventTriggered) storyNotification()    {}
func (EffectApplied) storyNotification()     {}
func (SceneChanged) storyNotification()      {}
func (ContentUnlocked) storyNotification()   {}
func (StoryEnded) storyNotification()        {}
func (StoryCompleted) storyNotification()    {}
