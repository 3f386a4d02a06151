// Package game wires the flag store, affinity ledger, mode machine, story
// interpreter and save manager into one session driven by a host.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jwebster45206/novel-engine/pkg/affinity"
	"github.com/jwebster45206/novel-engine/pkg/content"
	"github.com/jwebster45206/novel-engine/pkg/flags"
	"github.com/jwebster45206/novel-engine/pkg/mode"
	"github.com/jwebster45206/novel-engine/pkg/save"
	"github.com/jwebster45206/novel-engine/pkg/storage"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

var (
	ErrSaveNotAllowed     = errors.New("saving is not allowed in the current mode")
	ErrLoadNotAllowed     = errors.New("loading is not allowed in the current mode")
	ErrTransitionRejected = errors.New("mode transition rejected")
	ErrNoChapters         = errors.New("no chapters to play")
)

// Extra bag keys written by the session.
const (
	extraProgress  = "story"
	extraInventory = "inventory"
)

// Option configures a Session.
type Option func(*options)

type options struct {
	save     []save.Option
	affinity []affinity.Option
}

// WithSaveOptions passes options to the save manager.
func WithSaveOptions(opts ...save.Option) Option {
	return func(o *options) {
		o.save = append(o.save, opts...)
	}
}

// WithAffinityOptions passes options to the affinity ledger.
func WithAffinityOptions(opts ...affinity.Option) Option {
	return func(o *options) {
		o.affinity = append(o.affinity, opts...)
	}
}

// Session owns one play session. Hosts drive it with the inbound signals
// (Advance, SelectChoice, Save, Load, ...) and subscribe to the components
// for outbound notifications.
type Session struct {
	Flags     *flags.Store
	Ledger    *affinity.Ledger
	Machine   *mode.Machine
	Story     *story.Interpreter
	Saves     *save.Manager
	Inventory *story.MapInventory

	logger *slog.Logger
	unsubs []func()

	mu           sync.Mutex
	profile      *save.Profile
	profileDirty bool
}

// NewSession builds every component from a content bundle.
func NewSession(b *content.Bundle, store storage.Storage, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		Flags:     flags.NewStore(b.Flags, logger.With("component", "flags")),
		Ledger:    affinity.NewLedger(b.Characters, logger.With("component", "affinity"), o.affinity...),
		Machine:   mode.NewMachine(logger.With("component", "mode")),
		Inventory: story.NewMapInventory(),
		logger:    logger,
		profile:   save.NewProfile(),
	}
	s.Story = story.New(b.Chapters, s.Flags, s.Ledger, s.Machine, logger.With("component", "story"), story.WithInventory(s.Inventory))
	s.Saves = save.NewManager(store, s.Flags, s.Ledger, s.Machine, logger.With("component", "save"), o.save...)

	s.unsubs = append(s.unsubs,
		s.Story.Subscribe(s.onStory),
		s.Ledger.Subscribe(s.onAffinity),
	)
	return s
}

func (s *Session) onStory(n story.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch n := n.(type) {
	case story.ContentUnlocked:
		if s.profile.AddContent(n.Content) {
			s.profileDirty = true
		}
	case story.StoryEnded, story.StoryCompleted:
		s.profile.Playthroughs++
		s.profileDirty = true
	}
}

func (s *Session) onAffinity(n affinity.Notification) {
	if e, ok := n.(affinity.EndingUnlocked); ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.profile.AddEnding(e.Character, e.Ending) {
			s.profileDirty = true
		}
	}
}

// Close detaches the session's own subscriptions.
func (s *Session) Close() {
	for _, u := range s.unsubs {
		u()
	}
	s.unsubs = nil
}

// Boot leaves the boot state for the title screen and loads the player
// profile.
func (s *Session) Boot(ctx context.Context) error {
	if s.Machine.Current() == mode.Boot && !s.Machine.RequestTransition(mode.Title) {
		return fmt.Errorf("%w: boot -> title", ErrTransitionRejected)
	}
	p, err := s.Saves.LoadProfile(ctx)
	if err != nil {
		s.logger.Error("Failed to load profile, starting fresh", "error", err)
		return err
	}
	s.mu.Lock()
	s.profile = p
	s.profileDirty = false
	s.mu.Unlock()
	return nil
}

// Profile returns a copy of the cross-playthrough profile.
func (s *Session) Profile() save.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *s.profile
	p.Endings = make(map[string][]string, len(s.profile.Endings))
	for k, v := range s.profile.Endings {
		p.Endings[k] = append([]string(nil), v...)
	}
	p.UnlockedContent = append([]string(nil), s.profile.UnlockedContent...)
	return p
}

// FlushProfile writes the profile if it changed since the last write.
func (s *Session) FlushProfile(ctx context.Context) error {
	s.mu.Lock()
	if !s.profileDirty {
		s.mu.Unlock()
		return nil
	}
	p := s.profile
	s.profileDirty = false
	s.mu.Unlock()

	if err := s.Saves.SaveProfile(ctx, p); err != nil {
		s.mu.Lock()
		s.profileDirty = true
		s.mu.Unlock()
		return err
	}
	return nil
}

// NewGame resets all progress and plays the first chapter.
func (s *Session) NewGame() error {
	chapters := s.Story.Chapters()
	if len(chapters) == 0 {
		return ErrNoChapters
	}
	if err := s.enterPlaying(); err != nil {
		return err
	}
	s.Flags.Reset()
	s.Ledger.Reset()
	s.Story.Reset()
	s.Saves.ResetPlayTime()

	if !s.Story.PlayChapter(chapters[0]) {
		return fmt.Errorf("first chapter %q could not start", chapters[0])
	}
	return nil
}

// enterPlaying moves the machine to playing through the main menu when
// needed. Play-adjacent states count as playing.
func (s *Session) enterPlaying() error {
	if s.Machine.IsInGame() {
		return nil
	}
	if s.Machine.CanTransition(mode.Playing) {
		s.Machine.RequestTransition(mode.Playing)
		return nil
	}
	if s.Machine.RequestTransition(mode.MainMenu) && s.Machine.RequestTransition(mode.Playing) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrTransitionRejected, s.Machine.Current(), mode.Playing)
}

// Advance continues past the current text node.
func (s *Session) Advance() bool { return s.Story.Advance() }

// SelectChoice picks an offered choice.
func (s *Session) SelectChoice(id string) bool { return s.Story.SelectChoice(id) }

// RequestTransition asks the mode machine for a transition.
func (s *Session) RequestTransition(to mode.State) error {
	if !s.Machine.RequestTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionRejected, s.Machine.Current(), to)
	}
	return nil
}

// GoBack returns to the state recorded before the last returnable
// transition.
func (s *Session) GoBack() bool { return s.Machine.GoBack() }

func (s *Session) overrides() []save.Override {
	chapter, node := s.Story.Cursor()
	return []save.Override{
		save.Cursor(chapter, node),
		save.ChoiceHistory(s.Story.ChoiceHistory()),
		save.Extra(extraProgress, s.Story.Progress()),
		save.Extra(extraInventory, s.Inventory.Items()),
	}
}

// Save writes the session to slot when the current mode allows it.
func (s *Session) Save(ctx context.Context, slot int) error {
	if !s.Machine.CanSave() {
		return fmt.Errorf("%w: %s", ErrSaveNotAllowed, s.Machine.Current())
	}
	if _, err := s.Saves.Save(ctx, slot, s.overrides()...); err != nil {
		return err
	}
	if err := s.FlushProfile(ctx); err != nil {
		s.logger.Warn("Failed to write profile", "error", err)
	}
	return nil
}

// Export builds the snapshot Save would write to slot without writing it.
func (s *Session) Export(slot int) (*save.Snapshot, error) {
	return s.Saves.Export(slot, s.overrides()...)
}

// AutoSave saves to the last used slot, subject to the rate limit.
func (s *Session) AutoSave(ctx context.Context) (bool, error) {
	return s.Saves.AutoSave(ctx, s.overrides()...)
}

// Load restores slot and resumes the story at the saved node.
func (s *Session) Load(ctx context.Context, slot int) error {
	if !s.Machine.CanLoad() {
		return fmt.Errorf("%w: %s", ErrLoadNotAllowed, s.Machine.Current())
	}
	snap, err := s.Saves.Load(ctx, slot)
	if err != nil {
		return err
	}

	var progress story.Progress
	if _, err := snap.DecodeExtra(extraProgress, &progress); err != nil {
		s.logger.Warn("Ignoring unreadable story progress", "slot", slot, "error", err)
		progress = story.Progress{}
	}
	if progress.ChoiceHistory == nil {
		progress.ChoiceHistory = snap.Player.ChoiceHistory
	}
	items := map[string]int{}
	if _, err := snap.DecodeExtra(extraInventory, &items); err != nil {
		s.logger.Warn("Ignoring unreadable inventory", "slot", slot, "error", err)
		items = map[string]int{}
	}

	if err := s.enterPlaying(); err != nil {
		return err
	}
	if err := s.Saves.ApplySnapshot(snap); err != nil {
		return err
	}
	s.Story.Reset()
	s.Story.RestoreProgress(progress)
	s.Inventory.SetItems(items)

	if snap.Chapter != "" && !s.Story.Resume(snap.Chapter, snap.Node) {
		s.logger.Warn("Saved chapter no longer exists", "slot", slot, "chapter", snap.Chapter)
	}
	return nil
}

// OnBackground is called when the host loses focus or is suspended.
func (s *Session) OnBackground(ctx context.Context) {
	s.lifecycle(ctx, "background")
}

// OnForeground is called when the host regains focus.
func (s *Session) OnForeground(ctx context.Context) {
	s.lifecycle(ctx, "foreground")
}

func (s *Session) lifecycle(ctx context.Context, event string) {
	saved, err := s.AutoSave(ctx)
	if err != nil && !errors.Is(err, save.ErrSaveInProgress) {
		s.logger.Error("Auto-save failed", "event", event, "error", err)
	}
	if err := s.FlushProfile(ctx); err != nil {
		s.logger.Error("Failed to write profile", "event", event, "error", err)
	}
	s.logger.Debug("Lifecycle event", "event", event, "auto_saved", saved)
}
