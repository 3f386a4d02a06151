package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/novel-engine/pkg/affinity"
	"github.com/jwebster45206/novel-engine/pkg/flags"
	"github.com/jwebster45206/novel-engine/pkg/mode"
	"github.com/jwebster45206/novel-engine/pkg/notify"
	"github.com/jwebster45206/novel-engine/pkg/storage"
)

const (
	DefaultSlots            = 6
	DefaultAutoSaveInterval = 60 * time.Second
)

var (
	ErrNotFound       = errors.New("save slot is empty")
	ErrSaveInProgress = errors.New("save already in progress")
	ErrInvalidSlot    = errors.New("invalid save slot")
)

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSlots sets the number of save slots.
func WithSlots(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.slots = n
		}
	}
}

// WithAutoSaveInterval sets the minimum time between auto-saves. Zero
// disables rate limiting.
func WithAutoSaveInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.autoInterval = d
		}
	}
}

// WithKeyPrefix namespaces every storage key.
func WithKeyPrefix(prefix string) Option {
	return func(m *Manager) {
		m.prefix = strings.TrimSuffix(prefix, ":")
	}
}

// Manager gathers snapshots from the flag store, the affinity ledger and
// the mode machine, and writes them to storage. Only one save may be in
// flight at a time.
type Manager struct {
	store   storage.Storage
	flags   *flags.Store
	ledger  *affinity.Ledger
	machine *mode.Machine
	logger  *slog.Logger
	bus     notify.Bus[Notification]

	now          func() time.Time
	slots        int
	autoInterval time.Duration
	prefix       string

	saving atomic.Bool

	mu        sync.Mutex
	lastSlot  int
	lastAuto  time.Time
	playBase  time.Duration
	playStart time.Time
}

// NewManager wires a manager to the components it snapshots.
func NewManager(store storage.Storage, fl *flags.Store, ledger *affinity.Ledger, machine *mode.Machine, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:        store,
		flags:        fl,
		ledger:       ledger,
		machine:      machine,
		logger:       logger,
		now:          time.Now,
		slots:        DefaultSlots,
		autoInterval: DefaultAutoSaveInterval,
		lastSlot:     -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.playStart = m.now()
	return m
}

// Subscribe registers fn for persistence notifications.
func (m *Manager) Subscribe(fn func(Notification)) func() {
	return m.bus.Subscribe(fn)
}

// Slots returns the number of save slots.
func (m *Manager) Slots() int { return m.slots }

// LastSlot returns the most recently used slot, or -1.
func (m *Manager) LastSlot() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSlot
}

func (m *Manager) key(name string) string {
	if m.prefix == "" {
		return name
	}
	return m.prefix + ":" + name
}

func (m *Manager) slotKey(slot int) string {
	return m.key("save:" + strconv.Itoa(slot))
}

func (m *Manager) checkSlot(slot int) error {
	if slot < 0 || slot >= m.slots {
		return fmt.Errorf("%w: %d (have %d)", ErrInvalidSlot, slot, m.slots)
	}
	return nil
}

// PlayTime returns accumulated play time including the running session.
func (m *Manager) PlayTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playBase + m.now().Sub(m.playStart)
}

// ResetPlayTime starts play time from zero, for a new game.
func (m *Manager) ResetPlayTime() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playBase = 0
	m.playStart = m.now()
}

// Export gathers a snapshot for slot without writing it.
func (m *Manager) Export(slot int, overrides ...Override) (*Snapshot, error) {
	snap := &Snapshot{
		ID:      uuid.New(),
		Slot:    slot,
		Version: FormatVersion,
		SavedAt: m.now().UTC(),
		Player:  Player{PlayTime: m.PlayTime().Seconds()},
	}
	if m.machine != nil {
		snap.Mode = m.machine.Current()
	}
	if m.ledger != nil {
		snap.Characters = m.ledger.Export()
	}
	if m.flags != nil {
		snap.Flags = m.flags.Export()
	}
	snap.normalize()
	for _, o := range overrides {
		if err := o(snap); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// Save writes a snapshot to slot. A second call while a save is running
// fails with ErrSaveInProgress, publishes SaveFailed and writes nothing.
func (m *Manager) Save(ctx context.Context, slot int, overrides ...Override) (*Snapshot, error) {
	return m.save(ctx, slot, false, overrides)
}

func (m *Manager) save(ctx context.Context, slot int, auto bool, overrides []Override) (*Snapshot, error) {
	if err := m.checkSlot(slot); err != nil {
		m.bus.Publish(SaveFailed{Slot: slot, Err: err})
		return nil, err
	}
	if !m.saving.CompareAndSwap(false, true) {
		m.logger.Debug("Rejected concurrent save", "slot", slot)
		m.bus.Publish(SaveFailed{Slot: slot, Err: ErrSaveInProgress})
		return nil, ErrSaveInProgress
	}
	// Held through publishing so subscribers cannot trigger a nested save.
	defer m.saving.Store(false)

	snap, err := m.Export(slot, overrides...)
	if err != nil {
		return nil, m.saveFailed(slot, fmt.Errorf("failed to build snapshot: %w", err))
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, m.saveFailed(slot, fmt.Errorf("failed to marshal snapshot: %w", err))
	}
	if err := m.store.Put(ctx, m.slotKey(slot), data); err != nil {
		return nil, m.saveFailed(slot, fmt.Errorf("failed to write slot %d: %w", slot, err))
	}

	m.mu.Lock()
	m.lastSlot = slot
	m.mu.Unlock()

	m.logger.Info("Game saved", "slot", slot, "auto", auto, "chapter", snap.Chapter, "node", snap.Node)
	m.bus.Publish(Saved{Slot: slot, Auto: auto})
	return snap, nil
}

func (m *Manager) saveFailed(slot int, err error) error {
	m.logger.Error("Save failed", "slot", slot, "error", err)
	m.bus.Publish(SaveFailed{Slot: slot, Err: err})
	return err
}

// AutoSave saves to the most recently used slot, or slot 0. It is a no-op
// returning false when the mode forbids saving or the last successful
// auto-save is more recent than the configured interval. Failed attempts
// do not start a new interval.
func (m *Manager) AutoSave(ctx context.Context, overrides ...Override) (bool, error) {
	if m.machine != nil && !m.machine.CanSave() {
		m.logger.Debug("Skipping auto-save in current mode", "mode", m.machine.Current())
		return false, nil
	}

	m.mu.Lock()
	now := m.now()
	if m.autoInterval > 0 && !m.lastAuto.IsZero() && now.Sub(m.lastAuto) < m.autoInterval {
		m.mu.Unlock()
		return false, nil
	}
	slot := m.lastSlot
	m.mu.Unlock()

	if slot < 0 {
		slot = 0
	}
	if _, err := m.save(ctx, slot, true, overrides); err != nil {
		return false, err
	}

	m.mu.Lock()
	m.lastAuto = now
	m.mu.Unlock()
	return true, nil
}

// Load reads the snapshot in slot. It does not change any component; call
// ApplySnapshot for that.
func (m *Manager) Load(ctx context.Context, slot int) (*Snapshot, error) {
	if err := m.checkSlot(slot); err != nil {
		m.bus.Publish(LoadFailed{Slot: slot, Err: err})
		return nil, err
	}
	data, err := m.store.Get(ctx, m.slotKey(slot))
	if err != nil {
		return nil, m.loadFailed(slot, fmt.Errorf("failed to read slot %d: %w", slot, err))
	}
	if data == nil {
		m.logger.Debug("Save slot is empty", "slot", slot)
		m.bus.Publish(LoadFailed{Slot: slot, Err: ErrNotFound})
		return nil, ErrNotFound
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, m.loadFailed(slot, fmt.Errorf("failed to unmarshal slot %d: %w", slot, err))
	}
	snap.normalize()
	snap.Slot = slot

	if !SameMajor(snap.Version, FormatVersion) {
		m.logger.Warn("Save written by a different format version", "slot", slot, "stored", snap.Version, "running", FormatVersion)
		m.bus.Publish(VersionMismatch{Slot: slot, Stored: snap.Version, Running: FormatVersion})
	}

	m.bus.Publish(Loaded{Slot: slot})
	return &snap, nil
}

func (m *Manager) loadFailed(slot int, err error) error {
	m.logger.Error("Load failed", "slot", slot, "error", err)
	m.bus.Publish(LoadFailed{Slot: slot, Err: err})
	return err
}

// ApplySnapshot replaces ledger and flag state with the snapshot and
// continues play time from its total. The story cursor is restored by the
// caller.
func (m *Manager) ApplySnapshot(snap *Snapshot) error {
	if snap == nil {
		return errors.New("snapshot is nil")
	}
	if m.ledger != nil {
		m.ledger.Import(snap.Characters)
	}
	if m.flags != nil {
		m.flags.Import(snap.Flags)
	}

	m.mu.Lock()
	m.playBase = snap.Player.PlayDuration()
	m.playStart = m.now()
	if snap.Slot >= 0 && snap.Slot < m.slots {
		m.lastSlot = snap.Slot
	}
	m.mu.Unlock()
	return nil
}

// Delete empties slot.
func (m *Manager) Delete(ctx context.Context, slot int) error {
	if err := m.checkSlot(slot); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, m.slotKey(slot)); err != nil {
		return fmt.Errorf("failed to delete slot %d: %w", slot, err)
	}
	m.mu.Lock()
	if m.lastSlot == slot {
		m.lastSlot = -1
	}
	m.mu.Unlock()
	return nil
}

// List summarizes every filled slot in slot order. Unreadable records are
// skipped.
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	prefix := m.key("save:")
	keys, err := m.store.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}

	filled := make(map[int]bool, len(keys))
	for _, k := range keys {
		slot, err := strconv.Atoi(strings.TrimPrefix(k, prefix))
		if err != nil || m.checkSlot(slot) != nil {
			continue
		}
		filled[slot] = true
	}

	var out []Summary
	for slot := 0; slot < m.slots; slot++ {
		if !filled[slot] {
			continue
		}
		data, err := m.store.Get(ctx, m.slotKey(slot))
		if err != nil {
			return nil, fmt.Errorf("failed to read slot %d: %w", slot, err)
		}
		var snap Snapshot
		if data == nil || json.Unmarshal(data, &snap) != nil {
			m.logger.Warn("Skipping unreadable save", "slot", slot)
			continue
		}
		out = append(out, Summary{
			Slot:     slot,
			SavedAt:  snap.SavedAt,
			Chapter:  snap.Chapter,
			Node:     snap.Node,
			PlayTime: snap.Player.PlayDuration(),
			Version:  snap.Version,
		})
	}
	return out, nil
}
