package mode

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/jwebster45206/novel-engine/pkg/notify"
)

// MaxHistory bounds the return stack; the oldest entries are dropped.
const MaxHistory = 32

// Notification is the closed set of mode notifications.
type Notification interface {
	modeNotification()
}

// StateChanged is published after every legal transition.
type StateChanged struct {
	From State
	To   State
}

func (StateChanged) modeNotification() {}

// Machine tracks the current mode. Illegal requests are rejected without
// mutation or notification.
type Machine struct {
	mu       sync.Mutex
	current  State
	previous State
	history  []State
	bus      notify.Bus[Notification]
	logger   *slog.Logger
}

// NewMachine returns a machine in the boot state.
func NewMachine(logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{current: Boot, previous: Boot, logger: logger}
}

// Subscribe registers fn for mode notifications.
func (m *Machine) Subscribe(fn func(Notification)) func() {
	return m.bus.Subscribe(fn)
}

// Current returns the active state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Previous returns the state before the last transition.
func (m *Machine) Previous() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.previous
}

// History returns the return stack, oldest first.
func (m *Machine) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}

// CanTransition reports whether to is legal from the current state.
func (m *Machine) CanTransition(to State) bool {
	return Legal(m.Current(), to)
}

// RequestTransition moves to the target state if legal.
func (m *Machine) RequestTransition(to State) bool {
	m.mu.Lock()
	from := m.current
	if !Legal(from, to) {
		m.mu.Unlock()
		m.logger.Debug("Rejected mode transition", "from", from, "to", to)
		return false
	}
	m.previous = from
	m.current = to
	if returnable[edge{from, to}] {
		m.history = append(m.history, from)
		if len(m.history) > MaxHistory {
			m.history = slices.Delete(m.history, 0, len(m.history)-MaxHistory)
		}
	}
	m.mu.Unlock()

	m.logger.Debug("Mode changed", "from", from, "to", to)
	m.bus.Publish(StateChanged{From: from, To: to})
	return true
}

// GoBack pops the return stack and transitions to the popped state. The
// entry is consumed even when the transition is rejected.
func (m *Machine) GoBack() bool {
	m.mu.Lock()
	if len(m.history) == 0 {
		m.mu.Unlock()
		return false
	}
	target := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	m.mu.Unlock()

	return m.RequestTransition(target)
}

// IsInGame reports whether the current state is play-adjacent.
func (m *Machine) IsInGame() bool {
	return inGame[m.Current()]
}

// CanSave reports whether saving is allowed in the current state.
func (m *Machine) CanSave() bool {
	return saveAllowed[m.Current()]
}

// CanLoad reports whether loading is allowed in the current state.
func (m *Machine) CanLoad() bool {
	return loadAllowed[m.Current()]
}

// Reset returns to boot and clears history without publishing.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Boot
	m.previous = Boot
	m.history = nil
}
