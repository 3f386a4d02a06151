package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// walk drives m through the given states, failing on the first rejection.
func walk(t *testing.T, m *Machine, states ...State) {
	t.Helper()
	for _, s := range states {
		require.True(t, m.RequestTransition(s), "transition %s -> %s should be legal", m.Current(), s)
	}
}

func TestMachine_StartsInBoot(t *testing.T) {
	m := NewMachine(nil)
	assert.Equal(t, Boot, m.Current())
	assert.False(t, m.IsInGame())
	assert.False(t, m.CanSave())
	assert.False(t, m.CanLoad())
}

func TestMachine_IllegalTransitionRejected(t *testing.T) {
	m := NewMachine(nil)
	walk(t, m, Title, MainMenu, Playing)

	var got []StateChanged
	m.Subscribe(func(n Notification) { got = append(got, n.(StateChanged)) })

	assert.False(t, m.RequestTransition(Credits))
	assert.Equal(t, Playing, m.Current())
	assert.Equal(t, MainMenu, m.Previous())
	assert.Empty(t, got, "rejected transitions publish nothing")
}

func TestMachine_LegalTransitionPublishes(t *testing.T) {
	m := NewMachine(nil)
	var got []StateChanged
	m.Subscribe(func(n Notification) { got = append(got, n.(StateChanged)) })

	walk(t, m, Title, MainMenu)

	assert.Equal(t, []StateChanged{{From: Boot, To: Title}, {From: Title, To: MainMenu}}, got)
	assert.Equal(t, Title, m.Previous())
}

func TestMachine_GoBack(t *testing.T) {
	m := NewMachine(nil)
	walk(t, m, Title, MainMenu, Playing, Pause, Settings)

	assert.Equal(t, []State{Playing, Pause}, m.History())

	require.True(t, m.GoBack())
	assert.Equal(t, Pause, m.Current())
	require.True(t, m.GoBack())
	assert.Equal(t, Playing, m.Current())
	assert.False(t, m.GoBack(), "empty history")
	assert.Equal(t, Playing, m.Current())
}

func TestMachine_NonReturnableDoesNotPush(t *testing.T) {
	m := NewMachine(nil)
	walk(t, m, Title, MainMenu, Playing, Choice, Dialog)
	assert.Empty(t, m.History())
}

func TestMachine_HistoryIsBounded(t *testing.T) {
	m := NewMachine(nil)
	walk(t, m, Title, MainMenu, Playing)
	for i := 0; i < MaxHistory+10; i++ {
		walk(t, m, Dialog, Playing)
	}
	assert.Len(t, m.History(), MaxHistory)
}

func TestMachine_DerivedQueries(t *testing.T) {
	tests := []struct {
		path    []State
		inGame  bool
		canSave bool
		canLoad bool
	}{
		{[]State{Title}, false, false, false},
		{[]State{Title, MainMenu}, false, false, true},
		{[]State{Title, MainMenu, Playing}, true, true, true},
		{[]State{Title, MainMenu, Playing, Dialog}, true, true, true},
		{[]State{Title, MainMenu, Playing, Choice}, true, true, true},
		{[]State{Title, MainMenu, Playing, Event}, true, false, false},
		{[]State{Title, MainMenu, Playing, Date}, true, false, false},
		{[]State{Title, MainMenu, Playing, Pause}, false, true, true},
		{[]State{Title, MainMenu, Playing, Ending}, false, false, false},
		{[]State{Title, MainMenu, SaveLoad}, false, true, true},
	}

	for _, tt := range tests {
		m := NewMachine(nil)
		walk(t, m, tt.path...)
		name := string(m.Current())
		assert.Equal(t, tt.inGame, m.IsInGame(), "IsInGame in %s", name)
		assert.Equal(t, tt.canSave, m.CanSave(), "CanSave in %s", name)
		assert.Equal(t, tt.canLoad, m.CanLoad(), "CanLoad in %s", name)
	}
}

func TestTransitionTable(t *testing.T) {
	for _, s := range States {
		if !s.Valid() {
			t.Errorf("State %s has no transition entry", s)
		}
		for _, to := range Allowed(s) {
			if !to.Valid() {
				t.Errorf("State %s allows unknown state %s", s, to)
			}
			if to == s {
				t.Errorf("State %s allows a self transition", s)
			}
		}
	}

	// Every returnable edge must be legal in both directions so GoBack works.
	for e := range returnable {
		if !Legal(e.from, e.to) {
			t.Errorf("Returnable edge %s -> %s is not legal", e.from, e.to)
		}
		if !Legal(e.to, e.from) {
			t.Errorf("Returnable edge %s -> %s cannot be returned from", e.from, e.to)
		}
	}

	assert.False(t, State("limbo").Valid())
}

func TestMachine_Reset(t *testing.T) {
	m := NewMachine(nil)
	walk(t, m, Title, MainMenu, Playing, Pause)
	m.Reset()
	assert.Equal(t, Boot, m.Current())
	assert.Empty(t, m.History())
}
