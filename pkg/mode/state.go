// Package mode implements the finite state machine that gates which
// high-level game mode is active and which transitions are legal.
package mode

// State is one coarse-grained phase of the session.
type State string

const (
	Boot        State = "boot"
	Title       State = "title"
	MainMenu    State = "main_menu"
	Playing     State = "playing"
	Dialog      State = "dialog"
	Choice      State = "choice"
	Event       State = "event"
	Date        State = "date"
	Pause       State = "pause"
	Inventory   State = "inventory"
	Character   State = "character"
	Map         State = "map"
	Settings    State = "settings"
	SaveLoad    State = "save_load"
	Gallery     State = "gallery"
	Achievement State = "achievement"
	Ending      State = "ending"
	Credits     State = "credits"
)

// States lists every state in declaration order.
var States = []State{
	Boot, Title, MainMenu, Playing, Dialog, Choice, Event, Date, Pause,
	Inventory, Character, Map, Settings, SaveLoad, Gallery, Achievement, Ending, Credits,
}

// transitions is the exhaustive set of legal next states for each state.
var transitions = map[State][]State{
	Boot:        {Title},
	Title:       {MainMenu},
	MainMenu:    {Playing, Settings, SaveLoad, Gallery, Achievement, Credits, Title},
	Playing:     {Dialog, Choice, Event, Date, Pause, Inventory, Character, Map, SaveLoad, Ending},
	Dialog:      {Playing, Choice, Event, Date, Pause, Ending},
	Choice:      {Playing, Dialog, Event, Date, Pause, Ending},
	Event:       {Playing, Dialog, Choice, Pause, Ending},
	Date:        {Playing, Dialog, Choice, Pause, Ending},
	Pause:       {Playing, Dialog, Choice, Event, Date, Settings, SaveLoad, MainMenu},
	Inventory:   {Playing},
	Character:   {Playing},
	Map:         {Playing, Event, Date},
	Settings:    {MainMenu, Pause, Title},
	SaveLoad:    {MainMenu, Playing, Pause},
	Gallery:     {MainMenu},
	Achievement: {MainMenu},
	Ending:      {Credits, MainMenu},
	Credits:     {MainMenu, Title},
}

type edge struct {
	from, to State
}

// returnable edges push the state being left onto the history stack.
var returnable = map[edge]bool{
	{Playing, Pause}:        true,
	{Playing, Dialog}:       true,
	{Playing, Inventory}:    true,
	{Playing, Character}:    true,
	{Playing, Map}:          true,
	{Playing, SaveLoad}:     true,
	{Dialog, Pause}:         true,
	{Choice, Pause}:         true,
	{Event, Pause}:          true,
	{Date, Pause}:           true,
	{Pause, Settings}:       true,
	{Pause, SaveLoad}:       true,
	{MainMenu, Settings}:    true,
	{MainMenu, SaveLoad}:    true,
	{MainMenu, Gallery}:     true,
	{MainMenu, Achievement}: true,
}

var inGame = map[State]bool{Playing: true, Dialog: true, Choice: true, Event: true, Date: true}

var saveAllowed = map[State]bool{Playing: true, Dialog: true, Choice: true, Pause: true, SaveLoad: true}

var loadAllowed = map[State]bool{MainMenu: true, Playing: true, Dialog: true, Choice: true, Pause: true, SaveLoad: true}

// Allowed returns the states reachable from s in one transition.
func Allowed(s State) []State {
	out := make([]State, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

// Legal reports whether from -> to is in the transition table.
func Legal(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}
