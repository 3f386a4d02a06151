package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/novel-engine/internal/logger"
	"github.com/jwebster45206/novel-engine/pkg/affinity"
	"github.com/jwebster45206/novel-engine/pkg/game"
	"github.com/jwebster45206/novel-engine/pkg/mode"
	"github.com/jwebster45206/novel-engine/pkg/save"
	"github.com/jwebster45206/novel-engine/pkg/story"
	"github.com/muesli/reflow/wordwrap"
)

const PlaceHolderText = "Enter to continue, 1-9 to choose, /help for commands"

var menuItems = []string{"New Game", "Load Game", "Quit"}

// ConsoleUI is the BubbleTea model that hosts a game session.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	session      *game.Session
	logger       *slog.Logger
	autosave     time.Duration
	log          *transcript
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	status       string
	err          error

	selectedMenu int

	// Save/load slot picker state
	showSlotModal bool
	slotSaving    bool
	slots         []slotEntry
	selectedSlot  int

	showQuitModal bool
}

// transcript collects lines written by session subscribers. It is shared by
// pointer because the model is copied on every update.
type transcript struct {
	lines []string
}

func (t *transcript) add(line string) {
	t.lines = append(t.lines, line)
}

func (t *transcript) reset() {
	t.lines = nil
}

type slotEntry struct {
	slot    int
	summary *save.Summary
}

type autosaveTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			PaddingLeft(2)

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				PaddingLeft(2).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// NewConsoleUI subscribes to the session and returns the initial model.
// The caller must have booted the session.
func NewConsoleUI(s *game.Session, logger *slog.Logger, autosave time.Duration) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	m := ConsoleUI{
		session:      s,
		logger:       logger,
		autosave:     autosave,
		log:          &transcript{},
		chatViewport: chatVp,
		metaViewport: viewport.New(30, 20),
		textarea:     ta,
	}
	m.subscribe()
	return m
}

// subscribe turns session notifications into transcript lines.
func (m ConsoleUI) subscribe() {
	log := m.log
	m.session.Story.Subscribe(func(n story.Notification) {
		switch n := n.(type) {
		case story.ChapterStarted:
			title := n.Title
			if title == "" {
				title = n.Chapter
			}
			log.add(titleStyle.Render("── " + title + " ──"))
		case story.ChapterLocked:
			log.add(promptStyle.Render(fmt.Sprintf("(chapter %s is locked)", n.Chapter)))
		case story.TextPresented:
			log.add(formatText(n.SpeakerName, n.Text))
		case story.ChoicesShown:
			for i, c := range n.Choices {
				log.add(choiceStyle.Render(fmt.Sprintf("  %d) %s", i+1, c.Text)))
			}
		case story.ChoiceSelected:
			log.add(promptStyle.Render("> " + n.Choice))
		case story.EventTriggered:
			if n.Text != "" {
				log.add(narratorStyle.Render("* " + n.Text))
			}
		case story.ContentUnlocked:
			log.add(statusStyle.Render("Unlocked: " + n.Content))
		case story.StoryEnded:
			log.add(titleStyle.Render("THE END"))
			log.add(promptStyle.Render("Press Enter to return to the main menu"))
		case story.StoryCompleted:
			log.add(titleStyle.Render("The story is complete"))
			log.add(promptStyle.Render("Press Enter to return to the main menu"))
		}
	})
	m.session.Ledger.Subscribe(func(n affinity.Notification) {
		switch n := n.(type) {
		case affinity.LevelChanged:
			arrow := "↓"
			if n.Up() {
				arrow = "↑"
			}
			name := n.Character
			if c, ok := m.session.Ledger.Character(n.Character); ok {
				name = c.Name
			}
			log.add(statusStyle.Render(fmt.Sprintf("%s %s %s", name, arrow, affinity.LevelName(n.NewLevel))))
		case affinity.EndingUnlocked:
			log.add(statusStyle.Render(fmt.Sprintf("Ending unlocked: %s", n.Ending)))
		}
	})
	m.session.Saves.Subscribe(func(n save.Notification) {
		switch n := n.(type) {
		case save.Saved:
			if n.Auto {
				log.add(promptStyle.Render(fmt.Sprintf("(auto-saved to slot %d)", n.Slot)))
			}
		case save.VersionMismatch:
			log.add(errorStyle.Render(fmt.Sprintf("Save slot %d was written by version %s", n.Slot, n.Stored)))
		}
	})
}

func formatText(speaker, text string) string {
	if speaker == "" {
		return narratorStyle.Render(text)
	}
	return speakerStyle.Render(speaker+":") + " " + text
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.autosaveTick())
}

func (m ConsoleUI) autosaveTick() tea.Cmd {
	if m.autosave <= 0 {
		return nil
	}
	return tea.Tick(m.autosave, func(time.Time) tea.Msg {
		return autosaveTickMsg{}
	})
}

func (m ConsoleUI) inMenu() bool {
	switch m.session.Machine.Current() {
	case mode.Boot, mode.Title, mode.MainMenu:
		return true
	}
	return false
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.refresh()
		return m, nil

	case tea.BlurMsg:
		m.session.OnBackground(context.Background())
		m.refresh()
		return m, nil

	case tea.FocusMsg:
		m.session.OnForeground(context.Background())
		return m, nil

	case autosaveTickMsg:
		if _, err := m.session.AutoSave(context.Background()); err != nil && !errors.Is(err, save.ErrSaveInProgress) {
			m.status = errorStyle.Render(fmt.Sprintf("Auto-save failed: %v", err))
		}
		m.refresh()
		return m, m.autosaveTick()
	}

	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showSlotModal {
		return m.updateSlotModal(msg)
	}
	if m.inMenu() {
		return m.updateMenu(msg)
	}
	return m.updateGame(msg)
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6
	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

// refresh re-renders both panels from the transcript and session state.
func (m *ConsoleUI) refresh() {
	width := m.chatViewport.Width - 6
	if width < 20 {
		width = 20
	}
	var sb strings.Builder
	for _, line := range m.log.lines {
		sb.WriteString(wordwrap.String(line, width))
		sb.WriteString("\n\n")
	}
	if m.status != "" {
		sb.WriteString(wordwrap.String(m.status, width))
		sb.WriteString("\n")
	}
	m.chatViewport.SetContent(sb.String())
	m.chatViewport.GotoBottom()
	m.metaViewport.SetContent(writeMetadata(m.session))
}

func (m ConsoleUI) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.showQuitModal = true
	case tea.KeyUp:
		if m.selectedMenu > 0 {
			m.selectedMenu--
		}
	case tea.KeyDown:
		if m.selectedMenu < len(menuItems)-1 {
			m.selectedMenu++
		}
	case tea.KeyEnter:
		if m.session.Machine.Current() == mode.Title {
			if err := m.session.RequestTransition(mode.MainMenu); err != nil {
				m.err = err
				return m, nil
			}
		}
		switch menuItems[m.selectedMenu] {
		case "New Game":
			m.log.reset()
			m.status = ""
			if err := m.session.NewGame(); err != nil {
				m.err = err
			}
			m.refresh()
		case "Load Game":
			return m.openSlotModal(false)
		case "Quit":
			m.showQuitModal = true
		}
	}
	return m, nil
}

func (m ConsoleUI) updateGame(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			if input != "" && m.session.Story.AwaitingChoice() {
				m.choose(input)
				m.refresh()
				return m, nil
			}
			m.advance()
			m.refresh()
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			m.chatViewport, vpCmd = m.chatViewport.Update(msg)
			return m, vpCmd
		case tea.KeyRunes:
			if m.textarea.Value() == "" && len(key.Runes) == 1 && m.session.Story.AwaitingChoice() {
				if r := key.Runes[0]; r >= '1' && r <= '9' {
					m.choose(string(r))
					m.refresh()
					return m, nil
				}
			}
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	if _, ok := msg.(tea.KeyMsg); !ok {
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	}
	return m, tea.Batch(tiCmd, vpCmd)
}

// advance continues past text, or leaves the ending for the main menu.
func (m *ConsoleUI) advance() {
	m.status = ""
	if m.session.Machine.Current() == mode.Ending {
		if err := m.session.RequestTransition(mode.MainMenu); err != nil {
			m.status = errorStyle.Render(err.Error())
			return
		}
		if err := m.session.FlushProfile(context.Background()); err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Failed to write profile: %v", err))
		}
		m.selectedMenu = 0
		return
	}
	if !m.session.Advance() {
		m.status = promptStyle.Render("Nothing to continue. Pick a choice or type /help.")
	}
}

// choose selects an offered choice by 1-based number or by id.
func (m *ConsoleUI) choose(input string) {
	m.status = ""
	offered := m.session.Story.OfferedChoices()
	id := input
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(offered) {
			m.status = errorStyle.Render(fmt.Sprintf("Pick a choice between 1 and %d", len(offered)))
			return
		}
		id = offered[n-1].ID
	}
	if !m.session.SelectChoice(id) {
		m.status = errorStyle.Render(fmt.Sprintf("Choice %q is not available", input))
	}
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]
	ctx := context.Background()
	m.status = ""

	switch cmd {
	case "/help":
		m.status = promptStyle.Render(strings.Join([]string{
			"Enter: continue | 1-9: choose | PgUp/PgDn: scroll",
			"/save [slot]  /load [slot]  /saves  /delete <slot>",
			"/flags  /export [slot]  /pause  /back  /quit",
		}, "\n"))
	case "/save":
		if len(args) == 0 {
			return m.openSlotModal(true)
		}
		slot, err := parseSlot(args[0])
		if err == nil {
			err = m.session.Save(ctx, slot)
		}
		m.report(err, fmt.Sprintf("Saved to slot %s", args[0]))
	case "/load":
		if len(args) == 0 {
			return m.openSlotModal(false)
		}
		slot, err := parseSlot(args[0])
		if err == nil {
			err = m.load(ctx, slot)
		}
		m.report(err, fmt.Sprintf("Loaded slot %s", args[0]))
	case "/saves":
		return m.openSlotModal(false)
	case "/delete":
		if len(args) == 0 {
			m.status = errorStyle.Render("Usage: /delete <slot>")
			break
		}
		slot, err := parseSlot(args[0])
		if err == nil {
			err = m.session.Saves.Delete(ctx, slot)
		}
		m.report(err, fmt.Sprintf("Deleted slot %s", args[0]))
	case "/flags":
		m.status = writeFlags(m.session.Flags.Export())
	case "/export":
		slot := m.session.Saves.LastSlot()
		if len(args) > 0 {
			var err error
			if slot, err = parseSlot(args[0]); err != nil {
				m.report(err, "")
				break
			}
		}
		if slot < 0 {
			slot = 0
		}
		m.report(m.exportSnapshot(slot), "Snapshot copied to clipboard")
	case "/pause":
		m.report(m.session.RequestTransition(mode.Pause), "Paused. /back to resume")
	case "/back":
		if !m.session.GoBack() {
			m.status = errorStyle.Render("Nothing to go back to")
		}
	case "/quit", "/exit":
		m.showQuitModal = true
	default:
		m.status = errorStyle.Render(fmt.Sprintf("Unknown command: %s (try /help)", cmd))
	}

	m.refresh()
	return m, nil
}

func (m *ConsoleUI) report(err error, ok string) {
	if err != nil {
		logger.WithError(m.logger, err).Debug("Console command failed")
		m.status = errorStyle.Render(err.Error())
		return
	}
	if ok != "" {
		m.status = statusStyle.Render(ok)
	}
}

func (m *ConsoleUI) exportSnapshot(slot int) error {
	snap, err := m.session.Export(slot)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// load restores slot with a fresh transcript, keeping the old one if the
// load fails.
func (m *ConsoleUI) load(ctx context.Context, slot int) error {
	prev := m.log.lines
	m.log.reset()
	if err := m.session.Load(ctx, slot); err != nil {
		m.log.lines = prev
		return err
	}
	return nil
}

func parseSlot(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("slot must be a number: %q", s)
	}
	return n, nil
}

func (m ConsoleUI) openSlotModal(saving bool) (tea.Model, tea.Cmd) {
	summaries, err := m.session.Saves.List(context.Background())
	if err != nil {
		m.status = errorStyle.Render(fmt.Sprintf("Failed to list saves: %v", err))
		m.refresh()
		return m, nil
	}
	bySlot := make(map[int]*save.Summary, len(summaries))
	for i := range summaries {
		bySlot[summaries[i].Slot] = &summaries[i]
	}
	m.slots = m.slots[:0]
	for slot := 0; slot < m.session.Saves.Slots(); slot++ {
		m.slots = append(m.slots, slotEntry{slot: slot, summary: bySlot[slot]})
	}
	m.slotSaving = saving
	m.selectedSlot = 0
	if last := m.session.Saves.LastSlot(); last >= 0 && last < len(m.slots) {
		m.selectedSlot = last
	}
	m.showSlotModal = true
	return m, nil
}

func (m ConsoleUI) updateSlotModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.showSlotModal = false
		m.textarea.Focus()
		return m, textarea.Blink
	case tea.KeyUp:
		if m.selectedSlot > 0 {
			m.selectedSlot--
		}
	case tea.KeyDown:
		if m.selectedSlot < len(m.slots)-1 {
			m.selectedSlot++
		}
	case tea.KeyEnter:
		if len(m.slots) == 0 {
			return m, nil
		}
		entry := m.slots[m.selectedSlot]
		logger.WithSlot(m.logger, entry.slot).Debug("Slot selected", "saving", m.slotSaving)
		ctx := context.Background()
		var err error
		if m.slotSaving {
			err = m.session.Save(ctx, entry.slot)
			m.report(err, fmt.Sprintf("Saved to slot %d", entry.slot))
		} else {
			if entry.summary == nil {
				return m, nil
			}
			err = m.load(ctx, entry.slot)
			m.report(err, fmt.Sprintf("Loaded slot %d", entry.slot))
		}
		m.showSlotModal = false
		m.refresh()
		m.textarea.Focus()
		return m, textarea.Blink
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC:
		return m, m.quit()
	case tea.KeyEnter:
		return m, m.quit()
	case tea.KeyEsc:
		m.showQuitModal = false
		return m, nil
	default:
		switch key.String() {
		case "y", "Y":
			return m, m.quit()
		case "n", "N":
			m.showQuitModal = false
			m.textarea.Focus()
			return m, textarea.Blink
		}
	}
	return m, nil
}

// quit gives the session a last chance to auto-save before exiting.
func (m ConsoleUI) quit() tea.Cmd {
	m.session.OnBackground(context.Background())
	return tea.Quit
}

func (m ConsoleUI) renderQuitModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Unsaved progress is auto-saved to your last slot.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderMenu() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Novel Engine"))
	content.WriteString("\n\n")
	if m.err != nil {
		content.WriteString(errorStyle.Render(m.err.Error()))
		content.WriteString("\n\n")
	}
	for i, item := range menuItems {
		if i == m.selectedMenu {
			content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", item)))
		} else {
			content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", item)))
		}
		content.WriteString("\n")
	}

	p := m.session.Profile()
	if n := p.EndingCount(); n > 0 || p.Playthroughs > 0 {
		content.WriteString("\n")
		content.WriteString(promptStyle.Render(fmt.Sprintf("Playthroughs: %d  Endings: %d", p.Playthroughs, n)))
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Esc to exit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderSlotModal() string {
	var content strings.Builder
	title := "Load Game"
	if m.slotSaving {
		title = "Save Game"
	}
	content.WriteString(modalTitleStyle.Render(title))
	content.WriteString("\n\n")

	for i, entry := range m.slots {
		label := fmt.Sprintf("Slot %d  (empty)", entry.slot)
		if s := entry.summary; s != nil {
			label = fmt.Sprintf("Slot %d  %s / %s  %s  %s", entry.slot, s.Chapter, s.Node,
				s.PlayTime.Truncate(time.Second), s.SavedAt.Local().Format("2006-01-02 15:04"))
		}
		if i == m.selectedSlot {
			content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
		} else {
			content.WriteString(modalItemStyle.Render("  " + label))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Esc to cancel"))

	modal := modalStyle.Width(70).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.width == 0 || m.height == 0 {
		return "\n  Initializing..."
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showSlotModal {
		return m.renderSlotModal()
	}
	if m.inMenu() {
		return m.renderMenu()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// writeMetadata renders the side panel: mode, cursor, characters and items.
func writeMetadata(s *game.Session) string {
	var sb strings.Builder
	chapter, node := s.Story.Cursor()

	sb.WriteString(titleStyle.Render("Story"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Mode: %s\n", s.Machine.Current())
	if chapter != "" {
		fmt.Fprintf(&sb, "Chapter: %s\n", chapter)
		fmt.Fprintf(&sb, "Node: %s\n", node)
	}
	fmt.Fprintf(&sb, "Play time: %s\n", s.Saves.PlayTime().Truncate(time.Second))
	if last := s.Saves.LastSlot(); last >= 0 {
		fmt.Fprintf(&sb, "Last slot: %d\n", last)
	}

	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("Characters"))
	sb.WriteString("\n")
	for _, c := range s.Ledger.Characters() {
		if !c.Unlocked && c.Affinity == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s\n", speakerStyle.Render(c.Name))
		fmt.Fprintf(&sb, "  %d/%d %s\n", c.Affinity, c.MaxAffinity, affinity.LevelName(c.Level()))
	}

	items := s.Inventory.Items()
	if len(items) > 0 {
		sb.WriteString("\n")
		sb.WriteString(titleStyle.Render("Items"))
		sb.WriteString("\n")
		keys := make([]string, 0, len(items))
		for k := range items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s x%d\n", k, items[k])
		}
	}
	return sb.String()
}

func writeFlags(values map[string]bool) string {
	if len(values) == 0 {
		return promptStyle.Render("No flags set")
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Flags"))
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n  %s = %t", k, values[k])
	}
	return sb.String()
}
