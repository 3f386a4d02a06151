package story

import (
	"log/slog"
	"slices"
	"sort"

	"github.com/jwebster45206/novel-engine/pkg/affinity"
	"github.com/jwebster45206/novel-engine/pkg/conditionals"
	"github.com/jwebster45206/novel-engine/pkg/flags"
	"github.com/jwebster45206/novel-engine/pkg/mode"
	"github.com/jwebster45206/novel-engine/pkg/notify"
)

// MaxSyncSteps bounds how many nodes may resolve without waiting for input.
// Cyclic branch/event content ends the chapter instead of spinning.
const MaxSyncSteps = 1000

type awaiting int

const (
	awaitNothing awaiting = iota
	awaitAdvance
	awaitChoice
)

// Progress is the interpreter state persisted alongside flags and affinity.
type Progress struct {
	ChoiceHistory   []string `json:"choice_history,omitempty"`
	ReachedChapters []string `json:"reached_chapters,omitempty"`
	UnlockedContent []string `json:"unlocked_content,omitempty"`
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithInventory sets the item collaborator.
func WithInventory(inv Inventory) Option {
	return func(i *Interpreter) {
		i.inventory = inv
	}
}

// Interpreter walks chapter content. It holds at most one current node and
// rejects re-entrant calls made while a step is in progress.
type Interpreter struct {
	chapters  []*Chapter
	byID      map[string]*Chapter
	flags     *flags.Store
	ledger    *affinity.Ledger
	machine   *mode.Machine
	inventory Inventory
	logger    *slog.Logger
	bus       notify.Bus[Notification]

	chapter  *Chapter
	node     *Node
	awaiting awaiting
	offered  []Choice
	stepping bool

	choiceHistory []string
	reached       []string
	unlocked      []string
}

// New builds an interpreter over chapters in declaration order.
func New(chapters []Chapter, fl *flags.Store, ledger *affinity.Ledger, machine *mode.Machine, logger *slog.Logger, opts ...Option) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Interpreter{
		byID:    make(map[string]*Chapter, len(chapters)),
		flags:   fl,
		ledger:  ledger,
		machine: machine,
		logger:  logger,
	}
	for _, ch := range chapters {
		if ch.ID == "" {
			logger.Warn("Ignoring chapter without id", "title", ch.Title)
			continue
		}
		if _, exists := i.byID[ch.ID]; exists {
			logger.Warn("Duplicate chapter id, keeping the first", "chapter", ch.ID)
			continue
		}
		c := normalizeChapter(ch, logger)
		i.chapters = append(i.chapters, c)
		i.byID[c.ID] = c
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func normalizeChapter(ch Chapter, logger *slog.Logger) *Chapter {
	nodes := make(map[string]Node, len(ch.Nodes))
	for key, n := range ch.Nodes {
		if n.ID != "" && n.ID != key {
			logger.Warn("Node id differs from its key, using the key", "chapter", ch.ID, "key", key, "id", n.ID)
		}
		n.ID = key
		nodes[key] = n
	}
	ch.Nodes = nodes
	return &ch
}

// Subscribe registers fn for story notifications.
func (i *Interpreter) Subscribe(fn func(Notification)) func() {
	return i.bus.Subscribe(fn)
}

// Chapters returns chapter ids in declaration order.
func (i *Interpreter) Chapters() []string {
	ids := make([]string, 0, len(i.chapters))
	for _, c := range i.chapters {
		ids = append(ids, c.ID)
	}
	return ids
}

// Chapter returns a chapter by id.
func (i *Interpreter) Chapter(id string) (*Chapter, bool) {
	c, ok := i.byID[id]
	return c, ok
}

// Cursor returns the current chapter and node ids. Either may be empty.
func (i *Interpreter) Cursor() (chapter, node string) {
	if i.chapter != nil {
		chapter = i.chapter.ID
	}
	if i.node != nil {
		node = i.node.ID
	}
	return chapter, node
}

// CurrentNode returns a copy of the active node.
func (i *Interpreter) CurrentNode() (Node, bool) {
	if i.node == nil {
		return Node{}, false
	}
	return *i.node, true
}

// AwaitingAdvance reports whether the interpreter waits for Advance.
func (i *Interpreter) AwaitingAdvance() bool { return i.node != nil && i.awaiting == awaitAdvance }

// AwaitingChoice reports whether the interpreter waits for SelectChoice.
func (i *Interpreter) AwaitingChoice() bool { return i.node != nil && i.awaiting == awaitChoice }

// OfferedChoices returns the filtered choices of the active choice node.
func (i *Interpreter) OfferedChoices() []ChoiceOption {
	if !i.AwaitingChoice() {
		return nil
	}
	return options(i.offered)
}

// ChoiceHistory returns every selected choice id in order.
func (i *Interpreter) ChoiceHistory() []string { return slices.Clone(i.choiceHistory) }

// ReachedChapters returns started chapter ids in the order first reached.
func (i *Interpreter) ReachedChapters() []string { return slices.Clone(i.reached) }

// UnlockedContent returns unlocked content ids in unlock order.
func (i *Interpreter) UnlockedContent() []string { return slices.Clone(i.unlocked) }

// Progress returns the persisted part of the interpreter state.
func (i *Interpreter) Progress() Progress {
	return Progress{
		ChoiceHistory:   i.ChoiceHistory(),
		ReachedChapters: i.ReachedChapters(),
		UnlockedContent: i.UnlockedContent(),
	}
}

// RestoreProgress replaces choice history, reached chapters and unlocked
// content. The cursor is restored separately with Resume.
func (i *Interpreter) RestoreProgress(p Progress) {
	i.choiceHistory = slices.Clone(p.ChoiceHistory)
	i.reached = slices.Clone(p.ReachedChapters)
	i.unlocked = slices.Clone(p.UnlockedContent)
}

// Reset clears the cursor and all progress for a new game.
func (i *Interpreter) Reset() {
	i.clearCursor()
	i.chapter = nil
	i.choiceHistory = nil
	i.reached = nil
	i.unlocked = nil
	if m, ok := i.inventory.(interface{ Clear() }); ok {
		m.Clear()
	}
}

// PlayChapter starts a chapter at its entry node. Locked or unknown chapters
// are a no-op returning false.
func (i *Interpreter) PlayChapter(id string) bool {
	if !i.begin("play chapter") {
		return false
	}
	defer i.end()
	return i.playChapter(id)
}

// PlayNode jumps to a node of the current chapter.
func (i *Interpreter) PlayNode(id string) bool {
	if !i.begin("play node") {
		return false
	}
	defer i.end()

	if i.chapter == nil {
		i.logger.Warn("Play node without an active chapter", "node", id)
		return false
	}
	if _, ok := i.chapter.Nodes[id]; !ok {
		i.logger.Warn("Unknown node", "chapter", i.chapter.ID, "node", id)
		return false
	}
	i.run(id, true)
	return true
}

// Resume restores a saved cursor and re-presents the node without applying
// its effects again. An empty node id, or an end node that was already
// played, restores only the chapter.
func (i *Interpreter) Resume(chapterID, nodeID string) bool {
	if !i.begin("resume") {
		return false
	}
	defer i.end()

	ch, ok := i.byID[chapterID]
	if !ok {
		i.logger.Warn("Resume with unknown chapter", "chapter", chapterID)
		return false
	}
	i.clearCursor()
	i.chapter = ch
	i.markReached(ch.ID)
	if ch.Music != "" {
		i.bus.Publish(MusicChanged{Track: ch.Music})
	}
	if nodeID == "" {
		return true
	}
	node, ok := ch.Nodes[nodeID]
	if !ok {
		i.logger.Warn("Resume with unknown node, restarting chapter", "chapter", chapterID, "node", nodeID)
		i.run(ch.EntryNode(), true)
		return true
	}
	if node.Type == NodeEnd {
		i.logger.Debug("Resume at an end node, not replaying it", "chapter", chapterID, "node", nodeID)
		return true
	}
	i.run(nodeID, false)
	return true
}

// Advance continues past the active dialog or narration node.
func (i *Interpreter) Advance() bool {
	if !i.begin("advance") {
		return false
	}
	defer i.end()

	if !i.AwaitingAdvance() {
		return false
	}
	if i.machine != nil && !i.machine.IsInGame() {
		i.logger.Debug("Ignoring advance outside of play", "mode", i.machine.Current())
		return false
	}
	next := i.node.Next
	if next == "" {
		i.finishChapter()
		return true
	}
	i.run(next, true)
	return true
}

// SelectChoice applies an offered choice and proceeds to its target.
func (i *Interpreter) SelectChoice(id string) bool {
	if !i.begin("select choice") {
		return false
	}
	defer i.end()

	if !i.AwaitingChoice() {
		return false
	}
	if i.machine != nil && !i.machine.IsInGame() {
		i.logger.Debug("Ignoring choice outside of play", "mode", i.machine.Current())
		return false
	}
	idx := slices.IndexFunc(i.offered, func(c Choice) bool { return c.ID == id })
	if idx < 0 {
		i.logger.Warn("Unknown or unavailable choice", "node", i.node.ID, "choice", id)
		return false
	}
	choice := i.offered[idx]
	nodeID := i.node.ID

	i.applyEffects(choice.Effects)
	i.applyAffinity(choice.Affinity)
	i.choiceHistory = append(i.choiceHistory, choice.ID)
	i.bus.Publish(ChoiceSelected{Node: nodeID, Choice: choice.ID})

	if choice.Next == "" {
		i.finishChapter()
		return true
	}
	i.run(choice.Next, true)
	return true
}

func (i *Interpreter) begin(op string) bool {
	if i.stepping {
		i.logger.Warn("Rejected re-entrant story operation", "op", op)
		return false
	}
	i.stepping = true
	return true
}

func (i *Interpreter) end() {
	i.stepping = false
}

func (i *Interpreter) playChapter(id string) bool {
	ch, ok := i.byID[id]
	if !ok {
		i.logger.Warn("Unknown chapter", "chapter", id)
		return false
	}
	if !conditionals.EvaluateAll(ch.Unlock, i.view()) {
		i.logger.Info("Chapter is locked", "chapter", id)
		i.bus.Publish(ChapterLocked{Chapter: id})
		return false
	}

	i.clearCursor()
	i.chapter = ch
	i.markReached(ch.ID)
	if i.machine != nil && !i.machine.IsInGame() {
		i.enter(mode.Playing)
	}
	i.bus.Publish(ChapterStarted{Chapter: ch.ID, Title: ch.Title})
	if ch.Music != "" {
		i.bus.Publish(MusicChanged{Track: ch.Music})
	}

	entry := ch.EntryNode()
	if _, ok := ch.Nodes[entry]; !ok {
		i.logger.Warn("Chapter has no entry node", "chapter", ch.ID, "node", entry)
		i.finishChapter()
		return true
	}
	i.run(entry, true)
	return true
}

// run plays nodes starting at id until one waits for input or the chapter
// ends. applyFirst controls whether the first node's effects apply.
func (i *Interpreter) run(id string, applyFirst bool) {
	apply := applyFirst
	for steps := 0; ; steps++ {
		if steps >= MaxSyncSteps {
			i.logger.Warn("Too many nodes without input, ending chapter", "chapter", i.chapter.ID, "node", id)
			i.finishChapter()
			return
		}

		node, ok := i.chapter.Nodes[id]
		if !ok {
			i.logger.Warn("Link to unknown node, ending chapter", "chapter", i.chapter.ID, "node", id)
			i.finishChapter()
			return
		}

		next, wait := i.step(node, apply)
		apply = true
		if wait {
			return
		}
		if next == "" {
			i.finishChapter()
			return
		}
		id = next
	}
}

// step plays a single node. It returns the next node id for synchronous
// nodes, or wait=true when play stops at the node: it needs external input
// or it ended the story.
func (i *Interpreter) step(node Node, apply bool) (next string, wait bool) {
	view := i.view()
	if !conditionals.EvaluateAll(node.Conditions, view) {
		i.logger.Debug("Skipping node with unmet conditions", "chapter", i.chapter.ID, "node", node.ID)
		return node.Next, false
	}

	i.node = &node
	i.awaiting = awaitNothing
	i.offered = nil

	if apply {
		i.applyEffects(node.Effects)
	}
	if node.Background != "" {
		i.bus.Publish(BackgroundChanged{Resource: node.Background})
	}
	if node.Display != nil {
		i.bus.Publish(i.characterShown(*node.Display))
	} else {
		i.bus.Publish(CharactersHidden{})
	}

	switch node.Type {
	case NodeDialog, NodeNarration:
		i.enter(mode.Dialog)
		i.awaiting = awaitAdvance
		i.bus.Publish(TextPresented{
			Node:        node.ID,
			Speaker:     node.Speaker,
			SpeakerName: i.speakerName(node.Speaker),
			Text:        node.Text,
		})
		return "", true

	case NodeChoice:
		i.enter(mode.Choice)
		offered := make([]Choice, 0, len(node.Choices))
		for _, c := range node.Choices {
			if conditionals.EvaluateAll(c.Conditions, view) {
				offered = append(offered, c)
			}
		}
		if len(offered) == 0 {
			i.logger.Warn("Choice node has no available choices", "chapter", i.chapter.ID, "node", node.ID)
			return node.Next, false
		}
		i.offered = offered
		i.awaiting = awaitChoice
		i.bus.Publish(ChoicesShown{Node: node.ID, Choices: options(offered)})
		return "", true

	case NodeBranch:
		for _, c := range node.Choices {
			if conditionals.EvaluateAll(c.Conditions, view) {
				i.applyEffects(c.Effects)
				i.applyAffinity(c.Affinity)
				return c.Next, false
			}
		}
		return node.Next, false

	case NodeEvent:
		i.enter(mode.Event)
		if node.Speaker != "" && i.ledger != nil && i.ledger.Has(node.Speaker) {
			i.ledger.RecordEvent(node.Speaker, node.ID)
		}
		i.bus.Publish(EventTriggered{Node: node.ID, Text: node.Text})
		return node.Next, false

	case NodeEnd:
		if node.Text != "" {
			i.bus.Publish(TextPresented{
				Node:        node.ID,
				Speaker:     node.Speaker,
				SpeakerName: i.speakerName(node.Speaker),
				Text:        node.Text,
			})
		}
		i.enter(mode.Ending)
		i.bus.Publish(StoryEnded{Chapter: i.chapter.ID, Node: node.ID})
		i.clearCursor()
		return "", true

	default:
		i.logger.Warn("Unknown node type, skipping", "chapter", i.chapter.ID, "node", node.ID, "type", node.Type)
		return node.Next, false
	}
}

// finishChapter ends the active chapter and moves to the next playable one,
// or completes the story.
func (i *Interpreter) finishChapter() {
	done := i.chapter
	i.clearCursor()
	if done == nil {
		return
	}
	i.bus.Publish(ChapterCompleted{Chapter: done.ID})

	if next := i.nextChapter(done.ID); next != nil {
		if i.playChapter(next.ID) {
			return
		}
		i.chapter = done
	}
	i.enter(mode.Ending)
	i.bus.Publish(StoryCompleted{Chapter: done.ID})
}

func (i *Interpreter) nextChapter(id string) *Chapter {
	for idx, c := range i.chapters {
		if c.ID == id && idx+1 < len(i.chapters) {
			return i.chapters[idx+1]
		}
	}
	return nil
}

func (i *Interpreter) clearCursor() {
	i.node = nil
	i.awaiting = awaitNothing
	i.offered = nil
}

func (i *Interpreter) applyEffects(effects conditionals.Effects) {
	for _, e := range effects {
		if i.applyEffect(e) {
			i.bus.Publish(EffectApplied{Effect: e})
		}
	}
}

func (i *Interpreter) applyEffect(e conditionals.Effect) bool {
	switch e := e.(type) {
	case conditionals.AffinityDelta:
		if i.ledger == nil {
			return false
		}
		if _, err := i.ledger.ChangeAffinity(e.Character, e.Delta); err != nil {
			return false
		}
	case conditionals.SetFlag:
		if i.flags == nil {
			return false
		}
		i.flags.Set(e.Flag, e.Value)
	case conditionals.GrantItem:
		if i.inventory == nil {
			i.logger.Warn("Item granted without an inventory", "item", e.Item)
			return false
		}
		i.inventory.AddItem(e.Item, e.Count)
	case conditionals.ChangeScene:
		i.bus.Publish(SceneChanged{Target: e.Target})
	case conditionals.UnlockContent:
		if e.Content == "" {
			return false
		}
		if !slices.Contains(i.unlocked, e.Content) {
			i.unlocked = append(i.unlocked, e.Content)
			i.bus.Publish(ContentUnlocked{Content: e.Content})
		}
	case conditionals.UnlockCharacter:
		if i.ledger == nil {
			return false
		}
		i.ledger.Unlock(e.Character)
	case conditionals.RecordEvent:
		if i.ledger == nil {
			return false
		}
		i.ledger.RecordEvent(e.Character, e.Event)
	case conditionals.UnlockEnding:
		if i.ledger == nil {
			return false
		}
		i.ledger.UnlockEnding(e.Character, e.Ending)
	default:
		i.logger.Warn("Skipping unknown effect", "type", e.Kind())
		return false
	}
	return true
}

// applyAffinity routes per-character deltas through the ledger in id order.
func (i *Interpreter) applyAffinity(deltas map[string]int) {
	if len(deltas) == 0 || i.ledger == nil {
		return
	}
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := i.ledger.ChangeAffinity(id, deltas[id]); err != nil {
			i.logger.Warn("Choice affinity for unknown character", "character", id)
		}
	}
}

// enter requests a mode transition unless already there. Content keeps
// playing when the machine rejects it.
func (i *Interpreter) enter(s mode.State) {
	if i.machine == nil || i.machine.Current() == s {
		return
	}
	if !i.machine.RequestTransition(s) {
		i.logger.Warn("Story requested an illegal mode transition", "from", i.machine.Current(), "to", s)
	}
}

func (i *Interpreter) markReached(id string) {
	if !slices.Contains(i.reached, id) {
		i.reached = append(i.reached, id)
	}
}

func (i *Interpreter) speakerName(id string) string {
	if id == "" || i.ledger == nil {
		return id
	}
	if c, ok := i.ledger.Character(id); ok {
		return c.Name
	}
	return id
}

func (i *Interpreter) characterShown(d Display) CharacterShown {
	pose := d.Pose
	if pose == "" {
		pose = affinity.DefaultPose
	}
	position := d.Position
	if position == "" {
		position = PositionCenter
	}
	shown := CharacterShown{
		Character:  d.Character,
		Name:       d.Character,
		Pose:       pose,
		Position:   position,
		Transition: d.Transition,
	}
	if i.ledger != nil {
		if c, ok := i.ledger.Character(d.Character); ok {
			shown.Name = c.Name
			shown.Resource = c.PoseResource(pose)
		} else {
			i.logger.Warn("Display for unknown character", "character", d.Character)
		}
	}
	return shown
}

func options(choices []Choice) []ChoiceOption {
	out := make([]ChoiceOption, 0, len(choices))
	for _, c := range choices {
		out = append(out, ChoiceOption{ID: c.ID, Text: c.Text})
	}
	return out
}

// stateView adapts interpreter collaborators to conditionals.StateView.
type stateView struct {
	i *Interpreter
}

func (i *Interpreter) view() conditionals.StateView {
	return stateView{i: i}
}

func (v stateView) Flag(key string) bool {
	return v.i.flags != nil && v.i.flags.Get(key)
}

func (v stateView) Affinity(character string) int {
	if v.i.ledger == nil {
		return 0
	}
	return v.i.ledger.Affinity(character)
}

func (v stateView) ChapterReached(chapter string) bool {
	return slices.Contains(v.i.reached, chapter)
}

func (v stateView) HasItem(item string) bool {
	return v.i.inventory != nil && v.i.inventory.HasItem(item)
}
