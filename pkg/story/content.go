// Package story holds the chaptered content model and the interpreter that
// walks it one node at a time.
package story

import "github.com/jwebster45206/novel-engine/pkg/conditionals"

// DefaultEntryNode is played when a chapter does not name its entry node.
const DefaultEntryNode = "start"

// NodeType selects how the interpreter handles a node.
type NodeType string

const (
	NodeDialog    NodeType = "dialog"
	NodeNarration NodeType = "narration"
	NodeChoice    NodeType = "choice"
	NodeBranch    NodeType = "branch"
	NodeEvent     NodeType = "event"
	NodeEnd       NodeType = "end"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeDialog, NodeNarration, NodeChoice, NodeBranch, NodeEvent, NodeEnd:
		return true
	}
	return false
}

// Position is where a character sprite is placed on screen.
type Position string

const (
	PositionLeft   Position = "left"
	PositionCenter Position = "center"
	PositionRight  Position = "right"
)

// Display tells the presentation layer which character to show and how.
type Display struct {
	Character  string   `json:"character" yaml:"character"`
	Pose       string   `json:"pose,omitempty" yaml:"pose,omitempty"`
	Position   Position `json:"position,omitempty" yaml:"position,omitempty"`
	Transition string   `json:"transition,omitempty" yaml:"transition,omitempty"`
}

// Choice is a player-selectable option on a choice node. On a branch node
// the first choice whose conditions hold is taken automatically.
type Choice struct {
	ID         string                  `json:"id" yaml:"id"`
	Text       string                  `json:"text" yaml:"text"`
	Next       string                  `json:"next,omitempty" yaml:"next,omitempty"`
	Conditions conditionals.Conditions `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Effects    conditionals.Effects    `json:"effects,omitempty" yaml:"effects,omitempty"`
	Affinity   map[string]int          `json:"affinity,omitempty" yaml:"affinity,omitempty"` // character id -> delta
}

// Node is the atomic unit of content.
type Node struct {
	ID         string                  `json:"id,omitempty" yaml:"id,omitempty"`
	Type       NodeType                `json:"type" yaml:"type"`
	Speaker    string                  `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Text       string                  `json:"text,omitempty" yaml:"text,omitempty"`
	Background string                  `json:"background,omitempty" yaml:"background,omitempty"`
	Display    *Display                `json:"display,omitempty" yaml:"display,omitempty"`
	Choices    []Choice                `json:"choices,omitempty" yaml:"choices,omitempty"`
	Next       string                  `json:"next,omitempty" yaml:"next,omitempty"`
	Conditions conditionals.Conditions `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Effects    conditionals.Effects    `json:"effects,omitempty" yaml:"effects,omitempty"`
}

// Chapter is an orderable collection of nodes. Traversal follows next and
// choice links only; map order is irrelevant.
type Chapter struct {
	ID          string                  `json:"id" yaml:"id"`
	Title       string                  `json:"title,omitempty" yaml:"title,omitempty"`
	Description string                  `json:"description,omitempty" yaml:"description,omitempty"`
	Unlock      conditionals.Conditions `json:"unlock,omitempty" yaml:"unlock,omitempty"`
	Music       string                  `json:"music,omitempty" yaml:"music,omitempty"`
	Start       string                  `json:"start,omitempty" yaml:"start,omitempty"`
	Nodes       map[string]Node         `json:"nodes" yaml:"nodes"`
}

// EntryNode returns the id of the node the chapter starts at.
func (c *Chapter) EntryNode() string {
	if c.Start != "" {
		return c.Start
	}
	return DefaultEntryNode
}

// Node looks up a node by id.
func (c *Chapter) Node(id string) (Node, bool) {
	n, ok := c.Nodes[id]
	return n, ok
}
