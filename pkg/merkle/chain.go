package merkle

import (
	"fmt"

	"github.com/papercomputeco/gemchat/pkg/llm"
)

// Chain is an append-only, linear sequence of nodes. The zero value is an
// empty chain ready to use. Chain is not safe for concurrent use.
type Chain struct {
	nodes []*Node
}

// Append links msg onto the end of the chain and returns the new head node.
func (c *Chain) Append(msg llm.Message) *Node {
	var parent *Node
	if len(c.nodes) > 0 {
		parent = c.nodes[len(c.nodes)-1]
	}

	node := NewNode(msg, parent)
	c.nodes = append(c.nodes, node)
	return node
}

// Head returns the hash of the last node, or "" for an empty chain.
func (c *Chain) Head() string {
	if len(c.nodes) == 0 {
		return ""
	}
	return c.nodes[len(c.nodes)-1].Hash
}

// Len returns the number of nodes in the chain.
func (c *Chain) Len() int {
	return len(c.nodes)
}

// Messages returns a copy of the chain's messages, oldest first.
func (c *Chain) Messages() []llm.Message {
	msgs := make([]llm.Message, len(c.nodes))
	for i, n := range c.nodes {
		msgs[i] = n.Message
	}
	return msgs
}

// Reset drops every node.
func (c *Chain) Reset() {
	c.nodes = nil
}

// Verify walks the chain from the root and checks every hash and parent link.
func (c *Chain) Verify() error {
	var prev string
	for i, n := range c.nodes {
		if !n.Verify() {
			return ErrBrokenChain{Index: i, Hash: n.Hash, Reason: "hash mismatch"}
		}

		switch {
		case i == 0 && n.ParentHash != nil:
			return ErrBrokenChain{Index: i, Hash: n.Hash, Reason: "root has a parent"}
		case i > 0 && (n.ParentHash == nil || *n.ParentHash != prev):
			return ErrBrokenChain{Index: i, Hash: n.Hash, Reason: "parent link mismatch"}
		}

		prev = n.Hash
	}
	return nil
}

// ErrBrokenChain is returned when a chain fails verification.
type ErrBrokenChain struct {
	Index  int
	Hash   string
	Reason string
}

func (e ErrBrokenChain) Error() string {
	return fmt.Sprintf("broken chain at node %d (%s): %s", e.Index, e.Hash, e.Reason)
}
