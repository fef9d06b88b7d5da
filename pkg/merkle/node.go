// Package merkle is a content-addressed chain of conversation messages.
// Every node hashes its message together with its parent's hash, so the hash of
// the last node identifies the whole conversation up to that point.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/papercomputeco/gemchat/pkg/llm"
)

// Node represents a single content-addressed message in a chain
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous node hash.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	Message llm.Message `json:"message"`
}

// NewNode creates a new node with the computed hash for the provided message
func NewNode(msg llm.Message, parent *Node) *Node {
	n := &Node{
		Message: msg,
	}

	if parent != nil {
		parentHash := parent.Hash
		n.ParentHash = &parentHash
	}

	n.Hash = n.computeHash()
	return n
}

// Verify reports whether the stored hash still matches the node's content.
func (n *Node) Verify() bool {
	return n.Hash == n.computeHash()
}

type input struct {
	Message llm.Message `json:"message"`
	Parent  string      `json:"parent,omitempty"`
}

func (n *Node) computeHash() string {
	i := &input{
		Message: n.Message,
	}

	if n.ParentHash != nil {
		i.Parent = *n.ParentHash
	}

	// Canonical JSON encoding for deterministic hashing
	data, err := json.Marshal(i)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
