// Package syntax defines the opaque parse-tree value the engine shuffles
// between documents, compiled units, and overlays. The engine never inspects
// tree structure; it replaces, adds, and fingerprints trees as whole values.
// Tree identity is pointer identity, the way replacement requests name the
// tree to swap out.
package syntax

import (
	"ripple/internal/source"
)

type Tree struct {
	Doc  source.DocumentID
	Text *source.Text
}

// NewTree binds normalized text to a document identity.
func NewTree(doc source.DocumentID, text *source.Text) *Tree {
	if text == nil {
		text = source.NewTextFromString("")
	}
	return &Tree{Doc: doc, Text: text}
}

// Digest is the content digest of the tree's text.
func (t *Tree) Digest() source.Digest {
	return t.Text.Hash
}

// SameContent reports digest equality; distinct tree values can carry
// identical content after a replay.
func (t *Tree) SameContent(other *Tree) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	return t.Doc == other.Doc && t.Text.Equal(other.Text)
}
