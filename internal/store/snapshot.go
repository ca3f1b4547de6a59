package store

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/emmanuel-ferdman/roslyn/internal/lang"
)

// Snapshot is one immutable document version: the text, its syntax tree and
// a lazily computed semantic model, identified by a version stamp that
// increases monotonically per file. A Snapshot is never mutated in place;
// an edit produces the next one.
type Snapshot struct {
	version uint64
	text    []byte
	tree    *sitter.Tree
	policy  lang.Policy

	modelOnce sync.Once
	model     *lang.Model
}

func newSnapshot(version uint64, text []byte, tree *sitter.Tree, policy lang.Policy) *Snapshot {
	return &Snapshot{
		version: version,
		text:    text,
		tree:    tree,
		policy:  policy,
	}
}

// Version returns the monotonically increasing stamp of this snapshot.
func (s *Snapshot) Version() uint64 { return s.version }

// Text returns the document text of this version. Callers must not modify
// the returned slice.
func (s *Snapshot) Text() []byte { return s.text }

// Root returns the root node of this version's syntax tree.
func (s *Snapshot) Root() *sitter.Node { return s.tree.RootNode() }

// Model returns the semantic model, computing it on first use. The model is
// derived from exactly this version and is never shared with another one.
func (s *Snapshot) Model() *lang.Model {
	s.modelOnce.Do(func() {
		s.model = s.policy.Model(s.Root(), s.text)
	})
	return s.model
}
