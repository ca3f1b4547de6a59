package lang

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// PrototypeFlags selects the optional parts of a rendered signature.
type PrototypeFlags uint32

const (
	ProtoParamTypes PrototypeFlags = 1 << iota
	ProtoParamNames
	ProtoReturnType
	ProtoReceiver
	ProtoPackageName
)

// ProtoDefault is the rendering used when a caller passes no flags.
const ProtoDefault = ProtoParamTypes | ProtoReturnType | ProtoReceiver

// Workspace is the seam through which a rename implementation reaches every
// open document. Rewrite runs fn against the current text of one document
// and, when fn reports a change, installs the result as a new version
// through that document's own single-writer session.
type Workspace interface {
	Paths() []string
	Rewrite(ctx context.Context, path string, fn func(src []byte) ([]byte, bool, error)) error
}

// Policy is the per-grammar strategy the handle machinery consumes. All
// syntax-specific knowledge lives behind this interface; the core never
// inspects node types itself.
type Policy interface {
	// ID names the grammar, e.g. "go".
	ID() string

	// Language returns the tree-sitter grammar used to parse documents.
	Language() *sitter.Language

	// Model computes the semantic model for one parsed version.
	Model(root *sitter.Node, src []byte) *Model

	// Kind classifies a node into the closed Kind set, KindUnknown when the
	// node is not a construct this policy addresses.
	Kind(node *sitter.Node, src []byte) Kind

	// Name extracts the declared name of a construct.
	Name(node *sitter.Node, src []byte) (string, error)

	// FullName computes the dotted full name using the semantic model.
	FullName(node *sitter.Node, model *Model, src []byte) (string, error)

	// SymbolFor derives the semantic identity of a declaration.
	SymbolFor(node *sitter.Node, model *Model, src []byte) (Symbol, error)

	// SetName rewrites the declaration's name and returns the new document
	// text. The input text is never modified in place.
	SetName(src []byte, node *sitter.Node, newName string) ([]byte, error)

	// Delete returns the document text with the construct removed.
	Delete(src []byte, node *sitter.Node) ([]byte, error)

	// Rename propagates a symbol rename across the workspace. Cancellation
	// and partial-failure semantics belong to the implementation; the
	// handle only initiates the call.
	Rename(ctx context.Context, ws Workspace, sym Symbol, newName string) error

	// Prototype renders a signature string filtered by flags.
	Prototype(node *sitter.Node, model *Model, src []byte, flags PrototypeFlags) (string, error)

	// Attributes lists attribute/annotation sections of a construct.
	// Grammars without attribute sections fail with ErrNotImplemented.
	Attributes(node *sitter.Node, src []byte) ([]string, error)
}
