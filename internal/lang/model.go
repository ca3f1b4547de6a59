package lang

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Model is the semantic model of one document version: the package clause
// plus the table of top-level declarations. A model belongs to exactly one
// snapshot; it is computed lazily, at most once per version, and never
// carried across versions.
type Model struct {
	Package string
	Decls   []Decl
}

// Decl is one top-level declaration visible in the model.
type Decl struct {
	Name     string
	Kind     Kind
	Receiver string
}

// Lookup finds a declaration by name and (for methods) receiver type.
func (m *Model) Lookup(name, receiver string) (Decl, bool) {
	for _, d := range m.Decls {
		if d.Name == name && d.Receiver == receiver {
			return d, true
		}
	}
	return Decl{}, false
}

// Symbol is the semantic identity of a declaration, derived from a model
// plus a node. Symbols are recomputed on demand and never stored on a
// handle.
type Symbol struct {
	Name     string
	Package  string
	Receiver string
	Kind     Kind
}

// Exported reports whether the symbol is visible outside its package.
func (s Symbol) Exported() bool {
	r, _ := utf8.DecodeRuneInString(s.Name)
	return unicode.IsUpper(r)
}

// FullName renders the dotted full name, e.g. "store.File.Close".
func (s Symbol) FullName() string {
	var b strings.Builder
	if s.Package != "" {
		b.WriteString(s.Package)
		b.WriteString(".")
	}
	if s.Receiver != "" {
		b.WriteString(s.Receiver)
		b.WriteString(".")
	}
	b.WriteString(s.Name)
	return b.String()
}
