package lang

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// identifierQuery captures every identifier token that can carry a symbol
// name in Go source.
const identifierQuery = `[
	(identifier)
	(type_identifier)
	(field_identifier)
	(package_identifier)
] @id`

// GoPolicy implements Policy for the Go grammar. It owns one parser of its
// own for rename rewriting, so it never touches the parsers held by the
// document store.
type GoPolicy struct {
	parser *sitter.Parser
	mu     sync.Mutex
}

// NewGoPolicy creates the policy with a ready parser.
func NewGoPolicy() *GoPolicy {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &GoPolicy{parser: p}
}

func (p *GoPolicy) ID() string { return "go" }

func (p *GoPolicy) Language() *sitter.Language { return golang.GetLanguage() }

// Model scans the top-level declarations of one parsed version.
func (p *GoPolicy) Model(root *sitter.Node, src []byte) *Model {
	m := &Model{}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_clause":
			if id := child.NamedChild(0); id != nil {
				m.Package = id.Content(src)
			}
		case "function_declaration", "method_declaration":
			if name := child.ChildByFieldName("name"); name != nil {
				m.Decls = append(m.Decls, Decl{
					Name:     name.Content(src),
					Kind:     p.Kind(child, src),
					Receiver: receiverType(child, src),
				})
			}
		case "type_declaration", "var_declaration", "const_declaration":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				name := spec.ChildByFieldName("name")
				if name == nil {
					continue
				}
				m.Decls = append(m.Decls, Decl{
					Name: name.Content(src),
					Kind: p.Kind(spec, src),
				})
			}
		}
	}
	return m
}

// Kind classifies a node. Type specs are told apart by their underlying
// type expression.
func (p *GoPolicy) Kind(node *sitter.Node, src []byte) Kind {
	switch node.Type() {
	case "function_declaration":
		return KindFunction
	case "method_declaration":
		return KindMethod
	case "type_spec":
		if t := node.ChildByFieldName("type"); t != nil {
			switch t.Type() {
			case "struct_type":
				return KindStruct
			case "interface_type":
				return KindInterface
			}
		}
		return KindType
	case "field_declaration":
		return KindField
	case "var_spec":
		return KindVariable
	case "const_spec":
		return KindConstant
	}
	return KindUnknown
}

func (p *GoPolicy) Name(node *sitter.Node, src []byte) (string, error) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return "", fmt.Errorf("construct %q has no name", node.Type())
	}
	return name.Content(src), nil
}

func (p *GoPolicy) FullName(node *sitter.Node, model *Model, src []byte) (string, error) {
	sym, err := p.SymbolFor(node, model, src)
	if err != nil {
		return "", err
	}
	return sym.FullName(), nil
}

func (p *GoPolicy) SymbolFor(node *sitter.Node, model *Model, src []byte) (Symbol, error) {
	name, err := p.Name(node, src)
	if err != nil {
		return Symbol{}, err
	}
	return Symbol{
		Name:     name,
		Package:  model.Package,
		Receiver: receiverType(node, src),
		Kind:     p.Kind(node, src),
	}, nil
}

func (p *GoPolicy) SetName(src []byte, node *sitter.Node, newName string) ([]byte, error) {
	if !isIdentifier(newName) {
		return nil, fmt.Errorf("%q is not a valid identifier: %w", newName, ErrInvalidArgument)
	}
	name := node.ChildByFieldName("name")
	if name == nil {
		return nil, fmt.Errorf("construct %q has no name", node.Type())
	}
	return splice(src, name.StartByte(), name.EndByte(), newName), nil
}

// Delete removes the construct. A spec that is the only one inside its
// declaration takes the whole declaration with it, so no empty
// "type ()" shell is left behind.
func (p *GoPolicy) Delete(src []byte, node *sitter.Node) ([]byte, error) {
	target := node
	switch node.Type() {
	case "type_spec", "var_spec", "const_spec":
		if parent := node.Parent(); parent != nil && parent.NamedChildCount() == 1 {
			target = parent
		}
	}

	start, end := target.StartByte(), target.EndByte()
	if int(end) < len(src) && src[end] == '\r' {
		end++
	}
	if int(end) < len(src) && src[end] == '\n' {
		end++
	}
	return splice(src, start, end, ""), nil
}

// Rename rewrites every identifier occurrence of the symbol across the
// workspace. Matching is textual: every identifier token whose text equals
// the symbol name is rewritten, including unrelated identifiers that happen
// to share it. Unexported symbols are only rewritten inside their own
// package. Each document is rewritten through its own edit session; there
// is no cross-file transaction.
func (p *GoPolicy) Rename(ctx context.Context, ws Workspace, sym Symbol, newName string) error {
	if !isIdentifier(newName) {
		return fmt.Errorf("%q is not a valid identifier: %w", newName, ErrInvalidArgument)
	}
	for _, path := range ws.Paths() {
		err := ws.Rewrite(ctx, path, func(src []byte) ([]byte, bool, error) {
			return p.renameInSource(ctx, src, sym, newName)
		})
		if err != nil {
			return fmt.Errorf("rename %s in %s: %w", sym.Name, path, err)
		}
	}
	return nil
}

func (p *GoPolicy) renameInSource(ctx context.Context, src []byte, sym Symbol, newName string) ([]byte, bool, error) {
	p.mu.Lock()
	tree, err := p.parser.ParseCtx(ctx, nil, src)
	p.mu.Unlock()
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse document: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !sym.Exported() && packageOf(root, src) != sym.Package {
		return nil, false, nil
	}

	query, err := sitter.NewQuery([]byte(identifierQuery), golang.GetLanguage())
	if err != nil {
		return nil, false, fmt.Errorf("failed to compile identifier query: %w", err)
	}
	cursor := sitter.NewQueryCursor()
	cursor.Exec(query, root)

	var hits []*sitter.Node
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		match = cursor.FilterPredicates(match, src)
		for _, capture := range match.Captures {
			if capture.Node.Content(src) == sym.Name {
				hits = append(hits, capture.Node)
			}
		}
	}
	if len(hits) == 0 {
		return nil, false, nil
	}

	// Splice back to front so earlier offsets stay valid.
	out := src
	for i := len(hits) - 1; i >= 0; i-- {
		out = splice(out, hits[i].StartByte(), hits[i].EndByte(), newName)
	}
	return out, true, nil
}

func (p *GoPolicy) Prototype(node *sitter.Node, model *Model, src []byte, flags PrototypeFlags) (string, error) {
	if flags == 0 {
		flags = ProtoDefault
	}
	name, err := p.Name(node, src)
	if err != nil {
		return "", err
	}
	qualified := name
	if flags&ProtoPackageName != 0 && model.Package != "" {
		qualified = model.Package + "." + name
	}

	switch p.Kind(node, src) {
	case KindFunction, KindMethod:
		var b strings.Builder
		b.WriteString("func ")
		if flags&ProtoReceiver != 0 {
			if recv := node.ChildByFieldName("receiver"); recv != nil {
				b.WriteString(recv.Content(src))
				b.WriteString(" ")
			}
		}
		b.WriteString(qualified)
		b.WriteString(renderParams(node.ChildByFieldName("parameters"), src, flags))
		if flags&ProtoReturnType != 0 {
			if result := node.ChildByFieldName("result"); result != nil {
				b.WriteString(" ")
				b.WriteString(result.Content(src))
			}
		}
		return b.String(), nil
	case KindStruct:
		return "type " + qualified + " struct", nil
	case KindInterface:
		return "type " + qualified + " interface", nil
	case KindType:
		return "type " + qualified, nil
	case KindField:
		if t := node.ChildByFieldName("type"); t != nil {
			return qualified + " " + t.Content(src), nil
		}
		return qualified, nil
	case KindVariable:
		return "var " + withTypeSuffix(qualified, node, src), nil
	case KindConstant:
		return "const " + withTypeSuffix(qualified, node, src), nil
	}
	return "", fmt.Errorf("prototype for %q: %w", node.Type(), ErrNotImplemented)
}

// Attributes is unsupported: Go has no attribute sections.
func (p *GoPolicy) Attributes(node *sitter.Node, src []byte) ([]string, error) {
	return nil, fmt.Errorf("go constructs have no attribute sections: %w", ErrNotImplemented)
}

// Close releases the rename parser.
func (p *GoPolicy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
	return nil
}

func renderParams(params *sitter.Node, src []byte, flags PrototypeFlags) string {
	if params == nil {
		return "()"
	}
	if flags&(ProtoParamNames|ProtoParamTypes) == 0 {
		return "()"
	}
	var decls []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		decl := params.NamedChild(i)
		var parts []string
		if flags&ProtoParamNames != 0 {
			if name := decl.ChildByFieldName("name"); name != nil {
				parts = append(parts, name.Content(src))
			}
		}
		if flags&ProtoParamTypes != 0 {
			if t := decl.ChildByFieldName("type"); t != nil {
				parts = append(parts, t.Content(src))
			}
		}
		if len(parts) > 0 {
			decls = append(decls, strings.Join(parts, " "))
		}
	}
	return "(" + strings.Join(decls, ", ") + ")"
}

func withTypeSuffix(name string, node *sitter.Node, src []byte) string {
	if t := node.ChildByFieldName("type"); t != nil {
		return name + " " + t.Content(src)
	}
	return name
}

// receiverType extracts the bare receiver type name of a method, "" for
// everything else.
func receiverType(node *sitter.Node, src []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		decl := recv.NamedChild(i)
		t := decl.ChildByFieldName("type")
		if t == nil {
			continue
		}
		typ := strings.TrimSpace(t.Content(src))
		return strings.TrimPrefix(typ, "*")
	}
	return ""
}

func packageOf(root *sitter.Node, src []byte) string {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "package_clause" {
			if id := child.NamedChild(0); id != nil {
				return id.Content(src)
			}
		}
	}
	return ""
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

func splice(src []byte, start, end uint32, replacement string) []byte {
	out := make([]byte, 0, len(src)-int(end-start)+len(replacement))
	out = append(out, src[:start]...)
	out = append(out, replacement...)
	out = append(out, src[end:]...)
	return out
}
