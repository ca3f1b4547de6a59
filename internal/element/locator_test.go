package element_test

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/emmanuel-ferdman/roslyn/internal/element"
)

func parseTree(t *testing.T, src string) *sitter.Tree {
	t.Helper()

	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	if err != nil {
		t.Fatalf("failed to parse source: %v", err)
	}
	t.Cleanup(func() {
		tree.Close()
		parser.Close()
	})
	return tree
}

func topLevelNamed(t *testing.T, root *sitter.Node, src, name string) *sitter.Node {
	t.Helper()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if n := child.ChildByFieldName("name"); n != nil && n.Content([]byte(src)) == name {
			return child
		}
	}
	t.Fatalf("no top-level construct named %s", name)
	return nil
}

func TestLocatorResolvesAcrossVersions(t *testing.T) {
	before := "package p\n\nfunc Target() {}\n"
	after := "package p\n\nvar inserted int\n\nfunc Target() {}\n"

	src := []byte(before)
	node := topLevelNamed(t, parseTree(t, before).RootNode(), before, "Target")
	loc := element.Capture(node, src)

	// Resolve against a later version where every byte offset moved.
	newRoot := parseTree(t, after).RootNode()
	resolved := loc.Resolve(newRoot, []byte(after))
	if resolved == nil {
		t.Fatal("locator did not resolve in the new version")
	}
	if got := resolved.ChildByFieldName("name").Content([]byte(after)); got != "Target" {
		t.Errorf("resolved to %q, want Target", got)
	}
}

func TestLocatorOrdinalDisambiguatesSameNames(t *testing.T) {
	src := `package p

type A struct{}
type B struct{}

func (A) Get() int { return 1 }
func (B) Get() int { return 2 }
`
	root := parseTree(t, src).RootNode()

	// Both methods are method_declaration nodes named Get; the ordinal
	// keeps their locators distinct.
	var methods []*sitter.Node
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "method_declaration" {
			methods = append(methods, child)
		}
	}
	if len(methods) != 2 {
		t.Fatalf("found %d methods, want 2", len(methods))
	}

	locA := element.Capture(methods[0], []byte(src))
	locB := element.Capture(methods[1], []byte(src))

	if got := locA.Resolve(root, []byte(src)); got == nil || !got.Equal(methods[0]) {
		t.Error("first locator resolved to the wrong method")
	}
	if got := locB.Resolve(root, []byte(src)); got == nil || !got.Equal(methods[1]) {
		t.Error("second locator resolved to the wrong method")
	}
}

func TestLocatorRoundTripsThroughEncoding(t *testing.T) {
	src := "package p\n\nconst (\n\ta = 1\n\tb = 2\n)\n"
	root := parseTree(t, src).RootNode()

	decl := root.NamedChild(1)
	spec := decl.NamedChild(1) // const_spec for b
	loc := element.Capture(spec, []byte(src))

	blob, err := loc.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	var restored element.Locator
	if err := restored.UnmarshalBinary(blob); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}

	got := restored.Resolve(root, []byte(src))
	if got == nil || !got.Equal(spec) {
		t.Error("decoded locator resolved to the wrong node")
	}
}

func TestLocatorFromRootIsEmpty(t *testing.T) {
	src := "package p\n"
	root := parseTree(t, src).RootNode()

	loc := element.Capture(root, []byte(src))
	if !loc.Empty() {
		t.Error("locator captured from the root should be empty")
	}
	if got := loc.Resolve(root, []byte(src)); !got.Equal(root) {
		t.Error("empty locator should resolve to the root itself")
	}
}

func TestLocatorMissesWhenStepVanishes(t *testing.T) {
	src := "package p\n\nfunc Gone() {}\n"
	root := parseTree(t, src).RootNode()
	node := topLevelNamed(t, root, src, "Gone")
	loc := element.Capture(node, []byte(src))

	after := "package p\n"
	newRoot := parseTree(t, after).RootNode()
	if loc.Resolve(newRoot, []byte(after)) != nil {
		t.Error("locator resolved although the construct is gone")
	}
}
