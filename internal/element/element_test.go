package element_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/emmanuel-ferdman/roslyn/internal/element"
	"github.com/emmanuel-ferdman/roslyn/internal/format"
	"github.com/emmanuel-ferdman/roslyn/internal/lang"
	"github.com/emmanuel-ferdman/roslyn/internal/store"
)

const document = `package greeter

const prefix = "hi "

type Greeter struct {
	prefix string
}

func (g *Greeter) Greet(name string) string {
	return g.prefix + name
}

func Hello() string {
	return "hello"
}
`

func newStore(t *testing.T) *store.Store {
	t.Helper()

	policy := lang.NewGoPolicy()
	t.Cleanup(func() { policy.Close() })

	docs := store.NewStore(store.Config{Policy: policy})
	t.Cleanup(func() { docs.CloseAll() })
	return docs
}

func open(t *testing.T, docs *store.Store, path, text string) *store.File {
	t.Helper()
	file, err := docs.Open(path, []byte(text))
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	return file
}

func mustFind(t *testing.T, file *store.File, docs *store.Store, name string, kind lang.Kind) *element.Handle {
	t.Helper()
	h, err := element.Find(file, docs, name, kind)
	if err != nil {
		t.Fatalf("failed to find %s: %v", name, err)
	}
	return h
}

func prepend(text string) store.Transform {
	return func(snap *store.Snapshot) ([]byte, error) {
		src := string(snap.Text())
		idx := strings.Index(src, "\n\n") + 2
		return []byte(src[:idx] + text + src[idx:]), nil
	}
}

func TestHandleSurvivesUnrelatedEdit(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)
	h := mustFind(t, file, docs, "Hello", lang.KindFunction)

	// Insert a declaration before the function; all byte offsets shift.
	if err := file.PerformEdit(context.Background(), prepend("var shift int\n\n")); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	if !h.IsValid() {
		t.Fatal("handle invalid after unrelated edit")
	}
	name, err := h.Name()
	if err != nil {
		t.Fatalf("Name failed: %v", err)
	}
	if name != "Hello" {
		t.Errorf("name = %q, want Hello", name)
	}
}

func TestIsValidHasNoSideEffects(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)
	h := mustFind(t, file, docs, "Hello", lang.KindFunction)

	before := file.Current().Version()
	for i := 0; i < 3; i++ {
		if !h.IsValid() {
			t.Fatal("handle should be valid")
		}
	}
	if file.Current().Version() != before {
		t.Error("IsValid changed the document version")
	}
}

func TestSetNameRoundTrip(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)
	h := mustFind(t, file, docs, "Hello", lang.KindFunction)

	if err := h.SetName(context.Background(), "Howdy"); err != nil {
		t.Fatalf("SetName failed: %v", err)
	}

	if !h.IsValid() {
		t.Fatal("handle invalid after renaming through it")
	}
	name, err := h.Name()
	if err != nil {
		t.Fatalf("Name failed: %v", err)
	}
	if name != "Howdy" {
		t.Errorf("name = %q, want Howdy", name)
	}
	if file.Current().Version() != 2 {
		t.Errorf("version = %d, want 2", file.Current().Version())
	}
}

func TestSetNameOntoCollidingNameKeepsAddressingSameConstruct(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", `package shapes

type X struct{}
type Y struct{}

func (x X) String() string { return "x" }

func (y Y) Describe() string { return "y" }
`)
	h := mustFind(t, file, docs, "Describe", lang.KindMethod)

	// The new name collides with an earlier method of the same node type.
	if err := h.SetName(context.Background(), "String"); err != nil {
		t.Fatalf("SetName failed: %v", err)
	}

	fullName, err := h.FullName()
	if err != nil {
		t.Fatalf("FullName failed: %v", err)
	}
	if fullName != "shapes.Y.String" {
		t.Fatalf("handle drifted to %q, want shapes.Y.String", fullName)
	}

	if err := h.Delete(context.Background()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	text := string(file.Current().Text())
	if !strings.Contains(text, "func (x X) String()") {
		t.Error("unrelated method was deleted")
	}
	if strings.Contains(text, "func (y Y) String()") {
		t.Error("renamed construct survived its own delete")
	}
}

func TestRenameSymbolOntoCollidingNameKeepsAddressingSameConstruct(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", `package shapes

type X struct{}
type Y struct{}

func (x X) Render() string { return "x" }

func (y Y) Paint() string { return "y" }
`)
	h := mustFind(t, file, docs, "Paint", lang.KindMethod)

	if err := h.RenameSymbol(context.Background(), "Render"); err != nil {
		t.Fatalf("RenameSymbol failed: %v", err)
	}

	fullName, err := h.FullName()
	if err != nil {
		t.Fatalf("FullName failed: %v", err)
	}
	if fullName != "shapes.Y.Render" {
		t.Errorf("handle drifted to %q, want shapes.Y.Render", fullName)
	}
}

func TestEmptyNameRejectedBeforeTouchingDocument(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)
	h := mustFind(t, file, docs, "Hello", lang.KindFunction)

	if err := h.SetName(context.Background(), ""); !errors.Is(err, lang.ErrInvalidArgument) {
		t.Errorf("SetName(\"\") error = %v, want ErrInvalidArgument", err)
	}
	if err := h.RenameSymbol(context.Background(), ""); !errors.Is(err, lang.ErrInvalidArgument) {
		t.Errorf("RenameSymbol(\"\") error = %v, want ErrInvalidArgument", err)
	}
	if file.Current().Version() != 1 {
		t.Errorf("version = %d, want 1 (nothing installed)", file.Current().Version())
	}
}

func TestDeleteInvalidatesAndSecondDeleteFails(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)
	h := mustFind(t, file, docs, "Hello", lang.KindFunction)

	if err := h.Delete(context.Background()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if strings.Contains(string(file.Current().Text()), "func Hello") {
		t.Error("construct still present after delete")
	}
	if h.IsValid() {
		t.Error("handle valid after delete")
	}
	if _, err := h.Name(); !errors.Is(err, element.ErrNotFound) {
		t.Errorf("Name after delete error = %v, want ErrNotFound", err)
	}
	if err := h.Delete(context.Background()); !errors.Is(err, element.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestRecreationRevalidatesHandle(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)
	h := mustFind(t, file, docs, "Hello", lang.KindFunction)

	if err := h.Delete(context.Background()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if h.IsValid() {
		t.Fatal("handle valid after delete")
	}

	// A structurally identical reincarnation makes the locator resolve
	// again. Incarnations are told apart by fresh handles' stamps.
	err := file.PerformEdit(context.Background(), func(snap *store.Snapshot) ([]byte, error) {
		return append(snap.Text(), []byte("\nfunc Hello() string {\n\treturn \"hello\"\n}\n")...), nil
	})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	if !h.IsValid() {
		t.Error("handle should resolve against the reincarnation")
	}
	fresh := mustFind(t, file, docs, "Hello", lang.KindFunction)
	if fresh.Stamp() == h.Stamp() {
		t.Error("fresh handle shares the old handle's stamp")
	}
}

func TestKindChangeInvalidates(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)
	h := mustFind(t, file, docs, "Hello", lang.KindFunction)

	// Replace the function with a variable of the same name.
	err := file.PerformEdit(context.Background(), func(snap *store.Snapshot) ([]byte, error) {
		out := strings.Replace(string(snap.Text()),
			"func Hello() string {\n\treturn \"hello\"\n}", "var Hello string", 1)
		return []byte(out), nil
	})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	if h.IsValid() {
		t.Error("handle valid although the construct kind changed")
	}
}

func TestFullNameAndPrototype(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)
	h := mustFind(t, file, docs, "Greet", lang.KindMethod)

	fullName, err := h.FullName()
	if err != nil {
		t.Fatalf("FullName failed: %v", err)
	}
	if fullName != "greeter.Greeter.Greet" {
		t.Errorf("full name = %q", fullName)
	}

	proto, err := h.Prototype(lang.ProtoDefault)
	if err != nil {
		t.Fatalf("Prototype failed: %v", err)
	}
	if proto != "func (g *Greeter) Greet(string) string" {
		t.Errorf("prototype = %q", proto)
	}
}

func TestAttributesNotImplementedForGo(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)
	h := mustFind(t, file, docs, "Hello", lang.KindFunction)

	if _, err := h.Attributes(); !errors.Is(err, lang.ErrNotImplemented) {
		t.Errorf("Attributes error = %v, want ErrNotImplemented", err)
	}
}

func TestPointsAndPartAbsence(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)
	h := mustFind(t, file, docs, "Hello", lang.KindFunction)
	ctx := context.Background()

	start, ok, err := h.StartPoint(ctx, format.PartName)
	if err != nil {
		t.Fatalf("StartPoint failed: %v", err)
	}
	if !ok {
		t.Fatal("name part should exist")
	}
	if start.Column != 5 {
		t.Errorf("name column = %d, want 5", start.Column)
	}

	_, ok, err = h.EndPoint(ctx, format.PartAttributes)
	if err != nil {
		t.Fatalf("EndPoint failed: %v", err)
	}
	if ok {
		t.Error("attribute part reported present for a go construct")
	}
}

func TestRenameSymbolPropagatesAcrossOpenDocuments(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)
	other := open(t, docs, "b.go",
		"package greeter\n\nvar greeting = Hello()\n")

	h := mustFind(t, file, docs, "Hello", lang.KindFunction)
	if err := h.RenameSymbol(context.Background(), "Howdy"); err != nil {
		t.Fatalf("RenameSymbol failed: %v", err)
	}

	if !strings.Contains(string(file.Current().Text()), "func Howdy()") {
		t.Error("declaration not renamed")
	}
	if !strings.Contains(string(other.Current().Text()), "Howdy()") {
		t.Error("reference in second document not renamed")
	}
	if !h.IsValid() {
		t.Error("handle invalid after its own rename")
	}
}

func TestAtPosition(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)

	// Inside the body of Greet.
	h, err := element.AtPosition(file, docs, 9, 8)
	if err != nil {
		t.Fatalf("AtPosition failed: %v", err)
	}
	if h.Kind() != lang.KindMethod {
		t.Errorf("kind = %v, want method", h.Kind())
	}
	name, err := h.Name()
	if err != nil {
		t.Fatalf("Name failed: %v", err)
	}
	if name != "Greet" {
		t.Errorf("name = %q, want Greet", name)
	}
}

func TestTopLevelEnumeratesConstructs(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)

	handles, err := element.TopLevel(file, docs)
	if err != nil {
		t.Fatalf("TopLevel failed: %v", err)
	}

	var names []string
	for _, h := range handles {
		name, err := h.Name()
		if err != nil {
			t.Fatalf("Name failed: %v", err)
		}
		names = append(names, name)
	}
	want := []string{"prefix", "Greeter", "Greet", "Hello"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestFindRespectsKindFilter(t *testing.T) {
	docs := newStore(t)
	file := open(t, docs, "a.go", document)

	if _, err := element.Find(file, docs, "Hello", lang.KindStruct); !errors.Is(err, element.ErrNotFound) {
		t.Errorf("kind-filtered find error = %v, want ErrNotFound", err)
	}
	if _, err := element.Find(file, docs, "Hello", lang.KindUnknown); err != nil {
		t.Errorf("unfiltered find failed: %v", err)
	}
}
