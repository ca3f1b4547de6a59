package element

import (
	"context"
	"fmt"

	"github.com/segmentio/ksuid"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/emmanuel-ferdman/roslyn/internal/format"
	"github.com/emmanuel-ferdman/roslyn/internal/lang"
	"github.com/emmanuel-ferdman/roslyn/internal/store"
)

// Handle is an externally held reference to one logical construct. It never
// owns tree data: it keeps the owning file, a locator and the kind recorded
// at creation, and every operation resolves the locator against whatever
// snapshot is current at that moment. The resolved node is authoritative
// for that one call only and is never cached past it.
//
// A handle carries a creation-time stamp. A construct that is deleted and
// later recreated structurally identical makes the handle resolve again;
// callers that must tell the incarnations apart compare the stamps of
// freshly created handles.
type Handle struct {
	file   *store.File
	ws     lang.Workspace
	loc    Locator
	kind   lang.Kind
	stamp  ksuid.KSUID
	policy lang.Policy
}

// New captures a handle from a node of the file's current snapshot. The
// node's kind is recorded and re-checked on every later resolution.
func New(file *store.File, ws lang.Workspace, node *sitter.Node) (*Handle, error) {
	policy := file.Policy()
	src := file.Current().Text()

	kind := policy.Kind(node, src)
	if kind == lang.KindUnknown {
		return nil, fmt.Errorf("node %q is not an addressable construct", node.Type())
	}

	return &Handle{
		file:   file,
		ws:     ws,
		loc:    Capture(node, src),
		kind:   kind,
		stamp:  ksuid.New(),
		policy: policy,
	}, nil
}

// Restore rebuilds a handle from persisted parts (see the journal). The
// restored handle resolves exactly like the original; whether it still
// resolves is answered by IsValid, not by Restore.
func Restore(file *store.File, ws lang.Workspace, loc Locator, kind lang.Kind, stamp ksuid.KSUID) *Handle {
	return &Handle{
		file:   file,
		ws:     ws,
		loc:    loc,
		kind:   kind,
		stamp:  stamp,
		policy: file.Policy(),
	}
}

// Kind returns the construct category fixed at creation.
func (h *Handle) Kind() lang.Kind { return h.kind }

// Stamp returns the creation-time identity stamp.
func (h *Handle) Stamp() ksuid.KSUID { return h.stamp }

// Path returns the owning document path.
func (h *Handle) Path() string { return h.file.Path() }

// Locator returns the capture-time locator, for persistence.
func (h *Handle) Locator() Locator { return h.loc }

// resolve is the single resolution algorithm every operation shares: load
// the current snapshot, apply the locator, check the kind. The returned
// node belongs to the returned snapshot and must not outlive the call.
func (h *Handle) resolve() (*store.Snapshot, *sitter.Node, error) {
	snap := h.file.Current()
	return h.resolveIn(snap)
}

func (h *Handle) resolveIn(snap *store.Snapshot) (*store.Snapshot, *sitter.Node, error) {
	node := h.loc.Resolve(snap.Root(), snap.Text())
	if node == nil {
		return nil, nil, fmt.Errorf("%s: %w", h.file.Path(), ErrNotFound)
	}
	if h.kind != lang.KindUnknown && h.policy.Kind(node, snap.Text()) != h.kind {
		return nil, nil, fmt.Errorf("%s: construct kind changed: %w", h.file.Path(), ErrNotFound)
	}
	return snap, node, nil
}

// IsValid reports whether the handle resolves in the current version. It
// never fails and has no side effects.
func (h *Handle) IsValid() bool {
	_, _, err := h.resolve()
	return err == nil
}

// Resolve surfaces the shared resolution as a hard result.
func (h *Handle) Resolve() (*sitter.Node, error) {
	_, node, err := h.resolve()
	return node, err
}

// Name returns the declared name of the construct.
func (h *Handle) Name() (string, error) {
	snap, node, err := h.resolve()
	if err != nil {
		return "", err
	}
	return h.policy.Name(node, snap.Text())
}

// FullName returns the dotted full name computed against the current
// semantic model.
func (h *Handle) FullName() (string, error) {
	snap, node, err := h.resolve()
	if err != nil {
		return "", err
	}
	return h.policy.FullName(node, snap.Model(), snap.Text())
}

// SetName rewrites the construct's declared name inside an edit session,
// re-resolving against the session's working version. Before the session
// commits, the locator is re-captured from the rewritten tree so the handle
// keeps addressing the renamed construct even when the new name collides
// with a sibling.
func (h *Handle) SetName(ctx context.Context, newName string) error {
	if newName == "" {
		return fmt.Errorf("name must not be empty: %w", lang.ErrInvalidArgument)
	}

	return h.file.EnsureEditor(ctx, func(s *store.Session) error {
		position := -1
		err := s.Apply(ctx, func(snap *store.Snapshot) ([]byte, error) {
			_, node, err := h.resolveIn(snap)
			if err != nil {
				return nil, err
			}
			position = namedChildPosition(node)
			return h.policy.SetName(snap.Text(), node, newName)
		})
		if err != nil {
			return err
		}

		snap := s.Snapshot()
		if !h.loc.repairAfterRename(snap.Root(), snap.Text(), position) {
			return fmt.Errorf("%s: construct lost after rename: %w", h.file.Path(), ErrNotFound)
		}
		return nil
	})
}

// StartPoint returns the start position of the requested part, rendered
// with the document's formatting options. The boolean is false when the
// construct does not define that part; this is a normal outcome, not an
// error. Fetching the options may block; the calling context must be safe
// to block on (see store.File.FormattingOptions).
func (h *Handle) StartPoint(ctx context.Context, part format.Part) (format.Point, bool, error) {
	snap, node, err := h.resolve()
	if err != nil {
		return format.Point{}, false, err
	}
	opts, err := h.file.FormattingOptions(ctx)
	if err != nil {
		return format.Point{}, false, err
	}
	point, ok := format.StartPoint(node, snap.Text(), opts, part)
	return point, ok, nil
}

// EndPoint is the counterpart of StartPoint for the end of the part.
func (h *Handle) EndPoint(ctx context.Context, part format.Part) (format.Point, bool, error) {
	snap, node, err := h.resolve()
	if err != nil {
		return format.Point{}, false, err
	}
	opts, err := h.file.FormattingOptions(ctx)
	if err != nil {
		return format.Point{}, false, err
	}
	point, ok := format.EndPoint(node, snap.Text(), opts, part)
	return point, ok, nil
}

// RenameSymbol derives the construct's symbol from the current semantic
// model and initiates the policy's workspace-wide rename. The handle only
// initiates: propagation, cancellation and partial-failure semantics belong
// to the policy. An empty target fails before anything is touched.
func (h *Handle) RenameSymbol(ctx context.Context, newName string) error {
	if newName == "" {
		return fmt.Errorf("rename target must not be empty: %w", lang.ErrInvalidArgument)
	}

	snap, node, err := h.resolve()
	if err != nil {
		return err
	}
	position := namedChildPosition(node)
	sym, err := h.policy.SymbolFor(node, snap.Model(), snap.Text())
	if err != nil {
		return err
	}

	ws := h.ws
	if ws == nil {
		ws = singleFileWorkspace{file: h.file}
	}
	if err := h.policy.Rename(ctx, ws, sym, newName); err != nil {
		return err
	}

	cur := h.file.Current()
	if !h.loc.repairAfterRename(cur.Root(), cur.Text(), position) {
		return fmt.Errorf("%s: construct lost after rename: %w", h.file.Path(), ErrNotFound)
	}
	return nil
}

// Delete removes the construct inside an edit session. A second Delete on
// the same handle fails with ErrNotFound, because the locator no longer
// resolves.
func (h *Handle) Delete(ctx context.Context) error {
	return h.file.EnsureEditor(ctx, func(s *store.Session) error {
		return s.Apply(ctx, func(snap *store.Snapshot) ([]byte, error) {
			_, node, err := h.resolveIn(snap)
			if err != nil {
				return nil, err
			}
			return h.policy.Delete(snap.Text(), node)
		})
	})
}

// Prototype renders the construct's signature filtered by flags.
func (h *Handle) Prototype(flags lang.PrototypeFlags) (string, error) {
	snap, node, err := h.resolve()
	if err != nil {
		return "", err
	}
	return h.policy.Prototype(node, snap.Model(), snap.Text(), flags)
}

// Attributes lists attribute sections of the construct. Grammars without
// attribute sections fail with lang.ErrNotImplemented, never with an empty
// result, so callers can branch on capability.
func (h *Handle) Attributes() ([]string, error) {
	snap, node, err := h.resolve()
	if err != nil {
		return nil, err
	}
	return h.policy.Attributes(node, snap.Text())
}

// singleFileWorkspace scopes a rename to the handle's own file when no
// workspace was supplied at creation.
type singleFileWorkspace struct {
	file *store.File
}

func (w singleFileWorkspace) Paths() []string {
	return []string{w.file.Path()}
}

func (w singleFileWorkspace) Rewrite(ctx context.Context, path string, fn func(src []byte) ([]byte, bool, error)) error {
	if path != w.file.Path() {
		return fmt.Errorf("document not found: %s", path)
	}
	return w.file.PerformEdit(ctx, func(snap *store.Snapshot) ([]byte, error) {
		out, changed, err := fn(snap.Text())
		if err != nil {
			return nil, err
		}
		if !changed {
			return snap.Text(), nil
		}
		return out, nil
	})
}
