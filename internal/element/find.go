package element

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/emmanuel-ferdman/roslyn/internal/lang"
	"github.com/emmanuel-ferdman/roslyn/internal/store"
)

// AtPosition creates a handle for the innermost addressable construct
// enclosing a position in the file's current version.
func AtPosition(file *store.File, ws lang.Workspace, row, column uint32) (*Handle, error) {
	snap := file.Current()
	point := sitter.Point{Row: row, Column: column}

	node := snap.Root().NamedDescendantForPointRange(point, point)
	if node == nil {
		return nil, fmt.Errorf("no node at %d:%d: %w", row, column, ErrNotFound)
	}

	policy := file.Policy()
	for node != nil && policy.Kind(node, snap.Text()) == lang.KindUnknown {
		node = node.Parent()
	}
	if node == nil {
		return nil, fmt.Errorf("no addressable construct at %d:%d: %w", row, column, ErrNotFound)
	}

	return New(file, ws, node)
}

// Find creates a handle for a top-level construct by name, optionally
// narrowed by kind (pass lang.KindUnknown to match any).
func Find(file *store.File, ws lang.Workspace, name string, kind lang.Kind) (*Handle, error) {
	snap := file.Current()
	policy := file.Policy()

	var found *sitter.Node
	eachTopLevel(snap.Root(), func(node *sitter.Node) bool {
		k := policy.Kind(node, snap.Text())
		if k == lang.KindUnknown {
			return true
		}
		if kind != lang.KindUnknown && k != kind {
			return true
		}
		declared, err := policy.Name(node, snap.Text())
		if err != nil || declared != name {
			return true
		}
		found = node
		return false
	})
	if found == nil {
		return nil, fmt.Errorf("no top-level construct named %q: %w", name, ErrNotFound)
	}

	return New(file, ws, found)
}

// TopLevel creates handles for every addressable top-level construct of the
// file's current version, in source order.
func TopLevel(file *store.File, ws lang.Workspace) ([]*Handle, error) {
	snap := file.Current()
	policy := file.Policy()

	var handles []*Handle
	var firstErr error
	eachTopLevel(snap.Root(), func(node *sitter.Node) bool {
		if policy.Kind(node, snap.Text()) == lang.KindUnknown {
			return true
		}
		handle, err := New(file, ws, node)
		if err != nil {
			firstErr = err
			return false
		}
		handles = append(handles, handle)
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return handles, nil
}

// eachTopLevel visits the root's named children and, one level deeper, the
// specs grouped inside declaration nodes. fn returns false to stop.
func eachTopLevel(root *sitter.Node, fn func(*sitter.Node) bool) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if !fn(child) {
			return
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			if !fn(child.NamedChild(j)) {
				return
			}
		}
	}
}
