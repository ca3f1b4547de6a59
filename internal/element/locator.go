package element

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/vmihailenco/msgpack/v5"
)

// Step identifies one named child along the path from the tree root: the
// node type, the declared name when the grammar exposes one, and the
// ordinal among same-type same-name siblings. Steps never carry byte
// offsets, so unrelated edits elsewhere in the document do not shift them.
type Step struct {
	Type  string `msgpack:"t"`
	Name  string `msgpack:"n"`
	Index int    `msgpack:"i"`
}

// Locator is the capture-time strategy for re-finding "the same" node in
// any later document version. Resolution is a pure function of (snapshot,
// locator); nothing is cached between calls.
type Locator struct {
	steps []Step
}

// Capture records the structural path of a node. The node must come from
// the tree it is captured against; the locator is then valid against every
// later version of the document.
func Capture(node *sitter.Node, src []byte) Locator {
	var steps []Step
	for n := node; n.Parent() != nil; n = n.Parent() {
		steps = append(steps, Step{
			Type:  n.Type(),
			Name:  declaredName(n, src),
			Index: siblingOrdinal(n, src),
		})
	}

	// steps were collected leaf-first; resolution walks root-first.
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return Locator{steps: steps}
}

// Resolve walks the locator down from a tree root. It returns nil when any
// step no longer matches; the caller decides whether that is an error.
func (l Locator) Resolve(root *sitter.Node, src []byte) *sitter.Node {
	current := root
	for _, step := range l.steps {
		current = matchChild(current, src, step)
		if current == nil {
			return nil
		}
	}
	return current
}

// Empty reports whether the locator carries no path, i.e. it was captured
// from the tree root itself.
func (l Locator) Empty() bool { return len(l.steps) == 0 }

// repairAfterRename re-captures the locator after the handle itself renamed
// the construct. Renames never reorder siblings, so the construct is
// re-found by its position among the parent's named children in the
// rewritten tree. Patching the leaf name alone is not enough: the new name
// can collide with an earlier same-type sibling, and a name-patched locator
// would resolve to that sibling instead.
func (l *Locator) repairAfterRename(root *sitter.Node, src []byte, position int) bool {
	if len(l.steps) == 0 {
		return true
	}
	if position < 0 {
		return false
	}
	parent := Locator{steps: l.steps[:len(l.steps)-1]}.Resolve(root, src)
	if parent == nil || position >= int(parent.NamedChildCount()) {
		return false
	}
	node := parent.NamedChild(position)
	if node.Type() != l.steps[len(l.steps)-1].Type {
		return false
	}
	*l = Capture(node, src)
	return true
}

// namedChildPosition returns the node's index among its parent's named
// children, -1 for the root. The position is stable under renames.
func namedChildPosition(node *sitter.Node) int {
	parent := node.Parent()
	if parent == nil {
		return -1
	}
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		if parent.NamedChild(i).Equal(node) {
			return i
		}
	}
	return -1
}

// MarshalBinary encodes the locator for persistence.
func (l Locator) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal(l.steps)
}

// UnmarshalBinary decodes a locator persisted with MarshalBinary.
func (l *Locator) UnmarshalBinary(data []byte) error {
	return msgpack.Unmarshal(data, &l.steps)
}

// declaredName extracts the grammar-level name field, "" when the node has
// none.
func declaredName(node *sitter.Node, src []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return name.Content(src)
	}
	return ""
}

// siblingOrdinal counts earlier named siblings with the same type and name.
func siblingOrdinal(node *sitter.Node, src []byte) int {
	parent := node.Parent()
	if parent == nil {
		return 0
	}
	ordinal := 0
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		sibling := parent.NamedChild(i)
		if sibling.Equal(node) {
			break
		}
		if sibling.Type() == node.Type() && declaredName(sibling, src) == declaredName(node, src) {
			ordinal++
		}
	}
	return ordinal
}

func matchChild(parent *sitter.Node, src []byte, step Step) *sitter.Node {
	seen := 0
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		child := parent.NamedChild(i)
		if child.Type() != step.Type || declaredName(child, src) != step.Name {
			continue
		}
		if seen == step.Index {
			return child
		}
		seen++
	}
	return nil
}
