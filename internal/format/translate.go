package format

import (
	"unicode/utf8"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"
)

// Point is a zero-based position. Column is a visual column: tabs are
// expanded to the next multiple of Options.TabSize, multi-byte runes count
// as one column.
type Point struct {
	Row    uint32
	Column uint32
}

// StartPoint translates an already-resolved node into the start position of
// the requested part. The second return value is false when the construct
// does not define that part. The function is pure: it never resolves, never
// caches and never mutates.
func StartPoint(node *sitter.Node, src []byte, opts Options, part Part) (Point, bool) {
	target := partNode(node, part)
	if target == nil {
		return Point{}, false
	}
	return pointAt(src, target.StartByte(), target.StartPoint().Row, opts), true
}

// EndPoint is the counterpart of StartPoint for the end of the part. The
// header part ends where the body begins; a bodyless construct's header ends
// with the construct itself.
func EndPoint(node *sitter.Node, src []byte, opts Options, part Part) (Point, bool) {
	if part == PartHeader {
		if body := node.ChildByFieldName("body"); body != nil {
			return pointAt(src, body.StartByte(), body.StartPoint().Row, opts), true
		}
		return pointAt(src, node.EndByte(), node.EndPoint().Row, opts), true
	}
	target := partNode(node, part)
	if target == nil {
		return Point{}, false
	}
	return pointAt(src, target.EndByte(), target.EndPoint().Row, opts), true
}

// partNode picks the node covering the requested part, or nil when the
// grammar defines no such field on this construct.
func partNode(node *sitter.Node, part Part) *sitter.Node {
	switch part {
	case PartWhole, PartHeader:
		return node
	case PartName:
		return node.ChildByFieldName("name")
	case PartParameters:
		return node.ChildByFieldName("parameters")
	case PartBody:
		return node.ChildByFieldName("body")
	case PartAttributes:
		return node.ChildByFieldName("attributes")
	}
	return nil
}

// pointAt converts a byte offset into a visual Point by re-scanning the
// offset's line and expanding tabs.
func pointAt(src []byte, offset uint32, row uint32, opts Options) Point {
	off, err := safecast.Conv[int](offset)
	if err != nil || off > len(src) {
		off = len(src)
	}

	lineStart := 0
	for i := off - 1; i >= 0; i-- {
		if src[i] == '\n' {
			lineStart = i + 1
			break
		}
	}

	tabSize := opts.TabSize
	if tabSize == 0 {
		tabSize = DefaultOptions().TabSize
	}

	var col uint32
	for i := lineStart; i < off; {
		r, size := utf8.DecodeRune(src[i:])
		if r == '\t' {
			col += tabSize - col%tabSize
		} else {
			col++
		}
		i += size
	}

	return Point{Row: row, Column: col}
}
