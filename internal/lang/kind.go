package lang

import "fmt"

// Kind is the closed category of a source construct. It is fixed on a handle
// at creation time and re-checked on every resolution: a locator that lands
// on a node of a different kind means the position now denotes something
// else, and the handle is stale.
type Kind int

const (
	KindUnknown Kind = iota
	KindFunction
	KindMethod
	KindType
	KindStruct
	KindInterface
	KindField
	KindVariable
	KindConstant
)

var kindNames = map[Kind]string{
	KindUnknown:   "unknown",
	KindFunction:  "function",
	KindMethod:    "method",
	KindType:      "type",
	KindStruct:    "struct",
	KindInterface: "interface",
	KindField:     "field",
	KindVariable:  "variable",
	KindConstant:  "constant",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name coming in over the wire to its tag.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown kind %q", name)
}
