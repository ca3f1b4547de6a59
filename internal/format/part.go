package format

import "fmt"

// Part selects the sub-part of a construct a position is requested for.
// Not every construct kind defines every part; asking for an absent part is
// a normal outcome, not an error.
type Part int

const (
	PartWhole Part = iota
	PartName
	PartHeader
	PartParameters
	PartBody
	PartAttributes
)

var partNames = map[Part]string{
	PartWhole:      "whole",
	PartName:       "name",
	PartHeader:     "header",
	PartParameters: "parameters",
	PartBody:       "body",
	PartAttributes: "attributes",
}

func (p Part) String() string {
	if name, ok := partNames[p]; ok {
		return name
	}
	return fmt.Sprintf("part(%d)", int(p))
}

// ParsePart maps a part name coming in over the wire to its selector.
func ParsePart(name string) (Part, error) {
	for p, n := range partNames {
		if n == name {
			return p, nil
		}
	}
	return PartWhole, fmt.Errorf("unknown part %q", name)
}
