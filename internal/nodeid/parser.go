package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex matches a single identifier segment.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// ValidSegment reports whether s may be used as a stage type or step name.
func ValidSegment(s string) bool {
	return segmentRegex.MatchString(s)
}

// Parse creates a new Address by parsing its canonical `type.name` form. The
// optional `step.` prefix used in expressions is accepted.
func Parse(rawID string) (Address, error) {
	if rawID == "" {
		return Address{}, fmt.Errorf("identifier cannot be empty")
	}

	parts := strings.Split(strings.TrimPrefix(rawID, "step."), ".")
	if len(parts) != 2 {
		return Address{}, fmt.Errorf("invalid step identifier %q: expected format 'type.name'", rawID)
	}
	for _, p := range parts {
		if p == "" {
			return Address{}, fmt.Errorf("identifier %q contains an empty segment", rawID)
		}
		if !ValidSegment(p) {
			return Address{}, fmt.Errorf("invalid segment %q in identifier %q", p, rawID)
		}
	}

	return Address{StageType: parts[0], Name: parts[1]}, nil
}
