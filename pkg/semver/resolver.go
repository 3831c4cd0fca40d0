package semver

import (
	"fmt"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const resolverLogPrefix = "semver:resolver"

// Constraint is a parsed version range such as "^1.2.0", "~1.2", ">=1.0.0 <2.0.0"
// or a bare major ("1", meaning any 1.x.y).
type Constraint struct {
	raw         string
	constraints *masterminds.Constraints
}

// ParseConstraint parses a version range.
func ParseConstraint(input string) (*Constraint, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return nil, fmt.Errorf("%s - empty constraint", resolverLogPrefix)
	}
	expr := raw
	if IsMajorOnly(raw) {
		expr = raw + ".x"
	}
	c, err := masterminds.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid constraint %q: %w", resolverLogPrefix, raw, err)
	}
	return &Constraint{raw: raw, constraints: c}, nil
}

// Allows reports whether version satisfies the constraint. An unparseable or
// empty version never satisfies it.
func (c *Constraint) Allows(version string) bool {
	v, err := ParseVersion(version)
	if err != nil {
		return false
	}
	return c.constraints.Check(v)
}

func (c *Constraint) String() string {
	return c.raw
}
