// Package semver validates service versions and matches them against client-side constraints.
package semver

import (
	"fmt"
	"regexp"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:parser"

var majorOnlyRegex = regexp.MustCompile(`^\d+$`)

// ParseVersion parses a service version string (e.g. "1.2.0", "2.0.0-beta.1").
func ParseVersion(input string) (*masterminds.Version, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return nil, fmt.Errorf("%s - empty version", logPrefix)
	}
	v, err := masterminds.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid version %q: %w", logPrefix, raw, err)
	}
	return v, nil
}

// ValidateVersion reports whether input is an acceptable service version.
func ValidateVersion(input string) error {
	_, err := ParseVersion(input)
	return err
}

// IsMajorOnly checks if a range is a major-only specifier (e.g., "3").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}
