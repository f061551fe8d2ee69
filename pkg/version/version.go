// Package version selects newer image tags that keep the shape of a reference tag in dockupdate.
// A reference such as "v1.2.3-4" yields a pattern accepting only tags with the same prefix,
// the same number of dotted groups and the same kind of suffix; among those the highest
// (major, minor, build, revision) tuple wins.
package version

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Tuple is the comparable form of a version tag.
type Tuple struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// Less reports whether t orders before other.
func (t Tuple) Less(other Tuple) bool {
	switch {
	case t.Major != other.Major:
		return t.Major < other.Major
	case t.Minor != other.Minor:
		return t.Minor < other.Minor
	case t.Build != other.Build:
		return t.Build < other.Build
	}

	return t.Revision < other.Revision
}

// components holds a tag split into its prefix, dotted core and suffix.
type components struct {
	prefixed  bool
	core      []string
	suffix    string
	hasSuffix bool
}

// split breaks a tag into an optional v prefix, the dotted core and the text after the first hyphen.
func split(tag string) components {
	var parts components

	if len(tag) > 0 && (tag[0] == 'v' || tag[0] == 'V') {
		parts.prefixed = true
		tag = tag[1:]
	}

	core, suffix, found := strings.Cut(tag, "-")
	parts.core = strings.Split(core, ".")
	parts.suffix = suffix
	parts.hasSuffix = found

	return parts
}

// isNumeric reports whether s is a non-empty run of ASCII digits.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// GeneratePattern builds the structural pattern of a reference tag.
//
// The pattern is anchored and case-insensitive. Numeric dotted groups become \d+ and
// other groups are matched literally. A numeric suffix becomes \d+ while any other
// suffix is matched literally. The pattern always matches ref itself.
//
// Parameters:
//   - ref: Reference tag, e.g. "v1.2.3" or "2.4-alpine".
//
// Returns:
//   - *regexp.Regexp: Compiled pattern.
func GeneratePattern(ref string) *regexp.Regexp {
	parts := split(ref)

	var builder strings.Builder

	builder.WriteString("(?i)^")

	if parts.prefixed {
		builder.WriteString("v")
	}

	for i, group := range parts.core {
		if i > 0 {
			builder.WriteString(`\.`)
		}

		if isNumeric(group) {
			builder.WriteString(`\d+`)
		} else {
			builder.WriteString(regexp.QuoteMeta(group))
		}
	}

	if parts.hasSuffix {
		builder.WriteString("-")

		if isNumeric(parts.suffix) {
			builder.WriteString(`\d+`)
		} else {
			builder.WriteString(regexp.QuoteMeta(parts.suffix))
		}
	}

	builder.WriteString("$")

	return regexp.MustCompile(builder.String())
}

// Parse converts a tag into its version tuple.
//
// Missing or non-numeric components are zero; the revision comes from a numeric suffix.
func Parse(tag string) Tuple {
	parts := split(tag)
	values := [3]int{}

	for i := 0; i < len(values) && i < len(parts.core); i++ {
		values[i] = atoi(parts.core[i])
	}

	return Tuple{
		Major:    values[0],
		Minor:    values[1],
		Build:    values[2],
		Revision: atoi(parts.suffix),
	}
}

func atoi(s string) int {
	value, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return value
}

// FindLatestMatchingVersion returns the greatest candidate sharing the structure of ref.
//
// Parameters:
//   - ref: Current tag.
//   - candidates: Tags available in the registry, in registry order.
//
// Returns:
//   - string: ref if no candidate matches, the only match if there is one, otherwise the
//     match with the greatest tuple. Equal tuples resolve to the earliest candidate.
func FindLatestMatchingVersion(ref string, candidates []string) string {
	pattern := GeneratePattern(ref)

	var (
		best      string
		bestTuple Tuple
		matches   int
	)

	for _, candidate := range candidates {
		if !pattern.MatchString(candidate) {
			continue
		}

		tuple := Parse(candidate)
		if matches == 0 || bestTuple.Less(tuple) {
			best, bestTuple = candidate, tuple
		}

		matches++
	}

	logrus.WithFields(logrus.Fields{
		"reference": ref,
		"pattern":   pattern.String(),
		"matches":   matches,
		"selected":  best,
	}).Debug("Matched version candidates")

	if matches == 0 {
		return ref
	}

	return best
}
