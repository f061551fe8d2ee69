// Package filters selects which images dockupdate checks by name.
// Include and exclude lists are matched against the repository path, its individual
// segments and the full image name; an excluded image is never checked, whatever
// the include list says.
//
// Usage example:
//
//	filter, desc := filters.BuildFilter([]string{"nginx"}, []string{"library"})
//	logrus.Info(desc)
//	if filter(image) {
//	    // check image
//	}
package filters

import (
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// Filter decides whether an image takes part in a run.
type Filter func(image types.CheckImage) bool

// NoFilter allows all images through.
func NoFilter(types.CheckImage) bool {
	return true
}

// Matches reports whether a filter name designates an image.
//
// A name matches the repository path ("library/nginx"), any one of its segments ("nginx"),
// the image name as listed or the registry-qualified repository ("ghcr.io/foo/bar").
//
// Parameters:
//   - name: Filter name.
//   - image: Image to test.
//
// Returns:
//   - bool: True on an exact match of any form.
func Matches(name string, image types.CheckImage) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	switch name {
	case image.Repository, image.Name, image.Registry + "/" + image.Repository:
		return true
	}

	return slices.Contains(strings.Split(image.Repository, "/"), name)
}

// matchesAny reports whether any name of the list designates the image.
func matchesAny(names []string, image types.CheckImage) bool {
	return slices.ContainsFunc(names, func(name string) bool { return Matches(name, image) })
}

// FilterByIncludeNames selects images matching one of names; an empty list selects everything.
func FilterByIncludeNames(names []string, baseFilter Filter) Filter {
	if len(names) == 0 {
		return baseFilter
	}

	return func(image types.CheckImage) bool {
		if !matchesAny(names, image) {
			logrus.WithFields(logrus.Fields{
				"image":   image.Name,
				"include": names,
			}).Debug("Image not included")

			return false
		}

		return baseFilter(image)
	}
}

// FilterByExcludeNames rejects images matching one of names.
func FilterByExcludeNames(names []string, baseFilter Filter) Filter {
	if len(names) == 0 {
		return baseFilter
	}

	return func(image types.CheckImage) bool {
		if matchesAny(names, image) {
			logrus.WithFields(logrus.Fields{
				"image":   image.Name,
				"exclude": names,
			}).Debug("Image excluded")

			return false
		}

		return baseFilter(image)
	}
}

// BuildFilter constructs the name filter of a run.
//
// Exclusion is evaluated first so an image named by both lists is excluded.
//
// Parameters:
//   - include: Names to include, all images when empty.
//   - exclude: Names to exclude.
//
// Returns:
//   - Filter: Composite filter.
//   - string: Human-readable description for the startup message.
func BuildFilter(include, exclude []string) (Filter, string) {
	include = nonEmpty(include)
	exclude = nonEmpty(exclude)

	filter := FilterByExcludeNames(exclude, FilterByIncludeNames(include, NoFilter))

	var parts []string

	if len(include) > 0 {
		parts = append(parts, `named "`+strings.Join(include, `" or "`)+`"`)
	}

	if len(exclude) > 0 {
		parts = append(parts, `not named "`+strings.Join(exclude, `" or "`)+`"`)
	}

	desc := "Checking all images"
	if len(parts) > 0 {
		desc = "Checking images " + strings.Join(parts, ", ")
	}

	logrus.WithFields(logrus.Fields{
		"include": include,
		"exclude": exclude,
	}).Debug("Built image filter")

	return filter, desc
}

// nonEmpty drops blank names and splits comma-separated entries.
func nonEmpty(names []string) []string {
	var result []string

	for _, entry := range names {
		for name := range strings.SplitSeq(entry, ",") {
			if name = strings.TrimSpace(name); name != "" {
				result = append(result, name)
			}
		}
	}

	return result
}
