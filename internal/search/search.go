// Package search implements Search/Info (C9): free-text search over
// the recipe tree and pretty-printing of an installed package's
// Registry record, the two read-only reporting surfaces named in the
// CLI table.
package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/fcanata061/pbuild/internal/recipe"
	"github.com/fcanata061/pbuild/internal/registry"
)

// Match is one recipe matching a search term.
type Match struct {
	Name    string
	Version string
	Path    string
}

// Search scans every recipe under loader's tree and returns those
// whose name contains term (case-insensitive), sorted by name.
func Search(loader *recipe.Loader, term string) ([]Match, error) {
	recipes, err := loader.List()
	if err != nil {
		return nil, err
	}

	term = strings.ToLower(term)
	var matches []Match
	for _, r := range recipes {
		if strings.Contains(strings.ToLower(r.Name), term) {
			matches = append(matches, Match{Name: r.Name, Version: r.Version, Path: r.Path})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return versionLess(matches[j].Version, matches[i].Version)
	})
	return matches, nil
}

// versionLess orders by semantic version when both sides parse as
// one, falling back to a plain string comparison for recipes using a
// non-semver scheme (e.g. date-based upstream releases).
func versionLess(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}

// Info renders a package's Registry metadata and manifest size as a
// human-readable report.
func Info(reg *registry.Registry, name string) (string, error) {
	meta, err := reg.GetMetadata(name)
	if err != nil {
		return "", err
	}
	files, err := reg.GetManifest(name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", meta.Name)
	fmt.Fprintf(&b, "version: %s\n", meta.Version)
	fmt.Fprintf(&b, "recipe: %s\n", meta.RecipePath)
	fmt.Fprintf(&b, "built: %s\n", meta.BuildTime.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "strip: %v\n", meta.Strip)
	fmt.Fprintf(&b, "jobs: %d\n", meta.Jobs)
	fmt.Fprintf(&b, "files: %d\n", len(files))
	return b.String(), nil
}
