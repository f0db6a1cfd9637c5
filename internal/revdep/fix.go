package revdep

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/fcanata061/pbuild/internal/config"
	"github.com/fcanata061/pbuild/internal/log"
	"github.com/fcanata061/pbuild/internal/pipeline"
	"github.com/fcanata061/pbuild/internal/recipe"
	"github.com/fcanata061/pbuild/internal/registry"
)

// FixOutcome records what happened to one missing soname during Fix.
type FixOutcome struct {
	Soname    string
	Candidate string // owning package name, empty if none found
	Rebuilt   bool
	Err       error
}

// Fix takes a check pass's missing set and, for each soname, finds the
// package whose manifest once installed a file with that basename,
// locates its recipe by filename stem, and re-drives the build
// pipeline with a rebuild flag (§4.8). Per-candidate failure is
// non-fatal: Fix always processes every missing soname.
func Fix(ctx context.Context, cfg *config.Config, loader *recipe.Loader, reg *registry.Registry, missing []Missing) ([]FixOutcome, error) {
	outcomes := make([]FixOutcome, 0, len(missing))

	for _, m := range missing {
		outcome := FixOutcome{Soname: m.Soname}

		owner, err := findOwner(reg, m.Soname)
		if err != nil {
			outcome.Err = err
			log.Default().Warn("revdep fix: registry scan failed", "soname", m.Soname, "err", err)
			outcomes = append(outcomes, outcome)
			continue
		}
		if owner == "" {
			log.Default().Warn("revdep fix: no candidate owner found", "soname", m.Soname)
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.Candidate = owner

		r, err := loader.Get(owner)
		if err != nil {
			outcome.Err = err
			log.Default().Warn("revdep fix: no recipe for candidate", "package", owner, "err", err)
			outcomes = append(outcomes, outcome)
			continue
		}

		if _, err := pipeline.Run(ctx, cfg, r, reg, true, true); err != nil {
			outcome.Err = err
			log.Default().Warn("revdep fix: rebuild failed", "package", owner, "err", err)
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.Rebuilt = true
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// findOwner scans every manifest in reg for a file whose basename
// matches soname, returning the first match by sorted registry key
// (§4.8 tie-break). Returns "" if no manifest claims it.
func findOwner(reg *registry.Registry, soname string) (string, error) {
	var candidates []string
	err := reg.IterManifests(func(name string, files []string) error {
		for _, f := range files {
			if filepath.Base(f) == soname {
				candidates = append(candidates, name)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", nil
	}
	sort.Strings(candidates)
	return candidates[0], nil
}
