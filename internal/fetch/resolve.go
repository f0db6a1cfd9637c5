package fetch

import (
	"context"
	"path/filepath"

	"github.com/fcanata061/pbuild/internal/recipe"
)

// ArchivePath resolves the on-disk location of the archive for r under
// the sources cache (§4.2 step 1: "{sources_cache}/{basename(source_url)}").
func ArchivePath(sourcesCache string, r *recipe.Recipe) string {
	return filepath.Join(sourcesCache, filepath.Base(r.SourceURL))
}

// ForRecipe returns the Fetcher appropriate for r's vcs field.
func ForRecipe(r *recipe.Recipe) Fetcher {
	if r.VCS == recipe.VCSGit {
		return &GitFetcher{Branch: r.VCSBranch}
	}
	return NewHTTPFetcher()
}

// Ensure fetches the archive for r into the sources cache if it isn't
// already present, implementing §4.2 steps 1-2.
func Ensure(ctx context.Context, sourcesCache string, r *recipe.Recipe, existsFn func(string) bool) (string, error) {
	path := ArchivePath(sourcesCache, r)
	if existsFn != nil && existsFn(path) {
		return path, nil
	}
	f := ForRecipe(r)
	if err := f.Fetch(ctx, r.SourceURL, path); err != nil {
		return "", err
	}
	return path, nil
}
