// Package remove implements the Remover (C7, §4.7): it reverses the
// effect of the Installer by deleting every file in a package's
// manifest, pruning directories left empty, and dropping the
// package's Registry records.
package remove

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fcanata061/pbuild/internal/hook"
	"github.com/fcanata061/pbuild/internal/log"
	"github.com/fcanata061/pbuild/internal/pkgerr"
	"github.com/fcanata061/pbuild/internal/registry"
)

// Root is the live filesystem root files are removed from. Overridable
// in tests.
var Root = "/"

// Result reports what Remove actually did, so callers can surface a
// partial-failure summary without aborting (§4.7: "a partial remove is
// better than a stuck system").
type Result struct {
	Removed []string
	Missing []string
	Failed  map[string]error
}

// Remove deletes name's installed files, prunes emptied directories,
// drops its Registry records, and notifies sink.
func Remove(name string, reg *registry.Registry, sink hook.Sink) (*Result, error) {
	manifest, err := reg.GetManifest(name)
	if err != nil {
		return nil, err
	}

	res := &Result{Failed: map[string]error{}}
	dirs := map[string]struct{}{}

	for _, rel := range manifest {
		full := filepath.Join(Root, rel)
		info, err := os.Lstat(full)
		if err != nil {
			if os.IsNotExist(err) {
				res.Missing = append(res.Missing, rel)
				continue
			}
			res.Failed[rel] = err
			log.Default().Warn("remove: stat failed", "path", full, "err", err)
			continue
		}
		if info.IsDir() {
			continue
		}
		if err := os.Remove(full); err != nil {
			res.Failed[rel] = err
			log.Default().Warn("remove: delete failed", "path", full, "err", err)
			continue
		}
		res.Removed = append(res.Removed, rel)
		dirs[filepath.Dir(full)] = struct{}{}
	}

	pruneDirectories(dirs)

	if err := reg.Drop(name); err != nil {
		return res, pkgerr.Wrap(pkgerr.RegistryCorrupt, name, "dropping registry records", err)
	}

	if sink != nil {
		sink.Removed(hook.RemovedEvent{Name: name})
	}
	return res, nil
}

// pruneDirectories removes each directory in dirs that is empty,
// processing deepest paths first so a child's removal can empty its
// parent within the same pass (§4.7 step 2).
func pruneDirectories(dirs map[string]struct{}) {
	ordered := make([]string, 0, len(dirs))
	for d := range dirs {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return depth(ordered[i]) > depth(ordered[j])
	})
	for _, d := range ordered {
		os.Remove(d)
	}
}

func depth(path string) int {
	return strings.Count(filepath.Clean(path), string(filepath.Separator))
}

// Describe renders a human-readable summary of a Result.
func Describe(res *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "removed %d file(s)", len(res.Removed))
	if len(res.Missing) > 0 {
		fmt.Fprintf(&b, ", %d already missing", len(res.Missing))
	}
	if len(res.Failed) > 0 {
		fmt.Fprintf(&b, ", %d failed", len(res.Failed))
	}
	return b.String()
}
