// Package provision implements the Source Provisioner (C2, §4.2):
// fetch, verify, extract, and patch a recipe's source into a work tree.
package provision

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/fcanata061/pbuild/internal/archive"
	"github.com/fcanata061/pbuild/internal/buildctx"
	"github.com/fcanata061/pbuild/internal/checksum"
	"github.com/fcanata061/pbuild/internal/config"
	"github.com/fcanata061/pbuild/internal/fetch"
	"github.com/fcanata061/pbuild/internal/log"
	"github.com/fcanata061/pbuild/internal/pkgerr"
)

// Provision runs §4.2 steps 1-6 against the given BuildContext, leaving
// a ready-to-build source tree at bc.SourceDir.
func Provision(ctx context.Context, cfg *config.Config, bc *buildctx.Context) error {
	r := bc.Recipe
	logger := log.Default().With("recipe", r.Name)

	archivePath := fetch.ArchivePath(cfg.Sources, r)

	if !fileExists(archivePath) {
		logger.Info("fetching source", "url", r.SourceURL, "dest", archivePath)
		f := fetch.ForRecipe(r)
		if err := f.Fetch(ctx, r.SourceURL, archivePath); err != nil {
			return err
		}
	} else {
		logger.Debug("using cached archive", "path", archivePath)
	}

	if err := checksum.Verify(archivePath, r.Checksum); err != nil {
		return err
	}

	extractedMarker := filepath.Join(bc.SourceDir, ".pbuild-extracted")
	needExtract := bc.Rebuild || !fileExists(extractedMarker)
	if needExtract {
		logger.Info("extracting source", "archive", archivePath, "dest", bc.SourceDir)
		if err := os.RemoveAll(bc.SourceDir); err != nil {
			return fmt.Errorf("provision: clearing stale source dir: %w", err)
		}
		parent := filepath.Dir(bc.SourceDir)
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("provision: creating work tree: %w", err)
		}
		tmp := parent + "/.extract-tmp"
		if err := os.RemoveAll(tmp); err != nil {
			return err
		}
		if err := archive.Extract(archivePath, tmp); err != nil {
			return err
		}
		if err := relocateSingleChild(tmp, bc.SourceDir); err != nil {
			return err
		}
		if err := os.WriteFile(extractedMarker, []byte{}, 0o644); err != nil {
			return fmt.Errorf("provision: writing extraction marker: %w", err)
		}

		if err := applyPatches(ctx, cfg, bc, logger); err != nil {
			return err
		}
	} else {
		logger.Debug("reusing previously extracted source tree", "dir", bc.SourceDir)
	}

	return nil
}

// relocateSingleChild moves the extracted tree's top-level entries so
// that dest ends up equal to bc.SourceDir, regardless of whether the
// archive contained a single top directory (the common case) or files
// directly at its root.
func relocateSingleChild(extractedRoot, dest string) error {
	entries, err := os.ReadDir(extractedRoot)
	if err != nil {
		return fmt.Errorf("provision: reading extracted tree: %w", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		src := filepath.Join(extractedRoot, entries[0].Name())
		if err := os.Rename(src, dest); err != nil {
			return fmt.Errorf("provision: relocating extracted source: %w", err)
		}
		return os.RemoveAll(extractedRoot)
	}
	return os.Rename(extractedRoot, dest)
}

// applyPatches implements §4.2 step 6: apply patches in recipe order,
// located by name in the sources cache, with -p1 against the source top.
func applyPatches(ctx context.Context, cfg *config.Config, bc *buildctx.Context, logger log.Logger) error {
	for _, patch := range bc.Recipe.Patches {
		patchPath := filepath.Join(cfg.Sources, patch)
		logger.Info("applying patch", "patch", patchPath)

		cmd := exec.CommandContext(ctx, "patch", "-p1", "-i", patchPath)
		cmd.Dir = bc.SourceDir
		out, err := cmd.CombinedOutput()
		if err != nil {
			return pkgerr.Wrap(pkgerr.PatchFailed, patch, string(out), err)
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
