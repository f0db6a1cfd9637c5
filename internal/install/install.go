// Package install implements the Installer (C5, §4.5): it extracts a
// PackageArchive onto the live filesystem and records the result in
// the Registry. The manifest is derived strictly from the archive's
// table of contents, never from a post-install filesystem scan —
// resolving the find-by-newer ambiguity noted in the original source
// (§9 Design Notes).
package install

import (
	"sort"
	"time"

	"github.com/fcanata061/pbuild/internal/archive"
	"github.com/fcanata061/pbuild/internal/buildctx"
	"github.com/fcanata061/pbuild/internal/pkgerr"
	"github.com/fcanata061/pbuild/internal/registry"
)

// Root is the live filesystem root archives are extracted onto.
// Overridable in tests.
var Root = "/"

// Install extracts archivePath onto Root and records the resulting
// manifest and metadata in reg. Ordering: the manifest write
// happens-after successful extraction; the metadata write
// happens-after the manifest write (§5 Ordering guarantees).
func Install(archivePath string, bc *buildctx.Context, reg *registry.Registry) error {
	files, err := archive.ExtractManifest(archivePath, Root)
	if err != nil {
		return pkgerr.Wrap(pkgerr.InstallFailed, bc.Recipe.Name, "extracting package archive", err)
	}

	sort.Strings(files)
	if err := reg.PutManifest(bc.Recipe.Name, files); err != nil {
		return pkgerr.Wrap(pkgerr.InstallFailed, bc.Recipe.Name, "writing manifest", err)
	}

	meta := registry.Metadata{
		Name:       bc.Recipe.Name,
		Version:    bc.Recipe.Version,
		RecipePath: bc.Recipe.Path,
		BuildTime:  time.Now(),
		Strip:      bc.StripEnabled(),
		Jobs:       bc.Jobs,
	}
	if err := reg.PutMetadata(meta); err != nil {
		return pkgerr.Wrap(pkgerr.InstallFailed, bc.Recipe.Name, "writing metadata", err)
	}
	return nil
}
