// Package pkgarchive implements the Packager (C4, §4.4): deterministic
// archiving of the stage root into a compressed tarball at
// {pkgout}/{name}-{version}.tar.{codec}.
package pkgarchive

import (
	"fmt"
	"path/filepath"

	"github.com/fcanata061/pbuild/internal/archive"
	"github.com/fcanata061/pbuild/internal/buildctx"
)

// Path returns the output archive path for bc, per §3's PackageArchive
// convention.
func Path(pkgOut string, bc *buildctx.Context) string {
	name := fmt.Sprintf("%s-%s.tar.%s", bc.Recipe.Name, bc.Recipe.Version, bc.Codec)
	return filepath.Join(pkgOut, name)
}

// Package archives bc.StageRoot into the output package directory,
// returning the archive path.
func Package(pkgOut string, bc *buildctx.Context) (string, error) {
	out := Path(pkgOut, bc)
	if err := archive.Compress(bc.StageRoot, out, bc.Codec); err != nil {
		return "", err
	}
	return out, nil
}
