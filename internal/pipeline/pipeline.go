// Package pipeline composes the Source Provisioner, Build Driver,
// Packager, Installer, and Registry into the single pure function the
// spec calls for (§9 Design Notes): (Recipe, BuildContext) -> Registry
// writes. The CLI's build command and the Revdep Engine's fix mode
// both call Run so neither needs to know the other exists.
package pipeline

import (
	"context"

	"github.com/fcanata061/pbuild/internal/build"
	"github.com/fcanata061/pbuild/internal/buildctx"
	"github.com/fcanata061/pbuild/internal/config"
	"github.com/fcanata061/pbuild/internal/install"
	"github.com/fcanata061/pbuild/internal/pkgarchive"
	"github.com/fcanata061/pbuild/internal/provision"
	"github.com/fcanata061/pbuild/internal/recipe"
	"github.com/fcanata061/pbuild/internal/registry"
)

// Result is what a successful pipeline run produced.
type Result struct {
	ArchivePath string
	Installed   bool
}

// Run drives §4.1 through §4.5 for r: provision, build, package, and
// (unless installAfterBuild is false) install onto the live root and
// record the Registry entries. rebuild forces re-extraction/rebuild
// even if a prior work tree is present (used by the Revdep Engine's
// fix mode, §4.8).
func Run(ctx context.Context, cfg *config.Config, r *recipe.Recipe, reg *registry.Registry, rebuild, installAfterBuild bool) (*Result, error) {
	bc := buildctx.New(cfg, r)
	bc.Rebuild = rebuild

	if err := provision.Provision(ctx, cfg, bc); err != nil {
		return nil, err
	}
	if err := build.Run(ctx, bc); err != nil {
		return nil, err
	}
	archivePath, err := pkgarchive.Package(cfg.PkgOut, bc)
	if err != nil {
		return nil, err
	}

	res := &Result{ArchivePath: archivePath}
	if !installAfterBuild {
		return res, nil
	}
	if err := install.Install(archivePath, bc, reg); err != nil {
		return res, err
	}
	res.Installed = true
	return res, nil
}
