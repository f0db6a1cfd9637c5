// Package buildctx defines the per-invocation BuildContext threaded
// through the Source Provisioner, Build Driver and Packager (§3).
package buildctx

import (
	"path/filepath"
	"time"

	"github.com/fcanata061/pbuild/internal/config"
	"github.com/fcanata061/pbuild/internal/recipe"
)

// Context bundles everything one build invocation needs that isn't
// already in the Recipe itself: the work areas derived from Config,
// the resolved job count, the chosen compression codec, the
// per-invocation log file, and the pre-install timestamp anchor
// recorded just before install_cmd runs (§4.3).
type Context struct {
	Recipe *recipe.Recipe

	WorkRoot   string // {TMPROOT}/{name}-{version}
	SourceDir  string // {WorkRoot}/src/{recipe.SourceDir}
	StageRoot  string // {WorkRoot}/stage
	LogFile    string // {WorkRoot}/build.log

	Jobs  int
	Codec config.Codec
	Strip bool

	// PreInstallTS anchors the stage before install_cmd runs; retained
	// for parity with tools that want to report elapsed install time.
	// The manifest itself is derived from the archive table of contents
	// (§9 Design Notes), not from this timestamp.
	PreInstallTS time.Time

	// Rebuild forces re-extraction/re-build even if a prior extracted
	// tree is present (§4.2: "re-extraction can be skipped unless a
	// rebuild flag is set"). The Revdep Engine's fix mode sets this.
	Rebuild bool
}

// New derives a Context for building r under the given configuration.
func New(cfg *config.Config, r *recipe.Recipe) *Context {
	workRoot := filepath.Join(cfg.TmpRoot, r.Name+"-"+r.Version)
	jobs := cfg.Jobs // JobsAuto is already resolved to NumCPU by config.Load
	return &Context{
		Recipe:    r,
		WorkRoot:  workRoot,
		SourceDir: filepath.Join(workRoot, "src", r.SourceDir),
		StageRoot: filepath.Join(workRoot, "stage"),
		LogFile:   filepath.Join(workRoot, "build.log"),
		Jobs:      jobs,
		Codec:     cfg.PkgComp,
		Strip:     cfg.Strip,
	}
}

// StripEnabled reports whether the post-install strip pass should run.
func (c *Context) StripEnabled() bool {
	return c.Strip
}

// BuildDir returns the directory configure/build/install actually run
// in, honoring build_subdir for out-of-tree build systems (§3).
func (c *Context) BuildDir() string {
	if c.Recipe.BuildSubdir == "" {
		return c.SourceDir
	}
	return filepath.Join(c.SourceDir, c.Recipe.BuildSubdir)
}
