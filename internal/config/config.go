// Package config gathers pbuild's environment-variable configuration
// surface into a single immutable record at process start.
//
// Source treats environment variables as ambient globals, read lazily
// wherever they're needed. Here they are read exactly once, in Load,
// and threaded explicitly into every component from then on. The one
// exception is the Build Driver, which reads MAKEFLAGS and the rest of
// the process environment itself when it composes a child command's
// environment; it does not use Config.Makeflags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Environment variable names recognized by pbuild (§6).
const (
	EnvTmpRoot   = "TMPROOT"
	EnvRepo      = "REPO"
	EnvSources   = "SOURCES"
	EnvRegistro  = "REGISTRO"
	EnvPkgOut    = "PKGOUT"
	EnvHooks     = "HOOKS"
	EnvMakeflags = "MAKEFLAGS"
	EnvJobs      = "JOBS"
	EnvStrip     = "STRIP"
	EnvPkgComp   = "PKGCOMP"
	EnvColor     = "COLOR"
)

// Color is the terminal color policy.
type Color string

const (
	ColorAuto   Color = "auto"
	ColorAlways Color = "always"
	ColorNever  Color = "never"
)

// Codec is a supported package-archive compression codec.
type Codec string

const (
	CodecXZ  Codec = "xz"
	CodecGz  Codec = "gz"
	CodecBz2 Codec = "bz2"
)

// Config is the complete, immutable configuration gathered from the
// environment at process start (§6, §9 Design Notes).
type Config struct {
	TmpRoot  string // TMPROOT: build workspace root
	Repo     string // REPO: recipe tree root
	Sources  string // SOURCES: fetched archives cache
	Registro string // REGISTRO: registry directory
	PkgOut   string // PKGOUT: output package directory
	Hooks    string // HOOKS: external hook directory

	Makeflags string // MAKEFLAGS: inherited value as seen at startup
	Jobs      int    // JOBS: resolved integer (auto -> NumCPU)
	JobsAuto  bool   // true if JOBS was "auto" or unset
	Strip     bool   // STRIP: yes/no
	PkgComp   Codec  // PKGCOMP: xz/gz/bz2
	Color     Color  // COLOR: auto/always/never
}

// defaults mirror a conventional Linux-From-Scratch layout rooted at /.
const (
	defaultTmpRoot  = "/var/tmp/pbuild"
	defaultRepo     = "/usr/pbuild/recipes"
	defaultSources  = "/var/cache/pbuild/sources"
	defaultRegistro = "/var/lib/pbuild/registry"
	defaultPkgOut   = "/var/cache/pbuild/packages"
	defaultHooks    = "/etc/pbuild/hooks"
)

// Load gathers the full configuration from the environment exactly once.
// Invalid values fall back to documented defaults with a warning printed
// to stderr, mirroring the warn-and-clamp style used elsewhere in pbuild.
func Load() (*Config, error) {
	c := &Config{
		TmpRoot:  envOrDefault(EnvTmpRoot, defaultTmpRoot),
		Repo:     envOrDefault(EnvRepo, defaultRepo),
		Sources:  envOrDefault(EnvSources, defaultSources),
		Registro: envOrDefault(EnvRegistro, defaultRegistro),
		PkgOut:   envOrDefault(EnvPkgOut, defaultPkgOut),
		Hooks:    envOrDefault(EnvHooks, defaultHooks),
		Makeflags: os.Getenv(EnvMakeflags),
	}

	for _, dir := range []*string{&c.TmpRoot, &c.Repo, &c.Sources, &c.Registro, &c.PkgOut, &c.Hooks} {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, fmt.Errorf("config: resolving path %q: %w", *dir, err)
		}
		*dir = abs
	}

	jobs, auto := parseJobs(os.Getenv(EnvJobs))
	c.Jobs = jobs
	c.JobsAuto = auto

	c.Strip = parseBool(os.Getenv(EnvStrip), true)

	c.PkgComp = parseCodec(os.Getenv(EnvPkgComp))

	c.Color = parseColor(os.Getenv(EnvColor))

	return c, nil
}

func envOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// parseJobs resolves the JOBS variable. "auto" or an unset/invalid value
// resolves to the host's online CPU count; any other value is clamped to
// a minimum of 1.
func parseJobs(raw string) (jobs int, auto bool) {
	if raw == "" || strings.EqualFold(raw, "auto") {
		return runtime.NumCPU(), true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using auto\n", EnvJobs, raw)
		return runtime.NumCPU(), true
	}
	if n < 1 {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%d), using minimum 1\n", EnvJobs, n)
		n = 1
	}
	return n, false
}

func parseBool(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return def
	case "yes", "true", "1", "on":
		return true
	case "no", "false", "0", "off":
		return false
	default:
		fmt.Fprintf(os.Stderr, "Warning: invalid boolean value %q, using default %v\n", raw, def)
		return def
	}
}

func parseCodec(raw string) Codec {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "xz":
		return CodecXZ
	case "gz", "gzip":
		return CodecGz
	case "bz2", "bzip2":
		return CodecBz2
	default:
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default xz\n", EnvPkgComp, raw)
		return CodecXZ
	}
}

func parseColor(raw string) Color {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return ColorAuto
	case "always":
		return ColorAlways
	case "never":
		return ColorNever
	default:
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default auto\n", EnvColor, raw)
		return ColorAuto
	}
}

// EnsureDirectories creates the directories pbuild needs to operate,
// mirroring the teacher config package's EnsureDirectories helper.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.TmpRoot, c.Sources, c.Registro, c.PkgOut} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating directory %s: %w", dir, err)
		}
	}
	return nil
}
