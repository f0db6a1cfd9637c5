// Package recipe reads and validates the declarative package descriptions
// pbuild builds from (§3, §4.1).
//
// Recipes use a flat, line-oriented key=[value] syntax deliberately unlike
// the teacher's TOML-based format: every value is wrapped in square
// brackets so that a naive line scanner, not a structured parser, is
// sufficient and so multi-line shell snippets can still be recognized as
// a single value by the caller when needed.
package recipe

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fcanata061/pbuild/internal/pkgerr"
)

// VCS identifies how source_url should be fetched.
type VCS string

const (
	VCSHTTP VCS = "http"
	VCSGit  VCS = "git"
)

// Recipe is the immutable, validated record produced by Parse (§3).
type Recipe struct {
	Name    string
	Version string

	SourceURL string
	Checksum  string

	BuildCmd   string
	CheckCmd   string
	InstallCmd string

	SourceDir string
	Patches   []string

	VCS       VCS
	VCSBranch string

	ExtraMakeFlags string
	BuildSubdir    string
	Toolchain      bool

	// Path is the filesystem location the recipe was loaded from.
	// Not part of the parsed record itself; used only for diagnostics
	// and for the Revdep Engine's recipe-tree lookup by filename stem.
	Path string
}

var nameRE = regexp.MustCompile(`^[A-Za-z0-9._+-]+$`)

// ParseFile parses a recipe from raw file content. path is the recipe's
// file location, recorded on the result and used in error messages.
func ParseFile(path string, data []byte) (*Recipe, error) {
	fields, err := parseFields(string(data))
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.InvalidRecipe, path, "malformed recipe syntax", err)
	}

	r := &Recipe{
		Name:           fields["name"],
		Version:        fields["version"],
		SourceURL:      fields["source_url"],
		Checksum:       fields["checksum"],
		BuildCmd:       fields["build_cmd"],
		CheckCmd:       fields["check_cmd"],
		InstallCmd:     fields["install_cmd"],
		SourceDir:      fields["source_dir"],
		VCSBranch:      fields["vcs_branch"],
		ExtraMakeFlags: fields["extra_make_flags"],
		BuildSubdir:    fields["build_subdir"],
		Path:           path,
	}

	if raw, ok := fields["patches"]; ok && raw != "" {
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				r.Patches = append(r.Patches, p)
			}
		}
	}

	r.Toolchain = truthy(fields["toolchain"])

	if v, ok := fields["vcs"]; ok && v != "" {
		r.VCS = VCS(v)
	} else {
		r.VCS = inferVCS(r.SourceURL)
	}

	if r.SourceDir == "" && r.VCS != VCSGit {
		r.SourceDir = deduceSourceDir(r)
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "on":
		return true
	default:
		return false
	}
}

func inferVCS(url string) VCS {
	if strings.HasPrefix(url, "git://") || strings.HasSuffix(url, ".git") {
		return VCSGit
	}
	return VCSHTTP
}

// deduceSourceDir implements §4.2 step 5: basename of the URL with the
// outermost two extensions stripped (e.g. "hello-1.0.tar.xz" -> "hello-1.0").
func deduceSourceDir(r *Recipe) string {
	base := r.SourceURL
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	for i := 0; i < 2; i++ {
		if idx := strings.LastIndex(base, "."); idx > 0 {
			base = base[:idx]
		}
	}
	return base
}

// validate enforces the required fields in §3 and the Design Notes'
// resolution of the git source_dir ambiguity (§9): vcs=git recipes must
// set source_dir explicitly, since the tarball-basename deduction in
// deduceSourceDir is not applied to git URLs.
func (r *Recipe) validate() error {
	if r.Name == "" || !nameRE.MatchString(r.Name) {
		return pkgerr.New(pkgerr.InvalidRecipe, r.Path, "name is required and must match [A-Za-z0-9._+-]+")
	}
	if r.Version == "" {
		return pkgerr.New(pkgerr.InvalidRecipe, r.Path, "version is required")
	}
	if r.SourceURL == "" {
		return pkgerr.New(pkgerr.InvalidRecipe, r.Path, "source_url is required")
	}
	if r.InstallCmd == "" {
		return pkgerr.New(pkgerr.InvalidRecipe, r.Path, "install_cmd is required")
	}
	if r.VCS != VCSHTTP && r.VCS != VCSGit {
		return pkgerr.New(pkgerr.InvalidRecipe, r.Path, fmt.Sprintf("vcs must be http or git, got %q", r.VCS))
	}
	if r.VCS == VCSGit && r.SourceDir == "" {
		return pkgerr.New(pkgerr.InvalidRecipe, r.Path, "source_dir is required when vcs=git")
	}
	return nil
}

// parseFields implements the line-oriented key=[value] syntax: blank
// lines and lines starting with '#' are ignored; every other line must
// be "key=[value]" with value wrapped in a single pair of brackets.
// Unknown keys are collected but never rejected (invariant 2,
// unknown-key tolerance).
func parseFields(content string) (map[string]string, error) {
	fields := make(map[string]string)
	for lineNo, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		eq := strings.Index(trimmed, "=")
		if eq < 0 {
			return nil, fmt.Errorf("line %d: missing '='", lineNo+1)
		}
		key := strings.TrimSpace(trimmed[:eq])
		valPart := strings.TrimSpace(trimmed[eq+1:])
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNo+1)
		}
		if !strings.HasPrefix(valPart, "[") || !strings.HasSuffix(valPart, "]") {
			return nil, fmt.Errorf("line %d: value for %q must be wrapped in [ ]", lineNo+1, key)
		}
		fields[key] = valPart[1 : len(valPart)-1]
	}
	return fields, nil
}
