// Package registry is the on-disk store of per-package metadata and
// file manifests (C6, §4.6), consumed by the Installer, Remover, and
// Revdep Engine.
//
// Layout (§6): under $REGISTRO, one package name gets a pair of flat
// files — "{name}.META" (key=value lines) and "{name}.files"
// (newline-separated absolute paths, sorted). Writes are atomic
// (tmp-file-then-rename), adapted from the teacher's
// internal/install/state.go StateManager persistence mechanics, but
// applied to this flat-file format instead of a single JSON document.
//
// Per §5, the registry directory is shared but not locked by the
// core — a collaborator (the CLI) is responsible for serializing
// concurrent builds of the same package. Writes here are therefore
// last-writer-wins per file, by design.
package registry

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fcanata061/pbuild/internal/pkgerr"
)

// Metadata is the per-package metadata record (§3).
type Metadata struct {
	Name       string
	Version    string
	RecipePath string
	BuildTime  time.Time
	Strip      bool
	Jobs       int
}

// Registry reads and writes package records under root ($REGISTRO).
type Registry struct {
	root string
}

// New returns a Registry rooted at dir.
func New(dir string) *Registry {
	return &Registry{root: dir}
}

func (r *Registry) metaPath(name string) string  { return filepath.Join(r.root, name+".META") }
func (r *Registry) filesPath(name string) string { return filepath.Join(r.root, name+".files") }

// Has reports whether a package is currently registered (its .files
// record exists).
func (r *Registry) Has(name string) bool {
	_, err := os.Stat(r.filesPath(name))
	return err == nil
}

// PutMetadata writes the metadata record for m, atomically.
func (r *Registry) PutMetadata(m Metadata) error {
	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return pkgerr.Wrap(pkgerr.RegistryCorrupt, m.Name, "creating registry dir", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "name=%s\n", m.Name)
	fmt.Fprintf(&b, "version=%s\n", m.Version)
	fmt.Fprintf(&b, "recipe_path=%s\n", m.RecipePath)
	fmt.Fprintf(&b, "build_time=%s\n", m.BuildTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "strip=%s\n", boolString(m.Strip))
	fmt.Fprintf(&b, "jobs=%d\n", m.Jobs)
	return atomicWrite(r.metaPath(m.Name), b.String())
}

// GetMetadata reads a package's metadata record.
func (r *Registry) GetMetadata(name string) (*Metadata, error) {
	data, err := os.ReadFile(r.metaPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerr.New(pkgerr.UnknownPackage, name, "no metadata record")
		}
		return nil, pkgerr.Wrap(pkgerr.RegistryCorrupt, name, "reading metadata", err)
	}
	fields, err := parseKV(string(data))
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.RegistryCorrupt, name, "parsing metadata", err)
	}
	m := &Metadata{
		Name:       fields["name"],
		Version:    fields["version"],
		RecipePath: fields["recipe_path"],
	}
	if t, err := time.Parse(time.RFC3339, fields["build_time"]); err == nil {
		m.BuildTime = t
	}
	m.Strip = fields["strip"] == "yes"
	if j, err := strconv.Atoi(fields["jobs"]); err == nil {
		m.Jobs = j
	}
	return m, nil
}

// PutManifest writes the sorted, de-duplicated file manifest for name,
// atomically.
func (r *Registry) PutManifest(name string, files []string) error {
	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return pkgerr.Wrap(pkgerr.RegistryCorrupt, name, "creating registry dir", err)
	}
	sorted := dedupeSorted(files)
	content := strings.Join(sorted, "\n")
	if len(sorted) > 0 {
		content += "\n"
	}
	return atomicWrite(r.filesPath(name), content)
}

// GetManifest reads a package's file manifest.
func (r *Registry) GetManifest(name string) ([]string, error) {
	data, err := os.ReadFile(r.filesPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerr.New(pkgerr.UnknownPackage, name, "no manifest record")
		}
		return nil, pkgerr.Wrap(pkgerr.RegistryCorrupt, name, "reading manifest", err)
	}
	var files []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// Drop removes both records for name. Missing files are not an error.
func (r *Registry) Drop(name string) error {
	if err := os.Remove(r.metaPath(name)); err != nil && !os.IsNotExist(err) {
		return pkgerr.Wrap(pkgerr.RegistryCorrupt, name, "removing metadata", err)
	}
	if err := os.Remove(r.filesPath(name)); err != nil && !os.IsNotExist(err) {
		return pkgerr.Wrap(pkgerr.RegistryCorrupt, name, "removing manifest", err)
	}
	return nil
}

// Names lists every registered package name, in lexicographic order.
func (r *Registry) Names() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pkgerr.Wrap(pkgerr.RegistryCorrupt, "", "listing registry", err)
	}
	seen := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".files") {
			seen[strings.TrimSuffix(name, ".files")] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// IterManifests calls fn for every registered package's manifest, in
// lexicographic order by registry key — used by the Revdep Engine's
// candidate search (§4.8), which requires this exact tie-break.
func (r *Registry) IterManifests(fn func(name string, files []string) error) error {
	names, err := r.Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		files, err := r.GetManifest(name)
		if err != nil {
			continue
		}
		if err := fn(name, files); err != nil {
			return err
		}
	}
	return nil
}

func boolString(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func dedupeSorted(files []string) []string {
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[f] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func parseKV(content string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, fmt.Errorf("malformed line %q", line)
		}
		fields[line[:eq]] = line[eq+1:]
	}
	return fields, nil
}

// atomicWrite writes content to path via a temp file followed by
// rename, so a reader never observes a partial record.
func atomicWrite(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("registry: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("registry: renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}
