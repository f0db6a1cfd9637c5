// Package revdep implements the Revdep Engine (C8, §4.8): a check mode
// that walks the live filesystem for ELF binaries with unresolved
// shared-library dependencies, and a fix mode that maps each missing
// soname back to an owning package and rebuilds it.
//
// ELF parsing is grounded on the teacher's internal/verify package
// (binary format detection, RPATH extraction); this package adds its
// own lightweight DT_NEEDED walk since verify only extracts RPATH
// entries and revdep must scan both executables and shared objects.
package revdep

import (
	"debug/elf"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fcanata061/pbuild/internal/log"
	"github.com/fcanata061/pbuild/internal/verify"
)

// virtualFilesystems are skipped during the live-root walk (§4.8:
// "skipping virtual filesystems").
var virtualFilesystems = map[string]bool{
	"/proc": true,
	"/sys":  true,
	"/dev":  true,
	"/run":  true,
}

// Missing is one soname that failed to resolve, and the set of files
// that reference it.
type Missing struct {
	Soname string
	UsedBy []string
}

// CheckResult is the deduplicated output of a check pass (§4.8).
type CheckResult struct {
	Missing []Missing
}

// searchPath is the set of directories the dynamic linker conventionally
// resolves bare sonames against, consulted when a dependency has no
// usable RPATH entry.
var searchPath = []string{"/lib", "/lib64", "/usr/lib", "/usr/lib64", "/usr/local/lib"}

// ScratchFileName is the name of the scratch file a check pass writes
// its result to, under the caller-supplied scratch directory (§4.8:
// "this set is persisted to a scratch file").
const ScratchFileName = "revdep-check.json"

// Check walks root (bounded to a single device) looking for ELF files
// and records any DT_NEEDED soname that cannot be resolved against the
// binary's RPATH/RUNPATH or the conventional system library
// directories. If scratchDir is non-empty, the result is also written
// to scratchDir/revdep-check.json so a later fix pass (or another
// process) can pick it up without re-walking the filesystem.
func Check(root, scratchDir string) (*CheckResult, error) {
	rootDev, err := deviceID(root)
	if err != nil {
		return nil, err
	}

	missing := map[string]map[string]struct{}{}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if virtualFilesystems[path] {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Mode()&os.ModeSymlink != 0 || !info.Mode().IsRegular() {
			return nil
		}
		dev, err := deviceID(path)
		if err != nil || dev != rootDev {
			return nil
		}

		needed, ok := elfNeeded(path)
		if !ok {
			return nil
		}
		rpaths, _ := verify.ExtractRpaths(path)

		for _, soname := range needed {
			if resolveSoname(soname, path, rpaths) {
				continue
			}
			if missing[soname] == nil {
				missing[soname] = map[string]struct{}{}
			}
			missing[soname][path] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CheckResult{}
	sonames := make([]string, 0, len(missing))
	for s := range missing {
		sonames = append(sonames, s)
	}
	sort.Strings(sonames)
	for _, s := range sonames {
		users := make([]string, 0, len(missing[s]))
		for u := range missing[s] {
			users = append(users, u)
		}
		sort.Strings(users)
		result.Missing = append(result.Missing, Missing{Soname: s, UsedBy: users})
	}

	log.Default().Info("revdep check complete", "missing_sonames", len(result.Missing))

	if scratchDir != "" {
		if err := writeScratch(scratchDir, result); err != nil {
			log.Default().Warn("revdep check: writing scratch file failed", "err", err)
		}
	}

	return result, nil
}

// writeScratch persists result as JSON under dir, creating dir if needed.
func writeScratch(dir string, result *CheckResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ScratchFileName), b, 0o644)
}

// ReadScratch loads a previously persisted check result from dir.
func ReadScratch(dir string) (*CheckResult, error) {
	b, err := os.ReadFile(filepath.Join(dir, ScratchFileName))
	if err != nil {
		return nil, err
	}
	var result CheckResult
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// elfNeeded returns a file's DT_NEEDED entries. ok is false when the
// file is not a valid ELF.
func elfNeeded(path string) (needed []string, ok bool) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	libs, err := f.ImportedLibraries()
	if err != nil {
		return nil, true
	}
	return libs, true
}

// resolveSoname reports whether soname can be found via the binary's
// RPATH entries or the conventional system library directories.
func resolveSoname(soname, binaryPath string, rpaths []string) bool {
	if strings.Contains(soname, "/") {
		_, err := os.Stat(soname)
		return err == nil
	}
	for _, rp := range rpaths {
		if fileExists(filepath.Join(rp, soname)) {
			return true
		}
	}
	for _, dir := range searchPath {
		if fileExists(filepath.Join(dir, soname)) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
