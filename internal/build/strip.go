package build

import (
	"debug/elf"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fcanata061/pbuild/internal/buildctx"
	"github.com/fcanata061/pbuild/internal/log"
)

// maybeStrip implements §4.3's post-stage strip pass: walk the stage
// root and for each regular file that is either executable or matches a
// shared-object name pattern, test whether it is ELF and, if so, strip
// unneeded symbols. Per-file failures are non-fatal warnings.
func maybeStrip(bc *buildctx.Context, logger log.Logger) error {
	if !bc.StripEnabled() {
		return nil
	}

	return filepath.Walk(bc.StageRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !looksStrippable(info, path) {
			return nil
		}
		if !isELF(path) {
			return nil
		}
		cmd := exec.Command("strip", "--strip-unneeded", path)
		if out, runErr := cmd.CombinedOutput(); runErr != nil {
			logger.Warn("strip failed", "file", path, "err", runErr, "output", string(out))
		}
		return nil
	})
}

func looksStrippable(info os.FileInfo, path string) bool {
	if info.Mode()&0o111 != 0 {
		return true
	}
	base := filepath.Base(path)
	return strings.Contains(base, ".so")
}

// isELF reports whether path is an ELF object, via debug/elf as the
// teacher's internal/verify/header.go does for its format detection.
func isELF(path string) bool {
	f, err := elf.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
