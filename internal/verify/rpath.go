package verify

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Magic numbers for binary format detection.
var (
	elfMagic   = []byte{0x7f, 'E', 'L', 'F'}
	machO32    = []byte{0xfe, 0xed, 0xfa, 0xce}
	machO64    = []byte{0xfe, 0xed, 0xfa, 0xcf}
	machO32Rev = []byte{0xce, 0xfa, 0xed, 0xfe}
	machO64Rev = []byte{0xcf, 0xfa, 0xed, 0xfe}
	fatMagic   = []byte{0xca, 0xfe, 0xba, 0xbe}
)

// Security limits for RPATH processing.
const (
	// MaxRpathEntries is the maximum number of RPATH entries allowed per binary.
	MaxRpathEntries = 100

	// MaxPathLength is the maximum length of any path (matches Linux PATH_MAX).
	MaxPathLength = 4096
)

// LC_RPATH is the Mach-O load command for runtime search paths.
// This constant is not exported by Go's standard library.
const lcRpath macho.LoadCmd = 0x8000001c

// ExtractRpaths extracts RPATH entries from an ELF or Mach-O binary.
// For ELF, it uses DT_RUNPATH (preferred) with DT_RPATH fallback.
// For Mach-O, it parses LC_RPATH load commands.
// Returns an empty slice if the binary has no RPATH entries.
func ExtractRpaths(path string) (rpaths []string, err error) {
	// Panic recovery for robustness against malformed input
	defer func() {
		if r := recover(); r != nil {
			err = &ValidationError{
				Category: ErrCorrupted,
				Path:     path,
				Message:  fmt.Sprintf("parser panic: %v", r),
			}
		}
	}()

	magic, err := readMagicForRpath(path)
	if err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}

	format := detectFormatForRpath(magic)
	switch format {
	case "elf":
		return extractELFRpaths(path)
	case "macho":
		return extractMachORpaths(path)
	case "fat":
		return extractFatRpaths(path)
	default:
		// Non-binary files have no RPATH - return empty (not an error)
		return nil, nil
	}
}

// extractELFRpaths extracts RPATH entries from an ELF binary.
// Prefers DT_RUNPATH over DT_RPATH (per modern ELF semantics).
func extractELFRpaths(path string) ([]string, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ELF: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Try DT_RUNPATH first (preferred, takes precedence in modern linkers)
	runpaths, err := f.DynString(elf.DT_RUNPATH)
	if err == nil && len(runpaths) > 0 {
		return parseRpathString(runpaths[0], path)
	}

	// Fall back to DT_RPATH
	rpaths, err := f.DynString(elf.DT_RPATH)
	if err == nil && len(rpaths) > 0 {
		return parseRpathString(rpaths[0], path)
	}

	// No RPATH/RUNPATH is normal - return empty slice
	return nil, nil
}

// parseRpathString parses a colon-separated RPATH string into individual paths.
// Enforces the RPATH limit and path length limits.
func parseRpathString(rpathStr string, binaryPath string) ([]string, error) {
	if rpathStr == "" {
		return nil, nil
	}

	parts := strings.Split(rpathStr, ":")
	if len(parts) > MaxRpathEntries {
		return nil, &ValidationError{
			Category: ErrRpathLimitExceeded,
			Path:     binaryPath,
			Message:  fmt.Sprintf("binary has %d RPATH entries (limit: %d)", len(parts), MaxRpathEntries),
		}
	}

	var rpaths []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(p) > MaxPathLength {
			return nil, &ValidationError{
				Category: ErrPathLengthExceeded,
				Path:     binaryPath,
				Message:  fmt.Sprintf("RPATH entry exceeds %d characters", MaxPathLength),
			}
		}
		rpaths = append(rpaths, p)
	}
	return rpaths, nil
}

// extractMachORpaths extracts RPATH entries from a Mach-O binary.
func extractMachORpaths(path string) ([]string, error) {
	f, err := macho.Open(path)
	if err != nil {
		// Check if this is a fat binary
		if isFatBinaryForRpath(path) {
			return extractFatRpaths(path)
		}
		return nil, fmt.Errorf("open Mach-O: %w", err)
	}
	defer func() { _ = f.Close() }()

	return extractMachORpathsFromFile(f, path)
}

// extractMachORpathsFromFile extracts RPATH entries from an open macho.File.
func extractMachORpathsFromFile(f *macho.File, binaryPath string) ([]string, error) {
	var rpaths []string

	for _, load := range f.Loads {
		raw := load.Raw()
		if len(raw) < 8 {
			continue
		}

		// Parse the load command header (cmd uint32, cmdsize uint32)
		cmd := f.ByteOrder.Uint32(raw[0:4])
		if macho.LoadCmd(cmd) != lcRpath {
			continue
		}

		// LC_RPATH structure: cmd(4) + cmdsize(4) + path_offset(4)
		if len(raw) < 12 {
			continue
		}
		pathOffset := f.ByteOrder.Uint32(raw[8:12])
		if int(pathOffset) >= len(raw) {
			continue
		}

		// Path is a null-terminated string starting at pathOffset
		pathBytes := raw[pathOffset:]
		if idx := bytes.IndexByte(pathBytes, 0); idx >= 0 {
			pathBytes = pathBytes[:idx]
		}
		rpathEntry := string(pathBytes)

		if len(rpathEntry) > MaxPathLength {
			return nil, &ValidationError{
				Category: ErrPathLengthExceeded,
				Path:     binaryPath,
				Message:  fmt.Sprintf("RPATH entry exceeds %d characters", MaxPathLength),
			}
		}

		rpaths = append(rpaths, rpathEntry)

		if len(rpaths) > MaxRpathEntries {
			return nil, &ValidationError{
				Category: ErrRpathLimitExceeded,
				Path:     binaryPath,
				Message:  fmt.Sprintf("binary has more than %d RPATH entries", MaxRpathEntries),
			}
		}
	}

	return rpaths, nil
}

// extractFatRpaths extracts RPATH entries from a fat/universal binary.
func extractFatRpaths(path string) ([]string, error) {
	ff, err := macho.OpenFat(path)
	if err != nil {
		return nil, fmt.Errorf("open fat binary: %w", err)
	}
	defer func() { _ = ff.Close() }()

	// RPATH should be the same across all architectures,
	// so just extract from the first slice
	if len(ff.Arches) > 0 {
		return extractMachORpathsFromFile(ff.Arches[0].File, path)
	}
	return nil, nil
}

// isFatBinaryForRpath checks if a file is a fat/universal binary.
func isFatBinaryForRpath(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, 4)
	_, err = f.Read(magic)
	if err != nil {
		return false
	}

	return bytes.Equal(magic, fatMagic)
}

// readMagicForRpath reads the first 8 bytes of a file for format detection.
func readMagicForRpath(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, 8)
	n, err := f.Read(magic)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return magic[:n], nil
}

// detectFormatForRpath determines the binary format from magic bytes.
func detectFormatForRpath(magic []byte) string {
	if len(magic) < 4 {
		return ""
	}

	switch {
	case bytes.HasPrefix(magic, elfMagic):
		return "elf"
	case bytes.Equal(magic[:4], machO32) || bytes.Equal(magic[:4], machO32Rev) ||
		bytes.Equal(magic[:4], machO64) || bytes.Equal(magic[:4], machO64Rev):
		return "macho"
	case bytes.Equal(magic[:4], fatMagic):
		return "fat"
	default:
		return ""
	}
}
