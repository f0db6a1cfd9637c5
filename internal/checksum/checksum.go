// Package checksum verifies fetched archive digests against a recipe's
// checksum field (§4.2 step 3), grounded on the teacher's
// internal/install/checksum.go digest primitive.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/fcanata061/pbuild/internal/pkgerr"
)

// ComputeFile returns the hex-encoded SHA256 digest of a file.
func ComputeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum: opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum: reading %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks archivePath's digest against expected. An empty expected
// means no checksum was configured and verification is skipped
// (§3: checksum is optional).
func Verify(archivePath, expected string) error {
	if expected == "" {
		return nil
	}
	actual, err := ComputeFile(archivePath)
	if err != nil {
		return pkgerr.Wrap(pkgerr.ChecksumMismatch, archivePath, "failed to compute checksum", err)
	}
	if actual != expected {
		return pkgerr.New(pkgerr.ChecksumMismatch, archivePath,
			fmt.Sprintf("expected %s, got %s", expected, actual))
	}
	return nil
}
