// Package archive implements the Extractor and Compressor capabilities
// the Source Provisioner (C2) and Packager (C4) consume: extract(archive,
// dest) and compress(dir, outfile, codec) (§1, §4.2 step 4, §4.4).
//
// Codec support and the path-traversal / symlink-escape hardening are
// grounded on the teacher's internal/actions/extract.go.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"

	"github.com/fcanata061/pbuild/internal/pkgerr"
)

// Extract unpacks archivePath into destDir, dispatching on the
// archive's extension. Supported extensions: .tar.xz/.txz, .tar.gz/.tgz,
// .tar.bz2/.tbz2, .tar.zst, .tar.lz, .tar, .zip.
func Extract(archivePath, destDir string) error {
	_, err := ExtractManifest(archivePath, destDir)
	return err
}

// ExtractManifest unpacks archivePath into destDir like Extract, and
// additionally returns the archive's table of contents restricted to
// regular files and symbolic links (directories are not listed), as
// absolute paths with a single leading "/". The
// Installer (§4.5) uses this instead of a filesystem diff to derive
// the package's file manifest.
func ExtractManifest(archivePath, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: creating dest %s: %w", destDir, err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.UnsupportedArchive, archivePath, "opening archive", err)
	}
	defer f.Close()

	name := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(name, ".tar.xz") || strings.HasSuffix(name, ".txz"):
		return extractTarXZ(f, destDir, archivePath)
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		return extractTarGz(f, destDir, archivePath)
	case strings.HasSuffix(name, ".tar.bz2") || strings.HasSuffix(name, ".tbz2"):
		return extractTarBz2(f, destDir, archivePath)
	case strings.HasSuffix(name, ".tar.zst"):
		return extractTarZst(f, destDir, archivePath)
	case strings.HasSuffix(name, ".tar.lz"):
		return extractTarLz(f, destDir, archivePath)
	case strings.HasSuffix(name, ".tar"):
		return extractTarStream(f, destDir, archivePath)
	case strings.HasSuffix(name, ".zip"):
		return extractZip(archivePath, destDir)
	default:
		return nil, pkgerr.New(pkgerr.UnsupportedArchive, archivePath, "no extractor matches this extension")
	}
}

func extractTarXZ(r io.Reader, destDir, archivePath string) ([]string, error) {
	zr, err := xz.NewReader(r)
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.UnsupportedArchive, archivePath, "opening xz stream", err)
	}
	return extractTarStream(zr, destDir, archivePath)
}

func extractTarGz(r io.Reader, destDir, archivePath string) ([]string, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.UnsupportedArchive, archivePath, "opening gzip stream", err)
	}
	defer zr.Close()
	return extractTarStream(zr, destDir, archivePath)
}

func extractTarBz2(r io.Reader, destDir, archivePath string) ([]string, error) {
	return extractTarStream(bzip2.NewReader(r), destDir, archivePath)
}

func extractTarZst(r io.Reader, destDir, archivePath string) ([]string, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.UnsupportedArchive, archivePath, "opening zstd stream", err)
	}
	defer zr.Close()
	return extractTarStream(zr, destDir, archivePath)
}

func extractTarLz(r io.Reader, destDir, archivePath string) ([]string, error) {
	zr, err := lzip.NewReader(r)
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.UnsupportedArchive, archivePath, "opening lzip stream", err)
	}
	return extractTarStream(zr, destDir, archivePath)
}

func extractTarStream(r io.Reader, destDir, archivePath string) ([]string, error) {
	var manifest []string
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return manifest, nil
		}
		if err != nil {
			return nil, pkgerr.Wrap(pkgerr.UnsupportedArchive, archivePath, "reading tar entry", err)
		}

		target := filepath.Join(destDir, hdr.Name)
		if !isPathWithinDirectory(target, destDir) {
			return nil, pkgerr.New(pkgerr.UnsupportedArchive, archivePath, "entry escapes destination: "+hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
		case tar.TypeSymlink:
			if err := validateSymlinkTarget(hdr.Linkname, target, destDir); err != nil {
				return nil, pkgerr.Wrap(pkgerr.UnsupportedArchive, archivePath, "unsafe symlink", err)
			}
			os.MkdirAll(filepath.Dir(target), 0o755)
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return nil, err
			}
			manifest = append(manifest, normalizeEntryName(hdr.Name))
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return nil, err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return nil, err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return nil, err
			}
			out.Close()
			manifest = append(manifest, normalizeEntryName(hdr.Name))
		}
	}
}

func extractZip(archivePath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.UnsupportedArchive, archivePath, "opening zip", err)
	}
	defer zr.Close()

	var manifest []string
	for _, f := range zr.File {
		target := filepath.Join(destDir, f.Name)
		if !isPathWithinDirectory(target, destDir) {
			return nil, pkgerr.New(pkgerr.UnsupportedArchive, archivePath, "entry escapes destination: "+f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return nil, err
		}
		_, copyErr := io.Copy(out, rc)
		out.Close()
		rc.Close()
		if copyErr != nil {
			return nil, copyErr
		}
		manifest = append(manifest, normalizeEntryName(f.Name))
	}
	return manifest, nil
}

// normalizeEntryName turns an archive entry name into an absolute path
// with a single leading "/", per §4.5.
func normalizeEntryName(name string) string {
	name = filepath.ToSlash(name)
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	for strings.HasPrefix(name, "//") {
		name = name[1:]
	}
	return name
}

// isPathWithinDirectory reports whether targetPath resolves inside basePath.
func isPathWithinDirectory(targetPath, basePath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	return absTarget == absBase || strings.HasPrefix(absTarget, absBase+string(os.PathSeparator))
}

// validateSymlinkTarget rejects absolute symlink targets and targets
// that would resolve outside destPath.
func validateSymlinkTarget(linkTarget, linkLocation, destPath string) error {
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("absolute symlink targets are not allowed: %s -> %s", linkLocation, linkTarget)
	}
	resolved := filepath.Join(filepath.Dir(linkLocation), linkTarget)
	if !isPathWithinDirectory(resolved, destPath) {
		return fmt.Errorf("symlink target escapes destination: %s -> %s", linkLocation, linkTarget)
	}
	return nil
}
