package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ulikunitz/xz"

	"github.com/fcanata061/pbuild/internal/config"
	"github.com/fcanata061/pbuild/internal/pkgerr"
)

// Compress deterministically archives srcDir into outPath using codec,
// implementing the Packager (C4, §4.4): entries are walked in
// lexicographic order and paths are rooted at "/" (srcDir itself is
// treated as a virtual root), matching §3's PackageArchive contract.
func Compress(srcDir, outPath string, codec config.Codec) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("archive: creating output dir: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return pkgerr.Wrap(pkgerr.PackagingFailed, outPath, "creating archive file", err)
	}
	defer out.Close()

	var w io.WriteCloser
	switch codec {
	case config.CodecXZ:
		xw, err := xz.NewWriter(out)
		if err != nil {
			return pkgerr.Wrap(pkgerr.PackagingFailed, outPath, "creating xz writer", err)
		}
		w = xw
	case config.CodecGz:
		w = gzip.NewWriter(out)
	case config.CodecBz2:
		w = newBzip2Writer(out)
	default:
		return pkgerr.New(pkgerr.PackagingFailed, outPath, fmt.Sprintf("unsupported codec %q", codec))
	}

	tw := tar.NewWriter(w)

	if err := tarWalk(srcDir, tw); err != nil {
		tw.Close()
		w.Close()
		return pkgerr.Wrap(pkgerr.PackagingFailed, outPath, "writing tar stream", err)
	}
	if err := tw.Close(); err != nil {
		w.Close()
		return pkgerr.Wrap(pkgerr.PackagingFailed, outPath, "closing tar writer", err)
	}
	if err := w.Close(); err != nil {
		return pkgerr.Wrap(pkgerr.PackagingFailed, outPath, "closing compressor", err)
	}
	return nil
}

func tarWalk(srcDir string, tw *tar.Writer) error {
	var paths []string
	err := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(paths)

	for _, path := range paths {
		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			link, err = os.Readlink(path)
			if err != nil {
				return err
			}
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = "/" + filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if info.Mode().IsRegular() {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			_, copyErr := io.Copy(tw, f)
			f.Close()
			if copyErr != nil {
				return copyErr
			}
		}
	}
	return nil
}
