package fetch

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/fcanata061/pbuild/internal/pkgerr"
)

// GitFetcher performs a shallow clone of a git source_url (§4.2 step 2)
// and normalizes the result into a tar stream of HEAD content, so the
// rest of the Source Provisioner sees only "there is a local archive"
// regardless of acquisition mode.
//
// Grounded on google-oss-rebuild's cmd/git_cache, which uses go-git for
// shallow clones when native git isn't available.
type GitFetcher struct {
	Branch string // optional; empty means the remote's default branch
}

func (f *GitFetcher) Fetch(ctx context.Context, url, destPath string) error {
	scratch, err := os.MkdirTemp("", "pbuild-git-*")
	if err != nil {
		return pkgerr.Wrap(pkgerr.FetchFailed, url, "creating scratch dir", err)
	}
	defer os.RemoveAll(scratch)

	opts := &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
	}
	if f.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(f.Branch)
	}

	repo, err := git.PlainCloneContext(ctx, scratch, false, opts)
	if err != nil {
		return pkgerr.Wrap(pkgerr.FetchFailed, url, "shallow clone failed", err)
	}

	head, err := repo.Head()
	if err != nil {
		return pkgerr.Wrap(pkgerr.FetchFailed, url, "resolving HEAD", err)
	}
	_ = head

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp := destPath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	defer out.Close()

	if err := tarDir(out, scratch); err != nil {
		os.Remove(tmp)
		return pkgerr.Wrap(pkgerr.FetchFailed, url, "archiving HEAD content", err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, destPath)
}

// tarDir writes a tar stream of dir's content (excluding the .git
// metadata directory) to w.
func tarDir(w io.Writer, dir string) error {
	tw := tar.NewWriter(w)
	defer tw.Close()

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if rel == ".git" || strings.HasPrefix(rel, ".git"+string(filepath.Separator)) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
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
			defer f.Close()
			if _, err := io.Copy(tw, f); err != nil {
				return err
			}
		}
		return nil
	})
}
