package pkgarchive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fcanata061/pbuild/internal/buildctx"
	"github.com/fcanata061/pbuild/internal/config"
	"github.com/fcanata061/pbuild/internal/recipe"
)

func TestPackageProducesArchiveAtConventionalPath(t *testing.T) {
	dir := t.TempDir()
	r, err := recipe.ParseFile("hello-1.0.pbuild", []byte(
		"name=[hello]\nversion=[1.0]\nsource_url=[http://example/hello-1.0.tar.xz]\ninstall_cmd=[true]\n"))
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{TmpRoot: dir, PkgOut: filepath.Join(dir, "pkgout"), Jobs: 1, PkgComp: config.CodecGz}
	bc := buildctx.New(cfg, r)
	os.MkdirAll(filepath.Join(bc.StageRoot, "usr", "bin"), 0o755)
	os.WriteFile(filepath.Join(bc.StageRoot, "usr", "bin", "hello"), []byte("bin"), 0o755)

	out, err := Package(cfg.PkgOut, bc)
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	want := filepath.Join(cfg.PkgOut, "hello-1.0.tar.gz")
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected archive to exist: %v", err)
	}
}
