package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fcanata061/pbuild/internal/buildctx"
	"github.com/fcanata061/pbuild/internal/config"
	"github.com/fcanata061/pbuild/internal/log"
	"github.com/fcanata061/pbuild/internal/pkgerr"
	"github.com/fcanata061/pbuild/internal/recipe"
)

func init() {
	log.SetDefault(log.NewNoop())
}

func testRecipe(t *testing.T, installCmd string) *recipe.Recipe {
	t.Helper()
	r, err := recipe.ParseFile("hello-1.0.pbuild", []byte(
		"name=[hello]\nversion=[1.0]\nsource_url=[http://example/hello-1.0.tar.xz]\ninstall_cmd=["+installCmd+"]\n"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	return r
}

func TestRunInstallsFilesIntoStage(t *testing.T) {
	dir := t.TempDir()
	r := testRecipe(t, "mkdir -p $DESTDIR/usr/bin && echo hi > $DESTDIR/usr/bin/hello")
	cfg := &config.Config{TmpRoot: dir, Jobs: 2, Strip: false}
	bc := buildctx.New(cfg, r)
	os.MkdirAll(bc.SourceDir, 0o755)

	if err := Run(context.Background(), bc); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(bc.StageRoot, "usr", "bin", "hello"))
	if err != nil {
		t.Fatalf("expected staged file: %v", err)
	}
	if string(data) != "hi\n" {
		t.Fatalf("got %q", data)
	}
}

func TestRunInstallFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	r := testRecipe(t, "exit 1")
	cfg := &config.Config{TmpRoot: dir, Jobs: 1}
	bc := buildctx.New(cfg, r)
	os.MkdirAll(bc.SourceDir, 0o755)

	err := Run(context.Background(), bc)
	if !pkgerr.Is(err, pkgerr.InstallFailed) {
		t.Fatalf("expected InstallFailed, got %v", err)
	}
}

func TestComputeMakeflagsDefaultsToJobs(t *testing.T) {
	os.Unsetenv("MAKEFLAGS")
	r := testRecipe(t, "true")
	cfg := &config.Config{TmpRoot: t.TempDir(), Jobs: 4}
	bc := buildctx.New(cfg, r)
	if got := computeMakeflags(bc); got != "-j4" {
		t.Fatalf("got %q, want -j4", got)
	}
}

func TestComputeMakeflagsAppendsExtra(t *testing.T) {
	os.Unsetenv("MAKEFLAGS")
	r, err := recipe.ParseFile("hello-1.0.pbuild", []byte(
		"name=[hello]\nversion=[1.0]\nsource_url=[http://example/hello-1.0.tar.xz]\ninstall_cmd=[true]\nextra_make_flags=[-k]\n"))
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{TmpRoot: t.TempDir(), Jobs: 4}
	bc := buildctx.New(cfg, r)
	if got := computeMakeflags(bc); got != "-k" {
		t.Fatalf("got %q, want -k", got)
	}
}
