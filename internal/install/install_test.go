package install

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/fcanata061/pbuild/internal/buildctx"
	"github.com/fcanata061/pbuild/internal/config"
	"github.com/fcanata061/pbuild/internal/recipe"
	"github.com/fcanata061/pbuild/internal/registry"
)

func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()
	gz.Close()
}

func TestInstallWritesManifestAndMetadata(t *testing.T) {
	dir := t.TempDir()
	fakeRoot := filepath.Join(dir, "root")
	oldRoot := Root
	Root = fakeRoot
	defer func() { Root = oldRoot }()

	archivePath := filepath.Join(dir, "hello-1.0.tar.gz")
	writeTarGz(t, archivePath, map[string]string{
		"/usr/bin/hello": "bin",
		"/usr/share/doc": "doc",
	})

	r, err := recipe.ParseFile("hello-1.0.pbuild", []byte(
		"name=[hello]\nversion=[1.0]\nsource_url=[http://example/hello-1.0.tar.xz]\ninstall_cmd=[true]\n"))
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{TmpRoot: dir, Jobs: 2, Strip: true}
	bc := buildctx.New(cfg, r)

	reg := registry.New(filepath.Join(dir, "registro"))
	if err := Install(archivePath, bc, reg); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if _, err := os.Stat(filepath.Join(fakeRoot, "usr", "bin", "hello")); err != nil {
		t.Fatalf("expected file extracted onto root: %v", err)
	}

	files, err := reg.GetManifest("hello")
	if err != nil {
		t.Fatalf("GetManifest: %v", err)
	}
	want := []string{"/usr/bin/hello", "/usr/share/doc"}
	if len(files) != len(want) || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("got %v, want %v", files, want)
	}

	meta, err := reg.GetMetadata("hello")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.Version != "1.0" || meta.Jobs != 2 || !meta.Strip {
		t.Fatalf("got %+v", meta)
	}
}

func TestInstallFailsOnUnsupportedArchive(t *testing.T) {
	dir := t.TempDir()
	Root = filepath.Join(dir, "root")

	archivePath := filepath.Join(dir, "hello.rar")
	os.WriteFile(archivePath, []byte("x"), 0o644)

	r, err := recipe.ParseFile("hello-1.0.pbuild", []byte(
		"name=[hello]\nversion=[1.0]\nsource_url=[http://example/hello-1.0.tar.xz]\ninstall_cmd=[true]\n"))
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{TmpRoot: dir, Jobs: 1}
	bc := buildctx.New(cfg, r)
	reg := registry.New(filepath.Join(dir, "registro"))

	if err := Install(archivePath, bc, reg); err == nil {
		t.Fatal("expected error for unsupported archive")
	}
}
