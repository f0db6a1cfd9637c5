package provision

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
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

func writeTestTarGz(t *testing.T, path, topDir string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		full := topDir + "/" + name
		hdr := &tar.Header{Name: full, Mode: 0o644, Size: int64(len(content))}
		tw.WriteHeader(hdr)
		tw.Write([]byte(content))
	}
	tw.Close()
	gz.Close()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		TmpRoot:  filepath.Join(dir, "tmp"),
		Sources:  filepath.Join(dir, "sources"),
		Registro: filepath.Join(dir, "registry"),
		PkgOut:   filepath.Join(dir, "pkgout"),
		Jobs:     1,
		PkgComp:  config.CodecGz,
	}
}

func TestProvisionFetchExtractAndChecksum(t *testing.T) {
	var archiveData []byte
	tarPath := filepath.Join(t.TempDir(), "hello-1.0.tar.gz")
	writeTestTarGz(t, tarPath, "hello-1.0", map[string]string{"README": "hi"})
	archiveData, _ = os.ReadFile(tarPath)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archiveData)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	os.MkdirAll(cfg.Sources, 0o755)

	r, err := recipe.ParseFile("hello-1.0.pbuild", []byte(
		"name=[hello]\nversion=[1.0]\nsource_url=["+srv.URL+"/hello-1.0.tar.gz]\ninstall_cmd=[true]\n"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	bc := buildctx.New(cfg, r)
	if err := Provision(context.Background(), cfg, bc); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(bc.SourceDir, "README"))
	if err != nil {
		t.Fatalf("expected extracted README: %v", err)
	}
	if string(data) != "hi" {
		t.Fatalf("got %q", data)
	}
}

func TestProvisionChecksumMismatchAborts(t *testing.T) {
	tarPath := filepath.Join(t.TempDir(), "hello-1.0.tar.gz")
	writeTestTarGz(t, tarPath, "hello-1.0", map[string]string{"README": "hi"})
	archiveData, _ := os.ReadFile(tarPath)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archiveData)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	os.MkdirAll(cfg.Sources, 0o755)

	r, err := recipe.ParseFile("hello-1.0.pbuild", []byte(
		"name=[hello]\nversion=[1.0]\nsource_url=["+srv.URL+"/hello-1.0.tar.gz]\ninstall_cmd=[true]\nchecksum=[0000]\n"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	bc := buildctx.New(cfg, r)
	err = Provision(context.Background(), cfg, bc)
	if !pkgerr.Is(err, pkgerr.ChecksumMismatch) {
		t.Fatalf("expected ChecksumMismatch, got %v", err)
	}
	if _, statErr := os.Stat(bc.SourceDir); statErr == nil {
		t.Fatalf("expected no extraction on checksum failure")
	}
}
