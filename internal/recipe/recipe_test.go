package recipe

import (
	"strings"
	"testing"

	"github.com/fcanata061/pbuild/internal/pkgerr"
)

const helloRecipe = `name=[hello]
version=[1.0]
source_url=[http://example/hello-1.0.tar.xz]
install_cmd=[mkdir -p $DESTDIR/usr/bin && cp hello $DESTDIR/usr/bin/]
`

func TestParseRoundtrip(t *testing.T) {
	r, err := ParseFile("hello-1.0.pbuild", []byte(helloRecipe))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if r.Name != "hello" || r.Version != "1.0" {
		t.Fatalf("got name=%q version=%q", r.Name, r.Version)
	}
	if r.SourceURL != "http://example/hello-1.0.tar.xz" {
		t.Fatalf("got source_url=%q", r.SourceURL)
	}
	if r.InstallCmd != "mkdir -p $DESTDIR/usr/bin && cp hello $DESTDIR/usr/bin/" {
		t.Fatalf("got install_cmd=%q", r.InstallCmd)
	}
	if r.VCS != VCSHTTP {
		t.Fatalf("expected inferred vcs=http, got %q", r.VCS)
	}
	if r.SourceDir != "hello-1.0" {
		t.Fatalf("expected deduced source_dir=hello-1.0, got %q", r.SourceDir)
	}
}

func TestUnknownKeyTolerance(t *testing.T) {
	withExtra := helloRecipe + "unknown=[anything]\n"
	r1, err := ParseFile("a.pbuild", []byte(helloRecipe))
	if err != nil {
		t.Fatalf("ParseFile base: %v", err)
	}
	r2, err := ParseFile("a.pbuild", []byte(withExtra))
	if err != nil {
		t.Fatalf("ParseFile with unknown key: %v", err)
	}
	if r1.Name != r2.Name || r1.Version != r2.Version || r1.SourceURL != r2.SourceURL {
		t.Fatalf("unknown key altered parse result: %+v vs %+v", r1, r2)
	}
}

func TestMissingRequiredField(t *testing.T) {
	_, err := ParseFile("bad.pbuild", []byte("name=[hello]\nversion=[1.0]\n"))
	if !pkgerr.Is(err, pkgerr.InvalidRecipe) {
		t.Fatalf("expected InvalidRecipe, got %v", err)
	}
}

func TestMalformedValue(t *testing.T) {
	_, err := ParseFile("bad.pbuild", []byte("name=hello\n"))
	if !pkgerr.Is(err, pkgerr.InvalidRecipe) {
		t.Fatalf("expected InvalidRecipe for unwrapped value, got %v", err)
	}
}

func TestGitVCSRequiresSourceDir(t *testing.T) {
	data := `name=[liba]
version=[1.0]
source_url=[git://example.com/liba.git]
install_cmd=[make install]
`
	_, err := ParseFile("liba.pbuild", []byte(data))
	if !pkgerr.Is(err, pkgerr.InvalidRecipe) {
		t.Fatalf("expected InvalidRecipe for git vcs without source_dir, got %v", err)
	}

	data += "source_dir=[liba]\n"
	r, err := ParseFile("liba.pbuild", []byte(data))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if r.VCS != VCSGit {
		t.Fatalf("expected vcs=git, got %q", r.VCS)
	}
}

func TestPatchesList(t *testing.T) {
	data := helloRecipe + "patches=[a.patch, b.patch]\n"
	r, err := ParseFile("a.pbuild", []byte(data))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if strings.Join(r.Patches, ",") != "a.patch,b.patch" {
		t.Fatalf("got patches=%v", r.Patches)
	}
}
