package pkgerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	e := New(ChecksumMismatch, "hello-1.0.tar.xz", "expected abc got def")
	want := "checksum mismatch: hello-1.0.tar.xz: expected abc got def"
	if got := e.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(BuildFailed, "hello", "make exited non-zero", cause)
	if !errors.Is(e, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
}

func TestIs(t *testing.T) {
	base := New(UnknownPackage, "ghost", "no manifest")
	wrapped := fmt.Errorf("remove: %w", base)
	if !Is(wrapped, UnknownPackage) {
		t.Fatalf("expected Is to find UnknownPackage through fmt.Errorf wrapping")
	}
	if Is(wrapped, PatchFailed) {
		t.Fatalf("expected Is to reject mismatched kind")
	}
}

func TestExitCode(t *testing.T) {
	cases := map[Kind]int{
		UsageError:         1,
		InvalidRecipe:       2,
		ChecksumMismatch:   3,
		UnsupportedArchive: 4,
		PatchFailed:        5,
		BuildFailed:        6,
		UnknownPackage:     7,
	}
	for kind, want := range cases {
		if got := ExitCode(kind); got != want {
			t.Errorf("ExitCode(%v) = %d, want %d", kind, got, want)
		}
	}
}
