package main

import "testing"

func TestRecipeNameFromArchive(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"hello-1.0.tar.xz", "hello", false},
		{"/var/cache/pbuild/packages/openssl-3.2.1.tar.gz", "openssl", false},
		{"zlib-ng-2.2.1.tar.bz2", "zlib-ng", false},
		{"noversion.tar.xz", "", true},
	}
	for _, tt := range tests {
		got, err := recipeNameFromArchive(tt.path)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("recipeNameFromArchive(%q): expected error", tt.path)
			}
			continue
		}
		if err != nil {
			t.Fatalf("recipeNameFromArchive(%q): %v", tt.path, err)
		}
		if got != tt.want {
			t.Fatalf("recipeNameFromArchive(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
