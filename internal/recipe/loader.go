package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// recipeExt is the conventional file extension for a recipe, as used in
// §8's S1 scenario ("hello-1.0.pbuild").
const recipeExt = ".pbuild"

// Loader reads recipes from a recipe-tree root (REPO).
type Loader struct {
	root string
}

// NewLoader returns a Loader rooted at the given recipe tree directory.
func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// Get loads a single recipe by name, searching the recipe tree for a
// file named "<name>.pbuild" or, if name already names a path on disk,
// reading it directly.
func (l *Loader) Get(name string) (*Recipe, error) {
	if strings.Contains(name, string(filepath.Separator)) || strings.HasSuffix(name, recipeExt) {
		return l.load(name)
	}

	path, err := l.findByStem(name)
	if err != nil {
		return nil, err
	}
	return l.load(path)
}

// findByStem walks the recipe tree looking for a file whose basename
// (minus the .pbuild extension) equals name. Used both by Get and by
// the Revdep Engine's fix mode (§4.8).
func (l *Loader) findByStem(name string) (string, error) {
	var found string
	err := filepath.WalkDir(l.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || found != "" {
			return err
		}
		if d.IsDir() {
			return nil
		}
		stem := strings.TrimSuffix(filepath.Base(path), recipeExt)
		if stem == name && strings.HasSuffix(path, recipeExt) {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("recipe: walking %s: %w", l.root, err)
	}
	if found == "" {
		return "", fmt.Errorf("recipe: no recipe named %q found under %s", name, l.root)
	}
	return found, nil
}

func (l *Loader) load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recipe: reading %s: %w", path, err)
	}
	return ParseFile(path, data)
}

// List enumerates every recipe under the recipe tree, in lexicographic
// path order.
func (l *Loader) List() ([]*Recipe, error) {
	var paths []string
	err := filepath.WalkDir(l.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, recipeExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recipe: listing %s: %w", l.root, err)
	}

	recipes := make([]*Recipe, 0, len(paths))
	for _, p := range paths {
		r, err := l.load(p)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}
