package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fcanata061/pbuild/internal/buildctx"
	"github.com/fcanata061/pbuild/internal/install"
	"github.com/fcanata061/pbuild/internal/pkgerr"
)

var installCmd = &cobra.Command{
	Use:   "install <archive>",
	Short: "Install a previously built package archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	archivePath := args[0]
	name, err := recipeNameFromArchive(archivePath)
	if err != nil {
		return err
	}

	r, err := loader.Get(name)
	if err != nil {
		return pkgerr.Wrap(pkgerr.InvalidRecipe, name, "no matching recipe in recipe tree", err)
	}

	bc := buildctx.New(cfg, r)
	if err := install.Install(archivePath, bc, reg); err != nil {
		return err
	}

	cmd.Printf("installed %s-%s\n", r.Name, r.Version)
	return nil
}

// recipeNameFromArchive recovers the package name from the conventional
// "{name}-{version}.tar.{codec}" archive filename (§6).
func recipeNameFromArchive(archivePath string) (string, error) {
	base := filepath.Base(archivePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, ext := range []string{".tar"} {
		base = strings.TrimSuffix(base, ext)
	}
	idx := strings.LastIndex(base, "-")
	if idx <= 0 {
		return "", pkgerr.New(pkgerr.UsageError, archivePath, "archive name does not match {name}-{version}.tar.{codec}")
	}
	return base[:idx], nil
}
