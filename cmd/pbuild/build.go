package main

import (
	"github.com/spf13/cobra"

	"github.com/fcanata061/pbuild/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build <recipe>",
	Short: "Build and install a recipe (fetch -> verify -> extract -> patch -> build -> test -> stage -> package -> install)",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	r, err := loader.Get(args[0])
	if err != nil {
		return err
	}

	res, err := pipeline.Run(globalCtx, cfg, r, reg, false, true)
	if err != nil {
		return err
	}

	cmd.Printf("built %s-%s -> %s\n", r.Name, r.Version, res.ArchivePath)
	if res.Installed {
		cmd.Printf("installed %s-%s\n", r.Name, r.Version)
	}
	return nil
}
