package main

import (
	"github.com/spf13/cobra"

	"github.com/fcanata061/pbuild/internal/pkgerr"
	"github.com/fcanata061/pbuild/internal/search"
)

const exitUnknownPackageOnInfo = 8

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Report an installed package's registry record",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	name := args[0]

	if !reg.Has(name) {
		return withExitCode(pkgerr.New(pkgerr.UnknownPackage, name, "no registry record for this package"), exitUnknownPackageOnInfo)
	}

	out, err := search.Info(reg, name)
	if err != nil {
		return withExitCode(err, exitUnknownPackageOnInfo)
	}
	cmd.Print(out)
	return nil
}
