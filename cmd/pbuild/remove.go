package main

import (
	"github.com/spf13/cobra"

	"github.com/fcanata061/pbuild/internal/hook"
	"github.com/fcanata061/pbuild/internal/pkgerr"
	"github.com/fcanata061/pbuild/internal/remove"
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an installed package and its registry record",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	if !reg.Has(name) {
		return pkgerr.New(pkgerr.UnknownPackage, name, "no registry record for this package")
	}

	res, err := remove.Remove(name, reg, hook.LogSink{})
	if err != nil {
		return err
	}

	cmd.Println(remove.Describe(res))
	return nil
}
