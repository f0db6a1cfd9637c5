package main

import (
	"github.com/spf13/cobra"

	"github.com/fcanata061/pbuild/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search the recipe tree by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	matches, err := search.Search(loader, args[0])
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		cmd.Println("no matching recipes")
		return nil
	}
	for _, m := range matches {
		cmd.Printf("%s %s  %s\n", m.Name, m.Version, m.Path)
	}
	return nil
}
