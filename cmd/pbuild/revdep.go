package main

import (
	"github.com/spf13/cobra"

	"github.com/fcanata061/pbuild/internal/revdep"
)

var revdepFixFlag bool

var revdepCmd = &cobra.Command{
	Use:   "revdep",
	Short: "Scan installed binaries for missing shared libraries, optionally rebuilding owners",
	Args:  cobra.NoArgs,
	RunE:  runRevdep,
}

func init() {
	revdepCmd.Flags().BoolVar(&revdepFixFlag, "fix", false, "Rebuild the package that owns each missing library")
}

// highlightMissing renders a missing soname in red when color output
// is enabled, plain text otherwise.
func highlightMissing(soname string) string {
	if !colorEnabled() {
		return "missing " + soname
	}
	return "\033[31mmissing " + soname + "\033[0m"
}

func runRevdep(cmd *cobra.Command, args []string) error {
	result, err := revdep.Check("/", cfg.TmpRoot)
	if err != nil {
		return err
	}

	if len(result.Missing) == 0 {
		cmd.Println("no missing shared libraries")
		return nil
	}
	for _, m := range result.Missing {
		cmd.Printf("%s (used by %d file(s))\n", highlightMissing(m.Soname), len(m.UsedBy))
		for _, u := range m.UsedBy {
			cmd.Printf("  %s\n", u)
		}
	}

	if !revdepFixFlag {
		return nil
	}

	outcomes, err := revdep.Fix(globalCtx, cfg, loader, reg, result.Missing)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			cmd.Printf("fix %s: failed: %v\n", o.Soname, o.Err)
		case o.Candidate == "":
			cmd.Printf("fix %s: no candidate owner found\n", o.Soname)
		case o.Rebuilt:
			cmd.Printf("fix %s: rebuilt %s\n", o.Soname, o.Candidate)
		}
	}
	return nil
}
