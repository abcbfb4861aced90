// formctl is the authoring tool for questionnaire structure definitions:
// it validates YAML/JSON definition files and seeds them into the database.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "formctl",
		Short:        "Manage questionnaire structure definitions",
		SilenceUsage: true,
	}

	root.AddCommand(newValidateCmd())
	root.AddCommand(newSeedCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
