package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "secondbrain",
		Short:         "Personal knowledge base with retrieval-augmented answers",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newQueryCmd(),
		newDocumentsCmd(),
		newHashPasswordCmd(),
	)
	return root
}
