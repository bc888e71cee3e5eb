package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	serve := newServeCmd(&configPath)

	root := &cobra.Command{
		Use:           "montage",
		Short:         "Music video montage orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML settings file")
	root.AddCommand(serve, newPlanCmd())
	return root
}
