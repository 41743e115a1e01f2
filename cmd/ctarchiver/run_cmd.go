package main

import (
	"github.com/spf13/cobra"

	"github.com/ctarchive/ctarchiver/internal/ctarchive"
)

// newRunCommand is the original tool's `auto` mode: fetch, hash, and
// package a log in one pass. ctarchive.Run already treats an
// already-fully-archived log as success, not an error.
func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch, hash, and package a log in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			target, err := targetFromFlags(cmd)
			if err != nil {
				return err
			}
			return ctarchive.Run(cmd.Context(), cfg, target)
		},
	}
}
