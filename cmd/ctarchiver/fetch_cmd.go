package main

import (
	"errors"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/ctarchive/ctarchiver/internal/ctarchive"
	"github.com/ctarchive/ctarchiver/internal/fetcher"
)

// newFetchCommand is the original tool's `expert_getct` mode: run only F.
func newFetchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and verify a log's STH and entries, without hashing or packaging",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			target, err := targetFromFlags(cmd)
			if err != nil {
				return err
			}

			sth, err := ctarchive.RunFetch(cmd.Context(), cfg, target)
			if errors.Is(err, fetcher.ErrNothingToFetch) {
				klog.Infof("%s: already archived at tree_size %d", target.URL, sth.TreeSize)
				return nil
			}
			if err != nil {
				return err
			}
			klog.Infof("%s: fetched up to tree_size %d", target.URL, sth.TreeSize)
			return nil
		},
	}
}
