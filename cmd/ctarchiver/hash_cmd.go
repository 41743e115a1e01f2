package main

import (
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/ctarchive/ctarchiver/internal/ctarchive"
)

// newHashCommand is the original tool's `expert_hash` mode: run only H
// over a tree_size a prior `fetch` already populated bundles for.
func newHashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a log's packages and verify the recomputed root against its STH",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			target, err := targetFromFlags(cmd)
			if err != nil {
				return err
			}
			treeSize, err := resolveTreeSize(cmd, cfg, target)
			if err != nil {
				return err
			}

			if err := ctarchive.RunHash(cmd.Context(), cfg, target, treeSize); err != nil {
				return err
			}
			klog.Infof("%s: hashed and verified tree_size %d", target.URL, treeSize)
			return nil
		},
	}
	cmd.Flags().Uint64("tree-size", 0, "tree_size to hash up to (default: the latest sth-*.json under pkg_root_dir)")
	return cmd
}

// resolveTreeSize uses an explicit --tree-size if the operator passed
// one, otherwise falls back to the latest STH a prior `fetch` persisted.
func resolveTreeSize(cmd *cobra.Command, cfg ctarchive.Config, target ctarchive.LogTarget) (uint64, error) {
	if cmd.Flags().Changed("tree-size") {
		return cmd.Flags().GetUint64("tree-size")
	}
	return ctarchive.LatestTreeSize(ctarchive.PkgRootDir(cfg, target))
}
