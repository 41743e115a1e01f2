package main

import (
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/ctarchive/ctarchiver/internal/ctarchive"
)

// newPackageCommand is the original tool's `expert_bt` mode: run only P
// over a tree_size a prior `hash` already computed proofs for.
func newPackageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Build torrents, magnets, and the RSS feed for a log's packages",
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

			if err := ctarchive.RunPackage(cmd.Context(), cfg, target, treeSize); err != nil {
				return err
			}
			klog.Infof("%s: packaged tree_size %d", target.URL, treeSize)
			return nil
		},
	}
	cmd.Flags().Uint64("tree-size", 0, "tree_size to package up to (default: the latest sth-*.json under pkg_root_dir)")
	return cmd
}
