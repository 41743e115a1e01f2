package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/ctarchive/ctarchiver/internal/ctarchive"
	"github.com/ctarchive/ctarchiver/internal/packager"
)

var cfgFile string

// newRootCommand builds the `ctarchiver` command tree: `run`, `fetch`,
// `hash`, and `package`, the Cobra surface for the original tool's
// `auto`/`expert_getct`/`expert_hash`/`expert_bt` modes.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ctarchiver",
		Short:         "Archive a Certificate Transparency log as BitTorrent swarms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	goFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(goFlags)
	root.PersistentFlags().AddGoFlagSet(goFlags)

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (top-level keys named like the flags, with _ for -; sections are not read; any format viper supports)")
	root.PersistentFlags().String("log-list-file", "", "path to the JSON log list (url+key pairs)")
	root.PersistentFlags().String("download-url", "", "base URL torrents' RSS enclosures point at")
	root.PersistentFlags().String("root-dir", "/tmp", "directory archived logs are stored under")
	root.PersistentFlags().String("torrent-dir", "/tmp", "directory emitted .torrent/.magnet/.rss files are written to")
	root.PersistentFlags().String("asn", "", "AS number credited in each torrent's comment field")
	root.PersistentFlags().Int("workers", 1, "worker pool size for hashing and packaging")
	root.PersistentFlags().Uint64("package-size", 1024, "bundles per package (P)")
	root.PersistentFlags().Uint64("bundle-size", 1024, "entries per bundle (B), must be a power of two")
	root.PersistentFlags().Uint64("step-size", 1024, "desired get-entries page size")
	root.PersistentFlags().StringSlice("trackers", nil, "tracker announce URLs, in priority order")
	root.PersistentFlags().StringSlice("peers", nil, "DHT-less peer list in host:port form")

	root.PersistentFlags().String("url", "", "CT log base URL")
	root.PersistentFlags().StringP("name", "n", "", "suggested_name override for this log's directory and artifact names")
	root.PersistentFlags().Uint64("start-index", 0, "start here if earlier than the discovered resume index (rounded down to a bundle boundary)")
	root.MarkPersistentFlagRequired("url")

	root.AddCommand(newRunCommand())
	root.AddCommand(newFetchCommand())
	root.AddCommand(newHashCommand())
	root.AddCommand(newPackageCommand())

	return root
}

// initConfig binds a config file (if given) and environment variables
// into viper, ahead of every flag lookup below.
func initConfig(cmd *cobra.Command) error {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", cfgFile, err)
		}
	}
	v.SetEnvPrefix("CTARCHIVER")
	v.AutomaticEnv()

	return bindFlags(cmd, v)
}

// bindFlags lets a config file or CTARCHIVER_* environment variable
// supply any flag the operator didn't pass explicitly on the command
// line, recursing through persistent flags inherited from the root.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if !v.IsSet(key) {
			return
		}
		if f.Value.Type() == "stringSlice" {
			err = cmd.Flags().Set(f.Name, strings.Join(v.GetStringSlice(key), ","))
			return
		}
		err = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(key)))
	})
	return err
}

// configFromFlags assembles a ctarchive.Config from whatever
// combination of flags, config file, and environment ended up bound.
func configFromFlags(cmd *cobra.Command) (ctarchive.Config, error) {
	peerStrs, err := cmd.Flags().GetStringSlice("peers")
	if err != nil {
		return ctarchive.Config{}, err
	}
	peers, err := parsePeers(peerStrs)
	if err != nil {
		return ctarchive.Config{}, err
	}
	trackers, err := cmd.Flags().GetStringSlice("trackers")
	if err != nil {
		return ctarchive.Config{}, err
	}

	logListFile, _ := cmd.Flags().GetString("log-list-file")
	downloadURL, _ := cmd.Flags().GetString("download-url")
	rootDir, _ := cmd.Flags().GetString("root-dir")
	torrentDir, _ := cmd.Flags().GetString("torrent-dir")
	asn, _ := cmd.Flags().GetString("asn")
	workers, _ := cmd.Flags().GetInt("workers")
	packageSize, _ := cmd.Flags().GetUint64("package-size")
	bundleSize, _ := cmd.Flags().GetUint64("bundle-size")
	stepSize, _ := cmd.Flags().GetUint64("step-size")

	cfg := ctarchive.Config{
		LogListFile: logListFile,
		DownloadURL: downloadURL,
		RootDir:     rootDir,
		TorrentDir:  torrentDir,
		ASN:         asn,
		Workers:     workers,
		Trackers:    trackers,
		Peers:       peers,
		PackageSize: packageSize,
		BundleSize:  bundleSize,
		StepSize:    stepSize,
	}
	if err := cfg.Validate(); err != nil {
		return ctarchive.Config{}, err
	}
	return cfg, nil
}

// targetFromFlags builds the LogTarget every subcommand drives against.
func targetFromFlags(cmd *cobra.Command) (ctarchive.LogTarget, error) {
	url, _ := cmd.Flags().GetString("url")
	if url == "" {
		return ctarchive.LogTarget{}, fmt.Errorf("--url is required")
	}
	name, _ := cmd.Flags().GetString("name")

	target := ctarchive.LogTarget{URL: url, SuggestedName: name}
	if cmd.Flags().Changed("start-index") {
		start, _ := cmd.Flags().GetUint64("start-index")
		target.StartIndex = &start
	}
	return target, nil
}

// parsePeers parses the "host:port" entries spec.md §6 specifies for the
// Peers config section.
func parsePeers(entries []string) ([]packager.Peer, error) {
	peers := make([]packager.Peer, 0, len(entries))
	for _, e := range entries {
		host, portStr, ok := strings.Cut(e, ":")
		if !ok {
			return nil, fmt.Errorf("peer %q is not in host:port form", e)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("peer %q has a non-numeric port: %w", e, err)
		}
		peers = append(peers, packager.Peer{Host: host, Port: port})
	}
	return peers, nil
}
