package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"plex-faces/internal/filesystem"
	"plex-faces/internal/metrics"
	"plex-faces/internal/scanner"
	"plex-faces/internal/startup"
)

// sinceLayout is the date format accepted by -t.
const sinceLayout = "2006-01-02"

type operation int

const (
	opHelp operation = iota
	opScan
	opClean
	opList
	opDelete
)

type options struct {
	scan       bool
	full       bool
	since      string
	clean      bool
	list       bool
	deleteTag  string
	yes        bool
	configFile string
}

// resolve picks the single operation requested by the flags.
func (o *options) resolve(flags *pflag.FlagSet, args []string) (operation, scanner.ScanMode, error) {
	var selected []operation
	if o.scan || o.full {
		selected = append(selected, opScan)
	}
	if o.clean {
		selected = append(selected, opClean)
	}
	if o.list {
		selected = append(selected, opList)
	}
	deleting := flags.Changed("delete")
	if deleting {
		selected = append(selected, opDelete)
	}

	if o.scan && o.full {
		return opHelp, scanner.ScanMode{}, errors.New("-s and -f cannot be combined")
	}
	if len(selected) > 1 {
		return opHelp, scanner.ScanMode{}, errors.New("choose only one of -s, -f, -c, -l, -d")
	}
	if o.since != "" && !o.scan {
		return opHelp, scanner.ScanMode{}, errors.New("-t can only be used with -s")
	}
	if len(args) > 0 && !o.list {
		return opHelp, scanner.ScanMode{}, fmt.Errorf("unexpected argument %q", args[0])
	}

	if len(selected) == 0 {
		return opHelp, scanner.ScanMode{}, nil
	}

	switch selected[0] {
	case opScan:
		mode := scanner.ScanMode{Full: o.full}
		if o.since != "" {
			since, err := time.ParseInLocation(sinceLayout, o.since, time.Local)
			if err != nil {
				return opHelp, mode, fmt.Errorf("invalid -t date %q, expected YYYY-MM-DD", o.since)
			}
			mode.Since = since
		}
		return opScan, mode, nil
	case opDelete:
		if o.deleteTag == "" {
			return opHelp, scanner.ScanMode{}, errors.New("-d requires a non-empty tag")
		}
	}
	return selected[0], scanner.ScanMode{}, nil
}

// flagBindings maps persistent flags to configuration keys.
var flagBindings = map[string]string{
	"db":              startup.KeyDatabase,
	"exiftool":        startup.KeyExiftool,
	"workers":         startup.KeyWorkers,
	"extract-timeout": startup.KeyExtractTimeout,
	"metrics-file":    startup.KeyMetricsFile,
	"log-level":       startup.KeyLogLevel,
	"match":           startup.KeyMatch,
	"case-sensitive":  startup.KeyCaseSensitive,
}

func newRootCommand(a *app) *cobra.Command {
	var opts options

	v, viperErr := startup.NewViper()

	rootCmd := &cobra.Command{
		Use:   "plex-faces [flags] [tag]",
		Short: "Sync face tags from photo metadata into a Plex library",
		Long: `plex-faces reads the person names stored in photo metadata (XMP
PersonInImage or MWG RegionInfo) and writes them as tags into the Plex
library database. Stop Plex Media Server before running a mutating command.`,
		Example: `  plex-faces -s               # update photos changed since their last scan
  plex-faces -s -t 2024-01-01 # update photos changed since a date
  plex-faces -f               # rescan every photo
  plex-faces -l Ali           # list tags containing "Ali"
  plex-faces -d "Bob Smith"   # remove a tag from every photo
  plex-faces -c               # remove tags no photo uses`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if viperErr != nil {
				return viperErr
			}

			op, mode, err := opts.resolve(cmd.Flags(), args)
			if err != nil {
				return err
			}
			if op == opHelp {
				return cmd.Help()
			}

			cfg, err := loadConfig(v, opts.configFile)
			if err != nil {
				return err
			}
			setupMetrics(cfg)

			ctx := cmd.Context()
			switch op {
			case opScan:
				return a.runScan(ctx, cfg, mode, opts.yes)
			case opClean:
				return a.runClean(ctx, cfg, opts.yes)
			case opList:
				pattern := ""
				if len(args) > 0 {
					pattern = args[0]
				}
				return a.runList(ctx, cfg, pattern)
			case opDelete:
				return a.runDelete(ctx, cfg, opts.deleteTag, opts.yes)
			}
			return nil
		},
	}

	bindOperationFlags(rootCmd.Flags(), &opts)

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&opts.configFile, "config", "", "Configuration file path")
	persistent.String("db", "", "Path to the Plex library database")
	persistent.String("exiftool", "", "Path to the exiftool binary")
	persistent.Int("workers", 0, "Number of exiftool processes (0 = CPU count)")
	persistent.Duration("extract-timeout", 0, "Per-file metadata extraction timeout")
	persistent.String("metrics-file", "", "Write Prometheus metrics to this file on exit")
	persistent.String("log-level", "", "Log level: debug, info, warn, error")
	persistent.String("match", "", "Tag match mode for -l and -d: contains, prefix, exact")
	persistent.Bool("case-sensitive", false, "Match tags case-sensitively")

	if v != nil {
		for name, key := range flagBindings {
			if err := v.BindPFlag(key, persistent.Lookup(name)); err != nil && viperErr == nil {
				viperErr = fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}

	return rootCmd
}

func bindOperationFlags(flags *pflag.FlagSet, opts *options) {
	flags.BoolVarP(&opts.scan, "scan", "s", false, "Update photos modified since their last face update")
	flags.BoolVarP(&opts.full, "full", "f", false, "Update every photo regardless of modification time")
	flags.StringVarP(&opts.since, "since", "t", "", "With -s, update photos modified after this date (YYYY-MM-DD)")
	flags.BoolVarP(&opts.clean, "clean", "c", false, "Remove face tags attached to no photo")
	flags.BoolVarP(&opts.list, "list", "l", false, "List face tags matching the optional tag argument")
	flags.StringVarP(&opts.deleteTag, "delete", "d", "", "Remove matching face tags from every photo")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "Skip the confirmation prompt")
}

func loadConfig(v *viper.Viper, configFile string) (*startup.Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if err := startup.ReadConfigFile(v); err != nil {
		return nil, err
	}
	return startup.LoadConfig(v)
}

func setupMetrics(cfg *startup.Config) {
	info := startup.GetBuildInfo()
	metrics.AppInfo.WithLabelValues(info.Version, info.Commit, info.GoVersion).Set(1)
	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(cfg.VolumeResolver())
}
