// Package cli wires the xsg command line tool.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginty-lab/ephus/internal/config"
	"github.com/ginty-lab/ephus/internal/fsutil"
	"github.com/ginty-lab/ephus/internal/monitoring"
	"github.com/ginty-lab/ephus/internal/version"
	"github.com/ginty-lab/ephus/internal/xsg"
)

// Dependencies are shared by every command. Config may be preset; otherwise
// it is loaded from --config (or xsg.yaml when present) before a command
// runs.
type Dependencies struct {
	FS     fsutil.FileSystem
	Config *config.Config

	configPath string
	logLevel   string
	parser     *xsg.Parser
	logger     *zap.Logger
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xsg",
		Short: "Read, merge and plot ephus XSG acquisitions",
		Long: "A tool for ephus XSG acquisition files: dump headers, build records " +
			"with reconstructed stimuli, merge trials by epoch, plot traces and " +
			"keep a catalog of acquisition metadata.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return deps.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if deps.logger != nil {
				_ = deps.logger.Sync()
			}
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.PersistentFlags().StringVar(&deps.configPath, "config", "", "config file (default "+config.DefaultConfigPath+" if present)")
	rootCmd.PersistentFlags().StringVar(&deps.logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(NewHeaderCmd(deps))
	rootCmd.AddCommand(NewParseCmd(deps))
	rootCmd.AddCommand(NewMergeCmd(deps))
	rootCmd.AddCommand(NewSummaryCmd(deps))
	rootCmd.AddCommand(NewPlotCmd(deps))
	rootCmd.AddCommand(NewChartCmd(deps))
	rootCmd.AddCommand(NewCatalogCmd(deps))

	return rootCmd
}

func (d *Dependencies) setup() error {
	if d.FS == nil {
		d.FS = fsutil.OSFileSystem{}
	}
	if d.Config == nil || d.configPath != "" {
		cfg, err := loadConfig(d.configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		d.Config = cfg
	}

	level := d.Config.GetLogLevel()
	if d.logLevel != "" {
		level = d.logLevel
	}
	logger, err := monitoring.Configure(level)
	if err != nil {
		return err
	}
	d.logger = logger

	d.parser = xsg.NewParser(d.FS, xsg.NewBuilder(d.Config.BuildOptions()))
	return nil
}

// loadConfig reads path, or the default config file if path is empty. A
// missing default file yields the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); errors.Is(err, fs.ErrNotExist) {
		return &config.Config{}, nil
	}
	return config.Load(config.DefaultConfigPath)
}

// expandPaths replaces directory arguments with the XSG files beneath them.
func (d *Dependencies) expandPaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := d.FS.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		found, err := d.parser.FindFiles(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no %s files in %v", xsg.Ext, args)
	}
	return out, nil
}
