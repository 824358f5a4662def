// Package cmd provides the CLI commands for hemin.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpgirro/hemin/internal/config"
	herrors "github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/logging"
	"github.com/mpgirro/hemin/internal/profiling"
	"github.com/mpgirro/hemin/pkg/version"
)

var (
	debugMode      bool
	configPath     string
	loggingCleanup func()
	profileOpts    profiling.Options
	profileSession *profiling.Session
)

// NewRootCmd creates the root command for the hemin CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hemin",
		Short: "Podcast feed indexer and search engine",
		Long: `hemin ingests RSS and Atom podcast feeds, keeps shows and episodes
in a local catalog and makes them searchable through a full-text index.

Feeds are ingested with 'hemin ingest', searched with 'hemin search' and
served over HTTP ('hemin serve') or the Model Context Protocol ('hemin mcp').`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("hemin version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging (mirrored to stderr)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default: user and project config)")

	cmd.PersistentFlags().StringVar(&profileOpts.CPUPath, "profile-cpu", "", "Write a CPU profile to this file")
	cmd.PersistentFlags().StringVar(&profileOpts.HeapPath, "profile-mem", "", "Write a heap profile to this file on exit")
	cmd.PersistentFlags().StringVar(&profileOpts.TracePath, "profile-trace", "", "Write an execution trace to this file")
	_ = cmd.PersistentFlags().MarkHidden("profile-trace")

	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if err := startLogging(c, args); err != nil {
			return err
		}
		return startProfiling()
	}
	cmd.PersistentPostRunE = func(c *cobra.Command, args []string) error {
		perr := stopProfiling()
		if err := stopLogging(c, args); err != nil {
			return err
		}
		return perr
	}

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newLookupCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newFeedsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints failures for humans.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	// PersistentPostRunE is skipped when a command fails.
	if perr := stopProfiling(); err == nil {
		err = perr
	}
	_ = stopLogging(root, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, herrors.FormatForCLI(err))
	}
	return err
}

// startLogging installs the slog default. The config is loaded here only
// for its log level; commands load it again through loadConfig.
func startLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if cfg, err := loadConfig(); err == nil {
		logCfg.Level = cfg.Logging.Level
	}
	if debugMode {
		logCfg = logging.DebugConfig()
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Debug("logging_started",
		slog.String("log_file", logCfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

func startProfiling() error {
	if !profileOpts.Enabled() {
		return nil
	}
	s, err := profiling.Start(profileOpts, slog.Default())
	if err != nil {
		return herrors.IOError(herrors.ErrCodeFileWrite, "failed to start profiling", err)
	}
	profileSession = s
	return nil
}

func stopProfiling() error {
	s := profileSession
	profileSession = nil
	if err := s.Stop(); err != nil {
		return herrors.IOError(herrors.ErrCodeFileWrite, "failed to write profiles", err)
	}
	return nil
}

// loadConfig loads --config when given, otherwise the merged user and
// project configuration of the working directory.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		dir, _ := os.Getwd()
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return nil, herrors.ConfigError("failed to load configuration", err).
			WithSuggestion("Run 'hemin config show' to inspect the effective configuration")
	}
	return cfg, nil
}
