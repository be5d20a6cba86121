// Package cli implements the commitview command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vdye/commitview/internal/config"
	"github.com/vdye/commitview/internal/db"
	"github.com/vdye/commitview/internal/logging"
)

// globalOptions holds the persistent flags and what is derived from them
type globalOptions struct {
	configPath string
	repoPath   string
	backend    string
	logLevel   string
	logFile    string

	cfg       *config.Config
	logCloser io.Closer
}

// NewRootCmd creates the root cobra command
func NewRootCmd(version string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:          "commitview",
		Short:        "Inspect git commits through a read-only view",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", defaultConfigPath(), "path to the YAML config file")
	flags.StringVarP(&opts.repoPath, "repo", "C", "", "repository path (worktree, git directory or pebble store)")
	flags.StringVar(&opts.backend, "backend", "", "object storage backend: filesystem, pebble or memory")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(newShowCmd(opts))
	rootCmd.AddCommand(newLogCmd(opts))
	rootCmd.AddCommand(newImportCmd(opts))
	rootCmd.AddCommand(newExportGraphCmd(opts))

	// cobra skips post-run hooks when RunE fails, so each command closes the
	// log output itself
	for _, sub := range rootCmd.Commands() {
		sub.RunE = opts.closeLogAfter(sub.RunE)
	}

	return rootCmd
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "commitview", "config.yaml")
}

func (o *globalOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("repo") {
		cfg.Repository.Path = o.repoPath
	}
	if flags.Changed("backend") {
		cfg.Repository.Backend = o.backend
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = o.logFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closer, err := logging.Setup(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logCloser = closer

	log.WithFields(log.Fields{
		"config":  o.configPath,
		"repo":    cfg.Repository.Path,
		"backend": cfg.Repository.Backend,
	}).Debug("loaded configuration")
	return nil
}

func (o *globalOptions) closeLogAfter(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if closeErr := o.closeLog(); err == nil {
			err = closeErr
		}
		return err
	}
}

func (o *globalOptions) closeLog() error {
	if o.logCloser == nil {
		return nil
	}
	closer := o.logCloser
	o.logCloser = nil
	return closer.Close()
}

func (o *globalOptions) openRepository() (db.Database, error) {
	repo, err := db.Open(o.cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", o.cfg.Repository.Path, err)
	}
	return repo, nil
}

func revisionArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
