package main

import (
	"context"
	"fmt"
	"os"

	"projtrack/internal/app"
	"projtrack/internal/config"
	"projtrack/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

type rootFlags struct {
	configDir string
	env       string
	verbose   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "projtrack",
		Short:         "projtrack - project and weekly task tracker",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", config.DefaultDir(), "Configuration directory")
	rootCmd.PersistentFlags().StringVar(&flags.env, "env", config.DefaultEnv(), "Configuration environment")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(importCmd(flags))
	rootCmd.AddCommand(exportCmd(flags))
	rootCmd.AddCommand(templateCmd())
	rootCmd.AddCommand(backupCmd(flags))
	rootCmd.AddCommand(restoreCmd(flags))
	rootCmd.AddCommand(statusCmd(flags))
	rootCmd.AddCommand(weeklyCmd(flags))
	rootCmd.AddCommand(sampleCmd(flags))
	rootCmd.AddCommand(clearCmd(flags))
	rootCmd.AddCommand(sweepCmd(flags))
	rootCmd.AddCommand(tokenCmd(flags))
	return rootCmd
}

func (f *rootFlags) loadConfig() (*config.Config, error) {
	return config.LoadFrom(f.env, f.configDir)
}

func (f *rootFlags) logger() *zap.Logger {
	if f.verbose {
		return logger.NewConsoleLogger("debug")
	}
	// CLI 默认只输出警告以上
	return logger.NewConsoleLogger("warn")
}

// openApp loads the configuration and wires the services for one command.
func (f *rootFlags) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.Options{}, f.logger())
}
