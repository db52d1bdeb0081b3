package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/criticat/internal/config"
	"github.com/dshills/criticat/internal/providers"
)

// version is overridden at build time with -ldflags "-X".
var version = "0.1.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitIssues       = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var rootCmd = &cobra.Command{
	Use:          "criticat",
	Short:        "PDF formatting review with opinionated cats",
	Long:         "Criticat renders a PDF, asks vision models to review its layout, and optionally comments on the pull request that produced it.",
	SilenceUsage: true,
}

var (
	flagConfigFile string
	flagLogLevel   string
	flagLogFormat  string
)

// vp carries defaults, env and bound flags for the current invocation.
var vp *viper.Viper

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// Run executes the root command and returns an exit code.
func Run(ctx context.Context) int {
	exitCode = ExitSuccess
	vp = config.NewViper()
	bindFlags(vp)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

// bindFlags attaches every config-backed flag to v. Unchanged flags never
// override the file or environment.
func bindFlags(v *viper.Viper) {
	bind := func(key string, cmd *cobra.Command, name string) {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(name)
		}
		if f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
	bind("log.level", rootCmd, "log-level")
	bind("log.format", rootCmd, "log-format")

	bind("joke_mode", reviewCmd, "joke-mode")
	bind("gcp.project_id", reviewCmd, "project-id")
	bind("gcp.location", reviewCmd, "location")
	bind("provider", reviewCmd, "provider")
	bind("format", reviewCmd, "format")
	bind("report_dir", reviewCmd, "report-dir")
	bind("review.concurrency", reviewCmd, "concurrency")
	bind("review.dpi", reviewCmd, "dpi")
	bind("github.token", reviewCmd, "github-token")

	bind("server.addr", serveCmd, "addr")
}

func loadConfig() (config.Config, error) {
	if vp == nil {
		vp = config.NewViper()
	}
	return config.Load(vp, flagConfigFile)
}

// exitCodeFor maps a fatal error onto the exit code table.
func exitCodeFor(err error) int {
	var ce *config.ConfigurationError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &ce):
		return ExitUsageError
	case providers.IsAuthError(err):
		return ExitAuthError
	default:
		return ExitRuntimeError
	}
}

// fail reports err on stderr and records the matching exit code.
func fail(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	exitCode = exitCodeFor(err)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print criticat version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "criticat version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "Config file (default $XDG_CONFIG_HOME/criticat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)
}
