// Package cli wires together the Cobra command tree for the criticat binary.
//
// It defines the root command and all subcommands (review, serve, mcp, config,
// cache, history, providers, hook, version), binds flags onto the viper
// instance from config.NewViper, constructs the pipeline from the loaded
// configuration and returns deterministic exit codes for CI gating.
package cli
