// Package config loads the criticat configuration.
//
// Values are layered: built-in defaults, the YAML config file
// ($XDG_CONFIG_HOME/criticat/config.yaml or --config), a .envrc file in the
// working directory, CRITICAT_* environment variables and finally command
// line flags bound to the viper instance from [NewViper]. Google Cloud
// project and region fall back to the gcloud environment variables, and
// provider API keys are resolved from the environment, never from the file.
//
// The resulting [Config] is a plain value passed to constructors; no other
// package reads the environment.
package config
