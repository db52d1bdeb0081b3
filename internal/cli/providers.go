package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dshills/criticat/internal/providers"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect configured review providers",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured providers and whether they are usable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.AppendHeader(table.Row{"Name", "Kind", "Model", "Status"})
		for _, p := range cfg.Providers {
			p = p.WithDefaults()
			status := "ok"
			if err := p.Validate(); err != nil {
				status = err.Error()
			}
			tw.AppendRow(table.Row{p.Name, p.Kind, p.Model, status})
		}
		tw.Render()

		fmt.Fprintln(cmd.OutOrStdout(), "\nSupported kinds:")
		for _, k := range providers.Kinds {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s (default model %s)\n", k, providers.DefaultModel(k))
		}
		return nil
	},
}

var providersDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate provider credentials with a short request",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		usable, err := cfg.UsableProviders()
		if err != nil {
			return fail(cmd, err)
		}

		out := cmd.OutOrStdout()
		for _, p := range usable {
			fmt.Fprintf(out, "Checking %s (%s, %s)...\n", p.Name, p.Kind, p.Model)
			if err := pingProvider(cmd.Context(), p); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s: %v\n", p.Name, err)
				code := exitCodeFor(err)
				if code > exitCode {
					exitCode = code
				}
				continue
			}
			fmt.Fprintf(out, "OK: %s is configured and responding\n", p.Name)
		}
		return nil
	},
}

func pingProvider(ctx context.Context, p providers.ProviderConfig) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	m, err := providers.NewModel(ctx, p)
	if err != nil {
		return err
	}
	_, err = m.Generate(ctx, providers.Request{
		SystemPrompt: "Respond with exactly: ok",
		UserPrompt:   "ping",
		MaxTokens:    10,
	})
	return err
}

func init() {
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersDoctorCmd)
}
