package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	hookMarkerStart = "# >>> criticat pre-commit hook >>>"
	hookMarkerEnd   = "# <<< criticat pre-commit hook <<<"
)

var (
	hookPDFPath  string
	hookBuildCmd string
	hookJokeMode string
	hookFormat   string
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the git pre-commit hook",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Review the built PDF before every commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(hookPDFPath) == "" {
			return fmt.Errorf("--pdf-path is required")
		}
		hookPath, err := getHookPath()
		if err != nil {
			return fail(cmd, err)
		}

		section := generateHookScript(hookPDFPath, hookBuildCmd, hookJokeMode, hookFormat)

		existing, err := os.ReadFile(hookPath)
		if err != nil && !os.IsNotExist(err) {
			return fail(cmd, fmt.Errorf("reading hook file: %w", err))
		}

		var content string
		if os.IsNotExist(err) || len(existing) == 0 {
			content = "#!/bin/sh\n" + section
		} else {
			content = replaceHookSection(string(existing), section)
		}

		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			return fail(cmd, fmt.Errorf("creating hooks directory: %w", err))
		}
		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			return fail(cmd, fmt.Errorf("writing hook file: %w", err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Installed criticat pre-commit hook at %s\n", hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the criticat pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath()
		if err != nil {
			return fail(cmd, err)
		}

		existing, err := os.ReadFile(hookPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No pre-commit hook found.")
				return nil
			}
			return fail(cmd, fmt.Errorf("reading hook file: %w", err))
		}

		content := removeHookSection(string(existing))

		// A hook that is only a shebang is deleted.
		trimmed := strings.TrimSpace(content)
		if trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash" {
			if err := os.Remove(hookPath); err != nil {
				return fail(cmd, fmt.Errorf("removing hook file: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed criticat pre-commit hook at %s\n", hookPath)
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			return fail(cmd, fmt.Errorf("writing hook file: %w", err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed criticat section from %s\n", hookPath)
		return nil
	},
}

func getHookPath() (string, error) {
	out, err := exec.Command("git", "rev-parse", "--git-dir").Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository (git rev-parse --git-dir failed)")
	}
	gitDir := strings.TrimSpace(string(out))
	return filepath.Join(gitDir, "hooks", "pre-commit"), nil
}

// shellQuote wraps s in single quotes for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func generateHookScript(pdfPath, buildCmd, jokeMode, format string) string {
	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	if buildCmd != "" {
		fmt.Fprintf(&b, "if ! %s; then\n", buildCmd)
		b.WriteString("  echo \"criticat: build failed, skipping review\"\n")
		b.WriteString("else\n")
	}
	fmt.Fprintf(&b, "criticat review --pdf-path %s --joke-mode %s --format %s --fail-on-issues --no-history\n",
		shellQuote(pdfPath), jokeMode, format)
	b.WriteString("CRITICAT_EXIT=$?\n")
	b.WriteString("if [ $CRITICAT_EXIT -eq 1 ]; then\n")
	b.WriteString("  echo \"criticat: formatting issues found, commit blocked\"\n")
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $CRITICAT_EXIT -ge 2 ]; then\n")
	b.WriteString("  echo \"criticat: review could not run (exit $CRITICAT_EXIT), allowing commit\"\n")
	b.WriteString("fi\n")
	if buildCmd != "" {
		b.WriteString("fi\n")
	}
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

func replaceHookSection(existing, section string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}

	before := existing[:startIdx]
	after := strings.TrimPrefix(existing[endIdx+len(hookMarkerEnd):], "\n")
	return before + section + after
}

func removeHookSection(existing string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		return existing
	}

	before := existing[:startIdx]
	after := strings.TrimPrefix(existing[endIdx+len(hookMarkerEnd):], "\n")
	return before + after
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookInstallCmd.Flags().StringVar(&hookPDFPath, "pdf-path", "", "PDF to review (required)")
	hookInstallCmd.Flags().StringVar(&hookBuildCmd, "build", "", "Command that builds the PDF first, e.g. \"latexmk -pdf resume.tex\"")
	hookInstallCmd.Flags().StringVar(&hookJokeMode, "joke-mode", "none", "Joke mode for hook runs")
	hookInstallCmd.Flags().StringVar(&hookFormat, "format", "text", "Output format")
}
