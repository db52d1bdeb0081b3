package cli

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/dshills/criticat/internal/server"
	"github.com/dshills/criticat/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the review tool over MCP on stdio",
	Long: `Run an MCP server on stdin/stdout exposing a "review" tool with the same
arguments as the HTTP API plus github_token, repository and pr_number, so
MCP clients can also trigger the pull request comment. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		wo := wireOptions{}
		if db := openHistory(cfg, logger); db != nil {
			defer db.Close()
			wo.recorder = store.NewRunRepo(db)
		}

		srv, err := server.NewMCP(server.Config{
			Run:     apiRunner(cfg, wo, logger),
			Version: version,
			Logger:  logger,
		})
		if err != nil {
			return fail(cmd, err)
		}

		logger.Info("serving criticat MCP on stdio")
		if err := srv.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil && cmd.Context().Err() == nil {
			return fail(cmd, err)
		}
		return nil
	},
}
