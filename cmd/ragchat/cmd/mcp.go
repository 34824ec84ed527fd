package cmd

import (
	"context"
	"fmt"

	"github.com/mfenderov/ragchat/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the MCP server for question answering.

The server communicates via stdio and provides three tools, each taking
the caller's session token:
  - ask_documents: Answer a question from the caller's documents
  - list_documents: List the caller's documents
  - get_document: Get the indexed text of one document

Example:
  ragchat mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var reader mcp.Reader
	if a.es != nil {
		reader = a.es
	}

	server := mcp.NewServer(mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
		Locator: a.locator,
	}, a.accounts, a.pipeline, a.docs, reader)

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
