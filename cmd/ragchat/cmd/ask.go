package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mfenderov/ragchat/internal/apierr"
	"github.com/mfenderov/ragchat/pkg/models"
	"github.com/spf13/cobra"
)

var (
	askToken    string
	askDocument string
	askFormat   string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question from your documents",
	Long: `Answer a question from the documents of the user owning the session token.

Examples:
  # Basic question
  ragchat ask "what is the refund policy?" --token $TOKEN

  # Restrict to one document
  ragchat ask "when does it expire?" --token $TOKEN --document documents/<userId>/1a2b3c4d-contract.md

  # JSON output for scripting
  ragchat ask "summarize" --token $TOKEN --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askToken, "token", "", "session token (required)")
	askCmd.Flags().StringVar(&askDocument, "document", "", "restrict the answer to this document key or uri")
	askCmd.Flags().StringVar(&askFormat, "format", "text", "Output format: text or json")
	askCmd.MarkFlagRequired("token")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.accounts.Authenticate(ctx, "Bearer "+askToken)
	if err != nil {
		return errors.New(apierr.PublicMessage(err))
	}

	resp, err := a.pipeline.Ask(ctx, id, models.ChatRequest{
		Message:          args[0],
		TargetDocumentID: askDocument,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askFormat == "json" {
		output, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(resp.Response)
	if len(resp.Documents) > 0 {
		fmt.Printf("\nGrounded on %d excerpt(s):\n\n", len(resp.Documents))
		for i, doc := range resp.Documents {
			fmt.Printf("─── Excerpt %d ───\n%s\n\n", i+1, doc)
		}
	}
	return nil
}
