package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mfenderov/ragchat/internal/access"
	"github.com/mfenderov/ragchat/internal/events"
	"github.com/spf13/cobra"
)

var (
	ingestKey    string
	ingestPrefix string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Re-index stored documents into Elasticsearch",
	Long: `Re-index documents already in the bucket.

Use this command after changing the index mapping, or to repair documents
whose sync failed at upload time.

Examples:
  # Re-sync one stored document
  ragchat ingest --key documents/<userId>/1a2b3c4d-policy.md

  # Re-index one user's folder
  ragchat ingest --prefix documents/<userId>/

  # Re-index everything
  ragchat ingest --prefix documents/`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestKey, "key", "", "storage key of one document")
	ingestCmd.Flags().StringVar(&ingestPrefix, "prefix", "", "storage prefix to re-index")
	ingestCmd.MarkFlagsOneRequired("key", "prefix")
	ingestCmd.MarkFlagsMutuallyExclusive("key", "prefix")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	slog.Debug("ingest command starting", "key", ingestKey, "prefix", ingestPrefix)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.engine == nil {
		return fmt.Errorf("search index not configured - check config file")
	}

	if ingestKey != "" {
		key := a.locator.Key(ingestKey)
		done, err := a.engine.Sync(ctx, events.DocumentChanged{
			Operation: events.Uploaded,
			Key:       key,
			Owner:     access.OwnerOf(key),
		})
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
		fmt.Printf("Synced %s (sync %s, indexed: %t)\n", done.Key, done.SyncID, done.Indexed)
		return nil
	}

	fmt.Printf("Ingesting: %s\n", ingestPrefix)

	result, err := a.engine.Reindex(ctx, ingestPrefix)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Docs indexed: %d\n", result.DocsIndexed)
	fmt.Printf("  Skipped: %d\n", result.Skipped)
	fmt.Printf("  Duration: %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("  Warnings: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	return nil
}
