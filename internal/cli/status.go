package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solmint/relay/internal/core/config"
	"github.com/solmint/relay/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent cross-chain messages and their statuses",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.QueryContext(ctx,
		`SELECT id, destination_chain, message_type, status, updated_at
		 FROM messages ORDER BY created_at DESC LIMIT 50`)
	if err != nil {
		slog.Error("Failed to query messages", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "MESSAGE\tDESTINATION\tTYPE\tSTATUS\tUPDATED")

	for rows.Next() {
		var id, dest, msgType, status string
		var updatedAt time.Time
		if err := rows.Scan(&id, &dest, &msgType, &status, &updatedAt); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			id, dest, msgType, status, updatedAt.UTC().Format(time.RFC3339))
	}
	_ = w.Flush()
}
