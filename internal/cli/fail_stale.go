package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/solmint/relay/internal/core/config"
	"github.com/solmint/relay/internal/infra/storage/postgres"
)

var failStaleCmd = &cobra.Command{
	Use:   "fail-stale [duration]",
	Short: "Fail every non-terminal message not updated within the given duration",
	Args:  cobra.ExactArgs(1),
	Run:   runFailStale,
}

func init() {
	rootCmd.AddCommand(failStaleCmd)
}

func runFailStale(cmd *cobra.Command, args []string) {
	staleAfter, err := time.ParseDuration(args[0])
	if err != nil {
		fmt.Printf("Invalid duration: %v\n", err)
		os.Exit(1)
	}

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

	// Direct SQL keeps this usable while the service is down. The same
	// transition runs through the reaper when the service is up.
	cutoff := time.Now().UTC().Add(-staleAfter)
	reason := fmt.Sprintf("abandoned: no status update within %s", staleAfter)

	rows, err := db.QueryContext(ctx,
		`UPDATE messages
		 SET status = 'FAILED', error = $1, updated_at = now()
		 WHERE status NOT IN ('COMPLETED', 'FAILED') AND updated_at < $2
		 RETURNING id`, reason, cutoff)
	if err != nil {
		slog.Error("Failed to fail stale messages", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	count := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO message_status_history (message_id, status, changed_at) VALUES ($1, 'FAILED', now())`,
			id); err != nil {
			slog.Warn("Failed to record history", "id", id, "error", err)
		}
		count++
	}

	fmt.Printf("Failed %d stale message(s) older than %s\n", count, staleAfter)
}
