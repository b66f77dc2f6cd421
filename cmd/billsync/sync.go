package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sciezka-prawa/sciezka-backend/internal/app"
	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

func (c *cli) syncCmd() *cobra.Command {
	var (
		term    int
		limit   int
		since   string
		enqueue bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync bills from the Sejm API",
		Long: `Fetch legislative processes for a Sejm term, classify them and store the
changes. With --enqueue a bill_sync job is queued for the workers instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sinceAt, err := parseSince(since)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := app.NewCore(ctx)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			defer a.Close(ctx)

			if enqueue {
				payload := map[string]any{"trigger": types.SyncTriggerCLI}
				if term > 0 {
					payload["term"] = term
				}
				if limit > 0 {
					payload["limit"] = limit
				}
				if sinceAt != nil {
					payload["since"] = sinceAt.Format(time.RFC3339)
				}
				job, err := a.Services.JobService.Enqueue(dbctx.Context{Ctx: ctx}, nil, services.JobTypeBillSync, payload)
				if err != nil {
					return fmt.Errorf("enqueue: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), job)
			}

			report, err := a.Services.Sync.Run(ctx, services.SyncOptions{
				Term:    term,
				Limit:   limit,
				Since:   sinceAt,
				Trigger: types.SyncTriggerCLI,
				Progress: func(processed, listed int) {
					if processed%25 == 0 || processed == listed {
						c.log.Info("sync progress", "processed", processed, "listed", listed)
					}
				},
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().IntVar(&term, "term", 0, "Sejm term (default SEJM_TERM)")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many processes")
	cmd.Flags().StringVar(&since, "since", "", "only processes changed on or after this date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "queue a bill_sync job instead of running inline")
	return cmd
}

func parseSince(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --since %q: want YYYY-MM-DD or RFC 3339", raw)
}
