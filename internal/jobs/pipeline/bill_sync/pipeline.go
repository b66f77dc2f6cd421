package bill_sync

import (
	"errors"
	"fmt"
	"strings"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	jobrt "github.com/sciezka-prawa/sciezka-backend/internal/jobs/runtime"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

// Payload keys: term, limit, since (RFC 3339 or date) and trigger.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	opts := services.SyncOptions{
		Trigger: jc.PayloadString("trigger"),
		JobID:   &jc.Job.ID,
	}
	if opts.Trigger == "" {
		opts.Trigger = types.SyncTriggerManual
	}
	if term, ok := jc.PayloadInt("term"); ok {
		opts.Term = term
	}
	if limit, ok := jc.PayloadInt("limit"); ok {
		opts.Limit = limit
	}
	if since, ok := jc.PayloadTime("since"); ok {
		opts.Since = since
	}

	lastPct := -1
	opts.Progress = func(processed, listed int) {
		if listed <= 0 {
			return
		}
		pct := processed * 100 / listed
		if pct == lastPct {
			return
		}
		lastPct = pct
		jc.Progress("sync", pct)
	}

	jc.Progress("sync", 0)
	report, err := p.sync.Run(jc.Ctx, opts)
	if errors.Is(err, services.ErrSyncInProgress) {
		// Another sync holds the lock and will pick up the same changes.
		p.log.Info("sync already running; job skipped", "job_id", jc.Job.ID)
		jc.Succeed("skipped", map[string]any{"skipped": "sync_in_progress"})
		return nil
	}
	if err != nil {
		jc.Fail("sync", err)
		return nil
	}
	if report.Status == types.SyncStatusFailed {
		jc.Fail("sync", fmt.Errorf("sync run %s failed: %s", report.RunID, strings.Join(report.Errors, "; ")))
		return nil
	}
	jc.Succeed("done", report)
	return nil
}
