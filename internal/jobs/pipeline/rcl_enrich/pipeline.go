package rcl_enrich

import (
	jobrt "github.com/sciezka-prawa/sciezka-backend/internal/jobs/runtime"
)

// Run enriches one bill when the payload names bill_id, otherwise a batch of
// government bills of up to limit.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	if billID, ok := jc.PayloadUUID("bill_id"); ok {
		jc.Progress("enrich", 0)
		res, err := p.enrich.EnrichBill(jc.Ctx, billID)
		if err != nil {
			jc.Fail("enrich", err)
			return nil
		}
		jc.Succeed("done", res)
		return nil
	}

	limit, _ := jc.PayloadInt("limit")
	jc.Progress("enrich", 0)
	report, err := p.enrich.EnrichGovernmentBills(jc.Ctx, limit)
	if err != nil {
		jc.Fail("enrich", err)
		return nil
	}
	p.log.Info("rcl enrichment batch finished",
		"job_id", jc.Job.ID,
		"attempted", report.Attempted,
		"enriched", report.Enriched,
		"not_found", report.NotFound,
		"failed", report.Failed,
	)
	jc.Succeed("done", report)
	return nil
}
