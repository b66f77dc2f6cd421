package jobrun

const (
	WorkflowName = "job_run"
	ActivityRun  = "job_run_execute"
)

type RunResult struct {
	JobID    string `json:"job_id"`
	JobType  string `json:"job_type"`
	Status   string `json:"status"`
	Stage    string `json:"stage,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (r RunResult) Terminal() bool {
	return r.Status == "succeeded" || r.Status == "failed"
}
