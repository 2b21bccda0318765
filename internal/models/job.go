package models

import "time"

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobQueued   JobStatus = "queued"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobError    JobStatus = "error"
	JobCanceled JobStatus = "canceled"
)

// JobKind enumerates the job kinds supported by the job runtime.
type JobKind string

const (
	JobImport          JobKind = "import"
	JobIndex           JobKind = "index"
	JobCurate          JobKind = "curate"
	JobValidateMeta    JobKind = "validate-meta"
	JobSegment         JobKind = "segment"
	JobAlign           JobKind = "align"
	JobExportTEI       JobKind = "export_tei"
	JobExportAlignCSV  JobKind = "export_align_csv"
	JobExportRunReport JobKind = "export_run_report"
)

// Job is a transient in-memory record of asynchronous work.
type Job struct {
	ID         string                 `json:"id"`
	Kind       JobKind                `json:"kind"`
	Status     JobStatus              `json:"status"`
	Progress   int                    `json:"progress"`
	Message    string                 `json:"message,omitempty"`
	Params     map[string]interface{} `json:"params,omitempty"`
	Result     map[string]interface{} `json:"result,omitempty"`
	Error      *JobErrorInfo          `json:"error,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	StartedAt  *time.Time             `json:"started_at,omitempty"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}

// JobErrorInfo carries the typed error surfaced by a failed job.
type JobErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
