package models

import "time"

// RunKind enumerates the operations that produce a run record.
type RunKind string

const (
	RunInit    RunKind = "init"
	RunImport  RunKind = "import"
	RunIndex   RunKind = "index"
	RunQuery   RunKind = "query"
	RunCurate  RunKind = "curate"
	RunSegment RunKind = "segment"
	RunAlign   RunKind = "align"
	RunExport  RunKind = "export"
)

// Run is an immutable record of one operation, kept for audit and reporting.
type Run struct {
	ID        string                 `json:"id" db:"id"`
	Kind      RunKind                `json:"kind" db:"kind"`
	Params    map[string]interface{} `json:"params" db:"params"`
	Stats     map[string]interface{} `json:"stats" db:"stats"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}
