package store

import (
	"os"
	"path/filepath"
)

// DiskUsage reports the on-disk footprint of the sidecar's three
// persistence components (§4.J's disk_usage_bytes health field): the
// SQLite database file, the Bleve index directory, and the run-log
// directory.
type DiskUsage struct {
	DatabaseBytes int64 `json:"database_bytes"`
	IndexBytes    int64 `json:"index_bytes"`
	RunsBytes     int64 `json:"runs_bytes"`
	TotalBytes    int64 `json:"total_bytes"`
}

// ComputeDiskUsage sums the size of the database file, the index
// directory, and the runs directory. A missing path contributes 0 rather
// than an error, since a fresh sidecar may not have built its index or
// logged a run yet.
func ComputeDiskUsage(dbPath, indexPath, runsDir string) (DiskUsage, error) {
	db, err := pathSize(dbPath)
	if err != nil {
		return DiskUsage{}, err
	}
	index, err := pathSize(indexPath)
	if err != nil {
		return DiskUsage{}, err
	}
	runs, err := pathSize(runsDir)
	if err != nil {
		return DiskUsage{}, err
	}
	return DiskUsage{
		DatabaseBytes: db,
		IndexBytes:    index,
		RunsBytes:     runs,
		TotalBytes:    db + index + runs,
	}, nil
}

// pathSize returns the size in bytes of path, which may be a file or a
// directory (recursively summed). A missing path contributes 0.
func pathSize(path string) (int64, error) {
	if path == "" {
		return 0, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if info.IsDir() {
		return dirSize(path)
	}
	return info.Size(), nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info != nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
