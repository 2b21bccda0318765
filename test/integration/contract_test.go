// Package integration drives the sidecar's HTTP contract from the
// outside, the way the teacher's test/integration package drives the
// search server's HTTP API rather than calling its engines directly.
package integration

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agrafes/internal/sidecar"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	s, err := sidecar.New(sidecar.Options{
		DBPath:    filepath.Join(dir, "corpus.db"),
		IndexPath: filepath.Join(dir, "index.bleve"),
		RunsDir:   dir,
		Host:      "127.0.0.1",
	})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// TestEnvelope_SuccessShape checks the frozen success envelope (§4.J):
// ok, api_version, version, status, plus handler-specific fields spread
// at the top level.
func TestEnvelope_SuccessShape(t *testing.T) {
	ts := newServer(t)

	status, body := do(t, ts, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["ok"])
	require.Equal(t, "ok", body["status"])
	require.NotEmpty(t, body["api_version"])
	require.NotEmpty(t, body["version"])
	require.Contains(t, body, "pid")
	require.Contains(t, body, "disk_usage_bytes")
}

// TestEnvelope_ErrorShape checks the frozen error envelope and that a
// validation failure maps to 400/VALIDATION.
func TestEnvelope_ErrorShape(t *testing.T) {
	ts := newServer(t)

	status, body := do(t, ts, http.MethodPost, "/query", map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, false, body["ok"])
	require.Equal(t, "error", body["status"])
	require.Equal(t, "VALIDATION_ERROR", body["error_code"])
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "validation", errObj["type"])
	require.NotEmpty(t, errObj["message"])
}

// TestEnvelope_NotFoundShape checks that an unknown job ID maps to
// 404/NOT_FOUND rather than a generic 500.
func TestEnvelope_NotFoundShape(t *testing.T) {
	ts := newServer(t)

	status, body := do(t, ts, http.MethodGet, "/jobs/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", body["error_code"])
}

// TestDocumentListing_PaginationAndRelations covers /documents and
// /doc_relations against two imported documents linked by doc_relations/set.
func TestDocumentListing_PaginationAndRelations(t *testing.T) {
	ts := newServer(t)

	_, pivot := do(t, ts, http.MethodPost, "/import", map[string]interface{}{
		"format":         "numbered-line",
		"language":       "en",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("[1] one\n")),
	})
	pivotID := pivot["document"].(map[string]interface{})["id"].(string)

	_, target := do(t, ts, http.MethodPost, "/import", map[string]interface{}{
		"format":         "numbered-line",
		"language":       "fr",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("[1] un\n")),
	})
	targetID := target["document"].(map[string]interface{})["id"].(string)

	status, listed := do(t, ts, http.MethodGet, "/documents?limit=1", nil)
	require.Equal(t, http.StatusOK, status)
	docs := listed["documents"].([]interface{})
	require.Len(t, docs, 1)

	status, setResp := do(t, ts, http.MethodPost, "/doc_relations/set", map[string]interface{}{
		"doc_id":        pivotID,
		"target_doc_id": targetID,
		"relation_type": "translation",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, setResp["ok"])

	status, rels := do(t, ts, http.MethodGet, "/doc_relations?doc_id="+pivotID, nil)
	require.Equal(t, http.StatusOK, status)
	relList := rels["relations"].([]interface{})
	require.Len(t, relList, 1)
}

// TestValidateMeta_FlagsMissingLanguage covers /validate-meta against a
// document imported without a language tag.
func TestValidateMeta_FlagsMissingLanguage(t *testing.T) {
	ts := newServer(t)

	_, imported := do(t, ts, http.MethodPost, "/import", map[string]interface{}{
		"format":         "numbered-line",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("[1] hi\n")),
	})
	docID := imported["document"].(map[string]interface{})["id"].(string)

	status, body := do(t, ts, http.MethodPost, "/validate-meta", map[string]interface{}{"doc_id": docID})
	require.Equal(t, http.StatusOK, status)
	results := body["results"].([]interface{})
	require.Len(t, results, 1)
}

// TestJobs_EnqueueIndexAndPoll drives the async job runtime end to end:
// enqueue an index job, poll /jobs/{id} until it finishes, and confirm it
// shows up in /jobs.
func TestJobs_EnqueueIndexAndPoll(t *testing.T) {
	ts := newServer(t)

	do(t, ts, http.MethodPost, "/import", map[string]interface{}{
		"format":         "numbered-line",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("[1] hello\n")),
	})

	status, enq := do(t, ts, http.MethodPost, "/jobs/enqueue", map[string]interface{}{"kind": "index"})
	require.Equal(t, http.StatusOK, status)
	job := enq["job"].(map[string]interface{})
	jobID := job["id"].(string)

	var finalStatus string
	require.Eventually(t, func() bool {
		status, got := do(t, ts, http.MethodGet, "/jobs/"+jobID, nil)
		if status != http.StatusOK {
			return false
		}
		j := got["job"].(map[string]interface{})
		finalStatus = j["status"].(string)
		return finalStatus == "done" || finalStatus == "error"
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "done", finalStatus)

	status, listed := do(t, ts, http.MethodGet, "/jobs", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, listed["jobs"].([]interface{}))
}

// TestExportRunReport_WritesReadableFile drives the alignment-then-export
// path through the HTTP contract and confirms the exported file exists and
// is valid JSONL.
func TestExportRunReport_WritesReadableFile(t *testing.T) {
	ts := newServer(t)
	outDir := t.TempDir()

	_, pivot := do(t, ts, http.MethodPost, "/import", map[string]interface{}{
		"format":         "numbered-line",
		"language":       "en",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("[1] one\n[2] two\n")),
	})
	pivotID := pivot["document"].(map[string]interface{})["id"].(string)

	_, target := do(t, ts, http.MethodPost, "/import", map[string]interface{}{
		"format":         "numbered-line",
		"language":       "fr",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("[1] un\n[2] deux\n")),
	})
	targetID := target["document"].(map[string]interface{})["id"].(string)

	status, aligned := do(t, ts, http.MethodPost, "/align", map[string]interface{}{
		"pivot_doc_id":  pivotID,
		"target_doc_id": targetID,
		"strategy":      "anchor",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, aligned["ok"])

	outPath := filepath.Join(outDir, "report.jsonl")
	status, exported := do(t, ts, http.MethodPost, "/export/run_report", map[string]interface{}{"path": outPath})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, exported["ok"])

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
