package sidecar

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, tokenMode string) *Server {
	t.Helper()
	dir := t.TempDir()
	s, err := New(Options{
		DBPath:    filepath.Join(dir, "test.db"),
		IndexPath: filepath.Join(dir, "index.bleve"),
		RunsDir:   dir,
		Host:      "127.0.0.1",
		TokenMode: tokenMode,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.store.Close(); _ = s.index.Close() })
	return s
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body interface{}) *http.Response {
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
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealth_NoTokenRequired(t *testing.T) {
	s := newTestServer(t, "off")
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodGet, "/health", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, true, body["ok"])
}

func TestImportAndQuery_RoundTrip(t *testing.T) {
	s := newTestServer(t, "off")
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	content := base64.StdEncoding.EncodeToString([]byte("[1] hello world\n[2] goodbye world\n"))
	resp := doJSON(t, ts, http.MethodPost, "/import", "", map[string]interface{}{
		"format":          "numbered-line",
		"title":           "Doc",
		"language":        "en",
		"content_base64":  content,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp2 := doJSON(t, ts, http.MethodPost, "/index", "", nil)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3 := doJSON(t, ts, http.MethodPost, "/query", "", map[string]interface{}{"q": "hello"})
	defer resp3.Body.Close()
	require.Equal(t, http.StatusOK, resp3.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp3.Body).Decode(&body))
	hits, ok := body["hits"].([]interface{})
	require.True(t, ok)
	require.Len(t, hits, 1)
}

func TestWriteEndpoint_RequiresToken(t *testing.T) {
	s := newTestServer(t, "fixedtoken")
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodPost, "/import", "", map[string]interface{}{
		"format":         "numbered-line",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("[1] hi\n")),
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp2 := doJSON(t, ts, http.MethodPost, "/import", "fixedtoken", map[string]interface{}{
		"format":         "numbered-line",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("[1] hi\n")),
	})
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestReadEndpoint_NeverRequiresToken(t *testing.T) {
	s := newTestServer(t, "fixedtoken")
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodGet, "/documents", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDocumentMetadataUpdate(t *testing.T) {
	s := newTestServer(t, "off")
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodPost, "/import", "", map[string]interface{}{
		"format":         "numbered-line",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("[1] hi\n")),
	})
	var importBody map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&importBody))
	resp.Body.Close()
	doc := importBody["document"].(map[string]interface{})
	docID := doc["id"].(string)

	resp2 := doJSON(t, ts, http.MethodPost, "/documents/update", "", map[string]interface{}{
		"doc_id":   docID,
		"metadata": map[string]interface{}{"reviewed": true},
	})
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
}
