// Package main is the agrafes CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/agrafes/internal/cli"
	"github.com/hyperjump/agrafes/internal/config"
	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/sidecar"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/agrafes/config.yaml"

// loadConfig loads config from path. If path is the default and the file does not exist,
// it tries config.yaml in the current directory (for development).
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if path == defaultConfigPath {
			if unwrap := errors.Unwrap(err); unwrap != nil && os.IsNotExist(unwrap) {
				if cwd, cwdErr := os.Getwd(); cwdErr == nil {
					fallback := filepath.Join(cwd, "config.yaml")
					if _, statErr := os.Stat(fallback); statErr == nil {
						return config.Load(fallback)
					}
				}
			}
		}
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
		return cfg, nil
	}
	return cfg, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "import":
		runImport()
	case "index":
		runIndex()
	case "query":
		runQuery()
	case "align":
		runAlign()
	case "curate":
		runCurate()
	case "export":
		runExport()
	case "version", "--version", "-v":
		fmt.Printf("agrafes version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	host := fs.String("host", "", "override server.host")
	port := fs.Int("port", 0, "override server.port")
	tokenMode := fs.String("token-mode", "", "override server.token_mode (off|auto|<literal>)")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *tokenMode != "" {
		cfg.Server.TokenMode = *tokenMode
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	srv, err := sidecar.New(sidecar.Options{
		DBPath:    cfg.Storage.DatabasePath,
		IndexPath: cfg.Storage.IndexPath,
		RunsDir:   cfg.Storage.RunsDir,
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		TokenMode: cfg.Server.TokenMode,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to initialize sidecar", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
		return
	case <-sigChan:
	}

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	serverURL := fs.String("server", "http://127.0.0.1:8080", "sidecar URL")
	token := fs.String("token", "", "write token, if the sidecar requires one")
	format := fs.String("format", "numbered-line", "numbered-line|docx-paragraphs|tei-xml")
	title := fs.String("title", "", "document title")
	language := fs.String("language", "", "document language")
	role := fs.String("role", "", "document role")
	resourceType := fs.String("resource-type", "", "document resource type")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: agrafes import [flags] <file>")
		os.Exit(1)
	}
	content, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}

	body := map[string]interface{}{
		"format":          *format,
		"title":           *title,
		"language":        *language,
		"role":            *role,
		"resource_type":   *resourceType,
		"source_path":     fs.Arg(0),
		"content_base64":  base64.StdEncoding.EncodeToString(content),
	}
	resp, err := postJSON(*serverURL+"/import", *token, body)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(resp)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	serverURL := fs.String("server", "http://127.0.0.1:8080", "sidecar URL")
	token := fs.String("token", "", "write token, if the sidecar requires one")
	_ = fs.Parse(os.Args[2:])

	resp, err := postJSON(*serverURL+"/index", *token, nil)
	if err != nil {
		fmt.Printf("Index rebuild failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(resp)
}

// queryArgsReorder moves flags appearing after the query string to the
// front so flag.Parse sees them (Go's flag package stops at the first
// non-flag argument).
func queryArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	serverURL := fs.String("server", "http://127.0.0.1:8080", "sidecar URL")
	mode := fs.String("mode", "segment", "segment|kwic")
	limit := fs.Int("limit", 50, "page size")
	language := fs.String("language", "", "restrict to a language")
	docID := fs.String("doc", "", "restrict to a document id")
	format := fs.String("format", "text", "text|compact|json")
	args := queryArgsReorder(os.Args[2:])
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: agrafes query [flags] <query>")
		os.Exit(1)
	}

	body := map[string]interface{}{
		"q":        fs.Arg(0),
		"mode":     *mode,
		"limit":    *limit,
		"language": *language,
		"doc_id":   *docID,
	}
	out, err := postJSON(*serverURL+"/query", "", body)
	if err != nil {
		fmt.Printf("Query failed: %v\n", err)
		os.Exit(1)
	}
	data, err := json.Marshal(out)
	if err != nil {
		fmt.Printf("Query response re-encode failed: %v\n", err)
		os.Exit(1)
	}
	var resp models.QueryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		fmt.Printf("Query response decode failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteHits(os.Stdout, &resp, cli.OutputFormat(*format))
}

func runAlign() {
	fs := flag.NewFlagSet("align", flag.ExitOnError)
	serverURL := fs.String("server", "http://127.0.0.1:8080", "sidecar URL")
	token := fs.String("token", "", "write token, if the sidecar requires one")
	pivot := fs.String("pivot", "", "pivot document id")
	target := fs.String("target", "", "target document id")
	strategy := fs.String("strategy", "anchor", "anchor|position|similarity|external_id_then_position")
	simThreshold := fs.Float64("sim-threshold", 0.8, "similarity acceptance threshold")
	_ = fs.Parse(os.Args[2:])

	if *pivot == "" || *target == "" {
		fmt.Println("Usage: agrafes align --pivot <doc-id> --target <doc-id> [flags]")
		os.Exit(1)
	}

	body := map[string]interface{}{
		"pivot_doc_id":  *pivot,
		"target_doc_id": *target,
		"strategy":      *strategy,
		"sim_threshold": *simThreshold,
	}
	resp, err := postJSON(*serverURL+"/align", *token, body)
	if err != nil {
		fmt.Printf("Align failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(resp)
}

func runCurate() {
	fs := flag.NewFlagSet("curate", flag.ExitOnError)
	serverURL := fs.String("server", "http://127.0.0.1:8080", "sidecar URL")
	token := fs.String("token", "", "write token, if the sidecar requires one")
	docID := fs.String("doc", "", "document id ('' applies across the whole corpus)")
	pattern := fs.String("pattern", "", "regexp pattern to match")
	replacement := fs.String("replacement", "", "replacement text")
	apply := fs.Bool("apply", false, "apply the rule instead of only previewing it")
	_ = fs.Parse(os.Args[2:])

	if *pattern == "" {
		fmt.Println("Usage: agrafes curate --pattern <regexp> --replacement <text> [--doc <id>] [--apply]")
		os.Exit(1)
	}

	body := map[string]interface{}{
		"doc_id": *docID,
		"rules": []map[string]interface{}{
			{"pattern": *pattern, "replacement": *replacement},
		},
	}
	path := "/curate/preview"
	if *apply {
		path = "/curate"
	}
	resp, err := postJSON(*serverURL+path, *token, body)
	if err != nil {
		fmt.Printf("Curate failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(resp)
}

func runExport() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: agrafes export <tei|align_csv|run_report> [flags]")
		os.Exit(1)
	}
	kind := os.Args[2]

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	serverURL := fs.String("server", "http://127.0.0.1:8080", "sidecar URL")
	token := fs.String("token", "", "write token, if the sidecar requires one")
	docID := fs.String("doc", "", "document id (tei export)")
	runID := fs.String("run", "", "run id (run_report export; omit for all runs)")
	outPath := fs.String("out", "", "destination file path")
	html := fs.Bool("html", false, "render run_report as HTML instead of JSONL")
	_ = fs.Parse(os.Args[3:])

	if *outPath == "" {
		fmt.Println("Usage: agrafes export <kind> --out <path> [flags]")
		os.Exit(1)
	}

	var path string
	var body map[string]interface{}
	switch kind {
	case "tei":
		path = "/export/tei"
		body = map[string]interface{}{"doc_id": *docID, "path": *outPath}
	case "align_csv":
		path = "/export/align_csv"
		body = map[string]interface{}{"path": *outPath}
	case "run_report":
		path = "/export/run_report"
		body = map[string]interface{}{"run_id": *runID, "path": *outPath, "html": *html}
	default:
		fmt.Printf("Unknown export kind: %s\n", kind)
		os.Exit(1)
	}

	resp, err := postJSON(*serverURL+path, *token, body)
	if err != nil {
		fmt.Printf("Export failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(resp)
}

func postJSON(url, token string, body interface{}) (map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(sidecar.TokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if ok, _ := out["ok"].(bool); !ok {
		return out, fmt.Errorf("sidecar returned %d: %v", resp.StatusCode, out["error"])
	}
	return out, nil
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(data))
}

func printUsage() {
	fmt.Println(`agrafes - Local multilingual corpus search and alignment engine

Usage:
  agrafes server [flags]                    Start the HTTP sidecar
  agrafes import [flags] <file>             Import a document
  agrafes index [flags]                     Rebuild the full-text index
  agrafes query [flags] <query>             Search the corpus
  agrafes align [flags]                     Run alignment over a document pair
  agrafes curate [flags]                    Preview or apply a curation rule
  agrafes export <tei|align_csv|run_report> [flags]  Export data
  agrafes version                           Show version
  agrafes help                              Show this help

Server Flags:
  --config string      Config file path (default: /usr/local/etc/agrafes/config.yaml)
  --host string         Override server.host
  --port int            Override server.port
  --token-mode string   Override server.token_mode (off|auto|<literal>)

Most other subcommands talk to a running sidecar over HTTP:
  --server string   Sidecar URL (default: http://127.0.0.1:8080)
  --token string    Write token, if the sidecar was started with one

Examples:
  agrafes server --config config.yaml
  agrafes import --format tei-xml --title "Les Misérables" --language fr novel.xml
  agrafes query --language fr "misère"
  agrafes align --pivot doc-a --target doc-b --strategy external_id_then_position
  agrafes export run_report --out runs.jsonl`)
}
