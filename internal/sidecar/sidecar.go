// Package sidecar implements the loopback-only HTTP server that exposes
// the query, alignment, curation, run-log, and job-runtime engines to
// external collaborators (§4.J).
package sidecar

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/agrafes/internal/align"
	"github.com/hyperjump/agrafes/internal/curate"
	"github.com/hyperjump/agrafes/internal/ftsindex"
	"github.com/hyperjump/agrafes/internal/ingest"
	"github.com/hyperjump/agrafes/internal/jobs"
	"github.com/hyperjump/agrafes/internal/query"
	"github.com/hyperjump/agrafes/internal/runlog"
	"github.com/hyperjump/agrafes/internal/store"
)

// Version is overridden by cmd/agrafes at link time.
var Version = "dev"

// Options configures a Server at construction time.
type Options struct {
	DBPath    string
	IndexPath string
	RunsDir   string
	Host      string
	Port      int
	TokenMode string
	Logger    *zap.Logger
}

// Server is the loopback HTTP sidecar: one process, one database, one
// writer. It owns every engine the HTTP layer fronts.
type Server struct {
	dbPath    string
	indexPath string
	runsDir   string
	host    string
	port    int
	token   string
	version string
	logger  *zap.Logger

	store    *store.Store
	index    *ftsindex.Index
	importer *ingest.Importer
	query    *query.Engine
	align    *align.Engine
	curate   *curate.Engine
	runs     *runlog.Log
	jobs     *jobs.Runtime

	httpServer *http.Server
	listener   net.Listener
	startedAt  time.Time
	runID      string
}

// New wires every engine over one store + index, per opts.
func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := store.Open(opts.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	idx, err := ftsindex.Open(opts.IndexPath)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open fts index: %w", err)
	}

	token, err := resolveToken(opts.TokenMode)
	if err != nil {
		_ = idx.Close()
		_ = st.Close()
		return nil, err
	}

	runs := runlog.New(st, opts.RunsDir)

	return &Server{
		dbPath:    opts.DBPath,
		indexPath: opts.IndexPath,
		runsDir:   opts.RunsDir,
		host:     opts.Host,
		port:     opts.Port,
		token:    token,
		version:  Version,
		logger:   logger,
		store:    st,
		index:    idx,
		importer: ingest.NewImporter(st, ingest.WithLogger(logger), ingest.WithRunLog(runs)),
		query:    query.New(st, idx, logger),
		align:    align.New(st, logger),
		curate:   curate.New(st, logger, runs),
		runs:     runs,
		jobs:     jobs.New(logger, 0),
	}, nil
}

// startupRecord is the single JSON object the sidecar emits to stdout
// before serving any request (§6).
type startupRecord struct {
	Status    string `json:"status"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	PID       int    `json:"pid"`
	Portfile  string `json:"portfile"`
	RunID     string `json:"run_id,omitempty"`
}

// Start performs the full lifecycle described in §4.J: already-running
// detection, listener binding, discovery-file write, stdout announcement,
// and serving. It blocks until the HTTP server is shut down; canceling ctx
// stops the job runtime's worker but not the HTTP server. Shutdown, called
// from a signal handler or by a POST /shutdown request, ends the wait.
func (s *Server) Start(ctx context.Context) error {
	if existing, err := readDiscovery(s.dbPath); err == nil {
		if processAlive(existing.PID) && probeHealth(existing.Host, existing.Port) {
			emitStartup(startupRecord{
				Status:   "already_running",
				Host:     existing.Host,
				Port:     existing.Port,
				PID:      existing.PID,
				Portfile: discoveryPath(s.dbPath),
			})
			return nil
		}
		_ = removeDiscovery(s.dbPath)
	}

	port := s.port
	if port == 0 {
		p, err := freePort(s.host)
		if err != nil {
			return fmt.Errorf("find free port: %w", err)
		}
		port = p
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, fmt.Sprintf("%d", port)))
	if err != nil {
		return fmt.Errorf("bind listener: %w", err)
	}
	s.listener = ln
	s.port = port
	s.startedAt = time.Now().UTC()
	s.runID = fmt.Sprintf("sidecar-%d", os.Getpid())

	d := &discovery{
		Host:      s.host,
		Port:      s.port,
		PID:       os.Getpid(),
		StartedAt: s.startedAt.Format(time.RFC3339),
		DBPath:    s.dbPath,
		Token:     s.token,
	}
	if err := writeDiscovery(s.dbPath, d); err != nil {
		_ = ln.Close()
		return fmt.Errorf("write discovery file: %w", err)
	}

	s.jobs.Start(ctx)

	router := s.routes()
	s.httpServer = &http.Server{Handler: router}

	emitStartup(startupRecord{
		Status:   "listening",
		Host:     s.host,
		Port:     s.port,
		PID:      os.Getpid(),
		Portfile: discoveryPath(s.dbPath),
		RunID:    s.runID,
	})

	s.logger.Info("sidecar listening", zap.String("host", s.host), zap.Int("port", s.port))
	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func emitStartup(r startupRecord) {
	data, _ := json.Marshal(r)
	fmt.Fprintln(os.Stdout, string(data))
}

// Shutdown closes the listener, closes the database, and removes the
// discovery file. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http server shutdown error", zap.Error(err))
		}
	}
	_ = removeDiscovery(s.dbPath)
	if err := s.index.Close(); err != nil {
		s.logger.Warn("fts index close error", zap.Error(err))
	}
	return s.store.Close()
}

// Handler returns the sidecar's HTTP handler without going through the
// Start/Shutdown process lifecycle — for embedding the sidecar under a
// caller-owned listener, or for in-process testing via httptest. It starts
// the job runtime's worker, which then runs for the life of the process.
func (s *Server) Handler() http.Handler {
	s.jobs.Start(context.Background())
	return s.routes()
}

// Token returns the resolved write-auth token ("" if token_mode is off).
func (s *Server) Token() string {
	return s.token
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	s.mountRoutes(r)
	return r
}
