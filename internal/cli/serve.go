package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trackyard/trackyard/pkg/cache"
	trackerrors "github.com/trackyard/trackyard/pkg/errors"
	"github.com/trackyard/trackyard/pkg/network"
	"github.com/trackyard/trackyard/pkg/observability"
	"github.com/trackyard/trackyard/pkg/pipeline"
	"github.com/trackyard/trackyard/pkg/script"
)

// maxStepBody bounds POST /steps bodies.
const maxStepBody = 1 << 20

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve SCRIPT",
		Short: "Serve live snapshots of a replayed network over HTTP",
		Long: `Replay a script and keep the network in memory. Further edit steps can be
posted while it runs; every committed step bumps the revision.

Endpoints:
  GET  /snapshot/{format}  svg, json, dot or topology; camera via query
                           (scale, width, height, x, y, grid, editable, pinned)
  GET  /occupancy          segment occupancy grid as JSON
  GET  /stats              revision and graph counts
  POST /steps              apply one TOML step ([[op]] tables)
  GET  /healthz            liveness`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			return c.runServe(cmd.Context(), args[0], addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the snapshot cache")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, path, addr string, noCache bool) error {
	logger := loggerFromContext(ctx)

	s, err := script.Load(path)
	if err != nil {
		return err
	}
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return err
	}
	// Revisions restart with every server, so keys are scoped to this run.
	keyer := cache.NewScopedKeyer(nil, fmt.Sprintf("serve:%s:%s:", scriptName(path), uuid.NewString()))
	runner := pipeline.NewRunner(ch, keyer, logger)
	defer runner.Close()

	opts := c.pipelineOptions()
	opts.ScriptName = scriptName(path)
	if err := opts.ValidateForRender(); err != nil {
		return err
	}

	prog := newProgress(logger)
	g, res, err := runner.Replay(ctx, s, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Replayed %s: %d vertices, %d tracks", opts.ScriptName, g.VertexCount(), g.TrackCount()))

	hooks := logHooks{logger: logger}
	observability.SetHTTPHooks(hooks)
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	srv := newServer(g, res, runner, opts, logger)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.routes(),
		ReadTimeout:  c.Config.Server.ReadTimeout.Duration(),
		WriteTimeout: c.Config.Server.WriteTimeout.Duration(),
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	printSuccess("Serving %s", opts.ScriptName)
	printKeyValue("address", "http://"+addr)
	printKeyValue("snapshot", "http://"+addr+"/snapshot/svg")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// Server
// =============================================================================

// server owns a graph and serializes all access to it. Handlers copy what
// they need under the lock and render from the copy.
type server struct {
	runner *pipeline.Runner
	steps  *script.Runner
	opts   pipeline.Options
	logger *log.Logger

	mu       sync.Mutex
	graph    *network.Graph
	replay   *script.Result
	revision uint64
	// snaps memoizes snapshots of the current revision, keyed by pinned.
	snaps map[bool]*pipeline.Snapshot
}

func newServer(g *network.Graph, res *script.Result, runner *pipeline.Runner, opts pipeline.Options, logger *log.Logger) *server {
	sopts := []script.Option{script.WithLogger(logger)}
	if opts.StrictMoves {
		sopts = append(sopts, script.WithStrictMoves())
	}
	return &server{
		runner:   runner,
		steps:    script.NewRunner(sopts...),
		opts:     opts,
		logger:   logger,
		graph:    g,
		replay:   res,
		revision: 1,
		snaps:    map[bool]*pipeline.Snapshot{},
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observe)
	r.Use(middleware.Heartbeat("/healthz"))

	r.Get("/snapshot/{format}", s.handleSnapshot)
	r.Get("/occupancy", s.handleOccupancy)
	r.Get("/stats", s.handleStats)
	r.With(middleware.RequestSize(maxStepBody)).Post("/steps", s.handleStep)
	return r
}

// snapshot returns a snapshot of the current revision.
func (s *server) snapshot(ctx context.Context, pinned bool) (*pipeline.Snapshot, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.snaps[pinned]; ok {
		return snap, s.revision
	}
	opts := s.opts
	opts.Pinned = pinned
	snap := pipeline.TakeSnapshot(ctx, s.graph, opts)
	s.snaps[pinned] = snap
	return snap, s.revision
}

var contentTypes = map[string]string{
	pipeline.FormatSVG:      "image/svg+xml",
	pipeline.FormatJSON:     "application/json",
	pipeline.FormatDOT:      "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatTopology: "image/svg+xml",
}

func (s *server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	opts, err := s.renderOptions(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	snap, rev := s.snapshot(r.Context(), opts.Pinned)
	data, hit, err := s.runner.RenderSnapshot(r.Context(), snap, rev, format, opts)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Revision", strconv.FormatUint(rev, 10))
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.Write(data)
}

// renderOptions overlays query parameters on the server's defaults.
func (s *server) renderOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.opts
	q := r.URL.Query()
	floats := map[string]*float64{"scale": &opts.Scale, "x": &opts.OffsetX, "y": &opts.OffsetY, "tolerance": &opts.Tolerance}
	for name, dst := range floats {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, fmt.Errorf("%s: %w", name, err)
			}
			if err := trackerrors.ValidateFinite(f); err != nil {
				return opts, fmt.Errorf("%s: %w", name, err)
			}
			*dst = f
		}
	}
	ints := map[string]*int{"width": &opts.Width, "height": &opts.Height}
	for name, dst := range ints {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
	}
	bools := map[string]*bool{"grid": &opts.Grid, "editable": &opts.Editable, "pinned": &opts.Pinned}
	for name, dst := range bools {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, fmt.Errorf("%s: %w", name, err)
			}
			*dst = b
		}
	}
	return opts, opts.ValidateForRender()
}

type occupancyResponse struct {
	Revision uint64   `json:"revision"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Occupied [][]bool `json:"occupied"`
}

func (s *server) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	width, height := s.graph.World().Dimensions()
	resp := occupancyResponse{
		Revision: s.revision,
		Width:    width,
		Height:   height,
		Occupied: s.graph.Occupancy(),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	Revision uint64 `json:"revision"`
	Vertices int    `json:"vertices"`
	Tracks   int    `json:"tracks"`
	Steps    int    `json:"steps"`
	Rejected int    `json:"rejected"`
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := statsResponse{
		Revision: s.revision,
		Vertices: s.graph.VertexCount(),
		Tracks:   s.graph.TrackCount(),
		Steps:    len(s.replay.Steps),
		Rejected: s.replay.Rejected(),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

type stepResponse struct {
	Revision uint64           `json:"revision"`
	Name     string           `json:"name,omitempty"`
	Changes  string           `json:"changes"`
	Rejected int              `json:"rejected"`
	Resized  bool             `json:"resized,omitempty"`
	Vertices map[string]int64 `json:"vertices"`
	Tracks   map[string]int64 `json:"tracks"`
}

func (s *server) handleStep(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, err)
		return
	}
	step, err := script.ParseStep(body)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sr, err := s.steps.Apply(r.Context(), s.graph, *step, s.replay)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	// A resize moves every segment-relative position even when no record
	// changed.
	if !sr.Changes.Empty() || sr.Resized {
		s.revision++
		clear(s.snaps)
	}
	s.logger.Info("step applied", "name", sr.Name, "changes", sr.Changes.String(), "revision", s.revision)
	writeJSON(w, http.StatusOK, stepResponse{
		Revision: s.revision,
		Name:     sr.Name,
		Changes:  sr.Changes.String(),
		Rejected: sr.Rejected,
		Resized:  sr.Resized,
		Vertices: s.replay.Vertices,
		Tracks:   s.replay.Tracks,
	})
}

// =============================================================================
// Responses
// =============================================================================

// statusFor maps coded errors to HTTP statuses.
func statusFor(err error) int {
	switch trackerrors.GetCode(err) {
	case trackerrors.ErrCodeInvalidInput, trackerrors.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case trackerrors.ErrCodeNotFound:
		return http.StatusNotFound
	case trackerrors.ErrCodePrecondition, trackerrors.ErrCodeNoSolution:
		return http.StatusConflict
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: string(trackerrors.GetCode(err))})
}

// observe reports every request to the registered HTTP hooks.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
	})
}

// =============================================================================
// Hooks
// =============================================================================

// logHooks writes server and cache events to the CLI logger.
type logHooks struct {
	observability.NoopHTTPHooks
	logger *log.Logger
}

func (h logHooks) OnResponse(ctx context.Context, method, path string, status int, d time.Duration) {
	h.logger.Debug("request", "id", middleware.GetReqID(ctx), "method", method, "path", path, "status", status, "duration", d)
}

func (h logHooks) OnError(ctx context.Context, method, path string, err error) {
	h.logger.Warn("request failed", "id", middleware.GetReqID(ctx), "method", method, "path", path, "err", err)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}
