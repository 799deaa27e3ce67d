package labd

import (
	"cmp"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/wireless-lab/internal/narrator"
	"github.com/GoSim-25-26J-441/wireless-lab/internal/report"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/logger"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/models"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

//go:embed web/index.html
var webFS embed.FS

var indexTemplate = template.Must(template.New("index.html").
	Funcs(template.FuncMap{"num": report.FormatNumber}).
	ParseFS(webFS, "web/index.html"))

type HTTPServer struct {
	mux *http.ServeMux
	svc *Services
}

func NewHTTPServer(svc *Services) *HTTPServer {
	s := &HTTPServer{
		mux: http.NewServeMux(),
		svc: svc,
	}

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/simulations", s.handleSimulations)
	s.mux.HandleFunc("/v1/report", s.handleReport)
	s.mux.HandleFunc("/v1/procedures", s.handleProcedures)
	s.mux.HandleFunc("/v1/procedures/", s.handleProcedureByID)
	s.mux.HandleFunc("/v1/qos", s.handleQoS)
	s.mux.HandleFunc("/v1/playbacks", s.handlePlaybacks)
	s.mux.HandleFunc("/v1/playbacks/", s.handlePlaybackByID)
	if svc.MetricsPath != "" {
		s.mux.Handle(svc.MetricsPath, svc.Metrics.Handler())
	}

	return s
}

// Handler returns the mux wrapped with request metrics
func (s *HTTPServer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = utils.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r)
		route := s.routeLabel(r.URL.Path)
		s.svc.Metrics.ObserveHTTP(route, rec.status, time.Since(start))
		logger.Debug("http request",
			"request_id", reqID,
			"method", r.Method,
			"route", route,
			"status", rec.status)
	})
}

// statusRecorder captures the response code and keeps streaming responses flushable
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// routeLabel collapses ids so metric label cardinality stays bounded
func (s *HTTPServer) routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/procedures/"):
		if strings.HasSuffix(path, "/stream") {
			return "/v1/procedures/{id}/stream"
		}
		return "/v1/procedures/{id}"
	case strings.HasPrefix(path, "/v1/playbacks/"):
		switch {
		case strings.HasSuffix(path, ":start"):
			return "/v1/playbacks/{id}:start"
		case strings.HasSuffix(path, ":stop"):
			return "/v1/playbacks/{id}:stop"
		}
		return "/v1/playbacks/{id}"
	case path == "/", path == "/healthz", path == "/v1/simulations", path == "/v1/report",
		path == "/v1/procedures", path == "/v1/qos", path == "/v1/playbacks":
		return path
	case s.svc.MetricsPath != "" && path == s.svc.MetricsPath:
		return path
	}
	return "other"
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type indexPage struct {
	Networks     []models.NetworkType
	Environments []models.Environment
	Traffic      []models.TrafficProfile
	MinDevices   int
	MaxDevices   int

	Config    models.Configuration
	Sim       *models.Simulation
	Summary   string
	ReportURL template.URL
	Error     string

	Procedures   []narrator.Procedure
	Applications []string
	QoS          []narrator.QoSClass
}

// handleIndex serves the single page with the sampler form and the narrator
func (s *HTTPServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	page := indexPage{
		Networks:     models.AllNetworkTypes(),
		Environments: models.AllEnvironments(),
		Traffic:      models.AllTrafficProfiles(),
		MinDevices:   models.MinDevices,
		MaxDevices:   models.MaxDevices,
		Config:       models.DefaultConfiguration(),
		Procedures:   s.svc.Catalog.List(),
		Applications: narrator.Applications(),
		QoS:          narrator.QoSTable(),
	}

	status := http.StatusOK
	if r.URL.Query().Get("run") == "1" {
		cfg, err := configFromQuery(r.URL.Query())
		if err != nil {
			status = http.StatusBadRequest
			page.Error = err.Error()
		} else {
			sim := s.svc.Simulate(cfg)
			page.Config = cfg
			page.Sim = &sim
			page.Summary = report.TopologySummary(sim)
			page.ReportURL = template.URL("/v1/report?" + queryFromConfig(cfg).Encode())
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, page); err != nil {
		logger.Error("failed to render index page", "error", err)
	}
}

type simulationRequest struct {
	NetworkType string `json:"network_type"`
	Devices     *int   `json:"devices"`
	Environment string `json:"environment"`
	Traffic     string `json:"traffic"`
}

// configuration fills omitted fields from the default selection
func (req simulationRequest) configuration() (models.Configuration, error) {
	def := models.DefaultConfiguration()
	devices := def.Devices
	if req.Devices != nil {
		devices = *req.Devices
	}
	return models.NewConfiguration(
		cmp.Or(req.NetworkType, string(def.NetworkType)),
		devices,
		cmp.Or(req.Environment, string(def.Environment)),
		cmp.Or(req.Traffic, string(def.Traffic)),
	)
}

// configFromQuery reads network, devices, environment and traffic parameters
func configFromQuery(q url.Values) (models.Configuration, error) {
	req := simulationRequest{
		NetworkType: q.Get("network"),
		Environment: q.Get("environment"),
		Traffic:     q.Get("traffic"),
	}
	if v := q.Get("devices"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return models.Configuration{}, fmt.Errorf("%w: devices must be an integer, got %q", models.ErrInvalidConfiguration, v)
		}
		req.Devices = &n
	}
	return req.configuration()
}

func queryFromConfig(cfg models.Configuration) url.Values {
	q := url.Values{}
	q.Set("network", string(cfg.NetworkType))
	q.Set("devices", strconv.Itoa(cfg.Devices))
	q.Set("environment", string(cfg.Environment))
	q.Set("traffic", string(cfg.Traffic))
	return q
}

// handleSimulations handles POST /v1/simulations
func (s *HTTPServer) handleSimulations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req simulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	cfg, err := req.configuration()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sim := s.svc.Simulate(cfg)
	logger.Info("simulation computed (HTTP)",
		"network", cfg.NetworkType,
		"devices", cfg.Devices,
		"traffic", cfg.Traffic)
	s.writeJSON(w, http.StatusOK, simulationToJSON(sim))
}

// handleReport handles GET /v1/report
func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	cfg, err := configFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sim := s.svc.Simulate(cfg)
	s.svc.Metrics.ReportsTotal.Inc()

	w.Header().Set("Content-Type", report.ContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", report.ContentDisposition())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(report.Report(sim))); err != nil {
		logger.Error("failed to write report", "error", err)
	}
}

// handleProcedures handles GET /v1/procedures
func (s *HTTPServer) handleProcedures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	procs := s.svc.Catalog.List()
	out := make([]map[string]any, 0, len(procs))
	for _, p := range procs {
		out = append(out, procedureSummaryToJSON(p))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"procedures": out})
}

// handleProcedureByID handles /v1/procedures/{id} and /v1/procedures/{id}/stream
func (s *HTTPServer) handleProcedureByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/procedures/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "procedure ID is required")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if strings.HasSuffix(path, "/stream") {
		s.handleProcedureStream(w, r, strings.TrimSuffix(path, "/stream"))
		return
	}

	p, err := s.svc.Catalog.Get(path)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"procedure": p})
}

// parsePauseMs returns -1 when the parameter is absent
func parsePauseMs(v string) (int64, error) {
	if v == "" {
		return -1, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("%w: pause_ms must be a non-negative integer", ErrPauseOutOfRange)
	}
	return ms, nil
}

// handleProcedureStream handles GET /v1/procedures/{id}/stream (SSE)
func (s *HTTPServer) handleProcedureStream(w http.ResponseWriter, r *http.Request, id string) {
	q := r.URL.Query()
	pauseMs, err := parsePauseMs(q.Get("pause_ms"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pause, err := s.svc.Pacing(pauseMs)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("%v: at most %s", err, s.svc.MaxPause))
		return
	}
	proc, steps, err := s.svc.Catalog.Sequence(id, q.Get("app"), pause)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if err := s.sendSSEEvent(w, "start", map[string]any{
		"procedure": proc.ID,
		"name":      proc.Name,
		"total":     len(proc.Lines),
	}); err != nil {
		return
	}
	flusher.Flush()

	pb := narrator.NewPlayback(steps, s.svc.Clock())
	err = pb.Run(r.Context(), func(step narrator.Step) error {
		if err := s.sendSSEEvent(w, "line", map[string]any{
			"index": step.Index,
			"total": step.Total,
			"line":  step.Line,
		}); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	s.svc.Metrics.ObserveNarration(proc.ID, string(pb.State()), pb.Emitted())
	if err != nil {
		logger.Info("narration stream ended early",
			"procedure", proc.ID,
			"lines", pb.Emitted(),
			"error", err)
		return
	}

	if err := s.sendSSEEvent(w, "complete", map[string]any{
		"procedure": proc.ID,
		"lines":     pb.Emitted(),
	}); err == nil {
		flusher.Flush()
	}
}

// handleQoS handles GET /v1/qos and GET /v1/qos?app=
func (s *HTTPServer) handleQoS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	app := r.URL.Query().Get("app")
	if app == "" {
		s.writeJSON(w, http.StatusOK, map[string]any{"classes": narrator.QoSTable()})
		return
	}
	q, err := s.svc.LookupQoS(app)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"qos":  q,
		"line": q.Line(),
	})
}

// handlePlaybacks handles /v1/playbacks
func (s *HTTPServer) handlePlaybacks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreatePlayback(w, r)
	case http.MethodGet:
		s.handleListPlaybacks(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handlePlaybackByID handles /v1/playbacks/{id}, {id}:start and {id}:stop
func (s *HTTPServer) handlePlaybackByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/playbacks/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "playback ID is required")
		return
	}

	var action func(string) (PlaybackRecord, error)
	switch {
	case strings.HasSuffix(path, ":start"):
		path, action = strings.TrimSuffix(path, ":start"), s.svc.Executor.Start
	case strings.HasSuffix(path, ":stop"):
		path, action = strings.TrimSuffix(path, ":stop"), s.svc.Executor.Stop
	}

	if action != nil {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rec, err := action(path)
		if err != nil {
			s.writeError(w, statusForError(err), err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"playback": playbackToJSON(rec)})
		return
	}

	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rec, ok := s.svc.Store.Get(path)
	if !ok {
		s.writeError(w, http.StatusNotFound, "playback not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"playback": playbackToJSON(rec)})
}

// handleCreatePlayback handles POST /v1/playbacks
func (s *HTTPServer) handleCreatePlayback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Procedure   string `json:"procedure"`
		App         string `json:"app,omitempty"`
		PauseMs     *int64 `json:"pause_ms,omitempty"`
		CallbackURL string `json:"callback_url,omitempty"`
		Start       bool   `json:"start,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Procedure == "" {
		s.writeError(w, http.StatusBadRequest, "procedure is required")
		return
	}
	if req.CallbackURL != "" {
		if u, err := url.Parse(req.CallbackURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			s.writeError(w, http.StatusBadRequest, "callback_url must be an http(s) URL")
			return
		}
	}

	pauseMs := int64(-1)
	if req.PauseMs != nil {
		pauseMs = *req.PauseMs
		if pauseMs < 0 {
			s.writeError(w, http.StatusBadRequest, "pause_ms must be non-negative")
			return
		}
	}
	pause, err := s.svc.Pacing(pauseMs)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.svc.Executor.Create(PlaybackInput{
		Procedure:   req.Procedure,
		Application: req.App,
		Pause:       pause,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	if req.Start {
		if rec, err = s.svc.Executor.Start(rec.ID); err != nil {
			s.writeError(w, statusForError(err), err.Error())
			return
		}
	}

	logger.Info("playback created (HTTP)", "playback_id", rec.ID, "procedure", rec.Input.Procedure)
	s.writeJSON(w, http.StatusCreated, map[string]any{"playback": playbackToJSON(rec)})
}

// handleListPlaybacks handles GET /v1/playbacks
func (s *HTTPServer) handleListPlaybacks(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = min(parsed, 1000)
		}
	}
	recs := s.svc.Store.List(limit)
	out := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		out = append(out, playbackToJSON(rec))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"playbacks": out})
}

// sendSSEEvent writes one event as "event: <type>\ndata: <json>\n\n"
func (s *HTTPServer) sendSSEEvent(w http.ResponseWriter, eventType string, data map[string]any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to marshal SSE event data", "error", err)
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, jsonData); err != nil {
		logger.Debug("failed to write SSE event", "event", eventType, "error", err)
		return err
	}
	return nil
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, narrator.ErrUnknownProcedure),
		errors.Is(err, ErrPlaybackNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPlaybackTerminal):
		return http.StatusConflict
	case errors.Is(err, narrator.ErrApplicationMissing),
		errors.Is(err, narrator.ErrUnknownApplication),
		errors.Is(err, models.ErrInvalidConfiguration),
		errors.Is(err, ErrPauseOutOfRange),
		errors.Is(err, ErrPlaybackIDMissing):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Helper functions

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

func simulationToJSON(sim models.Simulation) map[string]any {
	return map[string]any{
		"config":    sim.Config,
		"metrics":   sim.Result,
		"summary":   report.TopologySummary(sim),
		"timestamp": sim.Timestamp.UTC().Format(time.RFC3339),
	}
}

func procedureSummaryToJSON(p narrator.Procedure) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"kind":        p.Kind,
		"description": p.Description,
		"lines":       len(p.Lines),
	}
}

func playbackToJSON(rec PlaybackRecord) map[string]any {
	lines := rec.Lines
	if lines == nil {
		lines = []string{}
	}
	return map[string]any{
		"id":                 rec.ID,
		"procedure":          rec.Input.Procedure,
		"name":               rec.Name,
		"app":                rec.Input.Application,
		"pause_ms":           rec.Input.Pause.Milliseconds(),
		"status":             string(rec.Status),
		"lines":              lines,
		"total":              rec.Total,
		"error":              rec.Error,
		"created_at_unix_ms": unixMs(rec.CreatedAt),
		"started_at_unix_ms": unixMs(rec.StartedAt),
		"ended_at_unix_ms":   unixMs(rec.EndedAt),
	}
}
