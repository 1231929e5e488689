// Package server exposes a running engine loop over HTTP.
//
// The server is a thin control surface: it renders the latest published
// frame on request, forwards posted events to the loop, and routes
// selection, resize and view commands. The view transform lives here, one
// per server, guarded by a mutex; the engine never sees it.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/retrocausal/pkg/buildinfo"
	"github.com/matzehuels/retrocausal/pkg/engine"
	"github.com/matzehuels/retrocausal/pkg/errors"
	"github.com/matzehuels/retrocausal/pkg/event"
	"github.com/matzehuels/retrocausal/pkg/nodegraph"
	"github.com/matzehuels/retrocausal/pkg/render"
	"github.com/matzehuels/retrocausal/pkg/render/ascii"
	"github.com/matzehuels/retrocausal/pkg/view"
)

const (
	commandTimeout  = 2 * time.Second
	maxRequestBody  = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Server routes HTTP requests to an engine loop.
type Server struct {
	loop    *engine.Loop
	logger  *log.Logger
	options []render.Option

	mu    sync.Mutex
	view  *view.View
	hover nodegraph.Name
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithRenderOptions sets the options used for /frame.svg.
func WithRenderOptions(opts ...render.Option) Option {
	return func(s *Server) { s.options = opts }
}

// New creates a Server for loop. The view starts at the size of the loop's
// current frame.
func New(loop *engine.Loop, opts ...Option) *Server {
	s := &Server{loop: loop, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	var w, h float64
	if f := loop.Frame(); f != nil {
		w, h = f.Layout.Width, f.Layout.Height
	}
	s.view = view.New(w, h)
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/frame.svg", s.handleFrameSVG)
	r.Get("/frame.txt", s.handleFrameText)
	r.Get("/stats", s.handleStats)
	r.Get("/hover", s.handleHover)

	r.Post("/events", s.handleEvents)
	r.Post("/select", s.handleSelect)
	r.Post("/resize", s.handleResize)

	r.Route("/view", func(r chi.Router) {
		r.Get("/", s.handleViewState)
		r.Post("/pan", s.handlePan)
		r.Post("/wheel", s.handleWheel)
		r.Post("/zoom-in", s.viewCommand((*view.View).ZoomIn))
		r.Post("/zoom-out", s.viewCommand((*view.View).ZoomOut))
		r.Post("/reset", s.viewCommand((*view.View).Reset))
		r.Post("/leave", s.viewCommand(func(v *view.View) {
			v.Leave()
			s.hover = ""
		}))
	})
	return r
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("serving", "addr", addr)

	select {
	case err := <-errc:
		return errors.Wrap(errors.ErrCodeNetwork, err, "listen %s", addr)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "shutdown")
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"dur", time.Since(start).Round(time.Microsecond),
			"id", middleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Read endpoints
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Get()})
}

func (s *Server) handleFrameSVG(w http.ResponseWriter, r *http.Request) {
	f := s.loop.Frame()
	v, hover := s.viewSnapshot()
	opts := append([]render.Option{}, s.options...)
	if hover != "" {
		opts = append(opts, render.WithHover(hover))
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(render.SVG(f, &v, opts...))
}

func (s *Server) handleFrameText(w http.ResponseWriter, r *http.Request) {
	cols, err := intParam(r, "cols", 100)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := intParam(r, "rows", 32)
	if err != nil {
		writeError(w, err)
		return
	}
	if cols < 1 || cols > 400 || rows < 1 || rows > 200 {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "cols must be in [1, 400] and rows in [1, 200]"))
		return
	}
	v, _ := s.viewSnapshot()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(ascii.Render(s.loop.Frame(), &v, cols, rows, ascii.WithPlain(), ascii.WithLabels())))
}

type statsResponse struct {
	Token event.Token  `json:"token"`
	Time  time.Time    `json:"time"`
	Stats engine.Stats `json:"stats"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	f := s.loop.Frame()
	writeJSON(w, http.StatusOK, statsResponse{Token: f.Token, Time: f.Time, Stats: f.Stats})
}

type hoverResponse struct {
	Node     nodegraph.Name `json:"node,omitempty"`
	Category string         `json:"category,omitempty"`
	Hits     float64        `json:"hits"`
}

// handleHover records the pointer at ?x=&y= and reports the node under it.
func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	x, err := floatParam(r, "x")
	if err != nil {
		writeError(w, err)
		return
	}
	y, err := floatParam(r, "y")
	if err != nil {
		writeError(w, err)
		return
	}
	f := s.loop.Frame()

	s.mu.Lock()
	s.view.Hover(x, y)
	n, ok := s.view.NodeAt(f.Layout, x, y)
	s.hover = ""
	if ok {
		s.hover = n.Name
	}
	s.mu.Unlock()

	resp := hoverResponse{}
	if ok {
		resp = hoverResponse{Node: n.Name, Category: n.Category.String(), Hits: f.HitsAt(n.Name)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Engine commands
// =============================================================================

type eventsResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Skipped  int `json:"skipped"`
}

// handleEvents stages a JSON array or NDJSON body of records.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, skipped, err := event.DecodeEvents(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := eventsResponse{Skipped: skipped}
	for _, ev := range events {
		if s.loop.Feed(ev) {
			resp.Accepted++
		} else {
			resp.Rejected++
		}
	}
	writeJSON(w, http.StatusAccepted, resp)
}

type selectResponse struct {
	Token   event.Token `json:"token"`
	Changed bool        `json:"changed"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var tok event.Token
	if err := decodeBody(w, r, &tok); err != nil {
		writeError(w, err)
		return
	}
	if err := errors.ValidateTokenAddress(tok.Address); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	changed, err := s.loop.Select(ctx, tok)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectResponse{Token: tok, Changed: changed})
}

type sizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req sizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Width < 0 || req.Height < 0 || req.Width > 16384 || req.Height > 16384 {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "size must be in [0, 16384]"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	if err := s.loop.Resize(ctx, req.Width, req.Height); err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	s.view.Resize(req.Width, req.Height)
	s.mu.Unlock()
	s.handleViewState(w, r)
}

// =============================================================================
// View commands
// =============================================================================

type viewState struct {
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
	Zoom   float64        `json:"zoom"`
	PanX   float64        `json:"pan_x"`
	PanY   float64        `json:"pan_y"`
	Hover  nodegraph.Name `json:"hover,omitempty"`
}

func (s *Server) viewSnapshot() (view.View, nodegraph.Name) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.view, s.hover
}

func (s *Server) handleViewState(w http.ResponseWriter, r *http.Request) {
	v, hover := s.viewSnapshot()
	writeJSON(w, http.StatusOK, viewState{
		Width: v.Width, Height: v.Height,
		Zoom: v.Zoom, PanX: v.PanX, PanY: v.PanY,
		Hover: hover,
	})
}

func (s *Server) viewCommand(fn func(*view.View)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		fn(s.view)
		s.mu.Unlock()
		s.handleViewState(w, r)
	}
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (s *Server) handlePan(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.viewCommand(func(v *view.View) { v.Pan(req.DX, req.DY) })(w, r)
}

type wheelRequest struct {
	DeltaY float64 `json:"delta_y"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (s *Server) handleWheel(w http.ResponseWriter, r *http.Request) {
	var req wheelRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.viewCommand(func(v *view.View) { v.Wheel(req.DeltaY, req.X, req.Y) })(w, r)
}

// =============================================================================
// Helpers
// =============================================================================

type errorResponse struct {
	Code  errors.Code `json:"code"`
	Error string      `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, errors.HTTPStatus(err), errorResponse{Code: code, Error: errors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%s must be an integer", name)
	}
	return v, nil
}

func floatParam(r *http.Request, name string) (float64, error) {
	v, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%s must be a number", name)
	}
	return v, nil
}
