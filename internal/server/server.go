package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	"github.com/kernelmethod/worldmap/internal/log"
	"github.com/kernelmethod/worldmap/internal/pyramid"
	"github.com/kernelmethod/worldmap/internal/stitch"
	"github.com/kernelmethod/worldmap/internal/store"
	"github.com/kernelmethod/worldmap/pkg/tile"
)

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    int       `json:"uptime"`
	Version   string    `json:"version"`
}

// LocateResponse describes the zone containing a pixel
type LocateResponse struct {
	Zone   string `json:"zone"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	LocalX int    `json:"local_x"`
	LocalY int    `json:"local_y"`
}

// ErrorResponse is the body of every failed API request
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Server serves map tiles, rendering missing ones on demand
type Server struct {
	startTime time.Time
	version   string
	geom      tile.Geometry
	builder   *pyramid.Builder
	stitcher  *stitch.Stitcher
	store     *store.Store

	// Collapses concurrent renders of the same tile
	renders singleflight.Group
}

// NewServer creates a new server instance
func NewServer(version string, geom tile.Geometry, b *pyramid.Builder, st *stitch.Stitcher, s *store.Store) *Server {
	return &Server{
		startTime: time.Now(),
		version:   version,
		geom:      geom,
		builder:   b,
		stitcher:  st,
		store:     s,
	}
}

// Routes builds the HTTP handler with middleware and all endpoints mounted
func (s *Server) Routes(timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// CORS middleware for viewer access
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Wildcard so patterns with directories like {z}/{x}/{y}.png are served
	r.Get("/tiles/*", s.GetTile)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.GetHealth)
		r.Get("/stitch", s.GetStitchedImage)
		r.Get("/locate", s.GetLocate)
	})

	// Legacy health endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/v1/health", http.StatusMovedPermanently)
	})

	return r
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    int(time.Since(s.startTime).Seconds()),
		Version:   s.version,
	})
}

// GetTile serves a stored tile, generating it first when it does not exist yet
func (s *Server) GetTile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	id, ok := s.parseTileName(name)
	if !ok || !s.geom.Valid(id) {
		s.writeErrorResponse(w, r, http.StatusNotFound, "TILE_NOT_FOUND", fmt.Sprintf("no tile named %q", name))
		return
	}

	_, err, _ := s.renders.Do(id.String(), func() (interface{}, error) {
		// Detached so one cancelled request doesn't fail the others sharing the render
		return s.builder.RenderTile(context.WithoutCancel(r.Context()), id)
	})
	if err != nil {
		s.handleRenderError(w, r, err)
		return
	}

	data, err := s.store.ReadFile(id)
	if err != nil {
		s.handleRenderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Errorf("Error writing tile %s: %v", id, err)
	}
}

// parseTileName resolves a requested tile name. Names that only differ from
// the store pattern by their extension, like the viewer's .webp requests,
// resolve to the stored tile.
func (s *Server) parseTileName(name string) (tile.ID, bool) {
	if id, ok := s.store.Parse(name); ok {
		return id, true
	}
	ext := path.Ext(name)
	stored := path.Ext(s.store.Name(tile.ID{}))
	if ext == "" || ext == stored {
		return tile.ID{}, false
	}
	return s.store.Parse(strings.TrimSuffix(name, ext) + stored)
}

// GetStitchedImage returns an arbitrary rectangle of the map as PNG
func (s *Server) GetStitchedImage(w http.ResponseWriter, r *http.Request) {
	rect, err := parseRect(r)
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	img, err := s.stitcher.Assemble(r.Context(), rect)
	if err != nil {
		s.handleRenderError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := tile.EncodePNG(&buf, img); err != nil {
		s.handleRenderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Errorf("Error writing response: %v", err)
	}
}

// GetLocate reports the zone that contains a pixel
func (s *Server) GetLocate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.Atoi(q.Get("x"))
	y, errY := strconv.Atoi(q.Get("y"))
	if errX != nil || errY != nil {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_REQUEST", "x and y must be integers")
		return
	}

	p := tile.Pt(x, y)
	if !p.In(s.geom.Bounds()) {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "OUT_OF_BOUNDS",
			fmt.Sprintf("pixel %v outside the %dx%d map", p, s.geom.MapWidth(), s.geom.MapHeight()))
		return
	}

	locator := s.stitcher.Locator()
	local := locator.Local(p)
	s.writeJSON(w, http.StatusOK, LocateResponse{
		Zone:   locator.Locate(p).String(),
		X:      x,
		Y:      y,
		LocalX: local.X,
		LocalY: local.Y,
	})
}

// parseRect reads the x0, y0, x1 and y1 query parameters
func parseRect(r *http.Request) (tile.Rect, error) {
	q := r.URL.Query()
	var v [4]int
	for i, key := range []string{"x0", "y0", "x1", "y1"} {
		n, err := strconv.Atoi(q.Get(key))
		if err != nil {
			return tile.Rect{}, fmt.Errorf("%s must be an integer", key)
		}
		v[i] = n
	}
	return tile.R(v[0], v[1], v[2], v[3]), nil
}

// handleRenderError maps stitching and rendering failures to HTTP responses
func (s *Server) handleRenderError(w http.ResponseWriter, r *http.Request, err error) {
	var zoneErr *stitch.ZoneError
	var tileErr *store.TileError

	switch {
	case errors.Is(err, stitch.ErrInvalidRectangle), errors.Is(err, stitch.ErrOutOfBounds), errors.Is(err, stitch.ErrTooLarge):
		s.writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, pyramid.ErrNoSuchTile):
		s.writeErrorResponse(w, r, http.StatusNotFound, "TILE_NOT_FOUND", err.Error())
	case errors.As(err, &zoneErr):
		log.WithFields(log.Fields{"zone": zoneErr.Zone.String(), "path": zoneErr.Path}).Errorf("zone unavailable: %v", zoneErr.Err)
		s.writeErrorResponse(w, r, http.StatusInternalServerError, "ZONE_UNAVAILABLE", err.Error())
	case errors.As(err, &tileErr):
		log.WithField("tile", tileErr.Tile.String()).Errorf("tile unavailable: %v", tileErr.Err)
		s.writeErrorResponse(w, r, http.StatusInternalServerError, "TILE_UNAVAILABLE", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeErrorResponse(w, r, http.StatusGatewayTimeout, "TIMEOUT", "rendering timed out")
	default:
		log.Errorf("Internal error: %v", err)
		s.writeErrorResponse(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	s.writeJSON(w, statusCode, ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Error encoding response: %v", err)
	}
}

// requestLogger logs each request through the package logger
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Info("request")
	})
}
