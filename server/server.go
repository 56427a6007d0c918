// Package server exposes a small read-only HTTP status surface over the
// running aquarium: ingest counters, per-scene population, and the raw
// extracted sprites as PNG. It never mutates simulation state.
package server

import (
	"context"
	"database/sql"
	"errors"
	"image/png"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fishtank/aquarium"
	"fishtank/database"
)

// Server serves the status API on its own goroutine.
type Server struct {
	store   *aquarium.Store
	db      *sql.DB
	dropped func() uint64

	httpSrv *http.Server
	started time.Time
}

// New builds the server. dropped reports how many ingest events were
// shed under queue pressure.
func New(addr string, store *aquarium.Store, db *sql.DB, dropped func() uint64) *Server {
	s := &Server{
		store:   store,
		db:      db,
		dropped: dropped,
		started: time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	router.GET("/api/status", s.handleStatus)
	router.GET("/api/sprites/:id", s.handleSprite)

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s
}

// Start begins serving. Failure to bind is reported asynchronously via
// the log because the aquarium must keep running without the API.
func (s *Server) Start() {
	go func() {
		slog.Info("server: status API listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server: status API failed", "error", err)
		}
	}()
}

// Stop shuts the listener down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		slog.Warn("server: shutdown incomplete", "error", err)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type statusResponse struct {
	UptimeSeconds float64                `json:"uptime_seconds"`
	Ingest        *database.IngestStats  `json:"ingest"`
	DroppedEvents uint64                 `json:"dropped_events"`
	ActiveScene   int                    `json:"active_scene"`
	Scenes        []aquarium.SceneStatus `json:"scenes"`
}

func (s *Server) handleStatus(c *gin.Context) {
	stats, err := database.GetIngestStats(s.db)
	if err != nil {
		slog.Error("server: failed to read ingest stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		UptimeSeconds: time.Since(s.started).Seconds(),
		Ingest:        stats,
		DroppedEvents: s.dropped(),
		ActiveScene:   s.store.ActiveIndex(),
		Scenes:        s.store.Snapshot(),
	})
}

// handleSprite streams the extracted RGBA sprite for a live fish as
// PNG. Sprites for fish that have left are gone.
func (s *Server) handleSprite(c *gin.Context) {
	sprite := s.store.FindSprite(c.Param("id"))
	if sprite == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sprite not found"})
		return
	}

	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := png.Encode(c.Writer, sprite.Image); err != nil {
		slog.Warn("server: sprite encode failed", "id", sprite.ID, "error", err)
	}
}
