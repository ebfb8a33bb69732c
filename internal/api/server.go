package api

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"MoonLamp/internal/device"
	"MoonLamp/internal/model"
)

// Source exposes the tracker's live state.
type Source interface {
	Latest() (*model.Signal, bool)
	Points() []model.PricePoint
}

// Server is the read-only status API.
type Server struct {
	logger   zerolog.Logger
	source   Source
	settings device.Settings
	engine   *gin.Engine
	srv      *http.Server
}

// NewServer builds the router. Call Start to listen.
func NewServer(logger zerolog.Logger, addr string, source Source, settings device.Settings) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	// The API is served directly; forwarding headers are never trusted.
	_ = engine.SetTrustedProxies(nil)
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		logger:   logger,
		source:   source,
		settings: settings,
		engine:   engine,
		srv: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health/live", s.healthLive)
	s.engine.GET("/status", s.status)
	s.engine.GET("/history", s.history)
	s.engine.GET("/device", s.device)
	s.engine.GET("/device/header", s.deviceHeader)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until ctx is cancelled, then shuts down gracefully. The
// returned channel is closed once the server has stopped.
func (s *Server) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.logger.Info().Str("addr", s.srv.Addr).Msg("status API listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("status API stopped")
		}
	}()
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("status API shutdown error")
		}
		<-stopped
	}()
	return done
}

func (s *Server) healthLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	sig, ok := s.source.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no price check completed yet"})
		return
	}
	c.JSON(http.StatusOK, sig)
}

func (s *Server) history(c *gin.Context) {
	points := s.source.Points()
	c.JSON(http.StatusOK, gin.H{
		"count":  len(points),
		"points": points,
	})
}

func (s *Server) device(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings":     s.settings.Redacted(),
		"placeholders": s.settings.Placeholders(),
	})
}

// deviceHeader renders config.h. It includes the WiFi password, so it is
// only served to loopback clients.
func (s *Server) deviceHeader(c *gin.Context) {
	if ip := net.ParseIP(c.RemoteIP()); ip == nil || !ip.IsLoopback() {
		c.JSON(http.StatusForbidden, gin.H{"error": "header is only available from localhost"})
		return
	}
	var buf bytes.Buffer
	if err := s.settings.Header(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
