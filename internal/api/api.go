package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"OdysseyFarmer/internal/config"
	"OdysseyFarmer/internal/model"
	"OdysseyFarmer/internal/scheduler"
)

// Worker is the control surface the HTTP host drives.
type Worker interface {
	Start(ctx context.Context, cfg config.Run) error
	Stop()
	Status(ctx context.Context) model.Status
}

// Handler serves the worker control endpoints.
type Handler struct {
	worker   Worker
	defaults config.Run
	log      zerolog.Logger
}

func NewHandler(w Worker, defaults config.Run, log zerolog.Logger) *Handler {
	return &Handler{worker: w, defaults: defaults, log: log.With().Str("component", "api").Logger()}
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog())

	g := r.Group("/api/worker")
	g.POST("/start", h.Start)
	g.POST("/stop", h.Stop)
	g.GET("/status", h.Status)
	g.GET("/health", h.Health)
	return r
}

// Start merges the JSON body over the configured run defaults and starts
// the worker. An empty body starts with the defaults.
func (h *Handler) Start(c *gin.Context) {
	cfg := h.defaults
	cfg.Actions = append([]string(nil), h.defaults.Actions...)
	cfg.Tokens = append([]string(nil), h.defaults.Tokens...)
	if err := c.ShouldBindJSON(&cfg); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request: " + err.Error()})
		return
	}

	err := h.worker.Start(c.Request.Context(), cfg)
	switch {
	case err == nil:
		st := h.worker.Status(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"ok": true, "runId": st.RunID})
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": err.Error()})
	}
}

func (h *Handler) Stop(c *gin.Context) {
	h.worker.Stop()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.worker.Status(c.Request.Context()))
}

// Health is a small liveness payload with the probe diagnosis.
func (h *Handler) Health(c *gin.Context) {
	st := h.worker.Status(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"running":  st.Running,
		"accounts": len(st.Accounts),
		"rpc":      st.RPC,
	})
}

func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Debug().Str("method", c.Request.Method).Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).Dur("took", time.Since(start)).Msg("request")
	}
}

// Serve runs an HTTP server on addr until ctx ends, then shuts it down.
func Serve(ctx context.Context, addr string, handler http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("http listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
