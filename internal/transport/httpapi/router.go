// Package httpapi serves the assistant over a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"demandcast/internal/domain"
	"demandcast/internal/logger"
	"demandcast/internal/port"
	"demandcast/internal/transport/mcpserver"
)

// Handler holds the collaborators behind the API routes.
type Handler struct {
	assistant mcpserver.Answerer
	resolver  port.Resolver
	details   mcpserver.DetailsProvider
	log       *zap.SugaredLogger
}

// ForecastRequest is the body of POST /api/v1/forecast.
type ForecastRequest struct {
	Query string `json:"query"`
}

// NewRouter builds the gin engine. details may be nil, in which case the
// item details route answers 404.
func NewRouter(assistant mcpserver.Answerer, resolver port.Resolver, details mcpserver.DetailsProvider, log *zap.SugaredLogger) *gin.Engine {
	h := &Handler{
		assistant: assistant,
		resolver:  resolver,
		details:   details,
		log:       logger.OrNop(log),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(h.loggingMiddleware())
	r.Use(cors.Default())

	r.GET("/health", h.health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/forecast", h.forecast)
		v1.GET("/resolve", h.resolve)
		v1.GET("/items/:id", h.itemDetails)
	}
	return r
}

func (h *Handler) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Infow("HTTP request",
			logger.FieldHTTPMethod, c.Request.Method,
			logger.FieldPath, c.FullPath(),
			logger.FieldStatus, c.Writer.Status(),
			logger.FieldDurationMS, time.Since(start).Milliseconds(),
		)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "demandcast"})
}

func (h *Handler) forecast(c *gin.Context) {
	var req ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": h.assistant.Answer(c.Request.Context(), req.Query)})
}

func (h *Handler) resolve(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	matches, err := h.resolver.Resolve(c.Request.Context(), q)
	if err != nil {
		h.log.Warnw("Resolve failed", logger.FieldQuery, q, logger.FieldError, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (h *Handler) itemDetails(c *gin.Context) {
	if h.details == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item details require the postgres catalog source"})
		return
	}
	d, err := h.details.Details(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

// Serve runs the API on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log *zap.SugaredLogger) error {
	log = logger.OrNop(log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("HTTP API listening", logger.FieldTransport, "http", logger.FieldAddress, addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
