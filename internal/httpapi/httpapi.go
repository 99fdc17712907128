package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"venomshop/backend/internal/service"
	"venomshop/backend/internal/store"
	"venomshop/backend/internal/xid"
)

const (
	headerRequestID = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

type API struct {
	service       *service.Service
	allowedOrigin string
	gatherer      prometheus.Gatherer
	logger        *zap.Logger
}

func New(svc *service.Service, allowedOrigin string, gatherer prometheus.Gatherer, logger *zap.Logger) *API {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return &API{
		service:       svc,
		allowedOrigin: allowedOrigin,
		gatherer:      gatherer,
		logger:        logger,
	}
}

func (a *API) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(a.logger))
	r.Use(a.corsMiddleware())

	r.GET("/healthz", a.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")

	items := v1.Group("/items/:kind")
	items.GET("", a.handleListItems)
	items.POST("", a.handleAddItem)
	items.POST("/restock", a.handleRestock)
	items.GET("/:id", a.handleGetItem)
	items.PATCH("/:id", a.handleUpdateItem)
	items.DELETE("/:id", a.handleDeleteItem)
	v1.GET("/item-lookup", a.handleItemLookup)

	v1.POST("/transactions", a.handleRecordTransaction)
	v1.GET("/transactions", a.handleListTransactions)

	v1.GET("/analytics", a.handleAnalytics)
	v1.GET("/analytics/export", a.handleExport)

	v1.GET("/settings/date-range", a.handleGetDateRange)
	v1.PUT("/settings/date-range", a.handleSaveDateRange)

	v1.POST("/assistant/ask", a.handleAsk)

	return r
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if !xid.Valid(requestID) {
			requestID = xid.RequestID()
		}
		c.Set("request_id", requestID)
		c.Header(headerRequestID, requestID)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			fields = append(fields, zap.Error(lastErr.Err))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", fields...)
		case c.FullPath() == "/metrics":
			logger.Debug("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

func (a *API) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Access-Control-Allow-Origin", a.allowedOrigin)
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")
		h.Set("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		}
		c.Next()
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, store.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidQuantity), errors.Is(err, store.ErrInvalidTransaction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, store.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, store.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, store.ErrInvalidTransaction):
		return "invalid_request"
	default:
		return "internal_error"
	}
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": errorCode(err)})
}

// badRequest reports a malformed request body or parameter.
func badRequest(c *gin.Context, err error) {
	writeError(c, fmt.Errorf("%w: %v", store.ErrInvalidTransaction, err))
}
