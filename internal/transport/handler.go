package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anime-shed/blur-effect-go/internal/config"
	apperrors "github.com/anime-shed/blur-effect-go/internal/errors"
	"github.com/anime-shed/blur-effect-go/internal/logger"
	"github.com/anime-shed/blur-effect-go/internal/observer"
	"github.com/anime-shed/blur-effect-go/internal/report"
	"github.com/anime-shed/blur-effect-go/internal/service"
	"github.com/anime-shed/blur-effect-go/internal/storage"
	"github.com/anime-shed/blur-effect-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UploadScheme prefixes the image_url recorded for uploaded files
const UploadScheme = "upload://"

// NewHandler builds the gin router. metrics may be nil, in which case
// GET /metrics is not registered.
func NewHandler(svc service.BlurAnalysisService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.POST("/analyze", analyzeURL(svc, cfg))
	r.POST("/analyze/upload", analyzeUpload(svc, cfg))
	r.GET("/analyses/:id", getAnalysis(svc))
	r.GET("/analyses/:id/chart", getAnalysisChart(svc))
	r.GET("/history", getHistory(svc))
	if metrics != nil {
		r.GET("/metrics", metricsSnapshot(metrics))
	}

	return r
}

func analyzeURL(svc service.BlurAnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.BlurAnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, bodyErrorStatus(err), "invalid request format", err)
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			respondError(c, http.StatusBadRequest, "invalid request format", errors.New("url is required"))
			return
		}

		resp, err := svc.Analyze(ctx, req)
		if err != nil {
			respondAppError(c, "image analysis failed", err)
			return
		}

		logCompleted(req.URL, resp)
		c.JSON(http.StatusOK, resp)
	}
}

func analyzeUpload(svc service.BlurAnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondError(c, bodyErrorStatus(err), "multipart field \"file\" is required", err)
			return
		}

		req, err := uploadRequest(c)
		if err != nil {
			respondAppError(c, "invalid request format", err)
			return
		}
		req.URL = UploadScheme + fileHeader.Filename

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "failed to read upload", err)
			return
		}
		defer file.Close()

		img, format, err := storage.DecodeImageLimited(file, cfg.MaxImagePixels)
		if err != nil {
			respondAppError(c, "failed to decode upload", apperrors.NewValidationError("unsupported or corrupt image", err))
			return
		}

		resp, err := svc.AnalyzeImage(ctx, img, req)
		if err != nil {
			respondAppError(c, "image analysis failed", err)
			return
		}
		resp.Image.Format = format

		logCompleted(req.URL, resp)
		c.JSON(http.StatusOK, resp)
	}
}

// uploadRequest reads the analysis fields of a multipart form
func uploadRequest(c *gin.Context) (models.BlurAnalysisRequest, error) {
	var req models.BlurAnalysisRequest

	if v := strings.TrimSpace(c.PostForm("window_size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, apperrors.NewValidationError("window_size must be an integer", err)
		}
		req.WindowSize = n
	}
	if v, ok := c.GetPostForm("channel_axis"); ok {
		// Text is parsed by the service like any JSON string value
		req.ChannelAxis = v
	}
	req.Aggregate = c.PostForm("aggregate")
	if v := strings.TrimSpace(c.PostForm("threshold")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, apperrors.NewValidationError("threshold must be a number", err)
		}
		req.Threshold = &f
	}
	if v := strings.TrimSpace(c.PostForm("persist")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, apperrors.NewValidationError("persist must be a boolean", err)
		}
		req.Persist = &b
	}
	return req, nil
}

func getAnalysis(svc service.BlurAnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := svc.GetAnalysis(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondAppError(c, "failed to load analysis", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

var chartContentTypes = map[string]string{
	"png": "image/png",
	"svg": "image/svg+xml",
	"pdf": "application/pdf",
}

func getAnalysisChart(svc service.BlurAnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		format := strings.ToLower(c.DefaultQuery("format", "png"))
		contentType, ok := chartContentTypes[format]
		if !ok {
			respondError(c, http.StatusBadRequest, "unsupported chart format", fmt.Errorf("format %q", format))
			return
		}

		result, err := svc.GetAnalysis(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondAppError(c, "failed to load analysis", err)
			return
		}

		var buf bytes.Buffer
		if err := report.RenderAxisChart(&buf, result, format); err != nil {
			respondAppError(c, "failed to render chart", apperrors.NewInternalError("chart rendering failed", err))
			return
		}
		c.Data(http.StatusOK, contentType, buf.Bytes())
	}
}

func getHistory(svc service.BlurAnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		history, err := svc.GetHistory(c.Request.Context(), c.Query("url"))
		if err != nil {
			respondAppError(c, "failed to load history", err)
			return
		}
		c.JSON(http.StatusOK, history)
	}
}

func metricsSnapshot(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.GetMetrics())
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func logCompleted(imageURL string, resp *models.BlurAnalysisResponse) {
	fields := logrus.Fields{
		"url":                imageURL,
		"analysis_id":        resp.ID,
		"processing_time_ms": int64(resp.ProcessingTimeSec * 1000),
		"blurry":             resp.Quality.Blurry,
		"persisted":          resp.Persisted,
	}
	if resp.Metrics.BlurScore != nil {
		fields["blur_score"] = *resp.Metrics.BlurScore
	}
	logger.WithFields(fields).Info("Blur analysis completed successfully")
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"user_agent":  c.Request.UserAgent(),
			"ip":          c.ClientIP(),
		}).Debug("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// bodyErrorStatus distinguishes oversized bodies from malformed ones
func bodyErrorStatus(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func respondAppError(c *gin.Context, message string, err error) {
	respondError(c, determineStatusCode(err), message, err)
}

func respondError(c *gin.Context, code int, message string, err error) {
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
