package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/anime-shed/blur-effect-go/internal/analyzer"
	apperrors "github.com/anime-shed/blur-effect-go/internal/errors"
	"github.com/anime-shed/blur-effect-go/internal/logger"
	"github.com/anime-shed/blur-effect-go/internal/observer"
	"github.com/anime-shed/blur-effect-go/internal/repository"
	"github.com/anime-shed/blur-effect-go/internal/storage"
	"github.com/anime-shed/blur-effect-go/internal/strategy"
	"github.com/anime-shed/blur-effect-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// BlurAnalysisService defines the blur analysis use cases
type BlurAnalysisService interface {
	// Analyze fetches the image named by req.URL and estimates its blur
	Analyze(ctx context.Context, req models.BlurAnalysisRequest) (*models.BlurAnalysisResponse, error)

	// AnalyzeImage estimates the blur of an already decoded image
	AnalyzeImage(ctx context.Context, img image.Image, req models.BlurAnalysisRequest) (*models.BlurAnalysisResponse, error)

	GetAnalysis(ctx context.Context, id string) (*models.AnalysisResult, error)
	GetHistory(ctx context.Context, imageURL string) (*models.HistoryResponse, error)

	// Common validation
	ValidateImageURL(imageURL string) error
}

// Settings holds the defaults applied to requests and the time limits
type Settings struct {
	WindowSize      int
	Aggregate       string
	Threshold       float64
	Parallel        bool
	FetchTimeout    time.Duration
	AnalysisTimeout time.Duration
}

// DefaultSettings mirrors the analyzer defaults
func DefaultSettings() Settings {
	return Settings{
		WindowSize:      analyzer.DefaultWindowSize,
		Aggregate:       strategy.DefaultStrategy,
		Threshold:       analyzer.DefaultBlurThreshold,
		FetchTimeout:    15 * time.Second,
		AnalysisTimeout: 20 * time.Second,
	}
}

// blurAnalysisService implements BlurAnalysisService
type blurAnalysisService struct {
	imageRepo    repository.ImageRepository
	analysisRepo repository.AnalysisRepository
	analyzer     analyzer.BlurAnalyzer
	events       observer.Subject
	settings     Settings
}

// NewBlurAnalysisService creates a new service. analysisRepo and events may
// be nil to disable persistence and event publishing.
func NewBlurAnalysisService(
	imageRepository repository.ImageRepository,
	blurAnalyzer analyzer.BlurAnalyzer,
	analysisRepository repository.AnalysisRepository,
	events observer.Subject,
	settings Settings,
) BlurAnalysisService {
	return &blurAnalysisService{
		imageRepo:    imageRepository,
		analysisRepo: analysisRepository,
		analyzer:     blurAnalyzer,
		events:       events,
		settings:     settings,
	}
}

// Analyze validates the request, fetches the image and analyzes it
func (s *blurAnalysisService) Analyze(ctx context.Context, req models.BlurAnalysisRequest) (*models.BlurAnalysisResponse, error) {
	if err := s.ValidateImageURL(req.URL); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.NewValidationError("invalid image URL", err)
	}

	// Reject bad options before spending a download on them
	options, err := s.buildOptions(req)
	if err != nil {
		return nil, err
	}

	img, err := s.fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, img, req, options)
}

// AnalyzeImage analyzes an uploaded image
func (s *blurAnalysisService) AnalyzeImage(ctx context.Context, img image.Image, req models.BlurAnalysisRequest) (*models.BlurAnalysisResponse, error) {
	if img == nil {
		return nil, apperrors.NewValidationError("image is required", analyzer.ErrEmptyImage)
	}
	options, err := s.buildOptions(req)
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, img, req, options)
}

// GetAnalysis returns a stored analysis
func (s *blurAnalysisService) GetAnalysis(ctx context.Context, id string) (*models.AnalysisResult, error) {
	if s.analysisRepo == nil {
		return nil, apperrors.NewUnavailableError("analysis history is disabled", repository.ErrRepositoryUnavailable)
	}
	if id == "" {
		return nil, apperrors.NewValidationError("analysis id is required", nil)
	}
	result, err := s.analysisRepo.GetAnalysisResult(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAnalysisNotFound) {
			return nil, apperrors.NewNotFoundError("analysis not found", err)
		}
		return nil, apperrors.Wrap(err, "failed to load analysis")
	}
	return result, nil
}

// GetHistory returns the stored analyses of one image URL, newest first
func (s *blurAnalysisService) GetHistory(ctx context.Context, imageURL string) (*models.HistoryResponse, error) {
	if s.analysisRepo == nil {
		return nil, apperrors.NewUnavailableError("analysis history is disabled", repository.ErrRepositoryUnavailable)
	}
	if imageURL == "" {
		return nil, apperrors.NewValidationError("url is required", nil)
	}
	results, err := s.analysisRepo.GetAnalysisHistory(ctx, imageURL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load history")
	}

	response := &models.HistoryResponse{
		ImageURL: imageURL,
		Count:    len(results),
		Results:  make([]models.AnalysisResult, 0, len(results)),
	}
	for _, r := range results {
		response.Results = append(response.Results, *r)
	}
	return response, nil
}

// ValidateImageURL validates the image URL
func (s *blurAnalysisService) ValidateImageURL(imageURL string) error {
	return s.imageRepo.ValidateImageURL(imageURL)
}

// buildOptions turns request fields, falling back to the service defaults,
// into analysis options
func (s *blurAnalysisService) buildOptions(req models.BlurAnalysisRequest) (analyzer.AnalysisOptions, error) {
	aggregate := req.Aggregate
	if aggregate == "" {
		aggregate = s.settings.Aggregate
	}
	strat, err := strategy.Lookup(aggregate)
	if err != nil {
		return analyzer.AnalysisOptions{}, apperrors.NewValidationError("invalid aggregate", err)
	}
	options := strat.Apply(analyzer.DefaultOptions())

	switch {
	case req.WindowSize < 0:
		return options, apperrors.NewValidationError(fmt.Sprintf("window_size must be positive (got %d)", req.WindowSize), nil)
	case req.WindowSize > 0:
		options.Estimate.WindowSize = req.WindowSize
	case s.settings.WindowSize > 0:
		options.Estimate.WindowSize = s.settings.WindowSize
	}

	axis, err := analyzer.ParseChannelAxisValue(req.ChannelAxis)
	if err != nil {
		return options, apperrors.NewValidationError("invalid channel_axis", err)
	}
	options.Estimate.ChannelAxis = axis
	options.NoChannelAxis = analyzer.IsNoChannelAxis(req.ChannelAxis)

	threshold := s.settings.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold <= 0 || threshold > 1 {
		return options, apperrors.NewValidationError(fmt.Sprintf("threshold must be in (0, 1] (got %g)", threshold), nil)
	}
	options.BlurThreshold = threshold

	if s.settings.Parallel {
		options.Estimate = options.Estimate.WithParallel(0)
	}
	return options, nil
}

func (s *blurAnalysisService) fetch(ctx context.Context, imageURL string) (image.Image, error) {
	if s.settings.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.FetchTimeout)
		defer cancel()
	}

	start := time.Now()
	img, err := s.imageRepo.FetchImage(ctx, imageURL)
	if err != nil {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:      observer.ImageFetchFailed,
			ImageURL:       imageURL,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, mapFetchError(err)
	}

	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.ImageFetched,
		ImageURL:       imageURL,
		ProcessingTime: time.Since(start),
		Success:        true,
	})
	return img, nil
}

type analysisOutcome struct {
	result models.AnalysisResult
	err    error
}

// analyze runs the analyzer under the analysis timeout and persists the result
func (s *blurAnalysisService) analyze(ctx context.Context, img image.Image, req models.BlurAnalysisRequest, options analyzer.AnalysisOptions) (*models.BlurAnalysisResponse, error) {
	if s.settings.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.AnalysisTimeout)
		defer cancel()
	}

	done := make(chan analysisOutcome, 1)
	go func() {
		result, err := s.analyzer.AnalyzeWithOptions(img, options)
		done <- analysisOutcome{result: result, err: err}
	}()

	var outcome analysisOutcome
	select {
	case <-ctx.Done():
		return nil, apperrors.NewTimeoutError("analysis timed out", ctx.Err())
	case outcome = <-done:
	}
	if outcome.err != nil {
		return nil, mapAnalysisError(outcome.err)
	}

	result := outcome.result
	result.ImageURL = req.URL

	bounds := img.Bounds()
	response := &models.BlurAnalysisResponse{
		AnalysisResult: result,
		Image: models.ImageMetadata{
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
			Color:  result.Metrics.ChannelAxis != nil || len(result.Metrics.Shape) == 3,
		},
	}

	if s.analysisRepo != nil && (req.Persist == nil || *req.Persist) {
		if err := s.analysisRepo.SaveAnalysisResult(ctx, &response.AnalysisResult); err != nil {
			logger.WithFields(logrus.Fields{
				"analysis_id": result.ID,
				"image_url":   req.URL,
			}).WithError(err).Warn("Failed to persist analysis result")
		} else {
			response.Persisted = true
		}
	}

	return response, nil
}

func (s *blurAnalysisService) publish(ctx context.Context, event observer.AnalysisEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}

func mapFetchError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, repository.ErrInvalidImageURL), errors.Is(err, storage.ErrInvalidLocation):
		return apperrors.NewValidationError("invalid image URL", err)
	case errors.Is(err, storage.ErrImageTooLarge):
		return apperrors.NewValidationError("image exceeds the pixel limit", err)
	case errors.Is(err, storage.ErrImageNotFound):
		return apperrors.NewNotFoundError("image not found", err)
	case errors.Is(err, storage.ErrUnsupportedFormat):
		return apperrors.NewProcessingError("unsupported image format", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("image fetch timed out", err)
	default:
		return apperrors.NewNetworkError("failed to fetch image", err)
	}
}

func mapAnalysisError(err error) *apperrors.AppError {
	switch {
	case analyzer.IsInputError(err):
		return apperrors.NewValidationError("invalid analysis input", err)
	case errors.Is(err, analyzer.ErrUndefinedAxis):
		return apperrors.NewProcessingError("blur undefined", err)
	default:
		return apperrors.NewProcessingError("analysis failed", err)
	}
}
