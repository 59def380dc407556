package container

import (
	"fmt"
	"net/http"

	"github.com/anime-shed/blur-effect-go/internal/analyzer"
	"github.com/anime-shed/blur-effect-go/internal/config"
	"github.com/anime-shed/blur-effect-go/internal/factory"
	"github.com/anime-shed/blur-effect-go/internal/logger"
	"github.com/anime-shed/blur-effect-go/internal/observer"
	"github.com/anime-shed/blur-effect-go/internal/repository"
	"github.com/anime-shed/blur-effect-go/internal/service"
	"github.com/anime-shed/blur-effect-go/internal/transport"
	"github.com/anime-shed/blur-effect-go/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	config              *config.Config
	events              *observer.EventPublisher
	metrics             *observer.MetricsObserver
	blurAnalyzer        analyzer.BlurAnalyzer
	imageRepository     *repository.SchemeImageRepository
	analysisRepository  *repository.SQLiteAnalysisRepository
	blurAnalysisService service.BlurAnalysisService
	handler             http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.Configure(cfg.LogLevel, cfg.LogFormat)

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	storageTypes := []factory.StorageType{factory.HTTPStorage}
	if cfg.AzureEnabled() {
		storageTypes = append(storageTypes, factory.AzureStorage)
	}
	if cfg.LocalImageRoot != "" {
		storageTypes = append(storageTypes, factory.LocalStorage)
	}

	httpCfg := factory.HTTPConfig{}
	httpCfg.Timeout = cfg.ImageFetchTimeout
	components := factory.NewComponentFactory(factory.StorageConfig{
		HTTP:             httpCfg,
		AzureAccountName: cfg.AzureStorageAccount,
		AzureAccountKey:  cfg.AzureStorageKey,
		LocalRoot:        cfg.LocalImageRoot,
		MaxImagePixels:   cfg.MaxImagePixels,
	}, validation.NewQualityValidator(), events)

	// Build dependency graph
	fetchers, err := components.Fetchers(storageTypes...)
	if err != nil {
		return nil, fmt.Errorf("failed to create image fetchers: %w", err)
	}

	schemes := make([]string, 0, len(fetchers))
	for scheme := range fetchers {
		schemes = append(schemes, scheme)
	}
	imageRepository := repository.NewImageRepository(validation.NewURLValidatorWithOptions(schemes, nil), fetchers)

	blurAnalyzer, _, err := components.AnalyzerFactory.CreateAnalyzer(factory.StandardAnalyzer)
	if err != nil {
		return nil, err
	}

	var analysisRepository *repository.SQLiteAnalysisRepository
	var analyses repository.AnalysisRepository
	if cfg.DatabasePath != "" {
		analysisRepository, err = repository.NewSQLiteAnalysisRepository(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open analysis database: %w", err)
		}
		analyses = analysisRepository
	}

	blurAnalysisService := service.NewBlurAnalysisService(imageRepository, blurAnalyzer, analyses, events, service.Settings{
		WindowSize:      cfg.BlurWindowSize,
		Aggregate:       cfg.BlurAggregate,
		Threshold:       cfg.BlurThreshold,
		FetchTimeout:    cfg.ImageFetchTimeout,
		AnalysisTimeout: cfg.AnalysisTimeout,
	})
	handler := transport.NewHandler(blurAnalysisService, metrics, cfg)

	logger.WithFields(logrus.Fields{
		"schemes":     schemes,
		"persistence": analysisRepository != nil,
		"aggregate":   cfg.BlurAggregate,
		"window_size": cfg.BlurWindowSize,
	}).Info("Container initialized")

	return &Container{
		config:              cfg,
		events:              events,
		metrics:             metrics,
		blurAnalyzer:        blurAnalyzer,
		imageRepository:     imageRepository,
		analysisRepository:  analysisRepository,
		blurAnalysisService: blurAnalysisService,
		handler:             handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the blur analysis service
func (c *Container) Service() service.BlurAnalysisService {
	return c.blurAnalysisService
}

// Metrics returns the metrics observer subscribed to analysis events
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// Close releases the analyzer and the analysis database
func (c *Container) Close() error {
	var firstErr error
	if err := c.blurAnalyzer.Close(); err != nil {
		firstErr = err
	}
	if c.analysisRepository != nil {
		if err := c.analysisRepository.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
