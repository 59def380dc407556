package factory

import (
	"fmt"

	"github.com/anime-shed/blur-effect-go/internal/analyzer"
	"github.com/anime-shed/blur-effect-go/internal/observer"
	"github.com/anime-shed/blur-effect-go/internal/storage"
	"github.com/anime-shed/blur-effect-go/pkg/validation"
)

// AnalyzerType represents different types of blur analyzers
type AnalyzerType string

const (
	// StandardAnalyzer estimates axes one after another
	StandardAnalyzer AnalyzerType = "standard"
	// ParallelAnalyzer estimates all axes concurrently
	ParallelAnalyzer AnalyzerType = "parallel"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// StorageConfig carries the settings the storage backends need
type StorageConfig struct {
	HTTP HTTPConfig

	AzureAccountName string
	AzureAccountKey  string

	// LocalRoot confines local file access when non-empty
	LocalRoot string

	// MaxImagePixels caps decoded image size for every backend; zero keeps
	// storage.DefaultMaxImagePixels
	MaxImagePixels int64
}

// HTTPConfig is an alias to keep factory callers off the storage package
type HTTPConfig = storage.HTTPFetcherConfig

// AnalyzerFactory creates blur analyzers
type AnalyzerFactory interface {
	CreateAnalyzer(analyzerType AnalyzerType) (analyzer.BlurAnalyzer, analyzer.AnalysisOptions, error)
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
}

// analyzerFactory implements AnalyzerFactory
type analyzerFactory struct {
	validator *validation.QualityValidator
	events    observer.Subject
}

// NewAnalyzerFactory creates a new analyzer factory. Analyzers share the
// validator and publish to events.
func NewAnalyzerFactory(validator *validation.QualityValidator, events observer.Subject) AnalyzerFactory {
	return &analyzerFactory{validator: validator, events: events}
}

// CreateAnalyzer creates an analyzer and the default options for its type
func (f *analyzerFactory) CreateAnalyzer(analyzerType AnalyzerType) (analyzer.BlurAnalyzer, analyzer.AnalysisOptions, error) {
	var opts analyzer.AnalysisOptions
	switch analyzerType {
	case StandardAnalyzer:
		opts = analyzer.DefaultOptions()
	case ParallelAnalyzer:
		opts = analyzer.FastOptions()
	default:
		return nil, opts, fmt.Errorf("unsupported analyzer type: %s", analyzerType)
	}
	return analyzer.NewBlurAnalyzer(analyzer.NewBlurEstimator(), f.validator, f.events), opts, nil
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg StorageConfig
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg StorageConfig) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		httpCfg := f.cfg.HTTP
		if httpCfg.MaxAttempts == 0 {
			httpCfg = storage.DefaultHTTPFetcherConfig()
			if f.cfg.HTTP.Timeout > 0 {
				httpCfg.Timeout = f.cfg.HTTP.Timeout
			}
		}
		if f.cfg.MaxImagePixels > 0 {
			httpCfg.MaxPixels = f.cfg.MaxImagePixels
		}
		return storage.NewHTTPImageFetcherWithConfig(httpCfg), nil
	case AzureStorage:
		if f.cfg.AzureAccountName == "" || f.cfg.AzureAccountKey == "" {
			return nil, fmt.Errorf("azure storage requires an account name and key")
		}
		fetcher, err := storage.NewAzureBlobFetcher(f.cfg.AzureAccountName, f.cfg.AzureAccountKey)
		if err != nil {
			return nil, err
		}
		if f.cfg.MaxImagePixels > 0 {
			fetcher.MaxPixels = f.cfg.MaxImagePixels
		}
		return fetcher, nil
	case LocalStorage:
		fetcher := storage.NewLocalFileFetcher(f.cfg.LocalRoot)
		if f.cfg.MaxImagePixels > 0 {
			fetcher.MaxPixels = f.cfg.MaxImagePixels
		}
		return fetcher, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// SchemesFor returns the URL schemes served by a storage type
func SchemesFor(storageType StorageType) []string {
	switch storageType {
	case HTTPStorage:
		return []string{"http", "https"}
	case AzureStorage:
		return []string{storage.BlobScheme}
	case LocalStorage:
		return []string{"file"}
	default:
		return nil
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	AnalyzerFactory AnalyzerFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(storageCfg StorageConfig, validator *validation.QualityValidator, events observer.Subject) *ComponentFactory {
	return &ComponentFactory{
		AnalyzerFactory: NewAnalyzerFactory(validator, events),
		StorageFactory:  NewStorageFactory(storageCfg),
	}
}

// Fetchers builds one fetcher per requested storage type, keyed by URL scheme
func (c *ComponentFactory) Fetchers(types ...StorageType) (map[string]storage.ImageFetcher, error) {
	fetchers := make(map[string]storage.ImageFetcher)
	for _, t := range types {
		f, err := c.StorageFactory.CreateStorage(t)
		if err != nil {
			return nil, fmt.Errorf("storage %s: %w", t, err)
		}
		for _, scheme := range SchemesFor(t) {
			fetchers[scheme] = f
		}
	}
	return fetchers, nil
}
