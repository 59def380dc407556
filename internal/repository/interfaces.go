package repository

import (
	"context"
	"image"

	"github.com/anime-shed/blur-effect-go/pkg/models"
)

// ImageRepository defines the interface for image data access operations
type ImageRepository interface {
	// FetchImage retrieves an image from a URL
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)

	// ValidateImageURL validates if the provided URL is acceptable
	ValidateImageURL(imageURL string) error
}

// AnalysisRepository defines the interface for analysis result operations
type AnalysisRepository interface {
	// SaveAnalysisResult stores an analysis result, assigning an ID if it has none
	SaveAnalysisResult(ctx context.Context, result *models.AnalysisResult) error

	// GetAnalysisResult retrieves a stored analysis result
	GetAnalysisResult(ctx context.Context, id string) (*models.AnalysisResult, error)

	// GetAnalysisHistory retrieves analysis history for a specific image URL, newest first
	GetAnalysisHistory(ctx context.Context, imageURL string) ([]*models.AnalysisResult, error)

	Close() error
}
