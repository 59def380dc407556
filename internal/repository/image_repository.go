package repository

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/anime-shed/blur-effect-go/internal/storage"
	"github.com/anime-shed/blur-effect-go/pkg/validation"
)

// SchemeImageRepository implements ImageRepository by dispatching each URL
// to the fetcher registered for its scheme
type SchemeImageRepository struct {
	validator *validation.URLValidator
	fetchers  map[string]storage.ImageFetcher
}

// NewImageRepository creates a repository over fetchers keyed by URL scheme
func NewImageRepository(validator *validation.URLValidator, fetchers map[string]storage.ImageFetcher) *SchemeImageRepository {
	if validator == nil {
		validator = validation.NewURLValidator()
	}
	registered := make(map[string]storage.ImageFetcher, len(fetchers))
	for scheme, f := range fetchers {
		registered[strings.ToLower(scheme)] = f
	}
	return &SchemeImageRepository{
		validator: validator,
		fetchers:  registered,
	}
}

// NewHTTPImageRepository creates a repository that only serves http(s) URLs
func NewHTTPImageRepository(fetcher storage.ImageFetcher) *SchemeImageRepository {
	return NewImageRepository(
		validation.NewURLValidatorWithOptions([]string{"http", "https"}, nil),
		map[string]storage.ImageFetcher{"http": fetcher, "https": fetcher},
	)
}

// FetchImage retrieves an image from a URL
func (r *SchemeImageRepository) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	fetcher, err := r.fetcherFor(imageURL)
	if err != nil {
		return nil, err
	}
	return fetcher.FetchImage(ctx, imageURL)
}

// ValidateImageURL validates the URL and checks that a fetcher serves its scheme
func (r *SchemeImageRepository) ValidateImageURL(imageURL string) error {
	if err := r.validator.ValidateImageURL(imageURL); err != nil {
		return err
	}
	_, err := r.fetcherFor(imageURL)
	return err
}

// Schemes lists the schemes with a registered fetcher
func (r *SchemeImageRepository) Schemes() []string {
	schemes := make([]string, 0, len(r.fetchers))
	for s := range r.fetchers {
		schemes = append(schemes, s)
	}
	return schemes
}

func (r *SchemeImageRepository) fetcherFor(imageURL string) (storage.ImageFetcher, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageURL, err)
	}
	fetcher, ok := r.fetchers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: no fetcher for scheme %q", ErrInvalidImageURL, u.Scheme)
	}
	return fetcher, nil
}
