package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobScheme is the URL scheme of blob locations: azblob://container/path/to/blob
const BlobScheme = "azblob"

// AzureBlobFetcher implements ImageFetcher for Azure Blob Storage
type AzureBlobFetcher struct {
	client *azblob.Client

	// MaxPixels caps width*height of downloaded images; zero means unlimited
	MaxPixels int64
}

// NewAzureBlobFetcher creates a fetcher authenticated with a shared key
func NewAzureBlobFetcher(accountName, accountKey string) (*AzureBlobFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &AzureBlobFetcher{client: client, MaxPixels: DefaultMaxImagePixels}, nil
}

// NewAzureBlobFetcherForService creates an anonymous fetcher against
// serviceURL, for public containers and storage emulators. maxRetries < 0
// disables retries.
func NewAzureBlobFetcherForService(serviceURL string, maxRetries int32) (*AzureBlobFetcher, error) {
	client, err := azblob.NewClientWithNoCredential(serviceURL, &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: maxRetries},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return &AzureBlobFetcher{client: client, MaxPixels: DefaultMaxImagePixels}, nil
}

// ParseBlobURL splits azblob://container/path/to/blob into its parts
func ParseBlobURL(blobURL string) (container, blob string, err error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	if u.Scheme != BlobScheme {
		return "", "", fmt.Errorf("invalid blob URL: scheme must be %s, got %q", BlobScheme, u.Scheme)
	}
	container = u.Host
	blob = strings.TrimPrefix(u.Path, "/")
	if container == "" || blob == "" {
		return "", "", fmt.Errorf("invalid blob URL: expected %s://container/blob, got %q", BlobScheme, blobURL)
	}
	return container, blob, nil
}

// FetchImage downloads and decodes the blob named by blobURL
func (s *AzureBlobFetcher) FetchImage(ctx context.Context, blobURL string) (image.Image, error) {
	container, blob, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("blob %s/%s: %w", container, blob, ErrImageNotFound)
		}
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	img, _, err := DecodeImageLimited(resp.Body, s.MaxPixels)
	return img, err
}
