package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/peersenco/storefront-backend/pkg/config"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

const pingTimeout = 5 * time.Second

// ErrObjectNotFound is returned when deleting an object that does not exist.
var ErrObjectNotFound = errors.New("gcs object not found")

type Pinger interface {
	Ping(ctx context.Context) error
}

// Client talks to one public bucket through the Cloud Storage JSON API.
type Client struct {
	objects       *storage.ObjectsService
	buckets       *storage.BucketsService
	bucket        string
	publicBaseURL string
}

// NewClient builds a client from service account JSON, a credentials file, or
// the ambient application default credentials, then checks the bucket.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	var opts []option.ClientOption
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	opts = append(opts, option.WithScopes(storage.DevstorageReadWriteScope))

	client, err := NewWithOptions(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", client.bucket), "gcs client initialized")
	}
	return client, nil
}

// NewWithOptions skips the health check; tests point it at a fake endpoint.
func NewWithOptions(ctx context.Context, cfg config.GCSConfig, opts ...option.ClientOption) (*Client, error) {
	bucket := strings.TrimSpace(cfg.BucketName)
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	return &Client{
		objects:       svc.Objects,
		buckets:       svc.Buckets,
		bucket:        bucket,
		publicBaseURL: base,
	}, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.buckets == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.buckets.Get(c.bucket).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gcs bucket check failed: %w", err)
	}
	return nil
}

// Upload writes body to object and returns its public URL.
func (c *Client) Upload(ctx context.Context, object, contentType, cacheControl string, body io.Reader) (string, error) {
	object = strings.TrimLeft(object, "/")
	if object == "" {
		return "", errors.New("object name is required")
	}
	meta := &storage.Object{
		Name:         object,
		ContentType:  contentType,
		CacheControl: cacheControl,
	}
	_, err := c.objects.Insert(c.bucket, meta).
		Media(body, googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	return c.PublicURL(object), nil
}

func (c *Client) Delete(ctx context.Context, object string) error {
	object = strings.TrimLeft(object, "/")
	if object == "" {
		return errors.New("object name is required")
	}
	err := c.objects.Delete(c.bucket, object).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return ErrObjectNotFound
		}
		return fmt.Errorf("delete %s: %w", object, err)
	}
	return nil
}

// PublicURL renders <base>/<bucket>/<object>.
func (c *Client) PublicURL(object string) string {
	return c.publicBaseURL + "/" + c.bucket + "/" + strings.TrimLeft(object, "/")
}

// ObjectPath extracts the object name following /<bucket>/ in a public URL.
func (c *Client) ObjectPath(publicURL string) (string, error) {
	return ObjectPathFromURL(publicURL, c.bucket)
}

func ObjectPathFromURL(publicURL, bucket string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(publicURL))
	if err != nil || parsed.Path == "" {
		return "", fmt.Errorf("invalid object url %q", publicURL)
	}
	marker := "/" + bucket + "/"
	idx := strings.Index(parsed.Path, marker)
	if idx < 0 {
		return "", fmt.Errorf("url %q is not in bucket %s", publicURL, bucket)
	}
	object := parsed.Path[idx+len(marker):]
	if object == "" {
		return "", fmt.Errorf("url %q has no object path", publicURL)
	}
	return object, nil
}
