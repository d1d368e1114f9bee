package media

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/peersenco/storefront-backend/pkg/storage/gcs"
)

const (
	objectPrefix       = "products/"
	randomNameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	randomNameLength   = 11
)

type objectStore interface {
	Upload(ctx context.Context, object, contentType, cacheControl string, body io.Reader) (string, error)
	Delete(ctx context.Context, object string) error
	ObjectPath(publicURL string) (string, error)
}

// Service stores product images in the public bucket.
type Service interface {
	UploadImage(ctx context.Context, input UploadInput) (*UploadResult, error)
	DeleteByURL(ctx context.Context, publicURL string) error
}

type UploadInput struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

type UploadResult struct {
	URL         string `json:"url"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

type Options struct {
	MaxBytes     int64
	CacheSeconds int
	Now          func() time.Time
}

type service struct {
	store        objectStore
	maxBytes     int64
	cacheControl string
	logg         *logger.Logger
	now          func() time.Time
}

// NewService constructs the media service on top of an object store.
func NewService(store objectStore, opts Options, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if opts.MaxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if opts.CacheSeconds <= 0 {
		opts.CacheSeconds = 3600
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		store:        store,
		maxBytes:     opts.MaxBytes,
		cacheControl: fmt.Sprintf("public, max-age=%d", opts.CacheSeconds),
		logg:         logg,
		now:          opts.Now,
	}, nil
}

func (s *service) UploadImage(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	declared, err := sniffMimeType(input.ContentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content type")
	}
	if _, ok := allowedImageTypes[declared]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only "+allowedImageDescription+" are allowed").
			WithDetails(map[string]any{"content_type": declared})
	}

	data, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	size := int64(len(data))
	if size == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if size > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file exceeds maximum size").
			WithDetails(map[string]any{"max_bytes": s.maxBytes})
	}
	if actual := detectContentType(data); actual != declared {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file content does not match content type").
			WithDetails(map[string]any{"content_type": declared, "detected": actual})
	}

	object, err := s.objectName(input.FileName, declared)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate object name")
	}
	url, err := s.store.Upload(ctx, object, declared, s.cacheControl, bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"object": object, "size_bytes": size}), "media.image_uploaded")

	return &UploadResult{URL: url, Path: object, ContentType: declared, SizeBytes: size}, nil
}

func (s *service) DeleteByURL(ctx context.Context, publicURL string) error {
	object, err := s.store.ObjectPath(publicURL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image url")
	}
	if err := s.store.Delete(ctx, object); err != nil {
		if errors.Is(err, gcs.ErrObjectNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete image")
	}
	return nil
}

// objectName renders products/<random>-<unix millis>.<ext>.
func (s *service) objectName(fileName, contentType string) (string, error) {
	buf := make([]byte, randomNameLength)
	limit := big.NewInt(int64(len(randomNameAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = randomNameAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s%s-%d.%s", objectPrefix, buf, s.now().UnixMilli(), extensionFor(fileName, contentType)), nil
}
