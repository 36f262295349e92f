package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/logger"
)

const (
	defaultURLExpiry = time.Hour
	pingTimeout      = 5 * time.Second
)

// URLSigner produces time-limited download URLs for stored objects.
type URLSigner interface {
	PresignedGetURL(ctx context.Context, key string) (string, error)
}

type Client struct {
	minio  *minio.Client
	bucket string
	expiry time.Duration
}

func NewClient(cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("storage endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("storage bucket is required")
	}

	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	expiry := cfg.DownloadURLExpiry
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}

	if logg != nil {
		logg.Info(logg.WithField(context.Background(), "bucket", cfg.Bucket), "storage client initialized")
	}

	return &Client{minio: mc, bucket: cfg.Bucket, expiry: expiry}, nil
}

// PresignedGetURL signs a GET for key in the configured bucket.
func (c *Client) PresignedGetURL(ctx context.Context, key string) (string, error) {
	if c == nil || c.minio == nil {
		return "", errors.New("storage client not initialized")
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("object key is required")
	}
	u, err := c.minio.PresignedGetObject(ctx, c.bucket, key, c.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// Ping checks the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.minio == nil {
		return errors.New("storage client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	ok, err := c.minio.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %q: %w", c.bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", c.bucket)
	}
	return nil
}
