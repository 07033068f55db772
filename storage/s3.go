package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/ruteri/storageitem-service/interfaces"
)

// S3Backend implements a storage backend using Amazon S3 or compatible services.
// It supports both public read-only access and authenticated write access.
type S3Backend struct {
	client         *s3.S3
	uploader       *s3manager.Uploader
	bucketName     string
	prefix         string
	region         string
	endpoint       string
	public         bool
	log            *slog.Logger
	locationURI    string
	hasWriteAccess bool
}

// S3Options holds the connection settings parsed from an s3:// location.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// Public uploads objects with the public-read ACL and exposes their URLs.
	Public bool
	// PathStyle forces path-style addressing, needed by most S3-compatible servers.
	PathStyle bool
}

// NewS3Backend creates a new S3 storage backend.
// If access and secret keys are provided, the backend will use static credentials.
// Otherwise the default AWS credential chain applies.
func NewS3Backend(opts S3Options, log *slog.Logger) (*S3Backend, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", opts.Bucket, opts.Prefix, opts.Region)
	if opts.AccessKey != "" {
		uri = fmt.Sprintf("s3://%s:***@%s/%s?region=%s", opts.AccessKey, opts.Bucket, opts.Prefix, opts.Region)
	}
	if opts.Endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", opts.Endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(opts.Region),
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
	}
	if opts.PathStyle {
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	hasWriteAccess := opts.AccessKey != "" && opts.SecretKey != ""
	if hasWriteAccess {
		cfg.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, "")
	} else {
		log.Warn("No S3 credentials provided - relying on the default AWS credential chain",
			slog.String("bucket", opts.Bucket))
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	client := s3.New(sess)

	return &S3Backend{
		client:         client,
		uploader:       s3manager.NewUploaderWithClient(client),
		bucketName:     opts.Bucket,
		prefix:         strings.Trim(opts.Prefix, "/"),
		region:         opts.Region,
		endpoint:       opts.Endpoint,
		public:         opts.Public,
		log:            log,
		locationURI:    uri,
		hasWriteAccess: hasWriteAccess,
	}, nil
}

// Fetch retrieves an object from S3 by its item path.
// Returns ErrContentNotFound if the object doesn't exist.
func (b *S3Backend) Fetch(ctx context.Context, itemPath string) (io.ReadCloser, error) {
	start := time.Now()
	key := b.getObjectKey(itemPath)

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			b.log.Debug("Content not found in S3",
				slog.String("bucket", b.bucketName),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrContentNotFound
		}

		b.log.Error("Failed to get object from S3",
			slog.String("bucket", b.bucketName),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return result.Body, nil
}

// Store uploads data to S3 at the item path.
// Scalar metadata values are attached as object metadata.
func (b *S3Backend) Store(ctx context.Context, itemPath string, data io.Reader, info interfaces.ObjectInfo) error {
	start := time.Now()
	key := b.getObjectKey(itemPath)

	input := &s3manager.UploadInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
		Body:   data,
	}
	if info.ContentType != "" {
		input.ContentType = aws.String(info.ContentType)
	}
	if b.public {
		input.ACL = aws.String("public-read")
	}
	if md := objectMetadata(info.Metadata); len(md) > 0 {
		input.Metadata = md
	}

	if _, err := b.uploader.UploadWithContext(ctx, input); err != nil {
		if !b.hasWriteAccess {
			return fmt.Errorf("failed to upload object to S3 (no static credentials provided): %w", err)
		}
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Stored content in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", key),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks if the S3 backend is accessible by attempting to head the bucket.
func (b *S3Backend) Available(ctx context.Context) bool {
	start := time.Now()

	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Warn("S3 backend unavailable",
			slog.String("bucket", b.bucketName),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *S3Backend) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

// PublicURL returns the object URL for buckets configured with public=true.
func (b *S3Backend) PublicURL(itemPath string) string {
	if !b.public {
		return ""
	}
	key := b.getObjectKey(itemPath)
	if b.endpoint != "" {
		return strings.TrimSuffix(b.endpoint, "/") + "/" + b.bucketName + "/" + escapeKey(key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucketName, b.region, escapeKey(key))
}

// getObjectKey generates an S3 object key for an item path.
func (b *S3Backend) getObjectKey(itemPath string) string {
	itemPath = strings.TrimPrefix(itemPath, "/")
	if b.prefix == "" {
		return itemPath
	}
	return path.Join(b.prefix, itemPath)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// objectMetadata keeps the scalar metadata values S3 can carry as headers.
func objectMetadata(metadata map[string]any) map[string]*string {
	out := make(map[string]*string, len(metadata))
	for k, v := range metadata {
		switch val := v.(type) {
		case string:
			out[k] = aws.String(val)
		case bool, int, int64, float64:
			out[k] = aws.String(fmt.Sprint(val))
		}
	}
	return out
}
