// Package storage stores reservation attachments in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ appledger.AttachmentStore = (*S3AttachmentStore)(nil)

// ErrForeignReference is returned when an attachment URL does not point into this store's bucket
var ErrForeignReference = errors.New("attachment reference is not stored in this bucket")

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3AttachmentStore uploads reservation documents to an S3-compatible bucket
// (AWS S3, MinIO, RustFS) and hands back a stable object URL for each.
type S3AttachmentStore struct {
	client            objectAPI
	presigner         presignAPI
	bucket            string
	keyPrefix         string
	baseURL           string
	presignExpiration time.Duration
	now               func() time.Time
	logger            *zap.Logger
}

// Option configures an S3AttachmentStore
type Option func(*S3AttachmentStore)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *S3AttachmentStore) {
		s.logger = logger
	}
}

// WithClock overrides the clock used to date object keys
func WithClock(now func() time.Time) Option {
	return func(s *S3AttachmentStore) {
		s.now = now
	}
}

func withObjectAPI(api objectAPI) Option {
	return func(s *S3AttachmentStore) {
		s.client = api
	}
}

// NewS3AttachmentStore creates a store from configuration.
// Without an access key pair the default AWS credential chain is used.
func NewS3AttachmentStore(cfg *config.StorageConfig, opts ...Option) (*S3AttachmentStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, errors.New("storage access key and secret key must be set together")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != nil {
			o.BaseEndpoint = aws.String(endpoint.String())
		}
	})

	store := &S3AttachmentStore{
		client:            client,
		presigner:         s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		keyPrefix:         strings.Trim(cfg.KeyPrefix, "/"),
		baseURL:           objectBaseURL(endpoint, cfg.Bucket, region, cfg.UsePathStyle),
		presignExpiration: cfg.PresignExpiration,
		now:               time.Now,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.presignExpiration <= 0 {
		store.presignExpiration = 15 * time.Minute
	}
	return store, nil
}

func normalizeEndpoint(raw string, useSSL bool) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		if useSSL {
			raw = "https://" + raw
		} else {
			raw = "http://" + raw
		}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid storage endpoint %q", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

func objectBaseURL(endpoint *url.URL, bucket, region string, pathStyle bool) string {
	if endpoint == nil {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	if pathStyle {
		return endpoint.String() + "/" + bucket
	}
	return fmt.Sprintf("%s://%s.%s%s", endpoint.Scheme, bucket, endpoint.Host, endpoint.Path)
}

// Bucket returns the bucket name
func (s *S3AttachmentStore) Bucket() string {
	return s.bucket
}

// EnsureBucket creates the bucket if it does not exist yet
func (s *S3AttachmentStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("Creating attachment bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Upload stores one attachment and returns its object URL
func (s *S3AttachmentStore) Upload(ctx context.Context, file appledger.AttachmentFile) (string, error) {
	if file.Open == nil {
		return "", fmt.Errorf("attachment %q has no content", file.Name)
	}
	body, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open attachment %q: %w", file.Name, err)
	}
	defer body.Close()

	key := s.objectKey(file.Name)
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"original-name": file.Name},
	}
	if file.Size > 0 {
		in.ContentLength = aws.Int64(file.Size)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("upload attachment %q: %w", file.Name, err)
	}

	ref := s.baseURL + "/" + escapeKey(key)
	s.logger.Debug("Attachment stored",
		zap.String("file", file.Name),
		zap.String("key", key),
		zap.Int64("size", file.Size))
	return ref, nil
}

// DownloadURL presigns a short-lived GET for an attachment URL produced by Upload
func (s *S3AttachmentStore) DownloadURL(ctx context.Context, ref string) (string, time.Time, error) {
	key, err := s.keyFromRef(ref)
	if err != nil {
		return "", time.Time{}, err
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign attachment: %w", err)
	}
	return req.URL, s.now().Add(s.presignExpiration), nil
}

// objectKey is <prefix>/<yyyy>/<mm>/<dd>/<uuid>-<name>
func (s *S3AttachmentStore) objectKey(name string) string {
	day := s.now().UTC().Format("2006/01/02")
	file := uuid.NewString() + "-" + sanitizeFileName(name)
	if s.keyPrefix == "" {
		return path.Join(day, file)
	}
	return path.Join(s.keyPrefix, day, file)
}

func (s *S3AttachmentStore) keyFromRef(ref string) (string, error) {
	rest, ok := strings.CutPrefix(ref, s.baseURL+"/")
	if !ok || rest == "" {
		return "", ErrForeignReference
	}
	key, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrForeignReference, err)
	}
	return key, nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// sanitizeFileName keeps letters, digits, dot, dash and underscore
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "attachment"
	}
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	return out
}
