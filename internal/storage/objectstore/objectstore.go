// Package objectstore stores preview images in an S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/jersey-orders/internal/domain/preview"
)

// Config describes the bucket previews are written to.
type Config struct {
	Endpoint     string `default:"" usage:"S3 endpoint, empty for AWS"`
	Region       string `default:"us-east-1" usage:"S3 region"`
	Bucket       string `default:"jersey-previews" usage:"bucket name"`
	AccessKey    string `default:"" usage:"access key id"`
	SecretKey    string `default:"" usage:"secret access key"`
	UsePathStyle bool   `default:"true" usage:"path-style addressing (MinIO and friends)"`
	// Prefix is prepended to object keys, e.g. "previews/".
	Prefix string `default:"previews/" usage:"object key prefix"`
	// PublicBaseURL is where the bucket is publicly reachable.
	PublicBaseURL string `default:"" usage:"public base URL of the bucket"`
}

// client is the subset of *s3.Client the Store uses.
type client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

var _ preview.Backend = (*Store)(nil)

// Store writes previews as objects.
type Store struct {
	client  client
	bucket  string
	prefix  string
	baseURL string
	lg      *zap.Logger
}

// New creates a Store from cfg using static credentials when given and the
// default AWS credential chain otherwise.
func New(ctx context.Context, cfg Config, lg *zap.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL(cfg)
	}
	return newStore(c, cfg.Bucket, cfg.Prefix, baseURL, lg), nil
}

func newStore(c client, bucket, prefix, baseURL string, lg *zap.Logger) *Store {
	return &Store{
		client:  c,
		bucket:  bucket,
		prefix:  prefix,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		lg:      lg,
	}
}

func defaultBaseURL(cfg Config) string {
	if cfg.Endpoint != "" {
		return strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return "https://" + cfg.Bucket + ".s3." + cfg.Region + ".amazonaws.com"
}

// Put uploads data as a PNG object and returns its public URL. Existing
// objects under the same key are replaced.
func (s *Store) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := s.prefix + name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("image/png"),
	})
	if err != nil {
		return "", errors.Wrapf(err, "put object %s", key)
	}
	return s.baseURL + "/" + key, nil
}

// Ping checks that the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return errors.Wrapf(err, "head bucket %s", s.bucket)
	}
	return nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var (
		notFound     *types.NotFound
		noSuchBucket *types.NoSuchBucket
	)
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return errors.Wrap(err, "head bucket")
	}

	s.lg.Info("Creating preview bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return errors.Wrap(err, "create bucket")
	}
	return nil
}
