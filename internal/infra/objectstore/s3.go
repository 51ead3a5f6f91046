package objectstore

import (
	"bytes"
	"context"
	"fmt"

	"photo-feed/internal/domain/media"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
)

// S3API is the subset of the S3 client used for uploads.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string
	// PublicBaseURL overrides the virtual-hosted bucket URL, e.g. a CDN origin.
	PublicBaseURL string
}

type S3Store struct {
	client  S3API
	bucket  string
	baseURL string
}

// NewS3Store builds a store from the default AWS credential chain. A custom
// Endpoint switches to path-style addressing for S3-compatible services.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, cfg), nil
}

func NewS3StoreWithClient(client S3API, cfg S3Config) *S3Store {
	base := cfg.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, baseURL: base}
}

// Put uploads the canonical image and its thumbnail concurrently; either
// failure fails the whole call.
func (s *S3Store) Put(ctx context.Context, folder string, img *media.Image) (*Object, error) {
	v, err := prepare(folder, img)
	if err != nil {
		return nil, err
	}
	data := img.Data

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.put(gctx, v.key, data) })
	g.Go(func() error { return s.put(gctx, v.thumbKey, v.thumb) })
	if err := g.Wait(); err != nil {
		return nil, unavailable(err)
	}

	return &Object{
		Key:          v.key,
		ThumbnailKey: v.thumbKey,
		URL:          publicURL(s.baseURL, v.key),
		ThumbnailURL: publicURL(s.baseURL, v.thumbKey),
		Size:         int64(len(data)),
		Width:        v.width,
		Height:       v.height,
	}, nil
}

func (s *S3Store) put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentTypeJPEG),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
