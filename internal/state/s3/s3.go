// Package s3 keeps the sketch map in an S3-compatible bucket, so CI runs
// that start from a clean checkout still find the ids of earlier runs.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/sketchsync/sketchsync/internal/state"
	"github.com/sketchsync/sketchsync/pkg/models"
)

// Config holds S3 connection settings. Endpoint and the static keys are
// optional; without them the default AWS endpoint and credential chain apply.
type Config struct {
	Endpoint  string
	Bucket    string
	Key       string
	Region    string
	AccessKey string
	SecretKey string
}

// API is the part of the S3 client the store uses.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store implements state.Store on a single S3 object.
type Store struct {
	api    API
	bucket string
	key    string
}

var _ state.Store = (*Store)(nil)

// New creates a store from connection settings.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 state: bucket is required")
	}
	if cfg.Key == "" {
		cfg.Key = state.FileName
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO
		}
	})

	return NewWithAPI(client, cfg.Bucket, cfg.Key), nil
}

// NewWithAPI creates a store on an existing client.
func NewWithAPI(api API, bucket, key string) *Store {
	return &Store{api: api, bucket: bucket, key: key}
}

func (s *Store) String() string {
	return "s3://" + s.bucket + "/" + s.key
}

// Load fetches and parses the object; a missing object is an empty map.
func (s *Store) Load(ctx context.Context) (models.SketchMap, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if isNotFound(err) {
		return models.SketchMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s, err)
	}

	m, err := state.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	return m, nil
}

// Save overwrites the object with m.
func (s *Store) Save(ctx context.Context, m models.SketchMap) error {
	data, err := state.Encode(m)
	if err != nil {
		return fmt.Errorf("encode sketch map: %w", err)
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", s, err)
	}
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
