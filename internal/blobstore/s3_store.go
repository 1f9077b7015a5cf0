package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/fieldnote/transcript-router/internal/observability"
	"github.com/fieldnote/transcript-router/internal/retry"
	"github.com/fieldnote/transcript-router/internal/routererr"
)

// S3StoreConfig configures an S3-compatible blob store.
type S3StoreConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Append          AppendConfig
	// Metrics, when non-nil, records AppendLine's conditional-write
	// retry outcomes on Metrics.BlobAppendRetries.
	Metrics *observability.Metrics
}

// S3Store is the production Store backed by
// github.com/aws/aws-sdk-go-v2/service/s3.
type S3Store struct {
	client  *s3.Client
	bucket  string
	prefix  string
	append  AppendConfig
	metrics *observability.Metrics
}

// NewS3Store constructs an S3Store, loading AWS credentials the same way
// the teacher's artifact store does: default credential chain, optional
// static keys, optional custom endpoint for S3-compatible stores.
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("blobstore: s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	appendCfg := cfg.Append
	if appendCfg.MaxRetries <= 0 {
		appendCfg = DefaultAppendConfig()
	}

	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		append:  appendCfg,
		metrics: cfg.Metrics,
	}, nil
}

func (s *S3Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Get reads an object in full.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, _, err := s.getWithETag(ctx, key)
	return data, err
}

// getWithETag reads an object and its current ETag, used internally by
// AppendLine's conditional-write loop.
func (s *S3Store) getWithETag(ctx context.Context, key string) ([]byte, string, error) {
	objKey := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &objKey,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", wrapStorageErr("get", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", wrapStorageErr("get", key, err)
	}
	etag := ""
	if out.ETag != nil {
		etag = *out.ETag
	}
	return data, etag, nil
}

// Put overwrites an object unconditionally.
func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	objKey := s.objectKey(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &objKey,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return wrapStorageErr("put", key, err)
	}
	return nil
}

// AppendLine implements read-modify-write gated by a conditional
// precondition on the object's ETag (If-Match), per spec §4.1. A
// not-found object is created with If-None-Match: "*" so two concurrent
// first-writers race safely; the loser falls back to the normal
// read-modify-write path on its next attempt.
func (s *S3Store) AppendLine(ctx context.Context, key string, line string) error {
	objKey := s.objectKey(key)

	attempt := 0
	result := retry.Do(ctx, retry.Config{
		MaxAttempts:    s.append.MaxRetries,
		InitialDelay:   50 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		Factor:         2.0,
		JitterFraction: 0.25,
	}, func() error {
		attempt++
		data, etag, err := s.getWithETag(ctx, key)
		switch {
		case errors.Is(err, ErrNotFound):
			putErr := s.putIfAbsent(ctx, objKey, []byte(line+"\n"))
			if putErr == nil {
				return nil
			}
			if isPreconditionFailed(putErr) {
				return fmt.Errorf("append: creation race on %s: %w", key, errRetryable)
			}
			return retry.Permanent(wrapStorageErr("append", key, putErr))
		case err != nil:
			return retry.Permanent(err)
		default:
			newData := append(data, []byte(line+"\n")...)
			putErr := s.putIfMatch(ctx, objKey, etag, newData)
			if putErr == nil {
				return nil
			}
			if isPreconditionFailed(putErr) {
				return fmt.Errorf("append: concurrent writer won on %s: %w", key, errRetryable)
			}
			return retry.Permanent(wrapStorageErr("append", key, putErr))
		}
	})

	if s.metrics != nil && attempt > 1 {
		outcome := "succeeded"
		if result.Err != nil {
			outcome = "exhausted"
		}
		s.metrics.BlobAppendRetries.WithLabelValues(outcome).Inc()
	}

	if result.Err == nil {
		return nil
	}
	if retry.IsPermanent(result.Err) {
		return result.Err
	}
	return fmt.Errorf("blobstore: append_line exhausted %d retries on %s: %w", s.append.MaxRetries, key, routererr.ErrConflict)
}

// errRetryable marks a transient precondition-failure error as
// retryable; it is never returned to callers directly.
var errRetryable = errors.New("blobstore: conditional write lost the race")

func (s *S3Store) putIfAbsent(ctx context.Context, objKey string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &objKey,
		Body:        bytes.NewReader(data),
		IfNoneMatch: aws.String("*"),
	})
	return err
}

func (s *S3Store) putIfMatch(ctx context.Context, objKey, etag string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:  &s.bucket,
		Key:     &objKey,
		Body:    bytes.NewReader(data),
		IfMatch: aws.String(etag),
	})
	return err
}

// List returns every key under prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.objectKey(prefix)
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &fullPrefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapStorageErr("list", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			k := *obj.Key
			if s.prefix != "" {
				k = strings.TrimPrefix(k, s.prefix+"/")
			}
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && strings.EqualFold(apiErr.ErrorCode(), "NotFound") {
		return true
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return strings.EqualFold(code, "PreconditionFailed") || strings.EqualFold(code, "ConditionalRequestConflict")
	}
	return false
}
