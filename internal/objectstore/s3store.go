package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ternarybob/arbor"
)

// S3Config configures the S3 client. MaxRetries is passed to the SDK as
// its retry attempt cap; the SDK's standard retryer backs off
// exponentially with jitter. ConnectTimeout and ReadTimeout receive
// defaults in withDefaults but are not applied to the HTTP client, and the
// connection pool is left at the SDK's default size.
type S3Config struct {
	Region         string
	Endpoint       string // non-empty for S3-compatible stores other than AWS
	MaxRetries     int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	PageSize       int32
}

func (c S3Config) withDefaults() S3Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 1000
	}
	return c
}

// S3Store implements Store over an S3-compatible HTTP API, per spec.md §6.
// Credentials and region come from standard AWS SDK environment variables
// unless overridden in S3Config.
type S3Store struct {
	client *s3.Client
	cfg    S3Config
	logger arbor.ILogger
}

// NewS3Store builds a client via the default AWS config chain (environment
// variables, shared config files, etc.) with cfg.MaxRetries as the retry
// attempt cap and cfg.Region when set. No timeout or connection-pool
// setting is passed to the SDK.
func NewS3Store(ctx context.Context, cfg S3Config, logger arbor.ILogger) (*S3Store, error) {
	cfg = cfg.withDefaults()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(cfg.MaxRetries),
	}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, cfg: cfg, logger: logger}, nil
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
		}
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Put is atomic per object: S3's PutObject either makes the full byte range
// visible under the key or leaves the key untouched on error, satisfying
// spec.md §4.2's atomicity requirement.
func (s *S3Store) Put(ctx context.Context, bucket, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	s.logger.Debug().Str("bucket", bucket).Str("key", key).Int("bytes", len(data)).Msg("object store: put")
	return nil
}

func (s *S3Store) Head(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

// List lazily pages through ListObjectsV2, yielding one key at a time so
// callers never have to materialize the full enumeration (spec.md §4.2:
// "must tolerate result-set sizes in the tens of millions").
func (s *S3Store) List(ctx context.Context, bucket, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var token *string
		for {
			out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            &bucket,
				Prefix:            &prefix,
				MaxKeys:           aws.Int32(s.cfg.PageSize),
				ContinuationToken: token,
			})
			if err != nil {
				yield("", fmt.Errorf("list objects %s/%s: %w", bucket, prefix, err))
				return
			}
			for _, obj := range out.Contents {
				if !yield(aws.ToString(obj.Key), nil) {
					return
				}
			}
			if !aws.ToBool(out.IsTruncated) {
				return
			}
			token = out.NextContinuationToken
		}
	}
}

// ListCommonPrefixes lazily pages through ListObjectsV2 with a delimiter,
// yielding the "directories" immediately under prefix.
func (s *S3Store) ListCommonPrefixes(ctx context.Context, bucket, prefix, delimiter string) iter.Seq2[string, error] {
	if delimiter == "" {
		delimiter = "/"
	}
	return func(yield func(string, error) bool) {
		var token *string
		for {
			out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            &bucket,
				Prefix:            &prefix,
				Delimiter:         &delimiter,
				MaxKeys:           aws.Int32(s.cfg.PageSize),
				ContinuationToken: token,
			})
			if err != nil {
				yield("", fmt.Errorf("list common prefixes %s/%s: %w", bucket, prefix, err))
				return
			}
			for _, cp := range out.CommonPrefixes {
				if !yield(aws.ToString(cp.Prefix), nil) {
					return
				}
			}
			if !aws.ToBool(out.IsTruncated) {
				return
			}
			token = out.NextContinuationToken
		}
	}
}

func isNotFound(err error) bool {
	var nf *types.NoSuchKey
	if errors.As(err, &nf) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
