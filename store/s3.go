package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds construction parameters for S3Store.
type S3Config struct {
	Bucket          string
	Prefix          string // object key prefix, e.g. "storefront/"
	Region          string // default us-east-1
	Endpoint        string // optional; for MinIO and other S3-compatible services
	AccessKeyID     string // optional (falls back to default credentials chain)
	SecretAccessKey string
	PathStyle       bool
	Timeout         time.Duration // per request; DefaultTimeout when zero
}

// s3API is the subset of *s3.Client the store uses.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps each key as the object <prefix><key>.json in one bucket.
type S3Store struct {
	client  s3API
	bucket  string
	prefix  string
	timeout time.Duration
}

// NewS3Store builds a client from the default AWS configuration chain,
// overridden by any explicit fields in cfg.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3Store(client, cfg), nil
}

func newS3Store(client s3API, cfg S3Config) *S3Store {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &S3Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, timeout: timeout}
}

func (s *S3Store) objectKey(key string) string {
	return s.prefix + key + ".json"
}

func (s *S3Store) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (s *S3Store) Get(key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	ctx, cancel := s.context()
	defer cancel()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Store) Put(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	ctx, cancel := s.context()
	defer cancel()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/json"),
	})
	return err
}

// Delete heads the object first because DeleteObject succeeds for missing
// keys and would otherwise always report true.
func (s *S3Store) Delete(key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	ctx, cancel := s.context()
	defer cancel()
	objKey := s.objectKey(key)
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(objKey)}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(objKey)}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *S3Store) Keys() ([]string, error) {
	ctx, cancel := s.context()
	defer cancel()
	var names []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if !strings.HasSuffix(name, ".json") || strings.Contains(name, "/") {
				continue
			}
			names = append(names, strings.TrimSuffix(name, ".json"))
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Strings(names)
	return names, nil
}

func (s *S3Store) Close() error {
	return nil
}
