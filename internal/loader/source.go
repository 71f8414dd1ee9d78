package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// objectGetter is the consumer interface for the dataset bucket (ISP).
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options locates the dataset object and the credentials to fetch it.
type S3Options struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Client builds an S3 client. A custom endpoint switches to path-style
// addressing for S3-compatible stores such as MinIO.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// FileSource opens the dataset from a local path and downloads it from S3 on
// first use when the file is absent.
type FileSource struct {
	path   string
	bucket string
	key    string
	s3     objectGetter
	logger *zap.Logger
}

// NewFileSource creates a dataset source. A nil getter disables the download.
func NewFileSource(path string, getter objectGetter, opts S3Options, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	key := opts.Key
	if key == "" {
		key = filepath.Base(path)
	}
	return &FileSource{path: path, bucket: opts.Bucket, key: key, s3: getter, logger: logger}
}

// Open returns the dataset reader.
func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err == nil {
		s.logger.Info("reading dataset", zap.String("path", s.path))
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	if s.s3 == nil || s.bucket == "" {
		return nil, fmt.Errorf("dataset %s not found and no s3 bucket configured: %w", s.path, err)
	}

	if err := s.download(ctx); err != nil {
		return nil, err
	}
	f, err = os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open downloaded dataset: %w", err)
	}
	return f, nil
}

// download writes the object next to the target and renames it into place.
func (s *FileSource) download(ctx context.Context) error {
	s.logger.Info("downloading dataset",
		zap.String("bucket", s.bucket),
		zap.String("key", s.key),
		zap.String("path", s.path),
	)

	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".dataset-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	n, err := io.Copy(tmp, out.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("move dataset into place: %w", err)
	}

	s.logger.Info("dataset downloaded", zap.Int64("bytes", n))
	return nil
}
