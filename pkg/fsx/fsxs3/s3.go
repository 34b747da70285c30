package fsxs3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/fsx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3FileSystem implements fsx.FileSystem backed by an S3 bucket
type S3FileSystem struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3FileSystem creates a new S3-backed file system. All paths are
// resolved under the given key prefix (may be empty).
func NewS3FileSystem(client *s3.Client, bucket, prefix string) *S3FileSystem {
	return &S3FileSystem{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// ============================================================================
// FileReader Implementation
// ============================================================================

func (s *S3FileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("file not found: %s", p)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

func (s *S3FileSystem) ReadFileStream(ctx context.Context, p string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("file not found: %s", p)
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return out.Body, nil
}

func (s *S3FileSystem) Stat(ctx context.Context, p string) (fsx.FileInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return fsx.FileInfo{}, fmt.Errorf("file not found: %s", p)
		}
		return fsx.FileInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}

	info := fsx.FileInfo{
		Name:     path.Base(p),
		Size:     aws.ToInt64(out.ContentLength),
		Metadata: out.Metadata,
	}
	if out.LastModified != nil {
		info.ModTime = *out.LastModified
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	return info, nil
}

func (s *S3FileSystem) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object: %w", err)
	}
	return true, nil
}

// ============================================================================
// FileWriter Implementation
// ============================================================================

func (s *S3FileSystem) WriteFile(ctx context.Context, p string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

func (s *S3FileSystem) WriteFileStream(ctx context.Context, p string, r io.Reader) error {
	// PutObject needs a seekable body for signing; buffer the stream.
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to buffer stream: %w", err)
	}
	return s.WriteFile(ctx, p, data)
}

// ============================================================================
// FileDeleter Implementation
// ============================================================================

func (s *S3FileSystem) DeleteFile(ctx context.Context, p string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// ============================================================================
// PathOperations Implementation
// ============================================================================

func (s *S3FileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

func (s *S3FileSystem) key(p string) string {
	if s.prefix == "" {
		return p
	}
	return path.Join(s.prefix, p)
}
