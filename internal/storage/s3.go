// Package storage archives import files in an S3-compatible object store
// (MinIO, AWS S3, or anything speaking the S3 API) using the AWS SDK v2.
//
// Layout inside the bucket:
//
//	staging/op-<operation id>/<uuid>-<sanitized filename>   while a run is in flight
//	imports/op-<operation id>/<sanitized filename>          once the run completed
//
// Staging keys carry a random component, so concurrent runs can never
// collide on object keys even though runs serialize on the worker lane.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/bandvault/bandvault/internal/config"
	"github.com/bandvault/bandvault/internal/imports"
	"github.com/bandvault/bandvault/internal/logging"
)

const defaultContentType = "application/octet-stream"

// s3API is the slice of the S3 client the store uses. Tests substitute a
// fake; production passes *s3.Client.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// ObjectStore implements imports.ObjectStore against an S3 bucket.
type ObjectStore struct {
	client s3API
	bucket string
}

var _ imports.ObjectStore = (*ObjectStore)(nil)

// NewClient builds an S3 client for the configured endpoint. Path-style
// addressing is the default since MinIO and most S3-compatible stores
// require it.
func NewClient(cfg config.StorageConfig) *s3.Client {
	return s3.New(s3.Options{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		),
		BaseEndpoint: aws.String(cfg.EndpointURL()),
		UsePathStyle: cfg.UsePathStyle,
	})
}

// New creates an ObjectStore over the given client and bucket.
func New(client s3API, bucket string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket}
}

// EnsureBucket creates the bucket if it does not exist yet. Called once on
// startup.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	return nil
}

// PutStaging writes the raw upload under a fresh staging key. The key embeds
// a random UUID, so an existing object is never overwritten.
func (s *ObjectStore) PutStaging(ctx context.Context, opID uuid.UUID, filename, contentType string, data []byte) (string, error) {
	key := stagingKey(opID, filename)
	if contentType == "" {
		contentType = defaultContentType
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	}
	if filename != "" {
		in.Metadata = map[string]string{"original-filename": filename}
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", &imports.StorageError{Op: "put staging", Key: key, Err: err}
	}
	return key, nil
}

// FinalizeFromStaging promotes a staged object to its permanent key with
// copy-then-delete. Retry-safe: when the staging object is already gone but
// the permanent object exists, the earlier promotion evidently succeeded and
// the permanent key is returned without error.
func (s *ObjectStore) FinalizeFromStaging(ctx context.Context, staging string, opID uuid.UUID, filename string) (string, error) {
	finalKey := permanentKey(opID, filename)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(staging),
	})
	if err != nil {
		if isNotFound(err) && s.objectExists(ctx, finalKey) {
			return finalKey, nil
		}
		return "", &imports.StorageError{Op: "finalize", Key: staging, Err: err}
	}

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(finalKey),
		CopySource: aws.String(s.bucket + "/" + staging),
	})
	if err != nil {
		return "", &imports.StorageError{Op: "finalize", Key: staging, Err: err}
	}

	// The copy is durable; losing the staging delete only leaves a stray
	// staging object behind, it cannot lose the import file.
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(staging),
	}); err != nil {
		logging.FromContext(ctx).Warn("deleting staging object after copy failed",
			"key", staging, "error", err)
	}

	return finalKey, nil
}

// Delete removes an object best-effort. It is only used during cleanup;
// failures are logged and never returned so they cannot mask the failure
// that triggered the cleanup.
func (s *ObjectStore) Delete(ctx context.Context, key string) {
	if key == "" {
		return
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		logging.FromContext(ctx).Warn("deleting object failed", "key", key, "error", err)
	}
}

// Open streams a stored object.
func (s *ObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, string, int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", 0, imports.ErrFileNotAvailable
		}
		return nil, "", 0, &imports.StorageError{Op: "open", Key: key, Err: err}
	}

	contentType := defaultContentType
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	var size int64
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, contentType, size, nil
}

func (s *ObjectStore) objectExists(ctx context.Context, key string) bool {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}

func stagingKey(opID uuid.UUID, filename string) string {
	return fmt.Sprintf("staging/op-%s/%s-%s", opID, uuid.New(), sanitizeFilename(filename))
}

func permanentKey(opID uuid.UUID, filename string) string {
	return fmt.Sprintf("imports/op-%s/%s", opID, sanitizeFilename(filename))
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFilename makes a filename safe for use inside an object key.
func sanitizeFilename(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "import-file"
	}
	return unsafeKeyChars.ReplaceAllString(filename, "_")
}
