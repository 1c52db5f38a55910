package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"upkeep/internal/config"
)

// Presigned GET URLs stay valid for a week; references are re-signed on
// every resolution, never cached.
const presignTTL = 7 * 24 * time.Hour

// s3API and s3Presigner cover the client surface we use, for testability.
type s3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Presigner interface {
	PresignGetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// s3Store writes uploads to an S3-compatible bucket. References are opaque
// object keys exchanged for presigned URLs on each read.
type s3Store struct {
	client    s3API
	presigner s3Presigner
	bucket    string
	logger    *slog.Logger
}

func newS3Store(cfg config.S3, logger *slog.Logger) *s3Store {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	client := s3.New(opts)

	return &s3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		logger:    logger,
	}
}

func (s *s3Store) Save(ctx context.Context, data []byte, originalFilename, mimeType string, userID int64, folder string) (*Stored, error) {
	key := fmt.Sprintf("%d/%s/%s", userID, folder, newKey(originalFilename))
	contentType := orOctetStream(mimeType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &Stored{
		Path:             key,
		OriginalFilename: originalFilename,
		MimeType:         contentType,
		SizeBytes:        int64(len(data)),
	}, nil
}

// Resolve presigns a GET for the object key. Rooted references were written
// by the local backend before a backend switch and are returned unchanged,
// as is the key itself when presigning fails.
func (s *s3Store) Resolve(ctx context.Context, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return ref
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		s.logger.Warn("presign get", "key", ref, "error", err)
		return ref
	}
	return req.URL
}
