package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/Gpanazio/brickreview-sub001/internal/config"
)

const (
	// MinPartSize is the minimum part size for multipart upload (5MB)
	MinPartSize = 5 * 1024 * 1024
	// DefaultPartSize is the default part size (50MB)
	DefaultPartSize = 50 * 1024 * 1024
)

// ErrNotFound is returned by Download when the requested key does not exist.
var ErrNotFound = errors.New("object not found")

// Client wraps object storage operations against a single bucket.
type Client struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
	maxRetries    int
}

// New creates a new object storage client.
func New(cfg config.S3Config) (*Client, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				HostnameImmutable: true,
				SigningRegion:     cfg.Region,
			}, nil
		},
	)

	awsCfg := aws.Config{
		Region:                      cfg.Region,
		Credentials:                 credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		EndpointResolverWithOptions: customResolver,
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &Client{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimSuffix(baseURL, "/"),
		maxRetries:    3,
	}, nil
}

// PublicURL returns the public address for a stored key.
func (c *Client) PublicURL(key string) string {
	return c.publicBaseURL + "/" + key
}

// Download fetches an object into a local file. A missing key is reported as
// ErrNotFound so callers can distinguish it from transport failures.
func (c *Client) Download(ctx context.Context, key, destPath string) error {
	output, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("key %s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("failed to get object: %w", err)
	}
	defer output.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, output.Body); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Upload stores a local file under the given key and returns its public URL.
// Large files go through multipart upload.
func (c *Client) Upload(ctx context.Context, srcPath, key string) (string, error) {
	file, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	size := stat.Size()
	if size < MinPartSize {
		err = c.uploadSimple(ctx, key, file, size)
	} else {
		err = c.uploadMultipart(ctx, key, file, size)
	}
	if err != nil {
		return "", err
	}

	return c.PublicURL(key), nil
}

func (c *Client) uploadSimple(ctx context.Context, key string, file *os.File, size int64) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(detectContentType(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}
	return nil
}

func (c *Client) uploadMultipart(ctx context.Context, key string, file *os.File, size int64) error {
	createOutput, err := c.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(detectContentType(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to create multipart upload: %w", err)
	}

	uploadID := aws.ToString(createOutput.UploadId)

	partSize := int64(DefaultPartSize)
	partCount := (size + partSize - 1) / partSize
	if partCount > 10000 {
		partSize = (size + 9999) / 10000
		partCount = (size + partSize - 1) / partSize
	}

	var completedParts []types.CompletedPart

	for partNum := int64(1); partNum <= partCount; partNum++ {
		offset := (partNum - 1) * partSize
		remaining := size - offset
		currentPartSize := partSize
		if remaining < partSize {
			currentPartSize = remaining
		}

		partData := make([]byte, currentPartSize)
		n, err := file.ReadAt(partData, offset)
		if err != nil && err != io.EOF {
			c.abortMultipartUpload(ctx, key, uploadID)
			return fmt.Errorf("failed to read file: %w", err)
		}
		partData = partData[:n]

		var uploadErr error
		for retry := 0; retry < c.maxRetries; retry++ {
			partOutput, err := c.client.UploadPart(ctx, &s3.UploadPartInput{
				Bucket:     aws.String(c.bucket),
				Key:        aws.String(key),
				UploadId:   aws.String(uploadID),
				PartNumber: aws.Int32(int32(partNum)),
				Body:       newPartReader(partData),
			})
			if err != nil {
				uploadErr = err
				time.Sleep(time.Duration(retry+1) * time.Second)
				continue
			}

			completedParts = append(completedParts, types.CompletedPart{
				ETag:       partOutput.ETag,
				PartNumber: aws.Int32(int32(partNum)),
			})
			uploadErr = nil
			break
		}

		if uploadErr != nil {
			c.abortMultipartUpload(ctx, key, uploadID)
			return fmt.Errorf("failed to upload part %d: %w", partNum, uploadErr)
		}
	}

	_, err = c.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completedParts,
		},
	})
	if err != nil {
		c.abortMultipartUpload(ctx, key, uploadID)
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	return nil
}

func (c *Client) abortMultipartUpload(ctx context.Context, key, uploadID string) {
	c.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
}

// Delete removes an object. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Exists reports whether a key is present. Transport failures come back as
// errors rather than being folded into a negative answer.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object: %w", err)
	}
	return true, nil
}

// Health checks bucket connectivity.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	return err
}

// partReader wraps a byte slice for reading one multipart chunk.
type partReader struct {
	data   []byte
	offset int
}

func newPartReader(data []byte) *partReader {
	return &partReader{data: data}
}

// Read implements io.Reader
func (r *partReader) Read(p []byte) (int, error) {
	if r.offset >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.offset:])
	r.offset += n
	return n, nil
}

// detectContentType returns content type based on file extension
func detectContentType(key string) string {
	ext := filepath.Ext(key)
	contentTypes := map[string]string{
		".mp4":  "video/mp4",
		".mov":  "video/quicktime",
		".vtt":  "text/vtt",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".json": "application/json",
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
