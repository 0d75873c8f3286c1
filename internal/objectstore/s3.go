package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"newsreel/internal/state"
)

// Options configures access to an S3-compatible bucket. Endpoint may point
// at a non-AWS provider such as Cloudflare R2.
type Options struct {
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Object describes a stored artifact.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Client wraps an S3-compatible bucket for artifact upload, presigning and
// retention management. It also satisfies state.Blob so the processed-item
// registry lives alongside the artifacts it describes.
type Client struct {
	s3      *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// New creates a Client for the given bucket.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.Bucket == "" {
		return nil, errors.New("object store: bucket is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return &Client{
		s3:      client,
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
	}, nil
}

// Get implements state.Blob.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, state.ErrNotExist
		}
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Put implements state.Blob. S3 object puts are atomic, so a partial upload
// never replaces the previous version.
func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting %s: %w", key, err)
	}
	return nil
}

// Exists reports whether an object is already stored under key.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("checking %s: %w", key, err)
	}
	return true, nil
}

// UploadFile streams a local file to the bucket.
func (c *Client) UploadFile(ctx context.Context, key, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a time-limited download URL for key.
func (c *Client) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	return req.URL, nil
}

// ListOlderThan returns objects under prefix whose last-modified time is
// strictly before cutoff.
func (c *Client) ListOlderThan(ctx context.Context, prefix string, cutoff time.Time) ([]Object, error) {
	var out []Object
	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil {
				continue
			}
			if obj.LastModified.Before(cutoff) {
				out = append(out, Object{
					Key:          *obj.Key,
					Size:         aws.ToInt64(obj.Size),
					LastModified: *obj.LastModified,
				})
			}
		}
	}
	return out, nil
}

// Delete removes a single object.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// deleteBatchMax is the S3 DeleteObjects per-request limit.
const deleteBatchMax = 1000

// DeleteBatch removes the given keys in chunks and returns the number of
// confirmed deletions.
func (c *Client) DeleteBatch(ctx context.Context, keys []string) (int, error) {
	deleted := 0
	for start := 0; start < len(keys); start += deleteBatchMax {
		end := min(start+deleteBatchMax, len(keys))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}
		out, err := c.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, fmt.Errorf("deleting batch: %w", err)
		}
		deleted += end - start - len(out.Errors)
	}
	return deleted, nil
}
