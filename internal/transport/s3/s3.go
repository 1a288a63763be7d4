// Package s3 provides a transport over an S3-compatible bucket, so media
// collections in object storage can be browsed with the same pipeline as SSH
// directories.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/mediabridge/mediabridge/internal/logging"
	"github.com/mediabridge/mediabridge/internal/transport"
)

// Config holds S3 connection settings.
type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
}

// Transport implements transport.Transport against one S3 bucket. Paths are
// object keys.
type Transport struct {
	client *awss3.Client
	bucket string
}

// New creates an S3 transport and verifies the bucket is reachable.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	t := &Transport{client: client, bucket: cfg.Bucket}
	if _, err := client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, &transport.UnreachableError{Target: "s3://" + cfg.Bucket, Err: err}
	}

	logging.Info("s3 transport connected", zap.String("bucket", cfg.Bucket))
	return t, nil
}

// List enumerates media objects under the root prefix.
func (t *Transport) List(ctx context.Context, root string, recursive bool) ([]transport.Entry, error) {
	prefix := strings.TrimPrefix(root, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	input := &awss3.ListObjectsV2Input{
		Bucket: aws.String(t.bucket),
		Prefix: aws.String(prefix),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	var entries []transport.Entry
	paginator := awss3.NewListObjectsV2Paginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, t.mapError(root, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !transport.IsMedia(key) {
				continue
			}
			e := transport.Entry{
				Path: key,
				Size: aws.ToInt64(obj.Size),
				Kind: transport.KindOf(key),
			}
			if obj.LastModified != nil {
				e.ModTime = *obj.LastModified
			}
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Fetch downloads the object into stagingDir via a temp file and rename.
func (t *Transport) Fetch(ctx context.Context, key, stagingDir string) (string, error) {
	out, err := t.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", t.mapError(key, err)
	}
	defer out.Body.Close()

	final := filepath.Join(stagingDir, transport.StageName(key))
	tmp, err := os.CreateTemp(stagingDir, ".fetch-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create staging temp: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, out.Body)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &transport.TransferError{Path: key, Partial: written > 0, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &transport.TransferError{Path: key, Partial: true, Err: err}
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", &transport.TransferError{Path: key, Partial: true, Err: err}
	}

	return final, nil
}

// Push uploads a local file to the given key.
func (t *Transport) Push(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = t.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return &transport.TransferError{Path: key, Partial: false, Err: err}
	}
	return nil
}

// Remove deletes the object. S3 deletes are idempotent, so a vanished key is
// reported as NotFound only when the bucket itself rejects the call.
func (t *Transport) Remove(ctx context.Context, key string) error {
	_, err := t.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return t.mapError(key, err)
	}
	return nil
}

// Reachable probes the bucket with HeadBucket.
func (t *Transport) Reachable(ctx context.Context) bool {
	_, err := t.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(t.bucket)})
	return err == nil
}

// Remote returns true: objects are staged locally before decoding.
func (t *Transport) Remote() bool { return true }

// Close is a no-op; the SDK client holds no persistent connection.
func (t *Transport) Close() error { return nil }

func (t *Transport) mapError(key string, err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return &transport.NotFoundError{Path: key}
	}
	return err
}
