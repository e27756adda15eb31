package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/fileutils"
)

// Store persists uploaded archives under a flat name.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Name() string
}

// Usage reports stored object counts and sizes.
type Usage interface {
	Usage() (files int, bytes int64, err error)
}

// DiskStore writes archives into a single directory.
type DiskStore struct {
	Dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("NewDiskStore: dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("NewDiskStore: mkdir %s: %w", dir, err)
	}
	return &DiskStore{Dir: dir}, nil
}

func (s *DiskStore) Name() string { return "disk" }

func (s *DiskStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("DiskStore.Put: invalid name %q", name)
	}
	if _, err := fileutils.WriteFileAtomic(filepath.Join(s.Dir, name), data, 0o644, false); err != nil {
		return fmt.Errorf("DiskStore.Put: %w", err)
	}
	return nil
}

func (s *DiskStore) Usage() (int, int64, error) {
	return fileutils.DirUsage(s.Dir)
}

// S3Store mirrors archives into an S3 bucket.
type S3Store struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("NewS3Store: AWS credentials not set")
	}
	if cfg.Region == "" {
		return nil, errors.New("NewS3Store: region is empty")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("NewS3Store: bucket is empty")
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("NewS3Store: load aws config: %w", err)
	}

	return &S3Store{
		uploader: manager.NewUploader(s3.NewFromConfig(awsCfg)),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
	}, nil
}

func (s *S3Store) Name() string { return "s3" }

// Key returns the object key for name.
func (s *S3Store) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3Store) Put(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("S3Store.Put: s3 upload failed: %w", err)
	}
	return nil
}

// MultiStore writes to every store concurrently; the first failure cancels the rest.
type MultiStore []Store

func (m MultiStore) Name() string { return "multi" }

func (m MultiStore) Put(ctx context.Context, name string, data []byte) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range m {
		s := s
		g.Go(func() error {
			if err := s.Put(gctx, name, data); err != nil {
				return fmt.Errorf("%s: %w", s.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
