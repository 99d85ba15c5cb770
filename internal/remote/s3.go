package remote

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/wposs/snapshot-command/internal/config"
	"github.com/wposs/snapshot-command/internal/errs"
)

type S3 struct {
	Client *minio.Client
	Bucket string
}

// NewS3 builds a blob store from config defaults overlaid with the
// catalog's credential rows for the service (access_key, secret_key, and
// optionally endpoint, region, bucket).
func NewS3(cfg config.RemoteConfig, creds map[string]string) (*S3, error) {
	endpoint := override(cfg.Endpoint, creds["endpoint"])
	region := override(cfg.Region, creds["region"])
	bucket := override(cfg.Bucket, creds["bucket"])
	accessKey := creds["access_key"]
	secretKey := creds["secret_key"]

	if endpoint == "" || bucket == "" {
		return nil, fmt.Errorf("%w: remote endpoint and bucket are required; run configure", errs.ErrValidation)
	}
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("%w: missing access_key/secret_key for service; run configure", errs.ErrValidation)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
		BucketLookup: func() minio.BucketLookupType {
			if cfg.ForcePathStyle {
				return minio.BucketLookupPath
			}
			return minio.BucketLookupDNS
		}(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRemote, err)
	}
	return &S3{Client: client, Bucket: bucket}, nil
}

func (s *S3) PutBlob(ctx context.Context, key, localPath string) error {
	if _, err := s.Client.FPutObject(ctx, s.Bucket, key, localPath, minio.PutObjectOptions{}); err != nil {
		return fmt.Errorf("%w: upload %s: %v", errs.ErrRemote, key, err)
	}
	// The operation is atomic from the caller's perspective: confirm the
	// object is actually visible before reporting success.
	if _, err := s.Client.StatObject(ctx, s.Bucket, key, minio.StatObjectOptions{}); err != nil {
		return fmt.Errorf("%w: object %s not visible after upload: %v", errs.ErrRemote, key, err)
	}
	return nil
}

func (s *S3) GetBlob(ctx context.Context, key, localPath string) error {
	if err := s.Client.FGetObject(ctx, s.Bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("%w: download %s: %v", errs.ErrRemote, key, err)
	}
	return nil
}

func override(base, value string) string {
	if value != "" {
		return value
	}
	return base
}
