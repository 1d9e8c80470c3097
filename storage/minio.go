package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"tunedeck/config"
	"tunedeck/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio connects to the MinIO server and makes sure the track and cover
// buckets exist.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, bucket := range []string{cfg.MinioTrackBucket, cfg.MinioCoverBucket} {
		if err := ensureBucket(ctx, client, bucket, cfg.MinioRegion); err != nil {
			return err
		}
	}

	minioClient = client
	logger.Info("MinIO client initialized",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("trackBucket", cfg.MinioTrackBucket),
		logger.String("coverBucket", cfg.MinioCoverBucket),
	)
	return nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	logger.Info("created bucket", logger.String("bucket", bucket))
	return nil
}

// uriScheme prefixes the stable object references stored in the database.
const uriScheme = "minio://"

// presignExpiry bounds how long a resolved asset link stays fetchable.
const presignExpiry = time.Hour

// UploadStream stores an object and returns its URI. The reader is consumed
// fully; size may be -1 when unknown.
func UploadStream(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := minioClient.PutObject(ctx, bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s/%s: %w", bucket, objectName, err)
	}
	return ObjectURI(bucket, objectName), nil
}

// TryUploadStream is UploadStream with failure reduced to an empty URI, for
// callers that treat the object as optional.
func TryUploadStream(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, contentType string) string {
	uri, err := UploadStream(ctx, bucket, objectName, reader, size, contentType)
	if err != nil {
		logger.Warn("optional upload failed",
			logger.String("bucket", bucket),
			logger.String("object", objectName),
			logger.ErrorField(err),
		)
		return ""
	}
	return uri
}

// RemoveObject deletes an object; removing a missing object is not an error.
func RemoveObject(ctx context.Context, bucket, objectName string) error {
	err := minioClient.RemoveObject(ctx, bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", bucket, objectName, err)
	}
	return nil
}

// ObjectURI builds the stable minio:// URI stored in the database for an
// uploaded object.
func ObjectURI(bucket, objectName string) string {
	return uriScheme + bucket + "/" + objectName
}

/// ResolveURI turns a stored minio:// reference into a time-limited HTTP URL
// for the response. Other URIs pass through unchanged; a reference that
// cannot be resolved yields an empty string rather than an unfetchable link.
func ResolveURI(ctx context.Context, uri string) string {
	if uri == "" || !strings.HasPrefix(uri, uriScheme) {
		return uri
	}
	bucket, objectName, ok := strings.Cut(strings.TrimPrefix(uri, uriScheme), "/")
	if !ok || minioClient == nil {
		return ""
	}

	signed, err := PresignedGetURL(ctx, bucket, objectName, presignExpiry)
	if err != nil {
		logger.Warn("failed to resolve object uri",
			logger.String("uri", uri),
			logger.ErrorField(err),
		)
		return ""
	}
	return signed
}

/// TryRemoveURI deletes the object behind a stored minio:// reference.
// Failures are logged; the row deletion that triggered the cleanup has
// already happened.
func TryRemoveURI(ctx context.Context, uri string) {
	if !strings.HasPrefix(uri, uriScheme) || minioClient == nil {
		return
	}
	bucket, objectName, ok := strings.Cut(strings.TrimPrefix(uri, uriScheme), "/")
	if !ok {
		return
	}
	if err := RemoveObject(ctx, bucket, objectName); err != nil {
		logger.Warn("failed to remove object",
			logger.String("uri", uri),
			logger.ErrorField(err),
		)
	}
}

// PresignedGetURL converts a stored object reference into a time-limited HTTP
// URL the client can stream from.
func PresignedGetURL(ctx context.Context, bucket, objectName string, expiry time.Duration) (string, error) {
	u, err := minioClient.PresignedGetObject(ctx, bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s/%s: %w", bucket, objectName, err)
	}
	return u.String(), nil
}
