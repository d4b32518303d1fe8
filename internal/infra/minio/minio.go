package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/config"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var client *minio.Client

// Init 初始化 MinIO 客户端并确保导出 Bucket 存在
func Init(cfg *config.MinIOConfig) error {
	var err error
	client, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := ensureBucket(ctx, cfg.ExportBucket); err != nil {
		return err
	}

	logger.Info("MinIO connected",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("export_bucket", cfg.ExportBucket),
	)
	return nil
}

func ensureBucket(ctx context.Context, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	logger.Info("MinIO bucket created", zap.String("bucket", bucket))
	return nil
}

// Get 获取 MinIO 客户端实例
func Get() *minio.Client {
	return client
}

// UploadFile 上传文件到指定 Bucket，返回对象名
func UploadFile(ctx context.Context, bucket, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error) {
	if client == nil {
		return "", fmt.Errorf("minio client not initialized")
	}
	_, err := client.PutObject(ctx, bucket, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to minio: %w", err)
	}
	return objectName, nil
}

// GetPresignedURL 生成预签名下载 URL，filename 非空时附带下载文件名
func GetPresignedURL(ctx context.Context, bucket, objectName, filename string, expiry time.Duration) (string, error) {
	if client == nil {
		return "", fmt.Errorf("minio client not initialized")
	}
	reqParams := make(url.Values)
	if filename != "" {
		reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	presignedURL, err := client.PresignedGetObject(ctx, bucket, objectName, expiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned url: %w", err)
	}
	return presignedURL.String(), nil
}

// ExportStore 文章快照导出存储
type ExportStore struct {
	bucket string
	expiry time.Duration
}

func NewExportStore(bucket string, expiry time.Duration) *ExportStore {
	return &ExportStore{bucket: bucket, expiry: expiry}
}

// PutSnapshot 上传快照并返回预签名下载地址
func (s *ExportStore) PutSnapshot(ctx context.Context, objectName string, data []byte) (string, time.Time, error) {
	if _, err := UploadFile(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().Add(s.expiry)
	u, err := GetPresignedURL(ctx, s.bucket, objectName, path.Base(objectName), s.expiry)
	if err != nil {
		return "", time.Time{}, err
	}
	return u, expiresAt, nil
}
