package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// AttachmentService 检验照片/附件存储服务
type AttachmentService struct {
	minioClient *minio.Client
	bucketName  string
}

// NewAttachmentService 创建附件服务
func NewAttachmentService(minioClient *minio.Client, bucketName string) *AttachmentService {
	return &AttachmentService{
		minioClient: minioClient,
		bucketName:  bucketName,
	}
}

// Upload 上传附件，返回存储路径
func (s *AttachmentService) Upload(ctx context.Context, reader io.Reader, fileName string, fileSize int64, contentType string) (string, error) {
	if s.minioClient == nil {
		return "", fmt.Errorf("storage not configured")
	}

	// 生成存储路径
	objectName := fmt.Sprintf("inspections/%s/%s%s", time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(fileName))

	_, err := s.minioClient.PutObject(ctx, s.bucketName, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}

	return objectName, nil
}

// Download 下载附件
func (s *AttachmentService) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	if s.minioClient == nil {
		return nil, fmt.Errorf("storage not configured")
	}

	object, err := s.minioClient.GetObject(ctx, s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return object, nil
}

// PresignedURL 生成临时下载链接
func (s *AttachmentService) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if s.minioClient == nil {
		return "", fmt.Errorf("storage not configured")
	}

	u, err := s.minioClient.PresignedGetObject(ctx, s.bucketName, objectName, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}
