// Package aliyun holds the Alibaba Cloud adapters: OSS object storage and
// the NLS file transcription service.
package aliyun

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"

	"clipforge/internal/blob"
	apperrors "clipforge/pkg/errors"
)

type OSSOptions struct {
	Region          string
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
}

// OSSStore is a blob.Store backed by one OSS bucket.
type OSSStore struct {
	client *oss.Client
	bucket string
}

func NewOSSStore(opts OSSOptions) *OSSStore {
	cfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.AccessKeySecret)).
		WithRegion(opts.Region)
	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint)
	}
	return &OSSStore{client: oss.NewClient(cfg), bucket: opts.Bucket}
}

func (s *OSSStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	req := &oss.PutObjectRequest{
		Bucket: oss.Ptr(s.bucket),
		Key:    oss.Ptr(key),
		Body:   r,
	}
	if contentType != "" {
		req.ContentType = oss.Ptr(contentType)
	}
	if _, err := s.client.PutObject(ctx, req); err != nil {
		return apperrors.Wrap(apperrors.CodeBlobError, "oss put "+key, err)
	}
	return nil
}

func (s *OSSStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	res, err := s.client.GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(s.bucket),
		Key:    oss.Ptr(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, blob.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.CodeBlobError, "oss get "+key, err)
	}
	return res.Body, nil
}

func (s *OSSStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &oss.DeleteObjectRequest{
		Bucket: oss.Ptr(s.bucket),
		Key:    oss.Ptr(key),
	})
	if err != nil && !isNotFound(err) {
		return apperrors.Wrap(apperrors.CodeBlobError, "oss delete "+key, err)
	}
	return nil
}

func (s *OSSStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.IsObjectExist(ctx, s.bucket, key)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeBlobError, "oss head "+key, err)
	}
	return ok, nil
}

// PresignGet returns a time-limited download URL for key.
func (s *OSSStore) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	res, err := s.client.Presign(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(s.bucket),
		Key:    oss.Ptr(key),
	}, oss.PresignExpires(expires))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeBlobError, "oss presign "+key, err)
	}
	return res.URL, nil
}

func isNotFound(err error) bool {
	var se *oss.ServiceError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound || se.Code == "NoSuchKey"
	}
	return false
}
