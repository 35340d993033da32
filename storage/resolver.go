package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/arkstudy/ms3-contenido/config"
)

// Resolver turns a material's recurso into a URL a client can fetch.
type Resolver interface {
	Resolve(ctx context.Context, recurso string) (string, error)
}

// ObjectRef points at an object in a bucket.
type ObjectRef struct {
	Bucket string
	Object string
}

// ParseObjectRef recognises minio://bucket/object and s3://bucket/object.
func ParseObjectRef(recurso string) (ObjectRef, bool) {
	u, err := url.Parse(recurso)
	if err != nil {
		return ObjectRef{}, false
	}
	if u.Scheme != "minio" && u.Scheme != "s3" {
		return ObjectRef{}, false
	}
	object := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || object == "" {
		return ObjectRef{}, false
	}
	return ObjectRef{Bucket: u.Host, Object: object}, true
}

// PassthroughResolver returns recurso unchanged.
type PassthroughResolver struct{}

func (PassthroughResolver) Resolve(_ context.Context, recurso string) (string, error) {
	return recurso, nil
}

// Presigner is the part of *minio.Client the resolver uses.
type Presigner interface {
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type MinioResolver struct {
	client Presigner
	bucket string
	expiry time.Duration
}

func NewMinioResolver(cfg config.MinIOConfig) (*MinioResolver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return NewMinioResolverWithClient(client, cfg.BucketName, cfg.URLExpiry), nil
}

func NewMinioResolverWithClient(client Presigner, bucket string, expiry time.Duration) *MinioResolver {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &MinioResolver{client: client, bucket: bucket, expiry: expiry}
}

// Resolve presigns object references and returns other locators as-is.
// minio:///object (empty host) refers to the default bucket.
func (r *MinioResolver) Resolve(ctx context.Context, recurso string) (string, error) {
	ref, ok := ParseObjectRef(recurso)
	if !ok {
		ref, ok = r.defaultBucketRef(recurso)
		if !ok {
			return recurso, nil
		}
	}
	u, err := r.client.PresignedGetObject(ctx, ref.Bucket, ref.Object, r.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

func (r *MinioResolver) defaultBucketRef(recurso string) (ObjectRef, bool) {
	if r.bucket == "" {
		return ObjectRef{}, false
	}
	for _, prefix := range []string{"minio:///", "s3:///"} {
		if object, found := strings.CutPrefix(recurso, prefix); found && object != "" {
			return ObjectRef{Bucket: r.bucket, Object: object}, true
		}
	}
	return ObjectRef{}, false
}
