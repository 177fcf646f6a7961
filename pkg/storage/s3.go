package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

const (
	// MaxProfilePictureSize is the maximum accepted profile picture upload (5MB).
	MaxProfilePictureSize = 5 * 1024 * 1024
)

// Allowed profile picture MIME types and extensions.
var (
	AllowedImageTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/jpg":  ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
		"image/gif":  ".gif",
	}
	AllowedImageExtensions = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
		".gif":  "image/gif",
	}
)

// S3Config holds S3 client configuration.
type S3Config struct {
	Region                string
	AccessKeyID           string
	SecretAccessKey       string
	ProfilePicturesBucket string
	Endpoint              string // optional S3-compatible endpoint (MinIO, Supabase storage); forces path-style addressing
	PublicBaseURL         string // optional base for public object URLs, e.g. a CDN
}

// S3 uploads and removes profile pictures and resolves their public URLs.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or .env (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY).
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using credentials from .env/config", zap.String("region", cfg.Region), zap.String("bucket", cfg.ProfilePicturesBucket))
	} else {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})
	return &S3{
		client:   client,
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// ValidateImageType returns true if the content type and/or extension are allowed for profile pictures.
func ValidateImageType(contentType, filename string) bool {
	if contentType != "" {
		if _, ok := AllowedImageTypes[strings.ToLower(contentType)]; ok {
			return true
		}
	}
	ext := strings.ToLower(path.Ext(filename))
	if ext != "" {
		if _, ok := AllowedImageExtensions[ext]; ok {
			return true
		}
	}
	return false
}

// ContentTypeForFilename returns the MIME type for an image filename extension.
func ContentTypeForFilename(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ct, ok := AllowedImageExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ProfilePictureKey returns the object key for an uploaded picture: {unix_millis}_{base filename}.
// Spaces and path separators in the client filename are replaced so the key stays a single segment.
func ProfilePictureKey(now time.Time, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("%d_%s", now.UnixMilli(), base)
}

// ProfilePicturesBucket returns the bucket holding profile pictures.
func (s *S3) ProfilePicturesBucket() string { return s.cfg.ProfilePicturesBucket }

// PublicObjectURL returns the public URL for an object (no signing; the bucket is expected to be public).
func (s *S3) PublicObjectURL(bucket, key string) string {
	switch {
	case s.cfg.PublicBaseURL != "":
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	case s.cfg.Endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.Endpoint, "/"), bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.cfg.Region, key)
}

// KeyFromPublicURL reverses PublicObjectURL for objects in bucket. Returns "" when the URL is not ours.
func (s *S3) KeyFromPublicURL(bucket, url string) string {
	prefix := s.PublicObjectURL(bucket, "")
	if url == "" || !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}

// Upload streams a reader to S3 and returns the object's public URL.
func (s *S3) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64, publicRead bool) (string, error) {
	var contentLengthPtr *int64
	if contentLength > 0 {
		contentLengthPtr = &contentLength
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: contentLengthPtr,
	}
	if publicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return s.PublicObjectURL(bucket, key), nil
}

// UploadProfilePicture stores a picture under a timestamp-prefixed key and returns its public URL.
func (s *S3) UploadProfilePicture(ctx context.Context, filename, contentType string, body io.Reader, size int64) (string, error) {
	if contentType == "" {
		contentType = ContentTypeForFilename(filename)
	}
	key := ProfilePictureKey(time.Now(), filename)
	url, err := s.Upload(ctx, s.cfg.ProfilePicturesBucket, key, contentType, body, size, true)
	if err != nil {
		return "", err
	}
	s.logger.Debug("profile picture uploaded", zap.String("key", key))
	return url, nil
}

// DeleteObject removes an object from S3.
func (s *S3) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// DeleteProfilePicture removes the picture behind a URL returned by UploadProfilePicture.
func (s *S3) DeleteProfilePicture(ctx context.Context, url string) error {
	key := s.KeyFromPublicURL(s.cfg.ProfilePicturesBucket, url)
	if key == "" {
		return fmt.Errorf("delete profile picture: %q is not an object of bucket %s", url, s.cfg.ProfilePicturesBucket)
	}
	return s.DeleteObject(ctx, s.cfg.ProfilePicturesBucket, key)
}
