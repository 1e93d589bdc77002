package media

import (
	"bytes"
	"io"
	"context"
	"path"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Laisky/laisky-blog-rest/library/log"
)

// Uploader stores inline images and returns their public URL
type Uploader interface {
	Upload(ctx context.Context, dataURL string) (publicURL string, err error)
}

// Config for the object storage behind Uploader
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL prefix of uploaded objects, defaults to the endpoint
	PublicURL string
}

// ConfigFromSettings reads `settings.media.*`, ok is false when disabled
func ConfigFromSettings() (cfg Config, ok bool) {
	if !gconfig.Shared.GetBool("settings.media.enabled") {
		return cfg, false
	}

	return Config{
		Endpoint:  gconfig.Shared.GetString("settings.media.endpoint"),
		AccessKey: gconfig.Shared.GetString("settings.media.access_key"),
		SecretKey: gconfig.Shared.GetString("settings.media.secret_key"),
		Bucket:    gconfig.Shared.GetString("settings.media.bucket"),
		UseSSL:    gconfig.Shared.GetBool("settings.media.use_ssl"),
		PublicURL: gconfig.Shared.GetString("settings.media.public_url"),
	}, true
}

// objectPutter is the part of *minio.Client used by MinIO
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader,
		objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinIO uploads images to a MinIO/S3 bucket
type MinIO struct {
	cli       objectPutter
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewMinIO creates an uploader for cfg
func NewMinIO(cfg Config) (*MinIO, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("media endpoint and bucket are required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new minio client")
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http://"
		if cfg.UseSSL {
			scheme = "https://"
		}
		publicURL = scheme + cfg.Endpoint + "/" + cfg.Bucket
	}

	return newMinIO(cli, cfg.Bucket, publicURL), nil
}

func newMinIO(cli objectPutter, bucket, publicURL string) *MinIO {
	return &MinIO{
		cli:       cli,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

// Upload implements Uploader
func (m *MinIO) Upload(ctx context.Context, dataURL string) (string, error) {
	contentType, raw, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	objectName := path.Join("images", m.now().UTC().Format("2006/01"), uuid.NewString()+extension(contentType))
	if _, err = m.cli.PutObject(ctx, m.bucket, objectName, bytes.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{ContentType: contentType},
	); err != nil {
		return "", errors.Wrapf(err, "put object %q", objectName)
	}

	log.Logger.Debug("uploaded image",
		zap.String("object", objectName),
		zap.Int("size", len(raw)))
	return m.publicURL + "/" + objectName, nil
}
