// Package s3 hosts profile images on S3-compatible object storage.
package s3

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/core/ports"
)

// Config captures the bucket and credentials. Endpoint is set for MinIO and
// other non-AWS hosts; PublicBaseURL is the prefix under which objects are served.
type Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// ObjectAPI is the subset of the S3 client the asset host needs.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewClient builds an S3 client. Static credentials are used when configured,
// otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// AssetHost implements ports.AssetHost. Every call goes through a circuit
// breaker so a failing store is not hammered by uploads.
type AssetHost struct {
	api     ObjectAPI
	bucket  string
	baseURL string
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

var _ ports.AssetHost = (*AssetHost)(nil)

func NewAssetHost(api ObjectAPI, cfg Config, log zerolog.Logger) *AssetHost {
	log = log.With().Str("component", "asset_host").Logger()
	return &AssetHost{
		api:     api,
		bucket:  cfg.Bucket,
		baseURL: publicBaseURL(cfg),
		breaker: gobreaker.NewCircuitBreaker(breakerSettings(log)),
		log:     log,
	}
}

func breakerSettings(log zerolog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "asset-host",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			metrics.AssetBreakerState.Set(stateValue(to))
		},
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func publicBaseURL(cfg Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// Upload stores asset under folder with a random name and returns its public URL.
func (h *AssetHost) Upload(ctx context.Context, folder string, asset ports.Asset) (string, error) {
	key := objectKey(folder, asset)

	in := &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        asset.Body,
		ContentType: aws.String(asset.ContentType),
	}
	if asset.Size > 0 {
		in.ContentLength = aws.Int64(asset.Size)
	}

	err := h.call(ctx, "upload", func(ctx context.Context) error {
		_, err := h.api.PutObject(ctx, in)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	url := h.baseURL + "/" + key
	h.log.Debug().Str("key", key).Int64("size", asset.Size).Msg("asset uploaded")
	return url, nil
}

// Delete removes the object behind url. URLs that were not issued by this
// host are left alone.
func (h *AssetHost) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, h.baseURL+"/")
	if !ok || key == "" {
		h.log.Debug().Str("url", url).Msg("skipping delete of foreign asset url")
		return nil
	}

	err := h.call(ctx, "delete", func(ctx context.Context) error {
		_, err := h.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(h.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (h *AssetHost) call(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	_, err := h.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	metrics.AssetOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.AssetOpsTotal.WithLabelValues(op, "ok").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.AssetOpsTotal.WithLabelValues(op, "breaker_open").Inc()
	default:
		metrics.AssetOpsTotal.WithLabelValues(op, "error").Inc()
	}
	return err
}

func objectKey(folder string, asset ports.Asset) string {
	return path.Join(folder, uuid.NewString()+extension(asset))
}

// imageExtensions pins one extension per accepted image type; the system
// MIME table lists several for jpeg in no useful order.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// extension follows the detected content type. The client filename is only
// consulted when the type says nothing.
func extension(asset ports.Asset) string {
	if mediaType, _, err := mime.ParseMediaType(asset.ContentType); err == nil {
		if ext, ok := imageExtensions[mediaType]; ok {
			return ext
		}
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	return strings.ToLower(path.Ext(asset.Filename))
}
