package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/sciezka-prawa/sciezka-backend/internal/platform/envutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type StorageMode string

const (
	StorageModeGCS         StorageMode = "gcs"
	StorageModeGCSEmulator StorageMode = "gcs_emulator"
)

// ErrArchiveDisabled is returned by ArchiveConfigFromEnv when no bucket is configured.
var ErrArchiveDisabled = errors.New("archive disabled: ARCHIVE_GCS_BUCKET not set")

type ArchiveConfig struct {
	Bucket       string
	Prefix       string
	Mode         StorageMode
	EmulatorHost string
}

func ArchiveConfigFromEnv() (ArchiveConfig, error) {
	cfg := ArchiveConfig{
		Bucket:       envutil.String("ARCHIVE_GCS_BUCKET", ""),
		Prefix:       strings.Trim(envutil.String("ARCHIVE_GCS_PREFIX", "raw"), "/"),
		EmulatorHost: strings.TrimRight(envutil.String("STORAGE_EMULATOR_HOST", ""), "/"),
	}
	if cfg.Bucket == "" {
		return cfg, ErrArchiveDisabled
	}
	switch mode := StorageMode(strings.ToLower(envutil.String("OBJECT_STORAGE_MODE", ""))); mode {
	case "":
		cfg.Mode = StorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = StorageModeGCSEmulator
		}
	case StorageModeGCS, StorageModeGCSEmulator:
		cfg.Mode = mode
	default:
		return cfg, fmt.Errorf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)", mode, StorageModeGCS, StorageModeGCSEmulator)
	}
	return cfg, cfg.Validate()
}

func (cfg ArchiveConfig) Validate() error {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return ErrArchiveDisabled
	}
	if cfg.Mode != StorageModeGCSEmulator {
		return nil
	}
	u, err := url.Parse(cfg.EmulatorHost)
	if cfg.EmulatorHost == "" || err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", cfg.EmulatorHost)
	}
	return nil
}

// Archive stores raw scraped pages so parsing changes can be replayed later.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Close() error
}

type gcsArchive struct {
	log    *logger.Logger
	client *storage.Client
	cfg    ArchiveConfig
}

func NewArchive(ctx context.Context, log *logger.Logger, cfg ArchiveConfig) (Archive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var opts []option.ClientOption
	switch cfg.Mode {
	case StorageModeGCSEmulator:
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		opts = append(opts, option.WithoutAuthentication())
	default:
		opts = append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	log = log.With("service", "ArchiveService")
	log.Info("Raw page archive initialized", "bucket", cfg.Bucket, "prefix", cfg.Prefix, "mode", cfg.Mode)
	return &gcsArchive{log: log, client: client, cfg: cfg}, nil
}

// Put writes body under the configured prefix and returns the gs:// URI.
func (a *gcsArchive) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	objectKey := a.objectKey(key)
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	w := a.client.Bucket(a.cfg.Bucket).Object(objectKey).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, bytes.NewReader(body)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gcs object %q: %w", objectKey, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close gcs writer %q: %w", objectKey, err)
	}
	uri := "gs://" + a.cfg.Bucket + "/" + objectKey
	a.log.Debug("Archived object", "uri", uri, "bytes", len(body))
	return uri, nil
}

func (a *gcsArchive) objectKey(key string) string {
	return joinKey(a.cfg.Prefix, key)
}

func (a *gcsArchive) Close() error {
	return a.client.Close()
}

func joinKey(prefix, key string) string {
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// RCLPageKey names the object holding an RCL project page fetched at t.
func RCLPageKey(projectID string, t time.Time) string {
	id := strings.TrimSpace(projectID)
	if id == "" {
		id = "unknown"
	}
	return path.Join("rcl", id, t.UTC().Format("20060102T150405Z")+".html")
}
