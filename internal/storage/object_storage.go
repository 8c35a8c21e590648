// Package storage работает с S3-совместимым хранилищем доказательств верификации.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound объект с ключом отсутствует в бакете.
var ErrObjectNotFound = errors.New("storage: объект не найден")

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectInfo метаданные, которые отдаёт HEAD.
type ObjectInfo struct {
	Key         string
	ETag        string
	Size        int64
	ContentType string
}

// ObjectStorage обёртка над minio-клиентом. HEAD-запросы ограничены checkTimeout.
type ObjectStorage struct {
	client       *minio.Client
	bucket       string
	checkTimeout time.Duration

	ensureOnce sync.Once
	ensureErr  error
}

func NewObjectStorage(cfg Config, checkTimeout time.Duration) (*ObjectStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage: не задан endpoint")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("storage: не задан bucket")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось создать клиент: %w", err)
	}

	if checkTimeout <= 0 {
		checkTimeout = 5 * time.Second
	}
	return &ObjectStorage{client: client, bucket: strings.TrimSpace(cfg.Bucket), checkTimeout: checkTimeout}, nil
}

// EnsureBucket создаёт бакет при первом обращении, если его нет.
func (s *ObjectStorage) EnsureBucket(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.ensureErr = err
			return
		}
		if !exists {
			s.ensureErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		}
	})
	if s.ensureErr != nil {
		return fmt.Errorf("storage: бакет %q недоступен: %w", s.bucket, s.ensureErr)
	}
	return nil
}

// PingContext проверяет доступность бакета для /health.
func (s *ObjectStorage) PingContext(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage: ping: %w", err)
	}
	if !exists {
		return fmt.Errorf("storage: бакет %q не найден", s.bucket)
	}
	return nil
}

// PresignPut выдаёт URL для прямой загрузки клиентом.
func (s *ObjectStorage) PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, ttl)
	if err != nil {
		return "", fmt.Errorf("storage: presign put: %w", err)
	}
	return u.String(), nil
}

// Put загружает объект целиком.
func (s *ObjectStorage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if _, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return fmt.Errorf("storage: put object: %w", err)
	}
	return nil
}

// Stat проверяет существование объекта. Отсутствие даёт ErrObjectNotFound.
func (s *ObjectStorage) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("storage: stat object: %w", err)
	}
	return &ObjectInfo{
		Key:         key,
		ETag:        info.ETag,
		Size:        info.Size,
		ContentType: info.ContentType,
	}, nil
}

// PresignGet ссылка на чтение для администраторов.
func (s *ObjectStorage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("storage: presign get: %w", err)
	}
	return u.String(), nil
}

// VerificationKey строит ключ "{prefix}/{userID}/{unix}_{filename}".
func VerificationKey(prefix string, userID uuid.UUID, filename string, now time.Time) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "verification"
	}
	return path.Join(prefix, userID.String(), fmt.Sprintf("%d_%s", now.Unix(), SanitizeFilename(filename)))
}

// SanitizeFilename удаляет из имени файла разделители пути и "..".
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		if r == ' ' {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." {
		name = "photo"
	}
	return name
}
