// Package objectstorage реализует работу с S3-совместимым хранилищем
// файлов кредитных отчётов: выдачу временных ссылок на прямую загрузку
// и чтение загруженных байтов для анализа.
package objectstorage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/credoria/credit-repair/internal/config"
)

// Client обёртка над клиентом S3 с презайн-клиентом для загрузок.
type Client struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucket        string
}

// NewClient создаёт клиент S3 по настройкам хранилища.
// Для MinIO и других совместимых хранилищ используется кастомный endpoint
// с path-style адресацией.
func NewClient(ctx context.Context, cfg config.ObjectStorage) (*Client, error) {
	const op = "objectstorage.NewClient"

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucket:        cfg.S3Bucket,
	}, nil
}

// PresignUpload выдаёт временную ссылку на запись одного объекта.
// Ссылка действительна ttl и привязана ровно к одному ключу,
// клиент загружает байты напрямую в хранилище.
func (c *Client) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	const op = "objectstorage.PresignUpload"

	req, err := c.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return req.URL, nil
}

// Download читает объект целиком и возвращает его байты.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	const op = "objectstorage.Download"

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = result.Body.Close()
	}()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}
