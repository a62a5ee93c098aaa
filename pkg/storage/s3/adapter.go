package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"beatmapvault/pkg/core"
	"beatmapvault/pkg/storage"
	"beatmapvault/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Adapter 实现了 storage.Store 接口
type Adapter struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config 用于初始化 Adapter
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string // 可选的 Key 前缀，例如 "beatmapsets/"
	AccessKeyID     string
	SecretAccessKey string
}

// NewAdapter 初始化 S3 客户端
func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	// 没有显式配置密钥时走默认凭证链 (环境变量 / IAM Role)
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// 指定了 Endpoint (比如 MinIO 的 localhost:9000) 时覆盖默认值
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO 必须强制使用 Path Style
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
			// 可能是并发创建或权限不足，后续 Put 会给出真正的错误
			slog.Warn("failed to ensure bucket exists", slog.String("bucket", cfg.Bucket), slog.Any("err", err))
		}
	}

	return &Adapter{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// transformKey 将 Hash 转换为 S3 Key (Sharding)
// Logic: "aabbcc..." -> "<prefix>aa/bbcc..."
func (s *Adapter) transformKey(hash types.Hash) string {
	h := string(hash)
	if len(h) < 2 {
		return s.prefix + h
	}
	return s.prefix + h[:2] + "/" + h[2:]
}

func contentType(obj core.Object) string {
	if obj.Type() == core.TypeManifest {
		return "application/cbor"
	}
	return "application/octet-stream"
}

// Put 上传对象
func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	// HEAD 比 PUT 便宜，已存在就跳过
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return fmt.Errorf("s3 put existence check failed: %w", err)
	}
	if exists {
		return nil
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.transformKey(obj.ID())),
		Body:        bytes.NewReader(obj.Bytes()),
		ContentType: aws.String(contentType(obj)),
	})
	if err != nil {
		return fmt.Errorf("s3 put failed: %w", err)
	}
	return nil
}

// Get 下载对象
func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.transformKey(hash)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	return resp.Body, nil
}

// Has 检查对象是否存在
func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.transformKey(hash)),
	})
	if err == nil {
		return true, nil
	}

	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return false, nil
	}
	// 某些 S3 兼容实现只返回 generic 404
	if strings.Contains(err.Error(), "404") {
		return false, nil
	}
	return false, err
}
