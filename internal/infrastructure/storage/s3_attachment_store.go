// Package storage guarda los XML de comprobantes en almacenamiento de objetos compatible con S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
	"github.com/jhoicas/pos-einvoice-cr/pkg/config"
	"github.com/jhoicas/pos-einvoice-cr/pkg/logger"
)

const (
	handlePrefix = "s3:"
	maxPutTries  = 5
)

// objectAPI subconjunto de *s3.Client que usa el store.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ einvoice.AttachmentStore = (*S3AttachmentStore)(nil)

// S3AttachmentStore adjuntos en S3 (AWS, MinIO, RustFS). Claves:
// {prefix}/fe/{company}/pos_order-{order}/{kind}/{seq}.xml, escritas con If-None-Match
// para no pisar un objeto existente.
type S3AttachmentStore struct {
	client objectAPI
	bucket string
	prefix string
	log    *logger.Logger
}

// NewS3AttachmentStore crea el cliente S3 desde configuración.
func NewS3AttachmentStore(ctx context.Context, cfg config.S3Config, log *logger.Logger) (*S3AttachmentStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket requerido")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: configuración AWS: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3AttachmentStore(client, cfg.Bucket, cfg.Prefix, log), nil
}

func newS3AttachmentStore(client objectAPI, bucket, prefix string, log *logger.Logger) *S3AttachmentStore {
	if log == nil {
		log = logger.Nop()
	}
	return &S3AttachmentStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    log.Component("storage"),
	}
}

// Store implementa einvoice.AttachmentStore.
func (s *S3AttachmentStore) Store(ctx context.Context, owner einvoice.AttachmentOwner, data []byte, kind string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: adjunto vacío", domain.ErrInvalidInput)
	}
	dir := s.dir(owner, kind)
	seq, err := s.count(ctx, dir)
	if err != nil {
		return "", err
	}
	for try := 0; try < maxPutTries; try++ {
		seq++
		key := fmt.Sprintf("%s/%06d.xml", dir, seq)
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        strings.NewReader(string(data)),
			ContentType: aws.String("application/xml"),
			IfNoneMatch: aws.String("*"),
		})
		if isPreconditionFailed(err) {
			// otra réplica tomó el número
			continue
		}
		if err != nil {
			return "", fmt.Errorf("storage: put %s: %w", key, err)
		}
		s.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("adjunto guardado")
		return handlePrefix + key, nil
	}
	return "", fmt.Errorf("storage: %s: %w", dir, domain.ErrConcurrentUpdate)
}

// Load implementa einvoice.AttachmentStore.
func (s *S3AttachmentStore) Load(ctx context.Context, handle string) ([]byte, error) {
	key, ok := strings.CutPrefix(handle, handlePrefix)
	if !ok || key == "" {
		return nil, fmt.Errorf("%w: handle de adjunto %q", domain.ErrInvalidInput, handle)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("storage: %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: leer %s: %w", key, err)
	}
	return data, nil
}

func (s *S3AttachmentStore) dir(owner einvoice.AttachmentOwner, kind string) string {
	return path.Join(s.prefix, "fe", owner.CompanyID, "pos_order-"+owner.OrderID, kind)
}

func (s *S3AttachmentStore) count(ctx context.Context, dir string) (int, error) {
	n := 0
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(dir + "/"),
			ContinuationToken: token,
		})
		if err != nil {
			return 0, fmt.Errorf("storage: list %s: %w", dir, err)
		}
		n += len(out.Contents)
		if !aws.ToBool(out.IsTruncated) {
			return n, nil
		}
		token = out.NextContinuationToken
	}
}

func isPreconditionFailed(err error) bool {
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusPreconditionFailed
}
