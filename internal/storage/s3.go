package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/muhammadolammi/polypopcareers/internal/apperr"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config selects the bucket and endpoint. R2 fields point the client at
// Cloudflare R2 with static keys.
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	ACL           string
	PublicBaseURL string

	R2AccountID string
	R2AccessKey string
	R2SecretKey string
}

// S3Store uploads resumes to an S3-compatible bucket.
type S3Store struct {
	client        S3API
	creds         aws.CredentialsProvider
	bucket        string
	acl           types.ObjectCannedACL
	publicBaseURL string
	now           func() time.Time
}

// NewS3Store loads the AWS configuration from the ambient environment (or the
// R2 keys in cfg) and builds a store for cfg.Bucket.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.R2AccessKey != "" && cfg.R2SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKey, cfg.R2SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		switch {
		case cfg.Endpoint != "":
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // localstack/minio
		case cfg.R2AccountID != "":
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID))
		}
	})
	return NewS3StoreWithClient(client, awsCfg.Credentials, cfg), nil
}

// NewS3StoreWithClient builds a store around an existing client. A nil creds
// provider skips the credentials check before upload.
func NewS3StoreWithClient(client S3API, creds aws.CredentialsProvider, cfg S3Config) *S3Store {
	acl := cfg.ACL
	if acl == "" {
		acl = string(types.ObjectCannedACLPrivate)
	}
	return &S3Store{
		client:        client,
		creds:         creds,
		bucket:        cfg.Bucket,
		acl:           types.ObjectCannedACL(acl),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:           time.Now,
	}
}

func (s *S3Store) Name() string { return "s3" }

// Put uploads obj in a single PutObject call. S3 never exposes a partially
// written object, so a failed call leaves nothing behind.
func (s *S3Store) Put(ctx context.Context, obj Object) (*StoredResume, error) {
	if !ValidKey(obj.Key) {
		return nil, apperr.New(apperr.KindBackend, "invalid storage key")
	}
	if err := s.checkCredentials(ctx); err != nil {
		return nil, err
	}

	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(obj.Key),
		Body:     obj.Body,
		ACL:      s.acl,
		Metadata: obj.Metadata,
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if obj.Size > 0 {
		input.ContentLength = aws.Int64(obj.Size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, classifyS3Error(err, "could not upload resume")
	}

	return &StoredResume{
		Key:         obj.Key,
		Location:    s.location(obj.Key),
		Backend:     s.Name(),
		ContentType: obj.ContentType,
		Size:        obj.Size,
		StoredAt:    s.now(),
	}, nil
}

// Open downloads the object stored under key.
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyS3Error(err, "could not read resume")
	}
	return out.Body, nil
}

func (s *S3Store) checkCredentials(ctx context.Context) error {
	if s.creds == nil {
		return nil
	}
	c, err := s.creds.Retrieve(ctx)
	if err != nil {
		return apperr.Wrap(err, apperr.KindMissingCredentials, "storage credentials not available")
	}
	if !c.HasKeys() {
		return apperr.New(apperr.KindMissingCredentials, "storage credentials not available")
	}
	return nil
}

func (s *S3Store) location(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return "s3://" + s.bucket + "/" + key
}

var deniedCodes = map[string]bool{
	"AccessDenied":          true,
	"AllAccessDisabled":     true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"ExpiredToken":          true,
	"InvalidToken":          true,
	"AccountProblem":        true,
}

// classifyS3Error maps SDK failures onto the apperr taxonomy. Missing
// credentials are caught by checkCredentials before any call is made.
func classifyS3Error(err error, message string) *apperr.Error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && deniedCodes[apiErr.ErrorCode()] {
		return apperr.Wrap(err, apperr.KindAccessDenied, "storage access denied")
	}
	return apperr.Wrap(err, apperr.KindBackend, message)
}

var _ Store = (*S3Store)(nil)
