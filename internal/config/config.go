// Package config loads the server configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
)

// Storage backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Env holds the configuration values for the application.
type Env struct {
	Host        string `env:"HOST,default=0.0.0.0"`
	Port        int    `env:"PORT,default=8000"`
	Debug       bool   `env:"DEBUG,default=false"`
	CompanyName string `env:"COMPANY_NAME,default=Polypop Nigeria Limited"`

	StorageBackend string `env:"STORAGE_BACKEND,default=local"`
	UploadDir      string `env:"UPLOAD_DIR,default=uploads"`

	S3Bucket        string `env:"S3_BUCKET_NAME,S3_BUCKET"`
	AWSRegion       string `env:"AWS_REGION"`
	S3Endpoint      string `env:"AWS_ENDPOINT_URL"`
	S3ACL           string `env:"S3_ACL,default=private"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
	R2AccountID     string `env:"R2_ACCOUNT_ID"`
	R2AccessKey     string `env:"R2_ACCESS_KEY"`
	R2SecretKey     string `env:"R2_SECRET_KEY"`

	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES,default=10485760"`

	DBURL           string        `env:"DB_URL"`
	RabbitMQURL     string        `env:"RABBITMQ_URL"`
	DispatchWorkers int           `env:"DISPATCH_WORKERS,default=3"`
	DispatchQueue   int           `env:"DISPATCH_QUEUE,default=64"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT,default=30s"`
}

// Read reads the process environment without validating it, so callers can
// apply overrides first.
func Read() (*Env, error) {
	e := &Env{}
	if _, err := env.UnmarshalFromEnviron(e); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	e.Normalize()
	return e, nil
}

// FromEnvSet builds an Env from an explicit variable set. Defaults apply to
// anything missing.
func FromEnvSet(es env.EnvSet) (*Env, error) {
	e := &Env{}
	if err := env.Unmarshal(es, e); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	e.Normalize()
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Normalize canonicalises values that have more than one accepted spelling.
func (e *Env) Normalize() {
	e.StorageBackend = strings.ToLower(strings.TrimSpace(e.StorageBackend))
	e.S3PublicBaseURL = strings.TrimRight(e.S3PublicBaseURL, "/")
	if e.R2AccountID != "" && e.AWSRegion == "" {
		e.AWSRegion = "auto"
	}
}

// Validate rejects configurations the server cannot start with.
func (e *Env) Validate() error {
	var errs []error
	switch e.StorageBackend {
	case BackendLocal:
		if strings.TrimSpace(e.UploadDir) == "" {
			errs = append(errs, errors.New("UPLOAD_DIR must not be empty for the local backend"))
		}
	case BackendS3:
		if e.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET_NAME is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q (want %q or %q)", e.StorageBackend, BackendLocal, BackendS3))
	}
	if e.Port < 1 || e.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", e.Port))
	}
	if e.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if e.DispatchWorkers < 1 {
		errs = append(errs, errors.New("DISPATCH_WORKERS must be at least 1"))
	}
	if e.DispatchTimeout <= 0 {
		errs = append(errs, errors.New("DISPATCH_TIMEOUT must be positive"))
	}
	if e.DispatchQueue < 1 {
		errs = append(errs, errors.New("DISPATCH_QUEUE must be at least 1"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (e *Env) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// DispatchEnabled reports whether any post-upload sink is configured.
func (e *Env) DispatchEnabled() bool {
	return e.DBURL != "" || e.RabbitMQURL != ""
}
