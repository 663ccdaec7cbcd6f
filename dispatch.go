package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadolammi/polypopcareers/internal/database"
	"github.com/muhammadolammi/polypopcareers/internal/events"
	"github.com/muhammadolammi/polypopcareers/internal/extract"
	"github.com/muhammadolammi/polypopcareers/internal/logging"
	"github.com/muhammadolammi/polypopcareers/internal/storage"
)

// Resume record statuses.
const (
	ResumeStored        = "stored"
	ResumeIndexed       = "indexed"
	ResumeExtractFailed = "extract_failed"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 500 * time.Millisecond
	defaultEventTimeout  = 30 * time.Second
)

// Recorder persists applications and their resumes.
type Recorder interface {
	CreateApplication(ctx context.Context, arg database.CreateApplicationParams) (database.Application, error)
	CreateResume(ctx context.Context, arg database.CreateResumeParams) (database.Resume, error)
	UpdateResumeText(ctx context.Context, arg database.UpdateResumeTextParams) error
	UpdateResumeStatus(ctx context.Context, arg database.UpdateResumeStatusParams) error
}

// EventPublisher announces stored applications.
type EventPublisher interface {
	PublishApplicationReceived(ctx context.Context, evt events.ApplicationReceived) error
}

type DispatcherConfig struct {
	Recorder  Recorder
	Publisher EventPublisher
	Store     storage.Store
	Logger    *logging.Logger

	QueueSize int
	// MaxResumeBytes bounds how much of a stored resume is read back for
	// text extraction.
	MaxResumeBytes int64
	RetryAttempts  int
	RetryBackoff   time.Duration
	// EventTimeout bounds all work for a single application, retries
	// included.
	EventTimeout time.Duration
}

// Dispatcher hands stored applications to the configured sinks off the
// request path.
type Dispatcher struct {
	cfg    DispatcherConfig
	logger *logging.Logger
	queue  chan events.ApplicationReceived
	wg     sync.WaitGroup

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewDispatcher returns nil when neither a recorder nor a publisher is
// configured. A nil *Dispatcher accepts no work.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Recorder == nil && cfg.Publisher == nil {
		return nil
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = defaultEventTimeout
	}
	return &Dispatcher{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "dispatcher"),
		queue:  make(chan events.ApplicationReceived, cfg.QueueSize),
	}
}

// Start launches n workers.
func (d *Dispatcher) Start(n int) {
	if d == nil {
		return
	}
	d.wg.Add(n)
	for i := range n {
		d.logger.Debug("worker started", "worker", i+1)
		go d.worker(i)
	}
}

// Enqueue queues evt without blocking. It reports false when the queue is
// full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(evt events.ApplicationReceived) bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, dropping application", "application_id", evt.ID)
		return false
	}
	select {
	case d.queue <- evt:
		return true
	default:
		d.logger.Warn("dispatch queue full, dropping application", "application_id", evt.ID, "queue", cap(d.queue))
		return false
	}
}

// Close stops accepting work, drains the queue and waits for the workers.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for evt := range d.queue {
		d.process(id, evt)
	}
}

func (d *Dispatcher) process(id int, evt events.ApplicationReceived) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.EventTimeout)
	defer cancel()
	logger := d.logger.With("worker", id+1, "application_id", evt.ID, "request_id", evt.RequestID)
	logger.Debug("processing application")

	if d.cfg.Recorder != nil {
		if err := d.record(ctx, logger, evt); err != nil {
			logger.Error("failed to record application", "err", err)
		}
	}

	if d.cfg.Publisher != nil {
		_, err := retry(ctx, d.cfg.RetryAttempts, d.cfg.RetryBackoff, func() (any, error) {
			return nil, d.cfg.Publisher.PublishApplicationReceived(ctx, evt)
		})
		if err != nil {
			logger.Error("failed to publish application", "err", err)
		}
	}
}

// record stores the application and its resume row, then indexes the resume
// text. Extraction problems only change the resume status.
func (d *Dispatcher) record(ctx context.Context, logger *logging.Logger, evt events.ApplicationReceived) error {
	rec := d.cfg.Recorder
	if evt.Resume == nil {
		return errors.New("event carries no stored resume")
	}

	_, err := retry(ctx, d.cfg.RetryAttempts, d.cfg.RetryBackoff, func() (database.Application, error) {
		return rec.CreateApplication(ctx, database.CreateApplicationParams{
			ID:             evt.ID,
			Name:           evt.Name,
			Phone:          evt.Phone,
			Experience:     int32(evt.Experience),
			Position:       evt.Position,
			Salary:         evt.Salary,
			ExpectedSalary: evt.ExpectedSalary,
			RequestID:      sql.NullString{String: evt.RequestID, Valid: evt.RequestID != ""},
		})
	})
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}

	resume, err := retry(ctx, d.cfg.RetryAttempts, d.cfg.RetryBackoff, func() (database.Resume, error) {
		return rec.CreateResume(ctx, database.CreateResumeParams{
			OriginalFilename: evt.Filename,
			Mime:             evt.Resume.ContentType,
			SizeBytes:        evt.Resume.Size,
			StorageProvider:  evt.Resume.Backend,
			ObjectKey:        evt.Resume.Key,
			StorageUrl:       evt.Resume.Location,
			UploadStatus:     ResumeStored,
			ApplicationID:    evt.ID,
		})
	})
	if err != nil {
		return fmt.Errorf("create resume: %w", err)
	}

	text, err := d.resumeText(ctx, evt.Resume)
	if err != nil {
		logger.Warn("text extraction failed", "key", evt.Resume.Key, "err", err)
		return d.markExtractFailed(ctx, resume.ID)
	}

	_, err = retry(ctx, d.cfg.RetryAttempts, d.cfg.RetryBackoff, func() (any, error) {
		return nil, rec.UpdateResumeText(ctx, database.UpdateResumeTextParams{
			ResumeText:   sql.NullString{String: text, Valid: true},
			UploadStatus: ResumeIndexed,
			ID:           resume.ID,
		})
	})
	if err != nil {
		logger.Warn("failed to save resume text", "resume_id", resume.ID, "err", err)
		return d.markExtractFailed(ctx, resume.ID)
	}
	logger.Info("application recorded", "resume_id", resume.ID, "status", ResumeIndexed)
	return nil
}

func (d *Dispatcher) markExtractFailed(ctx context.Context, id uuid.UUID) error {
	_, err := retry(ctx, d.cfg.RetryAttempts, d.cfg.RetryBackoff, func() (any, error) {
		return nil, d.cfg.Recorder.UpdateResumeStatus(ctx, database.UpdateResumeStatusParams{
			UploadStatus: ResumeExtractFailed,
			ID:           id,
		})
	})
	if err != nil {
		return fmt.Errorf("update resume status: %w", err)
	}
	return nil
}

func (d *Dispatcher) resumeText(ctx context.Context, ref *storage.StoredResume) (string, error) {
	if d.cfg.Store == nil {
		return "", errors.New("no store to read the resume from")
	}
	rc, err := retry(ctx, d.cfg.RetryAttempts, d.cfg.RetryBackoff, func() (io.ReadCloser, error) {
		return d.cfg.Store.Open(ctx, ref.Key)
	})
	if err != nil {
		return "", err
	}
	defer rc.Close()

	limit := d.cfg.MaxResumeBytes
	if limit <= 0 {
		limit = ref.Size
	}
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read resume: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("resume larger than %d bytes", limit)
	}
	return extract.Text(ref.ContentType, data)
}

// retry calls fn up to attempts times, sleeping backoff*(i+1) between tries.
// It stops early once ctx is done.
func retry[T any](ctx context.Context, attempts int, backoff time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		timer := time.NewTimer(backoff * time.Duration(i+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("after %d attempts: %w", i+1, errors.Join(lastErr, ctx.Err()))
		case <-timer.C:
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
