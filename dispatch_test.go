package main

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadolammi/polypopcareers/internal/database"
	"github.com/muhammadolammi/polypopcareers/internal/events"
	"github.com/muhammadolammi/polypopcareers/internal/logging"
	"github.com/muhammadolammi/polypopcareers/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	events   []events.ApplicationReceived
	failures int
	calls    int
}

func (p *recordingPublisher) PublishApplicationReceived(_ context.Context, evt events.ApplicationReceived) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failures > 0 {
		p.failures--
		return errors.New("channel closed")
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) published() []events.ApplicationReceived {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.ApplicationReceived(nil), p.events...)
}

type fakeRecorder struct {
	mu           sync.Mutex
	applications []database.CreateApplicationParams
	resumes      []database.CreateResumeParams
	texts        []database.UpdateResumeTextParams
	statuses     []database.UpdateResumeStatusParams
	createFails  int
	textErr      error
	// blockCreate makes CreateApplication wait for its context.
	blockCreate bool
}

func (r *fakeRecorder) CreateApplication(ctx context.Context, arg database.CreateApplicationParams) (database.Application, error) {
	if r.blockCreate {
		<-ctx.Done()
		return database.Application{}, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createFails > 0 {
		r.createFails--
		return database.Application{}, errors.New("connection refused")
	}
	r.applications = append(r.applications, arg)
	return database.Application{ID: arg.ID, Name: arg.Name}, nil
}

func (r *fakeRecorder) CreateResume(_ context.Context, arg database.CreateResumeParams) (database.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumes = append(r.resumes, arg)
	return database.Resume{ID: uuid.New(), ObjectKey: arg.ObjectKey, ApplicationID: arg.ApplicationID}, nil
}

func (r *fakeRecorder) UpdateResumeText(_ context.Context, arg database.UpdateResumeTextParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.textErr != nil {
		return r.textErr
	}
	r.texts = append(r.texts, arg)
	return nil
}

func (r *fakeRecorder) UpdateResumeStatus(_ context.Context, arg database.UpdateResumeStatusParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, arg)
	return nil
}

func storeResume(t *testing.T, store storage.Store, key, contentType string, data []byte) *storage.StoredResume {
	t.Helper()
	ref, err := store.Put(context.Background(), storage.Object{
		Key:         key,
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
		ContentType: contentType,
	})
	require.NoError(t, err)
	return ref
}

func testEvent(ref *storage.StoredResume) events.ApplicationReceived {
	return events.ApplicationReceived{
		ID:             uuid.New(),
		Name:           "Jane Doe",
		Phone:          "08012345678",
		Experience:     3,
		Position:       "Engineer",
		Salary:         500000,
		ExpectedSalary: 700000,
		Filename:       "resume.txt",
		Resume:         ref,
		ReceivedAt:     fixedNow,
		RequestID:      "req-1",
	}
}

func TestNewDispatcherWithoutSinks(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Logger: logging.NewTestLogger()})
	assert.Nil(t, d)

	d.Start(3)
	assert.False(t, d.Enqueue(events.ApplicationReceived{}))
	d.Close()
}

func TestDispatcherRecordsAndIndexes(t *testing.T) {
	store, _ := newLocalTestStore(t)
	ref := storeResume(t, store, "19102026/Jane_Doe_resume.txt", "text/plain; charset=utf-8", []byte("Jane Doe\nGo engineer\n"))
	rec := &fakeRecorder{}
	pub := &recordingPublisher{}

	d := NewDispatcher(DispatcherConfig{
		Recorder:     rec,
		Publisher:    pub,
		Store:        store,
		Logger:       logging.NewTestLogger(),
		QueueSize:    4,
		RetryBackoff: time.Millisecond,
	})
	d.Start(2)
	evt := testEvent(ref)
	require.True(t, d.Enqueue(evt))
	d.Close()

	require.Len(t, rec.applications, 1)
	app := rec.applications[0]
	assert.Equal(t, evt.ID, app.ID)
	assert.Equal(t, int32(3), app.Experience)
	assert.Equal(t, "req-1", app.RequestID.String)

	require.Len(t, rec.resumes, 1)
	assert.Equal(t, ResumeStored, rec.resumes[0].UploadStatus)
	assert.Equal(t, ref.Key, rec.resumes[0].ObjectKey)
	assert.Equal(t, "local", rec.resumes[0].StorageProvider)
	assert.Equal(t, evt.ID, rec.resumes[0].ApplicationID)

	require.Len(t, rec.texts, 1)
	assert.Equal(t, ResumeIndexed, rec.texts[0].UploadStatus)
	assert.Equal(t, "Jane Doe\nGo engineer", rec.texts[0].ResumeText.String)
	assert.Empty(t, rec.statuses)

	require.Len(t, pub.published(), 1)
	assert.Equal(t, evt.ID, pub.published()[0].ID)
}

func TestDispatcherMarksUnreadableResume(t *testing.T) {
	store, _ := newLocalTestStore(t)
	ref := storeResume(t, store, "19102026/Jane_Doe_resume.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	rec := &fakeRecorder{}

	d := NewDispatcher(DispatcherConfig{
		Recorder:     rec,
		Store:        store,
		Logger:       logging.NewTestLogger(),
		QueueSize:    1,
		RetryBackoff: time.Millisecond,
	})
	d.Start(1)
	require.True(t, d.Enqueue(testEvent(ref)))
	d.Close()

	assert.Empty(t, rec.texts)
	require.Len(t, rec.statuses, 1)
	assert.Equal(t, ResumeExtractFailed, rec.statuses[0].UploadStatus)
}

func TestDispatcherMarksResumeWhenTextIsRejected(t *testing.T) {
	store, _ := newLocalTestStore(t)
	ref := storeResume(t, store, "19102026/Jane_Doe_resume.txt", "text/plain", []byte("Jane Doe"))
	rec := &fakeRecorder{textErr: errors.New(`pq: invalid byte sequence for encoding "UTF8": 0x00`)}
	logger := logging.NewTestLogger()

	d := NewDispatcher(DispatcherConfig{
		Recorder:     rec,
		Store:        store,
		Logger:       logger,
		QueueSize:    1,
		RetryBackoff: time.Millisecond,
	})
	d.Start(1)
	require.True(t, d.Enqueue(testEvent(ref)))
	d.Close()

	assert.Empty(t, rec.texts)
	require.Len(t, rec.statuses, 1)
	assert.Equal(t, ResumeExtractFailed, rec.statuses[0].UploadStatus)
	assert.Contains(t, logger.GetOutput(), "failed to save resume text")
}

func TestDispatcherBoundsEachEvent(t *testing.T) {
	rec := &fakeRecorder{blockCreate: true}
	logger := logging.NewTestLogger()

	d := NewDispatcher(DispatcherConfig{
		Recorder:     rec,
		Logger:       logger,
		QueueSize:    1,
		RetryBackoff: time.Millisecond,
		EventTimeout: 20 * time.Millisecond,
	})
	d.Start(1)
	require.True(t, d.Enqueue(testEvent(&storage.StoredResume{Key: "19102026/Jane_Doe_resume.txt", Backend: "local"})))

	done := make(chan struct{})
	go func() {
		d.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the event timeout")
	}
	assert.Empty(t, rec.applications)
	assert.Contains(t, logger.GetOutput(), "context deadline exceeded")
}

func TestDispatcherRetries(t *testing.T) {
	store, _ := newLocalTestStore(t)
	ref := storeResume(t, store, "19102026/Jane_Doe_resume.txt", "text/plain", []byte("cv"))
	rec := &fakeRecorder{createFails: 2}
	pub := &recordingPublisher{failures: 2}

	d := NewDispatcher(DispatcherConfig{
		Recorder:     rec,
		Publisher:    pub,
		Store:        store,
		Logger:       logging.NewTestLogger(),
		QueueSize:    1,
		RetryBackoff: time.Millisecond,
	})
	d.Start(1)
	require.True(t, d.Enqueue(testEvent(ref)))
	d.Close()

	assert.Len(t, rec.applications, 1)
	assert.Len(t, pub.published(), 1)
	assert.Equal(t, 3, pub.calls)
}

func TestDispatcherGivesUpAfterRetries(t *testing.T) {
	store, _ := newLocalTestStore(t)
	ref := storeResume(t, store, "19102026/Jane_Doe_resume.txt", "text/plain", []byte("cv"))
	rec := &fakeRecorder{createFails: 10}
	logger := logging.NewTestLogger()

	d := NewDispatcher(DispatcherConfig{
		Recorder:     rec,
		Store:        store,
		Logger:       logger,
		QueueSize:    1,
		RetryBackoff: time.Millisecond,
	})
	d.Start(1)
	require.True(t, d.Enqueue(testEvent(ref)))
	d.Close()

	assert.Empty(t, rec.applications)
	assert.Empty(t, rec.resumes)
	assert.Equal(t, 7, rec.createFails)
	assert.Contains(t, logger.GetOutput(), "after 3 attempts")
}

func TestDispatcherQueueFull(t *testing.T) {
	logger := logging.NewTestLogger()
	d := NewDispatcher(DispatcherConfig{
		Publisher: &recordingPublisher{},
		Logger:    logger,
		QueueSize: 1,
	})

	assert.True(t, d.Enqueue(events.ApplicationReceived{ID: uuid.New()}))
	assert.False(t, d.Enqueue(events.ApplicationReceived{ID: uuid.New()}))
	assert.Contains(t, logger.GetOutput(), "dispatch queue full")

	d.Start(1)
	d.Close()
	assert.False(t, d.Enqueue(events.ApplicationReceived{ID: uuid.New()}))
}

func TestRetry(t *testing.T) {
	calls := 0
	ctx := context.Background()
	got, err := retry(ctx, 3, time.Millisecond, func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)

	calls = 0
	_, err = retry(ctx, 3, time.Millisecond, func() (int, error) {
		calls++
		return 0, errors.New("down")
	})
	assert.EqualError(t, err, "after 3 attempts: down")
	assert.Equal(t, 3, calls)
}

func TestRetryStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := retry(ctx, 5, time.Hour, func() (int, error) {
		calls++
		return 0, errors.New("down")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "after 1 attempts")
	assert.Equal(t, 1, calls)
}
