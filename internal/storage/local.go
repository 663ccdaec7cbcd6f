package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadolammi/polypopcareers/internal/apperr"
	"github.com/spf13/afero"
)

// LocalStore writes resumes beneath a directory on an afero filesystem.
type LocalStore struct {
	fs      afero.Fs
	baseDir string
	now     func() time.Time
}

// NewLocalStore creates the upload directory if needed and returns a store
// rooted at it.
func NewLocalStore(fsys afero.Fs, baseDir string) (*LocalStore, error) {
	if err := fsys.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", baseDir, err)
	}
	return &LocalStore{fs: fsys, baseDir: baseDir, now: time.Now}, nil
}

func (s *LocalStore) Name() string { return "local" }

// Put streams obj.Body into a temporary file next to the target and renames
// it into place. Nothing is left on disk when any step fails.
func (s *LocalStore) Put(ctx context.Context, obj Object) (*StoredResume, error) {
	if !ValidKey(obj.Key) {
		return nil, apperr.New(apperr.KindIO, "invalid storage key")
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.KindIO, "upload cancelled")
	}

	dst := s.path(obj.Key)
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, apperr.Wrap(err, apperr.KindIO, "could not save resume")
	}
	if _, err := s.fs.Stat(dst); err == nil {
		return nil, apperr.Wrap(fs.ErrExist, apperr.KindIO, "could not save resume")
	}

	tmp := dst + ".partial-" + uuid.NewString()
	n, err := s.writeFile(tmp, obj.Body)
	if err != nil {
		_ = s.fs.Remove(tmp)
		return nil, apperr.Wrap(err, apperr.KindIO, "could not save resume")
	}
	if err := s.fs.Rename(tmp, dst); err != nil {
		_ = s.fs.Remove(tmp)
		return nil, apperr.Wrap(err, apperr.KindIO, "could not save resume")
	}

	return &StoredResume{
		Key:         obj.Key,
		Location:    dst,
		Backend:     s.Name(),
		ContentType: obj.ContentType,
		Size:        n,
		StoredAt:    s.now(),
	}, nil
}

func (s *LocalStore) writeFile(name string, body io.Reader) (int64, error) {
	f, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Open returns the stored bytes for key.
func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if !ValidKey(key) {
		return nil, apperr.New(apperr.KindIO, "invalid storage key")
	}
	f, err := s.fs.Open(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Wrap(err, apperr.KindIO, "resume not found")
		}
		return nil, apperr.Wrap(err, apperr.KindIO, "could not read resume")
	}
	return f, nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

var _ Store = (*LocalStore)(nil)
