// Package filestore implements a durable storage.Store that keeps every key
// in a single JSON document on disk. Writes go to a temporary file that is
// renamed over the document so a crash never leaves it half written.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Watcher = (*Store)(nil)
)

// ErrWatchUnsupported is returned by Watch when the store is not backed by the OS filesystem.
var ErrWatchUnsupported = fmt.Errorf("filestore: watch requires the OS filesystem")

// Store is a JSON document backed key/value store
type Store struct {
	fs     afero.Fs
	path   string
	logger zerolog.Logger

	mu   sync.Mutex
	seen map[string]json.RawMessage // values as last observed by Watch or written by this instance
}

// Option configures a Store
type Option func(*Store)

// WithFs sets the filesystem (primarily for testing with afero.NewMemMapFs)
func WithFs(fs afero.Fs) Option {
	return func(s *Store) {
		s.fs = fs
	}
}

// WithLogger sets the logger used for watch diagnostics
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New opens (or lazily creates) the document at path
func New(path string, options ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("[filestore New] path is required")
	}
	s := &Store{
		fs:     afero.NewOsFs(),
		path:   filepath.Clean(path),
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("[filestore New] create directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	s.seen = doc
	return s, nil
}

// Path returns the location of the backing document
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	value, ok := doc[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *Store) Set(key string, value []byte) error {
	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return fmt.Errorf("%w: key %q is not valid JSON", apperrors.ErrInvalidValue, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	doc[key] = json.RawMessage(compact.Bytes())
	if err := s.writeLocked(doc); err != nil {
		return err
	}
	s.seen[key] = doc[key]
	return nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	delete(s.seen, key)
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return s.writeLocked(doc)
}

func (s *Store) Close() error {
	return nil
}

// readLocked loads the document; a missing file is an empty document.
func (s *Store) readLocked() (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("[filestore read] %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidValue, s.path, err)
	}
	return doc, nil
}

func (s *Store) writeLocked(doc map[string]json.RawMessage) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("[filestore write] marshal: %w", err)
	}

	// Other processes write into the same directory; temp names must be unique per write.
	tmp, err := afero.TempFile(s.fs, filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("[filestore write] create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmp.Name())
		return fmt.Errorf("[filestore write] %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmp.Name())
		return fmt.Errorf("[filestore write] %s: %w", tmp.Name(), err)
	}
	if err := s.fs.Rename(tmp.Name(), s.path); err != nil {
		_ = s.fs.Remove(tmp.Name())
		return fmt.Errorf("[filestore write] rename: %w", err)
	}
	return nil
}

// Watch reports keys changed by other writers of the same document. Changes
// made through this instance are not reported.
func (s *Store) Watch(ctx context.Context, onChange func(key string)) error {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		return ErrWatchUnsupported
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("[filestore Watch] %w", err)
	}
	// The document is replaced by rename, so watch the directory rather than the file.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("[filestore Watch] add: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				for _, key := range s.changedKeys() {
					onChange(key)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn().Err(err).Str("path", s.path).Msg("filestore watch error")
			}
		}
	}()
	return nil
}

// changedKeys re-reads the document and diffs it against the last seen copy.
func (s *Store) changedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		// Usually a partially visible write; the next event re-reads.
		s.logger.Debug().Err(err).Str("path", s.path).Msg("filestore reread failed")
		return nil
	}

	var changed []string
	for key, value := range doc {
		if prev, ok := s.seen[key]; !ok || !bytes.Equal(prev, value) {
			changed = append(changed, key)
		}
	}
	for key := range s.seen {
		if _, ok := doc[key]; !ok {
			changed = append(changed, key)
		}
	}
	s.seen = doc
	return changed
}
