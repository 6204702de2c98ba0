package ratelimit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// FileStore persists all records as one JSON document on disk so the state
// survives restarts. Writers inside the process are serialized by a mutex
// and writers across processes by an advisory lock on a sidecar ".lock"
// file. The document is replaced atomically with a rename.
//
// A file store is a single-host deployment choice; several hosts must share
// a RedisStore instead.
type FileStore struct {
	mu        sync.Mutex
	path      string
	lock      *os.File
	retention time.Duration
}

// NewFileStore opens (creating if needed) the store at path.
func NewFileStore(path string, retention time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create rate limit storage directory")
	}

	lock, err := os.OpenFile(path+".lock", os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open rate limit lock file")
	}

	return &FileStore{path: path, lock: lock, retention: retention}, nil
}

// Path returns the location of the JSON document.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Update(ctx context.Context, fn func(Records) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := lockFile(s.lock); err != nil {
		return errors.Wrap(err, "failed to lock rate limit store")
	}
	defer func() { _ = unlockFile(s.lock) }()

	doc, err := s.read()
	if err != nil {
		return err
	}

	records := &documentRecords{doc: doc}
	if err := fn(records); err != nil {
		return err
	}
	if !records.dirty {
		return nil
	}

	doc.sweep(s.retention)
	return s.write(doc)
}

// read loads the document. A missing, empty or corrupt file is an empty
// document.
func (s *FileStore) read() (document, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rate limit store")
	}

	doc := document{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return document{}, nil
	}
	return doc, nil
}

func (s *FileStore) write(doc document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to encode rate limit store")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create rate limit temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write rate limit temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to sync rate limit temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close rate limit temp file")
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "failed to replace rate limit store")
	}
	return nil
}

// Close releases the lock file.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock == nil {
		return nil
	}
	err := s.lock.Close()
	s.lock = nil
	return err
}
