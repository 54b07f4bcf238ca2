package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FilePerms restricts cache files to owner-only read/write. The file holds
// bearer credentials.
const FilePerms = 0o600

// DirPerms is used when creating the cache directory.
const DirPerms = 0o700

// fileFormat is the on-disk layout of a File store.
type fileFormat struct {
	Entries map[string]fileEntry `json:"entries"`
}

type fileEntry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// File is a Store persisted as a single JSON document. Every write rewrites
// the document atomically (temp file, fsync, rename), so a crash never
// leaves a truncated token file behind. Suitable for CLI use where one
// process runs at a time.
type File struct {
	path string

	mu  sync.Mutex
	now func() time.Time
}

// NewFile returns a File store backed by path. The file is created on the
// first write; a missing file reads as an empty cache.
func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return "", false, err
	}

	e, ok := doc.Entries[key]
	if !ok || expired(e.ExpiresAt, f.now()) {
		return "", false, nil
	}

	return e.Value, true, nil
}

func (f *File) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return f.SetMany(ctx, []Entry{{Key: key, Value: value, TTL: ttl}})
}

func (f *File) SetMany(_ context.Context, entries []Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	now := f.now()
	for _, e := range entries {
		doc.Entries[e.Key] = fileEntry{Value: e.Value, ExpiresAt: expiresAt(now, e.TTL)}
	}

	return f.save(doc)
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	if _, ok := doc.Entries[key]; !ok {
		return nil
	}

	delete(doc.Entries, key)

	return f.save(doc)
}

func (f *File) EvictExpired(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	now := f.now()
	removed := 0

	for k, e := range doc.Entries {
		if expired(e.ExpiresAt, now) {
			delete(doc.Entries, k)
			removed++
		}
	}

	if removed == 0 {
		return nil
	}

	return f.save(doc)
}

// Close is a no-op; File holds no open handles between calls.
func (f *File) Close() error {
	return nil
}

// load reads the document from disk. A missing file is an empty cache.
func (f *File) load() (*fileFormat, error) {
	doc := &fileFormat{Entries: make(map[string]fileEntry)}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}

	if err != nil {
		return nil, fmt.Errorf("cache: reading %s: %w", f.path, err)
	}

	if len(data) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("cache: decoding %s: %w", f.path, err)
	}

	if doc.Entries == nil {
		doc.Entries = make(map[string]fileEntry)
	}

	return doc, nil
}

// save writes the document atomically with 0600 permissions.
func (f *File) save(doc *fileFormat) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: encoding: %w", err)
	}

	dir := filepath.Dir(f.path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("cache: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: closing: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("cache: renaming: %w", err)
	}

	success = true

	return nil
}
