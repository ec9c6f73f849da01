package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/prospect-matcher/internal/audience"
	"github.com/spigell/prospect-matcher/internal/utils"
)

// FileStore keeps all entries in a single JSON object on disk. The file is
// rewritten on every Set. Entries that cannot be decoded are carried over
// unchanged on rewrite.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]audience.Record
	invalid map[string]json.RawMessage
}

// OpenFile loads the cache at path. A missing file starts an empty cache. A
// file that is not a JSON object is moved aside to path.bak before the cache
// starts empty.
func OpenFile(path string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &FileStore{
		path:    path,
		logger:  logger,
		entries: make(map[string]audience.Record),
		invalid: make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read cache %s: %w", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		backup := path + ".bak"
		if renameErr := os.Rename(path, backup); renameErr != nil {
			return nil, fmt.Errorf("cache %s is corrupt (%v) and could not be moved aside: %w", path, err, renameErr)
		}
		logger.Warn("cache file is corrupt, moved aside and starting empty",
			zap.String("path", path),
			zap.String("backup", backup),
			zap.Error(err),
		)
		return s, nil
	}

	for key, value := range raw {
		record, err := decodeEntry(value)
		if err != nil {
			logger.Warn("skipping malformed cache entry",
				zap.String("key", utils.TruncateForLog(key, 80)),
				zap.Error(err),
			)
			s.invalid[key] = value
			continue
		}
		s.entries[key] = record
	}

	logger.Debug("cache loaded",
		zap.String("path", path),
		zap.Int("entries", len(s.entries)),
		zap.Int("invalid_entries", len(s.invalid)),
	)
	return s, nil
}

// decodeEntry accepts a record object or a string holding one.
func decodeEntry(value json.RawMessage) (audience.Record, error) {
	var text string
	if err := json.Unmarshal(value, &text); err == nil {
		return audience.ParseRecord(text)
	}
	return audience.ParseRecord(string(value))
}

func (s *FileStore) Get(_ context.Context, key string) (audience.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.entries[key]
	if !ok {
		return audience.Record{}, ErrNotFound
	}
	return record, nil
}

func (s *FileStore) Set(_ context.Context, key string, record audience.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = record
	delete(s.invalid, key)
	return s.save()
}

func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Invalid reports how many entries on disk could not be decoded.
func (s *FileStore) Invalid() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.invalid)
}

func (s *FileStore) save() error {
	out := make(map[string]json.RawMessage, len(s.entries)+len(s.invalid))
	for key, value := range s.invalid {
		out[key] = value
	}
	for key, record := range s.entries {
		value, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode cache entry: %w", err)
		}
		out[key] = value
	}

	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache %s: %w", s.path, err)
	}
	return os.Rename(tmp, s.path)
}
