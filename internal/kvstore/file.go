package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"taskReminder/internal/logger"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// File keeps the whole map in one JSON document and rewrites it on every change.
type File struct {
	fs   afero.Fs
	path string
	data map[string]string
	mtx  sync.RWMutex
}

func NewFile(fsys afero.Fs, path string) (*File, error) {
	f := &File{fs: fsys, path: path, data: make(map[string]string)}

	raw, err := afero.ReadFile(fsys, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &f.data); err != nil {
			logger.Warn("Storage: store file is corrupt, starting empty", zap.String("path", path), zap.Error(err))
			f.data = make(map[string]string)
		}
	}
	return f, nil
}

func (f *File) Get(ctx context.Context, key string) (string, error) {
	f.mtx.RLock()
	defer f.mtx.RUnlock()

	v, ok := f.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *File) Set(ctx context.Context, key, value string) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	prev, had := f.data[key]
	f.data[key] = value
	if err := f.flush(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *File) Delete(ctx context.Context, key string) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	prev, had := f.data[key]
	if !had {
		return nil
	}
	delete(f.data, key)
	if err := f.flush(); err != nil {
		f.data[key] = prev
		return err
	}
	return nil
}

func (f *File) Keys(ctx context.Context, prefix string) ([]string, error) {
	f.mtx.RLock()
	defer f.mtx.RUnlock()

	return matchKeys(f.data, prefix), nil
}

// flush writes to a temp file and renames it over the old one.
func (f *File) flush() error {
	raw, err := json.Marshal(f.data)
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}
