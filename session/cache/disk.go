package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

const diskSuffix = ".cache"

// Disk is a [Store] keeping one file per entry under a directory.
// Each file starts with its expiry as 8 bytes of big-endian unix nanoseconds.
type Disk struct {
	dir string
	now func() time.Time
}

// NewDisk returns a store rooted at dir, creating it if needed.
func NewDisk(dir string) (*Disk, error) {
	if dir == "" {
		return nil, errors.New("cache dir must not be empty")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	return &Disk{dir: dir, now: time.Now}, nil
}

// Dir returns the directory backing the store.
func (d *Disk) Dir() string { return d.dir }

func (d *Disk) Load(_ context.Context, key string) ([]byte, bool, error) {
	path := d.path(key)

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache file: %w", err)
	}

	if len(b) < 8 {
		_ = os.Remove(path)
		return nil, false, ErrCorruptEntry
	}

	expiry := time.Unix(0, int64(binary.BigEndian.Uint64(b[:8])))
	if !d.now().Before(expiry) {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("removing stale cache file: %w", err)
		}
		return nil, false, nil
	}

	return b[8:], true, nil
}

func (d *Disk) Save(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	b := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(b[:8], uint64(d.now().Add(ttl).UnixNano()))
	copy(b[8:], value)

	if err := renameio.WriteFile(d.path(key), b, 0o600); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return nil
}

func (d *Disk) Remove(_ context.Context, key string) error {
	if err := os.Remove(d.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}

func (d *Disk) RemoveAll(_ context.Context) error {
	dirEntries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("reading cache dir: %w", err)
	}

	var errs []error
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), diskSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, de.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (d *Disk) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:])+diskSuffix)
}
