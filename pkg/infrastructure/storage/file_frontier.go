package storage

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/WangYihang/lazyscan/pkg/domain/entity"
	"github.com/WangYihang/lazyscan/pkg/domain/repository"
)

const (
	queueFile = "queue.ls"
	drainFile = "drain.ls"

	maxLineSize = 1 << 20
)

// FileFrontier implements repository.Frontier with an append-only log on
// disk. Only the domain set is kept in memory.
type FileFrontier struct {
	mu    sync.Mutex
	dir   string
	file  *os.File
	size  int64
	count int
	seen  repository.DomainSet
}

// NewFileFrontier creates a frontier logging to dir. Logs left behind by an
// earlier run are removed.
func NewFileFrontier(dir string, seen repository.DomainSet) (*FileFrontier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}
	for _, name := range []string{queueFile, drainFile} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale %s: %w", name, err)
		}
	}

	f := &FileFrontier{dir: dir, seen: seen}
	if err := f.openQueue(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileFrontier) openQueue() error {
	file, err := os.OpenFile(filepath.Join(f.dir, queueFile), os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open queue log: %w", err)
	}
	f.file = file
	f.size = 0
	return nil
}

// Push enqueues url unless its domain was seen before
func (f *FileFrontier) Push(url string) error {
	return f.Extend([]string{url})
}

// Extend appends the unseen URLs of the batch with a single write. When the
// write fails the log is truncated back and no domain of the batch is marked
// as seen.
func (f *FileFrontier) Extend(urls []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return fmt.Errorf("frontier closed")
	}

	var invalid error
	var keys []string
	var sb strings.Builder
	batch := make(map[string]struct{})
	for _, url := range urls {
		if err := validateURL(url); err != nil {
			if invalid == nil {
				invalid = err
			}
			continue
		}
		key := entity.DomainKey(url)
		if _, ok := batch[key]; ok || f.seen.Contains(key) {
			continue
		}
		batch[key] = struct{}{}
		keys = append(keys, key)
		sb.WriteString(url)
		sb.WriteByte('\n')
	}
	if len(keys) == 0 {
		return invalid
	}

	n, err := f.file.WriteString(sb.String())
	if err != nil {
		if terr := f.file.Truncate(f.size); terr != nil {
			return fmt.Errorf("append queue log: %w", errors.Join(err, terr))
		}
		return fmt.Errorf("append queue log: %w", err)
	}

	f.size += int64(n)
	f.count += len(keys)
	for _, key := range keys {
		f.seen.Add(key)
	}
	return invalid
}

// Drain renames the current log into a drain snapshot and starts a new log
func (f *FileFrontier) Drain() (repository.Drain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil, fmt.Errorf("frontier closed")
	}
	if f.count == 0 {
		return nil, repository.ErrEmptyFrontier
	}

	queuePath := filepath.Join(f.dir, queueFile)
	drainPath := filepath.Join(f.dir, drainFile)
	if err := f.file.Close(); err != nil {
		return nil, fmt.Errorf("close queue log: %w", err)
	}
	f.file = nil
	if err := os.Rename(queuePath, drainPath); err != nil {
		return nil, fmt.Errorf("rename queue log: %w", err)
	}

	drain, err := openFileDrain(drainPath, f.count)
	if err != nil {
		return nil, err
	}
	if err := f.openQueue(); err != nil {
		drain.Close()
		return nil, err
	}
	f.count = 0
	return drain, nil
}

// Close closes and removes the logs
func (f *FileFrontier) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	if f.file != nil {
		errs = append(errs, f.file.Close())
		f.file = nil
	}
	for _, name := range []string{queueFile, drainFile} {
		if err := os.Remove(filepath.Join(f.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FileDrain streams a drain log line by line
type FileDrain struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	info    os.FileInfo
	scanner *bufio.Scanner
	size    int
	done    bool
}

func openFileDrain(path string, size int) (*FileDrain, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open drain log: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat drain log: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &FileDrain{path: path, file: file, info: info, scanner: scanner, size: size}, nil
}

// Len returns the size the snapshot was taken with
func (d *FileDrain) Len() int {
	return d.size
}

// Pop returns the next non-empty line of the log
func (d *FileDrain) Pop() (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done {
		return "", false, nil
	}
	for d.scanner.Scan() {
		if line := d.scanner.Text(); line != "" {
			return line, true, nil
		}
	}
	d.done = true
	if err := d.scanner.Err(); err != nil {
		return "", false, fmt.Errorf("read drain log: %w", err)
	}
	return "", false, nil
}

// Close closes the log and removes it, unless a newer drain already
// replaced it on disk
func (d *FileDrain) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}
	d.done = true
	err := d.file.Close()
	d.file = nil

	if current, serr := os.Stat(d.path); serr == nil && os.SameFile(current, d.info) {
		if rerr := os.Remove(d.path); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}
	return err
}
