package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	dataExt  = ".csv"
	stageExt = ".tmp"

	defaultDirName = "ocdid-hub"
)

// ResolveRoot 返回缓存根目录：优先使用配置值，否则落在用户缓存目录下的 ocdid-hub。
func ResolveRoot(configured string) (string, error) {
	dir := strings.TrimSpace(configured)
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("resolve user cache dir: %w", err)
		}
		dir = filepath.Join(base, defaultDirName)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return abs, nil
}

// NewStore 以 basePath 为根目录构建磁盘缓存，整个进程复用一份实例。
func NewStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create storage path: %w", ErrWriteFailed, err)
	}

	return &fileStore{
		basePath: abs,
		locks:    make(map[string]*entryLock),
	}, nil
}

// ValidateName 检查条目名称是否可以安全地映射为根目录下的单个文件。
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// fileStore 通过 entryLock 避免同一名称并发刷新，同时复用 basePath。
type fileStore struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Root() string {
	return s.basePath
}

func (s *fileStore) Path(name string) (string, error) {
	return s.entryPath(name, dataExt)
}

func (s *fileStore) Stat(ctx context.Context, name string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	filePath, err := s.Path(name)
	if err != nil {
		return Entry{}, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	if info.IsDir() {
		return Entry{}, ErrNotFound
	}

	return Entry{
		Name:      name,
		FilePath:  filePath,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

func (s *fileStore) Open(ctx context.Context, name string) (*ReadResult, error) {
	entry, err := s.Stat(ctx, name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(entry.FilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ReadResult{
		Entry:  entry,
		Reader: f,
	}, nil
}

func (s *fileStore) Stage(ctx context.Context, name string, body io.Reader) (*Staged, error) {
	stagePath, err := s.entryPath(name, stageExt)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(stagePath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(stagePath), ".cache-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	tempName := tempFile.Name()

	written, err := copyWithContext(ctx, tempFile, body)
	closeErr := tempFile.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %w", ErrWriteFailed, closeErr)
	}
	if err != nil {
		os.Remove(tempName)
		return nil, err
	}

	if err := os.Rename(tempName, stagePath); err != nil {
		os.Remove(tempName)
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	return &Staged{
		Name:      name,
		FilePath:  stagePath,
		SizeBytes: written,
	}, nil
}

func (s *fileStore) Promote(ctx context.Context, staged *Staged, modTime time.Time) (*Entry, error) {
	if staged == nil {
		return nil, errors.New("staged file required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := s.Path(staged.Name)
	if err != nil {
		return nil, err
	}

	if err := os.Rename(staged.FilePath, filePath); err != nil {
		return nil, fmt.Errorf("%w: promote %s: %w", ErrWriteFailed, staged.Name, err)
	}

	if modTime.IsZero() {
		modTime = time.Now()
	}
	if err := os.Chtimes(filePath, modTime, modTime); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	return &Entry{
		Name:      staged.Name,
		FilePath:  filePath,
		SizeBytes: staged.SizeBytes,
		ModTime:   modTime,
	}, nil
}

func (s *fileStore) Discard(staged *Staged) error {
	if staged == nil {
		return nil
	}
	if err := os.Remove(staged.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) Touch(ctx context.Context, name string, modTime time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Chtimes(filePath, modTime, modTime); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: touch %s: %w", ErrWriteFailed, name, err)
	}
	return nil
}

func (s *fileStore) Lock(name string) func() {
	s.mu.Lock()
	lock := s.locks[name]
	if lock == nil {
		lock = &entryLock{}
		s.locks[name] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, name)
		}
		s.mu.Unlock()
	}
}

func (s *fileStore) entryPath(name, ext string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	filePath := filepath.Join(s.basePath, name+ext)
	if filepath.Dir(filePath) != s.basePath {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filePath, nil
}

// copyWithContext 按 32KiB 分块复制，读错误原样返回，写错误包装为 ErrWriteFailed。
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, fmt.Errorf("%w: %w", ErrWriteFailed, wErr)
			}
			if w < n {
				return copied, fmt.Errorf("%w: %w", ErrWriteFailed, io.ErrShortWrite)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
