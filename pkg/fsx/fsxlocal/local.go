package fsxlocal

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/fsx"
)

// LocalFileSystem implements fsx.FileSystem on local disk
type LocalFileSystem struct {
	basePath string // Root directory for all files
}

// NewLocalFileSystem creates a new local file system rooted at basePath.
// The directory is created if it does not exist.
func NewLocalFileSystem(basePath string) (*LocalFileSystem, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	return &LocalFileSystem{basePath: absPath}, nil
}

// ============================================================================
// FileReader Implementation
// ============================================================================

func (l *LocalFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(l.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (l *LocalFileSystem) ReadFileStream(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(l.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (l *LocalFileSystem) Stat(ctx context.Context, path string) (fsx.FileInfo, error) {
	info, err := os.Stat(l.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return fsx.FileInfo{}, fmt.Errorf("file not found: %s", path)
		}
		return fsx.FileInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}

	return fsx.FileInfo{
		Name:        info.Name(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IsDir:       info.IsDir(),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Metadata:    make(map[string]string),
	}, nil
}

func (l *LocalFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(l.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ============================================================================
// FileWriter Implementation
// ============================================================================

func (l *LocalFileSystem) WriteFile(ctx context.Context, path string, data []byte) error {
	fullPath := l.fullPath(path)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func (l *LocalFileSystem) WriteFileStream(ctx context.Context, path string, r io.Reader) error {
	fullPath := l.fullPath(path)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// ============================================================================
// FileDeleter Implementation
// ============================================================================

func (l *LocalFileSystem) DeleteFile(ctx context.Context, path string) error {
	if err := os.Remove(l.fullPath(path)); err != nil {
		if os.IsNotExist(err) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ============================================================================
// PathOperations Implementation
// ============================================================================

func (l *LocalFileSystem) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// GetBasePath returns the base path
func (l *LocalFileSystem) GetBasePath() string {
	return l.basePath
}

// fullPath converts a relative path to absolute path
func (l *LocalFileSystem) fullPath(path string) string {
	return filepath.Join(l.basePath, path)
}
