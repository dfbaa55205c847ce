package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/MuhamedUsman/imgdrop/internal/bgtask"
)

// CopyFile copies src to dst byte for byte, dst is created or truncated.
func CopyFile(src, dst string) (err error) {
	s, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source file %q: %w", src, err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			slog.Error("failed to close source file", "file", src, "err", cerr)
		}
	}()
	d, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating destination file %q: %w", dst, err)
	}
	defer func() {
		if cerr := d.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing destination file %q: %w", dst, cerr)
		}
	}()
	if _, err = io.Copy(d, s); err != nil {
		return fmt.Errorf("copying file %q to %q: %w", src, dst, err)
	}
	return nil
}

// Persist stores the staged file under dir as name, overwriting any existing file.
// It returns the path of the stored file.
func Persist(stagedPath, dir, name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("persisting %q: invalid file name %q", stagedPath, name)
	}
	dst := filepath.Join(dir, name)
	if err := CopyFile(stagedPath, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// RemoveStaged deletes a staged upload, a failure is logged and never returned.
func RemoveStaged(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("deleting staged file", "path", path, "err", err)
	}
}

// SweepStale removes regular files in dir last modified more than maxAge ago.
// Removals run concurrently, the number of removed files is returned.
func SweepStale(ctx context.Context, dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading staging dir %q: %w", dir, err)
	}
	cutoff := time.Now().Add(-maxAge)
	var removed atomic.Int64
	wp := bgtask.NewWorkerPool(ctx)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		wp.Spawn(func() error {
			if err := wp.Ctx.Err(); err != nil {
				return err
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("removing stale file %q: %w", path, err)
			}
			removed.Add(1)
			return nil
		})
	}
	err = wp.Wait()
	return int(removed.Load()), err
}
