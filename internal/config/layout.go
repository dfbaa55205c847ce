package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout holds the absolute directories the service reads from and writes to.
type Layout struct {
	Staging string
	Images  string
	Files   string
	// Variants lists the image sub directories, OriginalDir first.
	Variants []string
}

// Layout resolves the storage directories against Storage.BaseDir.
func (c Config) Layout() (Layout, error) {
	base, err := filepath.Abs(c.Storage.BaseDir)
	if err != nil {
		return Layout{}, fmt.Errorf("resolving base dir %q: %w", c.Storage.BaseDir, err)
	}
	resolve := func(dir string) string {
		if filepath.IsAbs(dir) {
			return filepath.Clean(dir)
		}
		return filepath.Join(base, dir)
	}
	l := Layout{
		Staging:  resolve(c.Storage.StagingDir),
		Images:   resolve(c.Storage.ImagesDir),
		Files:    resolve(c.Storage.FilesDir),
		Variants: []string{OriginalDir},
	}
	for _, v := range c.Derivatives.Variants {
		l.Variants = append(l.Variants, v.Name)
	}
	return l, nil
}

func (l Layout) dirs() []string {
	dirs := []string{l.Staging, l.Files}
	for _, v := range l.Variants {
		dirs = append(dirs, filepath.Join(l.Images, v))
	}
	return dirs
}

// Create makes every directory of the layout.
func (l Layout) Create() error {
	for _, d := range l.dirs() {
		// "If path is already a directory, MkdirAll does nothing and returns nil"
		if err := os.MkdirAll(d, 0o750); err != nil {
			return fmt.Errorf("creating directory %q: %w", d, err)
		}
	}
	return nil
}

// Check reports the first directory of the layout that is missing.
func (l Layout) Check() error {
	for _, d := range l.dirs() {
		info, err := os.Stat(d)
		if err != nil {
			return fmt.Errorf("storage directory %q: %w", d, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("storage path %q is not a directory", d)
		}
	}
	return nil
}
