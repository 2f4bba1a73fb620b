package ui

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxPickerFiles bounds the directory walk for huge libraries.
const maxPickerFiles = 10000

// PickSingleFile lets the user choose one file below startDir whose base
// name matches one of filters (shell globs, "*" for everything). A
// cancelled pick returns "" and a nil error.
func PickSingleFile(filters []string, startDir string) (string, error) {
	files, err := listFiles(startDir, filters, maxPickerFiles)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no matching files in %s", startDir)
	}

	idx, err := Select("Open", files)
	if errors.Is(err, ErrCancelled) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return filepath.Join(startDir, files[idx]), nil
}

// listFiles returns paths relative to root, skipping hidden directories.
func listFiles(root string, filters []string, limit int) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening start directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("start location %s is not a directory", root)
	}

	var files []string
	errLimit := errors.New("limit reached")

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !matchesFilter(d.Name(), filters) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, rel)
		if len(files) >= limit {
			return errLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	return files, nil
}

func matchesFilter(name string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, f := range filters {
		if ok, _ := filepath.Match(strings.ToLower(f), lower); ok {
			return true
		}
	}
	return false
}
