// Package history keeps the list of recently opened sources in a TSV file.
// Uses atomic writes (temp+rename) to prevent data corruption.
package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"playctl/internal/config"
	"playctl/internal/media"
)

// TSV columns: kind, location, title, opened_at
const numColumns = 4

// MaxEntries caps the file; the oldest entries fall off first.
const MaxEntries = 50

// Load reads the history file and returns all entries, newest first.
func Load() ([]media.HistoryEntry, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	var entries []media.HistoryEntry
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, err := parseLine(line)
		if err != nil {
			continue // Skip malformed lines
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	return entries, nil
}

// Save records entry as the most recent source. An entry with the same
// kind and location is moved to the top instead of duplicated.
func Save(entry media.HistoryEntry) error {
	if entry.OpenedAt == 0 {
		entry.OpenedAt = time.Now().Unix()
	}

	entries, _ := Load()

	updated := []media.HistoryEntry{entry}
	for _, e := range entries {
		if e.Kind == entry.Kind && e.Location == entry.Location {
			continue
		}
		updated = append(updated, e)
	}
	if len(updated) > MaxEntries {
		updated = updated[:MaxEntries]
	}

	return writeAll(updated)
}

// Remove deletes the entry for kind and location.
func Remove(kind media.Kind, location string) error {
	entries, err := Load()
	if err != nil {
		return err
	}

	var filtered []media.HistoryEntry
	for _, e := range entries {
		if !(e.Kind == kind && e.Location == location) {
			filtered = append(filtered, e)
		}
	}

	return writeAll(filtered)
}

// writeAll replaces the history file with entries.
func writeAll(entries []media.HistoryEntry) error {
	path, err := config.HistoryPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}

	// Atomic write: temp file + rename
	tmpFile, err := os.CreateTemp(dir, "history-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	writer := bufio.NewWriter(tmpFile)
	for _, e := range entries {
		if _, err := writer.WriteString(formatLine(e) + "\n"); err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("writing history: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flushing history: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming history file: %w", err)
	}

	return nil
}

// FormatForDisplay creates display strings for fzf selection from history entries.
func FormatForDisplay(entries []media.HistoryEntry) []string {
	var items []string
	for _, e := range entries {
		display := fmt.Sprintf("[%s] %s", e.Kind, e.Title)
		if e.Title != e.Location {
			display += "  " + e.Location
		}
		if e.OpenedAt > 0 {
			display += "  (" + time.Unix(e.OpenedAt, 0).Format("2006-01-02 15:04") + ")"
		}
		items = append(items, display)
	}
	return items
}

// parseLine parses a TSV line into a HistoryEntry.
func parseLine(line string) (media.HistoryEntry, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < numColumns {
		return media.HistoryEntry{}, fmt.Errorf("expected %d columns, got %d", numColumns, len(fields))
	}

	var kind media.Kind
	switch fields[0] {
	case "file":
		kind = media.LocalStream
	case "uri":
		kind = media.RemoteURI
	default:
		return media.HistoryEntry{}, fmt.Errorf("unknown source kind %q", fields[0])
	}

	if fields[1] == "" {
		return media.HistoryEntry{}, fmt.Errorf("empty location")
	}

	openedAt, _ := strconv.ParseInt(fields[3], 10, 64)

	return media.HistoryEntry{
		Kind:     kind,
		Location: fields[1],
		Title:    fields[2],
		OpenedAt: openedAt,
	}, nil
}

// formatLine converts a HistoryEntry to a TSV line.
func formatLine(e media.HistoryEntry) string {
	return strings.Join([]string{
		e.Kind.String(),
		flatten(e.Location),
		flatten(e.Title),
		strconv.FormatInt(e.OpenedAt, 10),
	}, "\t")
}

// flatten keeps a field on one TSV cell.
func flatten(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}
