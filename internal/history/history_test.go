package history

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"playctl/internal/media"
)

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	entry := media.HistoryEntry{
		Kind:     media.RemoteURI,
		Location: "rtsp://camera.local/stream1",
		Title:    "camera.local/stream1",
		OpenedAt: 1700000000,
	}

	if err := Save(entry); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	entries, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0] != entry {
		t.Errorf("entry = %+v, want %+v", entries[0], entry)
	}
}

func TestSaveStampsTime(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if err := Save(media.HistoryEntry{Kind: media.LocalStream, Location: "/v/a.mkv", Title: "a.mkv"}); err != nil {
		t.Fatal(err)
	}
	entries, _ := Load()
	if len(entries) != 1 || entries[0].OpenedAt == 0 {
		t.Fatalf("expected a stamped entry, got %+v", entries)
	}
}

func TestSaveMovesExistingToTop(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	Save(media.HistoryEntry{Kind: media.LocalStream, Location: "/v/a.mkv", Title: "a.mkv", OpenedAt: 1})
	Save(media.HistoryEntry{Kind: media.LocalStream, Location: "/v/b.mkv", Title: "b.mkv", OpenedAt: 2})
	Save(media.HistoryEntry{Kind: media.LocalStream, Location: "/v/a.mkv", Title: "a.mkv", OpenedAt: 3})

	entries, _ := Load()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after update, got %d", len(entries))
	}
	if entries[0].Location != "/v/a.mkv" || entries[0].OpenedAt != 3 {
		t.Errorf("top entry = %+v, want a.mkv at 3", entries[0])
	}
	if entries[1].Location != "/v/b.mkv" {
		t.Errorf("second entry = %+v, want b.mkv", entries[1])
	}
}

func TestSaveKeepsKindsApart(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	Save(media.HistoryEntry{Kind: media.LocalStream, Location: "x", Title: "x", OpenedAt: 1})
	Save(media.HistoryEntry{Kind: media.RemoteURI, Location: "x", Title: "x", OpenedAt: 2})

	entries, _ := Load()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestSaveCapsEntries(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	for i := 0; i < MaxEntries+5; i++ {
		loc := fmt.Sprintf("/v/%d.mkv", i)
		if err := Save(media.HistoryEntry{Kind: media.LocalStream, Location: loc, Title: loc, OpenedAt: int64(i + 1)}); err != nil {
			t.Fatal(err)
		}
	}

	entries, _ := Load()
	if len(entries) != MaxEntries {
		t.Fatalf("expected %d entries, got %d", MaxEntries, len(entries))
	}
	want := fmt.Sprintf("/v/%d.mkv", MaxEntries+4)
	if entries[0].Location != want {
		t.Errorf("newest = %q, want %q", entries[0].Location, want)
	}
}

func TestRemove(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	Save(media.HistoryEntry{Kind: media.RemoteURI, Location: "http://a", Title: "a", OpenedAt: 1})
	Save(media.HistoryEntry{Kind: media.RemoteURI, Location: "http://b", Title: "b", OpenedAt: 2})

	if err := Remove(media.RemoteURI, "http://a"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	entries, _ := Load()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after remove, got %d", len(entries))
	}
	if entries[0].Location != "http://b" {
		t.Errorf("remaining entry = %q, want http://b", entries[0].Location)
	}
}

func TestLoadSkipsMalformed(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)

	dir := filepath.Join(tmpDir, "playctl")
	os.MkdirAll(dir, 0700)
	content := "# comment\n" +
		"file\t/v/a.mkv\ta.mkv\t10\n" +
		"bogus\t/v/b.mkv\tb.mkv\t11\n" +
		"uri\t\tempty\t12\n" +
		"short\tline\n"
	if err := os.WriteFile(filepath.Join(dir, "history.tsv"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	entries, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(entries) != 1 || entries[0].Location != "/v/a.mkv" {
		t.Errorf("entries = %+v, want only a.mkv", entries)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	entries, err := Load()
	if err != nil || entries != nil {
		t.Errorf("Load() = %v, %v; want nil, nil", entries, err)
	}
}

func TestFormatForDisplay(t *testing.T) {
	entries := []media.HistoryEntry{
		{Kind: media.LocalStream, Location: "a.mkv", Title: "a.mkv"},
		{Kind: media.RemoteURI, Location: "rtsp://cam/1", Title: "cam/1"},
	}

	items := FormatForDisplay(entries)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0] != "[file] a.mkv" {
		t.Errorf("file display = %q", items[0])
	}
	if items[1] != "[uri] cam/1  rtsp://cam/1" {
		t.Errorf("uri display = %q", items[1])
	}
}

func TestFormatLine(t *testing.T) {
	entry := media.HistoryEntry{
		Kind:     media.LocalStream,
		Location: "/v/My\tMovie.mkv",
		Title:    "My Movie",
		OpenedAt: 42,
	}

	line := formatLine(entry)
	expected := "file\t/v/My Movie.mkv\tMy Movie\t42"
	if line != expected {
		t.Errorf("formatLine = %q, want %q", line, expected)
	}

	parsed, err := parseLine(line)
	if err != nil {
		t.Fatalf("parseLine error: %v", err)
	}
	if parsed.Kind != media.LocalStream || parsed.Title != "My Movie" || parsed.OpenedAt != 42 {
		t.Errorf("parsed = %+v", parsed)
	}
}
