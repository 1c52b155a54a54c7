package filesink

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/formatter"
)

// stepClock returns a time that advances by step on every call
func stepClock(start time.Time, step time.Duration) core.Clock {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

func testMessage(text string) *core.Message {
	return core.NewMessage(core.MessageParams{
		Text:      text,
		Flag:      core.FlagInfo,
		Timestamp: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	})
}

func TestFileSink_WriteAndClose(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "logs", "app.log")

	s, err := New(Config{Filename: filename})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Log(testMessage("first")); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if err := s.Log(testMessage("second")); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	want := "2026-01-15T12:00:00Z [INFO] first\n2026-01-15T12:00:00Z [INFO] second\n"
	if string(data) != want {
		t.Errorf("file contents = %q, want %q", data, want)
	}

	if err := s.Log(testMessage("late")); err == nil {
		t.Error("Log() after Close should fail")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestFileSink_Flush(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "app.log")
	s, err := New(Config{Filename: filename})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_ = s.Log(testMessage("buffered"))
	if data, _ := os.ReadFile(filename); len(data) != 0 {
		t.Errorf("expected nothing on disk before Flush, got %q", data)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if data, _ := os.ReadFile(filename); !strings.Contains(string(data), "buffered") {
		t.Errorf("expected message on disk after Flush, got %q", data)
	}
}

func TestFileSink_AppendsToExisting(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(filename, []byte("existing\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(Config{Filename: filename, Formatter: formatter.NewJSONFormatter(formatter.Config{})})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Log(testMessage("appended"))
	_ = s.Close()

	data, _ := os.ReadFile(filename)
	if !strings.HasPrefix(string(data), "existing\n{") {
		t.Errorf("file contents = %q", data)
	}
}

func TestFileSink_MaxBackups(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.log")

	s, err := New(Config{
		Filename:   filename,
		MaxSize:    100, // Small size to trigger rotation
		MaxBackups: 2,
		Clock:      stepClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for i := 0; i < 20; i++ {
		if err := s.Log(testMessage("This is a test message that will trigger rotation")); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	backups, err := s.Backups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Errorf("expected 2 backups, got %d: %v", len(backups), backups)
	}
}

func TestFileSink_MaxAge(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.log")

	s, err := New(Config{
		Filename: filename,
		MaxSize:  10,
		MaxAge:   30 * time.Minute,
		Clock:    stepClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		_ = s.Log(testMessage("rotate me please"))
	}

	backups, err := s.Backups()
	if err != nil {
		t.Fatal(err)
	}
	// Rotations are an hour apart, so only the backup made by the last
	// rotation is within MaxAge.
	if len(backups) != 1 {
		t.Errorf("expected 1 backup, got %d: %v", len(backups), backups)
	}
}

func TestFileSink_MaxAgeLocalClock(t *testing.T) {
	zones := []*time.Location{
		time.FixedZone("UTC-5", -5*3600),
		time.FixedZone("UTC+9", 9*3600),
	}
	for _, loc := range zones {
		t.Run(loc.String(), func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), "test.log")
			start := time.Date(2026, 1, 1, 8, 0, 0, 0, loc)

			s, err := New(Config{
				Filename: filename,
				MaxSize:  10,
				MaxAge:   time.Hour,
				Clock:    stepClock(start, time.Second),
			})
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()

			for i := 0; i < 3; i++ {
				_ = s.Log(testMessage("rotate me please"))
			}

			backups, err := s.Backups()
			if err != nil {
				t.Fatal(err)
			}
			// Rotations are seconds apart, well within MaxAge
			if len(backups) != 2 {
				t.Fatalf("expected 2 backups, got %d: %v", len(backups), backups)
			}
			want := "." + start.UTC().Format("2006-01-02T15")
			if !strings.Contains(backups[0], want) {
				t.Errorf("backup %q should carry a UTC suffix containing %q", backups[0], want)
			}
		})
	}
}

func TestFileSink_RotateInterval(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.log")

	s, err := New(Config{
		Filename:       filename,
		RotateInterval: 30 * time.Minute,
		Clock:          stepClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 20*time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// New reads the clock once (t=20m). Each Log reads it once to check the
	// interval and once more when it rotates.
	_ = s.Log(testMessage("first"))  // t=40m: 20m elapsed
	_ = s.Log(testMessage("second")) // t=60m: 40m elapsed, rotates

	backups, err := s.Backups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(backups))
	}
	data, _ := os.ReadFile(backups[0])
	if !strings.Contains(string(data), "first") {
		t.Errorf("backup should contain the first message, got %q", data)
	}
}

func TestFileSink_RequiresFilename(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() without filename should fail")
	}
}
