package filesink

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/formatter"
	"github.com/philipp01105/lumber/sink"
)

var (
	_ sink.Sink    = &Sink{}
	_ sink.Flusher = &Sink{}
	_ sink.Named   = &Sink{}
	_ io.Closer    = &Sink{}
)

// backupTimeFormat sorts lexically in time order. Suffixes are written
// and parsed in UTC.
const backupTimeFormat = "2006-01-02T15-04-05.000"

// sizeTrackingWriter wraps an io.Writer and tracks total bytes written
type sizeTrackingWriter struct {
	w       io.Writer
	written int64
}

func (s *sizeTrackingWriter) Write(p []byte) (n int, err error) {
	n, err = s.w.Write(p)
	s.written += int64(n)
	return
}

func (s *sizeTrackingWriter) reset(w io.Writer) {
	s.w = w
	s.written = 0
}

// Config holds configuration for a file sink
type Config struct {
	// Filename is the path to the log file
	Filename string
	// Formatter to use (default: TextFormatter)
	Formatter formatter.Formatter
	// MaxSize is the maximum size in bytes before rotation (0 = no size rotation)
	MaxSize int64
	// RotateInterval is the interval for time-based rotation (0 = no interval rotation)
	RotateInterval time.Duration
	// MaxBackups is the maximum number of old log files to retain (0 = keep all)
	MaxBackups int
	// MaxAge removes rotated files older than this (0 = keep all)
	MaxAge time.Duration
	// Clock supplies rotation times (default: core.SystemClock)
	Clock core.Clock
}

// applyDefaults fills in zero-value fields with defaults.
func applyDefaults(cfg *Config) {
	if cfg.Formatter == nil {
		cfg.Formatter = formatter.NewTextFormatter(formatter.Config{})
	}
	if cfg.Clock == nil {
		cfg.Clock = core.SystemClock
	}
}

// Sink appends formatted messages to a file, rotating it by size or age
type Sink struct {
	filename        string
	file            *os.File
	bufWriter       *bufio.Writer
	sizeWriter      *sizeTrackingWriter
	formatter       formatter.Formatter
	writerFormatter formatter.WriterFormatter
	bufferFormatter formatter.BufferFormatter
	clock           core.Clock

	mu             sync.Mutex
	buf            bytes.Buffer
	maxSize        int64
	maxAge         time.Duration
	maxBackups     int
	rotateInterval time.Duration
	currentSize    int64
	lastRotateTime time.Time
	closed         bool
}

// New opens (or creates) the file and returns a sink writing to it
func New(cfg Config) (*Sink, error) {
	if cfg.Filename == "" {
		return nil, errors.New("filesink: filename is required")
	}
	applyDefaults(&cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0755); err != nil {
		return nil, errors.Wrap(err, "filesink: create directory")
	}

	file, err := openFile(cfg.Filename)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "filesink: stat %s", cfg.Filename)
	}

	sw := &sizeTrackingWriter{w: file}
	s := &Sink{
		filename:       cfg.Filename,
		file:           file,
		sizeWriter:     sw,
		bufWriter:      bufio.NewWriterSize(sw, 4096),
		formatter:      cfg.Formatter,
		clock:          cfg.Clock,
		maxSize:        cfg.MaxSize,
		maxAge:         cfg.MaxAge,
		maxBackups:     cfg.MaxBackups,
		rotateInterval: cfg.RotateInterval,
		currentSize:    info.Size(),
		lastRotateTime: cfg.Clock(),
	}

	// Cache optional interfaces for the allocation-free paths
	s.writerFormatter, _ = cfg.Formatter.(formatter.WriterFormatter)
	s.bufferFormatter, _ = cfg.Formatter.(formatter.BufferFormatter)
	if s.bufferFormatter != nil {
		s.buf.Grow(256)
	}
	return s, nil
}

func openFile(name string) (*os.File, error) {
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "filesink: open %s", name)
	}
	return file, nil
}

// Name implements sink.Named
func (s *Sink) Name() string {
	return "file:" + s.filename
}

// Log formats msg and appends it to the file
func (s *Sink) Log(msg *core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("filesink: closed")
	}
	if err := s.rotateIfNeeded(); err != nil {
		return err
	}

	if s.bufferFormatter != nil {
		s.buf.Reset()
		s.bufferFormatter.FormatMessage(msg, &s.buf)
		n, err := s.bufWriter.Write(s.buf.Bytes())
		s.currentSize += int64(n)
		return err
	}

	if s.writerFormatter != nil {
		prevFlushed := s.sizeWriter.written
		prevBuffered := s.bufWriter.Buffered()
		err := s.writerFormatter.FormatTo(msg, s.bufWriter)
		s.currentSize += (s.sizeWriter.written - prevFlushed) + int64(s.bufWriter.Buffered()-prevBuffered)
		return err
	}

	data, err := s.formatter.Format(msg)
	if err != nil {
		return err
	}
	n, err := s.bufWriter.Write(data)
	s.currentSize += int64(n)
	return err
}

// rotateIfNeeded checks and performs rotation if needed
func (s *Sink) rotateIfNeeded() error {
	needRotate := false

	if s.maxSize > 0 && s.currentSize >= s.maxSize {
		needRotate = true
	}
	if s.rotateInterval > 0 && s.clock().Sub(s.lastRotateTime) >= s.rotateInterval {
		needRotate = true
	}

	if !needRotate {
		return nil
	}
	return s.rotate()
}

// rotate renames the current file with a timestamp suffix and opens a new one
func (s *Sink) rotate() error {
	if err := s.bufWriter.Flush(); err != nil {
		return errors.Wrap(err, "filesink: flush before rotation")
	}
	if err := s.file.Sync(); err != nil {
		return errors.Wrap(err, "filesink: sync before rotation")
	}
	if err := s.file.Close(); err != nil {
		return errors.Wrap(err, "filesink: close before rotation")
	}

	now := s.clock()
	rotatedName := s.filename + "." + now.UTC().Format(backupTimeFormat)
	if err := os.Rename(s.filename, rotatedName); err != nil {
		// Keep writing to the original file
		file, openErr := openFile(s.filename)
		if openErr != nil {
			return errors.Wrapf(openErr, "filesink: rotation failed (%v)", err)
		}
		s.file = file
		s.sizeWriter.reset(file)
		s.bufWriter.Reset(s.sizeWriter)
		return errors.Wrap(err, "filesink: rotate")
	}

	s.cleanupOldBackups(now)

	file, err := openFile(s.filename)
	if err != nil {
		return err
	}
	s.file = file
	s.sizeWriter.reset(file)
	s.bufWriter.Reset(s.sizeWriter)
	s.currentSize = 0
	s.lastRotateTime = now
	return nil
}

// Backups lists rotated files, oldest first
func (s *Sink) Backups() ([]string, error) {
	matches, err := filepath.Glob(s.filename + ".*")
	if err != nil {
		return nil, errors.Wrap(err, "filesink: list backups")
	}
	base := filepath.Base(s.filename) + "."
	backups := matches[:0]
	for _, match := range matches {
		if _, ok := backupTime(base, match); ok {
			backups = append(backups, match)
		}
	}
	sort.Strings(backups)
	return backups, nil
}

// backupTime parses the UTC rotation time from a backup file name
func backupTime(base, name string) (time.Time, bool) {
	ts, err := time.Parse(backupTimeFormat, strings.TrimPrefix(filepath.Base(name), base))
	return ts, err == nil
}

// cleanupOldBackups removes backups beyond MaxBackups or older than MaxAge
func (s *Sink) cleanupOldBackups(now time.Time) {
	if s.maxBackups <= 0 && s.maxAge <= 0 {
		return
	}
	backups, err := s.Backups()
	if err != nil {
		return
	}

	base := filepath.Base(s.filename) + "."
	keep := backups[:0]
	for _, b := range backups {
		if s.maxAge > 0 {
			ts, _ := backupTime(base, b)
			if now.Sub(ts) > s.maxAge {
				_ = os.Remove(b)
				continue
			}
		}
		keep = append(keep, b)
	}

	if s.maxBackups > 0 && len(keep) > s.maxBackups {
		for _, b := range keep[:len(keep)-s.maxBackups] {
			_ = os.Remove(b)
		}
	}
}

// Flush writes buffered data to the file
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.bufWriter.Flush()
}

// Close flushes, syncs and closes the file
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.bufWriter.Flush(); err != nil {
		_ = s.file.Close()
		return errors.Wrap(err, "filesink: flush")
	}
	if err := s.file.Sync(); err != nil {
		_ = s.file.Close()
		return errors.Wrap(err, "filesink: sync")
	}
	return s.file.Close()
}
