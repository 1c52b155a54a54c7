package archivesink

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/sink"
)

var (
	_ sink.Sink    = &Sink{}
	_ sink.Flusher = &Sink{}
	_ sink.Named   = &Sink{}
)

const keyLen = 16

// Config configures the archive
type Config struct {
	// Dir is the path to the Pebble database directory
	Dir string
	// Sync requests a WAL fsync on every write
	Sync bool
	// ReadOnly opens an existing archive for Replay only
	ReadOnly bool
	// PebbleOptions allows advanced tuning of Pebble. If nil, defaults are used.
	PebbleOptions *pebble.Options
}

// Record is the stored form of a message
type Record struct {
	Seq      uint64    `json:"-"`
	Time     time.Time `json:"time"`
	Level    uint32    `json:"level"`
	Flag     uint32    `json:"flag"`
	Context  int       `json:"context,omitempty"`
	File     string    `json:"file,omitempty"`
	Function string    `json:"function,omitempty"`
	Line     int       `json:"line,omitempty"`
	Text     string    `json:"message"`
	Tag      string    `json:"tag,omitempty"`
}

// Message rebuilds a message from the record. The tag comes back as
// its string form.
func (r Record) Message() *core.Message {
	var tag interface{}
	if r.Tag != "" {
		tag = r.Tag
	}
	return core.NewMessage(core.MessageParams{
		Text:      r.Text,
		Level:     core.Level(r.Level),
		Flag:      core.Flag(r.Flag),
		Context:   r.Context,
		File:      r.File,
		Function:  r.Function,
		Line:      r.Line,
		Tag:       tag,
		Timestamp: r.Time,
	})
}

// Sink stores every message in a Pebble database keyed by timestamp and
// a sequence number, so Replay returns messages in the order written.
type Sink struct {
	db       *pebble.DB
	dir      string
	writeOpt *pebble.WriteOptions
	readOnly bool

	mu  sync.Mutex
	seq uint64
}

// Open creates or opens an archive
func Open(cfg Config) (*Sink, error) {
	if cfg.Dir == "" {
		return nil, errors.New("archivesink: Config.Dir is required")
	}
	po := cfg.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	po.ReadOnly = cfg.ReadOnly

	db, err := pebble.Open(cfg.Dir, po)
	if err != nil {
		return nil, errors.Wrapf(err, "archivesink: open %s", cfg.Dir)
	}

	s := &Sink{
		db:       db,
		dir:      cfg.Dir,
		writeOpt: pebble.NoSync,
		readOnly: cfg.ReadOnly,
	}
	if cfg.Sync {
		s.writeOpt = pebble.Sync
	}
	if s.seq, err = s.lastSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// lastSeq returns the sequence number of the newest stored record
func (s *Sink) lastSeq() (uint64, error) {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return 0, errors.Wrap(err, "archivesink: iterate")
	}
	defer iter.Close()
	if !iter.Last() || len(iter.Key()) != keyLen {
		return 0, nil
	}
	return binary.BigEndian.Uint64(iter.Key()[8:]), nil
}

// Name implements sink.Named
func (s *Sink) Name() string {
	return "archive:" + s.dir
}

// encodeKey orders keys by time, then sequence. The sign bit of the
// nanosecond timestamp is flipped so times before 1970 sort first.
func encodeKey(t time.Time, seq uint64) []byte {
	key := make([]byte, keyLen)
	binary.BigEndian.PutUint64(key[:8], uint64(t.UnixNano())^(1<<63))
	binary.BigEndian.PutUint64(key[8:], seq)
	return key
}

// Log stores msg
func (s *Sink) Log(msg *core.Message) error {
	if s.readOnly {
		return errors.New("archivesink: archive is read-only")
	}
	rec := Record{
		Time:     msg.Timestamp(),
		Level:    uint32(msg.Level()),
		Flag:     uint32(msg.Flag()),
		Context:  msg.Context(),
		File:     msg.File(),
		Function: msg.Function(),
		Line:     msg.Line(),
		Text:     msg.Text(),
	}
	if tag := msg.Tag(); tag != nil {
		rec.Tag = fmt.Sprint(tag)
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "archivesink: encode")
	}

	s.mu.Lock()
	s.seq++
	key := encodeKey(rec.Time, s.seq)
	s.mu.Unlock()

	if err := s.db.Set(key, value, s.writeOpt); err != nil {
		return errors.Wrap(err, "archivesink: write")
	}
	return nil
}

// Flush syncs the write-ahead log
func (s *Sink) Flush() error {
	if s.readOnly {
		return nil
	}
	return s.db.LogData(nil, pebble.Sync)
}

// Replay calls fn for every record with from <= time < to, oldest first.
// A zero from or to leaves that end open. Replay stops at the first
// error returned by fn.
func (s *Sink) Replay(from, to time.Time, fn func(Record) error) error {
	opts := &pebble.IterOptions{}
	if !from.IsZero() {
		opts.LowerBound = encodeKey(from, 0)
	}
	if !to.IsZero() {
		opts.UpperBound = encodeKey(to, 0)
	}
	iter, err := s.db.NewIter(opts)
	if err != nil {
		return errors.Wrap(err, "archivesink: iterate")
	}
	defer iter.Close()

	for valid := iter.First(); valid; valid = iter.Next() {
		if len(iter.Key()) != keyLen {
			continue
		}
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return errors.Wrapf(err, "archivesink: decode record %x", iter.Key())
		}
		rec.Seq = binary.BigEndian.Uint64(iter.Key()[8:])
		if err := fn(rec); err != nil {
			return err
		}
	}
	return errors.Wrap(iter.Error(), "archivesink: iterate")
}

// Close closes the database
func (s *Sink) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
