package pipeline

import (
	"sync/atomic"

	"github.com/philipp01105/lumber/core"
)

// OverflowPolicy defines how asynchronous messages are handled when the
// queue is full. Synchronous messages always wait for room.
type OverflowPolicy int

const (
	// Block makes the caller wait for room (with optional timeout)
	Block OverflowPolicy = iota
	// DropNewest drops the message being submitted
	DropNewest
	// DropOldest evicts the oldest queued asynchronous message
	DropOldest
)

// String returns the string representation of the policy
func (p OverflowPolicy) String() string {
	switch p {
	case Block:
		return "Block"
	case DropNewest:
		return "DropNewest"
	case DropOldest:
		return "DropOldest"
	default:
		return "Unknown"
	}
}

// ParseOverflowPolicy converts a policy name to an OverflowPolicy.
// Unknown names yield Block.
func ParseOverflowPolicy(s string) OverflowPolicy {
	switch s {
	case "drop_newest", "DropNewest", "drop-newest":
		return DropNewest
	case "drop_oldest", "DropOldest", "drop-oldest":
		return DropOldest
	default:
		return Block
	}
}

// Stats tracks pipeline statistics
type Stats struct {
	// Separate atomic counters per severity class
	DroppedError   uint64
	DroppedWarning uint64
	DroppedInfo    uint64
	DroppedDebug   uint64
	DroppedVerbose uint64
	// BlockedTotal counts times a submission waited on a full queue
	BlockedTotal uint64
	// ProcessedTotal counts messages delivered to the sink set
	ProcessedTotal uint64
	// SinkErrors counts deliveries that failed after all retries
	SinkErrors uint64
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) droppedCounter(flag core.Flag) *uint64 {
	switch flag.Level() {
	case core.LevelVerbose, core.LevelAll:
		return &s.DroppedVerbose
	case core.LevelDebug:
		return &s.DroppedDebug
	case core.LevelInfo:
		return &s.DroppedInfo
	case core.LevelWarning:
		return &s.DroppedWarning
	case core.LevelError:
		return &s.DroppedError
	default:
		return nil
	}
}

// IncrementDropped atomically increments the dropped counter for a
// flag's least severe class. Flags without a known class are not counted.
func (s *Stats) IncrementDropped(flag core.Flag) {
	if c := s.droppedCounter(flag); c != nil {
		atomic.AddUint64(c, 1)
	}
}

// IncrementBlocked atomically increments the blocked counter
func (s *Stats) IncrementBlocked() {
	atomic.AddUint64(&s.BlockedTotal, 1)
}

// IncrementProcessed atomically increments the processed counter
func (s *Stats) IncrementProcessed() {
	atomic.AddUint64(&s.ProcessedTotal, 1)
}

// IncrementSinkErrors atomically increments the sink error counter
func (s *Stats) IncrementSinkErrors() {
	atomic.AddUint64(&s.SinkErrors, 1)
}

// GetDropped returns the dropped count for a flag's class
func (s *Stats) GetDropped(flag core.Flag) uint64 {
	if c := s.droppedCounter(flag); c != nil {
		return atomic.LoadUint64(c)
	}
	return 0
}

// GetTotalDropped returns the total dropped across all classes
func (s *Stats) GetTotalDropped() uint64 {
	return atomic.LoadUint64(&s.DroppedError) +
		atomic.LoadUint64(&s.DroppedWarning) +
		atomic.LoadUint64(&s.DroppedInfo) +
		atomic.LoadUint64(&s.DroppedDebug) +
		atomic.LoadUint64(&s.DroppedVerbose)
}

// Reset resets all counters to zero
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.DroppedError, 0)
	atomic.StoreUint64(&s.DroppedWarning, 0)
	atomic.StoreUint64(&s.DroppedInfo, 0)
	atomic.StoreUint64(&s.DroppedDebug, 0)
	atomic.StoreUint64(&s.DroppedVerbose, 0)
	atomic.StoreUint64(&s.BlockedTotal, 0)
	atomic.StoreUint64(&s.ProcessedTotal, 0)
	atomic.StoreUint64(&s.SinkErrors, 0)
}

// Snapshot is a point-in-time copy of the statistics
type Snapshot struct {
	Dropped        map[core.Flag]uint64
	BlockedTotal   uint64
	ProcessedTotal uint64
	SinkErrors     uint64
	Queued         int
}

// TotalDropped sums the per-class dropped counts
func (s Snapshot) TotalDropped() uint64 {
	var total uint64
	for _, n := range s.Dropped {
		total += n
	}
	return total
}

// GetSnapshot returns a snapshot of current statistics
func (s *Stats) GetSnapshot() Snapshot {
	return Snapshot{
		Dropped: map[core.Flag]uint64{
			core.FlagError:   atomic.LoadUint64(&s.DroppedError),
			core.FlagWarning: atomic.LoadUint64(&s.DroppedWarning),
			core.FlagInfo:    atomic.LoadUint64(&s.DroppedInfo),
			core.FlagDebug:   atomic.LoadUint64(&s.DroppedDebug),
			core.FlagVerbose: atomic.LoadUint64(&s.DroppedVerbose),
		},
		BlockedTotal:   atomic.LoadUint64(&s.BlockedTotal),
		ProcessedTotal: atomic.LoadUint64(&s.ProcessedTotal),
		SinkErrors:     atomic.LoadUint64(&s.SinkErrors),
	}
}
