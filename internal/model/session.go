package model

import (
	"fmt"
	"time"
)

// Log buffer bounds
const (
	// MaxLogEntries caps the session log buffer
	MaxLogEntries = 1000

	// LogDropBatch is how many of the oldest entries are dropped on overflow
	LogDropBatch = 100
)

// LogEntry is one timestamped session log line
type LogEntry struct {
	At   time.Time
	Line string
}

// String formats the entry the way it is surfaced to the UI layer
func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.At.Format("15:04:05"), e.Line)
}

// LogBuffer is a bounded ordered sequence of timestamped log lines.
// It is not safe for concurrent use; the owner serializes access.
type LogBuffer struct {
	entries []LogEntry
}

// Append records a line with the current timestamp, dropping the oldest
// batch of entries once the buffer is full.
func (b *LogBuffer) Append(line string) {
	if len(b.entries) >= MaxLogEntries {
		b.entries = b.entries[LogDropBatch:]
	}
	b.entries = append(b.entries, LogEntry{At: time.Now(), Line: line})
}

// Len returns the number of buffered entries
func (b *LogBuffer) Len() int {
	return len(b.entries)
}

// Entries returns a copy of the buffered entries in order
func (b *LogBuffer) Entries() []LogEntry {
	out := make([]LogEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Reset discards all buffered entries
func (b *LogBuffer) Reset() {
	b.entries = nil
}

// SessionSnapshot is an immutable view of the session state published to
// the foreground observer. Fields are copies; mutating a snapshot has no
// effect on the live session.
type SessionSnapshot struct {
	Status     SessionStatus
	StatusLine string
	Progress   float64 // 0.0 to 1.0
	Speed      string  // human readable speed (e.g., "1.2MiB/s")
	ETA        string  // human readable ETA (e.g., "01:23")
	OutputPath string  // representative finalized path, set on success
	LastError  string  // terminal error message if any
	Logs       []LogEntry
	RawOutput  string // verbatim fetcher output, only when capture is enabled
}
