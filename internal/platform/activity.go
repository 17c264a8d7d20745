package platform

import (
	"sync"
	"time"
)

// ActivityEntry is one recorded mutating tool call.
type ActivityEntry struct {
	Time    time.Time `json:"time"`
	Tool    string    `json:"tool"`
	Summary string    `json:"summary"`
}

// ActivityLog keeps the ordered record of mutating tool calls. Read-only
// tools are not recorded. The log survives data reloads so graders can
// inspect what an agent did across the whole run.
type ActivityLog struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

// Record appends one entry.
func (l *ActivityLog) Record(tool, summary string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ActivityEntry{
		Time:    time.Now().UTC(),
		Tool:    tool,
		Summary: summary,
	})
}

// Entries returns a copy of the log in call order.
func (l *ActivityLog) Entries() []ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ActivityEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of recorded calls.
func (l *ActivityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
