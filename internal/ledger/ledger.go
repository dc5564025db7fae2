// Package ledger records who has left which room so they cannot come back.
//
// A record is written for both the connection identity and the display
// name. Records outlive the room itself: a later room that happens to be
// allocated the same code still refuses the original leaver. Retention is
// configurable; zero keeps records for the life of the process.
package ledger

import (
	"context"
	"sync"
	"time"
)

// Ledger is the session ledger contract used by the hub.
type Ledger interface {
	RecordLeft(ctx context.Context, connID, username, code string) error
	HasLeftConn(ctx context.Context, connID, code string) (bool, error)
	HasLeftName(ctx context.Context, username, code string) (bool, error)
}

type entry struct {
	kind byte
	who  string
	code string
}

// MemoryLedger keeps records in process memory.
type MemoryLedger struct {
	mu        sync.RWMutex
	records   map[entry]time.Time
	retention time.Duration
	now       func() time.Time
}

// NewMemoryLedger returns an in-memory ledger. retention <= 0 keeps
// records forever.
func NewMemoryLedger(retention time.Duration) *MemoryLedger {
	return &MemoryLedger{
		records:   make(map[entry]time.Time),
		retention: retention,
		now:       time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (l *MemoryLedger) SetClock(now func() time.Time) { l.now = now }

func (l *MemoryLedger) RecordLeft(_ context.Context, connID, username, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	at := l.now()
	if connID != "" {
		l.records[entry{kind: 'c', who: connID, code: code}] = at
	}
	if username != "" {
		l.records[entry{kind: 'n', who: username, code: code}] = at
	}
	return nil
}

func (l *MemoryLedger) HasLeftConn(_ context.Context, connID, code string) (bool, error) {
	return l.has(entry{kind: 'c', who: connID, code: code}), nil
}

func (l *MemoryLedger) HasLeftName(_ context.Context, username, code string) (bool, error) {
	return l.has(entry{kind: 'n', who: username, code: code}), nil
}

func (l *MemoryLedger) has(e entry) bool {
	l.mu.RLock()
	at, ok := l.records[e]
	l.mu.RUnlock()
	if !ok {
		return false
	}
	if l.retention > 0 && l.now().Sub(at) >= l.retention {
		l.mu.Lock()
		delete(l.records, e)
		l.mu.Unlock()
		return false
	}
	return true
}

// Prune drops records older than the retention window and returns how many
// went. It is a no-op when retention is unlimited.
func (l *MemoryLedger) Prune() int {
	if l.retention <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.retention)
	n := 0
	for e, at := range l.records {
		if !at.After(cutoff) {
			delete(l.records, e)
			n++
		}
	}
	return n
}

// Len returns the number of stored records.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
