// Package events keeps the bounded in-process event history shown to the user.
package events

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention is the number of entries a Log keeps when none is configured.
const DefaultRetention = 100

// Level classifies an entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Entry is one recorded event.
type Entry struct {
	ID      uuid.UUID `json:"id"`
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// Sink receives events from the components that produce them.
type Sink interface {
	Record(level Level, message string)
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(Level, string) {}

// Infof records a formatted info event.
func Infof(s Sink, format string, args ...any) { s.Record(LevelInfo, fmt.Sprintf(format, args...)) }

// Warnf records a formatted warning.
func Warnf(s Sink, format string, args ...any) { s.Record(LevelWarn, fmt.Sprintf(format, args...)) }

// Errorf records a formatted error event.
func Errorf(s Sink, format string, args ...any) { s.Record(LevelError, fmt.Sprintf(format, args...)) }

// Successf records a formatted success event.
func Successf(s Sink, format string, args ...any) {
	s.Record(LevelSuccess, fmt.Sprintf(format, args...))
}

// Log is a Sink that retains the newest entries, notifies subscribers and
// mirrors every entry to slog. It is safe for concurrent use.
type Log struct {
	mu        sync.Mutex
	retention int
	entries   []Entry // newest first
	subs      map[int]func(Entry)
	nextSub   int
	now       func() time.Time
}

// NewLog creates a Log keeping at most retention entries. A non-positive
// retention uses DefaultRetention.
func NewLog(retention int) *Log {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Log{
		retention: retention,
		subs:      make(map[int]func(Entry)),
		now:       time.Now,
	}
}

// Record appends an entry and delivers it to every subscriber.
func (l *Log) Record(level Level, message string) {
	e := Entry{
		ID:      uuid.New(),
		Time:    l.now(),
		Level:   level,
		Message: message,
	}
	mirror(e)

	l.mu.Lock()
	l.entries = slices.Insert(l.entries, 0, e)
	if len(l.entries) > l.retention {
		l.entries = l.entries[:l.retention]
	}
	subs := make([]func(Entry), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// History returns the retained entries, newest first.
func (l *Log) History() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Subscribe registers fn for every subsequent entry. The returned function
// removes the subscription.
func (l *Log) Subscribe(fn func(Entry)) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// Clear drops the history and records that it was cleared.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
	l.Record(LevelInfo, "event history cleared")
}

func mirror(e Entry) {
	switch e.Level {
	case LevelError:
		slog.Error(e.Message, "event", e.ID)
	case LevelWarn:
		slog.Warn(e.Message, "event", e.ID)
	default:
		slog.Info(e.Message, "event", e.ID, "level", string(e.Level))
	}
}
