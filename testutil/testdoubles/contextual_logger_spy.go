package testdoubles

import (
	"context"
	"log/slog"
	"sync"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

// ContextualLoggerSpy records the calls of a hit.ContextualLogger together with their context,
// so tests can check log records are correlated with the active span.
type ContextualLoggerSpy struct {
	mu          sync.Mutex
	records     []SpyContextualLogRecord
	recordCalls bool
}

// SpyContextualLogRecord is one recorded contextual log call.
type SpyContextualLogRecord struct {
	Level   slog.Level
	Message string
	Args    []any
	Context context.Context
}

// NewContextualLoggerSpy creates a spy which records calls when recordCalls is true.
func NewContextualLoggerSpy(recordCalls bool) *ContextualLoggerSpy {
	return &ContextualLoggerSpy{recordCalls: recordCalls}
}

func (s *ContextualLoggerSpy) DebugContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, slog.LevelDebug, msg, args)
}

func (s *ContextualLoggerSpy) InfoContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, slog.LevelInfo, msg, args)
}

func (s *ContextualLoggerSpy) WarnContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, slog.LevelWarn, msg, args)
}

func (s *ContextualLoggerSpy) ErrorContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, slog.LevelError, msg, args)
}

func (s *ContextualLoggerSpy) record(ctx context.Context, level slog.Level, msg string, args []any) {
	if !s.recordCalls {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, SpyContextualLogRecord{
		Level:   level,
		Message: msg,
		Args:    append([]any(nil), args...),
		Context: ctx,
	})
}

// GetRecords returns a copy of all recorded calls.
func (s *ContextualLoggerSpy) GetRecords() []SpyContextualLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyContextualLogRecord(nil), s.records...)
}

// Reset clears all recorded calls.
func (s *ContextualLoggerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
}

// FindRecord returns the first record with the given level and message.
func (s *ContextualLoggerSpy) FindRecord(level slog.Level, msg string) (SpyContextualLogRecord, bool) {
	for _, record := range s.GetRecords() {
		if record.Level == level && record.Message == msg {
			return record, true
		}
	}

	return SpyContextualLogRecord{}, false
}

var _ hit.ContextualLogger = (*ContextualLoggerSpy)(nil)
