package tracker_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/builder"
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/tracker"
)

var errCollectorDown = errors.New("collector down")

// senderSpy records delivered hits and fails every hit containing failOn.
type senderSpy struct {
	mu     sync.Mutex
	sent   []string
	failOn string
}

func (s *senderSpy) Send(_ context.Context, hitURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn != "" && strings.Contains(hitURL, s.failOn) {
		return errCollectorDown
	}

	s.sent = append(s.sent, hitURL)

	return nil
}

func (s *senderSpy) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.sent...)
}

type offlineStoreSpy struct {
	mu     sync.Mutex
	stored []string
	err    error
}

func (s *offlineStoreSpy) Save(_ context.Context, hits ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.stored = append(s.stored, hits...)

	return nil
}

func (s *offlineStoreSpy) Stored() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.stored...)
}

func newTestTracker(t *testing.T, maxHitSize int, options ...tracker.Option) *tracker.Tracker {
	t.Helper()

	cfg := builder.DefaultConfiguration("123456")
	cfg.MaxHitSize = maxHitSize

	b, err := builder.New(cfg, builder.WithMultihitIDGenerator(func() string { return "1" }))
	require.NoError(t, err, "creating the builder failed")

	tr, err := tracker.New(b, options...)
	require.NoError(t, err, "creating the tracker failed")

	t.Cleanup(func() { _ = tr.Close() })

	return tr
}
