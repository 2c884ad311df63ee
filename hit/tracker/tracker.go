package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/builder"
)

const (
	logMsgDispatched     = "hits dispatched"
	logMsgDeliveryFailed = "hit delivery failed"
	logMsgStoreFailed    = "storing hits offline failed"
	logAttrHitCount      = "hit_count"
	logAttrSentCount     = "sent_count"
	logAttrStoredCount   = "stored_count"
	logAttrOfflineMode   = "offline_mode"
	logAttrError         = "error"
)

var (
	// ErrNoSender is returned by Dispatch when the offline mode needs a Sender and none is configured.
	ErrNoSender = errors.New("no sender configured")

	// ErrNoOfflineStore is returned by Dispatch when the offline mode needs an OfflineStore and none is configured.
	ErrNoOfflineStore = errors.New("no offline store configured")

	// ErrDeliveryFailed is joined with the errors of all hits which could neither be sent nor stored.
	ErrDeliveryFailed = errors.New("hit delivery failed")

	// ErrInvalidOfflineMode is returned for unknown offline modes.
	ErrInvalidOfflineMode = errors.New("invalid offline mode")

	// ErrNilQueue is returned when a nil Queue is supplied to WithQueue.
	ErrNilQueue = errors.New("queue must not be nil")
)

// Sender delivers one hit URL to the collector.
type Sender interface {
	Send(ctx context.Context, hitURL string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, hitURL string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, hitURL string) error {
	return f(ctx, hitURL)
}

// OfflineStore keeps hit URLs for later delivery.
type OfflineStore interface {
	Save(ctx context.Context, hits ...string) error
}

/***** OfflineMode *****/

// OfflineMode decides what Dispatch does with built hits.
type OfflineMode int

const (
	// OfflineRequired sends hits and stores those which could not be sent.
	OfflineRequired OfflineMode = iota

	// OfflineAlways stores all hits without sending.
	OfflineAlways

	// OfflineNever sends hits and reports failures.
	OfflineNever
)

// String returns the configuration name of the mode.
func (m OfflineMode) String() string {
	switch m {
	case OfflineRequired:
		return "required"
	case OfflineAlways:
		return "always"
	case OfflineNever:
		return "never"
	default:
		return "unknown"
	}
}

func (m OfflineMode) valid() bool {
	return m >= OfflineRequired && m <= OfflineNever
}

// ParseOfflineMode parses "required", "always" or "never", case-insensitively. Empty means OfflineRequired.
func ParseOfflineMode(s string) (OfflineMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "required":
		return OfflineRequired, nil
	case "always":
		return OfflineAlways, nil
	case "never":
		return OfflineNever, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOfflineMode, s)
	}
}

/***** Tracker *****/

// Tracker owns a hit.Buffer and serializes every access to it through a Queue.
// All methods are safe for concurrent use.
type Tracker struct {
	builder      builder.Builder
	buffer       *hit.Buffer
	queue        *Queue
	ownsQueue    bool
	sender       Sender
	offlineStore OfflineStore
	offlineMode  OfflineMode
	logger       hit.Logger
}

// New creates a Tracker around the Builder with optional configuration.
// Unless WithQueue is given, the Tracker starts its own Queue, which Close stops.
func New(b builder.Builder, options ...Option) (*Tracker, error) {
	t := &Tracker{
		builder:     b,
		buffer:      hit.NewBuffer(),
		offlineMode: OfflineRequired,
	}

	for _, option := range options {
		if err := option(t); err != nil {
			return nil, err
		}
	}

	if t.queue == nil {
		t.queue = NewQueue()
		t.ownsQueue = true
	}

	return t, nil
}

// SetParam writes a parameter into the Buffer, see hit.Buffer.SetParam.
func (t *Tracker) SetParam(
	ctx context.Context,
	key hit.KeyString,
	value hit.Value,
	valueType hit.ValueType,
	opts ...hit.ParamOption,
) error {

	return t.queue.Do(ctx, func() {
		t.buffer.SetParam(key, value, valueType, opts...)
	})
}

// UnsetParam removes a parameter from the Buffer.
func (t *Tracker) UnsetParam(ctx context.Context, key hit.KeyString) error {
	return t.queue.Do(ctx, func() {
		t.buffer.UnsetParam(key)
	})
}

// Param reads a parameter from the Buffer.
func (t *Tracker) Param(ctx context.Context, key hit.KeyString) (hit.Parameter, bool, error) {
	var (
		p  hit.Parameter
		ok bool
	)

	err := t.queue.Do(ctx, func() {
		p, ok = t.buffer.Param(key)
	})
	if err != nil {
		return hit.Parameter{}, false, err
	}

	return p, ok, nil
}

// Snapshot captures the current Buffer state.
func (t *Tracker) Snapshot(ctx context.Context) (hit.Snapshot, error) {
	var snapshot hit.Snapshot

	if err := t.queue.Do(ctx, func() { snapshot = t.buffer.Snapshot() }); err != nil {
		return hit.Snapshot{}, err
	}

	return snapshot, nil
}

// Build builds hits from the current Buffer state without changing it.
func (t *Tracker) Build(ctx context.Context) ([]string, error) {
	snapshot, err := t.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return t.builder.Build(ctx, snapshot), nil
}

// Dispatch builds hits, clears the volatile parameters and delivers the hits per the offline mode.
//
// It returns the built hits. Hits which could neither be sent nor stored are reported as
// ErrDeliveryFailed joined with their causes. Delivery is attempted once; there are no retries.
func (t *Tracker) Dispatch(ctx context.Context) ([]string, error) {
	if err := t.checkDeliveryTargets(); err != nil {
		return nil, err
	}

	var snapshot hit.Snapshot
	err := t.queue.Do(ctx, func() {
		snapshot = t.buffer.Snapshot()
		t.buffer.ClearVolatile()
	})
	if err != nil {
		return nil, err
	}

	hits := t.builder.Build(ctx, snapshot)

	switch t.offlineMode {
	case OfflineAlways:
		return hits, t.store(ctx, hits, 0)

	default:
		return hits, t.send(ctx, hits)
	}
}

// Close stops the Tracker's own Queue. Calls after Close fail with ErrQueueClosed.
func (t *Tracker) Close() error {
	if !t.ownsQueue {
		return nil
	}

	return t.queue.Close()
}

func (t *Tracker) checkDeliveryTargets() error {
	switch t.offlineMode {
	case OfflineAlways:
		if t.offlineStore == nil {
			return ErrNoOfflineStore
		}

	default:
		if t.sender == nil {
			return ErrNoSender
		}
	}

	return nil
}

func (t *Tracker) send(ctx context.Context, hits []string) error {
	var (
		failed []string
		errs   []error
	)

	for _, hitURL := range hits {
		if err := t.sender.Send(ctx, hitURL); err != nil {
			t.logWarn(logMsgDeliveryFailed, logAttrOfflineMode, t.offlineMode.String(), logAttrError, err.Error())
			failed = append(failed, hitURL)
			errs = append(errs, err)
		}
	}

	if len(failed) > 0 && t.offlineMode == OfflineRequired && t.offlineStore != nil {
		return t.store(ctx, failed, len(hits)-len(failed))
	}

	t.logInfo(logMsgDispatched,
		logAttrHitCount, len(hits),
		logAttrSentCount, len(hits)-len(failed),
		logAttrStoredCount, 0,
		logAttrOfflineMode, t.offlineMode.String())

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrDeliveryFailed}, errs...)...)
	}

	return nil
}

func (t *Tracker) store(ctx context.Context, hits []string, sentCount int) error {
	if err := t.offlineStore.Save(ctx, hits...); err != nil {
		t.logWarn(logMsgStoreFailed, logAttrHitCount, len(hits), logAttrError, err.Error())
		return errors.Join(ErrDeliveryFailed, err)
	}

	t.logInfo(logMsgDispatched,
		logAttrHitCount, sentCount+len(hits),
		logAttrSentCount, sentCount,
		logAttrStoredCount, len(hits),
		logAttrOfflineMode, t.offlineMode.String())

	return nil
}

func (t *Tracker) logInfo(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Info(msg, args...)
	}
}

func (t *Tracker) logWarn(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Warn(msg, args...)
	}
}
