package tracker

import (
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

// Option defines a functional option for configuring a Tracker.
type Option func(*Tracker) error

// WithSender sets the Sender which delivers hits in OfflineRequired and OfflineNever mode.
func WithSender(sender Sender) Option {
	return func(t *Tracker) error {
		t.sender = sender
		return nil
	}
}

// WithOfflineStore sets the OfflineStore which keeps hits in OfflineAlways mode
// and hits which failed delivery in OfflineRequired mode.
func WithOfflineStore(store OfflineStore) Option {
	return func(t *Tracker) error {
		t.offlineStore = store
		return nil
	}
}

// WithOfflineMode sets the delivery mode. The default is OfflineRequired.
func WithOfflineMode(mode OfflineMode) Option {
	return func(t *Tracker) error {
		if !mode.valid() {
			return ErrInvalidOfflineMode
		}

		t.offlineMode = mode

		return nil
	}
}

// WithLogger sets the logger for the Tracker.
// Info level: one message per dispatch with hit counts; Warn level: every failed delivery.
func WithLogger(logger hit.Logger) Option {
	return func(t *Tracker) error {
		t.logger = logger
		return nil
	}
}

// WithQueue makes the Tracker use a Queue owned by the caller, e.g. one shared with other components.
// Tracker.Close does not close a Queue supplied this way.
func WithQueue(queue *Queue) Option {
	return func(t *Tracker) error {
		if queue == nil {
			return ErrNilQueue
		}

		t.queue = queue
		t.ownsQueue = false

		return nil
	}
}
