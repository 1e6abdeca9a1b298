package guard

import (
	"context"
	"sort"
	"time"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/guard/store"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/errors"
)

const (
	defaultLockoutWindow = 15 * time.Minute
	defaultMaxAttempts   = 5
)

// TrackerConfig tunes the failure tracker.
type TrackerConfig struct {
	Window      time.Duration
	MaxAttempts int
	Now         func() time.Time
}

// FailureTracker counts authentication failures per identifier inside a
// sliding window and reports lockout. Identifiers are opaque; callers
// pass usernames, client IDs, or addresses as they see fit. Separate
// trackers never share state unless they share a store.
type FailureTracker struct {
	store       store.FailureStore
	window      time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewFailureTracker wraps a failure store with windowed lockout logic.
func NewFailureTracker(st store.FailureStore, cfg TrackerConfig) *FailureTracker {
	if cfg.Window <= 0 {
		cfg.Window = defaultLockoutWindow
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &FailureTracker{
		store:       st,
		window:      cfg.Window,
		maxAttempts: cfg.MaxAttempts,
		now:         cfg.Now,
	}
}

// RecordFailure registers one failed attempt for the identifier.
func (t *FailureTracker) RecordFailure(ctx context.Context, identifier string) error {
	if err := t.store.Append(ctx, identifier, t.now()); err != nil {
		return errors.Wrap(errors.KindGuard, "tracker.record", "append failure", err)
	}
	return nil
}

// IsLockedOut reports whether the identifier has reached the attempt
// limit within the window. Expired entries are pruned as a side effect.
func (t *FailureTracker) IsLockedOut(ctx context.Context, identifier string) (bool, error) {
	stamps, err := t.recent(ctx, identifier)
	if err != nil {
		return false, err
	}
	return len(stamps) >= t.maxAttempts, nil
}

// RemainingLockout returns how long until the lockout lifts, or zero
// when the identifier is not locked out. The lockout lifts when enough
// failures age out of the window to drop the count below the limit.
func (t *FailureTracker) RemainingLockout(ctx context.Context, identifier string) (time.Duration, error) {
	stamps, err := t.recent(ctx, identifier)
	if err != nil {
		return 0, err
	}
	if len(stamps) < t.maxAttempts {
		return 0, nil
	}

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	unlockAt := stamps[len(stamps)-t.maxAttempts].Add(t.window)
	remaining := unlockAt.Sub(t.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// ClearFailures wipes the identifier's history, typically after a
// successful login.
func (t *FailureTracker) ClearFailures(ctx context.Context, identifier string) error {
	if err := t.store.Clear(ctx, identifier); err != nil {
		return errors.Wrap(errors.KindGuard, "tracker.clear", "clear failures", err)
	}
	return nil
}

// recent prunes aged-out entries and returns the ones still counted. A
// failure whose age equals the window exactly no longer counts.
func (t *FailureTracker) recent(ctx context.Context, identifier string) ([]time.Time, error) {
	cutoff := t.now().Add(-t.window)
	if err := t.store.Prune(ctx, identifier, cutoff); err != nil {
		return nil, errors.Wrap(errors.KindGuard, "tracker.recent", "prune failures", err)
	}
	stamps, err := t.store.List(ctx, identifier)
	if err != nil {
		return nil, errors.Wrap(errors.KindGuard, "tracker.recent", "list failures", err)
	}
	counted := stamps[:0]
	for _, at := range stamps {
		if at.After(cutoff) {
			counted = append(counted, at)
		}
	}
	return counted, nil
}
