// Package filelock implements the portable file-lock primitive used to
// serialize access to shared resources: an advisory exclusive lock over a
// lock file that additionally records the holder's PID, so a crashed
// holder's stale lock can be recognized by operators inspecting the lock
// file by hand.
package filelock

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/theckman/go-flock"
)

// Lock guards one shared-resource directory or file.
type Lock struct {
	path string
	fl   *flock.Flock
}

// New returns a Lock over the given lock-file path. The lock file is
// created on first Acquire; it does not need to exist beforehand.
func New(path string) *Lock {
	return &Lock{path: path, fl: flock.NewFlock(path)}
}

// Acquire blocks until the lock is held, ctx is canceled, or (if timeout > 0)
// the timeout elapses. A zero timeout means wait indefinitely.
func (l *Lock) Acquire(ctx context.Context, timeout time.Duration) error {
	deadline, cancel := context.WithTimeout(ctx, timeoutOrForever(timeout))
	defer cancel()

	retry := time.NewTicker(25 * time.Millisecond)
	defer retry.Stop()

	for {
		ok, err := l.fl.TryLock()
		if err != nil {
			return errors.Wrapf(err, "acquiring lock %s", l.path)
		}
		if ok {
			return l.writeOwnerPID()
		}
		select {
		case <-deadline.Done():
			return errors.Wrapf(deadline.Err(), "timed out acquiring lock %s", l.path)
		case <-retry.C:
		}
	}
}

func timeoutOrForever(d time.Duration) time.Duration {
	if d <= 0 {
		// effectively unbounded; callers still observe ctx cancellation.
		return 365 * 24 * time.Hour
	}
	return d
}

// writeOwnerPID records the current process's PID in the lock file body so
// that, after a crash, an operator (or a future cartgo process performing
// stale-lock recovery) can tell whether the PID that took the lock is still
// alive.
func (l *Lock) writeOwnerPID() error {
	return os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o600)
}

// Release gives up the lock.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}

// OwnerPID reads the PID recorded in the lock file, for stale-lock
// diagnostics. It does not itself determine liveness.
func OwnerPID(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(b), "%d", &pid); err != nil {
		return 0, errors.Wrapf(err, "malformed lock file %s", path)
	}
	return pid, nil
}

// WithLock acquires the lock, runs fn, and releases the lock afterward
// regardless of fn's outcome.
func WithLock(ctx context.Context, path string, timeout time.Duration, fn func() error) error {
	l := New(path)
	if err := l.Acquire(ctx, timeout); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
