package filelock

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireWritesOwnerPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource.lock")
	l := New(path)
	if err := l.Acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()

	pid, err := OwnerPID(path)
	if err != nil {
		t.Fatalf("OwnerPID: %v", err)
	}
	if pid <= 0 {
		t.Errorf("recorded pid = %d, want a positive pid", pid)
	}
}

func TestAcquireTimesOutWhenAlreadyHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource.lock")
	holder := New(path)
	if err := holder.Acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("holder Acquire: %v", err)
	}
	defer holder.Release()

	contender := New(path)
	err := contender.Acquire(context.Background(), 75*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error while the lock is held elsewhere")
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource.lock")
	holder := New(path)
	if err := holder.Acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("holder Acquire: %v", err)
	}
	defer holder.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	contender := New(path)
	if err := contender.Acquire(ctx, 0); err == nil {
		t.Fatal("expected Acquire to fail once the context is canceled")
	}
}

func TestWithLockReleasesAfterFn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource.lock")

	ran := false
	if err := WithLock(context.Background(), path, time.Second, func() error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("WithLock: %v", err)
	}
	if !ran {
		t.Fatal("fn was not invoked")
	}

	// The lock must be free again: a second acquire should succeed quickly.
	l := New(path)
	if err := l.Acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("Acquire after WithLock: %v", err)
	}
	l.Release()
}
