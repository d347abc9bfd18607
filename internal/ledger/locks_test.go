package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAcquireTimesOut(t *testing.T) {
	lt := newLockTable(30 * time.Millisecond)
	ctx := context.Background()

	release, err := lt.acquire(ctx, "ACC-1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := lt.acquire(ctx, "ACC-1"); !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}

	release()
	release2, err := lt.acquire(ctx, "ACC-1")
	if err != nil {
		t.Fatalf("acquire after release err=%v", err)
	}
	release2()
}

func TestAcquireReleasesPartialHoldOnTimeout(t *testing.T) {
	lt := newLockTable(30 * time.Millisecond)
	ctx := context.Background()

	// Hold B so an (A, B) acquisition times out after taking A.
	releaseB, err := lt.acquire(ctx, "B")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lt.acquire(ctx, "A", "B"); !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}

	// A must have been released on the way out.
	releaseA, err := lt.acquire(ctx, "A")
	if err != nil {
		t.Fatalf("A still held after failed multi-acquire: %v", err)
	}
	releaseA()
	releaseB()
}

func TestAcquireDeduplicatesIDs(t *testing.T) {
	lt := newLockTable(30 * time.Millisecond)
	release, err := lt.acquire(context.Background(), "ACC-1", "ACC-1")
	if err != nil {
		t.Fatal(err)
	}
	release()
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	lt := newLockTable(5 * time.Second)
	release, err := lt.acquire(context.Background(), "ACC-1")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, err := lt.acquire(ctx, "ACC-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestOpposingAcquireOrders(t *testing.T) {
	lt := newLockTable(2 * time.Second)
	ctx := context.Background()

	// Opposite-order acquisitions sort to the same lock order, so none of
	// these can deadlock regardless of scheduling.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			release, err := lt.acquire(ctx, "A", "B")
			if err != nil {
				t.Errorf("acquire(A,B) err=%v", err)
				return
			}
			release()
		}()
		go func() {
			defer wg.Done()
			release, err := lt.acquire(ctx, "B", "A")
			if err != nil {
				t.Errorf("acquire(B,A) err=%v", err)
				return
			}
			release()
		}()
	}
	wg.Wait()
}
