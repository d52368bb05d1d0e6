package budget

import (
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("uses given ceiling", func(t *testing.T) {
		t.Parallel()
		if got := New(3).Ceiling(); got != 3 {
			t.Errorf("expected ceiling 3, got %d", got)
		}
	})

	t.Run("non-positive ceiling uses default", func(t *testing.T) {
		t.Parallel()
		if got := New(0).Ceiling(); got != DefaultCeiling {
			t.Errorf("expected default ceiling %d, got %d", DefaultCeiling, got)
		}
		if got := New(-2).Ceiling(); got != DefaultCeiling {
			t.Errorf("expected default ceiling %d, got %d", DefaultCeiling, got)
		}
	})
}

func TestBudgetRecord(t *testing.T) {
	t.Parallel()

	b := New(3)

	for i := 1; i <= 2; i++ {
		n, exhausted := b.Record()
		if n != i {
			t.Errorf("expected count %d, got %d", i, n)
		}
		if exhausted {
			t.Fatalf("budget exhausted after %d failures", i)
		}
	}
	if b.Exhausted() {
		t.Fatal("expected budget to have room left")
	}
	if b.Remaining() != 1 {
		t.Errorf("expected 1 remaining, got %d", b.Remaining())
	}

	n, exhausted := b.Record()
	if n != 3 || !exhausted {
		t.Errorf("expected third failure to exhaust budget, got count=%d exhausted=%v", n, exhausted)
	}
	if !b.Exhausted() {
		t.Error("expected Exhausted to be true")
	}
	if b.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", b.Remaining())
	}

	// Recording past the ceiling keeps counting.
	if n, _ := b.Record(); n != 4 {
		t.Errorf("expected count 4, got %d", n)
	}
	if b.Remaining() != 0 {
		t.Errorf("expected remaining to stay at 0, got %d", b.Remaining())
	}
}

func TestBudgetConcurrentRecord(t *testing.T) {
	t.Parallel()

	const workers = 50
	b := New(10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	crossings := 0

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if n, _ := b.Record(); n == b.Ceiling() {
				mu.Lock()
				crossings++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if b.Count() != workers {
		t.Errorf("expected count %d, got %d", workers, b.Count())
	}
	if crossings != 1 {
		t.Errorf("expected exactly one caller to observe the ceiling, got %d", crossings)
	}
}
