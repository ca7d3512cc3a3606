package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestURLSetNoDuplicates(t *testing.T) {
	s := NewURLSet()

	if !s.Add("http://m.ettu.ru/station/1") {
		t.Error("first Add should return true")
	}
	if s.Add("http://m.ettu.ru/station/1") {
		t.Error("second Add of same URL should return false")
	}
	if !s.Contains("http://m.ettu.ru/station/1") {
		t.Error("Contains should report an added URL")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestURLSetConcurrency(t *testing.T) {
	s := NewURLSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			if s.Add("http://m.ettu.ru/station/same") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolSpacing(t *testing.T) {
	interval := 50 * time.Millisecond
	pool := NewWorkerPool(1, interval)

	var mu sync.Mutex
	var starts []time.Time
	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < interval {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, interval)
		}
	}
}

func TestWorkerPoolBound(t *testing.T) {
	pool := NewWorkerPool(2, 0)
	var running, peak int64

	pool.RunIndexed(8, func(int) {
		n := atomic.AddInt64(&running, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&running, -1)
	})

	if peak > 2 {
		t.Errorf("peak concurrency: got %d, want <= 2", peak)
	}
}

func TestRunIndexedKeepsSlots(t *testing.T) {
	pool := NewWorkerPool(4, 0)
	out := make([]int, 6)

	pool.RunIndexed(len(out), func(i int) {
		// later indexes finish first
		time.Sleep(time.Duration(len(out)-i) * 5 * time.Millisecond)
		out[i] = i * i
	})

	for i, v := range out {
		if v != i*i {
			t.Errorf("slot %d: got %d, want %d", i, v, i*i)
		}
	}
}

func TestWorkerPoolZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0, 0)
	done := false
	pool.Submit(func() { done = true })
	pool.Wait()
	if !done {
		t.Error("job did not run on a pool created with zero workers")
	}
}
