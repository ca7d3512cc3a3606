package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ettu-nearby/models"
)

type fakeFetcher struct {
	delays   map[string]time.Duration
	failures map[string]error
	calls    int64
	mu       sync.Mutex
	seen     []string
}

func (f *fakeFetcher) FetchStatus(ctx context.Context, url string) (*models.ArrivalReport, error) {
	atomic.AddInt64(&f.calls, 1)
	f.mu.Lock()
	f.seen = append(f.seen, url)
	f.mu.Unlock()

	if d := f.delays[url]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.failures[url]; err != nil {
		return nil, err
	}
	return &models.ArrivalReport{StopLabel: url, TransportType: "Трамваи", Arrivals: []models.Arrival{}}, nil
}

func TestQueryNearestKeepsOrder(t *testing.T) {
	fetcher := &fakeFetcher{delays: map[string]time.Duration{
		"near": 60 * time.Millisecond,
		"mid":  5 * time.Millisecond,
	}}
	svc := NewQueryService(sampleCatalog(), fetcher, 3, time.Second, newTestLogger())

	reports := svc.QueryNearest(context.Background(), 56.8389, 60.6057, 3)
	want := []string{"near", "near-twin", "mid"}
	if len(reports) != len(want) {
		t.Fatalf("reports: got %d, want %d", len(reports), len(want))
	}
	for i, w := range want {
		if reports[i].Station.URL != w {
			t.Errorf("report[%d]: got %s, want %s", i, reports[i].Station.URL, w)
		}
		if reports[i].Report == nil || reports[i].Report.StopLabel != w {
			t.Errorf("report[%d] does not belong to its station: %+v", i, reports[i].Report)
		}
	}
	if reports[2].DistanceMeters <= reports[0].DistanceMeters {
		t.Errorf("distances not carried: %v, %v", reports[0].DistanceMeters, reports[2].DistanceMeters)
	}
}

func TestQueryNearestIsolatesFailures(t *testing.T) {
	boom := errors.New("connection refused")
	fetcher := &fakeFetcher{failures: map[string]error{"near-twin": boom}}
	svc := NewQueryService(sampleCatalog(), fetcher, 3, time.Second, newTestLogger())

	reports := svc.QueryNearest(context.Background(), 56.8389, 60.6057, 3)
	if len(reports) != 3 {
		t.Fatalf("reports: got %d, want 3", len(reports))
	}
	if !errors.Is(reports[1].Err, boom) || reports[1].Report != nil {
		t.Errorf("report[1]: got err %v report %v", reports[1].Err, reports[1].Report)
	}
	for _, i := range []int{0, 2} {
		if reports[i].Err != nil || reports[i].Report == nil {
			t.Errorf("report[%d] should succeed: %+v", i, reports[i])
		}
	}
}

func TestQueryNearestTimeout(t *testing.T) {
	fetcher := &fakeFetcher{delays: map[string]time.Duration{"near": time.Second}}
	svc := NewQueryService(sampleCatalog(), fetcher, 3, 30*time.Millisecond, newTestLogger())

	start := time.Now()
	reports := svc.QueryNearest(context.Background(), 56.8389, 60.6057, 2)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("query took %v, timeout not applied", elapsed)
	}
	if !errors.Is(reports[0].Err, context.DeadlineExceeded) {
		t.Errorf("report[0]: got %v, want deadline exceeded", reports[0].Err)
	}
	if reports[1].Err != nil {
		t.Errorf("report[1] should not be affected: %v", reports[1].Err)
	}
}

func TestQueryNearestZeroCount(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc := NewQueryService(sampleCatalog(), fetcher, 3, time.Second, newTestLogger())

	reports := svc.QueryNearest(context.Background(), 56.8389, 60.6057, 0)
	if len(reports) != 0 {
		t.Errorf("reports: got %d, want 0", len(reports))
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times, want 0", fetcher.calls)
	}
}

func TestQueryNearestEndToEnd(t *testing.T) {
	// Two stations; the query point is slightly closer to the second one.
	catalog := []models.Station{
		station("west", 56.8400, 60.5900),
		station("east", 56.8400, 60.6200),
	}
	lat, lon := 56.8400, 60.6060
	if Distance(lat, lon, 56.84, 60.62) >= Distance(lat, lon, 56.84, 60.59) {
		t.Fatal("fixture: east should be nearer")
	}

	fetcher := &fakeFetcher{}
	svc := NewQueryService(catalog, fetcher, 3, time.Second, newTestLogger())
	reports := svc.QueryNearest(context.Background(), lat, lon, 1)
	if len(reports) != 1 || reports[0].Station.URL != "east" {
		t.Fatalf("got %+v, want east", reports)
	}
	if len(fetcher.seen) != 1 || fetcher.seen[0] != "east" {
		t.Errorf("fetched %v, want only east", fetcher.seen)
	}
}

func TestQueryServiceCopiesCatalog(t *testing.T) {
	catalog := sampleCatalog()
	svc := NewQueryService(catalog, &fakeFetcher{}, 1, time.Second, newTestLogger())
	catalog[1] = station("moved", 0, 0)

	reports := svc.QueryNearest(context.Background(), 56.8389, 60.6057, 1)
	if reports[0].Station.URL != "near" {
		t.Errorf("catalog changed after construction: got %s", reports[0].Station.URL)
	}
	if svc.Size() != 5 {
		t.Errorf("Size: got %d, want 5", svc.Size())
	}
}
