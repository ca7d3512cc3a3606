package ettu

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ettu-nearby/utils"
)

func newTestClient(retry *utils.RetryConfig) *Client {
	c := New(NewHTTPFetcher(2*time.Second, "ettu-nearby-test"), retry, utils.NewNopLogger())
	c.now = func() time.Time { return time.Date(2024, 3, 1, 12, 34, 0, 0, time.UTC) }
	return c
}

func TestFetchStatusServedPage(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(stopPage("15", "350 м", "2 мин")))
	}))
	defer srv.Close()

	r, err := newTestClient(nil).FetchStatus(context.Background(), srv.URL+"/m/Station/123")
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if gotUA != "ettu-nearby-test" {
		t.Errorf("User-Agent: got %q", gotUA)
	}
	if len(r.Arrivals) != 1 || r.Arrivals[0].Route() != "15" {
		t.Errorf("arrivals: got %+v", r.Arrivals)
	}
	if r.FetchedAt.IsZero() {
		t.Error("FetchedAt should be set")
	}
}

func TestFetchStatusBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(nil).FetchStatus(context.Background(), srv.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("got %T %v, want *FetchError", err, err)
	}
	if fe.URL != srv.URL {
		t.Errorf("FetchError.URL: got %q", fe.URL)
	}
	if !errors.Is(err, ErrBadStatus) {
		t.Errorf("error should wrap ErrBadStatus: %v", err)
	}
}

func TestFetchStatusPageShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>maintenance</body></html>"))
	}))
	defer srv.Close()

	_, err := newTestClient(nil).FetchStatus(context.Background(), srv.URL)
	if !errors.Is(err, ErrPageShape) {
		t.Errorf("got %v, want ErrPageShape", err)
	}
}

func TestFetchStatusRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(stopPage()))
	}))
	defer srv.Close()

	retry := &utils.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}
	if _, err := newTestClient(retry).FetchStatus(context.Background(), srv.URL); err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("calls: got %d, want 2", n)
	}
}

func TestFetchStatusDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	retry := &utils.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}
	if _, err := newTestClient(retry).FetchStatus(context.Background(), srv.URL); err == nil {
		t.Fatal("expected an error for 404")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls: got %d, want 1", n)
	}
}

func TestFetchStatusTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestClient(nil).FetchStatus(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("fetch should stop at the context deadline, took %v", elapsed)
	}
}
