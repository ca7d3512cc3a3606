package ettu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ettu-nearby/models"
	"ettu-nearby/utils"
)

var (
	// ErrPageShape means the page was fetched but does not look like a stop page.
	ErrPageShape = errors.New("unexpected page shape")
	// ErrBadStatus means the server answered outside the 2xx range.
	ErrBadStatus = errors.New("unexpected http status")
)

// maxPageBytes caps how much of a stop page is read.
const maxPageBytes = 4 << 20

// FetchError is a failed live status extraction for one station.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch status %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError carries the HTTP status of a rejected response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string { return fmt.Sprintf("%v: %s", ErrBadStatus, e.Status) }

func (e *StatusError) Is(target error) bool { return target == ErrBadStatus }

// PageFetcher returns the HTML of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages with a plain GET.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates an HTTPFetcher. A zero timeout leaves only the
// caller's context deadline in effect.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// Client turns a station URL into an arrival report.
type Client struct {
	fetcher PageFetcher
	retry   *utils.RetryConfig
	logger  *utils.Logger
	now     func() time.Time
}

// New creates a Client. retry may be nil for a single attempt per call.
func New(fetcher PageFetcher, retry *utils.RetryConfig, logger *utils.Logger) *Client {
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1, Logger: logger}
	}
	return &Client{
		fetcher: fetcher,
		retry:   retry,
		logger:  logger,
		now:     time.Now,
	}
}

// FetchStatus fetches the station page and parses it. Every failure is
// returned as a *FetchError.
func (c *Client) FetchStatus(ctx context.Context, stationURL string) (*models.ArrivalReport, error) {
	var report *models.ArrivalReport

	err := c.retry.Do(ctx, "fetch "+stationURL, func() error {
		page, err := c.fetcher.Fetch(ctx, stationURL)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.Code < 500 {
				return utils.Permanent(err)
			}
			return err
		}

		r, err := ParsePage(bytes.NewBufferString(page))
		if err != nil {
			return utils.Permanent(err)
		}
		report = r
		return nil
	})
	if err != nil {
		c.logger.Warn("[ettu] Status for %s failed: %v", stationURL, err)
		return nil, &FetchError{URL: stationURL, Err: err}
	}

	report.FetchedAt = c.now()
	c.logger.Debug("[ettu] %s: %s, %d arrivals", report.StopLabel, report.TransportType, len(report.Arrivals))
	return report, nil
}
