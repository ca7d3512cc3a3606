package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"ettu-nearby/models"
	"ettu-nearby/utils"
)

// StatusFetcher produces the live arrival report of one station page.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, stationURL string) (*models.ArrivalReport, error)
}

var errEmptyReport = errors.New("fetcher returned no report")

// QueryService answers nearest-stop queries over a fixed catalog.
// The catalog is never modified after construction, so QueryNearest is safe
// for concurrent use.
type QueryService struct {
	stations       []models.Station
	fetcher        StatusFetcher
	maxConcurrency int
	timeout        time.Duration
	logger         *utils.Logger
}

// NewQueryService creates a QueryService over stations. A zero timeout leaves
// only the caller's context in effect.
func NewQueryService(stations []models.Station, fetcher StatusFetcher, maxConcurrency int, timeout time.Duration, logger *utils.Logger) *QueryService {
	catalog := make([]models.Station, len(stations))
	copy(catalog, stations)
	return &QueryService{
		stations:       catalog,
		fetcher:        fetcher,
		maxConcurrency: maxConcurrency,
		timeout:        timeout,
		logger:         logger,
	}
}

// Size returns the number of stations in the catalog.
func (q *QueryService) Size() int {
	return len(q.stations)
}

// QueryNearest returns up to count reports for the stations nearest to
// (lat, lon), nearest first. A station whose page could not be fetched is
// returned with Err set; it never fails the whole query.
func (q *QueryService) QueryNearest(ctx context.Context, lat, lon float64, count int) []models.StationReport {
	id := uuid.NewString()[:8]
	candidates := Rank(q.stations, lat, lon, count)
	q.logger.Info("[query %s] %.6f,%.6f: %d candidates", id, lat, lon, len(candidates))

	reports := make([]models.StationReport, len(candidates))
	if len(candidates) == 0 {
		return reports
	}

	workers := q.maxConcurrency
	if workers > len(candidates) {
		workers = len(candidates)
	}
	pool := utils.NewWorkerPool(workers, 0)
	pool.RunIndexed(len(candidates), func(i int) {
		c := candidates[i]
		reports[i] = models.StationReport{Station: c.Station, DistanceMeters: c.DistanceMeters}

		fctx, cancel := q.fetchContext(ctx)
		defer cancel()

		report, err := q.fetcher.FetchStatus(fctx, c.Station.URL)
		if err == nil && report == nil {
			err = errEmptyReport
		}
		if err != nil {
			q.logger.Warn("[query %s] %s: %v", id, c.Station.URL, err)
			reports[i].Err = err
			return
		}
		reports[i].Report = report
	})

	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}
	q.logger.Info("[query %s] done: %d reports, %d failed", id, len(reports), failed)
	return reports
}

func (q *QueryService) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout > 0 {
		return context.WithTimeout(ctx, q.timeout)
	}
	return context.WithCancel(ctx)
}
