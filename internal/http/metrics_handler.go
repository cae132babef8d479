package http

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"trackway/internal/metrics"
	"trackway/internal/pkg/async"
	"trackway/internal/sites"
	"trackway/internal/timeframe"
	"trackway/internal/tracks"
)

// registry is built once; metric definitions are immutable and safe to share
// across requests.
var registry = metrics.NewRegistry()

// MetricsCatalogAction lists the metric names the reporting API can compute.
func MetricsCatalogAction(ctx *cartridge.Context) error {
	return ctx.JSON(fiber.Map{
		"metrics": registry.AvailableMetrics(),
	})
}

type MetricResponse struct {
	Metric string                `json:"metric"`
	From   string                `json:"from"`
	To     string                `json:"to"`
	Bucket string                `json:"bucket,omitempty"`
	Value  int                   `json:"value"`
	Series []metrics.SeriesPoint `json:"series,omitempty"`
}

// SiteMetricAction computes one named metric for a site over a date range.
// With a bucket param it also returns the gap-free time series.
func SiteMetricAction(ctx *cartridge.Context) error {
	siteID, err := ctx.ParamsInt("id")
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid site ID"})
	}

	db := ctx.DB()
	if _, err := sites.GetSiteByID(db, uint(siteID)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Site not found"})
		}
		ctx.Logger.Error("Failed to load site", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load site"})
	}

	metricName := ctx.Params("metric")
	metric, ok := registry.Lookup(metricName)
	if !ok {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":   "Unknown metric",
			"metrics": registry.AvailableMetrics(),
		})
	}

	rng, err := timeframe.ParseRange(timeframe.ParserParams{
		FromDate: ctx.Query("from", ""),
		ToDate:   ctx.Query("to", ""),
	})
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	records, err := tracks.TracksInRange(db, uint(siteID), rng)
	if err != nil {
		ctx.Logger.Error("Failed to load tracks", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load tracks"})
	}

	response := MetricResponse{
		Metric: metricName,
		From:   rng.From.Format("2006-01-02"),
		To:     rng.To.Format("2006-01-02"),
		Value:  registry.Count(records, metric, rng),
	}

	if bucketParam := ctx.Query("bucket", ""); bucketParam != "" {
		bucket, err := timeframe.ParseBucket(bucketParam)
		if err != nil {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		series, err := buildMetricSeries(records, metric, rng, bucket)
		if err != nil {
			ctx.Logger.Error("Failed to build metric series", slog.Any("error", err))
			return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build metric series"})
		}
		response.Bucket = string(bucket)
		response.Series = series
	}

	return ctx.JSON(response)
}

func buildMetricSeries(records []tracks.Track, metric metrics.Metric, rng *timeframe.Range, bucket timeframe.Bucket) ([]metrics.SeriesPoint, error) {
	query := metrics.NewQuery()
	if metric.Predicate != nil {
		query = query.Where(metric.Predicate)
	}
	query = query.Where(metrics.Between(rng, metric.BetweenMode))

	rows, err := metrics.By(query.Apply(records), string(bucket))
	if err != nil {
		return nil, err
	}
	return metrics.BuildTimeSeries(rows, rng, bucket), nil
}

// SiteMetricsSummaryAction computes every reportable metric for a site over a
// date range in one response. The metrics are independent, so they are
// evaluated concurrently.
func SiteMetricsSummaryAction(ctx *cartridge.Context) error {
	siteID, err := ctx.ParamsInt("id")
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid site ID"})
	}

	rng, err := timeframe.ParseRange(timeframe.ParserParams{
		FromDate: ctx.Query("from", ""),
		ToDate:   ctx.Query("to", ""),
	})
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	records, err := tracks.TracksInRange(ctx.DB(), uint(siteID), rng)
	if err != nil {
		ctx.Logger.Error("Failed to load tracks", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load tracks"})
	}

	var jobs []async.Task
	for _, name := range registry.AvailableMetrics() {
		metric, ok := registry.Lookup(name)
		if !ok {
			continue
		}
		jobs = append(jobs, async.Task{
			Name: name,
			Run: func() (any, error) {
				return registry.Count(records, metric, rng), nil
			},
		})
	}
	jobs = append(jobs, async.Task{
		Name: "bounce_rate",
		Run: func() (any, error) {
			rate, err := metrics.BounceRate(records, rng)
			if errors.Is(err, metrics.ErrEmptySet) {
				return nil, nil
			}
			return rate, err
		},
	})

	results := async.RunAll(ctx.Ctx.UserContext(), 4, jobs)

	summary := make(fiber.Map, len(results))
	for name, result := range results {
		if result.Err != nil {
			ctx.Logger.Error("Failed to compute metric",
				slog.String("metric", name), slog.Any("error", result.Err))
			return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute metrics"})
		}
		summary[name] = result.Value
	}

	return ctx.JSON(fiber.Map{
		"from":    rng.From.Format("2006-01-02"),
		"to":      rng.To.Format("2006-01-02"),
		"metrics": summary,
	})
}

// SiteBounceRateAction reports the share of single-view visits for a site.
func SiteBounceRateAction(ctx *cartridge.Context) error {
	siteID, err := ctx.ParamsInt("id")
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid site ID"})
	}

	rng, err := timeframe.ParseRange(timeframe.ParserParams{
		FromDate: ctx.Query("from", ""),
		ToDate:   ctx.Query("to", ""),
	})
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	records, err := tracks.TracksInRange(ctx.DB(), uint(siteID), rng)
	if err != nil {
		ctx.Logger.Error("Failed to load tracks", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load tracks"})
	}

	rate, err := metrics.BounceRate(records, rng)
	if err != nil {
		if errors.Is(err, metrics.ErrEmptySet) {
			return ctx.JSON(fiber.Map{
				"from": rng.From.Format("2006-01-02"),
				"to":   rng.To.Format("2006-01-02"),
				"rate": nil,
			})
		}
		ctx.Logger.Error("Failed to compute bounce rate", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute bounce rate"})
	}

	return ctx.JSON(fiber.Map{
		"from": rng.From.Format("2006-01-02"),
		"to":   rng.To.Format("2006-01-02"),
		"rate": rate,
	})
}
