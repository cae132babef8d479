package http

import (
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"trackway/internal/timeframe"
	"trackway/internal/tracks"
)

type PaginationData struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	PerPage     int   `json:"per_page"`
}

type TrackItem struct {
	TrackedAt      time.Time `json:"tracked_at"`
	URL            string    `json:"url"`
	VisitorID      string    `json:"visitor_id"`
	VisitNumber    int       `json:"visit_number"`
	SessionID      string    `json:"session_id"`
	ViewNumber     int       `json:"view_number"`
	Duration       *int      `json:"duration,omitempty"`
	CampaignName   string    `json:"campaign_name,omitempty"`
	CampaignSource string    `json:"campaign_source,omitempty"`
	CampaignMedium string    `json:"campaign_medium,omitempty"`
}

type TracksResponse struct {
	Tracks     []TrackItem    `json:"tracks"`
	Pagination PaginationData `json:"pagination"`
}

// SiteTracksAction lists a site's raw tracks, newest first, with URL and
// campaign filters for inspection.
func SiteTracksAction(ctx *cartridge.Context) error {
	siteID, err := ctx.ParamsInt("id")
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid site ID"})
	}

	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit := 50
	offset := (page - 1) * limit

	rng, err := timeframe.ParseRange(timeframe.ParserParams{
		FromDate: ctx.Query("from", ""),
		ToDate:   ctx.Query("to", ""),
	})
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, total, err := tracks.GetFilteredTracks(ctx.DB(), tracks.TrackFilters{
		SiteID:       uint(siteID),
		Range:        rng,
		URLFilter:    ctx.Query("url", ""),
		CampaignName: ctx.Query("campaign", ""),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		ctx.Logger.Error("Failed to fetch tracks", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch tracks"})
	}

	items := make([]TrackItem, len(result))
	for i, track := range result {
		items[i] = TrackItem{
			TrackedAt:      track.TrackedAt,
			URL:            track.URL,
			VisitorID:      track.VisitorID,
			VisitNumber:    track.VisitNumber,
			SessionID:      track.SessionID,
			ViewNumber:     track.ViewNumber,
			Duration:       track.Duration,
			CampaignName:   track.CampaignName,
			CampaignSource: track.CampaignSource,
			CampaignMedium: track.CampaignMedium,
		}
	}

	totalPages := (int(total) + limit - 1) / limit

	return ctx.JSON(TracksResponse{
		Tracks: items,
		Pagination: PaginationData{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalItems:  total,
			PerPage:     limit,
		},
	})
}
