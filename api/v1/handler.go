package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"trackway/internal/pkg/clientip"
	"trackway/internal/pkg/useragent"
	"trackway/internal/sites"
	"trackway/internal/tracks"
)

const (
	msgTrackAdded     = "Track added successfully"
	errInvalidRequest = "Invalid request"
)

type CreateTrackParams struct {
	TrackingCode   string    `json:"trackingCode"`
	Identifier     string    `json:"identifier"`
	SessionKey     string    `json:"sessionKey"`
	URL            string    `json:"url"`
	Timestamp      time.Time `json:"timestamp"`
	Duration       *int      `json:"duration"`
	Outbound       bool      `json:"outbound"`
	CampaignName   string    `json:"campaignName"`
	CampaignSource string    `json:"campaignSource"`
	CampaignMedium string    `json:"campaignMedium"`
	UserAgent      string    `json:"userAgent"`
}

func CreateTrackPublicAPIHandler(ctx *cartridge.Context) error {
	ctx.Logger.Info("Received track request", slog.String("method", ctx.Method()), slog.String("path", ctx.Path()))

	userAgentHeader := ctx.Get("User-Agent")
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		userAgentHeader = forwardedUA
	}

	var params CreateTrackParams
	if err := ctx.BodyParser(&params); err != nil {
		ctx.Logger.Debug("Failed to parse track request", slog.Any("error", err))
		return handleError(ctx.Ctx, fiber.NewError(http.StatusBadRequest, errInvalidRequest))
	}
	if params.UserAgent != "" {
		userAgentHeader = params.UserAgent
	}

	if bot := useragent.DetectBot(userAgentHeader); bot != nil {
		ctx.Logger.Debug("Discarded bot traffic",
			slog.String("bot", bot.Name),
			slog.String("ip", clientip.FromRequest(ctx.Ctx)))
		return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
			"message": msgTrackAdded,
			"status":  http.StatusAccepted,
		})
	}

	input := &tracks.CreateTrackInput{
		TrackingCode:   params.TrackingCode,
		VisitorToken:   params.Identifier,
		SessionToken:   params.SessionKey,
		TrackedAt:      params.Timestamp,
		URL:            params.URL,
		Duration:       params.Duration,
		Outbound:       params.Outbound,
		CampaignName:   params.CampaignName,
		CampaignSource: params.CampaignSource,
		CampaignMedium: params.CampaignMedium,
	}

	if _, err := tracks.CreateTrack(ctx.DBManager, ctx.Logger, input); err != nil {
		return handleCreateTrackError(ctx, err)
	}

	ctx.Logger.Info("Collected track successfully")
	return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": msgTrackAdded,
		"status":  http.StatusAccepted,
	})
}

// CreateTrackBeaconHandler handles tracks sent via navigator.sendBeacon, which
// fires on page unload and carries the final visit duration. Beacon responses
// are never read by the browser, so it always replies 202.
func CreateTrackBeaconHandler(ctx *cartridge.Context) error {
	ctx.Logger.Info("Received beacon track request",
		slog.String("method", ctx.Method()),
		slog.String("path", ctx.Path()))

	// sendBeacon posts as text/plain, so parse the body manually
	var params CreateTrackParams
	if err := json.Unmarshal(ctx.Body(), &params); err != nil {
		ctx.Logger.Debug("Failed to parse beacon request", slog.Any("error", err))
		return ctx.SendStatus(http.StatusAccepted)
	}

	userAgentHeader := ctx.Get("User-Agent")
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		userAgentHeader = forwardedUA
	}
	if params.UserAgent != "" {
		userAgentHeader = params.UserAgent
	}
	if useragent.IsBot(userAgentHeader) {
		return ctx.SendStatus(http.StatusAccepted)
	}

	input := &tracks.CreateTrackInput{
		TrackingCode:   params.TrackingCode,
		VisitorToken:   params.Identifier,
		SessionToken:   params.SessionKey,
		TrackedAt:      params.Timestamp,
		URL:            params.URL,
		Duration:       params.Duration,
		Outbound:       params.Outbound,
		CampaignName:   params.CampaignName,
		CampaignSource: params.CampaignSource,
		CampaignMedium: params.CampaignMedium,
	}

	if _, err := tracks.CreateTrack(ctx.DBManager, ctx.Logger, input); err != nil {
		ctx.Logger.Error("Failed to collect beacon track", slog.Any("error", err))
		return ctx.SendStatus(http.StatusAccepted)
	}

	ctx.Logger.Info("Collected beacon track successfully")
	return ctx.SendStatus(http.StatusAccepted)
}

func handleCreateTrackError(ctx *cartridge.Context, err error) error {
	ctx.Logger.Error("Failed to collect track", slog.Any("error", err))

	if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "busy") {
		return ctx.Status(599).JSON(fiber.Map{}) // custom status code
	}

	if errors.Is(err, tracks.ErrMalformedIdentifier) {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Malformed visitor or session identifier",
			"code":  "MALFORMED_IDENTIFIER",
		})
	}

	var siteNotFoundErr *sites.SiteNotFoundError
	if errors.As(err, &siteNotFoundErr) {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Site not found - please register your domain first",
			"code":  "UNKNOWN_SITE",
		})
	}

	var duplicateErr *tracks.DuplicateTrackError
	if errors.As(err, &duplicateErr) {
		return ctx.Status(http.StatusConflict).JSON(fiber.Map{
			"error": "Track already recorded for this session view",
			"code":  "DUPLICATE_TRACK",
		})
	}

	return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to collect track",
		"code":  "COLLECTION_ERROR",
	})
}

func handleError(c *fiber.Ctx, err error) error {
	if fiberErr, ok := err.(*fiber.Error); ok {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
		})
	}

	return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
		"error": errInvalidRequest,
	})
}
