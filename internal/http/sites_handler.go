package http

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"trackway/internal/sites"
	"trackway/internal/tracks"
)

type SiteResponse struct {
	ID           uint   `json:"id"`
	Domain       string `json:"domain"`
	TrackingCode string `json:"tracking_code"`
	TrackCount   int64  `json:"track_count"`
}

// SitesIndexAction lists all registered sites with their track counts.
func SitesIndexAction(ctx *cartridge.Context) error {
	db := ctx.DB()

	all, err := sites.GetAllSites(db)
	if err != nil {
		ctx.Logger.Error("Failed to fetch sites", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch sites"})
	}

	response := make([]SiteResponse, len(all))
	for i, site := range all {
		count, err := tracks.CountTracksForSite(db, site.ID)
		if err != nil {
			ctx.Logger.Error("Failed to count tracks",
				slog.Uint64("siteId", uint64(site.ID)), slog.Any("error", err))
			count = 0
		}
		response[i] = SiteResponse{
			ID:           site.ID,
			Domain:       site.Domain,
			TrackingCode: site.TrackingCode,
			TrackCount:   count,
		}
	}

	return ctx.JSON(fiber.Map{"sites": response})
}

type CreateSiteParams struct {
	Domain       string `json:"domain"`
	TrackingCode string `json:"tracking_code"`
}

// SitesCreateAction registers a new site. The tracking code is generated when
// the request does not provide one.
func SitesCreateAction(ctx *cartridge.Context) error {
	var params CreateSiteParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidSiteRequest})
	}

	params.Domain = strings.ToLower(strings.TrimSpace(params.Domain))
	if params.Domain == "" {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Domain is required"})
	}
	if params.TrackingCode == "" {
		params.TrackingCode = generateTrackingCode()
	}

	site := &sites.Site{Domain: params.Domain, TrackingCode: params.TrackingCode}
	if err := sites.CreateSite(ctx.DB(), site); err != nil {
		ctx.Logger.Error("Failed to create site", slog.String("domain", params.Domain), slog.Any("error", err))
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ctx.Status(http.StatusConflict).JSON(fiber.Map{"error": "Domain or tracking code already registered"})
		}
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create site"})
	}

	ctx.Logger.Info("Created site", slog.String("domain", site.Domain), slog.Uint64("id", uint64(site.ID)))
	return ctx.Status(http.StatusCreated).JSON(SiteResponse{
		ID:           site.ID,
		Domain:       site.Domain,
		TrackingCode: site.TrackingCode,
	})
}

// SitesDeleteAction removes a site and all its tracks.
func SitesDeleteAction(ctx *cartridge.Context) error {
	siteID, err := ctx.ParamsInt("id")
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid site ID"})
	}

	db := ctx.DB()
	site, err := sites.GetSiteByID(db, uint(siteID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Site not found"})
		}
		ctx.Logger.Error("Failed to load site", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load site"})
	}

	if err := tracks.DeleteTracksForSite(db, site.ID); err != nil {
		ctx.Logger.Error("Failed to delete site tracks", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete site"})
	}
	if err := sites.DeleteSite(db, site.ID); err != nil {
		ctx.Logger.Error("Failed to delete site", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete site"})
	}

	ctx.Logger.Info("Deleted site", slog.String("domain", site.Domain))
	return ctx.SendStatus(http.StatusNoContent)
}

const errInvalidSiteRequest = "Invalid request"

func generateTrackingCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
