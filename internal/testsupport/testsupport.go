package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trackway/internal"
	"trackway/internal/config"
	"trackway/internal/sites"
	"trackway/internal/tracks"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with trackway's interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// allModels returns all trackway models for migration
func allModels() []any {
	return []any{
		&cache.CacheRecord{},
		&sites.Site{},
		&tracks.Track{},
	}
}

// SetupTestDB creates a test database with all trackway models migrated.
// Uses a named in-memory database with cache=shared so multiple connections
// within a test share the same database. Caches the database by root test
// name because setup closures capture the outer t while t.Run has subtest t.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()

	// SAFETY CHECK: Ensure we're in test environment
	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set TRACKWAY_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	logger := GetLogger()
	dbManager := NewTestDBManager(db)

	return dbManager, logger
}

// SetupTestDBManagerWithSite creates a test database manager with a test site
func SetupTestDBManagerWithSite(t *testing.T, domain string) (*TestDBManager, *slog.Logger, sites.Site) {
	dbManager, logger := SetupTestDBManager(t)
	site := CreateTestSite(t, dbManager.GetConnection(), domain)
	return dbManager, logger, site
}

// CleanTables cleans specific tables or all non-system tables if none specified
func CleanTables(db *gorm.DB, tables []string) {
	if len(tables) == 0 {
		var tableNames []string
		db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)
		tables = tableNames
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// CreateTestSite creates a test site in the database
func CreateTestSite(t *testing.T, db *gorm.DB, domain string) sites.Site {
	t.Helper()

	var site sites.Site
	if db.Where("domain = ?", domain).First(&site).Error == nil {
		return site
	}

	site = sites.Site{
		Domain:       domain,
		TrackingCode: "tc-" + strings.ReplaceAll(domain, ".", "-"),
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.Create(&site).Error)
	return site
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// VisitorToken encodes the compound visitor cookie string the tracker sends.
func VisitorToken(visitorID string, visitNumber int, sessionAt time.Time, previousSessionAt *time.Time) string {
	token := visitorID + "." + strconv.Itoa(visitNumber) + "." + strconv.FormatInt(sessionAt.Unix(), 10)
	if previousSessionAt != nil {
		token += "." + strconv.FormatInt(previousSessionAt.Unix(), 10)
	}
	return token
}

// SessionToken encodes the compound session cookie string the tracker sends.
func SessionToken(sessionID string, viewNumber int) string {
	return sessionID + "." + strconv.Itoa(viewNumber)
}

// TrackOptions tweaks the defaults of NewTrack.
type TrackOptions struct {
	VisitNumber       int
	ViewNumber        int
	PreviousSessionAt *time.Time
	Duration          *int
	CampaignName      string
	CampaignSource    string
	CampaignMedium    string
}

// NewTrack builds an in-memory track row for metric scope tests.
func NewTrack(siteID uint, visitorID, sessionID, url string, trackedAt time.Time, opts TrackOptions) tracks.Track {
	visitNumber := opts.VisitNumber
	if visitNumber == 0 {
		visitNumber = 1
	}
	viewNumber := opts.ViewNumber
	if viewNumber == 0 {
		viewNumber = 1
	}
	return tracks.Track{
		SiteID:            siteID,
		VisitorID:         visitorID,
		VisitNumber:       visitNumber,
		PreviousSessionAt: opts.PreviousSessionAt,
		SessionID:         sessionID,
		ViewNumber:        viewNumber,
		TrackedAt:         trackedAt,
		Duration:          opts.Duration,
		URL:               url,
		CampaignName:      opts.CampaignName,
		CampaignSource:    opts.CampaignSource,
		CampaignMedium:    opts.CampaignMedium,
	}
}

// CreateTestTrack persists a track through the ingestion path.
func CreateTestTrack(t *testing.T, dbManager cartridge.DBManager, logger *slog.Logger, siteID uint, visitorID, sessionID string, viewNumber int, trackedAt time.Time) *tracks.Track {
	t.Helper()

	track, err := tracks.CreateTrack(dbManager, logger, &tracks.CreateTrackInput{
		SiteID:       siteID,
		VisitorToken: VisitorToken(visitorID, 1, trackedAt, nil),
		SessionToken: SessionToken(sessionID, viewNumber),
		TrackedAt:    trackedAt,
		URL:          "https://example.com/page",
	})
	require.NoError(t, err)
	return track
}

// CreateMinimalTestApp creates a test Fiber app with all routes
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	dbManager := NewTestDBManager(db)
	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = dbManager

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(srv)
	return srv.App()
}
