package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// Config holds settings recognised at startup (§6). Settings that may be
// overridden per-install live in the app_settings table and are merged in
// via MergeFromDB once the database is up.
type Config struct {
	DatabaseURL string
	DataDir     string // root for cache/ and any generated artifacts
	CacheDir    string // {DataDir}/cache, sharded per §6 on-disk layout

	FFmpegPath  string
	FFprobePath string

	WorkerCount    int
	WorkerInterval time.Duration

	TMDBBaseURL string
	TMDBAPIKey  string

	PhaseEnrichmentFetchProviderAssets bool
	PhaseEnrichmentAutoSelectAssets    bool
	PhaseEnrichmentLanguage            string
	PhasePublishAssets                 bool
	PhasePublishActors                 bool
	PhasePublishTrailers               bool
	PhaseGeneralAutoPublish            bool

	RecycleBinRetentionDays         int
	RecycleBinUnknownFilesAutoRecycle bool
}

func Load() *Config {
	return &Config{
		DatabaseURL:    env("DATABASE_URL", "postgres://cinevault:cinevault@db:5432/cinevault?sslmode=disable"),
		DataDir:        env("DATA_DIR", "/data"),
		CacheDir:       env("CACHE_DIR", "/data/cache"),
		FFmpegPath:     env("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:    env("FFPROBE_PATH", "ffprobe"),
		WorkerCount:    envInt("WORKER_COUNT", 4),
		WorkerInterval: time.Duration(envInt("WORKER_INTERVAL_SECONDS", 5)) * time.Second,
		TMDBBaseURL:    env("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBAPIKey:     env("TMDB_API_KEY", ""),

		PhaseEnrichmentFetchProviderAssets: true,
		PhaseEnrichmentAutoSelectAssets:    true,
		PhaseEnrichmentLanguage:            "en",
		PhasePublishAssets:                 true,
		PhasePublishActors:                 true,
		PhasePublishTrailers:               false,
		PhaseGeneralAutoPublish:            false,

		RecycleBinRetentionDays:            30,
		RecycleBinUnknownFilesAutoRecycle:  false,
	}
}

// MergeFromDB overrides defaults with rows from app_settings, using
// github.com/spf13/cast to coerce the stored string values to the field's
// native type instead of a per-key strconv branch (SPEC_FULL §1).
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM app_settings")
	if err != nil {
		log.Printf("config: skipping app_settings merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "phase.enrichment.fetchProviderAssets":
			c.PhaseEnrichmentFetchProviderAssets = cast.ToBool(value)
		case "phase.enrichment.autoSelectAssets":
			c.PhaseEnrichmentAutoSelectAssets = cast.ToBool(value)
		case "phase.enrichment.language":
			c.PhaseEnrichmentLanguage = value
		case "phase.publish.assets":
			c.PhasePublishAssets = cast.ToBool(value)
		case "phase.publish.actors":
			c.PhasePublishActors = cast.ToBool(value)
		case "phase.publish.trailers":
			c.PhasePublishTrailers = cast.ToBool(value)
		case "phase.general.autoPublish":
			c.PhaseGeneralAutoPublish = cast.ToBool(value)
		case "recycle_bin.retention_days":
			c.RecycleBinRetentionDays = cast.ToInt(value)
		case "recycle_bin.unknown_files_auto_recycle":
			c.RecycleBinUnknownFilesAutoRecycle = cast.ToBool(value)
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
