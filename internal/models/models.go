// Package models holds the core data model (spec §3): libraries, movies,
// the four content-addressed cache-file kinds and their ephemeral
// library-file mirrors, unknown files, provider asset catalog rows, and the
// job queue tables. TV/music are modeled only enough to exercise the
// polymorphic entity-type tag (SPEC_FULL §3) — they are secondary.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/JustinTDCT/cinevault-core/internal/fieldlock"
)

// ──────────────────── Enums ────────────────────

type LibraryKind string

const (
	LibraryMovie LibraryKind = "movie"
	LibraryTV    LibraryKind = "tv"
	LibraryMusic LibraryKind = "music"
)

// EntityType is the discriminator for polymorphic cache/library/unknown-file
// associations (§9 design note: tagged variant over a bare string column).
type EntityType string

const (
	EntityMovie   EntityType = "movie"
	EntitySeries  EntityType = "series"
	EntitySeason  EntityType = "season"
	EntityEpisode EntityType = "episode"
	EntityArtist  EntityType = "artist"
	EntityAlbum   EntityType = "album"
	EntityTrack   EntityType = "track"
)

// Slot names a per-entity asset role (GLOSSARY).
type Slot string

const (
	SlotPoster    Slot = "poster"
	SlotFanart    Slot = "fanart"
	SlotBanner    Slot = "banner"
	SlotClearlogo Slot = "clearlogo"
	SlotClearart  Slot = "clearart"
	SlotDiscart   Slot = "discart"
	SlotLandscape Slot = "landscape"
	SlotThumb     Slot = "thumb"
	SlotKeyart    Slot = "keyart"
	SlotTrailer   Slot = "trailer"
	SlotSubtitle  Slot = "subtitle"
	SlotTheme     Slot = "theme"
	SlotNFO       Slot = "nfo"
)

type IdentificationStatus string

const (
	StatusUnidentified IdentificationStatus = "unidentified"
	StatusIdentified   IdentificationStatus = "identified"
	StatusEnriched     IdentificationStatus = "enriched"
	StatusPublished    IdentificationStatus = "published"
)

type AssetSource string

const (
	SourceProvider AssetSource = "provider"
	SourceLocal    AssetSource = "local"
	SourceUser     AssetSource = "user"
)

type TextKind string

const (
	TextKindNFO      TextKind = "nfo"
	TextKindSubtitle TextKind = "subtitle"
)

type AudioKind string

const (
	AudioKindTheme   AudioKind = "theme"
	AudioKindUnknown AudioKind = "unknown"
)

type UnknownCategory string

const (
	UnknownVideo   UnknownCategory = "video"
	UnknownImage   UnknownCategory = "image"
	UnknownArchive UnknownCategory = "archive"
	UnknownText    UnknownCategory = "text"
	UnknownOther   UnknownCategory = "other"
)

// JobStatus is the job queue's finite state set (§4.6).
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobRetrying   JobStatus = "retrying"
)

// ──────────────────── Library ────────────────────

type Library struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	Name         string      `json:"name" db:"name"`
	RootPath     string      `json:"root_path" db:"root_path"`
	Kind         LibraryKind `json:"kind" db:"kind"`
	Enabled      bool        `json:"enabled" db:"enabled"`
	AutoEnrich   bool        `json:"auto_enrich" db:"auto_enrich"`
	AutoPublish  bool        `json:"auto_publish" db:"auto_publish"`
	ScanInterval string      `json:"scan_interval" db:"scan_interval"` // cron spec, e.g. "0 */6 * * *"
	LastScanAt   *time.Time  `json:"last_scan_at,omitempty" db:"last_scan_at"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Movie ────────────────────

type Movie struct {
	ID        uuid.UUID `json:"id" db:"id"`
	LibraryID uuid.UUID `json:"library_id" db:"library_id"`

	FilePath string  `json:"file_path" db:"file_path"`
	FileName string  `json:"file_name" db:"file_name"`
	FileSize int64   `json:"file_size" db:"file_size"`
	FileHash *string `json:"file_hash,omitempty" db:"file_hash"`

	TMDBID *int    `json:"tmdb_id,omitempty" db:"tmdb_id"`
	IMDBID *string `json:"imdb_id,omitempty" db:"imdb_id"`

	Title         string  `json:"title" db:"title"`
	OriginalTitle *string `json:"original_title,omitempty" db:"original_title"`
	SortTitle     *string `json:"sort_title,omitempty" db:"sort_title"`
	Tagline       *string `json:"tagline,omitempty" db:"tagline"`
	Plot          *string `json:"plot,omitempty" db:"plot"`
	Outline       *string `json:"outline,omitempty" db:"outline"`

	RuntimeMinutes *int       `json:"runtime_minutes,omitempty" db:"runtime_minutes"`
	Year           *int       `json:"year,omitempty" db:"year"`
	ReleaseDate    *time.Time `json:"release_date,omitempty" db:"release_date"`
	ContentRating  *string    `json:"content_rating,omitempty" db:"content_rating"`

	ProviderRatingsJSON *string  `json:"provider_ratings_json,omitempty" db:"provider_ratings_json"`
	UserRating          *float64 `json:"user_rating,omitempty" db:"user_rating"`

	Monitored            bool                 `json:"monitored" db:"monitored"`
	IdentificationStatus IdentificationStatus `json:"identification_status" db:"identification_status"`
	EnrichmentPriority   int                  `json:"enrichment_priority" db:"enrichment_priority"` // 1 (highest) .. 10
	EnrichedAt           *time.Time           `json:"enriched_at,omitempty" db:"enriched_at"`
	PublishedAt          *time.Time           `json:"published_at,omitempty" db:"published_at"`

	// Filename-derived technical tags (SPEC_FULL §3, supplemented from the teacher's ParsedFilename)
	SourceType   *string `json:"source_type,omitempty" db:"source_type"`
	HDRFormat    *string `json:"hdr_format,omitempty" db:"hdr_format"`
	DynamicRange string  `json:"dynamic_range" db:"dynamic_range"`

	// Field locks (§4.8): holds field/slot names; "*" locks everything.
	LockedFields pq.StringArray `json:"locked_fields" db:"locked_fields"`

	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsFieldLocked reports whether field is present in LockedFields, or "*" is.
func (m *Movie) IsFieldLocked(field string) bool {
	return fieldlock.IsLocked([]string(m.LockedFields), field)
}

// IsDeleted reports whether the movie is currently soft-deleted (I6: deleted_at
// lies strictly in the future until it becomes eligible for hard delete).
func (m *Movie) IsDeleted() bool {
	return m.DeletedAt != nil
}

// ──────────────────── Secondary entities (TV/music, simplified) ────────────────────

type Series struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	LibraryID uuid.UUID  `json:"library_id" db:"library_id"`
	Title     string     `json:"title" db:"title"`
	TMDBID    *int       `json:"tmdb_id,omitempty" db:"tmdb_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

type Season struct {
	ID           uuid.UUID `json:"id" db:"id"`
	SeriesID     uuid.UUID `json:"series_id" db:"series_id"`
	SeasonNumber int       `json:"season_number" db:"season_number"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Episode struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	SeasonID      uuid.UUID  `json:"season_id" db:"season_id"`
	EpisodeNumber int        `json:"episode_number" db:"episode_number"`
	FilePath      string     `json:"file_path" db:"file_path"`
	Title         string     `json:"title" db:"title"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

type Artist struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	LibraryID uuid.UUID  `json:"library_id" db:"library_id"`
	Name      string     `json:"name" db:"name"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

type Album struct {
	ID       uuid.UUID `json:"id" db:"id"`
	ArtistID uuid.UUID `json:"artist_id" db:"artist_id"`
	Title    string    `json:"title" db:"title"`
}

type Track struct {
	ID       uuid.UUID `json:"id" db:"id"`
	AlbumID  uuid.UUID `json:"album_id" db:"album_id"`
	FilePath string    `json:"file_path" db:"file_path"`
	Title    string    `json:"title" db:"title"`
}

// ──────────────────── Cache files (content-addressed, permanent) ────────────────────

// CacheFileCommon is the shape shared by all four cache-kind tables (§3).
type CacheFileCommon struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	EntityType EntityType `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID  `json:"entity_id" db:"entity_id"`
	Slot       Slot       `json:"slot" db:"slot"`

	FilePath string `json:"file_path" db:"file_path"`
	FileName string `json:"file_name" db:"file_name"`
	Size     int64  `json:"size" db:"size"`
	Hash     string `json:"hash" db:"hash"` // sha256 hex, content address

	Source               AssetSource `json:"source" db:"source"`
	SourceURL            *string     `json:"source_url,omitempty" db:"source_url"`
	ProviderName         *string     `json:"provider_name,omitempty" db:"provider_name"`
	ClassificationScore  int         `json:"classification_score" db:"classification_score"`
	Locked               bool        `json:"locked" db:"locked"`

	RefCount       int       `json:"ref_count" db:"ref_count"`
	DiscoveredAt   time.Time `json:"discovered_at" db:"discovered_at"`
	LastAccessedAt time.Time `json:"last_accessed_at" db:"last_accessed_at"`
}

type CacheImageFile struct {
	CacheFileCommon
	Width          int     `json:"width" db:"width"`
	Height         int     `json:"height" db:"height"`
	Format         string  `json:"format" db:"format"`
	PerceptualHash *string `json:"perceptual_hash,omitempty" db:"perceptual_hash"`
}

type CacheVideoFile struct {
	CacheFileCommon
	Codec           *string `json:"codec,omitempty" db:"codec"`
	DurationSeconds int     `json:"duration_seconds" db:"duration_seconds"`
	Bitrate         int64   `json:"bitrate" db:"bitrate"`
	HDRFormat       *string `json:"hdr_format,omitempty" db:"hdr_format"`
	AudioSummary    *string `json:"audio_summary,omitempty" db:"audio_summary"`
	QuickHash       *string `json:"quick_hash,omitempty" db:"quick_hash"` // xxhash(head‖tail‖size), §4.1
}

type CacheAudioFile struct {
	CacheFileCommon
	AudioKind AudioKind `json:"audio_kind" db:"audio_kind"`
}

type CacheTextFile struct {
	CacheFileCommon
	TextKind         TextKind `json:"text_kind" db:"text_kind"`
	SubtitleLanguage *string  `json:"subtitle_language,omitempty" db:"subtitle_language"`
	NFOValid         *bool    `json:"nfo_valid,omitempty" db:"nfo_valid"`
}

// ──────────────────── Library files (ephemeral) ────────────────────

type LibraryFileCommon struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CacheFileID uuid.UUID `json:"cache_file_id" db:"cache_file_id"`
	FilePath    string    `json:"file_path" db:"file_path"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
}

type LibraryImageFile struct{ LibraryFileCommon }
type LibraryVideoFile struct{ LibraryFileCommon }
type LibraryAudioFile struct{ LibraryFileCommon }
type LibraryTextFile struct{ LibraryFileCommon }

// ──────────────────── Unknown files ────────────────────

type UnknownFile struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	EntityType   EntityType      `json:"entity_type" db:"entity_type"`
	EntityID     uuid.UUID       `json:"entity_id" db:"entity_id"`
	FilePath     string          `json:"file_path" db:"file_path"`
	Name         string          `json:"name" db:"name"`
	Size         int64           `json:"size" db:"size"`
	Extension    string          `json:"extension" db:"extension"`
	Category     UnknownCategory `json:"category" db:"category"`
	DiscoveredAt time.Time       `json:"discovered_at" db:"discovered_at"`
}

// ──────────────────── Provider asset catalog ────────────────────

type ProviderAsset struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	EntityType   EntityType `json:"entity_type" db:"entity_type"`
	EntityID     uuid.UUID  `json:"entity_id" db:"entity_id"`
	AssetType    Slot       `json:"asset_type" db:"asset_type"`
	ProviderName string     `json:"provider_name" db:"provider_name"`
	ProviderURL  string     `json:"provider_url" db:"provider_url"`

	Analyzed        bool    `json:"analyzed" db:"analyzed"`
	Width           *int    `json:"width,omitempty" db:"width"`
	Height          *int    `json:"height,omitempty" db:"height"`
	DurationSeconds *int    `json:"duration_seconds,omitempty" db:"duration_seconds"`
	ContentHash     *string `json:"content_hash,omitempty" db:"content_hash"`
	PerceptualHash  *string `json:"perceptual_hash,omitempty" db:"perceptual_hash"`

	Score      int  `json:"score" db:"score"`
	Selected   bool `json:"selected" db:"selected"`
	Rejected   bool `json:"rejected" db:"rejected"`
	Downloaded bool `json:"downloaded" db:"downloaded"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Job queue ────────────────────

type Job struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Type        string     `json:"type" db:"type"`
	Priority    int        `json:"priority" db:"priority"` // 1 (highest) .. 10 (lowest)
	Status      JobStatus  `json:"status" db:"status"`
	Payload     []byte     `json:"payload" db:"payload"`
	Result      []byte     `json:"result,omitempty" db:"result"`
	Error       *string    `json:"error,omitempty" db:"error"`
	RetryCount  int        `json:"retry_count" db:"retry_count"`
	MaxRetries  int        `json:"max_retries" db:"max_retries"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty" db:"next_retry_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Manual      bool       `json:"manual" db:"manual"`
	WorkerID    *string    `json:"worker_id,omitempty" db:"worker_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type JobDependency struct {
	JobID          uuid.UUID `json:"job_id" db:"job_id"`
	DependsOnJobID uuid.UUID `json:"depends_on_job_id" db:"depends_on_job_id"`
}

// ──────────────────── Auxiliary (§3, §6) ────────────────────

type WebhookEvent struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Source     string     `json:"source" db:"source"` // radarr|sonarr|lidarr
	EventType  string     `json:"event_type" db:"event_type"`
	Payload    []byte     `json:"payload" db:"payload"`
	JobID      *uuid.UUID `json:"job_id,omitempty" db:"job_id"`
	ReceivedAt time.Time  `json:"received_at" db:"received_at"`
}

type ActivityLogEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Kind      string    `json:"kind" db:"kind"`
	Message   string    `json:"message" db:"message"`
	Context   []byte    `json:"context,omitempty" db:"context"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type NotificationConfig struct {
	ID      uuid.UUID `json:"id" db:"id"`
	Kind    string    `json:"kind" db:"kind"`
	Target  string    `json:"target" db:"target"`
	Enabled bool      `json:"enabled" db:"enabled"`
}

type ProviderConfig struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	APIKey          *string   `json:"api_key,omitempty" db:"api_key"`
	Priority        int       `json:"priority" db:"priority"`
	RateLimitPerMin int       `json:"rate_limit_per_min" db:"rate_limit_per_min"`
	Enabled         bool      `json:"enabled" db:"enabled"`
}

type AppSetting struct {
	Key   string `json:"key" db:"key"`
	Value string `json:"value" db:"value"`
}

type IgnorePattern struct {
	ID      uuid.UUID `json:"id" db:"id"`
	Pattern string    `json:"pattern" db:"pattern"`
	IsGlob  bool      `json:"is_glob" db:"is_glob"`
}

type MediaPlayerGroup struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}

type MediaPlayer struct {
	ID      uuid.UUID `json:"id" db:"id"`
	GroupID uuid.UUID `json:"group_id" db:"group_id"`
	Name    string    `json:"name" db:"name"`
	BaseURL string    `json:"base_url" db:"base_url"`
	APIKey  *string   `json:"api_key,omitempty" db:"api_key"`
}

type PlayerPathMapping struct {
	ID         uuid.UUID `json:"id" db:"id"`
	PlayerID   uuid.UUID `json:"player_id" db:"player_id"`
	LocalPath  string    `json:"local_path" db:"local_path"`
	RemotePath string    `json:"remote_path" db:"remote_path"`
}

type PlaybackState struct {
	ID          uuid.UUID `json:"id" db:"id"`
	MediaItemID uuid.UUID `json:"media_item_id" db:"media_item_id"`
	PositionSec int       `json:"position_sec" db:"position_sec"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
