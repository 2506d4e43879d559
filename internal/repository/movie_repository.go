package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/fieldlock"
	"github.com/JustinTDCT/cinevault-core/internal/models"
)

// lockedFields adapts a raw locked_fields slice to fieldlock.Locker so
// ApplyPatch can reuse the same policy models.Movie.IsFieldLocked applies,
// without needing a full *models.Movie in hand.
type lockedFields []string

func (f lockedFields) IsFieldLocked(field string) bool {
	return fieldlock.IsLocked([]string(f), field)
}

// MovieRepository is the storage layer for the movie aggregate (§3, §4.1,
// §4.4). Replaces the teacher's MediaRepository (which spanned every media
// kind plus a dozen out-of-scope concerns); this file owns only the movie
// table, matching the simplified single-aggregate model.
type MovieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

const movieColumns = `id, library_id, file_path, file_name, file_size, file_hash,
	tmdb_id, imdb_id, title, original_title, sort_title, tagline, plot, outline,
	runtime_minutes, year, release_date, content_rating, provider_ratings_json, user_rating,
	monitored, identification_status, enrichment_priority, enriched_at, published_at,
	source_type, hdr_format, dynamic_range, locked_fields, deleted_at, created_at, updated_at`

func scanMovie(row rowScanner) (*models.Movie, error) {
	m := &models.Movie{}
	err := row.Scan(
		&m.ID, &m.LibraryID, &m.FilePath, &m.FileName, &m.FileSize, &m.FileHash,
		&m.TMDBID, &m.IMDBID, &m.Title, &m.OriginalTitle, &m.SortTitle, &m.Tagline, &m.Plot, &m.Outline,
		&m.RuntimeMinutes, &m.Year, &m.ReleaseDate, &m.ContentRating, &m.ProviderRatingsJSON, &m.UserRating,
		&m.Monitored, &m.IdentificationStatus, &m.EnrichmentPriority, &m.EnrichedAt, &m.PublishedAt,
		&m.SourceType, &m.HDRFormat, &m.DynamicRange, &m.LockedFields, &m.DeletedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

// Create inserts a newly-discovered movie row (§4.1: emitted by the
// directory scanner once a directory clears the processing-decision gate).
func (r *MovieRepository) Create(m *models.Movie) error {
	m.ID = uuid.New()
	if m.IdentificationStatus == "" {
		m.IdentificationStatus = models.StatusUnidentified
	}
	if m.DynamicRange == "" {
		m.DynamicRange = "SDR"
	}
	_, err := r.db.Exec(
		`INSERT INTO movies (id, library_id, file_path, file_name, file_size, file_hash,
		  tmdb_id, imdb_id, title, original_title, sort_title, tagline, plot, outline,
		  runtime_minutes, year, release_date, content_rating,
		  monitored, identification_status, enrichment_priority,
		  source_type, hdr_format, dynamic_range)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
		m.ID, m.LibraryID, m.FilePath, m.FileName, m.FileSize, m.FileHash,
		m.TMDBID, m.IMDBID, m.Title, m.OriginalTitle, m.SortTitle, m.Tagline, m.Plot, m.Outline,
		m.RuntimeMinutes, m.Year, m.ReleaseDate, m.ContentRating,
		m.Monitored, m.IdentificationStatus, m.EnrichmentPriority,
		m.SourceType, m.HDRFormat, m.DynamicRange,
	)
	if err != nil {
		return corerr.Transient("insert movie", err)
	}
	return nil
}

// GetByID returns a movie by id, including soft-deleted rows, so callers
// like restore() can still find them (I6).
func (r *MovieRepository) GetByID(id uuid.UUID) (*models.Movie, error) {
	row := r.db.QueryRow(`SELECT `+movieColumns+` FROM movies WHERE id = $1`, id)
	m, err := scanMovie(row)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound(fmt.Sprintf("movie %s", id))
	}
	if err != nil {
		return nil, corerr.Transient("get movie", err)
	}
	return m, nil
}

func (r *MovieRepository) GetByFilePath(filePath string) (*models.Movie, error) {
	row := r.db.QueryRow(`SELECT `+movieColumns+` FROM movies WHERE file_path = $1`, filePath)
	m, err := scanMovie(row)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound(fmt.Sprintf("movie at %s", filePath))
	}
	if err != nil {
		return nil, corerr.Transient("get movie by file path", err)
	}
	return m, nil
}

// FindByFileHash backs duplicate/edition detection (SPEC_FULL supplemented
// feature): movies whose full content hash matches, excluding the movie
// making the check.
func (r *MovieRepository) FindByFileHash(hash string, excludeID uuid.UUID) ([]*models.Movie, error) {
	rows, err := r.db.Query(
		`SELECT `+movieColumns+` FROM movies WHERE file_hash = $1 AND id <> $2 AND deleted_at IS NULL`,
		hash, excludeID,
	)
	if err != nil {
		return nil, corerr.Transient("find movie by file hash", err)
	}
	defer rows.Close()
	return scanMovies(rows)
}

// MovieFilter narrows ListByLibrary (§6: REST is out of scope, but the job
// handlers and WS resync path need filtered listing all the same).
type MovieFilter struct {
	Status    models.IdentificationStatus
	Monitored *bool
}

// ListByLibrary returns non-deleted movies for libraryID, newest first.
func (r *MovieRepository) ListByLibrary(libraryID uuid.UUID, f *MovieFilter, limit, offset int) ([]*models.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE library_id = $1 AND deleted_at IS NULL`
	args := []any{libraryID}
	if f != nil {
		if f.Status != "" {
			args = append(args, f.Status)
			query += fmt.Sprintf(" AND identification_status = $%d", len(args))
		}
		if f.Monitored != nil {
			args = append(args, *f.Monitored)
			query += fmt.Sprintf(" AND monitored = $%d", len(args))
		}
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, corerr.Transient("list movies by library", err)
	}
	defer rows.Close()
	return scanMovies(rows)
}

// ListNeedingEnrichment returns identified-but-not-enriched movies ordered
// by enrichment_priority (§4.1: "1 highest .. 10 lowest"), used by the
// enrich-metadata job's candidate selection.
func (r *MovieRepository) ListNeedingEnrichment(libraryID uuid.UUID, limit int) ([]*models.Movie, error) {
	rows, err := r.db.Query(
		`SELECT `+movieColumns+` FROM movies
		 WHERE library_id = $1 AND deleted_at IS NULL AND monitored = true
		   AND identification_status = $2
		 ORDER BY enrichment_priority ASC, created_at ASC LIMIT $3`,
		libraryID, models.StatusIdentified, limit,
	)
	if err != nil {
		return nil, corerr.Transient("list movies needing enrichment", err)
	}
	defer rows.Close()
	return scanMovies(rows)
}

// ListReadyToPublish returns enriched-but-not-published monitored movies
// in libraryID, for the publish job's candidate selection. The library's
// auto_publish flag is not checked here.
func (r *MovieRepository) ListReadyToPublish(libraryID uuid.UUID, limit int) ([]*models.Movie, error) {
	rows, err := r.db.Query(
		`SELECT `+movieColumns+` FROM movies
		 WHERE library_id = $1 AND deleted_at IS NULL AND monitored = true
		   AND identification_status = $2
		 ORDER BY enrichment_priority ASC, created_at ASC LIMIT $3`,
		libraryID, models.StatusEnriched, limit,
	)
	if err != nil {
		return nil, corerr.Transient("list movies ready to publish", err)
	}
	defer rows.Close()
	return scanMovies(rows)
}

func scanMovies(rows *sql.Rows) ([]*models.Movie, error) {
	var out []*models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, corerr.Transient("scan movie", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// MoviePatch is the typed field-set described in §9's design note ("represent
// field sets as a typed patch ... let the repository translate to
// parameterised SQL safely"): every pointer left nil is left untouched.
type MoviePatch struct {
	Title               *string
	OriginalTitle        *string
	SortTitle            *string
	Tagline              *string
	Plot                 *string
	Outline              *string
	RuntimeMinutes       *int
	Year                 *int
	ReleaseDate          *time.Time
	ContentRating        *string
	ProviderRatingsJSON  *string
	UserRating           *float64
	TMDBID               *int
	IMDBID               *string
	IdentificationStatus *models.IdentificationStatus
	EnrichedAt           *time.Time
	PublishedAt          *time.Time
	SourceType           *string
	HDRFormat            *string
	DynamicRange         *string
}

// fieldPatch pairs a movie field name (as used by fieldlock.CanAutomationWrite)
// with its pointer value and the column/arg it contributes when non-nil.
type fieldPatch struct {
	field string
	value any
	set   bool
}

// ApplyPatch updates only the non-nil fields of p, honouring field locks
// unless force is set (§4.8: "automation writes are gated by
// CanAutomationWrite(entity, field, force)"). Fields the caller attempted
// to set but which are locked are silently skipped, matching §4.8's
// "blocked writes are dropped, not queued" rule, and returned so callers
// can log/report them.
func (r *MovieRepository) ApplyPatch(id uuid.UUID, p *MoviePatch, locked []string, force bool) (skipped []string, err error) {
	candidates := []fieldPatch{
		{"title", p.Title, p.Title != nil},
		{"original_title", p.OriginalTitle, p.OriginalTitle != nil},
		{"sort_title", p.SortTitle, p.SortTitle != nil},
		{"tagline", p.Tagline, p.Tagline != nil},
		{"plot", p.Plot, p.Plot != nil},
		{"outline", p.Outline, p.Outline != nil},
		{"runtime_minutes", p.RuntimeMinutes, p.RuntimeMinutes != nil},
		{"year", p.Year, p.Year != nil},
		{"release_date", p.ReleaseDate, p.ReleaseDate != nil},
		{"content_rating", p.ContentRating, p.ContentRating != nil},
		{"provider_ratings_json", p.ProviderRatingsJSON, p.ProviderRatingsJSON != nil},
		{"user_rating", p.UserRating, p.UserRating != nil},
		{"tmdb_id", p.TMDBID, p.TMDBID != nil},
		{"imdb_id", p.IMDBID, p.IMDBID != nil},
		{"identification_status", p.IdentificationStatus, p.IdentificationStatus != nil},
		{"enriched_at", p.EnrichedAt, p.EnrichedAt != nil},
		{"published_at", p.PublishedAt, p.PublishedAt != nil},
		{"source_type", p.SourceType, p.SourceType != nil},
		{"hdr_format", p.HDRFormat, p.HDRFormat != nil},
		{"dynamic_range", p.DynamicRange, p.DynamicRange != nil},
	}

	var setClauses []string
	var args []any
	for _, c := range candidates {
		if !c.set {
			continue
		}
		if !fieldlock.CanAutomationWrite(lockedFields(locked), c.field, force) {
			skipped = append(skipped, c.field)
			continue
		}
		args = append(args, derefPatchValue(c.value))
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", c.field, len(args)))
	}

	if len(setClauses) == 0 {
		return skipped, nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE movies SET %s, updated_at = now() WHERE id = $%d",
		joinClauses(setClauses), len(args))
	if _, err := r.db.Exec(query, args...); err != nil {
		return skipped, corerr.Transient("apply movie patch", err)
	}
	return skipped, nil
}

func derefPatchValue(v any) any {
	switch x := v.(type) {
	case *string:
		return *x
	case *int:
		return *x
	case *float64:
		return *x
	case *time.Time:
		return *x
	case *models.IdentificationStatus:
		return *x
	default:
		return v
	}
}

func joinClauses(clauses []string) string {
	out := ""
	for i, c := range clauses {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

// SetLockedFields overwrites the locked_fields array directly, used after a
// user-initiated edit (fieldlock.LockedFieldsAfterUserWrite) or a lock reset
// (fieldlock.LockedFieldsAfterReset).
func (r *MovieRepository) SetLockedFields(id uuid.UUID, fields []string) error {
	_, err := r.db.Exec(
		`UPDATE movies SET locked_fields = $1, updated_at = now() WHERE id = $2`,
		pq.StringArray(fields), id,
	)
	if err != nil {
		return corerr.Transient("set movie locked fields", err)
	}
	return nil
}

// SoftDelete sets deleted_at to now()+retention (I6: "a soft-deleted movie
// remains restorable until deleted_at elapses"); the job handler computing
// retention owns the policy, this just persists the timestamp.
func (r *MovieRepository) SoftDelete(id uuid.UUID, deletedAt time.Time) error {
	_, err := r.db.Exec(`UPDATE movies SET deleted_at = $1, updated_at = now() WHERE id = $2`, deletedAt, id)
	if err != nil {
		return corerr.Transient("soft delete movie", err)
	}
	return nil
}

// Restore clears deleted_at (I6).
func (r *MovieRepository) Restore(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE movies SET deleted_at = NULL, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return corerr.Transient("restore movie", err)
	}
	return nil
}

// HardDelete removes a movie row outright; the purge_entity_cache() trigger
// cascades into every cache/library/unknown/provider-asset row (§9 design
// note on polymorphic cascade).
func (r *MovieRepository) HardDelete(id uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return corerr.Transient("hard delete movie", err)
	}
	return nil
}

// ListExpiredSoftDeletes returns soft-deleted movies past their retention
// window, for the cleanup job to hard-delete (I6).
func (r *MovieRepository) ListExpiredSoftDeletes(before time.Time) ([]*models.Movie, error) {
	rows, err := r.db.Query(
		`SELECT `+movieColumns+` FROM movies WHERE deleted_at IS NOT NULL AND deleted_at < $1`,
		before,
	)
	if err != nil {
		return nil, corerr.Transient("list expired soft deletes", err)
	}
	defer rows.Close()
	return scanMovies(rows)
}
