package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/models"
)

// CacheRepository is the database side of the content-addressed cache store
// (spec §4.3, component D) and its ephemeral library-file mirror (§4.5,
// component F): four typed kinds, reference counted, looked up by the
// dominant polymorphic query of §4.5 ("(entity_type, entity_id, slot,
// score desc, discovered_at desc) in a single range scan"). Grounded on
// the teacher's internal/scanner/local_artwork.go upsert pattern and
// internal/repository's one-file-per-aggregate layout.
type CacheRepository struct {
	db *sql.DB
}

func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// ──────────────────── Image ────────────────────

// InsertImage records a newly observed cache-image-file row with ref_count=1
// (§4.3: "incremented for each new (entity, slot) association").
func (r *CacheRepository) InsertImage(f *models.CacheImageFile) error {
	f.ID = uuid.New()
	_, err := r.db.Exec(
		`INSERT INTO cache_image_files
		 (id, entity_type, entity_id, slot, file_path, file_name, size, hash,
		  source, source_url, provider_name, classification_score, locked, ref_count,
		  width, height, format, perceptual_hash)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,1,$14,$15,$16,$17)`,
		f.ID, f.EntityType, f.EntityID, f.Slot, f.FilePath, f.FileName, f.Size, f.Hash,
		f.Source, f.SourceURL, f.ProviderName, f.ClassificationScore, f.Locked,
		f.Width, f.Height, f.Format, f.PerceptualHash,
	)
	if err != nil {
		return corerr.Transient("insert cache image file", err)
	}
	return nil
}

const imageColumns = `id, entity_type, entity_id, slot, file_path, file_name, size, hash,
	source, source_url, provider_name, classification_score, locked, ref_count,
	discovered_at, last_accessed_at, width, height, format, perceptual_hash`

func scanImage(row rowScanner) (*models.CacheImageFile, error) {
	f := &models.CacheImageFile{}
	err := row.Scan(&f.ID, &f.EntityType, &f.EntityID, &f.Slot, &f.FilePath, &f.FileName, &f.Size, &f.Hash,
		&f.Source, &f.SourceURL, &f.ProviderName, &f.ClassificationScore, &f.Locked, &f.RefCount,
		&f.DiscoveredAt, &f.LastAccessedAt, &f.Width, &f.Height, &f.Format, &f.PerceptualHash)
	return f, err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// FindImageByHash looks up a cache-image-file by its content hash (§4.3
// lookups "by hash"); two rows may share a hash only with equal byte
// content, so this is also the at-most-one-row-per-hash dedup check.
func (r *CacheRepository) FindImageByHash(entityType models.EntityType, entityID uuid.UUID, slot models.Slot, hash string) (*models.CacheImageFile, error) {
	row := r.db.QueryRow(
		`SELECT `+imageColumns+` FROM cache_image_files
		 WHERE entity_type=$1 AND entity_id=$2 AND slot=$3 AND hash=$4`,
		entityType, entityID, slot, hash,
	)
	f, err := scanImage(row)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound(fmt.Sprintf("cache image file hash=%s", hash))
	}
	if err != nil {
		return nil, corerr.Transient("find cache image by hash", err)
	}
	return f, nil
}

// ListImagesForEntity returns every image row for (entityType, entityID),
// ordered by the dominant polymorphic index (§4.5): classification_score
// desc, discovered_at desc. If slot is "", every slot is returned.
func (r *CacheRepository) ListImagesForEntity(entityType models.EntityType, entityID uuid.UUID, slot models.Slot) ([]*models.CacheImageFile, error) {
	query := `SELECT ` + imageColumns + ` FROM cache_image_files WHERE entity_type=$1 AND entity_id=$2`
	args := []any{entityType, entityID}
	if slot != "" {
		query += ` AND slot=$3`
		args = append(args, slot)
	}
	query += ` ORDER BY classification_score DESC, discovered_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, corerr.Transient("list cache images", err)
	}
	defer rows.Close()

	var out []*models.CacheImageFile
	for rows.Next() {
		f, err := scanImage(rows)
		if err != nil {
			return nil, corerr.Transient("scan cache image", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// FindImagesByPerceptualHashPrefix returns candidate images sharing the
// same entity/slot, for the caller to Hamming-compare against (§4.3
// lookups "by perceptual hash"). Returning the full slot set is acceptable
// here: a movie has at most a handful of candidate images per slot.
func (r *CacheRepository) FindImagesByPerceptualHashPrefix(entityType models.EntityType, entityID uuid.UUID, slot models.Slot) ([]*models.CacheImageFile, error) {
	return r.ListImagesForEntity(entityType, entityID, slot)
}

// IncrefImage bumps ref_count for a new (entity, slot) association onto an
// existing hash (§4.3).
func (r *CacheRepository) IncrefImage(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE cache_image_files SET ref_count = ref_count + 1 WHERE id = $1`, id)
	if err != nil {
		return corerr.Transient("incref cache image", err)
	}
	return nil
}

// DecrefImage drops ref_count when an association is dropped (§4.3).
func (r *CacheRepository) DecrefImage(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE cache_image_files SET ref_count = GREATEST(ref_count - 1, 0) WHERE id = $1`, id)
	if err != nil {
		return corerr.Transient("decref cache image", err)
	}
	return nil
}

// TouchImageAccessed updates last_accessed_at on retrieval (§4.3 LRU bookkeeping).
func (r *CacheRepository) TouchImageAccessed(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE cache_image_files SET last_accessed_at = now() WHERE id = $1`, id)
	if err != nil {
		return corerr.Transient("touch cache image", err)
	}
	return nil
}

// GCOrphanedImages deletes (and returns) image rows with ref_count=0 and no
// library_image_files referrer (§4.3 gc precondition, I2). Callers must
// remove the corresponding on-disk file via cache.Store.Remove for each
// returned row.
func (r *CacheRepository) GCOrphanedImages() ([]*models.CacheImageFile, error) {
	rows, err := r.db.Query(
		`SELECT ` + imageColumns + ` FROM cache_image_files c
		 WHERE c.ref_count = 0
		   AND NOT EXISTS (SELECT 1 FROM library_image_files l WHERE l.cache_file_id = c.id)`,
	)
	if err != nil {
		return nil, corerr.Transient("select orphaned cache images", err)
	}
	defer rows.Close()

	var orphans []*models.CacheImageFile
	for rows.Next() {
		f, err := scanImage(rows)
		if err != nil {
			return nil, corerr.Transient("scan orphaned cache image", err)
		}
		orphans = append(orphans, f)
	}
	rows.Close()

	for _, f := range orphans {
		if _, err := r.db.Exec(`DELETE FROM cache_image_files WHERE id = $1`, f.ID); err != nil {
			return nil, corerr.Transient("delete orphaned cache image", err)
		}
	}
	return orphans, nil
}

// ──────────────────── Video ────────────────────

func (r *CacheRepository) InsertVideo(f *models.CacheVideoFile) error {
	f.ID = uuid.New()
	_, err := r.db.Exec(
		`INSERT INTO cache_video_files
		 (id, entity_type, entity_id, slot, file_path, file_name, size, hash,
		  source, source_url, provider_name, classification_score, locked, ref_count,
		  codec, duration_seconds, bitrate, hdr_format, audio_summary, quick_hash)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,1,$14,$15,$16,$17,$18,$19)`,
		f.ID, f.EntityType, f.EntityID, f.Slot, f.FilePath, f.FileName, f.Size, f.Hash,
		f.Source, f.SourceURL, f.ProviderName, f.ClassificationScore, f.Locked,
		f.Codec, f.DurationSeconds, f.Bitrate, f.HDRFormat, f.AudioSummary, f.QuickHash,
	)
	if err != nil {
		return corerr.Transient("insert cache video file", err)
	}
	return nil
}

const videoColumns = `id, entity_type, entity_id, slot, file_path, file_name, size, hash,
	source, source_url, provider_name, classification_score, locked, ref_count,
	discovered_at, last_accessed_at, codec, duration_seconds, bitrate, hdr_format, audio_summary, quick_hash`

func scanVideo(row rowScanner) (*models.CacheVideoFile, error) {
	f := &models.CacheVideoFile{}
	err := row.Scan(&f.ID, &f.EntityType, &f.EntityID, &f.Slot, &f.FilePath, &f.FileName, &f.Size, &f.Hash,
		&f.Source, &f.SourceURL, &f.ProviderName, &f.ClassificationScore, &f.Locked, &f.RefCount,
		&f.DiscoveredAt, &f.LastAccessedAt, &f.Codec, &f.DurationSeconds, &f.Bitrate, &f.HDRFormat,
		&f.AudioSummary, &f.QuickHash)
	return f, err
}

// FindVideoByQuickHash backs the fact gatherer's probe cache (§4.1: "compute
// a quick-hash ... and look up any prior cache-video-file row with that
// hash; on hit skip probing"). A quick-hash hit is only a candidate — §8
// requires callers fall back to a full hash comparison before trusting it.
func (r *CacheRepository) FindVideoByQuickHash(quickHash string) (*models.CacheVideoFile, error) {
	row := r.db.QueryRow(`SELECT `+videoColumns+` FROM cache_video_files WHERE quick_hash = $1 LIMIT 1`, quickHash)
	f, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound("cache video file not found for quick hash")
	}
	if err != nil {
		return nil, corerr.Transient("find cache video by quickhash", err)
	}
	return f, nil
}

func (r *CacheRepository) FindVideoByHash(entityType models.EntityType, entityID uuid.UUID, slot models.Slot, hash string) (*models.CacheVideoFile, error) {
	row := r.db.QueryRow(
		`SELECT `+videoColumns+` FROM cache_video_files WHERE entity_type=$1 AND entity_id=$2 AND slot=$3 AND hash=$4`,
		entityType, entityID, slot, hash,
	)
	f, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound(fmt.Sprintf("cache video file hash=%s", hash))
	}
	if err != nil {
		return nil, corerr.Transient("find cache video by hash", err)
	}
	return f, nil
}

func (r *CacheRepository) ListVideosForEntity(entityType models.EntityType, entityID uuid.UUID, slot models.Slot) ([]*models.CacheVideoFile, error) {
	query := `SELECT ` + videoColumns + ` FROM cache_video_files WHERE entity_type=$1 AND entity_id=$2`
	args := []any{entityType, entityID}
	if slot != "" {
		query += ` AND slot=$3`
		args = append(args, slot)
	}
	query += ` ORDER BY classification_score DESC, discovered_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, corerr.Transient("list cache videos", err)
	}
	defer rows.Close()

	var out []*models.CacheVideoFile
	for rows.Next() {
		f, err := scanVideo(rows)
		if err != nil {
			return nil, corerr.Transient("scan cache video", err)
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *CacheRepository) IncrefVideo(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE cache_video_files SET ref_count = ref_count + 1 WHERE id = $1`, id)
	if err != nil {
		return corerr.Transient("incref cache video", err)
	}
	return nil
}

func (r *CacheRepository) DecrefVideo(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE cache_video_files SET ref_count = GREATEST(ref_count - 1, 0) WHERE id = $1`, id)
	if err != nil {
		return corerr.Transient("decref cache video", err)
	}
	return nil
}

func (r *CacheRepository) GCOrphanedVideos() ([]*models.CacheVideoFile, error) {
	rows, err := r.db.Query(
		`SELECT ` + videoColumns + ` FROM cache_video_files c
		 WHERE c.ref_count = 0
		   AND NOT EXISTS (SELECT 1 FROM library_video_files l WHERE l.cache_file_id = c.id)`,
	)
	if err != nil {
		return nil, corerr.Transient("select orphaned cache videos", err)
	}
	defer rows.Close()

	var orphans []*models.CacheVideoFile
	for rows.Next() {
		f, err := scanVideo(rows)
		if err != nil {
			return nil, corerr.Transient("scan orphaned cache video", err)
		}
		orphans = append(orphans, f)
	}
	rows.Close()

	for _, f := range orphans {
		if _, err := r.db.Exec(`DELETE FROM cache_video_files WHERE id = $1`, f.ID); err != nil {
			return nil, corerr.Transient("delete orphaned cache video", err)
		}
	}
	return orphans, nil
}

// ──────────────────── Audio ────────────────────

func (r *CacheRepository) InsertAudio(f *models.CacheAudioFile) error {
	f.ID = uuid.New()
	_, err := r.db.Exec(
		`INSERT INTO cache_audio_files
		 (id, entity_type, entity_id, slot, file_path, file_name, size, hash,
		  source, source_url, provider_name, classification_score, locked, ref_count, audio_kind)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,1,$14)`,
		f.ID, f.EntityType, f.EntityID, f.Slot, f.FilePath, f.FileName, f.Size, f.Hash,
		f.Source, f.SourceURL, f.ProviderName, f.ClassificationScore, f.Locked, f.AudioKind,
	)
	if err != nil {
		return corerr.Transient("insert cache audio file", err)
	}
	return nil
}

const audioColumns = `id, entity_type, entity_id, slot, file_path, file_name, size, hash,
	source, source_url, provider_name, classification_score, locked, ref_count,
	discovered_at, last_accessed_at, audio_kind`

func scanAudio(row rowScanner) (*models.CacheAudioFile, error) {
	f := &models.CacheAudioFile{}
	err := row.Scan(&f.ID, &f.EntityType, &f.EntityID, &f.Slot, &f.FilePath, &f.FileName, &f.Size, &f.Hash,
		&f.Source, &f.SourceURL, &f.ProviderName, &f.ClassificationScore, &f.Locked, &f.RefCount,
		&f.DiscoveredAt, &f.LastAccessedAt, &f.AudioKind)
	return f, err
}

func (r *CacheRepository) FindAudioByHash(entityType models.EntityType, entityID uuid.UUID, slot models.Slot, hash string) (*models.CacheAudioFile, error) {
	row := r.db.QueryRow(
		`SELECT `+audioColumns+` FROM cache_audio_files WHERE entity_type=$1 AND entity_id=$2 AND slot=$3 AND hash=$4`,
		entityType, entityID, slot, hash,
	)
	f, err := scanAudio(row)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound(fmt.Sprintf("cache audio file hash=%s", hash))
	}
	if err != nil {
		return nil, corerr.Transient("find cache audio by hash", err)
	}
	return f, nil
}

func (r *CacheRepository) ListAudioForEntity(entityType models.EntityType, entityID uuid.UUID) ([]*models.CacheAudioFile, error) {
	rows, err := r.db.Query(
		`SELECT `+audioColumns+` FROM cache_audio_files WHERE entity_type=$1 AND entity_id=$2
		 ORDER BY classification_score DESC, discovered_at DESC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, corerr.Transient("list cache audio", err)
	}
	defer rows.Close()

	var out []*models.CacheAudioFile
	for rows.Next() {
		f, err := scanAudio(rows)
		if err != nil {
			return nil, corerr.Transient("scan cache audio", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// GCOrphanedAudio deletes (and returns) audio rows with ref_count=0 and no
// library_audio_files referrer (§4.3 gc precondition, I2). Callers must
// remove the corresponding on-disk file via cache.Store.Remove for each
// returned row.
func (r *CacheRepository) GCOrphanedAudio() ([]*models.CacheAudioFile, error) {
	rows, err := r.db.Query(
		`SELECT ` + audioColumns + ` FROM cache_audio_files c
		 WHERE c.ref_count = 0
		   AND NOT EXISTS (SELECT 1 FROM library_audio_files l WHERE l.cache_file_id = c.id)`,
	)
	if err != nil {
		return nil, corerr.Transient("select orphaned cache audio", err)
	}
	defer rows.Close()

	var orphans []*models.CacheAudioFile
	for rows.Next() {
		f, err := scanAudio(rows)
		if err != nil {
			return nil, corerr.Transient("scan orphaned cache audio", err)
		}
		orphans = append(orphans, f)
	}
	rows.Close()

	for _, f := range orphans {
		if _, err := r.db.Exec(`DELETE FROM cache_audio_files WHERE id = $1`, f.ID); err != nil {
			return nil, corerr.Transient("delete orphaned cache audio", err)
		}
	}
	return orphans, nil
}

// ──────────────────── Text (NFO, subtitle) ────────────────────

func (r *CacheRepository) InsertText(f *models.CacheTextFile) error {
	f.ID = uuid.New()
	_, err := r.db.Exec(
		`INSERT INTO cache_text_files
		 (id, entity_type, entity_id, slot, file_path, file_name, size, hash,
		  source, source_url, provider_name, classification_score, locked, ref_count,
		  text_kind, subtitle_language, nfo_valid)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,1,$14,$15,$16)`,
		f.ID, f.EntityType, f.EntityID, f.Slot, f.FilePath, f.FileName, f.Size, f.Hash,
		f.Source, f.SourceURL, f.ProviderName, f.ClassificationScore, f.Locked,
		f.TextKind, f.SubtitleLanguage, f.NFOValid,
	)
	if err != nil {
		return corerr.Transient("insert cache text file", err)
	}
	return nil
}

const textColumns = `id, entity_type, entity_id, slot, file_path, file_name, size, hash,
	source, source_url, provider_name, classification_score, locked, ref_count,
	discovered_at, last_accessed_at, text_kind, subtitle_language, nfo_valid`

func scanText(row rowScanner) (*models.CacheTextFile, error) {
	f := &models.CacheTextFile{}
	err := row.Scan(&f.ID, &f.EntityType, &f.EntityID, &f.Slot, &f.FilePath, &f.FileName, &f.Size, &f.Hash,
		&f.Source, &f.SourceURL, &f.ProviderName, &f.ClassificationScore, &f.Locked, &f.RefCount,
		&f.DiscoveredAt, &f.LastAccessedAt, &f.TextKind, &f.SubtitleLanguage, &f.NFOValid)
	return f, err
}

func (r *CacheRepository) FindTextByHash(entityType models.EntityType, entityID uuid.UUID, slot models.Slot, hash string) (*models.CacheTextFile, error) {
	row := r.db.QueryRow(
		`SELECT `+textColumns+` FROM cache_text_files WHERE entity_type=$1 AND entity_id=$2 AND slot=$3 AND hash=$4`,
		entityType, entityID, slot, hash,
	)
	f, err := scanText(row)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound(fmt.Sprintf("cache text file hash=%s", hash))
	}
	if err != nil {
		return nil, corerr.Transient("find cache text by hash", err)
	}
	return f, nil
}

// ListTextForEntity returns text rows for entity, optionally filtered to
// textKind (e.g. TextKindNFO to check I4: "a published movie has at least
// one library-file row of text-kind nfo").
func (r *CacheRepository) ListTextForEntity(entityType models.EntityType, entityID uuid.UUID, textKind models.TextKind) ([]*models.CacheTextFile, error) {
	query := `SELECT ` + textColumns + ` FROM cache_text_files WHERE entity_type=$1 AND entity_id=$2`
	args := []any{entityType, entityID}
	if textKind != "" {
		query += ` AND text_kind=$3`
		args = append(args, textKind)
	}
	query += ` ORDER BY discovered_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, corerr.Transient("list cache text", err)
	}
	defer rows.Close()

	var out []*models.CacheTextFile
	for rows.Next() {
		f, err := scanText(rows)
		if err != nil {
			return nil, corerr.Transient("scan cache text", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// GCOrphanedText deletes (and returns) text rows with ref_count=0 and no
// library_text_files referrer (§4.3 gc precondition, I2). Callers must
// remove the corresponding on-disk file via cache.Store.Remove for each
// returned row.
func (r *CacheRepository) GCOrphanedText() ([]*models.CacheTextFile, error) {
	rows, err := r.db.Query(
		`SELECT ` + textColumns + ` FROM cache_text_files c
		 WHERE c.ref_count = 0
		   AND NOT EXISTS (SELECT 1 FROM library_text_files l WHERE l.cache_file_id = c.id)`,
	)
	if err != nil {
		return nil, corerr.Transient("select orphaned cache text", err)
	}
	defer rows.Close()

	var orphans []*models.CacheTextFile
	for rows.Next() {
		f, err := scanText(rows)
		if err != nil {
			return nil, corerr.Transient("scan orphaned cache text", err)
		}
		orphans = append(orphans, f)
	}
	rows.Close()

	for _, f := range orphans {
		if _, err := r.db.Exec(`DELETE FROM cache_text_files WHERE id = $1`, f.ID); err != nil {
			return nil, corerr.Transient("delete orphaned cache text", err)
		}
	}
	return orphans, nil
}

// ──────────────────── Library files (ephemeral, §4.5) ────────────────────

// UpsertLibraryImageFile creates or repoints the library-file row for
// filePath onto cacheFileID (§4.4 steps 2-4: "If a file already exists...
// ensure a library_file row exists").
func (r *CacheRepository) UpsertLibraryImageFile(cacheFileID uuid.UUID, filePath string) error {
	var existing uuid.UUID
	err := r.db.QueryRow(`SELECT id FROM library_image_files WHERE file_path = $1`, filePath).Scan(&existing)
	switch err {
	case sql.ErrNoRows:
		_, err = r.db.Exec(
			`INSERT INTO library_image_files (id, cache_file_id, file_path) VALUES ($1,$2,$3)`,
			uuid.New(), cacheFileID, filePath,
		)
	case nil:
		_, err = r.db.Exec(
			`UPDATE library_image_files SET cache_file_id = $1, published_at = now() WHERE id = $2`,
			cacheFileID, existing,
		)
	}
	if err != nil {
		return corerr.Transient("upsert library image file", err)
	}
	return nil
}

func (r *CacheRepository) UpsertLibraryVideoFile(cacheFileID uuid.UUID, filePath string) error {
	return upsertLibraryFile(r.db, "library_video_files", cacheFileID, filePath)
}

func (r *CacheRepository) UpsertLibraryTextFile(cacheFileID uuid.UUID, filePath string) error {
	return upsertLibraryFile(r.db, "library_text_files", cacheFileID, filePath)
}

func (r *CacheRepository) UpsertLibraryAudioFile(cacheFileID uuid.UUID, filePath string) error {
	return upsertLibraryFile(r.db, "library_audio_files", cacheFileID, filePath)
}

func upsertLibraryFile(db *sql.DB, table string, cacheFileID uuid.UUID, filePath string) error {
	var existing uuid.UUID
	err := db.QueryRow(`SELECT id FROM `+table+` WHERE file_path = $1`, filePath).Scan(&existing)
	switch err {
	case sql.ErrNoRows:
		_, err = db.Exec(
			`INSERT INTO `+table+` (id, cache_file_id, file_path) VALUES ($1,$2,$3)`,
			uuid.New(), cacheFileID, filePath,
		)
	case nil:
		_, err = db.Exec(
			`UPDATE `+table+` SET cache_file_id = $1, published_at = now() WHERE id = $2`,
			cacheFileID, existing,
		)
	}
	if err != nil {
		return corerr.Transient(fmt.Sprintf("upsert %s", table), err)
	}
	return nil
}

// HasLibraryFileOfTextKind checks I4 directly: does movieID have a
// published library text file whose cache row is text_kind=nfo.
func (r *CacheRepository) HasLibraryFileOfTextKind(entityType models.EntityType, entityID uuid.UUID, textKind models.TextKind) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS (
			SELECT 1 FROM library_text_files l
			JOIN cache_text_files c ON c.id = l.cache_file_id
			WHERE c.entity_type = $1 AND c.entity_id = $2 AND c.text_kind = $3
		)`,
		entityType, entityID, textKind,
	).Scan(&exists)
	if err != nil {
		return false, corerr.Transient("check library text kind", err)
	}
	return exists, nil
}

// ──────────────────── Unknown files (§3: shown to the user, never deleted) ────────────────────

func (r *CacheRepository) InsertUnknownFile(f *models.UnknownFile) error {
	f.ID = uuid.New()
	_, err := r.db.Exec(
		`INSERT INTO unknown_files (id, entity_type, entity_id, file_path, name, size, extension, category)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		f.ID, f.EntityType, f.EntityID, f.FilePath, f.Name, f.Size, f.Extension, f.Category,
	)
	if err != nil {
		return corerr.Transient("insert unknown file", err)
	}
	return nil
}

func (r *CacheRepository) ListUnknownFilesForEntity(entityType models.EntityType, entityID uuid.UUID) ([]*models.UnknownFile, error) {
	rows, err := r.db.Query(
		`SELECT id, entity_type, entity_id, file_path, name, size, extension, category, discovered_at
		 FROM unknown_files WHERE entity_type=$1 AND entity_id=$2 ORDER BY discovered_at DESC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, corerr.Transient("list unknown files", err)
	}
	defer rows.Close()

	var out []*models.UnknownFile
	for rows.Next() {
		f := &models.UnknownFile{}
		if err := rows.Scan(&f.ID, &f.EntityType, &f.EntityID, &f.FilePath, &f.Name, &f.Size, &f.Extension, &f.Category, &f.DiscoveredAt); err != nil {
			return nil, corerr.Transient("scan unknown file", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// DeleteUnknownFilesForEntity clears prior unknown-file rows for entity
// before a rescan re-records the current set (avoids accumulating stale
// rows across repeated scans of the same directory).
func (r *CacheRepository) DeleteUnknownFilesForEntity(entityType models.EntityType, entityID uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM unknown_files WHERE entity_type=$1 AND entity_id=$2`, entityType, entityID)
	if err != nil {
		return corerr.Transient("delete unknown files", err)
	}
	return nil
}
