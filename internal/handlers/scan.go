package handlers

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/JustinTDCT/cinevault-core/internal/classify"
	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/facts"
	"github.com/JustinTDCT/cinevault-core/internal/hashutil"
	"github.com/JustinTDCT/cinevault-core/internal/jobs"
	"github.com/JustinTDCT/cinevault-core/internal/models"
	"github.com/JustinTDCT/cinevault-core/internal/repository"
)

// DirectoryScanPayload is the job payload for a directory-scan job: one
// movie-directory path under a library's root.
type DirectoryScanPayload struct {
	LibraryID string `json:"library_id"`
	DirPath   string `json:"dir_path"`
}

// HandleDirectoryScan runs the gather→classify pipeline over one movie
// directory (§4.1, §4.2), upserts the movie row and its cache-file rows,
// records unidentified files, and enqueues a dependent enrich-metadata job
// when the directory's decision allows processing (§5 ordering rule:
// enrich-metadata depends on its scan's completion).
func (d *Dependencies) HandleDirectoryScan(ctx context.Context, job *models.Job) (any, error) {
	var payload DirectoryScanPayload
	if err := unmarshalPayload(job.Payload, &payload); err != nil {
		return nil, err
	}
	libraryID, err := parseUUID(payload.LibraryID)
	if err != nil {
		return nil, err
	}

	scan, err := d.NewGatherer().GatherAllFacts(payload.DirPath)
	if err != nil {
		return nil, corerr.Transient("gather directory facts", err)
	}

	classification, decision := classify.Classify(scan, "")
	if classification.MainMovie == nil {
		return nil, corerr.Validation("directory has no identifiable main movie: " + payload.DirPath)
	}

	mainFact := findFact(scan, classification.MainMovie.Path)
	movie, err := d.upsertMovie(libraryID, classification.MainMovie.Path, mainFact)
	if err != nil {
		return nil, err
	}
	if classification.TMDBID != 0 && movie.TMDBID == nil {
		tmdbID := classification.TMDBID
		patch := &repository.MoviePatch{TMDBID: &tmdbID}
		if _, err := d.MovieRepo.ApplyPatch(movie.ID, patch, movie.LockedFields, false); err != nil {
			return nil, err
		}
		movie.TMDBID = &tmdbID
	}

	if err := d.recordCacheFiles(movie, scan, classification); err != nil {
		return nil, err
	}
	if err := d.recordUnknowns(movie, classification); err != nil {
		return nil, err
	}

	result := map[string]any{
		"movie_id": movie.ID.String(),
		"decision": decision.Status,
		"unknowns": decision.Unknowns,
	}

	if decision.Status != classify.DecisionManualRequired {
		enrichPayload, err := marshalPayload(EnrichMetadataPayload{MovieID: movie.ID.String()})
		if err != nil {
			return nil, err
		}
		if _, err := d.JobRepo.Enqueue(jobs.TypeEnrichMetadata, enrichPayload, dependentOn(job.ID)); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// findFact returns the FileFact for absPath, or the zero value if absent
// (the main-movie path always comes from scan.Files, so absence indicates a
// logic error upstream rather than a legitimate miss).
func findFact(scan *facts.DirectoryScan, absPath string) facts.FileFact {
	for _, f := range scan.Files {
		if f.Filesystem.AbsPath == absPath {
			return f
		}
	}
	return facts.FileFact{}
}

// upsertMovie finds the existing movie row for filePath or creates one from
// the gathered facts (§3: a movie row is keyed by its main video file path).
func (d *Dependencies) upsertMovie(libraryID uuid.UUID, filePath string, fact facts.FileFact) (*models.Movie, error) {
	existing, err := d.MovieRepo.GetByFilePath(filePath)
	if err == nil {
		return existing, nil
	}
	if corerr.KindOf(err) != corerr.KindNotFound {
		return nil, err
	}

	hash, _, hashErr := hashutil.ContentHashFile(filePath)
	if hashErr != nil {
		return nil, corerr.Transient("hash main movie file", hashErr)
	}

	title := deriveTitle(filePath)
	movie := &models.Movie{
		ID:                   uuid.New(),
		LibraryID:            libraryID,
		FilePath:             filePath,
		FileName:             filepath.Base(filePath),
		FileSize:             fact.Filesystem.Size,
		FileHash:             &hash,
		Title:                title,
		Monitored:            true,
		IdentificationStatus: models.StatusUnidentified,
		EnrichmentPriority:   5,
	}
	if fact.Filename.Year > 0 {
		year := fact.Filename.Year
		movie.Year = &year
	}
	if fact.Video != nil && len(fact.Video.VideoStreams) > 0 {
		hdr := fact.Video.VideoStreams[0].HDRFormat
		if hdr != "" {
			movie.HDRFormat = &hdr
		}
	}
	if len(fact.Filename.QualityTags) > 0 {
		source := strings.Join(fact.Filename.QualityTags, ",")
		movie.SourceType = &source
	}

	if err := d.MovieRepo.Create(movie); err != nil {
		return nil, err
	}
	return movie, nil
}

// deriveTitle turns a main-movie filename into a best-effort display title:
// it strips the extension and turns dots and underscores into spaces. Year
// and quality tokens are kept ("Inception.2010.1080p.mkv" becomes
// "Inception 2010 1080p").
func deriveTitle(filePath string) string {
	base := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	base = strings.ReplaceAll(base, ".", " ")
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}

// recordCacheFiles stores every classified image/video/audio/nfo/subtitle
// file as a cache-file row associated with movie, deduplicating by content
// hash within the entity+slot the way the cache store is designed to (§4.3).
func (d *Dependencies) recordCacheFiles(movie *models.Movie, scan *facts.DirectoryScan, c *classify.Classification) error {
	for slot, cf := range c.Images {
		fact := findFact(scan, cf.Path)
		if fact.Image == nil {
			continue
		}
		if err := d.storeImage(movie, modelSlotFor(slot), cf.Path, fact, cf.Confidence); err != nil {
			return err
		}
	}

	for _, tr := range c.Trailers {
		fact := findFact(scan, tr.Path)
		if fact.Video == nil {
			continue
		}
		if err := d.storeVideo(movie, models.SlotTrailer, tr.Path, fact, tr.Confidence); err != nil {
			return err
		}
	}

	if c.Theme != nil {
		fact := findFact(scan, c.Theme.Path)
		if err := d.storeAudio(movie, c.Theme.Path, fact, c.Theme.Confidence); err != nil {
			return err
		}
	}

	if c.NFO != nil {
		fact := findFact(scan, c.NFO.Path)
		if err := d.storeText(movie, models.SlotNFO, models.TextKindNFO, "", c.NFO.Path, fact, c.NFO.Confidence); err != nil {
			return err
		}
	}

	for _, sub := range c.Subtitles {
		fact := findFact(scan, sub.Path)
		if err := d.storeText(movie, models.SlotSubtitle, models.TextKindSubtitle, sub.Language, sub.Path, fact, sub.Confidence); err != nil {
			return err
		}
	}

	return nil
}

func modelSlotFor(s classify.ImageSlot) models.Slot {
	return models.Slot(string(s))
}

func (d *Dependencies) storeImage(movie *models.Movie, slot models.Slot, path string, fact facts.FileFact, score int) error {
	ext := filepath.Ext(path)
	hash, size, err := d.Store.StoreAssetFromFile(path, ext)
	if err != nil {
		return err
	}
	if _, err := d.CacheRepo.FindImageByHash(models.EntityMovie, movie.ID, slot, hash); err == nil {
		return nil // already recorded
	} else if corerr.KindOf(err) != corerr.KindNotFound {
		return err
	}

	pHash, pHashErr := hashutil.PerceptualHashFile(path)
	if pHashErr == nil {
		if dup, err := d.imageHasPerceptualDuplicate(movie, slot, pHash); err != nil {
			return err
		} else if dup {
			return nil // §4.2 edge case: near-duplicate images in one slot count as one asset
		}
	}

	cf := &models.CacheImageFile{
		CacheFileCommon: models.CacheFileCommon{
			EntityType:          models.EntityMovie,
			EntityID:            movie.ID,
			Slot:                slot,
			FilePath:            d.Store.PathFor(hash, ext),
			FileName:            filepath.Base(path),
			Size:                size,
			Hash:                hash,
			Source:              models.SourceLocal,
			ClassificationScore: score,
		},
	}
	if fact.Image != nil {
		cf.Width = fact.Image.Width
		cf.Height = fact.Image.Height
		cf.Format = fact.Image.Format
	}
	if pHashErr == nil {
		encoded := strconv.FormatUint(pHash, 16)
		cf.PerceptualHash = &encoded
	}
	return d.CacheRepo.InsertImage(cf)
}

// imageHasPerceptualDuplicate reports whether any image already recorded in
// slot is within hashutil.DefaultPHashThreshold bits of pHash, distance
// equal to the threshold included (§4.2: near-duplicate images at the same
// slot count as one asset).
func (d *Dependencies) imageHasPerceptualDuplicate(movie *models.Movie, slot models.Slot, pHash uint64) (bool, error) {
	candidates, err := d.CacheRepo.FindImagesByPerceptualHashPrefix(models.EntityMovie, movie.ID, slot)
	if err != nil {
		return false, err
	}
	for _, c := range candidates {
		if c.PerceptualHash == nil {
			continue
		}
		existing, err := strconv.ParseUint(*c.PerceptualHash, 16, 64)
		if err != nil {
			continue
		}
		if hashutil.HammingDistance64(pHash, existing) <= hashutil.DefaultPHashThreshold {
			return true, nil
		}
	}
	return false, nil
}

func (d *Dependencies) storeVideo(movie *models.Movie, slot models.Slot, path string, fact facts.FileFact, score int) error {
	ext := filepath.Ext(path)
	hash, size, err := d.Store.StoreAssetFromFile(path, ext)
	if err != nil {
		return err
	}
	if _, err := d.CacheRepo.FindVideoByHash(models.EntityMovie, movie.ID, slot, hash); err == nil {
		return nil
	} else if corerr.KindOf(err) != corerr.KindNotFound {
		return err
	}
	cf := &models.CacheVideoFile{
		CacheFileCommon: models.CacheFileCommon{
			EntityType:          models.EntityMovie,
			EntityID:            movie.ID,
			Slot:                slot,
			FilePath:            d.Store.PathFor(hash, ext),
			FileName:            filepath.Base(path),
			Size:                size,
			Hash:                hash,
			Source:              models.SourceLocal,
			ClassificationScore: score,
		},
		DurationSeconds: int(fact.Video.DurationSeconds),
		QuickHash:       &fact.Video.QuickHash,
	}
	if len(fact.Video.VideoStreams) > 0 {
		codec := fact.Video.VideoStreams[0].Codec
		cf.Codec = &codec
		cf.Bitrate = fact.Video.VideoStreams[0].Bitrate
		if fact.Video.VideoStreams[0].HDRFormat != "" {
			hdr := fact.Video.VideoStreams[0].HDRFormat
			cf.HDRFormat = &hdr
		}
	}
	return d.CacheRepo.InsertVideo(cf)
}

func (d *Dependencies) storeAudio(movie *models.Movie, path string, fact facts.FileFact, score int) error {
	ext := filepath.Ext(path)
	hash, size, err := d.Store.StoreAssetFromFile(path, ext)
	if err != nil {
		return err
	}
	if _, err := d.CacheRepo.FindAudioByHash(models.EntityMovie, movie.ID, models.SlotTheme, hash); err == nil {
		return nil
	} else if corerr.KindOf(err) != corerr.KindNotFound {
		return err
	}
	cf := &models.CacheAudioFile{
		CacheFileCommon: models.CacheFileCommon{
			EntityType:          models.EntityMovie,
			EntityID:            movie.ID,
			Slot:                models.SlotTheme,
			FilePath:            d.Store.PathFor(hash, ext),
			FileName:            filepath.Base(path),
			Size:                size,
			Hash:                hash,
			Source:              models.SourceLocal,
			ClassificationScore: score,
		},
		AudioKind: models.AudioKindTheme,
	}
	return d.CacheRepo.InsertAudio(cf)
}

func (d *Dependencies) storeText(movie *models.Movie, slot models.Slot, kind models.TextKind, lang, path string, fact facts.FileFact, score int) error {
	ext := filepath.Ext(path)
	hash, size, err := d.Store.StoreAssetFromFile(path, ext)
	if err != nil {
		return err
	}
	if _, err := d.CacheRepo.FindTextByHash(models.EntityMovie, movie.ID, slot, hash); err == nil {
		return nil
	} else if corerr.KindOf(err) != corerr.KindNotFound {
		return err
	}
	cf := &models.CacheTextFile{
		CacheFileCommon: models.CacheFileCommon{
			EntityType:          models.EntityMovie,
			EntityID:            movie.ID,
			Slot:                slot,
			FilePath:            d.Store.PathFor(hash, ext),
			FileName:            filepath.Base(path),
			Size:                size,
			Hash:                hash,
			Source:              models.SourceLocal,
			ClassificationScore: score,
		},
		TextKind: kind,
	}
	if lang != "" {
		cf.SubtitleLanguage = &lang
	}
	return d.CacheRepo.InsertText(cf)
}

// recordUnknowns replaces movie's unknown-file rows with the current scan's
// set, so rescanning the same directory doesn't accumulate stale entries.
func (d *Dependencies) recordUnknowns(movie *models.Movie, c *classify.Classification) error {
	if err := d.CacheRepo.DeleteUnknownFilesForEntity(models.EntityMovie, movie.ID); err != nil {
		return err
	}
	for _, u := range c.Unknown {
		uf := &models.UnknownFile{
			EntityType: models.EntityMovie,
			EntityID:   movie.ID,
			FilePath:   u.Path,
			Name:       filepath.Base(u.Path),
			Extension:  strings.ToLower(filepath.Ext(u.Path)),
			Category:   models.UnknownOther,
		}
		if err := d.CacheRepo.InsertUnknownFile(uf); err != nil {
			return err
		}
	}
	return nil
}
