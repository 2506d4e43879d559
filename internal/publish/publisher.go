// Package publish implements the library publisher (spec §4.4, component
// E): materialising a selected cache file into a movie's on-disk library
// layout, and regenerating NFO documents from the movie row with field
// locks gating which inputs are allowed to change. Grounded on the
// teacher's internal/scanner local_artwork copy-and-link pattern, adapted
// from move-a-thumbnail-into-place to copy-a-cache-file-into-place.
package publish

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JustinTDCT/cinevault-core/internal/cache"
	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/facts"
	"github.com/JustinTDCT/cinevault-core/internal/hashutil"
	"github.com/JustinTDCT/cinevault-core/internal/models"
	"github.com/JustinTDCT/cinevault-core/internal/repository"
)

// discSlotNames are the short on-disk names used at a disc-structure root
// (§6: "poster.jpg, fanart.jpg, etc., rooted at BDMV/ or VIDEO_TS/").
var discSlotNames = map[models.Slot]string{
	models.SlotPoster:    "poster",
	models.SlotFanart:    "fanart",
	models.SlotBanner:    "banner",
	models.SlotClearlogo: "clearlogo",
	models.SlotClearart:  "clearart",
	models.SlotDiscart:   "discart",
	models.SlotLandscape: "landscape",
	models.SlotThumb:     "thumb",
	models.SlotKeyart:    "keyart",
}

// Publisher materialises selected cache files into a movie's library
// directory and keeps the library_*_files mirror in sync (§4.4, §4.5).
type Publisher struct {
	store     *cache.Store
	cacheRepo *repository.CacheRepository
	movieRepo *repository.MovieRepository
}

func NewPublisher(store *cache.Store, cacheRepo *repository.CacheRepository, movieRepo *repository.MovieRepository) *Publisher {
	return &Publisher{store: store, cacheRepo: cacheRepo, movieRepo: movieRepo}
}

// Result reports whether a publish step actually wrote bytes, used by
// callers (and tests) to assert the idempotence law of §8: "republishing a
// movie whose selections are unchanged makes no filesystem writes beyond
// updating last-accessed timestamps."
type Result struct {
	TargetPath string
	Wrote      bool
}

// targetPath computes the on-disk path for slot under movie, following §4.4
// step 1 and the two naming schemes of §6.
func targetPath(movie *models.Movie, disc facts.DiscStructure, slot models.Slot, ext string) string {
	dir := filepath.Dir(movie.FilePath)
	ext = normalizeExt(ext)

	if disc != facts.DiscNone {
		root := filepath.Join(dir, string(disc))
		if name, ok := discSlotNames[slot]; ok {
			return filepath.Join(root, name+ext)
		}
		if slot == models.SlotNFO {
			if disc == facts.DiscBDMV {
				return filepath.Join(root, "index.nfo")
			}
			return filepath.Join(root, "video_ts.nfo")
		}
	}

	base := strings.TrimSuffix(filepath.Base(movie.FilePath), filepath.Ext(movie.FilePath))
	switch slot {
	case models.SlotNFO:
		return filepath.Join(dir, base+".nfo")
	case models.SlotTrailer:
		return filepath.Join(dir, base+"-trailer"+ext)
	case models.SlotTheme:
		return filepath.Join(dir, "theme"+ext)
	default:
		return filepath.Join(dir, base+"-"+string(slot)+ext)
	}
}

func normalizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	if ext[0] != '.' {
		return "." + ext
	}
	return ext
}

// PublishImage runs §4.4's 5-step algorithm (minus step 5, which is
// NFO-specific) for an image cache file.
func (p *Publisher) PublishImage(movie *models.Movie, disc facts.DiscStructure, cf *models.CacheImageFile) (*Result, error) {
	ext := filepath.Ext(cf.FileName)
	target := targetPath(movie, disc, cf.Slot, ext)

	wrote, err := p.materialize(target, cf.Hash, ext)
	if err != nil {
		return nil, err
	}
	if err := p.cacheRepo.UpsertLibraryImageFile(cf.ID, target); err != nil {
		return nil, err
	}
	return &Result{TargetPath: target, Wrote: wrote}, nil
}

func (p *Publisher) PublishVideo(movie *models.Movie, disc facts.DiscStructure, cf *models.CacheVideoFile) (*Result, error) {
	ext := filepath.Ext(cf.FileName)
	target := targetPath(movie, disc, cf.Slot, ext)

	wrote, err := p.materialize(target, cf.Hash, ext)
	if err != nil {
		return nil, err
	}
	if err := p.cacheRepo.UpsertLibraryVideoFile(cf.ID, target); err != nil {
		return nil, err
	}
	return &Result{TargetPath: target, Wrote: wrote}, nil
}

func (p *Publisher) PublishAudio(movie *models.Movie, disc facts.DiscStructure, cf *models.CacheAudioFile) (*Result, error) {
	ext := filepath.Ext(cf.FileName)
	target := targetPath(movie, disc, models.SlotTheme, ext)

	wrote, err := p.materialize(target, cf.Hash, ext)
	if err != nil {
		return nil, err
	}
	if err := p.cacheRepo.UpsertLibraryAudioFile(cf.ID, target); err != nil {
		return nil, err
	}
	return &Result{TargetPath: target, Wrote: wrote}, nil
}

// PublishSubtitle publishes a text cache file of kind subtitle, named
// {movieBasename}.{lang}.{subext} per §6.
func (p *Publisher) PublishSubtitle(movie *models.Movie, cf *models.CacheTextFile) (*Result, error) {
	ext := filepath.Ext(cf.FileName)
	dir := filepath.Dir(movie.FilePath)
	base := strings.TrimSuffix(filepath.Base(movie.FilePath), filepath.Ext(movie.FilePath))
	lang := "und"
	if cf.SubtitleLanguage != nil && *cf.SubtitleLanguage != "" {
		lang = *cf.SubtitleLanguage
	}
	target := filepath.Join(dir, fmt.Sprintf("%s.%s%s", base, lang, ext))

	wrote, err := p.materialize(target, cf.Hash, ext)
	if err != nil {
		return nil, err
	}
	if err := p.cacheRepo.UpsertLibraryTextFile(cf.ID, target); err != nil {
		return nil, err
	}
	return &Result{TargetPath: target, Wrote: wrote}, nil
}

// PublishNFO runs the full §4.4 step 5 round-trip: render the NFO from the
// (already lock-respecting) movie row, store the bytes as a new cache-text
// row with source=local, then publish it like any other slot.
func (p *Publisher) PublishNFO(movie *models.Movie, disc facts.DiscStructure) (*Result, error) {
	doc, err := RenderNFO(movie)
	if err != nil {
		return nil, corerr.Unknown("render nfo", err)
	}

	hash, size, err := p.store.StoreAsset(bytes.NewReader(doc), ".nfo")
	if err != nil {
		return nil, err
	}

	cf := &models.CacheTextFile{
		CacheFileCommon: models.CacheFileCommon{
			EntityType:          models.EntityMovie,
			EntityID:            movie.ID,
			Slot:                models.SlotNFO,
			FilePath:            p.store.PathFor(hash, ".nfo"),
			FileName:            movie.FileName + ".nfo",
			Size:                size,
			Hash:                hash,
			Source:              models.SourceLocal,
			ClassificationScore: 100,
		},
		TextKind: models.TextKindNFO,
	}
	existing, err := p.cacheRepo.FindTextByHash(models.EntityMovie, movie.ID, models.SlotNFO, hash)
	switch {
	case err == nil:
		cf = existing
	case corerr.KindOf(err) == corerr.KindNotFound:
		if err := p.cacheRepo.InsertText(cf); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	target := targetPath(movie, disc, models.SlotNFO, ".nfo")
	wrote, err := p.materialize(target, hash, ".nfo")
	if err != nil {
		return nil, err
	}
	if err := p.cacheRepo.UpsertLibraryTextFile(cf.ID, target); err != nil {
		return nil, err
	}
	return &Result{TargetPath: target, Wrote: wrote}, nil
}

// materialize implements §4.4 steps 2-3: compare-then-replace against an
// existing target, or copy fresh bytes from the cache. It never moves or
// mutates the cache file itself — the cache remains the source of truth.
func (p *Publisher) materialize(target, hash, ext string) (wrote bool, err error) {
	if _, statErr := os.Stat(target); statErr == nil {
		if existingHash, _, hashErr := hashutil.ContentHashFile(target); hashErr == nil && existingHash == hash {
			return false, nil // idempotent: target already holds these exact bytes
		}
	}

	src, err := p.store.Open(hash, ext)
	if err != nil {
		return false, err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, corerr.Transient(fmt.Sprintf("create library dir for %s", target), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "publish-*")
	if err != nil {
		return false, corerr.Transient("create publish staging file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return false, corerr.Transient(fmt.Sprintf("copy cache bytes to %s", target), err)
	}
	if err := tmp.Close(); err != nil {
		return false, corerr.Transient("close publish staging file", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return false, corerr.Transient(fmt.Sprintf("finalize publish of %s", target), err)
	}
	return true, nil
}
