package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/JustinTDCT/cinevault-core/internal/classify"
	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/facts"
	"github.com/JustinTDCT/cinevault-core/internal/models"
	"github.com/JustinTDCT/cinevault-core/internal/repository"
)

// PublishPayload is the job payload for a publish job.
type PublishPayload struct {
	MovieID string `json:"movie_id"`
}

var publishHTTPClient = &http.Client{Timeout: 30 * time.Second}

// HandlePublish runs §4.4's library publish algorithm for a movie: for each
// image slot, ensure a selected candidate is downloaded into the cache
// store, then materialize the best-scored cache file of every kind into the
// library directory, finishing with the NFO round-trip.
func (d *Dependencies) HandlePublish(ctx context.Context, job *models.Job) (any, error) {
	var payload PublishPayload
	if err := unmarshalPayload(job.Payload, &payload); err != nil {
		return nil, err
	}
	movieID, err := parseUUID(payload.MovieID)
	if err != nil {
		return nil, err
	}
	movie, err := d.MovieRepo.GetByID(movieID)
	if err != nil {
		return nil, err
	}

	disc := facts.DetectDiscStructure(filepath.Dir(movie.FilePath))

	published := make([]string, 0)

	for _, imgSlot := range classify.AllImageSlots {
		slot := models.Slot(string(imgSlot))
		if err := d.ensureAssetDownloaded(ctx, movie, slot); err != nil {
			return nil, err
		}
		images, err := d.CacheRepo.ListImagesForEntity(models.EntityMovie, movie.ID, slot)
		if err != nil {
			return nil, err
		}
		if len(images) == 0 {
			continue
		}
		res, err := d.Publisher.PublishImage(movie, disc, images[0])
		if err != nil {
			return nil, err
		}
		if res.Wrote {
			published = append(published, res.TargetPath)
		}
	}

	videos, err := d.CacheRepo.ListVideosForEntity(models.EntityMovie, movie.ID, models.SlotTrailer)
	if err != nil {
		return nil, err
	}
	if len(videos) > 0 {
		res, err := d.Publisher.PublishVideo(movie, disc, videos[0])
		if err != nil {
			return nil, err
		}
		if res.Wrote {
			published = append(published, res.TargetPath)
		}
	}

	audio, err := d.CacheRepo.ListAudioForEntity(models.EntityMovie, movie.ID)
	if err != nil {
		return nil, err
	}
	if len(audio) > 0 {
		res, err := d.Publisher.PublishAudio(movie, disc, audio[0])
		if err != nil {
			return nil, err
		}
		if res.Wrote {
			published = append(published, res.TargetPath)
		}
	}

	subs, err := d.CacheRepo.ListTextForEntity(models.EntityMovie, movie.ID, models.TextKindSubtitle)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		res, err := d.Publisher.PublishSubtitle(movie, sub)
		if err != nil {
			return nil, err
		}
		if res.Wrote {
			published = append(published, res.TargetPath)
		}
	}

	nfoRes, err := d.Publisher.PublishNFO(movie, disc)
	if err != nil {
		return nil, err
	}
	if nfoRes.Wrote {
		published = append(published, nfoRes.TargetPath)
	}

	now := time.Now()
	publishedStatus := models.StatusPublished
	patch := &repository.MoviePatch{PublishedAt: &now, IdentificationStatus: &publishedStatus}
	if _, err := d.MovieRepo.ApplyPatch(movie.ID, patch, movie.LockedFields, false); err != nil {
		return nil, err
	}

	return map[string]any{"movie_id": movie.ID.String(), "published": published}, nil
}

// ensureAssetDownloaded materializes the highest-scored undownloaded
// provider candidate for slot into the cache store, if no local image
// already exists for that slot (§4.7: local files always win over
// provider candidates, which is why this only runs when the slot is
// otherwise empty).
func (d *Dependencies) ensureAssetDownloaded(ctx context.Context, movie *models.Movie, slot models.Slot) error {
	existing, err := d.CacheRepo.ListImagesForEntity(models.EntityMovie, movie.ID, slot)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	candidates, err := d.AssetRepo.ListCandidates(models.EntityMovie, movie.ID, slot)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]

	data, err := downloadBytes(ctx, best.ProviderURL)
	if err != nil {
		return err
	}
	ext := extForImageURL(best.ProviderURL)
	hash, size, err := d.Store.StoreAsset(bytes.NewReader(data), ext)
	if err != nil {
		return err
	}

	cf := &models.CacheImageFile{
		CacheFileCommon: models.CacheFileCommon{
			EntityType:          models.EntityMovie,
			EntityID:            movie.ID,
			Slot:                slot,
			FilePath:            d.Store.PathFor(hash, ext),
			FileName:            hash + ext,
			Size:                size,
			Hash:                hash,
			Source:              models.SourceProvider,
			SourceURL:           &best.ProviderURL,
			ProviderName:        &best.ProviderName,
			ClassificationScore: best.Score,
		},
	}
	if best.Width != nil {
		cf.Width = *best.Width
	}
	if best.Height != nil {
		cf.Height = *best.Height
	}
	if err := d.CacheRepo.InsertImage(cf); err != nil {
		return err
	}
	if err := d.AssetRepo.MarkDownloaded(best.ID); err != nil {
		return err
	}
	return d.AssetRepo.MarkSelected(best.ID, models.EntityMovie, movie.ID, slot)
}

// extForImageURL derives the file extension to store a provider image
// candidate under from its URL path, since provider candidates are not all
// jpg (TMDB serves png posters/logos too). Falls back to .jpg for an
// unrecognised or missing extension.
func extForImageURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	switch ext := strings.ToLower(filepath.Ext(u.Path)); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp", ".tiff":
		return ext
	default:
		return ".jpg"
	}
}

func downloadBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, corerr.Unknown("build asset download request", err)
	}
	resp, err := publishHTTPClient.Do(req)
	if err != nil {
		return nil, corerr.Transient("download provider asset", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, corerr.Transient("provider asset download rejected", fmt.Errorf("status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, corerr.Transient("read provider asset body", err)
	}
	return data, nil
}
