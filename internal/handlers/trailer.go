package handlers

import (
	"bytes"
	"context"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/models"
)

// DownloadTrailerPayload is the job payload for a download-trailer job.
type DownloadTrailerPayload struct {
	MovieID string `json:"movie_id"`
}

// HandleDownloadTrailer fetches the provider's trailer link for a movie and
// stores it as a cache-video-file under the trailer slot, the same
// provider-sourced asset pattern the publish job uses for images. The
// response body of the returned link (for TMDB, a YouTube watch-page URL) is
// stored as-is under a .mp4 name; no video stream is extracted from a watch
// page. A movie with no trailer link returns found=false rather than an
// error.
func (d *Dependencies) HandleDownloadTrailer(ctx context.Context, job *models.Job) (any, error) {
	var payload DownloadTrailerPayload
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

	url, err := d.Orchestrator.FetchTrailerURL(ctx, movie)
	if err != nil {
		return nil, err
	}
	if url == "" {
		return map[string]any{"movie_id": movie.ID.String(), "found": false}, nil
	}

	data, err := downloadBytes(ctx, url)
	if err != nil {
		return nil, corerr.Transient("download trailer", err)
	}

	hash, size, err := d.Store.StoreAsset(bytes.NewReader(data), ".mp4")
	if err != nil {
		return nil, err
	}
	if _, err := d.CacheRepo.FindVideoByHash(models.EntityMovie, movie.ID, models.SlotTrailer, hash); err == nil {
		return map[string]any{"movie_id": movie.ID.String(), "found": true, "already_cached": true}, nil
	}

	cf := &models.CacheVideoFile{
		CacheFileCommon: models.CacheFileCommon{
			EntityType:          models.EntityMovie,
			EntityID:            movie.ID,
			Slot:                models.SlotTrailer,
			FilePath:            d.Store.PathFor(hash, ".mp4"),
			FileName:            hash + ".mp4",
			Size:                size,
			Hash:                hash,
			Source:              models.SourceProvider,
			SourceURL:           &url,
			ClassificationScore: 50,
		},
	}
	if err := d.CacheRepo.InsertVideo(cf); err != nil {
		return nil, err
	}
	return map[string]any{"movie_id": movie.ID.String(), "found": true}, nil
}
