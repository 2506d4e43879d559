package handlers

import (
	"context"

	"github.com/JustinTDCT/cinevault-core/internal/jobs"
	"github.com/JustinTDCT/cinevault-core/internal/models"
)

// EnrichMetadataPayload is the job payload for an enrich-metadata job.
type EnrichMetadataPayload struct {
	MovieID string `json:"movie_id"`
	Force   bool   `json:"force"`
}

// HandleEnrichMetadata runs §4.7's identification flow: bind the movie to a
// provider id, patch its fields (gated by field locks unless Force is set),
// and record candidate provider assets for later selection. On success it
// enqueues a dependent publish job when the library auto-publishes.
func (d *Dependencies) HandleEnrichMetadata(ctx context.Context, job *models.Job) (any, error) {
	var payload EnrichMetadataPayload
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

	details, err := d.Orchestrator.Identify(ctx, movie)
	if err != nil {
		return nil, err
	}
	skipped, err := d.Orchestrator.ApplyDetails(movie, details, payload.Force)
	if err != nil {
		return nil, err
	}
	if err := d.Orchestrator.DiscoverAssets(ctx, movie); err != nil {
		return nil, err
	}

	library, err := d.LibRepo.GetByID(movie.LibraryID)
	if err != nil {
		return nil, err
	}
	if library.AutoPublish {
		publishPayload, err := marshalPayload(PublishPayload{MovieID: movie.ID.String()})
		if err != nil {
			return nil, err
		}
		if _, err := d.JobRepo.Enqueue(jobs.TypePublish, publishPayload, dependentOn(job.ID)); err != nil {
			return nil, err
		}
	}

	return map[string]any{
		"movie_id":      movie.ID.String(),
		"tmdb_id":       details.TMDBID,
		"skipped_locked": skipped,
	}, nil
}
