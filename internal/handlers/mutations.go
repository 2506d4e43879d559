package handlers

import (
	"context"
	"encoding/json"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/jobs"
	"github.com/JustinTDCT/cinevault-core/internal/repository"
	"github.com/JustinTDCT/cinevault-core/internal/ws"
)

// HandleMutation answers the narrow set of idempotent client-originated
// mutations the websocket hub accepts (§4.7). It is wired in as the hub's
// ws.MutationHandler at startup.
func (d *Dependencies) HandleMutation(ctx context.Context, client *ws.Client, event string, data json.RawMessage) (any, error) {
	switch event {
	case ws.InboundUpdateMovie:
		return d.mutateUpdateMovie(data)
	case ws.InboundDeleteImage:
		return d.mutateDeleteImage(data)
	case ws.InboundUpdatePlayer:
		return d.mutateUpdatePlayer(data)
	case ws.InboundStartLibraryScan:
		return d.mutateStartLibraryScan(data)
	case ws.InboundCancelLibraryScan:
		return d.mutateCancelLibraryScan(data)
	default:
		return nil, corerr.Validation("unsupported mutation event: " + event)
	}
}

type updateMoviePayload struct {
	MovieID string  `json:"movie_id"`
	Title   *string `json:"title"`
	Plot    *string `json:"plot"`
	Year    *int    `json:"year"`
	Force   bool    `json:"force"`
}

func (d *Dependencies) mutateUpdateMovie(data json.RawMessage) (any, error) {
	var p updateMoviePayload
	if err := unmarshalPayload(data, &p); err != nil {
		return nil, err
	}
	movieID, err := parseUUID(p.MovieID)
	if err != nil {
		return nil, err
	}
	movie, err := d.MovieRepo.GetByID(movieID)
	if err != nil {
		return nil, err
	}

	patch := &repository.MoviePatch{Title: p.Title, Plot: p.Plot, Year: p.Year}
	skipped, err := d.MovieRepo.ApplyPatch(movieID, patch, movie.LockedFields, p.Force)
	if err != nil {
		return nil, err
	}
	return map[string]any{"movie_id": p.MovieID, "skipped_locked": skipped}, nil
}

type deleteImagePayload struct {
	ImageID string `json:"image_id"`
}

func (d *Dependencies) mutateDeleteImage(data json.RawMessage) (any, error) {
	var p deleteImagePayload
	if err := unmarshalPayload(data, &p); err != nil {
		return nil, err
	}
	imageID, err := parseUUID(p.ImageID)
	if err != nil {
		return nil, err
	}
	if err := d.CacheRepo.DecrefImage(imageID); err != nil {
		return nil, err
	}
	return map[string]any{"image_id": p.ImageID, "decremented": true}, nil
}

type updatePlayerPayload struct {
	PlayerID string  `json:"player_id"`
	BaseURL  string  `json:"base_url"`
	APIKey   *string `json:"api_key"`
}

func (d *Dependencies) mutateUpdatePlayer(data json.RawMessage) (any, error) {
	var p updatePlayerPayload
	if err := unmarshalPayload(data, &p); err != nil {
		return nil, err
	}
	playerID, err := parseUUID(p.PlayerID)
	if err != nil {
		return nil, err
	}
	if err := d.PlayerRepo.UpdateConnection(playerID, p.BaseURL, p.APIKey); err != nil {
		return nil, err
	}
	return map[string]any{"player_id": p.PlayerID, "updated": true}, nil
}

type libraryScanPayload struct {
	LibraryID string `json:"library_id"`
}

func (d *Dependencies) mutateStartLibraryScan(data json.RawMessage) (any, error) {
	var p libraryScanPayload
	if err := unmarshalPayload(data, &p); err != nil {
		return nil, err
	}
	libraryID, err := parseUUID(p.LibraryID)
	if err != nil {
		return nil, err
	}
	library, err := d.LibRepo.GetByID(libraryID)
	if err != nil {
		return nil, err
	}
	scanPayload, err := marshalPayload(DirectoryScanPayload{LibraryID: p.LibraryID, DirPath: library.RootPath})
	if err != nil {
		return nil, err
	}
	jobID, err := d.JobRepo.Enqueue(jobs.TypeDirectoryScan, scanPayload, repository.DefaultEnqueueOptions())
	if err != nil {
		return nil, err
	}
	return map[string]any{"library_id": p.LibraryID, "job_id": jobID.String()}, nil
}

type cancelScanPayload struct {
	JobID string `json:"job_id"`
}

func (d *Dependencies) mutateCancelLibraryScan(data json.RawMessage) (any, error) {
	var p cancelScanPayload
	if err := unmarshalPayload(data, &p); err != nil {
		return nil, err
	}
	jobID, err := parseUUID(p.JobID)
	if err != nil {
		return nil, err
	}
	if err := d.Queue.Cancel(jobID); err != nil {
		return nil, err
	}
	return map[string]any{"job_id": p.JobID, "cancelled": true}, nil
}
