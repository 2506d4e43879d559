package handlers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/JustinTDCT/cinevault-core/internal/jobs"
	"github.com/JustinTDCT/cinevault-core/internal/models"
	"github.com/JustinTDCT/cinevault-core/internal/repository"
)

// WebhookReceivedPayload is the job payload for a webhook-received job: the
// raw delivery body plus the source label the HTTP endpoint received it on.
type WebhookReceivedPayload struct {
	Source    string `json:"source"` // "radarr", "sonarr", "lidarr"
	EventType string `json:"event_type"`
	Body      []byte `json:"body"`
}

// radarrMoviePayload covers the subset of Radarr's webhook schema this
// curator cares about: the folder a movie file landed in.
type radarrMoviePayload struct {
	EventType string `json:"eventType"`
	Movie     struct {
		FolderPath string `json:"folderPath"`
	} `json:"movie"`
}

// HandleWebhookReceived normalises an inbound Radarr/Sonarr/Lidarr webhook
// (§6) into a webhook_events row and, for a Radarr delivery naming a movie
// folder under one of our libraries, a dependent directory-scan job. Sonarr
// and Lidarr deliveries are recorded but not actioned — this curator only
// manages movie libraries.
func (d *Dependencies) HandleWebhookReceived(ctx context.Context, job *models.Job) (any, error) {
	var payload WebhookReceivedPayload
	if err := unmarshalPayload(job.Payload, &payload); err != nil {
		return nil, err
	}

	eventID, err := d.WebhookRepo.Insert(payload.Source, payload.EventType, payload.Body)
	if err != nil {
		return nil, err
	}

	if strings.ToLower(payload.Source) != "radarr" {
		return map[string]any{"event_id": eventID.String(), "scanned": false}, nil
	}

	var radarr radarrMoviePayload
	if err := json.Unmarshal(payload.Body, &radarr); err != nil || radarr.Movie.FolderPath == "" {
		return map[string]any{"event_id": eventID.String(), "scanned": false}, nil
	}

	library, err := d.libraryForPath(radarr.Movie.FolderPath)
	if err != nil || library == nil {
		return map[string]any{"event_id": eventID.String(), "scanned": false}, nil
	}

	scanPayload, err := marshalPayload(DirectoryScanPayload{
		LibraryID: library.ID.String(),
		DirPath:   radarr.Movie.FolderPath,
	})
	if err != nil {
		return nil, err
	}
	jobID, err := d.JobRepo.Enqueue(jobs.TypeDirectoryScan, scanPayload, repository.DefaultEnqueueOptions())
	if err != nil {
		return nil, err
	}
	if err := d.WebhookRepo.AttachJob(eventID, jobID); err != nil {
		return nil, err
	}

	return map[string]any{"event_id": eventID.String(), "scanned": true, "job_id": jobID.String()}, nil
}

// libraryForPath finds the enabled library whose root_path is a prefix of
// dirPath.
func (d *Dependencies) libraryForPath(dirPath string) (*models.Library, error) {
	libraries, err := d.LibRepo.ListEnabled()
	if err != nil {
		return nil, err
	}
	for _, l := range libraries {
		if strings.HasPrefix(dirPath, l.RootPath) {
			return l, nil
		}
	}
	return nil, nil
}
