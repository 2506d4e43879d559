// Package handlers wires the job queue's registry (spec §4.6, component H)
// to the rest of the system: each Handler invokes one or more of the
// fact-gatherer, classifier, cache store, publisher, and identification
// components and returns a result or a classified error. Grounded on the
// teacher's internal/jobs/tasks.go handler-per-job-type layout, adapted
// from asynq's *asynq.Task payloads onto the DB-backed Job's raw []byte
// payload.
package handlers

import (
	"encoding/json"

	"github.com/JustinTDCT/cinevault-core/internal/cache"
	"github.com/JustinTDCT/cinevault-core/internal/config"
	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/facts"
	"github.com/JustinTDCT/cinevault-core/internal/identify"
	"github.com/JustinTDCT/cinevault-core/internal/jobs"
	"github.com/JustinTDCT/cinevault-core/internal/publish"
	"github.com/JustinTDCT/cinevault-core/internal/repository"
)

// Dependencies collects every collaborator a handler might need, following
// §9's design note against ambient singletons: handlers take their
// dependencies as an explicit struct rather than reaching for package-level
// state.
type Dependencies struct {
	Config *config.Config

	Store       *cache.Store
	CacheRepo   *repository.CacheRepository
	MovieRepo   *repository.MovieRepository
	LibRepo     *repository.LibraryRepository
	JobRepo     *repository.JobRepository
	AssetRepo   *repository.ProviderAssetRepository
	PlayerRepo  *repository.MediaPlayerRepository
	WebhookRepo *repository.WebhookRepository

	Publisher    *publish.Publisher
	Orchestrator *identify.Orchestrator
	Queue        *jobs.Queue
}

// probeCacheAdapter satisfies facts.ProbeCache over the cache_video_files
// table, letting the gatherer skip re-probing a file whose quick-hash
// already has a recorded probe result (§4.1).
type probeCacheAdapter struct {
	repo *repository.CacheRepository
}

func (a *probeCacheAdapter) LookupByQuickHash(quickHash string) (*facts.VideoFacts, bool) {
	cf, err := a.repo.FindVideoByQuickHash(quickHash)
	if err != nil {
		return nil, false
	}
	vf := &facts.VideoFacts{
		HasVideo:        true,
		HasAudio:        cf.AudioSummary != nil && *cf.AudioSummary != "",
		DurationSeconds: float64(cf.DurationSeconds),
	}
	if cf.Codec != nil {
		stream := facts.VideoStreamFacts{Codec: *cf.Codec}
		if cf.HDRFormat != nil {
			stream.HDRFormat = *cf.HDRFormat
		}
		vf.VideoStreams = append(vf.VideoStreams, stream)
	}
	return vf, true
}

// NewGatherer builds a fact gatherer wired to this job's ffprobe path and
// probe cache.
func (d *Dependencies) NewGatherer() *facts.Gatherer {
	return facts.NewGatherer(d.Config.FFprobePath, &probeCacheAdapter{repo: d.CacheRepo})
}

// unmarshalPayload decodes a job's raw payload into dest, wrapping decode
// failures as corerr.Validation since a malformed payload is never
// retriable.
func unmarshalPayload(payload []byte, dest any) error {
	if err := json.Unmarshal(payload, dest); err != nil {
		return corerr.Validation("invalid job payload: " + err.Error())
	}
	return nil
}

// Register installs every known handler type (§4.6's table) on queue.
func Register(queue *jobs.Queue, deps *Dependencies) {
	queue.RegisterHandler(jobs.TypeDirectoryScan, deps.HandleDirectoryScan)
	queue.RegisterHandler(jobs.TypeEnrichMetadata, deps.HandleEnrichMetadata)
	queue.RegisterHandler(jobs.TypePublish, deps.HandlePublish)
	queue.RegisterHandler(jobs.TypeDownloadTrailer, deps.HandleDownloadTrailer)
	queue.RegisterHandler(jobs.TypeCleanup, deps.HandleCleanup)
	queue.RegisterHandler(jobs.TypeNotifyKodi, deps.HandleNotifyKodi)
	queue.RegisterHandler(jobs.TypeWebhookReceived, deps.HandleWebhookReceived)
}
