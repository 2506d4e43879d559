package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JustinTDCT/cinevault-core/internal/cache"
	"github.com/JustinTDCT/cinevault-core/internal/config"
	"github.com/JustinTDCT/cinevault-core/internal/db"
	"github.com/JustinTDCT/cinevault-core/internal/handlers"
	"github.com/JustinTDCT/cinevault-core/internal/identify"
	"github.com/JustinTDCT/cinevault-core/internal/jobs"
	"github.com/JustinTDCT/cinevault-core/internal/publish"
	"github.com/JustinTDCT/cinevault-core/internal/repository"
	"github.com/JustinTDCT/cinevault-core/internal/ws"
)

const bannerArt = `
   _____ _            __      __          _ _
  / ____(_)           \ \    / /         | | |
 | |     _ _ __   ___  \ \  / /_ _ _   _| | |_
 | |    | | '_ \ / _ \  \ \/ / _' | | | | | __|
 | |____| | | | |  __/   \  / (_| | |_| | | |_
  \_____|_|_| |_|\___|    \/ \__,_|\__,_|_|\__|
`

func main() {
	fmt.Println(bannerArt)
	fmt.Println("  Movie library curator")

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database, "migrations"); err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	cfg.MergeFromDB(database)

	store, err := cache.NewStore(cfg.CacheDir)
	if err != nil {
		log.Fatalf("open cache store: %v", err)
	}

	libRepo := repository.NewLibraryRepository(database)
	movieRepo := repository.NewMovieRepository(database)
	cacheRepo := repository.NewCacheRepository(database)
	assetRepo := repository.NewProviderAssetRepository(database)
	playerRepo := repository.NewMediaPlayerRepository(database)
	jobRepo := repository.NewJobRepository(database)
	webhookRepo := repository.NewWebhookRepository(database)

	tmdbRate := 40
	if pc, err := assetRepo.GetProviderConfig("tmdb"); err == nil {
		tmdbRate = pc.RateLimitPerMin
	}
	tmdbClient := identify.NewTMDBClient(cfg.TMDBBaseURL, cfg.TMDBAPIKey, tmdbRate)
	orchestrator := identify.NewOrchestrator(tmdbClient, movieRepo, assetRepo)
	publisher := publish.NewPublisher(store, cacheRepo, movieRepo)

	// deps.Queue is filled in once the queue exists; the hub only invokes
	// HandleMutation after Start, by which point it is set.
	deps := &handlers.Dependencies{
		Config:       cfg,
		Store:        store,
		CacheRepo:    cacheRepo,
		MovieRepo:    movieRepo,
		LibRepo:      libRepo,
		JobRepo:      jobRepo,
		AssetRepo:    assetRepo,
		PlayerRepo:   playerRepo,
		WebhookRepo:  webhookRepo,
		Publisher:    publisher,
		Orchestrator: orchestrator,
	}
	hub := ws.NewHub(deps.HandleMutation)
	queue := jobs.NewQueue(jobRepo, hub, cfg.WorkerCount, cfg.WorkerInterval)
	deps.Queue = queue
	handlers.Register(queue, deps)

	if err := scheduleLibraries(queue, libRepo); err != nil {
		log.Fatalf("schedule library scans: %v", err)
	}
	if err := queue.AddSchedule("0 4 * * *", jobs.TypeCleanup, struct{}{}, repository.DefaultEnqueueOptions()); err != nil {
		log.Fatalf("schedule cleanup: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	queue.Start(ctx)
	defer queue.Stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/webhooks/radarr", webhookEndpoint(jobRepo, "radarr"))
	mux.HandleFunc("/webhooks/sonarr", webhookEndpoint(jobRepo, "sonarr"))
	mux.HandleFunc("/webhooks/lidarr", webhookEndpoint(jobRepo, "lidarr"))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := ":8080"
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Printf("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
}

// scheduleLibraries registers each enabled library's own scan_interval cron
// expression as a directory-scan-triggering sweep job, so libraries with
// different cadences don't share one global ticker (§5, per-library scan
// scheduling).
func scheduleLibraries(queue *jobs.Queue, libRepo *repository.LibraryRepository) error {
	libraries, err := libRepo.ListEnabled()
	if err != nil {
		return err
	}
	for _, lib := range libraries {
		payload := handlers.DirectoryScanPayload{LibraryID: lib.ID.String(), DirPath: lib.RootPath}
		if err := queue.AddSchedule(lib.ScanInterval, jobs.TypeDirectoryScan, payload, repository.DefaultEnqueueOptions()); err != nil {
			return fmt.Errorf("library %s: %w", lib.Name, err)
		}
	}
	return nil
}

// webhookEndpoint decodes an inbound Radarr/Sonarr/Lidarr delivery body and
// enqueues a webhook-received job carrying the raw payload (§6); the
// handler itself does the source-specific parsing and dependent scan
// enqueue, keeping this endpoint a thin ingestion point.
func webhookEndpoint(jobRepo *repository.JobRepository, source string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		payload, err := json.Marshal(handlers.WebhookReceivedPayload{
			Source:    source,
			EventType: r.Header.Get("X-Event-Type"),
			Body:      body,
		})
		if err != nil {
			http.Error(w, "encode payload", http.StatusInternalServerError)
			return
		}
		if _, err := jobRepo.Enqueue(jobs.TypeWebhookReceived, payload, repository.DefaultEnqueueOptions()); err != nil {
			http.Error(w, "enqueue webhook job", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}
