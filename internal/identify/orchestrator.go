package identify

import (
	"context"
	"strconv"
	"time"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/models"
	"github.com/JustinTDCT/cinevault-core/internal/repository"
)

// minAutoMatchConfidence is the floor below which a search result is not
// trusted to auto-bind a movie without user confirmation.
const minAutoMatchConfidence = 0.75

// Orchestrator drives §4.7's enrich-metadata flow: bind a movie to a
// provider id (by NFO-supplied id, or a confident title search), fetch
// full details, apply them as a field-lock-gated patch, and record
// candidate assets for later selection and download.
type Orchestrator struct {
	client    *TMDBClient
	movieRepo *repository.MovieRepository
	assetRepo *repository.ProviderAssetRepository
}

func NewOrchestrator(client *TMDBClient, movieRepo *repository.MovieRepository, assetRepo *repository.ProviderAssetRepository) *Orchestrator {
	return &Orchestrator{client: client, movieRepo: movieRepo, assetRepo: assetRepo}
}

// Identify binds movie to a TMDB id: if movie.TMDBID is already set (e.g.
// from an NFO uniqueid), details are fetched directly; otherwise a title
// search runs and the top result above minAutoMatchConfidence is accepted.
// A search with no confident match returns corerr.Validation so the
// handler can leave the movie in manual-required territory.
func (o *Orchestrator) Identify(ctx context.Context, movie *models.Movie) (*MovieDetails, error) {
	tmdbID := 0
	if movie.TMDBID != nil {
		tmdbID = *movie.TMDBID
	} else {
		year := movie.Year
		candidates, err := o.client.Search(ctx, movie.Title, year)
		if err != nil {
			return nil, err
		}
		best := bestCandidate(candidates)
		if best == nil || best.Confidence < minAutoMatchConfidence {
			return nil, corerr.Validation("no confident tmdb match for " + movie.Title)
		}
		tmdbID = best.TMDBID
	}

	details, err := o.client.GetDetails(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	return details, nil
}

func bestCandidate(candidates []CandidateMovie) *CandidateMovie {
	var best *CandidateMovie
	for i := range candidates {
		if best == nil || candidates[i].Confidence > best.Confidence {
			best = &candidates[i]
		}
	}
	return best
}

// ApplyDetails patches movie's fields from details, honouring field locks
// (§4.8 L2) unless force is set, then marks the movie identified/enriched.
func (o *Orchestrator) ApplyDetails(movie *models.Movie, details *MovieDetails, force bool) ([]string, error) {
	status := models.StatusEnriched
	patch := &repository.MoviePatch{
		Title:                &details.Title,
		TMDBID:               &details.TMDBID,
		IdentificationStatus: &status,
	}
	if details.OriginalTitle != "" {
		patch.OriginalTitle = &details.OriginalTitle
	}
	if details.Tagline != "" {
		patch.Tagline = &details.Tagline
	}
	if details.Overview != "" {
		patch.Plot = &details.Overview
	}
	if details.IMDBID != "" {
		patch.IMDBID = &details.IMDBID
	}
	if details.ContentRating != "" {
		patch.ContentRating = &details.ContentRating
	}
	if details.Runtime > 0 {
		patch.RuntimeMinutes = &details.Runtime
	}
	if len(details.ReleaseDate) == 10 {
		if t, err := time.Parse("2006-01-02", details.ReleaseDate); err == nil {
			patch.ReleaseDate = &t
			year := t.Year()
			patch.Year = &year
		}
	}
	now := time.Now()
	patch.EnrichedAt = &now

	skipped, err := o.movieRepo.ApplyPatch(movie.ID, patch, movie.LockedFields, force)
	if err != nil {
		return nil, err
	}
	return skipped, nil
}

// FetchTrailerURL looks up the best trailer link for movie's TMDB id, for
// the download-trailer job to fetch.
func (o *Orchestrator) FetchTrailerURL(ctx context.Context, movie *models.Movie) (string, error) {
	if movie.TMDBID == nil {
		return "", corerr.Validation("movie has no tmdb id to fetch a trailer for")
	}
	return o.client.GetTrailerURL(ctx, *movie.TMDBID)
}

// DiscoverAssets fetches candidate poster/fanart images for movie's TMDB id
// and records them as provider_assets rows (§4.7), ready for the
// publisher's selection step. It does not download any bytes.
func (o *Orchestrator) DiscoverAssets(ctx context.Context, movie *models.Movie) error {
	if movie.TMDBID == nil {
		return corerr.Validation("movie has no tmdb id to discover assets for")
	}
	assets, err := o.client.GetImages(ctx, *movie.TMDBID)
	if err != nil {
		return err
	}
	for _, a := range assets {
		if a.URL == "" {
			continue
		}
		slot := models.SlotPoster
		if a.AssetType == "fanart" {
			slot = models.SlotFanart
		}
		score := scoreAsset(a)
		row := &models.ProviderAsset{
			EntityType:   models.EntityMovie,
			EntityID:     movie.ID,
			AssetType:    slot,
			ProviderName: "tmdb",
			ProviderURL:  a.URL,
			Width:        intPtr(a.Width),
			Height:       intPtr(a.Height),
			Score:        score,
		}
		if err := o.assetRepo.Insert(row); err != nil {
			return err
		}
	}
	return nil
}

// scoreAsset ranks a candidate by vote count and a mild size preference, so
// the orchestrator's downstream "highest score wins" rule (§4.7) favors
// well-attested, high-resolution art.
func scoreAsset(a CandidateAsset) int {
	score := a.VoteCount * 2
	if a.Width >= 1000 {
		score += 10
	}
	return score
}

func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

// FormatTMDBID renders a TMDB id as a decimal string.
func FormatTMDBID(id int) string {
	return strconv.Itoa(id)
}
