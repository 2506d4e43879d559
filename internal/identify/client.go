// Package identify implements the provider-identification component (spec
// §4.7 shares its broadcaster with the job layer; this is "J" from
// SPEC_FULL's module layout — enrich-metadata's collaborator): binding a
// movie to a provider id and fetching candidate assets, rate-limited per
// provider-config row. Grounded on the teacher's internal/metadata/
// scraper_tmdb.go, trimmed to the movie-only search/details calls the
// simplified model needs and rewired onto context-aware requests with
// golang.org/x/time/rate in place of the teacher's unthrottled client.
package identify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
)

// CandidateMovie is one TMDB search hit, scored against the query title.
type CandidateMovie struct {
	TMDBID      int
	Title       string
	OriginalTitle string
	Year        *int
	Overview    string
	PosterPath  string
	VoteAverage float64
	Confidence  float64
}

// MovieDetails is the full record fetched once a TMDB id is chosen.
type MovieDetails struct {
	TMDBID        int
	IMDBID        string
	Title         string
	OriginalTitle string
	Tagline       string
	Overview      string
	ReleaseDate   string
	Runtime       int
	VoteAverage   float64
	ContentRating string
	Images        []CandidateAsset
}

// CandidateAsset is a scoreable provider asset (poster/backdrop/trailer)
// surfaced by GetImages, destined for a provider_assets row
// (§4.7) before any bytes are downloaded into the cache store.
type CandidateAsset struct {
	AssetType string // maps to models.Slot once the orchestrator assigns it
	URL       string
	Width     int
	Height    int
	VoteCount int
}

// TMDBClient is a minimal, rate-limited TMDB client scoped to movie
// search/details/images — the teacher's scraper additionally covered TV,
// music (via a different provider), and adult-content flags that have no
// home in the simplified model.
type TMDBClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewTMDBClient constructs a client rate-limited to ratePerMinute requests
// (from provider_config.rate_limit_per_min); a non-positive rate disables
// throttling, useful for tests.
func NewTMDBClient(baseURL, apiKey string, ratePerMinute int) *TMDBClient {
	var limiter *rate.Limiter
	if ratePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), ratePerMinute)
	} else {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &TMDBClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: limiter,
	}
}

type tmdbSearchResponse struct {
	Results []struct {
		ID            int     `json:"id"`
		Title         string  `json:"title"`
		OriginalTitle string  `json:"original_title"`
		Overview      string  `json:"overview"`
		PosterPath    string  `json:"poster_path"`
		ReleaseDate   string  `json:"release_date"`
		VoteAverage   float64 `json:"vote_average"`
	} `json:"results"`
}

// Search queries TMDB's movie search endpoint, optionally narrowed by year.
func (c *TMDBClient) Search(ctx context.Context, query string, year *int) ([]CandidateMovie, error) {
	if c.apiKey == "" {
		return nil, corerr.Validation("tmdb api key not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, corerr.Transient("tmdb rate limit wait", err)
	}

	reqURL := fmt.Sprintf("%s/search/movie?api_key=%s&query=%s", c.baseURL, c.apiKey, url.QueryEscape(query))
	if year != nil && *year > 0 {
		reqURL += fmt.Sprintf("&year=%d", *year)
	}

	var parsed tmdbSearchResponse
	if err := c.getJSON(ctx, reqURL, &parsed); err != nil {
		return nil, err
	}

	out := make([]CandidateMovie, 0, len(parsed.Results))
	for i, r := range parsed.Results {
		var resultYear *int
		if len(r.ReleaseDate) >= 4 {
			if y, err := strconv.Atoi(r.ReleaseDate[:4]); err == nil {
				resultYear = &y
			}
		}
		conf := titleSimilarity(query, r.Title)
		if r.OriginalTitle != "" && r.OriginalTitle != r.Title {
			if alt := titleSimilarity(query, r.OriginalTitle); alt > conf {
				conf = alt
			}
		}
		if i < 3 {
			conf += 0.05 * float64(3-i) / 3.0
			if conf > 1.0 {
				conf = 1.0
			}
		}
		out = append(out, CandidateMovie{
			TMDBID:        r.ID,
			Title:         r.Title,
			OriginalTitle: r.OriginalTitle,
			Year:          resultYear,
			Overview:      r.Overview,
			PosterPath:    r.PosterPath,
			VoteAverage:   r.VoteAverage,
			Confidence:    conf,
		})
	}
	return out, nil
}

type tmdbDetailsResponse struct {
	ID            int     `json:"id"`
	IMDBId        string  `json:"imdb_id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Tagline       string  `json:"tagline"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	Runtime       int     `json:"runtime"`
	VoteAverage   float64 `json:"vote_average"`
	ReleaseDates  struct {
		Results []struct {
			ISO31661     string `json:"iso_3166_1"`
			ReleaseDates []struct {
				Certification string `json:"certification"`
			} `json:"release_dates"`
		} `json:"results"`
	} `json:"release_dates"`
}

// GetDetails fetches full movie metadata and the US certification, mirroring
// the teacher's append_to_response=release_dates call.
func (c *TMDBClient) GetDetails(ctx context.Context, tmdbID int) (*MovieDetails, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, corerr.Transient("tmdb rate limit wait", err)
	}

	reqURL := fmt.Sprintf("%s/movie/%d?api_key=%s&append_to_response=release_dates,images", c.baseURL, tmdbID, c.apiKey)
	var parsed tmdbDetailsResponse
	if err := c.getJSON(ctx, reqURL, &parsed); err != nil {
		return nil, err
	}

	details := &MovieDetails{
		TMDBID:        parsed.ID,
		IMDBID:        parsed.IMDBId,
		Title:         parsed.Title,
		OriginalTitle: parsed.OriginalTitle,
		Tagline:       parsed.Tagline,
		Overview:      parsed.Overview,
		ReleaseDate:   parsed.ReleaseDate,
		Runtime:       parsed.Runtime,
		VoteAverage:   parsed.VoteAverage,
	}
	for _, country := range parsed.ReleaseDates.Results {
		if country.ISO31661 != "US" {
			continue
		}
		for _, rd := range country.ReleaseDates {
			if rd.Certification != "" {
				details.ContentRating = rd.Certification
				break
			}
		}
	}
	return details, nil
}

type tmdbImagesResponse struct {
	Posters []struct {
		FilePath    string  `json:"file_path"`
		Width       int     `json:"width"`
		Height      int     `json:"height"`
		VoteCount   int     `json:"vote_count"`
	} `json:"posters"`
	Backdrops []struct {
		FilePath  string `json:"file_path"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		VoteCount int    `json:"vote_count"`
	} `json:"backdrops"`
}

// GetImages returns scoreable poster/backdrop candidates for tmdbID (§4.7:
// candidate catalog rows, analyzed and selected downstream).
func (c *TMDBClient) GetImages(ctx context.Context, tmdbID int) ([]CandidateAsset, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, corerr.Transient("tmdb rate limit wait", err)
	}

	reqURL := fmt.Sprintf("%s/movie/%d/images?api_key=%s", c.baseURL, tmdbID, c.apiKey)
	var parsed tmdbImagesResponse
	if err := c.getJSON(ctx, reqURL, &parsed); err != nil {
		return nil, err
	}

	var out []CandidateAsset
	for _, p := range parsed.Posters {
		out = append(out, CandidateAsset{
			AssetType: "poster", URL: c.imageURL(p.FilePath, "w500"),
			Width: p.Width, Height: p.Height, VoteCount: p.VoteCount,
		})
	}
	for _, b := range parsed.Backdrops {
		out = append(out, CandidateAsset{
			AssetType: "fanart", URL: c.imageURL(b.FilePath, "original"),
			Width: b.Width, Height: b.Height, VoteCount: b.VoteCount,
		})
	}
	return out, nil
}

type tmdbVideosResponse struct {
	Results []struct {
		Key      string `json:"key"`
		Site     string `json:"site"`
		Type     string `json:"type"`
		Official bool   `json:"official"`
	} `json:"results"`
}

// GetTrailerURL returns the best official YouTube trailer for tmdbID, or ""
// if none is listed. Preference order: official Trailer, then any Trailer,
// then any video entry.
func (c *TMDBClient) GetTrailerURL(ctx context.Context, tmdbID int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", corerr.Transient("tmdb rate limit wait", err)
	}

	reqURL := fmt.Sprintf("%s/movie/%d/videos?api_key=%s", c.baseURL, tmdbID, c.apiKey)
	var parsed tmdbVideosResponse
	if err := c.getJSON(ctx, reqURL, &parsed); err != nil {
		return "", err
	}

	var fallback string
	for _, v := range parsed.Results {
		if v.Site != "YouTube" {
			continue
		}
		if fallback == "" {
			fallback = v.Key
		}
		if v.Type == "Trailer" {
			if v.Official {
				return "https://www.youtube.com/watch?v=" + v.Key, nil
			}
			fallback = v.Key
		}
	}
	if fallback == "" {
		return "", nil
	}
	return "https://www.youtube.com/watch?v=" + fallback, nil
}

func (c *TMDBClient) imageURL(path, size string) string {
	if path == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/" + size + path
}

func (c *TMDBClient) getJSON(ctx context.Context, reqURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return corerr.Unknown("build tmdb request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return corerr.Transient("tmdb request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return corerr.Transient("tmdb rate limited", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 500 {
		return corerr.Transient("tmdb server error", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return corerr.Validation(fmt.Sprintf("tmdb request rejected: status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return corerr.Transient("decode tmdb response", err)
	}
	return nil
}
