package facts

import "testing"

func TestExtractIDsXMLUniqueID(t *testing.T) {
	content := `<movie><uniqueid type="tmdb">27205</uniqueid><uniqueid type="imdb">tt1375666</uniqueid></movie>`
	tmdbID, imdbID, ok := extractIDs(content)
	if !ok {
		t.Fatal("expected ids to be found")
	}
	if tmdbID != 27205 {
		t.Errorf("tmdbID = %d, want 27205", tmdbID)
	}
	if imdbID != "tt1375666" {
		t.Errorf("imdbID = %q, want tt1375666", imdbID)
	}
}

func TestExtractIDsLegacyTags(t *testing.T) {
	content := `<movie><tmdb>603</tmdb></movie>`
	tmdbID, _, ok := extractIDs(content)
	if !ok || tmdbID != 603 {
		t.Errorf("tmdbID = %d, ok = %v, want 603, true", tmdbID, ok)
	}
}

func TestExtractIDsURLScrape(t *testing.T) {
	content := "See https://www.themoviedb.org/movie/603-the-matrix for details."
	tmdbID, _, ok := extractIDs(content)
	if !ok || tmdbID != 603 {
		t.Errorf("tmdbID = %d, ok = %v, want 603, true", tmdbID, ok)
	}
}

func TestExtractIDsLooseFallback(t *testing.T) {
	content := "tmdb: 27205 imdb tt1375666"
	tmdbID, imdbID, ok := extractIDs(content)
	if !ok || tmdbID != 27205 || imdbID != "tt1375666" {
		t.Errorf("got tmdbID=%d imdbID=%q ok=%v", tmdbID, imdbID, ok)
	}
}

func TestExtractIDsNoMatch(t *testing.T) {
	if _, _, ok := extractIDs("just a plain description"); ok {
		t.Error("expected no match")
	}
}
