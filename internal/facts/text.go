package facts

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

// textExtensions lists the extensions the fact gatherer reads as text (§4.1).
var textExtensions = map[string]bool{
	".nfo": true, ".srt": true, ".ass": true, ".ssa": true,
	".vtt": true, ".sub": true, ".idx": true, ".txt": true,
}

// textReadLimit caps how much of a text sidecar is read for fact extraction
// (§4.1: "first 10 KiB read").
const textReadLimit = 10 * 1024

var (
	xmlTMDBTag = regexp.MustCompile(`(?i)<uniqueid\s+type="tmdb"[^>]*>(\d+)</uniqueid>`)
	xmlIMDBTag = regexp.MustCompile(`(?i)<uniqueid\s+type="imdb"[^>]*>(tt\d+)</uniqueid>`)
	legacyTMDB = regexp.MustCompile(`(?i)<tmdb>(\d+)</tmdb>`)
	legacyIMDB = regexp.MustCompile(`(?i)<imdb>(tt\d+)</imdb>`)
	urlTMDB    = regexp.MustCompile(`themoviedb\.org/movie/(\d+)`)
	urlIMDB    = regexp.MustCompile(`imdb\.com/title/(tt\d+)`)
	looseTMDB  = regexp.MustCompile(`(?i)tmdb[/:=\s]+(\d+)`)
	looseIMDB  = regexp.MustCompile(`(tt\d{7,})`)

	subtitleTimestamp = regexp.MustCompile(`\d\d:\d\d:\d\d`)
	subtitleArrow     = regexp.MustCompile(`-->`)
	subtitleDialogue  = regexp.MustCompile(`(?i)Dialogue:`)

	// subtitleLangSuffix matches the ".xx" or ".xxx" language tag immediately
	// before the extension, e.g. "Inception (2010).eng.srt" (§4.1).
	subtitleLangSuffix = regexp.MustCompile(`(?i)\.([a-z]{2,3})\.[a-z0-9]+$`)
)

// ProbeText reads up to textReadLimit bytes of path and extracts NFO /
// subtitle facts per the cascade in §4.1: XML uniqueid tags, then legacy
// <tmdb>/<imdb> tags, then a URL scrape, then a loose regex fallback.
func ProbeText(path string) (*TextFacts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, textReadLimit)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil, err
	}
	content := string(buf[:n])

	tf := &TextFacts{}

	if tmdbID, imdbID, ok := extractIDs(content); ok {
		tf.IsNFO = true
		tf.TMDBID = tmdbID
		tf.IMDBID = imdbID
	} else if strings.Contains(content, "<") && strings.Contains(content, ">") {
		// XML-shaped but no recognizable id; still an NFO candidate per §4.1
		// ("NFO detection first tries XML tags... then loose regex").
		tf.IsNFO = looksLikeXML(content)
	}

	if subtitleTimestamp.MatchString(content) || subtitleArrow.MatchString(content) || subtitleDialogue.MatchString(content) {
		tf.IsSubtitle = true
		if m := subtitleLangSuffix.FindStringSubmatch(path); m != nil {
			tf.SubtitleLang = strings.ToLower(m[1])
		}
	}

	return tf, nil
}

// extractIDs applies the id-extraction cascade from §4.1 and returns the
// first tmdb/imdb id found by any stage, plus whether anything matched.
func extractIDs(content string) (tmdbID int, imdbID string, found bool) {
	if m := xmlTMDBTag.FindStringSubmatch(content); m != nil {
		tmdbID, _ = strconv.Atoi(m[1])
		found = true
	}
	if m := xmlIMDBTag.FindStringSubmatch(content); m != nil {
		imdbID = m[1]
		found = true
	}
	if found {
		return
	}

	if m := legacyTMDB.FindStringSubmatch(content); m != nil {
		tmdbID, _ = strconv.Atoi(m[1])
		found = true
	}
	if m := legacyIMDB.FindStringSubmatch(content); m != nil {
		imdbID = m[1]
		found = true
	}
	if found {
		return
	}

	if m := urlTMDB.FindStringSubmatch(content); m != nil {
		tmdbID, _ = strconv.Atoi(m[1])
		found = true
	}
	if m := urlIMDB.FindStringSubmatch(content); m != nil {
		imdbID = m[1]
		found = true
	}
	if found {
		return
	}

	if m := looseTMDB.FindStringSubmatch(content); m != nil {
		tmdbID, _ = strconv.Atoi(m[1])
		found = true
	}
	if m := looseIMDB.FindStringSubmatch(content); m != nil {
		imdbID = m[1]
		found = true
	}
	return
}

func looksLikeXML(content string) bool {
	trimmed := strings.TrimSpace(content)
	return strings.HasPrefix(trimmed, "<?xml") || strings.HasPrefix(trimmed, "<movie") || strings.HasPrefix(trimmed, "<episodedetails")
}
