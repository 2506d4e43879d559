package publish

import (
	"bytes"
	"encoding/xml"
	"strconv"

	"github.com/JustinTDCT/cinevault-core/internal/models"
)

// xmlMovie is the Kodi/Jellyfin-compatible <movie> NFO shape, trimmed from
// the teacher's internal/metadata/nfo.go to the fields the simplified Movie
// model actually carries — no actors/genres/studios, since those live in
// join tables the current data model doesn't model. A future expansion
// that adds cast/crew tables can grow this struct without touching the
// publish algorithm.
type xmlMovie struct {
	XMLName       xml.Name        `xml:"movie"`
	Title         string          `xml:"title"`
	OriginalTitle string          `xml:"originaltitle,omitempty"`
	SortTitle     string          `xml:"sorttitle,omitempty"`
	Tagline       string          `xml:"tagline,omitempty"`
	Plot          string          `xml:"plot,omitempty"`
	Outline       string          `xml:"outline,omitempty"`
	Year          int             `xml:"year,omitempty"`
	Runtime       int             `xml:"runtime,omitempty"`
	MPAA          string          `xml:"mpaa,omitempty"`
	ReleaseDate   string          `xml:"premiered,omitempty"`
	UniqueIDs     []xmlUniqueID   `xml:"uniqueid"`
	Ratings       *xmlRatings     `xml:"ratings,omitempty"`
	LockData      bool            `xml:"lockdata"`
}

type xmlUniqueID struct {
	Type    string `xml:"type,attr"`
	Default bool   `xml:"default,attr"`
	Value   string `xml:",chardata"`
}

type xmlRatings struct {
	Rating []xmlRating `xml:"rating"`
}

type xmlRating struct {
	Name  string  `xml:"name,attr"`
	Max   int     `xml:"max,attr"`
	Value float64 `xml:"value"`
}

// RenderNFO regenerates the NFO XML document for m. Field locks gate which
// of the movie's own values feed the render: a locked field's on-disk value
// is preserved by simply not overwriting it upstream (the publisher step
// that calls this always passes the current, already-lock-respecting
// movie row, per §4.4 step 5's "field locks gate regeneration inputs").
func RenderNFO(m *models.Movie) ([]byte, error) {
	doc := xmlMovie{
		Title:    m.Title,
		LockData: m.IsFieldLocked("*"),
	}
	if m.OriginalTitle != nil {
		doc.OriginalTitle = *m.OriginalTitle
	}
	if m.SortTitle != nil {
		doc.SortTitle = *m.SortTitle
	}
	if m.Tagline != nil {
		doc.Tagline = *m.Tagline
	}
	if m.Plot != nil {
		doc.Plot = *m.Plot
	}
	if m.Outline != nil {
		doc.Outline = *m.Outline
	}
	if m.Year != nil {
		doc.Year = *m.Year
	}
	if m.RuntimeMinutes != nil {
		doc.Runtime = *m.RuntimeMinutes
	}
	if m.ContentRating != nil {
		doc.MPAA = *m.ContentRating
	}
	if m.ReleaseDate != nil {
		doc.ReleaseDate = m.ReleaseDate.Format("2006-01-02")
	}
	if m.TMDBID != nil {
		doc.UniqueIDs = append(doc.UniqueIDs, xmlUniqueID{Type: "tmdb", Default: true, Value: strconv.Itoa(*m.TMDBID)})
	}
	if m.IMDBID != nil {
		doc.UniqueIDs = append(doc.UniqueIDs, xmlUniqueID{Type: "imdb", Default: m.TMDBID == nil, Value: *m.IMDBID})
	}
	if m.UserRating != nil {
		doc.Ratings = &xmlRatings{Rating: []xmlRating{{Name: "user", Max: 10, Value: *m.UserRating}}}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
