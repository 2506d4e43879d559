package classify

import (
	"testing"

	"github.com/JustinTDCT/cinevault-core/internal/facts"
)

// TestClassifyCanonical exercises the S1 seed scenario: a single movie
// directory with a trailer, poster, fanart, and an NFO carrying a tmdb id.
func TestClassifyCanonical(t *testing.T) {
	scan := &facts.DirectoryScan{
		Files: []facts.FileFact{
			{
				Filesystem: facts.FilesystemFacts{AbsPath: "/m/Inception (2010).mkv", Basename: "Inception (2010).mkv", Extension: ".mkv"},
				Filename:   facts.FilenameFacts{Year: 2010},
				Video:      &facts.VideoFacts{HasVideo: true, DurationSeconds: 7200},
			},
			{
				Filesystem: facts.FilesystemFacts{AbsPath: "/m/Inception (2010)-trailer.mkv", Basename: "Inception (2010)-trailer.mkv", Extension: ".mkv"},
				Filename:   facts.FilenameFacts{Year: 2010, ExclusionKeyword: "trailer"},
				Video:      &facts.VideoFacts{HasVideo: true, DurationSeconds: 180},
			},
			{
				Filesystem: facts.FilesystemFacts{AbsPath: "/m/Inception (2010)-poster.jpg", Basename: "Inception (2010)-poster.jpg", Extension: ".jpg"},
				Image:      &facts.ImageFacts{Width: 1000, Height: 1500},
			},
			{
				Filesystem: facts.FilesystemFacts{AbsPath: "/m/Inception (2010)-fanart.jpg", Basename: "Inception (2010)-fanart.jpg", Extension: ".jpg"},
				Image:      &facts.ImageFacts{Width: 1920, Height: 1080},
			},
			{
				Filesystem: facts.FilesystemFacts{AbsPath: "/m/Inception (2010).nfo", Basename: "Inception (2010).nfo", Extension: ".nfo"},
				Text:       &facts.TextFacts{IsNFO: true, TMDBID: 27205},
			},
		},
	}

	classification, decision := Classify(scan, "")

	if classification.MainMovie == nil || classification.MainMovie.Confidence != 100 {
		t.Fatalf("expected main movie at confidence 100, got %+v", classification.MainMovie)
	}
	if len(classification.Trailers) != 1 {
		t.Fatalf("expected 1 trailer, got %d", len(classification.Trailers))
	}
	poster, ok := classification.Images[SlotPoster]
	if !ok || poster.Confidence != 100 {
		t.Fatalf("expected poster at confidence 100, got %+v ok=%v", poster, ok)
	}
	fanart, ok := classification.Images[SlotFanart]
	if !ok || fanart.Confidence != 100 {
		t.Fatalf("expected fanart at confidence 100, got %+v ok=%v", fanart, ok)
	}
	if classification.TMDBID != 27205 {
		t.Fatalf("expected tmdbId 27205, got %d", classification.TMDBID)
	}
	if decision.Status != DecisionCanProcess || decision.Confidence != 100 {
		t.Fatalf("expected CAN_PROCESS at 100, got %+v", decision)
	}
}

func TestMainMovieTieWithinOneSecondYieldsNone(t *testing.T) {
	scan := &facts.DirectoryScan{
		Files: []facts.FileFact{
			{
				Filesystem: facts.FilesystemFacts{AbsPath: "/m/a.mkv", Basename: "a.mkv", Extension: ".mkv"},
				Video:      &facts.VideoFacts{HasVideo: true, DurationSeconds: 3600.4},
			},
			{
				Filesystem: facts.FilesystemFacts{AbsPath: "/m/b.mkv", Basename: "b.mkv", Extension: ".mkv"},
				Video:      &facts.VideoFacts{HasVideo: true, DurationSeconds: 3600.9},
			},
		},
	}
	classification, _ := Classify(scan, "")
	if classification.MainMovie != nil {
		t.Fatalf("expected no main movie on a sub-1s tie, got %+v", classification.MainMovie)
	}
}

func TestMainMovieAllExcludedYieldsNone(t *testing.T) {
	scan := &facts.DirectoryScan{
		Files: []facts.FileFact{
			{
				Filesystem: facts.FilesystemFacts{AbsPath: "/m/a-sample.mkv", Basename: "a-sample.mkv", Extension: ".mkv"},
				Filename:   facts.FilenameFacts{ExclusionKeyword: "sample"},
				Video:      &facts.VideoFacts{HasVideo: true, DurationSeconds: 60},
			},
		},
	}
	classification, decision := Classify(scan, "")
	if classification.MainMovie != nil {
		t.Fatalf("expected no main movie, got %+v", classification.MainMovie)
	}
	if decision.Status != DecisionManualRequired {
		t.Fatalf("expected MANUAL_REQUIRED, got %+v", decision)
	}
}
