package facts

import "testing"

func TestParseFilenameFacts(t *testing.T) {
	cases := []struct {
		name           string
		basename       string
		wantYear       int
		wantResolution string
		wantExclusion  string
	}{
		{
			name:           "canonical movie with year and resolution",
			basename:       "Inception (2010) 1080p BluRay x264.mkv",
			wantYear:       2010,
			wantResolution: "1080P",
		},
		{
			name:          "hyphen-separated trailer keyword",
			basename:      "Inception (2010)-trailer.mkv",
			wantYear:      2010,
			wantExclusion: "trailer",
		},
		{
			name:          "bare substring sample match",
			basename:      "moviesample.mkv",
			wantExclusion: "sample",
		},
		{
			name:     "no exclusion for plain title containing keyword as whole word",
			basename: "The Scene of the Crime.mkv",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseFilenameFacts(tc.basename)
			if got.Year != tc.wantYear {
				t.Errorf("Year = %d, want %d", got.Year, tc.wantYear)
			}
			if tc.wantResolution != "" && got.Resolution != tc.wantResolution {
				t.Errorf("Resolution = %q, want %q", got.Resolution, tc.wantResolution)
			}
			if got.ExclusionKeyword != tc.wantExclusion {
				t.Errorf("ExclusionKeyword = %q, want %q", got.ExclusionKeyword, tc.wantExclusion)
			}
		})
	}
}

func TestDetectExclusionKeywordRequiresSeparator(t *testing.T) {
	if kw := detectExclusionKeyword("the scene of the crime"); kw != "" {
		t.Errorf("expected no match, got %q", kw)
	}
	if kw := detectExclusionKeyword("movie-trailer"); kw != "trailer" {
		t.Errorf("expected trailer match, got %q", kw)
	}
}
