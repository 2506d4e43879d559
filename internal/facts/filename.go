package facts

import (
	"regexp"
	"strconv"
	"strings"
)

// Filename regex families (§4.1), in the teacher's style of package-level
// compiled patterns (internal/scanner/filename_parser.go, internal/scanner/scanner.go).
var (
	yearPattern = regexp.MustCompile(`[.\s\(\[_-](19\d{2}|20\d{2})[.\s\)\]_-]`)

	resolutionPattern = regexp.MustCompile(`(?i)\b(480p|720p|1080p|2160p|4k|uhd|hd)\b`)

	codecPattern = regexp.MustCompile(`(?i)\b(x264|x265|h\.?264|h\.?265|hevc|avc)\b`)

	qualityTagPatterns = []string{
		`(?i)\bblu-?ray\b`, `(?i)\bbluray\b`, `(?i)\bremux\b`, `(?i)\bweb-?rip\b`,
		`(?i)\bweb-?dl\b`, `(?i)\bhdtv\b`, `(?i)\bdvdrip\b`, `(?i)\bcamrip\b`,
	}
	qualityTagRegexps = compileAll(qualityTagPatterns)

	audioTagPatterns = []string{
		`(?i)\bdts\b`, `(?i)\batmos\b`, `(?i)\btruehd\b`, `(?i)\bdd5\.?1\b`,
		`(?i)\bac3\b`, `(?i)\beac3\b`, `(?i)\bflac\b`,
	}
	audioTagRegexps = compileAll(audioTagPatterns)

	editionPattern = regexp.MustCompile(`(?i)\{([^}]+(?:cut|edition|version)[^}]*)\}|\((director'?s cut|extended|unrated|theatrical|ultimate edition)\)`)
)

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// exclusionKeywords are the basenames that mark a video as a non-feature
// extra (§4.1). "sample" additionally matches as a bare substring; all
// others require hyphen- or underscore-separated token context, to avoid
// false positives like "The Scene of the Crime.mkv".
var exclusionKeywords = []string{
	"trailer", "sample", "behindthescenes", "deleted", "featurette",
	"interview", "scene", "short",
}

// detectExclusionKeyword applies the three detection patterns from §4.1:
// "-kw" (hyphen-separated), "_kw" (underscore-separated), and for "sample"
// only, a bare substring match.
func detectExclusionKeyword(basenameLower string) string {
	for _, kw := range exclusionKeywords {
		if strings.Contains(basenameLower, "-"+kw) {
			return kw
		}
		if strings.Contains(basenameLower, "_"+kw) {
			return kw
		}
		if kw == "sample" && strings.Contains(basenameLower, kw) {
			return kw
		}
	}
	return ""
}

// ParseFilenameFacts extracts the filename-derived tokens described in
// §4.1. basename excludes the directory but includes the extension.
func ParseFilenameFacts(basename string) FilenameFacts {
	lower := strings.ToLower(basename)
	var f FilenameFacts

	if m := yearPattern.FindStringSubmatch(" " + basename + " "); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			f.Year = y
		}
	}
	if m := resolutionPattern.FindString(basename); m != "" {
		f.Resolution = strings.ToUpper(m)
	}
	if m := codecPattern.FindString(basename); m != "" {
		f.Codec = strings.ToUpper(strings.ReplaceAll(m, ".", ""))
	}
	for _, re := range qualityTagRegexps {
		if re.MatchString(basename) {
			f.QualityTags = append(f.QualityTags, re.FindString(basename))
		}
	}
	for _, re := range audioTagRegexps {
		if re.MatchString(basename) {
			f.AudioTags = append(f.AudioTags, re.FindString(basename))
		}
	}
	if m := editionPattern.FindStringSubmatch(basename); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				f.Edition = g
				break
			}
		}
	}

	f.ExclusionKeyword = detectExclusionKeyword(lower)
	return f
}
