package classify

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JustinTDCT/cinevault-core/internal/facts"
)

// durationTieSeconds is the §4.2 "tie within 1s" threshold for the
// multiple-non-excluded-candidates main-movie rule.
const durationTieSeconds = 1.0

// Classify applies the deterministic rules of §4.2 to scan, honoring an
// optional webhookHint (a filename supplied by an upstream ingester that
// should be preferred as the main-movie candidate when it matches a
// non-excluded video). Classify is pure: identical scan and hint always
// produce an identical Classification.
func Classify(scan *facts.DirectoryScan, webhookHint string) (*Classification, *ProcessingDecision) {
	c := &Classification{Images: make(map[ImageSlot]ClassifiedFile)}

	// Priority order: disc detection (already folded into scan.DiscStructure
	// by the gatherer) → text files → videos → images → audio → legacy → unknown.
	classifyText(scan, c)
	classifyVideos(scan, c, webhookHint)
	classifyImages(scan, c)
	classifyAudio(scan, c)
	classifyLegacy(scan, c)

	decision := decide(c)
	return c, decision
}

func classifyText(scan *facts.DirectoryScan, c *Classification) {
	for _, f := range scan.Files {
		ext := f.Filesystem.Extension
		if ext == ".nfo" {
			if f.Text != nil && f.Text.IsNFO {
				confidence := 90
				if scan.DiscStructure != facts.DiscNone && isDiscNFOLocation(scan, f) {
					confidence = 100
				}
				cf := ClassifiedFile{Path: f.Filesystem.AbsPath, Kind: KindNFO, Confidence: confidence}
				c.NFO = &cf
				if f.Text.TMDBID != 0 {
					c.TMDBID = f.Text.TMDBID
				}
				if f.Text.IMDBID != "" {
					c.IMDBID = f.Text.IMDBID
				}
			} else {
				c.Unknown = append(c.Unknown, ClassifiedFile{Path: f.Filesystem.AbsPath, Kind: KindUnknown})
			}
			continue
		}
		if isSubtitleExtension(ext) {
			if f.Text != nil && f.Text.IsSubtitle {
				lang := f.Text.SubtitleLang
				c.Subtitles = append(c.Subtitles, ClassifiedFile{
					Path: f.Filesystem.AbsPath, Kind: KindSubtitle, Confidence: 90, Language: lang,
				})
			} else {
				c.Unknown = append(c.Unknown, ClassifiedFile{Path: f.Filesystem.AbsPath, Kind: KindUnknown})
			}
		}
	}
}

// isDiscNFOLocation reports whether f sits at the short-form disc-structure
// NFO location (e.g. BDMV/index.nfo) named in §4.1 seed scenario S3.
func isDiscNFOLocation(scan *facts.DirectoryScan, f facts.FileFact) bool {
	base := strings.ToLower(filepath.Base(f.Filesystem.AbsPath))
	switch scan.DiscStructure {
	case facts.DiscBDMV:
		return base == "index.nfo"
	case facts.DiscVIDEO_TS:
		return base == "video_ts.nfo"
	}
	return false
}

func isSubtitleExtension(ext string) bool {
	switch ext {
	case ".srt", ".ass", ".ssa", ".vtt", ".sub", ".idx":
		return true
	}
	return false
}

// classifyVideos applies the main-movie duration-only rule table of §4.2.
type videoCandidate struct {
	file     facts.FileFact
	excluded bool
}

func classifyVideos(scan *facts.DirectoryScan, c *Classification, webhookHint string) {
	var candidates []videoCandidate
	for _, f := range scan.Files {
		if f.Video == nil {
			continue
		}
		candidates = append(candidates, videoCandidate{file: f, excluded: f.Filename.ExclusionKeyword != ""})
	}

	for _, cand := range candidates {
		if cand.excluded {
			kind := KindTrailer
			if cand.file.Filename.ExclusionKeyword == "deleted" {
				kind = KindDeleted
			}
			cf := ClassifiedFile{Path: cand.file.Filesystem.AbsPath, Kind: kind, Confidence: 90}
			if kind == KindDeleted {
				c.Deleted = append(c.Deleted, cf)
			} else {
				c.Trailers = append(c.Trailers, cf)
			}
		}
	}

	if len(candidates) == 0 {
		return
	}

	if webhookHint != "" {
		for _, cand := range candidates {
			if !cand.excluded && filepath.Base(cand.file.Filesystem.AbsPath) == webhookHint {
				setMainMovie(c, cand.file, 100)
				return
			}
		}
	}

	var nonExcluded []videoCandidate
	for _, cand := range candidates {
		if !cand.excluded {
			nonExcluded = append(nonExcluded, cand)
		}
	}

	switch {
	case len(candidates) == 1:
		if !candidates[0].excluded {
			setMainMovie(c, candidates[0].file, 100)
		}
	case len(nonExcluded) == 1:
		setMainMovie(c, nonExcluded[0].file, 95)
	case len(nonExcluded) > 1:
		longest, runnerUp := pickLongest(nonExcluded)
		if longest == nil {
			return
		}
		if runnerUp != nil && math.Abs(longest.file.Video.DurationSeconds-runnerUp.file.Video.DurationSeconds) <= durationTieSeconds {
			return // tie within 1s → none
		}
		setMainMovie(c, longest.file, 90)
	}
}

func pickLongest(cands []videoCandidate) (*videoCandidate, *videoCandidate) {
	if len(cands) == 0 {
		return nil, nil
	}
	bestIdx := 0
	for i := range cands {
		if cands[i].file.Video.DurationSeconds > cands[bestIdx].file.Video.DurationSeconds {
			bestIdx = i
		}
	}
	var runnerUp *videoCandidate
	for i := range cands {
		if i == bestIdx {
			continue
		}
		if runnerUp == nil || cands[i].file.Video.DurationSeconds > runnerUp.file.Video.DurationSeconds {
			runnerUp = &cands[i]
		}
	}
	return &cands[bestIdx], runnerUp
}

func setMainMovie(c *Classification, f facts.FileFact, confidence int) {
	c.MainMovie = &ClassifiedFile{Path: f.Filesystem.AbsPath, Kind: KindMainMovie, Confidence: confidence}
}

// classifyImages applies the two-tier slot-matching rule of §4.2.
func classifyImages(scan *facts.DirectoryScan, c *Classification) {
	var baseName string
	if c.MainMovie != nil {
		baseName = strings.TrimSuffix(filepath.Base(c.MainMovie.Path), filepath.Ext(c.MainMovie.Path))
	}

	for _, f := range scan.Files {
		if f.Image == nil {
			continue
		}
		slot, confidence, ok := matchImageSlot(f, baseName)
		if !ok {
			c.Unknown = append(c.Unknown, ClassifiedFile{Path: f.Filesystem.AbsPath, Kind: KindUnknown})
			continue
		}
		existing, has := c.Images[slot]
		cf := ClassifiedFile{Path: f.Filesystem.AbsPath, Kind: KindImage, Slot: slot, Confidence: confidence}
		if !has || confidence > existing.Confidence {
			c.Images[slot] = cf
		}
	}
}

// matchImageSlot implements the exact-then-keyword matching tiers of §4.2.
func matchImageSlot(f facts.FileFact, baseName string) (ImageSlot, int, bool) {
	base := strings.ToLower(filepath.Base(f.Filesystem.AbsPath))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	lowerBase := strings.ToLower(baseName)

	for _, slot := range AllImageSlots {
		if isExactSlotFilename(stem, lowerBase, slot) {
			spec := slotSpecs[slot]
			if spec.ValidatesDimensions(f.Image.Width, f.Image.Height) {
				return slot, 100, true
			}
			return slot, 85, true
		}
	}

	for _, slot := range AllImageSlots {
		if strings.Contains(stem, string(slot)) {
			confidence := 60
			spec := slotSpecs[slot]
			if spec.ValidatesDimensions(f.Image.Width, f.Image.Height) {
				confidence += 20
			}
			if confidence >= 80 {
				return slot, confidence, true
			}
		}
	}

	return "", 0, false
}

// isExactSlotFilename checks the §4.2 exact-match name families: "{base}-S",
// bare "S", the folder/backdrop/logo aliases, and numbered variants "S1".."S10".
func isExactSlotFilename(stem, lowerBase string, slot ImageSlot) bool {
	s := string(slot)
	if lowerBase != "" && stem == lowerBase+"-"+s {
		return true
	}
	if stem == s {
		return true
	}
	switch slot {
	case SlotPoster:
		if stem == "folder" {
			return true
		}
	case SlotFanart:
		if stem == "backdrop" {
			return true
		}
	case SlotClearlogo:
		if stem == "logo" {
			return true
		}
	}
	for n := 1; n <= 10; n++ {
		if stem == s+strconv.Itoa(n) {
			return true
		}
	}
	return false
}

// classifyAudio applies the §4.2 "exact basename theme" rule.
func classifyAudio(scan *facts.DirectoryScan, c *Classification) {
	for _, f := range scan.Files {
		if !f.IsAudio {
			continue
		}
		stem := strings.ToLower(strings.TrimSuffix(f.Filesystem.Basename, f.Filesystem.Extension))
		if stem == "theme" {
			cf := ClassifiedFile{Path: f.Filesystem.AbsPath, Kind: KindTheme, Confidence: 100}
			c.Theme = &cf
		} else {
			c.Unknown = append(c.Unknown, ClassifiedFile{Path: f.Filesystem.AbsPath, Kind: KindUnknown})
		}
	}
}

// classifyLegacy flags extrafanarts/extrathumbs members as unknown,
// carrying them forward for eventual removal rather than silently dropping
// them (§4.1: "flagged for eventual removal").
func classifyLegacy(scan *facts.DirectoryScan, c *Classification) {
	for _, f := range scan.Files {
		if f.LegacyDir == "" {
			continue
		}
		c.Unknown = append(c.Unknown, ClassifiedFile{Path: f.Filesystem.AbsPath, Kind: KindUnknown})
	}
}

// decide applies the binary processing-decision gate of §4.2.
func decide(c *Classification) *ProcessingDecision {
	var unknowns []string
	for _, u := range c.Unknown {
		unknowns = append(unknowns, u.Path)
	}

	if c.MainMovie == nil || c.TMDBID == 0 {
		return &ProcessingDecision{Status: DecisionManualRequired, Confidence: 0, Unknowns: unknowns}
	}
	if len(unknowns) > 0 {
		return &ProcessingDecision{Status: DecisionCanProcessUnknowns, Confidence: 80, Unknowns: unknowns}
	}
	return &ProcessingDecision{Status: DecisionCanProcess, Confidence: 100, Unknowns: unknowns}
}
