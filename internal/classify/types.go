// Package classify implements the directory classifier (spec §4.2,
// component C): deterministic rules that turn a facts.DirectoryScan into a
// Classification and a ProcessingDecision. Grounded on the teacher's
// internal/scanner classification helpers, generalized from its ad hoc
// video/subtitle split into the full slot taxonomy of §4.2.
package classify

// Kind enumerates the buckets a file can be classified into.
type Kind string

const (
	KindMainMovie Kind = "main_movie"
	KindTrailer   Kind = "trailer"
	KindDeleted   Kind = "deleted_scene"
	KindImage     Kind = "image"
	KindNFO       Kind = "nfo"
	KindSubtitle  Kind = "subtitle"
	KindTheme     Kind = "theme"
	KindUnknown   Kind = "unknown"
)

// ImageSlot enumerates the typed image placements named in §4.2.
type ImageSlot string

const (
	SlotPoster    ImageSlot = "poster"
	SlotFanart    ImageSlot = "fanart"
	SlotBanner    ImageSlot = "banner"
	SlotClearlogo ImageSlot = "clearlogo"
	SlotClearart  ImageSlot = "clearart"
	SlotDiscart   ImageSlot = "discart"
	SlotLandscape ImageSlot = "landscape"
	SlotThumb     ImageSlot = "thumb"
	SlotKeyart    ImageSlot = "keyart"
)

// AllImageSlots lists every slot in the order §4.2 names them.
var AllImageSlots = []ImageSlot{
	SlotPoster, SlotFanart, SlotBanner, SlotClearlogo, SlotClearart,
	SlotDiscart, SlotLandscape, SlotThumb, SlotKeyart,
}

// SlotSpec is the dimension validation rule for one image slot (§4.2).
type SlotSpec struct {
	AspectMin float64
	AspectMax float64
	MinWidth  int
	MinHeight int
}

// slotSpecs is keyed by ImageSlot; see the §4.2 dimension table.
var slotSpecs = map[ImageSlot]SlotSpec{
	SlotPoster:    {0.65, 0.72, 500, 700},
	SlotFanart:    {1.70, 1.85, 1280, 720},
	SlotBanner:    {4.5, 6.0, 758, 140},
	SlotClearlogo: {1.5, 4.0, 400, 100},
	SlotClearart:  {1.5, 3.0, 500, 200},
	SlotDiscart:   {0.95, 1.05, 500, 500},
	SlotLandscape: {1.70, 1.85, 1280, 720},
	SlotThumb:     {1.3, 1.5, 400, 300},
	SlotKeyart:    {0.65, 0.72, 500, 700},
}

// dimensionTolerance is how far below a slot's minimum width/height §4.2's
// "tolerated to 90% of minimums" still allows.
const dimensionTolerance = 0.90

// ValidatesDimensions reports whether w x h satisfies slot's spec, to 90%
// of its stated minimums (§4.2).
func (s SlotSpec) ValidatesDimensions(w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	aspect := float64(w) / float64(h)
	if aspect < s.AspectMin || aspect > s.AspectMax {
		return false
	}
	if float64(w) < float64(s.MinWidth)*dimensionTolerance {
		return false
	}
	if float64(h) < float64(s.MinHeight)*dimensionTolerance {
		return false
	}
	return true
}

// ClassifiedFile is one scanned file with its assigned kind and confidence.
type ClassifiedFile struct {
	Path       string
	Kind       Kind
	Slot       ImageSlot // only set when Kind == KindImage
	Confidence int
	Language   string // subtitle language, if Kind == KindSubtitle
}

// Classification is the complete output of classifying one directory scan.
type Classification struct {
	MainMovie  *ClassifiedFile
	Trailers   []ClassifiedFile
	Deleted    []ClassifiedFile
	Images     map[ImageSlot]ClassifiedFile
	NFO        *ClassifiedFile
	Subtitles  []ClassifiedFile
	Theme      *ClassifiedFile
	Unknown    []ClassifiedFile
	TMDBID     int
	IMDBID     string
}

// DecisionStatus is the processing-decision gate output (§4.2).
type DecisionStatus string

const (
	DecisionCanProcess         DecisionStatus = "CAN_PROCESS"
	DecisionCanProcessUnknowns DecisionStatus = "CAN_PROCESS_WITH_UNKNOWNS"
	DecisionManualRequired     DecisionStatus = "MANUAL_REQUIRED"
)

// ProcessingDecision is the binary gate result over a Classification (§4.2).
type ProcessingDecision struct {
	Status     DecisionStatus
	Confidence int
	Unknowns   []string
}
