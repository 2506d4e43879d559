package facts

import (
	"strconv"
	"strings"

	"github.com/JustinTDCT/cinevault-core/internal/hashutil"
	"github.com/JustinTDCT/cinevault-core/internal/probe"
)

// videoExtensions lists the extensions the fact gatherer probes as video (§4.1).
var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".mov": true, ".wmv": true,
	".m4v": true, ".ts": true, ".m2ts": true, ".iso": true,
}

// ProbeCache looks up a prior video probe by quick-hash, letting the
// gatherer skip a re-probe of a file it has already seen (§4.1: "a
// file's video facts may be reused across scans when its quick-hash is
// unchanged"). Callers normally back this with the cache-file repository.
type ProbeCache interface {
	LookupByQuickHash(quickHash string) (*VideoFacts, bool)
}

// ProbeVideo runs ffprobe over path and maps the result onto VideoFacts
// (§4.1). If cache is non-nil and a prior probe with the same quick-hash is
// found, the ffprobe invocation is skipped entirely.
func ProbeVideo(ff *probe.FFprobe, path string, cache ProbeCache) (*VideoFacts, error) {
	qh, err := hashutil.QuickHash(path)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if cached, ok := cache.LookupByQuickHash(qh); ok {
			cached.QuickHash = qh
			return cached, nil
		}
	}

	result, err := ff.Probe(path)
	if err != nil {
		return nil, err
	}

	vf := &VideoFacts{
		DurationSeconds: float64(result.GetDurationSeconds()),
		QuickHash:       qh,
	}

	for _, s := range result.Streams {
		switch s.CodecType {
		case "video":
			vf.HasVideo = true
			vf.VideoStreams = append(vf.VideoStreams, VideoStreamFacts{
				Codec:      s.CodecName,
				Width:      s.Width,
				Height:     s.Height,
				Bitrate:    parseInt64(s.BitRate),
				Profile:    s.Profile,
				ColorSpace: s.ColorSpace,
				HDRFormat:  classifyStreamHDR(s.ColorTransfer, s.ColorPrimaries),
			})
		case "audio":
			vf.HasAudio = true
			vf.AudioStreams = append(vf.AudioStreams, AudioStreamFacts{
				Codec:    s.CodecName,
				Channels: s.Channels,
				Language: s.Tags["language"],
			})
		case "subtitle":
			vf.SubtitleStreams = append(vf.SubtitleStreams, SubtitleStreamFacts{
				Language: s.Tags["language"],
				Forced:   s.Disposition.Forced != 0,
			})
		}
	}

	return vf, nil
}

// classifyStreamHDR applies the same transfer-function inference as
// probe.ProbeResult.ClassifyHDR, but per-stream rather than per-file.
func classifyStreamHDR(colorTransfer, colorPrimaries string) string {
	switch colorTransfer {
	case "smpte2084":
		return "HDR10"
	case "arib-std-b67":
		return "HLG"
	}
	if colorPrimaries == "bt2020" {
		return "HDR"
	}
	return ""
}

func parseInt64(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
