package facts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/probe"
)

// audioExtensions covers theme-song / unknown-audio sidecars. §4.1 treats
// audio facts as trivial (exact-basename rule lives in the classifier), so
// no per-file AudioFacts record exists — only the IsAudio flag on FileFact.
var audioExtensions = map[string]bool{
	".mp3": true, ".flac": true, ".m4a": true, ".ogg": true, ".wav": true,
}

// Gatherer walks a movie directory and produces the per-file fact records
// the classifier (component C) reasons over. Grounded on the teacher's
// internal/scanner.Scanner directory walk, generalized from the teacher's
// flat "is this a video" check into the full filesystem/filename/image/
// video/text fact taxonomy of §4.1.
type Gatherer struct {
	FFprobe    *probe.FFprobe
	ProbeCache ProbeCache
}

// NewGatherer constructs a Gatherer. probeCache may be nil, disabling the
// quick-hash probe cache.
func NewGatherer(ffprobePath string, cache ProbeCache) *Gatherer {
	return &Gatherer{
		FFprobe:    probe.NewFFprobe(ffprobePath),
		ProbeCache: cache,
	}
}

// GatherAllFacts walks dirPath and returns its DirectoryScan (§4.1).
// Filesystem errors on the directory itself are fatal; per-file probe
// failures are not and simply leave the corresponding sub-record nil.
func (g *Gatherer) GatherAllFacts(dirPath string) (*DirectoryScan, error) {
	started := time.Now()

	if _, err := os.ReadDir(dirPath); err != nil {
		return nil, corerr.Transient(fmt.Sprintf("read dir %s", dirPath), err)
	}

	scan := &DirectoryScan{
		DirPath:       dirPath,
		DiscStructure: DetectDiscStructure(dirPath),
		ScanStartedAt: started,
	}

	err := filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, _ := filepath.Rel(dirPath, path)
		legacyDir := legacyDirOf(rel)

		fact, ferr := g.gatherFileFact(path)
		if ferr != nil {
			// per-file filesystem stat failure is itself non-fatal; skip the file.
			return nil
		}
		fact.LegacyDir = legacyDir
		scan.Files = append(scan.Files, fact)

		if legacyDir == "extrafanarts" {
			scan.LegacyInfo.ExtraFanartsFiles = append(scan.LegacyInfo.ExtraFanartsFiles, rel)
		} else if legacyDir == "extrathumbs" {
			scan.LegacyInfo.ExtraThumbsFiles = append(scan.LegacyInfo.ExtraThumbsFiles, rel)
		}
		return nil
	})
	if err != nil {
		return nil, corerr.Transient(fmt.Sprintf("walk %s", dirPath), err)
	}

	applyContextPass(scan.Files)

	scan.ScanCompletedAt = time.Now()
	scan.ProcessingMs = scan.ScanCompletedAt.Sub(started).Milliseconds()
	return scan, nil
}

// legacyDirOf reports which legacy asset directory (if any) rel sits under.
func legacyDirOf(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return ""
	}
	switch parts[0] {
	case "extrafanarts":
		return "extrafanarts"
	case "extrathumbs":
		return "extrathumbs"
	}
	return ""
}

// DetectDiscStructure checks for the two optical-disc layouts named in §4.1.
func DetectDiscStructure(dirPath string) DiscStructure {
	if fileExists(filepath.Join(dirPath, "BDMV", "index.bdmv")) {
		return DiscBDMV
	}
	if fileExists(filepath.Join(dirPath, "VIDEO_TS", "VIDEO_TS.IFO")) {
		return DiscVIDEO_TS
	}
	return DiscNone
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// birthTime returns a best-effort file creation time. The Go standard
// library exposes no portable birthtime field on os.FileInfo; since ext4
// and most CI filesystems don't surface one via stat(2) either, mtime is
// used as the stand-in.
func birthTime(info os.FileInfo) time.Time {
	return info.ModTime()
}

// gatherFileFact builds the full per-file record for path (§4.1).
func (g *Gatherer) gatherFileFact(path string) (FileFact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFact{}, err
	}

	basename := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(basename))

	fact := FileFact{
		Filesystem: FilesystemFacts{
			AbsPath:   path,
			Basename:  basename,
			Extension: ext,
			Size:      info.Size(),
			ParentDir: filepath.Dir(path),
			ModTime:   info.ModTime(),
			BirthTime: birthTime(info),
		},
		Filename: ParseFilenameFacts(basename),
	}

	switch {
	case imageExtensions[ext]:
		if imgFacts, err := ProbeImage(path); err == nil {
			fact.Image = imgFacts
		}
	case videoExtensions[ext]:
		if vidFacts, err := ProbeVideo(g.FFprobe, path, g.ProbeCache); err == nil {
			fact.Video = vidFacts
		}
	case textExtensions[ext]:
		if txtFacts, err := ProbeText(path); err == nil {
			fact.Text = txtFacts
		}
	case audioExtensions[ext]:
		fact.IsAudio = true
	}

	return fact, nil
}

// applyContextPass assigns size-rank and, among videos, duration-rank and
// isLongestVideo (§4.1: "After per-file facts, a context pass...").
func applyContextPass(files []FileFact) {
	bySize := make([]int, len(files))
	for i := range files {
		bySize[i] = i
	}
	sort.Slice(bySize, func(a, b int) bool {
		return files[bySize[a]].Filesystem.Size > files[bySize[b]].Filesystem.Size
	})
	for rank, idx := range bySize {
		files[idx].SizeRank = rank + 1
	}

	var videoIdx []int
	for i := range files {
		if files[i].Video != nil {
			videoIdx = append(videoIdx, i)
		}
	}
	sort.Slice(videoIdx, func(a, b int) bool {
		return files[videoIdx[a]].Video.DurationSeconds > files[videoIdx[b]].Video.DurationSeconds
	})
	for rank, idx := range videoIdx {
		files[idx].DurationRank = rank + 1
		if rank == 0 {
			files[idx].IsLongestVideo = true
		}
	}
}
