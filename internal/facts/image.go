package facts

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// imageExtensions lists the extensions the fact gatherer probes as images (§4.1).
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".tiff": true,
}

// ProbeImage decodes just the header of path to recover its dimensions and
// format (§4.1). HasAlpha is inferred from the format alone: PNG, GIF and
// WebP are reported as having alpha, every other format as not; the pixel
// data is not inspected. A decode failure is reported
// to the caller, who treats it as a per-file probe failure (the scan itself
// does not fail).
func ProbeImage(path string) (*ImageFacts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	hasAlpha := format == "png" || format == "gif" || format == "webp"

	facts := &ImageFacts{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Format:   format,
		HasAlpha: hasAlpha,
	}
	if cfg.Height > 0 {
		facts.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
	}
	return facts, nil
}
