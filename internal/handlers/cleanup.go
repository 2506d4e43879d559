package handlers

import (
	"context"
	"path/filepath"
	"time"

	"github.com/JustinTDCT/cinevault-core/internal/models"
)

// HandleCleanup runs periodic housekeeping (§4.6's cleanup job): hard-delete
// movies whose soft-delete retention window has elapsed, then garbage
// collect every cache-file kind with ref_count=0 and no library referrer
// (§4.3's gc precondition).
func (d *Dependencies) HandleCleanup(ctx context.Context, job *models.Job) (any, error) {
	// MovieRepo.SoftDelete already stamps deleted_at as now+retention (I6:
	// "deleted_at, if non-null, lies strictly in the future"), so a row is
	// past retention as soon as deleted_at <= now — no second subtraction.
	expired, err := d.MovieRepo.ListExpiredSoftDeletes(time.Now())
	if err != nil {
		return nil, err
	}
	for _, m := range expired {
		if err := d.MovieRepo.HardDelete(m.ID); err != nil {
			return nil, err
		}
	}

	imageOrphans, err := d.CacheRepo.GCOrphanedImages()
	if err != nil {
		return nil, err
	}
	for _, f := range imageOrphans {
		_ = d.Store.Remove(f.Hash, filepath.Ext(f.FileName))
	}

	videoOrphans, err := d.CacheRepo.GCOrphanedVideos()
	if err != nil {
		return nil, err
	}
	for _, f := range videoOrphans {
		_ = d.Store.Remove(f.Hash, filepath.Ext(f.FileName))
	}

	audioOrphans, err := d.CacheRepo.GCOrphanedAudio()
	if err != nil {
		return nil, err
	}
	for _, f := range audioOrphans {
		_ = d.Store.Remove(f.Hash, filepath.Ext(f.FileName))
	}

	textOrphans, err := d.CacheRepo.GCOrphanedText()
	if err != nil {
		return nil, err
	}
	for _, f := range textOrphans {
		_ = d.Store.Remove(f.Hash, filepath.Ext(f.FileName))
	}

	return map[string]any{
		"hard_deleted": len(expired),
		"images_gced":  len(imageOrphans),
		"videos_gced":  len(videoOrphans),
		"audio_gced":   len(audioOrphans),
		"text_gced":    len(textOrphans),
	}, nil
}
