package handlers

import (
	"testing"

	"github.com/JustinTDCT/cinevault-core/internal/classify"
	"github.com/JustinTDCT/cinevault-core/internal/models"
)

func TestDeriveTitle(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/movies/Inception (2010)/Inception.2010.1080p.mkv", "Inception 2010 1080p"},
		{"/movies/The_Matrix/the_matrix.mp4", "the matrix"},
		{"/movies/Alien.mkv", "Alien"},
	}
	for _, c := range cases {
		if got := deriveTitle(c.path); got != c.want {
			t.Errorf("deriveTitle(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestModelSlotFor(t *testing.T) {
	if got := modelSlotFor(classify.SlotPoster); got != models.SlotPoster {
		t.Errorf("modelSlotFor(SlotPoster) = %v, want %v", got, models.SlotPoster)
	}
	if got := modelSlotFor(classify.SlotFanart); got != models.SlotFanart {
		t.Errorf("modelSlotFor(SlotFanart) = %v, want %v", got, models.SlotFanart)
	}
}
