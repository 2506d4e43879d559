package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/models"
)

// LibraryRepository is the storage layer for libraries (§3, §4.1): the root
// scan unit with enable/auto-enrich/auto-publish toggles and a cron-style
// scan interval. Grounded on the teacher's internal/repository one-file-
// per-aggregate layout; the Library shape itself is rewritten against the
// simplified model (no media-type/access-level/season-grouping columns).
type LibraryRepository struct {
	db *sql.DB
}

func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

const libraryColumns = `id, name, root_path, kind, enabled, auto_enrich, auto_publish,
	scan_interval, last_scan_at, created_at, updated_at`

func scanLibrary(row rowScanner) (*models.Library, error) {
	l := &models.Library{}
	var lastScan sql.NullTime
	err := row.Scan(&l.ID, &l.Name, &l.RootPath, &l.Kind, &l.Enabled, &l.AutoEnrich, &l.AutoPublish,
		&l.ScanInterval, &lastScan, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastScan.Valid {
		l.LastScanAt = &lastScan.Time
	}
	return l, nil
}

// Create inserts a new library.
func (r *LibraryRepository) Create(l *models.Library) error {
	l.ID = uuid.New()
	_, err := r.db.Exec(
		`INSERT INTO libraries (id, name, root_path, kind, enabled, auto_enrich, auto_publish, scan_interval)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		l.ID, l.Name, l.RootPath, l.Kind, l.Enabled, l.AutoEnrich, l.AutoPublish, l.ScanInterval,
	)
	if err != nil {
		return corerr.Transient("insert library", err)
	}
	return nil
}

func (r *LibraryRepository) GetByID(id uuid.UUID) (*models.Library, error) {
	row := r.db.QueryRow(`SELECT `+libraryColumns+` FROM libraries WHERE id = $1`, id)
	l, err := scanLibrary(row)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound(fmt.Sprintf("library %s", id))
	}
	if err != nil {
		return nil, corerr.Transient("get library", err)
	}
	return l, nil
}

// ListEnabled returns every enabled library, used at startup to seed the
// per-library scan schedules (§4.1: "a library's scan_interval ... drives
// a scheduled directory-scan job").
func (r *LibraryRepository) ListEnabled() ([]*models.Library, error) {
	rows, err := r.db.Query(`SELECT ` + libraryColumns + ` FROM libraries WHERE enabled = true ORDER BY name`)
	if err != nil {
		return nil, corerr.Transient("list enabled libraries", err)
	}
	defer rows.Close()

	var out []*models.Library
	for rows.Next() {
		l, err := scanLibrary(rows)
		if err != nil {
			return nil, corerr.Transient("scan library", err)
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *LibraryRepository) List() ([]*models.Library, error) {
	rows, err := r.db.Query(`SELECT ` + libraryColumns + ` FROM libraries ORDER BY name`)
	if err != nil {
		return nil, corerr.Transient("list libraries", err)
	}
	defer rows.Close()

	var out []*models.Library
	for rows.Next() {
		l, err := scanLibrary(rows)
		if err != nil {
			return nil, corerr.Transient("scan library", err)
		}
		out = append(out, l)
	}
	return out, nil
}

// Update persists the mutable fields of an existing library row.
func (r *LibraryRepository) Update(l *models.Library) error {
	res, err := r.db.Exec(
		`UPDATE libraries SET name=$1, root_path=$2, kind=$3, enabled=$4, auto_enrich=$5,
		 auto_publish=$6, scan_interval=$7, updated_at=now() WHERE id=$8`,
		l.Name, l.RootPath, l.Kind, l.Enabled, l.AutoEnrich, l.AutoPublish, l.ScanInterval, l.ID,
	)
	if err != nil {
		return corerr.Transient("update library", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return corerr.NotFound(fmt.Sprintf("library %s", l.ID))
	}
	return nil
}

// TouchScanned records the completion of a directory scan (§4.1).
func (r *LibraryRepository) TouchScanned(id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(`UPDATE libraries SET last_scan_at = $1, updated_at = now() WHERE id = $2`, at, id)
	if err != nil {
		return corerr.Transient("touch library scanned", err)
	}
	return nil
}

func (r *LibraryRepository) Delete(id uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM libraries WHERE id = $1`, id)
	if err != nil {
		return corerr.Transient("delete library", err)
	}
	return nil
}
