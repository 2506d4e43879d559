package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/models"
)

// ProviderAssetRepository persists the candidate-asset catalog a provider
// search produces before any single asset is downloaded into the cache
// store (§4.7, component J): every returned (image, trailer, ...) URL is
// recorded with its score, and at most one per (entity, asset_type,
// provider) is ever marked selected (migration's unique index on
// entity_type/entity_id/asset_type/provider_url also rules out duplicate
// catalog rows for the same URL).
type ProviderAssetRepository struct {
	db *sql.DB
}

func NewProviderAssetRepository(db *sql.DB) *ProviderAssetRepository {
	return &ProviderAssetRepository{db: db}
}

const providerAssetColumns = `id, entity_type, entity_id, asset_type, provider_name, provider_url,
	analyzed, width, height, duration_seconds, content_hash, perceptual_hash,
	score, selected, rejected, downloaded, created_at, updated_at`

func scanProviderAsset(row rowScanner) (*models.ProviderAsset, error) {
	a := &models.ProviderAsset{}
	err := row.Scan(&a.ID, &a.EntityType, &a.EntityID, &a.AssetType, &a.ProviderName, &a.ProviderURL,
		&a.Analyzed, &a.Width, &a.Height, &a.DurationSeconds, &a.ContentHash, &a.PerceptualHash,
		&a.Score, &a.Selected, &a.Rejected, &a.Downloaded, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Insert records a candidate asset discovered from a provider search. A
// duplicate (entity, asset_type, provider_url) is treated as a no-op rather
// than an error, since repeated enrichment passes will re-discover the same
// candidates.
func (r *ProviderAssetRepository) Insert(a *models.ProviderAsset) error {
	a.ID = uuid.New()
	_, err := r.db.Exec(
		`INSERT INTO provider_assets
		 (id, entity_type, entity_id, asset_type, provider_name, provider_url,
		  width, height, duration_seconds, score)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (entity_type, entity_id, asset_type, provider_url) DO NOTHING`,
		a.ID, a.EntityType, a.EntityID, a.AssetType, a.ProviderName, a.ProviderURL,
		a.Width, a.Height, a.DurationSeconds, a.Score,
	)
	if err != nil {
		return corerr.Transient("insert provider asset", err)
	}
	return nil
}

// ListCandidates returns every non-rejected candidate for (entity,
// asset_type), ranked by score, so the orchestrator can pick the first
// unselected one (§4.7: "highest-scoring unrejected candidate wins").
func (r *ProviderAssetRepository) ListCandidates(entityType models.EntityType, entityID uuid.UUID, assetType models.Slot) ([]*models.ProviderAsset, error) {
	rows, err := r.db.Query(
		`SELECT `+providerAssetColumns+` FROM provider_assets
		 WHERE entity_type=$1 AND entity_id=$2 AND asset_type=$3 AND rejected = false
		 ORDER BY score DESC, created_at ASC`,
		entityType, entityID, assetType,
	)
	if err != nil {
		return nil, corerr.Transient("list provider asset candidates", err)
	}
	defer rows.Close()

	var out []*models.ProviderAsset
	for rows.Next() {
		a, err := scanProviderAsset(rows)
		if err != nil {
			return nil, corerr.Transient("scan provider asset", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// MarkAnalyzed records the dimension/duration/hash facts gathered once an
// asset is actually downloaded for scoring (§4.7).
func (r *ProviderAssetRepository) MarkAnalyzed(id uuid.UUID, width, height, durationSeconds *int, contentHash, perceptualHash *string) error {
	_, err := r.db.Exec(
		`UPDATE provider_assets SET analyzed = true, width=$1, height=$2, duration_seconds=$3,
		 content_hash=$4, perceptual_hash=$5, updated_at = now() WHERE id = $6`,
		width, height, durationSeconds, contentHash, perceptualHash, id,
	)
	if err != nil {
		return corerr.Transient("mark provider asset analyzed", err)
	}
	return nil
}

// MarkSelected flags id as the chosen candidate and, within the same
// transaction, clears the selected flag on every sibling candidate sharing
// (entity, asset_type) so at most one stays selected (§4.7 "single winner
// per slot"); siblings are not marked rejected.
func (r *ProviderAssetRepository) MarkSelected(id uuid.UUID, entityType models.EntityType, entityID uuid.UUID, assetType models.Slot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return corerr.Transient("begin select asset tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE provider_assets SET selected = false, updated_at = now()
		 WHERE entity_type=$1 AND entity_id=$2 AND asset_type=$3 AND id <> $4`,
		entityType, entityID, assetType, id,
	); err != nil {
		return corerr.Transient("clear sibling selection", err)
	}
	if _, err := tx.Exec(
		`UPDATE provider_assets SET selected = true, updated_at = now() WHERE id = $1`, id,
	); err != nil {
		return corerr.Transient("mark provider asset selected", err)
	}
	return tx.Commit()
}

func (r *ProviderAssetRepository) MarkDownloaded(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE provider_assets SET downloaded = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return corerr.Transient("mark provider asset downloaded", err)
	}
	return nil
}

func (r *ProviderAssetRepository) MarkRejected(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE provider_assets SET rejected = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return corerr.Transient("mark provider asset rejected", err)
	}
	return nil
}

func (r *ProviderAssetRepository) GetByID(id uuid.UUID) (*models.ProviderAsset, error) {
	row := r.db.QueryRow(`SELECT `+providerAssetColumns+` FROM provider_assets WHERE id = $1`, id)
	a, err := scanProviderAsset(row)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound(fmt.Sprintf("provider asset %s", id))
	}
	if err != nil {
		return nil, corerr.Transient("get provider asset", err)
	}
	return a, nil
}

// GetProviderConfig returns configuration (API key, priority, rate limit)
// for a named provider, backing internal/identify's rate-limited client
// construction.
func (r *ProviderAssetRepository) GetProviderConfig(name string) (*models.ProviderConfig, error) {
	c := &models.ProviderConfig{}
	err := r.db.QueryRow(
		`SELECT id, name, api_key, priority, rate_limit_per_min, enabled FROM provider_configs WHERE name = $1`,
		name,
	).Scan(&c.ID, &c.Name, &c.APIKey, &c.Priority, &c.RateLimitPerMin, &c.Enabled)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound(fmt.Sprintf("provider config %s", name))
	}
	if err != nil {
		return nil, corerr.Transient("get provider config", err)
	}
	return c, nil
}
