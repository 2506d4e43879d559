package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/models"
)

// MediaPlayerRepository backs the notify-kodi job handler's target
// resolution: a media-player-group holds one or more players (e.g. a
// living-room Kodi and a bedroom Kodi pointed at the same library through
// different mount paths), and a rendezvous hash picks which player within
// a group handles a given movie consistently across runs (SPEC_FULL
// DOMAIN STACK, dgryski/go-rendezvous).
type MediaPlayerRepository struct {
	db *sql.DB
}

func NewMediaPlayerRepository(db *sql.DB) *MediaPlayerRepository {
	return &MediaPlayerRepository{db: db}
}

func (r *MediaPlayerRepository) ListGroups() ([]*models.MediaPlayerGroup, error) {
	rows, err := r.db.Query(`SELECT id, name FROM media_player_groups ORDER BY name`)
	if err != nil {
		return nil, corerr.Transient("list media player groups", err)
	}
	defer rows.Close()

	var out []*models.MediaPlayerGroup
	for rows.Next() {
		g := &models.MediaPlayerGroup{}
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, corerr.Transient("scan media player group", err)
		}
		out = append(out, g)
	}
	return out, nil
}

// ListPlayersInGroup returns every player belonging to groupID, in a stable
// order so rendezvous routing is deterministic across calls.
func (r *MediaPlayerRepository) ListPlayersInGroup(groupID uuid.UUID) ([]*models.MediaPlayer, error) {
	rows, err := r.db.Query(
		`SELECT id, group_id, name, base_url, api_key FROM media_players WHERE group_id = $1 ORDER BY name`,
		groupID,
	)
	if err != nil {
		return nil, corerr.Transient("list players in group", err)
	}
	defer rows.Close()

	var out []*models.MediaPlayer
	for rows.Next() {
		p := &models.MediaPlayer{}
		if err := rows.Scan(&p.ID, &p.GroupID, &p.Name, &p.BaseURL, &p.APIKey); err != nil {
			return nil, corerr.Transient("scan media player", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// PathMapping translates a locally-published file path into the path a
// given player's filesystem (or remote share) sees it at, e.g. a
// bind-mounted NAS path differing between the scanner host and the player.
func (r *MediaPlayerRepository) PathMapping(playerID uuid.UUID, localPath string) (string, error) {
	rows, err := r.db.Query(
		`SELECT local_path, remote_path FROM player_path_mappings WHERE player_id = $1`,
		playerID,
	)
	if err != nil {
		return "", corerr.Transient("list path mappings", err)
	}
	defer rows.Close()

	for rows.Next() {
		var local, remote string
		if err := rows.Scan(&local, &remote); err != nil {
			return "", corerr.Transient("scan path mapping", err)
		}
		if len(localPath) >= len(local) && localPath[:len(local)] == local {
			return remote + localPath[len(local):], nil
		}
	}
	return localPath, nil
}

// UpdateConnection changes a player's base URL and API key, the two fields
// a client-side mutation is allowed to touch (§4.7 updatePlayer).
func (r *MediaPlayerRepository) UpdateConnection(id uuid.UUID, baseURL string, apiKey *string) error {
	res, err := r.db.Exec(
		`UPDATE media_players SET base_url = $1, api_key = $2 WHERE id = $3`,
		baseURL, apiKey, id,
	)
	if err != nil {
		return corerr.Transient("update player connection", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return corerr.NotFound(fmt.Sprintf("media player %s", id))
	}
	return nil
}

func (r *MediaPlayerRepository) GetGroupByID(id uuid.UUID) (*models.MediaPlayerGroup, error) {
	g := &models.MediaPlayerGroup{}
	err := r.db.QueryRow(`SELECT id, name FROM media_player_groups WHERE id = $1`, id).Scan(&g.ID, &g.Name)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound(fmt.Sprintf("media player group %s", id))
	}
	if err != nil {
		return nil, corerr.Transient("get media player group", err)
	}
	return g, nil
}
