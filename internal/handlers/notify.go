package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/models"
)

// NotifyKodiPayload is the job payload for a notify-kodi job: a published
// movie whose library clients should be told to rescan.
type NotifyKodiPayload struct {
	MovieID string `json:"movie_id"`
}

var notifyHTTPClient = &http.Client{Timeout: 10 * time.Second}

func rendezvousHash(s string) uint64 {
	return xxhash.Sum64String(s)
}

// HandleNotifyKodi tells one player per group to rescan its library for
// movie's directory, using rendezvous hashing (keyed on movie id) to spread
// notification load deterministically across a group's players rather than
// always hitting the first one (§4.6: "notify-kodi" fans out per player
// group, not per individual player).
func (d *Dependencies) HandleNotifyKodi(ctx context.Context, job *models.Job) (any, error) {
	var payload NotifyKodiPayload
	if err := unmarshalPayload(job.Payload, &payload); err != nil {
		return nil, err
	}
	movieID, err := parseUUID(payload.MovieID)
	if err != nil {
		return nil, err
	}
	movie, err := d.MovieRepo.GetByID(movieID)
	if err != nil {
		return nil, err
	}

	groups, err := d.PlayerRepo.ListGroups()
	if err != nil {
		return nil, err
	}

	notified := make([]string, 0, len(groups))
	for _, group := range groups {
		players, err := d.PlayerRepo.ListPlayersInGroup(group.ID)
		if err != nil {
			return nil, err
		}
		if len(players) == 0 {
			continue
		}

		names := make([]string, len(players))
		byName := make(map[string]*models.MediaPlayer, len(players))
		for i, p := range players {
			names[i] = p.ID.String()
			byName[p.ID.String()] = p
		}
		chosen := byName[rendezvous.New(names, rendezvousHash).Lookup(movie.ID.String())]
		if chosen == nil {
			continue
		}

		remotePath, err := d.PlayerRepo.PathMapping(chosen.ID, movie.FilePath)
		if err != nil {
			return nil, err
		}
		if err := notifyPlayer(ctx, chosen, remotePath); err != nil {
			return nil, err
		}
		notified = append(notified, chosen.Name)
	}

	return map[string]any{"movie_id": movie.ID.String(), "notified_players": notified}, nil
}

// notifyPlayer issues a Kodi JSON-RPC VideoLibrary.Scan call scoped to
// remotePath's directory.
func notifyPlayer(ctx context.Context, player *models.MediaPlayer, remotePath string) error {
	body := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "VideoLibrary.Scan",
		"params":  map[string]any{"directory": remotePath},
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return corerr.Unknown("encode kodi notify payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, player.BaseURL+"/jsonrpc", bytes.NewReader(encoded))
	if err != nil {
		return corerr.Unknown("build kodi notify request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if player.APIKey != nil && *player.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+*player.APIKey)
	}

	resp, err := notifyHTTPClient.Do(req)
	if err != nil {
		return corerr.Transient("notify kodi player "+player.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return corerr.Transient("kodi player rejected notify", fmt.Errorf("%s: status %d", player.Name, resp.StatusCode))
	}
	return nil
}
