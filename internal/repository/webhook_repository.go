package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/models"
)

// WebhookRepository records inbound Radarr/Sonarr/Lidarr webhook deliveries
// (§6) and the job each one spawned, so a delivery's downstream effect can
// be traced from the activity log back to the raw payload that triggered it.
type WebhookRepository struct {
	db *sql.DB
}

func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// Insert records a received webhook delivery and returns its id.
func (r *WebhookRepository) Insert(source, eventType string, payload []byte) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Exec(
		`INSERT INTO webhook_events (id, source, event_type, payload) VALUES ($1,$2,$3,$4)`,
		id, source, eventType, payload,
	)
	if err != nil {
		return uuid.Nil, corerr.Transient("insert webhook event", err)
	}
	return id, nil
}

// AttachJob records which job a webhook delivery resulted in, if any.
func (r *WebhookRepository) AttachJob(id uuid.UUID, jobID uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE webhook_events SET job_id = $1 WHERE id = $2`, jobID, id)
	if err != nil {
		return corerr.Transient("attach job to webhook event", err)
	}
	return nil
}

func (r *WebhookRepository) GetByID(id uuid.UUID) (*models.WebhookEvent, error) {
	row := r.db.QueryRow(
		`SELECT id, source, event_type, payload, job_id, received_at FROM webhook_events WHERE id = $1`, id,
	)
	e := &models.WebhookEvent{}
	err := row.Scan(&e.ID, &e.Source, &e.EventType, &e.Payload, &e.JobID, &e.ReceivedAt)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound("webhook event not found")
	}
	if err != nil {
		return nil, corerr.Transient("get webhook event", err)
	}
	return e, nil
}

// ListSince returns deliveries received at or after since, newest first,
// for an activity feed.
func (r *WebhookRepository) ListSince(since time.Time, limit int) ([]*models.WebhookEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, source, event_type, payload, job_id, received_at FROM webhook_events
		 WHERE received_at >= $1 ORDER BY received_at DESC LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, corerr.Transient("list webhook events", err)
	}
	defer rows.Close()

	var out []*models.WebhookEvent
	for rows.Next() {
		e := &models.WebhookEvent{}
		if err := rows.Scan(&e.ID, &e.Source, &e.EventType, &e.Payload, &e.JobID, &e.ReceivedAt); err != nil {
			return nil, corerr.Transient("scan webhook event", err)
		}
		out = append(out, e)
	}
	return out, nil
}
