// Package repository is the typed wrapper over the relational store (spec
// §4.5, component F): one file per aggregate, raw parameterized SQL over
// *sql.DB, matching the teacher's internal/repository package layout.
package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/models"
	"github.com/google/uuid"
)

// JobRepository is the DB-backed priority queue's storage layer (§4.6).
// The queue package owns scheduling policy; this file owns SQL only.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// EnqueueOptions mirrors the optional arguments to enqueue() in §4.6.
type EnqueueOptions struct {
	Priority   int
	MaxRetries int
	DependsOn  []uuid.UUID
	Manual     bool
}

// DefaultEnqueueOptions matches §4.6's defaults (priority=5, maxRetries=3).
func DefaultEnqueueOptions() EnqueueOptions {
	return EnqueueOptions{Priority: 5, MaxRetries: 3}
}

// Enqueue inserts a new pending job and its dependency rows in one
// transaction (§4.5: "Transactions wrap multi-step operations").
func (r *JobRepository) Enqueue(jobType string, payload []byte, opts EnqueueOptions) (uuid.UUID, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return uuid.Nil, corerr.Transient("begin enqueue tx", err)
	}
	defer tx.Rollback()

	id := uuid.New()
	_, err = tx.Exec(
		`INSERT INTO jobs (id, type, priority, status, payload, max_retries, manual)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, jobType, opts.Priority, models.JobPending, payload, opts.MaxRetries, opts.Manual,
	)
	if err != nil {
		return uuid.Nil, corerr.Transient("insert job", err)
	}

	for _, dep := range opts.DependsOn {
		if _, err := tx.Exec(
			`INSERT INTO job_dependencies (job_id, depends_on_job_id) VALUES ($1, $2)`,
			id, dep,
		); err != nil {
			return uuid.Nil, corerr.Transient("insert job dependency", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, corerr.Transient("commit enqueue tx", err)
	}
	return id, nil
}

// pickNextQuery selects the oldest-highest-priority eligible job: pending,
// or retrying with next_retry_at due, and with no unmet dependency (§4.6).
// FOR UPDATE SKIP LOCKED lets multiple worker processes race pickNext
// safely without serializing on a single row.
const pickNextQuery = `
SELECT id, type, priority, status, payload, retry_count, max_retries, manual, created_at
FROM jobs j
WHERE (
	  (status = 'pending')
	  OR (status = 'retrying' AND next_retry_at <= now())
	)
	AND NOT EXISTS (
		SELECT 1 FROM job_dependencies jd
		JOIN jobs dep ON dep.id = jd.depends_on_job_id
		WHERE jd.job_id = j.id AND dep.status <> 'completed'
	)
ORDER BY priority ASC, created_at ASC
LIMIT 1
FOR UPDATE SKIP LOCKED
`

// PickNext transactionally claims the next eligible job for workerID,
// setting it to processing (§4.6). Returns (nil, nil) when no job is
// eligible.
func (r *JobRepository) PickNext(workerID string) (*models.Job, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, corerr.Transient("begin pickNext tx", err)
	}
	defer tx.Rollback()

	job := &models.Job{}
	err = tx.QueryRow(pickNextQuery).Scan(
		&job.ID, &job.Type, &job.Priority, &job.Status, &job.Payload,
		&job.RetryCount, &job.MaxRetries, &job.Manual, &job.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, corerr.Transient("select next job", err)
	}

	_, err = tx.Exec(
		`UPDATE jobs SET status = $1, started_at = now(), worker_id = $2, updated_at = now() WHERE id = $3`,
		models.JobProcessing, workerID, job.ID,
	)
	if err != nil {
		return nil, corerr.Transient("claim job", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, corerr.Transient("commit pickNext tx", err)
	}

	job.Status = models.JobProcessing
	job.WorkerID = &workerID
	return job, nil
}

// Complete marks a job completed and stores its result (§4.6).
func (r *JobRepository) Complete(id uuid.UUID, result []byte) error {
	_, err := r.db.Exec(
		`UPDATE jobs SET status = $1, result = $2, completed_at = now(), updated_at = now() WHERE id = $3`,
		models.JobCompleted, result, id,
	)
	if err != nil {
		return corerr.Transient("complete job", err)
	}
	return nil
}

// maxBackoffSeconds caps the exponential backoff (§4.6: "min(2^retry_count, 300)").
const maxBackoffSeconds = 300

// Fail applies the retry/terminal-failure transition of §4.6: retrying with
// exponential backoff while under max_retries, failed once exhausted.
func (r *JobRepository) Fail(id uuid.UUID, errStr string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return corerr.Transient("begin fail tx", err)
	}
	defer tx.Rollback()

	var retryCount, maxRetries int
	if err := tx.QueryRow(`SELECT retry_count, max_retries FROM jobs WHERE id = $1 FOR UPDATE`, id).
		Scan(&retryCount, &maxRetries); err != nil {
		if err == sql.ErrNoRows {
			return corerr.NotFound(fmt.Sprintf("job %s", id))
		}
		return corerr.Transient("read job for fail", err)
	}

	if retryCount < maxRetries {
		backoff := backoffSeconds(retryCount + 1)
		_, err = tx.Exec(
			`UPDATE jobs SET status = $1, retry_count = retry_count + 1,
			 next_retry_at = now() + ($2 || ' seconds')::interval, error = $3, updated_at = now()
			 WHERE id = $4`,
			models.JobRetrying, backoff, errStr, id,
		)
	} else {
		_, err = tx.Exec(
			`UPDATE jobs SET status = $1, error = $2, completed_at = now(), updated_at = now() WHERE id = $3`,
			models.JobFailed, errStr, id,
		)
	}
	if err != nil {
		return corerr.Transient("update job on fail", err)
	}
	return tx.Commit()
}

// FailPermanent forces a job straight to the terminal failed state,
// bypassing the retry/backoff transition in Fail (§7: "Permanent —
// handler returns this explicitly; terminal, no retry").
func (r *JobRepository) FailPermanent(id uuid.UUID, errStr string) error {
	_, err := r.db.Exec(
		`UPDATE jobs SET status = $1, error = $2, completed_at = now(), updated_at = now() WHERE id = $3`,
		models.JobFailed, errStr, id,
	)
	if err != nil {
		return corerr.Transient("update job on fail permanent", err)
	}
	return nil
}

func backoffSeconds(retryCount int) int {
	n := 1
	for i := 0; i < retryCount && n < maxBackoffSeconds; i++ {
		n *= 2
	}
	if n > maxBackoffSeconds {
		return maxBackoffSeconds
	}
	return n
}

// Cancel transitions a pending or retrying job to failed (§4.6: "allowed
// only if state is pending or retrying").
func (r *JobRepository) Cancel(id uuid.UUID) error {
	res, err := r.db.Exec(
		`UPDATE jobs SET status = $1, error = 'cancelled', completed_at = now(), updated_at = now()
		 WHERE id = $2 AND status IN ('pending', 'retrying')`,
		models.JobFailed, id,
	)
	if err != nil {
		return corerr.Transient("cancel job", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return corerr.Transient("check cancel result", err)
	}
	if n == 0 {
		return corerr.Conflict(fmt.Sprintf("job %s is not pending or retrying", id))
	}
	return nil
}

// GetByID returns a single job row, or corerr.NotFound.
func (r *JobRepository) GetByID(id uuid.UUID) (*models.Job, error) {
	job := &models.Job{}
	var nextRetryAt, startedAt, completedAt sql.NullTime
	var workerID, errStr sql.NullString
	err := r.db.QueryRow(
		`SELECT id, type, priority, status, payload, result, error, retry_count, max_retries,
		        next_retry_at, started_at, completed_at, manual, worker_id, created_at, updated_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.Type, &job.Priority, &job.Status, &job.Payload, &job.Result, &errStr,
		&job.RetryCount, &job.MaxRetries, &nextRetryAt, &startedAt, &completedAt, &job.Manual,
		&workerID, &job.CreatedAt, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, corerr.NotFound(fmt.Sprintf("job %s", id))
	}
	if err != nil {
		return nil, corerr.Transient("get job", err)
	}
	if errStr.Valid {
		job.Error = &errStr.String
	}
	if workerID.Valid {
		job.WorkerID = &workerID.String
	}
	if nextRetryAt.Valid {
		job.NextRetryAt = &nextRetryAt.Time
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

// PruneTerminal deletes completed/failed jobs older than olderThan, matching
// §4.6's "completed (terminal, pruned)" / "failed (terminal, pruned)" states.
func (r *JobRepository) PruneTerminal(olderThan time.Time) (int64, error) {
	res, err := r.db.Exec(
		`DELETE FROM jobs WHERE status IN ('completed', 'failed') AND completed_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, corerr.Transient("prune terminal jobs", err)
	}
	return res.RowsAffected()
}
