package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/xavierca1/leadbridge/internal/entity"
)

type DeliveryRepository struct {
	DB *sql.DB
}

func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{DB: db}
}

const leadColumns = `id, email, first_name, last_name, phone, message, address,
	source, inquiry_type, tags, assigned_user_id,
	status, retry_count, last_response, created_at, updated_at`

func (r *DeliveryRepository) Create(ctx context.Context, rec *entity.DeliveryRecord) error {
	query := `
		INSERT INTO fub_leads
			(id, email, first_name, last_name, phone, message, address,
			 source, inquiry_type, tags, assigned_user_id,
			 status, retry_count, last_response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	l := rec.Lead
	return r.DB.QueryRowContext(ctx, query,
		rec.ID, l.Email, l.FirstName, l.LastName, l.Phone, l.Message, l.Address,
		l.Source, string(l.InquiryType), pq.Array(l.Tags), l.AssignedUserID,
		string(rec.Status), rec.RetryCount, rec.LastResponse,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

// MarkSent never regresses a terminal record; a concurrent retry that
// already delivered the lead makes this a no-op.
func (r *DeliveryRepository) MarkSent(ctx context.Context, id, response string) error {
	query := `
		UPDATE fub_leads
		SET status = 'sent', last_response = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('sent', 'permanently_failed')
	`
	_, err := r.DB.ExecContext(ctx, query, id, response)
	return err
}

// MarkFailed bumps retry_count and escalates once the retry budget is
// spent. Conditional on the record still being pending/failed so a
// concurrent success is never double-counted.
func (r *DeliveryRepository) MarkFailed(ctx context.Context, id, response string, maxRetries int) (entity.DeliveryStatus, int, error) {
	query := `
		UPDATE fub_leads
		SET
			status = CASE WHEN retry_count >= $3 THEN 'permanently_failed' ELSE 'failed' END,
			retry_count = LEAST(retry_count + 1, $3),
			last_response = $2,
			updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'failed')
		RETURNING status, retry_count
	`

	var status string
	var count int
	err := r.DB.QueryRowContext(ctx, query, id, response, maxRetries).Scan(&status, &count)
	if err == sql.ErrNoRows {
		// Already terminal (delivered by a concurrent run, or capped).
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	return entity.DeliveryStatus(status), count, nil
}

func (r *DeliveryRepository) FindRetryable(ctx context.Context, window time.Duration, limit int) ([]entity.DeliveryRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM fub_leads
		WHERE status IN ('pending', 'failed')
		  AND created_at > NOW() - ($1 * INTERVAL '1 second')
		ORDER BY created_at DESC
		LIMIT $2
	`, leadColumns)

	rows, err := r.DB.QueryContext(ctx, query, int64(window.Seconds()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *DeliveryRepository) List(ctx context.Context, limit int) ([]entity.DeliveryRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM fub_leads
		ORDER BY created_at DESC
		LIMIT $1
	`, leadColumns)

	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *DeliveryRepository) Counts(ctx context.Context) (entity.DeliveryCounts, error) {
	var counts entity.DeliveryCounts

	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM fub_leads GROUP BY status`)
	if err != nil {
		return counts, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, err
		}
		switch entity.DeliveryStatus(status) {
		case entity.StatusPending:
			counts.Pending = n
		case entity.StatusSent:
			counts.Sent = n
		case entity.StatusFailed:
			counts.Failed = n
		case entity.StatusPermanentlyFailed:
			counts.PermanentlyFailed = n
		}
	}
	return counts, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]entity.DeliveryRecord, error) {
	var records []entity.DeliveryRecord
	for rows.Next() {
		var rec entity.DeliveryRecord
		var inquiry, status string
		var tags []string

		err := rows.Scan(
			&rec.ID, &rec.Lead.Email, &rec.Lead.FirstName, &rec.Lead.LastName,
			&rec.Lead.Phone, &rec.Lead.Message, &rec.Lead.Address,
			&rec.Lead.Source, &inquiry, pq.Array(&tags), &rec.Lead.AssignedUserID,
			&status, &rec.RetryCount, &rec.LastResponse, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		rec.Lead.InquiryType = entity.InquiryType(inquiry)
		rec.Lead.Tags = tags
		rec.Status = entity.DeliveryStatus(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}
