package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ErrDeadLetterNotFound is returned when resolving an unknown or already
// resolved dead letter.
var ErrDeadLetterNotFound = errors.New("dead letter not found or already resolved")

// DeliveryAttemptRecord holds data for inserting a delivery attempt.
type DeliveryAttemptRecord struct {
	NotificationID string
	Topic          string
	SubscriberURL  string
	SubscriberName string
	AttemptNumber  int
	Status         string
	HTTPStatusCode *int
	ResponseBody   string
	ResponseTimeMs int
	ErrorMessage   string
	NextRetryAt    *time.Time
}

// DeadLetterRecord holds data for a delivery that exhausted its attempts.
type DeadLetterRecord struct {
	NotificationID string
	Topic          string
	SubscriberURL  string
	Payload        json.RawMessage
	TotalAttempts  int
	LastHTTPStatus *int
	LastError      string
}

// DeliveryFilter narrows ListDeliveryAttempts. Zero fields are ignored.
type DeliveryFilter struct {
	NotificationID string
	SubscriberURL  string
	Status         string
	Limit          int
}

// DeadLetterFilter narrows ListDeadLetters.
type DeadLetterFilter struct {
	SubscriberURL string
	Resolved      bool
	Limit         int
}

const deliveryAttemptColumns = `id, notification_id, topic, subscriber_url, subscriber_name, attempt_number, status,
	http_status_code, response_body, response_time_ms, error_message, next_retry_at, created_at`

const deadLetterColumns = `id, notification_id, topic, subscriber_url, payload, total_attempts,
	last_error, last_http_status, created_at, resolved_at, resolved_by`

func (s *PostgresStore) RecordDeliveryAttempt(ctx context.Context, rec DeliveryAttemptRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO delivery_attempts (notification_id, topic, subscriber_url, subscriber_name, attempt_number,
			status, http_status_code, response_body, response_time_ms, error_message, next_retry_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rec.NotificationID, rec.Topic, rec.SubscriberURL, rec.SubscriberName, rec.AttemptNumber,
		rec.Status, rec.HTTPStatusCode, nullIfEmpty(rec.ResponseBody), rec.ResponseTimeMs,
		nullIfEmpty(rec.ErrorMessage), rec.NextRetryAt)
	if err != nil {
		return fmt.Errorf("inserting delivery attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertDeadLetter(ctx context.Context, rec DeadLetterRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dead_letter_queue (notification_id, topic, subscriber_url, payload, total_attempts, last_http_status, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.NotificationID, rec.Topic, rec.SubscriberURL, []byte(rec.Payload), rec.TotalAttempts,
		rec.LastHTTPStatus, nullIfEmpty(rec.LastError))
	if err != nil {
		return fmt.Errorf("inserting dead letter: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDeliveryAttempts(ctx context.Context, f DeliveryFilter) ([]domain.DeliveryAttempt, error) {
	var q queryBuilder
	q.where("notification_id", f.NotificationID)
	q.where("subscriber_url", f.SubscriberURL)
	q.where("status", f.Status)

	query, args := q.build("SELECT "+deliveryAttemptColumns+" FROM delivery_attempts", f.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying delivery attempts: %w", err)
	}
	defer rows.Close()

	attempts := []domain.DeliveryAttempt{}
	for rows.Next() {
		a, err := scanDeliveryAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning delivery attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

func (s *PostgresStore) GetDeliveryAttempt(ctx context.Context, id string) (*domain.DeliveryAttempt, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+deliveryAttemptColumns+" FROM delivery_attempts WHERE id = $1", id)

	a, err := scanDeliveryAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying delivery attempt: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) ListDeadLetters(ctx context.Context, f DeadLetterFilter) ([]domain.DeadLetter, error) {
	var q queryBuilder
	q.where("subscriber_url", f.SubscriberURL)
	if f.Resolved {
		q.raw("resolved_at IS NOT NULL")
	} else {
		q.raw("resolved_at IS NULL")
	}

	query, args := q.build("SELECT "+deadLetterColumns+" FROM dead_letter_queue", f.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying dead letters: %w", err)
	}
	defer rows.Close()

	letters := []domain.DeadLetter{}
	for rows.Next() {
		var dl domain.DeadLetter
		err := rows.Scan(
			&dl.ID, &dl.NotificationID, &dl.Topic, &dl.SubscriberURL, &dl.Payload, &dl.TotalAttempts,
			&dl.LastError, &dl.LastHTTPStatus, &dl.CreatedAt, &dl.ResolvedAt, &dl.ResolvedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning dead letter: %w", err)
		}
		letters = append(letters, dl)
	}

	return letters, rows.Err()
}

func (s *PostgresStore) ResolveDeadLetter(ctx context.Context, id, resolvedBy string) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE dead_letter_queue SET resolved_at = NOW(), resolved_by = $2
		WHERE id = $1 AND resolved_at IS NULL
	`, id, resolvedBy)
	if err != nil {
		return fmt.Errorf("resolving dead letter: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDeadLetterNotFound
	}
	return nil
}

// DeliveryStats holds aggregated delivery statistics.
type DeliveryStats struct {
	TotalDeliveries int     `json:"total_deliveries"`
	SuccessCount    int     `json:"success_count"`
	FailedCount     int     `json:"failed_count"`
	SuccessRate     float64 `json:"success_rate"`
	AvgResponseMs   float64 `json:"avg_response_ms"`
	DeadLetterCount int     `json:"dead_letter_count"`
}

func (s *PostgresStore) GetDeliveryStats(ctx context.Context) (*DeliveryStats, error) {
	var st DeliveryStats

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(AVG(response_time_ms) FILTER (WHERE response_time_ms > 0), 0)
		FROM delivery_attempts
	`).Scan(&st.TotalDeliveries, &st.SuccessCount, &st.FailedCount, &st.AvgResponseMs)
	if err != nil {
		return nil, fmt.Errorf("querying delivery stats: %w", err)
	}

	if st.TotalDeliveries > 0 {
		st.SuccessRate = float64(st.SuccessCount) / float64(st.TotalDeliveries) * 100
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM dead_letter_queue WHERE resolved_at IS NULL
	`).Scan(&st.DeadLetterCount)
	if err != nil {
		return nil, fmt.Errorf("querying dead letter count: %w", err)
	}

	return &st, nil
}

func scanDeliveryAttempt(row pgx.Row) (domain.DeliveryAttempt, error) {
	var a domain.DeliveryAttempt
	err := row.Scan(
		&a.ID, &a.NotificationID, &a.Topic, &a.SubscriberURL, &a.SubscriberName,
		&a.AttemptNumber, &a.Status, &a.HTTPStatusCode, &a.ResponseBody,
		&a.ResponseTimeMs, &a.ErrorMessage, &a.NextRetryAt, &a.CreatedAt,
	)
	return a, err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// queryBuilder accumulates AND-ed conditions with positional arguments.
type queryBuilder struct {
	conditions []string
	args       []any
}

func (q *queryBuilder) where(column, value string) {
	if value == "" {
		return
	}
	q.args = append(q.args, value)
	q.conditions = append(q.conditions, fmt.Sprintf("%s = $%d", column, len(q.args)))
}

func (q *queryBuilder) raw(cond string) {
	q.conditions = append(q.conditions, cond)
}

func (q *queryBuilder) build(base string, limit int) (string, []any) {
	query := base
	if len(q.conditions) > 0 {
		query += " WHERE " + strings.Join(q.conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	args := q.args
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return query, args
}
