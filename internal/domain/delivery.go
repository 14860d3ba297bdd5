package domain

import (
	"encoding/json"
	"time"
)

// Delivery attempt outcomes.
const (
	DeliverySuccess = "success"
	DeliveryFailed  = "failed"
)

type DeliveryAttempt struct {
	ID             string     `json:"id"`
	NotificationID string     `json:"notification_id"`
	Topic          string     `json:"topic"`
	SubscriberURL  string     `json:"subscriber_url"`
	SubscriberName string     `json:"subscriber_name"`
	AttemptNumber  int        `json:"attempt_number"`
	Status         string     `json:"status"`
	HTTPStatusCode *int       `json:"http_status_code,omitempty"`
	ResponseBody   *string    `json:"response_body,omitempty"`
	ResponseTimeMs *int       `json:"response_time_ms,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type DeadLetter struct {
	ID             string          `json:"id"`
	NotificationID string          `json:"notification_id"`
	Topic          string          `json:"topic"`
	SubscriberURL  string          `json:"subscriber_url"`
	Payload        json.RawMessage `json:"payload"`
	TotalAttempts  int             `json:"total_attempts"`
	LastError      *string         `json:"last_error,omitempty"`
	LastHTTPStatus *int            `json:"last_http_status,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy     *string         `json:"resolved_by,omitempty"`
}
