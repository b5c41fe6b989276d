package entity

import (
	"context"
	"time"
)

type InquiryType string

const (
	InquiryGeneral      InquiryType = "General Inquiry"
	InquiryRegistration InquiryType = "Registration"
	InquiryProperty     InquiryType = "Property Inquiry"
	InquirySeller       InquiryType = "Seller Inquiry"
)

// Stage maps the inquiry type to the Follow Up Boss pipeline stage.
// The stage is always sent explicitly; FUB's default stage assignment
// is not something we want to depend on.
func (t InquiryType) Stage() string {
	switch t {
	case InquiryProperty:
		return "Buyers"
	case InquirySeller:
		return "Sellers"
	default:
		return "Lead"
	}
}

type Lead struct {
	Email          string      `json:"email"`
	FirstName      string      `json:"first_name,omitempty"`
	LastName       string      `json:"last_name,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	Message        string      `json:"message,omitempty"`
	Address        string      `json:"address,omitempty"`
	Source         string      `json:"source,omitempty"`
	InquiryType    InquiryType `json:"inquiry_type,omitempty"`
	Tags           []string    `json:"tags,omitempty"`
	AssignedUserID string      `json:"assigned_user_id,omitempty"`
}

type DeliveryStatus string

const (
	StatusPending           DeliveryStatus = "pending"
	StatusSent              DeliveryStatus = "sent"
	StatusFailed            DeliveryStatus = "failed"
	StatusPermanentlyFailed DeliveryStatus = "permanently_failed"
)

// DeliveryRecord is the durable outcome of one lead's delivery to FUB,
// including its retries. Only status, retry_count and last_response
// mutate, and never after the record reaches sent or
// permanently_failed.
type DeliveryRecord struct {
	ID           string         `json:"id"`
	Lead         Lead           `json:"lead"`
	Status       DeliveryStatus `json:"status"`
	RetryCount   int            `json:"retry_count"`
	LastResponse string         `json:"last_response,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type DeliveryCounts struct {
	Pending           int `json:"pending"`
	Sent              int `json:"sent"`
	Failed            int `json:"failed"`
	PermanentlyFailed int `json:"permanently_failed"`
}

type DeliveryRepositoryInterface interface {
	Create(ctx context.Context, rec *DeliveryRecord) error

	// MarkSent is a conditional update: it never regresses a record
	// that already reached a terminal status.
	MarkSent(ctx context.Context, id, response string) error

	// MarkFailed bumps retry_count and escalates to permanently_failed
	// once maxRetries is exhausted. The update is conditional on the
	// record still being pending or failed, so a concurrent success is
	// never double-counted. Returns the resulting status, or "" if the
	// record was already terminal.
	MarkFailed(ctx context.Context, id, response string, maxRetries int) (DeliveryStatus, int, error)

	// FindRetryable selects pending/failed records created within the
	// recency window, newest first, capped at limit.
	FindRetryable(ctx context.Context, window time.Duration, limit int) ([]DeliveryRecord, error)

	List(ctx context.Context, limit int) ([]DeliveryRecord, error)
	Counts(ctx context.Context) (DeliveryCounts, error)
}
