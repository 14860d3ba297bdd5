package domain

import "time"

// Product lifecycle statuses carried by a notification.
const (
	StatusCreated   = "CREATED"
	StatusDeleted   = "DELETED"
	StatusPromotion = "PROMOTION"
)

// Notification is the payload delivered to a single subscriber.
type Notification struct {
	ProductTitle   string `json:"product_title"`
	ProductType    string `json:"product_type"`
	ProductURL     string `json:"product_url"`
	SubscriberName string `json:"subscriber_name"`
	Status         string `json:"status"`
}

// PublishRequest is what a publisher sends for a topic.
type PublishRequest struct {
	ProductTitle string `json:"product_title" validate:"required"`
	ProductURL   string `json:"product_url"   validate:"required,url"`
	Status       string `json:"status"        validate:"required,oneof=CREATED DELETED PROMOTION"`
}

// For builds the notification addressed to one subscriber of topic.
func (p PublishRequest) For(topic string, sub Subscriber) Notification {
	return Notification{
		ProductTitle:   p.ProductTitle,
		ProductType:    topic,
		ProductURL:     p.ProductURL,
		SubscriberName: sub.Name,
		Status:         p.Status,
	}
}

type PublishResponse struct {
	NotificationID   string    `json:"notification_id"`
	Topic            string    `json:"topic"`
	DeliveriesQueued int       `json:"deliveries_queued"`
	PublishedAt      time.Time `json:"published_at"`
}
