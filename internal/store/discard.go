package store

import "context"

// DiscardLog satisfies the delivery recorder when no database is configured.
type DiscardLog struct{}

func (DiscardLog) RecordDeliveryAttempt(context.Context, DeliveryAttemptRecord) error { return nil }

func (DiscardLog) InsertDeadLetter(context.Context, DeadLetterRecord) error { return nil }
