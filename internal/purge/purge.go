// Package purge removes listing images from object storage after the records
// that referenced them are gone. Purging is best effort: failures are logged
// and counted, never retried and never surfaced to the caller.
package purge

import (
	"context"
	"time"
)

const (
	ReasonAccountDeleted = "account_deleted"
	ReasonListingDeleted = "listing_deleted"
	ReasonListingUpdated = "listing_updated"
	ReasonDiscarded      = "discarded"
	ReasonRejected       = "rejected"
)

type Purger interface {
	Purge(ctx context.Context, reason string, urls []string)
}

// Deleter removes the object behind a public URL.
type Deleter interface {
	DeleteByURL(ctx context.Context, url string) error
}

// Request is the queued unit of work.
type Request struct {
	Reason      string    `json:"reason"`
	URLs        []string  `json:"urls"`
	RequestedAt time.Time `json:"requestedAt"`
}
