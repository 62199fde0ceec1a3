package idempotency

import (
	"context"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Record is what a key remembers: the hash of the first request body and,
// once it finished, the response to replay.
type Record struct {
	RequestHash  string `json:"request_hash"`
	Status       string `json:"status"`
	ResponseCode int    `json:"response_code,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
	ResponseBody []byte `json:"response_body,omitempty"`
}

// Store reserves keys for in-flight requests. Reserve returns the existing
// record when the key is already taken, or nil when the caller now owns it.
type Store interface {
	Reserve(ctx context.Context, key, requestHash string, ttl time.Duration) (*Record, error)
	Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}
