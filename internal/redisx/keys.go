package redisx

import "time"

const (
	// Resolved account for an authenticated identity: identity:user:{email} -> user JSON
	KeyIdentity = "identity:user:%s"

	// Cache of an order's status: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup for event consumers: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdentity    = 5 * time.Minute
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
