package redisx

import "time"

const (
	// Auth session: session:{token} -> {"user_id": "...", "role": "..."}
	KeySession = "session:%s"

	// Cart per user: cart:{user_id} -> JSON array of line items
	KeyCart = "cart:%s"

	// Payment reconciliation shortcut: idem:payment:{session_id} -> order_id.
	// DB unique column on orders.payment_session_id is the source of truth.
	KeyIdemPayment = "idem:payment:%s"

	// Dedup event processing in the notifier: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
