package orders

import "github.com/ariefcatur/go-vendormart.git/internal/apperr"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return Status(s), nil
	}
	return "", apperr.Validation("invalid status: %q", s)
}

// CanCancel: only pending/processing orders may be cancelled.
func CanCancel(s Status) bool {
	return s == StatusPending || s == StatusProcessing
}

// DeriveParentStatus computes a parent order's status from the full set of
// its sub-order statuses. Pure function of the current multiset, evaluated
// top to bottom, first match wins:
//
//  1. all cancelled                      -> cancelled
//  2. all delivered or cancelled (mixed) -> delivered
//  3. any shipped or delivered           -> shipped
//  4. any processing                     -> processing
//  5. otherwise                          -> pending
func DeriveParentStatus(siblings []Status) Status {
	if len(siblings) == 0 {
		return StatusPending
	}
	allCancelled := true
	allDone := true
	anyShipped := false
	anyProcessing := false
	for _, s := range siblings {
		if s != StatusCancelled {
			allCancelled = false
		}
		if s != StatusDelivered && s != StatusCancelled {
			allDone = false
		}
		if s == StatusShipped || s == StatusDelivered {
			anyShipped = true
		}
		if s == StatusProcessing {
			anyProcessing = true
		}
	}
	switch {
	case allCancelled:
		return StatusCancelled
	case allDone:
		return StatusDelivered
	case anyShipped:
		return StatusShipped
	case anyProcessing:
		return StatusProcessing
	default:
		return StatusPending
	}
}
