package payment

import (
	"context"
	"time"
)

type LineItem struct {
	Name       string
	PriceCents int
	Qty        int
}

type CreateSessionInput struct {
	UserID      string
	AddressJSON string // shipping address, round-tripped through metadata
	Items       []LineItem
}

// Session is the provider-neutral view of a checkout session.
type Session struct {
	ID          string
	URL         string
	Paid        bool
	UserID      string
	AddressJSON string
	ReceiptURL  string
	PaidAt      time.Time
}

// Provider creates checkout sessions and reads them back for verification.
type Provider interface {
	CreateSession(ctx context.Context, in CreateSessionInput) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
}
