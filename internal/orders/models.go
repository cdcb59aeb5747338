package orders

import "time"

// ShippingAddress is required in full on every order.
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a ShippingAddress) Complete() bool {
	return a.Address != "" && a.City != "" && a.PostalCode != "" && a.Country != ""
}

// Order is the customer-facing purchase record aggregating all vendors of
// one checkout. Items carry no price snapshot; the sub-orders do.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	TotalCents      int             `json:"total_cents"`
	Status          Status          `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PaymentSession  string          `json:"payment_session,omitempty"`
	ReceiptURL      string          `json:"receipt_url,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// SubOrder is the per-shop partition of a parent order, status-managed by
// that shop's vendor. Items are a denormalized snapshot (name + unit price
// at purchase time).
type SubOrder struct {
	ID            string         `json:"id"`
	OrderID       string         `json:"order_id"`
	VendorID      string         `json:"vendor_id"`
	ShopID        string         `json:"shop_id"`
	Items         []SubOrderItem `json:"items"`
	TotalCents    int            `json:"total_cents"`
	Status        Status         `json:"status"`
	PaymentStatus PaymentStatus  `json:"payment_status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type SubOrderItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Qty        int    `json:"qty"`
}

// RequestedLine is one line of an incoming order request, in request order.
type RequestedLine struct {
	ProductID string
	Qty       int
}

// PaymentInfo stamps an order as paid at creation (reconciliation path).
type PaymentInfo struct {
	SessionID  string
	ReceiptURL string
	PaidAt     time.Time
}

// PlaceInput is everything the store needs for one Order Builder run.
type PlaceInput struct {
	UserID  string
	Lines   []RequestedLine
	Address ShippingAddress
	Payment *PaymentInfo
}
