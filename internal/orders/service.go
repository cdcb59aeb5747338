package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
	"github.com/ariefcatur/go-vendormart.git/internal/auth"
	"github.com/ariefcatur/go-vendormart.git/internal/cart"
	"github.com/ariefcatur/go-vendormart.git/internal/catalog"
	kafkax "github.com/ariefcatur/go-vendormart.git/internal/kafka"
	"github.com/ariefcatur/go-vendormart.git/internal/payment"
	"github.com/ariefcatur/go-vendormart.git/internal/redisx"
)

// Store is everything the service needs from persistence. *Repo implements it.
type Store interface {
	PlaceOrder(ctx context.Context, in PlaceInput) (*Order, error)
	OrderByID(ctx context.Context, id string) (*Order, error)
	OrderByPaymentSession(ctx context.Context, sessionID string) (*Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]Order, error)
	AllOrders(ctx context.Context) ([]Order, error)
	SubOrderByID(ctx context.Context, id string) (*SubOrder, error)
	SubOrdersByOrder(ctx context.Context, orderID string) ([]SubOrder, error)
	SubOrdersByVendor(ctx context.Context, vendorID string) ([]SubOrder, error)
	SetSubOrderStatus(ctx context.Context, id string, status Status) error
	SetOrderStatus(ctx context.Context, id string, status Status) error
	CancelOrderTree(ctx context.Context, orderID string) error
}

// ProductCatalog is the slice of the catalog repo used at checkout.
type ProductCatalog interface {
	ProductsByIDs(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

// Publisher matches *kafka.Producer.Publish.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Store    Store
	Carts    cart.Store
	Catalog  ProductCatalog
	Payments payment.Provider

	Placed        Publisher // order.placed
	StatusChanged Publisher // order.status.changed

	Redis       *redis.Client // optional reconciliation shortcut
	ServiceName string
}

// PlaceOrder validates the request and runs one builder pass. Notification
// is fire-and-forget: the order stands even if publishing fails.
func (s *Service) PlaceOrder(ctx context.Context, userID string, lines []RequestedLine, addr ShippingAddress) (*Order, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}
	for _, l := range lines {
		if l.ProductID == "" || l.Qty < 1 {
			return nil, apperr.Validation("each item needs a product and a quantity of at least 1")
		}
	}
	if !addr.Complete() {
		return nil, apperr.Validation("shipping address is incomplete")
	}

	o, err := s.Store.PlaceOrder(ctx, PlaceInput{UserID: userID, Lines: lines, Address: addr})
	if err != nil {
		return nil, err
	}
	s.publishPlaced(ctx, o)
	return o, nil
}

// CheckoutSession builds a payment session from the current cart.
func (s *Service) CheckoutSession(ctx context.Context, userID string, addr ShippingAddress) (payment.Session, error) {
	if !addr.Complete() {
		return payment.Session{}, apperr.Validation("shipping address is incomplete")
	}
	items, err := s.Carts.Get(ctx, userID)
	if err != nil {
		return payment.Session{}, err
	}
	if len(items) == 0 {
		return payment.Session{}, apperr.Validation("cart is empty")
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	prods, err := s.Catalog.ProductsByIDs(ctx, ids)
	if err != nil {
		return payment.Session{}, err
	}

	// lines charge the cart's price snapshot, not the live price
	var lines []payment.LineItem
	for _, it := range items {
		p, ok := prods[it.ProductID]
		if !ok {
			continue // product removed since it was carted
		}
		lines = append(lines, payment.LineItem{Name: p.Name, PriceCents: it.PriceCents, Qty: it.Qty})
	}
	if len(lines) == 0 {
		return payment.Session{}, apperr.Validation("no valid items in cart")
	}

	addrJSON, err := json.Marshal(addr)
	if err != nil {
		return payment.Session{}, err
	}
	return s.Payments.CreateSession(ctx, payment.CreateSessionInput{
		UserID:      userID,
		AddressJSON: string(addrJSON),
		Items:       lines,
	})
}

// VerifyPayment reconciles a paid checkout session into an order. The session
// must belong to the calling user. Idempotent: the session id is persisted on
// the order, so a duplicate confirmation finds the existing order and returns
// it (created=false) without touching stock or the cart.
func (s *Service) VerifyPayment(ctx context.Context, userID, sessionID string) (o *Order, created bool, err error) {
	if sessionID == "" {
		return nil, false, apperr.Validation("sessionId is required")
	}

	sess, err := s.Payments.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if sess.UserID != userID {
		return nil, false, apperr.Forbidden("payment session belongs to another user")
	}
	if !sess.Paid {
		return nil, false, apperr.Validation("payment for session %s is not completed", sessionID)
	}

	// duplicate confirmation: shortcut first, the DB is the source of truth
	if s.Redis != nil {
		key := fmt.Sprintf(redisx.KeyIdemPayment, sessionID)
		if orderID, err := s.Redis.Get(ctx, key).Result(); err == nil && orderID != "" {
			if o, err := s.Store.OrderByID(ctx, orderID); err == nil {
				return o, false, nil
			}
		}
	}
	if existing, err := s.Store.OrderByPaymentSession(ctx, sessionID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	items, err := s.Carts.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if len(items) == 0 {
		return nil, false, apperr.Validation("cart is empty")
	}

	var addr ShippingAddress
	if err := json.Unmarshal([]byte(sess.AddressJSON), &addr); err != nil || !addr.Complete() {
		return nil, false, apperr.Validation("shipping address missing from payment session")
	}

	lines := make([]RequestedLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, RequestedLine{ProductID: it.ProductID, Qty: it.Qty})
	}

	o, err = s.Store.PlaceOrder(ctx, PlaceInput{
		UserID:  userID,
		Lines:   lines,
		Address: addr,
		Payment: &PaymentInfo{SessionID: sessionID, ReceiptURL: sess.ReceiptURL, PaidAt: sess.PaidAt},
	})
	if err != nil {
		return nil, false, err
	}

	if err := s.Carts.Clear(ctx, userID); err != nil {
		log.Printf("clear cart user=%s: %v", userID, err)
	}
	if s.Redis != nil {
		key := fmt.Sprintf(redisx.KeyIdemPayment, sessionID)
		_ = s.Redis.Set(ctx, key, o.ID, redisx.TTLIdempotency).Err()
	}
	s.publishPlaced(ctx, o)
	return o, true, nil
}

// UpdateStatus resolves id as a sub-order first; the parent-order path is an
// admin-only direct write that skips aggregation.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Identity, id string, status Status) (*SubOrder, *Order, error) {
	so, err := s.Store.SubOrderByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if so != nil {
		if !actor.IsAdmin() && actor.UserID != so.VendorID {
			return nil, nil, apperr.Forbidden("sub-order %s belongs to another vendor", id)
		}
		if err := s.Store.SetSubOrderStatus(ctx, so.ID, status); err != nil {
			return nil, nil, err
		}
		so.Status = status
		if err := s.aggregate(ctx, so.OrderID); err != nil {
			return nil, nil, err
		}
		s.publishStatusChanged(ctx, so.OrderID, so.ID, status)
		return so, nil, nil
	}

	if !actor.IsAdmin() {
		return nil, nil, apperr.NotFound("sub-order not found: %s", id)
	}
	o, err := s.Store.OrderByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Store.SetOrderStatus(ctx, o.ID, status); err != nil {
		return nil, nil, err
	}
	o.Status = status
	s.publishStatusChanged(ctx, o.ID, "", status)
	return nil, o, nil
}

// aggregate recomputes the parent status from the full sibling set and
// persists it unconditionally, even when unchanged.
func (s *Service) aggregate(ctx context.Context, orderID string) error {
	siblings, err := s.Store.SubOrdersByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	statuses := make([]Status, 0, len(siblings))
	for _, sib := range siblings {
		statuses = append(statuses, sib.Status)
	}
	return s.Store.SetOrderStatus(ctx, orderID, DeriveParentStatus(statuses))
}

// Cancel flips the parent and every sub-order to cancelled. Stock is not
// restored.
func (s *Service) Cancel(ctx context.Context, actor auth.Identity, orderID string) (*Order, error) {
	o, err := s.Store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != o.UserID {
		return nil, apperr.Unauthorized("order %s belongs to another user", orderID)
	}
	if !CanCancel(o.Status) {
		return nil, apperr.InvalidState("order cannot be cancelled from status %q", o.Status)
	}
	if err := s.Store.CancelOrderTree(ctx, o.ID); err != nil {
		return nil, err
	}
	o.Status = StatusCancelled
	s.publishStatusChanged(ctx, o.ID, "", StatusCancelled)
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, actor auth.Identity, id string) (*Order, error) {
	o, err := s.Store.OrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != o.UserID {
		return nil, apperr.Forbidden("order %s belongs to another user", id)
	}
	return o, nil
}

func (s *Service) MyOrders(ctx context.Context, userID string) ([]Order, error) {
	return s.Store.OrdersByUser(ctx, userID)
}

func (s *Service) VendorSubOrders(ctx context.Context, vendorID string) ([]SubOrder, error) {
	return s.Store.SubOrdersByVendor(ctx, vendorID)
}

func (s *Service) AllOrders(ctx context.Context) ([]Order, error) {
	return s.Store.AllOrders(ctx)
}

func (s *Service) publishPlaced(ctx context.Context, o *Order) {
	if s.Placed == nil {
		return
	}
	subs, err := s.Store.SubOrdersByOrder(ctx, o.ID)
	if err != nil {
		log.Printf("load sub-orders for event order=%s: %v", o.ID, err)
	}
	s.emit(ctx, s.Placed, EventOrderPlaced, o.ID, OrderPlacedPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalCents: o.TotalCents,
		SubOrders:  len(subs),
		Paid:       o.PaymentStatus == PaymentPaid,
	})
}

func (s *Service) publishStatusChanged(ctx context.Context, orderID, subOrderID string, status Status) {
	if s.StatusChanged == nil {
		return
	}
	userID := ""
	if o, err := s.Store.OrderByID(ctx, orderID); err == nil {
		userID = o.UserID
	}
	s.emit(ctx, s.StatusChanged, EventOrderStatusChanged, orderID, OrderStatusChangedPayload{
		OrderID:    orderID,
		SubOrderID: subOrderID,
		UserID:     userID,
		Status:     status,
	})
}

func (s *Service) emit(ctx context.Context, p Publisher, eventType, orderID string, payload any) {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
