package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
	"github.com/ariefcatur/go-vendormart.git/internal/auth"
	"github.com/ariefcatur/go-vendormart.git/internal/cart"
	"github.com/ariefcatur/go-vendormart.git/internal/catalog"
	"github.com/ariefcatur/go-vendormart.git/internal/payment"
)

// memStore implements Store and ProductCatalog over maps, with the same
// all-or-nothing placement semantics as the pgx repo.
type memStore struct {
	products   map[string]catalog.Product
	shopOwners map[string]string
	orders     map[string]*Order
	orderIDs   []string
	subs       map[string]*SubOrder
	subIDs     []string
	seq        int
}

func newMemStore() *memStore {
	return &memStore{
		products:   map[string]catalog.Product{},
		shopOwners: map[string]string{},
		orders:     map[string]*Order{},
		subs:       map[string]*SubOrder{},
	}
}

func (m *memStore) addProduct(id, shopID, owner, name string, priceCents, stock int) {
	m.products[id] = catalog.Product{ID: id, ShopID: shopID, Name: name, PriceCents: priceCents, Stock: stock}
	m.shopOwners[shopID] = owner
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func (m *memStore) PlaceOrder(_ context.Context, in PlaceInput) (*Order, error) {
	// validate everything before touching stock, like the repo tx rollback
	for _, l := range in.Lines {
		p, ok := m.products[l.ProductID]
		if !ok {
			return nil, apperr.NotFound("product not found: %s", l.ProductID)
		}
		if p.Stock < l.Qty {
			return nil, apperr.InsufficientStock(
				"insufficient stock for product %s: available %d, requested %d",
				l.ProductID, p.Stock, l.Qty)
		}
	}
	lines := make([]PricedLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		p := m.products[l.ProductID]
		p.Stock -= l.Qty
		m.products[l.ProductID] = p
		lines = append(lines, PricedLine{
			ProductID:  p.ID,
			Name:       p.Name,
			PriceCents: p.PriceCents,
			Qty:        l.Qty,
			ShopID:     p.ShopID,
			VendorID:   m.shopOwners[p.ShopID],
		})
	}
	buckets, total := SplitByShop(lines)

	o := &Order{
		ID:              m.nextID("o"),
		UserID:          in.UserID,
		TotalCents:      total,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		ShippingAddress: in.Address,
		CreatedAt:       time.Now(),
	}
	for _, l := range in.Lines {
		o.Items = append(o.Items, OrderItem{ProductID: l.ProductID, Qty: l.Qty})
	}
	if in.Payment != nil {
		o.PaymentStatus = PaymentPaid
		o.PaymentSession = in.Payment.SessionID
		o.ReceiptURL = in.Payment.ReceiptURL
		t := in.Payment.PaidAt
		o.PaidAt = &t
	}
	m.orders[o.ID] = o
	m.orderIDs = append(m.orderIDs, o.ID)

	for _, b := range buckets {
		so := &SubOrder{
			ID:            m.nextID("so"),
			OrderID:       o.ID,
			VendorID:      b.VendorID,
			ShopID:        b.ShopID,
			Items:         b.Items,
			TotalCents:    b.TotalCents,
			Status:        StatusPending,
			PaymentStatus: o.PaymentStatus,
			CreatedAt:     time.Now(),
		}
		m.subs[so.ID] = so
		m.subIDs = append(m.subIDs, so.ID)
	}
	return o, nil
}

func (m *memStore) OrderByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found: %s", id)
	}
	return o, nil
}

func (m *memStore) OrderByPaymentSession(_ context.Context, sessionID string) (*Order, error) {
	for _, id := range m.orderIDs {
		if m.orders[id].PaymentSession == sessionID {
			return m.orders[id], nil
		}
	}
	return nil, nil
}

func (m *memStore) OrdersByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for i := len(m.orderIDs) - 1; i >= 0; i-- {
		if o := m.orders[m.orderIDs[i]]; o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) AllOrders(_ context.Context) ([]Order, error) {
	var out []Order
	for i := len(m.orderIDs) - 1; i >= 0; i-- {
		out = append(out, *m.orders[m.orderIDs[i]])
	}
	return out, nil
}

func (m *memStore) SubOrderByID(_ context.Context, id string) (*SubOrder, error) {
	return m.subs[id], nil
}

func (m *memStore) SubOrdersByOrder(_ context.Context, orderID string) ([]SubOrder, error) {
	var out []SubOrder
	for _, id := range m.subIDs {
		if so := m.subs[id]; so.OrderID == orderID {
			out = append(out, *so)
		}
	}
	return out, nil
}

func (m *memStore) SubOrdersByVendor(_ context.Context, vendorID string) ([]SubOrder, error) {
	var out []SubOrder
	for i := len(m.subIDs) - 1; i >= 0; i-- {
		if so := m.subs[m.subIDs[i]]; so.VendorID == vendorID {
			out = append(out, *so)
		}
	}
	return out, nil
}

func (m *memStore) SetSubOrderStatus(_ context.Context, id string, status Status) error {
	so, ok := m.subs[id]
	if !ok {
		return apperr.NotFound("sub-order not found: %s", id)
	}
	so.Status = status
	return nil
}

func (m *memStore) SetOrderStatus(_ context.Context, id string, status Status) error {
	o, ok := m.orders[id]
	if !ok {
		return apperr.NotFound("order not found: %s", id)
	}
	o.Status = status
	return nil
}

func (m *memStore) CancelOrderTree(_ context.Context, orderID string) error {
	o, ok := m.orders[orderID]
	if !ok {
		return apperr.NotFound("order not found: %s", orderID)
	}
	o.Status = StatusCancelled
	for _, id := range m.subIDs {
		if so := m.subs[id]; so.OrderID == orderID {
			so.Status = StatusCancelled
		}
	}
	return nil
}

func (m *memStore) ProductsByIDs(_ context.Context, ids []string) (map[string]catalog.Product, error) {
	out := map[string]catalog.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memCarts struct{ byUser map[string][]cart.Item }

func newMemCarts() *memCarts { return &memCarts{byUser: map[string][]cart.Item{}} }

func (c *memCarts) Get(_ context.Context, userID string) ([]cart.Item, error) {
	return c.byUser[userID], nil
}

func (c *memCarts) Put(_ context.Context, userID string, items []cart.Item) error {
	c.byUser[userID] = items
	return nil
}

func (c *memCarts) Clear(_ context.Context, userID string) error {
	delete(c.byUser, userID)
	return nil
}

type fakeProvider struct {
	sessions map[string]payment.Session
	created  int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: map[string]payment.Session{}}
}

func (f *fakeProvider) CreateSession(_ context.Context, in payment.CreateSessionInput) (payment.Session, error) {
	f.created++
	s := payment.Session{
		ID:          fmt.Sprintf("cs_%d", f.created),
		URL:         fmt.Sprintf("https://pay.example/cs_%d", f.created),
		UserID:      in.UserID,
		AddressJSON: in.AddressJSON,
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeProvider) GetSession(_ context.Context, id string) (payment.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return payment.Session{}, apperr.NotFound("session not found: %s", id)
	}
	return s, nil
}

func (f *fakeProvider) markPaid(id string) {
	s := f.sessions[id]
	s.Paid = true
	s.ReceiptURL = "https://pay.example/receipt/" + id
	s.PaidAt = time.Now().UTC()
	f.sessions[id] = s
}

type fakePublisher struct{ values [][]byte }

func (p *fakePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	p.values = append(p.values, value)
}

func (p *fakePublisher) eventTypes(t *testing.T) []string {
	var out []string
	for _, v := range p.values {
		var env Envelope
		require.NoError(t, json.Unmarshal(v, &env))
		out = append(out, env.EventType)
	}
	return out
}

func testAddr() ShippingAddress {
	return ShippingAddress{Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}
}

func newTestService() (*Service, *memStore, *memCarts, *fakeProvider, *fakePublisher) {
	store := newMemStore()
	store.addProduct("a", "shop1", "v1", "Mug", 1000, 5)
	store.addProduct("b", "shop2", "v2", "Teapot", 2000, 3)
	store.addProduct("c", "shop3", "v1", "Coaster", 500, 10)

	carts := newMemCarts()
	prov := newFakeProvider()
	pub := &fakePublisher{}
	svc := &Service{
		Store:         store,
		Carts:         carts,
		Catalog:       store,
		Payments:      prov,
		Placed:        pub,
		StatusChanged: pub,
		ServiceName:   "test",
	}
	return svc, store, carts, prov, pub
}

func TestPlaceOrderSplitsPerShop(t *testing.T) {
	svc, store, _, _, pub := newTestService()
	ctx := context.Background()

	o, err := svc.PlaceOrder(ctx, "u1", []RequestedLine{
		{ProductID: "a", Qty: 2},
		{ProductID: "b", Qty: 1},
	}, testAddr())
	require.NoError(t, err)

	assert.Equal(t, 4000, o.TotalCents)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	require.Len(t, o.Items, 2)

	subs, err := store.SubOrdersByOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, 2000, subs[0].TotalCents)
	assert.Equal(t, 2000, subs[1].TotalCents)
	assert.Equal(t, "v1", subs[0].VendorID)
	assert.Equal(t, "v2", subs[1].VendorID)

	sum := 0
	for _, so := range subs {
		sum += so.TotalCents
	}
	assert.Equal(t, o.TotalCents, sum)

	assert.Equal(t, 3, store.products["a"].Stock)
	assert.Equal(t, 2, store.products["b"].Stock)

	assert.Equal(t, []string{EventOrderPlaced}, pub.eventTypes(t))
}

func TestPlaceOrderSameVendorTwoShops(t *testing.T) {
	svc, store, _, _, _ := newTestService()
	ctx := context.Background()

	// a (shop1) and c (shop3) share vendor v1 but not a shop
	o, err := svc.PlaceOrder(ctx, "u1", []RequestedLine{
		{ProductID: "a", Qty: 1},
		{ProductID: "c", Qty: 1},
	}, testAddr())
	require.NoError(t, err)

	subs, err := store.SubOrdersByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestPlaceOrderValidation(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, "u1", nil, testAddr())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.PlaceOrder(ctx, "u1", []RequestedLine{{ProductID: "a", Qty: 0}}, testAddr())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	addr := testAddr()
	addr.City = ""
	_, err = svc.PlaceOrder(ctx, "u1", []RequestedLine{{ProductID: "a", Qty: 1}}, addr)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.PlaceOrder(context.Background(), "u1",
		[]RequestedLine{{ProductID: "nope", Qty: 1}}, testAddr())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "nope")
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	svc, store, _, _, pub := newTestService()

	_, err := svc.PlaceOrder(context.Background(), "u1", []RequestedLine{
		{ProductID: "a", Qty: 2},
		{ProductID: "b", Qty: 99},
	}, testAddr())
	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "b")

	// the failing product's stock is untouched, and so is every other line's
	assert.Equal(t, 3, store.products["b"].Stock)
	assert.Equal(t, 5, store.products["a"].Stock)
	assert.Empty(t, pub.values)
}

func TestUpdateStatusAggregates(t *testing.T) {
	svc, store, _, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.PlaceOrder(ctx, "u1", []RequestedLine{
		{ProductID: "a", Qty: 1},
		{ProductID: "b", Qty: 1},
	}, testAddr())
	require.NoError(t, err)
	subs, _ := store.SubOrdersByOrder(ctx, o.ID)
	require.Len(t, subs, 2)

	v1 := auth.Identity{UserID: "v1", Role: auth.RoleVendor}
	v2 := auth.Identity{UserID: "v2", Role: auth.RoleVendor}

	// wrong vendor
	_, _, err = svc.UpdateStatus(ctx, v2, subs[0].ID, StatusShipped)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// v1 ships its sub-order: any shipped -> parent shipped
	sub, ord, err := svc.UpdateStatus(ctx, v1, subs[0].ID, StatusShipped)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Nil(t, ord)
	assert.Equal(t, StatusShipped, sub.Status)
	assert.Equal(t, StatusShipped, store.orders[o.ID].Status)

	// v2 processing does not demote the parent
	_, _, err = svc.UpdateStatus(ctx, v2, subs[1].ID, StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, store.orders[o.ID].Status)

	// both delivered -> parent delivered
	_, _, err = svc.UpdateStatus(ctx, v1, subs[0].ID, StatusDelivered)
	require.NoError(t, err)
	_, _, err = svc.UpdateStatus(ctx, v2, subs[1].ID, StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, store.orders[o.ID].Status)
}

func TestUpdateStatusAdminDirectParentWrite(t *testing.T) {
	svc, store, _, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.PlaceOrder(ctx, "u1", []RequestedLine{{ProductID: "a", Qty: 1}}, testAddr())
	require.NoError(t, err)

	admin := auth.Identity{UserID: "adm", Role: auth.RoleAdmin}
	sub, ord, err := svc.UpdateStatus(ctx, admin, o.ID, StatusProcessing)
	require.NoError(t, err)
	assert.Nil(t, sub)
	require.NotNil(t, ord)
	assert.Equal(t, StatusProcessing, ord.Status)

	// aggregation was skipped: the sub-order is still pending
	subs, _ := store.SubOrdersByOrder(ctx, o.ID)
	assert.Equal(t, StatusPending, subs[0].Status)
}

func TestUpdateStatusUnknownID(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	v1 := auth.Identity{UserID: "v1", Role: auth.RoleVendor}

	_, _, err := svc.UpdateStatus(context.Background(), v1, "missing", StatusShipped)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCancelPendingCascades(t *testing.T) {
	svc, store, _, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.PlaceOrder(ctx, "u1", []RequestedLine{
		{ProductID: "a", Qty: 2},
		{ProductID: "b", Qty: 1},
	}, testAddr())
	require.NoError(t, err)

	owner := auth.Identity{UserID: "u1", Role: auth.RoleCustomer}
	got, err := svc.Cancel(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	subs, _ := store.SubOrdersByOrder(ctx, o.ID)
	for _, so := range subs {
		assert.Equal(t, StatusCancelled, so.Status)
	}

	// no restock on cancellation
	assert.Equal(t, 3, store.products["a"].Stock)
	assert.Equal(t, 2, store.products["b"].Stock)

	// cancelling again is an invalid transition
	_, err = svc.Cancel(ctx, owner, o.ID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestCancelShippedRejected(t *testing.T) {
	svc, store, _, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.PlaceOrder(ctx, "u1", []RequestedLine{{ProductID: "a", Qty: 1}}, testAddr())
	require.NoError(t, err)
	store.orders[o.ID].Status = StatusShipped

	owner := auth.Identity{UserID: "u1", Role: auth.RoleCustomer}
	_, err = svc.Cancel(ctx, owner, o.ID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "shipped")
}

func TestCancelNotOwner(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.PlaceOrder(ctx, "u1", []RequestedLine{{ProductID: "a", Qty: 1}}, testAddr())
	require.NoError(t, err)

	stranger := auth.Identity{UserID: "u2", Role: auth.RoleCustomer}
	_, err = svc.Cancel(ctx, stranger, o.ID)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	// admin may cancel anyone's order
	admin := auth.Identity{UserID: "adm", Role: auth.RoleAdmin}
	_, err = svc.Cancel(ctx, admin, o.ID)
	assert.NoError(t, err)
}

func TestCheckoutSession(t *testing.T) {
	svc, store, carts, prov, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CheckoutSession(ctx, "u1", testAddr())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "empty cart")

	require.NoError(t, carts.Put(ctx, "u1", []cart.Item{
		{ProductID: "a", Qty: 2, PriceCents: 1000},
		{ProductID: "b", Qty: 1, PriceCents: 2000},
	}))

	// vendor raises the price after the items were carted
	p := store.products["a"]
	p.PriceCents = 9999
	store.products["a"] = p

	sess, err := svc.CheckoutSession(ctx, "u1", testAddr())
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.NotEmpty(t, sess.URL)

	// the session charges the cart snapshot, not the live price
	stored := prov.sessions[sess.ID]
	assert.Equal(t, "u1", stored.UserID)
	var addr ShippingAddress
	require.NoError(t, json.Unmarshal([]byte(stored.AddressJSON), &addr))
	assert.Equal(t, testAddr(), addr)
}

func TestVerifyPayment(t *testing.T) {
	svc, store, carts, prov, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, carts.Put(ctx, "u1", []cart.Item{
		{ProductID: "a", Qty: 2, PriceCents: 1000},
		{ProductID: "b", Qty: 1, PriceCents: 2000},
	}))
	sess, err := svc.CheckoutSession(ctx, "u1", testAddr())
	require.NoError(t, err)

	// not paid yet
	_, _, err = svc.VerifyPayment(ctx, "u1", sess.ID)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	prov.markPaid(sess.ID)
	o, created, err := svc.VerifyPayment(ctx, "u1", sess.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, sess.ID, o.PaymentSession)
	assert.NotEmpty(t, o.ReceiptURL)
	assert.NotNil(t, o.PaidAt)
	assert.Equal(t, 4000, o.TotalCents)
	assert.Equal(t, testAddr(), o.ShippingAddress)

	// cart cleared, stock decremented once
	left, _ := carts.Get(ctx, "u1")
	assert.Empty(t, left)
	assert.Equal(t, 3, store.products["a"].Stock)
}

func TestVerifyPaymentDuplicateWebhook(t *testing.T) {
	svc, store, carts, prov, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, carts.Put(ctx, "u1", []cart.Item{{ProductID: "a", Qty: 1, PriceCents: 1000}}))
	sess, err := svc.CheckoutSession(ctx, "u1", testAddr())
	require.NoError(t, err)
	prov.markPaid(sess.ID)

	first, created, err := svc.VerifyPayment(ctx, "u1", sess.ID)
	require.NoError(t, err)
	assert.True(t, created)

	// the cart is already empty; the retry must be a no-op returning the
	// same order
	second, created, err := svc.VerifyPayment(ctx, "u1", sess.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.orderIDs, 1)
	assert.Equal(t, 4, store.products["a"].Stock)
}

func TestVerifyPaymentMissingSession(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, _, err := svc.VerifyPayment(context.Background(), "u1", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestVerifyPaymentWrongUser(t *testing.T) {
	svc, store, carts, prov, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, carts.Put(ctx, "u1", []cart.Item{{ProductID: "b", Qty: 1, PriceCents: 2000}}))
	sess, err := svc.CheckoutSession(ctx, "u1", testAddr())
	require.NoError(t, err)
	prov.markPaid(sess.ID)

	// another user with a full cart of their own cannot redeem u1's session
	require.NoError(t, carts.Put(ctx, "u2", []cart.Item{{ProductID: "a", Qty: 1, PriceCents: 1000}}))
	_, _, err = svc.VerifyPayment(ctx, "u2", sess.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Empty(t, store.orderIDs)
	u2cart, _ := carts.Get(ctx, "u2")
	assert.Len(t, u2cart, 1)

	// the real payer still reconciles normally
	o, created, err := svc.VerifyPayment(ctx, "u1", sess.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "u1", o.UserID)

	// once the order exists the stranger is still rejected, not handed it
	_, _, err = svc.VerifyPayment(ctx, "u2", sess.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestVendorSubOrdersNewestFirst(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.PlaceOrder(ctx, "u1", []RequestedLine{{ProductID: "a", Qty: 1}}, testAddr())
	require.NoError(t, err)
	second, err := svc.PlaceOrder(ctx, "u2", []RequestedLine{{ProductID: "a", Qty: 1}}, testAddr())
	require.NoError(t, err)

	subs, err := svc.VendorSubOrders(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, second.ID, subs[0].OrderID)
	assert.Equal(t, first.ID, subs[1].OrderID)
}
