package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
)

type Repo struct{ DB *pgxpool.Pool }

// PlaceOrder runs one Order Builder pass in a single transaction: lock each
// product row, verify and decrement stock, split lines per shop, insert the
// parent order and one sub-order per shop. Any failure rolls the whole run
// back, so stock is never left partially decremented.
func (r *Repo) PlaceOrder(ctx context.Context, in PlaceInput) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lines := make([]PricedLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		var (
			name, shopID, vendorID string
			priceCents, stock      int
		)
		err := tx.QueryRow(ctx, `
			SELECT p.name, p.price_cents, p.stock, p.shop_id, s.owner_id
			FROM products p
			JOIN shops s ON s.id = p.shop_id
			WHERE p.id = $1
			FOR UPDATE OF p`, l.ProductID,
		).Scan(&name, &priceCents, &stock, &shopID, &vendorID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("product not found: %s", l.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if stock < l.Qty {
			return nil, apperr.InsufficientStock(
				"insufficient stock for product %s: available %d, requested %d",
				l.ProductID, stock, l.Qty)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now()
			WHERE id = $1`, l.ProductID, l.Qty); err != nil {
			return nil, err
		}
		lines = append(lines, PricedLine{
			ProductID:  l.ProductID,
			Name:       name,
			PriceCents: priceCents,
			Qty:        l.Qty,
			ShopID:     shopID,
			VendorID:   vendorID,
		})
	}

	buckets, total := SplitByShop(lines)

	o := &Order{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		TotalCents:      total,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		ShippingAddress: in.Address,
	}
	for _, l := range in.Lines {
		o.Items = append(o.Items, OrderItem{ProductID: l.ProductID, Qty: l.Qty})
	}

	var sess, receipt *string
	if in.Payment != nil {
		o.PaymentStatus = PaymentPaid
		o.PaymentSession = in.Payment.SessionID
		o.ReceiptURL = in.Payment.ReceiptURL
		t := in.Payment.PaidAt
		o.PaidAt = &t
		sess, receipt = &o.PaymentSession, &o.ReceiptURL
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, status, payment_status, total_cents,
		                   payment_session_id, receipt_url, paid_at,
		                   ship_address, ship_city, ship_postal_code, ship_country)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.Status, o.PaymentStatus, o.TotalCents,
		sess, receipt, o.PaidAt,
		o.ShippingAddress.Address, o.ShippingAddress.City,
		o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, qty)
			VALUES ($1,$2,$3)`, o.ID, it.ProductID, it.Qty); err != nil {
			return nil, err
		}
	}

	for _, b := range buckets {
		subID := uuid.NewString()
		if _, err := tx.Exec(ctx, `
			INSERT INTO sub_orders(id, order_id, vendor_id, shop_id, status, payment_status, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			subID, o.ID, b.VendorID, b.ShopID, StatusPending, o.PaymentStatus, b.TotalCents); err != nil {
			return nil, err
		}
		for _, it := range b.Items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO sub_order_items(sub_order_id, product_id, name, price_cents, qty)
				VALUES ($1,$2,$3,$4,$5)`,
				subID, it.ProductID, it.Name, it.PriceCents, it.Qty); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

const orderCols = `id, user_id, status, payment_status, total_cents,
	payment_session_id, receipt_url, paid_at,
	ship_address, ship_city, ship_postal_code, ship_country,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var sess, receipt *string
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.PaymentStatus, &o.TotalCents,
		&sess, &receipt, &o.PaidAt,
		&o.ShippingAddress.Address, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		o.PaymentSession = *sess
	}
	if receipt != nil {
		o.ReceiptURL = *receipt
	}
	return &o, nil
}

func (r *Repo) orderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, qty FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.Qty); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) OrderByID(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.orderItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// OrderByPaymentSession returns (nil, nil) when no order holds the session id.
func (r *Repo) OrderByPaymentSession(ctx context.Context, sessionID string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE payment_session_id=$1`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.orderItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) listOrders(ctx context.Context, where string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+orderCols+` FROM orders `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.orderItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) OrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.listOrders(ctx, `WHERE user_id=$1`, userID)
}

func (r *Repo) AllOrders(ctx context.Context) ([]Order, error) {
	return r.listOrders(ctx, ``)
}

const subOrderCols = `id, order_id, vendor_id, shop_id, status, payment_status, total_cents, created_at, updated_at`

func scanSubOrder(row pgx.Row) (*SubOrder, error) {
	var so SubOrder
	err := row.Scan(&so.ID, &so.OrderID, &so.VendorID, &so.ShopID,
		&so.Status, &so.PaymentStatus, &so.TotalCents, &so.CreatedAt, &so.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &so, nil
}

func (r *Repo) subOrderItems(ctx context.Context, subOrderID string) ([]SubOrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, name, price_cents, qty
		FROM sub_order_items WHERE sub_order_id=$1 ORDER BY id`, subOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubOrderItem
	for rows.Next() {
		var it SubOrderItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.PriceCents, &it.Qty); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// SubOrderByID returns (nil, nil) when the id matches no sub-order, so the
// caller can fall through to the parent-order path.
func (r *Repo) SubOrderByID(ctx context.Context, id string) (*SubOrder, error) {
	so, err := scanSubOrder(r.DB.QueryRow(ctx,
		`SELECT `+subOrderCols+` FROM sub_orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if so.Items, err = r.subOrderItems(ctx, so.ID); err != nil {
		return nil, err
	}
	return so, nil
}

func (r *Repo) listSubOrders(ctx context.Context, where, order string, args ...any) ([]SubOrder, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+subOrderCols+` FROM sub_orders `+where+` `+order, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubOrder
	for rows.Next() {
		so, err := scanSubOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *so)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.subOrderItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) SubOrdersByOrder(ctx context.Context, orderID string) ([]SubOrder, error) {
	return r.listSubOrders(ctx, `WHERE order_id=$1`, `ORDER BY created_at`, orderID)
}

func (r *Repo) SubOrdersByVendor(ctx context.Context, vendorID string) ([]SubOrder, error) {
	return r.listSubOrders(ctx, `WHERE vendor_id=$1`, `ORDER BY created_at DESC`, vendorID)
}

func (r *Repo) SetSubOrderStatus(ctx context.Context, id string, status Status) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE sub_orders SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("sub-order not found: %s", id)
	}
	return nil
}

func (r *Repo) SetOrderStatus(ctx context.Context, id string, status Status) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("order not found: %s", id)
	}
	return nil
}

// CancelOrderTree sets the parent and every sub-order to cancelled in one
// transaction. Direct override: sub-order statuses are not re-derived.
// Stock is not restored.
func (r *Repo) CancelOrderTree(ctx context.Context, orderID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`,
		orderID, StatusCancelled); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE sub_orders SET status=$2, updated_at=now() WHERE order_id=$1`,
		orderID, StatusCancelled); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
