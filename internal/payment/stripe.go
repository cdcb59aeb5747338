package payment

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
)

const (
	metaUserID  = "user_id"
	metaAddress = "shipping_address"
)

// Stripe implements Provider over Stripe Checkout.
type Stripe struct {
	API        *client.API
	SuccessURL string
	CancelURL  string
}

func NewStripe(apiKey, successURL, cancelURL string) *Stripe {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Stripe{API: api, SuccessURL: successURL, CancelURL: cancelURL}
}

func (s *Stripe) CreateSession(ctx context.Context, in CreateSessionInput) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.SuccessURL),
		CancelURL:  stripe.String(s.CancelURL),
	}
	params.Context = ctx
	for _, it := range in.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(it.Qty)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(int64(it.PriceCents)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(it.Name),
				},
			},
		})
	}
	params.AddMetadata(metaUserID, in.UserID)
	params.AddMetadata(metaAddress, in.AddressJSON)

	sess, err := s.API.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, apperr.External(err, "stripe create checkout session")
	}
	return Session{ID: sess.ID, URL: sess.URL}, nil
}

func (s *Stripe) GetSession(ctx context.Context, id string) (Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent.latest_charge")

	sess, err := s.API.CheckoutSessions.Get(id, params)
	if err != nil {
		return Session{}, apperr.External(err, "stripe get checkout session %s", id)
	}
	out := Session{
		ID:          sess.ID,
		URL:         sess.URL,
		Paid:        sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		UserID:      sess.Metadata[metaUserID],
		AddressJSON: sess.Metadata[metaAddress],
	}
	if out.Paid {
		out.PaidAt = time.Now().UTC()
	}
	if sess.PaymentIntent != nil && sess.PaymentIntent.LatestCharge != nil {
		out.ReceiptURL = sess.PaymentIntent.LatestCharge.ReceiptURL
	}
	return out, nil
}
