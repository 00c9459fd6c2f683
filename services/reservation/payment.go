package reservation

import (
	"context"
	"fmt"
	"time"

	"adspot/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"go.uber.org/zap"
)

// PaymentGateway is the capability the reservation core consumes for money
// movement. Capture happens at request time; refunds are compensating
// actions and must never block a cancellation.
type PaymentGateway interface {
	AuthorizeAndCapture(ctx context.Context, req models.ChargeRequest) (*models.Receipt, error)
	Refund(ctx context.Context, ref models.ChargeRef) error
}

// StripeGateway charges through Stripe PaymentIntents. The renter's saved
// payment method is charged off-session; the PaymentIntent id doubles as the
// charge reference for later refunds.
type StripeGateway struct {
	Logger *zap.Logger
}

func NewStripeGateway(logger *zap.Logger) *StripeGateway {
	return &StripeGateway{Logger: logger}
}

func (g *StripeGateway) AuthorizeAndCapture(ctx context.Context, req models.ChargeRequest) (*models.Receipt, error) {
	params := &stripe.PaymentIntentParams{
		Amount:     stripe.Int64(req.Amount),
		Currency:   stripe.String(req.Currency),
		Customer:   stripe.String(req.PayerRef),
		Confirm:    stripe.Bool(true),
		OffSession: stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("booking_ref", req.BookingRef)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe capture failed: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("stripe capture not settled: intent %s in status %s", pi.ID, pi.Status)
	}

	g.Logger.Info("captured charge",
		zap.String("intent", pi.ID),
		zap.Int64("amount", req.Amount),
		zap.String("currency", req.Currency),
		zap.String("bookingRef", req.BookingRef),
	)
	return &models.Receipt{
		ChargeRef:  models.ChargeRef(pi.ID),
		Amount:     req.Amount,
		Currency:   req.Currency,
		CapturedAt: time.Now(),
	}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, ref models.ChargeRef) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(string(ref)),
	}
	params.Context = ctx

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("stripe refund failed for %s: %w", ref, err)
	}
	g.Logger.Info("refund submitted", zap.String("chargeRef", string(ref)))
	return nil
}

// SimulatedGateway approves every charge and refund. Used in development and
// in tests where the money side is not under test.
type SimulatedGateway struct {
	Logger *zap.Logger
}

func (g *SimulatedGateway) AuthorizeAndCapture(ctx context.Context, req models.ChargeRequest) (*models.Receipt, error) {
	ref := models.ChargeRef("pi_" + uuid.New().String())
	if g.Logger != nil {
		g.Logger.Info("simulated charge", zap.String("chargeRef", string(ref)), zap.Int64("amount", req.Amount))
	}
	return &models.Receipt{
		ChargeRef:  ref,
		Amount:     req.Amount,
		Currency:   req.Currency,
		CapturedAt: time.Now(),
	}, nil
}

func (g *SimulatedGateway) Refund(ctx context.Context, ref models.ChargeRef) error {
	if g.Logger != nil {
		g.Logger.Info("simulated refund", zap.String("chargeRef", string(ref)))
	}
	return nil
}
