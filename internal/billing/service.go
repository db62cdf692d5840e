// Package billing starts hosted checkouts for plan upgrades. Payment
// confirmation arrives out of band and is not handled here.
package billing

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/model"
	"github.com/emandor/pbe_journey/internal/plan"
	"github.com/emandor/pbe_journey/internal/store"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

type Mode string

const (
	ModePayment      Mode = "payment"
	ModeSubscription Mode = "subscription"
)

type Price struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Plan      model.Plan `json:"plan"`
	AmountIDR int64      `json:"amount_idr"`
	Recurring bool       `json:"recurring"`
}

// Catalog is keyed by price id.
type Catalog map[string]Price

func DefaultCatalog() Catalog {
	return Catalog{
		"pro_monthly":        {ID: "pro_monthly", Name: "PBE Journey Pro (monthly)", Plan: model.PlanPro, AmountIDR: 49000, Recurring: true},
		"pro_yearly":         {ID: "pro_yearly", Name: "PBE Journey Pro (yearly)", Plan: model.PlanPro, AmountIDR: 490000},
		"enterprise_monthly": {ID: "enterprise_monthly", Name: "PBE Journey Enterprise (monthly)", Plan: model.PlanEnterprise, AmountIDR: 199000, Recurring: true},
		"enterprise_yearly":  {ID: "enterprise_yearly", Name: "PBE Journey Enterprise (yearly)", Plan: model.PlanEnterprise, AmountIDR: 1990000},
	}
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (model.User, error)
	UpdatePlan(ctx context.Context, userID string, p model.Plan, settings model.PlanSettings) error
}

// PlanListener drops anything derived from a user's old plan.
type PlanListener interface {
	Clear(userID string)
}

type Service struct {
	users    Users
	gateway  Gateway
	catalog  Catalog
	listener PlanListener
}

type Option func(*Service)

func WithPlanListener(l PlanListener) Option { return func(s *Service) { s.listener = l } }

func NewService(users Users, gateway Gateway, catalog Catalog, opts ...Option) *Service {
	s := &Service{users: users, gateway: gateway, catalog: catalog}
	for _, o := range opts {
		o(s)
	}
	return s
}

type CheckoutInput struct {
	PriceID string `json:"price_id" validate:"required"`
	Mode    Mode   `json:"mode" validate:"required,oneof=payment subscription"`
}

type Checkout struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Checkout creates a Snap transaction for the price and returns where to send
// the user. Recurring prices are only sold as subscriptions and one-time
// prices only as payments.
func (s *Service) Checkout(ctx context.Context, userID string, in CheckoutInput) (Checkout, error) {
	price, ok := s.catalog[in.PriceID]
	if !ok {
		return Checkout{}, apperr.Validationf("unknown price %q", in.PriceID)
	}
	if price.Recurring != (in.Mode == ModeSubscription) {
		return Checkout{}, apperr.Validationf("price %q cannot be bought in %s mode", in.PriceID, in.Mode)
	}
	if s.gateway == nil {
		return Checkout{}, apperr.Remote("billing is not configured", errors.New("no payment gateway"))
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Checkout{}, apperr.NotFound("user not found")
		}
		return Checkout{}, apperr.MustSucceed("load user", err)
	}

	orderID := "pbe-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: price.AmountIDR,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    price.ID,
			Name:  truncate(price.Name, 50),
			Price: price.AmountIDR,
			Qty:   1,
		}},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: truncate(u.Name, 50),
			Email: u.Email,
		},
		CustomField1: u.ID,
		CustomField2: string(in.Mode),
	}

	log := telemetry.Ctx(ctx, "billing").With().
		Str("user_id", u.ID).
		Str("order_id", orderID).
		Str("price_id", price.ID).
		Logger()

	resp, err := s.gateway.CreateTransaction(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("checkout_failed")
		return Checkout{}, apperr.Remote("payment provider unavailable", err)
	}
	log.Info().Str("mode", string(in.Mode)).Int64("amount_idr", price.AmountIDR).Msg("checkout_created")
	return Checkout{OrderID: orderID, Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// SetPlan switches a user to p with that plan's default settings. Used by
// admins to apply a confirmed payment or grant access.
func (s *Service) SetPlan(ctx context.Context, userID string, p model.Plan) error {
	if !plan.Valid(p) {
		return apperr.Validation("plan must be one of free pro enterprise")
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.MustSucceed("load user", err)
	}
	if err := s.users.UpdatePlan(ctx, userID, p, plan.DefaultSettings(p)); err != nil {
		return apperr.MustSucceed("update plan", err)
	}
	if s.listener != nil {
		s.listener.Clear(userID)
	}
	log := telemetry.Ctx(ctx, "billing")
	log.Info().Str("user_id", userID).Str("plan", string(p)).Msg("plan_changed")
	return nil
}

func (s *Service) Prices() []Price {
	out := make([]Price, 0, len(s.catalog))
	for _, p := range s.catalog {
		out = append(out, p)
	}
	sortPrices(out)
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func sortPrices(ps []Price) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].AmountIDR != ps[j].AmountIDR {
			return ps[i].AmountIDR < ps[j].AmountIDR
		}
		return ps[i].ID < ps[j].ID
	})
}
