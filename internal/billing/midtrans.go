package billing

import (
	"context"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"golang.org/x/time/rate"
)

// Gateway creates hosted checkout transactions.
type Gateway interface {
	CreateTransaction(ctx context.Context, req *snap.Request) (*snap.Response, error)
}

type snapGateway struct {
	client  snap.Client
	limiter *rate.Limiter
}

// NewSnapGateway returns a Midtrans Snap gateway that never issues more than
// rps requests per second. env "production" selects the live API.
func NewSnapGateway(serverKey, env string, rps, burst int) Gateway {
	g := &snapGateway{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
	if env == "production" {
		g.client.New(serverKey, midtrans.Production)
	} else {
		g.client.New(serverKey, midtrans.Sandbox)
	}
	return g
}

func (g *snapGateway) CreateTransaction(ctx context.Context, req *snap.Request) (*snap.Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, merr := g.client.CreateTransaction(req)
	if merr != nil {
		return nil, merr
	}
	return resp, nil
}
