package transport

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/sphinxmux/nbrpc/reactor"
)

// RateLimited wraps any ServerTransport with an accept-rate limiter,
// the connection-admission backpressure of SPEC_FULL.md §6.5, for the
// Acceptor under connection-storm conditions: Accept blocks on the
// limiter before delegating, rather than the Reactor discovering the
// storm only once thousands of fds are already registered.
type RateLimited struct {
	inner   reactor.ServerTransport
	limiter *rate.Limiter
}

func NewRateLimited(inner reactor.ServerTransport, ratePerSecond float64, burst int) *RateLimited {
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

func (r *RateLimited) Listen() error {
	return r.inner.Listen()
}

func (r *RateLimited) Accept() (reactor.Connection, error) {
	if err := r.limiter.Wait(context.Background()); err != nil {
		return nil, err
	}
	return r.inner.Accept()
}

func (r *RateLimited) Close() error {
	return r.inner.Close()
}
