// Package throttle provides an [http.RoundTripper] that paces outbound
// requests with a token bucket from [golang.org/x/time/rate].
//
// Discretionary background sessions use it so their transfers yield to
// interactive traffic:
//
//	rt, err := throttle.NewRoundTripper(2, 4, slog.Default(), http.DefaultTransport)
//
// When tokens run out, requests block until one is available or the request
// context ends.
package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// throttle is an http.RoundTripper, using the time/rate token
// bucket limiter to restrict outbound calls.
type throttle struct {
	limiter *rate.Limiter
	next    http.RoundTripper
	logger  *slog.Logger
}

// NewRoundTripper returns an http.RoundTripper allowing rps requests per
// second with the given burst. A nil logger disables wait logging.
func NewRoundTripper(rps float64, burst int, logger *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%g] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}

	t := &throttle{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		next:    next,
		logger:  logger,
	}

	return t, nil
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	if t.limiter.Allow() {
		return t.next.RoundTrip(r)
	}

	start := time.Now()
	if t.logger != nil {
		t.logger.Debug("throttle tokens exhausted", "limit", float64(t.limiter.Limit()), "burst", t.limiter.Burst(), "path", r.URL.Path)
	}

	err := t.limiter.Wait(ctx)
	if t.logger != nil {
		t.logger.Debug("throttle wait complete", "waited", time.Since(start).String(), "path", r.URL.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}
