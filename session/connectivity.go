package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// dialFunc matches net.Dialer.DialContext.
type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// dialer enforces the network access policy of a session on new
// connections and, when waiting for connectivity, retries failed dials.
type dialer struct {
	dial    dialFunc
	ifaceOf func(ip net.IP) (string, error)
	logger  *slog.Logger

	denyConstrained []string
	denyExpensive   []string

	wait    bool
	maxWait time.Duration
	backOff func() backoff.BackOff
}

func newDialer(cfg *SessionConfig, logger *slog.Logger) *dialer {
	d := &dialer{
		dial:    (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ifaceOf: interfaceName,
		logger:  logger,
		wait:    cfg.WaitsForConnectivity || cfg.Kind == KindBackground,
		maxWait: cfg.TimeoutForResource,
		backOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	if !cfg.AllowsConstrainedNetworkAccess {
		d.denyConstrained = cfg.ConstrainedInterfaces
	}
	if !cfg.AllowsExpensiveNetworkAccess {
		d.denyExpensive = cfg.ExpensiveInterfaces
	}
	return d
}

func (d *dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if !d.wait {
		return d.dialOnce(ctx, network, addr)
	}

	op := func() (net.Conn, error) {
		conn, err := d.dialOnce(ctx, network, addr)
		if err != nil && (ctx.Err() != nil || !noConnectivity(err)) {
			return nil, backoff.Permanent(err)
		}
		return conn, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(d.backOff()),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.logger.Debug("waiting for connectivity", "addr", addr, "retry_in", next.String(), "error", err)
		}),
	}
	if d.maxWait > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(d.maxWait))
	}

	return backoff.Retry(ctx, op, opts...)
}

func (d *dialer) dialOnce(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := d.dial(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	if len(d.denyConstrained) == 0 && len(d.denyExpensive) == 0 {
		return conn, nil
	}

	tcp, ok := conn.LocalAddr().(*net.TCPAddr)
	if !ok {
		return conn, nil
	}

	name, err := d.ifaceOf(tcp.IP)
	if err != nil {
		d.logger.Debug("classifying local interface", "ip", tcp.IP.String(), "error", err)
		return conn, nil
	}

	for _, class := range []struct {
		label    string
		patterns []string
	}{
		{"constrained", d.denyConstrained},
		{"expensive", d.denyExpensive},
	} {
		if matchAny(class.patterns, name) {
			if err := conn.Close(); err != nil {
				d.logger.Error("closing denied connection", "error", err)
			}
			return nil, fmt.Errorf("%w: %s interface %s", ErrNetworkAccessDenied, class.label, name)
		}
	}

	return conn, nil
}

// noConnectivity reports whether a dial failed because no usable network
// path exists yet. Refused connections and unknown hosts are answers from a
// reachable network and fail immediately.
func noConnectivity(err error) bool {
	if errors.Is(err, ErrNetworkAccessDenied) {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ENETUNREACH, syscall.EHOSTUNREACH, syscall.ENETDOWN} {
		if errors.Is(err, errno) {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsNotFound && (dnsErr.IsTemporary || dnsErr.IsTimeout)
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

var errNoInterface = errors.New("no interface owns address")

// interfaceName returns the name of the local interface holding ip.
func interfaceName(ip net.IP) (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("listing interfaces: %w", err)
	}

	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if n, ok := a.(*net.IPNet); ok && n.IP.Equal(ip) {
				return iface.Name, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s", errNoInterface, ip)
}
