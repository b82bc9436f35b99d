package session

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/go-cmp/cmp"
)

func TestDialer_InterfacePolicy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	tests := map[string]struct {
		iface           string
		denyConstrained []string
		denyExpensive   []string
		wantErr         error
	}{
		"expensiveDenied": {
			iface:         "wwan0",
			denyExpensive: DefaultExpensiveInterfaces,
			wantErr:       ErrNetworkAccessDenied,
		},
		"constrainedDenied": {
			iface:           "en5",
			denyConstrained: []string{"en5"},
			wantErr:         ErrNetworkAccessDenied,
		},
		"otherInterfaceAllowed": {
			iface:         "eth0",
			denyExpensive: DefaultExpensiveInterfaces,
		},
		"noPolicy": {
			iface: "wwan0",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d := &dialer{
				dial:            (&net.Dialer{}).DialContext,
				ifaceOf:         func(net.IP) (string, error) { return tc.iface, nil },
				logger:          slog.Default(),
				denyConstrained: tc.denyConstrained,
				denyExpensive:   tc.denyExpensive,
			}

			conn, err := d.DialContext(t.Context(), "tcp", ts.Listener.Addr().String())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if conn != nil {
				conn.Close()
			}
		})
	}
}

func TestDialer_WaitsForConnectivity(t *testing.T) {
	unreachable := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ENETUNREACH)}

	tests := map[string]struct {
		wait         bool
		failures     int32
		maxWait      time.Duration
		wantErr      error
		wantAttempts int32
	}{
		"noWaitFailsFast": {
			failures:     1,
			wantErr:      unreachable,
			wantAttempts: 1,
		},
		"waitRecovers": {
			wait:         true,
			failures:     3,
			maxWait:      5 * time.Second,
			wantAttempts: 4,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var attempts atomic.Int32
			d := &dialer{
				dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
					if attempts.Add(1) <= tc.failures {
						return nil, unreachable
					}
					client, server := net.Pipe()
					server.Close()
					return client, nil
				},
				ifaceOf: interfaceName,
				logger:  slog.Default(),
				wait:    tc.wait,
				maxWait: tc.maxWait,
				backOff: func() backoff.BackOff { return backoff.NewConstantBackOff(10 * time.Millisecond) },
			}

			conn, err := d.DialContext(t.Context(), "tcp", "example.invalid:80")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if conn != nil {
				conn.Close()
			}
			if got := attempts.Load(); got != tc.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tc.wantAttempts, got)
			}
		})
	}
}

func TestDialer_WaitBoundedByMaxWait(t *testing.T) {
	unreachable := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ENETUNREACH)}

	var attempts atomic.Int32
	d := &dialer{
		dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			attempts.Add(1)
			return nil, unreachable
		},
		logger:  slog.Default(),
		wait:    true,
		maxWait: 100 * time.Millisecond,
		backOff: func() backoff.BackOff { return backoff.NewConstantBackOff(10 * time.Millisecond) },
	}

	start := time.Now()
	_, err := d.DialContext(t.Context(), "tcp", "example.invalid:80")
	if !errors.Is(err, unreachable) {
		t.Fatalf("expected %v, got %v", unreachable, err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("waiting was not bounded: %v", elapsed)
	}
	if attempts.Load() < 2 {
		t.Errorf("expected retries, got %d attempts", attempts.Load())
	}
}

func TestDialer_FailsFastWithoutRetry(t *testing.T) {
	tests := map[string]error{
		"refused":  &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
		"notFound": &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{Err: "no such host", Name: "example.invalid", IsNotFound: true}},
		"other":    errors.New("tls: handshake failure"),
	}

	for name, dialErr := range tests {
		t.Run(name, func(t *testing.T) {
			var attempts atomic.Int32
			d := &dialer{
				dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
					attempts.Add(1)
					return nil, dialErr
				},
				logger:  slog.Default(),
				wait:    true,
				maxWait: time.Minute,
				backOff: func() backoff.BackOff { return backoff.NewConstantBackOff(10 * time.Millisecond) },
			}

			_, err := d.DialContext(t.Context(), "tcp", "example.invalid:80")
			if !errors.Is(err, dialErr) {
				t.Fatalf("expected %v, got %v", dialErr, err)
			}
			if got := attempts.Load(); got != 1 {
				t.Errorf("expected 1 attempt, got %d", got)
			}
		})
	}
}

func TestNoConnectivity(t *testing.T) {
	tests := map[string]struct {
		err  error
		want bool
	}{
		"netUnreachable":  {err: os.NewSyscallError("connect", syscall.ENETUNREACH), want: true},
		"hostUnreachable": {err: os.NewSyscallError("connect", syscall.EHOSTUNREACH), want: true},
		"accessDenied":    {err: ErrNetworkAccessDenied, want: true},
		"dnsTemporary":    {err: &net.DNSError{Err: "server misbehaving", IsTemporary: true}, want: true},
		"dnsNotFound":     {err: &net.DNSError{Err: "no such host", IsNotFound: true}},
		"refused":         {err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := noConnectivity(tc.err); got != tc.want {
				t.Errorf("expected %t, got %t", tc.want, got)
			}
		})
	}
}

func TestData_RefusedConnectionFailsFast(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := New()
	t.Cleanup(s.InvalidateAndCancel)
	if !s.Configuration().WaitsForConnectivity {
		t.Fatal("expected default session to wait for connectivity")
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	_, _, err = s.Data(ctx, NewRequest("http://"+addr, http.MethodGet))
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Fatalf("expected connection refused, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("refused connection was retried for %v", elapsed)
	}
}

func TestNewDialer_FromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowsExpensiveNetworkAccess = false
	cfg.ConstrainedInterfaces = []string{"en*"}
	cfg.WaitsForConnectivity = false

	d := newDialer(cfg, slog.Default())

	if diff := cmp.Diff(DefaultExpensiveInterfaces, d.denyExpensive); diff != "" {
		t.Errorf("expensive patterns mismatch (-want +got):\n%s", diff)
	}
	if d.denyConstrained != nil {
		t.Errorf("expected constrained access allowed, got %v", d.denyConstrained)
	}
	if d.wait {
		t.Error("expected no waiting")
	}

	bgCfg := Resolve([]Configuration{Background("bg"), DisableWaitingForConnectivity}).Config
	if bgCfg.WaitsForConnectivity {
		t.Error("expected the disable flag recorded in the background configuration")
	}
	if bg := newDialer(bgCfg, slog.Default()); !bg.wait {
		t.Error("expected background sessions to wait")
	}
}

func TestMatchAny(t *testing.T) {
	tests := map[string]struct {
		name string
		want bool
	}{
		"cellular": {name: "rmnet_data0", want: true},
		"ppp":      {name: "ppp0", want: true},
		"ethernet": {name: "eth0"},
		"loopback": {name: "lo"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := matchAny(DefaultExpensiveInterfaces, tc.name); got != tc.want {
				t.Errorf("expected %t, got %t", tc.want, got)
			}
		})
	}
}
