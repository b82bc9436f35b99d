package session

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httpsession/session/cache"
	"github.com/adamwoolhether/httpsession/session/throttle"
	"github.com/adamwoolhether/httpsession/session/transfer"
)

// Pacing of discretionary background sessions.
const (
	discretionaryRPS   = 2
	discretionaryBurst = 4
)

const tracerName = "github.com/adamwoolhether/httpsession/session"

// Session issues tasks using a resolved configuration. A Session is safe
// for concurrent use.
type Session struct {
	id              uuid.UUID
	cfg             *SessionConfig
	sessionDelegate SessionDelegate
	taskDelegate    TaskDelegate

	client *http.Client
	queue  *transfer.Queue
	logger *slog.Logger
	tracer trace.Tracer

	invalidated atomic.Bool
	invalidate  sync.Once
}

// New resolves configs and returns a session using the result.
func New(configs ...Configuration) *Session {
	res := Resolve(configs)
	return newSession(res)
}

func newSession(res Resolved) *Session {
	cfg := res.Config

	s := &Session{
		id:              uuid.New(),
		cfg:             cfg,
		sessionDelegate: res.SessionDelegate,
		taskDelegate:    res.TaskDelegate,
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger.With("session", s.id.String())

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	s.tracer = tp.Tracer(tracerName)

	maxTasks := 0
	if cfg.Kind == KindBackground {
		maxTasks = cfg.MaxConnectionsPerHost
	}
	s.queue = transfer.NewQueue(maxTasks, transfer.DiscardErrors())

	s.client = &http.Client{
		Transport: otelhttp.NewTransport(s.transport(), otelhttp.WithTracerProvider(tp)),
		Jar:       cfg.CookieJar,
		Timeout:   cfg.TimeoutForResource,
	}
	if rd, ok := s.sessionDelegate.(RedirectDelegate); ok {
		s.client.CheckRedirect = rd.WillPerformRedirect
	}

	s.logger.Debug("session created",
		"kind", cfg.Kind.String(),
		"request_timeout", cfg.TimeoutForRequest.String(),
		"resource_timeout", cfg.TimeoutForResource.String(),
		"constrained", cfg.AllowsConstrainedNetworkAccess,
		"expensive", cfg.AllowsExpensiveNetworkAccess,
		"waits_for_connectivity", s.waitsForConnectivity(),
	)

	return s
}

// transport assembles the round tripper chain below tracing.
func (s *Session) transport() http.RoundTripper {
	cfg := s.cfg

	var rt http.RoundTripper
	if cfg.Transport != nil {
		rt = cfg.Transport
	} else {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.DialContext = newDialer(cfg, s.logger).DialContext
		tr.MaxConnsPerHost = cfg.MaxConnectionsPerHost
		rt = tr
	}

	if cfg.Kind == KindBackground && cfg.IsDiscretionary {
		throttled, err := throttle.NewRoundTripper(discretionaryRPS, discretionaryBurst, s.logger, rt)
		if err != nil {
			s.logger.Error("configuring discretionary throttle", "error", err)
		} else {
			rt = throttled
		}
	}

	if cfg.Cache != nil {
		rt = cache.NewTransport(cfg.Cache, rt, s.logger)
	}

	if len(cfg.ProtocolClasses) > 0 {
		rt = protocols{handlers: cfg.ProtocolClasses, next: rt}
	}

	if len(cfg.AdditionalHeaders) > 0 {
		rt = additionalHeaders{headers: cfg.AdditionalHeaders, next: rt}
	}

	return rt
}

// ID uniquely identifies the session.
func (s *Session) ID() uuid.UUID { return s.id }

// Configuration returns a copy of the resolved configuration.
func (s *Session) Configuration() SessionConfig {
	return *s.cfg.Clone()
}

// Delegate returns the session delegate, if any.
func (s *Session) Delegate() SessionDelegate { return s.sessionDelegate }

// TaskDelegate returns the delegate attached to every task, if any.
func (s *Session) TaskDelegate() TaskDelegate { return s.taskDelegate }

func (s *Session) waitsForConnectivity() bool {
	return s.cfg.WaitsForConnectivity || s.cfg.Kind == KindBackground
}

// FinishTasksAndInvalidate rejects new tasks, waits for resumed tasks to
// complete and then notifies the session delegate.
func (s *Session) FinishTasksAndInvalidate() {
	s.invalidated.Store(true)

	s.invalidate.Do(func() {
		_ = s.queue.Wait()
		s.client.CloseIdleConnections()
		s.logger.Debug("session invalidated")

		if s.sessionDelegate != nil {
			s.sessionDelegate.DidBecomeInvalid(nil)
		}
	})
}

// InvalidateAndCancel rejects new tasks, cancels every running task with
// ErrSessionInvalidated and notifies the session delegate once they ended.
func (s *Session) InvalidateAndCancel() {
	s.invalidated.Store(true)

	s.invalidate.Do(func() {
		s.queue.Shutdown()
		s.queue.CancelAll(ErrSessionInvalidated)
		_ = s.queue.Wait()
		s.client.CloseIdleConnections()
		s.logger.Debug("session invalidated and cancelled")

		if s.sessionDelegate != nil {
			s.sessionDelegate.DidBecomeInvalid(ErrSessionInvalidated)
		}
	})
}
