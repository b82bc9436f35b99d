package session

import (
	"log/slog"
	"maps"
	"net/http"
	"net/http/cookiejar"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httpsession/session/cache"
)

const (
	// DefaultRequestTimeout is how long a task waits for data to arrive.
	DefaultRequestTimeout = 60 * time.Second
	// DefaultResourceTimeout is how long a whole task may take.
	DefaultResourceTimeout = 604800 * time.Second
	// DefaultBackgroundConnections bounds concurrent tasks of a background session.
	DefaultBackgroundConnections = 4
)

// DefaultExpensiveInterfaces match cellular and tethered link names.
var DefaultExpensiveInterfaces = []string{"wwan*", "rmnet*", "ppp*", "usb*"}

// Kind identifies the preset a SessionConfig was derived from.
type Kind int

const (
	KindDefault Kind = iota
	KindBackground
	KindEphemeral
)

func (k Kind) String() string {
	switch k {
	case KindBackground:
		return "background"
	case KindEphemeral:
		return "ephemeral"
	default:
		return "default"
	}
}

// SessionConfig is the resolved configuration of a session.
type SessionConfig struct {
	Kind                      Kind
	Identifier                string
	SharedContainerIdentifier string
	IsDiscretionary           bool

	// Cache stores responses. Nil disables caching.
	Cache             cache.Store
	AdditionalHeaders map[string]string
	ProtocolClasses   []ProtocolHandler

	TimeoutForRequest  time.Duration
	TimeoutForResource time.Duration

	AllowsConstrainedNetworkAccess bool
	AllowsExpensiveNetworkAccess   bool

	// WaitsForConnectivity is ignored by background sessions, which
	// always wait.
	WaitsForConnectivity bool

	// ConstrainedInterfaces and ExpensiveInterfaces are path.Match patterns
	// against local network interface names.
	ConstrainedInterfaces []string
	ExpensiveInterfaces   []string

	// MaxConnectionsPerHost bounds connections per host and, for background
	// sessions, concurrent tasks. Zero means no limit.
	MaxConnectionsPerHost int
	// DownloadDirectory receives downloaded files. Empty means os.TempDir.
	DownloadDirectory string

	CookieJar http.CookieJar
	// Transport replaces the network transport. Nil uses a clone of
	// http.DefaultTransport.
	Transport http.RoundTripper
	Logger    *slog.Logger
	// TracerProvider creates task and transport spans. Nil uses the global
	// provider.
	TracerProvider trace.TracerProvider
}

var sharedJar = sync.OnceValue(func() http.CookieJar {
	jar, _ := cookiejar.New(nil)
	return jar
})

// DefaultConfig returns the configuration used when no Preset is given.
// It shares its cache and cookie jar with every other default session.
func DefaultConfig() *SessionConfig {
	return &SessionConfig{
		Kind:                           KindDefault,
		Cache:                          cache.Shared(),
		TimeoutForRequest:              DefaultRequestTimeout,
		TimeoutForResource:             DefaultResourceTimeout,
		AllowsConstrainedNetworkAccess: true,
		AllowsExpensiveNetworkAccess:   true,
		WaitsForConnectivity:           true,
		ExpensiveInterfaces:            slices.Clone(DefaultExpensiveInterfaces),
		CookieJar:                      sharedJar(),
	}
}

// EphemeralConfig returns a configuration whose cache and cookies live in
// memory owned by the session alone.
func EphemeralConfig() *SessionConfig {
	cfg := DefaultConfig()
	cfg.Kind = KindEphemeral
	cfg.Cache = cache.NewMemory()
	jar, _ := cookiejar.New(nil)
	cfg.CookieJar = jar
	return cfg
}

// BackgroundConfig returns a configuration for long running transfers.
func BackgroundConfig(identifier string) *SessionConfig {
	cfg := DefaultConfig()
	cfg.Kind = KindBackground
	cfg.Identifier = identifier
	cfg.IsDiscretionary = true
	cfg.MaxConnectionsPerHost = DefaultBackgroundConnections
	return cfg
}

// Clone returns a copy of c whose maps and slices are not shared with c.
// Cache, CookieJar, Transport, Logger and TracerProvider are shared.
func (c *SessionConfig) Clone() *SessionConfig {
	cpy := *c
	cpy.AdditionalHeaders = maps.Clone(c.AdditionalHeaders)
	cpy.ProtocolClasses = slices.Clone(c.ProtocolClasses)
	cpy.ConstrainedInterfaces = slices.Clone(c.ConstrainedInterfaces)
	cpy.ExpensiveInterfaces = slices.Clone(c.ExpensiveInterfaces)
	return &cpy
}
