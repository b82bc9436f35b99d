package session

import (
	"time"

	"github.com/adamwoolhether/httpsession/session/cache"
)

// Configuration is one declarative option contributed to a session.
// The set of variants is closed: Cache, Delegate, Disable, Headers, Preset,
// ProtocolClasses and Timeout.
type Configuration interface {
	configuration()
}

// Cache replaces the response cache of the base configuration.
// A nil Store disables caching.
type Cache struct {
	Store cache.Store
}

// Delegate assigns a session level or task level delegate.
// Build one with SessionDelegateOf or TaskDelegateOf.
type Delegate struct {
	session SessionDelegate
	task    TaskDelegate
}

// SessionDelegateOf returns a Delegate setting the session delegate.
func SessionDelegateOf(d SessionDelegate) Delegate {
	return Delegate{session: d}
}

// TaskDelegateOf returns a Delegate attached to every task of the session.
func TaskDelegateOf(d TaskDelegate) Delegate {
	return Delegate{task: d}
}

// Disable turns off a default session behavior.
type Disable int

const (
	// DisableConstrainedNetworkAccess refuses connections over interfaces
	// matching SessionConfig.ConstrainedInterfaces.
	DisableConstrainedNetworkAccess Disable = iota + 1
	// DisableExpensiveNetworkAccess refuses connections over interfaces
	// matching SessionConfig.ExpensiveInterfaces.
	DisableExpensiveNetworkAccess
	// DisableWaitingForConnectivity makes dial failures fail the task
	// immediately instead of retrying until the resource timeout.
	// Background sessions record the flag in their configuration but
	// always wait.
	DisableWaitingForConnectivity
)

func (d Disable) String() string {
	switch d {
	case DisableConstrainedNetworkAccess:
		return "constrainedNetworkAccess"
	case DisableExpensiveNetworkAccess:
		return "expensiveNetworkAccess"
	case DisableWaitingForConnectivity:
		return "waitingForConnectivity"
	default:
		return "unknown"
	}
}

// ParseDisable returns the Disable flag named by s, as printed by String.
func ParseDisable(s string) (Disable, bool) {
	for _, d := range []Disable{DisableConstrainedNetworkAccess, DisableExpensiveNetworkAccess, DisableWaitingForConnectivity} {
		if d.String() == s {
			return d, true
		}
	}
	return 0, false
}

// Headers are added to every outgoing request that does not already
// carry the header.
type Headers map[string]string

// PresetKind identifies the base configuration selected by a Preset.
type PresetKind int

const (
	PresetBackground PresetKind = iota + 1
	PresetCustom
	PresetEphemeral
)

// Preset selects the base configuration that the other variants modify.
// Without a Preset, DefaultConfig is used.
type Preset struct {
	Kind                      PresetKind
	Identifier                string
	SharedContainerIdentifier string
	IsDiscretionary           bool
	Config                    *SessionConfig
}

// Ephemeral keeps cache and cookies in memory private to the session.
var Ephemeral = Preset{Kind: PresetEphemeral}

// BackgroundOption customizes a Background preset.
type BackgroundOption func(*Preset)

// WithSharedContainer records the identifier of a container shared
// between cooperating processes.
func WithSharedContainer(identifier string) BackgroundOption {
	return func(p *Preset) {
		p.SharedContainerIdentifier = identifier
	}
}

// WithDiscretionary controls whether transfers are paced to yield to
// interactive traffic. Background presets are discretionary by default.
func WithDiscretionary(discretionary bool) BackgroundOption {
	return func(p *Preset) {
		p.IsDiscretionary = discretionary
	}
}

// Background returns a preset for long running transfers identified by identifier.
func Background(identifier string, opts ...BackgroundOption) Preset {
	p := Preset{
		Kind:            PresetBackground,
		Identifier:      identifier,
		IsDiscretionary: true,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Custom uses cfg as the base configuration. Options given alongside it
// override its values; cfg itself is never modified.
func Custom(cfg *SessionConfig) Preset {
	return Preset{Kind: PresetCustom, Config: cfg}
}

// ProtocolClasses are consulted in order before a request reaches the network.
type ProtocolClasses []ProtocolHandler

// TimeoutKind distinguishes request and resource timeouts.
type TimeoutKind int

const (
	TimeoutRequest TimeoutKind = iota + 1
	TimeoutResource
)

// Timeout overrides one of the session timeouts.
type Timeout struct {
	Kind     TimeoutKind
	Duration time.Duration
}

// RequestTimeout limits how long a task waits for data to arrive.
// The timer restarts whenever data arrives.
func RequestTimeout(d time.Duration) Timeout {
	return Timeout{Kind: TimeoutRequest, Duration: d}
}

// ResourceTimeout limits how long a whole task may take, including any
// time spent waiting for connectivity.
func ResourceTimeout(d time.Duration) Timeout {
	return Timeout{Kind: TimeoutResource, Duration: d}
}

func (Cache) configuration()           {}
func (Delegate) configuration()        {}
func (Disable) configuration()         {}
func (Headers) configuration()         {}
func (Preset) configuration()          {}
func (ProtocolClasses) configuration() {}
func (Timeout) configuration()         {}
