package session

// Resolved is the result of folding a list of configuration variants.
type Resolved struct {
	Config          *SessionConfig
	SessionDelegate SessionDelegate
	TaskDelegate    TaskDelegate
}

// Resolve folds configs into one configuration.
//
// The first Preset selects the base configuration. For Cache, Headers,
// ProtocolClasses, each Timeout kind and each Delegate kind the first
// occurrence overrides the base and later ones are ignored. A Disable flag
// turns its capability off regardless of position or repetition; without
// one the base value is kept.
//
// Resolve does not modify configs or any configuration they reference.
func Resolve(configs []Configuration) Resolved {
	var (
		preset          *Preset
		store           *Cache
		headers         Headers
		haveHeaders     bool
		protocols       ProtocolClasses
		haveProtocols   bool
		requestTimeout  *Timeout
		resourceTimeout *Timeout
		res             Resolved
		disabled        = make(map[Disable]bool)
	)

	for _, c := range configs {
		switch v := c.(type) {
		case Cache:
			if store == nil {
				store = &v
			}
		case Delegate:
			if v.session != nil && res.SessionDelegate == nil {
				res.SessionDelegate = v.session
			}
			if v.task != nil && res.TaskDelegate == nil {
				res.TaskDelegate = v.task
			}
		case Disable:
			disabled[v] = true
		case Headers:
			if !haveHeaders {
				headers, haveHeaders = v, true
			}
		case Preset:
			if preset == nil {
				preset = &v
			}
		case ProtocolClasses:
			if !haveProtocols {
				protocols, haveProtocols = v, true
			}
		case Timeout:
			switch {
			case v.Kind == TimeoutRequest && requestTimeout == nil:
				requestTimeout = &v
			case v.Kind == TimeoutResource && resourceTimeout == nil:
				resourceTimeout = &v
			}
		}
	}

	cfg := baseConfig(preset)

	if store != nil {
		cfg.Cache = store.Store
	}
	if haveHeaders {
		cfg.AdditionalHeaders = make(map[string]string, len(headers))
		for k, v := range headers {
			cfg.AdditionalHeaders[k] = v
		}
	}
	if haveProtocols {
		cfg.ProtocolClasses = append([]ProtocolHandler(nil), protocols...)
	}
	if requestTimeout != nil {
		cfg.TimeoutForRequest = requestTimeout.Duration
	}
	if resourceTimeout != nil {
		cfg.TimeoutForResource = resourceTimeout.Duration
	}
	if disabled[DisableConstrainedNetworkAccess] {
		cfg.AllowsConstrainedNetworkAccess = false
	}
	if disabled[DisableExpensiveNetworkAccess] {
		cfg.AllowsExpensiveNetworkAccess = false
	}
	if disabled[DisableWaitingForConnectivity] {
		cfg.WaitsForConnectivity = false
	}

	res.Config = cfg
	return res
}

func baseConfig(p *Preset) *SessionConfig {
	if p == nil {
		return DefaultConfig()
	}

	switch p.Kind {
	case PresetBackground:
		cfg := BackgroundConfig(p.Identifier)
		cfg.SharedContainerIdentifier = p.SharedContainerIdentifier
		cfg.IsDiscretionary = p.IsDiscretionary
		return cfg
	case PresetCustom:
		if p.Config == nil {
			return DefaultConfig()
		}
		return p.Config.Clone()
	case PresetEphemeral:
		return EphemeralConfig()
	default:
		return DefaultConfig()
	}
}
