package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adamwoolhether/httpsession/session/cache"
)

// FileConfig is the YAML form of a session configuration.
//
//	preset: background
//	identifier: nightly-sync
//	headers:
//	  Authorization: Bearer ${API_TOKEN}
//	timeouts:
//	  request: 30s
//	disable: [expensiveNetworkAccess]
//	cache:
//	  type: redis
//	  redis:
//	    addr: localhost:6379
type FileConfig struct {
	Preset                string            `yaml:"preset" validate:"omitempty,oneof=default ephemeral background"`
	Identifier            string            `yaml:"identifier" validate:"required_if=Preset background"`
	SharedContainer       string            `yaml:"sharedContainer"`
	Discretionary         *bool             `yaml:"discretionary"`
	Headers               map[string]string `yaml:"headers"`
	Timeouts              TimeoutsConfig    `yaml:"timeouts"`
	Disable               []string          `yaml:"disable" validate:"dive,oneof=constrainedNetworkAccess expensiveNetworkAccess waitingForConnectivity"`
	Interfaces            InterfacesConfig  `yaml:"interfaces"`
	MaxConnectionsPerHost int               `yaml:"maxConnectionsPerHost" validate:"gte=0"`
	DownloadDirectory     string            `yaml:"downloadDirectory"`
	Cache                 CacheConfig       `yaml:"cache"`
}

type TimeoutsConfig struct {
	Request  time.Duration `yaml:"request" validate:"gte=0"`
	Resource time.Duration `yaml:"resource" validate:"gte=0"`
}

type InterfacesConfig struct {
	Constrained []string `yaml:"constrained"`
	Expensive   []string `yaml:"expensive"`
}

// CacheConfig selects the response store. An empty type keeps the store
// of the preset.
type CacheConfig struct {
	Type  string           `yaml:"type" validate:"omitempty,oneof=none memory disk redis"`
	Dir   string           `yaml:"dir" validate:"required_if=Type disk"`
	Redis RedisCacheConfig `yaml:"redis"`
}

type RedisCacheConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix"`
}

// LoadConfig reads the YAML file at path, expanding ${VAR} references from
// the environment, and validates it.
func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return ParseConfig(b)
}

// ParseConfig is LoadConfig for YAML already in memory.
func ParseConfig(b []byte) (*FileConfig, error) {
	var fc FileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &fc); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if fc.Cache.Type == "redis" && fc.Cache.Redis.Addr == "" {
		return nil, FieldErrors{{Field: "FileConfig.cache.redis.addr", Err: "This field is required"}}
	}

	if err := validateStruct(fc); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &fc, nil
}

// Configurations converts fc into configuration variants. Stores that hold
// connections are released by the returned close function.
func (fc *FileConfig) Configurations(ctx context.Context) ([]Configuration, func() error, error) {
	closer := func() error { return nil }

	var base *SessionConfig
	switch fc.Preset {
	case "background":
		p := Background(fc.Identifier, WithSharedContainer(fc.SharedContainer))
		if fc.Discretionary != nil {
			p.IsDiscretionary = *fc.Discretionary
		}
		base = baseConfig(&p)
	case "ephemeral":
		base = EphemeralConfig()
	default:
		base = DefaultConfig()
	}

	if fc.Interfaces.Constrained != nil {
		base.ConstrainedInterfaces = fc.Interfaces.Constrained
	}
	if fc.Interfaces.Expensive != nil {
		base.ExpensiveInterfaces = fc.Interfaces.Expensive
	}
	if fc.MaxConnectionsPerHost > 0 {
		base.MaxConnectionsPerHost = fc.MaxConnectionsPerHost
	}
	if fc.DownloadDirectory != "" {
		base.DownloadDirectory = fc.DownloadDirectory
	}

	configs := []Configuration{Custom(base)}

	if fc.Headers != nil {
		configs = append(configs, Headers(fc.Headers))
	}
	if fc.Timeouts.Request > 0 {
		configs = append(configs, RequestTimeout(fc.Timeouts.Request))
	}
	if fc.Timeouts.Resource > 0 {
		configs = append(configs, ResourceTimeout(fc.Timeouts.Resource))
	}
	for _, name := range fc.Disable {
		d, ok := ParseDisable(name)
		if !ok {
			return nil, nil, fmt.Errorf("unknown disable flag %q", name)
		}
		configs = append(configs, d)
	}

	switch fc.Cache.Type {
	case "none":
		configs = append(configs, Cache{})
	case "memory":
		configs = append(configs, Cache{Store: cache.NewMemory()})
	case "disk":
		store, err := cache.NewDisk(fc.Cache.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening disk cache: %w", err)
		}
		configs = append(configs, Cache{Store: store})
	case "redis":
		store, err := cache.DialRedis(ctx, cache.RedisConfig{
			Addr:     fc.Cache.Redis.Addr,
			Password: fc.Cache.Redis.Password,
			DB:       fc.Cache.Redis.DB,
			Prefix:   fc.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening redis cache: %w", err)
		}
		configs = append(configs, Cache{Store: store})
		closer = store.Close
	}

	return configs, closer, nil
}
