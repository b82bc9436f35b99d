// Package httpsession exposes the session builder.
package httpsession

import (
	"context"
	"fmt"

	"github.com/adamwoolhether/httpsession/session"
)

// New resolves configs and returns a session using the result.
// Without configs the session uses session.DefaultConfig.
func New(configs ...session.Configuration) *session.Session {
	return session.New(configs...)
}

// NewFromFile builds a session from the YAML configuration at path.
// overrides take precedence over the file. The returned close function
// releases connections held by the configured cache and must be called
// after the session is invalidated.
func NewFromFile(ctx context.Context, path string, overrides ...session.Configuration) (*session.Session, func() error, error) {
	fc, err := session.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	fromFile, closeFn, err := fc.Configurations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("applying config %s: %w", path, err)
	}

	configs := make([]session.Configuration, 0, len(overrides)+len(fromFile))
	configs = append(configs, overrides...)
	configs = append(configs, fromFile...)

	return session.New(configs...), closeFn, nil
}
