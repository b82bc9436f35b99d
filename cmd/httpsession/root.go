package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/httpsession"
	"github.com/adamwoolhether/httpsession/session"
)

type globalFlags struct {
	config          string
	headers         []string
	requestTimeout  time.Duration
	resourceTimeout time.Duration
	disable         []string
	ephemeral       bool
	verbose         bool
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "httpsession",
		Short: "Fetch, download and upload through a declaratively configured HTTP session.",
		Long: `httpsession issues HTTP requests through a session assembled from
configuration variants: headers, timeouts, presets, cache and network
access policy. Flags take precedence over the --config file.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "YAML session configuration file")
	pf.StringArrayVarP(&flags.headers, "header", "H", nil, "additional header as 'Name: value' (repeatable)")
	pf.DurationVar(&flags.requestTimeout, "request-timeout", 0, "time to wait for data to arrive (default 60s)")
	pf.DurationVar(&flags.resourceTimeout, "resource-timeout", 0, "time allowed for the whole transfer (default 168h)")
	pf.StringSliceVar(&flags.disable, "disable", nil, "disable constrainedNetworkAccess, expensiveNetworkAccess or waitingForConnectivity")
	pf.BoolVar(&flags.ephemeral, "ephemeral", false, "keep cache and cookies in memory private to this run")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log session activity to stderr")

	root.AddCommand(
		newGetCmd(&flags),
		newDownloadCmd(&flags),
		newResumeCmd(&flags),
		newUploadCmd(&flags),
	)

	return root
}

// configurations converts the flags into configuration variants.
func (f *globalFlags) configurations() ([]session.Configuration, error) {
	var configs []session.Configuration

	if len(f.headers) > 0 {
		h := make(session.Headers, len(f.headers))
		for _, raw := range f.headers {
			name, value, ok := strings.Cut(raw, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("invalid header %q, want 'Name: value'", raw)
			}
			h[http.CanonicalHeaderKey(strings.TrimSpace(name))] = strings.TrimSpace(value)
		}
		configs = append(configs, h)
	}

	if f.requestTimeout > 0 {
		configs = append(configs, session.RequestTimeout(f.requestTimeout))
	}
	if f.resourceTimeout > 0 {
		configs = append(configs, session.ResourceTimeout(f.resourceTimeout))
	}

	for _, name := range f.disable {
		d, ok := session.ParseDisable(name)
		if !ok {
			return nil, fmt.Errorf("unknown --disable value %q", name)
		}
		configs = append(configs, d)
	}

	if f.ephemeral {
		configs = append(configs, session.Ephemeral)
	}

	return configs, nil
}

// newSession builds the session for a command. The returned function
// invalidates it and releases configured resources.
func (f *globalFlags) newSession(cmd *cobra.Command) (*session.Session, func(), error) {
	if f.verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	configs, err := f.configurations()
	if err != nil {
		return nil, nil, err
	}

	if f.config == "" {
		s := httpsession.New(configs...)
		return s, s.FinishTasksAndInvalidate, nil
	}

	s, closeFn, err := httpsession.NewFromFile(cmd.Context(), f.config, configs...)
	if err != nil {
		return nil, nil, err
	}

	return s, func() {
		s.FinishTasksAndInvalidate()
		if err := closeFn(); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("closing cache: %v", err))
		}
	}, nil
}

// printStatus writes the response status line to stderr.
func printStatus(cmd *cobra.Command, resp *http.Response) {
	c := color.New(color.FgGreen)
	switch {
	case resp.StatusCode >= 400:
		c = color.New(color.FgRed)
	case resp.StatusCode >= 300:
		c = color.New(color.FgYellow)
	}
	c.Fprintln(cmd.ErrOrStderr(), resp.Proto, resp.Status)
}
