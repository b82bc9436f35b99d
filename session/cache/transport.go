package cache

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strconv"
	"strings"
	"time"
)

// HeaderStatus is set to "HIT" on responses served from a store.
const HeaderStatus = "X-Cache"

// maxEntrySize caps the body size of a response eligible for storage.
const maxEntrySize = 8 << 20 // 8MB

// Transport is an [http.RoundTripper] serving fresh GET responses from a [Store].
type Transport struct {
	store  Store
	next   http.RoundTripper
	logger *slog.Logger
	now    func() time.Time
}

// NewTransport wraps next with response caching backed by store.
func NewTransport(store Store, next http.RoundTripper, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		store:  store,
		next:   next,
		logger: logger,
		now:    time.Now,
	}
}

// Key returns the store key for r.
func Key(r *http.Request) string {
	return r.Method + " " + r.URL.String()
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	if !cacheableRequest(r) {
		Lookups.WithLabelValues(resultBypass).Inc()
		return t.next.RoundTrip(r)
	}

	ctx := r.Context()
	key := Key(r)
	reqCC := parseCacheControl(r.Header)

	if _, noStore := reqCC["no-store"]; noStore {
		Lookups.WithLabelValues(resultBypass).Inc()
		return t.next.RoundTrip(r)
	}

	if _, noCache := reqCC["no-cache"]; !noCache {
		raw, found, err := t.store.Load(ctx, key)
		switch {
		case err != nil:
			Lookups.WithLabelValues(resultError).Inc()
			t.logger.Warn("cache load failed", "key", key, "error", err)
		case found:
			resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), r)
			if err == nil {
				Lookups.WithLabelValues(resultHit).Inc()
				resp.Header.Set(HeaderStatus, "HIT")
				return resp, nil
			}
			Lookups.WithLabelValues(resultError).Inc()
			t.logger.Warn("cache entry unreadable", "key", key, "error", err)
			if err := t.store.Remove(ctx, key); err != nil {
				t.logger.Warn("cache remove failed", "key", key, "error", err)
			}
		default:
			Lookups.WithLabelValues(resultMiss).Inc()
		}
	}

	resp, err := t.next.RoundTrip(r)
	if err != nil {
		return nil, err
	}

	ttl, ok := freshness(resp, t.now())
	if !ok || resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	if resp.ContentLength > maxEntrySize {
		return resp, nil
	}

	orig := resp.Body
	body, err := io.ReadAll(io.LimitReader(orig, maxEntrySize+1))
	if err != nil {
		_ = orig.Close()
		return nil, fmt.Errorf("reading cacheable body: %w", err)
	}

	if len(body) > maxEntrySize {
		resp.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), orig), Closer: orig}
		return resp, nil
	}

	if err := orig.Close(); err != nil {
		t.logger.Error("failed to close response body", "error", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	raw, err := dump(resp, body)
	if err != nil {
		t.logger.Warn("cache dump failed", "key", key, "error", err)
		return resp, nil
	}

	if err := t.store.Save(ctx, key, raw, ttl); err != nil {
		t.logger.Warn("cache save failed", "key", key, "error", err)
		return resp, nil
	}
	Stores.Inc()

	return resp, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// dump serializes resp with body as a self-delimited HTTP/1.1 message.
func dump(resp *http.Response, body []byte) ([]byte, error) {
	cpy := *resp
	cpy.Header = resp.Header.Clone()
	cpy.Header.Del(HeaderStatus)
	cpy.TransferEncoding = nil
	cpy.ContentLength = int64(len(body))
	cpy.Body = io.NopCloser(bytes.NewReader(body))

	return httputil.DumpResponse(&cpy, true)
}

func cacheableRequest(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != "" {
		return false
	}
	if r.Header.Get("Authorization") != "" || r.Header.Get("Range") != "" {
		return false
	}
	return true
}

// freshness reports how long resp may be served from cache. Keys carry no
// request headers, so responses that vary on any are never stored.
func freshness(resp *http.Response, now time.Time) (time.Duration, bool) {
	if len(resp.Header.Values("Vary")) > 0 {
		return 0, false
	}

	cc := parseCacheControl(resp.Header)
	for _, directive := range []string{"no-store", "no-cache", "private"} {
		if _, ok := cc[directive]; ok {
			return 0, false
		}
	}

	if v, ok := cc["max-age"]; ok {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}

	if exp := resp.Header.Get("Expires"); exp != "" {
		expires, err := http.ParseTime(exp)
		if err != nil {
			return 0, false
		}

		base := now
		if date, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
			base = date
		}

		if ttl := expires.Sub(base); ttl > 0 {
			return ttl, true
		}
	}

	return 0, false
}

func parseCacheControl(h http.Header) map[string]string {
	cc := make(map[string]string)
	for _, line := range h.Values("Cache-Control") {
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value, _ := strings.Cut(part, "=")
			cc[strings.ToLower(strings.TrimSpace(name))] = strings.Trim(strings.TrimSpace(value), `"`)
		}
	}
	return cc
}
