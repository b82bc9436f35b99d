// Package cache stores HTTP responses for reuse by a session.
//
// A [Store] holds serialized responses keyed by request, each with its own
// time-to-live. Three stores are provided:
//
//   - [Memory] keeps entries in process. [Shared] returns the process-wide
//     instance used by default sessions.
//   - [Disk] writes one file per entry, replacing files atomically.
//   - [Redis] keeps entries in a Redis database under a key prefix.
//
// [NewTransport] wraps an [http.RoundTripper] so that fresh GET responses are
// served from a store:
//
//	rt := cache.NewTransport(cache.NewMemory(), http.DefaultTransport, slog.Default())
//	hc := &http.Client{Transport: rt}
//
// Freshness comes from the response's Cache-Control max-age directive, or its
// Expires header. There is no revalidation; stale entries are dropped.
package cache
