// Package session builds HTTP sessions from an ordered list of
// declarative configuration variants.
//
// The variants are folded into one [SessionConfig] by [Resolve]: the first
// occurrence of each single-valued option wins, and each [Disable] flag turns
// its capability off wherever it appears in the list.
//
//	s := session.New(
//		session.DisableConstrainedNetworkAccess,
//		session.RequestTimeout(10*time.Second),
//		session.Headers{"User-Agent": "fetcher/1.0"},
//	)
//	defer s.FinishTasksAndInvalidate()
//
//	b, resp, err := s.Data(ctx, session.FromHTTPRequest(req))
//
// A [Session] offers blocking operations for data, downloads, resumed
// downloads and uploads. Each is backed by a [Task] that can also be created
// suspended and driven by the caller with delegates receiving its events.
package session
