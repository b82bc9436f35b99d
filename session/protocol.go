package session

import "net/http"

// ProtocolHandler serves requests in place of the network. Handlers of a
// session are asked in order; the first whose CanHandle reports true
// performs the round trip.
type ProtocolHandler interface {
	CanHandle(r *http.Request) bool
	RoundTrip(r *http.Request) (*http.Response, error)
}

// SchemeHandler handles every request whose URL scheme is Scheme.
type SchemeHandler struct {
	Scheme    string
	Transport http.RoundTripper
}

func (h SchemeHandler) CanHandle(r *http.Request) bool {
	return r.URL.Scheme == h.Scheme
}

func (h SchemeHandler) RoundTrip(r *http.Request) (*http.Response, error) {
	return h.Transport.RoundTrip(r)
}

// FileProtocol serves file:// URLs from the tree rooted at root.
func FileProtocol(root string) ProtocolHandler {
	return SchemeHandler{
		Scheme:    "file",
		Transport: http.NewFileTransport(http.Dir(root)),
	}
}

// protocols is an http.RoundTripper routing requests to the first
// ProtocolHandler accepting them, or to next.
type protocols struct {
	handlers []ProtocolHandler
	next     http.RoundTripper
}

func (p protocols) RoundTrip(r *http.Request) (*http.Response, error) {
	for _, h := range p.handlers {
		if h.CanHandle(r) {
			return h.RoundTrip(r)
		}
	}
	return p.next.RoundTrip(r)
}

// additionalHeaders is an http.RoundTripper adding session headers the
// request does not already carry.
type additionalHeaders struct {
	headers map[string]string
	next    http.RoundTripper
}

func (ah additionalHeaders) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	for k, v := range ah.headers {
		if cpy.Header.Get(k) == "" {
			cpy.Header.Set(k, v)
		}
	}
	return ah.next.RoundTrip(cpy)
}
