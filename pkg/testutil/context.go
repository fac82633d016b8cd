package testutil

import (
	"net/http"

	"pharmachain/pkg/domain"
	"pharmachain/pkg/requestcontext"
)

// WithCaller adds an authenticated caller to the request context.
// This simulates what the auth middleware does for bearer-token requests.
// If addr is not a valid address, it will not be added to the context.
func WithCaller(req *http.Request, addr string) *http.Request {
	caller, err := domain.ParseAddress(addr)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}
