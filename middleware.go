package cloudflareip

import (
	"context"
	"errors"
	"net/http"
)

type resolutionContextKey struct{}

// NewContext returns a copy of ctx carrying resolution.
func NewContext(ctx context.Context, resolution Resolution) context.Context {
	return context.WithValue(ctx, resolutionContextKey{}, resolution)
}

// ResolutionFromContext returns the Resolution stored by Middleware.
func ResolutionFromContext(ctx context.Context) (Resolution, bool) {
	resolution, ok := ctx.Value(resolutionContextKey{}).(Resolution)
	return resolution, ok
}

// Middleware resolves the client IP of every request and stores the
// Resolution in the request context.
//
// Requests rejected by the spoof check are passed to the configured spoof
// handler instead of next. Requests without any usable address reach next
// without a Resolution.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resolution, err := r.ResolveRequest(req)
		switch {
		case errors.Is(err, ErrIPSpoofAttack):
			r.config.spoofHandler.ServeHTTP(w, req)
			return
		case err != nil:
			next.ServeHTTP(w, req)
			return
		}

		next.ServeHTTP(w, req.WithContext(NewContext(req.Context(), resolution)))
	})
}
