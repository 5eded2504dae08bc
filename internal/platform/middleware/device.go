package middleware

import (
	"context"
	"net/http"

	"github.com/mssola/useragent"
)

type contextKeyDevice struct{}

// GetDevice retrieves the checkpoint device description from the context.
// Empty when the scanner sent no User-Agent.
func GetDevice(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyDevice{}).(string); ok {
		return v
	}
	return ""
}

// WithDevice injects a device description; useful for tests.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, contextKeyDevice{}, device)
}

// Device derives a coarse device description (browser/kiosk family, OS) from
// the User-Agent so audit entries can attribute scans to a checkpoint class.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.UserAgent()
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		ua := useragent.New(raw)
		name, version := ua.Browser()
		device := name
		if version != "" {
			device = name + "/" + version
		}
		if os := ua.OS(); os != "" {
			device += " (" + os + ")"
		}
		next.ServeHTTP(w, r.WithContext(WithDevice(r.Context(), device)))
	})
}
