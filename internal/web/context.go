package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/fileopen/internal/core"
	mw "github.com/JonMunkholm/fileopen/internal/web/middleware"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx for history
// records.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, mw.ClientIP(r)) // RemoteAddr already rewritten by TrustedRealIP
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
