package testutil

import (
	"net/http"

	id "volunteerhub/pkg/domain"
	"volunteerhub/pkg/requestcontext"
)

// WithIdentity attaches an authenticated caller to the request, as the auth
// middleware would after verifying a token.
func WithIdentity(req *http.Request, userID id.UserID, role requestcontext.Role) *http.Request {
	return req.WithContext(requestcontext.WithIdentity(req.Context(), userID, role))
}

// IdentityMiddleware attaches a fixed caller to every request.
func IdentityMiddleware(userID id.UserID, role requestcontext.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, WithIdentity(r, userID, role))
		})
	}
}
