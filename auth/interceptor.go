package auth

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"context"
	"net/http"
	"strings"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// TokenFromRequest reads the bearer token from the Authorization header,
// falling back to the token query parameter used by browser WebSocket clients.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Authenticate rejects requests without a valid token with 401 and injects
// the identity into the request context for the next handler.
func Authenticate(verifier contract.CredentialVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := verifier.VerifyConnectionCredential(TokenFromRequest(r))
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserIDKey, identity)))
	})
}

// IdentityFrom returns the identity injected by Authenticate.
func IdentityFrom(ctx context.Context) (domain.IdentityID, bool) {
	identity, ok := ctx.Value(UserIDKey).(domain.IdentityID)
	return identity, ok && identity != ""
}
