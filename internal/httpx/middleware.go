package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
	"github.com/ariefcatur/go-vendormart.git/internal/auth"
)

type ctxKey int

const identityKey ctxKey = 0

// IdentityFrom returns the authenticated identity set by RequireUser.
func IdentityFrom(ctx context.Context) auth.Identity {
	id, _ := ctx.Value(identityKey).(auth.Identity)
	return id
}

// Authenticator resolves bearer tokens. *auth.Service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

type AuthMiddleware struct{ Auth Authenticator }

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func (a *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// RequireRole gates a subtree to the given roles; admin always passes.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFrom(r.Context())
			if id.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, apperr.Forbidden("insufficient role"))
		})
	}
}
