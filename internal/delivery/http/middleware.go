package http

import (
	"context"
	"net/http"
	"strings"

	"boardtalk/internal/entity"
	"boardtalk/internal/usecase"
)

type contextKey string

const UserContextKey contextKey = "user"

type AuthMiddleware struct {
	authUc usecase.AuthUsecase
}

func NewAuthMiddleware(authUc usecase.AuthUsecase) *AuthMiddleware {
	return &AuthMiddleware{
		authUc: authUc,
	}
}

// Authenticate resolves the caller from "Authorization: Bearer <token>", or
// from the token query parameter for clients that cannot set headers.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeUnauthorized(w)
			return
		}

		claims, err := m.authUc.ValidateAccessToken(token)
		if err != nil {
			writeUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	return r.URL.Query().Get("token")
}

// Caller returns the authenticated claims placed by Authenticate.
func Caller(ctx context.Context) (*entity.TokenClaims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*entity.TokenClaims)
	return claims, ok && claims != nil && claims.UserId != ""
}

func callerId(r *http.Request) string {
	claims, ok := Caller(r.Context())
	if !ok {
		return ""
	}
	return claims.UserId
}

func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Cron-Secret")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
