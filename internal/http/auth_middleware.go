package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Dip11/medic-media-coding-test-backend/internal/domain"
)

type authContextKey string

const contextKeyUser authContextKey = "taskboard-auth-user"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth gates a handler behind bearer-token authentication. Rejections
// short-circuit before the handler runs; on success the resolved public user
// rides on the request context.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the Authorization header, verifies the token, and
// resolves it to a live user.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, domain.PublicUser, bool) {
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil {
		r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication required")
		return req.Context(), domain.PublicUser{}, false
	}
	user, err := r.auth.Authorize(req.Context(), token)
	if err != nil {
		r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return req.Context(), domain.PublicUser{}, false
	}
	ctx := context.WithValue(req.Context(), contextKeyUser, user)
	return ctx, user, true
}

// userFromContext extracts the authenticated user from context.
func userFromContext(ctx context.Context) (domain.PublicUser, bool) {
	value := ctx.Value(contextKeyUser)
	if value == nil {
		return domain.PublicUser{}, false
	}
	user, ok := value.(domain.PublicUser)
	return user, ok
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
