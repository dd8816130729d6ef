package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/server/auth"
)

type ctxKey int

const userIDKey ctxKey = iota

// userIDFrom returns the authenticated user id stored by authMiddleware.
func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// authMiddleware verifies the Bearer token and stores the user id in the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AccessTokenHeaderName)
		token, ok := strings.CutPrefix(header, common.AccessTokenScheme+" ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing access token")
			return
		}

		userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, common.ErrTokenExpired.Error())
			} else {
				writeError(w, http.StatusUnauthorized, "invalid access token")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}
