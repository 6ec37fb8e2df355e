package rest

import (
	"context"
	"net/http"

	"github.com/ShikharGupta100/Transaction-Ledger/internal/domain"
)

type contextKey string

const actorKey contextKey = "actor"

// ActorFromHeaders trusts the upstream auth collaborator to have resolved the
// caller, passing identity via X-User-ID and the system capability via
// X-System-Role. This service performs no authentication of its own.
func ActorFromHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing X-User-ID")
			return
		}

		actor := domain.Actor{
			UserID:   userID,
			IsSystem: r.Header.Get("X-System-Role") == "true",
		}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) domain.Actor {
	actor, _ := r.Context().Value(actorKey).(domain.Actor)
	return actor
}
