package handler

import (
	"context"
	"net/http"

	"github.com/tawandab/pawnshop-engine/pkg/response"
)

type contextKey string

const actorKey contextKey = "actor"

// RequireActor extracts the authenticated actor set by the outer auth layer
// from the X-User-ID header. Command routes without an actor are rejected.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := r.Header.Get("X-User-ID")
		if actor == "" {
			response.Forbidden(w, "missing authenticated actor")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Actor returns the authenticated actor identifier from the request context.
func Actor(r *http.Request) string {
	actor, _ := r.Context().Value(actorKey).(string)
	return actor
}
